package cache

import (
	"context"
	"encoding/json"
	"time"

	"ai-studymate-be/internal/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "chat:session:"
	sessionTTL       = 30 * time.Minute
)

// SessionSnapshot is the cached restore payload: the session row plus its
// ordered transcript, shared across instances through Redis.
type SessionSnapshot struct {
	Session  *entity.ChatSession   `json:"session"`
	Messages []*entity.ChatMessage `json:"messages"`
}

// SessionCacheRepository is a read-through cache in front of session restore.
// A nil Redis client degrades to a no-op; every lookup then misses.
type SessionCacheRepository struct {
	rdb *redis.Client
}

func NewSessionCacheRepository(rdb *redis.Client) *SessionCacheRepository {
	return &SessionCacheRepository{
		rdb: rdb,
	}
}

func (r *SessionCacheRepository) Get(ctx context.Context, sessionId uuid.UUID) (*SessionSnapshot, bool) {
	if r.rdb == nil {
		return nil, false
	}
	raw, err := r.rdb.Get(ctx, sessionKeyPrefix+sessionId.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var snapshot SessionSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, false
	}
	return &snapshot, true
}

func (r *SessionCacheRepository) Set(ctx context.Context, snapshot *SessionSnapshot) {
	if r.rdb == nil || snapshot == nil || snapshot.Session == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	r.rdb.Set(ctx, sessionKeyPrefix+snapshot.Session.Id.String(), raw, sessionTTL)
}

// Invalidate drops the cached snapshot; called after every append so the next
// restore reads the authoritative transcript.
func (r *SessionCacheRepository) Invalidate(ctx context.Context, sessionId uuid.UUID) {
	if r.rdb == nil {
		return
	}
	r.rdb.Del(ctx, sessionKeyPrefix+sessionId.String())
}
