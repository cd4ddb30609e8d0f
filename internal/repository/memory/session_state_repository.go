package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionState is the hot per-session state kept in process memory so active
// conversations skip a database round trip on every turn.
type SessionState struct {
	SessionId  uuid.UUID
	Persona    string
	DomainType string
	Collection string
	Name       string
}

type SessionStateRepository struct {
	cache *cache.Cache
}

func NewSessionStateRepository() *SessionStateRepository {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionStateRepository{
		cache: c,
	}
}

func (r *SessionStateRepository) Save(state *SessionState) {
	r.cache.Set(state.SessionId.String(), state, cache.DefaultExpiration)
}

func (r *SessionStateRepository) Get(sessionId uuid.UUID) (*SessionState, bool) {
	if x, found := r.cache.Get(sessionId.String()); found {
		return x.(*SessionState), true
	}
	return nil, false
}

func (r *SessionStateRepository) Delete(sessionId uuid.UUID) {
	r.cache.Delete(sessionId.String())
}
