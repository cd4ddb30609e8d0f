package service

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"ai-studymate-be/internal/constant"
	"ai-studymate-be/internal/entity"
	"ai-studymate-be/internal/repository/cache"
	"ai-studymate-be/internal/repository/memory"
	"ai-studymate-be/internal/repository/specification"
	"ai-studymate-be/internal/repository/unitofwork"
	"ai-studymate-be/pkg/rag/retrieval"

	"github.com/google/uuid"
)

const (
	defaultSessionName = "New chat"
	maxAutoNameLen     = 48
)

// ISessionService owns the chat session lifecycle: creation, restore,
// transcript appends, and persona updates.
type ISessionService interface {
	Create(ctx context.Context, userId uuid.UUID, name string, classId *uuid.UUID, className string, domainType string) (*entity.ChatSession, error)
	Restore(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*entity.ChatSession, []*entity.ChatMessage, error)
	AppendTurn(ctx context.Context, session *entity.ChatSession, userContent, assistantContent string, citations []retrieval.Citation) (*entity.ChatMessage, *entity.ChatMessage, error)
	SetPersona(ctx context.Context, session *entity.ChatSession, persona string) error
	AutoName(ctx context.Context, session *entity.ChatSession, firstQuery string) error
}

type sessionService struct {
	uowFactory   unitofwork.RepositoryFactory
	stateRepo    *memory.SessionStateRepository
	sessionCache *cache.SessionCacheRepository

	// Per-session append serialization: concurrent turns on the same session
	// must observe strictly increasing seq values.
	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

// sessionLock is reference counted so idle entries can be evicted; the map
// would otherwise grow with every session the process ever touched.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	stateRepo *memory.SessionStateRepository,
	sessionCache *cache.SessionCacheRepository,
) ISessionService {
	return &sessionService{
		uowFactory:   uowFactory,
		stateRepo:    stateRepo,
		sessionCache: sessionCache,
		locks:        make(map[uuid.UUID]*sessionLock),
	}
}

// lockSession acquires the per-session append lock and returns its release
// function. The entry is dropped from the map once the last holder releases.
func (s *sessionService) lockSession(sessionId uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionId]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionId] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionId)
		}
		s.mu.Unlock()
	}
}

func (s *sessionService) Create(ctx context.Context, userId uuid.UUID, name string, classId *uuid.UUID, className string, domainType string) (*entity.ChatSession, error) {
	if strings.TrimSpace(name) == "" {
		name = defaultSessionName
	}

	session := &entity.ChatSession{
		Id:         uuid.New(),
		UserId:     userId,
		Name:       name,
		ClassId:    classId,
		ClassName:  className,
		DomainType: domainType,
		CreatedAt:  time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	s.stateRepo.Save(&memory.SessionState{
		SessionId:  session.Id,
		DomainType: session.DomainType,
		Collection: session.Collection(),
		Name:       session.Name,
	})

	return session, nil
}

// Restore loads a session and its ordered transcript, reading through the
// Redis snapshot cache when possible. Ownership is always re-verified against
// the database row, cached or not.
func (s *sessionService) Restore(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*entity.ChatSession, []*entity.ChatMessage, error) {
	if snapshot, found := s.sessionCache.Get(ctx, sessionId); found {
		if snapshot.Session.UserId == userId {
			return snapshot.Session, snapshot.Messages, nil
		}
		return nil, nil, ErrSessionNotFound
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "seq", Desc: false},
	)
	if err != nil {
		return nil, nil, err
	}

	s.sessionCache.Set(ctx, &cache.SessionSnapshot{Session: session, Messages: messages})

	return session, messages, nil
}

// AppendTurn persists one user/assistant exchange atomically: both messages,
// their citations, and the seq advance commit together or not at all.
func (s *sessionService) AppendTurn(ctx context.Context, session *entity.ChatSession, userContent, assistantContent string, citations []retrieval.Citation) (*entity.ChatMessage, *entity.ChatMessage, error) {
	unlock := s.lockSession(session.Id)
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()

	seq, err := uow.ChatMessageRepository().NextSeq(ctx, session.Id)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          constant.ChatMessageRoleUser,
		Content:       userContent,
		Seq:           seq,
		CreatedAt:     now,
	}
	assistantMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          constant.ChatMessageRoleAssistant,
		Content:       assistantContent,
		Seq:           seq + 1,
		CreatedAt:     now,
	}

	if err := uow.ChatMessageRepository().Create(ctx, userMessage); err != nil {
		return nil, nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, assistantMessage); err != nil {
		return nil, nil, err
	}

	if len(citations) > 0 {
		rows := make([]*entity.ChatCitation, len(citations))
		for i, c := range citations {
			var page *int
			if c.Page > 0 {
				p := c.Page
				page = &p
			}
			rows[i] = &entity.ChatCitation{
				Id:             uuid.New(),
				ChatMessageId:  assistantMessage.Id,
				Source:         c.Source,
				Page:           page,
				Preview:        c.Preview,
				RelevanceScore: c.RelevanceScore,
				Position:       i,
				CreatedAt:      now,
			}
		}
		if err := uow.ChatCitationRepository().CreateBulk(ctx, rows); err != nil {
			return nil, nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, err
	}

	s.sessionCache.Invalidate(ctx, session.Id)

	return userMessage, assistantMessage, nil
}

func (s *sessionService) SetPersona(ctx context.Context, session *entity.ChatSession, persona string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().UpdatePersona(ctx, session.Id, persona); err != nil {
		return err
	}
	session.Persona = persona

	if state, found := s.stateRepo.Get(session.Id); found {
		state.Persona = persona
		s.stateRepo.Save(state)
	}
	s.sessionCache.Invalidate(ctx, session.Id)
	return nil
}

// AutoName derives a session name from the first query, once. Sessions that
// already carry a non-default name keep it.
func (s *sessionService) AutoName(ctx context.Context, session *entity.ChatSession, firstQuery string) error {
	if session.Name != defaultSessionName {
		return nil
	}

	name := strings.TrimSpace(firstQuery)
	if name == "" {
		return nil
	}
	if len(name) > maxAutoNameLen {
		// Back off to a rune boundary before cutting on a word
		end := maxAutoNameLen
		for end > 0 && !utf8.RuneStart(name[end]) {
			end--
		}
		cut := name[:end]
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
		name = cut + "..."
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().UpdateName(ctx, session.Id, name); err != nil {
		return err
	}
	session.Name = name
	s.sessionCache.Invalidate(ctx, session.Id)
	return nil
}
