package service

import (
	"context"
	"fmt"
	"sync"

	"ai-studymate-be/internal/entity"
	"ai-studymate-be/internal/repository/contract"
	"ai-studymate-be/internal/repository/specification"
	"ai-studymate-be/internal/repository/unitofwork"
	"ai-studymate-be/pkg/llm"
	"ai-studymate-be/pkg/rag/retrieval"

	"github.com/google/uuid"
)

// fakeStore is the shared in-memory backing for all fake repositories.
type fakeStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*entity.ChatSession
	messages  []*entity.ChatMessage
	citations []*entity.ChatCitation
	facts     []*entity.MemoryFact
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]*entity.ChatSession),
	}
}

type fakeUow struct {
	store   *fakeStore
	commits int
}

type fakeFactory struct {
	store *fakeStore
	last  *fakeUow
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	f.last = &fakeUow{store: f.store}
	return f.last
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { u.commits++; return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{store: u.store}
}
func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{store: u.store}
}
func (u *fakeUow) ChatCitationRepository() contract.ChatCitationRepository {
	return &fakeCitationRepo{store: u.store}
}
func (u *fakeUow) MemoryFactRepository() contract.MemoryFactRepository {
	return &fakeFactRepo{store: u.store}
}
func (u *fakeUow) DocumentChunkRepository() contract.DocumentChunkRepository {
	return nil // chat turns never touch the chunk store directly
}

// specFilter extracts the concrete filter values the fakes understand.
type specFilter struct {
	id        *uuid.UUID
	userId    *uuid.UUID
	sessionId *uuid.UUID
	visible   *specification.VisibleFacts
}

func parseSpecs(specs []specification.Specification) specFilter {
	var f specFilter
	for _, s := range specs {
		switch v := s.(type) {
		case specification.ByID:
			id := v.ID
			f.id = &id
		case specification.UserOwnedBy:
			uid := v.UserID
			f.userId = &uid
		case specification.ByChatSessionID:
			sid := v.ChatSessionID
			f.sessionId = &sid
		case specification.VisibleFacts:
			vf := v
			f.visible = &vf
		}
	}
	return f
}

type fakeSessionRepo struct{ store *fakeStore }

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *session
	r.store.sessions[session.Id] = &cp
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	return r.Create(ctx, session)
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f := parseSpecs(specs)
	for _, s := range r.store.sessions {
		if f.id != nil && s.Id != *f.id {
			continue
		}
		if f.userId != nil && s.UserId != *f.userId {
			continue
		}
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f := parseSpecs(specs)
	var out []*entity.ChatSession
	for _, s := range r.store.sessions {
		if f.userId != nil && s.UserId != *f.userId {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeSessionRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if s, ok := r.store.sessions[id]; ok {
		s.Name = name
	}
	return nil
}

func (r *fakeSessionRepo) UpdatePersona(ctx context.Context, id uuid.UUID, persona string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if s, ok := r.store.sessions[id]; ok {
		s.Persona = persona
	}
	return nil
}

type fakeMessageRepo struct{ store *fakeStore }

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.messages {
		if m.ChatSessionId == message.ChatSessionId && m.Seq == message.Seq {
			return fmt.Errorf("duplicate key: (chat_session_id, seq)")
		}
	}
	cp := *message
	r.store.messages = append(r.store.messages, &cp)
	return nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f := parseSpecs(specs)
	var out []*entity.ChatMessage
	for _, m := range r.store.messages {
		if f.sessionId != nil && m.ChatSessionId != *f.sessionId {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	// store order already follows seq order for a session
	return out, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeMessageRepo) NextSeq(ctx context.Context, sessionId uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var max int64
	for _, m := range r.store.messages {
		if m.ChatSessionId == sessionId && m.Seq > max {
			max = m.Seq
		}
	}
	return max + 1, nil
}

type fakeCitationRepo struct{ store *fakeStore }

func (r *fakeCitationRepo) CreateBulk(ctx context.Context, citations []*entity.ChatCitation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range citations {
		cp := *c
		r.store.citations = append(r.store.citations, &cp)
	}
	return nil
}

func (r *fakeCitationRepo) FindByMessageIds(ctx context.Context, messageIds []uuid.UUID) ([]*entity.ChatCitation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(messageIds))
	for _, id := range messageIds {
		wanted[id] = true
	}
	var out []*entity.ChatCitation
	for _, c := range r.store.citations {
		if wanted[c.ChatMessageId] {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeFactRepo struct{ store *fakeStore }

func (r *fakeFactRepo) Create(ctx context.Context, fact *entity.MemoryFact) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *fact
	r.store.facts = append(r.store.facts, &cp)
	return nil
}

func (r *fakeFactRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MemoryFact, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f := parseSpecs(specs)
	var out []*entity.MemoryFact
	for _, fact := range r.store.facts {
		if f.visible != nil {
			if fact.UserId != f.visible.UserID {
				continue
			}
			if fact.SessionId != nil {
				if f.visible.SessionID == nil || *fact.SessionId != *f.visible.SessionID {
					continue
				}
			}
		}
		cp := *fact
		out = append(out, &cp)
	}
	return out, nil
}

// fakeLLM replies with a canned answer and records the prompts it saw.
type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	history [][]llm.Message
}

func (f *fakeLLM) record(history []llm.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, history)
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.record(history)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, options ...llm.Option) (string, error) {
	reply, err := f.Chat(ctx, history)
	if err != nil {
		return "", err
	}
	onToken(reply)
	return reply, nil
}

func (f *fakeLLM) Generate(ctx context.Context, promptText string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: promptText}})
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history)
}

// fakeSearchProvider implements retrieval.SearchProvider and records scopes.
type fakeSearchProvider struct {
	mu     sync.Mutex
	hits   []retrieval.Hit
	err    error
	scopes []retrieval.Scope
}

func (f *fakeSearchProvider) Search(ctx context.Context, query string, scope retrieval.Scope, k int) ([]retrieval.Hit, error) {
	f.mu.Lock()
	f.scopes = append(f.scopes, scope)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeSearchProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scopes)
}

func (f *fakeSearchProvider) lastScope() retrieval.Scope {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.scopes) == 0 {
		return retrieval.Scope{}
	}
	return f.scopes[len(f.scopes)-1]
}

// fakePublisher captures published payloads.
type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}
