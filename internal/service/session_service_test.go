package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"ai-studymate-be/internal/constant"
	"ai-studymate-be/internal/repository/cache"
	"ai-studymate-be/internal/repository/memory"
	"ai-studymate-be/pkg/rag/retrieval"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService(store *fakeStore) ISessionService {
	return NewSessionService(
		&fakeFactory{store: store},
		memory.NewSessionStateRepository(),
		cache.NewSessionCacheRepository(nil),
	)
}

func TestAppendTurn_ConcurrentAppendsSerialized(t *testing.T) {
	store := newFakeStore()
	svc := newSessionService(store)

	session, err := svc.Create(context.Background(), uuid.New(), "", nil, "", "GENERAL")
	require.NoError(t, err)

	const turns = 10
	var wg sync.WaitGroup
	errs := make(chan error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.AppendTurn(context.Background(), session, "q", "a", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Every message got a unique, gapless seq
	require.Len(t, store.messages, 2*turns)
	seen := make(map[int64]bool)
	for _, m := range store.messages {
		assert.False(t, seen[m.Seq], "duplicate seq %d", m.Seq)
		seen[m.Seq] = true
	}
	for s := int64(1); s <= 2*turns; s++ {
		assert.True(t, seen[s], "missing seq %d", s)
	}
}

func TestAppendTurn_LockEntriesEvictedWhenIdle(t *testing.T) {
	store := newFakeStore()
	svc := newSessionService(store)
	impl := svc.(*sessionService)

	userId := uuid.New()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		session, err := svc.Create(context.Background(), userId, "", nil, "", "GENERAL")
		require.NoError(t, err)
		for j := 0; j < 3; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := svc.AppendTurn(context.Background(), session, "q", "a", nil)
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	// No appends in flight, so no session holds a lock entry
	impl.mu.Lock()
	defer impl.mu.Unlock()
	assert.Empty(t, impl.locks)
}

func TestAppendTurn_CitationsLinkedToAssistant(t *testing.T) {
	store := newFakeStore()
	svc := newSessionService(store)

	session, err := svc.Create(context.Background(), uuid.New(), "", nil, "", "GENERAL")
	require.NoError(t, err)

	citations := []retrieval.Citation{
		{Source: "notes.pdf", Page: 3, Preview: "preview one", RelevanceScore: 0.9},
		{Source: "notes.pdf", Page: 0, Preview: "preview two", RelevanceScore: 0.5},
	}
	_, assistant, err := svc.AppendTurn(context.Background(), session, "q", "a", citations)
	require.NoError(t, err)
	assert.Equal(t, constant.ChatMessageRoleAssistant, assistant.Role)

	require.Len(t, store.citations, 2)
	assert.Equal(t, assistant.Id, store.citations[0].ChatMessageId)
	require.NotNil(t, store.citations[0].Page)
	assert.Equal(t, 3, *store.citations[0].Page)
	assert.Nil(t, store.citations[1].Page) // page 0 means unknown
	assert.Equal(t, 1, store.citations[1].Position)
}

func TestAutoName_FromFirstQuery(t *testing.T) {
	store := newFakeStore()
	svc := newSessionService(store)

	session, err := svc.Create(context.Background(), uuid.New(), "", nil, "", "GENERAL")
	require.NoError(t, err)
	require.Equal(t, defaultSessionName, session.Name)

	require.NoError(t, svc.AutoName(context.Background(), session, "Explain the causes of the French Revolution"))
	assert.Equal(t, "Explain the causes of the French Revolution", session.Name)
	assert.Equal(t, session.Name, store.sessions[session.Id].Name)
}

func TestAutoName_TruncatesLongQueriesOnWordBoundary(t *testing.T) {
	store := newFakeStore()
	svc := newSessionService(store)

	session, err := svc.Create(context.Background(), uuid.New(), "", nil, "", "GENERAL")
	require.NoError(t, err)

	long := "Compare and contrast the economic policies of the interwar period across Europe"
	require.NoError(t, svc.AutoName(context.Background(), session, long))

	assert.True(t, strings.HasSuffix(session.Name, "..."))
	assert.LessOrEqual(t, len(session.Name), maxAutoNameLen+3)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(session.Name, "..."), " "))
}

func TestAutoName_TruncationKeepsRunesIntact(t *testing.T) {
	store := newFakeStore()
	svc := newSessionService(store)

	session, err := svc.Create(context.Background(), uuid.New(), "", nil, "", "GENERAL")
	require.NoError(t, err)

	// One long word of multibyte runes forces a cut inside the string,
	// past the byte limit but never inside a rune
	long := strings.Repeat("物理学", 10)
	require.NoError(t, svc.AutoName(context.Background(), session, long))

	assert.True(t, strings.HasSuffix(session.Name, "..."))
	assert.True(t, utf8.ValidString(session.Name))
	assert.LessOrEqual(t, len(session.Name), maxAutoNameLen+3)
}

func TestAutoName_KeepsExplicitName(t *testing.T) {
	store := newFakeStore()
	svc := newSessionService(store)

	session, err := svc.Create(context.Background(), uuid.New(), "Thermo revision", nil, "", "SCIENCE")
	require.NoError(t, err)

	require.NoError(t, svc.AutoName(context.Background(), session, "some other query"))
	assert.Equal(t, "Thermo revision", session.Name)
}

func TestRestore_NotFound(t *testing.T) {
	svc := newSessionService(newFakeStore())

	_, _, err := svc.Restore(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRestore_ReturnsOrderedTranscript(t *testing.T) {
	store := newFakeStore()
	svc := newSessionService(store)

	userId := uuid.New()
	session, err := svc.Create(context.Background(), userId, "", nil, "", "GENERAL")
	require.NoError(t, err)

	_, _, err = svc.AppendTurn(context.Background(), session, "first q", "first a", nil)
	require.NoError(t, err)
	_, _, err = svc.AppendTurn(context.Background(), session, "second q", "second a", nil)
	require.NoError(t, err)

	restored, messages, err := svc.Restore(context.Background(), userId, session.Id)
	require.NoError(t, err)
	assert.Equal(t, session.Id, restored.Id)
	require.Len(t, messages, 4)
	assert.Equal(t, "first q", messages[0].Content)
	assert.Equal(t, "second a", messages[3].Content)
}

func TestSetPersona_EmptyClears(t *testing.T) {
	store := newFakeStore()
	svc := newSessionService(store)

	session, err := svc.Create(context.Background(), uuid.New(), "", nil, "", "GENERAL")
	require.NoError(t, err)

	require.NoError(t, svc.SetPersona(context.Background(), session, "socratic tutor"))
	assert.Equal(t, "socratic tutor", store.sessions[session.Id].Persona)

	require.NoError(t, svc.SetPersona(context.Background(), session, ""))
	assert.Equal(t, "", store.sessions[session.Id].Persona)
}
