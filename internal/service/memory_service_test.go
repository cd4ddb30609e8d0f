package service

import (
	"context"
	"testing"

	"ai-studymate-be/internal/constant"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFact_PermanentIgnoresSession(t *testing.T) {
	store := newFakeStore()
	svc := NewMemoryService(&fakeFactory{store: store})

	sessionId := uuid.New()
	resp, err := svc.AddFact(context.Background(), uuid.New(), &sessionId, constant.MemoryScopePermanent, "prefers short answers")
	require.NoError(t, err)
	assert.Equal(t, constant.MemoryScopePermanent, resp.Scope)

	require.Len(t, store.facts, 1)
	assert.Nil(t, store.facts[0].SessionId)
}

func TestAddFact_SessionScoped(t *testing.T) {
	store := newFakeStore()
	svc := NewMemoryService(&fakeFactory{store: store})

	sessionId := uuid.New()
	_, err := svc.AddFact(context.Background(), uuid.New(), &sessionId, constant.MemoryScopeSession, "exam is on Friday")
	require.NoError(t, err)

	require.Len(t, store.facts, 1)
	require.NotNil(t, store.facts[0].SessionId)
	assert.Equal(t, sessionId, *store.facts[0].SessionId)
}

func TestVisibleFacts_PermanentPlusOwnSession(t *testing.T) {
	store := newFakeStore()
	svc := NewMemoryService(&fakeFactory{store: store})

	userId := uuid.New()
	sessionA := uuid.New()
	sessionB := uuid.New()

	_, err := svc.AddFact(context.Background(), userId, nil, constant.MemoryScopePermanent, "permanent fact")
	require.NoError(t, err)
	_, err = svc.AddFact(context.Background(), userId, &sessionA, constant.MemoryScopeSession, "session A fact")
	require.NoError(t, err)
	_, err = svc.AddFact(context.Background(), userId, &sessionB, constant.MemoryScopeSession, "session B fact")
	require.NoError(t, err)
	_, err = svc.AddFact(context.Background(), uuid.New(), nil, constant.MemoryScopePermanent, "someone else's fact")
	require.NoError(t, err)

	facts, err := svc.VisibleFacts(context.Background(), userId, &sessionA)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"permanent fact", "session A fact"}, facts)
}
