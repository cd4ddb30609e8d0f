package retrieval

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	hits  []Hit
	err   error
	calls int32

	// failures, if > 0, makes the first N calls fail before succeeding
	failures int32
}

func (f *fakeProvider) Search(ctx context.Context, query string, scope Scope, k int) ([]Hit, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	if n <= f.failures {
		return nil, errors.New("transient provider failure")
	}
	return f.hits, nil
}

func (f *fakeProvider) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.ProviderTimeout = 200 * time.Millisecond
	cfg.RetryBackoff = 5 * time.Millisecond
	return cfg
}

func TestRetrieveFusesWeightedScores(t *testing.T) {
	// Keyword statistics are min-max scaled, a single hit normalizing to 1.0,
	// so with vector 0.9 and weights 0.7/0.3 the fused score is
	// 0.7*0.9 + 0.3*1.0 = 0.93.
	vector := &fakeProvider{hits: []Hit{
		{ChunkID: "c1", Text: "The holding in Marbury v. Madison ...", Source: "conlaw.pdf", Page: 12, Collection: "Con Law", Score: 0.9},
	}}
	keyword := &fakeProvider{hits: []Hit{
		{ChunkID: "c1", Text: "The holding in Marbury v. Madison ...", Source: "conlaw.pdf", Page: 12, Collection: "Con Law", Score: 0.95},
	}}

	h := NewHybridRetriever(vector, keyword, fastConfig(), testLogger())

	result, err := h.Retrieve(context.Background(), Query{
		Text:       "What is the holding in Marbury v. Madison?",
		Collection: "Con Law",
		K:          5,
	})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)

	assert.InDelta(t, 0.93, result.Chunks[0].FusedScore, 1e-9)

	citations := result.Citations(200)
	require.Len(t, citations, 1)
	assert.Equal(t, "conlaw.pdf", citations[0].Source)
	assert.Equal(t, 12, citations[0].Page)
	assert.InDelta(t, 0.93, citations[0].RelevanceScore, 1e-9)
}

func TestCitationsPreviewTruncatesOnRuneBoundary(t *testing.T) {
	result := Result{Chunks: []ScoredChunk{{
		ChunkID:    "c1",
		Text:       strings.Repeat("熱力学", 20),
		Source:     "physics.pdf",
		FusedScore: 0.8,
	}}}

	// 10 is not a multiple of the 3-byte rune width, so a byte cut would
	// produce an invalid string
	citations := result.Citations(10)
	require.Len(t, citations, 1)
	assert.True(t, utf8.ValidString(citations[0].Preview))
	assert.True(t, strings.HasSuffix(citations[0].Preview, "..."))
	assert.LessOrEqual(t, len(citations[0].Preview), 10+3)
}

func TestRetrieveChunkAbsentFromOneProviderContributesZero(t *testing.T) {
	vector := &fakeProvider{hits: []Hit{
		{ChunkID: "v-only", Source: "a.pdf", Collection: "col", Score: 1.0},
	}}
	keyword := &fakeProvider{hits: []Hit{
		{ChunkID: "k-only", Source: "b.pdf", Collection: "col", Score: 3.0},
	}}

	h := NewHybridRetriever(vector, keyword, fastConfig(), testLogger())
	result, err := h.Retrieve(context.Background(), Query{Text: "q", Collection: "col", K: 10})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)

	scores := map[string]float64{}
	for _, c := range result.Chunks {
		scores[c.ChunkID] = c.FusedScore
	}
	assert.InDelta(t, 0.7, scores["v-only"], 1e-9) // 0.7*1.0 + 0.3*0
	assert.InDelta(t, 0.3, scores["k-only"], 1e-9) // 0.7*0 + 0.3*1.0
}

func TestRetrieveMinMaxNormalizesKeywordScores(t *testing.T) {
	keyword := &fakeProvider{hits: []Hit{
		{ChunkID: "top", Source: "a.pdf", Collection: "col", Score: 12.0},
		{ChunkID: "mid", Source: "a.pdf", Collection: "col", Score: 8.5},
		{ChunkID: "low", Source: "a.pdf", Collection: "col", Score: 5.0},
	}}
	vector := &fakeProvider{}

	h := NewHybridRetriever(vector, keyword, fastConfig(), testLogger())
	result, err := h.Retrieve(context.Background(), Query{Text: "q", Collection: "col", K: 10})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)

	assert.Equal(t, "top", result.Chunks[0].ChunkID)
	assert.InDelta(t, 0.3, result.Chunks[0].FusedScore, 1e-9) // normalized to 1.0
	assert.Equal(t, "low", result.Chunks[2].ChunkID)
	assert.InDelta(t, 0.0, result.Chunks[2].FusedScore, 1e-9) // normalized to 0.0
}

func TestRetrieveOrderingIsStableAndDescending(t *testing.T) {
	vector := &fakeProvider{hits: []Hit{
		{ChunkID: "c3", Source: "b.pdf", Collection: "col", Score: 0.5},
		{ChunkID: "c1", Source: "a.pdf", Collection: "col", Score: 0.9},
		{ChunkID: "c2", Source: "a.pdf", Collection: "col", Score: 0.5},
	}}
	keyword := &fakeProvider{}

	h := NewHybridRetriever(vector, keyword, fastConfig(), testLogger())

	var first []string
	for run := 0; run < 5; run++ {
		result, err := h.Retrieve(context.Background(), Query{Text: "q", Collection: "col", K: 10})
		require.NoError(t, err)

		var ids []string
		for i, c := range result.Chunks {
			ids = append(ids, c.ChunkID)
			if i > 0 {
				assert.GreaterOrEqual(t, result.Chunks[i-1].FusedScore, c.FusedScore,
					"fused scores must be non-increasing")
			}
		}
		if run == 0 {
			first = ids
			// ties broken by source then chunk id
			assert.Equal(t, []string{"c1", "c2", "c3"}, ids)
		} else {
			assert.Equal(t, first, ids, "re-running identical retrieval must yield identical order")
		}
	}
}

func TestRetrieveTruncatesToK(t *testing.T) {
	var hits []Hit
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		hits = append(hits, Hit{ChunkID: id, Source: id + ".pdf", Collection: "col", Score: 0.5})
	}
	h := NewHybridRetriever(&fakeProvider{hits: hits}, &fakeProvider{}, fastConfig(), testLogger())

	result, err := h.Retrieve(context.Background(), Query{Text: "q", Collection: "col", K: 3})
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 3)

	// Fewer unique chunks than k: return all, no padding
	result, err = h.Retrieve(context.Background(), Query{Text: "q", Collection: "col", K: 50})
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 5)
}

func TestRetrieveZeroKAndEmptyQuerySkipProviders(t *testing.T) {
	vector := &fakeProvider{hits: []Hit{{ChunkID: "c", Collection: "col", Score: 1}}}
	keyword := &fakeProvider{}
	h := NewHybridRetriever(vector, keyword, fastConfig(), testLogger())

	result, err := h.Retrieve(context.Background(), Query{Text: "query", Collection: "col", K: 0})
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.Nil(t, result.Citations(200))

	result, err = h.Retrieve(context.Background(), Query{Text: "   ", Collection: "col", K: 5})
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)

	assert.Equal(t, 0, vector.callCount(), "no provider calls for empty query or k=0")
	assert.Equal(t, 0, keyword.callCount())
}

func TestRetrieveDegradesWhenOneProviderFails(t *testing.T) {
	vector := &fakeProvider{err: errors.New("vector store down")}
	keyword := &fakeProvider{hits: []Hit{
		{ChunkID: "k1", Source: "a.pdf", Collection: "col", Score: 2.0},
	}}

	h := NewHybridRetriever(vector, keyword, fastConfig(), testLogger())
	result, err := h.Retrieve(context.Background(), Query{Text: "q", Collection: "col", K: 5})
	require.NoError(t, err, "single provider failure must degrade, not fail")
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "k1", result.Chunks[0].ChunkID)
}

func TestRetrieveFailsOnlyWhenBothProvidersUnreachable(t *testing.T) {
	vector := &fakeProvider{err: errors.New("down")}
	keyword := &fakeProvider{err: errors.New("down")}

	h := NewHybridRetriever(vector, keyword, fastConfig(), testLogger())
	_, err := h.Retrieve(context.Background(), Query{Text: "q", Collection: "col", K: 5})
	require.ErrorIs(t, err, ErrRetrievalUnavailable)

	// One retry before surfacing: two calls per provider
	assert.Equal(t, 2, vector.callCount())
	assert.Equal(t, 2, keyword.callCount())
}

func TestRetrieveRecoversOnRetry(t *testing.T) {
	vector := &fakeProvider{failures: 1, hits: []Hit{
		{ChunkID: "v1", Source: "a.pdf", Collection: "col", Score: 0.8},
	}}
	keyword := &fakeProvider{failures: 1, hits: []Hit{
		{ChunkID: "v1", Source: "a.pdf", Collection: "col", Score: 4.0},
	}}

	h := NewHybridRetriever(vector, keyword, fastConfig(), testLogger())
	result, err := h.Retrieve(context.Background(), Query{Text: "q", Collection: "col", K: 5})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
}

func TestRetrieveDropsOutOfCollectionChunks(t *testing.T) {
	vector := &fakeProvider{hits: []Hit{
		{ChunkID: "ok", Source: "a.pdf", Collection: "Con Law", Score: 0.6},
		{ChunkID: "leak", Source: "x.pdf", Collection: "Torts", Score: 0.99},
	}}
	h := NewHybridRetriever(vector, &fakeProvider{}, fastConfig(), testLogger())

	result, err := h.Retrieve(context.Background(), Query{Text: "q", Collection: "Con Law", K: 5})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "ok", result.Chunks[0].ChunkID)

	for _, c := range result.Citations(200) {
		assert.NotEqual(t, "x.pdf", c.Source, "cross-collection chunk must never become a citation")
	}
}

func TestRetrieveHonorsSelectedFilesAllowList(t *testing.T) {
	vector := &fakeProvider{hits: []Hit{
		{ChunkID: "in", Source: "lecture1.pdf", Collection: "col", Score: 0.5},
		{ChunkID: "out", Source: "lecture2.pdf", Collection: "col", Score: 0.9},
	}}
	h := NewHybridRetriever(vector, &fakeProvider{}, fastConfig(), testLogger())

	result, err := h.Retrieve(context.Background(), Query{
		Text:          "q",
		Collection:    "col",
		SelectedFiles: []string{"lecture1.pdf"},
		K:             5,
	})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "in", result.Chunks[0].ChunkID)

	// Allow-list naming a file absent from the collection yields zero matches, not an error
	result, err = h.Retrieve(context.Background(), Query{
		Text:          "q",
		Collection:    "col",
		SelectedFiles: []string{"missing.pdf"},
		K:             5,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
}

func TestRetrieveConcurrentCollectionsDoNotLeak(t *testing.T) {
	mk := func(collection string) *HybridRetriever {
		vector := &fakeProvider{hits: []Hit{
			{ChunkID: collection + "-1", Source: collection + ".pdf", Collection: collection, Score: 0.9},
		}}
		return NewHybridRetriever(vector, &fakeProvider{}, fastConfig(), testLogger())
	}

	retrievers := map[string]*HybridRetriever{"alpha": mk("alpha"), "beta": mk("beta")}

	done := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for name, h := range retrievers {
			go func(collection string, h *HybridRetriever) {
				result, err := h.Retrieve(context.Background(), Query{Text: "q", Collection: collection, K: 5})
				if err != nil {
					done <- err
					return
				}
				for _, c := range result.Chunks {
					if c.Source != collection+".pdf" {
						done <- errors.New("cross-collection leak: " + c.Source)
						return
					}
				}
				done <- nil
			}(name, h)
		}
	}
	for i := 0; i < 40; i++ {
		require.NoError(t, <-done)
	}
}

func TestCitationPreviewTruncation(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	r := Result{Chunks: []ScoredChunk{{ChunkID: "c", Text: string(long), Source: "a.pdf", FusedScore: 0.5}}}

	citations := r.Citations(100)
	require.Len(t, citations, 1)
	assert.Len(t, citations[0].Preview, 103) // 100 chars + "..."
}
