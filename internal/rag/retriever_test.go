package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvalmar/luma/internal/embedding"
	"github.com/nvalmar/luma/internal/model"
)

type fakeSearcher struct {
	chunks []model.ScoredChunk
	err    error
	topK   int
}

func (f *fakeSearcher) SearchSimilar(ctx context.Context, query []float32, topK int) ([]model.ScoredChunk, error) {
	f.topK = topK
	return f.chunks, f.err
}

type fakeEmbedder struct {
	vec []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) []float32 {
	return f.vec
}

func scored(content string, tokens int, sim float64) model.ScoredChunk {
	return model.ScoredChunk{
		Chunk:      model.Chunk{Content: content, TokenCount: tokens},
		Similarity: sim,
	}
}

func unitVec() []float32 {
	vec := make([]float32, embedding.Dimension)
	vec[0] = 1
	return vec
}

func TestRetrieveSkipsOnZeroVector(t *testing.T) {
	searcher := &fakeSearcher{chunks: []model.ScoredChunk{scored("a", 10, 0.9)}}
	r := NewRetriever(searcher, &fakeEmbedder{vec: embedding.ZeroVector()})

	chunks, maxSim := r.Retrieve(context.Background(), "consulta", 0, 0)
	require.Empty(t, chunks)
	require.Equal(t, 0.0, maxSim)
	require.Equal(t, 0, searcher.topK, "search must not run in fallback mode")
}

func TestRetrieveSearchErrorReturnsEmpty(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("db down")}
	r := NewRetriever(searcher, &fakeEmbedder{vec: unitVec()})

	chunks, maxSim := r.Retrieve(context.Background(), "consulta", 3, 100)
	require.Empty(t, chunks)
	require.Equal(t, 0.0, maxSim)
}

func TestRetrieveUsesDefaults(t *testing.T) {
	searcher := &fakeSearcher{}
	r := NewRetriever(searcher, &fakeEmbedder{vec: unitVec()})

	r.Retrieve(context.Background(), "consulta", 0, 0)
	require.Equal(t, DefaultTopK, searcher.topK)
}

func TestSelectWithinBudgetStopsAtFirstOverflow(t *testing.T) {
	candidates := []model.ScoredChunk{
		scored("a", 40, 0.9),
		scored("b", 40, 0.8),
		scored("c", 40, 0.95),
		scored("d", 1, 0.99),
	}
	selected, maxSim := SelectWithinBudget(candidates, 100)

	// c overflows the budget; d is never considered even though it fits
	require.Len(t, selected, 2)
	require.Equal(t, "a", selected[0].Content)
	require.Equal(t, "b", selected[1].Content)
	require.Equal(t, 0.9, maxSim)
}

func TestSelectWithinBudgetMaxSimOverSelectedOnly(t *testing.T) {
	candidates := []model.ScoredChunk{
		scored("a", 60, 0.5),
		scored("b", 60, 0.99),
	}
	selected, maxSim := SelectWithinBudget(candidates, 100)
	require.Len(t, selected, 1)
	require.Equal(t, 0.5, maxSim)
}

func TestSelectWithinBudgetEstimatesMissingTokenCounts(t *testing.T) {
	candidates := []model.ScoredChunk{
		scored("abcdefgh", 0, 0.7), // 8 chars, 2 tokens
	}
	selected, maxSim := SelectWithinBudget(candidates, 2)
	require.Len(t, selected, 1)
	require.Equal(t, 0.7, maxSim)

	selected, maxSim = SelectWithinBudget(candidates, 1)
	require.Empty(t, selected)
	require.Equal(t, 0.0, maxSim)
}

func TestSelectWithinBudgetEmptyCandidates(t *testing.T) {
	selected, maxSim := SelectWithinBudget(nil, 100)
	require.Empty(t, selected)
	require.Equal(t, 0.0, maxSim)
}
