package rag

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/nvalmar/luma/internal/embedding"
	"github.com/nvalmar/luma/internal/model"
)

const (
	DefaultTopK      = 8
	DefaultMaxTokens = 4000
)

type chunkSearcher interface {
	SearchSimilar(ctx context.Context, query []float32, topK int) ([]model.ScoredChunk, error)
}

type queryEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) []float32
}

// Retriever ranks document chunks against a query and returns a
// token-budgeted selection plus a confidence signal.
type Retriever struct {
	chunks chunkSearcher
	gen    queryEmbedder
}

func NewRetriever(chunks chunkSearcher, gen queryEmbedder) *Retriever {
	return &Retriever{chunks: chunks, gen: gen}
}

// Retrieve returns the best chunks for query and the maximum similarity among
// the selected ones. In embedding fallback mode retrieval is skipped rather
// than returning meaningless matches.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK, maxTokens int) ([]model.ScoredChunk, float64) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	vec := r.gen.Embed(ctx, query, embedding.TaskTypeQuery)
	if embedding.IsZero(vec) {
		return []model.ScoredChunk{}, 0
	}
	candidates, err := r.chunks.SearchSimilar(ctx, vec, topK)
	if err != nil {
		logutil.GetLogger(ctx).Warn("chunk search failed", zap.Error(err))
		return []model.ScoredChunk{}, 0
	}
	selected, maxSim := SelectWithinBudget(candidates, maxTokens)
	return selected, maxSim
}

// SelectWithinBudget takes a similarity-ranked candidate list and keeps the
// longest prefix whose summed token count stays within maxTokens, stopping at
// the first chunk that would overflow. The returned similarity is the maximum
// among the kept chunks.
func SelectWithinBudget(candidates []model.ScoredChunk, maxTokens int) ([]model.ScoredChunk, float64) {
	selected := make([]model.ScoredChunk, 0, len(candidates))
	total := 0
	maxSim := 0.0
	for _, c := range candidates {
		tokens := c.TokenCount
		if tokens == 0 {
			tokens = EstimateTokens(c.Content)
		}
		if total+tokens > maxTokens {
			break
		}
		total += tokens
		if c.Similarity > maxSim {
			maxSim = c.Similarity
		}
		selected = append(selected, c)
	}
	if len(selected) == 0 {
		return selected, 0
	}
	return selected, maxSim
}
