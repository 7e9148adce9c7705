package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/nvalmar/luma/internal/embedding"
	"github.com/nvalmar/luma/internal/model"
)

// MatchThreshold is the minimum cosine similarity for a memory to count as
// relevant to a query.
const MatchThreshold = 0.5

type semanticStore interface {
	Create(ctx context.Context, fact *model.SemanticFact) error
	Match(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]model.SemanticFact, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]model.SemanticFact, error)
}

type embedder interface {
	Embed(ctx context.Context, text string, taskType string) []float32
}

// SemanticMemory stores durable per-user facts. Every operation degrades to
// an empty result on failure; memory must never break a chat turn.
type SemanticMemory struct {
	store semanticStore
	gen   embedder
}

func NewSemanticMemory(store semanticStore, gen embedder) *SemanticMemory {
	return &SemanticMemory{store: store, gen: gen}
}

// Add appends a fact and reports whether it was stored. Blank content is
// rejected.
func (m *SemanticMemory) Add(ctx context.Context, userID, content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	fact := &model.SemanticFact{
		ID:      uuid.NewString(),
		UserID:  userID,
		Content: content,
		Ctime:   time.Now().UnixMilli(),
	}
	vec := m.gen.Embed(ctx, content, embedding.TaskTypeDocument)
	if !embedding.IsZero(vec) {
		v := pgvector.NewVector(vec)
		fact.Embedding = &v
	}
	if err := m.store.Create(ctx, fact); err != nil {
		logutil.GetLogger(ctx).Warn("store semantic memory failed", zap.Error(err))
		return false
	}
	return true
}

// Search returns facts relevant to query, falling back to the most recent
// facts when no usable query vector exists or the similarity search fails.
func (m *SemanticMemory) Search(ctx context.Context, userID, query string, limit int) []model.SemanticFact {
	vec := m.gen.Embed(ctx, query, embedding.TaskTypeQuery)
	if embedding.IsZero(vec) {
		return m.recent(ctx, userID, limit)
	}
	facts, err := m.store.Match(ctx, userID, vec, MatchThreshold, limit)
	if err != nil {
		logutil.GetLogger(ctx).Warn("semantic memory match failed", zap.Error(err))
		return m.recent(ctx, userID, limit)
	}
	if len(facts) == 0 {
		return m.recent(ctx, userID, limit)
	}
	return facts
}

func (m *SemanticMemory) recent(ctx context.Context, userID string, limit int) []model.SemanticFact {
	facts, err := m.store.ListRecent(ctx, userID, limit)
	if err != nil {
		logutil.GetLogger(ctx).Warn("semantic memory recency fallback failed", zap.Error(err))
		return nil
	}
	return facts
}
