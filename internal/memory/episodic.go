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

type episodicStore interface {
	Create(ctx context.Context, ep *model.Episode) error
	Match(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]model.Episode, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]model.Episode, error)
}

// EpisodicMemory keeps summaries of past sessions for later recall.
type EpisodicMemory struct {
	store episodicStore
	gen   embedder
}

func NewEpisodicMemory(store episodicStore, gen embedder) *EpisodicMemory {
	return &EpisodicMemory{store: store, gen: gen}
}

func (m *EpisodicMemory) Add(ctx context.Context, userID, summary string, messageCount int) bool {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return false
	}
	ep := &model.Episode{
		ID:           uuid.NewString(),
		UserID:       userID,
		Summary:      summary,
		MessageCount: messageCount,
		Ctime:        time.Now().UnixMilli(),
	}
	vec := m.gen.Embed(ctx, summary, embedding.TaskTypeDocument)
	if !embedding.IsZero(vec) {
		v := pgvector.NewVector(vec)
		ep.Embedding = &v
	}
	if err := m.store.Create(ctx, ep); err != nil {
		logutil.GetLogger(ctx).Warn("store episodic memory failed", zap.Error(err))
		return false
	}
	return true
}

func (m *EpisodicMemory) Search(ctx context.Context, userID, query string, limit int) []model.Episode {
	vec := m.gen.Embed(ctx, query, embedding.TaskTypeQuery)
	if embedding.IsZero(vec) {
		return m.recent(ctx, userID, limit)
	}
	eps, err := m.store.Match(ctx, userID, vec, MatchThreshold, limit)
	if err != nil {
		logutil.GetLogger(ctx).Warn("episodic memory match failed", zap.Error(err))
		return m.recent(ctx, userID, limit)
	}
	if len(eps) == 0 {
		return m.recent(ctx, userID, limit)
	}
	return eps
}

func (m *EpisodicMemory) recent(ctx context.Context, userID string, limit int) []model.Episode {
	eps, err := m.store.ListRecent(ctx, userID, limit)
	if err != nil {
		logutil.GetLogger(ctx).Warn("episodic memory recency fallback failed", zap.Error(err))
		return nil
	}
	return eps
}
