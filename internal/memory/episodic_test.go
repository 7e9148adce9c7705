package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvalmar/luma/internal/embedding"
	"github.com/nvalmar/luma/internal/model"
)

type fakeEpisodicStore struct {
	created     []*model.Episode
	matched     []model.Episode
	matchErr    error
	recentEps   []model.Episode
	recentCalls int
}

func (f *fakeEpisodicStore) Create(ctx context.Context, ep *model.Episode) error {
	f.created = append(f.created, ep)
	return nil
}

func (f *fakeEpisodicStore) Match(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]model.Episode, error) {
	return f.matched, f.matchErr
}

func (f *fakeEpisodicStore) ListRecent(ctx context.Context, userID string, limit int) ([]model.Episode, error) {
	f.recentCalls++
	return f.recentEps, nil
}

func TestEpisodicAddStoresSummary(t *testing.T) {
	store := &fakeEpisodicStore{}
	mem := NewEpisodicMemory(store, &staticEmbedder{vec: liveVec()})

	require.True(t, mem.Add(context.Background(), "u1", "sesión sobre becas", 20))
	require.Len(t, store.created, 1)
	require.Equal(t, 20, store.created[0].MessageCount)
	require.NotNil(t, store.created[0].Embedding)

	require.False(t, mem.Add(context.Background(), "u1", "  ", 20))
}

func TestEpisodicSearchMatchErrorFallsBackToRecent(t *testing.T) {
	store := &fakeEpisodicStore{matchErr: errors.New("db down"), recentEps: []model.Episode{{Summary: "reciente"}}}
	mem := NewEpisodicMemory(store, &staticEmbedder{vec: liveVec()})

	eps := mem.Search(context.Background(), "u1", "consulta", 5)
	require.Len(t, eps, 1)
	require.Equal(t, "reciente", eps[0].Summary)
	require.Equal(t, 1, store.recentCalls)
}

func TestEpisodicSearchZeroVectorFallsBackToRecent(t *testing.T) {
	store := &fakeEpisodicStore{recentEps: []model.Episode{{Summary: "reciente"}}}
	mem := NewEpisodicMemory(store, &staticEmbedder{vec: embedding.ZeroVector()})

	eps := mem.Search(context.Background(), "u1", "consulta", 5)
	require.Len(t, eps, 1)
	require.Equal(t, 1, store.recentCalls)
}
