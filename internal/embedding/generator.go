package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvalmar/luma/internal/ai"
	"github.com/nvalmar/luma/internal/model"
	"github.com/nvalmar/luma/internal/repo"
)

// Dimension is the width of every vector the generator hands out, including
// the zero fallback.
const Dimension = 768

const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)

const (
	warmupInterval   = 30 * time.Second
	batchConcurrency = 4
)

type dbCache interface {
	Get(ctx context.Context, hashKey, modelName string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCacheItem) error
}

// Generator produces embeddings, degrading to zero vectors until the backing
// provider has answered a warmup call at least once. Callers can always embed; a
// zero vector simply never matches anything.
type Generator struct {
	embedder ai.IEmbedModel
	cache    *expirable.LRU[string, []float32]
	db       dbCache

	mu    sync.RWMutex
	ready bool
}

func NewGenerator(embedder ai.IEmbedModel, db dbCache) *Generator {
	return &Generator{
		embedder: embedder,
		cache:    expirable.NewLRU[string, []float32](10000, nil, 2*time.Hour),
		db:       db,
	}
}

// Ready reports whether live embeddings are being produced.
func (g *Generator) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready
}

func (g *Generator) setReady() {
	g.mu.Lock()
	g.ready = true
	g.mu.Unlock()
}

// Warmup pings the provider in the background and flips the generator to
// ready on the first successful embed. It never blocks startup.
func (g *Generator) Warmup(ctx context.Context) {
	go func() {
		for {
			warmupCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			vec, err := g.embedder.Embed(warmupCtx, "warmup", TaskTypeQuery)
			cancel()
			if err == nil && len(vec) > 0 {
				g.setReady()
				logutil.GetLogger(ctx).Info("embedding generator ready", zap.String("model", g.embedder.ModelName()))
				return
			}
			logutil.GetLogger(ctx).Warn("embedding warmup failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(warmupInterval):
			}
		}
	}()
}

// ZeroVector is the fallback sentinel. It is deliberately unnormalized so it
// never scores as a perfect match.
func ZeroVector() []float32 {
	return make([]float32, Dimension)
}

func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func cacheKey(modelName, taskType, text string) string {
	h := sha256.Sum256([]byte(modelName + "|" + taskType + "|" + text))
	return hex.EncodeToString(h[:])
}

// Embed returns a normalized vector for text, or a zero vector when the text
// is blank or the provider is not ready yet.
func (g *Generator) Embed(ctx context.Context, text string, taskType string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" || !g.Ready() {
		return ZeroVector()
	}
	key := cacheKey(g.embedder.ModelName(), taskType, text)
	if vec, ok := g.cache.Get(key); ok {
		return vec
	}
	if g.db != nil {
		if vec, ok, err := g.db.Get(ctx, key, g.embedder.ModelName()); err == nil && ok {
			g.cache.Add(key, vec)
			return vec
		}
	}
	vec, err := g.embedder.Embed(ctx, text, taskType)
	if err != nil || len(vec) == 0 {
		logutil.GetLogger(ctx).Warn("embed text failed, using zero vector", zap.Error(err))
		return ZeroVector()
	}
	vec = normalize(vec)
	g.store(ctx, key, vec)
	return vec
}

// EmbedBatch embeds texts preserving order and count. Blank entries come back
// as zero vectors; a provider failure degrades only the affected entries.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string, taskType string) [][]float32 {
	out := make([][]float32, len(texts))
	if !g.Ready() {
		for i := range out {
			out[i] = ZeroVector()
		}
		return out
	}
	eg, ctx := errgroupWithLimit(ctx)
	for i, text := range texts {
		out[i] = ZeroVector()
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		eg.Go(func() error {
			out[i] = g.Embed(ctx, text, taskType)
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func (g *Generator) store(ctx context.Context, key string, vec []float32) {
	g.cache.Add(key, vec)
	if g.db == nil {
		return
	}
	item := &model.EmbeddingCacheItem{
		HashKey:   key,
		Model:     g.embedder.ModelName(),
		Embedding: pgvector.NewVector(vec),
		Ctime:     time.Now().UnixMilli(),
	}
	if err := g.db.Save(ctx, item); err != nil {
		logutil.GetLogger(ctx).Warn("save embedding cache failed", zap.Error(err))
	}
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// Cosine is the similarity between two vectors; it is zero when either side
// is the zero sentinel or the lengths disagree.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func errgroupWithLimit(ctx context.Context) (*errgroup.Group, context.Context) {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(batchConcurrency)
	return eg, ctx
}

var _ dbCache = (*repo.EmbeddingCacheRepo)(nil)
