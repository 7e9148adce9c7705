package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/nvalmar/luma/internal/model"
)

type EmbeddingCacheRepo struct {
	db *sql.DB
}

func NewEmbeddingCacheRepo(db *sql.DB) *EmbeddingCacheRepo {
	return &EmbeddingCacheRepo{db: db}
}

func (r *EmbeddingCacheRepo) Get(ctx context.Context, hashKey, modelName string) ([]float32, bool, error) {
	const query = `
		SELECT embedding
		FROM embedding_cache
		WHERE hash_key = $1 AND model = $2
	`
	row := r.db.QueryRowContext(ctx, query, hashKey, modelName)
	var embedding pgvector.Vector
	if err := row.Scan(&embedding); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return embedding.Slice(), true, nil
}

func (r *EmbeddingCacheRepo) Save(ctx context.Context, item *model.EmbeddingCacheItem) error {
	const query = `
		INSERT INTO embedding_cache (hash_key, model, embedding, ctime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (hash_key, model) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query, item.HashKey, item.Model, item.Embedding, item.Ctime)
	return err
}

func (r *EmbeddingCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM embedding_cache WHERE ctime < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
