package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/nvalmar/luma/internal/model"
)

type EpisodicMemoryRepo struct {
	db *sql.DB
}

func NewEpisodicMemoryRepo(db *sql.DB) *EpisodicMemoryRepo {
	return &EpisodicMemoryRepo{db: db}
}

func (r *EpisodicMemoryRepo) Create(ctx context.Context, ep *model.Episode) error {
	const query = `
		INSERT INTO episodic_memories (id, user_id, summary, message_count, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var emb interface{}
	if ep.Embedding != nil {
		emb = *ep.Embedding
	}
	_, err := r.db.ExecContext(ctx, query, ep.ID, ep.UserID, ep.Summary, ep.MessageCount, emb, ep.Ctime)
	return err
}

func (r *EpisodicMemoryRepo) Match(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]model.Episode, error) {
	const sqlStr = `
		SELECT id, user_id, summary, message_count, ctime
		FROM episodic_memories
		WHERE user_id = $1 AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $2) >= $3
		ORDER BY embedding <=> $2
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, sqlStr, userID, pgvector.NewVector(query), threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

func (r *EpisodicMemoryRepo) ListRecent(ctx context.Context, userID string, limit int) ([]model.Episode, error) {
	const sqlStr = `
		SELECT id, user_id, summary, message_count, ctime
		FROM episodic_memories
		WHERE user_id = $1
		ORDER BY ctime DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, sqlStr, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

func scanEpisodes(rows *sql.Rows) ([]model.Episode, error) {
	eps := make([]model.Episode, 0)
	for rows.Next() {
		var e model.Episode
		if err := rows.Scan(&e.ID, &e.UserID, &e.Summary, &e.MessageCount, &e.Ctime); err != nil {
			return nil, err
		}
		eps = append(eps, e)
	}
	return eps, rows.Err()
}
