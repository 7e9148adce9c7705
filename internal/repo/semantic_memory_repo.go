package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/nvalmar/luma/internal/model"
)

type SemanticMemoryRepo struct {
	db *sql.DB
}

func NewSemanticMemoryRepo(db *sql.DB) *SemanticMemoryRepo {
	return &SemanticMemoryRepo{db: db}
}

func (r *SemanticMemoryRepo) Create(ctx context.Context, fact *model.SemanticFact) error {
	const query = `
		INSERT INTO semantic_memories (id, user_id, content, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5)
	`
	var emb interface{}
	if fact.Embedding != nil {
		emb = *fact.Embedding
	}
	_, err := r.db.ExecContext(ctx, query, fact.ID, fact.UserID, fact.Content, emb, fact.Ctime)
	return err
}

// Match returns the user's facts whose cosine similarity against the query
// vector clears threshold, best first.
func (r *SemanticMemoryRepo) Match(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]model.SemanticFact, error) {
	const sqlStr = `
		SELECT id, user_id, content, ctime
		FROM semantic_memories
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
	return scanFacts(rows)
}

func (r *SemanticMemoryRepo) ListRecent(ctx context.Context, userID string, limit int) ([]model.SemanticFact, error) {
	const sqlStr = `
		SELECT id, user_id, content, ctime
		FROM semantic_memories
		WHERE user_id = $1
		ORDER BY ctime DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, sqlStr, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFacts(rows)
}

func scanFacts(rows *sql.Rows) ([]model.SemanticFact, error) {
	facts := make([]model.SemanticFact, 0)
	for rows.Next() {
		var f model.SemanticFact
		if err := rows.Scan(&f.ID, &f.UserID, &f.Content, &f.Ctime); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
