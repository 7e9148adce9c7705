package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/nvalmar/luma/internal/model"
)

// insertBatchSize bounds one multi-row INSERT so a large document does not
// turn into a single oversized statement.
const insertBatchSize = 100

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertBatch writes chunks in groups of insertBatchSize. A failed group is
// reported but earlier groups stay committed; the caller decides whether
// partial coverage is acceptable.
func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []model.Chunk) (int, error) {
	inserted := 0
	for start := 0; start < len(chunks); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := r.insertGroup(ctx, chunks[start:end]); err != nil {
			return inserted, err
		}
		inserted += end - start
	}
	return inserted, nil
}

func (r *ChunkRepo) insertGroup(ctx context.Context, chunks []model.Chunk) error {
	const query = `
		INSERT INTO document_chunks (id, document_id, chunk_index, content, token_count, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range chunks {
		var emb interface{}
		if c.Embedding != nil {
			emb = *c.Embedding
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.ChunkIndex, c.Content, c.TokenCount, emb, c.Ctime); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SearchSimilar returns the topK chunks of active documents ordered by cosine
// similarity against the query vector.
func (r *ChunkRepo) SearchSimilar(ctx context.Context, query []float32, topK int) ([]model.ScoredChunk, error) {
	const sqlStr = `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.token_count, c.ctime,
		       1 - (c.embedding <=> $1) AS similarity
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = $2 AND c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $1
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, sqlStr, pgvector.NewVector(query), model.DocumentStatusActive, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ScoredChunk, 0, topK)
	for rows.Next() {
		var sc model.ScoredChunk
		if err := rows.Scan(&sc.ID, &sc.DocumentID, &sc.ChunkIndex, &sc.Content, &sc.TokenCount, &sc.Ctime, &sc.Similarity); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, docID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM document_chunks WHERE document_id = $1", docID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ChunkRepo) CountByDocument(ctx context.Context, docID string) (int, error) {
	row := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM document_chunks WHERE document_id = $1", docID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
