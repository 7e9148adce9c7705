package model

import "github.com/pgvector/pgvector-go"

type Chunk struct {
	ID         string           `json:"id"`
	DocumentID string           `json:"document_id"`
	ChunkIndex int              `json:"chunk_index"`
	Content    string           `json:"content"`
	TokenCount int              `json:"token_count"`
	Embedding  *pgvector.Vector `json:"-"`
	Ctime      int64            `json:"ctime"`
}

// ScoredChunk is a chunk joined with its similarity against a query vector.
type ScoredChunk struct {
	Chunk
	Similarity float64 `json:"similarity"`
}
