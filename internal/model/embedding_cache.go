package model

import "github.com/pgvector/pgvector-go"

type EmbeddingCacheItem struct {
	HashKey   string          `json:"hash_key"`
	Model     string          `json:"model"`
	Embedding pgvector.Vector `json:"-"`
	Ctime     int64           `json:"ctime"`
}
