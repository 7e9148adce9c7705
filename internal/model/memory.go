package model

import "github.com/pgvector/pgvector-go"

// SemanticFact is a single durable fact learned about a user.
type SemanticFact struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Content   string           `json:"content"`
	Embedding *pgvector.Vector `json:"-"`
	Ctime     int64            `json:"ctime"`
}

// Episode summarizes a past session for later recall.
type Episode struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	Summary      string           `json:"summary"`
	MessageCount int              `json:"message_count"`
	Embedding    *pgvector.Vector `json:"-"`
	Ctime        int64            `json:"ctime"`
}

// ConversationSummary is the rolling summary of one conversation, at most
// one row per conversation.
type ConversationSummary struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Summary        string `json:"summary"`
	MessageCount   int    `json:"message_count"`
	Ctime          int64  `json:"ctime"`
	Mtime          int64  `json:"mtime"`
}
