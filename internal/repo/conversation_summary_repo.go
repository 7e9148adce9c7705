package repo

import (
	"context"
	"database/sql"

	"github.com/nvalmar/luma/internal/model"
)

type ConversationSummaryRepo struct {
	db *sql.DB
}

func NewConversationSummaryRepo(db *sql.DB) *ConversationSummaryRepo {
	return &ConversationSummaryRepo{db: db}
}

func (r *ConversationSummaryRepo) Get(ctx context.Context, conversationID string) (*model.ConversationSummary, error) {
	const query = `
		SELECT id, conversation_id, user_id, summary, message_count, ctime, mtime
		FROM conversation_summaries
		WHERE conversation_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, conversationID)
	var s model.ConversationSummary
	if err := row.Scan(&s.ID, &s.ConversationID, &s.UserID, &s.Summary, &s.MessageCount, &s.Ctime, &s.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Upsert keeps at most one summary row per conversation.
func (r *ConversationSummaryRepo) Upsert(ctx context.Context, s *model.ConversationSummary) error {
	const query = `
		INSERT INTO conversation_summaries (id, conversation_id, user_id, summary, message_count, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (conversation_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			message_count = EXCLUDED.message_count,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.ConversationID, s.UserID, s.Summary, s.MessageCount, s.Ctime, s.Mtime)
	return err
}

func (r *ConversationSummaryRepo) Delete(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM conversation_summaries WHERE conversation_id = $1", conversationID)
	return err
}
