package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/nvalmar/luma/internal/model"
	"github.com/nvalmar/luma/internal/pkg/dbutil"
)

var messageColumns = []string{"id", "conversation_id", "user_id", "role", "content", "ctime"}

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	data := map[string]interface{}{
		"id":              msg.ID,
		"conversation_id": msg.ConversationID,
		"user_id":         msg.UserID,
		"role":            msg.Role,
		"content":         msg.Content,
		"ctime":           msg.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// List returns the conversation's messages in chronological order.
func (r *MessageRepo) List(ctx context.Context, convID string) ([]model.Message, error) {
	where := map[string]interface{}{
		"conversation_id": convID,
		"_orderby":        "ctime asc, id asc",
	}
	sqlStr, args, err := builder.BuildSelect("messages", where, messageColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	msgs := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &m.Ctime); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessageRepo) Count(ctx context.Context, convID string) (int, error) {
	row := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM messages WHERE conversation_id = $1", convID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
