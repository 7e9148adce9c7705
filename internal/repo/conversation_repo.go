package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/nvalmar/luma/internal/model"
	"github.com/nvalmar/luma/internal/pkg/dbutil"
	appErr "github.com/nvalmar/luma/internal/pkg/errors"
)

var conversationColumns = []string{"id", "user_id", "title", "ctime", "mtime"}

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	data := map[string]interface{}{
		"id":      conv.ID,
		"user_id": conv.UserID,
		"title":   conv.Title,
		"ctime":   conv.Ctime,
		"mtime":   conv.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("conversations", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ConversationRepo) GetByID(ctx context.Context, userID, convID string) (*model.Conversation, error) {
	where := map[string]interface{}{
		"id":      convID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildSelect("conversations", where, conversationColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var conv model.Conversation
	if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Ctime, &conv.Mtime); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepo) List(ctx context.Context, userID string, limit, offset uint) ([]model.Conversation, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "mtime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("conversations", where, conversationColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	convs := make([]model.Conversation, 0)
	for rows.Next() {
		var conv model.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Ctime, &conv.Mtime); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) Touch(ctx context.Context, convID string, mtime int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE conversations SET mtime = $1 WHERE id = $2", mtime, convID)
	return err
}

func (r *ConversationRepo) Delete(ctx context.Context, userID, convID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = $1 AND user_id = $2", convID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
