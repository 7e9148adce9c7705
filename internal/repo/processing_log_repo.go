package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/nvalmar/luma/internal/model"
	"github.com/nvalmar/luma/internal/pkg/dbutil"
)

type ProcessingLogRepo struct {
	db *sql.DB
}

func NewProcessingLogRepo(db *sql.DB) *ProcessingLogRepo {
	return &ProcessingLogRepo{db: db}
}

func (r *ProcessingLogRepo) Create(ctx context.Context, log *model.ProcessingLog) error {
	data := map[string]interface{}{
		"id":          log.ID,
		"document_id": log.DocumentID,
		"stage":       log.Stage,
		"status":      log.Status,
		"detail":      log.Detail,
		"ctime":       log.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("processing_logs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ProcessingLogRepo) ListByDocument(ctx context.Context, docID string) ([]model.ProcessingLog, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"_orderby":    "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("processing_logs", where,
		[]string{"id", "document_id", "stage", "status", "detail", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := make([]model.ProcessingLog, 0)
	for rows.Next() {
		var l model.ProcessingLog
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.Stage, &l.Status, &l.Detail, &l.Ctime); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
