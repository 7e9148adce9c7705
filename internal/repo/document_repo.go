package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/nvalmar/luma/internal/model"
	"github.com/nvalmar/luma/internal/pkg/dbutil"
	appErr "github.com/nvalmar/luma/internal/pkg/errors"
)

var documentColumns = []string{
	"id", "owner_id", "filename", "mime_type", "file_path",
	"status", "processing_status", "processing_error", "content_hash",
	"chunk_count", "ctime", "mtime", "processed_at",
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func scanDocument(rows *sql.Rows) (*model.Document, error) {
	var doc model.Document
	if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.MimeType, &doc.FilePath,
		&doc.Status, &doc.ProcessingStatus, &doc.ProcessingError, &doc.ContentHash,
		&doc.ChunkCount, &doc.Ctime, &doc.Mtime, &doc.ProcessedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":                doc.ID,
		"owner_id":          doc.OwnerID,
		"filename":          doc.Filename,
		"mime_type":         doc.MimeType,
		"file_path":         doc.FilePath,
		"status":            doc.Status,
		"processing_status": doc.ProcessingStatus,
		"processing_error":  doc.ProcessingError,
		"content_hash":      doc.ContentHash,
		"chunk_count":       doc.ChunkCount,
		"ctime":             doc.Ctime,
		"mtime":             doc.Mtime,
		"processed_at":      doc.ProcessedAt,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id": docID,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
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
	return scanDocument(rows)
}

func (r *DocumentRepo) List(ctx context.Context, status string, limit, offset uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	if status != "" {
		where["status"] = status
	} else {
		where["_custom_state"] = builder.Custom("status != ?", model.DocumentStatusDeleted)
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// ListByProcessingStatus returns documents in the given pipeline state,
// oldest first, so requeue sweeps drain in arrival order.
func (r *DocumentRepo) ListByProcessingStatus(ctx context.Context, processingStatus string, limit uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"processing_status": processingStatus,
		"_orderby":          "ctime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) UpdateStatus(ctx context.Context, docID, status string, mtime int64) error {
	where := map[string]interface{}{
		"id": docID,
	}
	update := map[string]interface{}{
		"status": status,
		"mtime":  mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
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

func (r *DocumentRepo) UpdateProcessing(ctx context.Context, docID, processingStatus, processingError string, mtime int64) error {
	where := map[string]interface{}{
		"id": docID,
	}
	update := map[string]interface{}{
		"processing_status": processingStatus,
		"processing_error":  processingError,
		"mtime":             mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
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

// MarkCompleted finishes the pipeline and flips the document active, but only
// if no one deactivated it while processing was in flight.
func (r *DocumentRepo) MarkCompleted(ctx context.Context, docID string, chunkCount int, now int64) error {
	const query = `
		UPDATE documents
		SET processing_status = $1,
		    processing_error = '',
		    chunk_count = $2,
		    processed_at = $3,
		    mtime = $3,
		    status = CASE WHEN status = $4 THEN $5 ELSE status END
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		model.ProcessingStatusCompleted, chunkCount, now,
		model.DocumentStatusProcessing, model.DocumentStatusActive, docID)
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

func (r *DocumentRepo) Count(ctx context.Context, status string) (int, error) {
	var row *sql.Row
	if status != "" {
		row = r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents WHERE status = $1", status)
	} else {
		row = r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents WHERE status != $1", model.DocumentStatusDeleted)
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
