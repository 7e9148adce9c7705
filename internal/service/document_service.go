package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/nvalmar/luma/internal/filestore"
	"github.com/nvalmar/luma/internal/model"
	"github.com/nvalmar/luma/internal/rag"
	"github.com/nvalmar/luma/internal/repo"
)

// DocumentService owns the document lifecycle: upload, indexing dispatch,
// reprocessing and deletion with cascade.
type DocumentService struct {
	docs    *repo.DocumentRepo
	chunks  *repo.ChunkRepo
	logs    *repo.ProcessingLogRepo
	store   filestore.IFileStore
	indexer *rag.Indexer
}

func NewDocumentService(docs *repo.DocumentRepo, chunks *repo.ChunkRepo, logs *repo.ProcessingLogRepo,
	store filestore.IFileStore, indexer *rag.Indexer) *DocumentService {
	return &DocumentService{
		docs:    docs,
		chunks:  chunks,
		logs:    logs,
		store:   store,
		indexer: indexer,
	}
}

// Upload stores the file, registers the document as queued, and dispatches
// background indexing. The caller gets the queued document immediately.
func (s *DocumentService) Upload(ctx context.Context, ownerID, filename, mimeType string, data []byte) (*model.Document, error) {
	now := time.Now().UnixMilli()
	hash := sha256.Sum256(data)
	doc := &model.Document{
		ID:               newID(),
		OwnerID:          ownerID,
		Filename:         filename,
		MimeType:         mimeType,
		FilePath:         newID(),
		Status:           model.DocumentStatusProcessing,
		ProcessingStatus: model.ProcessingStatusQueued,
		ContentHash:      hex.EncodeToString(hash[:]),
		Ctime:            now,
		Mtime:            now,
	}
	if err := s.store.Save(ctx, doc.FilePath, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	s.dispatch(ctx, doc)
	return doc, nil
}

// dispatch runs indexing decoupled from the request lifecycle: a dropped
// client connection must not cancel an in-flight indexing job.
func (s *DocumentService) dispatch(ctx context.Context, doc *model.Document) {
	_ = ctx
	go s.indexer.Process(context.Background(), doc)
}

func (s *DocumentService) Get(ctx context.Context, docID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, docID)
}

func (s *DocumentService) List(ctx context.Context, status string, limit, offset uint) ([]model.Document, error) {
	return s.docs.List(ctx, status, limit, offset)
}

func (s *DocumentService) ProcessingLogs(ctx context.Context, docID string) ([]model.ProcessingLog, error) {
	if _, err := s.docs.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.logs.ListByDocument(ctx, docID)
}

// SetStatus flips a document between active and inactive.
func (s *DocumentService) SetStatus(ctx context.Context, docID, status string) error {
	return s.docs.UpdateStatus(ctx, docID, status, time.Now().UnixMilli())
}

// Reprocess drops existing chunks and requeues the document from scratch;
// indexing is never incremental.
func (s *DocumentService) Reprocess(ctx context.Context, docID string) (*model.Document, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if _, err := s.chunks.DeleteByDocument(ctx, docID); err != nil {
		return nil, err
	}
	if err := s.docs.UpdateProcessing(ctx, docID, model.ProcessingStatusQueued, "", time.Now().UnixMilli()); err != nil {
		return nil, err
	}
	doc.ProcessingStatus = model.ProcessingStatusQueued
	doc.ProcessingError = ""
	s.dispatch(ctx, doc)
	return doc, nil
}

// Delete marks the document deleted and cascades: chunks are removed and the
// backing file is deleted best-effort. An orphaned file is an accepted
// degradation, not a failed delete.
func (s *DocumentService) Delete(ctx context.Context, docID string) error {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.docs.UpdateStatus(ctx, docID, model.DocumentStatusDeleted, time.Now().UnixMilli()); err != nil {
		return err
	}
	if _, err := s.chunks.DeleteByDocument(ctx, docID); err != nil {
		logutil.GetLogger(ctx).Warn("delete document chunks failed", zap.String("document_id", docID), zap.Error(err))
	}
	if doc.FilePath != "" {
		if err := s.store.Remove(ctx, doc.FilePath); err != nil {
			logutil.GetLogger(ctx).Warn("remove document file failed", zap.String("document_id", docID), zap.Error(err))
		}
	}
	return nil
}

// requeueGrace keeps freshly queued documents out of the requeue sweep; a
// document uploaded moments before the sweep is still owned by its original
// dispatch.
const requeueGrace = 10 * time.Minute

func filterStale(docs []model.Document, cutoff int64) []model.Document {
	out := docs[:0]
	for _, d := range docs {
		if d.Mtime < cutoff {
			out = append(out, d)
		}
	}
	return out
}

// RequeueStale re-dispatches documents stuck in the queued state; used by the
// periodic requeue job to survive process restarts.
func (s *DocumentService) RequeueStale(ctx context.Context, limit uint) (int, error) {
	docs, err := s.docs.ListByProcessingStatus(ctx, model.ProcessingStatusQueued, limit)
	if err != nil {
		return 0, err
	}
	docs = filterStale(docs, time.Now().Add(-requeueGrace).UnixMilli())
	for i := range docs {
		s.dispatch(ctx, &docs[i])
	}
	return len(docs), nil
}
