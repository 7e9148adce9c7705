package rag

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/nvalmar/luma/internal/embedding"
	"github.com/nvalmar/luma/internal/filestore"
	"github.com/nvalmar/luma/internal/model"
	"github.com/nvalmar/luma/internal/repo"
)

const (
	StageExtract = "extract"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StagePersist = "persist"
)

// Indexer runs the document ingestion pipeline: fetch, extract, normalize,
// chunk, embed, persist. Failures end up on the document row, never with the
// caller.
type Indexer struct {
	docRepo   *repo.DocumentRepo
	chunkRepo *repo.ChunkRepo
	logRepo   *repo.ProcessingLogRepo
	store     filestore.IFileStore
	gen       *embedding.Generator
}

func NewIndexer(docRepo *repo.DocumentRepo, chunkRepo *repo.ChunkRepo, logRepo *repo.ProcessingLogRepo,
	store filestore.IFileStore, gen *embedding.Generator) *Indexer {
	return &Indexer{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		logRepo:   logRepo,
		store:     store,
		gen:       gen,
	}
}

// Process ingests one document end to end. It never returns an error for
// extraction or pipeline failures; those are recorded on the document.
func (ix *Indexer) Process(ctx context.Context, doc *model.Document) {
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", doc.ID), zap.String("filename", doc.Filename))
	now := time.Now().UnixMilli()
	if err := ix.docRepo.UpdateProcessing(ctx, doc.ID, model.ProcessingStatusProcessing, "", now); err != nil {
		logger.Error("mark document processing failed", zap.Error(err))
		return
	}

	text, err := ix.extractText(ctx, doc)
	if err != nil {
		ix.fail(ctx, doc.ID, StageExtract, err)
		return
	}
	normalized := Normalize(text)
	if normalized == "" {
		ix.fail(ctx, doc.ID, StageExtract, fmt.Errorf("document has no extractable text"))
		return
	}
	ix.log(ctx, doc.ID, StageExtract, "ok", fmt.Sprintf("%d chars", len(normalized)))

	pieces := Chunk(normalized, DefaultTargetTokens, DefaultOverlapTokens)
	if len(pieces) == 0 {
		ix.fail(ctx, doc.ID, StageChunk, fmt.Errorf("chunking produced no content"))
		return
	}
	ix.log(ctx, doc.ID, StageChunk, "ok", fmt.Sprintf("%d chunks", len(pieces)))

	texts := make([]string, 0, len(pieces))
	for _, p := range pieces {
		texts = append(texts, p.Content)
	}
	vectors := ix.gen.EmbedBatch(ctx, texts, embedding.TaskTypeDocument)
	ix.log(ctx, doc.ID, StageEmbed, "ok", fmt.Sprintf("%d vectors", len(vectors)))

	now = time.Now().UnixMilli()
	chunks := make([]model.Chunk, 0, len(pieces))
	for i, p := range pieces {
		var emb *pgvector.Vector
		if !embedding.IsZero(vectors[i]) {
			v := pgvector.NewVector(vectors[i])
			emb = &v
		}
		chunks = append(chunks, model.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			ChunkIndex: p.Index,
			Content:    p.Content,
			TokenCount: EstimateTokens(p.Content),
			Embedding:  emb,
			Ctime:      now,
		})
	}
	inserted, err := ix.chunkRepo.InsertBatch(ctx, chunks)
	if err != nil {
		// earlier batches stay committed; reprocessing starts clean
		ix.log(ctx, doc.ID, StagePersist, "error", fmt.Sprintf("inserted %d/%d: %v", inserted, len(chunks), err))
		ix.fail(ctx, doc.ID, StagePersist, err)
		return
	}
	ix.log(ctx, doc.ID, StagePersist, "ok", fmt.Sprintf("%d chunks", inserted))

	if err := ix.docRepo.MarkCompleted(ctx, doc.ID, inserted, time.Now().UnixMilli()); err != nil {
		logger.Error("mark document completed failed", zap.Error(err))
		return
	}
	logger.Info("document indexed", zap.Int("chunks", inserted))
}

func (ix *Indexer) extractText(ctx context.Context, doc *model.Document) (string, error) {
	reader, err := ix.store.Open(ctx, doc.FilePath)
	if err != nil {
		return "", fmt.Errorf("open stored file: %w", err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read stored file: %w", err)
	}
	return Extract(data, doc.MimeType, doc.Filename)
}

func (ix *Indexer) fail(ctx context.Context, docID, stage string, cause error) {
	logutil.GetLogger(ctx).Warn("document processing failed",
		zap.String("document_id", docID), zap.String("stage", stage), zap.Error(cause))
	ix.log(ctx, docID, stage, "error", cause.Error())
	if err := ix.docRepo.UpdateProcessing(ctx, docID, model.ProcessingStatusError, cause.Error(), time.Now().UnixMilli()); err != nil {
		logutil.GetLogger(ctx).Error("mark document error failed", zap.Error(err))
	}
}

func (ix *Indexer) log(ctx context.Context, docID, stage, status, detail string) {
	entry := &model.ProcessingLog{
		ID:         uuid.NewString(),
		DocumentID: docID,
		Stage:      stage,
		Status:     status,
		Detail:     detail,
		Ctime:      time.Now().UnixMilli(),
	}
	if err := ix.logRepo.Create(ctx, entry); err != nil {
		logutil.GetLogger(ctx).Warn("write processing log failed", zap.Error(err))
	}
}
