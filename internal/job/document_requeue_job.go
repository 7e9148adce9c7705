package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/nvalmar/luma/internal/service"
)

const requeueBatchSize = 20

// DocumentRequeueJob re-dispatches documents stuck in the processing queue,
// typically after a crash mid-ingestion.
type DocumentRequeueJob struct {
	docs *service.DocumentService
}

func NewDocumentRequeueJob(docs *service.DocumentService) *DocumentRequeueJob {
	return &DocumentRequeueJob{docs: docs}
}

func (j *DocumentRequeueJob) Name() string {
	return "document_requeue"
}

func (j *DocumentRequeueJob) Run(ctx context.Context) error {
	requeued, err := j.docs.RequeueStale(ctx, requeueBatchSize)
	if err != nil {
		return err
	}
	if requeued > 0 {
		logutil.GetLogger(ctx).Info("stale documents requeued", zap.Int("count", requeued))
	}
	return nil
}
