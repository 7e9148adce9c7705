package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/nvalmar/luma/internal/model"
)

type summaryStore interface {
	Get(ctx context.Context, conversationID string) (*model.ConversationSummary, error)
	Upsert(ctx context.Context, s *model.ConversationSummary) error
	Delete(ctx context.Context, conversationID string) error
}

// ConversationMemory holds the rolling summary of each conversation, at most
// one per conversation. Setting an empty summary removes the row.
type ConversationMemory struct {
	store summaryStore
}

func NewConversationMemory(store summaryStore) *ConversationMemory {
	return &ConversationMemory{store: store}
}

// Get returns the summary for the conversation, or nil when there is none or
// the lookup failed.
func (m *ConversationMemory) Get(ctx context.Context, conversationID string) *model.ConversationSummary {
	s, err := m.store.Get(ctx, conversationID)
	if err != nil {
		logutil.GetLogger(ctx).Warn("get conversation summary failed", zap.Error(err))
		return nil
	}
	return s
}

// Set upserts the conversation's summary. An empty summary is a tombstone:
// any existing row is deleted.
func (m *ConversationMemory) Set(ctx context.Context, conversationID, userID, summary string, messageCount int) bool {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		if err := m.store.Delete(ctx, conversationID); err != nil {
			logutil.GetLogger(ctx).Warn("delete conversation summary failed", zap.Error(err))
			return false
		}
		return true
	}
	now := time.Now().UnixMilli()
	s := &model.ConversationSummary{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Summary:        summary,
		MessageCount:   messageCount,
		Ctime:          now,
		Mtime:          now,
	}
	if err := m.store.Upsert(ctx, s); err != nil {
		logutil.GetLogger(ctx).Warn("upsert conversation summary failed", zap.Error(err))
		return false
	}
	return true
}
