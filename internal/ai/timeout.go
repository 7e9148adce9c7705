package ai

import (
	"context"
	"time"
)

type timedChatModel struct {
	inner   IChatModel
	timeout time.Duration
}

// WithChatTimeout bounds every call on the model with a deadline. For streams
// the deadline covers the whole stream, not each delta.
func WithChatTimeout(m IChatModel, timeout time.Duration) IChatModel {
	if timeout <= 0 {
		return m
	}
	return &timedChatModel{inner: m, timeout: timeout}
}

func (m *timedChatModel) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.inner.Chat(ctx, messages, opts)
}

func (m *timedChatModel) ChatStream(ctx context.Context, messages []Message, opts ChatOptions, fn StreamFunc) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.inner.ChatStream(ctx, messages, opts, fn)
}

type timedEmbedModel struct {
	inner   IEmbedModel
	timeout time.Duration
}

func WithEmbedTimeout(m IEmbedModel, timeout time.Duration) IEmbedModel {
	if timeout <= 0 {
		return m
	}
	return &timedEmbedModel{inner: m, timeout: timeout}
}

func (m *timedEmbedModel) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.inner.Embed(ctx, text, taskType)
}

func (m *timedEmbedModel) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.inner.EmbedBatch(ctx, texts, taskType)
}

func (m *timedEmbedModel) ModelName() string {
	return m.inner.ModelName()
}
