package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type deadlineChatModel struct {
	hadDeadline bool
}

func (m *deadlineChatModel) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	_, m.hadDeadline = ctx.Deadline()
	return "ok", nil
}

func (m *deadlineChatModel) ChatStream(ctx context.Context, messages []Message, opts ChatOptions, fn StreamFunc) error {
	_, m.hadDeadline = ctx.Deadline()
	return fn("ok")
}

type deadlineEmbedModel struct {
	hadDeadline bool
}

func (m *deadlineEmbedModel) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	_, m.hadDeadline = ctx.Deadline()
	return []float32{1}, nil
}

func (m *deadlineEmbedModel) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	_, m.hadDeadline = ctx.Deadline()
	return [][]float32{{1}}, nil
}

func (m *deadlineEmbedModel) ModelName() string {
	return "deadline-embed"
}

func TestWithChatTimeoutSetsDeadline(t *testing.T) {
	inner := &deadlineChatModel{}
	model := WithChatTimeout(inner, time.Minute)

	_, err := model.Chat(context.Background(), nil, ChatOptions{})
	require.NoError(t, err)
	require.True(t, inner.hadDeadline)

	inner.hadDeadline = false
	err = model.ChatStream(context.Background(), nil, ChatOptions{}, func(string) error { return nil })
	require.NoError(t, err)
	require.True(t, inner.hadDeadline)
}

func TestWithEmbedTimeoutSetsDeadline(t *testing.T) {
	inner := &deadlineEmbedModel{}
	model := WithEmbedTimeout(inner, time.Minute)

	_, err := model.Embed(context.Background(), "hola", "")
	require.NoError(t, err)
	require.True(t, inner.hadDeadline)

	inner.hadDeadline = false
	_, err = model.EmbedBatch(context.Background(), []string{"hola"}, "")
	require.NoError(t, err)
	require.True(t, inner.hadDeadline)
	require.Equal(t, "deadline-embed", model.ModelName())
}

func TestWithTimeoutZeroIsPassthrough(t *testing.T) {
	inner := &deadlineChatModel{}
	model := WithChatTimeout(inner, 0)

	_, err := model.Chat(context.Background(), nil, ChatOptions{})
	require.NoError(t, err)
	require.False(t, inner.hadDeadline)
}
