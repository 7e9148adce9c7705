package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable means the provider has no usable credentials or backend.
var ErrUnavailable = errors.New("ai provider unavailable")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatOptions struct {
	Temperature float32
	MaxTokens   int
}

// StreamFunc receives each text delta as the model produces it. Returning an
// error aborts the stream.
type StreamFunc func(delta string) error

type IChatProvider interface {
	Name() string
	Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (string, error)
	ChatStream(ctx context.Context, model string, messages []Message, opts ChatOptions, fn StreamFunc) error
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error)
}

// IChatModel binds a chat provider to one model name.
type IChatModel interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
	ChatStream(ctx context.Context, messages []Message, opts ChatOptions, fn StreamFunc) error
}

// IEmbedModel binds an embed provider to one model name.
type IEmbedModel interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	ModelName() string
}

type chatModel struct {
	provider IChatProvider
	model    string
}

func NewChatModel(p IChatProvider, model string) IChatModel {
	return &chatModel{provider: p, model: model}
}

func (m *chatModel) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	return m.provider.Chat(ctx, m.model, messages, opts)
}

func (m *chatModel) ChatStream(ctx context.Context, messages []Message, opts ChatOptions, fn StreamFunc) error {
	return m.provider.ChatStream(ctx, m.model, messages, opts, fn)
}

type embedModel struct {
	provider IEmbedProvider
	model    string
}

func NewEmbedModel(p IEmbedProvider, model string) IEmbedModel {
	return &embedModel{provider: p, model: model}
}

func (m *embedModel) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return m.provider.Embed(ctx, m.model, text, taskType)
}

func (m *embedModel) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	return m.provider.EmbedBatch(ctx, m.model, texts, taskType)
}

func (m *embedModel) ModelName() string {
	return m.model
}

type ChatFactory func(args interface{}) (IChatProvider, error)
type EmbedFactory func(args interface{}) (IEmbedProvider, error)

var (
	chatRegistry  = map[string]ChatFactory{}
	embedRegistry = map[string]EmbedFactory{}
)

func Register(name string, factory ChatFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	chatRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewChatProvider(name string, args interface{}) (IChatProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.chat.provider is required")
	}
	factory := chatRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported chat provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.embedding.provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
