package ai

import "strings"

const defaultDeepSeekBaseURL = "https://api.deepseek.com/v1"

// DeepSeek exposes the OpenAI chat-completions dialect, so the provider is
// the shared implementation pointed at its endpoint.
func createDeepSeekFactory(args interface{}) (IChatProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultDeepSeekBaseURL
	}
	return &openAIChatProvider{
		name:    "deepseek",
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
	}, nil
}

func init() {
	Register("deepseek", createDeepSeekFactory)
}
