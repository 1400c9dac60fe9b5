package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

// OpenAICompatibleClient talks to any OpenAI-compatible endpoint. One
// client serves several base URLs and keys; they come with each call.
type OpenAICompatibleClient struct {
	httpClient *http.Client
}

func NewOpenAICompatibleClient(timeout time.Duration) *OpenAICompatibleClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OpenAICompatibleClient) api(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = c.httpClient
	return openai.NewClientWithConfig(cfg)
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		Temperature: float32(cfg.Temperature),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.api(cfg.BaseURL, cfg.APIKey).CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", asStatusError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIChatModel adapts the client to ChatModel with a fixed config.
type OpenAIChatModel struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewOpenAIChatModel(client *OpenAICompatibleClient, cfg ChatConfig) *OpenAIChatModel {
	return &OpenAIChatModel{client: client, cfg: cfg}
}

func (m *OpenAIChatModel) Name() string { return m.cfg.Model }

func (m *OpenAIChatModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := []ChatMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	return m.client.Complete(ctx, m.cfg, messages)
}
