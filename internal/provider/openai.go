package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/pomboid/kill-fake-news/internal/model"
)

const openaiEmbeddingDims = 1536 // text-embedding-3-small

// OpenAIProvider implements Generator and Embedder using the OpenAI API
type OpenAIProvider struct {
	client         *openai.Client
	model          string
	embeddingModel openai.EmbeddingModel
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg model.ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	chatModel := cfg.Model
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	embModel := openai.SmallEmbedding3
	if cfg.EmbeddingModel != "" {
		embModel = openai.EmbeddingModel(cfg.EmbeddingModel)
	}

	return &OpenAIProvider{
		client:         openai.NewClientWithConfig(clientConfig),
		model:          chatModel,
		embeddingModel: embModel,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// NativeDimensions returns the embedding vector length
func (p *OpenAIProvider) NativeDimensions() int {
	return openaiEmbeddingDims
}

// GenerateText produces a completion using the Chat Completions API
func (p *OpenAIProvider) GenerateText(ctx context.Context, prompt string, opts Options) (string, error) {
	return p.complete(ctx, prompt, opts, nil)
}

// GenerateStructured produces a JSON object using JSON mode
func (p *OpenAIProvider) GenerateStructured(ctx context.Context, prompt, schemaHint string, opts Options) (json.RawMessage, error) {
	format := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	full := prompt
	if schemaHint != "" {
		full = prompt + "\n\nRespond with a single JSON object of this shape:\n" + schemaHint
	}

	text, err := p.complete(ctx, full, opts, format)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(text)) {
		return nil, NewError(p.Name(), KindInvalidResponse, fmt.Errorf("response is not valid JSON"))
	}
	return json.RawMessage(text), nil
}

func (p *OpenAIProvider) complete(ctx context.Context, prompt string, opts Options, format *openai.ChatCompletionResponseFormat) (string, error) {
	chatModel := opts.Model
	if chatModel == "" {
		chatModel = p.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	req := openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:      maxTokens,
		Temperature:    opts.Temperature,
		ResponseFormat: format,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", p.classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", NewError(p.Name(), KindInvalidResponse, fmt.Errorf("no choices in response"))
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed produces an embedding vector for the text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: p.embeddingModel,
	})
	if err != nil {
		return nil, p.classify(ctx, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, NewError(p.Name(), KindInvalidResponse, fmt.Errorf("empty embedding response"))
	}

	return resp.Data[0].Embedding, nil
}

// classify maps SDK errors onto the ProviderError taxonomy
func (p *OpenAIProvider) classify(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewError(p.Name(), KindTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429:
			return NewError(p.Name(), KindRateLimited, err)
		case 401, 403:
			return NewError(p.Name(), KindAuthFailed, err)
		}
	}

	return NewError(p.Name(), KindUnknown, err)
}
