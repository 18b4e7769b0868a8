package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pomboid/kill-fake-news/internal/model"
)

const (
	ollamaDefaultBaseURL   = "http://localhost:11434"
	ollamaDefaultModel     = "llama3.1:8b"
	ollamaDefaultEmbedding = "nomic-embed-text"
	ollamaEmbeddingDims    = 768
)

// OllamaProvider implements Generator and Embedder against a local Ollama
// instance. No API key, no rate limits, but local models can be slow.
type OllamaProvider struct {
	baseURL        string
	model          string
	embeddingModel string
	httpClient     *http.Client
}

// Ollama API structures
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format,omitempty"` // "json" forces valid JSON output
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(cfg model.ProviderConfig) (*OllamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	chatModel := cfg.Model
	if chatModel == "" {
		chatModel = ollamaDefaultModel
	}
	embModel := cfg.EmbeddingModel
	if embModel == "" {
		embModel = ollamaDefaultEmbedding
	}

	return &OllamaProvider{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		model:          chatModel,
		embeddingModel: embModel,
		httpClient:     &http.Client{},
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// NativeDimensions returns the embedding vector length
func (p *OllamaProvider) NativeDimensions() int {
	return ollamaEmbeddingDims
}

// GenerateText produces a completion via /api/generate
func (p *OllamaProvider) GenerateText(ctx context.Context, prompt string, opts Options) (string, error) {
	return p.generate(ctx, prompt, opts, "")
}

// GenerateStructured produces a JSON object using Ollama's JSON format mode
func (p *OllamaProvider) GenerateStructured(ctx context.Context, prompt, schemaHint string, opts Options) (json.RawMessage, error) {
	full := prompt
	if schemaHint != "" {
		full = prompt + "\n\nRespond with a single JSON object of this shape:\n" + schemaHint
	}

	text, err := p.generate(ctx, full, opts, "json")
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(text)) {
		return nil, NewError(p.Name(), KindInvalidResponse, fmt.Errorf("response is not valid JSON"))
	}
	return json.RawMessage(text), nil
}

func (p *OllamaProvider) generate(ctx context.Context, prompt string, opts Options, format string) (string, error) {
	chatModel := opts.Model
	if chatModel == "" {
		chatModel = p.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	apiReq := ollamaRequest{
		Model:  chatModel,
		Prompt: prompt,
		Stream: false,
		Format: format,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  maxTokens,
		},
	}

	body, err := p.post(ctx, p.baseURL+"/api/generate", apiReq)
	if err != nil {
		return "", err
	}

	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", NewError(p.Name(), KindInvalidResponse, fmt.Errorf("unmarshal response: %w", err))
	}

	return strings.TrimSpace(resp.Response), nil
}

// Embed produces an embedding vector via /api/embeddings
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	apiReq := ollamaEmbedRequest{
		Model:  p.embeddingModel,
		Prompt: text,
	}

	body, err := p.post(ctx, p.baseURL+"/api/embeddings", apiReq)
	if err != nil {
		return nil, err
	}

	var resp ollamaEmbedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewError(p.Name(), KindInvalidResponse, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(resp.Embedding) == 0 {
		return nil, NewError(p.Name(), KindInvalidResponse, fmt.Errorf("empty embedding response"))
	}

	return resp.Embedding, nil
}

// post makes an HTTP request to the Ollama API
func (p *OllamaProvider) post(ctx context.Context, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewError(p.Name(), KindUnknown, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(p.Name(), KindUnknown, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewError(p.Name(), KindTimeout, err)
		}
		return nil, NewError(p.Name(), KindUnknown, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewError(p.Name(), KindUnknown, fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		msg := string(respBody)
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		kind := KindUnknown
		if httpResp.StatusCode == http.StatusTooManyRequests {
			kind = KindRateLimited
		}
		return nil, NewError(p.Name(), kind, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, msg))
	}

	return respBody, nil
}
