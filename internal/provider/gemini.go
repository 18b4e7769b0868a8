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
	geminiDefaultBaseURL   = "https://generativelanguage.googleapis.com"
	geminiDefaultModel     = "gemini-2.0-flash"
	geminiDefaultEmbedding = "text-embedding-004"
	geminiEmbeddingDims    = 768
)

// GeminiProvider implements Generator and Embedder against the Gemini REST
// API. Free tier, so it sits first in the default priority order.
type GeminiProvider struct {
	apiKey         string
	baseURL        string
	model          string
	embeddingModel string
	httpClient     *http.Client
}

// Gemini API structures
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float32 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

type geminiEmbedRequest struct {
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(cfg model.ProviderConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	chatModel := cfg.Model
	if chatModel == "" {
		chatModel = geminiDefaultModel
	}
	embModel := cfg.EmbeddingModel
	if embModel == "" {
		embModel = geminiDefaultEmbedding
	}

	return &GeminiProvider{
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		model:          chatModel,
		embeddingModel: embModel,
		httpClient:     &http.Client{},
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// NativeDimensions returns the embedding vector length
func (p *GeminiProvider) NativeDimensions() int {
	return geminiEmbeddingDims
}

// GenerateText produces a completion via generateContent
func (p *GeminiProvider) GenerateText(ctx context.Context, prompt string, opts Options) (string, error) {
	return p.generate(ctx, prompt, opts, "")
}

// GenerateStructured produces a JSON object by forcing the JSON mime type
func (p *GeminiProvider) GenerateStructured(ctx context.Context, prompt, schemaHint string, opts Options) (json.RawMessage, error) {
	full := prompt
	if schemaHint != "" {
		full = prompt + "\n\nRespond with a single JSON object of this shape:\n" + schemaHint
	}

	text, err := p.generate(ctx, full, opts, "application/json")
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(text)) {
		return nil, NewError(p.Name(), KindInvalidResponse, fmt.Errorf("response is not valid JSON"))
	}
	return json.RawMessage(text), nil
}

func (p *GeminiProvider) generate(ctx context.Context, prompt string, opts Options, mimeType string) (string, error) {
	chatModel := opts.Model
	if chatModel == "" {
		chatModel = p.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	apiReq := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      opts.Temperature,
			MaxOutputTokens:  maxTokens,
			ResponseMimeType: mimeType,
		},
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, chatModel)
	body, err := p.post(ctx, url, apiReq)
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", NewError(p.Name(), KindInvalidResponse, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", NewError(p.Name(), KindInvalidResponse, fmt.Errorf("no candidates in response"))
	}

	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

// Embed produces an embedding vector via embedContent
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	apiReq := geminiEmbedRequest{
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent", p.baseURL, p.embeddingModel)
	body, err := p.post(ctx, url, apiReq)
	if err != nil {
		return nil, err
	}

	var resp geminiEmbedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewError(p.Name(), KindInvalidResponse, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, NewError(p.Name(), KindInvalidResponse, fmt.Errorf("empty embedding response"))
	}

	return resp.Embedding.Values, nil
}

// post makes an authenticated POST request to the Gemini API
func (p *GeminiProvider) post(ctx context.Context, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewError(p.Name(), KindUnknown, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(p.Name(), KindUnknown, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

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
		var apiErr geminiError
		msg := string(respBody)
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		kind := KindUnknown
		switch httpResp.StatusCode {
		case http.StatusTooManyRequests:
			kind = KindRateLimited
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = KindAuthFailed
		}
		return nil, NewError(p.Name(), kind, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, msg))
	}

	return respBody, nil
}
