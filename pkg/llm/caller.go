// Package llm provides prompt-in, text-out model callers for the OpenAI,
// Anthropic and Ollama HTTP APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"

	DefaultTimeout = 60 * time.Second
)

// ErrEmptyCompletion is returned when a provider answers without any content.
var ErrEmptyCompletion = errors.New("model returned no content")

// CallFunc sends a fully rendered prompt to a model and returns its text.
type CallFunc func(ctx context.Context, prompt string) (string, error)

// CallerConfig holds configuration for creating a CallFunc.
type CallerConfig struct {
	Provider string // "openai", "anthropic", or "ollama"
	Model    string // e.g. "gpt-4o-mini", "claude-haiku-4-5-20251001"
	APIKey   string // explicit API key (highest priority)
	BaseURL  string // override base URL

	// JSON asks the provider for a JSON object response where supported.
	JSON bool

	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// HasCredentials checks whether an API key can be resolved from the config
// without creating a caller.
func HasCredentials(cfg CallerConfig) bool {
	if cfg.APIKey != "" {
		return true
	}
	provider := strings.ToLower(cfg.Provider)
	if provider == ProviderOllama {
		return true
	}
	return resolveAPIKeyFromEnv(provider) != ""
}

// NewCaller creates a CallFunc based on the provided configuration.
// Resolution order for API key:
//  1. Explicit APIKey in config
//  2. Environment variables (OPENAI_API_KEY / ANTHROPIC_API_KEY)
//  3. Fall back to Ollama at localhost:11434
func NewCaller(cfg CallerConfig) (CallFunc, error) {
	provider := strings.ToLower(cfg.Provider)
	model := cfg.Model

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = resolveAPIKeyFromEnv(provider)
	}

	if apiKey == "" && provider != ProviderOllama {
		log.Warn("no API key found, falling back to ollama", zap.String("provider", provider))
		provider = ProviderOllama
		model = ""
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	h := &httpCaller{
		client:  client,
		timeout: timeout,
		json:    cfg.JSON,
		apiKey:  apiKey,
		baseURL: cfg.BaseURL,
		model:   model,
	}

	switch provider {
	case ProviderOpenAI, "":
		if h.model == "" {
			h.model = "gpt-4o-mini"
		}
		if h.baseURL == "" {
			h.baseURL = "https://api.openai.com"
		}
		return h.openAI, nil

	case ProviderAnthropic:
		if h.model == "" {
			h.model = "claude-haiku-4-5-20251001"
		}
		if h.baseURL == "" {
			h.baseURL = "https://api.anthropic.com"
		}
		return h.anthropic, nil

	case ProviderOllama:
		if h.model == "" {
			h.model = "llama3.2"
		}
		if h.baseURL == "" {
			h.baseURL = "http://localhost:11434"
		}
		return h.ollama, nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func resolveAPIKeyFromEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI, "":
		return os.Getenv("OPENAI_API_KEY")
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("ANTHROPIC_API_KEY")
	}
}

type httpCaller struct {
	client  *http.Client
	timeout time.Duration
	json    bool
	apiKey  string
	baseURL string
	model   string
}

// post sends body to path and returns the raw response on HTTP 200.
func (h *httpCaller) post(ctx context.Context, name, path string, body any, headers map[string]string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: name, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return raw, nil
}

// --- OpenAI caller ---

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	ResponseFormat *openAIRespFormat `json:"response_format,omitempty"`
	Temperature    float64           `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRespFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (h *httpCaller) openAI(ctx context.Context, prompt string) (string, error) {
	reqBody := openAIRequest{
		Model: h.model,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
	}
	if h.json {
		reqBody.ResponseFormat = &openAIRespFormat{Type: "json_object"}
	}

	body, err := h.post(ctx, ProviderOpenAI, "/v1/chat/completions", reqBody, map[string]string{
		"Authorization": "Bearer " + h.apiKey,
	})
	if err != nil {
		return "", err
	}

	var result openAIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("openai error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return result.Choices[0].Message.Content, nil
}

// --- Anthropic caller ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (h *httpCaller) anthropic(ctx context.Context, prompt string) (string, error) {
	content := prompt
	if h.json {
		content += "\n\nReturn ONLY valid JSON, no markdown or extra text."
	}

	reqBody := anthropicRequest{
		Model:     h.model,
		MaxTokens: 2048,
		Messages: []anthropicMessage{
			{Role: "user", Content: content},
		},
	}

	body, err := h.post(ctx, ProviderAnthropic, "/v1/messages", reqBody, map[string]string{
		"x-api-key":         h.apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	var result anthropicResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", result.Error.Message)
	}

	if len(result.Content) == 0 {
		return "", ErrEmptyCompletion
	}

	return result.Content[0].Text, nil
}

// --- Ollama caller ---

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format,omitempty"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (h *httpCaller) ollama(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaChatRequest{
		Model: h.model,
		Messages: []ollamaChatMessage{
			{Role: "user", Content: prompt},
		},
		Stream: false,
	}
	if h.json {
		reqBody.Format = "json"
	}

	body, err := h.post(ctx, ProviderOllama, "/api/chat", reqBody, nil)
	if err != nil {
		return "", err
	}

	var result ollamaChatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return result.Message.Content, nil
}
