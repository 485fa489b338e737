// Package generator produces candidate keywords with an OpenAI-compatible
// chat model (OpenAI, Ollama, vLLM and friends).
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hivewatch/hivewatch/domain/keyword"
)

// ErrEmptyResponse indicates the model returned no usable keywords.
var ErrEmptyResponse = errors.New("model returned no keywords")

// OpenAIGenerator implements keyword.Generator against any
// OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client        *openai.Client
	model         string
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// Config holds configuration for OpenAIGenerator.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// NewOpenAIGenerator creates a generator from configuration.
func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	config := openai.DefaultConfig(cfg.APIKey)

	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	initialDelay := cfg.InitialDelay
	if initialDelay == 0 {
		initialDelay = 2 * time.Second
	}

	backoffFactor := cfg.BackoffFactor
	if backoffFactor == 0 {
		backoffFactor = 2.0
	}

	return &OpenAIGenerator{
		client:        openai.NewClientWithConfig(config),
		model:         cfg.Model,
		maxRetries:    maxRetries,
		initialDelay:  initialDelay,
		backoffFactor: backoffFactor,
	}
}

var languageNames = map[string]string{
	keyword.LanguageEnglish: "English",
	keyword.LanguageFrench:  "French",
}

// GenerateKeywords asks the model for count search keywords about the
// category, in the given language. Results are normalized and duplicate-free
// but not yet morphologically expanded.
func (g *OpenAIGenerator) GenerateKeywords(ctx context.Context, category, language string, count int) ([]string, error) {
	langName, ok := languageNames[language]
	if !ok {
		langName = language
	}

	prompt := fmt.Sprintf(
		"Generate %d short search keywords in %s for finding social media posts about %q. "+
			"Prefer single words or two-word terms people actually type. "+
			"Respond with a JSON array of strings only, no explanation.",
		count, langName, category,
	)

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var resp openai.ChatCompletionResponse
	var err error

	err = g.withRetry(ctx, func() error {
		resp, err = g.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("keyword generation failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	keywords, err := parseKeywords(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return keywords, nil
}

// parseKeywords extracts a keyword list from model output. Models wrap the
// array in code fences or reasoning tags more often than not, so strip
// those before looking for JSON, and fall back to line splitting when no
// array parses.
func parseKeywords(content string) ([]string, error) {
	content = stripReasoning(content)
	content = stripCodeFences(content)

	var raw []string
	if arr := extractJSONArray(content); arr != "" {
		if err := json.Unmarshal([]byte(arr), &raw); err != nil {
			// Some models emit [{"keyword": "..."}] objects instead.
			var objs []struct {
				Keyword string `json:"keyword"`
			}
			if err := json.Unmarshal([]byte(arr), &objs); err == nil {
				for _, o := range objs {
					raw = append(raw, o.Keyword)
				}
			}
		}
	}
	if len(raw) == 0 {
		for _, line := range strings.Split(content, "\n") {
			line = strings.Trim(strings.TrimSpace(line), `-*•"',`)
			if line != "" {
				raw = append(raw, line)
			}
		}
	}

	seen := make(map[string]struct{}, len(raw))
	keywords := make([]string, 0, len(raw))
	for _, r := range raw {
		w := keyword.Normalize(r)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	if len(keywords) == 0 {
		return nil, ErrEmptyResponse
	}
	return keywords, nil
}

func stripReasoning(content string) string {
	for {
		start := strings.Index(content, "<think>")
		if start < 0 {
			return content
		}
		end := strings.Index(content, "</think>")
		if end < 0 {
			return content[:start]
		}
		content = content[:start] + content[end+len("</think>"):]
	}
}

func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

func extractJSONArray(content string) string {
	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// withRetry executes the function with exponential backoff retry.
func (g *OpenAIGenerator) withRetry(ctx context.Context, fn func() error) error {
	delay := g.initialDelay
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !g.isRetryable(lastErr) {
			return lastErr
		}

		if attempt < g.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * g.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable determines if an error should be retried.
func (g *OpenAIGenerator) isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	// Transport-level failures (timeouts, resets) surface as plain errors.
	return true
}
