package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultMaxTokens = 2048
	temperature      = 0.15
	topP             = 1.0
)

// Gateway talks to an OpenAI-compatible chat-completions endpoint. It is
// stateless and safe for concurrent use; every failure mode (missing key,
// transport error, non-2xx, malformed body) comes back as an error, never a
// panic, and is not retried.
type Gateway struct {
	invokeURL string
	apiKey    string
	model     string
	client    *http.Client
	log       *slog.Logger
}

func NewGateway(invokeURL, apiKey, model string, timeout time.Duration, log *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		invokeURL: invokeURL,
		apiKey:    apiKey,
		model:     model,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`
	Stream           bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *Gateway) Invoke(ctx context.Context, messages []Message, opts Options) (string, error) {
	if g.apiKey == "" {
		return "", ErrNoCredential
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	payload := chatRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.invokeURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warn("llm call failed", "error", err)
		return "", fmt.Errorf("llm: transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.log.Warn("llm call failed", "status", resp.StatusCode, "body", string(snippet))
		return "", fmt.Errorf("llm: status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		g.log.Warn("llm response decode failed", "error", err)
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
