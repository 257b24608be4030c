package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoCredential is returned before any outbound call when the gateway has
// no API key. Callers treat it like any other invocation failure.
var ErrNoCredential = errors.New("llm: no api key configured")

// Message is one chat turn. Content is either a plain string or a slice of
// ContentPart for multimodal turns.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

func Text(role, content string) Message {
	return Message{Role: role, Content: content}
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

func ImagePart(dataURL string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}}
}

// Options narrows the per-call knobs. Sampling parameters are fixed gateway
// constants; only the completion token cap varies between pipelines.
type Options struct {
	MaxTokens int
}

// Client is the gateway contract: one best-effort completion per call.
// An error return is a terminal failure for that call; retry policy, if any,
// belongs to the caller.
type Client interface {
	Invoke(ctx context.Context, messages []Message, opts Options) (string, error)
}
