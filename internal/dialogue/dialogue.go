// Package dialogue drives the multi-turn complaint intake conversation. The
// driver is stateless: every call receives the full history from the caller
// and performs exactly one model round-trip.
package dialogue

import (
	"context"
	"log/slog"
	"strings"

	"civicconnect/internal/llm"
	"civicconnect/internal/parse"
	"civicconnect/internal/prompt"
)

// Turn is one entry of the caller-owned conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Draft is the structured complaint the model emits after the completion
// token.
type Draft struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Outcome is the result of one conversation step. Extracted is non-nil only
// when IsComplete is true and the completion payload parsed; a completed
// conversation with a nil draft means the caller must re-request the
// structured details.
type Outcome struct {
	ResponseText string `json:"response_text"`
	IsComplete   bool   `json:"is_complete"`
	Extracted    *Draft `json:"extracted_data"`
}

const (
	apologyEN    = "I'm having trouble connecting to the server. Please try again."
	apologyTE    = "సర్వర్‌కి కనెక్ట్ చేయడంలో సమస్య ఉంది. దయచేసి మళ్లీ ప్రయత్నించండి."
	submittingEN = "Got it. Submitting your report now."
	submittingTE = "అర్థమైంది. మీ నివేదికను ఇప్పుడు సమర్పిస్తున్నాను."
)

type Driver struct {
	llm llm.Client
	log *slog.Logger
}

func NewDriver(client llm.Client, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{llm: client, log: log}
}

// Step runs one turn. The language parameter alone selects the system prompt
// and the fixed strings; history content is never inspected for language.
func (d *Driver) Step(ctx context.Context, history []Turn, locationContext, language string) Outcome {
	messages := prompt.Dialogue(toMessages(history), locationContext, language)

	d.log.Debug("dialogue step", "turns", len(history), "language", language)
	raw, err := d.llm.Invoke(ctx, messages, llm.Options{})
	if err != nil {
		d.log.Warn("dialogue model call failed", "error", err)
		return Outcome{ResponseText: pick(language, apologyEN, apologyTE), IsComplete: false}
	}

	idx := strings.Index(raw, prompt.CompletionToken)
	if idx < 0 {
		return Outcome{ResponseText: raw, IsComplete: false}
	}

	// Split at the first token occurrence: spoken reply before, payload after.
	reply := strings.TrimSpace(raw[:idx])
	payload := strings.TrimSpace(raw[idx+len(prompt.CompletionToken):])

	var extracted *Draft
	var draft Draft
	if err := parse.Into(payload, &draft); err != nil {
		d.log.Warn("completion payload unparsable", "error", err, "payload", payload)
	} else {
		draft.Category = strings.ToLower(draft.Category)
		extracted = &draft
	}

	if reply == "" {
		reply = pick(language, submittingEN, submittingTE)
	}

	return Outcome{ResponseText: reply, IsComplete: true, Extracted: extracted}
}

func pick(language, en, te string) string {
	if language == prompt.LanguageTelugu {
		return te
	}
	return en
}

func toMessages(history []Turn) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		out = append(out, llm.Text(turn.Role, turn.Content))
	}
	return out
}
