// Package extract holds the single-shot extraction pipelines: voice
// transcript to draft, image to draft, and transcript translation. Every
// pipeline is total; model or parse failure degrades to a documented default
// instead of surfacing an error.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"civicconnect/internal/llm"
	"civicconnect/internal/parse"
	"civicconnect/internal/prompt"
)

// VoiceDraft is the structured record extracted from a spoken complaint
// transcript.
type VoiceDraft struct {
	Category        string `json:"category"`
	Summary         string `json:"summary"`
	Priority        string `json:"priority"`
	LocationDetails string `json:"location_details"`
}

// ImageDraft is the structured record extracted from a complaint photograph.
type ImageDraft struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

const imageMaxTokens = 512

type Service struct {
	llm llm.Client
	log *slog.Logger
}

func NewService(client llm.Client, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{llm: client, log: log}
}

// Translate returns text rendered in targetLang. Identical source and target
// languages short-circuit without a model call. A failed call returns the
// original text behind a marker so the caller's larger request still
// completes.
func (s *Service) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	if sourceLang == targetLang {
		return text
	}
	out, err := s.llm.Invoke(ctx, prompt.Translate(text, sourceLang, targetLang), llm.Options{})
	if err != nil {
		s.log.Warn("translation unavailable", "source", sourceLang, "target", targetLang, "error", err)
		return "[Mock Translation] " + text
	}
	return out
}

// FromTranscript extracts a VoiceDraft from a complaint transcript. The
// truncated-transcript summary in the fallback is deliberate: a degraded
// draft still carries the caller's own words.
func (s *Service) FromTranscript(ctx context.Context, transcript, locationContext string) VoiceDraft {
	out, err := s.llm.Invoke(ctx, prompt.ExtractFromText(transcript, locationContext), llm.Options{})
	if err != nil {
		s.log.Warn("voice extraction call failed", "error", err)
		return voiceFallback(transcript)
	}

	var draft VoiceDraft
	if err := parse.Into(out, &draft); err != nil {
		s.log.Warn("voice extraction parse failed", "error", err, "raw", out)
		return voiceFallback(transcript)
	}
	draft.Category = strings.ToLower(draft.Category)
	return draft
}

func voiceFallback(transcript string) VoiceDraft {
	return VoiceDraft{
		Category:        "others",
		Summary:         truncate(transcript, 50) + "...",
		Priority:        "medium",
		LocationDetails: "Extracted from speech",
	}
}

// FromImage extracts an ImageDraft from a base64-encoded photograph.
func (s *Service) FromImage(ctx context.Context, imageB64, mimeType string) ImageDraft {
	out, err := s.llm.Invoke(ctx, prompt.ExtractFromImage(imageB64, mimeType), llm.Options{MaxTokens: imageMaxTokens})
	if err != nil {
		s.log.Warn("image analysis call failed", "error", err)
		return imageFallback()
	}

	var draft ImageDraft
	if err := parse.Into(out, &draft); err != nil {
		s.log.Warn("image analysis parse failed", "error", err, "raw", out)
		return imageFallback()
	}
	draft.Category = strings.ToLower(draft.Category)
	return draft
}

func imageFallback() ImageDraft {
	return ImageDraft{
		Category:    "others",
		Title:       "Issue Detected",
		Description: "Could not analyze image details automatically.",
		Priority:    "medium",
	}
}

// truncate keeps the first limit characters; cutting at a byte offset could
// split a multi-byte rune when the transcript carries Telugu script.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
