// Package transcribe defines the speech-to-text contract. The shipped
// implementation is a stand-in; a production deployment plugs in a real ASR
// backend (Google Cloud Speech, NVIDIA Riva) behind the same interface.
package transcribe

import "context"

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Stub returns a fixed transcript per language so the rest of the voice
// pipeline can be exercised end to end without an ASR backend.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) Transcribe(_ context.Context, _ []byte, language string) (string, error) {
	if language == "te" {
		return "ఈ రోజు మా వీధిలో డ్రైనేజీ పారుతోంది, దయచేసి బాగు చేయండి.", nil
	}
	return "There is a severe drainage overflow in our street, please fix it.", nil
}
