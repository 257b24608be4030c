package blob

import (
	"context"
	"strings"
	"testing"
)

func TestPutWithoutBackendReturnsPlaceholder(t *testing.T) {
	store := New("", "", nil)
	url := store.Put(context.Background(), []byte("audio-bytes"), "recording.webm")
	if !strings.HasPrefix(url, "https://mock-r2-storage.com/") {
		t.Fatalf("expected placeholder url, got %s", url)
	}
	if !strings.HasSuffix(url, ".webm") {
		t.Fatalf("expected original extension kept, got %s", url)
	}
}

func TestPutSniffsExtension(t *testing.T) {
	store := New("", "", nil)
	// Minimal PNG signature.
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	url := store.Put(context.Background(), png, "")
	if !strings.HasSuffix(url, ".png") {
		t.Fatalf("expected sniffed .png extension, got %s", url)
	}
}

func TestDetectImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	mime, ok := DetectImage(png)
	if !ok || mime != "image/png" {
		t.Fatalf("expected image/png, got %s ok=%v", mime, ok)
	}
	if _, ok := DetectImage([]byte("plain text")); ok {
		t.Fatalf("expected text to not be an image")
	}
}
