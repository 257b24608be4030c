// Package blob uploads complaint media (audio recordings, photos) to object
// storage. Put is total: when storage is unconfigured or the upload fails the
// caller gets a placeholder URL, never an error, so intake keeps working in
// degraded mode.
package blob

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/viant/afs"
	_ "github.com/viant/afsc/s3"
)

const mockBaseURL = "https://mock-r2-storage.com"

type Store struct {
	fs            afs.Service
	baseURL       string
	publicBaseURL string
	log           *slog.Logger
}

// New builds a Store rooted at baseURL (e.g. "s3://civic-voice-complaints").
// An empty baseURL yields a store that always answers with placeholder URLs.
func New(baseURL, publicBaseURL string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	var fs afs.Service
	if baseURL != "" {
		fs = afs.New()
	}
	return &Store{fs: fs, baseURL: baseURL, publicBaseURL: publicBaseURL, log: log}
}

// Put stores data under a fresh uuid-derived name and returns its public URL.
func (s *Store) Put(ctx context.Context, data []byte, filename string) string {
	name := uuid.NewString() + extension(data, filename)

	if s.fs == nil {
		return mockBaseURL + "/" + name
	}

	dest := strings.TrimSuffix(s.baseURL, "/") + "/" + name
	if err := s.fs.Upload(ctx, dest, 0644, bytes.NewReader(data)); err != nil {
		s.log.Warn("blob upload failed", "dest", dest, "error", err)
		return mockBaseURL + "/" + name
	}

	if s.publicBaseURL != "" {
		return strings.TrimSuffix(s.publicBaseURL, "/") + "/" + name
	}
	return dest
}

func extension(data []byte, filename string) string {
	if ext := path.Ext(filename); ext != "" {
		return ext
	}
	if kind := mimetype.Detect(data); kind.Extension() != "" {
		return kind.Extension()
	}
	return ".bin"
}

// DetectImage reports the sniffed mime type and whether data is an image.
func DetectImage(data []byte) (string, bool) {
	mime := mimetype.Detect(data).String()
	return mime, strings.HasPrefix(mime, "image/")
}
