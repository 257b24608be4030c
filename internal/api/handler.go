// Package api is the HTTP ingress: route wiring, CORS, multipart parsing and
// request validation around the intake engine.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"civicconnect/internal/blob"
	"civicconnect/internal/config"
	"civicconnect/internal/dialogue"
	"civicconnect/internal/extract"
	"civicconnect/internal/queue"
	"civicconnect/internal/store"
	"civicconnect/internal/transcribe"
)

const maxUploadBytes = 15 << 20

const chatRequestSchema = `{
	"type": "object",
	"required": ["history"],
	"properties": {
		"history": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["role", "content"],
				"properties": {
					"role": {"type": "string", "enum": ["user", "assistant", "system"]},
					"content": {"type": "string"}
				}
			}
		},
		"location_context": {"type": "string"},
		"language": {"type": "string"}
	}
}`

type Handler struct {
	Config      config.Config
	Store       *store.Store
	Queue       *queue.Queue
	Blob        *blob.Store
	Transcriber transcribe.Transcriber
	Extract     *extract.Service
	Dialogue    *dialogue.Driver
	Log         *slog.Logger

	chatSchema *jsonschema.Schema
}

func NewHandler(cfg config.Config, st *store.Store, q *queue.Queue, bl *blob.Store, tr transcribe.Transcriber, ex *extract.Service, dr *dialogue.Driver, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	schema := jsonschema.MustCompileString("chat_request.json", chatRequestSchema)
	return &Handler{
		Config:      cfg,
		Store:       st,
		Queue:       q,
		Blob:        bl,
		Transcriber: tr,
		Extract:     ex,
		Dialogue:    dr,
		Log:         log,
		chatSchema:  schema,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/complaints", h.withCORS(h.handleListComplaints))
	mux.HandleFunc("/api/v1/complaints/voice", h.withCORS(h.handleVoiceComplaint))
	mux.HandleFunc("/api/v1/analyze-image", h.withCORS(h.handleAnalyzeImage))
	mux.HandleFunc("/api/v1/chat/complaint", h.withCORS(h.handleChatComplaint))
}

func (h *Handler) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if origin := h.allowOrigin(r); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// allowOrigin returns the Access-Control-Allow-Origin value for r, or empty
// when the request origin matches none of the configured origins.
func (h *Handler) allowOrigin(r *http.Request) string {
	origins := h.Config.CORS.AllowOrigins
	if len(origins) == 0 {
		return "*"
	}
	for _, allowed := range origins {
		if allowed == "*" {
			return "*"
		}
		if allowed == r.Header.Get("Origin") {
			return allowed
		}
	}
	return ""
}

func (h *Handler) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	if h.Store == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 0
	if qp := r.URL.Query().Get("limit"); qp != "" {
		n, err := strconv.Atoi(qp)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	records, err := h.Store.ListComplaintsByUser(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"complaints": records})
}

type voiceResponse struct {
	Status      string         `json:"status"`
	ComplaintID string         `json:"complaintId"`
	Data        map[string]any `json:"data"`
}

func (h *Handler) handleVoiceComplaint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		http.Error(w, "missing audio_file", http.StatusBadRequest)
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "failed to read audio", http.StatusBadRequest)
		return
	}

	language := strings.TrimSpace(r.FormValue("language"))
	if language == "" {
		http.Error(w, "missing language", http.StatusBadRequest)
		return
	}
	userID := strings.TrimSpace(r.FormValue("userId"))
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	latitude, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil {
		http.Error(w, "invalid latitude", http.StatusBadRequest)
		return
	}
	longitude, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil {
		http.Error(w, "invalid longitude", http.StatusBadRequest)
		return
	}
	address := strings.TrimSpace(r.FormValue("address"))

	ctx := r.Context()

	audioURL := h.Blob.Put(ctx, audio, header.Filename)

	transcript, err := h.Transcriber.Transcribe(ctx, audio, language)
	if err != nil {
		h.Log.Warn("transcription failed", "error", err)
		http.Error(w, "transcription failed", http.StatusInternalServerError)
		return
	}

	transcriptEnglish := transcript
	if language == "te" {
		transcriptEnglish = h.Extract.Translate(ctx, transcript, "te", "en")
	}

	locationContext := address
	if locationContext == "" {
		locationContext = strconv.FormatFloat(latitude, 'f', -1, 64) + ", " + strconv.FormatFloat(longitude, 'f', -1, 64)
	}
	draft := h.Extract.FromTranscript(ctx, transcriptEnglish, locationContext)

	recordAddress := address
	if recordAddress == "" {
		recordAddress = draft.LocationDetails
	}
	rec := store.Record{
		UserID:             userID,
		Source:             "voice",
		Category:           draft.Category,
		Title:              draft.Summary,
		Description:        draft.Summary,
		Priority:           draft.Priority,
		Status:             "pending",
		AudioURL:           audioURL,
		Latitude:           latitude,
		Longitude:          longitude,
		Address:            recordAddress,
		Language:           language,
		TranscriptOriginal: transcript,
		TranscriptEnglish:  transcriptEnglish,
	}

	complaintID := h.persist(ctx, rec)

	writeJSON(w, http.StatusOK, voiceResponse{
		Status:      "success",
		ComplaintID: complaintID,
		Data: map[string]any{
			"userId":      rec.UserID,
			"source":      rec.Source,
			"audioUrl":    rec.AudioURL,
			"title":       rec.Title,
			"description": rec.Description,
			"category":    rec.Category,
			"priority":    rec.Priority,
			"status":      rec.Status,
			"location": map[string]any{
				"latitude":  rec.Latitude,
				"longitude": rec.Longitude,
				"address":   rec.Address,
			},
			"metadata": map[string]any{
				"language":           rec.Language,
				"transcriptOriginal": rec.TranscriptOriginal,
				"transcriptEnglish":  rec.TranscriptEnglish,
			},
		},
	})
}

// persist stores the record when a database is configured; without one the
// intake still answers with an ephemeral id.
func (h *Handler) persist(ctx context.Context, rec store.Record) string {
	if h.Store == nil {
		return h.ephemeralID()
	}
	id, err := h.Store.InsertComplaint(ctx, rec)
	if err != nil {
		h.Log.Warn("complaint insert failed", "error", err)
		return h.ephemeralID()
	}
	if h.Queue != nil {
		if err := h.Queue.PushComplaint(ctx, id); err != nil {
			h.Log.Warn("complaint event enqueue failed", "id", id, "error", err)
		}
	}
	return id
}

func (h *Handler) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "missing image", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "failed to read image", http.StatusBadRequest)
		return
	}

	mime, ok := blob.DetectImage(data)
	if !ok {
		http.Error(w, "not an image", http.StatusBadRequest)
		return
	}

	imageB64 := base64.StdEncoding.EncodeToString(data)
	draft := h.Extract.FromImage(r.Context(), imageB64, mime)
	writeJSON(w, http.StatusOK, draft)
}

type chatRequest struct {
	History         []dialogue.Turn `json:"history"`
	LocationContext string          `json:"location_context"`
	Language        string          `json:"language"`
}

func (h *Handler) handleChatComplaint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.chatSchema.Validate(generic); err != nil {
		http.Error(w, "invalid chat request: "+err.Error(), http.StatusBadRequest)
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if req.Language == "" {
		req.Language = "en"
	}

	outcome := h.Dialogue.Step(r.Context(), req.History, req.LocationContext, req.Language)
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) ephemeralID() string {
	return "mock-" + uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
