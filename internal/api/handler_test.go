package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"civicconnect/internal/blob"
	"civicconnect/internal/config"
	"civicconnect/internal/dialogue"
	"civicconnect/internal/extract"
	"civicconnect/internal/llm"
	"civicconnect/internal/transcribe"
)

type fakeClient struct {
	reply string
	err   error
}

func (f *fakeClient) Invoke(_ context.Context, _ []llm.Message, _ llm.Options) (string, error) {
	return f.reply, f.err
}

func newTestHandler(client llm.Client) *Handler {
	cfg := config.Default()
	svc := extract.NewService(client, nil)
	driver := dialogue.NewDriver(client, nil)
	return NewHandler(cfg, nil, nil, blob.New("", "", nil), transcribe.NewStub(), svc, driver, nil)
}

func TestChatComplaintContinue(t *testing.T) {
	h := newTestHandler(&fakeClient{reply: "Which street is the pothole on?"})
	body := `{"history":[{"role":"user","content":"There is a pothole"}],"location_context":"MG Road","language":"en"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/complaint", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.handleChatComplaint(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ResponseText string          `json:"response_text"`
		IsComplete   bool            `json:"is_complete"`
		Extracted    json.RawMessage `json:"extracted_data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.IsComplete {
		t.Fatalf("expected continuation")
	}
	if resp.ResponseText != "Which street is the pothole on?" {
		t.Fatalf("unexpected reply: %q", resp.ResponseText)
	}
	if string(resp.Extracted) != "null" {
		t.Fatalf("expected null extracted_data, got %s", resp.Extracted)
	}
}

func TestChatComplaintComplete(t *testing.T) {
	h := newTestHandler(&fakeClient{reply: `Thanks! [COMPLETE] {"category":"Road","title":"Pothole","description":"Big","priority":"high"}`})
	body := `{"history":[{"role":"user","content":"pothole"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/complaint", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.handleChatComplaint(rec, req)

	var resp struct {
		ResponseText string          `json:"response_text"`
		IsComplete   bool            `json:"is_complete"`
		Extracted    *dialogue.Draft `json:"extracted_data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.IsComplete || resp.Extracted == nil {
		t.Fatalf("expected completed outcome with draft: %s", rec.Body.String())
	}
	if resp.Extracted.Category != "road" {
		t.Fatalf("expected lower-cased category, got %q", resp.Extracted.Category)
	}
}

func TestChatComplaintRejectsBadPayload(t *testing.T) {
	h := newTestHandler(&fakeClient{reply: "unused"})
	cases := []string{
		`{"location_context":"MG Road"}`,
		`{"history":[{"role":"robot","content":"hi"}]}`,
		`{"history":"not an array"}`,
		`not json at all`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/complaint", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.handleChatComplaint(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, rec.Code)
		}
	}
}

func TestChatComplaintGatewayFailureDegrades(t *testing.T) {
	h := newTestHandler(&fakeClient{err: errors.New("no route to host")})
	body := `{"history":[{"role":"user","content":"hello"}],"language":"en"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/complaint", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.handleChatComplaint(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected degraded 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "trouble connecting") {
		t.Fatalf("expected apology, got %s", rec.Body.String())
	}
}

func TestAnalyzeImageRejectsNonImage(t *testing.T) {
	h := newTestHandler(&fakeClient{reply: "unused"})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "notes.txt")
	_, _ = fw.Write([]byte("just some text"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.handleAnalyzeImage(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-image payload, got %d", rec.Code)
	}
}

func TestAnalyzeImageReturnsDraft(t *testing.T) {
	h := newTestHandler(&fakeClient{reply: `{"category":"Streetlight","title":"Broken lamp","description":"Lamp post down","priority":"high"}`})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "photo.png")
	_, _ = fw.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a})
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.handleAnalyzeImage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var draft extract.ImageDraft
	if err := json.Unmarshal(rec.Body.Bytes(), &draft); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if draft.Category != "streetlight" {
		t.Fatalf("expected lower-cased category, got %q", draft.Category)
	}
}

func TestVoiceComplaintWithoutBackends(t *testing.T) {
	h := newTestHandler(&fakeClient{err: llm.ErrNoCredential})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("audio_file", "complaint.webm")
	_, _ = fw.Write([]byte("fake-audio"))
	_ = mw.WriteField("language", "en")
	_ = mw.WriteField("latitude", "17.385")
	_ = mw.WriteField("longitude", "78.4867")
	_ = mw.WriteField("userId", "user-1")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/complaints/voice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.handleVoiceComplaint(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var resp voiceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("expected success status, got %q", resp.Status)
	}
	if !strings.HasPrefix(resp.ComplaintID, "mock-") {
		t.Fatalf("expected ephemeral complaint id, got %q", resp.ComplaintID)
	}
	if resp.Data["category"] != "others" || resp.Data["priority"] != "medium" {
		t.Fatalf("expected fallback draft in record, got %+v", resp.Data)
	}
	audioURL, _ := resp.Data["audioUrl"].(string)
	if !strings.HasPrefix(audioURL, "https://mock-r2-storage.com/") {
		t.Fatalf("expected placeholder audio url, got %q", audioURL)
	}
}

func TestVoiceComplaintValidation(t *testing.T) {
	h := newTestHandler(&fakeClient{reply: "unused"})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("audio_file", "complaint.webm")
	_, _ = fw.Write([]byte("fake-audio"))
	_ = mw.WriteField("language", "en")
	_ = mw.WriteField("latitude", "not-a-number")
	_ = mw.WriteField("longitude", "78.4867")
	_ = mw.WriteField("userId", "user-1")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/complaints/voice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.handleVoiceComplaint(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad latitude, got %d", rec.Code)
	}
}

func TestListComplaintsValidation(t *testing.T) {
	h := newTestHandler(&fakeClient{reply: "unused"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/complaints?userId=user-1", nil)
	rec := httptest.NewRecorder()
	h.handleListComplaints(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/complaints", nil)
	rec = httptest.NewRecorder()
	h.handleListComplaints(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without userId, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/complaints?userId=user-1&limit=oops", nil)
	rec = httptest.NewRecorder()
	h.handleListComplaints(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestListComplaintsWithoutStore(t *testing.T) {
	h := newTestHandler(&fakeClient{reply: "unused"})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/complaints?userId=user-1", nil)
	rec := httptest.NewRecorder()
	h.handleListComplaints(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a store, got %d", rec.Code)
	}
}

func TestCORSRestrictedOrigins(t *testing.T) {
	cfg := config.Default()
	cfg.CORS.AllowOrigins = []string{"https://app.example.com", "https://admin.example.com"}
	client := &fakeClient{reply: "unused"}
	h := NewHandler(cfg, nil, nil, blob.New("", "", nil), transcribe.NewStub(),
		extract.NewService(client, nil), dialogue.NewDriver(client, nil), nil)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat/complaint", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Fatalf("expected matching origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/chat/complaint", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin header on mismatch, got %q", got)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected preflight to still answer 204, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(&fakeClient{reply: "unused"})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat/complaint", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin header")
	}
}
