package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type fakeTranscriber struct {
	text string
	err  error
	name string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, filename string, audio io.Reader) (string, error) {
	f.name = filename
	_, _ = io.ReadAll(audio)
	return f.text, f.err
}

func audioRequest(t *testing.T, field string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile(field, "note.webm")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("audio"))
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe-audio", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestHandler_TranscribeAudio(t *testing.T) {
	ft := &fakeTranscriber{text: "fever since monday"}
	h := NewHandler(ft, zerolog.Nop())

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(audioRequest(t, "file"), rec)
	if err := h.TranscribeAudio(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["transcript"] != "fever since monday" {
		t.Errorf("unexpected transcript %q", body["transcript"])
	}
	if ft.name != "note.webm" {
		t.Errorf("expected filename note.webm, got %q", ft.name)
	}
}

func TestHandler_TranscribeAudioMissingFile(t *testing.T) {
	h := NewHandler(&fakeTranscriber{}, zerolog.Nop())
	e := echo.New()
	c := e.NewContext(audioRequest(t, "other"), httptest.NewRecorder())

	err := h.TranscribeAudio(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_TranscribeAudioFailure(t *testing.T) {
	h := NewHandler(&fakeTranscriber{err: errors.New("quota")}, zerolog.Nop())
	e := echo.New()
	c := e.NewContext(audioRequest(t, "file"), httptest.NewRecorder())

	err := h.TranscribeAudio(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func TestHandler_TranscribeAudioNotConfigured(t *testing.T) {
	h := NewHandler(nil, zerolog.Nop())
	e := echo.New()
	c := e.NewContext(audioRequest(t, "file"), httptest.NewRecorder())

	err := h.TranscribeAudio(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
}
