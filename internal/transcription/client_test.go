package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/inference"
)

func newTestClient(token, url string) *Client {
	return New(inference.New(inference.Config{Token: token}), Config{TranscribeURL: url, ImproveURL: url})
}

func TestClient_Transcribe(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     string
		wantKind inference.Kind
		contains []string
	}{
		{name: "text field", status: http.StatusOK, body: `{"text": "hi there"}`, want: "hi there"},
		{name: "generated_text field", status: http.StatusOK, body: `{"generated_text": "hi there"}`, want: "hi there"},
		{name: "array wrapped", status: http.StatusOK, body: `[{"generated_text": "hi there"}]`, want: "hi there"},
		{name: "empty text is valid", status: http.StatusOK, body: `{"text": ""}`, want: ""},
		{name: "missing field", status: http.StatusOK, body: `{"label": "x"}`, wantKind: inference.KindUnexpectedResponseShape},
		{name: "array of two", status: http.StatusOK, body: `[{"text":"a"},{"text":"b"}]`, wantKind: inference.KindUnexpectedResponseShape},
		{name: "not json", status: http.StatusOK, body: `hello`, wantKind: inference.KindUnexpectedResponseShape},
		{name: "server error", status: http.StatusInternalServerError, body: "overloaded", wantKind: inference.KindEndpointUnavailable, contains: []string{"500", "overloaded"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Content-Type"); got != "audio/webm" {
					t.Errorf("expected audio/webm content type, got %q", got)
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != "audio-bytes" {
					t.Errorf("expected raw audio body, got %q", body)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient("token", srv.URL)
			got, err := c.Transcribe(context.Background(), audio.NewArtifact([]byte("audio-bytes"), "audio/webm;codecs=opus"))

			if tt.wantKind != "" {
				if inference.KindOf(err) != tt.wantKind {
					t.Fatalf("expected %s, got %v", tt.wantKind, err)
				}
				for _, s := range tt.contains {
					if !strings.Contains(err.Error(), s) {
						t.Errorf("expected %q in %q", s, err.Error())
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Transcribe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_Transcribe_MissingCredentials(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	_, err := c.Transcribe(context.Background(), audio.NewArtifact([]byte("a"), "audio/webm"))
	if !errors.Is(err, inference.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no HTTP calls, got %d", calls)
	}
}

func TestClient_Transcribe_EmptyArtifact(t *testing.T) {
	c := newTestClient("token", "http://127.0.0.1:1")
	if _, err := c.Transcribe(context.Background(), nil); !errors.Is(err, inference.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClient_Improve(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     string
		wantKind inference.Kind
	}{
		{name: "success", body: `{"improvedTranscription": "hello world"}`, want: "hello world"},
		{name: "missing field", body: `{"text": "hello"}`, wantKind: inference.KindUnexpectedResponseShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req improveRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("bad request body: %v", err)
					return
				}
				if req.AudioDataURI != "data:audio/ogg;base64,YWJj" {
					t.Errorf("unexpected data uri %q", req.AudioDataURI)
				}
				if req.OriginalTranscription != "helo world" {
					t.Errorf("unexpected original %q", req.OriginalTranscription)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient("token", srv.URL)
			got, err := c.Improve(context.Background(), audio.NewArtifact([]byte("abc"), "audio/ogg"), "helo world")
			if tt.wantKind != "" {
				if inference.KindOf(err) != tt.wantKind {
					t.Fatalf("expected %s, got %v", tt.wantKind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Improve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_Improve_EndpointNotConfigured(t *testing.T) {
	c := New(inference.New(inference.Config{Token: "token"}), Config{})
	_, err := c.Improve(context.Background(), audio.NewArtifact([]byte("abc"), "audio/ogg"), "x")
	if !errors.Is(err, inference.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}
