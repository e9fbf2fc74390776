package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/eleven-am/voice-scribe/internal/inference"
)

func TestClient_Synthesize(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		contentType string
		status      int
		body        string
		wantType    string
		wantKind    inference.Kind
		wantCalls   int32
	}{
		{name: "wav", text: "hello", contentType: "audio/wav", status: http.StatusOK, body: "RIFF", wantType: "audio/wav", wantCalls: 1},
		{name: "default type", text: "hello", contentType: "application/octet-stream", status: http.StatusOK, body: "fLaC", wantType: "audio/flac", wantCalls: 1},
		{name: "json error body", text: "hello", contentType: "application/json", status: http.StatusOK, body: `{"error":"x"}`, wantKind: inference.KindUnexpectedResponseShape, wantCalls: 1},
		{name: "empty text", text: "", wantKind: inference.KindInvalidInput},
		{name: "whitespace text", text: "   ", wantKind: inference.KindInvalidInput},
		{name: "too long", text: strings.Repeat("a", MaxInputLength+1), wantKind: inference.KindInvalidInput},
		{name: "unavailable", text: "hello", status: http.StatusServiceUnavailable, body: "loading", wantKind: inference.KindEndpointUnavailable, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				var req request
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Inputs != tt.text {
					t.Errorf("unexpected request body: %+v %v", req, err)
				}
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(inference.New(inference.Config{Token: "token"}), Config{URL: srv.URL})
			artifact, err := c.Synthesize(context.Background(), tt.text)

			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, got)
			}
			if tt.wantKind != "" {
				if inference.KindOf(err) != tt.wantKind {
					t.Fatalf("expected %s, got %v", tt.wantKind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if artifact.MIMEType != tt.wantType {
				t.Errorf("expected %s, got %s", tt.wantType, artifact.MIMEType)
			}
			if !strings.HasPrefix(artifact.DataURI(), "data:"+tt.wantType+";base64,") {
				t.Errorf("unexpected data uri prefix: %s", artifact.DataURI())
			}
		})
	}
}

func TestClient_Synthesize_MissingCredentials(t *testing.T) {
	c := New(inference.New(inference.Config{}), Config{URL: "http://127.0.0.1:1"})
	_, err := c.Synthesize(context.Background(), "hello")
	if !errors.Is(err, inference.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}
