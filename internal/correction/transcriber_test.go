package correction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/eleven-am/voice-scribe/internal/audio"
)

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(context.Context, *audio.Artifact) (string, error) {
	return s.text, s.err
}

type stubLister struct {
	corrections []Correction
	err         error
	userID      string
}

func (s *stubLister) ListByUser(_ context.Context, userID string) ([]Correction, error) {
	s.userID = userID
	return s.corrections, s.err
}

func TestTranscriber(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules := []Correction{{Incorrect: "wader", Correct: "water"}}

	tests := []struct {
		name    string
		next    stubTranscriber
		lister  *stubLister
		want    string
		wantErr bool
	}{
		{
			name:   "applies corrections",
			next:   stubTranscriber{text: "more wader please"},
			lister: &stubLister{corrections: rules},
			want:   "more water please",
		},
		{
			name:   "store failure keeps text",
			next:   stubTranscriber{text: "more wader please"},
			lister: &stubLister{err: errors.New("db down")},
			want:   "more wader please",
		},
		{
			name:    "transcriber error passes through",
			next:    stubTranscriber{err: errors.New("boom")},
			lister:  &stubLister{corrections: rules},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranscriber(tt.next, tt.lister, "user-1", discard)
			got, err := tr.Transcribe(context.Background(), audio.NewArtifact([]byte("x"), "audio/webm"))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if tt.lister.userID != "user-1" {
				t.Errorf("expected lookup for user-1, got %q", tt.lister.userID)
			}
		})
	}
}
