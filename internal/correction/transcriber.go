package correction

import (
	"context"
	"log/slog"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/transcription"
)

type Lister interface {
	ListByUser(ctx context.Context, userID string) ([]Correction, error)
}

// Transcriber applies a user's corrections to the text returned by the
// wrapped transcriber.
type Transcriber struct {
	next   transcription.Transcriber
	store  Lister
	userID string
	log    *slog.Logger
}

func NewTranscriber(next transcription.Transcriber, store Lister, userID string, log *slog.Logger) *Transcriber {
	if log == nil {
		log = slog.Default()
	}
	return &Transcriber{
		next:   next,
		store:  store,
		userID: userID,
		log:    log.With("component", "correction"),
	}
}

func (t *Transcriber) Transcribe(ctx context.Context, artifact *audio.Artifact) (string, error) {
	text, err := t.next.Transcribe(ctx, artifact)
	if err != nil {
		return "", err
	}

	corrections, err := t.store.ListByUser(ctx, t.userID)
	if err != nil {
		t.log.Warn("failed to load corrections", "user_id", t.userID, "error", err)
		return text, nil
	}
	if len(corrections) == 0 {
		return text, nil
	}
	return Compile(corrections).Apply(text), nil
}
