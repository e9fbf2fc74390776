package transcription

import (
	"context"

	"github.com/eleven-am/voice-scribe/internal/audio"
)

type Transcriber interface {
	Transcribe(ctx context.Context, artifact *audio.Artifact) (string, error)
}

type Improver interface {
	Improve(ctx context.Context, artifact *audio.Artifact, original string) (string, error)
}
