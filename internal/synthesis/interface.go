package synthesis

import (
	"context"

	"github.com/eleven-am/voice-scribe/internal/audio"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*audio.Artifact, error)
}
