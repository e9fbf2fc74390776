package scribe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/voice-scribe/internal/audio"
)

const (
	DefaultPlaybackChunk    = 32 * 1024
	DefaultPlaybackInterval = 20 * time.Millisecond
)

// Sink receives playback output, typically a client connection.
type Sink interface {
	PlaybackStarted(source Source, mimeType string)
	PlaybackChunk(data []byte) error
	PlaybackEnded(source Source, interrupted bool)
}

// Player streams one artifact at a time to a Sink. Starting a new playback
// interrupts the current one.
type Player struct {
	sink     Sink
	log      *slog.Logger
	chunk    int
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	playing bool
}

func NewPlayer(sink Sink, log *slog.Logger) *Player {
	if log == nil {
		log = slog.Default()
	}
	return &Player{
		sink:     sink,
		log:      log.With("component", "player"),
		chunk:    DefaultPlaybackChunk,
		interval: DefaultPlaybackInterval,
	}
}

func (p *Player) WithPacing(chunk int, interval time.Duration) *Player {
	if chunk > 0 {
		p.chunk = chunk
	}
	p.interval = interval
	return p
}

func (p *Player) Play(ctx context.Context, source Source, artifact *audio.Artifact) {
	p.Stop()

	p.mu.Lock()
	playCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.playing = true
	p.mu.Unlock()

	go p.stream(playCtx, done, source, artifact)
}

func (p *Player) stream(ctx context.Context, done chan struct{}, source Source, artifact *audio.Artifact) {
	defer close(done)

	p.sink.PlaybackStarted(source, artifact.MIMEType)
	interrupted := false

	data := artifact.Data
	for off := 0; off < len(data); off += p.chunk {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		end := min(off+p.chunk, len(data))
		if err := p.sink.PlaybackChunk(data[off:end]); err != nil {
			p.log.Debug("playback write failed", "error", err)
			interrupted = true
			break
		}
		if p.interval > 0 && end < len(data) {
			select {
			case <-time.After(p.interval):
			case <-ctx.Done():
			}
		}
	}

	p.mu.Lock()
	if p.done == done {
		p.playing = false
	}
	p.mu.Unlock()

	p.sink.PlaybackEnded(source, interrupted)
}

// Stop interrupts the current playback and waits for it to end.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.playing = false
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}
