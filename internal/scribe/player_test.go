package scribe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/voice-scribe/internal/audio"
)

type recordingSink struct {
	mu          sync.Mutex
	started     []Source
	chunks      [][]byte
	interrupted []bool
	ended       chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ended: make(chan struct{}, 4)}
}

func (s *recordingSink) PlaybackStarted(source Source, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, source)
}

func (s *recordingSink) PlaybackChunk(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, append([]byte(nil), data...))
	return nil
}

func (s *recordingSink) PlaybackEnded(_ Source, interrupted bool) {
	s.mu.Lock()
	s.interrupted = append(s.interrupted, interrupted)
	s.mu.Unlock()
	s.ended <- struct{}{}
}

func TestPlayer_StreamsInChunks(t *testing.T) {
	sink := newRecordingSink()
	p := NewPlayer(sink, testLogger()).WithPacing(4, 0)

	p.Play(context.Background(), SourceRecording, audio.NewArtifact([]byte("0123456789"), "audio/webm"))

	select {
	case <-sink.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("playback never ended")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(sink.chunks))
	}
	if string(sink.chunks[2]) != "89" {
		t.Errorf("unexpected last chunk %q", sink.chunks[2])
	}
	if sink.interrupted[0] {
		t.Error("complete playback should not be interrupted")
	}
	if len(sink.started) != 1 || sink.started[0] != SourceRecording {
		t.Errorf("unexpected started sources %v", sink.started)
	}
	if p.Playing() {
		t.Error("player should be idle after playback")
	}
}

func TestPlayer_StopInterrupts(t *testing.T) {
	sink := newRecordingSink()
	p := NewPlayer(sink, testLogger()).WithPacing(1, time.Second)

	p.Play(context.Background(), SourceSynthesized, audio.NewArtifact([]byte("abcdef"), "audio/flac"))
	if !p.Playing() {
		t.Fatal("player should be playing")
	}
	p.Stop()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.interrupted) != 1 || !sink.interrupted[0] {
		t.Errorf("expected one interrupted playback, got %v", sink.interrupted)
	}
	if len(sink.chunks) >= 6 {
		t.Errorf("stop should cut playback short, got %d chunks", len(sink.chunks))
	}
	if p.Playing() {
		t.Error("player should be idle after stop")
	}
}

func TestPlayer_PlayReplacesCurrent(t *testing.T) {
	sink := newRecordingSink()
	p := NewPlayer(sink, testLogger()).WithPacing(1, time.Second)

	p.Play(context.Background(), SourceRecording, audio.NewArtifact([]byte("aaaa"), "audio/webm"))
	p.Play(context.Background(), SourceSynthesized, audio.NewArtifact([]byte("b"), "audio/flac"))

	for range 2 {
		select {
		case <-sink.ended:
		case <-time.After(2 * time.Second):
			t.Fatal("playback never ended")
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.started) != 2 || sink.started[1] != SourceSynthesized {
		t.Errorf("unexpected started sources %v", sink.started)
	}
	if !sink.interrupted[0] || sink.interrupted[1] {
		t.Errorf("expected first interrupted and second complete, got %v", sink.interrupted)
	}
}
