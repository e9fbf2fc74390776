package scribe

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/inference"
	"github.com/eleven-am/voice-scribe/internal/recognizer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type result struct {
	text string
	err  error
}

// fakeTranscriber answers from results in order, repeating the last one.
// With a gate set, each call blocks until the gate is closed; calls ignore
// ctx so results can arrive after their session is gone.
type fakeTranscriber struct {
	mu       sync.Mutex
	results  []result
	calls    int
	inputs   []*audio.Artifact
	gate     chan struct{}
	returned chan struct{}
}

func newFakeTranscriber(results ...result) *fakeTranscriber {
	return &fakeTranscriber{results: results, returned: make(chan struct{}, 16)}
}

func (f *fakeTranscriber) next() (result, chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := min(f.calls, len(f.results)-1)
	f.calls++
	return f.results[idx], f.gate
}

func (f *fakeTranscriber) Transcribe(_ context.Context, a *audio.Artifact) (string, error) {
	res, gate := f.next()
	f.mu.Lock()
	f.inputs = append(f.inputs, a)
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.returned <- struct{}{}
	return res.text, res.err
}

func (f *fakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeImprover struct {
	mu       sync.Mutex
	text     string
	err      error
	original string
}

func (f *fakeImprover) Improve(_ context.Context, _ *audio.Artifact, original string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.original = original
	return f.text, f.err
}

type fakeSynthesizer struct {
	mu    sync.Mutex
	input string
	err   error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string) (*audio.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = text
	if f.err != nil {
		return nil, f.err
	}
	return audio.NewArtifact([]byte("fLaC-audio"), "audio/flac"), nil
}

// gatedCapture wraps a Microphone and holds each Stop until release is
// called.
type gatedCapture struct {
	mic  *audio.Microphone
	gate chan struct{}
}

func newGatedCapture() *gatedCapture {
	return &gatedCapture{mic: audio.NewMicrophone(0), gate: make(chan struct{})}
}

func (g *gatedCapture) Start(ctx context.Context, req audio.CaptureRequest) (audio.Recording, error) {
	rec, err := g.mic.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return &gatedRecording{Recording: rec, gate: g.gate}, nil
}

func (g *gatedCapture) release() { close(g.gate) }

type gatedRecording struct {
	audio.Recording
	gate chan struct{}
}

func (r *gatedRecording) Stop() (*audio.Artifact, error) {
	<-r.gate
	return r.Recording.Stop()
}

type failingRecognizer struct{ err error }

func (f failingRecognizer) Start(context.Context) (recognizer.Stream, error) {
	return nil, f.err
}

func overloaded() error {
	return &inference.Error{
		Op:         "transcribe",
		Kind:       inference.ErrEndpointUnavailable,
		StatusCode: 500,
		Body:       "overloaded",
	}
}

func waitFor(t *testing.T, c *Controller, desc string, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := c.Current()
		if pred(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap := c.Current()
	t.Fatalf("timed out waiting for %s; state=%s", desc, snap.State)
	return snap
}

func waitState(t *testing.T, c *Controller, state State) Snapshot {
	t.Helper()
	return waitFor(t, c, string(state), func(s Snapshot) bool { return s.State == state })
}

func waitReturned(t *testing.T, f *fakeTranscriber) {
	t.Helper()
	select {
	case <-f.returned:
	case <-time.After(2 * time.Second):
		t.Fatal("transcriber never returned")
	}
}
