package recognizer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultGrace    = 2 * time.Second
	eventBufferSize = 256
)

// Relay is a Recognizer whose results are produced elsewhere (a browser's
// native recognizer) and pushed in by the transport. After Stop, a stream
// completes when the producer calls End or the grace period elapses.
type Relay struct {
	grace time.Duration

	mu     sync.Mutex
	active *relayStream
}

func NewRelay(grace time.Duration) *Relay {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Relay{grace: grace}
}

func (r *Relay) Start(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &relayStream{
		grace:  r.grace,
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	prev := r.active
	r.active = s
	r.mu.Unlock()

	if prev != nil {
		prev.finish()
	}

	go func() {
		select {
		case <-ctx.Done():
			s.finish()
		case <-s.done:
		}
	}()

	return s, nil
}

// Push forwards a fragment to the running stream, if any.
func (r *Relay) Push(f Fragment) {
	if s := r.current(); s != nil {
		s.push(Event{Fragment: &f})
	}
}

func (r *Relay) Fail(message string) {
	if s := r.current(); s != nil {
		s.push(Event{Err: fmt.Errorf("%w: %s", ErrEngine, message)})
	}
}

// End reports that the producer's recognizer has stopped on its own.
func (r *Relay) End() {
	if s := r.current(); s != nil {
		s.finish()
	}
}

func (r *Relay) current() *relayStream {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

type relayStream struct {
	grace      time.Duration
	events     chan Event
	done       chan struct{}
	transcript Transcript

	mu       sync.Mutex
	stopping bool
	finished bool
	timer    *time.Timer
}

func (s *relayStream) Events() <-chan Event {
	return s.events
}

func (s *relayStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.stopping {
		return
	}
	s.stopping = true
	s.timer = time.AfterFunc(s.grace, s.finish)
}

func (s *relayStream) FinalText() string {
	return s.transcript.FinalText()
}

func (s *relayStream) push(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	if ev.Fragment != nil {
		s.transcript.Append(*ev.Fragment)
	}
	select {
	case s.events <- ev:
	default:
	}
}

func (s *relayStream) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.events)
	close(s.done)
}
