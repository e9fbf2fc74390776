// Package recognizer models an optional streaming speech recognizer that
// produces interim and final text fragments while a recording is running.
package recognizer

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrEngine = errors.New("recognizer engine error")

type Fragment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Event carries either a fragment or a transient engine error.
type Event struct {
	Fragment *Fragment
	Err      error
}

// Stream is one recognition run. Events is closed when the run has fully
// stopped; FinalText is only meaningful after that.
type Stream interface {
	Events() <-chan Event
	Stop()
	FinalText() string
}

type Recognizer interface {
	Start(ctx context.Context) (Stream, error)
}

// Transcript accumulates fragments in arrival order. It is append-only.
type Transcript struct {
	mu        sync.Mutex
	fragments []Fragment
	final     strings.Builder
}

func (t *Transcript) Append(f Fragment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fragments = append(t.fragments, f)
	if f.Final {
		t.final.WriteString(f.Text)
	}
}

// FinalText is the concatenation of every final fragment seen so far.
func (t *Transcript) FinalText() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.final.String()
}

// Latest returns the most recent fragment's text, interim or final.
func (t *Transcript) Latest() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.fragments) == 0 {
		return ""
	}
	return t.fragments[len(t.fragments)-1].Text
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.fragments)
}
