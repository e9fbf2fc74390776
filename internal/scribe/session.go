package scribe

import (
	"strings"
	"time"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/inference"
	"github.com/eleven-am/voice-scribe/internal/recognizer"
	"github.com/google/uuid"
)

type State string

const (
	StateIdle             State = "idle"
	StateRecording        State = "recording"
	StateFinalizing       State = "finalizing"
	StateRemoteProcessing State = "remote_processing"
	StateImproving        State = "improving"
	StateSynthesizing     State = "synthesizing"
	StateReady            State = "ready"
	StateFailed           State = "failed"
)

// Mode selects what happens once a recording has been finalized.
type Mode string

const (
	// ModeAuto transcribes remotely as soon as the audio is ready.
	ModeAuto Mode = "auto"
	// ModeManual stops in Ready and waits for an explicit Transcribe.
	ModeManual Mode = "manual"
)

func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeManual)) {
		return ModeManual
	}
	return ModeAuto
}

type Operation string

const (
	OpTranscribe Operation = "transcribe"
	OpImprove    Operation = "improve"
	OpSynthesize Operation = "synthesize"
)

func (o Operation) state() State {
	switch o {
	case OpImprove:
		return StateImproving
	case OpSynthesize:
		return StateSynthesizing
	default:
		return StateRemoteProcessing
	}
}

type Source string

const (
	SourceRecording   Source = "recording"
	SourceSynthesized Source = "synthesized"
)

type Failure struct {
	Operation Operation      `json:"operation"`
	Kind      inference.Kind `json:"kind"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
}

func newFailure(op Operation, err error) *Failure {
	return &Failure{
		Operation: op,
		Kind:      inference.KindOf(err),
		Message:   err.Error(),
		Retryable: inference.Retryable(err),
	}
}

// Notice explains why a recording was abandoned and the session went back
// to Idle.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is one recording-to-result cycle. It is owned by the controller
// loop and never shared; consumers see Snapshots.
type Session struct {
	ID                 string
	State              State
	LocalPartial       []recognizer.Fragment
	LocalFinalText     string
	Audio              *audio.Artifact
	RemoteText         *string
	ImprovedText       *string
	Synthesized        *audio.Artifact
	Err                *Failure
	Notice             *Notice
	RecognizerDegraded bool
	StartedAt          time.Time
	UpdatedAt          time.Time
}

func newSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		State:     StateIdle,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// originalText is the best transcription available before any improvement.
func (s *Session) originalText() string {
	if s.RemoteText != nil {
		return *s.RemoteText
	}
	return s.LocalFinalText
}

// DisplayText prefers the improved text, then the remote text, then the
// local recognizer's final text.
func (s *Session) DisplayText() string {
	if s.ImprovedText != nil {
		return *s.ImprovedText
	}
	return s.originalText()
}

func (s *Session) partialText() string {
	var b strings.Builder
	for _, f := range s.LocalPartial {
		if f.Final {
			b.WriteString(f.Text)
		}
	}
	if n := len(s.LocalPartial); n > 0 && !s.LocalPartial[n-1].Final {
		b.WriteString(s.LocalPartial[n-1].Text)
	}
	return b.String()
}

type AudioInfo struct {
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

func audioInfo(a *audio.Artifact) *AudioInfo {
	if a == nil {
		return nil
	}
	return &AudioInfo{MIMEType: a.MIMEType, Size: len(a.Data)}
}

type Snapshot struct {
	SessionID          string     `json:"session_id"`
	State              State      `json:"state"`
	LocalPartialText   string     `json:"local_partial_text,omitempty"`
	LocalFinalText     string     `json:"local_final_text,omitempty"`
	RemoteText         *string    `json:"remote_text,omitempty"`
	ImprovedText       *string    `json:"improved_text,omitempty"`
	DisplayText        string     `json:"display_text,omitempty"`
	Audio              *AudioInfo `json:"audio,omitempty"`
	SynthesizedAudio   *AudioInfo `json:"synthesized_audio,omitempty"`
	Error              *Failure   `json:"error,omitempty"`
	Notice             *Notice    `json:"notice,omitempty"`
	RecognizerDegraded bool       `json:"recognizer_degraded,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		SessionID:          s.ID,
		State:              s.State,
		LocalPartialText:   s.partialText(),
		LocalFinalText:     s.LocalFinalText,
		RemoteText:         s.RemoteText,
		ImprovedText:       s.ImprovedText,
		DisplayText:        s.DisplayText(),
		Audio:              audioInfo(s.Audio),
		SynthesizedAudio:   audioInfo(s.Synthesized),
		Notice:             s.Notice,
		RecognizerDegraded: s.RecognizerDegraded,
		StartedAt:          s.StartedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	if s.State == StateFailed {
		snap.Error = s.Err
	}
	return snap
}
