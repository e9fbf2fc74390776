package gateway

import (
	"errors"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/inference"
	"github.com/eleven-am/voice-scribe/internal/scribe"
	"github.com/eleven-am/voice-scribe/internal/shared"
)

var ErrUnknownMessage = errors.New("unknown message type")

// Client → server message types.
const (
	MsgStart           = "start"
	MsgStop            = "stop"
	MsgTranscribe      = "transcribe"
	MsgImprove         = "improve"
	MsgSynthesize      = "synthesize"
	MsgRetry           = "retry"
	MsgReset           = "reset"
	MsgFragment        = "fragment"
	MsgRecognizerError = "recognizer_error"
	MsgRecognizerEnd   = "recognizer_end"
	MsgPlay            = "play"
	MsgStopPlayback    = "stop_playback"
	MsgGetAudio        = "get_audio"
)

// Server → client message types.
const (
	MsgState         = "state"
	MsgError         = "error"
	MsgAudio         = "audio"
	MsgPlaybackStart = "playback_start"
	MsgPlaybackEnd   = "playback_end"
)

type ClientMessage struct {
	Type       string           `json:"type"`
	MIMEType   string           `json:"mime_type,omitempty"`
	Permission audio.Permission `json:"permission,omitempty"`
	Text       string           `json:"text,omitempty"`
	Final      bool             `json:"final,omitempty"`
	Message    string           `json:"message,omitempty"`
	Source     scribe.Source    `json:"source,omitempty"`
}

type ServerMessage struct {
	Type        string           `json:"type"`
	Session     *scribe.Snapshot `json:"session,omitempty"`
	Code        string           `json:"code,omitempty"`
	Message     string           `json:"message,omitempty"`
	Source      scribe.Source    `json:"source,omitempty"`
	MIMEType    string           `json:"mime_type,omitempty"`
	DataURI     string           `json:"data_uri,omitempty"`
	Interrupted bool             `json:"interrupted,omitempty"`
}

func stateMessage(snap scribe.Snapshot) *ServerMessage {
	return &ServerMessage{Type: MsgState, Session: &snap}
}

func errorMessage(err error) *ServerMessage {
	return &ServerMessage{Type: MsgError, Code: errorCode(err), Message: err.Error()}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, audio.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, audio.ErrRecordingTooLarge):
		return "recording_too_large"
	case errors.Is(err, audio.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, scribe.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, scribe.ErrNoAudio):
		return "no_audio"
	case errors.Is(err, scribe.ErrClosed):
		return "closed"
	case errors.Is(err, ErrUnknownMessage):
		return "unknown_message"
	}
	if kind := inference.KindOf(err); kind != inference.KindUnknown {
		return string(kind)
	}
	if code := shared.CodeOf(err); code != "" {
		return code
	}
	return "internal_error"
}
