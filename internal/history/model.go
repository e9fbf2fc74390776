package history

import (
	"time"

	"github.com/eleven-am/voice-scribe/internal/scribe"
)

// Record is a finished session kept for the user to revisit. Audio bytes
// are not stored.
type Record struct {
	ID               string            `json:"id"`
	UserID           string            `json:"-"`
	State            scribe.State      `json:"state"`
	LocalText        string            `json:"local_text,omitempty"`
	RemoteText       *string           `json:"remote_text,omitempty"`
	ImprovedText     *string           `json:"improved_text,omitempty"`
	DisplayText      string            `json:"display_text"`
	Audio            *scribe.AudioInfo `json:"audio,omitempty"`
	SynthesizedAudio *scribe.AudioInfo `json:"synthesized_audio,omitempty"`
	Error            *scribe.Failure   `json:"error,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (r *Record) RedisKey() string {
	return recordKey(r.UserID, r.ID)
}

func recordKey(userID, id string) string {
	return "history:" + userID + ":" + id
}

func indexKey(userID string) string {
	return "history:" + userID
}

// Worth reports whether a snapshot is a finished session worth keeping.
func Worth(snap scribe.Snapshot) bool {
	switch snap.State {
	case scribe.StateReady, scribe.StateFailed:
		return snap.Audio != nil
	default:
		return false
	}
}

func FromSnapshot(userID string, snap scribe.Snapshot) *Record {
	return &Record{
		ID:               snap.SessionID,
		UserID:           userID,
		State:            snap.State,
		LocalText:        snap.LocalFinalText,
		RemoteText:       snap.RemoteText,
		ImprovedText:     snap.ImprovedText,
		DisplayText:      snap.DisplayText,
		Audio:            snap.Audio,
		SynthesizedAudio: snap.SynthesizedAudio,
		Error:            snap.Error,
		StartedAt:        snap.StartedAt,
		UpdatedAt:        snap.UpdatedAt,
	}
}

type ListResponse struct {
	Records []*Record `json:"records"`
}
