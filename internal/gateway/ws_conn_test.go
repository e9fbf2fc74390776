package gateway

import (
	"errors"
	"testing"

	"github.com/eleven-am/voice-scribe/internal/scribe"
	"github.com/gorilla/websocket"
)

func TestClientConnection_SendQueuesFrames(t *testing.T) {
	conn := NewClientConnection(nil, "user-1", testLogger())

	if err := conn.Send(&ServerMessage{Type: MsgState}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	conn.PlaybackStarted(scribe.SourceRecording, "audio/webm")
	if err := conn.PlaybackChunk([]byte("abc")); err != nil {
		t.Fatalf("PlaybackChunk: %v", err)
	}

	tests := []struct {
		messageType int
		data        string
	}{
		{websocket.TextMessage, `{"type":"state"}`},
		{websocket.TextMessage, `{"type":"playback_start","source":"recording","mime_type":"audio/webm"}`},
		{websocket.BinaryMessage, "abc"},
	}
	for _, tt := range tests {
		f := <-conn.send
		if f.messageType != tt.messageType || string(f.data) != tt.data {
			t.Errorf("expected %d %s, got %d %s", tt.messageType, tt.data, f.messageType, f.data)
		}
	}
}

func TestClientConnection_Close(t *testing.T) {
	conn := NewClientConnection(nil, "user-1", testLogger())

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	select {
	case <-conn.Done():
	default:
		t.Fatal("done should be closed")
	}
	if err := conn.Send(&ServerMessage{Type: MsgState}); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
	if err := conn.SendBinary([]byte("x")); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}
