package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/recognizer"
	"github.com/eleven-am/voice-scribe/internal/scribe"
	"github.com/gorilla/websocket"
)

// clientSession routes one connection's frames to its controller.
type clientSession struct {
	conn   *ClientConnection
	ctrl   *scribe.Controller
	relay  *recognizer.Relay
	player *scribe.Player
	logger *slog.Logger
}

func (s *clientSession) handle(ctx context.Context, messageType int, data []byte) {
	if messageType == websocket.BinaryMessage {
		if err := s.ctrl.WriteAudio(ctx, data); err != nil {
			s.reject(err)
		}
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Debug("invalid client message", "error", err)
		_ = s.conn.Send(&ServerMessage{Type: MsgError, Code: "invalid_message", Message: "message must be a JSON object"})
		return
	}

	if err := s.dispatch(ctx, &msg); err != nil {
		s.reject(err)
	}
}

func (s *clientSession) dispatch(ctx context.Context, msg *ClientMessage) error {
	switch msg.Type {
	case MsgStart:
		permission := msg.Permission
		if permission == "" {
			permission = audio.PermissionGranted
		}
		s.player.Stop()
		return s.ctrl.Start(ctx, audio.CaptureRequest{MIMEType: msg.MIMEType, Permission: permission})
	case MsgStop:
		return s.ctrl.Stop(ctx)
	case MsgTranscribe:
		return s.ctrl.Transcribe(ctx)
	case MsgImprove:
		return s.ctrl.Improve(ctx)
	case MsgSynthesize:
		return s.ctrl.Synthesize(ctx)
	case MsgRetry:
		return s.ctrl.Retry(ctx)
	case MsgReset:
		s.player.Stop()
		return s.ctrl.Reset(ctx)
	case MsgFragment:
		s.relay.Push(recognizer.Fragment{Text: msg.Text, Final: msg.Final})
		return nil
	case MsgRecognizerError:
		s.relay.Fail(msg.Message)
		return nil
	case MsgRecognizerEnd:
		s.relay.End()
		return nil
	case MsgPlay:
		artifact, err := s.ctrl.Artifact(ctx, msg.Source)
		if err != nil {
			return err
		}
		s.player.Play(ctx, msg.Source, artifact)
		return nil
	case MsgStopPlayback:
		s.player.Stop()
		return nil
	case MsgGetAudio:
		artifact, err := s.ctrl.Artifact(ctx, msg.Source)
		if err != nil {
			return err
		}
		return s.conn.Send(&ServerMessage{
			Type:     MsgAudio,
			Source:   msg.Source,
			MIMEType: artifact.MIMEType,
			DataURI:  artifact.DataURI(),
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func (s *clientSession) reject(err error) {
	s.logger.Debug("command rejected", "error", err)
	_ = s.conn.Send(errorMessage(err))
}
