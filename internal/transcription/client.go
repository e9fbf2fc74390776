package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/inference"
)

const (
	opTranscribe = "transcribe"
	opImprove    = "improve"
)

// Client calls remote speech-to-text and transcription-refinement endpoints.
// Transcribe sends the artifact bytes as the raw request body with the
// artifact's MIME type as Content-Type.
type Client struct {
	api *inference.Client
	cfg Config
}

func New(api *inference.Client, cfg Config) *Client {
	return &Client{api: api, cfg: cfg}
}

func (c *Client) Transcribe(ctx context.Context, artifact *audio.Artifact) (string, error) {
	if artifact == nil || len(artifact.Data) == 0 {
		return "", inference.InvalidInput(opTranscribe, "audio artifact is empty")
	}

	resp, err := c.api.Post(ctx, opTranscribe, c.cfg.TranscribeURL, audio.BaseType(artifact.MIMEType), artifact.Data)
	if err != nil {
		return "", err
	}

	text, err := parseText(resp.Body)
	if err != nil {
		return "", inference.UnexpectedResponse(opTranscribe, err)
	}
	return text, nil
}

func (c *Client) Improve(ctx context.Context, artifact *audio.Artifact, original string) (string, error) {
	if artifact == nil || len(artifact.Data) == 0 {
		return "", inference.InvalidInput(opImprove, "audio artifact is empty")
	}

	resp, err := c.api.PostJSON(ctx, opImprove, c.cfg.ImproveURL, improveRequest{
		AudioDataURI:          artifact.DataURI(),
		OriginalTranscription: original,
	})
	if err != nil {
		return "", err
	}

	var out improveResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", inference.UnexpectedResponse(opImprove, fmt.Errorf("decode response: %w", err))
	}
	if out.ImprovedTranscription == nil {
		return "", inference.UnexpectedResponse(opImprove, errors.New("improvedTranscription field missing"))
	}
	return *out.ImprovedTranscription, nil
}

func parseText(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", errors.New("empty response body")
	}

	if trimmed[0] == '[' {
		var items []textResponse
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(items) != 1 {
			return "", fmt.Errorf("expected a single result, got %d", len(items))
		}
		if text, ok := items[0].value(); ok {
			return text, nil
		}
		return "", errors.New("text field missing")
	}

	var single textResponse
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if text, ok := single.value(); ok {
		return text, nil
	}
	return "", errors.New("text field missing")
}
