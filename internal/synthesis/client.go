package synthesis

import (
	"context"
	"errors"
	"strings"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/inference"
)

const (
	opSynthesize       = "synthesize"
	defaultContentType = "audio/flac"
	MaxInputLength     = 4096
)

type Config struct {
	URL string
}

type request struct {
	Inputs string `json:"inputs"`
}

type Client struct {
	api *inference.Client
	cfg Config
}

func New(api *inference.Client, cfg Config) *Client {
	return &Client{api: api, cfg: cfg}
}

// Synthesize posts {"inputs": text} and returns the binary audio response
// as an artifact typed by the response Content-Type.
func (c *Client) Synthesize(ctx context.Context, text string) (*audio.Artifact, error) {
	if strings.TrimSpace(text) == "" {
		return nil, inference.InvalidInput(opSynthesize, "text must not be empty")
	}
	if len(text) > MaxInputLength {
		return nil, inference.InvalidInput(opSynthesize, "text exceeds maximum length")
	}

	resp, err := c.api.PostJSON(ctx, opSynthesize, c.cfg.URL, request{Inputs: text})
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, inference.UnexpectedResponse(opSynthesize, errors.New("empty audio response"))
	}

	contentType := audio.BaseType(resp.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = defaultContentType
	}
	if !strings.HasPrefix(contentType, "audio/") {
		return nil, inference.UnexpectedResponse(opSynthesize, errors.New("response is not audio: "+contentType))
	}

	return &audio.Artifact{Data: resp.Body, MIMEType: contentType}, nil
}
