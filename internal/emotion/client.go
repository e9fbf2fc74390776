// Package emotion classifies the dominant emotion of a transcript.
package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/eleven-am/voice-scribe/internal/inference"
)

type Emotion string

const (
	Sadness Emotion = "Sadness"
	Joy     Emotion = "Joy"
	Anger   Emotion = "Anger"
	Neutral Emotion = "Neutral"
)

const opDiagnose = "diagnose_emotion"

var labels = map[string]Emotion{
	"sadness": Sadness,
	"sad":     Sadness,
	"joy":     Joy,
	"happy":   Joy,
	"anger":   Anger,
	"angry":   Anger,
	"neutral": Neutral,
}

type Config struct {
	URL string
}

type score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Client struct {
	api *inference.Client
	cfg Config
}

func New(api *inference.Client, cfg Config) *Client {
	return &Client{api: api, cfg: cfg}
}

// Diagnose returns the highest scoring emotion for text. Labels outside the
// supported set, and empty classifications, fall back to Neutral.
func (c *Client) Diagnose(ctx context.Context, text string) (Emotion, error) {
	if strings.TrimSpace(text) == "" {
		return "", inference.InvalidInput(opDiagnose, "text must not be empty")
	}

	resp, err := c.api.PostJSON(ctx, opDiagnose, c.cfg.URL, map[string]string{"inputs": text})
	if err != nil {
		return "", err
	}

	scores, err := parseScores(resp.Body)
	if err != nil {
		return "", inference.UnexpectedResponse(opDiagnose, err)
	}
	return pick(scores), nil
}

func parseScores(body []byte) ([]score, error) {
	trimmed := bytes.TrimSpace(body)
	var nested [][]score
	if err := json.Unmarshal(trimmed, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []score
	if err := json.Unmarshal(trimmed, &flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func pick(scores []score) Emotion {
	best := Neutral
	bestScore := -1.0
	for _, s := range scores {
		if s.Score > bestScore {
			bestScore = s.Score
			if e, ok := labels[strings.ToLower(s.Label)]; ok {
				best = e
			} else {
				best = Neutral
			}
		}
	}
	return best
}
