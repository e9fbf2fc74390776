package audio

import (
	"encoding/base64"
	"errors"
	"mime"
	"strings"
)

var ErrInvalidDataURI = errors.New("invalid data URI")

// Artifact is a fully materialized audio payload. It is never mutated
// after construction; callers share it by pointer.
type Artifact struct {
	Data     []byte
	MIMEType string
}

func NewArtifact(data []byte, mimeType string) *Artifact {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Artifact{Data: buf, MIMEType: mimeType}
}

func (a *Artifact) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// DataURI renders the artifact as a base64 data URI suitable for playback.
func (a *Artifact) DataURI() string {
	return "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

func ParseDataURI(uri string) (*Artifact, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrInvalidDataURI
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, ErrInvalidDataURI
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidDataURI
	}
	return &Artifact{Data: data, MIMEType: mimeType}, nil
}

// BaseType strips parameters from a MIME type, e.g. "audio/webm;codecs=opus"
// becomes "audio/webm".
func BaseType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base, _, _ := strings.Cut(mimeType, ";")
		return strings.ToLower(strings.TrimSpace(base))
	}
	return mediaType
}
