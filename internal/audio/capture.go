package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrPermissionDenied   = errors.New("microphone permission denied")
	ErrUnsupportedFormat  = errors.New("unsupported audio format")
	ErrInvalidState       = errors.New("invalid capture state")
	ErrRecordingTooLarge  = errors.New("recording exceeds maximum size")
	ErrMicrophoneBusy     = fmt.Errorf("%w: microphone already in use", ErrInvalidState)
	ErrCaptureAlreadyDone = fmt.Errorf("%w: capture already stopped", ErrInvalidState)
)

const DefaultMaxRecordingBytes = 25 * 1024 * 1024

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
)

var supportedTypes = map[string]bool{
	"audio/webm": true,
	"audio/ogg":  true,
	"audio/wav":  true,
	"audio/mpeg": true,
	"audio/mp4":  true,
	"audio/pcm":  true,
}

func Supported(mimeType string) bool {
	return supportedTypes[BaseType(mimeType)]
}

type CaptureRequest struct {
	MIMEType   string
	Permission Permission
}

// Recording is a live capture started by Capture.Start.
type Recording interface {
	Write(chunk []byte) (int, error)
	Stop() (*Artifact, error)
	Abort()
}

type Capture interface {
	Start(ctx context.Context, req CaptureRequest) (Recording, error)
}

// Microphone is an exclusive capture device fed with client audio chunks.
// At most one Handle holds it at a time.
type Microphone struct {
	maxBytes int

	mu       sync.Mutex
	active   *Handle
	releases int
}

func NewMicrophone(maxBytes int) *Microphone {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRecordingBytes
	}
	return &Microphone{maxBytes: maxBytes}
}

func (m *Microphone) Start(ctx context.Context, req CaptureRequest) (Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Permission == PermissionDenied {
		return nil, ErrPermissionDenied
	}
	if !Supported(req.MIMEType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.MIMEType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, ErrMicrophoneBusy
	}

	h := &Handle{mic: m, mimeType: req.MIMEType, maxBytes: m.maxBytes}
	m.active = h
	return h, nil
}

func (m *Microphone) InUse() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Releases counts how many times the device has been released.
func (m *Microphone) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

func (m *Microphone) release(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == h {
		m.active = nil
	}
	m.releases++
}

type Handle struct {
	mic      *Microphone
	mimeType string
	maxBytes int

	mu       sync.Mutex
	buf      bytes.Buffer
	stopped  bool
	released bool
}

func (h *Handle) MIMEType() string {
	return h.mimeType
}

func (h *Handle) Write(chunk []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || h.released {
		return 0, ErrCaptureAlreadyDone
	}
	if h.buf.Len()+len(chunk) > h.maxBytes {
		return 0, ErrRecordingTooLarge
	}
	return h.buf.Write(chunk)
}

func (h *Handle) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.Len()
}

// Stop finalizes the buffered audio and releases the microphone. A second
// call fails with ErrInvalidState and does not release again.
func (h *Handle) Stop() (*Artifact, error) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, ErrCaptureAlreadyDone
	}
	h.stopped = true
	data := h.buf.Bytes()
	h.mu.Unlock()

	// the device is free before any encoding work
	h.releaseOnce()

	return Finalize(data, h.mimeType)
}

// Abort discards buffered audio and releases the microphone if still held.
func (h *Handle) Abort() {
	h.mu.Lock()
	h.stopped = true
	h.buf.Reset()
	h.mu.Unlock()
	h.releaseOnce()
}

func (h *Handle) releaseOnce() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	h.mu.Unlock()
	h.mic.release(h)
}
