package scribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/inference"
	"github.com/eleven-am/voice-scribe/internal/recognizer"
	"github.com/eleven-am/voice-scribe/internal/synthesis"
	"github.com/eleven-am/voice-scribe/internal/transcription"
	"github.com/google/uuid"
)

var (
	ErrClosed      = errors.New("controller closed")
	ErrUnavailable = errors.New("operation not configured")
	ErrNoAudio     = errors.New("no audio for source")
)

const (
	defaultCallTimeout      = 2 * time.Minute
	recognizerDegradedAfter = 3
	eventQueueSize          = 256
	subscriberBufferSize    = 16
)

type Config struct {
	UserID      string
	Capture     audio.Capture
	Recognizer  recognizer.Recognizer
	Transcriber transcription.Transcriber
	Improver    transcription.Improver
	Synthesizer synthesis.Synthesizer
	Mode        Mode
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Controller drives one client's recording/transcription sessions. All
// session state is owned by a single loop goroutine; commands and async
// completions reach it as events.
type Controller struct {
	id     string
	cfg    Config
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	events chan any
	done   chan struct{}
	latest atomic.Pointer[Snapshot]

	// loop-owned
	session        *Session
	rec            audio.Recording
	stopping       audio.Recording
	stream         recognizer.Stream
	captureDone    bool
	recognizerDone bool
	pendingAudio   *audio.Artifact
	pendingFinal   string
	recognizerErrs int
	lastOp         Operation
	callCancel     context.CancelFunc
	subs           map[int]chan Snapshot
	nextSub        int
}

func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:      id,
		cfg:     cfg,
		log:     cfg.Logger.With("component", "scribe", "controller_id", id),
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan any, eventQueueSize),
		done:    make(chan struct{}),
		session: newSession(),
		subs:    make(map[int]chan Snapshot),
	}
	snap := c.session.snapshot()
	c.latest.Store(&snap)
	go c.run()
	return c
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) UserID() string {
	return c.cfg.UserID
}

type startCmd struct {
	req   audio.CaptureRequest
	reply chan error
}

type stopCmd struct{ reply chan error }

type operationCmd struct {
	op    Operation
	reply chan error
}

type retryCmd struct{ reply chan error }

type resetCmd struct{ reply chan error }

type audioCmd struct {
	chunk []byte
	reply chan error
}

type snapshotCmd struct{ reply chan Snapshot }

type artifactCmd struct {
	source Source
	reply  chan *audio.Artifact
}

type subscribeCmd struct {
	reply chan subscription
}

type unsubscribeCmd struct{ id int }

type subscription struct {
	id int
	ch chan Snapshot
}

type fragmentEvent struct {
	sessionID string
	fragment  recognizer.Fragment
}

type recognizerErrorEvent struct {
	sessionID string
	err       error
}

type recognizerStoppedEvent struct {
	sessionID string
	finalText string
}

type captureStoppedEvent struct {
	sessionID string
	artifact  *audio.Artifact
	err       error
}

type remoteResultEvent struct {
	sessionID string
	op        Operation
	text      string
	artifact  *audio.Artifact
	err       error
}

// Start begins a new recording, discarding the previous session.
func (c *Controller) Start(ctx context.Context, req audio.CaptureRequest) error {
	reply := make(chan error, 1)
	return c.call(ctx, startCmd{req: req, reply: reply}, reply)
}

// Stop ends the recording; finalization continues asynchronously.
func (c *Controller) Stop(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, stopCmd{reply: reply}, reply)
}

func (c *Controller) Transcribe(ctx context.Context) error {
	return c.operation(ctx, OpTranscribe)
}

func (c *Controller) Improve(ctx context.Context) error {
	return c.operation(ctx, OpImprove)
}

func (c *Controller) Synthesize(ctx context.Context) error {
	return c.operation(ctx, OpSynthesize)
}

// Retry re-runs the operation that moved the session to Failed.
func (c *Controller) Retry(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, retryCmd{reply: reply}, reply)
}

// Reset abandons the current session, releasing anything it holds.
func (c *Controller) Reset(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, resetCmd{reply: reply}, reply)
}

func (c *Controller) WriteAudio(ctx context.Context, chunk []byte) error {
	reply := make(chan error, 1)
	return c.call(ctx, audioCmd{chunk: chunk, reply: reply}, reply)
}

func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := c.send(ctx, snapshotCmd{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-c.done:
		return Snapshot{}, ErrClosed
	}
}

// Artifact returns the recorded or synthesized audio of the current session.
func (c *Controller) Artifact(ctx context.Context, source Source) (*audio.Artifact, error) {
	reply := make(chan *audio.Artifact, 1)
	if err := c.send(ctx, artifactCmd{source: source, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case a := <-reply:
		if a == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoAudio, source)
		}
		return a, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Subscribe delivers a snapshot after every change. Slow subscribers only
// see the latest snapshots. The channel is closed by unsubscribe or Close.
func (c *Controller) Subscribe(ctx context.Context) (<-chan Snapshot, func(), error) {
	reply := make(chan subscription, 1)
	if err := c.send(ctx, subscribeCmd{reply: reply}); err != nil {
		return nil, nil, err
	}
	var sub subscription
	select {
	case sub = <-reply:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-c.done:
		return nil, nil, ErrClosed
	}
	unsubscribe := func() {
		_ = c.send(context.Background(), unsubscribeCmd{id: sub.id})
	}
	return sub.ch, unsubscribe, nil
}

// Close tears the controller down and waits for the loop to exit.
func (c *Controller) Close() {
	c.cancel()
	<-c.done
}

func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) operation(ctx context.Context, op Operation) error {
	reply := make(chan error, 1)
	return c.call(ctx, operationCmd{op: op, reply: reply}, reply)
}

func (c *Controller) call(ctx context.Context, cmd any, reply chan error) error {
	if err := c.send(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

func (c *Controller) send(ctx context.Context, ev any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// post delivers an async completion; it gives up once the controller stops.
func (c *Controller) post(ev any) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			c.teardown()
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev any) {
	switch ev := ev.(type) {
	case startCmd:
		ev.reply <- c.onStart(ev.req)
	case stopCmd:
		ev.reply <- c.onStop()
	case operationCmd:
		ev.reply <- c.onOperation(ev.op)
	case retryCmd:
		ev.reply <- c.onRetry()
	case resetCmd:
		c.discard()
		c.session = newSession()
		c.touch()
		ev.reply <- nil
	case audioCmd:
		ev.reply <- c.onAudio(ev.chunk)
	case snapshotCmd:
		ev.reply <- c.session.snapshot()
	case artifactCmd:
		ev.reply <- c.artifact(ev.source)
	case subscribeCmd:
		ev.reply <- c.onSubscribe()
	case unsubscribeCmd:
		if ch, ok := c.subs[ev.id]; ok {
			delete(c.subs, ev.id)
			close(ch)
		}
	case fragmentEvent:
		c.onFragment(ev)
	case recognizerErrorEvent:
		c.onRecognizerError(ev)
	case recognizerStoppedEvent:
		c.onRecognizerStopped(ev)
	case captureStoppedEvent:
		c.onCaptureStopped(ev)
	case remoteResultEvent:
		c.onRemoteResult(ev)
	default:
		c.log.Warn("unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

func invalidState(action string, state State) error {
	return fmt.Errorf("%w: cannot %s while %s", audio.ErrInvalidState, action, state)
}

func (c *Controller) onStart(req audio.CaptureRequest) error {
	switch c.session.State {
	case StateRecording, StateFinalizing:
		return invalidState("start", c.session.State)
	}

	c.discard()
	s := newSession()
	c.session = s

	rec, err := c.cfg.Capture.Start(c.ctx, req)
	if err != nil {
		c.log.Warn("capture start failed", "session_id", s.ID, "error", err)
		s.Notice = captureNotice(err)
		c.touch()
		return err
	}

	var stream recognizer.Stream
	if c.cfg.Recognizer != nil {
		stream, err = c.cfg.Recognizer.Start(c.ctx)
		if err != nil {
			rec.Abort()
			c.log.Warn("recognizer start failed", "session_id", s.ID, "error", err)
			s.Notice = &Notice{Kind: "recognizer_failed", Message: err.Error()}
			c.touch()
			return err
		}
	}

	c.rec = rec
	c.stream = stream
	c.recognizerDone = stream == nil
	if stream != nil {
		go c.pumpRecognizer(s.ID, stream)
	}

	s.State = StateRecording
	c.log.Info("recording started", "session_id", s.ID, "mime_type", req.MIMEType, "recognizer", stream != nil)
	c.touch()
	return nil
}

func (c *Controller) onStop() error {
	s := c.session
	if s.State != StateRecording {
		return invalidState("stop", s.State)
	}

	s.State = StateFinalizing
	rec := c.rec
	c.rec = nil
	c.stopping = rec
	go func(id string) {
		artifact, err := rec.Stop()
		c.post(captureStoppedEvent{sessionID: id, artifact: artifact, err: err})
	}(s.ID)

	if c.stream != nil {
		c.stream.Stop()
	}

	c.touch()
	return nil
}

func (c *Controller) onAudio(chunk []byte) error {
	if c.session.State != StateRecording || c.rec == nil {
		// chunks racing a stop are expected
		return nil
	}
	if _, err := c.rec.Write(chunk); err != nil {
		c.abandonRecording(captureNotice(err))
		return err
	}
	return nil
}

func (c *Controller) onFragment(ev fragmentEvent) {
	s := c.session
	if ev.sessionID != s.ID || s.State != StateRecording {
		return
	}
	s.LocalPartial = append(s.LocalPartial, ev.fragment)
	c.touch()
}

func (c *Controller) onRecognizerError(ev recognizerErrorEvent) {
	s := c.session
	if ev.sessionID != s.ID {
		return
	}
	c.recognizerErrs++
	c.log.Warn("recognizer error", "session_id", s.ID, "count", c.recognizerErrs, "error", ev.err)
	if c.recognizerErrs >= recognizerDegradedAfter && !s.RecognizerDegraded {
		s.RecognizerDegraded = true
		c.touch()
	}
}

func (c *Controller) onRecognizerStopped(ev recognizerStoppedEvent) {
	if ev.sessionID != c.session.ID {
		return
	}
	c.stream = nil
	c.recognizerDone = true
	c.pendingFinal = ev.finalText
	c.maybeFinalize()
}

func (c *Controller) onCaptureStopped(ev captureStoppedEvent) {
	s := c.session
	if ev.sessionID != s.ID || s.State != StateFinalizing {
		return
	}
	c.stopping = nil
	if ev.err != nil {
		c.log.Error("capture finalize failed", "session_id", s.ID, "error", ev.err)
		c.abandonRecording(captureNotice(ev.err))
		return
	}
	c.captureDone = true
	c.pendingAudio = ev.artifact
	c.maybeFinalize()
}

// maybeFinalize completes Finalizing once both the capture and the
// recognizer have reported their stop.
func (c *Controller) maybeFinalize() {
	s := c.session
	if s.State != StateFinalizing || !c.captureDone || !c.recognizerDone {
		return
	}

	s.LocalFinalText = c.pendingFinal
	s.Audio = c.pendingAudio
	c.pendingAudio = nil
	c.log.Info("recording finalized", "session_id", s.ID, "audio_bytes", s.Audio.Size(), "local_chars", len(s.LocalFinalText))

	if c.cfg.Mode == ModeAuto && c.cfg.Transcriber != nil {
		c.begin(OpTranscribe)
		return
	}
	s.State = StateReady
	c.touch()
}

func (c *Controller) onOperation(op Operation) error {
	s := c.session
	if s.State != StateReady {
		return invalidState(string(op), s.State)
	}

	switch op {
	case OpTranscribe:
		if c.cfg.Transcriber == nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, op)
		}
		if s.RemoteText != nil {
			return fmt.Errorf("%w: already transcribed", audio.ErrInvalidState)
		}
	case OpImprove:
		if c.cfg.Improver == nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, op)
		}
		if s.ImprovedText != nil {
			return fmt.Errorf("%w: already improved", audio.ErrInvalidState)
		}
		if s.originalText() == "" {
			return inference.InvalidInput(string(op), "no transcription to improve")
		}
	case OpSynthesize:
		if c.cfg.Synthesizer == nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, op)
		}
		if s.Synthesized != nil {
			return fmt.Errorf("%w: already synthesized", audio.ErrInvalidState)
		}
		if s.DisplayText() == "" {
			return inference.InvalidInput(string(op), "no text to synthesize")
		}
	default:
		return fmt.Errorf("unknown operation %q", op)
	}

	c.begin(op)
	return nil
}

func (c *Controller) onRetry() error {
	s := c.session
	if s.State != StateFailed || c.lastOp == "" {
		return invalidState("retry", s.State)
	}
	c.begin(c.lastOp)
	return nil
}

// begin issues a remote call tagged with the current session ID.
func (c *Controller) begin(op Operation) {
	s := c.session
	s.State = op.state()
	s.Err = nil
	s.Notice = nil
	c.lastOp = op

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.CallTimeout)
	c.callCancel = cancel

	id := s.ID
	artifact := s.Audio
	original := s.originalText()
	display := s.DisplayText()

	go func() {
		defer cancel()
		res := remoteResultEvent{sessionID: id, op: op}
		switch op {
		case OpTranscribe:
			res.text, res.err = c.cfg.Transcriber.Transcribe(ctx, artifact)
		case OpImprove:
			res.text, res.err = c.cfg.Improver.Improve(ctx, artifact, original)
		case OpSynthesize:
			res.artifact, res.err = c.cfg.Synthesizer.Synthesize(ctx, display)
		}
		c.post(res)
	}()

	c.log.Info("remote call issued", "session_id", id, "operation", op)
	c.touch()
}

func (c *Controller) onRemoteResult(ev remoteResultEvent) {
	s := c.session
	if ev.sessionID != s.ID || s.State != ev.op.state() {
		c.log.Debug("dropping stale remote result", "session_id", ev.sessionID, "active_session_id", s.ID, "operation", ev.op)
		return
	}
	c.callCancel = nil

	if ev.err != nil {
		c.log.Warn("remote call failed", "session_id", s.ID, "operation", ev.op, "kind", inference.KindOf(ev.err), "error", ev.err)
		s.State = StateFailed
		s.Err = newFailure(ev.op, ev.err)
		c.touch()
		return
	}

	switch ev.op {
	case OpTranscribe:
		text := ev.text
		s.RemoteText = &text
	case OpImprove:
		text := ev.text
		s.ImprovedText = &text
	case OpSynthesize:
		s.Synthesized = ev.artifact
	}
	s.State = StateReady
	c.log.Info("remote call completed", "session_id", s.ID, "operation", ev.op)
	c.touch()
}

// abandonRecording releases capture and recognizer and returns to Idle.
func (c *Controller) abandonRecording(notice *Notice) {
	c.releaseRecording()
	s := c.session
	s.State = StateIdle
	s.Notice = notice
	c.touch()
}

// releaseRecording frees the device synchronously, including a recording
// whose Stop has not returned yet.
func (c *Controller) releaseRecording() {
	if c.rec != nil {
		c.rec.Abort()
		c.rec = nil
	}
	if c.stopping != nil {
		c.stopping.Abort()
		c.stopping = nil
	}
	if c.stream != nil {
		c.stream.Stop()
		c.stream = nil
	}
}

// discard drops everything tied to the current session. Results still in
// flight carry the old session ID and are ignored when they arrive.
func (c *Controller) discard() {
	c.releaseRecording()
	if c.callCancel != nil {
		c.callCancel()
		c.callCancel = nil
	}
	c.captureDone = false
	c.recognizerDone = false
	c.pendingAudio = nil
	c.pendingFinal = ""
	c.recognizerErrs = 0
	c.lastOp = ""
}

func (c *Controller) teardown() {
	c.discard()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.log.Debug("controller closed")
}

func (c *Controller) artifact(source Source) *audio.Artifact {
	switch source {
	case SourceRecording:
		return c.session.Audio
	case SourceSynthesized:
		return c.session.Synthesized
	default:
		return nil
	}
}

func (c *Controller) onSubscribe() subscription {
	c.nextSub++
	sub := subscription{id: c.nextSub, ch: make(chan Snapshot, subscriberBufferSize)}
	c.subs[sub.id] = sub.ch
	sub.ch <- c.session.snapshot()
	return sub
}

// Current returns the most recently published snapshot without going
// through the loop.
func (c *Controller) Current() Snapshot {
	return *c.latest.Load()
}

func (c *Controller) touch() {
	c.session.UpdatedAt = time.Now()
	snap := c.session.snapshot()
	c.latest.Store(&snap)
	c.publish(snap)
}

func (c *Controller) publish(snap Snapshot) {
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (c *Controller) pumpRecognizer(sessionID string, stream recognizer.Stream) {
	for ev := range stream.Events() {
		if ev.Err != nil {
			c.post(recognizerErrorEvent{sessionID: sessionID, err: ev.Err})
			continue
		}
		if ev.Fragment != nil {
			c.post(fragmentEvent{sessionID: sessionID, fragment: *ev.Fragment})
		}
	}
	c.post(recognizerStoppedEvent{sessionID: sessionID, finalText: stream.FinalText()})
}

func captureNotice(err error) *Notice {
	kind := "capture_failed"
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		kind = "permission_denied"
	case errors.Is(err, audio.ErrUnsupportedFormat):
		kind = "unsupported_format"
	case errors.Is(err, audio.ErrRecordingTooLarge):
		kind = "recording_too_large"
	case errors.Is(err, audio.ErrInvalidState):
		kind = "invalid_state"
	}
	return &Notice{Kind: kind, Message: err.Error()}
}
