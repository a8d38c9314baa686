package iso

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the session lifecycle state.
type State int

const (
	// StateIdle means no session is running.
	StateIdle State = iota
	// StateNegotiating means a start is in flight: connecting, waiting
	// for the channel to open, sending configuration.
	StateNegotiating
	// StateActive means the channel is open and audio is flowing.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SessionConfig is handed to a Transport at start.
type SessionConfig struct {
	APIKey    string
	Model     string
	Voice     string
	Language1 Language
	Language2 Language
}

// Hooks are the callbacks a Transport uses to feed session state back to
// the controller. All fields are non-nil when passed to Start.
type Hooks struct {
	// Log receives normalized provider traffic and diagnostics.
	Log *EventLog

	// Decoder validates model output into segments for the active
	// language pair.
	Decoder *Decoder

	// OnSegment delivers each validated segment.
	OnSegment func(TranslationSegment)

	// OnUsage delivers one response's token usage.
	OnUsage func(TokenUsage)

	// OnClosed reports that the channel closed without Stop being
	// called. The transport must not call it during or after Stop.
	OnClosed func(reason string)
}

// Transport is one provider's realtime connection. Implementations own
// their connection objects exclusively; the controller never touches
// them.
type Transport interface {
	// Start connects, waits for the channel to open, sends the session
	// configuration and starts the audio and event pumps. It returns
	// only once the channel is confirmed open or a step failed.
	Start(ctx context.Context, cfg SessionConfig, h Hooks) error

	// Stop tears the connection down. Idempotent and best-effort: it
	// continues past individual failures and returns the first error.
	Stop() error

	// Send transmits a raw client event over the open channel.
	Send(event map[string]any) error
}

// WakeLock keeps the host awake while a session runs. The default is a
// no-op; platform frontends supply their own.
type WakeLock interface {
	Acquire() error
	Release() error
}

type noopWakeLock struct{}

func (noopWakeLock) Acquire() error { return nil }
func (noopWakeLock) Release() error { return nil }

// TranscriptStore persists segments and usage across runs.
type TranscriptStore interface {
	AppendSegment(ctx context.Context, seg TranslationSegment) error
	Segments(ctx context.Context) ([]TranslationSegment, error)
	ClearSegments(ctx context.Context) error
	SaveUsage(ctx context.Context, u TokenUsage) error
	Usage(ctx context.Context) (TokenUsage, error)
	ClearUsage(ctx context.Context) error
}

// ErrSessionActive is returned when an operation requires an idle session.
var ErrSessionActive = errors.New("iso: session active")

// Controller owns the session state machine and the shared transcript,
// event log and usage state. It drives exactly one Transport.
type Controller struct {
	transport Transport
	apiKey    func(context.Context) (string, error)

	logger *slog.Logger
	wake   WakeLock
	store  TranscriptStore
	merger Merger

	model string
	voice string

	onSegment func(TranslationSegment)

	mu           sync.Mutex
	state        State
	closePending bool
	lang1        Language
	lang2        Language
	log      *EventLog
	decoder  *Decoder
	segments []TranslationSegment
	usage    TokenUsage
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the slog logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithModel sets the provider model requested at start.
func WithModel(model string) Option {
	return func(c *Controller) { c.model = model }
}

// WithVoice sets the provider voice requested at start.
func WithVoice(voice string) Option {
	return func(c *Controller) { c.voice = voice }
}

// WithMergeGap sets the segment merge gap threshold.
func WithMergeGap(gap time.Duration) Option {
	return func(c *Controller) { c.merger.Gap = gap }
}

// WithLogCap bounds the rolling event log.
func WithLogCap(n int) Option {
	return func(c *Controller) { c.log = NewEventLog(n) }
}

// WithWakeLock installs a platform wake lock.
func WithWakeLock(w WakeLock) Option {
	return func(c *Controller) { c.wake = w }
}

// WithStore persists segments and usage to a TranscriptStore.
func WithStore(s TranscriptStore) Option {
	return func(c *Controller) { c.store = s }
}

// WithSegmentListener is notified after each appended segment, outside
// the controller lock.
func WithSegmentListener(fn func(TranslationSegment)) Option {
	return func(c *Controller) { c.onSegment = fn }
}

// NewController creates a Controller for the given transport and
// credential source. apiKey returning an empty string means the
// credential is not configured.
func NewController(t Transport, apiKey func(context.Context) (string, error), lang1, lang2 Language, opts ...Option) *Controller {
	c := &Controller{
		transport: t,
		apiKey:    apiKey,
		logger:    slog.Default(),
		wake:      noopWakeLock{},
		lang1:     lang1,
		lang2:     lang2,
		log:       NewEventLog(DefaultLogCap),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.decoder = NewDecoder(c.log, c.lang1, c.lang2)
	return c
}

// Restore loads persisted segments and usage from the store. Call before
// the first session.
func (c *Controller) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	segs, err := c.store.Segments(ctx)
	if err != nil {
		return fmt.Errorf("restore segments: %w", err)
	}
	usage, err := c.store.Usage(ctx)
	if err != nil {
		return fmt.Errorf("restore usage: %w", err)
	}
	c.mu.Lock()
	c.segments = segs
	c.usage = usage
	c.mu.Unlock()
	return nil
}

// StartSession starts a session. A call while one is negotiating or
// active is a silent no-op. A missing credential is reported as an
// error_session_start event without an error return; any other failure
// both logs the event and returns the error, with partial state torn
// down. A stop or channel close that arrives mid-negotiation wins: the
// session is torn down instead of going active.
func (c *Controller) StartSession(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		c.logger.Debug("start ignored", "state", c.state.String())
		return nil
	}

	key, err := c.apiKey(ctx)
	if err != nil || key == "" {
		c.log.Record(EventErrorSessionStart, DirectionInternal, map[string]any{
			"message": "API key not available.",
		})
		c.mu.Unlock()
		c.logger.Warn("session start without credential")
		return nil
	}

	c.state = StateNegotiating
	c.closePending = false
	c.decoder.Reset()
	c.log.Clear()
	c.log.Record(EventSessionStarting, DirectionInternal, map[string]any{
		"languages": []string{c.lang1.Code, c.lang2.Code},
	})

	cfg := SessionConfig{
		APIKey:    key,
		Model:     c.model,
		Voice:     c.voice,
		Language1: c.lang1,
		Language2: c.lang2,
	}
	hooks := Hooks{
		Log:       c.log,
		Decoder:   c.decoder,
		OnSegment: c.appendSegment,
		OnUsage:   c.addUsage,
		OnClosed:  c.handleClosed,
	}
	c.mu.Unlock()

	if err := c.wake.Acquire(); err != nil {
		c.log.Record(EventWakeLockFailed, DirectionInternal, map[string]any{"error": err.Error()})
	} else {
		c.log.Record(EventWakeLockAcquired, DirectionInternal, nil)
	}

	if err := c.transport.Start(ctx, cfg, hooks); err != nil {
		c.log.Record(EventErrorSessionStart, DirectionInternal, map[string]any{
			"message": "Failed to start session.",
			"detail":  err.Error(),
		})
		c.teardown()
		return fmt.Errorf("start session: %w", err)
	}

	// Go active only if the negotiation was not overtaken by a stop or a
	// channel close; otherwise the later teardown owns the connection the
	// transport just stored.
	c.mu.Lock()
	if c.state != StateNegotiating || c.closePending {
		c.closePending = false
		c.mu.Unlock()
		c.logger.Warn("session interrupted during negotiation")
		c.teardown()
		return nil
	}
	c.state = StateActive
	c.mu.Unlock()
	c.log.Record(EventSessionActive, DirectionInternal, nil)
	c.logger.Info("session active",
		"model", cfg.Model,
		"language1", cfg.Language1.Code,
		"language2", cfg.Language2.Code)
	return nil
}

// StopSession stops the running session. Safe to call at any time,
// including when no session is running; teardown is best-effort and the
// controller always lands in the idle state.
func (c *Controller) StopSession() {
	c.log.Record(EventSessionStopping, DirectionInternal, nil)
	c.teardown()
	c.log.Record(EventSessionStopped, DirectionInternal, nil)
}

// teardown releases every session resource, continuing past failures.
func (c *Controller) teardown() {
	if err := c.transport.Stop(); err != nil {
		c.logger.Error("transport stop", "error", err)
	}
	if err := c.wake.Release(); err != nil {
		c.logger.Error("wake lock release", "error", err)
	} else {
		c.log.Record(EventWakeLockReleased, DirectionInternal, nil)
	}

	c.mu.Lock()
	c.state = StateIdle
	c.decoder.Reset()
	c.mu.Unlock()
}

// handleClosed reacts to an unexpected channel close reported by the
// transport. A close during negotiation is remembered so the start path
// tears down instead of marking the dead session active.
func (c *Controller) handleClosed(reason string) {
	c.mu.Lock()
	switch c.state {
	case StateNegotiating:
		c.closePending = true
		c.mu.Unlock()
		c.log.Record(EventConnectionClosed, DirectionInternal, map[string]any{"detail": reason})
		c.logger.Warn("connection closed during negotiation", "reason", reason)
		return
	case StateActive:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		return
	}

	c.log.Record(EventConnectionClosed, DirectionInternal, map[string]any{"detail": reason})
	c.logger.Warn("connection closed unexpectedly", "reason", reason)
	c.StopSession()
}

// Send transmits a raw client event when a session is active. Failures
// are recorded on the event log.
func (c *Controller) Send(event map[string]any) error {
	c.mu.Lock()
	active := c.state == StateActive
	c.mu.Unlock()

	if !active {
		c.log.Record(EventErrorSendingMessage, DirectionInternal, map[string]any{
			"message": "No active session.",
		})
		return errors.New("iso: no active session")
	}
	if err := c.transport.Send(event); err != nil {
		c.log.Record(EventErrorSendingMessage, DirectionInternal, map[string]any{
			"error": err.Error(),
		})
		return err
	}
	typ, _ := event["type"].(string)
	if typ == "" {
		typ = "unknown"
	}
	c.log.Record(typ, DirectionSent, event)
	return nil
}

func (c *Controller) appendSegment(seg TranslationSegment) {
	c.mu.Lock()
	c.segments = append(c.segments, seg)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.AppendSegment(context.Background(), seg); err != nil {
			c.logger.Error("persist segment", "error", err)
		}
	}
	if c.onSegment != nil {
		c.onSegment(seg)
	}
}

func (c *Controller) addUsage(delta TokenUsage) {
	c.mu.Lock()
	c.usage.Add(delta)
	usage := c.usage
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveUsage(context.Background(), usage); err != nil {
			c.logger.Error("persist usage", "error", err)
		}
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a session is active.
func (c *Controller) Active() bool {
	return c.State() == StateActive
}

// Languages returns the active language pair.
func (c *Controller) Languages() (Language, Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang1, c.lang2
}

// SetLanguages changes the language pair. Only allowed while idle, since
// the pair is baked into the session configuration and decoder.
func (c *Controller) SetLanguages(lang1, lang2 Language) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrSessionActive
	}
	c.lang1, c.lang2 = lang1, lang2
	c.decoder = NewDecoder(c.log, lang1, lang2)
	return nil
}

// Events returns a snapshot of the rolling event log, newest first.
func (c *Controller) Events() []*SessionEvent {
	return c.log.Snapshot()
}

// Segments returns a copy of the raw segment list in arrival order.
func (c *Controller) Segments() []TranslationSegment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TranslationSegment, len(c.segments))
	copy(out, c.segments)
	return out
}

// MergedSegments returns the compressed transcript for display.
func (c *Controller) MergedSegments() []TranslationSegment {
	c.mu.Lock()
	segs := make([]TranslationSegment, len(c.segments))
	copy(segs, c.segments)
	merger := c.merger
	c.mu.Unlock()
	return merger.Compress(segs)
}

// Usage returns the accumulated token usage.
func (c *Controller) Usage() TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// ClearTranscript discards all segments, in memory and in the store.
func (c *Controller) ClearTranscript(ctx context.Context) error {
	c.mu.Lock()
	c.segments = nil
	c.mu.Unlock()
	if c.store != nil {
		return c.store.ClearSegments(ctx)
	}
	return nil
}

// ClearUsage resets the usage counters, in memory and in the store.
func (c *Controller) ClearUsage(ctx context.Context) error {
	c.mu.Lock()
	c.usage = TokenUsage{}
	c.mu.Unlock()
	if c.store != nil {
		return c.store.ClearUsage(ctx)
	}
	return nil
}
