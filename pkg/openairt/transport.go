package openairt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/isotranslate/iso/pkg/audio/mic"
	"github.com/isotranslate/iso/pkg/audio/pcm"
	"github.com/isotranslate/iso/pkg/iso"
	"github.com/isotranslate/iso/pkg/iso/tool"
)

// audioChunk is how much microphone audio is sent per append event.
const audioChunk = 100 * time.Millisecond

// inputFormat is the PCM format the Realtime API expects.
var inputFormat = pcm.L16Mono24K

// Mode selects the connection variant.
type Mode string

const (
	// ModeWebRTC connects over a WebRTC peer connection (default).
	ModeWebRTC Mode = "webrtc"
	// ModeWebSocket connects over a plain WebSocket.
	ModeWebSocket Mode = "websocket"
)

// Transport runs translation sessions against the OpenAI Realtime API.
// It satisfies iso.Transport and may be started and stopped repeatedly.
type Transport struct {
	mode       Mode
	clientOpts []Option
	dial       func(ctx context.Context, apiKey string, cfg *ConnectConfig) (Session, error)
	openMic    func(target pcm.Format) (io.ReadCloser, error)
	logger     *slog.Logger

	mu      sync.Mutex
	session Session
	mic     io.ReadCloser
	stop    chan struct{}
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithMode selects the connection variant. Default is ModeWebRTC.
func WithMode(m Mode) TransportOption {
	return func(t *Transport) { t.mode = m }
}

// WithClientOptions passes options to the underlying client.
func WithClientOptions(opts ...Option) TransportOption {
	return func(t *Transport) { t.clientOpts = append(t.clientOpts, opts...) }
}

// WithMicSource overrides the microphone source, mainly for tests.
func WithMicSource(open func(target pcm.Format) (io.ReadCloser, error)) TransportOption {
	return func(t *Transport) { t.openMic = open }
}

// WithDialer overrides session dialing, mainly for tests.
func WithDialer(dial func(ctx context.Context, apiKey string, cfg *ConnectConfig) (Session, error)) TransportOption {
	return func(t *Transport) { t.dial = dial }
}

// WithTransportLogger sets the slog logger. Default is slog.Default().
func WithTransportLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) { t.logger = l }
}

// NewTransport creates an OpenAI Realtime transport.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		mode:   ModeWebRTC,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.dial == nil {
		t.dial = t.dialSession
	}
	if t.openMic == nil {
		t.openMic = func(target pcm.Format) (io.ReadCloser, error) {
			return mic.Open(target)
		}
	}
	return t
}

// dialSession connects per the configured mode.
func (t *Transport) dialSession(ctx context.Context, apiKey string, cfg *ConnectConfig) (Session, error) {
	client := NewClient(apiKey, t.clientOpts...)
	if t.mode == ModeWebSocket {
		return client.ConnectWebSocket(ctx, cfg)
	}
	return client.ConnectWebRTC(ctx, cfg)
}

// Start connects, waits for the event channel, declares the transcribe
// tool and starts the audio and event pumps.
func (t *Transport) Start(ctx context.Context, cfg iso.SessionConfig, h iso.Hooks) error {
	session, err := t.dial(ctx, cfg.APIKey, &ConnectConfig{
		Model: cfg.Model,
		Voice: cfg.Voice,
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := session.WaitOpen(ctx); err != nil {
		session.Close()
		return fmt.Errorf("wait for channel: %w", err)
	}
	h.Log.Record(iso.EventChannelOpen, iso.DirectionInternal, nil)

	sessionObj, err := tool.SessionUpdate(cfg.Language1, cfg.Language2)
	if err != nil {
		session.Close()
		return fmt.Errorf("build session config: %w", err)
	}
	if err := session.UpdateSession(sessionObj); err != nil {
		session.Close()
		return fmt.Errorf("send session config: %w", err)
	}
	h.Log.Record(EventTypeSessionUpdate, iso.DirectionSent, map[string]any{"session": sessionObj})

	micSrc, err := t.openMic(inputFormat)
	if err != nil {
		session.Close()
		return fmt.Errorf("open microphone: %w", err)
	}

	stop := make(chan struct{})
	t.mu.Lock()
	t.session = session
	t.mic = micSrc
	t.stop = stop
	t.mu.Unlock()

	model := cfg.Model
	if model == "" {
		model = ModelGPT4oRealtimePreview20241217
	}

	go t.pumpAudio(session, micSrc, stop)
	go t.pumpEvents(session, model, h, stop)
	return nil
}

// pumpAudio streams microphone PCM to the input audio buffer.
func (t *Transport) pumpAudio(session Session, src io.Reader, stop <-chan struct{}) {
	buf := make([]byte, inputFormat.BytesInDuration(audioChunk))
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			if serr := session.AppendAudio(buf[:n]); serr != nil {
				t.logger.Debug("append audio", "error", serr)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.logger.Warn("microphone read", "error", err)
			}
			return
		}
	}
}

// pumpEvents normalizes server traffic into the event log and routes
// translation output through the decoder.
func (t *Transport) pumpEvents(session Session, model string, h iso.Hooks, stop <-chan struct{}) {
	for event, err := range session.Events() {
		if err != nil {
			t.notifyClosed(h, err.Error(), stop)
			return
		}
		if event == nil {
			continue
		}
		h.Log.RecordRaw(event.Raw, iso.DirectionReceived)

		switch event.Type {
		case EventTypeResponseContentPartDone:
			if event.Part != nil && event.Part.Type == "text" {
				if seg := h.Decoder.ContentText(event.Part.Text); seg != nil {
					h.OnSegment(*seg)
				}
			}

		case EventTypeResponseFunctionCallArgumentsDone:
			if event.Name != tool.Name {
				continue
			}
			seg := h.Decoder.ToolCallJSON(event.Arguments)
			// The model stalls until the call is acknowledged.
			if err := session.AddFunctionCallOutput(event.CallID, "{}"); err != nil {
				t.logger.Debug("acknowledge tool call", "error", err)
			} else {
				h.Log.Record(EventTypeConversationItemCreate, iso.DirectionSent, map[string]any{
					"call_id": event.CallID,
				})
			}
			if seg != nil {
				h.OnSegment(*seg)
			}

		case EventTypeResponseDone:
			if event.Response != nil && event.Response.Usage != nil {
				h.OnUsage(usageDelta(model, event.Response.Usage))
			}
		}
	}
	t.notifyClosed(h, "event channel closed", stop)
}

// notifyClosed reports an unexpected close unless Stop initiated it.
func (t *Transport) notifyClosed(h iso.Hooks, reason string, stop <-chan struct{}) {
	select {
	case <-stop:
	default:
		h.OnClosed(reason)
	}
}

// Stop tears the session down. Idempotent and best-effort.
func (t *Transport) Stop() error {
	t.mu.Lock()
	session, micSrc, stop := t.session, t.mic, t.stop
	t.session, t.mic, t.stop = nil, nil, nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
	}

	var first error
	if micSrc != nil {
		if err := micSrc.Close(); err != nil {
			first = fmt.Errorf("close microphone: %w", err)
		}
	}
	if session != nil {
		if err := session.Close(); err != nil && first == nil {
			first = fmt.Errorf("close session: %w", err)
		}
	}
	return first
}

// Send transmits a raw client event over the open channel.
func (t *Transport) Send(event map[string]any) error {
	t.mu.Lock()
	session := t.session
	t.mu.Unlock()

	if session == nil {
		return errors.New("openairt: no open session")
	}
	return session.SendRaw(event)
}

// usageDelta converts one response's reported usage.
func usageDelta(model string, u *Usage) iso.TokenUsage {
	delta := iso.TokenUsage{
		Model:        model,
		TotalTokens:  u.TotalTokens,
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
	}
	if d := u.InputTokenDetails; d != nil {
		delta.InputTokenDetails = tokenDetails(d)
	}
	if d := u.OutputTokenDetails; d != nil {
		delta.OutputTokenDetails = tokenDetails(d)
	}
	return delta
}

func tokenDetails(d *TokenDetails) iso.TokenDetails {
	out := iso.TokenDetails{
		TextTokens:   d.TextTokens,
		AudioTokens:  d.AudioTokens,
		CachedTokens: d.CachedTokens,
	}
	if c := d.CachedTokensDetails; c != nil {
		out.CachedTokensDetails = iso.CachedTokenDetails{
			TextTokens:  c.TextTokens,
			AudioTokens: c.AudioTokens,
		}
	}
	return out
}

var _ iso.Transport = (*Transport)(nil)
