package geminilive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"

	"github.com/isotranslate/iso/pkg/audio/mic"
	"github.com/isotranslate/iso/pkg/audio/pcm"
	"github.com/isotranslate/iso/pkg/iso"
	"github.com/isotranslate/iso/pkg/iso/tool"
)

// audioChunk is how much microphone audio is sent per realtime input.
const audioChunk = 100 * time.Millisecond

// inputFormat is the PCM format Gemini Live expects.
var inputFormat = pcm.L16Mono16K

// liveSession is the slice of the genai live session the transport uses.
type liveSession interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	SendToolResponse(input genai.LiveToolResponseInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

// Transport runs translation sessions against the Gemini Live API. It
// satisfies iso.Transport and may be started and stopped repeatedly.
type Transport struct {
	dial    func(ctx context.Context, apiKey, model string, cfg *genai.LiveConnectConfig) (liveSession, error)
	openMic func(target pcm.Format) (io.ReadCloser, error)
	logger  *slog.Logger

	mu      sync.Mutex
	session liveSession
	mic     io.ReadCloser
	stop    chan struct{}
}

// Option configures a Transport.
type Option func(*Transport)

// WithMicSource overrides the microphone source, mainly for tests.
func WithMicSource(open func(target pcm.Format) (io.ReadCloser, error)) Option {
	return func(t *Transport) { t.openMic = open }
}

// WithLogger sets the slog logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// withDialer overrides session dialing, for tests.
func withDialer(dial func(ctx context.Context, apiKey, model string, cfg *genai.LiveConnectConfig) (liveSession, error)) Option {
	return func(t *Transport) { t.dial = dial }
}

// NewTransport creates a Gemini Live transport.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.dial == nil {
		t.dial = dialLive
	}
	if t.openMic == nil {
		t.openMic = func(target pcm.Format) (io.ReadCloser, error) {
			return mic.Open(target)
		}
	}
	return t
}

// dialLive connects through the genai client.
func dialLive(ctx context.Context, apiKey, model string, cfg *genai.LiveConnectConfig) (liveSession, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	session, err := client.Live.Connect(ctx, model, cfg)
	if err != nil {
		if e, ok := err.(*apierror.APIError); ok {
			err = e.Unwrap()
		}
		return nil, fmt.Errorf("connect: %w", err)
	}
	return session, nil
}

// Start connects, declares the transcribe tool and starts the audio and
// event pumps.
func (t *Transport) Start(ctx context.Context, cfg iso.SessionConfig, h iso.Hooks) error {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	session, err := t.dial(ctx, cfg.APIKey, model, connectConfig(cfg.Language1, cfg.Language2, cfg.Voice))
	if err != nil {
		return err
	}
	h.Log.Record(iso.EventChannelOpen, iso.DirectionInternal, map[string]any{"model": model})

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

	go t.pumpAudio(session, micSrc, stop)
	go t.pumpMessages(session, model, h, stop)
	return nil
}

// pumpAudio streams microphone PCM as realtime input.
func (t *Transport) pumpAudio(session liveSession, src io.Reader, stop <-chan struct{}) {
	mimeType := inputFormat.MIMEType()
	buf := make([]byte, inputFormat.BytesInDuration(audioChunk))
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			input := genai.LiveRealtimeInput{
				Media: &genai.Blob{
					Data:     append([]byte(nil), buf[:n]...),
					MIMEType: mimeType,
				},
			}
			if serr := session.SendRealtimeInput(input); serr != nil {
				t.logger.Debug("send realtime input", "error", serr)
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

// pumpMessages normalizes server messages into the event log and routes
// transcribe tool calls through the decoder.
func (t *Transport) pumpMessages(session liveSession, model string, h iso.Hooks, stop <-chan struct{}) {
	for {
		msg, err := session.Receive()
		if err != nil {
			reason := "stream ended"
			if !errors.Is(err, io.EOF) {
				reason = err.Error()
			}
			t.notifyClosed(h, reason, stop)
			return
		}
		if msg == nil {
			continue
		}
		h.Log.Record("server_message", iso.DirectionReceived, map[string]any{
			"message": messagePayload(msg),
		})

		if msg.ToolCall != nil {
			t.handleToolCall(session, msg.ToolCall, h)
		}
		if u := msg.UsageMetadata; u != nil && u.TotalTokenCount > 0 {
			h.OnUsage(usageDelta(model, u))
		}
	}
}

// handleToolCall decodes transcribe calls and acknowledges each one with
// an empty response. The model stalls until the acknowledgement arrives.
func (t *Transport) handleToolCall(session liveSession, call *genai.LiveServerToolCall, h iso.Hooks) {
	for _, fc := range call.FunctionCalls {
		if fc == nil || fc.Name != tool.Name {
			continue
		}
		seg := h.Decoder.ToolCall(fc.Args)

		ack := genai.LiveToolResponseInput{
			FunctionResponses: []*genai.FunctionResponse{
				{ID: fc.ID, Name: fc.Name, Response: map[string]any{}},
			},
		}
		if err := session.SendToolResponse(ack); err != nil {
			t.logger.Debug("acknowledge tool call", "error", err)
		} else {
			h.Log.Record("tool_response", iso.DirectionSent, map[string]any{"id": fc.ID})
		}

		if seg != nil {
			h.OnSegment(*seg)
		}
	}
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

// ErrSendUnsupported is returned by Send. The live protocol has no raw
// client event channel; session configuration travels in the connect
// call instead.
var ErrSendUnsupported = errors.New("geminilive: raw events not supported")

// Send is not supported.
func (t *Transport) Send(event map[string]any) error {
	return ErrSendUnsupported
}

// messagePayload renders a server message to its plain JSON object form
// for the event log.
func messagePayload(msg *genai.LiveServerMessage) map[string]any {
	data, err := json.Marshal(msg)
	if err != nil {
		return map[string]any{"marshal_error": err.Error()}
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return map[string]any{"data": string(data)}
	}
	return payload
}

// usageDelta converts one message's usage metadata, accounted under the
// connected model. Gemini reports no output modality breakdown, so all
// output counts as text.
func usageDelta(model string, u *genai.UsageMetadata) iso.TokenUsage {
	total := int64(u.TotalTokenCount)
	prompt := int64(u.PromptTokenCount)
	output := total - prompt

	delta := iso.TokenUsage{
		Model:        model,
		TotalTokens:  total,
		InputTokens:  prompt,
		OutputTokens: output,
	}
	for _, d := range u.PromptTokensDetails {
		if d == nil {
			continue
		}
		switch d.Modality {
		case genai.MediaModalityText:
			delta.InputTokenDetails.TextTokens = int64(d.TokenCount)
		case genai.MediaModalityAudio:
			delta.InputTokenDetails.AudioTokens = int64(d.TokenCount)
		}
	}
	delta.OutputTokenDetails.TextTokens = output
	return delta
}

var _ iso.Transport = (*Transport)(nil)
