package geminilive

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/isotranslate/iso/pkg/audio/pcm"
	"github.com/isotranslate/iso/pkg/iso"
)

type liveItem struct {
	msg *genai.LiveServerMessage
	err error
}

// fakeLive feeds scripted server messages and records what the transport
// sends.
type fakeLive struct {
	ch chan liveItem

	mu     sync.Mutex
	media  []*genai.Blob
	acks   []*genai.FunctionResponse
	closed bool
}

func newFakeLive() *fakeLive {
	return &fakeLive{ch: make(chan liveItem, 16)}
}

func (f *fakeLive) SendRealtimeInput(input genai.LiveRealtimeInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if input.Media != nil {
		f.media = append(f.media, input.Media)
	}
	return nil
}

func (f *fakeLive) SendToolResponse(input genai.LiveToolResponseInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, input.FunctionResponses...)
	return nil
}

func (f *fakeLive) Receive() (*genai.LiveServerMessage, error) {
	item, ok := <-f.ch
	if !ok {
		return nil, io.EOF
	}
	return item.msg, item.err
}

func (f *fakeLive) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	return nil
}

func (f *fakeLive) push(msg *genai.LiveServerMessage) {
	f.ch <- liveItem{msg: msg}
}

// silentMic blocks until closed, like a microphone with no input.
type silentMic struct {
	once sync.Once
	done chan struct{}
}

func newSilentMic() *silentMic { return &silentMic{done: make(chan struct{})} }

func (m *silentMic) Read([]byte) (int, error) {
	<-m.done
	return 0, io.EOF
}

func (m *silentMic) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

type capture struct {
	segments chan iso.TranslationSegment
	usage    chan iso.TokenUsage
	closed   chan string
	log      *iso.EventLog
}

func newCapture(t *testing.T) (*capture, iso.Hooks) {
	t.Helper()
	c := &capture{
		segments: make(chan iso.TranslationSegment, 8),
		usage:    make(chan iso.TokenUsage, 8),
		closed:   make(chan string, 8),
		log:      iso.NewEventLog(0),
	}
	en, _ := iso.FindLanguage("en")
	es, _ := iso.FindLanguage("es")
	h := iso.Hooks{
		Log:       c.log,
		Decoder:   iso.NewDecoder(c.log, en, es),
		OnSegment: func(s iso.TranslationSegment) { c.segments <- s },
		OnUsage:   func(u iso.TokenUsage) { c.usage <- u },
		OnClosed:  func(reason string) { c.closed <- reason },
	}
	return c, h
}

type dialed struct {
	model string
	cfg   *genai.LiveConnectConfig
}

func startTransport(t *testing.T, f *fakeLive) (*Transport, *capture, *dialed) {
	return startTransportModel(t, f, "")
}

func startTransportModel(t *testing.T, f *fakeLive, model string) (*Transport, *capture, *dialed) {
	t.Helper()
	d := &dialed{}
	tr := NewTransport(
		withDialer(func(_ context.Context, _ string, model string, cfg *genai.LiveConnectConfig) (liveSession, error) {
			d.model = model
			d.cfg = cfg
			return f, nil
		}),
		WithMicSource(func(target pcm.Format) (io.ReadCloser, error) {
			if target != pcm.L16Mono16K {
				t.Errorf("mic format = %v, want 16kHz mono", target)
			}
			return newSilentMic(), nil
		}),
	)
	c, h := newCapture(t)
	cfg := iso.SessionConfig{APIKey: "gm-test", Model: model}
	cfg.Language1, _ = iso.FindLanguage("en")
	cfg.Language2, _ = iso.FindLanguage("es")
	if err := tr.Start(context.Background(), cfg, h); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { tr.Stop() })
	return tr, c, d
}

func TestStartUsesDefaultModelAndDeclaresTool(t *testing.T) {
	f := newFakeLive()
	_, _, d := startTransport(t, f)

	if d.model != DefaultModel {
		t.Errorf("model = %q", d.model)
	}
	if len(d.cfg.Tools) != 1 || len(d.cfg.Tools[0].FunctionDeclarations) != 1 {
		t.Fatalf("tools = %+v", d.cfg.Tools)
	}
	decl := d.cfg.Tools[0].FunctionDeclarations[0]
	if decl.Name != "transcribe" {
		t.Errorf("tool name = %q", decl.Name)
	}
	if d.cfg.RealtimeInputConfig.ActivityHandling != genai.ActivityHandlingNoInterruption {
		t.Errorf("activity handling = %v", d.cfg.RealtimeInputConfig.ActivityHandling)
	}
	if got := *d.cfg.ContextWindowCompression.TriggerTokens; got != 25600 {
		t.Errorf("trigger tokens = %d", got)
	}
}

func TestToolCallProducesSegmentAndAck(t *testing.T) {
	f := newFakeLive()
	_, c, _ := startTransport(t, f)

	f.push(&genai.LiveServerMessage{
		ToolCall: &genai.LiveServerToolCall{
			FunctionCalls: []*genai.FunctionCall{
				{
					ID:   "fc_1",
					Name: "transcribe",
					Args: map[string]any{
						"speaker": float64(1),
						"en":      "Hello.",
						"es":      "Hola.",
					},
				},
			},
		},
	})

	select {
	case seg := <-c.segments:
		if seg.Translations["es"] != "Hola." {
			t.Errorf("segment = %+v", seg)
		}
	case <-time.After(time.Second):
		t.Fatal("no segment delivered")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.acks) != 1 || f.acks[0].ID != "fc_1" {
		t.Fatalf("acks = %+v", f.acks)
	}
	if len(f.acks[0].Response) != 0 {
		t.Errorf("ack response should be empty, got %v", f.acks[0].Response)
	}
}

func TestOtherToolCallsIgnored(t *testing.T) {
	f := newFakeLive()
	_, c, _ := startTransport(t, f)

	f.push(&genai.LiveServerMessage{
		ToolCall: &genai.LiveServerToolCall{
			FunctionCalls: []*genai.FunctionCall{
				{ID: "fc_2", Name: "search", Args: map[string]any{}},
			},
		},
	})

	select {
	case seg := <-c.segments:
		t.Fatalf("unexpected segment %+v", seg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUsageMetadataReported(t *testing.T) {
	f := newFakeLive()
	_, c, _ := startTransport(t, f)

	f.push(&genai.LiveServerMessage{
		UsageMetadata: &genai.UsageMetadata{
			TotalTokenCount:  300,
			PromptTokenCount: 250,
			PromptTokensDetails: []*genai.ModalityTokenCount{
				{Modality: genai.MediaModalityAudio, TokenCount: 200},
				{Modality: genai.MediaModalityText, TokenCount: 50},
			},
		},
	})

	select {
	case u := <-c.usage:
		if u.Model != DefaultModel {
			t.Errorf("model = %q", u.Model)
		}
		if u.OutputTokens != 50 {
			t.Errorf("output tokens = %d", u.OutputTokens)
		}
		if u.InputTokenDetails.AudioTokens != 200 {
			t.Errorf("audio input = %d", u.InputTokenDetails.AudioTokens)
		}
		if u.OutputTokenDetails.TextTokens != 50 {
			t.Errorf("text output = %d", u.OutputTokenDetails.TextTokens)
		}
	case <-time.After(time.Second):
		t.Fatal("no usage delivered")
	}
}

func TestUsageAccountedUnderConfiguredModel(t *testing.T) {
	f := newFakeLive()
	_, c, d := startTransportModel(t, f, "models/gemini-custom")

	if d.model != "models/gemini-custom" {
		t.Fatalf("dialed model = %q", d.model)
	}

	f.push(&genai.LiveServerMessage{
		UsageMetadata: &genai.UsageMetadata{TotalTokenCount: 42, PromptTokenCount: 40},
	})

	select {
	case u := <-c.usage:
		if u.Model != "models/gemini-custom" {
			t.Errorf("usage model = %q, want the configured one", u.Model)
		}
	case <-time.After(time.Second):
		t.Fatal("no usage delivered")
	}
}

func TestEmptyUsageIgnored(t *testing.T) {
	f := newFakeLive()
	_, c, _ := startTransport(t, f)

	f.push(&genai.LiveServerMessage{UsageMetadata: &genai.UsageMetadata{}})

	select {
	case u := <-c.usage:
		t.Fatalf("unexpected usage %+v", u)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnexpectedCloseNotifies(t *testing.T) {
	f := newFakeLive()
	_, c, _ := startTransport(t, f)

	f.Close()

	select {
	case reason := <-c.closed:
		if reason == "" {
			t.Error("empty close reason")
		}
	case <-time.After(time.Second):
		t.Fatal("OnClosed not called")
	}
}

func TestStopSuppressesCloseNotification(t *testing.T) {
	f := newFakeLive()
	tr, c, _ := startTransport(t, f)

	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case reason := <-c.closed:
		t.Fatalf("OnClosed called after Stop: %q", reason)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendUnsupported(t *testing.T) {
	tr := NewTransport()
	if err := tr.Send(map[string]any{"type": "anything"}); !errors.Is(err, ErrSendUnsupported) {
		t.Fatalf("Send = %v, want ErrSendUnsupported", err)
	}
}
