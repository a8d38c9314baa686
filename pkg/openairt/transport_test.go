package openairt_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/isotranslate/iso/pkg/audio/pcm"
	"github.com/isotranslate/iso/pkg/iso"
	"github.com/isotranslate/iso/pkg/openairt"
)

type fakeItem struct {
	event *openairt.ServerEvent
	err   error
}

// fakeSession feeds scripted server events to the transport and records
// what the transport sends.
type fakeSession struct {
	ch chan fakeItem

	mu      sync.Mutex
	session map[string]any
	audio   [][]byte
	acks    map[string]string
	raw     []map[string]any
	closed  bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		ch:   make(chan fakeItem, 16),
		acks: map[string]string{},
	}
}

func (f *fakeSession) WaitOpen(context.Context) error { return nil }

func (f *fakeSession) UpdateSession(session map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = session
	return nil
}

func (f *fakeSession) AppendAudio(audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, append([]byte(nil), audio...))
	return nil
}

func (f *fakeSession) AddFunctionCallOutput(callID, output string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks[callID] = output
	return nil
}

func (f *fakeSession) SendRaw(event map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = append(f.raw, event)
	return nil
}

func (f *fakeSession) Events() iter.Seq2[*openairt.ServerEvent, error] {
	return func(yield func(*openairt.ServerEvent, error) bool) {
		for item := range f.ch {
			if !yield(item.event, item.err) {
				return
			}
			if item.err != nil {
				return
			}
		}
	}
}

func (f *fakeSession) SessionID() string { return "sess_test" }

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	return nil
}

func (f *fakeSession) push(ev *openairt.ServerEvent) {
	f.ch <- fakeItem{event: ev}
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
	ja, _ := iso.FindLanguage("ja")
	h := iso.Hooks{
		Log:       c.log,
		Decoder:   iso.NewDecoder(c.log, en, ja),
		OnSegment: func(s iso.TranslationSegment) { c.segments <- s },
		OnUsage:   func(u iso.TokenUsage) { c.usage <- u },
		OnClosed:  func(reason string) { c.closed <- reason },
	}
	return c, h
}

func startTransport(t *testing.T, f *fakeSession) (*openairt.Transport, *capture, iso.Hooks) {
	t.Helper()
	tr := openairt.NewTransport(
		openairt.WithDialer(func(context.Context, string, *openairt.ConnectConfig) (openairt.Session, error) {
			return f, nil
		}),
		openairt.WithMicSource(func(pcm.Format) (io.ReadCloser, error) {
			return newSilentMic(), nil
		}),
	)
	c, h := newCapture(t)
	cfg := iso.SessionConfig{APIKey: "sk-test"}
	cfg.Language1, _ = iso.FindLanguage("en")
	cfg.Language2, _ = iso.FindLanguage("ja")
	if err := tr.Start(context.Background(), cfg, h); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { tr.Stop() })
	return tr, c, h
}

func TestStartDeclaresTranscribeTool(t *testing.T) {
	f := newFakeSession()
	startTransport(t, f)

	f.mu.Lock()
	session := f.session
	f.mu.Unlock()
	if session == nil {
		t.Fatal("session.update not sent")
	}
	if session["tool_choice"] != "required" {
		t.Errorf("tool_choice = %v", session["tool_choice"])
	}
}

func TestStartFailsWhenMicUnavailable(t *testing.T) {
	f := newFakeSession()
	tr := openairt.NewTransport(
		openairt.WithDialer(func(context.Context, string, *openairt.ConnectConfig) (openairt.Session, error) {
			return f, nil
		}),
		openairt.WithMicSource(func(pcm.Format) (io.ReadCloser, error) {
			return nil, errors.New("no input device")
		}),
	)
	_, h := newCapture(t)
	cfg := iso.SessionConfig{APIKey: "sk-test"}
	cfg.Language1, _ = iso.FindLanguage("en")
	cfg.Language2, _ = iso.FindLanguage("ja")

	if err := tr.Start(context.Background(), cfg, h); err == nil {
		t.Fatal("expected error")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		t.Error("session should be closed after failed start")
	}
}

func TestToolCallProducesSegmentAndAck(t *testing.T) {
	f := newFakeSession()
	_, c, _ := startTransport(t, f)

	f.push(&openairt.ServerEvent{
		Type:      openairt.EventTypeResponseFunctionCallArgumentsDone,
		CallID:    "call_1",
		Name:      "transcribe",
		Arguments: `{"speaker":1,"en":"Good morning.","ja":"おはよう。"}`,
		Raw:       []byte(`{"type":"response.function_call_arguments.done"}`),
	})

	select {
	case seg := <-c.segments:
		if seg.Speaker != 1 || seg.Translations["en"] != "Good morning." {
			t.Errorf("segment = %+v", seg)
		}
	case <-time.After(time.Second):
		t.Fatal("no segment delivered")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acks["call_1"] != "{}" {
		t.Errorf("acks = %v", f.acks)
	}
}

func TestContentPartProducesSegment(t *testing.T) {
	f := newFakeSession()
	_, c, _ := startTransport(t, f)

	f.push(&openairt.ServerEvent{
		Type: openairt.EventTypeResponseContentPartDone,
		Part: &openairt.ContentPart{
			Type: "text",
			Text: `{"speaker":2,"en":"Bye.","ja":"じゃあね。"}`,
		},
		Raw: []byte(`{"type":"response.content_part.done"}`),
	})

	select {
	case seg := <-c.segments:
		if seg.Speaker != 2 {
			t.Errorf("speaker = %d", seg.Speaker)
		}
	case <-time.After(time.Second):
		t.Fatal("no segment delivered")
	}
}

func TestResponseDoneReportsUsage(t *testing.T) {
	f := newFakeSession()
	_, c, _ := startTransport(t, f)

	f.push(&openairt.ServerEvent{
		Type: openairt.EventTypeResponseDone,
		Response: &openairt.ResponseResource{
			Status: "completed",
			Usage: &openairt.Usage{
				TotalTokens:  120,
				InputTokens:  100,
				OutputTokens: 20,
				InputTokenDetails: &openairt.TokenDetails{
					AudioTokens: 90,
					TextTokens:  10,
				},
			},
		},
		Raw: []byte(`{"type":"response.done"}`),
	})

	select {
	case u := <-c.usage:
		if u.TotalTokens != 120 {
			t.Errorf("total = %d", u.TotalTokens)
		}
		if u.Model != openairt.ModelGPT4oRealtimePreview20241217 {
			t.Errorf("model = %q", u.Model)
		}
		if u.InputTokenDetails.AudioTokens != 90 {
			t.Errorf("audio input = %d", u.InputTokenDetails.AudioTokens)
		}
	case <-time.After(time.Second):
		t.Fatal("no usage delivered")
	}
}

func TestUnexpectedCloseNotifies(t *testing.T) {
	f := newFakeSession()
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
	f := newFakeSession()
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

func TestSendRequiresOpenSession(t *testing.T) {
	tr := openairt.NewTransport()
	if err := tr.Send(map[string]any{"type": "response.create"}); err == nil {
		t.Fatal("Send without session should fail")
	}

	f := newFakeSession()
	tr, _, _ = startTransport(t, f)
	if err := tr.Send(map[string]any{"type": "response.create"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.raw) != 1 {
		t.Fatalf("sent %d raw events, want 1", len(f.raw))
	}
}

func TestEventsAreLogged(t *testing.T) {
	f := newFakeSession()
	_, c, _ := startTransport(t, f)

	f.push(&openairt.ServerEvent{
		Type: openairt.EventTypeSessionCreated,
		Raw:  []byte(`{"type":"session.created"}`),
	})
	f.push(&openairt.ServerEvent{
		Raw: []byte(`not json at all`),
	})

	deadline := time.After(time.Second)
	for {
		events := c.log.Snapshot()
		var created, unparseable bool
		for _, ev := range events {
			if ev.Type == "session.created" {
				created = true
			}
			if ev.Type == iso.EventRawUnparseable {
				unparseable = true
			}
		}
		if created && unparseable {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("log missing events: created=%v unparseable=%v", created, unparseable)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
