package openairt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketSession is a WebSocket-based realtime session.
type WebSocketSession struct {
	conn      *websocket.Conn
	config    *ConnectConfig
	client    *Client
	sessionID string
	closeCh   chan struct{}
	eventsCh  chan eventOrError
	closeOnce sync.Once
	mu        sync.Mutex
}

type eventOrError struct {
	event *ServerEvent
	err   error
}

// connectWebSocket establishes a WebSocket connection.
func (c *Client) connectWebSocket(ctx context.Context, config *ConnectConfig) (*WebSocketSession, error) {
	if config == nil {
		config = &ConnectConfig{}
	}
	if config.Model == "" {
		config.Model = ModelGPT4oRealtimePreview20241217
	}

	url := fmt.Sprintf("%s?model=%s", c.config.wsURL, config.Model)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.config.apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")
	if c.config.organization != "" {
		headers.Set("OpenAI-Organization", c.config.organization)
	}
	if c.config.project != "" {
		headers.Set("OpenAI-Project", c.config.project)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.httpClient.Timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Code:       "connection_failed",
				Message:    fmt.Sprintf("failed to connect: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("openairt: failed to connect: %w", err)
	}

	session := &WebSocketSession{
		conn:     conn,
		config:   config,
		client:   c,
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 100),
	}

	go session.readLoop()

	return session, nil
}

// generateEventID generates a unique event ID.
func generateEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

// WaitOpen returns immediately; a dialed WebSocket is already open.
func (s *WebSocketSession) WaitOpen(ctx context.Context) error {
	select {
	case <-s.closeCh:
		return fmt.Errorf("openairt: session closed")
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// UpdateSession sends a session.update with the given session object.
func (s *WebSocketSession) UpdateSession(session map[string]any) error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeSessionUpdate,
		"session":  session,
	})
}

// AppendAudio appends PCM audio data to the input audio buffer.
func (s *WebSocketSession) AppendAudio(audio []byte) error {
	encoded := base64.StdEncoding.EncodeToString(audio)
	return s.AppendAudioBase64(encoded)
}

// AppendAudioBase64 appends base64-encoded audio data to the input buffer.
func (s *WebSocketSession) AppendAudioBase64(audioBase64 string) error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeInputAudioBufferAppend,
		"audio":    audioBase64,
	})
}

// CommitInput commits the audio buffer. Not needed in server VAD mode.
func (s *WebSocketSession) CommitInput() error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeInputAudioBufferCommit,
	})
}

// ClearInput clears the input audio buffer.
func (s *WebSocketSession) ClearInput() error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeInputAudioBufferClear,
	})
}

// AddFunctionCallOutput adds a function call output to the conversation.
func (s *WebSocketSession) AddFunctionCallOutput(callID string, output string) error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeConversationItemCreate,
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	})
}

// Events returns an iterator over server events.
func (s *WebSocketSession) Events() iter.Seq2[*ServerEvent, error] {
	return func(yield func(*ServerEvent, error) bool) {
		for {
			select {
			case <-s.closeCh:
				return
			case item, ok := <-s.eventsCh:
				if !ok {
					return
				}
				if !yield(item.event, item.err) {
					return
				}
				if item.err != nil {
					return
				}
			}
		}
	}
}

// SendRaw sends a raw JSON event to the server.
func (s *WebSocketSession) SendRaw(event map[string]any) error {
	return s.sendEvent(event)
}

// Close closes the session.
func (s *WebSocketSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		err = s.conn.Close()
	})
	return err
}

// SessionID returns the session ID.
func (s *WebSocketSession) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// sendEvent sends a JSON event to the server.
func (s *WebSocketSession) sendEvent(event map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if jsonBytes, err := json.MarshalIndent(event, "", "  "); err == nil {
			str := string(jsonBytes)
			if len(str) > 500 {
				str = str[:500] + "..."
			}
			slog.Debug("sending event", "content", str)
		}
	}

	return s.conn.WriteJSON(event)
}

// readLoop reads events from the WebSocket connection.
func (s *WebSocketSession) readLoop() {
	defer close(s.eventsCh)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			case s.eventsCh <- eventOrError{err: fmt.Errorf("read error: %w", err)}:
			}
			return
		}

		if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			msgStr := string(message)
			if len(msgStr) > 1000 {
				msgStr = msgStr[:1000] + "..."
			}
			slog.Debug("received message", "len", len(message), "content", msgStr)
		}

		event := s.parseEvent(message)

		// Track session ID
		if event.Type == EventTypeSessionCreated && event.Session != nil {
			s.mu.Lock()
			s.sessionID = event.Session.ID
			s.mu.Unlock()
		}

		select {
		case <-s.closeCh:
			return
		case s.eventsCh <- eventOrError{event: event}:
		}
	}
}

// parseEvent parses a raw JSON message into a ServerEvent. A frame that
// fails to parse is returned with only Raw set.
func (s *WebSocketSession) parseEvent(message []byte) *ServerEvent {
	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return &ServerEvent{Raw: message}
	}
	event.Raw = message
	return &event
}

// Ensure WebSocketSession implements Session interface.
var _ Session = (*WebSocketSession)(nil)
