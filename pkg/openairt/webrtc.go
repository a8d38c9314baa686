package openairt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// WebRTCSession is a WebRTC-based realtime session. Events travel over
// the oai-events data channel; model audio arrives on a remote track that
// is drained and discarded, since output runs in text modality.
type WebRTCSession struct {
	pc        *webrtc.PeerConnection
	dc        *webrtc.DataChannel
	config    *ConnectConfig
	client    *Client
	sessionID string
	openCh    chan struct{}
	closeCh   chan struct{}
	eventsCh  chan eventOrError
	openOnce  sync.Once
	closeOnce sync.Once
	mu        sync.Mutex

	// evMu serializes sends on eventsCh against its close. The data
	// channel and connection state callbacks run on separate goroutines,
	// and a state change can fire after the data channel closed.
	evMu     sync.Mutex
	evClosed bool
}

// deliver queues an item for the event iterator. Safe against a
// concurrent or prior closeEvents; a send after shutdown is dropped.
func (s *WebRTCSession) deliver(item eventOrError) {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	if s.evClosed {
		return
	}
	select {
	case <-s.closeCh:
	case s.eventsCh <- item:
	}
}

// closeEvents ends the event stream. Idempotent.
func (s *WebRTCSession) closeEvents() {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	if !s.evClosed {
		s.evClosed = true
		close(s.eventsCh)
	}
}

// ephemeralTokenResponse is the response from the session creation API.
type ephemeralTokenResponse struct {
	ID           string `json:"id"`
	Object       string `json:"object"`
	Model        string `json:"model"`
	ExpiresAt    int64  `json:"expires_at"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// connectWebRTC establishes a WebRTC connection.
func (c *Client) connectWebRTC(ctx context.Context, config *ConnectConfig) (*WebRTCSession, error) {
	if config == nil {
		config = &ConnectConfig{}
	}
	if config.Model == "" {
		config.Model = ModelGPT4oRealtimePreview20241217
	}
	if config.Voice == "" {
		config.Voice = VoiceVerse
	}

	// Step 1: Get ephemeral token from OpenAI API
	token, err := c.getEphemeralToken(ctx, config.Model, config.Voice)
	if err != nil {
		return nil, fmt.Errorf("failed to get ephemeral token: %w", err)
	}

	// Step 2: Create WebRTC peer connection
	peerConnection, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	session := &WebRTCSession{
		pc:       peerConnection,
		config:   config,
		client:   c,
		openCh:   make(chan struct{}),
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 100),
	}

	// Step 3: Add audio transceiver for receiving audio
	_, err = peerConnection.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	if err != nil {
		peerConnection.Close()
		return nil, fmt.Errorf("failed to add audio transceiver: %w", err)
	}

	// Step 4: Create data channel for events
	dataChannel, err := peerConnection.CreateDataChannel("oai-events", nil)
	if err != nil {
		peerConnection.Close()
		return nil, fmt.Errorf("failed to create data channel: %w", err)
	}
	session.dc = dataChannel

	dataChannel.OnOpen(func() {
		slog.Debug("data channel opened")
		session.openOnce.Do(func() { close(session.openCh) })
	})

	dataChannel.OnMessage(func(msg webrtc.DataChannelMessage) {
		event := session.parseEvent(msg.Data)

		// Track session ID
		if event.Type == EventTypeSessionCreated && event.Session != nil {
			session.mu.Lock()
			session.sessionID = event.Session.ID
			session.mu.Unlock()
		}

		session.deliver(eventOrError{event: event})
	})

	dataChannel.OnClose(func() {
		slog.Debug("data channel closed")
		session.closeEvents()
	})

	// A dead connection never fires OnClose on the data channel, so
	// surface transport failures through the event stream.
	peerConnection.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("connection state changed", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
			session.deliver(eventOrError{err: fmt.Errorf("openairt: connection %s", state.String())})
		}
	})

	// The model track is drained so SRTP keeps flowing; output runs in
	// text modality and the audio is discarded.
	peerConnection.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		slog.Debug("received remote track", "kind", track.Kind(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeAudio {
			go drainRemoteTrack(track)
		}
	})

	// Step 5: Create offer
	offer, err := peerConnection.CreateOffer(nil)
	if err != nil {
		peerConnection.Close()
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	err = peerConnection.SetLocalDescription(offer)
	if err != nil {
		peerConnection.Close()
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}

	// Wait for ICE gathering to complete
	gatherComplete := webrtc.GatheringCompletePromise(peerConnection)
	<-gatherComplete

	// Step 6: Send offer to OpenAI and get answer
	answer, err := c.sendOffer(ctx, token, config.Model, peerConnection.LocalDescription().SDP)
	if err != nil {
		peerConnection.Close()
		return nil, fmt.Errorf("failed to send offer: %w", err)
	}

	err = peerConnection.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	})
	if err != nil {
		peerConnection.Close()
		return nil, fmt.Errorf("failed to set remote description: %w", err)
	}

	return session, nil
}

// drainRemoteTrack reads and discards RTP until the track ends.
func drainRemoteTrack(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	var pkt rtp.Packet
	var packets, payloadBytes int
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			slog.Debug("remote track ended", "packets", packets, "bytes", payloadBytes)
			return
		}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		packets++
		payloadBytes += len(pkt.Payload)
	}
}

// getEphemeralToken gets an ephemeral token for a WebRTC session.
func (c *Client) getEphemeralToken(ctx context.Context, model, voice string) (string, error) {
	reqBody := map[string]any{
		"model": model,
		"voice": voice,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.httpURL+"/sessions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+c.config.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.config.organization != "" {
		req.Header.Set("OpenAI-Organization", c.config.organization)
	}
	if c.config.project != "" {
		req.Header.Set("OpenAI-Project", c.config.project)
	}

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &Error{
			Code:       "session_creation_failed",
			Message:    fmt.Sprintf("failed to create session: %s", string(body)),
			HTTPStatus: resp.StatusCode,
		}
	}

	var tokenResp ephemeralTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	return tokenResp.ClientSecret.Value, nil
}

// sendOffer sends the SDP offer to OpenAI and returns the answer.
func (c *Client) sendOffer(ctx context.Context, token, model, sdp string) (string, error) {
	url := fmt.Sprintf("%s?model=%s", c.config.httpURL, model)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader([]byte(sdp)))
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &Error{
			Code:       "sdp_exchange_failed",
			Message:    fmt.Sprintf("failed to exchange SDP: %s", string(body)),
			HTTPStatus: resp.StatusCode,
		}
	}

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(answer), nil
}

// WaitOpen blocks until the data channel opens.
func (s *WebRTCSession) WaitOpen(ctx context.Context) error {
	select {
	case <-s.openCh:
		return nil
	case <-s.closeCh:
		return errors.New("openairt: session closed before channel open")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateSession sends a session.update with the given session object.
func (s *WebRTCSession) UpdateSession(session map[string]any) error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeSessionUpdate,
		"session":  session,
	})
}

// AppendAudio appends PCM audio data to the input audio buffer.
func (s *WebRTCSession) AppendAudio(audio []byte) error {
	encoded := base64.StdEncoding.EncodeToString(audio)
	return s.AppendAudioBase64(encoded)
}

// AppendAudioBase64 appends base64-encoded audio data to the input buffer.
func (s *WebRTCSession) AppendAudioBase64(audioBase64 string) error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeInputAudioBufferAppend,
		"audio":    audioBase64,
	})
}

// CommitInput commits the audio buffer. Not needed in server VAD mode.
func (s *WebRTCSession) CommitInput() error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeInputAudioBufferCommit,
	})
}

// ClearInput clears the input audio buffer.
func (s *WebRTCSession) ClearInput() error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeInputAudioBufferClear,
	})
}

// AddFunctionCallOutput adds a function call output to the conversation.
func (s *WebRTCSession) AddFunctionCallOutput(callID string, output string) error {
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
func (s *WebRTCSession) Events() iter.Seq2[*ServerEvent, error] {
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
func (s *WebRTCSession) SendRaw(event map[string]any) error {
	return s.sendEvent(event)
}

// Close closes the session.
func (s *WebRTCSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		if s.dc != nil {
			s.dc.Close()
		}
		if s.pc != nil {
			err = s.pc.Close()
		}
		s.closeEvents()
	})
	return err
}

// SessionID returns the session ID.
func (s *WebRTCSession) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// PeerConnection returns the underlying WebRTC peer connection.
func (s *WebRTCSession) PeerConnection() *webrtc.PeerConnection {
	return s.pc
}

// sendEvent sends a JSON event through the data channel.
func (s *WebRTCSession) sendEvent(event map[string]any) error {
	if s.dc == nil || s.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return fmt.Errorf("data channel not ready")
	}

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if jsonBytes, err := json.MarshalIndent(event, "", "  "); err == nil {
			str := string(jsonBytes)
			if len(str) > 500 {
				str = str[:500] + "..."
			}
			slog.Debug("sending event", "content", str)
		}
	}

	jsonBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.dc.Send(jsonBytes)
}

// parseEvent parses a raw JSON message into a ServerEvent. A frame that
// fails to parse is returned with only Raw set so the consumer can record
// it instead of losing it.
func (s *WebRTCSession) parseEvent(message []byte) *ServerEvent {
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		msgStr := string(message)
		if len(msgStr) > 1000 {
			msgStr = msgStr[:1000] + "..."
		}
		slog.Debug("received message", "len", len(message), "content", msgStr)
	}

	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return &ServerEvent{Raw: message}
	}
	event.Raw = message
	return &event
}

// Ensure WebRTCSession implements Session interface.
var _ Session = (*WebRTCSession)(nil)
