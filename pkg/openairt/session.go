package openairt

import (
	"context"
	"iter"
)

// Session is the common interface for OpenAI Realtime sessions. Both the
// WebSocket and WebRTC implementations satisfy it.
type Session interface {
	// WaitOpen blocks until the event channel is open and client events
	// can be sent, or the context is done.
	WaitOpen(ctx context.Context) error

	// UpdateSession sends a session.update with the given session object.
	UpdateSession(session map[string]any) error

	// AppendAudio appends PCM audio to the input audio buffer. The
	// expected format is 16-bit little-endian mono at 24kHz; it is
	// base64 encoded before sending.
	AppendAudio(audio []byte) error

	// AddFunctionCallOutput adds a function call output item to the
	// conversation, acknowledging a function call.
	AddFunctionCallOutput(callID string, output string) error

	// SendRaw sends a raw JSON event to the server.
	SendRaw(event map[string]any) error

	// Events returns an iterator over server events. Frames that fail to
	// parse are yielded with only Raw set; iteration stops after a
	// connection-level error is yielded.
	Events() iter.Seq2[*ServerEvent, error]

	// SessionID returns the server-assigned session ID, or empty before
	// session.created arrives.
	SessionID() string

	// Close closes the session connection.
	Close() error
}
