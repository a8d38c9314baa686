package iso

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/isotranslate/iso/pkg/jsontime"
)

// Direction records where a session event came from.
type Direction string

const (
	// DirectionSent marks events sent to the provider.
	DirectionSent Direction = "sent"
	// DirectionReceived marks events received from the provider.
	DirectionReceived Direction = "received"
	// DirectionInternal marks events synthesized by the session itself.
	DirectionInternal Direction = "internal"
)

// Internal event types recorded by the session and decoder.
const (
	EventSessionStarting     = "info_session_starting"
	EventSessionActive       = "info_session_active"
	EventSessionStopping     = "info_session_stopping"
	EventSessionStopped      = "info_session_stopped"
	EventChannelOpen         = "info_channel_open"
	EventConnectionClosed    = "info_connection_closed_unexpectedly"
	EventErrorSessionStart   = "error_session_start"
	EventErrorSendingMessage = "error_sending_message"
	EventRawUnparseable      = "raw_unparseable_data"
	EventWarnInvalidFormat   = "warn_invalid_translation_format"
	EventErrorParsingSegment = "error_parsing_translation"
	EventWakeLockAcquired    = "info_wake_lock_acquired"
	EventWakeLockReleased    = "info_wake_lock_released"
	EventWakeLockFailed      = "warn_wake_lock_failed"
)

// SessionEvent is a normalized record of session traffic and internal
// diagnostics.
type SessionEvent struct {
	Type      string         `json:"type" msgpack:"type"`
	EventID   string         `json:"event_id" msgpack:"event_id"`
	Timestamp jsontime.Milli `json:"timestamp" msgpack:"timestamp"`
	Direction Direction      `json:"direction" msgpack:"direction"`
	Payload   map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// DefaultLogCap is the default bound of the rolling event log.
const DefaultLogCap = 200

// EventLog is a bounded rolling log of normalized session events. The
// newest event is first; when the bound is exceeded the oldest events are
// discarded. It is safe for concurrent use.
type EventLog struct {
	mu     sync.Mutex
	bound  int
	events []*SessionEvent
}

// NewEventLog creates an EventLog holding at most bound events. A bound
// of zero or less uses DefaultLogCap.
func NewEventLog(bound int) *EventLog {
	if bound <= 0 {
		bound = DefaultLogCap
	}
	return &EventLog{bound: bound}
}

// Record appends a normalized event with a synthesized id and the current
// timestamp, and returns it.
func (l *EventLog) Record(typ string, dir Direction, payload map[string]any) *SessionEvent {
	ev := &SessionEvent{
		Type:      typ,
		EventID:   string(dir) + "_" + uuid.NewString(),
		Timestamp: jsontime.Now(),
		Direction: dir,
		Payload:   payload,
	}
	l.append(ev)
	return ev
}

// RecordRaw normalizes a raw provider frame. Parse failures are wrapped as
// a raw_unparseable_data event rather than dropped.
func (l *EventLog) RecordRaw(data []byte, dir Direction) *SessionEvent {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return l.Record(EventRawUnparseable, dir, map[string]any{
			"data":  string(data),
			"error": err.Error(),
		})
	}

	typ, _ := payload["type"].(string)
	if typ == "" {
		typ = "unknown"
	}
	return l.Record(typ, dir, payload)
}

func (l *EventLog) append(ev *SessionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) >= l.bound {
		l.events = l.events[:l.bound-1]
	}
	l.events = append([]*SessionEvent{ev}, l.events...)
}

// Snapshot returns a copy of the log, newest first.
func (l *EventLog) Snapshot() []*SessionEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*SessionEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Clear discards all recorded events.
func (l *EventLog) Clear() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}
