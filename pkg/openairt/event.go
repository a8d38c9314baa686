package openairt

// Client event types (sent from client to server).
const (
	EventTypeSessionUpdate = "session.update"

	EventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	EventTypeInputAudioBufferCommit = "input_audio_buffer.commit"
	EventTypeInputAudioBufferClear  = "input_audio_buffer.clear"

	EventTypeConversationItemCreate = "conversation.item.create"

	EventTypeResponseCreate = "response.create"
	EventTypeResponseCancel = "response.cancel"
)

// Server event types (sent from server to client).
const (
	EventTypeError = "error"

	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	EventTypeInputAudioBufferCommitted     = "input_audio_buffer.committed"
	EventTypeInputAudioBufferSpeechStarted = "input_audio_buffer.speech_started"
	EventTypeInputAudioBufferSpeechStopped = "input_audio_buffer.speech_stopped"

	EventTypeResponseCreated          = "response.created"
	EventTypeResponseDone             = "response.done"
	EventTypeResponseContentPartAdded = "response.content_part.added"
	EventTypeResponseContentPartDone  = "response.content_part.done"

	EventTypeResponseTextDelta = "response.text.delta"
	EventTypeResponseTextDone  = "response.text.done"

	EventTypeResponseFunctionCallArgumentsDelta = "response.function_call_arguments.delta"
	EventTypeResponseFunctionCallArgumentsDone  = "response.function_call_arguments.done"
)

// ServerEvent represents a server event received from the Realtime API.
// A frame that failed to parse carries only Raw; the consumer decides how
// to report it.
type ServerEvent struct {
	// Type is the event type. Empty when the frame did not parse.
	Type string `json:"type"`

	// EventID is the unique identifier for this event.
	EventID string `json:"event_id,omitzero"`

	// Session contains session information (for session.created, session.updated).
	Session *SessionResource `json:"session,omitzero"`

	// ItemID is the ID of the related conversation item.
	ItemID string `json:"item_id,omitzero"`

	// ContentIndex is the index of the content part.
	ContentIndex int `json:"content_index,omitzero"`

	// EventError contains error info (for error events).
	EventError *Error `json:"error,omitzero"`

	// Response contains response information (for response.* events).
	Response *ResponseResource `json:"response,omitzero"`

	// ResponseID is the response identifier.
	ResponseID string `json:"response_id,omitzero"`

	// OutputIndex is the index of the output item.
	OutputIndex int `json:"output_index,omitzero"`

	// Part contains content part information.
	Part *ContentPart `json:"part,omitzero"`

	// Delta contains incremental text/arguments (for *.delta events).
	Delta string `json:"delta,omitzero"`

	// CallID is the function call ID.
	CallID string `json:"call_id,omitzero"`

	// Name is the function name.
	Name string `json:"name,omitzero"`

	// Arguments is the complete function arguments (for the done event).
	Arguments string `json:"arguments,omitzero"`

	// Raw contains the original JSON message.
	Raw []byte `json:"-"`
}
