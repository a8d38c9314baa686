package openairt

// Models supported by the OpenAI Realtime API.
const (
	// ModelGPT4oRealtimePreview is the GPT-4o realtime preview model.
	ModelGPT4oRealtimePreview = "gpt-4o-realtime-preview"
	// ModelGPT4oRealtimePreview20241217 is a specific version.
	ModelGPT4oRealtimePreview20241217 = "gpt-4o-realtime-preview-2024-12-17"
	// ModelGPT4oMiniRealtimePreview is the GPT-4o mini realtime preview model.
	ModelGPT4oMiniRealtimePreview = "gpt-4o-mini-realtime-preview"
	// ModelGPT4oMiniRealtimePreview20241217 is a specific version.
	ModelGPT4oMiniRealtimePreview20241217 = "gpt-4o-mini-realtime-preview-2024-12-17"
)

// Voice options.
const (
	VoiceAlloy   = "alloy"
	VoiceAsh     = "ash"
	VoiceBallad  = "ballad"
	VoiceCoral   = "coral"
	VoiceEcho    = "echo"
	VoiceSage    = "sage"
	VoiceShimmer = "shimmer"
	VoiceVerse   = "verse"
)

// ConnectConfig contains configuration for establishing a realtime
// connection.
type ConnectConfig struct {
	// Model is the model ID to use.
	// Default: gpt-4o-realtime-preview-2024-12-17
	Model string `json:"model,omitzero"`

	// Voice is the voice ID, baked into the ephemeral token for WebRTC.
	// Default: verse
	Voice string `json:"voice,omitzero"`
}

// SessionResource is the subset of the server session state the client
// tracks.
type SessionResource struct {
	ID    string `json:"id,omitzero"`
	Model string `json:"model,omitzero"`
	Voice string `json:"voice,omitzero"`
}

// ContentPart represents a part of message content.
type ContentPart struct {
	Type       string `json:"type,omitzero"` // "text", "audio"
	Text       string `json:"text,omitzero"`
	Transcript string `json:"transcript,omitzero"`
}

// ResponseResource represents a completed response from the model.
type ResponseResource struct {
	ID     string `json:"id,omitzero"`
	Status string `json:"status,omitzero"` // "completed", "cancelled", "incomplete", "failed"
	Usage  *Usage `json:"usage,omitzero"`
}

// Usage contains one response's token usage.
type Usage struct {
	TotalTokens        int64         `json:"total_tokens,omitzero"`
	InputTokens        int64         `json:"input_tokens,omitzero"`
	OutputTokens       int64         `json:"output_tokens,omitzero"`
	InputTokenDetails  *TokenDetails `json:"input_token_details,omitzero"`
	OutputTokenDetails *TokenDetails `json:"output_token_details,omitzero"`
}

// TokenDetails contains a per-modality token breakdown.
type TokenDetails struct {
	CachedTokens        int64                `json:"cached_tokens,omitzero"`
	TextTokens          int64                `json:"text_tokens,omitzero"`
	AudioTokens         int64                `json:"audio_tokens,omitzero"`
	CachedTokensDetails *CachedTokensDetails `json:"cached_tokens_details,omitzero"`
}

// CachedTokensDetails contains details about cached tokens.
type CachedTokensDetails struct {
	TextTokens  int64 `json:"text_tokens,omitzero"`
	AudioTokens int64 `json:"audio_tokens,omitzero"`
}
