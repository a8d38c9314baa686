// Package geminilive runs translation sessions against the Gemini Live
// API over the genai streaming socket. Microphone PCM is streamed as
// realtime input and translation output arrives as transcribe tool calls.
package geminilive

import (
	"google.golang.org/genai"

	"github.com/isotranslate/iso/pkg/iso"
	"github.com/isotranslate/iso/pkg/iso/tool"
)

const (
	// DefaultModel is the native audio dialog model.
	DefaultModel = "models/gemini-2.5-flash-preview-native-audio-dialog"

	// DefaultVoice is the prebuilt voice requested for the session.
	DefaultVoice = "Zephyr"
)

// Context window compression bounds, in tokens. Long sessions would
// otherwise hit the model's context limit mid-conversation.
const (
	compressionTriggerTokens int64 = 25600
	compressionTargetTokens  int64 = 12800
)

// connectConfig builds the live connection configuration for a language
// pair.
func connectConfig(l1, l2 iso.Language, voice string) *genai.LiveConnectConfig {
	if voice == "" {
		voice = DefaultVoice
	}
	return &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		MediaResolution:    genai.MediaResolutionMedium,
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voice,
				},
			},
		},
		RealtimeInputConfig: &genai.RealtimeInputConfig{
			ActivityHandling: genai.ActivityHandlingNoInterruption,
		},
		ContextWindowCompression: &genai.ContextWindowCompressionConfig{
			TriggerTokens: genai.Ptr(compressionTriggerTokens),
			SlidingWindow: &genai.SlidingWindow{
				TargetTokens: genai.Ptr(compressionTargetTokens),
			},
		},
		Tools: []*genai.Tool{
			{FunctionDeclarations: []*genai.FunctionDeclaration{tool.GeminiDeclaration(l1, l2)}},
		},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: tool.GeminiInstructions(l1, l2)}},
		},
	}
}
