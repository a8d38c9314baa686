// Package tool defines the transcribe tool contract declared to both
// providers: a function taking a speaker number and the utterance rendered
// into the two active languages, keyed by wire code.
//
// The jsonschema form is the single source of truth; it is rendered into
// the OpenAI session.update payload and the Gemini function declaration.
package tool

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"

	"github.com/isotranslate/iso/pkg/iso"
)

// Name is the function name both providers call.
const Name = "transcribe"

// Description returns the tool description for the active language pair.
func Description(l1, l2 iso.Language) string {
	return fmt.Sprintf(
		"Record one utterance rendered into both %s and %s. "+
			"Call this for every utterance you hear, without exception.",
		l1.Name, l2.Name)
}

// fieldDescription is the per-language parameter description.
func fieldDescription(l iso.Language) string {
	d := fmt.Sprintf("The entire utterance, fully translated (or transcribed) into %s.", l.Name)
	if l.AnnotationInstructions != "" {
		d += " " + l.AnnotationInstructions
	}
	return d
}

// Schema builds the transcribe parameter schema. The speaker number and
// both language codes are required.
func Schema(l1, l2 iso.Language) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"speaker": {
				Type:        "integer",
				Description: "Speaker number, e.g. 1 for the first voice heard, 2 for the second.",
			},
			l1.Code: {
				Type:        "string",
				Description: fieldDescription(l1),
			},
			l2.Code: {
				Type:        "string",
				Description: fieldDescription(l2),
			},
		},
		Required: []string{"speaker", l1.Code, l2.Code},
	}
}

// Instructions returns the interpreter system prompt.
func Instructions(l1, l2 iso.Language) string {
	return fmt.Sprintf(
		"You are an interpreter named Iso between a %s speaker and a %s speaker. "+
			"Listen to every utterance and record it with the %s tool, rendering the "+
			"full utterance into both languages. Never answer questions, never add "+
			"commentary, and never speak on your own. Only interpret.",
		l1.Name, l2.Name, Name)
}

// SessionUpdate builds the OpenAI session.update session object declaring
// the tool contract, forcing tool calls, and enabling server VAD with
// response interruption disabled.
func SessionUpdate(l1, l2 iso.Language) (map[string]any, error) {
	schema, err := schemaMap(Schema(l1, l2))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"modalities":         []string{"text"},
		"instructions":       Instructions(l1, l2),
		"input_audio_format": "pcm16",
		"tools": []any{
			map[string]any{
				"type":        "function",
				"name":        Name,
				"description": Description(l1, l2),
				"parameters":  schema,
			},
		},
		"tool_choice": "required",
		"turn_detection": map[string]any{
			"type":               "server_vad",
			"interrupt_response": false,
		},
	}, nil
}

// schemaMap renders a schema to its plain JSON object form.
func schemaMap(s *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("tool: marshal schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("tool: render schema: %w", err)
	}
	return m, nil
}

// GeminiInstructions returns the passive translator system prompt used
// with Gemini Live, which responds with tool calls only.
func GeminiInstructions(l1, l2 iso.Language) string {
	return fmt.Sprintf(
		"You are a passive translator named Iso. Please only respond with the "+
			"text of any speech you hear, transcribed and/or translated into both "+
			"%s and %s. Respond only with tool calls.",
		l1.Name, l2.Name)
}

// GeminiDeclaration builds the genai function declaration for the pair.
func GeminiDeclaration(l1, l2 iso.Language) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        Name,
		Description: Description(l1, l2),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"speaker": {
					Type:        genai.TypeInteger,
					Description: "Speaker number, e.g. 1 for the first voice heard, 2 for the second.",
				},
				l1.Code: {
					Type:        genai.TypeString,
					Description: fieldDescription(l1),
				},
				l2.Code: {
					Type:        genai.TypeString,
					Description: fieldDescription(l2),
				},
			},
			Required: []string{"speaker", l1.Code, l2.Code},
		},
	}
}
