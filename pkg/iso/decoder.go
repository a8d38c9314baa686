package iso

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"github.com/isotranslate/iso/pkg/jsontime"
)

// Decoder turns model output into validated TranslationSegments. It
// accepts the two shapes providers emit: a streamed text part whose text
// is a JSON document, and a structured transcribe tool call.
//
// A Decoder is confined to the session goroutines of one transport run;
// it is not safe for concurrent use.
type Decoder struct {
	log   *EventLog
	lang1 Language
	lang2 Language

	// lastText is the previous raw content-stream text, kept for the
	// byte-identical duplicate pre-filter.
	lastText string
}

// NewDecoder creates a Decoder for the two active languages, reporting
// diagnostics to log.
func NewDecoder(log *EventLog, lang1, lang2 Language) *Decoder {
	return &Decoder{log: log, lang1: lang1, lang2: lang2}
}

// Languages returns the active language pair.
func (d *Decoder) Languages() (Language, Language) {
	return d.lang1, d.lang2
}

// Reset clears the duplicate pre-filter state.
func (d *Decoder) Reset() {
	d.lastText = ""
}

// ContentText decodes a completed content part whose text should be a
// JSON translation payload. Byte-identical repeats of the previous text
// are dropped before parsing. Returns nil when no segment was produced.
func (d *Decoder) ContentText(text string) *TranslationSegment {
	if text == d.lastText {
		return nil
	}
	d.lastText = text

	payload, err := d.unmarshalPayload([]byte(text))
	if err != nil {
		d.log.Record(EventErrorParsingSegment, DirectionInternal, map[string]any{
			"text":  text,
			"error": err.Error(),
		})
		return nil
	}
	return d.validate(payload)
}

// ToolCallJSON decodes transcribe tool arguments delivered as a JSON
// string. Tool calls are identified by call id, so no duplicate
// pre-filter applies.
func (d *Decoder) ToolCallJSON(arguments string) *TranslationSegment {
	payload, err := d.unmarshalPayload([]byte(arguments))
	if err != nil {
		d.log.Record(EventErrorParsingSegment, DirectionInternal, map[string]any{
			"arguments": arguments,
			"error":     err.Error(),
		})
		return nil
	}
	return d.validate(payload)
}

// ToolCall decodes transcribe tool arguments already parsed into a map.
func (d *Decoder) ToolCall(args map[string]any) *TranslationSegment {
	return d.validate(args)
}

// unmarshalPayload parses a JSON object, retrying through jsonrepair when
// the document is syntactically damaged (truncated output, trailing
// commas, unquoted keys).
func (d *Decoder) unmarshalPayload(data []byte) (map[string]any, error) {
	var payload map[string]any
	err := json.Unmarshal(data, &payload)
	if err == nil {
		return payload, nil
	}

	repaired, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return nil, err
	}
	if uerr := json.Unmarshal([]byte(repaired), &payload); uerr != nil {
		return nil, err
	}
	return payload, nil
}

// validate checks the payload shape and builds a segment. Invalid payloads
// produce a warn_invalid_translation_format event and nil.
func (d *Decoder) validate(payload map[string]any) *TranslationSegment {
	speaker, ok := numeric(payload["speaker"])
	text1, ok1 := payload[d.lang1.Code].(string)
	text2, ok2 := payload[d.lang2.Code].(string)

	if !ok || !ok1 || !ok2 {
		d.log.Record(EventWarnInvalidFormat, DirectionInternal, map[string]any{
			"payload":        payload,
			"expected_codes": []string{d.lang1.Code, d.lang2.Code},
		})
		return nil
	}

	return &TranslationSegment{
		ID:        uuid.NewString(),
		Timestamp: jsontime.Now(),
		Speaker:   speaker,
		Translations: map[string]string{
			d.lang1.Code: text1,
			d.lang2.Code: text2,
		},
		Language1: d.lang1,
		Language2: d.lang2,
	}
}

// numeric accepts the integer encodings JSON decoding can produce.
func numeric(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
