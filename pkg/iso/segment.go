package iso

import "github.com/isotranslate/iso/pkg/jsontime"

// TranslationSegment is one validated utterance rendered into both active
// languages. Translations holds exactly the two active wire codes.
type TranslationSegment struct {
	ID           string            `json:"id" msgpack:"id"`
	Timestamp    jsontime.Milli    `json:"timestamp" msgpack:"timestamp"`
	Speaker      int               `json:"speaker" msgpack:"speaker"`
	Translations map[string]string `json:"translations" msgpack:"translations"`
	Language1    Language          `json:"language1" msgpack:"language1"`
	Language2    Language          `json:"language2" msgpack:"language2"`
}

// Clone returns a deep copy with an independent translations map.
func (s TranslationSegment) Clone() TranslationSegment {
	out := s
	out.Translations = make(map[string]string, len(s.Translations))
	for k, v := range s.Translations {
		out.Translations[k] = v
	}
	return out
}
