package iso

// Language describes a selectable translation language.
type Language struct {
	// ID is the stable registry identifier.
	ID string `json:"id" msgpack:"id"`

	// Name is the English display name.
	Name string `json:"name" msgpack:"name"`

	// Code is the wire code used as the key in translation payloads.
	Code string `json:"code" msgpack:"code"`

	// Subtitle is the language's name in itself.
	Subtitle string `json:"subtitle" msgpack:"subtitle"`

	// Category groups languages for display.
	Category string `json:"category" msgpack:"category"`

	// AnnotationInstructions is extra guidance appended to the tool
	// description for this language, e.g. reading annotations for
	// Japanese.
	AnnotationInstructions string `json:"annotation_instructions,omitempty" msgpack:"annotation_instructions,omitempty"`
}

// Language categories.
const (
	CategoryEuropean  = "european"
	CategoryEastAsian = "east-asian"
)

// Languages is the registry of selectable languages.
var Languages = []Language{
	{ID: "english", Name: "English", Code: "en", Subtitle: "English", Category: CategoryEuropean},
	{ID: "spanish", Name: "Spanish", Code: "es", Subtitle: "Español", Category: CategoryEuropean},
	{
		ID: "japanese", Name: "Japanese", Code: "ja", Subtitle: "日本語", Category: CategoryEastAsian,
		AnnotationInstructions: "Append hiragana readings in parentheses after any kanji compounds.",
	},
	{ID: "french", Name: "French", Code: "fr", Subtitle: "Français", Category: CategoryEuropean},
	{ID: "german", Name: "German", Code: "de", Subtitle: "Deutsch", Category: CategoryEuropean},
	{
		ID: "chinese", Name: "Chinese", Code: "zh", Subtitle: "中文", Category: CategoryEastAsian,
		AnnotationInstructions: "Use simplified characters.",
	},
	{ID: "korean", Name: "Korean", Code: "ko", Subtitle: "한국어", Category: CategoryEastAsian},
	{ID: "italian", Name: "Italian", Code: "it", Subtitle: "Italiano", Category: CategoryEuropean},
	{ID: "portuguese", Name: "Portuguese", Code: "pt", Subtitle: "Português", Category: CategoryEuropean},
	{ID: "russian", Name: "Russian", Code: "ru", Subtitle: "Русский", Category: CategoryEuropean},
}

// FindLanguage looks up a language by wire code or registry id.
func FindLanguage(codeOrID string) (Language, bool) {
	for _, l := range Languages {
		if l.Code == codeOrID || l.ID == codeOrID {
			return l, true
		}
	}
	return Language{}, false
}

// Default language pair.
var (
	DefaultLanguage1 = Languages[0] // English
	DefaultLanguage2 = Languages[2] // Japanese
)
