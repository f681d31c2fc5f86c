package driven

import "context"

// Translator turns raw document text into English text.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// LanguageDetector identifies the language of a text.
type LanguageDetector interface {
	// Detect returns the ISO 639-1 code of the text's language.
	// The second value is false when the language cannot be determined.
	Detect(text string) (string, bool)
}
