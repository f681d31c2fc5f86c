// Package translate turns raw permit text into English before extraction.
package translate

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// detectSampleRunes bounds how much text is used for language detection.
const detectSampleRunes = 2000

// Ensure LinguaDetector implements the interface.
var _ driven.LanguageDetector = (*LinguaDetector)(nil)

// LinguaDetector detects languages with lingua-go, restricted to English
// and the given languages.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector for English plus the ISO 639-1 codes
// given. Unknown codes are ignored.
func NewLinguaDetector(codes ...string) *LinguaDetector {
	languages := []lingua.Language{lingua.English}
	for _, code := range codes {
		if lang, ok := languageFor(code); ok && lang != lingua.English {
			languages = append(languages, lang)
		}
	}
	if len(languages) < 2 {
		// lingua needs at least two candidates.
		languages = append(languages, lingua.French)
	}
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(languages...).Build(),
	}
}

// Detect returns the lowercase ISO 639-1 code of the text's language.
func (d *LinguaDetector) Detect(text string) (string, bool) {
	sample := text
	if r := []rune(text); len(r) > detectSampleRunes {
		sample = string(r[:detectSampleRunes])
	}
	if strings.TrimSpace(sample) == "" {
		return "", false
	}
	lang, ok := d.detector.DetectLanguageOf(sample)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

func languageFor(code string) (lingua.Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, lang := range lingua.AllLanguages() {
		if strings.ToLower(lang.IsoCode639_1().String()) == code {
			return lang, true
		}
	}
	return lingua.Unknown, false
}
