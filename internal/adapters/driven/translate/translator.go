package translate

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// targetLanguage is the language every document is translated into.
const targetLanguage = "en"

// Ensure GatedTranslator implements the interface.
var _ driven.Translator = (*GatedTranslator)(nil)

// chunkTranslator translates one chunk between two languages.
type chunkTranslator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// GatedTranslator detects a document's language and translates only the
// configured languages. Other text, English included, passes through.
type GatedTranslator struct {
	detector  driven.LanguageDetector
	client    chunkTranslator
	languages map[string]bool
	chunkSize int
}

// NewGatedTranslator creates a translator. A chunk size below 1 uses
// domain.DefaultChunkSize.
func NewGatedTranslator(detector driven.LanguageDetector, client chunkTranslator, languages []string, chunkSize int) *GatedTranslator {
	if chunkSize < 1 {
		chunkSize = domain.DefaultChunkSize
	}
	set := make(map[string]bool, len(languages))
	for _, l := range languages {
		set[strings.ToLower(strings.TrimSpace(l))] = true
	}
	return &GatedTranslator{
		detector:  detector,
		client:    client,
		languages: set,
		chunkSize: chunkSize,
	}
}

// New builds the translator selected by settings. Passthrough mode returns
// nil, which the pipeline treats as a copy of the raw text.
func New(settings domain.TranslationSettings) (driven.Translator, error) {
	switch settings.Mode {
	case domain.TranslationPassthrough, "":
		return nil, nil
	case domain.TranslationLibreTranslate:
		return NewGatedTranslator(
			NewLinguaDetector(settings.Languages...),
			NewLibreTranslateClient(settings.URL, settings.APIKey, 0),
			settings.Languages,
			settings.ChunkSize,
		), nil
	default:
		return nil, fmt.Errorf("%w: translation mode %q", domain.ErrUnsupportedType, settings.Mode)
	}
}

// Translate returns the English text of a document.
func (t *GatedTranslator) Translate(ctx context.Context, text string) (string, error) {
	lang, ok := t.detector.Detect(text)
	if !ok || !t.languages[lang] {
		logger.Debug("language %q: passing text through", lang)
		return text, nil
	}

	chunks := Chunks(text, t.chunkSize)
	var out strings.Builder
	out.Grow(len(text))
	for i, chunk := range chunks {
		translated, err := t.client.Translate(ctx, chunk, lang, targetLanguage)
		if err != nil {
			return "", fmt.Errorf("translate chunk %d/%d from %s: %w", i+1, len(chunks), lang, err)
		}
		out.WriteString(translated)
	}
	return out.String(), nil
}

// Chunks splits text into pieces of at most size runes. A piece ends after
// the last newline in its window when there is one, so lines stay whole.
func Chunks(text string, size int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for len(text) > 0 {
		if utf8.RuneCountInString(text) <= size {
			chunks = append(chunks, text)
			break
		}
		end := byteOffset(text, size)
		if nl := strings.LastIndexByte(text[:end], '\n'); nl > 0 {
			end = nl + 1
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	return chunks
}

// byteOffset returns the byte index after the first n runes of s.
func byteOffset(s string, n int) int {
	i := 0
	for n > 0 && i < len(s) {
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
		n--
	}
	return i
}
