package domain

import "fmt"

// Stage names one step of the pipeline. Each persisted stage owns one
// artifact per document.
type Stage string

// Pipeline stages, in order.
const (
	// StageRawText is the text extracted from the source PDF.
	StageRawText Stage = "raw_text"

	// StageTranslatedText is the raw text translated to English.
	StageTranslatedText Stage = "translated_text"

	// StageRelevantExcerpt is derived from translated text on demand and never persisted.
	StageRelevantExcerpt Stage = "relevant_excerpt"

	// StageStructuredResult is the validated extraction result.
	StageStructuredResult Stage = "structured_result"

	// StageFlattenedRows holds the flat rows produced for the document.
	StageFlattenedRows Stage = "flattened_rows"
)

var stageOrder = []Stage{
	StageRawText,
	StageTranslatedText,
	StageRelevantExcerpt,
	StageStructuredResult,
	StageFlattenedRows,
}

// Stages returns all stages in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// PersistedStages returns the stages that own artifacts, in pipeline order.
func PersistedStages() []Stage {
	out := make([]Stage, 0, len(stageOrder))
	for _, s := range stageOrder {
		if s.Persisted() {
			out = append(out, s)
		}
	}
	return out
}

// IsValid returns true if the stage is recognised.
func (s Stage) IsValid() bool {
	return s.Index() >= 0
}

// Index returns the position of the stage in pipeline order, or -1.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Persisted reports whether the stage is stored in the artifact store.
func (s Stage) Persisted() bool {
	return s.IsValid() && s != StageRelevantExcerpt
}

// Previous returns the closest earlier persisted stage.
// The second value is false for the first stage.
func (s Stage) Previous() (Stage, bool) {
	for i := s.Index() - 1; i >= 0; i-- {
		if stageOrder[i].Persisted() {
			return stageOrder[i], true
		}
	}
	return "", false
}

// Extension returns the file extension used when the artifact is stored as a file.
func (s Stage) Extension() string {
	switch s {
	case StageRawText, StageTranslatedText, StageRelevantExcerpt:
		return ".txt"
	default:
		return ".json"
	}
}

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// ParseStage converts a stage name into a Stage.
func ParseStage(name string) (Stage, error) {
	s := Stage(name)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: stage %q", ErrUnsupportedType, name)
	}
	return s, nil
}
