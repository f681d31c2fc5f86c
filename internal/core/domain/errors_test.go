package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrMissingInput", ErrMissingInput},
		{"ErrExtractionFailed", ErrExtractionFailed},
		{"ErrMissingMetadata", ErrMissingMetadata},
		{"ErrWriteFailed", ErrWriteFailed},
		{"ErrBackendUnavailable", ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestMissingInputError_Is(t *testing.T) {
	err := fmt.Errorf("run stage: %w", &MissingInputError{Document: "s1_abc", Stage: StageTranslatedText})

	assert.True(t, errors.Is(err, ErrMissingInput))
	assert.False(t, errors.Is(err, ErrWriteFailed))
	assert.Contains(t, err.Error(), "s1_abc")
	assert.Contains(t, err.Error(), "translated_text")

	var mi *MissingInputError
	require.True(t, errors.As(err, &mi))
	assert.Equal(t, StageTranslatedText, mi.Stage)
}

func TestWriteError_UnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := &WriteError{Document: "s1_abc", Stage: StageStructuredResult, Err: cause}

	assert.True(t, errors.Is(err, ErrWriteFailed))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "disk full")
}

func TestMissingMetadataError_Is(t *testing.T) {
	err := &MissingMetadataError{Document: "s9_000"}
	assert.True(t, errors.Is(err, ErrMissingMetadata))
	assert.Contains(t, err.Error(), "s9_000")
}

func TestExtractionFailedError(t *testing.T) {
	t.Run("lists attempts", func(t *testing.T) {
		timeout := NewTransientError("ollama", errors.New("timeout"))
		invalid := errors.New("assets is not an array")
		err := &ExtractionFailedError{Document: "s1_abc", Attempts: []error{timeout, invalid}}

		assert.True(t, errors.Is(err, ErrExtractionFailed))
		assert.True(t, errors.Is(err, invalid))
		assert.Contains(t, err.Error(), "attempt 1")
		assert.Contains(t, err.Error(), "attempt 2")

		var be *BackendError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, "ollama", be.Backend)
	})

	t.Run("without attempts", func(t *testing.T) {
		err := &ExtractionFailedError{Document: "s1_abc"}
		assert.Equal(t, "extraction failed: s1_abc", err.Error())
	})
}

func TestBackendError_Classification(t *testing.T) {
	transient := NewTransientError("openai", errors.New("status 429"))
	permanent := NewPermanentError("openai", errors.New("status 401"))

	assert.True(t, transient.Transient())
	assert.False(t, permanent.Transient())
	assert.True(t, IsTransient(fmt.Errorf("call: %w", transient)))
	assert.False(t, IsTransient(fmt.Errorf("call: %w", permanent)))
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestBackendError_Message(t *testing.T) {
	err := &BackendError{Backend: "anthropic", Class: FailureTransient, StatusCode: 529, Err: errors.New("overloaded")}
	assert.Equal(t, "anthropic: transient failure (status 529): overloaded", err.Error())

	err = NewPermanentError("ollama", errors.New("bad request"))
	assert.Equal(t, "ollama: permanent failure: bad request", err.Error())
}
