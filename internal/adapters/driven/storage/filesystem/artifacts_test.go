package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

const testDocID domain.DocumentID = "site-1_0123456789ab"

func newTestStore(t *testing.T) *ArtifactStore {
	t.Helper()
	s, err := NewArtifactStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNewArtifactStore_CreatesLayout(t *testing.T) {
	s := newTestStore(t)
	for _, stage := range domain.PersistedStages() {
		assert.DirExists(t, filepath.Join(s.Root(), string(stage)))
	}
	assert.NoDirExists(t, filepath.Join(s.Root(), string(domain.StageRelevantExcerpt)))

	_, err := NewArtifactStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestArtifactStore_WriteRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exists, err := s.Exists(ctx, testDocID, domain.StageStructuredResult)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Read(ctx, testDocID, domain.StageStructuredResult)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	payload := []byte(`{"source":"site-1_0123456789ab","assets":[]}`)
	require.NoError(t, s.Write(ctx, testDocID, domain.StageStructuredResult, payload))

	assert.FileExists(t, filepath.Join(s.Root(), "structured_result", "site-1_0123456789ab.json"))
	got, err := s.Read(ctx, testDocID, domain.StageStructuredResult)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

// TestArtifactStore_NeverOverwrites tests that an existing artifact is kept
func TestArtifactStore_NeverOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, testDocID, domain.StageRawText, []byte("first")))
	err := s.Write(ctx, testDocID, domain.StageRawText, []byte("second"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.ErrorIs(t, err, domain.ErrWriteFailed)

	got, err := s.Read(ctx, testDocID, domain.StageRawText)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

// TestArtifactStore_NoTempFilesLeft tests that writes leave only the final file
func TestArtifactStore_NoTempFilesLeft(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, testDocID, domain.StageRawText, []byte("x")))
	_ = s.Write(ctx, testDocID, domain.StageRawText, []byte("y"))

	entries, err := os.ReadDir(filepath.Join(s.Root(), "raw_text"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "site-1_0123456789ab.txt", entries[0].Name())
}

// TestArtifactStore_StaleTempIgnored tests that an interrupted write is not an artifact
func TestArtifactStore_StaleTempIgnored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "raw_text"), 0o700))
	stale := filepath.Join(root, "raw_text", ".site-1_0123456789ab-123.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o600))

	s, err := NewArtifactStore(root)
	require.NoError(t, err)

	assert.NoFileExists(t, stale)
	exists, err := s.Exists(context.Background(), testDocID, domain.StageRawText)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestArtifactStore_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Write(ctx, testDocID, domain.StageRelevantExcerpt, []byte("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = s.Write(ctx, domain.DocumentID("../escape_0123456789ab"), domain.StageRawText, []byte("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Read(ctx, domain.DocumentID("nope"), domain.StageRawText)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestArtifactStore_List(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []domain.DocumentID{"b_000000000002", "a_000000000001"} {
		require.NoError(t, s.Write(ctx, id, domain.StageTranslatedText, []byte("x")))
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "translated_text", "README.md"), []byte("x"), 0o600))

	ids, err := s.List(ctx, domain.StageTranslatedText)
	require.NoError(t, err)
	assert.Equal(t, []domain.DocumentID{"a_000000000001", "b_000000000002"}, ids)

	empty, err := s.List(ctx, domain.StageFlattenedRows)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestArtifactStore_ConcurrentWriters tests that exactly one concurrent writer of a key wins
func TestArtifactStore_ConcurrentWriters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Write(ctx, testDocID, domain.StageRawText, []byte(fmt.Sprintf("writer %d", i)))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	}
	assert.Equal(t, 1, wins)

	got, err := s.Read(ctx, testDocID, domain.StageRawText)
	require.NoError(t, err)
	assert.Contains(t, string(got), "writer ")
}
