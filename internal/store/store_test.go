// Package store_test tests the temp-file store.
package store_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/beatlab/internal/store"
	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	lg, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	return lg
}

func createTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.New(t.TempDir(), createTestLogger(t))
	require.NoError(t, err)

	return st
}

func TestSaveNamesFilesWithPrefixAndExtension(t *testing.T) {
	t.Parallel()

	st := createTestStore(t)

	saved, err := st.Save(store.PrefixVocals, ".mp3", []byte("audio"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(saved.Name, "vocals-"))
	assert.True(t, strings.HasSuffix(saved.Name, ".mp3"))
	assert.Equal(t, int64(5), saved.Size)
	assert.FileExists(t, saved.Path)

	other, err := st.Save(store.PrefixVocals, ".mp3", []byte("audio"))
	require.NoError(t, err)
	assert.NotEqual(t, saved.Name, other.Name)
}

func TestSaveRejectsUnknownPrefixAndBadExtension(t *testing.T) {
	t.Parallel()

	st := createTestStore(t)

	_, err := st.Save("scratch", ".mp3", []byte("x"))
	assert.ErrorIs(t, err, store.ErrUnknownPrefix)

	_, err = st.Save(store.PrefixBeat, "mp3", []byte("x"))
	assert.ErrorIs(t, err, store.ErrBadExtension)
}

func TestAllocateReservesNameWithoutCreatingFile(t *testing.T) {
	t.Parallel()

	st := createTestStore(t)

	allocated, err := st.Allocate(store.PrefixMixed, ".mp3")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(allocated.Name, "mixed-"))
	assert.Equal(t, filepath.Join(st.Dir(), allocated.Name), allocated.Path)
	assert.NoFileExists(t, allocated.Path)

	_, err = st.Allocate("scratch", ".mp3")
	assert.ErrorIs(t, err, store.ErrUnknownPrefix)
}

func TestSaveUploadTakesExtensionFromOriginalName(t *testing.T) {
	t.Parallel()

	st := createTestStore(t)

	saved, err := st.SaveUpload(store.PrefixBeat, bytes.NewReader([]byte("beat data")), "My Beat.WAV")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(saved.Name, "beat-"))
	assert.True(t, strings.HasSuffix(saved.Name, ".wav"))
	assert.Equal(t, int64(9), saved.Size)
}

func TestSaveUploadRejectsNonAudioExtension(t *testing.T) {
	t.Parallel()

	st := createTestStore(t)

	_, err := st.SaveUpload(store.PrefixBeat, bytes.NewReader([]byte("x")), "notes.txt")
	assert.ErrorIs(t, err, store.ErrUnsupportedExt)

	_, err = st.SaveUpload(store.PrefixBeat, bytes.NewReader([]byte("x")), "noext")
	assert.ErrorIs(t, err, store.ErrUnsupportedExt)
}

func TestResolveRejectsTraversal(t *testing.T) {
	t.Parallel()

	st := createTestStore(t)

	unsafe := []string{
		"",
		"../passwd",
		"a/b.mp3",
		"..",
		"beat-x/../../etc",
	}
	for _, name := range unsafe {
		_, err := st.Resolve(name)
		assert.ErrorIs(t, err, store.ErrUnsafeName, "name %q", name)
	}
}

func TestResolveDistinguishesMissingFiles(t *testing.T) {
	t.Parallel()

	st := createTestStore(t)

	_, err := st.Resolve("beat-missing.mp3")
	assert.ErrorIs(t, err, store.ErrFileNotFound)

	saved, err := st.Save(store.PrefixBeat, ".mp3", []byte("x"))
	require.NoError(t, err)

	path, err := st.Resolve(saved.Name)
	require.NoError(t, err)
	assert.Equal(t, saved.Path, path)
}

func TestRemoveDeletesStoredFile(t *testing.T) {
	t.Parallel()

	st := createTestStore(t)

	saved, err := st.Save(store.PrefixStems, ".mp3", []byte("stem"))
	require.NoError(t, err)

	require.NoError(t, st.Remove(saved.Name))
	assert.NoFileExists(t, saved.Path)

	err = st.Remove(saved.Name)
	assert.ErrorIs(t, err, store.ErrFileNotFound)
}

func TestSweepRemovesOnlyOldFiles(t *testing.T) {
	t.Parallel()

	st := createTestStore(t)

	old, err := st.Save(store.PrefixMixed, ".mp3", []byte("old"))
	require.NoError(t, err)

	fresh, err := st.Save(store.PrefixMixed, ".mp3", []byte("fresh"))
	require.NoError(t, err)

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old.Path, stale, stale))

	removed, err := st.Sweep(time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old.Path)
	assert.FileExists(t, fresh.Path)
}

func TestSweepIgnoresSubdirectories(t *testing.T) {
	t.Parallel()

	st := createTestStore(t)

	subdir := filepath.Join(st.Dir(), "nested")
	require.NoError(t, os.Mkdir(subdir, 0o750))

	removed, err := st.Sweep(0)
	require.NoError(t, err)

	assert.Equal(t, 0, removed)
	assert.DirExists(t, subdir)
}
