// Package store provides the shared temp-file store for audio artifacts.
//
// Every uploaded, generated, or mixed file lives flat in one directory under a
// randomly generated name with a type prefix. Names are opaque references: the
// HTTP layer hands them to clients and resolves them back to paths here. There
// is no locking and no reference counting; the only lifecycle guarantee is the
// best-effort age-based sweep.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/beatlab/internal/core"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
)

// File permissions for stored artifacts and the store directory.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Artifact name prefixes. Every file in the store carries exactly one.
const (
	PrefixVocals   = "vocals"
	PrefixBeat     = "beat"
	PrefixMixed    = "mixed"
	PrefixFullSong = "fullsong"
	PrefixStems    = "stems"
)

// Static errors.
var (
	ErrUnknownPrefix  = errors.New("unknown artifact prefix")
	ErrBadExtension   = errors.New("extension must start with a dot")
	ErrUnsafeName     = errors.New("file name is not a plain store entry")
	ErrFileNotFound   = errors.New("file not found in store")
	ErrUnsupportedExt = errors.New("unsupported audio file extension")
)

// validPrefixes is the allow-list for Save calls.
var validPrefixes = map[string]bool{
	PrefixVocals:   true,
	PrefixBeat:     true,
	PrefixMixed:    true,
	PrefixFullSong: true,
	PrefixStems:    true,
}

// audioExtensions is the allow-list for uploaded file extensions.
var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
}

// Store is a flat directory of prefixed, randomly named audio files.
type Store struct {
	dir string
	log *logger.Logger
}

// New creates the store directory if needed and returns a Store rooted there.
func New(dir string, log *logger.Logger) (*Store, error) {
	err := ensureDir(dir)
	if err != nil {
		return nil, err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve absolute path for %q: %w", dir, err)
	}

	return &Store{dir: absDir, log: log}, nil
}

// Dir returns the absolute store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under a fresh "<prefix>-<uuid><ext>" name and returns the
// stored file's name, path, and size.
func (s *Store) Save(prefix, ext string, data []byte) (core.StoredFile, error) {
	if !validPrefixes[prefix] {
		return core.StoredFile{}, fmt.Errorf("%w: %q", ErrUnknownPrefix, prefix)
	}

	if !strings.HasPrefix(ext, ".") {
		return core.StoredFile{}, fmt.Errorf("%w: %q", ErrBadExtension, ext)
	}

	name := prefix + "-" + uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	err := os.WriteFile(path, data, filePermissions)
	if err != nil {
		return core.StoredFile{}, fmt.Errorf("failed to write %s: %w", name, err)
	}

	return core.StoredFile{Name: name, Path: path, Size: int64(len(data))}, nil
}

// Allocate reserves a fresh name and path without creating the file, for
// subprocesses such as ffmpeg that write their own output.
func (s *Store) Allocate(prefix, ext string) (core.StoredFile, error) {
	if !validPrefixes[prefix] {
		return core.StoredFile{}, fmt.Errorf("%w: %q", ErrUnknownPrefix, prefix)
	}

	if !strings.HasPrefix(ext, ".") {
		return core.StoredFile{}, fmt.Errorf("%w: %q", ErrBadExtension, ext)
	}

	name := prefix + "-" + uuid.NewString() + ext

	return core.StoredFile{Name: name, Path: filepath.Join(s.dir, name)}, nil
}

// SaveUpload streams an uploaded file into the store, taking the extension
// from the sanitized original filename. Extensions outside the audio
// allow-list are rejected before any bytes are written.
func (s *Store) SaveUpload(prefix string, src io.Reader, origName string) (core.StoredFile, error) {
	if !validPrefixes[prefix] {
		return core.StoredFile{}, fmt.Errorf("%w: %q", ErrUnknownPrefix, prefix)
	}

	ext := strings.ToLower(filepath.Ext(sanitizeFilename(filepath.Base(origName))))
	if !audioExtensions[ext] {
		return core.StoredFile{}, fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
	}

	name := prefix + "-" + uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if err != nil {
		return core.StoredFile{}, fmt.Errorf("failed to create %s: %w", name, err)
	}

	written, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()

	if copyErr != nil {
		s.removeQuietly(path)

		return core.StoredFile{}, fmt.Errorf("failed to write %s: %w", name, copyErr)
	}

	if closeErr != nil {
		s.removeQuietly(path)

		return core.StoredFile{}, fmt.Errorf("failed to close %s: %w", name, closeErr)
	}

	return core.StoredFile{Name: name, Path: path, Size: written}, nil
}

// Resolve maps a client-supplied name back to an absolute path inside the
// store. Names containing separators or traversal, and names whose resolved
// path escapes the store directory, are rejected. A missing file is reported
// as ErrFileNotFound so handlers can answer 404.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}

	path := filepath.Join(s.dir, name)

	rel, err := filepath.Rel(s.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrFileNotFound, name)
		}

		return "", fmt.Errorf("failed to stat %s: %w", name, err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}

	return path, nil
}

// Remove deletes one stored file. Intermediate artifacts (a full song whose
// vocals were successfully isolated, clone samples) go through here.
func (s *Store) Remove(name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	return nil
}

// Sweep deletes regular files whose modification time is older than maxAge
// and returns how many were removed. Per-file failures are logged and
// skipped; the sweep keeps going.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read store directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			s.log.Warn("Skipping %s during sweep: %v", entry.Name(), infoErr)

			continue
		}

		if info.ModTime().After(cutoff) {
			continue
		}

		removeErr := os.Remove(filepath.Join(s.dir, entry.Name()))
		if removeErr != nil {
			s.log.Warn("Failed to sweep %s: %v", entry.Name(), removeErr)

			continue
		}

		removed++
	}

	return removed, nil
}

func (s *Store) removeQuietly(path string) {
	err := os.Remove(path)
	if err != nil {
		s.log.Warn("Failed to remove partial file %s: %v", path, err)
	}
}

// ensureDir ensures a directory exists at the given path, creating it if it
// doesn't.
func ensureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, dirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, mkdirErr)
		}
	}

	return nil
}

// sanitizeFilename removes or replaces characters that are invalid in most
// filesystems.
func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", "_",
		">", "_",
		":", "_",
		"\"", "_",
		"/", "_",
		"\\", "_",
		"|", "_",
		"?", "_",
		"*", "_",
	)

	return replacer.Replace(filename)
}

// IsAudioFilename reports whether a filename carries one of the accepted
// audio extensions.
func IsAudioFilename(filename string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(filename))]
}
