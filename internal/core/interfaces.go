// Package core defines the core business logic and interfaces for beatlab.
package core

import (
	"context"
	"io"
	"time"
)

// Voice describes one voice available from the hosted voice API.
type Voice struct {
	ID         string `json:"voice_id"`
	Name       string `json:"name"`
	Category   string `json:"category,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// SpeechRequest holds the parameters for a single text-to-speech call.
// Zero-valued tuning fields are replaced with the hosted API's defaults.
type SpeechRequest struct {
	Text            string
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
}

// ComposeRequest holds the parameters for a music-composition call.
type ComposeRequest struct {
	Prompt   string
	LengthMS int
}

// CloneSample is one uploaded voice sample, already spooled to local disk.
type CloneSample struct {
	Path     string
	Filename string
}

// CloneRequest holds the parameters for a voice-cloning call.
type CloneRequest struct {
	Name        string
	Description string
	Samples     []CloneSample
}

// VoiceService is implemented by clients of the hosted voice API.
type VoiceService interface {
	Voices(ctx context.Context) ([]Voice, error)
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
	CloneVoice(ctx context.Context, req CloneRequest) (Voice, error)
}

// MusicService is implemented by clients of the hosted music API.
type MusicService interface {
	Compose(ctx context.Context, req ComposeRequest) ([]byte, error)
	IsolateVocals(ctx context.Context, audio []byte, filename string) ([]byte, error)
}

// StoredFile describes one artifact in the temp-file store.
type StoredFile struct {
	Name string `json:"filename"`
	Path string `json:"-"`
	Size int64  `json:"size"`
}

// BlobStore is the temp-file store the HTTP handlers write artifacts through.
// Allocate reserves a name and path without creating the file, for tools that
// write their own output.
type BlobStore interface {
	Save(prefix, ext string, data []byte) (StoredFile, error)
	SaveUpload(prefix string, src io.Reader, origName string) (StoredFile, error)
	Allocate(prefix, ext string) (StoredFile, error)
	Resolve(name string) (string, error)
	Remove(name string) error
	Sweep(maxAge time.Duration) (int, error)
}

// Mixer blends a beat and a vocal track into a new file on disk.
type Mixer interface {
	Duration(ctx context.Context, path string) (float64, error)
	MixLoop(ctx context.Context, beatPath, vocalPath, outPath string, beatVol, vocalVol float64) error
}
