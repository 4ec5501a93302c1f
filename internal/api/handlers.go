package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/book-expert/beatlab/internal/beat"
	"github.com/book-expert/beatlab/internal/core"
	"github.com/book-expert/beatlab/internal/mixer"
	"github.com/book-expert/beatlab/internal/store"
)

// Fixed response messages.
const (
	msgNoAudioFile    = "no audio file provided"
	msgFileTooLarge   = "file too large"
	msgBadFileType    = "unsupported file type"
	msgEmptyLyrics    = "lyrics must not be empty"
	msgNameRequired   = "voice name is required"
	msgNoSamples      = "at least one sample file is required"
	msgFfmpegMissing  = "ffmpeg is not installed on the server"
	msgMixFailed      = "failed to mix tracks"
	msgStoreFailed    = "failed to store audio file"
	msgFileNotFound   = "file not found"
	defaultSampleName = "sample"

	uploadField  = "audio"
	samplesField = "samples"

	filesRoute = "/api/files/"
)

// Vocal source markers returned by generate-vocals.
const (
	sourceTTS      = "tts"
	sourceStems    = "stems"
	sourceFullSong = "fullsong"
)

type generateVocalsRequest struct {
	Lyrics  string `json:"lyrics"  binding:"required"`
	VoiceID string `json:"voice_id"`
	Genre   string `json:"genre"`
	Mood    string `json:"mood"`
}

type generateMusicRequest struct {
	Prompt        string `json:"prompt"`
	Genre         string `json:"genre"`
	Mood          string `json:"mood"`
	LengthSeconds int    `json:"length_seconds"`
}

type mixRequest struct {
	BeatFile    string   `json:"beat_file"  binding:"required"`
	VocalFile   string   `json:"vocal_file" binding:"required"`
	BeatVolume  *float64 `json:"beat_volume"`
	VocalVolume *float64 `json:"vocal_volume"`
}

type uploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type trackResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Source   string `json:"source,omitempty"`
}

type renderResponse struct {
	URL             string  `json:"url"`
	Filename        string  `json:"filename"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type cloneResponse struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleVoices(c *gin.Context) {
	voices, err := s.voices.Voices(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusBadGateway, err.Error())

		return
	}

	c.JSON(http.StatusOK, gin.H{"voices": voices})
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, msgNoAudioFile)

		return
	}

	if fileHeader.Size > s.maxUploadBytes {
		s.respondError(c, http.StatusRequestEntityTooLarge, msgFileTooLarge)

		return
	}

	if !store.IsAudioFilename(fileHeader.Filename) {
		s.respondError(c, http.StatusBadRequest, msgBadFileType)

		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, msgStoreFailed)

		return
	}
	defer s.closeQuietly(src)

	stored, err := s.store.SaveUpload(store.PrefixBeat, src, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, store.ErrUnsupportedExt) {
			s.respondError(c, http.StatusBadRequest, msgBadFileType)

			return
		}

		s.respondError(c, http.StatusInternalServerError, msgStoreFailed)

		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		URL:      fileURL(stored.Name),
		Filename: stored.Name,
		Size:     stored.Size,
	})
}

func (s *Server) handleGenerateVocals(c *gin.Context) {
	var req generateVocalsRequest

	err := c.ShouldBindJSON(&req)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())

		return
	}

	lyrics := normalizeLyrics(req.Lyrics)
	if lyrics == "" {
		s.respondError(c, http.StatusBadRequest, msgEmptyLyrics)

		return
	}

	if req.VoiceID != "" {
		s.synthesizeVocals(c, lyrics, req.VoiceID)

		return
	}

	s.extractVocalsFromSong(c, lyrics, req.Genre, req.Mood)
}

// synthesizeVocals is the direct path: a chosen voice reads the lyrics.
func (s *Server) synthesizeVocals(c *gin.Context, lyrics, voiceID string) {
	audio, err := s.voices.Synthesize(c.Request.Context(), core.SpeechRequest{
		Text:    lyrics,
		VoiceID: voiceID,
	})
	if err != nil {
		s.respondError(c, http.StatusBadGateway, err.Error())

		return
	}

	stored, err := s.store.Save(store.PrefixVocals, ".mp3", audio)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, msgStoreFailed)

		return
	}

	c.JSON(http.StatusOK, trackResponse{
		URL:      fileURL(stored.Name),
		Filename: stored.Name,
		Source:   sourceTTS,
	})
}

// extractVocalsFromSong composes a full song from the lyrics and tries to
// isolate its vocal stem. If isolation fails the full song is kept and
// returned instead, so the client always gets something singable.
func (s *Server) extractVocalsFromSong(c *gin.Context, lyrics, genre, mood string) {
	ctx := c.Request.Context()

	song, err := s.music.Compose(ctx, core.ComposeRequest{
		Prompt: buildVocalPrompt(genre, mood, lyrics),
	})
	if err != nil {
		s.respondError(c, http.StatusBadGateway, err.Error())

		return
	}

	fullSong, err := s.store.Save(store.PrefixFullSong, ".mp3", song)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, msgStoreFailed)

		return
	}

	stem, err := s.music.IsolateVocals(ctx, song, fullSong.Name)
	if err != nil || len(stem) == 0 {
		s.log.Warn("Vocal isolation failed, returning full song: %v", err)
		c.JSON(http.StatusOK, trackResponse{
			URL:      fileURL(fullSong.Name),
			Filename: fullSong.Name,
			Source:   sourceFullSong,
		})

		return
	}

	stored, err := s.store.Save(store.PrefixStems, ".mp3", stem)
	if err != nil {
		s.log.Warn("Could not store vocal stem, returning full song: %v", err)
		c.JSON(http.StatusOK, trackResponse{
			URL:      fileURL(fullSong.Name),
			Filename: fullSong.Name,
			Source:   sourceFullSong,
		})

		return
	}

	s.discard(fullSong.Name)

	c.JSON(http.StatusOK, trackResponse{
		URL:      fileURL(stored.Name),
		Filename: stored.Name,
		Source:   sourceStems,
	})
}

func (s *Server) handleGenerateMusic(c *gin.Context) {
	var req generateMusicRequest

	err := c.ShouldBindJSON(&req)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())

		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = buildMusicPrompt(req.Genre, req.Mood)
	}

	audio, err := s.music.Compose(c.Request.Context(), core.ComposeRequest{
		Prompt:   prompt,
		LengthMS: req.LengthSeconds * 1000,
	})
	if err != nil {
		s.respondError(c, http.StatusBadGateway, err.Error())

		return
	}

	stored, err := s.store.Save(store.PrefixBeat, ".mp3", audio)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, msgStoreFailed)

		return
	}

	c.JSON(http.StatusOK, trackResponse{
		URL:      fileURL(stored.Name),
		Filename: stored.Name,
	})
}

func (s *Server) handleCloneVoice(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		s.respondError(c, http.StatusBadRequest, msgNameRequired)

		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())

		return
	}

	files := form.File[samplesField]
	if len(files) == 0 {
		s.respondError(c, http.StatusBadRequest, msgNoSamples)

		return
	}

	samples, cleanup, err := s.spoolSamples(files)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err.Error())

		return
	}
	defer cleanup()

	voice, err := s.voices.CloneVoice(c.Request.Context(), core.CloneRequest{
		Name:        name,
		Description: c.PostForm("description"),
		Samples:     samples,
	})
	if err != nil {
		s.respondError(c, http.StatusBadGateway, err.Error())

		return
	}

	c.JSON(http.StatusOK, cloneResponse{VoiceID: voice.ID, Name: voice.Name})
}

func (s *Server) handleMix(c *gin.Context) {
	var req mixRequest

	err := c.ShouldBindJSON(&req)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())

		return
	}

	beatPath, ok := s.resolveStored(c, req.BeatFile, "beat file")
	if !ok {
		return
	}

	vocalPath, ok := s.resolveStored(c, req.VocalFile, "vocal file")
	if !ok {
		return
	}

	out, err := s.store.Allocate(store.PrefixMixed, ".mp3")
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, msgStoreFailed)

		return
	}

	ctx := c.Request.Context()

	err = s.mixer.MixLoop(
		ctx,
		beatPath,
		vocalPath,
		out.Path,
		volumeOrDefault(req.BeatVolume),
		volumeOrDefault(req.VocalVolume),
	)
	if err != nil {
		s.discard(out.Name)

		if mixer.IsNotInstalled(err) {
			s.respondError(c, http.StatusInternalServerError, msgFfmpegMissing)

			return
		}

		s.log.Error("Mix failed: %v", err)
		s.respondError(c, http.StatusInternalServerError, msgMixFailed)

		return
	}

	duration, err := s.mixer.Duration(ctx, out.Path)
	if err != nil {
		s.log.Warn("Could not probe mixed file %s: %v", out.Name, err)
	}

	c.JSON(http.StatusOK, renderResponse{
		URL:             fileURL(out.Name),
		Filename:        out.Name,
		DurationSeconds: duration,
	})
}

func (s *Server) handleRenderBeat(c *gin.Context) {
	var pattern beat.Pattern

	err := c.ShouldBindJSON(&pattern)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())

		return
	}

	data, duration, err := beat.RenderWAV(pattern)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())

		return
	}

	stored, err := s.store.Save(store.PrefixBeat, ".wav", data)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, msgStoreFailed)

		return
	}

	c.JSON(http.StatusOK, renderResponse{
		URL:             fileURL(stored.Name),
		Filename:        stored.Name,
		DurationSeconds: duration,
	})
}

func (s *Server) handleRandomBeat(c *gin.Context) {
	c.JSON(http.StatusOK, beat.Compose(c.Query("genre"), nil))
}

func (s *Server) handleCleanup(c *gin.Context) {
	removed, err := s.store.Sweep(s.sweepMaxAge)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err.Error())

		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) handleFile(c *gin.Context) {
	path, err := s.store.Resolve(c.Param("name"))
	if err != nil {
		if errors.Is(err, store.ErrFileNotFound) {
			s.respondError(c, http.StatusNotFound, msgFileNotFound)

			return
		}

		s.respondError(c, http.StatusBadRequest, err.Error())

		return
	}

	c.File(path)
}

// resolveStored maps a stored-file name to its path, answering the request
// itself when the name is missing or malformed.
func (s *Server) resolveStored(c *gin.Context, name, label string) (string, bool) {
	path, err := s.store.Resolve(name)
	if err == nil {
		return path, true
	}

	switch {
	case errors.Is(err, store.ErrFileNotFound):
		s.respondError(c, http.StatusNotFound, label+" not found")
	case errors.Is(err, store.ErrUnsafeName):
		s.respondError(c, http.StatusBadRequest, "invalid "+label+" name")
	default:
		s.respondError(c, http.StatusInternalServerError, "could not access "+label)
	}

	return "", false
}

// spoolSamples copies uploaded clone samples to local temp files so the API
// client can stream them. The returned cleanup removes every spooled file and
// runs on success and failure alike.
func (s *Server) spoolSamples(files []*multipart.FileHeader) ([]core.CloneSample, func(), error) {
	samples := make([]core.CloneSample, 0, len(files))

	cleanup := func() {
		for _, sample := range samples {
			removeErr := os.Remove(sample.Path)
			if removeErr != nil {
				s.log.Warn("Failed to remove clone sample %s: %v", sample.Path, removeErr)
			}
		}
	}

	for _, fileHeader := range files {
		path, err := s.spoolOne(fileHeader)
		if err != nil {
			cleanup()

			return nil, nil, err
		}

		filename := fileHeader.Filename
		if filename == "" {
			filename = defaultSampleName
		}

		samples = append(samples, core.CloneSample{Path: path, Filename: filename})
	}

	return samples, cleanup, nil
}

func (s *Server) spoolOne(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open sample %s: %w", fileHeader.Filename, err)
	}
	defer s.closeQuietly(src)

	tempFile, err := os.CreateTemp("", "clone-sample-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary sample file: %w", err)
	}

	_, copyErr := io.Copy(tempFile, src)
	closeErr := tempFile.Close()

	if copyErr != nil {
		s.removeQuietly(tempFile.Name())

		return "", fmt.Errorf("failed to spool sample %s: %w", fileHeader.Filename, copyErr)
	}

	if closeErr != nil {
		s.removeQuietly(tempFile.Name())

		return "", fmt.Errorf("failed to close sample spool: %w", closeErr)
	}

	return tempFile.Name(), nil
}

// discard removes an intermediate artifact, logging instead of failing the
// request when the removal does not work out.
func (s *Server) discard(name string) {
	err := s.store.Remove(name)
	if err != nil && !errors.Is(err, store.ErrFileNotFound) {
		s.log.Warn("Failed to remove intermediate file %s: %v", name, err)
	}
}

func (s *Server) respondError(c *gin.Context, status int, message string) {
	s.log.Error("%s %s: %s", c.Request.Method, c.Request.URL.Path, message)
	c.JSON(status, gin.H{"error": message})
}

func (s *Server) closeQuietly(closer io.Closer) {
	err := closer.Close()
	if err != nil {
		s.log.Warn("Failed to close reader: %v", err)
	}
}

func (s *Server) removeQuietly(path string) {
	err := os.Remove(path)
	if err != nil {
		s.log.Warn("Failed to remove %s: %v", path, err)
	}
}

func volumeOrDefault(volume *float64) float64 {
	if volume == nil {
		return 1.0
	}

	return *volume
}

func fileURL(name string) string {
	return filesRoute + name
}
