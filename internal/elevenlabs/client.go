// Package elevenlabs provides the HTTP client for the hosted voice and music
// API. It covers the five operations beatlab delegates: voice listing,
// text-to-speech, music composition, vocal isolation, and voice cloning.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/beatlab/internal/core"
	"github.com/book-expert/logger"
)

// API endpoints and paths.
const (
	apiVoices         = "/v1/voices"
	apiVoicesAdd      = "/v1/voices/add"
	apiTextToSpeech   = "/v1/text-to-speech/"
	apiMusic          = "/v1/music"
	apiAudioIsolation = "/v1/audio-isolation"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerAPIKey      = "xi-api-key"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"
	audioTypePrefix   = "audio/"
)

// Multipart form field names.
const (
	formFieldAudio       = "audio"
	formFieldName        = "name"
	formFieldDescription = "description"
	formFieldFiles       = "files"
)

// Default values for speech and composition requests.
const (
	defaultModelID         = "eleven_multilingual_v2"
	defaultStability       = 0.5
	defaultSimilarityBoost = 0.75
	defaultComposeLengthMS = 30000
	minComposeLengthMS     = 10000
	maxComposeLengthMS     = 300000
)

// Static errors.
var (
	ErrAPIFailure     = errors.New("hosted audio API request failed")
	ErrTextEmpty      = errors.New("text cannot be empty")
	ErrVoiceIDEmpty   = errors.New("voice id cannot be empty")
	ErrPromptEmpty    = errors.New("prompt cannot be empty")
	ErrAudioEmpty     = errors.New("audio data cannot be empty")
	ErrNameEmpty      = errors.New("voice name cannot be empty")
	ErrNoSamples      = errors.New("at least one voice sample is required")
	ErrEmptyResponse  = errors.New("received empty audio data")
	ErrNotAudio       = errors.New("unexpected content type, expected audio")
	ErrVoiceIDMissing = errors.New("response did not contain a voice id")
)

// Client talks to the hosted voice/music API. All methods honor the passed
// context and the client-wide timeout, whichever fires first.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *logger.Logger
}

// speechPayload is the JSON body for text-to-speech requests.
type speechPayload struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// composePayload is the JSON body for music composition requests.
type composePayload struct {
	Prompt   string `json:"prompt"`
	LengthMS int    `json:"music_length_ms"`
}

type voicesResponse struct {
	Voices []core.Voice `json:"voices"`
}

type cloneResponse struct {
	VoiceID string `json:"voice_id"`
}

// New creates a client for the hosted API rooted at baseURL (protocol and
// host, e.g. "https://api.elevenlabs.io"). The timeout applies to every
// request made by this client.
func New(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Voices fetches the account's voice catalog.
func (c *Client) Voices(ctx context.Context) ([]core.Voice, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+apiVoices,
		http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}

	req.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach voice API at %s: %w", c.baseURL, err)
	}
	defer c.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var decoded voicesResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode voices response: %w", err)
	}

	return decoded.Voices, nil
}

// Synthesize converts text to speech with the given voice and returns the raw
// MP3 data. Zero-valued tuning fields fall back to the API defaults.
func (c *Client) Synthesize(ctx context.Context, req core.SpeechRequest) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	if req.VoiceID == "" {
		return nil, ErrVoiceIDEmpty
	}

	if req.ModelID == "" {
		req.ModelID = defaultModelID
	}

	if req.Stability == 0 {
		req.Stability = defaultStability
	}

	if req.SimilarityBoost == 0 {
		req.SimilarityBoost = defaultSimilarityBoost
	}

	payload := speechPayload{
		Text:    req.Text,
		ModelID: req.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       req.Stability,
			SimilarityBoost: req.SimilarityBoost,
		},
	}

	return c.postForAudio(ctx, apiTextToSpeech+req.VoiceID, payload)
}

// Compose asks the hosted API to write an instrumental or song from a prompt
// and returns the raw MP3 data. The length is clamped to the API's supported
// range and defaults to thirty seconds.
func (c *Client) Compose(ctx context.Context, req core.ComposeRequest) ([]byte, error) {
	if req.Prompt == "" {
		return nil, ErrPromptEmpty
	}

	if req.LengthMS == 0 {
		req.LengthMS = defaultComposeLengthMS
	}

	if req.LengthMS < minComposeLengthMS {
		req.LengthMS = minComposeLengthMS
	}

	if req.LengthMS > maxComposeLengthMS {
		req.LengthMS = maxComposeLengthMS
	}

	payload := composePayload{
		Prompt:   req.Prompt,
		LengthMS: req.LengthMS,
	}

	return c.postForAudio(ctx, apiMusic, payload)
}

// IsolateVocals sends a mixed song through the audio-isolation endpoint and
// returns the isolated vocal stem.
func (c *Client) IsolateVocals(ctx context.Context, audio []byte, filename string) ([]byte, error) {
	if len(audio) == 0 {
		return nil, ErrAudioEmpty
	}

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(formFieldAudio, filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = part.Write(audio)
	if err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiAudioIsolation,
		&buf,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create isolation request: %w", err)
	}

	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set(headerContentType, writer.FormDataContentType())

	return c.doForAudio(req)
}

// CloneVoice uploads one or more samples and registers a new cloned voice.
func (c *Client) CloneVoice(ctx context.Context, req core.CloneRequest) (core.Voice, error) {
	if req.Name == "" {
		return core.Voice{}, ErrNameEmpty
	}

	if len(req.Samples) == 0 {
		return core.Voice{}, ErrNoSamples
	}

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	err := writer.WriteField(formFieldName, req.Name)
	if err != nil {
		return core.Voice{}, fmt.Errorf("failed to write name field: %w", err)
	}

	if req.Description != "" {
		err = writer.WriteField(formFieldDescription, req.Description)
		if err != nil {
			return core.Voice{}, fmt.Errorf("failed to write description field: %w", err)
		}
	}

	for _, sample := range req.Samples {
		err = c.appendSample(writer, sample)
		if err != nil {
			return core.Voice{}, err
		}
	}

	err = writer.Close()
	if err != nil {
		return core.Voice{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiVoicesAdd,
		&buf,
	)
	if err != nil {
		return core.Voice{}, fmt.Errorf("failed to create clone request: %w", err)
	}

	httpReq.Header.Set(headerAPIKey, c.apiKey)
	httpReq.Header.Set(headerContentType, writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.Voice{}, fmt.Errorf("failed to reach voice API at %s: %w", c.baseURL, err)
	}
	defer c.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return core.Voice{}, c.parseErrorResponse(resp)
	}

	var decoded cloneResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return core.Voice{}, fmt.Errorf("failed to decode clone response: %w", err)
	}

	if decoded.VoiceID == "" {
		return core.Voice{}, ErrVoiceIDMissing
	}

	return core.Voice{
		ID:       decoded.VoiceID,
		Name:     req.Name,
		Category: "cloned",
	}, nil
}

func (c *Client) appendSample(writer *multipart.Writer, sample core.CloneSample) error {
	file, err := os.Open(sample.Path)
	if err != nil {
		return fmt.Errorf("failed to open sample %s: %w", sample.Filename, err)
	}

	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			c.log.Warn("Failed to close sample file %s: %v", sample.Path, closeErr)
		}
	}()

	part, err := writer.CreateFormFile(formFieldFiles, filepath.Base(sample.Filename))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = io.Copy(part, file)
	if err != nil {
		return fmt.Errorf("failed to copy sample data: %w", err)
	}

	return nil
}

// postForAudio sends a JSON payload and expects raw audio back.
func (c *Client) postForAudio(ctx context.Context, path string, payload any) ([]byte, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAccept, contentTypeMPEG)
	req.Header.Set(headerAPIKey, c.apiKey)

	return c.doForAudio(req)
}

// doForAudio executes a prepared request and validates that the response is
// non-empty audio.
func (c *Client) doForAudio(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach voice API at %s: %w", c.baseURL, err)
	}
	defer c.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if !strings.HasPrefix(contentType, audioTypePrefix) {
		return nil, fmt.Errorf("%w, got %s", ErrNotAudio, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyResponse
	}

	return audioData, nil
}

// errorDetail is the structured error shape the hosted API returns. The
// detail field is either an object or a bare string, so it is kept raw and
// decoded in two passes.
type errorDetail struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// parseErrorResponse attempts to decode a structured JSON error from the
// hosted API. If structured parsing fails, it falls back to the raw response
// body so diagnostic information is preserved.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var outer errorResponse

	err := json.Unmarshal(body, &outer)
	if err == nil && len(outer.Detail) > 0 {
		var detail errorDetail

		err = json.Unmarshal(outer.Detail, &detail)
		if err == nil && detail.Message != "" {
			return fmt.Errorf("%w: %s: %s (%s)",
				ErrAPIFailure, resp.Status, detail.Message, detail.Status)
		}

		var message string

		err = json.Unmarshal(outer.Detail, &message)
		if err == nil && message != "" {
			return fmt.Errorf("%w: %s: %s", ErrAPIFailure, resp.Status, message)
		}
	}

	return fmt.Errorf("%w: %s: %s", ErrAPIFailure, resp.Status, string(body))
}

func (c *Client) closeBody(resp *http.Response) {
	err := resp.Body.Close()
	if err != nil {
		c.log.Warn("Failed to close response body: %v", err)
	}
}
