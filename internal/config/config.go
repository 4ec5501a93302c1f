// Package config provides the configuration structure for beatlab.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Environment variables honored on top of project.toml.
const (
	envAPIKey = "ELEVENLABS_API_KEY"
	envPort   = "PORT"
)

// Bounds for validated settings.
const (
	minPort        = 1
	maxPort        = 65535
	minUploadMB    = 1
	maxUploadMB    = 512
	defaultTimeout = 60
)

// Static validation errors.
var (
	ErrInvalidPort      = errors.New("server port must be between 1 and 65535")
	ErrStorageDirEmpty  = errors.New("storage dir cannot be empty")
	ErrInvalidUploadCap = errors.New("max upload size must be between 1 and 512 MB")
	ErrInvalidSweepAge  = errors.New("sweep max age must be positive")
	ErrBaseURLEmpty     = errors.New("elevenlabs base url cannot be empty")
	ErrInvalidTimeout   = errors.New("timeout seconds must be positive")
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// StorageConfig holds the temp-file store settings.
type StorageConfig struct {
	Dir                string `toml:"dir"`
	MaxUploadMB        int    `toml:"max_upload_mb"`
	SweepMaxAgeMinutes int    `toml:"sweep_max_age_minutes"`
}

// ElevenLabsConfig holds the hosted voice/music API settings. The API key is
// never read from TOML; it comes from the ELEVENLABS_API_KEY environment
// variable so it stays out of checked-in files.
type ElevenLabsConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	APIKey         string `toml:"-"`
}

// MixerConfig holds the external audio tool settings.
type MixerConfig struct {
	FFmpegPath     string `toml:"ffmpeg_path"`
	FFprobePath    string `toml:"ffprobe_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Paths      PathsConfig      `toml:"paths"`
	Storage    StorageConfig    `toml:"storage"`
	ElevenLabs ElevenLabsConfig `toml:"elevenlabs"`
	Mixer      MixerConfig      `toml:"mixer"`
}

// Load loads the configuration for beatlab, applies environment overrides,
// and validates the result.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides(log)

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mixer.FFmpegPath == "" {
		c.Mixer.FFmpegPath = "ffmpeg"
	}

	if c.Mixer.FFprobePath == "" {
		c.Mixer.FFprobePath = "ffprobe"
	}

	if c.Mixer.TimeoutSeconds == 0 {
		c.Mixer.TimeoutSeconds = defaultTimeout
	}

	if c.ElevenLabs.TimeoutSeconds == 0 {
		c.ElevenLabs.TimeoutSeconds = defaultTimeout
	}
}

func (c *Config) applyEnvOverrides(log *logger.Logger) {
	c.ElevenLabs.APIKey = os.Getenv(envAPIKey)
	if c.ElevenLabs.APIKey == "" {
		log.Warn("%s is not set; hosted API routes will fail until it is provided", envAPIKey)
	}

	portValue := os.Getenv(envPort)
	if portValue == "" {
		return
	}

	port, err := strconv.Atoi(portValue)
	if err != nil {
		log.Warn("Ignoring non-numeric %s value %q", envPort, portValue)

		return
	}

	c.Server.Port = port
}

// Validate checks that every setting the service depends on is usable.
func (c *Config) Validate() error {
	if c.Server.Port < minPort || c.Server.Port > maxPort {
		return ErrInvalidPort
	}

	if c.Storage.Dir == "" {
		return ErrStorageDirEmpty
	}

	if c.Storage.MaxUploadMB < minUploadMB || c.Storage.MaxUploadMB > maxUploadMB {
		return ErrInvalidUploadCap
	}

	if c.Storage.SweepMaxAgeMinutes <= 0 {
		return ErrInvalidSweepAge
	}

	if c.ElevenLabs.BaseURL == "" {
		return ErrBaseURLEmpty
	}

	if c.ElevenLabs.TimeoutSeconds <= 0 || c.Mixer.TimeoutSeconds <= 0 {
		return ErrInvalidTimeout
	}

	return nil
}
