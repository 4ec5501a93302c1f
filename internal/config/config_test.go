// Package config_test tests the configuration loading for beatlab.
package config_test

import (
	"testing"

	"github.com/book-expert/beatlab/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[server]
host = "0.0.0.0"
port = 3001

[paths]
base_logs_dir = "/var/log/beatlab"

[storage]
dir = "/tmp/beatlab"
max_upload_mb = 25
sweep_max_age_minutes = 60

[elevenlabs]
base_url = "https://api.elevenlabs.io"
timeout_seconds = 120

[mixer]
ffmpeg_path = "/usr/bin/ffmpeg"
ffprobe_path = "/usr/bin/ffprobe"
timeout_seconds = 90
`

func TestConfigUnmarshal(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	err := toml.Unmarshal([]byte(sampleTOML), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "/var/log/beatlab", cfg.Paths.BaseLogsDir)
	assert.Equal(t, "/tmp/beatlab", cfg.Storage.Dir)
	assert.Equal(t, 25, cfg.Storage.MaxUploadMB)
	assert.Equal(t, 60, cfg.Storage.SweepMaxAgeMinutes)
	assert.Equal(t, "https://api.elevenlabs.io", cfg.ElevenLabs.BaseURL)
	assert.Equal(t, 120, cfg.ElevenLabs.TimeoutSeconds)
	assert.Equal(t, "/usr/bin/ffmpeg", cfg.Mixer.FFmpegPath)
	assert.Equal(t, "/usr/bin/ffprobe", cfg.Mixer.FFprobePath)
	assert.Equal(t, 90, cfg.Mixer.TimeoutSeconds)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() config.Config {
		var cfg config.Config

		err := toml.Unmarshal([]byte(sampleTOML), &cfg)
		require.NoError(t, err)

		return cfg
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Server.Port = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidPort)

	cfg = valid()
	cfg.Server.Port = 70000
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidPort)

	cfg = valid()
	cfg.Storage.Dir = ""
	assert.ErrorIs(t, cfg.Validate(), config.ErrStorageDirEmpty)

	cfg = valid()
	cfg.Storage.MaxUploadMB = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidUploadCap)

	cfg = valid()
	cfg.Storage.SweepMaxAgeMinutes = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidSweepAge)

	cfg = valid()
	cfg.ElevenLabs.BaseURL = ""
	assert.ErrorIs(t, cfg.Validate(), config.ErrBaseURLEmpty)

	cfg = valid()
	cfg.Mixer.TimeoutSeconds = -1
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidTimeout)
}
