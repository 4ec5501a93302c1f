// Package mixer blends a looped beat under a vocal track by shelling out to
// ffmpeg, with ffprobe supplying stream durations.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/book-expert/logger"
)

const (
	// filterGraph wires both inputs through volume filters into one amix.
	// Input 0 is the beat (looped indefinitely upstream), input 1 the vocal.
	filterGraph = "[0:a]volume=%.2f[b];[1:a]volume=%.2f[v];" +
		"[b][v]amix=inputs=2:duration=first:dropout_transition=0[mix]"

	minVolume     = 0.0
	maxVolume     = 2.0
	notFoundHint  = "executable file not found"
	probeNoOutput = "<empty>"
)

// ErrNoDuration is returned when ffprobe prints nothing usable for a file.
var ErrNoDuration = errors.New("could not read audio duration")

// Mixer runs ffmpeg and ffprobe as subprocesses. Both binaries are resolved
// through the paths given at construction, so tests can point them anywhere.
type Mixer struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
	log         *logger.Logger
}

// New creates a Mixer. A zero timeout disables the per-invocation deadline.
func New(ffmpegPath, ffprobePath string, timeout time.Duration, log *logger.Logger) *Mixer {
	return &Mixer{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
		log:         log,
	}
}

// Duration returns the length of an audio file in seconds, as reported by
// ffprobe.
func (m *Mixer) Duration(ctx context.Context, path string) (float64, error) {
	output, err := m.run(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}

	return parseDuration(output)
}

// MixLoop loops the beat under the vocal, applies both volumes, and writes
// the blend to outPath, trimmed to the vocal's length.
func (m *Mixer) MixLoop(
	ctx context.Context,
	beatPath, vocalPath, outPath string,
	beatVol, vocalVol float64,
) error {
	duration, err := m.Duration(ctx, vocalPath)
	if err != nil {
		return fmt.Errorf("failed to probe vocal track: %w", err)
	}

	graph := fmt.Sprintf(filterGraph, clampVolume(beatVol), clampVolume(vocalVol))

	m.log.Info("Mixing %s over %s for %.2fs", vocalPath, beatPath, duration)

	_, err = m.run(ctx, m.ffmpegPath,
		"-y",
		"-stream_loop", "-1",
		"-i", beatPath,
		"-i", vocalPath,
		"-filter_complex", graph,
		"-map", "[mix]",
		"-t", fmt.Sprintf("%.3f", duration),
		outPath,
	)
	if err != nil {
		return err
	}

	return nil
}

// Installed reports whether the named binary can be resolved on this host.
func (m *Mixer) Installed(name string) bool {
	_, err := exec.LookPath(name)

	return err == nil
}

// IsNotInstalled reports whether an error from Duration or MixLoop means the
// underlying binary is missing rather than that the invocation failed.
func IsNotInstalled(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, exec.ErrNotFound) {
		return true
	}

	return strings.Contains(err.Error(), notFoundHint)
}

// run executes one subprocess under the configured timeout and returns its
// combined output, which is folded into the error on failure.
func (m *Mixer) run(ctx context.Context, binary string, args ...string) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	// #nosec G204 -- binary paths come from validated configuration
	cmd := exec.CommandContext(ctx, binary, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed == "" {
			trimmed = probeNoOutput
		}

		return "", fmt.Errorf("%s execution failed: %w - output: %s", binary, err, trimmed)
	}

	return string(output), nil
}

func parseDuration(output string) (float64, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return 0, ErrNoDuration
	}

	seconds, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoDuration, trimmed)
	}

	return seconds, nil
}

func clampVolume(volume float64) float64 {
	if volume < minVolume {
		return minVolume
	}

	if volume > maxVolume {
		return maxVolume
	}

	return volume
}
