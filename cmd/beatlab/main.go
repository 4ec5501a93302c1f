// main package for the beatlab service
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/book-expert/beatlab/internal/api"
	"github.com/book-expert/beatlab/internal/beat"
	"github.com/book-expert/beatlab/internal/config"
	"github.com/book-expert/beatlab/internal/elevenlabs"
	"github.com/book-expert/beatlab/internal/mixer"
	"github.com/book-expert/beatlab/internal/store"
	"github.com/book-expert/logger"
)

const (
	bootstrapLogName = "beatlab-bootstrap.log"
	serviceLogName   = "beatlab.log"
	renderLogName    = "beatlab-render.log"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second

	wavPermissions = 0o600
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "beatlab",
	Short: "Beat Studio: sequence beats, generate vocals, mix tracks",
	Long: `Beatlab serves the Beat Studio web app: a step sequencer with a
server-side renderer, a proxy to a hosted voice/music API, and an
ffmpeg-backed mixer.`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Beat Studio server",
	RunE:  runServe,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a pattern to a WAV file without starting the server",
	Long: `Render a sequencer pattern offline.

Examples:
  beatlab render --genre trap --out beat.wav
  beatlab render --in pattern.json --out beat.wav
  beatlab render --genre house --seed 42`,
	RunE: runRender,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete stored files older than the age threshold",
	RunE:  runSweep,
}

var (
	renderInPath       string
	renderOutPath      string
	renderGenre        string
	renderSeed         int64
	sweepMaxAgeMinutes int
)

func init() {
	renderCmd.Flags().StringVarP(&renderInPath, "in", "i", "", "pattern JSON file (omit to compose one)")
	renderCmd.Flags().StringVarP(&renderOutPath, "out", "o", "beat.wav", "output WAV path")
	renderCmd.Flags().StringVar(&renderGenre, "genre", "", "genre for a composed pattern")
	renderCmd.Flags().Int64Var(&renderSeed, "seed", 0, "seed for a composed pattern (0 uses the clock)")

	sweepCmd.Flags().IntVar(&sweepMaxAgeMinutes, "max-age", 0, "age threshold in minutes (0 uses the configured value)")

	rootCmd.AddCommand(serveCmd, renderCmd, sweepCmd)
}

func setupLogger(logPath, name string) (*logger.Logger, error) {
	log, err := logger.New(logPath, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// initialize runs the two-phase startup: a bootstrap logger in the temp
// directory, configuration loading, then the final logger in the configured
// location. The returned cleanup closes the final logger.
func initialize() (*config.Config, *logger.Logger, func(), error) {
	_ = godotenv.Load()

	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return nil, nil, nil, err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLogName)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return nil, nil, nil, fmt.Errorf("failed to create final logger: %w", err)
	}

	cleanup := func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}

	return cfg, finalLog, cleanup, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, log, cleanup, err := initialize()
	if err != nil {
		return err
	}
	defer cleanup()

	blobs, err := store.New(cfg.Storage.Dir, log)
	if err != nil {
		log.Error("Failed to open file store: %v", err)

		return fmt.Errorf("failed to open file store: %w", err)
	}

	client := elevenlabs.New(
		cfg.ElevenLabs.BaseURL,
		cfg.ElevenLabs.APIKey,
		time.Duration(cfg.ElevenLabs.TimeoutSeconds)*time.Second,
		log,
	)

	mix := mixer.New(
		cfg.Mixer.FFmpegPath,
		cfg.Mixer.FFprobePath,
		time.Duration(cfg.Mixer.TimeoutSeconds)*time.Second,
		log,
	)

	if !mix.Installed(cfg.Mixer.FFmpegPath) {
		log.Warn("%s not found on this host; the mix route will fail", cfg.Mixer.FFmpegPath)
	}

	server := api.New(client, client, blobs, mix, api.Options{
		MaxUploadMB: cfg.Storage.MaxUploadMB,
		SweepMaxAge: time.Duration(cfg.Storage.SweepMaxAgeMinutes) * time.Minute,
	}, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	log.System("Beat Studio listening on %s", addr)

	select {
	case err = <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}

		return nil
	case <-ctx.Done():
		log.Info("Shutting down.")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err = httpServer.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("failed to shut down cleanly: %w", err)
		}

		return nil
	}
}

// runRender needs no configuration or API key, so it logs to the temp
// directory and works entirely on local files.
func runRender(_ *cobra.Command, _ []string) error {
	log, err := setupLogger(os.TempDir(), renderLogName)
	if err != nil {
		return err
	}

	pattern, err := loadOrComposePattern()
	if err != nil {
		log.Error("Could not prepare pattern: %v", err)

		return err
	}

	data, duration, err := beat.RenderWAV(pattern)
	if err != nil {
		log.Error("Render failed: %v", err)

		return fmt.Errorf("render failed: %w", err)
	}

	err = os.WriteFile(renderOutPath, data, wavPermissions)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", renderOutPath, err)
	}

	fmt.Printf("wrote %s: %d BPM, %d steps, %.1fs\n",
		renderOutPath, pattern.Tempo, pattern.Steps, duration)

	return nil
}

func loadOrComposePattern() (beat.Pattern, error) {
	if renderInPath == "" {
		var rng *rand.Rand
		if renderSeed != 0 {
			rng = rand.New(rand.NewSource(renderSeed))
		}

		return beat.Compose(renderGenre, rng), nil
	}

	data, err := os.ReadFile(renderInPath)
	if err != nil {
		return beat.Pattern{}, fmt.Errorf("failed to read %s: %w", renderInPath, err)
	}

	var pattern beat.Pattern

	err = json.Unmarshal(data, &pattern)
	if err != nil {
		return beat.Pattern{}, fmt.Errorf("failed to parse %s: %w", renderInPath, err)
	}

	return pattern, nil
}

func runSweep(_ *cobra.Command, _ []string) error {
	cfg, log, cleanup, err := initialize()
	if err != nil {
		return err
	}
	defer cleanup()

	blobs, err := store.New(cfg.Storage.Dir, log)
	if err != nil {
		return fmt.Errorf("failed to open file store: %w", err)
	}

	maxAge := time.Duration(cfg.Storage.SweepMaxAgeMinutes) * time.Minute
	if sweepMaxAgeMinutes > 0 {
		maxAge = time.Duration(sweepMaxAgeMinutes) * time.Minute
	}

	removed, err := blobs.Sweep(maxAge)
	if err != nil {
		log.Error("Sweep failed: %v", err)

		return fmt.Errorf("sweep failed: %w", err)
	}

	log.System("Sweep removed %d file(s) older than %s", removed, maxAge)
	fmt.Printf("removed %d file(s) older than %s\n", removed, maxAge)

	return nil
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "beatlab exited with error: %v\n", err)
		os.Exit(1)
	}
}
