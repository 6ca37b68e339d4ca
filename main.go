package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/pulsecloud/internal/analysis"
	"github.com/olivier-w/pulsecloud/internal/config"
	"github.com/olivier-w/pulsecloud/internal/media"
	"github.com/olivier-w/pulsecloud/internal/player"
	"github.com/olivier-w/pulsecloud/internal/reactive"
	"github.com/olivier-w/pulsecloud/internal/scene"
	"github.com/olivier-w/pulsecloud/internal/scheduler"
	"github.com/olivier-w/pulsecloud/internal/ui"
)

func main() {
	configPath := flag.String("config", "pulsecloud.json", "path to the JSON configuration file")
	track := flag.String("track", "", "audio file path or URL (overrides the config)")
	headless := flag.Bool("headless", false, "play without the terminal UI and log band energies")
	logPath := flag.String("log", "", "log file for the terminal UI (default pulsecloud.log in the temp dir)")
	flag.Parse()

	if err := run(*configPath, *track, *logPath, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, track, logPath string, headless bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if track != "" {
		cfg.Track = track
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	src := player.NewSource(cfg.Track)
	if !media.IsSupportedExt(src.Ext()) {
		return fmt.Errorf("unsupported file type %q (supported: %s)", src.Ext(), media.SupportedExtsList())
	}

	logger, closeLog := newLogger(cfg.LogPath, headless)
	defer closeLog()
	slog.SetDefault(logger)

	var progressCh chan player.Progress
	opts := player.Options{
		Output:      player.NewOtoOutput(cfg.Volume, cfg.Loop),
		Sampler:     cfg.Sampler,
		LoadTimeout: cfg.LoadTimeout(),
		Logger:      logger,
	}
	if !headless {
		progressCh = make(chan player.Progress, 64)
		opts.OnProgress = ui.ProgressReporter(progressCh)
	}
	ctrl := player.NewController(src, opts)
	defer ctrl.Close()

	renderer := scene.New(scene.Options{
		Width:    80,
		Height:   24,
		FPS:      cfg.FPS,
		Segments: scene.DefaultOptions().Segments,
	})
	sched := scheduler.New(
		ctrl,
		renderer,
		reactive.NewMapper(cfg.Curves),
		cfg.Bands,
		analysis.NewSmoother(cfg.SmootherDecay),
		logger,
	)

	if headless {
		return runHeadless(ctrl, sched, cfg.FPS, logger)
	}

	meta := src.Metadata()
	title := meta.Title
	if meta.Artist != "" {
		title = meta.Artist + " - " + meta.Title
	}
	model := ui.New(ctrl, sched, renderer, title, cfg.FPS, progressCh)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

// newLogger logs to stderr when headless; the TUI owns the terminal, so it
// logs to a file instead.
func newLogger(path string, headless bool) (*slog.Logger, func()) {
	if headless {
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), func() {}
	}
	if path == "" {
		path = filepath.Join(os.TempDir(), "pulsecloud.log")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// keep running; logs are not essential to the visual
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})), func() { f.Close() }
}

func runHeadless(ctrl *player.Controller, sched *scheduler.Scheduler, fps int, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Play(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		// The loop keeps rendering at rest after a failed load.
		logger.Error("playback unavailable", "error", err)
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var last time.Time
	err := sched.Run(ctx, ticker.C, func(f scheduler.Frame) {
		if time.Since(last) < time.Second {
			return
		}
		last = time.Now()
		logger.Info("bands",
			"frame", f.Index,
			"playing", f.Playing,
			"low", fmt.Sprintf("%.3f", f.Bands.Low),
			"mid", fmt.Sprintf("%.3f", f.Bands.Mid),
			"high", fmt.Sprintf("%.3f", f.Bands.High),
			"phase", fmt.Sprintf("%.2f", f.Params.Phase),
		)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
