package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/five82/ferry/internal/config"
	"github.com/five82/ferry/internal/prefs"
	"github.com/five82/ferry/internal/processor"
	"github.com/five82/ferry/internal/state"
	"github.com/five82/ferry/internal/telemetry"
	"github.com/five82/ferry/internal/tracker"
	"github.com/five82/ferry/internal/ui"
)

// Options configure the ferry application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/ferry/prefs.toml
	PollEvery  int    // seconds; zero uses config

	// Headless submits Files without the TUI and waits for them to finish.
	Headless bool
	Download bool
	Files    []string
	Stdout   io.Writer
}

// Run boots ferry until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	logger, closer, err := telemetry.NewLogger(cfg.LogPath(), cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closer.Close() }()
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.InitTracing(ctx)
	if err != nil {
		logger.Error("init tracing failed", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	metrics := telemetry.NewMetrics()
	if err := metrics.Serve(ctx, cfg.MetricsBind, logger); err != nil {
		logger.Error("metrics server failed to start", "bind", cfg.MetricsBind, "error", err)
	}

	client, err := processor.NewClient(cfg.ServerURL, processor.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return fmt.Errorf("init processor client: %w", err)
	}

	trk := tracker.New(client, &state.Store{}, tracker.Options{
		CheckMode: cfg.CheckMode,
		Logger:    logger,
		Metrics:   metrics,
	})
	poller := NewPoller(trk, cfg.PollInterval, cfg.PollTimeout, logger)

	logger.Info("ferry starting",
		"server", client.BaseURL(),
		"check_mode", cfg.CheckMode,
		"auto_poll", cfg.AutoPoll,
		"headless", opts.Headless,
	)

	if opts.Headless {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		return runHeadless(ctx, headlessOptions{
			Tracker:     trk,
			Poller:      poller,
			Files:       opts.Files,
			Download:    opts.Download,
			DownloadDir: cfg.DownloadDir,
			Out:         out,
		})
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("load prefs failed", "error", err)
	}

	if cfg.AutoPoll {
		poller.Start(ctx)
	}

	return ui.Run(ui.Options{
		Context:   ctx,
		Tracker:   trk,
		Config:    &cfg,
		PollTick:  time.Second,
		ThemeName: userPrefs.Theme,
		LastDir:   userPrefs.LastDir,
		PrefsPath: opts.PrefsPath,
		LogPath:   cfg.LogPath(),
		Logger:    logger,
		Files:     opts.Files,
	})
}
