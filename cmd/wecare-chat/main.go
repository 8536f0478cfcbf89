// ABOUTME: Entry point for the WeCare chat terminal client
// ABOUTME: Loads configuration, wires the chat services, and starts the Bubbletea application
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/backend"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/config"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/netmon"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/notify"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/pipeline"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/retry"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/session"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/store"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/upload"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/xdg"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: $XDG_CONFIG_HOME/wecare-chat/config.yaml)")
	debug := flag.Bool("debug", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wecare-chat %s (built %s)\n", version, buildTime)
		return
	}

	if err := run(*configPath, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, debug bool) error {
	if err := config.LoadEnvFiles(".env", filepath.Join(xdg.ConfigHome(), ".env")); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	closeLog, err := setupLogging(cfg, debug)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("wecare-chat %s starting: backend=%s store=%s", version, cfg.Backend.BaseURL, cfg.Store.Path)
	if cfg.User.ID == "" {
		logger.Warn("no user id configured; set user.id or WECARE_USER_ID")
	}

	repo, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open local state: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("close store: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := backend.NewClient(cfg.Backend.BaseURL, backend.WithTimeout(cfg.BackendTimeout()))
	surface := notify.New(cfg.NotificationTTL())
	rc := retry.New(surface,
		retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retry.WithBaseDelay(cfg.RetryBaseDelay()),
	)

	monitor := netmon.New(surface)
	go monitor.Run(ctx, &netmon.HTTPProber{URL: cfg.Backend.BaseURL + "/health"}, cfg.ProbeInterval(), cfg.ProbeTimeout())

	sessions := session.NewManager(api, rc, repo, surface)
	pipe := pipeline.New(sessions, api, rc, surface, pipeline.Options{
		StickyEscalation: cfg.Escalation.Sticky,
	})
	stager := upload.New(sessions, api, rc, surface, cfg.User.ID,
		upload.WithMaxBytes(cfg.Upload.MaxBytes),
		upload.WithAllowedTypes(cfg.Upload.AllowedTypes),
	)

	m := tui.NewModel(ctx, tui.Deps{
		Config:   cfg,
		Sessions: sessions,
		Pipeline: pipe,
		Stager:   stager,
		Surface:  surface,
		Retry:    rc,
		Monitor:  monitor,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, runErr := p.Run()

	// Stop pending sends and let detached saves finish before the store closes.
	cancel()
	pipe.Close()
	surface.Clear()

	return runErr
}

// setupLogging sends log output to a file so it never draws over the TUI.
func setupLogging(cfg *config.Config, debug bool) (func(), error) {
	if !cfg.Logging.Enabled && !debug {
		logger.SetOutput(io.Discard)
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger.SetOutput(f)
	logger.SetLevel(cfg.Logging.Level)
	if debug {
		logger.SetVerbose(true)
	}
	return func() { _ = f.Close() }, nil
}
