package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/petems/key-mapper/internal/app"
	"github.com/petems/key-mapper/internal/config"
	"github.com/petems/key-mapper/internal/hotkey"
	"github.com/petems/key-mapper/internal/launch"
	"github.com/petems/key-mapper/internal/logging"
	"github.com/petems/key-mapper/internal/mapping"
	"github.com/petems/key-mapper/internal/permissions"
	"github.com/petems/key-mapper/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Str("path", config.Path()).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	// macOS requires accessibility approval before global hotkeys fire
	if err := permissions.EnsurePermissions(); err != nil {
		log.Fatal().Err(err).Msg("Required permissions not granted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hkManager := hotkey.New(log)
	defer hkManager.Close()

	launcher := launch.New(cfg.Launch, log)

	// A broken mappings file leaves us running with no mappings
	mapper, err := mapping.New(mapping.Config{
		Path:     cfg.MappingsPath(),
		Registry: hkManager,
		Launcher: launcher,
		Logger:   log,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Starting with no key mappings")
	}

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, log, Version, Commit) // App reference set below

	application := app.New(app.Config{
		Mapper:        mapper,
		Config:        cfg,
		Logger:        log,
		StatusUpdater: trayUI,
	})

	// Set app reference in tray
	trayUI.SetApp(application)

	log.Info().Str("version", Version).Str("mappings", mapper.Path()).Msg("Key Mapper starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		if err := application.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
		hkManager.Close()
		launcher.Wait()
		os.Exit(0)
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Tray error")
	}
	launcher.Wait()
}
