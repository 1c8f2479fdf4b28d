package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/vmunix/grabarr/internal/blacklist"
	"github.com/vmunix/grabarr/internal/config"
	"github.com/vmunix/grabarr/internal/download"
	"github.com/vmunix/grabarr/internal/events"
	"github.com/vmunix/grabarr/internal/importer"
	"github.com/vmunix/grabarr/internal/library"
	"github.com/vmunix/grabarr/internal/media"
	"github.com/vmunix/grabarr/internal/migrations"
	"github.com/vmunix/grabarr/internal/naming"
	"github.com/vmunix/grabarr/internal/server"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// === Stores ===
	downloadStore := download.NewStore(db)
	libraryStore := library.NewStore(db)
	blacklistStore := blacklist.NewStore(db)

	// === Event bus with persistence ===
	bus := events.NewBus(events.NewEventLog(db), logger.With("component", "bus"))
	defer func() { _ = bus.Close() }()

	// === Download clients ===
	clients, err := download.BuildClients(cfg.Clients, logger)
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		logger.Warn("no download clients configured; grabs will be rejected")
	}

	// === Naming and import pipelines ===
	namingService := naming.NewService(cfg.Libraries)
	importers := make(map[media.Kind]download.Importer, len(media.Kinds))
	for _, kind := range media.Kinds {
		importers[kind] = importer.NewMover(kind, libraryStore, namingService, logger)
	}

	// Alternative search is delegated to an external tool; the daemon only
	// records that one is wanted.
	searcher := download.SearcherFunc(func(ctx context.Context, ref media.Ref) error {
		logger.Info("alternative search requested", "ref", ref)
		return nil
	})

	manager := download.NewManager(download.ManagerDeps{
		Store:     downloadStore,
		Library:   libraryStore,
		Clients:   clients,
		Naming:    namingService,
		Blacklist: blacklistStore,
		Importers: importers,
		Searcher:  searcher,
		Bus:       bus,
		Logger:    logger,
	})

	runner := server.NewRunner(manager, cfg.Server.PollInterval.Std(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("grabarrd started", "version", version,
		"poll_interval", cfg.Server.PollInterval.Std(), "clients", len(clients))

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("grabarrd stopped")
	return nil
}
