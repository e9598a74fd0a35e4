package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/medtrackpro/medtrack/internal/api"
	"github.com/medtrackpro/medtrack/internal/assets"
	"github.com/medtrackpro/medtrack/internal/config"
	"github.com/medtrackpro/medtrack/internal/metrics"
	"github.com/medtrackpro/medtrack/internal/notify"
	"github.com/medtrackpro/medtrack/internal/session"
	"github.com/medtrackpro/medtrack/internal/tracker"
)

var (
	configPath  = flag.String("config", "", "Path to config file")
	dataDir     = flag.String("data", "", "Path to data directory")
	showVersion = flag.Bool("version", false, "Print version and exit")
	version     = "dev"
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("medtrack %s\n", version)
		return
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited", zap.Error(err))
	}
}

// newLogger picks the development encoder on a terminal, JSON otherwise
func newLogger() (*zap.Logger, error) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Session metadata store (TTL records only; domain data is per-session
	// in-memory SQLite)
	db, err := badger.Open(badger.DefaultOptions(cfg.Storage.BadgerPath).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("failed to open badger: %w", err)
	}
	defer db.Close()

	catalog, err := tracker.LoadCatalog(cfg.Seed.CatalogOverride)
	if err != nil {
		return fmt.Errorf("failed to load seed catalog: %w", err)
	}

	sessions := session.NewManager(db, session.Options{
		TTL:         cfg.SessionTTL(),
		MaxSessions: cfg.Session.MaxSessions,
		SweepEvery:  time.Duration(cfg.Session.SweepInterval) * time.Second,
		JWTSecret:   []byte(cfg.Security.JWTSecret),
		Catalog:     catalog,
		SeedOptions: tracker.SeedOptions{
			HistoryDays:   cfg.Seed.HistoryDays,
			ReminderDays:  cfg.Seed.ReminderDays,
			TakenWeight:   cfg.Seed.TakenWeight,
			MissedWeight:  cfg.Seed.MissedWeight,
			DelayedWeight: cfg.Seed.DelayedWeight,
		},
		RandomSeed: cfg.Seed.RandomSeed,
		DronePhase: cfg.DronePhase(),
		DroneTick:  cfg.DroneTick(),
	}, logger)
	defer sessions.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessions.Run(ctx)

	m := metrics.New()

	styles, err := assets.NewStylesheet(cfg.Assets.StylesheetPath, logger)
	if err != nil {
		return fmt.Errorf("failed to load stylesheet: %w", err)
	}
	if err := styles.Watch(ctx); err != nil {
		logger.Warn("Stylesheet watcher disabled", zap.Error(err))
	}

	avatar := assets.NewAvatarProxy(cfg.Assets.AvatarURL, logger)

	sweeper := notify.NewSweeper(sessions, logger)
	if err := sweeper.Start("@every 1m"); err != nil {
		return err
	}
	defer sweeper.Stop()

	server := api.New(cfg, sessions, m, styles, avatar, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("address", cfg.Server.Address),
			zap.Int("port", cfg.Server.Port))
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	if err := server.Shutdown(); err != nil {
		logger.Warn("Graceful shutdown failed", zap.Error(err))
	}
	return nil
}
