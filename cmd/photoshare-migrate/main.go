// Package main is the entry point for the Photoshare database migration tool.
// It applies the migrations embedded in the server binary to PostgreSQL or SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/prn-tf/photoshare/internal/config"
	"github.com/prn-tf/photoshare/internal/repository/postgres"
	"github.com/prn-tf/photoshare/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flags := pflag.NewFlagSet("photoshare-migrate", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to config file")
	verbose := flags.Bool("verbose", false, "log every query")
	flags.Usage = printUsage

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if flags.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flags.Arg(0)
	switch command {
	case "help":
		printUsage()
		return
	case "version":
		fmt.Printf("Photoshare Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return
	case "up", "down", "status", "current", "reset":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := migrate(ctx, cfg.Database, command, logger); err != nil {
		logger.Error().Err(err).Str("command", command).Msg("migration failed")
		stop()
		os.Exit(1)
	}
}

// migrate opens the configured database without applying migrations and
// runs command against its goose provider.
func migrate(ctx context.Context, cfg config.DatabaseConfig, command string, logger zerolog.Logger) error {
	var (
		provider *goose.Provider
		closeFn  func() error
	)

	if cfg.IsEmbedded() {
		sqliteCfg := sqlite.DefaultConfig(cfg.Path)
		if cfg.JournalMode != "" {
			sqliteCfg.JournalMode = cfg.JournalMode
		}
		if cfg.BusyTimeout > 0 {
			sqliteCfg.BusyTimeout = cfg.BusyTimeout
		}

		db, err := sqlite.NewDB(ctx, sqliteCfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		provider, err = db.NewMigrationProvider()
		if err != nil {
			return err
		}
		closeFn = func() error { return nil }
	} else {
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		provider, closeFn, err = db.NewMigrationProvider()
		if err != nil {
			return err
		}
	}
	defer closeFn()

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		logResults(logger, results)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			logger.Info().Msg("no pending migrations")
		}

	case "down":
		result, err := provider.Down(ctx)
		if result != nil {
			logResults(logger, []*goose.MigrationResult{result})
		}
		if err != nil {
			return err
		}

	case "reset":
		results, err := provider.DownTo(ctx, 0)
		logResults(logger, results)
		if err != nil {
			return err
		}

	case "current":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Current version: %d\n", version)

	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%-10s %-10s %-25s %s\n", "VERSION", "STATE", "APPLIED AT", "SOURCE")
		for _, s := range statuses {
			appliedAt := "-"
			if !s.AppliedAt.IsZero() {
				appliedAt = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-10d %-10s %-25s %s\n", s.Source.Version, s.State, appliedAt, s.Source.Path)
		}
	}

	return nil
}

func logResults(logger zerolog.Logger, results []*goose.MigrationResult) {
	for _, r := range results {
		event := logger.Info()
		if r.Error != nil {
			event = logger.Error().Err(r.Error)
		}
		event.
			Int64("version", r.Source.Version).
			Str("direction", r.Direction).
			Dur("duration", r.Duration).
			Msg("migration")
	}
}

func printUsage() {
	fmt.Println(`Photoshare Migration Tool

Usage:
  photoshare-migrate [flags] <command>

Commands:
  up          Apply all pending migrations
  down        Roll back the last migration
  reset       Roll back every migration
  status      Show the state of every migration
  current     Print the current database version
  version     Print version information
  help        Show this help message

Flags:
  -c, --config string   Path to config file
      --verbose         Log every query

The database is selected by the server configuration (database.driver).
Environment variables override the file, e.g. PHOTOSHARE_DATABASE_DRIVER=sqlite.

Examples:
  photoshare-migrate up
  photoshare-migrate --config configs/config.yaml status
  PHOTOSHARE_DATABASE_DRIVER=sqlite PHOTOSHARE_DATABASE_PATH=./data/photoshare.db photoshare-migrate up`)
}
