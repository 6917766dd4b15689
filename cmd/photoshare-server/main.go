// Package main is the entry point for the Photoshare API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/prn-tf/photoshare/internal/auth"
	"github.com/prn-tf/photoshare/internal/cache/memory"
	rediscache "github.com/prn-tf/photoshare/internal/cache/redis"
	"github.com/prn-tf/photoshare/internal/config"
	"github.com/prn-tf/photoshare/internal/handler"
	"github.com/prn-tf/photoshare/internal/metrics"
	"github.com/prn-tf/photoshare/internal/pkg/crypto"
	"github.com/prn-tf/photoshare/internal/repository"
	"github.com/prn-tf/photoshare/internal/repository/postgres"
	"github.com/prn-tf/photoshare/internal/repository/sqlite"
	"github.com/prn-tf/photoshare/internal/service"
	"github.com/prn-tf/photoshare/internal/storage"
	s3store "github.com/prn-tf/photoshare/internal/storage/s3"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file")
	showVersion := pflag.BoolP("version", "v", false, "print version information and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("photoshare-server %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting photoshare server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	} else {
		logger.Info().Msg("server stopped")
	}
	_ = closeLog()

	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	db, repos, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, closeCache, err := sessionRepository(ctx, cfg, repos.Session, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	blobs, err := s3store.New(ctx, cfg.Storage.S3, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	userService := service.NewUserService(repos.User, sessions, crypto.NewPasswordHasher(cfg.Auth.BcryptCost), m, logger)
	imageService := service.NewImageService(repos.Image, blobs, service.ImageServiceConfig{
		BlobDeleteTimeout: cfg.Storage.DeleteTimeout,
	}, m, logger)
	uploadService := service.NewUploadService(repos.Image, blobs, service.UploadServiceConfig{
		Policy: storage.UploadPolicy{
			Expiry:            cfg.Upload.Expiry,
			MaxSize:           cfg.Upload.MaxSize,
			ContentTypePrefix: cfg.Upload.ContentTypePrefix,
		},
		MaxFiles:           cfg.Upload.MaxFiles,
		ConfirmConcurrency: cfg.Upload.ConfirmConcurrency,
	}, m, logger)

	authConfig := auth.DefaultConfig()
	authConfig.SessionHeader = cfg.Auth.SessionHeader

	router := handler.NewRouter(handler.RouterConfig{
		UserService:   userService,
		ImageService:  imageService,
		UploadService: uploadService,
		Authenticator: auth.NewAuthenticator(sessions, m, logger),
		AuthConfig:    authConfig,
		Health:        db,
		Metrics:       m,
		CORS:          cfg.CORS,
		MaxBodySize:   cfg.Server.MaxBodySize,
		Logger:        logger,
	})

	servers := []*http.Server{{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}}

	if m != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		servers = append(servers, &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			logger.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server on %s failed: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// openDatabase connects to the configured database and builds the repositories.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (repository.DatabaseHealth, *repository.Repositories, error) {
	if cfg.IsEmbedded() {
		sqliteCfg := sqlite.DefaultConfig(cfg.Path)
		if cfg.JournalMode != "" {
			sqliteCfg.JournalMode = cfg.JournalMode
		}
		if cfg.BusyTimeout > 0 {
			sqliteCfg.BusyTimeout = cfg.BusyTimeout
		}

		db, repos, err := sqlite.Open(ctx, sqliteCfg, cfg.AutoMigrate, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, repos, nil
	}

	db, repos, err := postgres.Open(ctx, cfg, cfg.AutoMigrate, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	return db, repos, nil
}

// sessionRepository wraps sessions with the configured lookup cache: Redis
// when enabled, otherwise an in-process cache. A zero TTL disables caching.
func sessionRepository(
	ctx context.Context,
	cfg *config.Config,
	sessions repository.SessionRepository,
	logger zerolog.Logger,
) (repository.SessionRepository, func(), error) {
	if cfg.Auth.SessionCacheTTL == 0 {
		return sessions, func() {}, nil
	}

	if cfg.Redis.Enabled {
		client, err := rediscache.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		cached := repository.NewCachedSessionRepository(sessions, rediscache.NewCache(client), cfg.Auth.SessionCacheTTL, logger)
		return cached, func() { client.Close() }, nil
	}

	cache := memory.NewCache(memory.Options{MaxEntries: 10000})
	cached := repository.NewCachedSessionRepository(sessions, cache, cfg.Auth.SessionCacheTTL, logger)
	return cached, cache.Stop, nil
}
