// Package app wires the service dependencies together and runs the HTTP
// server, the scan tracker and their shutdown sequence.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	rediscache "github.com/pavelzubkov/qrlink/internal/adapter/cache/redis"
	delivery "github.com/pavelzubkov/qrlink/internal/adapter/delivery/http"
	pgrepo "github.com/pavelzubkov/qrlink/internal/adapter/repository/postgres"
	s3storage "github.com/pavelzubkov/qrlink/internal/adapter/storage/s3"
	"github.com/pavelzubkov/qrlink/internal/config"
	"github.com/pavelzubkov/qrlink/internal/usecase"
	"github.com/pavelzubkov/qrlink/pkg/postgres"
)

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg.Env)

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	cache := rediscache.NewLinkCache(rdb, rediscache.WithTTL(cfg.Redis.CacheTTL))

	storage, err := s3storage.NewStorage(ctx, s3storage.Config{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		QRBucket:        cfg.S3.QRBucket,
		ScanLogBucket:   cfg.S3.ScanLogBucket,
		BaseURL:         cfg.S3.BaseURL,
		ForcePathStyle:  cfg.S3.ForcePathStyle,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to init s3 storage: %w", op, err)
	}

	linkRepo := pgrepo.NewLinkRepository(db)

	tracker := usecase.NewScanTracker(
		linkRepo, storage, logger.Logger,
		cfg.Tracker.QueueSize, cfg.Tracker.Workers, cfg.Tracker.ShutdownTimeout,
	)
	resolver := usecase.NewResolver(linkRepo, cache, tracker, logger.Logger, cfg.Resolver.StoreTimeout)
	linkUseCase := usecase.NewLinkUseCase(
		linkRepo, cache, storage, logger.Logger,
		cfg.Link.CodeLength, cfg.Link.QRSize, cfg.Link.BaseURL,
	)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, resolver, linkUseCase),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return tracker.Run(ctx)
	})

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

func newLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelDebug,
		Concise:  true,
	}

	if env == config.EnvProd {
		opts = httplog.Options{
			LogLevel: slog.LevelInfo,
			JSON:     true,
		}
	}

	return httplog.NewLogger("qrlink", opts)
}
