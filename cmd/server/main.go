package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mailfold/mailfold/internal/api"
	"github.com/mailfold/mailfold/internal/blob"
	"github.com/mailfold/mailfold/internal/cache"
	"github.com/mailfold/mailfold/internal/config"
	"github.com/mailfold/mailfold/internal/db"
	"github.com/mailfold/mailfold/internal/ingest"
	ws "github.com/mailfold/mailfold/internal/websocket"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.CloseConnection(pool)
	logger.Info().Msg("connected to PostgreSQL")

	// The scope cache is optional: without Redis every resolution hits
	// the database.
	var scopeCache ingest.ScopeCache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewScopeCache(ctx, cfg.RedisURL, cfg.ScopeCacheTTL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisCache.Close()
		scopeCache = redisCache
		logger.Info().Msg("connected to Redis")
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("blob store init failed")
	}
	logger.Info().Str("backend", blobs.Name()).Msg("blob store ready")

	hub := ws.NewHub(10, logger)

	handler := api.NewHandler(pool, db.NewStore(pool), scopeCache, blobs, hub, cfg, logger)
	router := api.NewRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Environment).
			Msg("starting Mailfold server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// newBlobStore builds the attachment store named by the configuration.
func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.BlobBackend == "s3" {
		return blob.NewS3Store(ctx, cfg.BlobS3Bucket, cfg.BlobS3Region)
	}
	return blob.NewFSStore(cfg.BlobFSDir)
}
