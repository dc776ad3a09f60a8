package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"account-service/cmd/controllers"
	"account-service/cmd/routes"
	"account-service/internal/accounts"
	"account-service/internal/auth"
	"account-service/internal/configs"
	"account-service/internal/invitations"
	"account-service/internal/metrics"
	"account-service/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}
	if level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := configs.OpenDatabase(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening user directory")
	}
	defer func() {
		if err := closeDB(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error closing user directory")
		}
	}()

	blobs, assetBaseURL, err := openBlobStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening blob store")
	}

	accountService := accounts.NewService(db,
		auth.NewPasswordHasher(cfg.BcryptCost),
		auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
		blobs,
		assetBaseURL,
		accounts.WithResetTTL(cfg.ResetTokenTTL),
	)
	controllers.Accounts = accountService
	controllers.Invitations = invitations.NewEngine(db)
	controllers.RequestTimeout = cfg.RequestTimeout

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("Error registering metrics")
	}
	router := routes.NewRouter(accountService, prometheus.DefaultGatherer)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Msg("Starting server on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Error starting server on port " + cfg.Port)
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down server")
	}
}

// openBlobStore returns the configured store and the base URL its addresses are
// served under.
func openBlobStore(ctx context.Context, cfg *configs.Config) (storage.BlobStore, string, error) {
	if cfg.BlobDriver == configs.BlobMinIO {
		store, err := storage.NewMinIO(cfg.MinIOConfig.Endpoint, cfg.MinIOConfig.AccessKey, cfg.MinIOConfig.SecretKey, cfg.Bucket, cfg.UseSSL)
		if err != nil {
			return nil, "", err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, "", err
		}
		return store, strings.TrimRight(cfg.PublicURL, "/") + "/" + cfg.Bucket, nil
	}
	pinata := storage.NewPinata(&http.Client{Timeout: 30 * time.Second}, cfg.PinataConfig.URL, cfg.APIKey, cfg.PinataConfig.SecretKey)
	return pinata, cfg.Gateway, nil
}
