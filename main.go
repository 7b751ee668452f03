package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"notejournal/auth"
	"notejournal/config"
	"notejournal/db"
	"notejournal/handlers"
	"notejournal/journal"
	"notejournal/logging"
	"notejournal/repository"
)

func main() {
	dotenvErr := config.LoadDotEnv()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)
	if dotenvErr != nil {
		logger.Warn().Err(dotenvErr).Msg("no .env file loaded, using environment")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	conn, err := db.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database connection error")
	}
	defer conn.Close()

	revoker, closeRevoker := newRevoker(cfg, logger)
	defer closeRevoker()

	r := buildRouter(cfg, conn, revoker, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", "http://localhost:"+cfg.Port).Str("driver", cfg.DBDriver).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func buildRouter(cfg *config.Config, conn *sql.DB, revoker auth.Revoker, logger zerolog.Logger) http.Handler {
	users := repository.NewUsers(conn)
	categories := repository.NewCategories(conn)
	notes := repository.NewNotes(conn, time.Now)

	svc := journal.NewService(notes, categories, journal.Options{
		Policy:               journal.Policy(cfg.GroupingPolicy),
		AutoCreateCategories: cfg.AutoCreateCategories,
		Location:             cfg.Location(),
	})
	accounts := auth.NewService(users, cfg.PasswordPolicy)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, revoker)

	return handlers.NewRouter(handlers.New(svc, accounts, tokens), handlers.RouterConfig{
		Logger:             logger,
		AllowedOrigin:      cfg.AllowedOrigin,
		TrustProxy:         cfg.TrustProxy,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		DB:                 conn,
	})
}

// newRevoker uses Redis when REDIS_ADDR is set so logouts hold across
// instances; otherwise revocations live in this process.
func newRevoker(cfg *config.Config, logger zerolog.Logger) (auth.Revoker, func()) {
	if cfg.RedisAddr == "" {
		return auth.NewMemoryRevoker(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis connection error")
	}
	return auth.NewRedisRevoker(client), func() { client.Close() }
}
