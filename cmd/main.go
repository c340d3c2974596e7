// @title        Weather balance API
// @version      1.0
// @description  Adjusts user balances by the current temperature of a city.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "weather_balance/docs"
	"weather_balance/internal/config"
	"weather_balance/internal/handlers"
	"weather_balance/internal/logger"
	"weather_balance/internal/repository"
	"weather_balance/internal/repository/db"
	"weather_balance/internal/server"
	"weather_balance/internal/service"
	"weather_balance/internal/weather"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const redisPingTimeout = 2 * time.Second

func main() {
	// bootstrap logger until the configured one exists
	log := logger.Get(logger.InfoLevel)

	cfg, v, err := config.Load("configs")
	if err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	log = logger.New(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer func() { _ = log.Sync() }()
	config.WatchLogLevel(v, func(level string) {
		log.SetLevel(level)
		log.Infow("log_level_reloaded", "level", log.Level())
	})

	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "path", cfg.DB.Path, "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	fetcher, closeCache := newFetcher(cfg, v, log)
	defer closeCache()

	// wire dependencies
	repos := repository.NewRepository(conn)
	services := service.NewService(repos, fetcher, service.Options{
		Workers:     cfg.Updates.Workers,
		QueueSize:   cfg.Updates.QueueSize,
		HistorySize: cfg.Updates.HistorySize,
		AtomicGuard: cfg.Updates.AtomicGuard,
	}, log)
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userIDs, err := prepareUsers(ctx, cfg, services, log)
	if err != nil {
		log.Fatalw("failed to prepare users table", "err", err)
	}

	services.Start(ctx)

	// the burst stops at shutdown while workers keep their context to drain
	loadCtx, stopLoad := context.WithCancel(ctx)
	defer stopLoad()

	// replay the startup burst in the background
	go func() {
		_, err := services.Generate(loadCtx, userIDs, service.LoadParams{
			Requests: cfg.Seed.Requests,
			Interval: cfg.Seed.Interval,
			Cities:   cfg.Seed.Cities,
		})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, service.ErrDispatcherClosed) {
			log.Errorw("load_generator_failed", "err", err)
		}
	}()

	srv := server.New(cfg.Port, apiHandler.InitRoutes(), server.Timeouts{
		ReadHeader: cfg.Server.ReadHeaderTimeout,
		Write:      cfg.Server.WriteTimeout,
		Idle:       cfg.Server.IdleTimeout,
	})
	runHTTPServer(srv, cfg.Port, log)

	waitForShutdown(stopLoad, srv, services, cfg.Server.ShutdownTimeout, log)
}

// newFetcher builds the provider client, behind a Redis cache when one is configured.
func newFetcher(cfg *config.Config, v *viper.Viper, log *logger.Logger) (weather.Fetcher, func()) {
	client := weather.NewClient(
		cfg.Weather.BaseURL,
		func() string { return v.GetString("weather.api_key") },
		cfg.Weather.Timeout,
		log,
	)
	if cfg.Weather.APIKey == "" {
		log.Warnw("weather_api_key_missing", "env", config.APIKeyEnv)
	}
	if cfg.Weather.RedisAddr == "" || cfg.Weather.CacheTTL <= 0 {
		return client, func() {}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Weather.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// cache misses fall through to the provider, so keep going
		log.Warnw("redis_unreachable", "addr", cfg.Weather.RedisAddr, "err", err)
	}
	log.Infow("weather_cache_enabled", "addr", cfg.Weather.RedisAddr, "ttl", cfg.Weather.CacheTTL.String())

	return weather.NewCachedFetcher(client, rdb, cfg.Weather.CacheTTL, log), func() {
		if err := rdb.Close(); err != nil {
			log.Errorw("failed to close redis", "err", err)
		}
	}
}

// prepareUsers resets and seeds the table when configured, and returns the ids the load generator targets.
func prepareUsers(ctx context.Context, cfg *config.Config, services *service.Service, log *logger.Logger) ([]int64, error) {
	if cfg.DB.ResetOnStart {
		return services.Seed(ctx, service.SeedParams{
			Users:       cfg.Seed.Users,
			BaseBalance: cfg.Seed.BaseBalance,
			BalanceStep: cfg.Seed.BalanceStep,
		})
	}

	users, err := services.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	log.Infow("users_loaded", "count", len(ids))
	return ids, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, log *logger.Logger) {
	go func() {
		log.Infow("http_server_listening", "port", port)
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(stopLoad context.CancelFunc, srv *server.Server, services *service.Service, timeout time.Duration, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	// stop the load generator, then drain queued updates within the same budget
	stopLoad()
	drainCtx, drainCancel := context.WithTimeout(context.Background(), timeout)
	defer drainCancel()
	if err := services.ShutdownContext(drainCtx); err != nil {
		log.Errorw("update queue drain cut short", "err", err)
	}
}
