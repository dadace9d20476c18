// Command gomail serves the goMail web application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goMail "github.com/MrEthical07/goMail"
	"github.com/MrEthical07/goMail/httpapi"
	"github.com/MrEthical07/goMail/internal/config"
	"github.com/MrEthical07/goMail/metrics/export/otel"
	"github.com/MrEthical07/goMail/metrics/export/prometheus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging.Level)

	if err := run(cfg, logger); err != nil {
		logger.Error("gomail stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("gomail stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	rdb, cleanup, err := openRedis(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := goMail.New().
		WithConfig(cfg.Engine()).
		WithRedis(rdb).
		WithLogger(logger).
		WithAuditSink(goMail.NewSlogSink(logger.With("component", "audit"))).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	logger.Info("security configuration", "report", engine.SecurityReport())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := engine.Ping(ctx); err != nil {
		return err
	}

	app := &http.Server{
		Addr: cfg.Server.Listen,
		Handler: httpapi.New(engine, httpapi.Options{
			Logger:     logger,
			StaticDir:  cfg.Server.StaticDir,
			TrustProxy: cfg.Server.TrustProxy,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	servers := []*http.Server{app}

	if cfg.Server.AdminListen != "" {
		admin, shutdownAdmin, err := adminServer(cfg.Server.AdminListen, engine)
		if err != nil {
			return err
		}
		defer shutdownAdmin()
		servers = append(servers, admin)
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		logger.Info("listening", "addr", srv.Addr)
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", "addr", srv.Addr, "error", err)
		}
	}

	return serveErr
}

func adminServer(addr string, engine *goMail.Engine) (*http.Server, func(), error) {
	collector, err := otel.NewCollector(engine)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", prometheus.New(engine).Handler())
	mux.Handle("GET /metrics/otel", collector.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return srv, func() { _ = collector.Shutdown(context.Background()) }, nil
}

// openRedis connects to cfg.Redis.Addr, or starts miniredis in development
// when no address is configured.
func openRedis(cfg *config.Config, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if cfg.Redis.Addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.Info("using redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return client, func() { _ = client.Close() }, nil
	}

	if !cfg.IsDevelopment() {
		return nil, nil, errors.New("redis address is required outside development")
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Warn("no redis configured, using in-memory miniredis; data is lost on exit", "addr", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
