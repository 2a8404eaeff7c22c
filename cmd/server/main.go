// Command server is the FireWatch dashboard server binary. It loads a YAML
// configuration file, seeds the in-memory security state, starts the
// telemetry hub, exposes the HTTP/WebSocket API, and shuts down gracefully
// on SIGTERM or SIGINT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firewatch/dashboard/internal/audit"
	"github.com/firewatch/dashboard/internal/auth"
	"github.com/firewatch/dashboard/internal/config"
	"github.com/firewatch/dashboard/internal/hub"
	"github.com/firewatch/dashboard/internal/metrics"
	"github.com/firewatch/dashboard/internal/server"
	"github.com/firewatch/dashboard/internal/simulate"
	"github.com/firewatch/dashboard/internal/state"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML configuration file (optional)")
		listenAddr = flag.String("addr", "", "Listen address; overrides the configured value")
		logLevel   = flag.String("log-level", "", "Log level: debug | info | warn | error; overrides the configured value")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("firewatch dashboard server starting",
		slog.String("addr", cfg.ListenAddr),
	)
	if cfg.Auth.Secret == config.DefaultSecret {
		logger.Warn("auth secret is the built-in development default; do not expose this server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Authentication ────────────────────────────────────────────────────────
	users := make([]auth.User, len(cfg.Auth.Users))
	for i, u := range cfg.Auth.Users {
		users[i] = auth.User{Username: u.Username, Password: u.Password, Role: u.Role}
	}
	authSvc, err := auth.NewService(cfg.Auth.Secret, cfg.Auth.TokenTTL, users)
	if err != nil {
		logger.Error("failed to create auth service", slog.Any("error", err))
		os.Exit(1)
	}

	// ── State store + seed data ───────────────────────────────────────────────
	gen := simulate.New()
	store := state.NewStore(state.Options{
		EventCapacity: cfg.Limits.EventLogCapacity,
		AlertCapacity: cfg.Limits.AlertLogCapacity,
	})
	store.SeedRules(gen.Rules(*cfg.SeedRules))
	store.SetMetrics(gen.TrafficMetrics())
	critical, high := store.AlertSeverityCounts()
	store.SetStatistics(gen.Statistics(store.ActiveRuleCount(), critical, high))
	logger.Info("state store seeded", slog.Int("rules", *cfg.SeedRules))

	// ── Audit trail ───────────────────────────────────────────────────────────
	var trail *audit.Trail
	if cfg.AuditLog != "" {
		trail, err = audit.Open(cfg.AuditLog)
		if err != nil {
			logger.Error("failed to open audit trail", slog.Any("error", err))
			os.Exit(1)
		}
		defer trail.Close()
		logger.Info("audit trail open", slog.String("path", cfg.AuditLog))
	} else {
		logger.Warn("no audit log configured; mutation auditing disabled")
	}

	// ── Instrumentation ───────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	hubMetrics := metrics.New(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	// ── Hub ───────────────────────────────────────────────────────────────────
	h := hub.New(hub.Options{
		Logger:             logger,
		Store:              store,
		Generator:          gen,
		Verifier:           authSvc,
		Metrics:            hubMetrics,
		Trail:              trail,
		SendBuffer:         cfg.Limits.SendBuffer,
		EventInterval:      cfg.Ticker.EventInterval,
		StatisticsInterval: cfg.Ticker.StatisticsInterval,
		MetricsInterval:    cfg.Ticker.MetricsInterval,
	})
	go h.Run(ctx)

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := server.NewServer(logger, authSvc, h)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.NewRouter(srv, metricsHandler),
		// No ReadTimeout: it would also cap the lifetime of upgraded
		// WebSocket connections.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrCh <- fmt.Errorf("HTTP server: %w", err)
		}
		close(httpErrCh)
	}()

	// ── Wait for shutdown signal or fatal error ───────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-httpErrCh:
		if err != nil {
			logger.Error("HTTP server error", slog.Any("error", err))
		}
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	logger.Info("shutting down")
	cancel() // stops the hub run loop and closes every session channel

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", slog.Any("error", err))
	}

	logger.Info("firewatch dashboard server exited cleanly")
}

// newLogger constructs a *slog.Logger that writes JSON-structured log records
// to stderr at the requested minimum level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
