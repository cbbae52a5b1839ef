package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lamconf/internal/api"
	"lamconf/internal/i18n"
	"lamconf/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the settings editor HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a.cfg, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (host:port), overrides the config")
	return cmd
}

func runServe(ctx context.Context, cfg *Config, logger observability.Logger) error {
	sentryEnabled := initSentry(cfg, logger)
	if sentryEnabled {
		defer func() {
			logger.Info("flushing sentry events", "deadline", "2s")
			sentry.Flush(2 * time.Second)
		}()
	}

	catalog, err := i18n.NewCatalog(cfg.DefaultLanguage)
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open settings backend: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("error closing settings backend", "error", err)
		}
	}()

	metricsCfg := observability.MetricsConfigFromEnv()
	metrics := observability.NewMetrics(metricsCfg)
	if metrics != nil {
		logger.Info("metrics enabled", "namespace", metricsCfg.Namespace, "version", metricsCfg.Version)
	} else {
		logger.Info("metrics disabled")
	}

	var proxies *api.TrustedProxyConfig
	if cfg.TrustedProxies != "" {
		proxies, err = api.ParseTrustedProxies(cfg.TrustedProxies)
		if err != nil {
			return err
		}
		logger.Info("trusted proxies configured", "count", len(proxies.CIDRs))
	}

	rateCfg := api.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		Proxies:           proxies,
	}
	if rateCfg.Enabled() {
		logger.Info("rate limiting configured", "requests_per_second", rateCfg.RequestsPerSecond, "burst", rateCfg.Burst)
	} else {
		logger.Info("rate limiting disabled")
	}

	mux := http.NewServeMux()
	srv := api.NewServer(mux, b.settings, catalog, logger, metrics, b.audit)
	srv.SetTrustedProxies(proxies)
	srv.RegisterRoutes(api.LoginRateLimitMiddleware(api.LoginRateLimitConfig{
		AttemptsPerMinute: cfg.LoginAttemptsPerMinute,
		ProxyConfig:       proxies,
		Reject:            srv.LoginRejectHandler(),
	}))

	// The metrics middleware reads the matched route pattern, so nothing
	// between it and the mux may replace the request.
	handler := api.ApplyMiddlewares(
		mux,
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(logger),
		observability.MetricsMiddleware(metrics),
		api.RateLimitMiddleware(rateCfg, logger),
	)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("lamconf listening", "addr", cfg.Addr, "backend", b.name, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", "timeout", shutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	})
	return g.Wait()
}

func initSentry(cfg *Config, logger observability.Logger) bool {
	if cfg.SentryDSN == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		Release:          version,
		TracesSampleRate: 1.0,
		AttachStacktrace: true,
	})
	if err != nil {
		logger.Warn("sentry initialization failed", "error", err)
		return false
	}
	logger.Info("sentry initialized", "environment", cfg.SentryEnvironment, "release", version)
	return true
}
