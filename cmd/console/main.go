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

	"golang.org/x/sync/errgroup"

	"github.com/acme-console/admin-console/cmd/console/cli"
	"github.com/acme-console/admin-console/internal/app"
	"github.com/acme-console/admin-console/internal/console"
	"github.com/acme-console/admin-console/internal/observability"
	"github.com/acme-console/admin-console/internal/platform/cache"
	"github.com/acme-console/admin-console/internal/shared"
	"github.com/acme-console/admin-console/internal/view"
)

const sessionCookieName = "console_session"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "access-report" {
		os.Exit(runAccessReport(os.Args[2:]))
	}

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("console stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func runAccessReport(args []string) int {
	fs := flag.NewFlagSet("access-report", flag.ContinueOnError)
	file := fs.String("file", "", "YAML directory file (defaults to the built-in seed)")
	asJSON := fs.Bool("json", false, "print JSON instead of text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return cli.AccessCommand(cli.AccessOptions{File: *file, JSONOutput: *asJSON})
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dir, err := app.LoadDirectory(ctx, cfg, logger)
	if err != nil {
		return err
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, sessionCookieName, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()
	consoleHandler := console.NewHandler(logger, dir, templates, csrfManager, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		ConsoleHandler: consoleHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
