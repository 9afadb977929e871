package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"printbot/internal/config"
	handlers "printbot/internal/http/handler"
	"printbot/internal/http/middleware"
	"printbot/internal/logging"
	"printbot/internal/metrics"
	"printbot/internal/model"
	"printbot/internal/otel"
	"printbot/internal/printer"
	"printbot/internal/service"
	"printbot/internal/storage"
	"printbot/internal/transport"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid_config", err)
	}
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		fatal(logger, "tracing_init_failed", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown_failed", "error", err.Error())
		}
	}()

	// The upload directory must exist before any event is processed
	uploads, err := storage.NewUploadDir(cfg.UploadDir)
	if err != nil {
		fatal(logger, "upload_dir_failed", err)
	}

	admin, err := model.ParseDestination(cfg.AdminChat)
	if err != nil {
		fatal(logger, "invalid_admin_chat", err)
	}

	// Optional S3-compatible archive of printed files
	var archive storage.ObjectStore
	if cfg.MinIO.Enabled() {
		archive, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			fatal(logger, "archive_init_failed", err)
		}
		logger.Info("archive_enabled", "endpoint", cfg.MinIO.Endpoint, "bucket", cfg.MinIO.Bucket)
	}

	tg, err := transport.NewTelegram(transport.TelegramConfig{
		Token:        cfg.Telegram.Token,
		APIEndpoint:  cfg.Telegram.APIEndpoint,
		FileEndpoint: cfg.Telegram.FileEndpoint,
		PollTimeout:  cfg.Telegram.PollTimeoutSec,
		Location:     loc,
		Logger:       logger,
	})
	if err != nil {
		fatal(logger, "transport_init_failed", err)
	}

	pdfinfo := printer.NewPdfinfo(cfg.Printer.PdfinfoPath, cfg.Printer.ToolTimeout())
	lp := printer.NewLp(printer.LpConfig{
		Binary:           cfg.Printer.LpPath,
		Printer:          cfg.Printer.PrinterName,
		IgnoreExitStatus: cfg.Printer.IgnoreExitStatus,
		Timeout:          cfg.Printer.ToolTimeout(),
	})
	for name, check := range map[string]func() error{"pdfinfo": pdfinfo.Check, "lp": lp.Check} {
		if err := check(); err != nil {
			logger.Warn("tool_not_found", "tool", name, "error", err.Error())
		}
	}
	if cfg.Printer.IgnoreExitStatus {
		logger.Warn("print_exit_status_ignored")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics, err := metrics.NewPipeline(registry)
	if err != nil {
		fatal(logger, "metrics_init_failed", err)
	}

	relay, err := service.NewRelay(service.RelayConfig{
		Transport:   tg,
		PageCounter: pdfinfo,
		Submitter:   lp,
		Uploads:     uploads,
		Archive:     archive,
		Recorder:    pipelineMetrics,
		Admin:       admin,
		Location:    loc,
		Logger:      logger,
	})
	if err != nil {
		fatal(logger, "relay_init_failed", err)
	}

	events, err := tg.Events(ctx)
	if err != nil {
		fatal(logger, "transport_events_failed", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The ops server goes down with the relay
		defer stop()
		return relay.Run(gctx, events)
	})

	if cfg.OpsAddr != "" {
		checks := []handlers.Check{
			{Name: "upload_dir", Probe: func(context.Context) error { return uploads.Check() }},
			{Name: "pdfinfo", Probe: func(context.Context) error { return pdfinfo.Check() }},
			{Name: "lp", Probe: func(context.Context) error { return lp.Check() }},
		}
		if archive != nil {
			checks = append(checks, handlers.Check{Name: "archive", Probe: archive.Ping})
		}

		app, err := newOpsApp(logger, registry, checks)
		if err != nil {
			fatal(logger, "ops_init_failed", err)
		}

		g.Go(func() error {
			logger.Info("ops_listening", "addr", cfg.OpsAddr)
			if err := app.Listen(cfg.OpsAddr); err != nil {
				logger.Error("ops_server_failed", "error", err.Error())
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
				return fmt.Errorf("ops shutdown: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("relay_failed", "error", err.Error())
	}
	logger.Info("stopped")
}

// newOpsApp builds the operations HTTP server: health probes and metrics.
func newOpsApp(logger *slog.Logger, registry *prometheus.Registry, checks []handlers.Check) (*fiber.App, error) {
	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	// RequestID adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(logger))
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, checks, registry)
	return app, nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err.Error())
	os.Exit(1)
}
