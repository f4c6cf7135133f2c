package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"example.com/personalize-go/internal/app"
	"example.com/personalize-go/internal/config"
	"example.com/personalize-go/internal/export"
	"example.com/personalize-go/internal/logging"
	"example.com/personalize-go/internal/personalize"
)

func main() {
	var (
		addr  = flag.String("addr", ":8082", "HTTP listen address for the export trigger API")
		local = flag.Bool("local", false, "run exports in-process instead of through Temporal")
	)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		logger.Error("open store failed", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	clients, err := personalize.NewClients(ctx, app.AWSSettings(cfg))
	if err != nil {
		logger.Error("load aws clients failed", "error", err)
		os.Exit(1)
	}
	pipeline, err := app.NewPipeline(cfg, stores, clients, logger)
	if err != nil {
		logger.Error("build export pipeline failed", "error", err)
		os.Exit(1)
	}

	var orchestrator export.Orchestrator
	if *local {
		orchestrator = export.NewLocalOrchestrator(pipeline, nil, logger)
	} else {
		temporalClient, err := app.DialTemporal(cfg, logger)
		if err != nil {
			logger.Error("temporal client unavailable", "error", err)
			os.Exit(1)
		}
		defer temporalClient.Close()

		w := export.RegisterExportWorker(temporalClient, pipeline, logger)
		if err := w.Start(); err != nil {
			logger.Error("start temporal worker failed", "error", err)
			os.Exit(1)
		}
		defer w.Stop()
		logger.Info("temporal worker started", "task_queue", export.ExportTaskQueue(), "namespace", cfg.Temporal.Namespace)
		orchestrator = export.NewTemporalOrchestrator(temporalClient, logger)
	}

	serverLogger := logger.With("component", "export.http")
	srv := export.NewServer(orchestrator, stores.Runs, serverLogger)
	if cfg.Export.Interval > 0 {
		srv.StartAutoExport(ctx, cfg.Export.Interval)
	}
	server := &http.Server{
		Addr:    *addr,
		Handler: srv.Router(),
	}

	go func() {
		serverLogger.Info("export API listening", "addr", *addr, "local", *local)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverLogger.Error("export server error", "error", err)
		}
	}()

	waitForShutdown(serverLogger, server)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return
	}
	logger.Info("export server stopped")
}
