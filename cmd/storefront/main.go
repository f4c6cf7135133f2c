package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"

	"example.com/personalize-go/internal/app"
	"example.com/personalize-go/internal/config"
	"example.com/personalize-go/internal/logging"
	"example.com/personalize-go/internal/metrics"
	"example.com/personalize-go/internal/personalize"
	"example.com/personalize-go/internal/recommend"
	"example.com/personalize-go/internal/shop"
)

func main() {
	addr := flag.String("addr", ":8081", "HTTP listen address for the storefront API")
	flag.Parse()

	ctx := context.Background()
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

	var hooks []shop.PlaceHook
	if publisher := app.NewPublisher(cfg, stores, clients, logger); publisher != nil {
		hooks = append(hooks, publisher)
	} else {
		logger.Info("event tracking id unset; order interactions are not published")
	}

	recommender, err := app.NewRecommendClient(cfg, stores, clients, logger)
	if err != nil {
		logger.Error("build recommendation client failed", "error", err)
		os.Exit(1)
	}
	recommendations := recommend.NewHandler(recommender, cfg.Recommendation.Enabled, logger.With("component", "recommend.http"))

	serverLogger := logger.With("component", "storefront.http")
	orders := shop.NewOrderService(stores.Shop, serverLogger, hooks...)
	server := &http.Server{
		Addr: *addr,
		Handler: shop.NewServer(stores.Shop, orders, serverLogger).Router(
			recommendations.Mount,
			func(r chi.Router) { r.Handle("/metrics", metrics.Handler()) },
		),
	}

	go func() {
		serverLogger.Info("storefront API listening", "addr", *addr, "driver", cfg.Store.Driver, "recommendations", cfg.Recommendation.Enabled)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverLogger.Error("storefront server error", "error", err)
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
	logger.Info("storefront server stopped")
}
