// Package app assembles the components shared by the binaries from a Config.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	"example.com/personalize-go/internal/catalog"
	"example.com/personalize-go/internal/config"
	"example.com/personalize-go/internal/dataset"
	"example.com/personalize-go/internal/dbutil"
	"example.com/personalize-go/internal/events"
	"example.com/personalize-go/internal/export"
	"example.com/personalize-go/internal/extract"
	"example.com/personalize-go/internal/personalize"
	"example.com/personalize-go/internal/recommend"
	"example.com/personalize-go/internal/shop"
	"example.com/personalize-go/internal/tabular"
)

// Stores bundles the database handle with the DAOs built on it.
type Stores struct {
	DB   *sql.DB
	Shop *shop.Store
	Runs *export.Store
}

// Close releases the database handle.
func (s *Stores) Close() error {
	return s.DB.Close()
}

// OpenStores opens the configured database. SQLite schemas are applied on open;
// a postgres database is expected to be provisioned.
func OpenStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	loc, err := cfg.Store.Location()
	if err != nil {
		return nil, err
	}
	db, err := dbutil.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	s := &Stores{
		DB:   db,
		Shop: shop.NewStore(db, cfg.Store.Driver, loc),
		Runs: export.NewStore(db, cfg.Store.Driver),
	}
	if cfg.Store.Driver == dbutil.DriverSQLite {
		if err := s.Shop.Init(ctx); err != nil {
			db.Close()
			return nil, err
		}
		if err := s.Runs.Init(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// AWSSettings maps the AWS section of cfg.
func AWSSettings(cfg config.Config) personalize.Settings {
	return personalize.Settings{
		Region:   cfg.AWS.Region,
		Profile:  cfg.AWS.Profile,
		Endpoint: cfg.AWS.Endpoint,
		Timeout:  cfg.AWS.Timeout,
	}
}

// NewPipeline wires extraction, serialization and upload for every dataset kind.
func NewPipeline(cfg config.Config, stores *Stores, clients *personalize.Clients, logger *slog.Logger) (*export.Pipeline, error) {
	delimiter, err := cfg.Delimiter()
	if err != nil {
		return nil, err
	}
	opts := extract.Options{
		Location:         stores.Shop.Location(),
		StrictCategories: cfg.Export.StrictCategories,
		Logger:           logger.With("component", "extract"),
	}
	extractors := func(kind dataset.Kind) (extract.Extractor, error) {
		return extract.For(kind, stores.Shop, opts)
	}
	uploader := personalize.NewExporterFromClients(clients, logger.With("component", "personalize.exporter"))
	return export.NewPipeline(cfg, extractors, tabular.New(delimiter), uploader, stores.Runs, logger.With("component", "export.pipeline")), nil
}

// NewRecommendClient wires inference to the catalog.
func NewRecommendClient(cfg config.Config, stores *Stores, clients *personalize.Clients, logger *slog.Logger) (*recommend.Client, error) {
	prices, err := catalog.NewPriceFormatter(cfg.Recommendation.Currency, cfg.Recommendation.Locale)
	if err != nil {
		return nil, err
	}
	summarizer := catalog.NewSummarizer(cfg.Recommendation.BaseURL, cfg.Recommendation.MediaURL, prices)
	return recommend.NewClient(
		personalize.NewRecommender(clients.Runtime, cfg.AWS.Timeout),
		stores.Shop,
		summarizer,
		recommend.Options{
			CampaignARN: cfg.Recommendation.CampaignARN,
			NumResults:  cfg.Recommendation.NumResults,
			RateLimit:   cfg.Recommendation.RateLimit,
			Logger:      logger.With("component", "recommend"),
		},
	), nil
}

// NewPublisher wires the order interaction publisher, or returns nil when no
// tracking id is configured.
func NewPublisher(cfg config.Config, stores *Stores, clients *personalize.Clients, logger *slog.Logger) *events.Publisher {
	if cfg.Events.TrackingID == "" {
		return nil
	}
	ec := events.DefaultConfig(cfg.Events.TrackingID, cfg.Events.EventType)
	ec.Timeout = cfg.Events.Timeout
	ec.Location = stores.Shop.Location()
	return events.NewPublisher(stores.Shop, personalize.NewEventSender(clients.Events), ec, logger.With("component", "events.publisher"))
}

// DialTemporal connects to the configured Temporal frontend.
func DialTemporal(cfg config.Config, logger *slog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(logger.With("component", "temporal")),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", cfg.Temporal.HostPort, err)
	}
	return c, nil
}
