// Package config loads runtime settings from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"example.com/personalize-go/internal/dataset"
	"example.com/personalize-go/internal/tabular"
)

// Config holds every setting shared by the exporter, worker and storefront binaries.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	AWS            AWS            `envPrefix:"PERSONALIZE_AWS_"`
	Store          Store          `envPrefix:"PERSONALIZE_STORE_"`
	Export         Export         `envPrefix:"PERSONALIZE_EXPORT_"`
	Recommendation Recommendation `envPrefix:"PERSONALIZE_RECOMMENDATION_"`
	Events         Events         `envPrefix:"PERSONALIZE_EVENTS_"`
	Temporal       Temporal       `envPrefix:"TEMPORAL_"`
}

// AWS describes the client credentials reference and endpoint.
type AWS struct {
	Region  string `env:"REGION" envDefault:"us-east-2"`
	Profile string `env:"PROFILE" envDefault:"default"`
	// Endpoint overrides every service endpoint, e.g. for LocalStack.
	Endpoint string        `env:"ENDPOINT"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Store locates the operational database.
type Store struct {
	Driver   string `env:"DRIVER" envDefault:"sqlite"`
	DSN      string `env:"DSN" envDefault:"shop.db"`
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`
}

// Location resolves the configured store timezone.
func (s Store) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load store timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// Dataset holds the remote coordinates of one dataset kind.
type Dataset struct {
	Bucket     string `env:"BUCKET"`
	Key        string `env:"KEY"`
	DatasetARN string `env:"DATASET_ARN"`
	RoleARN    string `env:"ROLE_ARN"`
	JobName    string `env:"JOB_NAME"`
}

// Export groups per-kind datasets and serialization settings.
type Export struct {
	Delimiter   string  `env:"CSV_DELIMITER" envDefault:","`
	Customer    Dataset `envPrefix:"CUSTOMER_"`
	Product     Dataset `envPrefix:"PRODUCT_"`
	Interaction Dataset `envPrefix:"INTERACTION_"`
	// StrictCategories fails product exports on categories missing from the tree.
	StrictCategories bool `env:"STRICT_CATEGORIES"`
	// Interval dispatches every dataset export periodically from the worker. Zero disables it.
	Interval time.Duration `env:"INTERVAL"`
}

// Recommendation configures the inference path and product summaries.
type Recommendation struct {
	Enabled     bool    `env:"ENABLE"`
	CampaignARN string  `env:"CAMPAIGN_ARN"`
	NumResults  int32   `env:"NUM_RESULTS" envDefault:"10"`
	RateLimit   float64 `env:"RATE_LIMIT" envDefault:"20"`
	BaseURL     string  `env:"BASE_URL" envDefault:"http://localhost:8081"`
	MediaURL    string  `env:"MEDIA_URL" envDefault:"http://localhost:8081/media"`
	Currency    string  `env:"CURRENCY" envDefault:"USD"`
	Locale      string  `env:"LOCALE" envDefault:"en-US"`
}

// Events configures real-time interaction publishing.
type Events struct {
	TrackingID string        `env:"TRACKING_ID"`
	EventType  string        `env:"EVENT_TYPE" envDefault:"purchase"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"3s"`
}

// Temporal locates the workflow service used by the worker and the exporter's --temporal mode.
type Temporal struct {
	HostPort  string `env:"ADDRESS" envDefault:"localhost:7233"`
	Namespace string `env:"NAMESPACE" envDefault:"default"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Delimiter returns the validated CSV delimiter.
func (c Config) Delimiter() (rune, error) {
	return tabular.ParseDelimiter(c.Export.Delimiter)
}

// Descriptor builds and validates the job descriptor of kind.
func (c Config) Descriptor(kind dataset.Kind) (dataset.JobDescriptor, error) {
	var ds Dataset
	switch kind {
	case dataset.KindCustomer:
		ds = c.Export.Customer
	case dataset.KindProduct:
		ds = c.Export.Product
	case dataset.KindInteraction:
		ds = c.Export.Interaction
	default:
		return dataset.JobDescriptor{}, fmt.Errorf("unknown dataset kind %q", kind)
	}
	d := dataset.JobDescriptor{
		Kind:          kind,
		Bucket:        ds.Bucket,
		Key:           ds.Key,
		DatasetARN:    ds.DatasetARN,
		RoleARN:       ds.RoleARN,
		JobNamePrefix: ds.JobName,
	}
	if err := d.Validate(); err != nil {
		return dataset.JobDescriptor{}, err
	}
	return d, nil
}
