// Package personalize wraps the AWS clients used by the pipeline: object storage upload
// plus dataset import, real-time inference and the interaction event stream.
package personalize

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awspersonalize "github.com/aws/aws-sdk-go-v2/service/personalize"
	"github.com/aws/aws-sdk-go-v2/service/personalizeevents"
	"github.com/aws/aws-sdk-go-v2/service/personalizeruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Settings locates the AWS account and endpoints.
type Settings struct {
	Region  string
	Profile string
	// Endpoint overrides every service endpoint (LocalStack, MinIO).
	Endpoint string
	// Timeout bounds each remote call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds remote calls when Settings.Timeout is unset.
const DefaultTimeout = 10 * time.Second

func (s Settings) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

// Clients holds one SDK client per service.
type Clients struct {
	S3          *s3.Client
	Personalize *awspersonalize.Client
	Runtime     *personalizeruntime.Client
	Events      *personalizeevents.Client
	Settings    Settings
}

// LoadAWSConfig resolves credentials from the shared profile and applies the region.
func LoadAWSConfig(ctx context.Context, s Settings) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.Region)}
	if s.Profile != "" && s.Profile != "default" {
		opts = append(opts, config.WithSharedConfigProfile(s.Profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// NewClients builds every service client from one resolved configuration.
func NewClients(ctx context.Context, s Settings) (*Clients, error) {
	cfg, err := LoadAWSConfig(ctx, s)
	if err != nil {
		return nil, err
	}
	var endpoint *string
	if s.Endpoint != "" {
		endpoint = aws.String(s.Endpoint)
	}
	return &Clients{
		S3: s3.NewFromConfig(cfg, func(o *s3.Options) {
			if endpoint != nil {
				o.BaseEndpoint = endpoint
				o.UsePathStyle = true
			}
		}),
		Personalize: awspersonalize.NewFromConfig(cfg, func(o *awspersonalize.Options) {
			o.BaseEndpoint = endpoint
		}),
		Runtime: personalizeruntime.NewFromConfig(cfg, func(o *personalizeruntime.Options) {
			o.BaseEndpoint = endpoint
		}),
		Events: personalizeevents.NewFromConfig(cfg, func(o *personalizeevents.Options) {
			o.BaseEndpoint = endpoint
		}),
		Settings: s,
	}, nil
}
