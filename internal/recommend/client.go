// Package recommend resolves remote recommendations into catalog summaries.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"example.com/personalize-go/internal/catalog"
	"example.com/personalize-go/internal/personalize"
)

// ErrRateLimited is returned when the inference budget is exhausted for the request's deadline.
var ErrRateLimited = errors.New("recommendation rate limit exceeded")

// Inference returns raw recommended item ids, duplicates included.
type Inference interface {
	Recommend(ctx context.Context, q personalize.Query) ([]string, error)
}

// CatalogReader batch-loads catalog items. Unknown ids are absent from the result.
type CatalogReader interface {
	ProductSummaries(ctx context.Context, ids []int64) ([]catalog.Product, error)
}

// Request asks for recommendations. ItemID set means item-to-item, otherwise
// user-to-item. CampaignARN is filled from the client's configuration when empty.
type Request struct {
	ItemID      string
	UserID      string
	CampaignARN string
}

// Result holds catalog summaries in the order the service first returned them.
type Result struct {
	Items []catalog.Summary `json:"items"`
}

// ByID indexes the summaries by item id.
func (r Result) ByID() map[string]catalog.Summary {
	out := make(map[string]catalog.Summary, len(r.Items))
	for _, s := range r.Items {
		out[s.ID] = s
	}
	return out
}

// Options configure a Client.
type Options struct {
	CampaignARN string
	NumResults  int32
	// RateLimit caps inference calls per second; zero disables limiting.
	RateLimit float64
	Logger    *slog.Logger
}

// Client calls inference and maps the result back to the catalog.
type Client struct {
	inference   Inference
	catalog     CatalogReader
	summarizer  *catalog.Summarizer
	limiter     *rate.Limiter
	campaignARN string
	numResults  int32
	logger      *slog.Logger
}

// NewClient wires a recommendation client.
func NewClient(inference Inference, reader CatalogReader, summarizer *catalog.Summarizer, opts Options) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		inference:   inference,
		catalog:     reader,
		summarizer:  summarizer,
		limiter:     limiter,
		campaignARN: opts.CampaignARN,
		numResults:  opts.NumResults,
		logger:      logger,
	}
}

// GetRecommendations returns the distinct recommended items found in the catalog.
// An empty recommendation list is a valid empty Result and skips the catalog.
// Inference and catalog failures are returned unchanged in meaning.
func (c *Client) GetRecommendations(ctx context.Context, req Request) (Result, error) {
	if req.CampaignARN == "" {
		req.CampaignARN = c.campaignARN
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	raw, err := c.inference.Recommend(ctx, personalize.Query{
		CampaignARN: req.CampaignARN,
		ItemID:      strings.TrimSpace(req.ItemID),
		UserID:      strings.TrimSpace(req.UserID),
		NumResults:  c.numResults,
	})
	if err != nil {
		return Result{}, err
	}

	ids := c.distinctIDs(raw)
	if len(ids) == 0 {
		return Result{}, nil
	}
	products, err := c.catalog.ProductSummaries(ctx, ids)
	if err != nil {
		return Result{}, err
	}
	byID := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	result := Result{Items: make([]catalog.Summary, 0, len(ids))}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			result.Items = append(result.Items, c.summarizer.Summarize(p))
		}
	}
	c.logger.Debug("recommendations resolved", "item_id", req.ItemID, "user_id", req.UserID, "returned", len(raw), "distinct", len(ids), "found", len(result.Items))
	return result, nil
}

// distinctIDs keeps the first occurrence of each numeric id. Ids that are not
// catalog entity ids cannot be resolved and are skipped.
func (c *Client) distinctIDs(raw []string) []int64 {
	seen := make(map[int64]struct{}, len(raw))
	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(r), 10, 64)
		if err != nil {
			c.logger.Warn("non-numeric recommended item skipped", "item_id", r)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
