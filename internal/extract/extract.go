// Package extract turns operational store rows into dataset records, one extractor per dataset kind.
package extract

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"example.com/personalize-go/internal/catalog"
	"example.com/personalize-go/internal/dataset"
	"example.com/personalize-go/internal/shop"
)

// Extractor prepares every record of one dataset kind. Source failures propagate.
type Extractor interface {
	Kind() dataset.Kind
	Prepare(ctx context.Context) ([]dataset.Record, error)
}

// CustomerSource streams the customer export projection.
type CustomerSource interface {
	ActiveCustomers(ctx context.Context) iter.Seq2[shop.CustomerRow, error]
}

// ProductSource provides the category tree and streams visible products.
type ProductSource interface {
	Categories(ctx context.Context) ([]catalog.Node, error)
	VisibleProducts(ctx context.Context) iter.Seq2[shop.ProductRow, error]
}

// InteractionSource streams customers and sold order lines.
type InteractionSource interface {
	CustomerEmails(ctx context.Context) iter.Seq2[shop.CustomerEmail, error]
	OrderLines(ctx context.Context) iter.Seq2[shop.OrderLine, error]
}

// Source is everything the three extractors read; *shop.Store implements it.
type Source interface {
	CustomerSource
	ProductSource
	InteractionSource
}

// Options tune extractor behaviour shared across kinds.
type Options struct {
	// Location interprets naive store timestamps.
	Location *time.Location
	// StrictCategories fails product extraction on categories missing from the tree.
	StrictCategories bool
	Logger           *slog.Logger
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// For returns the extractor of kind reading from src.
func For(kind dataset.Kind, src Source, opts Options) (Extractor, error) {
	switch kind {
	case dataset.KindCustomer:
		return NewCustomerExtractor(src, opts), nil
	case dataset.KindProduct:
		return NewProductExtractor(src, opts), nil
	case dataset.KindInteraction:
		return NewInteractionExtractor(src, opts), nil
	}
	return nil, fmt.Errorf("no extractor for dataset kind %q", kind)
}

func epoch(value string, loc *time.Location) (int64, error) {
	t, err := shop.ParseTimestamp(value, loc)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
