package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"example.com/personalize-go/internal/catalog"
	"example.com/personalize-go/internal/dataset"
)

// ProductExtractor builds the items dataset from visible catalog products.
type ProductExtractor struct {
	src  ProductSource
	opts Options
}

// NewProductExtractor reads from src.
func NewProductExtractor(src ProductSource, opts Options) *ProductExtractor {
	return &ProductExtractor{src: src, opts: opts}
}

func (e *ProductExtractor) Kind() dataset.Kind { return dataset.KindProduct }

// Prepare loads the category tree once, then streams products and flattens the
// category memberships of each into a display string.
func (e *ProductExtractor) Prepare(ctx context.Context) ([]dataset.Record, error) {
	logger := e.opts.logger()
	nodes, err := e.src.Categories(ctx)
	if err != nil {
		return nil, err
	}
	treeOpts := []catalog.TreeOption{
		catalog.WithMissingHandler(func(err *catalog.MissingCategoryError) {
			logger.Warn("category skipped", "category_id", err.ID, "path", err.Path)
		}),
	}
	if e.opts.StrictCategories {
		treeOpts = append(treeOpts, catalog.WithStrict())
	}
	tree := catalog.NewTree(nodes, treeOpts...)

	var records []dataset.Record
	for row, err := range e.src.VisibleProducts(ctx) {
		if err != nil {
			return nil, err
		}
		categories, err := tree.Flatten(row.CategoryIDs)
		if err != nil {
			return nil, fmt.Errorf("product %d categories: %w", row.EntityID, err)
		}
		records = append(records, dataset.ProductRecord(
			strconv.FormatInt(row.EntityID, 10),
			row.Price,
			row.Name,
			orEmpty(row.MetaKeyword),
			orEmpty(categories),
		))
	}
	logger.Debug("products prepared", "count", len(records), "categories", tree.Len())
	return records, nil
}

func orEmpty(v string) string {
	if strings.TrimSpace(v) == "" {
		return dataset.EmptyValue
	}
	return v
}
