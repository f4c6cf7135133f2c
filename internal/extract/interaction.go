package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"example.com/personalize-go/internal/dataset"
)

// InteractionExtractor builds the interactions dataset from sold order lines.
type InteractionExtractor struct {
	src  InteractionSource
	opts Options
}

// NewInteractionExtractor reads from src.
func NewInteractionExtractor(src InteractionSource, opts Options) *InteractionExtractor {
	return &InteractionExtractor{src: src, opts: opts}
}

func (e *InteractionExtractor) Kind() dataset.Kind { return dataset.KindInteraction }

// Prepare indexes customers by email, then emits one record per order line whose
// order email belongs to a customer. Lines of guest orders are dropped: the dataset
// requires a numeric user id.
func (e *InteractionExtractor) Prepare(ctx context.Context) ([]dataset.Record, error) {
	customers := make(map[string]int64)
	for c, err := range e.src.CustomerEmails(ctx) {
		if err != nil {
			return nil, err
		}
		customers[normalizeEmail(c.Email)] = c.EntityID
	}

	loc := e.opts.location()
	var (
		records []dataset.Record
		dropped int
	)
	for line, err := range e.src.OrderLines(ctx) {
		if err != nil {
			return nil, err
		}
		customerID, ok := customers[normalizeEmail(line.CustomerEmail)]
		if !ok {
			dropped++
			continue
		}
		ts, err := epoch(line.CreatedAt, loc)
		if err != nil {
			return nil, fmt.Errorf("order item %d created at: %w", line.ItemID, err)
		}
		records = append(records, dataset.InteractionRecord(
			strconv.FormatInt(line.ProductID, 10),
			strconv.FormatInt(customerID, 10),
			ts,
		))
	}
	e.opts.logger().Debug("interactions prepared", "count", len(records), "dropped_guest_lines", dropped, "customers", len(customers))
	return records, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
