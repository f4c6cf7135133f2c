package extract

import (
	"context"
	"fmt"
	"strconv"

	"example.com/personalize-go/internal/dataset"
)

// CustomerExtractor builds the users dataset from active customers.
type CustomerExtractor struct {
	src  CustomerSource
	opts Options
}

// NewCustomerExtractor reads from src.
func NewCustomerExtractor(src CustomerSource, opts Options) *CustomerExtractor {
	return &CustomerExtractor{src: src, opts: opts}
}

func (e *CustomerExtractor) Kind() dataset.Kind { return dataset.KindCustomer }

// Prepare emits one record per active customer. LAST_VISIT_AT falls back to the
// account's last update when the customer never visited; DATE_OF_BIRTH is 0 when unknown.
func (e *CustomerExtractor) Prepare(ctx context.Context) ([]dataset.Record, error) {
	loc := e.opts.location()
	var records []dataset.Record
	for row, err := range e.src.ActiveCustomers(ctx) {
		if err != nil {
			return nil, err
		}
		engagement := row.UpdatedAt
		if row.LastVisitAt != nil {
			engagement = *row.LastVisitAt
		}
		lastVisit, err := epoch(engagement, loc)
		if err != nil {
			return nil, fmt.Errorf("customer %d last visit: %w", row.EntityID, err)
		}
		var dob int64
		if row.DOB != nil {
			if dob, err = epoch(*row.DOB, loc); err != nil {
				return nil, fmt.Errorf("customer %d date of birth: %w", row.EntityID, err)
			}
		}
		records = append(records, dataset.CustomerRecord(
			strconv.FormatInt(row.EntityID, 10),
			row.Gender,
			lastVisit,
			row.Region,
			dob,
			row.GroupID,
		))
	}
	return records, nil
}
