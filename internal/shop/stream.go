package shop

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
)

// stream runs query and yields one scanned value per row. The cursor stays open
// only while the consumer keeps ranging.
func stream[T any](ctx context.Context, db *sql.DB, what, query string, args []any, scan func(*sql.Rows) (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(zero, fmt.Errorf("query %s: %w", what, err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			v, err := scan(rows)
			if err != nil {
				yield(zero, fmt.Errorf("scan %s: %w", what, err))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, fmt.Errorf("iter %s: %w", what, err))
		}
	}
}

const activeCustomersQuery = `SELECT c.entity_id, c.group_id, c.gender, c.updated_at, c.dob, a.region, v.visitor_id, v.last_visit_at
	FROM customer_entity c
	LEFT JOIN customer_address_entity a ON a.entity_id = c.default_shipping
	LEFT JOIN customer_visitor v ON v.customer_id = c.entity_id
		AND v.visitor_id = (SELECT MAX(va.visitor_id) FROM customer_visitor va WHERE va.customer_id = c.entity_id)
	WHERE c.is_active = ?
	ORDER BY c.entity_id`

// ActiveCustomers streams active customers with their default shipping region and
// their latest visit, picked as the highest visitor id of the customer.
func (s *Store) ActiveCustomers(ctx context.Context) iter.Seq2[CustomerRow, error] {
	return stream(ctx, s.db, "customers", s.q(activeCustomersQuery), []any{1}, func(rows *sql.Rows) (CustomerRow, error) {
		var (
			row               CustomerRow
			group, gender     sql.NullInt64
			dob, region, last sql.NullString
			visitor           sql.NullInt64
		)
		if err := rows.Scan(&row.EntityID, &group, &gender, &row.UpdatedAt, &dob, &region, &visitor, &last); err != nil {
			return CustomerRow{}, err
		}
		row.GroupID = group.Int64
		row.Gender = gender.Int64
		row.Region = region.String
		if dob.Valid && dob.String != "" {
			row.DOB = &dob.String
		}
		if visitor.Valid {
			row.VisitorID = &visitor.Int64
		}
		if last.Valid && last.String != "" {
			row.LastVisitAt = &last.String
		}
		return row, nil
	})
}

const visibleProductsQuery = `SELECT p.entity_id, p.name, p.price, p.meta_keyword, cp.category_id
	FROM catalog_product_entity p
	LEFT JOIN catalog_category_product cp ON cp.product_id = p.entity_id
	WHERE p.visibility IN (?, ?, ?)
	ORDER BY p.entity_id, cp.position, cp.category_id`

type productMembership struct {
	product    ProductRow
	categoryID sql.NullInt64
}

// VisibleProducts streams catalog items shown in the catalog, in search, or both. Each
// product is yielded once with all of its category ids, grouped from consecutive rows.
func (s *Store) VisibleProducts(ctx context.Context) iter.Seq2[ProductRow, error] {
	memberships := stream(ctx, s.db, "products", s.q(visibleProductsQuery),
		[]any{VisibilityInCatalog, VisibilityInSearch, VisibilityBoth},
		func(rows *sql.Rows) (productMembership, error) {
			var (
				m       productMembership
				keyword sql.NullString
				price   sql.NullFloat64
			)
			if err := rows.Scan(&m.product.EntityID, &m.product.Name, &price, &keyword, &m.categoryID); err != nil {
				return productMembership{}, err
			}
			m.product.Price = price.Float64
			m.product.MetaKeyword = keyword.String
			return m, nil
		})

	return func(yield func(ProductRow, error) bool) {
		var (
			current ProductRow
			pending bool
		)
		for m, err := range memberships {
			if err != nil {
				yield(ProductRow{}, err)
				return
			}
			if pending && m.product.EntityID != current.EntityID {
				if !yield(current, nil) {
					return
				}
				pending = false
			}
			if !pending {
				current = m.product
				pending = true
			}
			if m.categoryID.Valid {
				current.CategoryIDs = append(current.CategoryIDs, m.categoryID.Int64)
			}
		}
		if pending {
			yield(current, nil)
		}
	}
}

// CustomerEmails streams every customer id with its email.
func (s *Store) CustomerEmails(ctx context.Context) iter.Seq2[CustomerEmail, error] {
	return stream(ctx, s.db, "customer emails", s.q(`SELECT entity_id, email FROM customer_entity ORDER BY entity_id`), nil,
		func(rows *sql.Rows) (CustomerEmail, error) {
			var ce CustomerEmail
			err := rows.Scan(&ce.EntityID, &ce.Email)
			return ce, err
		})
}

// OrderLines streams every sold line item with its order's customer email.
func (s *Store) OrderLines(ctx context.Context) iter.Seq2[OrderLine, error] {
	return stream(ctx, s.db, "order lines", s.q(
		`SELECT oi.item_id, oi.product_id, o.customer_email, oi.created_at
		 FROM sales_order_item oi
		 JOIN sales_order o ON o.entity_id = oi.order_id
		 ORDER BY oi.item_id`), nil,
		func(rows *sql.Rows) (OrderLine, error) {
			var ol OrderLine
			err := rows.Scan(&ol.ItemID, &ol.ProductID, &ol.CustomerEmail, &ol.CreatedAt)
			return ol, err
		})
}
