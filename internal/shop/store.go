package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/personalize-go/internal/catalog"
	"example.com/personalize-go/internal/dbutil"
)

// TimeLayout is how the store persists timestamps, in the store timezone.
const TimeLayout = "2006-01-02 15:04:05"

// Store contains all operational persistence logic: the read queries feeding the
// exports and recommendations, plus the seed and checkout writes.
type Store struct {
	db     *sql.DB
	driver string
	loc    *time.Location
	now    func() time.Time
}

// NewStore wires a store for driver whose naive timestamps live in loc.
func NewStore(db *sql.DB, driver string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, driver: driver, loc: loc, now: time.Now}
}

// Location is the timezone of persisted timestamps.
func (s *Store) Location() *time.Location {
	return s.loc
}

func (s *Store) q(query string) string {
	return dbutil.Rebind(s.driver, query)
}

func (s *Store) stamp(t time.Time) string {
	return t.In(s.loc).Format(TimeLayout)
}

// ParseTimestamp reads a persisted timestamp in loc. Values carrying their own
// offset (RFC 3339, as returned by some drivers) keep it.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{TimeLayout, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

// Init applies the schema. Only used for SQLite; a postgres store is provisioned externally.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customer_entity (
			entity_id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			firstname TEXT,
			lastname TEXT,
			group_id INTEGER NOT NULL DEFAULT 1,
			gender INTEGER,
			dob TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			default_shipping INTEGER,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS customer_address_entity (
			entity_id INTEGER PRIMARY KEY AUTOINCREMENT,
			parent_id INTEGER NOT NULL,
			region TEXT,
			city TEXT,
			country_id TEXT,
			FOREIGN KEY(parent_id) REFERENCES customer_entity(entity_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS customer_visitor (
			visitor_id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id INTEGER,
			session_id TEXT,
			last_visit_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_customer_visitor_customer ON customer_visitor(customer_id, visitor_id);`,
		`CREATE TABLE IF NOT EXISTS catalog_product_entity (
			entity_id INTEGER PRIMARY KEY AUTOINCREMENT,
			sku TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			meta_keyword TEXT,
			visibility INTEGER NOT NULL DEFAULT 4,
			url_key TEXT,
			image TEXT,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalog_category_entity (
			entity_id INTEGER PRIMARY KEY AUTOINCREMENT,
			parent_id INTEGER NOT NULL DEFAULT 0,
			path TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS catalog_category_product (
			category_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(category_id, product_id),
			FOREIGN KEY(product_id) REFERENCES catalog_product_entity(entity_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS sales_order (
			entity_id INTEGER PRIMARY KEY AUTOINCREMENT,
			increment_id TEXT NOT NULL UNIQUE,
			customer_id INTEGER,
			customer_email TEXT NOT NULL,
			grand_total REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sales_order_item (
			item_id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			sku TEXT NOT NULL,
			name TEXT NOT NULL,
			qty_ordered REAL NOT NULL DEFAULT 1,
			price REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			FOREIGN KEY(order_id) REFERENCES sales_order(entity_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sales_order_item_order ON sales_order_item(order_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply shop schema: %w", err)
		}
	}
	return nil
}

// CreateCustomer inserts an active customer account.
func (s *Store) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" {
		return Customer{}, errors.New("customer email required")
	}
	if c.GroupID == 0 {
		c.GroupID = 1
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now()
	}
	var dob any
	if c.DateOfBirth != nil {
		dob = c.DateOfBirth.Format("2006-01-02")
	}
	err := s.db.QueryRowContext(ctx, s.q(
		`INSERT INTO customer_entity(email, firstname, lastname, group_id, gender, dob, is_active, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING entity_id`),
		c.Email, c.FirstName, c.LastName, c.GroupID, c.Gender, dob, boolInt(c.IsActive),
		s.stamp(s.now()), s.stamp(c.UpdatedAt),
	).Scan(&c.ID)
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

// AddAddress stores an address and makes it the customer's default shipping address.
func (s *Store) AddAddress(ctx context.Context, a Address) (Address, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Address{}, fmt.Errorf("begin address tx: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, s.q(
		`INSERT INTO customer_address_entity(parent_id, region, city, country_id)
		 VALUES(?, ?, ?, ?) RETURNING entity_id`),
		a.CustomerID, a.Region, a.City, a.CountryID,
	).Scan(&a.ID); err != nil {
		return Address{}, fmt.Errorf("insert address: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.q(`UPDATE customer_entity SET default_shipping = ? WHERE entity_id = ?`), a.ID, a.CustomerID)
	if err != nil {
		return Address{}, fmt.Errorf("set default shipping: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Address{}, sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return Address{}, fmt.Errorf("commit address: %w", err)
	}
	return a, nil
}

// RecordVisit appends a visitor row for a customer session.
func (s *Store) RecordVisit(ctx context.Context, v Visit) (Visit, error) {
	if v.SessionID == "" {
		v.SessionID = uuid.NewString()
	}
	if v.LastVisitAt.IsZero() {
		v.LastVisitAt = s.now()
	}
	err := s.db.QueryRowContext(ctx, s.q(
		`INSERT INTO customer_visitor(customer_id, session_id, last_visit_at) VALUES(?, ?, ?) RETURNING visitor_id`),
		v.CustomerID, v.SessionID, s.stamp(v.LastVisitAt),
	).Scan(&v.ID)
	if err != nil {
		return Visit{}, fmt.Errorf("record visit: %w", err)
	}
	return v, nil
}

// CreateCategory inserts a category below ParentID and derives its id path.
// A zero ParentID creates a tree root.
func (s *Store) CreateCategory(ctx context.Context, c Category) (Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Category{}, errors.New("category name required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Category{}, fmt.Errorf("begin category tx: %w", err)
	}
	defer tx.Rollback()

	parentPath := ""
	if c.ParentID != 0 {
		if err := tx.QueryRowContext(ctx, s.q(`SELECT path FROM catalog_category_entity WHERE entity_id = ?`), c.ParentID).Scan(&parentPath); err != nil {
			return Category{}, fmt.Errorf("load parent category: %w", err)
		}
	}
	if err := tx.QueryRowContext(ctx, s.q(
		`INSERT INTO catalog_category_entity(parent_id, name, is_active) VALUES(?, ?, ?) RETURNING entity_id`),
		c.ParentID, c.Name, boolInt(c.IsActive),
	).Scan(&c.ID); err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}
	c.Path = fmt.Sprintf("%d", c.ID)
	if parentPath != "" {
		c.Path = parentPath + "/" + c.Path
	}
	if _, err := tx.ExecContext(ctx, s.q(`UPDATE catalog_category_entity SET path = ? WHERE entity_id = ?`), c.Path, c.ID); err != nil {
		return Category{}, fmt.Errorf("set category path: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Category{}, fmt.Errorf("commit category: %w", err)
	}
	return c, nil
}

// CreateProduct inserts a catalog item and its category memberships.
func (s *Store) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if strings.TrimSpace(p.SKU) == "" || strings.TrimSpace(p.Name) == "" {
		return Product{}, errors.New("product sku and name required")
	}
	if p.Visibility == 0 {
		p.Visibility = VisibilityBoth
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Product{}, fmt.Errorf("begin product tx: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, s.q(
		`INSERT INTO catalog_product_entity(sku, name, price, meta_keyword, visibility, url_key, image, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?) RETURNING entity_id`),
		p.SKU, p.Name, p.Price, nullIfEmpty(p.MetaKeyword), p.Visibility, nullIfEmpty(p.URLKey), nullIfEmpty(p.Image), s.stamp(s.now()),
	).Scan(&p.ID); err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	for i, categoryID := range p.CategoryIDs {
		if _, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO catalog_category_product(category_id, product_id, position) VALUES(?, ?, ?)`),
			categoryID, p.ID, i,
		); err != nil {
			return Product{}, fmt.Errorf("assign product category: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Product{}, fmt.Errorf("commit product: %w", err)
	}
	return p, nil
}

// PlaceOrder persists an order and its lines in one transaction. The order is attached
// to the customer whose email matches, when one exists; guest orders keep only the email.
func (s *Store) PlaceOrder(ctx context.Context, req NewOrder) (Order, error) {
	email := strings.TrimSpace(req.CustomerEmail)
	if email == "" {
		return Order{}, errors.New("customer_email required")
	}
	if len(req.Lines) == 0 {
		return Order{}, errors.New("order needs at least one line")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback()

	now := s.now().In(s.loc).Truncate(time.Second)
	order := Order{
		IncrementID:   uuid.NewString(),
		CustomerEmail: email,
		CreatedAt:     now,
	}
	var customerID int64
	switch err := tx.QueryRowContext(ctx, s.q(
		`SELECT entity_id FROM customer_entity WHERE LOWER(email) = LOWER(?)`), email).Scan(&customerID); {
	case err == nil:
		order.CustomerID = &customerID
	case errors.Is(err, sql.ErrNoRows):
	default:
		return Order{}, fmt.Errorf("lookup order customer: %w", err)
	}

	if err := tx.QueryRowContext(ctx, s.q(
		`INSERT INTO sales_order(increment_id, customer_id, customer_email, created_at) VALUES(?, ?, ?, ?) RETURNING entity_id`),
		order.IncrementID, order.CustomerID, order.CustomerEmail, s.stamp(now),
	).Scan(&order.ID); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, line := range req.Lines {
		qty := line.Qty
		if qty <= 0 {
			qty = 1
		}
		item := OrderItem{OrderID: order.ID, ProductID: line.ProductID, Qty: qty, CreatedAt: now}
		if err := tx.QueryRowContext(ctx, s.q(
			`SELECT sku, name, price FROM catalog_product_entity WHERE entity_id = ?`), line.ProductID,
		).Scan(&item.SKU, &item.Name, &item.Price); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Order{}, fmt.Errorf("product %d not found", line.ProductID)
			}
			return Order{}, fmt.Errorf("load order product: %w", err)
		}
		if err := tx.QueryRowContext(ctx, s.q(
			`INSERT INTO sales_order_item(order_id, product_id, sku, name, qty_ordered, price, created_at)
			 VALUES(?, ?, ?, ?, ?, ?, ?) RETURNING item_id`),
			item.OrderID, item.ProductID, item.SKU, item.Name, item.Qty, item.Price, s.stamp(now),
		).Scan(&item.ID); err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
		order.GrandTotal += item.Price * item.Qty
		order.Items = append(order.Items, item)
	}

	if _, err := tx.ExecContext(ctx, s.q(`UPDATE sales_order SET grand_total = ? WHERE entity_id = ?`), order.GrandTotal, order.ID); err != nil {
		return Order{}, fmt.Errorf("update order total: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Order{}, fmt.Errorf("commit order: %w", err)
	}
	return order, nil
}

func nullIfEmpty(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Categories returns every active category of the catalog tree.
func (s *Store) Categories(ctx context.Context) ([]catalog.Node, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT entity_id, name, path FROM catalog_category_entity WHERE is_active = ? ORDER BY entity_id`), 1)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var nodes []catalog.Node
	for rows.Next() {
		var n catalog.Node
		if err := rows.Scan(&n.ID, &n.Name, &n.Path); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter categories: %w", err)
	}
	return nodes, nil
}

// ProductSummaries batch-loads the storefront fields of ids. Unknown ids are absent
// from the result; rows come back in storage order.
func (s *Store) ProductSummaries(ctx context.Context, ids []int64) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, s.q(fmt.Sprintf(
		`SELECT entity_id, name, sku, price, url_key, image FROM catalog_product_entity WHERE entity_id IN (%s)`, placeholders)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("load product summaries: %w", err)
	}
	defer rows.Close()
	var products []catalog.Product
	for rows.Next() {
		var (
			p             catalog.Product
			urlKey, image sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &urlKey, &image); err != nil {
			return nil, fmt.Errorf("scan product summary: %w", err)
		}
		p.URLKey = urlKey.String
		p.Image = image.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter product summaries: %w", err)
	}
	return products, nil
}

// OrderInteractions returns the lines of one order joined to the customer owning the
// order's email. Guest orders with no matching customer yield nothing.
func (s *Store) OrderInteractions(ctx context.Context, orderID int64) ([]OrderInteraction, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT oi.order_id, oi.product_id, c.entity_id, oi.created_at
		 FROM sales_order_item oi
		 JOIN sales_order o ON o.entity_id = oi.order_id
		 JOIN customer_entity c ON LOWER(c.email) = LOWER(o.customer_email)
		 WHERE oi.order_id = ?
		 ORDER BY oi.item_id`), orderID)
	if err != nil {
		return nil, fmt.Errorf("query order interactions: %w", err)
	}
	defer rows.Close()
	var out []OrderInteraction
	for rows.Next() {
		var oi OrderInteraction
		if err := rows.Scan(&oi.OrderID, &oi.ProductID, &oi.CustomerID, &oi.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order interaction: %w", err)
		}
		out = append(out, oi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter order interactions: %w", err)
	}
	return out, nil
}
