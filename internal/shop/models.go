package shop

import "time"

// Product visibility values, matching the catalog's storefront visibility attribute.
const (
	VisibilityNotVisible = 1
	VisibilityInCatalog  = 2
	VisibilityInSearch   = 3
	VisibilityBoth       = 4
)

// Customer is a storefront account.
type Customer struct {
	ID              int64      `json:"id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	GroupID         int64      `json:"group_id"`
	Gender          int64      `json:"gender"`
	DateOfBirth     *time.Time `json:"dob,omitempty"`
	IsActive        bool       `json:"is_active"`
	DefaultShipping *int64     `json:"default_shipping,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Address is a customer address; only the region is exported.
type Address struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	Region     string `json:"region"`
	City       string `json:"city"`
	CountryID  string `json:"country_id"`
}

// Visit records a customer session.
type Visit struct {
	ID          int64     `json:"visitor_id"`
	CustomerID  int64     `json:"customer_id"`
	SessionID   string    `json:"session_id"`
	LastVisitAt time.Time `json:"last_visit_at"`
}

// Category is a catalog tree node.
type Category struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsActive bool   `json:"is_active"`
}

// Product is a sellable catalog item.
type Product struct {
	ID          int64   `json:"id"`
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	MetaKeyword string  `json:"meta_keyword,omitempty"`
	Visibility  int     `json:"visibility"`
	URLKey      string  `json:"url_key,omitempty"`
	Image       string  `json:"image,omitempty"`
	CategoryIDs []int64 `json:"category_ids,omitempty"`
}

// Order is a placed checkout.
type Order struct {
	ID            int64       `json:"id"`
	IncrementID   string      `json:"increment_id"`
	CustomerID    *int64      `json:"customer_id,omitempty"`
	CustomerEmail string      `json:"customer_email"`
	GrandTotal    float64     `json:"grand_total"`
	CreatedAt     time.Time   `json:"created_at"`
	Items         []OrderItem `json:"items"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID        int64     `json:"item_id"`
	OrderID   int64     `json:"order_id"`
	ProductID int64     `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Qty       float64   `json:"qty_ordered"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOrder is the checkout payload accepted by PlaceOrder.
type NewOrder struct {
	CustomerEmail string         `json:"customer_email"`
	Lines         []NewOrderLine `json:"lines"`
}

// NewOrderLine requests qty units of a product.
type NewOrderLine struct {
	ProductID int64   `json:"product_id"`
	Qty       float64 `json:"qty"`
}

// CustomerRow is the customer export projection. Timestamps are raw store values.
type CustomerRow struct {
	EntityID    int64
	GroupID     int64
	Gender      int64
	UpdatedAt   string
	DOB         *string
	Region      string
	VisitorID   *int64
	LastVisitAt *string
}

// ProductRow is the product export projection with its category memberships.
type ProductRow struct {
	EntityID    int64
	Name        string
	Price       float64
	MetaKeyword string
	CategoryIDs []int64
}

// CustomerEmail pairs a customer id with its login email.
type CustomerEmail struct {
	EntityID int64
	Email    string
}

// OrderLine is a sold line item with the order's customer email.
type OrderLine struct {
	ItemID        int64
	ProductID     int64
	CustomerEmail string
	CreatedAt     string
}

// OrderInteraction is a line item of one order resolved to a customer id.
type OrderInteraction struct {
	OrderID    int64
	ProductID  int64
	CustomerID int64
	CreatedAt  string
}
