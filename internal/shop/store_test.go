package shop

import (
	"context"
	"iter"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/personalize-go/internal/dbutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := dbutil.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db, dbutil.DriverSQLite, time.UTC)
	require.NoError(t, store.Init(context.Background()))
	return store
}

func collect[T any](t *testing.T, seq iter.Seq2[T, error]) []T {
	t.Helper()
	var out []T
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestParseTimestamp(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	ts, err := ParseTimestamp("2023-01-01 00:00:00", chicago)
	require.NoError(t, err)
	assert.Equal(t, int64(1672552800), ts.Unix())

	ts, err = ParseTimestamp("2023-01-01T00:00:00Z", chicago)
	require.NoError(t, err)
	assert.Equal(t, int64(1672531200), ts.Unix())

	ts, err = ParseTimestamp("1990-05-17", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1990, ts.Year())

	_, err = ParseTimestamp("yesterday", time.UTC)
	assert.Error(t, err)
}

func TestActiveCustomersLatestVisit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	updated := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	alice, err := store.CreateCustomer(ctx, Customer{Email: "alice@example.com", IsActive: true, Gender: 2, UpdatedAt: updated})
	require.NoError(t, err)
	bob, err := store.CreateCustomer(ctx, Customer{Email: "bob@example.com", IsActive: true, UpdatedAt: updated})
	require.NoError(t, err)
	_, err = store.CreateCustomer(ctx, Customer{Email: "inactive@example.com", IsActive: false, UpdatedAt: updated})
	require.NoError(t, err)

	_, err = store.AddAddress(ctx, Address{CustomerID: alice.ID, Region: "Texas"})
	require.NoError(t, err)
	_, err = store.RecordVisit(ctx, Visit{CustomerID: alice.ID, LastVisitAt: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	latest, err := store.RecordVisit(ctx, Visit{CustomerID: alice.ID, LastVisitAt: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	rows := collect(t, store.ActiveCustomers(ctx))
	require.Len(t, rows, 2)

	assert.Equal(t, alice.ID, rows[0].EntityID)
	assert.Equal(t, "Texas", rows[0].Region)
	assert.Equal(t, int64(2), rows[0].Gender)
	require.NotNil(t, rows[0].VisitorID)
	assert.Equal(t, latest.ID, *rows[0].VisitorID, "highest visitor id wins")
	require.NotNil(t, rows[0].LastVisitAt)
	assert.Equal(t, "2023-02-01 00:00:00", *rows[0].LastVisitAt)

	assert.Equal(t, bob.ID, rows[1].EntityID)
	assert.Nil(t, rows[1].VisitorID)
	assert.Nil(t, rows[1].LastVisitAt)
	assert.Nil(t, rows[1].DOB)
	assert.Equal(t, "", rows[1].Region)
	assert.Equal(t, "2023-01-01 00:00:00", rows[1].UpdatedAt)
}

func TestVisibleProductsGroupsCategories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	root, err := store.CreateCategory(ctx, Category{Name: "Root", IsActive: true})
	require.NoError(t, err)
	def, err := store.CreateCategory(ctx, Category{ParentID: root.ID, Name: "Default", IsActive: true})
	require.NoError(t, err)
	shoes, err := store.CreateCategory(ctx, Category{ParentID: def.ID, Name: "Shoes", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "1/2/3", shoes.Path)
	trail, err := store.CreateCategory(ctx, Category{ParentID: shoes.ID, Name: "Trail", IsActive: true})
	require.NoError(t, err)

	_, err = store.CreateProduct(ctx, Product{SKU: "a", Name: "A", Price: 10, CategoryIDs: []int64{trail.ID, shoes.ID}})
	require.NoError(t, err)
	_, err = store.CreateProduct(ctx, Product{SKU: "hidden", Name: "Hidden", Visibility: VisibilityNotVisible})
	require.NoError(t, err)
	_, err = store.CreateProduct(ctx, Product{SKU: "b", Name: "B", Price: 5.5, MetaKeyword: "socks", Visibility: VisibilityInSearch})
	require.NoError(t, err)

	products := collect(t, store.VisibleProducts(ctx))
	require.Len(t, products, 2)
	assert.Equal(t, "A", products[0].Name)
	assert.Equal(t, []int64{trail.ID, shoes.ID}, products[0].CategoryIDs)
	assert.Equal(t, "B", products[1].Name)
	assert.Equal(t, "socks", products[1].MetaKeyword)
	assert.Equal(t, 5.5, products[1].Price)
	assert.Empty(t, products[1].CategoryIDs)

	nodes, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes, 4)
}

func TestVisibleProductsStopsEarly(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, sku := range []string{"a", "b", "c"} {
		_, err := store.CreateProduct(ctx, Product{SKU: sku, Name: sku})
		require.NoError(t, err)
	}

	seen := 0
	for _, err := range store.VisibleProducts(ctx) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)

	// the cursor was released, so the single pooled connection is usable again
	_, err := store.CreateProduct(ctx, Product{SKU: "d", Name: "d"})
	assert.NoError(t, err)
}

func TestPlaceOrderAndInteractions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	customer, err := store.CreateCustomer(ctx, Customer{Email: "Alice@Example.com", IsActive: true})
	require.NoError(t, err)
	p1, err := store.CreateProduct(ctx, Product{SKU: "a", Name: "A", Price: 10})
	require.NoError(t, err)
	p2, err := store.CreateProduct(ctx, Product{SKU: "b", Name: "B", Price: 2.5})
	require.NoError(t, err)

	order, err := store.PlaceOrder(ctx, NewOrder{
		CustomerEmail: "alice@example.com",
		Lines:         []NewOrderLine{{ProductID: p1.ID, Qty: 1}, {ProductID: p2.ID, Qty: 2}},
	})
	require.NoError(t, err)
	require.NotNil(t, order.CustomerID)
	assert.Equal(t, customer.ID, *order.CustomerID)
	assert.Equal(t, 15.0, order.GrandTotal)
	assert.Len(t, order.Items, 2)

	interactions, err := store.OrderInteractions(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, interactions, 2)
	assert.Equal(t, p1.ID, interactions[0].ProductID)
	assert.Equal(t, customer.ID, interactions[0].CustomerID)
	assert.Equal(t, "2024-06-01 12:00:00", interactions[0].CreatedAt)

	guest, err := store.PlaceOrder(ctx, NewOrder{CustomerEmail: "guest@example.com", Lines: []NewOrderLine{{ProductID: p1.ID}}})
	require.NoError(t, err)
	assert.Nil(t, guest.CustomerID)
	interactions, err = store.OrderInteractions(ctx, guest.ID)
	require.NoError(t, err)
	assert.Empty(t, interactions)

	lines := collect(t, store.OrderLines(ctx))
	assert.Len(t, lines, 3)
	emails := collect(t, store.CustomerEmails(ctx))
	assert.Len(t, emails, 1)
}

func TestPlaceOrderValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.PlaceOrder(ctx, NewOrder{Lines: []NewOrderLine{{ProductID: 1}}})
	assert.Error(t, err)
	_, err = store.PlaceOrder(ctx, NewOrder{CustomerEmail: "a@example.com"})
	assert.Error(t, err)
	_, err = store.PlaceOrder(ctx, NewOrder{CustomerEmail: "a@example.com", Lines: []NewOrderLine{{ProductID: 42}}})
	assert.ErrorContains(t, err, "product 42 not found")
}

func TestProductSummaries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p, err := store.CreateProduct(ctx, Product{SKU: "a", Name: "A", Price: 10, URLKey: "a-key", Image: "/a.jpg"})
	require.NoError(t, err)

	got, err := store.ProductSummaries(ctx, []int64{p.ID, 999})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a-key", got[0].URLKey)
	assert.Equal(t, "/a.jpg", got[0].Image)

	got, err = store.ProductSummaries(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderInteractionsPostgresBinding(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db, dbutil.DriverPostgres, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE oi.order_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "entity_id", "created_at"}).
			AddRow(7, 5, 12, "2024-06-01 12:00:00"))

	got, err := store.OrderInteractions(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(12), got[0].CustomerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
