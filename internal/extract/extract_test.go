package extract

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/personalize-go/internal/catalog"
	"example.com/personalize-go/internal/dataset"
	"example.com/personalize-go/internal/dbutil"
	"example.com/personalize-go/internal/shop"
)

// --- Mock Source ---
type MockSource struct {
	Customers []shop.CustomerRow
	Nodes     []catalog.Node
	Products  []shop.ProductRow
	Emails    []shop.CustomerEmail
	Lines     []shop.OrderLine
	Err       error
}

func seqOf[T any](items []T, err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
		if err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

func (m *MockSource) ActiveCustomers(context.Context) iter.Seq2[shop.CustomerRow, error] {
	return seqOf(m.Customers, m.Err)
}

func (m *MockSource) Categories(context.Context) ([]catalog.Node, error) {
	return m.Nodes, nil
}

func (m *MockSource) VisibleProducts(context.Context) iter.Seq2[shop.ProductRow, error] {
	return seqOf(m.Products, m.Err)
}

func (m *MockSource) CustomerEmails(context.Context) iter.Seq2[shop.CustomerEmail, error] {
	return seqOf(m.Emails, nil)
}

func (m *MockSource) OrderLines(context.Context) iter.Seq2[shop.OrderLine, error] {
	return seqOf(m.Lines, m.Err)
}

func ptr[T any](v T) *T { return &v }

func TestCustomerFallbackToUpdatedAt(t *testing.T) {
	src := &MockSource{Customers: []shop.CustomerRow{
		{EntityID: 3, GroupID: 1, Gender: 0, UpdatedAt: "2023-01-01 00:00:00", Region: "Ohio"},
	}}

	records, err := NewCustomerExtractor(src, Options{}).Prepare(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	want := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, dataset.CustomerRecord("3", 0, want, "Ohio", 0, 1), records[0])
}

func TestCustomerVisitAndBirthInStoreTimezone(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	src := &MockSource{Customers: []shop.CustomerRow{{
		EntityID:    4,
		GroupID:     2,
		Gender:      1,
		UpdatedAt:   "2023-01-01 00:00:00",
		DOB:         ptr("1990-05-17"),
		VisitorID:   ptr(int64(9)),
		LastVisitAt: ptr("2023-03-01 10:00:00"),
	}}}

	records, err := NewCustomerExtractor(src, Options{Location: chicago}).Prepare(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	lastVisit, _ := records[0].Get(dataset.FieldLastVisitAt)
	assert.Equal(t, time.Date(2023, 3, 1, 10, 0, 0, 0, chicago).Unix(), lastVisit)
	dob, _ := records[0].Get(dataset.FieldDateOfBirth)
	assert.Equal(t, time.Date(1990, 5, 17, 0, 0, 0, 0, chicago).Unix(), dob)
}

func TestCustomerPropagatesSourceError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewCustomerExtractor(&MockSource{Err: boom}, Options{}).Prepare(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestProductFlattensCategories(t *testing.T) {
	src := &MockSource{
		Nodes: []catalog.Node{
			{ID: 14, Name: "Shoes", Path: "1/2/14"},
			{ID: 20, Name: "Running", Path: "1/2/14/20"},
			{ID: 27, Name: "Trail", Path: "1/2/14/27"},
			{ID: 28, Name: "Road", Path: "1/2/14/20/28"},
		},
		Products: []shop.ProductRow{
			{EntityID: 1, Name: "Trail Runner", Price: 89.5, MetaKeyword: "trail", CategoryIDs: []int64{27, 28}},
			{EntityID: 2, Name: "Gift Card", Price: 25},
			{EntityID: 3, Name: "Orphan", Price: 1, CategoryIDs: []int64{99}},
		},
	}

	records, err := NewProductExtractor(src, Options{}).Prepare(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, dataset.ProductRecord("1", 89.5, "Trail Runner", "trail", "Shoes | Shoes > Running"), records[0])
	assert.Equal(t, dataset.ProductRecord("2", 25, "Gift Card", "Empty", "Empty"), records[1])
	assert.Equal(t, dataset.ProductRecord("3", 1, "Orphan", "Empty", "Empty"), records[2])
}

func TestProductStrictCategories(t *testing.T) {
	src := &MockSource{
		Nodes:    []catalog.Node{{ID: 27, Name: "Trail", Path: "1/2/14/27"}},
		Products: []shop.ProductRow{{EntityID: 1, Name: "Trail Runner", CategoryIDs: []int64{27}}},
	}

	_, err := NewProductExtractor(src, Options{StrictCategories: true}).Prepare(context.Background())
	var missing *catalog.MissingCategoryError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, int64(14), missing.ID)
}

func TestInteractionDropsUnknownEmails(t *testing.T) {
	src := &MockSource{
		Emails: []shop.CustomerEmail{
			{EntityID: 10, Email: "alice@example.com"},
			{EntityID: 11, Email: "Bob@Example.com"},
		},
		Lines: []shop.OrderLine{
			{ItemID: 1, ProductID: 5, CustomerEmail: "alice@example.com", CreatedAt: "2024-01-01 00:00:00"},
			{ItemID: 2, ProductID: 6, CustomerEmail: "guest@example.com", CreatedAt: "2024-01-01 00:00:00"},
			{ItemID: 3, ProductID: 7, CustomerEmail: "bob@example.com", CreatedAt: "2024-01-02 00:00:00"},
			{ItemID: 4, ProductID: 8, CustomerEmail: "other@example.com", CreatedAt: "2024-01-02 00:00:00"},
		},
	}

	records, err := NewInteractionExtractor(src, Options{}).Prepare(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, dataset.InteractionRecord("5", "10", 1704067200), records[0])
	assert.Equal(t, dataset.InteractionRecord("7", "11", 1704153600), records[1])
}

func TestInteractionInvalidTimestamp(t *testing.T) {
	src := &MockSource{
		Emails: []shop.CustomerEmail{{EntityID: 10, Email: "alice@example.com"}},
		Lines:  []shop.OrderLine{{ItemID: 1, ProductID: 5, CustomerEmail: "alice@example.com", CreatedAt: "not a date"}},
	}
	_, err := NewInteractionExtractor(src, Options{}).Prepare(context.Background())
	assert.Error(t, err)
}

func TestFor(t *testing.T) {
	src := &MockSource{}
	for _, kind := range dataset.Kinds() {
		e, err := For(kind, src, Options{})
		require.NoError(t, err)
		assert.Equal(t, kind, e.Kind())
	}
	_, err := For("orders", src, Options{})
	assert.Error(t, err)
}

func TestExtractorsAgainstStore(t *testing.T) {
	ctx := context.Background()
	db, err := dbutil.OpenMemory()
	require.NoError(t, err)
	defer db.Close()
	store := shop.NewStore(db, dbutil.DriverSQLite, time.UTC)
	require.NoError(t, store.Init(ctx))

	root, err := store.CreateCategory(ctx, shop.Category{Name: "Root", IsActive: true})
	require.NoError(t, err)
	def, err := store.CreateCategory(ctx, shop.Category{ParentID: root.ID, Name: "Default", IsActive: true})
	require.NoError(t, err)
	shoes, err := store.CreateCategory(ctx, shop.Category{ParentID: def.ID, Name: "Shoes", IsActive: true})
	require.NoError(t, err)
	trail, err := store.CreateCategory(ctx, shop.Category{ParentID: shoes.ID, Name: "Trail", IsActive: true})
	require.NoError(t, err)
	p, err := store.CreateProduct(ctx, shop.Product{SKU: "tr", Name: "Trail Runner", Price: 80, CategoryIDs: []int64{trail.ID}})
	require.NoError(t, err)

	_, err = store.CreateCustomer(ctx, shop.Customer{Email: "alice@example.com", IsActive: true})
	require.NoError(t, err)
	_, err = store.PlaceOrder(ctx, shop.NewOrder{CustomerEmail: "alice@example.com", Lines: []shop.NewOrderLine{{ProductID: p.ID}}})
	require.NoError(t, err)
	_, err = store.PlaceOrder(ctx, shop.NewOrder{CustomerEmail: "guest@example.com", Lines: []shop.NewOrderLine{{ProductID: p.ID}}})
	require.NoError(t, err)

	products, err := NewProductExtractor(store, Options{}).Prepare(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	categories, _ := products[0].Get(dataset.FieldCategories)
	assert.Equal(t, "Shoes", categories)

	interactions, err := NewInteractionExtractor(store, Options{}).Prepare(ctx)
	require.NoError(t, err)
	assert.Len(t, interactions, 1)

	customers, err := NewCustomerExtractor(store, Options{}).Prepare(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 1)
}
