package events

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/personalize-go/internal/dbutil"
	"example.com/personalize-go/internal/logging"
	"example.com/personalize-go/internal/personalize"
	"example.com/personalize-go/internal/shop"
)

// --- Mock source ---
type MockSource struct {
	Lines []shop.OrderInteraction
	Err   error
}

func (m *MockSource) OrderInteractions(context.Context, int64) ([]shop.OrderInteraction, error) {
	return m.Lines, m.Err
}

// --- Mock sender ---
type MockSender struct {
	Batches  []personalize.EventBatch
	SendFunc func(b personalize.EventBatch) error
}

func (m *MockSender) Send(_ context.Context, b personalize.EventBatch) error {
	m.Batches = append(m.Batches, b)
	if m.SendFunc == nil {
		return nil
	}
	return m.SendFunc(b)
}

func testConfig() Config {
	cfg := DefaultConfig("tracking-1", "purchase")
	cfg.FailureThreshold = 2
	cfg.OpenTimeout = time.Hour
	return cfg
}

func TestPublishBuildsOneBatchPerOrder(t *testing.T) {
	src := &MockSource{Lines: []shop.OrderInteraction{
		{OrderID: 77, ProductID: 5, CustomerID: 10, CreatedAt: "2024-01-01 00:00:00"},
		{OrderID: 77, ProductID: 9, CustomerID: 10, CreatedAt: "2024-01-01 00:00:01"},
	}}
	sender := &MockSender{}

	require.NoError(t, NewPublisher(src, sender, testConfig(), logging.Discard()).Publish(context.Background(), 77))
	require.Len(t, sender.Batches, 1)
	b := sender.Batches[0]
	assert.Equal(t, "tracking-1", b.TrackingID)
	assert.Equal(t, "purchase", b.EventType)
	assert.Equal(t, "10", b.UserID)
	assert.Equal(t, "77", b.SessionID)
	assert.Equal(t, []personalize.Event{
		{ItemID: "5", SentAt: time.Unix(1704067200, 0).UTC()},
		{ItemID: "9", SentAt: time.Unix(1704067201, 0).UTC()},
	}, b.Events)
}

func TestPublishNothingToSend(t *testing.T) {
	sender := &MockSender{}
	require.NoError(t, NewPublisher(&MockSource{}, sender, testConfig(), logging.Discard()).Publish(context.Background(), 1))
	assert.Empty(t, sender.Batches)
}

func TestPublishReturnsErrors(t *testing.T) {
	down := errors.New("event stream down")
	src := &MockSource{Lines: []shop.OrderInteraction{{ProductID: 5, CustomerID: 10, CreatedAt: "2024-01-01 00:00:00"}}}
	sender := &MockSender{SendFunc: func(personalize.EventBatch) error { return down }}

	err := NewPublisher(src, sender, testConfig(), logging.Discard()).Publish(context.Background(), 1)
	assert.ErrorIs(t, err, down)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	src := &MockSource{Lines: []shop.OrderInteraction{{ProductID: 5, CustomerID: 10, CreatedAt: "2024-01-01 00:00:00"}}}
	sender := &MockSender{SendFunc: func(personalize.EventBatch) error { return errors.New("boom") }}
	p := NewPublisher(src, sender, testConfig(), logging.Discard())

	for range 2 {
		assert.Error(t, p.Publish(context.Background(), 1))
	}
	err := p.Publish(context.Background(), 1)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, sender.Batches, 2)
}

func TestAfterPlaceSwallowsFailuresAndPanics(t *testing.T) {
	src := &MockSource{Err: errors.New("store unavailable")}
	p := NewPublisher(src, &MockSender{}, testConfig(), logging.Discard())
	assert.NotPanics(t, func() { p.AfterPlace(context.Background(), 1) })

	panicking := &MockSender{SendFunc: func(personalize.EventBatch) error { panic("nil client") }}
	src = &MockSource{Lines: []shop.OrderInteraction{{ProductID: 5, CustomerID: 10, CreatedAt: "2024-01-01 00:00:00"}}}
	p = NewPublisher(src, panicking, testConfig(), logging.Discard())
	assert.NotPanics(t, func() { p.AfterPlace(context.Background(), 1) })
}

func TestOrderPlacementIgnoresPublishFailure(t *testing.T) {
	ctx := context.Background()
	db, err := dbutil.OpenMemory()
	require.NoError(t, err)
	defer db.Close()
	store := shop.NewStore(db, dbutil.DriverSQLite, time.UTC)
	require.NoError(t, store.Init(ctx))

	customer, err := store.CreateCustomer(ctx, shop.Customer{Email: "alice@example.com", IsActive: true})
	require.NoError(t, err)
	product, err := store.CreateProduct(ctx, shop.Product{SKU: "s", Name: "Socks", Price: 3})
	require.NoError(t, err)

	sender := &MockSender{SendFunc: func(personalize.EventBatch) error { return errors.New("AccessDenied") }}
	publisher := NewPublisher(store, sender, testConfig(), logging.Discard())
	orders := shop.NewOrderService(store, logging.Discard(), publisher)

	order, err := orders.Place(ctx, shop.NewOrder{
		CustomerEmail: "Alice@Example.com",
		Lines:         []shop.NewOrderLine{{ProductID: product.ID, Qty: 1}},
	})
	require.NoError(t, err)
	assert.NotZero(t, order.ID)

	require.Len(t, sender.Batches, 1)
	assert.Equal(t, strconv.FormatInt(customer.ID, 10), sender.Batches[0].UserID)
	assert.Equal(t, strconv.FormatInt(order.ID, 10), sender.Batches[0].SessionID)
	require.Len(t, sender.Batches[0].Events, 1)
	assert.Equal(t, strconv.FormatInt(product.ID, 10), sender.Batches[0].Events[0].ItemID)
}
