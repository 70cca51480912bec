package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-orders/internal/apperror"
	"github.com/iliyamo/storefront-orders/internal/ledger"
	"github.com/iliyamo/storefront-orders/internal/memstore"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/queue"
	"github.com/iliyamo/storefront-orders/internal/status"
	"github.com/iliyamo/storefront-orders/internal/store"
)

type recordingPublisher struct {
	queue.NopPublisher
	mu     sync.Mutex
	orders []queue.OrderEvent
	fail   bool
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, ev queue.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.orders = append(p.orders, ev)
	return nil
}

type env struct {
	st  *memstore.Store
	svc *Service
	pub *recordingPublisher
	now time.Time
	seq int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st, err := memstore.New()
	require.NoError(t, err)
	e := &env{st: st, pub: &recordingPublisher{}, now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	e.svc = New(st, ledger.New(nil), func() time.Time { return e.now }, e.pub, nil)
	return e
}

func (e *env) customer(t *testing.T) uint64 {
	t.Helper()
	var id uint64
	e.seq++
	err := e.st.Update(context.Background(), func(tx store.Tx) error {
		c := &model.Customer{Name: "Ada", Email: fmt.Sprintf("ada%d@example.com", e.seq), Phone: "555"}
		if err := tx.CreateCustomer(context.Background(), c); err != nil {
			return err
		}
		id = c.ID
		return nil
	})
	require.NoError(t, err)
	return id
}

func (e *env) product(t *testing.T, name, price string, stock int64, active bool) uint64 {
	t.Helper()
	var id uint64
	err := e.st.Update(context.Background(), func(tx store.Tx) error {
		p := &model.Product{Name: name, Price: decimal.RequireFromString(price), IsActive: active}
		if err := tx.CreateProduct(context.Background(), p); err != nil {
			return err
		}
		id = p.ID
		return tx.SaveInventory(context.Background(), model.InventoryEntry{ProductID: p.ID, Stock: stock})
	})
	require.NoError(t, err)
	return id
}

func (e *env) stock(t *testing.T, productID uint64) int64 {
	t.Helper()
	var s int64
	err := e.st.View(context.Background(), func(tx store.Tx) error {
		entry, err := tx.LockInventory(context.Background(), productID)
		s = entry.Stock
		return err
	})
	require.NoError(t, err)
	return s
}

func (e *env) orderCount(t *testing.T, customerID uint64) int {
	t.Helper()
	orders, err := e.svc.OrderHistory(context.Background(), customerID)
	require.NoError(t, err)
	return len(orders)
}

func TestPlaceOrder_TotalAndStock(t *testing.T) {
	e := newEnv(t)
	var customer uint64
	for i := 0; i < 7; i++ {
		customer = e.customer(t)
	}
	require.Equal(t, uint64(7), customer)
	e.product(t, "Pen", "1.00", 10, true)
	e.product(t, "Ink", "2.00", 10, true)
	mug := e.product(t, "Mug", "9.99", 10, true)
	require.Equal(t, uint64(3), mug)

	order, err := e.svc.PlaceOrder(context.Background(), 7, []LineRequest{ByID(3, 2)})
	require.NoError(t, err)

	assert.NotZero(t, order.ID)
	assert.Equal(t, uint64(7), order.CustomerID)
	assert.Equal(t, "19.98", order.TotalAmount.StringFixed(2))
	require.Len(t, order.Lines, 1)
	assert.Equal(t, order.ID, order.Lines[0].OrderID)
	assert.Equal(t, "Mug", order.Lines[0].ProductName)
	assert.True(t, order.Lines[0].UnitPrice.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, int64(8), e.stock(t, mug))
	assert.Equal(t, e.now, order.PlacedAt)
	assert.Equal(t, e.now.Add(5*24*time.Hour), order.ExpectedDeliveryAt)

	stored, err := e.svc.GetOrder(context.Background(), 7, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, order.Lines[0].ProductName, stored.Lines[0].ProductName)
	assert.Equal(t, 2, stored.Lines[0].Quantity)
	assert.True(t, order.TotalAmount.Equal(stored.TotalAmount))

	require.Len(t, e.pub.orders, 1)
	assert.Equal(t, queue.OrderPlaced, e.pub.orders[0].Type)
	assert.Equal(t, order.ID, e.pub.orders[0].OrderID)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	id := e.product(t, "Widget", "4.50", 5, true)

	_, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(id, 3)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.stock(t, id))

	_, err = e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(id, 3)})
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, id, ae.ProductID)
	assert.Equal(t, 3, ae.Quantity)
	assert.Equal(t, int64(2), e.stock(t, id))
	assert.Equal(t, 1, e.orderCount(t, customer))
}

func TestPlaceOrder_RollsBackEarlierLines(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	a := e.product(t, "A", "1.00", 10, true)
	b := e.product(t, "B", "1.00", 1, true)

	_, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(a, 4), ByID(b, 2)})
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, int64(10), e.stock(t, a))
	assert.Equal(t, int64(1), e.stock(t, b))
	assert.Zero(t, e.orderCount(t, customer))
	assert.Empty(t, e.pub.orders)
}

func TestPlaceOrder_InactiveProduct(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	active := e.product(t, "Active", "3.00", 10, true)
	retired := e.product(t, "Retired", "3.00", 10, false)

	_, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(active, 1), ByID(retired, 1)})
	require.ErrorIs(t, err, apperror.ErrProductUnavailable)
	assert.Equal(t, int64(10), e.stock(t, active))
	assert.Equal(t, int64(10), e.stock(t, retired))
	assert.Zero(t, e.orderCount(t, customer))
}

func TestPlaceOrder_ByName(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	e.product(t, "Lamp", "12.00", 10, false)
	lamp := e.product(t, "Lamp", "15.50", 10, true)
	e.product(t, "Lamp", "16.00", 10, true)

	order, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByName("Lamp", 2)})
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, lamp, order.Lines[0].ProductID)
	assert.Equal(t, "31.00", order.TotalAmount.StringFixed(2))

	_, err = e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByName("Sofa", 1)})
	assert.ErrorIs(t, err, apperror.ErrProductUnavailable)
}

func TestPlaceOrder_IDTakesPrecedenceOverName(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	pen := e.product(t, "Pen", "1.25", 10, true)
	e.product(t, "Pencil", "0.75", 10, true)

	name := "Pencil"
	order, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{{ProductID: &pen, ProductName: &name, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, pen, order.Lines[0].ProductID)
}

func TestPlaceOrder_CoalescesDuplicateProducts(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	a := e.product(t, "A", "2.00", 10, true)
	b := e.product(t, "B", "1.00", 10, true)

	order, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(a, 1), ByID(b, 1), ByName("A", 2)})
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, a, order.Lines[0].ProductID)
	assert.Equal(t, 3, order.Lines[0].Quantity)
	assert.Equal(t, b, order.Lines[1].ProductID)
	assert.Equal(t, "7.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, int64(7), e.stock(t, a))
}

func TestPlaceOrder_Validation(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	id := e.product(t, "A", "1.00", 10, true)
	blank := "  "

	tests := []struct {
		name     string
		customer uint64
		lines    []LineRequest
		want     error
	}{
		{"missing customer id", 0, []LineRequest{ByID(id, 1)}, apperror.ErrInvalidRequest},
		{"no lines", customer, nil, apperror.ErrInvalidRequest},
		{"no product reference", customer, []LineRequest{{Quantity: 1}}, apperror.ErrInvalidRequest},
		{"blank product name", customer, []LineRequest{{ProductName: &blank, Quantity: 1}}, apperror.ErrInvalidRequest},
		{"zero quantity", customer, []LineRequest{ByID(id, 0)}, apperror.ErrInvalidRequest},
		{"negative quantity", customer, []LineRequest{ByID(id, -2)}, apperror.ErrInvalidRequest},
		{"unknown customer", 99, []LineRequest{ByID(id, 1)}, apperror.ErrInvalidRequest},
		{"unknown product", customer, []LineRequest{ByID(42, 1)}, apperror.ErrProductUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.PlaceOrder(context.Background(), tt.customer, tt.lines)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, int64(10), e.stock(t, id))
}

func TestPlaceOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	id := e.product(t, "Scarce", "5.00", 10, true)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   int
		rejected int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(id, 1)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case errors.Is(err, apperror.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, placed)
	assert.Equal(t, 15, rejected)
	assert.Equal(t, int64(0), e.stock(t, id))
	assert.Equal(t, 10, e.orderCount(t, customer))
}

func TestUpdateOrder(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	a := e.product(t, "A", "2.00", 5, true)
	b := e.product(t, "B", "3.00", 5, true)

	order, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(a, 5)})
	require.NoError(t, err)
	require.Equal(t, int64(0), e.stock(t, a))

	// the released units of A are available to the new lines
	e.now = e.now.Add(48 * time.Hour)
	updated, err := e.svc.UpdateOrder(context.Background(), customer, order.ID, []LineRequest{ByID(a, 4), ByID(b, 2)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.stock(t, a))
	assert.Equal(t, int64(3), e.stock(t, b))
	assert.Equal(t, "14.00", updated.TotalAmount.StringFixed(2))
	assert.Equal(t, order.PlacedAt, updated.PlacedAt)
	assert.Equal(t, order.ExpectedDeliveryAt, updated.ExpectedDeliveryAt)

	stored, err := e.svc.GetOrder(context.Background(), customer, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, a, stored.Lines[0].ProductID)
	assert.Equal(t, b, stored.Lines[1].ProductID)
	assert.Equal(t, order.PlacedAt, stored.PlacedAt)
	assert.True(t, stored.TotalAmount.Equal(updated.TotalAmount))
}

func TestUpdateOrder_FailureKeepsOrder(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	a := e.product(t, "A", "2.00", 5, true)
	b := e.product(t, "B", "3.00", 1, true)

	order, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(a, 3)})
	require.NoError(t, err)

	_, err = e.svc.UpdateOrder(context.Background(), customer, order.ID, []LineRequest{ByID(b, 2)})
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, int64(2), e.stock(t, a))
	assert.Equal(t, int64(1), e.stock(t, b))

	stored, err := e.svc.GetOrder(context.Background(), customer, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, 3, stored.Lines[0].Quantity)
}

func TestUpdateOrder_NotOwned(t *testing.T) {
	e := newEnv(t)
	owner := e.customer(t)
	other := e.customer(t)
	a := e.product(t, "A", "2.00", 5, true)

	order, err := e.svc.PlaceOrder(context.Background(), owner, []LineRequest{ByID(a, 1)})
	require.NoError(t, err)

	_, err = e.svc.UpdateOrder(context.Background(), other, order.ID, []LineRequest{ByID(a, 1)})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = e.svc.UpdateOrder(context.Background(), owner, 404, []LineRequest{ByID(a, 1)})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, e.svc.DeleteOrder(context.Background(), other, order.ID), apperror.ErrNotFound)
	_, err = e.svc.GetOrder(context.Background(), other, order.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, int64(4), e.stock(t, a))
}

func TestDeleteOrder_RestoresStock(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	id := e.product(t, "A", "2.00", 10, true)

	order, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(id, 4)})
	require.NoError(t, err)
	require.Equal(t, int64(6), e.stock(t, id))

	require.NoError(t, e.svc.DeleteOrder(context.Background(), customer, order.ID))
	assert.Equal(t, int64(10), e.stock(t, id))
	_, err = e.svc.GetOrder(context.Background(), customer, order.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, e.svc.DeleteOrder(context.Background(), customer, order.ID), apperror.ErrNotFound)

	require.Len(t, e.pub.orders, 2)
	assert.Equal(t, queue.OrderDeleted, e.pub.orders[1].Type)
}

func TestOrderHistory(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	id := e.product(t, "A", "1.00", 10, true)

	first, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(id, 1)})
	require.NoError(t, err)
	e.now = e.now.Add(time.Hour)
	second, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(id, 2)})
	require.NoError(t, err)

	orders, err := e.svc.OrderHistory(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
	assert.Len(t, orders[0].Lines, 1)

	other := e.customer(t)
	orders, err = e.svc.OrderHistory(context.Background(), other)
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)

	_, err = e.svc.OrderHistory(context.Background(), 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTrackOrder(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	id := e.product(t, "A", "1.00", 10, true)
	placed := e.now

	order, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(id, 1)})
	require.NoError(t, err)

	tests := []struct {
		day  int
		want status.Phase
	}{
		{0, status.Processing},
		{3, status.Shipped},
		{5, status.OutForDelivery},
		{6, status.Complete},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("day %d", tt.day), func(t *testing.T) {
			e.now = placed.AddDate(0, 0, tt.day)
			tr, err := e.svc.TrackOrder(context.Background(), customer, order.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.Status)
			assert.Equal(t, order.ID, tr.OrderID)
			assert.Equal(t, e.now, tr.AsOf)
		})
	}

	_, err = e.svc.TrackOrder(context.Background(), customer, 12345)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPublishFailureDoesNotFailOrder(t *testing.T) {
	e := newEnv(t)
	e.pub.fail = true
	customer := e.customer(t)
	id := e.product(t, "A", "1.00", 10, true)

	_, err := e.svc.PlaceOrder(context.Background(), customer, []LineRequest{ByID(id, 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(9), e.stock(t, id))
}

func TestPlaceOrder_CancelledContext(t *testing.T) {
	e := newEnv(t)
	customer := e.customer(t)
	id := e.product(t, "A", "1.00", 10, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.svc.PlaceOrder(ctx, customer, []LineRequest{ByID(id, 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(10), e.stock(t, id))
}
