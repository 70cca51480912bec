// Package fulfillment places, changes and cancels customer orders. Each
// operation runs in one store transaction that reserves or releases stock
// through the ledger, so an order and the stock it consumes commit together.
package fulfillment

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/storefront-orders/internal/apperror"
	"github.com/iliyamo/storefront-orders/internal/ledger"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/queue"
	"github.com/iliyamo/storefront-orders/internal/status"
	"github.com/iliyamo/storefront-orders/internal/store"
)

// Tracking is the delivery status of an order as of a given instant.
type Tracking struct {
	OrderID            uint64       `json:"order_id"`
	CustomerID         uint64       `json:"customer_id"`
	PlacedAt           time.Time    `json:"placed_at"`
	ExpectedDeliveryAt time.Time    `json:"expected_delivery_at"`
	Status             status.Phase `json:"status"`
	AsOf               time.Time    `json:"as_of"`
}

// Service implements the order operations.
type Service struct {
	store     store.Store
	ledger    *ledger.Ledger
	now       store.Clock
	publisher queue.Publisher
	log       *zap.Logger
}

// New returns a Service. A nil clock means store.UTCNow; a nil publisher
// drops events.
func New(st store.Store, l *ledger.Ledger, now store.Clock, pub queue.Publisher, log *zap.Logger) *Service {
	if now == nil {
		now = store.UTCNow
	}
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, ledger: l, now: now, publisher: pub, log: log.Named("fulfillment")}
}

// PlaceOrder creates an order for customerID. Either every line is reserved
// and the order is stored, or nothing changes.
func (s *Service) PlaceOrder(ctx context.Context, customerID uint64, reqs []LineRequest) (model.Order, error) {
	if err := validate(customerID, reqs); err != nil {
		return model.Order{}, err
	}
	// MySQL DATETIME keeps whole seconds
	placed := s.now().UTC().Truncate(time.Second)

	var order model.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperror.InvalidRequest("customer %d does not exist", customerID)
			}
			return apperror.Persistence("load customer", err)
		}
		lines, err := buildLines(ctx, tx, reqs)
		if err != nil {
			return err
		}
		if err := s.reserve(ctx, tx, lines); err != nil {
			return err
		}
		order = model.Order{
			CustomerID:         customerID,
			PlacedAt:           placed,
			ExpectedDeliveryAt: placed.Add(model.DeliveryWindow),
			TotalAmount:        model.SumLines(lines),
			Lines:              lines,
		}
		if err := tx.CreateOrder(ctx, &order); err != nil {
			return apperror.Persistence("create order", err)
		}
		return nil
	})
	if err != nil {
		s.log.Info("order rejected", zap.Uint64("customer_id", customerID), zap.Error(err))
		return model.Order{}, apperror.Persistence("place order", err)
	}

	s.log.Info("order placed",
		zap.Uint64("order_id", order.ID),
		zap.Uint64("customer_id", customerID),
		zap.String("total", order.TotalAmount.StringFixed(model.MoneyPlaces)))
	s.publish(ctx, queue.OrderPlaced, order)
	return order, nil
}

// UpdateOrder replaces the lines of an order. The old lines are released
// before the new ones are reserved, so a line may keep its own units. The
// placement and delivery dates do not change.
func (s *Service) UpdateOrder(ctx context.Context, customerID, orderID uint64, reqs []LineRequest) (model.Order, error) {
	if err := validate(customerID, reqs); err != nil {
		return model.Order{}, err
	}

	var order model.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		current, err := owned(ctx, tx, customerID, orderID)
		if err != nil {
			return err
		}
		lines, err := buildLines(ctx, tx, reqs)
		if err != nil {
			return err
		}
		if err := lockAll(ctx, tx, current.Lines, lines); err != nil {
			return err
		}
		for _, l := range current.Lines {
			if err := s.ledger.Release(ctx, tx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		for _, l := range lines {
			if err := s.ledger.Reserve(ctx, tx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		total := model.SumLines(lines)
		if err := tx.ReplaceOrderLines(ctx, orderID, lines, total); err != nil {
			return apperror.Persistence("replace order lines", err)
		}
		for i := range lines {
			lines[i].OrderID = orderID
		}
		order = current
		order.Lines = lines
		order.TotalAmount = total
		return nil
	})
	if err != nil {
		return model.Order{}, apperror.Persistence("update order", err)
	}

	s.log.Info("order updated", zap.Uint64("order_id", orderID), zap.Uint64("customer_id", customerID))
	s.publish(ctx, queue.OrderUpdated, order)
	return order, nil
}

// DeleteOrder returns the stock of every line and removes the order.
func (s *Service) DeleteOrder(ctx context.Context, customerID, orderID uint64) error {
	var order model.Order
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		order, err = owned(ctx, tx, customerID, orderID)
		if err != nil {
			return err
		}
		if err := lockAll(ctx, tx, order.Lines); err != nil {
			return err
		}
		for _, l := range order.Lines {
			if err := s.ledger.Release(ctx, tx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		if err := tx.DeleteOrder(ctx, orderID); err != nil {
			return apperror.Persistence("delete order", err)
		}
		return nil
	})
	if err != nil {
		return apperror.Persistence("delete order", err)
	}

	s.log.Info("order deleted", zap.Uint64("order_id", orderID), zap.Uint64("customer_id", customerID))
	s.publish(ctx, queue.OrderDeleted, order)
	return nil
}

// GetOrder returns one order of the customer.
func (s *Service) GetOrder(ctx context.Context, customerID, orderID uint64) (model.Order, error) {
	var order model.Order
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		order, err = owned(ctx, tx, customerID, orderID)
		return err
	})
	if err != nil {
		return model.Order{}, apperror.Persistence("get order", err)
	}
	return order, nil
}

// OrderHistory returns the customer's orders, newest first.
func (s *Service) OrderHistory(ctx context.Context, customerID uint64) ([]model.Order, error) {
	var orders []model.Order
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperror.NotFound("customer %d not found", customerID)
			}
			return apperror.Persistence("load customer", err)
		}
		var err error
		orders, err = tx.ListOrdersByCustomer(ctx, customerID)
		if err != nil {
			return apperror.Persistence("list orders", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Persistence("order history", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// TrackOrder resolves the lifecycle phase of an order at the current time.
func (s *Service) TrackOrder(ctx context.Context, customerID, orderID uint64) (Tracking, error) {
	o, err := s.GetOrder(ctx, customerID, orderID)
	if err != nil {
		return Tracking{}, err
	}
	now := s.now().UTC()
	return Tracking{
		OrderID:            o.ID,
		CustomerID:         o.CustomerID,
		PlacedAt:           o.PlacedAt,
		ExpectedDeliveryAt: o.ExpectedDeliveryAt,
		Status:             status.Resolve(o.PlacedAt, o.ExpectedDeliveryAt, now),
		AsOf:               now,
	}, nil
}

// reserve locks every product of lines in id order, then reserves the lines
// in request order. The first shortage aborts the transaction.
func (s *Service) reserve(ctx context.Context, tx store.InventoryTx, lines []model.OrderLine) error {
	if err := lockAll(ctx, tx, lines); err != nil {
		return err
	}
	for _, l := range lines {
		if err := s.ledger.Reserve(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ string, o model.Order) {
	ev := queue.NewOrderEvent(typ, o, s.now())
	if err := s.publisher.PublishOrderEvent(ctx, ev); err != nil {
		s.log.Warn("publish order event failed",
			zap.String("type", typ),
			zap.Uint64("order_id", o.ID),
			zap.Error(err))
	}
}

// owned loads an order and checks that it belongs to customerID. An order of
// another customer is reported as missing.
func owned(ctx context.Context, tx store.OrderTx, customerID, orderID uint64) (model.Order, error) {
	o, err := tx.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Order{}, apperror.NotFound("order %d not found", orderID)
		}
		return model.Order{}, apperror.Persistence("load order", err)
	}
	if o.CustomerID != customerID {
		return model.Order{}, apperror.NotFound("order %d not found", orderID)
	}
	return o, nil
}
