// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "context"
    "time"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/storefront-orders/internal/model"
)

// Queue names. Both are durable.
const (
    OrderEventsQueue = "order.events"
    StockEventsQueue = "stock.events"
)

// Order event types.
const (
    OrderPlaced  = "order.placed"
    OrderUpdated = "order.updated"
    OrderDeleted = "order.deleted"
)

// StockRestocked is the message type of a RestockEvent.
const StockRestocked = "stock.restocked"

// OrderEvent is published after an order transaction commits. It carries
// enough information for consumers to log or notify without querying the
// primary database.
type OrderEvent struct {
    EventID     string          `json:"event_id"`
    Type        string          `json:"type"`
    OrderID     uint64          `json:"order_id"`
    CustomerID  uint64          `json:"customer_id"`
    TotalAmount decimal.Decimal `json:"total_amount"`
    Lines       []EventLine     `json:"lines"`
    OccurredAt  time.Time       `json:"occurred_at"`
}

// EventLine is one order line inside an OrderEvent.
type EventLine struct {
    ProductID   uint64          `json:"product_id"`
    ProductName string          `json:"product_name"`
    UnitPrice   decimal.Decimal `json:"unit_price"`
    Quantity    int             `json:"quantity"`
}

// RestockEvent is published for every entry restocked by the stock monitor.
type RestockEvent struct {
    EventID     string    `json:"event_id"`
    ProductID   uint64    `json:"product_id"`
    ProductName string    `json:"product_name"`
    StockBefore int64     `json:"stock_before"`
    StockAfter  int64     `json:"stock_after"`
    RestockedAt time.Time `json:"restocked_at"`
}

// NewOrderEvent builds an OrderEvent of the given type from an order.
func NewOrderEvent(typ string, o model.Order, at time.Time) OrderEvent {
    lines := make([]EventLine, 0, len(o.Lines))
    for _, l := range o.Lines {
        lines = append(lines, EventLine{
            ProductID:   l.ProductID,
            ProductName: l.ProductName,
            UnitPrice:   l.UnitPrice,
            Quantity:    l.Quantity,
        })
    }
    return OrderEvent{
        EventID:     uuid.NewString(),
        Type:        typ,
        OrderID:     o.ID,
        CustomerID:  o.CustomerID,
        TotalAmount: o.TotalAmount,
        Lines:       lines,
        OccurredAt:  at.UTC(),
    }
}

// Publisher delivers events. Publishing happens after commit and is best
// effort: callers log a failure and carry on.
type Publisher interface {
    PublishOrderEvent(ctx context.Context, ev OrderEvent) error
    PublishRestockEvent(ctx context.Context, ev RestockEvent) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, OrderEvent) error     { return nil }
func (NopPublisher) PublishRestockEvent(context.Context, RestockEvent) error { return nil }
