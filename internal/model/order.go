package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// DeliveryWindow is the time between placing an order and its expected delivery.
const DeliveryWindow = 5 * 24 * time.Hour

// Order records a customer's purchase. PlacedAt and ExpectedDeliveryAt are
// fixed when the order is created. TotalAmount is the sum of the line
// subtotals computed from the snapshot prices.
//
// Fields:
//  ID                 – primary key identifier.
//  CustomerID         – customer who placed the order.
//  PlacedAt           – creation timestamp (UTC).
//  ExpectedDeliveryAt – PlacedAt + DeliveryWindow.
//  TotalAmount        – order total with two decimal places.
//  Lines              – order lines, in request order.
type Order struct {
    ID                 uint64          `json:"id"`                   // orders.id
    CustomerID         uint64          `json:"customer_id"`          // orders.customer_id
    PlacedAt           time.Time       `json:"placed_at"`            // orders.placed_at
    ExpectedDeliveryAt time.Time       `json:"expected_delivery_at"` // orders.expected_delivery_at
    TotalAmount        decimal.Decimal `json:"total_amount"`         // orders.total_amount DECIMAL(20,2)
    Lines              []OrderLine     `json:"lines"`
}

// OrderLine is one product in an order, keyed by (OrderID, ProductID).
// ProductName and UnitPrice are copied from the product when the line is
// written and never change afterwards.
//
// Fields:
//  OrderID     – owning order.
//  ProductID   – ordered product.
//  Position    – index of the line within the order.
//  ProductName – product name at order time.
//  UnitPrice   – product price at order time.
//  Quantity    – ordered units, at least 1.
type OrderLine struct {
    OrderID     uint64          `json:"order_id"`     // order_lines.order_id
    ProductID   uint64          `json:"product_id"`   // order_lines.product_id
    Position    int             `json:"-"`            // order_lines.position
    ProductName string          `json:"product_name"` // order_lines.product_name
    UnitPrice   decimal.Decimal `json:"unit_price"`   // order_lines.unit_price DECIMAL(10,2)
    Quantity    int             `json:"quantity"`     // order_lines.quantity
}

// Subtotal returns UnitPrice * Quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
    return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SumLines returns the total of the line subtotals, rounded to MoneyPlaces.
func SumLines(lines []OrderLine) decimal.Decimal {
    total := decimal.Zero
    for _, l := range lines {
        total = total.Add(l.Subtotal())
    }
    return total.Round(MoneyPlaces)
}
