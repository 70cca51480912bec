package repository

import (
    "context"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/storefront-orders/internal/model"
)

const (
    orderColumns = "id, customer_id, placed_at, expected_delivery_at, total_amount"
    lineColumns  = "order_id, product_id, position, product_name, unit_price, quantity"
)

func scanOrder(r rowScanner) (model.Order, error) {
    var o model.Order
    err := r.Scan(&o.ID, &o.CustomerID, &o.PlacedAt, &o.ExpectedDeliveryAt, &o.TotalAmount)
    if err == nil {
        o.PlacedAt = o.PlacedAt.UTC()
        o.ExpectedDeliveryAt = o.ExpectedDeliveryAt.UTC()
    }
    return o, err
}

// CreateOrder inserts the order header and its lines, then sets o.ID and
// the OrderID of every line.
func (t *sqlTx) CreateOrder(ctx context.Context, o *model.Order) error {
    res, err := t.tx.ExecContext(ctx,
        "INSERT INTO orders (customer_id, placed_at, expected_delivery_at, total_amount) VALUES (?,?,?,?)",
        o.CustomerID, o.PlacedAt.UTC(), o.ExpectedDeliveryAt.UTC(), o.TotalAmount)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    return t.insertLines(ctx, o.ID, o.Lines)
}

// insertLines writes all lines of an order in one statement. Passing an
// empty slice has no effect.
func (t *sqlTx) insertLines(ctx context.Context, orderID uint64, lines []model.OrderLine) error {
    if len(lines) == 0 {
        return nil
    }
    query := "INSERT INTO order_lines (" + lineColumns + ") VALUES "
    args := make([]interface{}, 0, len(lines)*6)
    for i := range lines {
        lines[i].OrderID = orderID
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?)"
        l := lines[i]
        args = append(args, orderID, l.ProductID, l.Position, l.ProductName, l.UnitPrice, l.Quantity)
    }
    _, err := t.tx.ExecContext(ctx, query, args...)
    return mapErr(err)
}

func (t *sqlTx) GetOrder(ctx context.Context, id uint64) (model.Order, error) {
    o, err := scanOrder(t.tx.QueryRowContext(ctx,
        "SELECT "+orderColumns+" FROM orders WHERE id=? LIMIT 1", id))
    if err != nil {
        return model.Order{}, mapErr(err)
    }
    byOrder, err := t.lines(ctx, "order_id=?", id)
    if err != nil {
        return model.Order{}, err
    }
    o.Lines = byOrder[o.ID]
    if o.Lines == nil {
        o.Lines = []model.OrderLine{}
    }
    return o, nil
}

// ListOrdersByCustomer returns the customer's orders newest first. Lines of
// all orders are loaded with a second query.
func (t *sqlTx) ListOrdersByCustomer(ctx context.Context, customerID uint64) ([]model.Order, error) {
    rows, err := t.tx.QueryContext(ctx,
        "SELECT "+orderColumns+" FROM orders WHERE customer_id=? ORDER BY placed_at DESC, id DESC",
        customerID)
    if err != nil {
        return nil, err
    }
    out := []model.Order{}
    for rows.Next() {
        o, err := scanOrder(rows)
        if err != nil {
            rows.Close()
            return nil, err
        }
        out = append(out, o)
    }
    if err := rows.Close(); err != nil {
        return nil, err
    }
    if len(out) == 0 {
        return out, nil
    }
    byOrder, err := t.lines(ctx, "order_id IN (SELECT id FROM orders WHERE customer_id=?)", customerID)
    if err != nil {
        return nil, err
    }
    for i := range out {
        out[i].Lines = byOrder[out[i].ID]
        if out[i].Lines == nil {
            out[i].Lines = []model.OrderLine{}
        }
    }
    return out, nil
}

// lines loads order lines matching where, grouped by order and sorted by
// position.
func (t *sqlTx) lines(ctx context.Context, where string, args ...interface{}) (map[uint64][]model.OrderLine, error) {
    rows, err := t.tx.QueryContext(ctx,
        "SELECT "+lineColumns+" FROM order_lines WHERE "+where+" ORDER BY order_id, position", args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := map[uint64][]model.OrderLine{}
    for rows.Next() {
        var l model.OrderLine
        if err := rows.Scan(&l.OrderID, &l.ProductID, &l.Position, &l.ProductName, &l.UnitPrice, &l.Quantity); err != nil {
            return nil, err
        }
        out[l.OrderID] = append(out[l.OrderID], l)
    }
    return out, rows.Err()
}

// ReplaceOrderLines stores the new total, then swaps the line set.
func (t *sqlTx) ReplaceOrderLines(ctx context.Context, orderID uint64, lines []model.OrderLine, total decimal.Decimal) error {
    if err := affectedOne(t.tx.ExecContext(ctx,
        "UPDATE orders SET total_amount=? WHERE id=?", total, orderID)); err != nil {
        return err
    }
    if _, err := t.tx.ExecContext(ctx, "DELETE FROM order_lines WHERE order_id=?", orderID); err != nil {
        return err
    }
    return t.insertLines(ctx, orderID, lines)
}

func (t *sqlTx) DeleteOrder(ctx context.Context, id uint64) error {
    if _, err := t.tx.ExecContext(ctx, "DELETE FROM order_lines WHERE order_id=?", id); err != nil {
        return err
    }
    return affectedOne(t.tx.ExecContext(ctx, "DELETE FROM orders WHERE id=?", id))
}
