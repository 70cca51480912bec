package memstore

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-orders/internal/model"
)

func (t *memTx) CreateOrder(ctx context.Context, o *model.Order) error {
	if _, err := t.GetCustomer(ctx, o.CustomerID); err != nil {
		return err
	}
	id, err := t.nextID(tableOrders)
	if err != nil {
		return err
	}
	o.ID = id
	// lines live in their own table
	head := *o
	head.Lines = nil
	if err := t.txn.Insert(tableOrders, &head); err != nil {
		return err
	}
	return t.insertLines(id, o.Lines)
}

func (t *memTx) insertLines(orderID uint64, lines []model.OrderLine) error {
	for i := range lines {
		lines[i].OrderID = orderID
		l := lines[i]
		if err := t.txn.Insert(tableLines, &l); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) GetOrder(_ context.Context, id uint64) (model.Order, error) {
	raw, err := t.first(tableOrders, "id", id)
	if err != nil {
		return model.Order{}, err
	}
	return t.withLines(*raw.(*model.Order))
}

func (t *memTx) withLines(o model.Order) (model.Order, error) {
	rows, err := t.all(tableLines, "order", o.ID)
	if err != nil {
		return model.Order{}, err
	}
	o.Lines = make([]model.OrderLine, 0, len(rows))
	for _, raw := range rows {
		o.Lines = append(o.Lines, *raw.(*model.OrderLine))
	}
	sort.Slice(o.Lines, func(i, j int) bool { return o.Lines[i].Position < o.Lines[j].Position })
	return o, nil
}

func (t *memTx) ListOrdersByCustomer(_ context.Context, customerID uint64) ([]model.Order, error) {
	rows, err := t.all(tableOrders, "customer", customerID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(rows))
	for _, raw := range rows {
		o, err := t.withLines(*raw.(*model.Order))
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.After(out[j].PlacedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *memTx) ReplaceOrderLines(_ context.Context, orderID uint64, lines []model.OrderLine, total decimal.Decimal) error {
	raw, err := t.first(tableOrders, "id", orderID)
	if err != nil {
		return err
	}
	head := *raw.(*model.Order)
	head.TotalAmount = total
	if _, err := t.txn.DeleteAll(tableLines, "order", orderID); err != nil {
		return err
	}
	if err := t.txn.Insert(tableOrders, &head); err != nil {
		return err
	}
	return t.insertLines(orderID, lines)
}

func (t *memTx) DeleteOrder(_ context.Context, id uint64) error {
	raw, err := t.first(tableOrders, "id", id)
	if err != nil {
		return err
	}
	if _, err := t.txn.DeleteAll(tableLines, "order", id); err != nil {
		return err
	}
	return t.txn.Delete(tableOrders, raw)
}
