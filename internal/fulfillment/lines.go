package fulfillment

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/storefront-orders/internal/apperror"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/store"
)

// LineRequest is one requested order line. A product is referenced by id or,
// when the id is absent, by name.
type LineRequest struct {
	ProductID   *uint64 `json:"product_id,omitempty"`
	ProductName *string `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
}

// ByID returns a LineRequest referencing a product id.
func ByID(productID uint64, quantity int) LineRequest {
	return LineRequest{ProductID: &productID, Quantity: quantity}
}

// ByName returns a LineRequest referencing a product name.
func ByName(name string, quantity int) LineRequest {
	return LineRequest{ProductName: &name, Quantity: quantity}
}

func (r LineRequest) ref() string {
	if r.ProductID != nil {
		return strconv.FormatUint(*r.ProductID, 10)
	}
	if r.ProductName != nil {
		return strconv.Quote(*r.ProductName)
	}
	return "<none>"
}

// validate checks the request shape. It runs before any store access.
func validate(customerID uint64, lines []LineRequest) error {
	if customerID == 0 {
		return apperror.InvalidRequest("customer id is required")
	}
	if len(lines) == 0 {
		return apperror.InvalidRequest("an order needs at least one line")
	}
	for i, l := range lines {
		if l.ProductID == nil && (l.ProductName == nil || strings.TrimSpace(*l.ProductName) == "") {
			return apperror.InvalidRequest("line %d: product_id or product_name is required", i+1)
		}
		if l.Quantity < 1 {
			return apperror.InvalidRequest("line %d: quantity must be at least 1, got %d", i+1, l.Quantity)
		}
	}
	return nil
}

// resolve maps a request line to an active product.
func resolve(ctx context.Context, tx store.ProductTx, r LineRequest) (model.Product, error) {
	var (
		p   model.Product
		err error
	)
	if r.ProductID != nil {
		p, err = tx.GetProduct(ctx, *r.ProductID)
	} else {
		p, err = tx.FindActiveProductByName(ctx, strings.TrimSpace(*r.ProductName))
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return model.Product{}, apperror.ProductUnavailable(r.ref())
	case err != nil:
		return model.Product{}, apperror.Persistence("load product", err)
	case !p.IsActive:
		return model.Product{}, apperror.ProductUnavailable(r.ref())
	}
	return p, nil
}

// buildLines resolves every request line and snapshots name and price.
// Lines naming the same product are merged into the first one.
func buildLines(ctx context.Context, tx store.ProductTx, reqs []LineRequest) ([]model.OrderLine, error) {
	lines := make([]model.OrderLine, 0, len(reqs))
	index := make(map[uint64]int, len(reqs))
	for _, r := range reqs {
		p, err := resolve(ctx, tx, r)
		if err != nil {
			return nil, err
		}
		if i, ok := index[p.ID]; ok {
			lines[i].Quantity += r.Quantity
			continue
		}
		index[p.ID] = len(lines)
		lines = append(lines, model.OrderLine{
			ProductID:   p.ID,
			Position:    len(lines),
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    r.Quantity,
		})
	}
	return lines, nil
}

// lockAll takes the inventory row locks of every product in ascending id
// order, so two transactions touching overlapping products cannot deadlock.
func lockAll(ctx context.Context, tx store.InventoryTx, groups ...[]model.OrderLine) error {
	seen := map[uint64]bool{}
	var ids []uint64
	for _, lines := range groups {
		for _, l := range lines {
			if !seen[l.ProductID] {
				seen[l.ProductID] = true
				ids = append(ids, l.ProductID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, err := tx.LockInventory(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperror.NotFound("inventory entry for product %d not found", id)
			}
			return apperror.Persistence("lock inventory", err)
		}
	}
	return nil
}
