package memstore

import (
	"context"
	"sort"

	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/store"
)

func (t *memTx) CreateProduct(_ context.Context, p *model.Product) error {
	id, err := t.nextID(tableProducts)
	if err != nil {
		return err
	}
	p.ID = id
	cp := *p
	if err := t.txn.Insert(tableProducts, &cp); err != nil {
		return err
	}
	return t.txn.Insert(tableInventory, &model.InventoryEntry{ProductID: id})
}

func (t *memTx) GetProduct(_ context.Context, id uint64) (model.Product, error) {
	raw, err := t.first(tableProducts, "id", id)
	if err != nil {
		return model.Product{}, err
	}
	return *raw.(*model.Product), nil
}

func (t *memTx) FindActiveProductByName(_ context.Context, name string) (model.Product, error) {
	rows, err := t.all(tableProducts, "name", name)
	if err != nil {
		return model.Product{}, err
	}
	var found *model.Product
	for _, raw := range rows {
		p := raw.(*model.Product)
		if !p.IsActive {
			continue
		}
		if found == nil || p.ID < found.ID {
			found = p
		}
	}
	if found == nil {
		return model.Product{}, store.ErrNotFound
	}
	return *found, nil
}

func (t *memTx) ListProducts(_ context.Context, activeOnly bool) ([]model.Product, error) {
	rows, err := t.all(tableProducts, "id")
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(rows))
	for _, raw := range rows {
		p := raw.(*model.Product)
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) UpdateProduct(ctx context.Context, p model.Product) error {
	if _, err := t.GetProduct(ctx, p.ID); err != nil {
		return err
	}
	return t.txn.Insert(tableProducts, &p)
}

func (t *memTx) LockInventory(_ context.Context, productID uint64) (model.InventoryEntry, error) {
	raw, err := t.first(tableInventory, "id", productID)
	if err != nil {
		return model.InventoryEntry{}, err
	}
	return *raw.(*model.InventoryEntry), nil
}

func (t *memTx) SaveInventory(ctx context.Context, e model.InventoryEntry) error {
	if _, err := t.LockInventory(ctx, e.ProductID); err != nil {
		return err
	}
	if e.LastRestockAt != nil {
		at := *e.LastRestockAt
		e.LastRestockAt = &at
	}
	return t.txn.Insert(tableInventory, &e)
}

func (t *memTx) LockLowStock(ctx context.Context, threshold int64) ([]model.CatalogEntry, error) {
	entries, err := t.ListCatalog(ctx, true)
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Stock > 0 && e.Stock < threshold {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) ListCatalog(ctx context.Context, activeOnly bool) ([]model.CatalogEntry, error) {
	rows, err := t.all(tableInventory, "id")
	if err != nil {
		return nil, err
	}
	out := make([]model.CatalogEntry, 0, len(rows))
	for _, raw := range rows {
		e := raw.(*model.InventoryEntry)
		p, err := t.GetProduct(ctx, e.ProductID)
		if err != nil {
			return nil, err
		}
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, model.CatalogEntry{InventoryEntry: *e, ProductName: p.Name, IsActive: p.IsActive})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}
