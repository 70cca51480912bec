package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-orders/internal/apperror"
	"github.com/iliyamo/storefront-orders/internal/ledger"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/store"
)

// ProductInput is the body of a create request. IsActive defaults to true.
type ProductInput struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	IsActive *bool           `json:"is_active"`
}

// ProductPatch updates the fields that are set.
type ProductPatch struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	IsActive *bool            `json:"is_active"`
}

// ProductService manages products and the stock catalog that mirrors them.
// Creating a product creates its inventory entry; deactivating a product
// empties it.
type ProductService struct {
	store  store.Store
	ledger *ledger.Ledger
	log    *zap.Logger
}

func NewProductService(st store.Store, l *ledger.Ledger, log *zap.Logger) *ProductService {
	if log == nil {
		log = zap.NewNop()
	}
	if l == nil {
		l = ledger.New(log)
	}
	return &ProductService{store: st, ledger: l, log: log.Named("products")}
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (model.Product, error) {
	p := model.Product{
		Name:     strings.TrimSpace(in.Name),
		Price:    model.NormalizePrice(in.Price),
		IsActive: in.IsActive == nil || *in.IsActive,
	}
	if err := validateProduct(p); err != nil {
		return model.Product{}, err
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.CreateProduct(ctx, &p)
	})
	if err != nil {
		return model.Product{}, translate(err, "product", "product conflict")
	}
	s.log.Info("product created", zap.Uint64("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id uint64) (model.Product, error) {
	var p model.Product
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return model.Product{}, translate(err, "product", "")
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context, activeOnly bool) ([]model.Product, error) {
	var out []model.Product
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListProducts(ctx, activeOnly)
		return err
	})
	if err != nil {
		return nil, apperror.Persistence("list products", err)
	}
	return out, nil
}

// Update applies the set fields of p. Turning a product inactive zeroes its
// stock in the same transaction.
func (s *ProductService) Update(ctx context.Context, id uint64, patch ProductPatch) (model.Product, error) {
	var p model.Product
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.GetProduct(ctx, id); err != nil {
			return err
		}
		wasActive := p.IsActive
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Price != nil {
			p.Price = model.NormalizePrice(*patch.Price)
		}
		if patch.IsActive != nil {
			p.IsActive = *patch.IsActive
		}
		if err := validateProduct(p); err != nil {
			return err
		}
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		if wasActive && !p.IsActive {
			return s.ledger.SetStock(ctx, tx, p.ID, 0)
		}
		return nil
	})
	if err != nil {
		return model.Product{}, translate(err, "product", "product conflict")
	}
	return p, nil
}

// Deactivate is the soft delete of a product: it is marked inactive and its
// stock is zeroed. Existing order lines keep referencing it.
func (s *ProductService) Deactivate(ctx context.Context, id uint64) error {
	off := false
	if _, err := s.Update(ctx, id, ProductPatch{IsActive: &off}); err != nil {
		return err
	}
	s.log.Info("product deactivated", zap.Uint64("product_id", id))
	return nil
}

// Catalog lists inventory entries joined with their product.
func (s *ProductService) Catalog(ctx context.Context, activeOnly bool) ([]model.CatalogEntry, error) {
	var out []model.CatalogEntry
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListCatalog(ctx, activeOnly)
		return err
	})
	if err != nil {
		return nil, apperror.Persistence("list catalog", err)
	}
	if out == nil {
		out = []model.CatalogEntry{}
	}
	return out, nil
}

// CatalogEntry returns the inventory entry of one product.
func (s *ProductService) CatalogEntry(ctx context.Context, productID uint64) (model.CatalogEntry, error) {
	var e model.CatalogEntry
	err := s.store.View(ctx, func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		inv, err := tx.LockInventory(ctx, productID)
		if err != nil {
			return err
		}
		e = model.CatalogEntry{InventoryEntry: inv, ProductName: p.Name, IsActive: p.IsActive}
		return nil
	})
	if err != nil {
		return model.CatalogEntry{}, translate(err, "product", "")
	}
	return e, nil
}

// SetStock overwrites the stock of an active product. Inactive products keep
// zero stock.
func (s *ProductService) SetStock(ctx context.Context, productID uint64, stock int64) (model.CatalogEntry, error) {
	if stock < 0 {
		return model.CatalogEntry{}, apperror.InvalidRequest("stock must not be negative, got %d", stock)
	}
	var e model.CatalogEntry
	err := s.store.Update(ctx, func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return apperror.ProductUnavailable(p.Name)
		}
		if err := s.ledger.SetStock(ctx, tx, productID, stock); err != nil {
			return err
		}
		inv, err := tx.LockInventory(ctx, productID)
		if err != nil {
			return err
		}
		e = model.CatalogEntry{InventoryEntry: inv, ProductName: p.Name, IsActive: p.IsActive}
		return nil
	})
	if err != nil {
		return model.CatalogEntry{}, translate(err, "product", "")
	}
	s.log.Info("stock set", zap.Uint64("product_id", productID), zap.Int64("stock", stock))
	return e, nil
}

func validateProduct(p model.Product) error {
	if p.Name == "" {
		return apperror.InvalidRequest("name is required")
	}
	if p.Price.IsNegative() {
		return apperror.InvalidRequest("price must not be negative")
	}
	return nil
}
