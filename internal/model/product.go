package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Product is a catalog item. A deactivated product cannot be ordered, but
// order lines that reference it keep their snapshot of name and price.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – display name (not unique).
//  Price    – unit price with two decimal places.
//  IsActive – whether the product can be ordered.
type Product struct {
    ID       uint64          `json:"id"`        // products.id
    Name     string          `json:"name"`      // products.name
    Price    decimal.Decimal `json:"price"`     // products.price DECIMAL(10,2)
    IsActive bool            `json:"is_active"` // products.is_active
}

// InventoryEntry is the stock ledger row of exactly one product. It is
// created together with the product and shares its key.
//
// Fields:
//  ProductID     – product this entry counts (inventory.product_id).
//  Stock         – units on hand, never negative.
//  LastRestockAt – time of the last restock, nil if never restocked.
type InventoryEntry struct {
    ProductID     uint64     `json:"product_id"`      // inventory.product_id
    Stock         int64      `json:"stock"`           // inventory.stock
    LastRestockAt *time.Time `json:"last_restock_at"` // inventory.last_restock_at (nullable)
}

// CatalogEntry joins an inventory entry with the product fields shown in
// catalog listings and stock reports.
type CatalogEntry struct {
    InventoryEntry
    ProductName string `json:"product_name"`
    IsActive    bool   `json:"is_active"`
}

// MoneyPlaces is the number of decimal places kept for every amount.
const MoneyPlaces = 2

// NormalizePrice rounds p to MoneyPlaces.
func NormalizePrice(p decimal.Decimal) decimal.Decimal {
    return p.Round(MoneyPlaces)
}
