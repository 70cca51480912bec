// Package monitor finds low-stock catalog entries and restocks them under a
// cooldown rule. There is no scheduler: a scan runs when it is requested.
package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-orders/internal/apperror"
	"github.com/iliyamo/storefront-orders/internal/ledger"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/queue"
	"github.com/iliyamo/storefront-orders/internal/store"
)

// Defaults used when a Policy field is zero.
const (
	DefaultThreshold     = 10
	DefaultCooldown      = 7 * 24 * time.Hour
	DefaultRestockAmount = 20
)

// Policy controls when and by how much an entry is restocked.
type Policy struct {
	Threshold     int64
	Cooldown      time.Duration
	RestockAmount int64
}

func (p Policy) withDefaults() Policy {
	if p.Threshold <= 0 {
		p.Threshold = DefaultThreshold
	}
	if p.Cooldown <= 0 {
		p.Cooldown = DefaultCooldown
	}
	if p.RestockAmount <= 0 {
		p.RestockAmount = DefaultRestockAmount
	}
	return p
}

// Eligible reports whether an entry may be restocked at now: it has never
// been restocked, or its last restock is older than the cooldown.
func (p Policy) Eligible(e model.InventoryEntry, now time.Time) bool {
	if e.LastRestockAt == nil {
		return true
	}
	return now.Sub(*e.LastRestockAt) > p.Cooldown
}

// ReportItem describes one low-stock entry seen by a scan.
type ReportItem struct {
	ProductID     uint64     `json:"product_id"`
	ProductName   string     `json:"product_name"`
	StockBefore   int64      `json:"stock_before"`
	StockAfter    int64      `json:"stock_after"`
	Restocked     bool       `json:"restocked"`
	LastRestockAt *time.Time `json:"last_restock_at"`
}

// Report is the result of ScanAndRestock.
type Report struct {
	Threshold     int64        `json:"threshold"`
	RestockAmount int64        `json:"restock_amount"`
	ScannedAt     time.Time    `json:"scanned_at"`
	Items         []ReportItem `json:"items"`
}

// Restocked returns the number of entries restocked by the scan.
func (r Report) Restocked() int {
	n := 0
	for _, it := range r.Items {
		if it.Restocked {
			n++
		}
	}
	return n
}

// Monitor scans the inventory through a store.
type Monitor struct {
	store     store.Store
	ledger    *ledger.Ledger
	policy    Policy
	now       store.Clock
	publisher queue.Publisher
	log       *zap.Logger
}

// New builds a Monitor. Zero policy fields take the package defaults; a nil
// clock means store.UTCNow and a nil publisher drops events.
func New(st store.Store, l *ledger.Ledger, policy Policy, now store.Clock, pub queue.Publisher, log *zap.Logger) *Monitor {
	if now == nil {
		now = store.UTCNow
	}
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		store:     st,
		ledger:    l,
		policy:    policy.withDefaults(),
		now:       now,
		publisher: pub,
		log:       log.Named("monitor"),
	}
}

// Policy returns the effective policy.
func (m *Monitor) Policy() Policy { return m.policy }

// ScanLowStock returns the entries of active products with
// 0 < stock < threshold, ordered by product id.
func (m *Monitor) ScanLowStock(ctx context.Context, threshold int64) ([]model.CatalogEntry, error) {
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}
	var out []model.CatalogEntry
	err := m.store.View(ctx, func(tx store.Tx) error {
		entries, err := tx.LockLowStock(ctx, threshold)
		if err != nil {
			return apperror.Persistence("scan low stock", err)
		}
		out = entries
		return nil
	})
	if err != nil {
		return nil, apperror.Persistence("scan low stock", err)
	}
	if out == nil {
		out = []model.CatalogEntry{}
	}
	return out, nil
}

// ScanAndRestock restocks every eligible low-stock entry in one transaction
// that holds the row locks of all scanned entries. Entries inside their
// cooldown are reported with Restocked=false. Running it twice within the
// cooldown restocks each entry at most once.
func (m *Monitor) ScanAndRestock(ctx context.Context, threshold int64) (Report, error) {
	if err := checkThreshold(threshold); err != nil {
		return Report{}, err
	}
	now := m.now().UTC()
	report := Report{
		Threshold:     threshold,
		RestockAmount: m.policy.RestockAmount,
		ScannedAt:     now,
		Items:         []ReportItem{},
	}
	err := m.store.Update(ctx, func(tx store.Tx) error {
		entries, err := tx.LockLowStock(ctx, threshold)
		if err != nil {
			return apperror.Persistence("scan low stock", err)
		}
		items := make([]ReportItem, 0, len(entries))
		for _, e := range entries {
			item := ReportItem{
				ProductID:     e.ProductID,
				ProductName:   e.ProductName,
				StockBefore:   e.Stock,
				StockAfter:    e.Stock,
				LastRestockAt: e.LastRestockAt,
			}
			if m.policy.Eligible(e.InventoryEntry, now) {
				stock, err := m.ledger.Restock(ctx, tx, e.ProductID, m.policy.RestockAmount, now)
				if err != nil {
					return err
				}
				at := now
				item.StockAfter = stock
				item.Restocked = true
				item.LastRestockAt = &at
			}
			items = append(items, item)
		}
		report.Items = items
		return nil
	})
	if err != nil {
		return Report{}, apperror.Persistence("restock scan", err)
	}

	m.log.Info("stock scan finished",
		zap.Int64("threshold", threshold),
		zap.Int("low_stock", len(report.Items)),
		zap.Int("restocked", report.Restocked()))
	for _, it := range report.Items {
		if !it.Restocked {
			continue
		}
		ev := queue.RestockEvent{
			EventID:     uuid.NewString(),
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			StockBefore: it.StockBefore,
			StockAfter:  it.StockAfter,
			RestockedAt: now,
		}
		if err := m.publisher.PublishRestockEvent(ctx, ev); err != nil {
			m.log.Warn("publish restock event failed", zap.Uint64("product_id", it.ProductID), zap.Error(err))
		}
	}
	return report, nil
}

func checkThreshold(t int64) error {
	if t <= 0 {
		return apperror.InvalidRequest("threshold must be positive, got %d", t)
	}
	return nil
}
