package recon

import (
	"time"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// SyncReport compares the four quantity totals that must agree over a
// window: planned allocation, recorded distribution, completed order lines
// and order-linked stock OUT movements.
type SyncReport struct {
	Window          shared.DateRange `json:"window"`
	Planned         int64            `json:"planned"`
	Distributed     int64            `json:"distributed"`
	OrderItemsTotal int64            `json:"order_items_total"`
	StockOutTotal   int64            `json:"stock_out_total"`
	InSync          bool             `json:"in_sync"`
	CheckedAt       time.Time        `json:"checked_at"`
}

// Drift is the widest gap between any two of the totals. Zero means all
// four agree.
func (r SyncReport) Drift() int64 {
	min, max := r.Planned, r.Planned
	for _, v := range []int64{r.Distributed, r.OrderItemsTotal, r.StockOutTotal} {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}

// CompletedLine is one item of a SELESAI order, the unit of replay during
// a resync.
type CompletedLine struct {
	OrderID     int64
	PangkalanID int64
	OrderDate   time.Time
	ProductID   int64
	Variant     string
	Qty         int64
}
