package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is an order lifecycle state. The happy path runs
// DRAFT -> MENUNGGU_PEMBAYARAN -> DIPROSES -> SELESAI; DIBATALKAN is
// reachable from any non-terminal state. SELESAI and DIBATALKAN are
// terminal: there is no reversal path for a completed order.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusAwaitingPayment Status = "MENUNGGU_PEMBAYARAN"
	StatusProcessing      Status = "DIPROSES"
	StatusCompleted       Status = "SELESAI"
	StatusCancelled       Status = "DIBATALKAN"
)

var transitions = map[Status][]Status{
	StatusDraft:           {StatusAwaitingPayment, StatusCancelled},
	StatusAwaitingPayment: {StatusProcessing, StatusCancelled},
	StatusProcessing:      {StatusCompleted, StatusCancelled},
	StatusCompleted:       {},
	StatusCancelled:       {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition exists.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo consults the transition table.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Order is a sales order for one pangkalan. It owns its items: they never
// outlive the order.
type Order struct {
	ID            int64           `json:"id"`
	PangkalanID   int64           `json:"pangkalan_id"`
	DriverID      *int64          `json:"driver_id,omitempty"`
	Status        Status          `json:"status"`
	OrderDate     time.Time       `json:"order_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	IsPaid        bool            `json:"is_paid"`
	IsDownPayment bool            `json:"is_down_payment"`
	PaymentMethod string          `json:"payment_method"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []Item          `json:"items,omitempty"`
}

// Item is one order line. Quantity and price are immutable once the order
// reaches SELESAI; completed orders are historical facts.
type Item struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Variant   string          `json:"variant"`
	Qty       int64           `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Taxable   bool            `json:"taxable"`
}
