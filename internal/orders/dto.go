package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// CreateOrderRequest describes a new order. Variant labels are accepted in
// any known spelling and normalised to canonical codes before storage.
type CreateOrderRequest struct {
	PangkalanID int64         `json:"pangkalan_id" validate:"required,gt=0"`
	DriverID    *int64        `json:"driver_id,omitempty" validate:"omitempty,gt=0"`
	OrderDate   time.Time     `json:"order_date" validate:"required"`
	Items       []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ItemRequest is one requested order line.
type ItemRequest struct {
	Variant   string          `json:"variant" validate:"required"`
	Qty       int64           `json:"qty" validate:"required,gte=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Taxable   bool            `json:"taxable"`
}

// TransitionMeta carries the audit context of a status change. ActorID is
// an opaque identifier supplied by the auth layer; the engine does not
// authenticate it.
type TransitionMeta struct {
	ActorID     int64
	PaymentType string
	Note        string
}

// PaymentInput updates the payment fields of an order.
type PaymentInput struct {
	IsPaid        bool
	IsDownPayment bool
	Method        string          `validate:"required"`
	AmountPaid    decimal.Decimal
	ActorID       int64
}

// ListRequest filters order listings.
type ListRequest struct {
	PangkalanID *int64
	Status      *Status
	Range       *shared.DateRange
	Limit       int `validate:"gte=0,lte=1000"`
	Offset      int `validate:"gte=0"`
}
