package ledger

import (
	"fmt"
	"time"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn represents an inward receipt (masuk).
	MovementIn MovementType = "IN"
	// MovementOut represents an outward dispatch (keluar).
	MovementOut MovementType = "OUT"
	// MovementAdjustment represents a physical-count correction (opname)
	// carrying a signed delta.
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Movement is one row of the append-only stock ledger. Corrections are new
// ADJUSTMENT rows, never edits.
type Movement struct {
	ID         int64        `json:"id"`
	Code       string       `json:"code"`
	ProductID  int64        `json:"product_id"`
	Type       MovementType `json:"type"`
	// Qty is a positive magnitude for IN/OUT and a signed non-zero delta
	// for ADJUSTMENT.
	Qty        int64     `json:"qty"`
	Note       string    `json:"note"`
	OrderID    int64     `json:"order_id,omitempty"`
	ActorID    int64     `json:"actor_id,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MovementInput describes a request to append a movement.
type MovementInput struct {
	ProductID int64
	Type      MovementType
	Qty       int64
	Note      string
	OrderID   int64
	ActorID   int64
}

// SignedQty returns the movement's contribution to the running balance.
func (m Movement) SignedQty() int64 {
	if m.Type == MovementOut {
		return -m.Qty
	}
	return m.Qty
}

// ValidateInput checks movement rules shared by all callers.
func ValidateInput(in MovementInput) error {
	if in.ProductID <= 0 {
		return fmt.Errorf("%w: product reference required", shared.ErrValidation)
	}
	switch in.Type {
	case MovementIn, MovementOut:
		if in.Qty <= 0 {
			return fmt.Errorf("%w: quantity must be a positive integer", shared.ErrValidation)
		}
	case MovementAdjustment:
		if in.Qty == 0 {
			return fmt.Errorf("%w: adjustment delta must be non-zero", shared.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown movement type %q", shared.ErrValidation, in.Type)
	}
	return nil
}
