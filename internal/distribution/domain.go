package distribution

import (
	"fmt"
	"time"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// Record is the actual distributed quantity (penyaluran) for one
// (pangkalan, date, variant) key, accumulated from completed orders.
type Record struct {
	PangkalanID int64     `json:"pangkalan_id"`
	Date        time.Time `json:"date"`
	Variant     string    `json:"variant"`
	Normal      int64     `json:"normal"`
	Fakultatif  int64     `json:"fakultatif"`
	PaymentType string    `json:"payment_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Increment describes one completion's contribution. Applied with
// increment-on-conflict semantics: concurrent completions for the same key
// accumulate, never overwrite.
type Increment struct {
	PangkalanID int64
	Date        time.Time
	Variant     string
	Qty         int64
	PaymentType string
}

// Validate checks increment rules.
func (in Increment) Validate() error {
	if in.PangkalanID <= 0 {
		return fmt.Errorf("%w: pangkalan reference required", shared.ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: record date required", shared.ErrValidation)
	}
	if in.Variant == "" {
		return fmt.Errorf("%w: variant required", shared.ErrValidation)
	}
	if in.Qty <= 0 {
		return fmt.Errorf("%w: quantity must be a positive integer", shared.ErrValidation)
	}
	return nil
}
