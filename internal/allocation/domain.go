package allocation

import (
	"fmt"
	"time"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// Plan is the forecasted daily quota for one pangkalan, split into the
// normal and fakultatif (discretionary) sub-quotas. One row per
// (pangkalan, date); planning is forecast-and-revise, not an append log.
type Plan struct {
	PangkalanID    int64     `json:"pangkalan_id"`
	Date           time.Time `json:"date"`
	Normal         int64     `json:"normal"`
	Fakultatif     int64     `json:"fakultatif"`
	// MonthlyCeiling is the denormalised monthly allocation ceiling the
	// daily plans are drawn against.
	MonthlyCeiling int64     `json:"monthly_ceiling"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PlanInput describes one upsert request.
type PlanInput struct {
	PangkalanID    int64
	Date           time.Time
	Normal         int64
	Fakultatif     int64
	MonthlyCeiling int64
}

// MonthSummary totals a month's plan against the ceiling.
type MonthSummary struct {
	PangkalanID    int64 `json:"pangkalan_id"`
	Normal         int64 `json:"normal"`
	Fakultatif     int64 `json:"fakultatif"`
	MonthlyCeiling int64 `json:"monthly_ceiling"`
}

// Total returns the combined planned quantity.
func (s MonthSummary) Total() int64 {
	return s.Normal + s.Fakultatif
}

func validateInput(in PlanInput) error {
	if in.PangkalanID <= 0 {
		return fmt.Errorf("%w: pangkalan reference required", shared.ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: plan date required", shared.ErrValidation)
	}
	// Historical seeding writes one-sided rows (either normal or
	// fakultatif); the schema deliberately permits both, so only
	// negativity is rejected here.
	if in.Normal < 0 || in.Fakultatif < 0 {
		return fmt.Errorf("%w: quota quantities must be >= 0", shared.ErrValidation)
	}
	if in.MonthlyCeiling < 0 {
		return fmt.Errorf("%w: monthly ceiling must be >= 0", shared.ErrValidation)
	}
	return nil
}
