package distribution

import (
	"context"
	"fmt"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// Repository abstracts distribution record persistence.
type Repository interface {
	ApplyIncrement(ctx context.Context, in Increment) error
	ClearRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) error
	GetRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) ([]Record, error)
}

// Service maintains the penyaluran tallies.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordCompletion accumulates one completed order line into the normal
// sub-quota for its (pangkalan, date, variant) key. The increment is atomic
// in the store, not read-modify-write in the application.
func (s *Service) RecordCompletion(ctx context.Context, in Increment) error {
	if err := in.Validate(); err != nil {
		return err
	}
	in.Date = shared.Day(in.Date)
	return s.repo.ApplyIncrement(ctx, in)
}

// ClearRange is an administrative reset used only by re-sync tooling, never
// by normal order flow.
func (s *Service) ClearRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) error {
	if pangkalanID <= 0 {
		return fmt.Errorf("%w: pangkalan reference required", shared.ErrValidation)
	}
	if err := rng.Validate(); err != nil {
		return err
	}
	return s.repo.ClearRange(ctx, pangkalanID, rng)
}

// GetRange lists records for a pangkalan inside the range.
func (s *Service) GetRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) ([]Record, error) {
	if pangkalanID <= 0 {
		return nil, fmt.Errorf("%w: pangkalan reference required", shared.ErrValidation)
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	return s.repo.GetRange(ctx, pangkalanID, rng)
}
