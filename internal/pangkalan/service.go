package pangkalan

import (
	"context"
	"fmt"
	"strings"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// Repository abstracts pangkalan persistence.
type Repository interface {
	Insert(ctx context.Context, p Pangkalan) (int64, error)
	Update(ctx context.Context, id int64, p Pangkalan) error
	Get(ctx context.Context, id int64) (Pangkalan, error)
	List(ctx context.Context, includeInactive bool) ([]Pangkalan, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service manages the distribution point registry.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new pangkalan.
func (s *Service) Create(ctx context.Context, p Pangkalan) (int64, error) {
	if err := validate(p); err != nil {
		return 0, err
	}
	p.IsActive = true
	return s.repo.Insert(ctx, p)
}

// Update modifies pangkalan master data.
func (s *Service) Update(ctx context.Context, id int64, p Pangkalan) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid pangkalan id", shared.ErrValidation)
	}
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, p)
}

// Get returns one pangkalan.
func (s *Service) Get(ctx context.Context, id int64) (Pangkalan, error) {
	if id <= 0 {
		return Pangkalan{}, fmt.Errorf("%w: invalid pangkalan id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// List returns pangkalan, optionally including deactivated ones.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Pangkalan, error) {
	return s.repo.List(ctx, includeInactive)
}

// SetActive toggles the active flag.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid pangkalan id", shared.ErrValidation)
	}
	return s.repo.SetActive(ctx, id, active)
}

func validate(p Pangkalan) error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("%w: pangkalan code is required", shared.ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: pangkalan name is required", shared.ErrValidation)
	}
	return nil
}
