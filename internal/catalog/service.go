package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// Repository abstracts catalog persistence.
type Repository interface {
	Insert(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, id int64, p Product) error
	Get(ctx context.Context, id int64) (Product, error)
	GetByVariant(ctx context.Context, code string) (Product, error)
	List(ctx context.Context, includeInactive bool) ([]Product, error)
	SetActive(ctx context.Context, id int64, active bool) error
	IsReferenced(ctx context.Context, id int64) (bool, error)
}

// Service coordinates catalog operations and variant resolution.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	fallback bool
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// VariantFallback enables substituting DefaultVariant for unknown
	// labels instead of rejecting them.
	VariantFallback bool
}

// NewService builds Service.
func NewService(repo Repository, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, fallback: cfg.VariantFallback}
}

// Create registers a new product definition.
func (s *Service) Create(ctx context.Context, p Product) (int64, error) {
	if err := s.validate(p); err != nil {
		return 0, err
	}
	p.IsActive = true
	return s.repo.Insert(ctx, p)
}

// Update modifies a product. Once the product is referenced by a ledger
// entry, only prices and the active flag may change.
func (s *Service) Update(ctx context.Context, id int64, p Product) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	if err := s.validate(p); err != nil {
		return err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	referenced, err := s.repo.IsReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		if p.VariantCode != current.VariantCode || p.Name != current.Name ||
			p.SizeKg != current.SizeKg || p.Category != current.Category {
			return fmt.Errorf("%w: product is referenced by the ledger, only prices and active flag may change", shared.ErrValidation)
		}
	}
	return s.repo.Update(ctx, id, p)
}

// Deactivate soft-disables a product. Products are never hard-deleted once
// referenced, so there is no delete operation at all.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables a product.
func (s *Service) Activate(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return s.repo.SetActive(ctx, id, true)
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// List returns products, optionally including deactivated ones.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Product, error) {
	return s.repo.List(ctx, includeInactive)
}

// ResolveVariant maps an LPG label to its catalog product by exact canonical
// match. An unmatched label is a data-quality signal surfaced to the caller;
// only when the compatibility fallback is enabled does the default
// subsidised variant stand in, and then with a logged warning.
func (s *Service) ResolveVariant(ctx context.Context, label string) (Product, error) {
	code, ok := CanonicalVariant(label)
	if !ok {
		if !s.fallback {
			return Product{}, fmt.Errorf("%w: unknown LPG variant %q", shared.ErrValidation, label)
		}
		s.logger.Warn("variant fallback engaged",
			slog.String("label", label),
			slog.String("substituted", DefaultVariant))
		code = DefaultVariant
	}
	p, err := s.repo.GetByVariant(ctx, code)
	if err != nil {
		return Product{}, fmt.Errorf("resolve variant %q: %w", label, err)
	}
	return p, nil
}

func (s *Service) validate(p Product) error {
	if !IsCanonicalVariant(p.VariantCode) {
		return fmt.Errorf("%w: variant code %q is not canonical", shared.ErrValidation, p.VariantCode)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	if p.SizeKg <= 0 {
		return fmt.Errorf("%w: product size must be positive", shared.ErrValidation)
	}
	if p.Category != CategorySubsidized && p.Category != CategoryNonSubsidized {
		return fmt.Errorf("%w: unknown category %q", shared.ErrValidation, p.Category)
	}
	if p.CostPrice.LessThan(decimal.Zero) || p.SellPrice.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: prices must be >= 0", shared.ErrValidation)
	}
	return nil
}
