package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// Repository abstracts ledger persistence.
type Repository interface {
	Insert(ctx context.Context, m Movement) (int64, error)
	SumBalance(ctx context.Context, productID int64, asOf time.Time) (int64, error)
	ListByProduct(ctx context.Context, productID int64, limit int) ([]Movement, error)
}

// ActivityPort abstracts the business event log.
type ActivityPort interface {
	Record(ctx context.Context, entry shared.ActivityEntry) error
}

// Service coordinates stock ledger operations.
type Service struct {
	repo     Repository
	activity ActivityPort
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo Repository, activity ActivityPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, activity: activity, logger: logger}
}

// RecordMovement appends one movement. It never edits or removes a prior
// row; a correction is a new ADJUSTMENT with a signed delta. The ledger does
// not deduplicate: at-most-once emission per logical event is the caller's
// responsibility.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (int64, error) {
	if err := ValidateInput(input); err != nil {
		return 0, err
	}
	m := Movement{
		Code:       fmt.Sprintf("MV-%s", uuid.NewString()),
		ProductID:  input.ProductID,
		Type:       input.Type,
		Qty:        input.Qty,
		Note:       input.Note,
		OrderID:    input.OrderID,
		ActorID:    input.ActorID,
		RecordedAt: time.Now().UTC(),
	}
	id, err := s.repo.Insert(ctx, m)
	if err != nil {
		return 0, err
	}

	// Negative running balance is surfaced, never blocked: real-world
	// shrinkage can legitimately drive it below zero.
	if balance, balErr := s.repo.SumBalance(ctx, input.ProductID, time.Time{}); balErr == nil && balance < 0 {
		s.logger.Warn("stock balance negative",
			slog.Int64("product_id", input.ProductID),
			slog.Int64("balance", balance))
	}

	if s.activity != nil {
		if err := s.activity.Record(ctx, shared.ActivityEntry{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("stock:%s", input.Type),
			Entity:   "stock_movement",
			EntityID: m.Code,
			Meta: map[string]any{
				"product_id": input.ProductID,
				"qty":        input.Qty,
				"order_id":   input.OrderID,
				"note":       input.Note,
			},
		}); err != nil {
			s.logger.Warn("activity log write failed", slog.Any("error", err))
		}
	}
	return id, nil
}

// CurrentBalance reduces the whole movement log for a product:
// sum(IN) - sum(OUT) + sum(ADJUSTMENT deltas).
func (s *Service) CurrentBalance(ctx context.Context, productID int64) (int64, error) {
	if productID <= 0 {
		return 0, fmt.Errorf("%w: product reference required", shared.ErrValidation)
	}
	return s.repo.SumBalance(ctx, productID, time.Time{})
}

// BalanceAsOf reduces movements recorded up to and including t.
func (s *Service) BalanceAsOf(ctx context.Context, productID int64, t time.Time) (int64, error) {
	if productID <= 0 {
		return 0, fmt.Errorf("%w: product reference required", shared.ErrValidation)
	}
	if t.IsZero() {
		return 0, fmt.Errorf("%w: as-of timestamp required", shared.ErrValidation)
	}
	return s.repo.SumBalance(ctx, productID, t)
}

// History lists recent movements for a product.
func (s *Service) History(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product reference required", shared.ErrValidation)
	}
	return s.repo.ListByProduct(ctx, productID, limit)
}
