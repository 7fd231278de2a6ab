package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gasnusa/gasnusa/internal/catalog"
	"github.com/gasnusa/gasnusa/internal/distribution"
	"github.com/gasnusa/gasnusa/internal/ledger"
	"github.com/gasnusa/gasnusa/internal/pangkalan"
	"github.com/gasnusa/gasnusa/internal/platform/db"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// CatalogPort resolves LPG variant labels to catalog products.
type CatalogPort interface {
	ResolveVariant(ctx context.Context, label string) (catalog.Product, error)
}

// PangkalanPort verifies distribution point references.
type PangkalanPort interface {
	Get(ctx context.Context, id int64) (pangkalan.Pangkalan, error)
}

// ActivityPort abstracts the business event log.
type ActivityPort interface {
	Record(ctx context.Context, entry shared.ActivityEntry) error
}

// CompletionObserver is notified after each successful completion.
type CompletionObserver interface {
	OrderCompleted()
}

// Service drives the order lifecycle.
type Service struct {
	repo     Repository
	catalog  CatalogPort
	points   PangkalanPort
	activity ActivityPort
	observer CompletionObserver
	taxRate  decimal.Decimal
	validate *validator.Validate
	logger   *slog.Logger
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// TaxRate is applied to taxable line items when computing totals.
	TaxRate float64
}

// NewService builds Service.
func NewService(repo Repository, cat CatalogPort, points PangkalanPort, activity ActivityPort, observer CompletionObserver, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		catalog:  cat,
		points:   points,
		activity: activity,
		observer: observer,
		taxRate:  decimal.NewFromFloat(cfg.TaxRate),
		validate: validator.New(),
		logger:   logger,
	}
}

// Create registers a new order in DRAFT with its items. Variant labels are
// normalised at this boundary; the stored items carry canonical codes only.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, createdBy int64) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	point, err := s.points.Get(ctx, req.PangkalanID)
	if err != nil {
		return 0, fmt.Errorf("verify pangkalan: %w", err)
	}
	if !point.IsActive {
		return 0, fmt.Errorf("%w: pangkalan %s is inactive", shared.ErrValidation, point.Code)
	}

	items := make([]Item, 0, len(req.Items))
	for _, itemReq := range req.Items {
		if itemReq.UnitPrice.IsNegative() {
			return 0, fmt.Errorf("%w: unit price must be >= 0", shared.ErrValidation)
		}
		product, err := s.catalog.ResolveVariant(ctx, itemReq.Variant)
		if err != nil {
			return 0, err
		}
		items = append(items, Item{
			Variant:   product.VariantCode,
			Qty:       itemReq.Qty,
			UnitPrice: itemReq.UnitPrice,
			Taxable:   itemReq.Taxable,
		})
	}

	order := Order{
		PangkalanID: req.PangkalanID,
		DriverID:    req.DriverID,
		Status:      StatusDraft,
		OrderDate:   shared.Day(req.OrderDate),
		TotalAmount: s.total(items),
		AmountPaid:  decimal.Zero,
		CreatedBy:   createdBy,
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, order)
		if err != nil {
			return err
		}
		orderID = id
		for _, item := range items {
			item.OrderID = orderID
			if _, err := tx.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, db.Classify(err)
	}

	s.recordActivity(ctx, createdBy, "order:create", orderID, map[string]any{
		"pangkalan_id": req.PangkalanID,
		"total_amount": order.TotalAmount.String(),
		"items":        len(items),
	})
	return orderID, nil
}

// Transition moves the order to target. Completion is the critical path:
// every item's stock OUT movement and distribution increment plus the
// status flip happen inside one transaction, serialised on the order row.
func (s *Service) Transition(ctx context.Context, orderID int64, target Status, meta TransitionMeta) error {
	if orderID <= 0 {
		return fmt.Errorf("%w: invalid order id", shared.ErrValidation)
	}
	if !target.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrValidation, target)
	}
	if target == StatusCompleted {
		return s.complete(ctx, orderID, meta)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: order %d cannot go %s -> %s", shared.ErrInvalidTransition, orderID, order.Status, target)
		}
		// Cancellation before completion writes nothing to the ledger:
		// nothing was ever decremented.
		return tx.UpdateStatus(ctx, orderID, target, meta.ActorID)
	})
	if err != nil {
		return db.Classify(err)
	}

	s.recordActivity(ctx, meta.ActorID, "order:"+string(target), orderID, map[string]any{
		"note": meta.Note,
	})
	return nil
}

func (s *Service) complete(ctx context.Context, orderID int64, meta TransitionMeta) error {
	key := fmt.Sprintf("orders:%d:selesai", orderID)

	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, err = tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		// State check first: a repeated SELESAI request is an illegal
		// edge, not a conflict to retry.
		if !order.Status.CanTransitionTo(StatusCompleted) {
			return fmt.Errorf("%w: order %d cannot go %s -> %s", shared.ErrInvalidTransition, orderID, order.Status, StatusCompleted)
		}
		if len(order.Items) == 0 {
			return fmt.Errorf("%w: order %d has no items", shared.ErrValidation, orderID)
		}
		// The key rides this transaction: rollback discards it, so a
		// failed completion can always be retried.
		if err := tx.InsertIdempotencyKey(ctx, key, "orders"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return fmt.Errorf("%w: completion already recorded for order %d", shared.ErrConflict, orderID)
			}
			return err
		}
		now := time.Now().UTC()
		for _, item := range order.Items {
			product, err := s.catalog.ResolveVariant(ctx, item.Variant)
			if err != nil {
				return fmt.Errorf("order %d item %d: %w", orderID, item.ID, err)
			}
			movement := ledger.Movement{
				Code:       fmt.Sprintf("MV-%s", uuid.NewString()),
				ProductID:  product.ID,
				Type:       ledger.MovementOut,
				Qty:        item.Qty,
				Note:       fmt.Sprintf("order %d: %s x%d", orderID, item.Variant, item.Qty),
				OrderID:    orderID,
				ActorID:    meta.ActorID,
				RecordedAt: now,
			}
			if _, err := tx.InsertStockOut(ctx, movement); err != nil {
				return fmt.Errorf("order %d item %d: stock out: %w", orderID, item.ID, err)
			}
			increment := distribution.Increment{
				PangkalanID: order.PangkalanID,
				Date:        order.OrderDate,
				Variant:     product.VariantCode,
				Qty:         item.Qty,
				PaymentType: meta.PaymentType,
			}
			if err := tx.ApplyDistributionIncrement(ctx, increment); err != nil {
				return fmt.Errorf("order %d item %d: distribution: %w", orderID, item.ID, err)
			}
		}
		return tx.UpdateStatus(ctx, orderID, StatusCompleted, meta.ActorID)
	})
	if err != nil {
		return db.Classify(err)
	}

	if s.observer != nil {
		s.observer.OrderCompleted()
	}
	s.recordActivity(ctx, meta.ActorID, "order:"+string(StatusCompleted), orderID, map[string]any{
		"pangkalan_id": order.PangkalanID,
		"items":        len(order.Items),
		"payment_type": meta.PaymentType,
	})
	return nil
}

// UpdateItems replaces the item set of a non-terminal order and recomputes
// the total.
func (s *Service) UpdateItems(ctx context.Context, orderID int64, items []ItemRequest, actorID int64) error {
	if orderID <= 0 {
		return fmt.Errorf("%w: invalid order id", shared.ErrValidation)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item required", shared.ErrValidation)
	}
	resolved := make([]Item, 0, len(items))
	for _, itemReq := range items {
		if itemReq.Qty < 1 {
			return fmt.Errorf("%w: item qty must be >= 1", shared.ErrValidation)
		}
		if itemReq.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: unit price must be >= 0", shared.ErrValidation)
		}
		product, err := s.catalog.ResolveVariant(ctx, itemReq.Variant)
		if err != nil {
			return err
		}
		resolved = append(resolved, Item{
			OrderID:   orderID,
			Variant:   product.VariantCode,
			Qty:       itemReq.Qty,
			UnitPrice: itemReq.UnitPrice,
			Taxable:   itemReq.Taxable,
		})
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return fmt.Errorf("%w: items of a %s order are immutable", shared.ErrInvalidTransition, order.Status)
		}
		if err := tx.DeleteItems(ctx, orderID); err != nil {
			return err
		}
		for _, item := range resolved {
			if _, err := tx.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return tx.UpdateTotal(ctx, orderID, s.total(resolved))
	})
	if err != nil {
		return db.Classify(err)
	}

	s.recordActivity(ctx, actorID, "order:update_items", orderID, map[string]any{
		"items": len(resolved),
	})
	return nil
}

// RecordPayment updates the payment fields. Payments may still arrive for a
// SELESAI order; only cancelled orders reject them.
func (s *Service) RecordPayment(ctx context.Context, orderID int64, input PaymentInput) error {
	if orderID <= 0 {
		return fmt.Errorf("%w: invalid order id", shared.ErrValidation)
	}
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if input.AmountPaid.IsNegative() {
		return fmt.Errorf("%w: amount paid must be >= 0", shared.ErrValidation)
	}
	if input.IsPaid && input.IsDownPayment {
		return fmt.Errorf("%w: a down payment cannot mark the order fully paid", shared.ErrValidation)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == StatusCancelled {
			return fmt.Errorf("%w: order %d is cancelled", shared.ErrInvalidTransition, orderID)
		}
		return tx.UpdatePayment(ctx, orderID, input)
	})
	if err != nil {
		return db.Classify(err)
	}

	s.recordActivity(ctx, input.ActorID, "order:payment", orderID, map[string]any{
		"method":          input.Method,
		"amount_paid":     input.AmountPaid.String(),
		"is_down_payment": input.IsDownPayment,
	})
	return nil
}

// Get returns one order with its items.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	if id <= 0 {
		return Order{}, fmt.Errorf("%w: invalid order id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.List(ctx, req)
}

// total computes sum(qty * price * (1 + tax when taxable)).
func (s *Service) total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(item.Qty))
		if item.Taxable {
			line = line.Add(line.Mul(s.taxRate))
		}
		total = total.Add(line)
	}
	return total
}

func (s *Service) recordActivity(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.activity == nil {
		return
	}
	entry := shared.ActivityEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn("activity log write failed", slog.Any("error", err))
	}
}
