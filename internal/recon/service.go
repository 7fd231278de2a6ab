package recon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gasnusa/gasnusa/internal/distribution"
	"github.com/gasnusa/gasnusa/internal/ledger"
	"github.com/gasnusa/gasnusa/internal/platform/db"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// Repository reads the four totals and drives the resync transaction.
type Repository interface {
	PlannedTotal(ctx context.Context, rng shared.DateRange) (int64, error)
	DistributedTotal(ctx context.Context, rng shared.DateRange) (int64, error)
	OrderItemsTotal(ctx context.Context, rng shared.DateRange) (int64, error)
	StockOutTotal(ctx context.Context, rng shared.DateRange) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the transactional surface of a resync: clear the derived
// tables for the window, then replay each completed order line.
type TxRepository interface {
	ClearDistributionRange(ctx context.Context, rng shared.DateRange) error
	ClearOrderStockOut(ctx context.Context, rng shared.DateRange) error
	CompletedLines(ctx context.Context, rng shared.DateRange) ([]CompletedLine, error)
	InsertStockOut(ctx context.Context, m ledger.Movement) error
	ApplyDistributionIncrement(ctx context.Context, in distribution.Increment) error
}

// ReportCache stores recent sync reports keyed by window.
type ReportCache interface {
	Get(ctx context.Context, rng shared.DateRange) (SyncReport, bool, error)
	Set(ctx context.Context, report SyncReport) error
	Invalidate(ctx context.Context, rng shared.DateRange) error
}

// SyncObserver is notified after every completed check.
type SyncObserver interface {
	SyncChecked(inSync bool, drift int64)
}

// ActivityPort abstracts the business event log.
type ActivityPort interface {
	Record(ctx context.Context, entry shared.ActivityEntry) error
}

// Service verifies and repairs agreement between the planner, the
// distribution records, the order lines and the stock ledger.
type Service struct {
	repo     Repository
	cache    ReportCache
	activity ActivityPort
	observer SyncObserver
	logger   *slog.Logger
}

// NewService builds Service. cache, activity and observer may be nil.
func NewService(repo Repository, cache ReportCache, activity ActivityPort, observer SyncObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, activity: activity, observer: observer, logger: logger}
}

// CheckSync computes the four totals for the window and reports whether
// they agree. Diagnostic only: divergence is reported, never corrected
// here. A recent cached report for the same window is served as-is.
func (s *Service) CheckSync(ctx context.Context, rng shared.DateRange) (SyncReport, error) {
	return s.checkSync(ctx, rng, true)
}

// CheckSyncFresh recomputes the totals even when a report for the window
// is cached, then overwrites the cache. Completions never invalidate the
// report cache, so scheduled audits must not trust it.
func (s *Service) CheckSyncFresh(ctx context.Context, rng shared.DateRange) (SyncReport, error) {
	return s.checkSync(ctx, rng, false)
}

func (s *Service) checkSync(ctx context.Context, rng shared.DateRange, useCache bool) (SyncReport, error) {
	if err := rng.Validate(); err != nil {
		return SyncReport{}, err
	}
	if useCache && s.cache != nil {
		if report, ok, err := s.cache.Get(ctx, rng); err != nil {
			s.logger.Warn("sync report cache read failed", slog.Any("error", err))
		} else if ok {
			return report, nil
		}
	}

	report := SyncReport{Window: rng}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report.Planned, err = s.repo.PlannedTotal(gctx, rng)
		return err
	})
	g.Go(func() error {
		var err error
		report.Distributed, err = s.repo.DistributedTotal(gctx, rng)
		return err
	})
	g.Go(func() error {
		var err error
		report.OrderItemsTotal, err = s.repo.OrderItemsTotal(gctx, rng)
		return err
	})
	g.Go(func() error {
		var err error
		report.StockOutTotal, err = s.repo.StockOutTotal(gctx, rng)
		return err
	})
	if err := g.Wait(); err != nil {
		return SyncReport{}, db.Classify(err)
	}

	report.InSync = report.Planned == report.Distributed &&
		report.Distributed == report.OrderItemsTotal &&
		report.OrderItemsTotal == report.StockOutTotal
	report.CheckedAt = time.Now().UTC()

	if !report.InSync {
		s.logger.Warn("quantity totals diverged",
			slog.String("window", rng.String()),
			slog.Int64("planned", report.Planned),
			slog.Int64("distributed", report.Distributed),
			slog.Int64("order_items", report.OrderItemsTotal),
			slog.Int64("stock_out", report.StockOutTotal),
		)
	}
	if s.observer != nil {
		s.observer.SyncChecked(report.InSync, report.Drift())
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, report); err != nil {
			s.logger.Warn("sync report cache write failed", slog.Any("error", err))
		}
	}
	return report, nil
}

// Resync rebuilds the derived tables for the window from the Order source
// of truth: clear distribution records and order-linked stock OUT
// movements, then replay every completed order line. Idempotent; running
// it twice yields the same state.
func (s *Service) Resync(ctx context.Context, rng shared.DateRange, actorID int64) error {
	if err := rng.Validate(); err != nil {
		return err
	}

	var replayed int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClearDistributionRange(ctx, rng); err != nil {
			return fmt.Errorf("clear distribution records: %w", err)
		}
		if err := tx.ClearOrderStockOut(ctx, rng); err != nil {
			return fmt.Errorf("clear order stock movements: %w", err)
		}
		lines, err := tx.CompletedLines(ctx, rng)
		if err != nil {
			return fmt.Errorf("load completed lines: %w", err)
		}
		now := time.Now().UTC()
		for _, line := range lines {
			// A line whose variant no longer resolves must abort the
			// rebuild; dropping it would erase its stock movement.
			if line.ProductID <= 0 {
				return fmt.Errorf("%w: order %d variant %q has no catalog product", shared.ErrValidation, line.OrderID, line.Variant)
			}
			movement := ledger.Movement{
				Code:       fmt.Sprintf("MV-%s", uuid.NewString()),
				ProductID:  line.ProductID,
				Type:       ledger.MovementOut,
				Qty:        line.Qty,
				Note:       fmt.Sprintf("resync order %d: %s x%d", line.OrderID, line.Variant, line.Qty),
				OrderID:    line.OrderID,
				ActorID:    actorID,
				RecordedAt: now,
			}
			if err := tx.InsertStockOut(ctx, movement); err != nil {
				return fmt.Errorf("replay order %d stock out: %w", line.OrderID, err)
			}
			increment := distribution.Increment{
				PangkalanID: line.PangkalanID,
				Date:        line.OrderDate,
				Variant:     line.Variant,
				Qty:         line.Qty,
			}
			if err := tx.ApplyDistributionIncrement(ctx, increment); err != nil {
				return fmt.Errorf("replay order %d distribution: %w", line.OrderID, err)
			}
		}
		replayed = len(lines)
		return nil
	})
	if err != nil {
		return db.Classify(err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, rng); err != nil {
			s.logger.Warn("sync report cache invalidation failed", slog.Any("error", err))
		}
	}
	if s.activity != nil {
		entry := shared.ActivityEntry{
			ActorID:  actorID,
			Action:   "recon:resync",
			Entity:   "window",
			EntityID: rng.String(),
			Meta:     map[string]any{"lines_replayed": replayed},
		}
		if err := s.activity.Record(ctx, entry); err != nil {
			s.logger.Warn("activity log write failed", slog.Any("error", err))
		}
	}
	s.logger.Info("resync complete",
		slog.String("window", rng.String()),
		slog.Int("lines_replayed", replayed),
	)
	return nil
}
