package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasnusa/gasnusa/internal/recon"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// ReconCLI runs reconciliation checks directly against the database,
// bypassing the queue. Useful when Redis is down or during incident
// triage.
type ReconCLI struct {
	service *recon.Service
}

// NewReconCLI wires the checker to the provided pool.
func NewReconCLI(pool *pgxpool.Pool, logger *slog.Logger) *ReconCLI {
	repo := recon.NewRepository(pool)
	return &ReconCLI{service: recon.NewService(repo, nil, shared.NewActivityLogger(pool), nil, logger)}
}

// CheckSync computes the four totals for the window and renders a
// one-line verdict.
func (c *ReconCLI) CheckSync(ctx context.Context, rng shared.DateRange) (recon.SyncReport, error) {
	if c == nil || c.service == nil {
		return recon.SyncReport{}, errors.New("recon cli: not configured")
	}
	return c.service.CheckSync(ctx, rng)
}

// Resync rebuilds the derived tables for the window in-process.
func (c *ReconCLI) Resync(ctx context.Context, rng shared.DateRange, actorID int64) error {
	if c == nil || c.service == nil {
		return errors.New("recon cli: not configured")
	}
	return c.service.Resync(ctx, rng, actorID)
}

// RenderReport formats a SyncReport for terminal output.
func RenderReport(report recon.SyncReport) string {
	verdict := "IN SYNC"
	if !report.InSync {
		verdict = fmt.Sprintf("DRIFT (%d units)", report.Drift())
	}
	return fmt.Sprintf("%s  planned=%d distributed=%d order_items=%d stock_out=%d  %s",
		report.Window, report.Planned, report.Distributed, report.OrderItemsTotal, report.StockOutTotal, verdict)
}
