package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasnusa/gasnusa/internal/catalog"
	"github.com/gasnusa/gasnusa/internal/ledger"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// StockCLI records inward receipts and adjustments and reads balances.
// Outward movements are never recorded here: those only ever come from
// completed orders.
type StockCLI struct {
	ledger  *ledger.Service
	catalog *catalog.Service
}

// NewStockCLI wires the ledger against the pool.
func NewStockCLI(pool *pgxpool.Pool, logger *slog.Logger) *StockCLI {
	activity := shared.NewActivityLogger(pool)
	return &StockCLI{
		ledger:  ledger.NewService(ledger.NewRepository(pool), activity, logger),
		catalog: catalog.NewService(catalog.NewRepository(pool), logger, catalog.ServiceConfig{}),
	}
}

// RecordReceipt appends an IN movement for the given variant label.
func (c *StockCLI) RecordReceipt(ctx context.Context, variant string, qty int64, note string, actorID int64) (int64, error) {
	if c == nil {
		return 0, errors.New("stock cli: not configured")
	}
	product, err := c.catalog.ResolveVariant(ctx, variant)
	if err != nil {
		return 0, err
	}
	return c.ledger.RecordMovement(ctx, ledger.MovementInput{
		ProductID: product.ID,
		Type:      ledger.MovementIn,
		Qty:       qty,
		Note:      note,
		ActorID:   actorID,
	})
}

// RecordAdjustment appends a signed ADJUSTMENT movement after a physical
// count.
func (c *StockCLI) RecordAdjustment(ctx context.Context, variant string, delta int64, note string, actorID int64) (int64, error) {
	if c == nil {
		return 0, errors.New("stock cli: not configured")
	}
	product, err := c.catalog.ResolveVariant(ctx, variant)
	if err != nil {
		return 0, err
	}
	return c.ledger.RecordMovement(ctx, ledger.MovementInput{
		ProductID: product.ID,
		Type:      ledger.MovementAdjustment,
		Qty:       delta,
		Note:      note,
		ActorID:   actorID,
	})
}

// Balance reports the current stock of the variant.
func (c *StockCLI) Balance(ctx context.Context, variant string) (int64, error) {
	if c == nil {
		return 0, errors.New("stock cli: not configured")
	}
	product, err := c.catalog.ResolveVariant(ctx, variant)
	if err != nil {
		return 0, err
	}
	return c.ledger.CurrentBalance(ctx, product.ID)
}
