package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasnusa/gasnusa/internal/app"
	"github.com/gasnusa/gasnusa/internal/catalog"
	"github.com/gasnusa/gasnusa/internal/orders"
	"github.com/gasnusa/gasnusa/internal/pangkalan"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// OrdersCLI drives order transitions from the terminal, mainly for
// unblocking stuck orders during incidents.
type OrdersCLI struct {
	svc *orders.Service
}

// NewOrdersCLI wires the full order engine against the pool.
func NewOrdersCLI(pool *pgxpool.Pool, cfg *app.Config, logger *slog.Logger) *OrdersCLI {
	catalogSvc := catalog.NewService(catalog.NewRepository(pool), logger,
		catalog.ServiceConfig{VariantFallback: cfg.VariantFallback})
	pangkalanSvc := pangkalan.NewService(pangkalan.NewRepository(pool))
	svc := orders.NewService(
		orders.NewRepository(pool),
		catalogSvc,
		pangkalanSvc,
		shared.NewActivityLogger(pool),
		nil,
		orders.ServiceConfig{TaxRate: cfg.TaxRate},
		logger,
	)
	return &OrdersCLI{svc: svc}
}

// Show returns the order with its items.
func (c *OrdersCLI) Show(ctx context.Context, id int64) (orders.Order, error) {
	if c == nil || c.svc == nil {
		return orders.Order{}, errors.New("orders cli: not configured")
	}
	return c.svc.Get(ctx, id)
}

// Transition moves the order to the target status.
func (c *OrdersCLI) Transition(ctx context.Context, id int64, target string, actorID int64, paymentType string) error {
	if c == nil || c.svc == nil {
		return errors.New("orders cli: not configured")
	}
	return c.svc.Transition(ctx, id, orders.Status(target), orders.TransitionMeta{
		ActorID:     actorID,
		PaymentType: paymentType,
		Note:        "manual transition via ops cli",
	})
}

// RenderOrder formats an order for terminal output.
func RenderOrder(o orders.Order) string {
	out := fmt.Sprintf("order %d  pangkalan=%d status=%s date=%s total=%s paid=%t\n",
		o.ID, o.PangkalanID, o.Status, o.OrderDate.Format("2006-01-02"), o.TotalAmount, o.IsPaid)
	for _, item := range o.Items {
		out += fmt.Sprintf("  %-6s x%-4d @ %s\n", item.Variant, item.Qty, item.UnitPrice)
	}
	return out
}
