package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/gasnusa/gasnusa/internal/distribution"
	"github.com/gasnusa/gasnusa/internal/ledger"
)

// Repository abstracts order persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, req ListRequest) ([]Order, error)
}

// TxRepository exposes the operations available inside one transaction.
// Completion uses the stock and distribution writes so all side effects
// commit or roll back together with the status flip.
type TxRepository interface {
	Insert(ctx context.Context, order Order) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	DeleteItems(ctx context.Context, orderID int64) error
	// GetForUpdate locks the order row for the duration of the
	// transaction; concurrent transitions serialise on it.
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status, actorID int64) error
	UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error
	UpdatePayment(ctx context.Context, id int64, p PaymentInput) error
	InsertStockOut(ctx context.Context, m ledger.Movement) (int64, error)
	ApplyDistributionIncrement(ctx context.Context, in distribution.Increment) error
	// InsertIdempotencyKey records the completion guard key inside this
	// transaction; the key never outlives a rolled-back completion.
	InsertIdempotencyKey(ctx context.Context, key, module string) error
}
