package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gasnusa/gasnusa/internal/catalog"
	"github.com/gasnusa/gasnusa/internal/distribution"
	"github.com/gasnusa/gasnusa/internal/ledger"
	"github.com/gasnusa/gasnusa/internal/pangkalan"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// memoryState is the durable store the fake repository commits into.
type memoryState struct {
	orders     map[int64]Order
	movements  []ledger.Movement
	increments map[string]int64
	keys       map[string]bool
	nextOrder  int64
	nextItem   int64
	nextMove   int64
}

func cloneState(s *memoryState) *memoryState {
	clone := &memoryState{
		orders:     make(map[int64]Order, len(s.orders)),
		movements:  append([]ledger.Movement(nil), s.movements...),
		increments: make(map[string]int64, len(s.increments)),
		keys:       make(map[string]bool, len(s.keys)),
		nextOrder:  s.nextOrder,
		nextItem:   s.nextItem,
		nextMove:   s.nextMove,
	}
	for id, order := range s.orders {
		order.Items = append([]Item(nil), order.Items...)
		clone.orders[id] = order
	}
	for k, v := range s.increments {
		clone.increments[k] = v
	}
	for k := range s.keys {
		clone.keys[k] = true
	}
	return clone
}

// memoryRepo applies writes to a staged copy and swaps it in on success, so
// a failed callback leaves the durable state untouched.
type memoryRepo struct {
	state *memoryState

	failStockOutAt int // 1-based call index to fail at, 0 = never
	stockOutCalls  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		orders:     make(map[int64]Order),
		increments: make(map[string]int64),
		keys:       make(map[string]bool),
	}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := cloneState(r.state)
	tx := &memoryTx{repo: r, state: staged}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = staged
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Order, error) {
	order, ok := r.state.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return order, nil
}

func (r *memoryRepo) List(ctx context.Context, req ListRequest) ([]Order, error) {
	result := []Order{}
	for _, order := range r.state.orders {
		result = append(result, order)
	}
	return result, nil
}

type memoryTx struct {
	repo  *memoryRepo
	state *memoryState
}

func (t *memoryTx) Insert(ctx context.Context, order Order) (int64, error) {
	t.state.nextOrder++
	order.ID = t.state.nextOrder
	t.state.orders[order.ID] = order
	return order.ID, nil
}

func (t *memoryTx) InsertItem(ctx context.Context, item Item) (int64, error) {
	t.state.nextItem++
	item.ID = t.state.nextItem
	order, ok := t.state.orders[item.OrderID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	order.Items = append(order.Items, item)
	t.state.orders[item.OrderID] = order
	return item.ID, nil
}

func (t *memoryTx) DeleteItems(ctx context.Context, orderID int64) error {
	order, ok := t.state.orders[orderID]
	if !ok {
		return shared.ErrNotFound
	}
	order.Items = nil
	t.state.orders[orderID] = order
	return nil
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	order, ok := t.state.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return order, nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, id int64, status Status, actorID int64) error {
	order, ok := t.state.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	order.Status = status
	t.state.orders[id] = order
	return nil
}

func (t *memoryTx) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	order, ok := t.state.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	order.TotalAmount = total
	t.state.orders[id] = order
	return nil
}

func (t *memoryTx) UpdatePayment(ctx context.Context, id int64, p PaymentInput) error {
	order, ok := t.state.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	order.IsPaid = p.IsPaid
	order.IsDownPayment = p.IsDownPayment
	order.PaymentMethod = p.Method
	order.AmountPaid = p.AmountPaid
	t.state.orders[id] = order
	return nil
}

func (t *memoryTx) InsertStockOut(ctx context.Context, m ledger.Movement) (int64, error) {
	t.repo.stockOutCalls++
	if t.repo.failStockOutAt > 0 && t.repo.stockOutCalls == t.repo.failStockOutAt {
		return 0, errors.New("simulated storage fault")
	}
	t.state.nextMove++
	m.ID = t.state.nextMove
	t.state.movements = append(t.state.movements, m)
	return m.ID, nil
}

func (t *memoryTx) ApplyDistributionIncrement(ctx context.Context, in distribution.Increment) error {
	key := fmt.Sprintf("%d#%s#%s", in.PangkalanID, in.Date.Format("2006-01-02"), in.Variant)
	t.state.increments[key] += in.Qty
	return nil
}

func (t *memoryTx) InsertIdempotencyKey(ctx context.Context, key, module string) error {
	if t.state.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	t.state.keys[key] = true
	return nil
}

type stubCatalog struct {
	products map[string]catalog.Product
}

func (c *stubCatalog) ResolveVariant(ctx context.Context, label string) (catalog.Product, error) {
	code, ok := catalog.CanonicalVariant(label)
	if !ok {
		return catalog.Product{}, fmt.Errorf("%w: unknown LPG variant %q", shared.ErrValidation, label)
	}
	p, ok := c.products[code]
	if !ok {
		return catalog.Product{}, shared.ErrNotFound
	}
	return p, nil
}

type stubPoints struct {
	points map[int64]pangkalan.Pangkalan
}

func (p *stubPoints) Get(ctx context.Context, id int64) (pangkalan.Pangkalan, error) {
	point, ok := p.points[id]
	if !ok {
		return pangkalan.Pangkalan{}, shared.ErrNotFound
	}
	return point, nil
}

type countObserver struct {
	completed int
}

func (o *countObserver) OrderCompleted() { o.completed++ }

func fixture(t *testing.T) (*Service, *memoryRepo, *countObserver) {
	t.Helper()
	repo := newMemoryRepo()
	cat := &stubCatalog{products: map[string]catalog.Product{
		catalog.VariantKg3:  {ID: 101, VariantCode: catalog.VariantKg3, Name: "LPG 3kg", SizeKg: 3, Category: catalog.CategorySubsidized},
		catalog.VariantKg12: {ID: 102, VariantCode: catalog.VariantKg12, Name: "LPG 12kg", SizeKg: 12, Category: catalog.CategoryNonSubsidized},
	}}
	points := &stubPoints{points: map[int64]pangkalan.Pangkalan{
		1: {ID: 1, Code: "PKL-001", Name: "Pangkalan Satu", IsActive: true},
		2: {ID: 2, Code: "PKL-002", Name: "Pangkalan Dua", IsActive: false},
	}}
	observer := &countObserver{}
	svc := NewService(repo, cat, points, nil, observer, ServiceConfig{TaxRate: 0.11}, nil)
	return svc, repo, observer
}

func orderDate() time.Time {
	return time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
}

func createTestOrder(t *testing.T, svc *Service) int64 {
	t.Helper()
	id, err := svc.Create(context.Background(), CreateOrderRequest{
		PangkalanID: 1,
		OrderDate:   orderDate(),
		Items: []ItemRequest{
			{Variant: "kg3", Qty: 10, UnitPrice: decimal.NewFromInt(18000)},
			{Variant: "12kg", Qty: 5, UnitPrice: decimal.NewFromInt(180000)},
		},
	}, 7)
	require.NoError(t, err)
	return id
}

func advanceTo(t *testing.T, svc *Service, id int64, statuses ...Status) {
	t.Helper()
	for _, status := range statuses {
		require.NoError(t, svc.Transition(context.Background(), id, status, TransitionMeta{ActorID: 7, PaymentType: "CASH"}))
	}
}

func TestCreateComputesTotal(t *testing.T) {
	svc, repo, _ := fixture(t)
	id := createTestOrder(t, svc)

	order, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, order.Status)
	require.True(t, decimal.NewFromInt(1080000).Equal(order.TotalAmount))
	require.Len(t, order.Items, 2)
	// Legacy spelling normalised at the boundary.
	require.Equal(t, "kg12", order.Items[1].Variant)
}

func TestCreateAppliesTaxToTaxableLines(t *testing.T) {
	svc, repo, _ := fixture(t)
	id, err := svc.Create(context.Background(), CreateOrderRequest{
		PangkalanID: 1,
		OrderDate:   orderDate(),
		Items: []ItemRequest{
			{Variant: "kg12", Qty: 2, UnitPrice: decimal.NewFromInt(100000), Taxable: true},
		},
	}, 7)
	require.NoError(t, err)

	order, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(222000).Equal(order.TotalAmount), "got %s", order.TotalAmount)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()
	base := CreateOrderRequest{
		PangkalanID: 1,
		OrderDate:   orderDate(),
		Items:       []ItemRequest{{Variant: "kg3", Qty: 1, UnitPrice: decimal.NewFromInt(18000)}},
	}

	noItems := base
	noItems.Items = nil
	_, err := svc.Create(ctx, noItems, 7)
	require.ErrorIs(t, err, shared.ErrValidation)

	zeroQty := base
	zeroQty.Items = []ItemRequest{{Variant: "kg3", Qty: 0, UnitPrice: decimal.NewFromInt(18000)}}
	_, err = svc.Create(ctx, zeroQty, 7)
	require.ErrorIs(t, err, shared.ErrValidation)

	negativePrice := base
	negativePrice.Items = []ItemRequest{{Variant: "kg3", Qty: 1, UnitPrice: decimal.NewFromInt(-1)}}
	_, err = svc.Create(ctx, negativePrice, 7)
	require.ErrorIs(t, err, shared.ErrValidation)

	unknownVariant := base
	unknownVariant.Items = []ItemRequest{{Variant: "7kg", Qty: 1, UnitPrice: decimal.NewFromInt(18000)}}
	_, err = svc.Create(ctx, unknownVariant, 7)
	require.ErrorIs(t, err, shared.ErrValidation)

	inactivePoint := base
	inactivePoint.PangkalanID = 2
	_, err = svc.Create(ctx, inactivePoint, 7)
	require.ErrorIs(t, err, shared.ErrValidation)

	missingPoint := base
	missingPoint.PangkalanID = 99
	_, err = svc.Create(ctx, missingPoint, 7)
	require.Error(t, err)
}

func TestCompletionEmitsLedgerAndDistribution(t *testing.T) {
	svc, repo, observer := fixture(t)
	id := createTestOrder(t, svc)
	advanceTo(t, svc, id, StatusAwaitingPayment, StatusProcessing, StatusCompleted)

	order, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, order.Status)

	require.Len(t, repo.state.movements, 2)
	byProduct := map[int64]int64{}
	for _, m := range repo.state.movements {
		require.Equal(t, ledger.MovementOut, m.Type)
		require.Equal(t, id, m.OrderID)
		byProduct[m.ProductID] = m.Qty
	}
	require.Equal(t, int64(10), byProduct[101])
	require.Equal(t, int64(5), byProduct[102])

	require.Equal(t, int64(10), repo.state.increments["1#2026-08-10#kg3"])
	require.Equal(t, int64(5), repo.state.increments["1#2026-08-10#kg12"])
	require.Equal(t, 1, observer.completed)
}

func TestTransitionTableRejectsIllegalEdges(t *testing.T) {
	all := []Status{StatusDraft, StatusAwaitingPayment, StatusProcessing, StatusCompleted, StatusCancelled}
	allowed := map[Status]map[Status]bool{
		StatusDraft:           {StatusAwaitingPayment: true, StatusCancelled: true},
		StatusAwaitingPayment: {StatusProcessing: true, StatusCancelled: true},
		StatusProcessing:      {StatusCompleted: true, StatusCancelled: true},
		StatusCompleted:       {},
		StatusCancelled:       {},
	}
	for _, from := range all {
		for _, to := range all {
			require.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestCompletionRequiresProcessing(t *testing.T) {
	svc, repo, _ := fixture(t)
	id := createTestOrder(t, svc)

	err := svc.Transition(context.Background(), id, StatusCompleted, TransitionMeta{ActorID: 7})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.Empty(t, repo.state.movements)

	order, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, order.Status)
}

func TestCancelBeforeCompletionWritesNothing(t *testing.T) {
	svc, repo, _ := fixture(t)
	id := createTestOrder(t, svc)
	advanceTo(t, svc, id, StatusAwaitingPayment)

	require.NoError(t, svc.Transition(context.Background(), id, StatusCancelled, TransitionMeta{ActorID: 7, Note: "customer backed out"}))

	order, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, order.Status)
	require.Empty(t, repo.state.movements)
	require.Empty(t, repo.state.increments)
}

func TestCancelAfterCompletionUnsupported(t *testing.T) {
	svc, _, _ := fixture(t)
	id := createTestOrder(t, svc)
	advanceTo(t, svc, id, StatusAwaitingPayment, StatusProcessing, StatusCompleted)

	err := svc.Transition(context.Background(), id, StatusCancelled, TransitionMeta{ActorID: 7})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCompletionAtomicUnderFault(t *testing.T) {
	svc, repo, observer := fixture(t)
	id := createTestOrder(t, svc)
	advanceTo(t, svc, id, StatusAwaitingPayment, StatusProcessing)

	// Fail after the first of two item movements has been written.
	repo.failStockOutAt = 2
	err := svc.Transition(context.Background(), id, StatusCompleted, TransitionMeta{ActorID: 7, PaymentType: "CASH"})
	require.ErrorIs(t, err, shared.ErrPersistence)

	require.Empty(t, repo.state.movements, "no partial ledger rows may survive")
	require.Empty(t, repo.state.increments)
	require.Empty(t, repo.state.keys, "a rolled-back completion leaves no guard key")
	order, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, order.Status)
	require.Equal(t, 0, observer.completed)

	// The order stayed in its pre-transition state and is safe to retry.
	repo.failStockOutAt = 0
	require.NoError(t, svc.Transition(context.Background(), id, StatusCompleted, TransitionMeta{ActorID: 7, PaymentType: "CASH"}))
	require.Len(t, repo.state.movements, 2)
	require.Equal(t, 1, observer.completed)
}

func TestDoubleCompletionIsIllegalTransition(t *testing.T) {
	svc, repo, observer := fixture(t)
	id := createTestOrder(t, svc)
	advanceTo(t, svc, id, StatusAwaitingPayment, StatusProcessing, StatusCompleted)

	// SELESAI -> SELESAI is outside the edge set, same as any other
	// illegal pair. A retry could never succeed, so this must not look
	// like a transient conflict.
	err := svc.Transition(context.Background(), id, StatusCompleted, TransitionMeta{ActorID: 7})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.NotErrorIs(t, err, shared.ErrConflict)
	require.Len(t, repo.state.movements, 2, "no duplicate emissions")
	require.Equal(t, 1, observer.completed)
}

func TestCompletionGuardKeyBlocksReplay(t *testing.T) {
	svc, repo, observer := fixture(t)
	id := createTestOrder(t, svc)
	advanceTo(t, svc, id, StatusAwaitingPayment, StatusProcessing, StatusCompleted)

	// Simulate a replay after the status was reset out of band: the
	// committed guard key must still block a second emission.
	order := repo.state.orders[id]
	order.Status = StatusProcessing
	repo.state.orders[id] = order

	err := svc.Transition(context.Background(), id, StatusCompleted, TransitionMeta{ActorID: 7, PaymentType: "CASH"})
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Len(t, repo.state.movements, 2, "side effects emitted once")
	require.Equal(t, 1, observer.completed)
}

func TestUpdateItemsRecomputesTotal(t *testing.T) {
	svc, repo, _ := fixture(t)
	id := createTestOrder(t, svc)

	err := svc.UpdateItems(context.Background(), id, []ItemRequest{
		{Variant: "kg3", Qty: 3, UnitPrice: decimal.NewFromInt(20000)},
	}, 7)
	require.NoError(t, err)

	order, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	require.True(t, decimal.NewFromInt(60000).Equal(order.TotalAmount))
}

func TestItemsImmutableAfterCompletion(t *testing.T) {
	svc, repo, _ := fixture(t)
	id := createTestOrder(t, svc)
	advanceTo(t, svc, id, StatusAwaitingPayment, StatusProcessing, StatusCompleted)

	err := svc.UpdateItems(context.Background(), id, []ItemRequest{
		{Variant: "kg3", Qty: 1, UnitPrice: decimal.NewFromInt(18000)},
	}, 7)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	order, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
}

func TestRecordPayment(t *testing.T) {
	svc, repo, _ := fixture(t)
	id := createTestOrder(t, svc)

	err := svc.RecordPayment(context.Background(), id, PaymentInput{
		IsDownPayment: true,
		Method:        "TRANSFER",
		AmountPaid:    decimal.NewFromInt(500000),
		ActorID:       7,
	})
	require.NoError(t, err)

	order, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, order.IsDownPayment)
	require.False(t, order.IsPaid)
	require.Equal(t, "TRANSFER", order.PaymentMethod)

	err = svc.RecordPayment(context.Background(), id, PaymentInput{
		IsPaid:        true,
		IsDownPayment: true,
		Method:        "TRANSFER",
		AmountPaid:    decimal.NewFromInt(500000),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordPaymentRejectedForCancelledOrder(t *testing.T) {
	svc, _, _ := fixture(t)
	id := createTestOrder(t, svc)
	advanceTo(t, svc, id, StatusCancelled)

	err := svc.RecordPayment(context.Background(), id, PaymentInput{
		Method:     "CASH",
		AmountPaid: decimal.NewFromInt(1000),
	})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}
