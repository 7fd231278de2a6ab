package recon

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gasnusa/gasnusa/internal/distribution"
	"github.com/gasnusa/gasnusa/internal/ledger"
	"github.com/gasnusa/gasnusa/internal/shared"
)

type memoryRepo struct {
	planned     int64
	lines       []CompletedLine
	movements   []ledger.Movement
	increments  map[string]int64
	plannedErr  error
	stockOutErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{increments: map[string]int64{}}
}

func incrementKey(pangkalanID int64, date time.Time, variant string) string {
	return fmt.Sprintf("%d#%s#%s", pangkalanID, date.Format("2006-01-02"), variant)
}

func (r *memoryRepo) PlannedTotal(ctx context.Context, rng shared.DateRange) (int64, error) {
	return r.planned, r.plannedErr
}

func (r *memoryRepo) DistributedTotal(ctx context.Context, rng shared.DateRange) (int64, error) {
	var total int64
	for _, v := range r.increments {
		total += v
	}
	return total, nil
}

func (r *memoryRepo) OrderItemsTotal(ctx context.Context, rng shared.DateRange) (int64, error) {
	var total int64
	for _, line := range r.lines {
		if rng.Contains(line.OrderDate) {
			total += line.Qty
		}
	}
	return total, nil
}

func (r *memoryRepo) StockOutTotal(ctx context.Context, rng shared.DateRange) (int64, error) {
	if r.stockOutErr != nil {
		return 0, r.stockOutErr
	}
	var total int64
	for _, m := range r.movements {
		total += m.Qty
	}
	return total, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) ClearDistributionRange(ctx context.Context, rng shared.DateRange) error {
	t.repo.increments = map[string]int64{}
	return nil
}

func (t *memoryTx) ClearOrderStockOut(ctx context.Context, rng shared.DateRange) error {
	t.repo.movements = nil
	return nil
}

func (t *memoryTx) CompletedLines(ctx context.Context, rng shared.DateRange) ([]CompletedLine, error) {
	var lines []CompletedLine
	for _, line := range t.repo.lines {
		if rng.Contains(line.OrderDate) {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (t *memoryTx) InsertStockOut(ctx context.Context, m ledger.Movement) error {
	t.repo.movements = append(t.repo.movements, m)
	return nil
}

func (t *memoryTx) ApplyDistributionIncrement(ctx context.Context, in distribution.Increment) error {
	t.repo.increments[incrementKey(in.PangkalanID, in.Date, in.Variant)] += in.Qty
	return nil
}

type recordingObserver struct {
	checks int
	inSync bool
	drift  int64
}

func (o *recordingObserver) SyncChecked(inSync bool, drift int64) {
	o.checks++
	o.inSync = inSync
	o.drift = drift
}

func window() shared.DateRange {
	return shared.NewDateRange(
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	)
}

func seedAgreeing(repo *memoryRepo) {
	day := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	repo.planned = 15
	repo.lines = []CompletedLine{
		{OrderID: 1, PangkalanID: 1, OrderDate: day, ProductID: 101, Variant: "kg3", Qty: 10},
		{OrderID: 2, PangkalanID: 1, OrderDate: day, ProductID: 102, Variant: "kg12", Qty: 5},
	}
	repo.movements = []ledger.Movement{
		{ProductID: 101, Type: ledger.MovementOut, Qty: 10, OrderID: 1},
		{ProductID: 102, Type: ledger.MovementOut, Qty: 5, OrderID: 2},
	}
	repo.increments[incrementKey(1, day, "kg3")] = 10
	repo.increments[incrementKey(1, day, "kg12")] = 5
}

func TestCheckSyncAgreement(t *testing.T) {
	repo := newMemoryRepo()
	seedAgreeing(repo)
	observer := &recordingObserver{}
	svc := NewService(repo, nil, nil, observer, nil)

	report, err := svc.CheckSync(context.Background(), window())
	require.NoError(t, err)
	require.True(t, report.InSync)
	require.Equal(t, int64(15), report.Planned)
	require.Equal(t, int64(15), report.Distributed)
	require.Equal(t, int64(15), report.OrderItemsTotal)
	require.Equal(t, int64(15), report.StockOutTotal)
	require.Equal(t, int64(0), report.Drift())
	require.Equal(t, 1, observer.checks)
	require.True(t, observer.inSync)
}

func TestCheckSyncReportsDivergence(t *testing.T) {
	repo := newMemoryRepo()
	seedAgreeing(repo)
	// A manual edit bypassed the order flow.
	repo.increments[incrementKey(1, time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC), "kg3")] = 4
	observer := &recordingObserver{}
	svc := NewService(repo, nil, nil, observer, nil)

	report, err := svc.CheckSync(context.Background(), window())
	require.NoError(t, err)
	require.False(t, report.InSync)
	require.Equal(t, int64(19), report.Distributed)
	require.Equal(t, int64(4), report.Drift())
	require.False(t, observer.inSync)
	require.Equal(t, int64(4), observer.drift)
}

func TestCheckSyncPropagatesQueryFailure(t *testing.T) {
	repo := newMemoryRepo()
	seedAgreeing(repo)
	repo.stockOutErr = errors.New("connection reset")
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.CheckSync(context.Background(), window())
	require.ErrorIs(t, err, shared.ErrPersistence)
}

func TestCheckSyncRejectsInvertedWindow(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil, nil)
	_, err := svc.CheckSync(context.Background(), shared.DateRange{
		From: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestResyncRebuildsDerivedTables(t *testing.T) {
	repo := newMemoryRepo()
	seedAgreeing(repo)
	// Corrupt both derived tables.
	repo.increments[incrementKey(1, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), "kg3")] = 99
	repo.movements = append(repo.movements, ledger.Movement{ProductID: 101, Type: ledger.MovementOut, Qty: 7, OrderID: 1})
	svc := NewService(repo, nil, nil, nil, nil)

	require.NoError(t, svc.Resync(context.Background(), window(), 7))

	report, err := svc.CheckSync(context.Background(), window())
	require.NoError(t, err)
	require.True(t, report.InSync, "derived tables must match the order source of truth again")
	require.Equal(t, int64(15), report.Distributed)
	require.Equal(t, int64(15), report.StockOutTotal)

	// Idempotent: replaying twice yields the same state.
	require.NoError(t, svc.Resync(context.Background(), window(), 7))
	report, err = svc.CheckSync(context.Background(), window())
	require.NoError(t, err)
	require.True(t, report.InSync)
}

func TestRedisReportCacheRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewRedisReportCache(client, time.Minute)
	ctx := context.Background()

	rng := window()
	_, ok, err := cache.Get(ctx, rng)
	require.NoError(t, err)
	require.False(t, ok)

	report := SyncReport{
		Window:          rng,
		Planned:         15,
		Distributed:     15,
		OrderItemsTotal: 15,
		StockOutTotal:   15,
		InSync:          true,
		CheckedAt:       time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, cache.Set(ctx, report))

	got, ok, err := cache.Get(ctx, rng)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.InSync)
	require.Equal(t, report.Planned, got.Planned)

	require.NoError(t, cache.Invalidate(ctx, rng))
	_, ok, err = cache.Get(ctx, rng)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCheckSyncServesCachedReport(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewRedisReportCache(client, time.Minute)

	repo := newMemoryRepo()
	seedAgreeing(repo)
	svc := NewService(repo, cache, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.CheckSync(ctx, window())
	require.NoError(t, err)
	require.True(t, first.InSync)

	// Mutate the store; the cached report masks it until the TTL expires
	// or a resync invalidates the window.
	repo.planned = 999
	second, err := svc.CheckSync(ctx, window())
	require.NoError(t, err)
	require.True(t, second.InSync)
	require.Equal(t, int64(15), second.Planned)
}

func TestCheckSyncFreshBypassesCachedReport(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewRedisReportCache(client, time.Minute)

	repo := newMemoryRepo()
	seedAgreeing(repo)
	svc := NewService(repo, cache, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.CheckSync(ctx, window())
	require.NoError(t, err)
	require.True(t, first.InSync)

	// Drift appearing after the report was cached must still be visible
	// to the scheduled audit.
	repo.planned = 999
	fresh, err := svc.CheckSyncFresh(ctx, window())
	require.NoError(t, err)
	require.False(t, fresh.InSync)
	require.Equal(t, int64(999), fresh.Planned)

	// The fresh run overwrites the stale cached report.
	cached, err := svc.CheckSync(ctx, window())
	require.NoError(t, err)
	require.False(t, cached.InSync)
	require.Equal(t, int64(999), cached.Planned)
}

type capturingActivity struct {
	entries []shared.ActivityEntry
}

func (a *capturingActivity) Record(ctx context.Context, entry shared.ActivityEntry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func TestResyncRecordsActivity(t *testing.T) {
	repo := newMemoryRepo()
	seedAgreeing(repo)
	activity := &capturingActivity{}
	svc := NewService(repo, nil, activity, nil, nil)

	require.NoError(t, svc.Resync(context.Background(), window(), 7))

	require.Len(t, activity.entries, 1)
	entry := activity.entries[0]
	require.Equal(t, "recon:resync", entry.Action)
	require.Equal(t, "window", entry.Entity)
	require.Equal(t, window().String(), entry.EntityID)
	require.Equal(t, int64(7), entry.ActorID)
	require.Equal(t, 2, entry.Meta["lines_replayed"])
}

func TestResyncRejectsUnresolvedVariant(t *testing.T) {
	repo := newMemoryRepo()
	seedAgreeing(repo)
	// A line whose variant lost its catalog product must abort the
	// rebuild instead of vanishing from the replay.
	repo.lines = append(repo.lines, CompletedLine{
		OrderID: 3, PangkalanID: 1,
		OrderDate: time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC),
		Variant:   "kg7", Qty: 2,
	})
	svc := NewService(repo, nil, nil, nil, nil)

	err := svc.Resync(context.Background(), window(), 7)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.ErrorContains(t, err, "kg7")
}
