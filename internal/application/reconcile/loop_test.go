package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alejandrodnm/autotrade/internal/application/reconcile"
	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	results []*domain.CycleResult
	errs    []error
	calls   int
	onRun   func(call int)
}

func (r *scriptedRunner) RunOnce(context.Context) (*domain.CycleResult, error) {
	i := r.calls
	r.calls++
	if r.onRun != nil {
		r.onRun(r.calls)
	}
	var err error
	if i < len(r.errs) {
		err = r.errs[i]
	}
	if i < len(r.results) {
		return r.results[i], err
	}
	return &domain.CycleResult{Stages: map[domain.TradeStage]int{}}, err
}

func TestLoop_OncePersistsAndReports(t *testing.T) {
	m := newFakeMarket(sale("901", 5, 100, "Widget"))
	n := &fakeNetwork{inventory: inventory(100)}
	processed := domain.NewProcessedSet([]string{"stale"})
	engine := reconcile.NewEngine(testConfig(), m, n, processed)

	store := &fakeProcessedStore{}
	history := &fakeHistory{}
	notifier := &fakeNotifier{}

	loop := reconcile.NewLoop(reconcile.LoopConfig{Once: true}, engine, processed, store, history, notifier)
	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, []string{"901"}, store.last, "stale ids pruned, handled ids added")
	require.Len(t, history.cycles, 1)
	require.Len(t, notifier.results, 1)
	assert.Equal(t, 1, notifier.results[0].OffersCreated)
	assert.Same(t, history.cycles[0], notifier.results[0])
}

func TestLoop_FailedCycleStillReportsAndKeepsProcessed(t *testing.T) {
	processed := domain.NewProcessedSet([]string{"901"})
	runner := &scriptedRunner{
		results: []*domain.CycleResult{{Skipped: reconcile.SkipFetchFailed}},
		errs:    []error{errors.New("boom")},
	}
	store := &fakeProcessedStore{}
	notifier := &fakeNotifier{}

	loop := reconcile.NewLoop(reconcile.LoopConfig{Once: true}, runner, processed, store, nil, notifier)
	require.NoError(t, loop.Run(context.Background()))

	assert.True(t, processed.Has("901"), "queue not seen, nothing pruned")
	assert.Zero(t, store.saves)
	assert.Len(t, notifier.results, 1)
}

func TestLoop_NoActionableCounterKeepsProcessed(t *testing.T) {
	m := newFakeMarket(sale("901", 5, 100, "Widget"))
	m.counter = 0
	n := &fakeNetwork{inventory: inventory(100)}
	processed := domain.NewProcessedSet([]string{"901"})
	engine := reconcile.NewEngine(testConfig(), m, n, processed)
	store := &fakeProcessedStore{}

	loop := reconcile.NewLoop(reconcile.LoopConfig{Once: true}, engine, processed, store, nil, nil)
	require.NoError(t, loop.Run(context.Background()))

	assert.Zero(t, m.fetchCalls)
	assert.True(t, processed.Has("901"), "an unread queue prunes nothing")
	assert.Zero(t, store.saves)
}

func TestLoop_ExpiredSessionIsRestoredAndCycleRepeated(t *testing.T) {
	m := newFakeMarket(sale("901", 5, 100, "Widget"))
	n := &fakeNetwork{inventory: inventory(100), expired: true}
	processed := domain.NewProcessedSet(nil)
	engine := reconcile.NewEngine(testConfig(), m, n, processed)
	history := &fakeHistory{}

	loop := reconcile.NewLoop(reconcile.LoopConfig{Once: true}, engine, processed, nil, history, nil)
	loop.SetSession(n)
	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, 1, n.sessionCalls)
	require.Len(t, history.cycles, 2)
	assert.True(t, history.cycles[0].SessionLost)
	assert.Equal(t, reconcile.SkipOffersFailed, history.cycles[0].Skipped)
	assert.False(t, history.cycles[1].SessionLost)
	assert.Equal(t, 1, history.cycles[1].OffersCreated)
	require.Len(t, n.created, 1)
	assert.Equal(t, []uint64{100}, createdAssets(n.created[0]))
}

func TestLoop_LostSessionWithoutKeeperWaitsForNextCycle(t *testing.T) {
	runner := &scriptedRunner{
		results: []*domain.CycleResult{{Skipped: reconcile.SkipOffersFailed, SessionLost: true}},
		errs:    []error{fmt.Errorf("reconcile.RunOnce: %w", domain.ErrNotLoggedIn)},
	}
	loop := reconcile.NewLoop(reconcile.LoopConfig{Once: true}, runner, nil, nil, nil, nil)
	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, 1, runner.calls)
}

func TestLoop_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &scriptedRunner{onRun: func(call int) {
		if call == 3 {
			cancel()
		}
	}}
	intervals := 0
	cfg := reconcile.LoopConfig{Interval: func() time.Duration {
		intervals++
		return time.Millisecond
	}}

	done := make(chan error, 1)
	go func() { done <- reconcile.NewLoop(cfg, runner, nil, nil, nil, nil).Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, 3, intervals, "interval computed before each cycle")
}

func TestLoop_SleepIsInterruptible(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &scriptedRunner{onRun: func(int) {
		time.AfterFunc(10*time.Millisecond, cancel)
	}}
	cfg := reconcile.LoopConfig{Interval: func() time.Duration { return time.Hour }}

	start := time.Now()
	require.NoError(t, reconcile.NewLoop(cfg, runner, nil, nil, nil, nil).Run(ctx))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, runner.calls)
}
