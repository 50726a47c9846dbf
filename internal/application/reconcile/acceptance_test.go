package reconcile_test

import (
	"context"
	"testing"

	"github.com/alejandrodnm/autotrade/internal/application/reconcile"
	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAcceptor(m *fakeMarket, cfg reconcile.Config) *reconcile.Acceptor {
	src := reconcile.NewSource(m, cfg.AccountID, cfg.Retry)
	return reconcile.NewAcceptor(src, m, cfg)
}

func TestAcceptor_ConvergesInOneCall(t *testing.T) {
	m := newFakeMarket(queued("1", 5, 100, "A"), queued("2", 6, 200, "B"))

	res, err := newAcceptor(m, testConfig()).Run(context.Background(), m.trades)
	require.NoError(t, err)

	assert.False(t, res.Deferred)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Calls)
	assert.Zero(t, res.Iterations)
	assert.Zero(t, m.fetchCalls, "iteration 0 uses the given list")
}

func TestAcceptor_BoundedAtNineSubmissions(t *testing.T) {
	m := newFakeMarket(queued("1", 5, 100, "A"))
	m.neverAccept = true

	res, err := newAcceptor(m, testConfig()).Run(context.Background(), m.trades)
	require.NoError(t, err)

	assert.True(t, res.Deferred)
	assert.Equal(t, 9, res.Calls)
	assert.Equal(t, 9, res.Iterations)
	assert.Equal(t, 9, m.bulkCalls)
	assert.Equal(t, 2, m.fetchCalls, "queue re-read at iterations 3 and 6")
}

func TestAcceptor_RefreshSeesExternalAcceptance(t *testing.T) {
	m := newFakeMarket(queued("1", 5, 100, "A"))
	m.neverAccept = true

	// Otro proceso acepta el trade: la relectura de la iteración 3 lo ve
	// y el loop termina sin más llamadas.
	pending := append([]domain.Trade(nil), m.trades...)
	m.trades[0].AcceptedAt = ts()

	res, err := newAcceptor(m, testConfig()).Run(context.Background(), pending)
	require.NoError(t, err)

	assert.False(t, res.Deferred)
	assert.Equal(t, 3, m.bulkCalls)
	assert.Equal(t, 1, m.fetchCalls)
}

func TestAcceptor_SkipsAlreadyAccepted(t *testing.T) {
	m := newFakeMarket(sale("1", 5, 100, "A"))

	res, err := newAcceptor(m, testConfig()).Run(context.Background(), m.trades)
	require.NoError(t, err)

	assert.Zero(t, res.Calls)
	assert.Zero(t, m.bulkCalls)
}

func TestAcceptor_SingleModeCallsPerTrade(t *testing.T) {
	m := newFakeMarket(queued("1", 5, 100, "A"), queued("2", 6, 200, "B"), queued("3", 7, 300, "C"))
	cfg := testConfig()
	cfg.AcceptMode = reconcile.AcceptSingle

	res, err := newAcceptor(m, cfg).Run(context.Background(), m.trades)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 3, m.singleCalls)
	assert.Zero(t, m.bulkCalls)
}

func TestAcceptor_RefreshFailureIsError(t *testing.T) {
	m := newFakeMarket(queued("1", 5, 100, "A"))
	m.neverAccept = true
	m.fetchErr = errTransport

	res, err := newAcceptor(m, testConfig()).Run(context.Background(), m.trades)
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransport)
	assert.False(t, res.Deferred)
	assert.Equal(t, 3, m.bulkCalls)
}

func TestAcceptor_StopsOnCancel(t *testing.T) {
	m := newFakeMarket(queued("1", 5, 100, "A"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAcceptor(m, testConfig()).Run(ctx, m.trades)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, m.bulkCalls)
}
