package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/metrics"
	"github.com/vitos/paper_wallet/internal/usecase"
)

func TestWalletService_LoadsFromStore(t *testing.T) {
	store := NewMockStore(2500)
	svc, err := usecase.NewWalletService(context.Background(), store, nil, nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2500.0, svc.Balance())
	assert.Equal(t, 2500.0, svc.InitialBalance())
	assert.Empty(t, svc.OpenSymbols())
	assert.Zero(t, svc.Position("BTCUSDT"))
}

func TestWalletService_PersistsEveryCommittedChange(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestWallet(t, 10000)

	res, err := svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, 1, store.Saves)

	saved := store.Saved()
	assert.InDelta(t, 5000.0, saved.BalanceUSD, eps)
	assert.InDelta(t, 0.1, saved.Positions["BTCUSDT"].Amount, eps)
	assert.Len(t, saved.History, 1)

	// Rejected orders change nothing and are not persisted.
	res, err = svc.Buy(ctx, "BTCUSDT", 50000, 1)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "Insufficient balance", res.Message)
	assert.Equal(t, 1, store.Saves)
}

func TestWalletService_InvalidOrder(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestWallet(t, 10000)

	_, err := svc.Buy(ctx, "BTCUSDT", 0, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	_, err = svc.Sell(ctx, "BTCUSDT", 50000, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	_, err = svc.ClosePosition(ctx, "BTCUSDT", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	assert.Zero(t, store.Saves)
	assert.Equal(t, 10000.0, svc.Balance())
}

func TestWalletService_SaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestWallet(t, 10000)

	_, err := svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)

	store.SaveErr = errors.New("disk full")
	_, err = svc.Buy(ctx, "BTCUSDT", 40000, 0.1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// Live state matches the last persisted snapshot.
	assert.InDelta(t, 5000.0, svc.Balance(), eps)
	assert.InDelta(t, 0.1, svc.Position("BTCUSDT"), eps)
	assert.Len(t, svc.History(), 1)

	store.SaveErr = nil
	res, err := svc.Buy(ctx, "BTCUSDT", 40000, 0.1)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.InDelta(t, 1000.0, svc.Balance(), eps)
}

func TestWalletService_JournalMirrorsTrades(t *testing.T) {
	ctx := context.Background()
	journal := &MockJournal{}
	svc, err := usecase.NewWalletService(ctx, NewMockStore(10000), journal, nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)
	_, err = svc.ClosePosition(ctx, "BTCUSDT", 51000)
	require.NoError(t, err)

	require.Len(t, journal.Trades, 2)
	assert.Equal(t, domain.TradeBuy, journal.Trades[0].Type)
	assert.Equal(t, domain.TradeSell, journal.Trades[1].Type)
	assert.Equal(t, svc.History(), journal.Trades)
}

func TestWalletService_JournalFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	journal := &MockJournal{SaveErr: errors.New("database is locked")}
	store := NewMockStore(10000)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc, err := usecase.NewWalletService(ctx, store, journal, nil, m, nil)
	require.NoError(t, err)

	res, err := svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, store.Saves)
	assert.Len(t, svc.History(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JournalErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("BUY")))
	assert.Equal(t, 5000.0, testutil.ToFloat64(m.BalanceUSD))
}

func TestWalletService_NormalizesSymbols(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestWallet(t, 10000)

	_, err := svc.Buy(ctx, "BTC/USDT", 50000, 0.1)
	require.NoError(t, err)

	assert.InDelta(t, 0.1, svc.Position("BTCUSDT"), eps)
	assert.InDelta(t, 0.1, svc.Position(" BTC/USDT "), eps)
	assert.Equal(t, []string{"BTCUSDT"}, svc.OpenSymbols())
	assert.Equal(t, "BTCUSDT", svc.History()[0].Pair)
}

func TestWalletService_ClosePosition(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestWallet(t, 10000)

	_, err := svc.ClosePosition(ctx, "BTCUSDT", 50000)
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)
	assert.Zero(t, store.Saves)

	_, err = svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)
	res, err := svc.ClosePosition(ctx, "BTCUSDT", 55000)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "Sold 0.100000 BTCUSDT", res.Message)
	assert.InDelta(t, 10500.0, svc.Balance(), eps)
	assert.Zero(t, svc.Position("BTCUSDT"))
	assert.Empty(t, svc.OpenSymbols())

	saves := store.Saves
	res, err = svc.ClosePosition(ctx, "BTCUSDT", 55000)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Len(t, svc.History(), 2)
	assert.Equal(t, saves, store.Saves)
}

func TestWalletService_SetExitRules(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestWallet(t, 10000)

	_, err := svc.SetExitRules(ctx, "BTCUSDT", domain.ExitRules{StopLoss: ptr(49000)})
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)

	_, err = svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)

	res, err := svc.SetExitRules(ctx, "BTCUSDT", domain.ExitRules{TrailingStopPercent: ptr(150)})
	require.NoError(t, err)
	assert.False(t, res.OK)

	res, err = svc.SetExitRules(ctx, "BTCUSDT", domain.ExitRules{
		StopLoss:       ptr(49000),
		ScalingTargets: []float64{55000},
	})
	require.NoError(t, err)
	assert.True(t, res.OK)

	pos, ok := svc.PositionDetail("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 49000.0, *pos.StopLoss)
	assert.Nil(t, pos.TakeProfit)
	assert.Equal(t, []float64{55000}, pos.ScalingTargets)
	assert.Equal(t, 49000.0, *store.Saved().Positions["BTCUSDT"].StopLoss)

	// A second call replaces, it does not merge.
	_, err = svc.SetExitRules(ctx, "BTCUSDT", domain.ExitRules{TakeProfit: ptr(60000)})
	require.NoError(t, err)
	pos, _ = svc.PositionDetail("BTCUSDT")
	assert.Nil(t, pos.StopLoss)
	assert.Equal(t, 60000.0, *pos.TakeProfit)
	assert.Empty(t, pos.ScalingTargets)
}

func TestWalletService_SetExitRulesDropsNonPositivePrices(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestWallet(t, 10000)
	_, err := svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)

	res, err := svc.SetExitRules(ctx, "BTCUSDT", domain.ExitRules{
		StopLoss:       ptr(-1),
		TakeProfit:     ptr(0),
		ScalingTargets: []float64{0, 55000, -5},
	})
	require.NoError(t, err)
	assert.True(t, res.OK)

	pos, _ := svc.PositionDetail("BTCUSDT")
	assert.Nil(t, pos.StopLoss)
	assert.Nil(t, pos.TakeProfit)
	assert.Equal(t, []float64{55000}, pos.ScalingTargets)
	assert.Equal(t, []float64{55000}, store.Saved().Positions["BTCUSDT"].ScalingTargets)

	// Targets that can never be valid must not scale the position out.
	_, err = svc.SetExitRules(ctx, "BTCUSDT", domain.ExitRules{ScalingTargets: []float64{0, -5}})
	require.NoError(t, err)
	monitor := usecase.NewOrderMonitor(svc, nil, nil)
	for i := 0; i < 3; i++ {
		trigger, err := monitor.CheckAutomatedOrders(ctx, "BTCUSDT", 50000)
		require.NoError(t, err)
		assert.Nil(t, trigger)
	}
	assert.InDelta(t, 0.1, svc.Position("BTCUSDT"), eps)
}

func TestWalletService_AccessorsReturnCopies(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestWallet(t, 10000)
	_, err := svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)

	snap := svc.Snapshot()
	snap.BalanceUSD = 0
	snap.Positions["BTCUSDT"].Amount = 42

	pos, _ := svc.PositionDetail("BTCUSDT")
	pos.Amount = 7

	assert.InDelta(t, 5000.0, svc.Balance(), eps)
	assert.InDelta(t, 0.1, svc.Position("BTCUSDT"), eps)
}

func TestWalletService_Reset(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestWallet(t, 10000)
	_, err := svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx, 2000))
	assert.Equal(t, 2000.0, svc.Balance())
	assert.Equal(t, 2000.0, svc.InitialBalance())
	assert.Empty(t, svc.History())
	assert.Empty(t, store.Saved().Positions)

	require.NoError(t, svc.Reset(ctx, 0))
	assert.Equal(t, domain.DefaultBalance, svc.Balance())
}

func TestWalletService_ResetUsesConfiguredDefault(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore(2500)
	store.Default = 2500
	svc, err := usecase.NewWalletService(ctx, store, nil, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx, -1))
	assert.Equal(t, 2500.0, svc.Balance())
	assert.Equal(t, 2500.0, svc.InitialBalance())
}

func TestWalletService_Summary(t *testing.T) {
	ctx := context.Background()
	prices := &MockPrices{Prices: map[string]float64{"BTCUSDT": 60000, "ETHUSDT": 2500}}
	svc, err := usecase.NewWalletService(ctx, NewMockStore(10000), nil, prices, nil, nil)
	require.NoError(t, err)

	_, err = svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)
	_, err = svc.Sell(ctx, "ETHUSDT", 3000, 1)
	require.NoError(t, err)

	summary := svc.Summary(ctx)

	// cash 8000 + 0.1*60000 - 1*2500
	assert.InDelta(t, 8000.0, summary.BalanceUSD, eps)
	assert.InDelta(t, 11500.0, summary.Equity, 1e-6)
	assert.InDelta(t, 1500.0, summary.TotalPnL, 1e-6)
	assert.InDelta(t, 15.0, summary.TotalPnLPct, 1e-6)

	require.Len(t, summary.Positions, 2)
	btc, eth := summary.Positions[0], summary.Positions[1]
	assert.Equal(t, "BTCUSDT", btc.Symbol)
	assert.Equal(t, domain.SideLong, btc.Side)
	assert.InDelta(t, 1000.0, btc.UnrealizedPnL, 1e-6)
	assert.InDelta(t, 20.0, btc.UnrealizedPnLPct, 1e-6)
	assert.False(t, btc.Stale)

	assert.Equal(t, "ETHUSDT", eth.Symbol)
	assert.Equal(t, domain.SideShort, eth.Side)
	assert.InDelta(t, -2500.0, eth.MarketValue, 1e-6)
	assert.InDelta(t, 500.0, eth.UnrealizedPnL, 1e-6)
}

func TestWalletService_SummaryStalePrice(t *testing.T) {
	ctx := context.Background()
	prices := &MockPrices{Prices: map[string]float64{}}
	svc, err := usecase.NewWalletService(ctx, NewMockStore(10000), nil, prices, nil, nil)
	require.NoError(t, err)
	_, err = svc.Buy(ctx, "BTCUSDT", 50000, 0.1)
	require.NoError(t, err)

	summary := svc.Summary(ctx)

	require.Len(t, summary.Positions, 1)
	assert.True(t, summary.Positions[0].Stale)
	assert.Equal(t, 50000.0, summary.Positions[0].CurrentPrice)
	assert.InDelta(t, 10000.0, summary.Equity, 1e-6)
	assert.InDelta(t, 0.0, summary.TotalPnL, 1e-6)
}
