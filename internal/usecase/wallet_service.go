package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/metrics"
	"go.uber.org/zap"
)

// WalletService owns one paper wallet. Every operation is serialized on a
// single mutex and runs as a transaction: mutate a working copy, flush the
// snapshot, then swap the copy in. A failed flush leaves the live state at
// the last persisted snapshot.
type WalletService struct {
	store    domain.WalletStore
	journal  domain.TradeJournal  // optional
	prices   domain.PriceProvider // optional
	metrics  *metrics.Metrics
	logger   *zap.Logger
	executor *TradeExecutor

	defaultBalance float64

	mu    sync.Mutex
	state *domain.Wallet
}

func NewWalletService(
	ctx context.Context,
	store domain.WalletStore,
	journal domain.TradeJournal,
	prices domain.PriceProvider,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*WalletService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	m.ObserveWallet(w)

	defaultBalance := domain.DefaultBalance
	if d, ok := store.(defaultBalancer); ok && d.DefaultBalance() > 0 {
		defaultBalance = d.DefaultBalance()
	}

	return &WalletService{
		store:    store,
		journal:  journal,
		prices:   prices,
		metrics:  m,
		logger:   logger,
		executor: NewTradeExecutor(),
		state:    w,

		defaultBalance: defaultBalance,
	}, nil
}

// defaultBalancer is implemented by stores that seed new wallets with a
// configured balance.
type defaultBalancer interface {
	DefaultBalance() float64
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return domain.Float(*v)
}

// update runs fn against a working copy of the wallet. When fn reports a
// change the copy is persisted and becomes the live state.
func (s *WalletService) update(ctx context.Context, fn func(w *domain.Wallet) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.Clone()
	recorded := len(work.History)

	changed, err := fn(work)
	if err != nil || !changed {
		return err
	}

	start := time.Now()
	if err := s.store.Save(ctx, work); err != nil {
		s.logger.Error("Failed to persist wallet", zap.Error(err))
		return fmt.Errorf("failed to persist wallet: %w", err)
	}
	s.metrics.ObservePersist(time.Since(start))
	s.state = work

	for i := recorded; i < len(work.History); i++ {
		trade := work.History[i]
		s.metrics.RecordTrade(trade)
		s.logger.Info("Trade recorded",
			zap.String("symbol", trade.Pair),
			zap.String("type", string(trade.Type)),
			zap.Float64("price", trade.Price),
			zap.Float64("amount", trade.Amount),
			zap.Float64("total_usd", trade.TotalUSD))
		s.journalTrade(ctx, &trade)
	}
	s.metrics.ObserveWallet(work)
	return nil
}

// journalTrade mirrors a committed trade. The snapshot is the source of
// truth, so a journal failure is logged and counted but not returned.
func (s *WalletService) journalTrade(ctx context.Context, trade *domain.Trade) {
	if s.journal == nil {
		return
	}
	if err := s.journal.SaveTrade(ctx, trade); err != nil {
		s.metrics.RecordJournalError()
		s.logger.Warn("Failed to journal trade", zap.String("symbol", trade.Pair), zap.Error(err))
	}
}

// Buy opens or increases a long, or covers a short, at price.
func (s *WalletService) Buy(ctx context.Context, symbol string, price, amount float64) (domain.Result, error) {
	return s.fill(ctx, symbol, domain.SideLong, price, amount)
}

// Sell opens or increases a short, or reduces a long, at price.
func (s *WalletService) Sell(ctx context.Context, symbol string, price, amount float64) (domain.Result, error) {
	return s.fill(ctx, symbol, domain.SideShort, price, amount)
}

func (s *WalletService) fill(ctx context.Context, symbol string, side domain.Side, price, amount float64) (domain.Result, error) {
	if price <= 0 || amount <= 0 {
		return domain.Result{}, domain.ErrInvalidOrder
	}
	symbol = domain.NormalizeSymbol(symbol)

	var res domain.Result
	err := s.update(ctx, func(w *domain.Wallet) (bool, error) {
		var err error
		res, err = s.executor.Execute(w, symbol, side, price, amount)
		return res.OK, err
	})
	if err != nil {
		return domain.Result{}, err
	}
	if !res.OK {
		s.logger.Info("Order rejected",
			zap.String("symbol", symbol),
			zap.String("side", string(side)),
			zap.Float64("price", price),
			zap.Float64("amount", amount),
			zap.String("reason", res.Message))
	}
	return res, nil
}

// ClosePosition fully closes symbol at price and disarms its exit rules.
func (s *WalletService) ClosePosition(ctx context.Context, symbol string, price float64) (domain.Result, error) {
	if price <= 0 {
		return domain.Result{}, domain.ErrInvalidOrder
	}
	symbol = domain.NormalizeSymbol(symbol)

	var res domain.Result
	err := s.update(ctx, func(w *domain.Wallet) (bool, error) {
		var err error
		res, err = s.executor.ClosePosition(w, symbol, price)
		return res.OK, err
	})
	if err != nil {
		return domain.Result{}, err
	}
	return res, nil
}

// SetExitRules replaces the exit rules of an open position. Non-positive
// stop, take-profit and target prices are dropped.
func (s *WalletService) SetExitRules(ctx context.Context, symbol string, rules domain.ExitRules) (domain.Result, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if pct := domain.Value(rules.TrailingStopPercent); pct < 0 || pct >= 100 {
		return domain.Fail(fmt.Sprintf("Invalid trailing stop percent: %v", pct)), nil
	}
	rules = domain.ExitRules{
		StopLoss:            positive(rules.StopLoss),
		TakeProfit:          positive(rules.TakeProfit),
		TrailingStopPercent: positive(rules.TrailingStopPercent),
		ScalingTargets:      sanitizeTargets(rules.ScalingTargets),
	}

	var res domain.Result
	err := s.update(ctx, func(w *domain.Wallet) (bool, error) {
		pos, ok := w.Positions[symbol]
		if !ok {
			return false, fmt.Errorf("%s: %w", symbol, domain.ErrPositionNotFound)
		}
		if pos.IsFlat() {
			res = domain.Fail(fmt.Sprintf("No open position for %s", symbol))
			return false, nil
		}
		pos.SetExitRules(rules)
		res = domain.Ok(fmt.Sprintf("Exit rules updated for %s", symbol))
		return true, nil
	})
	if err != nil {
		return domain.Result{}, err
	}
	return res, nil
}

// Reset reinitializes the wallet with balance as both initial and free cash.
// A non-positive balance falls back to the store's configured default.
func (s *WalletService) Reset(ctx context.Context, balance float64) error {
	if balance <= 0 {
		balance = s.defaultBalance
	}
	s.logger.Info("Resetting wallet", zap.Float64("balance", balance))
	return s.update(ctx, func(w *domain.Wallet) (bool, error) {
		*w = *domain.NewWallet(balance)
		return true, nil
	})
}

func (s *WalletService) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.BalanceUSD
}

func (s *WalletService) InitialBalance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InitialBalance
}

// Position returns the signed amount held in symbol, 0 when unseen.
func (s *WalletService) Position(symbol string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos, ok := s.state.Positions[domain.NormalizeSymbol(symbol)]; ok {
		return pos.Amount
	}
	return 0
}

// PositionDetail returns a copy of the ledger entry for symbol.
func (s *WalletService) PositionDetail(symbol string) (*domain.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.state.Positions[domain.NormalizeSymbol(symbol)]
	return pos.Clone(), ok
}

// OpenSymbols lists symbols holding a non-dust amount, sorted.
func (s *WalletService) OpenSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var symbols []string
	for sym, pos := range s.state.Positions {
		if !pos.IsFlat() {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	return symbols
}

func (s *WalletService) History() []domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Trade, len(s.state.History))
	copy(out, s.state.History)
	return out
}

// Snapshot returns a deep copy of the whole wallet.
func (s *WalletService) Snapshot() *domain.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Summary marks every open position to the provider's current price. A
// position whose price cannot be fetched is valued at its average price.
func (s *WalletService) Summary(ctx context.Context) *domain.PortfolioSummary {
	w := s.Snapshot()

	summary := &domain.PortfolioSummary{
		InitialBalance: w.InitialBalance,
		BalanceUSD:     w.BalanceUSD,
		Equity:         w.BalanceUSD,
		Positions:      []domain.PositionValuation{},
	}

	for sym, pos := range w.Positions {
		if pos.IsFlat() {
			continue
		}
		v := domain.PositionValuation{
			Symbol:       sym,
			Side:         pos.Side(),
			Amount:       pos.Amount,
			AvgPrice:     pos.AvgPrice,
			CurrentPrice: pos.AvgPrice,
			Stale:        true,
		}
		if s.prices != nil {
			price, err := s.prices.GetCurrentPrice(ctx, sym)
			if err != nil || price <= 0 {
				s.metrics.RecordPriceError()
				s.logger.Warn("Failed to price position", zap.String("symbol", sym), zap.Error(err))
			} else {
				v.CurrentPrice = price
				v.Stale = false
			}
		}
		v.MarketValue = pos.Amount * v.CurrentPrice
		v.UnrealizedPnL = (v.CurrentPrice - pos.AvgPrice) * pos.Amount
		if cost := pos.AvgPrice * pos.Amount; cost != 0 {
			v.UnrealizedPnLPct = v.UnrealizedPnL / math.Abs(cost) * 100
		}
		summary.Equity += v.MarketValue
		summary.Positions = append(summary.Positions, v)
	}

	sort.Slice(summary.Positions, func(i, j int) bool {
		return summary.Positions[i].Symbol < summary.Positions[j].Symbol
	})

	summary.TotalPnL = summary.Equity - summary.InitialBalance
	if summary.InitialBalance != 0 {
		summary.TotalPnLPct = summary.TotalPnL / summary.InitialBalance * 100
	}
	return summary
}
