package usecase

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_wallet/internal/domain"
)

// TradeExecutor applies buy and sell fills to a wallet. It does not lock or
// persist; callers run it inside a WalletService transaction.
type TradeExecutor struct {
	timeNow func() time.Time
}

func NewTradeExecutor() *TradeExecutor {
	return &TradeExecutor{
		timeNow: time.Now,
	}
}

// Execute routes a fill by side: LONG buys, SHORT sells.
func (e *TradeExecutor) Execute(w *domain.Wallet, symbol string, side domain.Side, price, amount float64) (domain.Result, error) {
	if side == domain.SideLong {
		return e.Buy(w, symbol, price, amount), nil
	} else if side == domain.SideShort {
		return e.Sell(w, symbol, price, amount), nil
	}
	return domain.Result{}, fmt.Errorf("invalid side: %s", side)
}

// Buy increases a flat or long position (cash permitting) or covers a short.
// Cash is always debited by amount*price.
func (e *TradeExecutor) Buy(w *domain.Wallet, symbol string, price, amount float64) domain.Result {
	usdValue := amount * price
	pos, fresh := e.openPosition(w, symbol, price)

	if pos.Amount >= 0 && usdValue > w.BalanceUSD {
		return domain.Fail("Insufficient balance")
	}

	w.BalanceUSD -= usdValue

	if pos.Amount >= 0 {
		total := pos.Amount + amount
		pos.AvgPrice = (pos.Amount*pos.AvgPrice + amount*price) / total
		pos.Amount = total
		if fresh {
			pos.HighestPrice = price
		} else {
			pos.HighestPrice = math.Max(pos.HighestPrice, price)
		}
	} else {
		// Covering a short. The residual keeps its basis, no blending across the flip.
		pos.Amount += amount
	}

	w.Positions[symbol] = pos
	e.record(w, symbol, domain.TradeBuy, price, amount, usdValue)
	return domain.Ok(fmt.Sprintf("Bought %.6f %s", amount, symbol))
}

// Sell increases a flat or short position or reduces a long. Cash is always
// credited; no margin is required to short.
func (e *TradeExecutor) Sell(w *domain.Wallet, symbol string, price, amount float64) domain.Result {
	usdValue := amount * price
	pos, fresh := e.openPosition(w, symbol, price)

	w.BalanceUSD += usdValue

	if pos.Amount <= 0 {
		total := pos.Amount - amount
		pos.AvgPrice = (math.Abs(pos.Amount)*pos.AvgPrice + amount*price) / math.Abs(total)
		pos.Amount = total
		if fresh {
			pos.LowestPrice = price
		} else {
			pos.LowestPrice = math.Min(pos.LowestPrice, price)
		}
	} else {
		pos.Amount -= amount
	}

	w.Positions[symbol] = pos
	e.record(w, symbol, domain.TradeSell, price, amount, usdValue)
	return domain.Ok(fmt.Sprintf("Sold %.6f %s", amount, symbol))
}

// ClosePosition offsets the whole remaining amount at price, then disarms
// every exit rule and forces the amount to exactly zero. A flat position is
// left untouched.
func (e *TradeExecutor) ClosePosition(w *domain.Wallet, symbol string, price float64) (domain.Result, error) {
	pos, ok := w.Positions[symbol]
	if !ok {
		return domain.Result{}, fmt.Errorf("%s: %w", symbol, domain.ErrPositionNotFound)
	}
	if pos.IsFlat() {
		return domain.Fail(fmt.Sprintf("No open position for %s", symbol)), nil
	}

	var res domain.Result
	if pos.Amount > 0 {
		res = e.Sell(w, symbol, price, pos.Amount)
	} else {
		res = e.Buy(w, symbol, price, -pos.Amount)
	}

	pos = w.Positions[symbol]
	pos.ClearExitRules()
	pos.Amount = 0
	return res, nil
}

// openPosition returns the live position for symbol, or a fresh one seeded at
// price when the symbol is unseen or flat. The fresh position is only stored
// by the caller once the fill is accepted.
func (e *TradeExecutor) openPosition(w *domain.Wallet, symbol string, price float64) (*domain.Position, bool) {
	if pos, ok := w.Positions[symbol]; ok && !pos.IsFlat() {
		return pos, false
	}
	return domain.NewPosition(price), true
}

func (e *TradeExecutor) record(w *domain.Wallet, symbol string, t domain.TradeType, price, amount, usdValue float64) {
	w.History = append(w.History, domain.Trade{
		Time:     e.timeNow().Format(domain.TradeTimeLayout),
		Pair:     symbol,
		Type:     t,
		Price:    price,
		Amount:   decimal.NewFromFloat(amount).Round(8).InexactFloat64(),
		TotalUSD: decimal.NewFromFloat(usdValue).Round(2).InexactFloat64(),
	})
}
