package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultStrategyFraction is the share of free cash committed when a
	// strategy is executed without an explicit USD size.
	DefaultStrategyFraction = 0.1
	defaultStrategySymbol   = "BTCUSDT"
)

// StrategyExecutor turns an advisory trade proposal into a sized fill and
// arms the proposal's exit rules on the resulting position.
type StrategyExecutor struct {
	wallet   *WalletService
	fraction float64
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewStrategyExecutor(wallet *WalletService, fraction float64, m *metrics.Metrics, logger *zap.Logger) *StrategyExecutor {
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultStrategyFraction
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrategyExecutor{
		wallet:   wallet,
		fraction: fraction,
		metrics:  m,
		logger:   logger,
	}
}

// ExecuteStrategy sizes and executes strategy. overrideUSD, when non-nil,
// replaces the default fractional sizing. Validation failures come back as a
// failed Result; only persistence problems are returned as errors.
func (e *StrategyExecutor) ExecuteStrategy(ctx context.Context, strategy domain.Strategy, overrideUSD *float64) (domain.Result, error) {
	action := strings.ToUpper(actionString(strategy.Action))
	params := strategy.TradeParams
	symbol := symbolString(params.Symbol)

	var res domain.Result
	err := e.wallet.update(ctx, func(w *domain.Wallet) (bool, error) {
		price := SanitizePrice(params.EntryPrice)
		if price <= 0 {
			res = domain.Fail(fmt.Sprintf("Invalid entry price: %v. Please ensure it is a positive number.", params.EntryPrice))
			return false, nil
		}

		balance := w.BalanceUSD
		if balance <= 0 {
			res = domain.Fail(fmt.Sprintf("Insufficient account balance (%s) to open a trade.", formatUSD(balance)))
			return false, nil
		}

		usdAmount := balance * e.fraction
		if overrideUSD != nil {
			usdAmount = *overrideUSD
		}
		isBuy := strings.Contains(action, "BUY")
		if isBuy && usdAmount > balance {
			res = domain.Fail(fmt.Sprintf("Not enough balance (%s) for a %s trade.", formatUSD(balance), formatUSD(usdAmount)))
			return false, nil
		}
		if !isBuy && !strings.Contains(action, "SELL") {
			res = domain.Fail(fmt.Sprintf("Action '%s' not recognized. Use BUY or SELL.", action))
			return false, nil
		}
		if usdAmount <= 0 {
			res = domain.Fail(fmt.Sprintf("Invalid trade size: %s.", formatUSD(usdAmount)))
			return false, nil
		}

		amount := usdAmount / price
		if isBuy {
			res = e.wallet.executor.Buy(w, symbol, price, amount)
		} else {
			res = e.wallet.executor.Sell(w, symbol, price, amount)
		}
		if !res.OK {
			return false, nil
		}

		// Re-executing on an existing position replaces its rules, never merges.
		rules := domain.ExitRules{
			StopLoss:       domain.Float(SanitizePrice(params.StopLoss)),
			TakeProfit:     domain.Float(SanitizePrice(params.TakeProfit)),
			ScalingTargets: sanitizeTargets(params.ScalingTargets),
		}
		if pct := SanitizePrice(params.TrailingStopPercent); pct > 0 && pct < 100 {
			rules.TrailingStopPercent = &pct
		}
		w.Positions[symbol].SetExitRules(rules)
		return true, nil
	})
	if err != nil {
		return domain.Result{}, err
	}

	e.metrics.RecordStrategy(res.OK)
	if res.OK {
		e.logger.Info("Strategy executed",
			zap.String("symbol", symbol),
			zap.String("action", action),
			zap.String("message", res.Message))
	} else {
		e.logger.Info("Strategy rejected",
			zap.String("symbol", symbol),
			zap.String("action", action),
			zap.String("reason", res.Message))
	}
	return res, nil
}

func actionString(v any) string {
	switch a := v.(type) {
	case nil:
		return "WAIT"
	case string:
		return a
	default:
		return fmt.Sprint(a)
	}
}

func symbolString(v any) string {
	s, ok := v.(string)
	if !ok {
		return defaultStrategySymbol
	}
	if s = domain.NormalizeSymbol(s); s == "" {
		return defaultStrategySymbol
	}
	return s
}
