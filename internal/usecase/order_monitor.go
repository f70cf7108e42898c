package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/metrics"
	"go.uber.org/zap"
)

// ScaleOutFraction is the share of the remaining position closed when a
// scaling target is reached.
const ScaleOutFraction = 0.5

// OrderMonitor evaluates automated exit rules against fresh prices.
type OrderMonitor struct {
	wallet  *WalletService
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewOrderMonitor(wallet *WalletService, m *metrics.Metrics, logger *zap.Logger) *OrderMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderMonitor{
		wallet:  wallet,
		metrics: m,
		logger:  logger,
	}
}

// CheckAutomatedOrders updates the watermark of symbol's position and fires
// at most one exit rule, in order: stop-loss, take-profit, trailing stop,
// scaling targets. It returns nil when nothing fired or the position is flat.
func (m *OrderMonitor) CheckAutomatedOrders(ctx context.Context, symbol string, currentPrice float64) (*domain.Trigger, error) {
	if currentPrice <= 0 {
		return nil, nil
	}
	symbol = domain.NormalizeSymbol(symbol)

	var trigger *domain.Trigger
	err := m.wallet.update(ctx, func(w *domain.Wallet) (bool, error) {
		pos, ok := w.Positions[symbol]
		if !ok || pos.IsFlat() {
			return false, nil
		}

		high, low := pos.HighestPrice, pos.LowestPrice
		var err error
		trigger, err = m.evaluate(w, symbol, pos, currentPrice)
		if err != nil {
			return false, err
		}
		// Persist moved watermarks even when nothing fired.
		return trigger != nil || pos.HighestPrice != high || pos.LowestPrice != low, nil
	})
	if err != nil {
		return nil, err
	}

	if trigger != nil {
		m.metrics.RecordTrigger(trigger.Kind)
		m.logger.Info("Automated order triggered",
			zap.String("symbol", symbol),
			zap.String("kind", string(trigger.Kind)),
			zap.Float64("price", currentPrice))
	}
	return trigger, nil
}

func (m *OrderMonitor) evaluate(w *domain.Wallet, symbol string, pos *domain.Position, price float64) (*domain.Trigger, error) {
	exec := m.wallet.executor
	long := pos.Amount > 0

	if long {
		pos.HighestPrice = math.Max(pos.HighestPrice, price)
	} else {
		pos.LowestPrice = math.Min(pos.LowestPrice, price)
	}

	closeOn := func(kind domain.TriggerKind, label string) (*domain.Trigger, error) {
		if _, err := exec.ClosePosition(w, symbol, price); err != nil {
			return nil, err
		}
		return &domain.Trigger{
			Symbol:  symbol,
			Kind:    kind,
			Price:   price,
			Message: fmt.Sprintf("%s at %s", label, formatUSD(price)),
		}, nil
	}

	if sl := domain.Value(pos.StopLoss); sl != 0 {
		if (long && price <= sl) || (!long && price >= sl) {
			return closeOn(domain.TriggerStopLoss, "Stop Loss Triggered")
		}
	}

	if tp := domain.Value(pos.TakeProfit); tp != 0 {
		if (long && price >= tp) || (!long && price <= tp) {
			return closeOn(domain.TriggerTakeProfit, "Take Profit Hit")
		}
	}

	if pct := domain.Value(pos.TrailingStopPercent); pct != 0 {
		if long {
			if price <= pos.HighestPrice*(1-pct/100) {
				return closeOn(domain.TriggerTrailingStop, "Trailing Stop Triggered")
			}
		} else if price >= pos.LowestPrice*(1+pct/100) {
			return closeOn(domain.TriggerTrailingStop, "Trailing Stop Triggered")
		}
	}

	for i, target := range pos.ScalingTargets {
		if (long && price >= target) || (!long && price <= target) {
			size := math.Abs(pos.Amount) * ScaleOutFraction
			if long {
				exec.Sell(w, symbol, price, size)
			} else if res := exec.Buy(w, symbol, price, size); !res.OK {
				return nil, fmt.Errorf("scale out %s: %s", symbol, res.Message)
			}
			pos = w.Positions[symbol]
			pos.ScalingTargets = append(pos.ScalingTargets[:i:i], pos.ScalingTargets[i+1:]...)
			return &domain.Trigger{
				Symbol:  symbol,
				Kind:    domain.TriggerScaleOut,
				Price:   price,
				Message: fmt.Sprintf("Scaled out 50%% at %s", formatUSD(price)),
			}, nil
		}
	}

	return nil, nil
}
