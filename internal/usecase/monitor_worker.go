package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/metrics"
	"go.uber.org/zap"
)

// MonitorWorker is the heartbeat: it feeds fresh prices for every open
// position (plus any watched symbols) into the OrderMonitor.
type MonitorWorker struct {
	wallet   *WalletService
	monitor  *OrderMonitor
	prices   domain.PriceProvider
	metrics  *metrics.Metrics
	logger   *zap.Logger
	interval time.Duration
	watch    []string

	mu         sync.RWMutex
	lastPrices map[string]float64
	triggers   []domain.Trigger
}

const maxRecentTriggers = 100

func NewMonitorWorker(
	wallet *WalletService,
	monitor *OrderMonitor,
	prices domain.PriceProvider,
	m *metrics.Metrics,
	logger *zap.Logger,
	interval time.Duration,
	watch []string,
) *MonitorWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitorWorker{
		wallet:     wallet,
		monitor:    monitor,
		prices:     prices,
		metrics:    m,
		logger:     logger,
		interval:   interval,
		watch:      watch,
		lastPrices: make(map[string]float64),
	}
}

// Start polls on a ticker until ctx is cancelled.
func (w *MonitorWorker) Start(ctx context.Context) {
	w.logger.Info("Starting order monitor", zap.Duration("interval", w.interval))
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			w.Poll(ctx)
			select {
			case <-ctx.Done():
				w.logger.Info("Order monitor stopped")
				return
			case <-ticker.C:
			}
		}
	}()
}

// StartStream feeds stream ticks into OnTick. Open and watched symbols are
// (re)subscribed every interval so new positions join the stream.
func (w *MonitorWorker) StartStream(ctx context.Context, stream domain.PriceStream) {
	w.logger.Info("Starting order monitor on price stream", zap.Duration("resubscribe", w.interval))
	stream.OnPriceUpdate(func(symbol string, price float64) {
		w.OnTick(ctx, symbol, price)
	})
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			if err := stream.Subscribe(w.symbols()); err != nil {
				w.logger.Error("Failed to subscribe", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				w.logger.Info("Order monitor stopped")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Poll runs one heartbeat over every symbol with an open position.
func (w *MonitorWorker) Poll(ctx context.Context) {
	for _, symbol := range w.symbols() {
		price, err := w.prices.GetCurrentPrice(ctx, symbol)
		if err != nil {
			w.metrics.RecordPriceError()
			w.logger.Warn("Failed to fetch price", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		w.OnTick(ctx, symbol, price)
	}
}

// OnTick handles one (symbol, price) observation, from polling or a stream.
func (w *MonitorWorker) OnTick(ctx context.Context, symbol string, price float64) {
	symbol = domain.NormalizeSymbol(symbol)

	w.mu.Lock()
	w.lastPrices[symbol] = price
	w.mu.Unlock()

	trigger, err := w.monitor.CheckAutomatedOrders(ctx, symbol, price)
	if err != nil {
		w.logger.Error("Error checking automated orders", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	if trigger == nil {
		return
	}

	w.mu.Lock()
	w.triggers = append(w.triggers, *trigger)
	if len(w.triggers) > maxRecentTriggers {
		w.triggers = w.triggers[len(w.triggers)-maxRecentTriggers:]
	}
	w.mu.Unlock()
}

// LatestPrice returns the last observed price for symbol.
func (w *MonitorWorker) LatestPrice(symbol string) (float64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.lastPrices[domain.NormalizeSymbol(symbol)]
	return p, ok
}

// GetCurrentPrice serves the last observed price, so the worker can stand in
// as a PriceProvider for valuation when a live stream feeds it.
func (w *MonitorWorker) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if p, ok := w.LatestPrice(symbol); ok {
		return p, nil
	}
	return w.prices.GetCurrentPrice(ctx, symbol)
}

// RecentTriggers returns the most recent exits, oldest first.
func (w *MonitorWorker) RecentTriggers() []domain.Trigger {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.Trigger, len(w.triggers))
	copy(out, w.triggers)
	return out
}

func (w *MonitorWorker) symbols() []string {
	set := make(map[string]bool)
	for _, s := range w.wallet.OpenSymbols() {
		set[s] = true
	}
	for _, s := range w.watch {
		set[domain.NormalizeSymbol(s)] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
