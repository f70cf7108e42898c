// Package metrics exposes Prometheus instrumentation for the paper wallet.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitos/paper_wallet/internal/domain"
)

// Metrics holds all Prometheus metrics for the wallet engine. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	TradesTotal     *prometheus.CounterVec // labels: type=BUY|SELL
	TradeVolumeUSD  *prometheus.CounterVec // labels: type
	TriggersTotal   *prometheus.CounterVec // labels: kind
	StrategiesTotal *prometheus.CounterVec // labels: result=ok|rejected
	JournalErrors   prometheus.Counter
	PriceErrors     prometheus.Counter

	BalanceUSD    prometheus.Gauge
	OpenPositions prometheus.Gauge
	PersistDur    prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewMetrics registers every metric with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the global registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperwallet_trades_total",
			Help: "Trades recorded in the wallet history",
		}, []string{"type"}),
		TradeVolumeUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperwallet_trade_volume_usd_total",
			Help: "Notional USD value of recorded trades",
		}, []string{"type"}),
		TriggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperwallet_exit_triggers_total",
			Help: "Automated exits fired by the order monitor",
		}, []string{"kind"}),
		StrategiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperwallet_strategies_total",
			Help: "Strategy proposals executed or rejected",
		}, []string{"result"}),
		JournalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paperwallet_journal_errors_total",
			Help: "Trades that could not be mirrored to the journal",
		}),
		PriceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paperwallet_price_errors_total",
			Help: "Failed price lookups by the monitor and valuation",
		}),
		BalanceUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paperwallet_balance_usd",
			Help: "Free cash balance",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paperwallet_open_positions",
			Help: "Positions with a non-dust amount",
		}),
		PersistDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "paperwallet_persist_duration_seconds",
			Help:    "Time to flush the wallet snapshot",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.TradesTotal,
		m.TradeVolumeUSD,
		m.TriggersTotal,
		m.StrategiesTotal,
		m.JournalErrors,
		m.PriceErrors,
		m.BalanceUSD,
		m.OpenPositions,
		m.PersistDur,
	)
	return m
}

func (m *Metrics) RecordTrade(t domain.Trade) {
	if m == nil {
		return
	}
	m.TradesTotal.WithLabelValues(string(t.Type)).Inc()
	m.TradeVolumeUSD.WithLabelValues(string(t.Type)).Add(t.TotalUSD)
}

func (m *Metrics) RecordTrigger(kind domain.TriggerKind) {
	if m == nil {
		return
	}
	m.TriggersTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) RecordStrategy(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.StrategiesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordJournalError() {
	if m == nil {
		return
	}
	m.JournalErrors.Inc()
}

func (m *Metrics) RecordPriceError() {
	if m == nil {
		return
	}
	m.PriceErrors.Inc()
}

func (m *Metrics) ObservePersist(d time.Duration) {
	if m == nil {
		return
	}
	m.PersistDur.Observe(d.Seconds())
}

// ObserveWallet refreshes the balance and open-position gauges.
func (m *Metrics) ObserveWallet(w *domain.Wallet) {
	if m == nil {
		return
	}
	open := 0
	for _, pos := range w.Positions {
		if !pos.IsFlat() {
			open++
		}
	}
	m.BalanceUSD.Set(w.BalanceUSD)
	m.OpenPositions.Set(float64(open))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
