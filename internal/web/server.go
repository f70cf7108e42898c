package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/metrics"
	"github.com/vitos/paper_wallet/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router     *http.ServeMux
	server     *http.Server
	wallet     *usecase.WalletService
	strategies *usecase.StrategyExecutor
	monitor    *usecase.OrderMonitor
	worker     *usecase.MonitorWorker // optional
	journal    domain.TradeJournal    // optional
	metrics    *metrics.Metrics
	logger     *zap.Logger
	startedAt  time.Time
}

func NewServer(
	port int,
	wallet *usecase.WalletService,
	strategies *usecase.StrategyExecutor,
	monitor *usecase.OrderMonitor,
	worker *usecase.MonitorWorker,
	journal domain.TradeJournal,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		wallet:     wallet,
		strategies: strategies,
		monitor:    monitor,
		worker:     worker,
		journal:    journal,
		metrics:    m,
		logger:     logger,
		startedAt:  time.Now(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	// Wallet
	s.router.HandleFunc("GET /api/wallet", s.handleWallet)
	s.router.HandleFunc("GET /api/summary", s.handleSummary)
	s.router.HandleFunc("POST /api/reset", s.handleReset)

	// Positions
	s.router.HandleFunc("GET /api/positions/{symbol}", s.handlePosition)
	s.router.HandleFunc("POST /api/positions/{symbol}/close", s.handleClosePosition)
	s.router.HandleFunc("PUT /api/positions/{symbol}/rules", s.handleSetExitRules)

	// Orders
	s.router.HandleFunc("POST /api/orders", s.handlePlaceOrder)
	s.router.HandleFunc("POST /api/strategy", s.handleExecuteStrategy)

	// Heartbeat
	s.router.HandleFunc("POST /api/ticks", s.handleTick)
	s.router.HandleFunc("GET /api/triggers", s.handleTriggers)

	// Trades
	s.router.HandleFunc("GET /api/trades", s.handleTrades)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)
	s.router.Handle("GET /metrics", s.metrics.Handler())
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
