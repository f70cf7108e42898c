package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitos/paper_wallet/internal/config"
	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/infrastructure/exchange"
	"github.com/vitos/paper_wallet/internal/infrastructure/logger"
	"github.com/vitos/paper_wallet/internal/infrastructure/storage"
	"github.com/vitos/paper_wallet/internal/metrics"
	"github.com/vitos/paper_wallet/internal/usecase"
	"github.com/vitos/paper_wallet/internal/web"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	path := "config/config.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Init Storage
	store := storage.NewJSONStore(cfg.Wallet.Path, cfg.Wallet.DefaultBalance, log)

	var journal domain.TradeJournal
	if cfg.Journal.Enabled {
		sqlite, err := storage.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			log.Fatal("Failed to init trade journal", zap.Error(err))
		}
		defer sqlite.Close()
		journal = sqlite
	}

	// 4. Init Market Data (Bybit public)
	bybit := exchange.NewBybitAdapter(cfg.Exchange.RESTEndpoint, cfg.Exchange.WSEndpoint, cfg.Exchange.Category, log)
	defer bybit.Close()

	// 5. Init Services
	m := metrics.NewMetrics(prometheus.NewRegistry())

	wallet, err := usecase.NewWalletService(ctx, store, journal, bybit, m, log)
	if err != nil {
		log.Fatal("Failed to load wallet", zap.Error(err), zap.String("path", store.Path()))
	}
	log.Info("Wallet loaded",
		zap.String("path", store.Path()),
		zap.Float64("balance_usd", wallet.Balance()),
		zap.Float64("initial_balance", wallet.InitialBalance()),
		zap.Strings("open_positions", wallet.OpenSymbols()))

	strategies := usecase.NewStrategyExecutor(wallet, cfg.Wallet.StrategyFraction, m, log)
	monitor := usecase.NewOrderMonitor(wallet, m, log)
	worker := usecase.NewMonitorWorker(wallet, monitor, bybit, m, log, cfg.MonitorInterval(), cfg.Monitor.Symbols)

	// 6. Heartbeat: websocket ticks when enabled, polling otherwise
	if cfg.Monitor.UseWS {
		worker.StartStream(ctx, bybit)
	} else {
		worker.Start(ctx)
	}

	// 7. Init Web Server
	server := web.NewServer(cfg.Server.Port, wallet, strategies, monitor, worker, journal, m, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 8. Wait for Shutdown
	<-ctx.Done()

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
