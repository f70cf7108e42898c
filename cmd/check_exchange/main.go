package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vitos/paper_wallet/internal/config"
	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/infrastructure/exchange"
	"github.com/vitos/paper_wallet/internal/infrastructure/logger"
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

	log, err := logger.NewLogger("warn")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	symbols := make([]string, 0, len(cfg.Monitor.Symbols))
	for _, s := range cfg.Monitor.Symbols {
		symbols = append(symbols, domain.NormalizeSymbol(s))
	}
	if len(symbols) == 0 {
		symbols = []string{"BTCUSDT"}
	}

	fmt.Printf("Testing Bybit market data...\n")
	fmt.Printf("REST: %s\n", cfg.Exchange.RESTEndpoint)
	fmt.Printf("WS:   %s\n", cfg.Exchange.WSEndpoint)

	adapter := exchange.NewBybitAdapter(cfg.Exchange.RESTEndpoint, cfg.Exchange.WSEndpoint, cfg.Exchange.Category, log)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 2. REST tickers
	for _, s := range symbols {
		price, err := adapter.GetCurrentPrice(ctx, s)
		if err != nil {
			fmt.Printf("❌ Failed to get price for %s: %v\n", s, err)
			continue
		}
		fmt.Printf("✅ Current Price (%s): %f\n", s, price)
	}

	// 3. Stream: wait for one tick per symbol
	seen := make(chan string, 64)
	adapter.OnPriceUpdate(func(symbol string, price float64) {
		fmt.Printf("📈 Tick %s: %f\n", symbol, price)
		select {
		case seen <- symbol:
		default:
		}
	})
	if err := adapter.Subscribe(symbols); err != nil {
		fmt.Printf("❌ Failed to subscribe: %v\n", err)
		os.Exit(1)
	}
	defer adapter.Close()

	pending := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		pending[s] = true
	}
	for len(pending) > 0 {
		select {
		case s := <-seen:
			delete(pending, s)
		case <-ctx.Done():
			fmt.Printf("❌ No stream ticks for %d symbol(s)\n", len(pending))
			os.Exit(1)
		}
	}
	fmt.Println("✅ Stream OK")
}
