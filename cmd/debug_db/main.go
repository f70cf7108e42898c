package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vitos/paper_wallet/internal/config"
	"github.com/vitos/paper_wallet/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// debug_db compares the trade journal against the wallet snapshot history.
func main() {
	cfg, err := config.Load("config/config.yaml")
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	symbol := ""
	if len(os.Args) > 1 {
		symbol = os.Args[1]
	}

	journal, err := storage.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer journal.Close()

	ctx := context.Background()
	trades, err := journal.ListTrades(ctx, symbol, 1000)
	if err != nil {
		fmt.Printf("Failed to list trades: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d journaled trades:\n", len(trades))
	for _, t := range trades {
		fmt.Printf("- %s %s %-4s price=%f amount=%.8f total=$%.2f\n",
			t.Time, t.Pair, t.Type, t.Price, t.Amount, t.TotalUSD)
	}

	w, err := storage.NewJSONStore(cfg.Wallet.Path, cfg.Wallet.DefaultBalance, zap.NewNop()).Load(ctx)
	if err != nil {
		fmt.Printf("Failed to load wallet: %v\n", err)
		os.Exit(1)
	}

	history := 0
	for _, t := range w.History {
		if symbol == "" || t.Pair == symbol {
			history++
		}
	}
	if history == len(trades) {
		fmt.Printf("✅ Snapshot history matches journal (%d trades)\n", history)
	} else {
		fmt.Printf("⚠️ Snapshot history has %d trades, journal has %d\n", history, len(trades))
	}
}
