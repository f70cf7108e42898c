package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/vitos/paper_wallet/internal/config"
	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/infrastructure/exchange"
	"github.com/vitos/paper_wallet/internal/infrastructure/logger"
	"github.com/vitos/paper_wallet/internal/infrastructure/storage"
	"github.com/vitos/paper_wallet/internal/usecase"
	"go.uber.org/zap"
)

const usage = `Usage: walletctl <command> [args]

Commands:
  show                              print the wallet document
  summary                           mark open positions to Bybit prices
  buy <symbol> <price> <amount>     buy at a fixed price
  sell <symbol> <price> <amount>    sell at a fixed price
  close <symbol> <price>            close a position
  check <symbol> <price>            run the automated exit rules once
  strategy <file.json> [usd]        execute an advisory strategy
  reset [balance]                   start over with a fresh wallet
  price <symbol>                    fetch the current Bybit price

The config file defaults to config/config.yaml; override with WALLET_CONFIG.`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}

	path := os.Getenv("WALLET_CONFIG")
	if path == "" {
		path = "config/config.yaml"
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

	if err := run(context.Background(), cfg, log, os.Args[1], os.Args[2:]); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, cmd string, args []string) error {
	bybit := exchange.NewBybitAdapter(cfg.Exchange.RESTEndpoint, cfg.Exchange.WSEndpoint, cfg.Exchange.Category, log)

	if cmd == "price" {
		if len(args) != 1 {
			return errors.New(usage)
		}
		price, err := bybit.GetCurrentPrice(ctx, domain.NormalizeSymbol(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("%s: %f\n", args[0], price)
		return nil
	}

	store := storage.NewJSONStore(cfg.Wallet.Path, cfg.Wallet.DefaultBalance, log)
	var journal domain.TradeJournal
	if cfg.Journal.Enabled {
		sqlite, err := storage.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		journal = sqlite
	}

	wallet, err := usecase.NewWalletService(ctx, store, journal, bybit, nil, log)
	if err != nil {
		return err
	}

	switch cmd {
	case "show":
		return printJSON(wallet.Snapshot())
	case "summary":
		return printJSON(wallet.Summary(ctx))
	case "buy", "sell":
		if len(args) != 3 {
			return errors.New(usage)
		}
		price, amount := usecase.SanitizePrice(args[1]), usecase.SanitizePrice(args[2])
		var res domain.Result
		if cmd == "buy" {
			res, err = wallet.Buy(ctx, args[0], price, amount)
		} else {
			res, err = wallet.Sell(ctx, args[0], price, amount)
		}
		if err != nil {
			return err
		}
		return report(res)
	case "close":
		if len(args) != 2 {
			return errors.New(usage)
		}
		res, err := wallet.ClosePosition(ctx, args[0], usecase.SanitizePrice(args[1]))
		if err != nil {
			return err
		}
		return report(res)
	case "check":
		if len(args) != 2 {
			return errors.New(usage)
		}
		monitor := usecase.NewOrderMonitor(wallet, nil, log)
		trigger, err := monitor.CheckAutomatedOrders(ctx, args[0], usecase.SanitizePrice(args[1]))
		if err != nil {
			return err
		}
		if trigger == nil {
			fmt.Println("No automated order triggered")
			return nil
		}
		fmt.Println(trigger.Message)
		return nil
	case "strategy":
		if len(args) < 1 || len(args) > 2 {
			return errors.New(usage)
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var strategy domain.Strategy
		if err := json.Unmarshal(data, &strategy); err != nil {
			return fmt.Errorf("invalid strategy file: %w", err)
		}
		var override *float64
		if len(args) == 2 {
			usd, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid usd amount %q: %w", args[1], err)
			}
			override = &usd
		}
		executor := usecase.NewStrategyExecutor(wallet, cfg.Wallet.StrategyFraction, nil, log)
		res, err := executor.ExecuteStrategy(ctx, strategy, override)
		if err != nil {
			return err
		}
		return report(res)
	case "reset":
		balance := cfg.Wallet.DefaultBalance
		if len(args) == 1 {
			balance = usecase.SanitizePrice(args[0])
		}
		if err := wallet.Reset(ctx, balance); err != nil {
			return err
		}
		fmt.Printf("✅ Wallet reset to %.2f\n", wallet.Balance())
		return nil
	default:
		return errors.New(usage)
	}
}

func report(res domain.Result) error {
	if !res.OK {
		return errors.New(res.Message)
	}
	fmt.Printf("✅ %s\n", res.Message)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
