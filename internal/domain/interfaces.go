package domain

import (
	"context"
	"errors"
)

var (
	ErrPositionNotFound = errors.New("position not found")
	ErrInvalidOrder     = errors.New("price and amount must be positive")
)

// WalletStore persists the full wallet document. Save must be all-or-nothing:
// a reader never observes a partially written snapshot.
type WalletStore interface {
	Load(ctx context.Context) (*Wallet, error)
	Save(ctx context.Context, wallet *Wallet) error
}

// TradeJournal mirrors recorded trades for audit and querying.
type TradeJournal interface {
	SaveTrade(ctx context.Context, trade *Trade) error
	ListTrades(ctx context.Context, symbol string, limit int) ([]*Trade, error)
}

// PriceProvider supplies the current market price for a symbol.
type PriceProvider interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// PriceStream pushes live prices to registered callbacks.
type PriceStream interface {
	OnPriceUpdate(callback func(symbol string, price float64))
	Subscribe(symbols []string) error
}
