package domain

import "time"

// DefaultBalance is the starting capital of a freshly created wallet.
const DefaultBalance = 10000.0

// TradeTimeLayout is the layout of Trade.Time.
const TradeTimeLayout = "2006-01-02 15:04:05"

type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// Trade is an immutable history entry. Amount is rounded to 8 decimals and
// TotalUSD to 2.
type Trade struct {
	Time     string    `json:"time"`
	Pair     string    `json:"pair"`
	Type     TradeType `json:"type"`
	Price    float64   `json:"price"`
	Amount   float64   `json:"amount"`
	TotalUSD float64   `json:"total_usd"`
}

// ExecutedAt parses Time in the local zone.
func (t Trade) ExecutedAt() (time.Time, error) {
	return time.ParseInLocation(TradeTimeLayout, t.Time, time.Local)
}

// Wallet is the whole paper-trading aggregate, persisted as one document.
type Wallet struct {
	InitialBalance float64              `json:"initial_balance"`
	BalanceUSD     float64              `json:"balance_usd"`
	Positions      map[string]*Position `json:"positions"`
	History        []Trade              `json:"history"`
}

func NewWallet(balance float64) *Wallet {
	return &Wallet{
		InitialBalance: balance,
		BalanceUSD:     balance,
		Positions:      make(map[string]*Position),
		History:        []Trade{},
	}
}

// Clone returns a deep copy. History entries are immutable values so the
// backing array is copied, not the elements' contents.
func (w *Wallet) Clone() *Wallet {
	c := &Wallet{
		InitialBalance: w.InitialBalance,
		BalanceUSD:     w.BalanceUSD,
		Positions:      make(map[string]*Position, len(w.Positions)),
		History:        make([]Trade, len(w.History)),
	}
	for sym, pos := range w.Positions {
		c.Positions[sym] = pos.Clone()
	}
	copy(c.History, w.History)
	return c
}

// Result is the outcome of a business operation. A failed Result never
// mutates the wallet.
type Result struct {
	OK      bool   `json:"success"`
	Message string `json:"message"`
}

func Ok(msg string) Result   { return Result{OK: true, Message: msg} }
func Fail(msg string) Result { return Result{OK: false, Message: msg} }
