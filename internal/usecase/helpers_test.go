package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/usecase"
)

const eps = 1e-9

// MockStore keeps the last saved snapshot in memory.
type MockStore struct {
	mu      sync.Mutex
	wallet  *domain.Wallet
	Saves   int
	SaveErr error
	Default float64
}

func NewMockStore(balance float64) *MockStore {
	return &MockStore{wallet: domain.NewWallet(balance)}
}

func (m *MockStore) Load(ctx context.Context) (*domain.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wallet.Clone(), nil
}

func (m *MockStore) Save(ctx context.Context, w *domain.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.wallet = w.Clone()
	m.Saves++
	return nil
}

func (m *MockStore) DefaultBalance() float64 { return m.Default }

// Saved returns a copy of the last persisted snapshot.
func (m *MockStore) Saved() *domain.Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wallet.Clone()
}

type MockJournal struct {
	Trades  []domain.Trade
	SaveErr error
}

func (m *MockJournal) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Trades = append(m.Trades, *trade)
	return nil
}

func (m *MockJournal) ListTrades(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for i := range m.Trades {
		out = append(out, &m.Trades[i])
	}
	return out, nil
}

// MockPrices serves fixed prices; unknown symbols fail.
type MockPrices struct {
	mu     sync.Mutex
	Prices map[string]float64
	Calls  int
}

func (m *MockPrices) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	p, ok := m.Prices[symbol]
	if !ok {
		return 0, errors.New("no price for " + symbol)
	}
	return p, nil
}

func (m *MockPrices) Set(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prices[symbol] = price
}

func newTestWallet(t *testing.T, balance float64) (*usecase.WalletService, *MockStore) {
	t.Helper()
	store := NewMockStore(balance)
	svc, err := usecase.NewWalletService(context.Background(), store, nil, nil, nil, nil)
	require.NoError(t, err)
	return svc, store
}

func ptr(v float64) *float64 { return &v }
