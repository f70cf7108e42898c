package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vitos/paper_wallet/internal/domain"
	"go.uber.org/zap"
)

// JSONStore keeps the wallet as a single JSON document on disk. Saves write
// a temp file in the same directory and rename it over the target.
type JSONStore struct {
	path           string
	defaultBalance float64
	logger         *zap.Logger
	mu             sync.Mutex
}

func NewJSONStore(path string, defaultBalance float64, logger *zap.Logger) *JSONStore {
	if defaultBalance <= 0 {
		defaultBalance = domain.DefaultBalance
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONStore{
		path:           path,
		defaultBalance: defaultBalance,
		logger:         logger,
	}
}

func (s *JSONStore) Path() string { return s.path }

// DefaultBalance is the capital a freshly created wallet starts with.
func (s *JSONStore) DefaultBalance() float64 { return s.defaultBalance }

// positionDoc mirrors domain.Position with the fields added after the first
// schema version left optional, so older files can be backfilled.
type positionDoc struct {
	Amount              float64   `json:"amount"`
	AvgPrice            float64   `json:"avg_price"`
	HighestPrice        *float64  `json:"highest_price"`
	LowestPrice         *float64  `json:"lowest_price"`
	StopLoss            *float64  `json:"stop_loss"`
	TakeProfit          *float64  `json:"take_profit"`
	TrailingStopPercent *float64  `json:"trailing_stop_percent"`
	ScalingTargets      []float64 `json:"scaling_targets"`
}

type walletDoc struct {
	InitialBalance *float64                `json:"initial_balance"`
	BalanceUSD     float64                 `json:"balance_usd"`
	Positions      map[string]*positionDoc `json:"positions"`
	History        []domain.Trade          `json:"history"`
}

// Load reads the wallet. A missing or unparseable file yields a fresh wallet
// at the default balance, which is written immediately. Older documents are
// migrated in memory; a document without initial_balance is rewritten.
func (s *JSONStore) Load(ctx context.Context) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read wallet %s: %w", s.path, err)
	}
	if err != nil {
		return s.fresh()
	}

	var doc walletDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("Wallet file is unreadable, starting fresh", zap.String("path", s.path), zap.Error(err))
		return s.fresh()
	}

	w, migrated := doc.toWallet()
	if migrated {
		s.logger.Info("Migrated wallet without initial balance", zap.Float64("initial_balance", w.InitialBalance))
		if err := s.write(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (s *JSONStore) fresh() (*domain.Wallet, error) {
	w := domain.NewWallet(s.defaultBalance)
	if err := s.write(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *JSONStore) Save(ctx context.Context, w *domain.Wallet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(w)
}

func (s *JSONStore) write(w *domain.Wallet) error {
	data, err := json.MarshalIndent(normalize(w), "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create wallet dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp wallet: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write wallet: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync wallet: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close wallet: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace wallet: %w", err)
	}
	return nil
}

// toWallet backfills missing fields. The bool reports whether initial_balance
// had to be derived.
func (d *walletDoc) toWallet() (*domain.Wallet, bool) {
	w := &domain.Wallet{
		BalanceUSD: d.BalanceUSD,
		Positions:  make(map[string]*domain.Position, len(d.Positions)),
		History:    d.History,
	}
	if w.History == nil {
		w.History = []domain.Trade{}
	}

	migrated := d.InitialBalance == nil
	if migrated {
		w.InitialBalance = d.BalanceUSD
	} else {
		w.InitialBalance = *d.InitialBalance
	}

	for sym, p := range d.Positions {
		if p == nil {
			continue
		}
		pos := &domain.Position{
			Amount:              p.Amount,
			AvgPrice:            p.AvgPrice,
			HighestPrice:        p.AvgPrice,
			LowestPrice:         p.AvgPrice,
			StopLoss:            p.StopLoss,
			TakeProfit:          p.TakeProfit,
			TrailingStopPercent: p.TrailingStopPercent,
			ScalingTargets:      p.ScalingTargets,
		}
		if p.HighestPrice != nil {
			pos.HighestPrice = *p.HighestPrice
		}
		if p.LowestPrice != nil {
			pos.LowestPrice = *p.LowestPrice
		}
		if pos.ScalingTargets == nil {
			pos.ScalingTargets = []float64{}
		}
		w.Positions[sym] = pos
	}
	return w, migrated
}

// normalize makes sure empty collections encode as [] and {} rather than null.
func normalize(w *domain.Wallet) *domain.Wallet {
	out := &domain.Wallet{
		InitialBalance: w.InitialBalance,
		BalanceUSD:     w.BalanceUSD,
		Positions:      make(map[string]*domain.Position, len(w.Positions)),
		History:        w.History,
	}
	if out.History == nil {
		out.History = []domain.Trade{}
	}
	for sym, pos := range w.Positions {
		if pos.ScalingTargets == nil {
			p := *pos
			p.ScalingTargets = []float64{}
			pos = &p
		}
		out.Positions[sym] = pos
	}
	return out
}
