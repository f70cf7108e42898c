package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/paper_wallet/internal/domain"
)

// SQLiteStore is the trade journal: an append-only mirror of wallet history.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			executed_at TEXT NOT NULL,
			pair TEXT NOT NULL,
			type TEXT NOT NULL,
			price REAL NOT NULL,
			amount REAL NOT NULL,
			total_usd REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_pair ON trades(pair);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// TradeJournal Implementation

func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	query := `INSERT INTO trades (id, executed_at, pair, type, price, amount, total_usd)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), trade.Time, trade.Pair, string(trade.Type), trade.Price, trade.Amount, trade.TotalUSD)
	return err
}

// ListTrades returns the newest trades first. An empty symbol lists every pair.
func (s *SQLiteStore) ListTrades(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT executed_at, pair, type, price, amount, total_usd FROM trades`
	args := []any{}
	if symbol != "" {
		query += ` WHERE pair = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var tradeType string
		if err := rows.Scan(&t.Time, &t.Pair, &tradeType, &t.Price, &t.Amount, &t.TotalUSD); err != nil {
			return nil, err
		}
		t.Type = domain.TradeType(tradeType)
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}
