package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	BybitBaseURL = "https://api.bybit.com"
	BybitWSURL   = "wss://stream.bybit.com/v5/public/linear"

	wsPingInterval = 20 * time.Second
)

// BybitAdapter reads public market data: REST tickers for on-demand prices
// and the tickers websocket stream for live ones. It never places orders.
type BybitAdapter struct {
	baseURL  string
	wsURL    string
	category string
	client   *http.Client
	logger   *zap.Logger

	mu        sync.Mutex
	wsConn    *websocket.Conn
	wsDone    chan struct{}
	callbacks []func(symbol string, price float64)
	symbols   map[string]bool
}

func NewBybitAdapter(baseURL, wsURL, category string, logger *zap.Logger) *BybitAdapter {
	if baseURL == "" {
		baseURL = BybitBaseURL
	}
	if wsURL == "" {
		wsURL = BybitWSURL
	}
	if category == "" {
		category = "linear"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BybitAdapter{
		baseURL:  strings.TrimRight(baseURL, "/"),
		wsURL:    wsURL,
		category: category,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		symbols:  make(map[string]bool),
	}
}

// --- REST API ---

func (b *BybitAdapter) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("category", b.category)
	q.Set("symbol", symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v5/market/tickers?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("API error: %s", string(body))
	}

	var result struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				Symbol    string `json:"symbol"`
				LastPrice string `json:"lastPrice"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, err
	}
	if result.RetCode != 0 {
		return 0, fmt.Errorf("API error %d: %s", result.RetCode, result.RetMsg)
	}
	if len(result.Result.List) == 0 {
		return 0, fmt.Errorf("symbol not found: %s", symbol)
	}

	return strconv.ParseFloat(result.Result.List[0].LastPrice, 64)
}

// --- WebSocket ---

func (b *BybitAdapter) OnPriceUpdate(callback func(symbol string, price float64)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = append(b.callbacks, callback)
}

// Subscribe dials the stream on first use and subscribes to the tickers of
// symbols not yet subscribed.
func (b *BybitAdapter) Subscribe(symbols []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var fresh []string
	for _, s := range symbols {
		if !b.symbols[s] {
			fresh = append(fresh, s)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	if b.wsConn == nil {
		c, _, err := websocket.DefaultDialer.Dial(b.wsURL, nil)
		if err != nil {
			return err
		}
		b.wsConn = c
		b.wsDone = make(chan struct{})
		go b.readLoop(c, b.wsDone)
		go b.pingLoop(c, b.wsDone)
	}

	args := make([]string, len(fresh))
	for i, s := range fresh {
		args[i] = "tickers." + s
	}
	if err := b.wsConn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
		return err
	}
	for _, s := range fresh {
		b.symbols[s] = true
	}
	return nil
}

// Close stops the stream. Subscriptions are forgotten.
func (b *BybitAdapter) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wsConn == nil {
		return nil
	}
	err := b.wsConn.Close()
	b.wsConn = nil
	b.symbols = make(map[string]bool)
	return err
}

func (b *BybitAdapter) pingLoop(c *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b.mu.Lock()
			err := c.WriteJSON(map[string]string{"op": "ping"})
			b.mu.Unlock()
			if err != nil {
				b.logger.Warn("WS ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (b *BybitAdapter) readLoop(c *websocket.Conn, done chan struct{}) {
	defer func() {
		close(done)
		c.Close()
		b.mu.Lock()
		if b.wsConn == c {
			b.wsConn = nil
			b.symbols = make(map[string]bool)
		}
		b.mu.Unlock()
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			b.logger.Warn("WS read error", zap.Error(err))
			return
		}

		symbol, price, ok := parseTickerMessage(message)
		if !ok {
			continue
		}

		b.mu.Lock()
		callbacks := make([]func(string, float64), len(b.callbacks))
		copy(callbacks, b.callbacks)
		b.mu.Unlock()

		for _, cb := range callbacks {
			cb(symbol, price)
		}
	}
}

// parseTickerMessage extracts the last price from a tickers.* frame. Delta
// frames without a lastPrice are skipped.
func parseTickerMessage(message []byte) (string, float64, bool) {
	var event struct {
		Topic string `json:"topic"`
		Data  struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"data"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		return "", 0, false
	}
	if !strings.HasPrefix(event.Topic, "tickers.") || event.Data.LastPrice == "" {
		return "", 0, false
	}
	price, err := strconv.ParseFloat(event.Data.LastPrice, 64)
	if err != nil || price <= 0 {
		return "", 0, false
	}
	symbol := event.Data.Symbol
	if symbol == "" {
		symbol = strings.TrimPrefix(event.Topic, "tickers.")
	}
	return symbol, price, true
}
