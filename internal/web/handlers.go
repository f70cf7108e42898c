package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vitos/paper_wallet/internal/domain"
	"github.com/vitos/paper_wallet/internal/usecase"
)

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.wallet.Snapshot())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.wallet.Summary(r.Context()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balance float64 `json:"balance"`
	}
	// The body is optional; an empty one resets to the default balance.
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	if err := s.wallet.Reset(r.Context(), req.Balance); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.wallet.Snapshot())
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	pos, ok := s.wallet.PositionDetail(r.PathValue("symbol"))
	if !ok {
		s.writeError(w, domain.ErrPositionNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price any `json:"price"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.wallet.ClosePosition(r.Context(), r.PathValue("symbol"), usecase.SanitizePrice(req.Price))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, res)
}

func (s *Server) handleSetExitRules(w http.ResponseWriter, r *http.Request) {
	var rules domain.ExitRules
	if !s.decode(w, r, &rules) {
		return
	}
	res, err := s.wallet.SetExitRules(r.Context(), r.PathValue("symbol"), rules)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, res)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
		Type   string `json:"type"`
		Price  any    `json:"price"`
		Amount any    `json:"amount"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	price := usecase.SanitizePrice(req.Price)
	amount := usecase.SanitizePrice(req.Amount)

	var (
		res domain.Result
		err error
	)
	switch domain.TradeType(strings.ToUpper(req.Type)) {
	case domain.TradeBuy:
		res, err = s.wallet.Buy(r.Context(), req.Symbol, price, amount)
	case domain.TradeSell:
		res, err = s.wallet.Sell(r.Context(), req.Symbol, price, amount)
	default:
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "type must be BUY or SELL"})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, res)
}

func (s *Server) handleExecuteStrategy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		domain.Strategy
		OverrideUSD *float64 `json:"override_usd"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.strategies.ExecuteStrategy(r.Context(), req.Strategy, req.OverrideUSD)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, res)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
		Price  any    `json:"price"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	price := usecase.SanitizePrice(req.Price)
	if req.Symbol == "" || price <= 0 {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "symbol and a positive price are required"})
		return
	}

	trigger, err := s.monitor.CheckAutomatedOrders(r.Context(), req.Symbol, price)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"triggered": trigger != nil, "trigger": trigger})
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	triggers := []domain.Trigger{}
	if s.worker != nil {
		triggers = s.worker.RecentTriggers()
	}
	s.writeJSON(w, http.StatusOK, triggers)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(r.URL.Query().Get("symbol"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}

	if s.journal != nil {
		trades, err := s.journal.ListTrades(r.Context(), symbol, limit)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if trades == nil {
			trades = []*domain.Trade{}
		}
		s.writeJSON(w, http.StatusOK, trades)
		return
	}

	// Without a journal, serve the wallet history newest first.
	history := s.wallet.History()
	trades := []domain.Trade{}
	for i := len(history) - 1; i >= 0 && len(trades) < limit; i-- {
		if symbol == "" || history[i].Pair == symbol {
			trades = append(trades, history[i])
		}
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"uptime":          time.Since(s.startedAt).Round(time.Second).String(),
		"balance_usd":     s.wallet.Balance(),
		"initial_balance": s.wallet.InitialBalance(),
		"open_positions":  s.wallet.OpenSymbols(),
	})
}
