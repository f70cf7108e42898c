package domain

// PositionValuation is an open position marked to a current price.
type PositionValuation struct {
	Symbol           string  `json:"symbol"`
	Side             Side    `json:"side"`
	Amount           float64 `json:"amount"`
	AvgPrice         float64 `json:"avg_price"`
	CurrentPrice     float64 `json:"current_price"`
	MarketValue      float64 `json:"market_value"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	UnrealizedPnLPct float64 `json:"unrealized_pnl_pct"`
	Stale            bool    `json:"stale"` // priced at avg_price, the provider failed
}

// PortfolioSummary values the wallet against its initial capital.
type PortfolioSummary struct {
	InitialBalance float64             `json:"initial_balance"`
	BalanceUSD     float64             `json:"balance_usd"`
	Equity         float64             `json:"equity"`
	TotalPnL       float64             `json:"total_pnl"`
	TotalPnLPct    float64             `json:"total_pnl_pct"`
	Positions      []PositionValuation `json:"positions"`
}
