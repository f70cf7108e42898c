package domain

import (
	"math"
	"strings"
)

// DustThreshold is the magnitude below which a position counts as flat.
const DustThreshold = 1e-8

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Opposite returns the side that reduces a position held on s.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Position is the per-symbol ledger entry: a signed holding plus its
// attached automated exit rules. Amount > 0 is long, < 0 is short.
type Position struct {
	Amount              float64   `json:"amount"`
	AvgPrice            float64   `json:"avg_price"`
	HighestPrice        float64   `json:"highest_price"`
	LowestPrice         float64   `json:"lowest_price"`
	StopLoss            *float64  `json:"stop_loss"`
	TakeProfit          *float64  `json:"take_profit"`
	TrailingStopPercent *float64  `json:"trailing_stop_percent"`
	ScalingTargets      []float64 `json:"scaling_targets"`
}

// NewPosition returns a flat position whose watermarks are seeded at price.
func NewPosition(price float64) *Position {
	return &Position{
		HighestPrice:   price,
		LowestPrice:    price,
		ScalingTargets: []float64{},
	}
}

// IsFlat reports whether the position is flat or only dust.
func (p *Position) IsFlat() bool {
	return p == nil || math.Abs(p.Amount) < DustThreshold
}

// Side returns the direction of an open position. Meaningless when flat.
func (p *Position) Side() Side {
	if p.Amount < 0 {
		return SideShort
	}
	return SideLong
}

// ExitRules is the automated exit configuration attached to a position.
type ExitRules struct {
	StopLoss            *float64  `json:"stop_loss"`
	TakeProfit          *float64  `json:"take_profit"`
	TrailingStopPercent *float64  `json:"trailing_stop_percent"`
	ScalingTargets      []float64 `json:"scaling_targets"`
}

// SetExitRules replaces every exit rule; nothing is merged.
func (p *Position) SetExitRules(r ExitRules) {
	p.StopLoss = cloneFloat(r.StopLoss)
	p.TakeProfit = cloneFloat(r.TakeProfit)
	p.TrailingStopPercent = cloneFloat(r.TrailingStopPercent)
	p.ScalingTargets = append([]float64{}, r.ScalingTargets...)
}

// ClearExitRules drops every automated exit attached to the position.
func (p *Position) ClearExitRules() {
	p.SetExitRules(ExitRules{})
}

// HasExitRules reports whether any automated exit is armed.
func (p *Position) HasExitRules() bool {
	return isSet(p.StopLoss) || isSet(p.TakeProfit) || isSet(p.TrailingStopPercent) || len(p.ScalingTargets) > 0
}

func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	c := *p
	c.StopLoss = cloneFloat(p.StopLoss)
	c.TakeProfit = cloneFloat(p.TakeProfit)
	c.TrailingStopPercent = cloneFloat(p.TrailingStopPercent)
	c.ScalingTargets = append([]float64{}, p.ScalingTargets...)
	return &c
}

// Float returns a pointer to v, or nil when v is zero. Exit-rule fields use
// nil for "not armed".
func Float(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

// Value dereferences an optional rule field, returning 0 when unset.
func Value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func isSet(v *float64) bool {
	return v != nil && *v != 0
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// NormalizeSymbol strips pair separators ("BTC/USDT" -> "BTCUSDT").
func NormalizeSymbol(symbol string) string {
	return strings.ReplaceAll(strings.TrimSpace(symbol), "/", "")
}
