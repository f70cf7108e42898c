package usecase

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var priceReplacer = strings.NewReplacer("$", "", ",", "")

// SanitizePrice converts numbers and price strings such as " $64,000.50 "
// into a float64. Anything it cannot parse yields 0.
func SanitizePrice(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		return SanitizePrice(x.String())
	case decimal.Decimal:
		f = x.InexactFloat64()
	case string:
		clean := strings.TrimSpace(priceReplacer.Replace(x))
		d, err := decimal.NewFromString(clean)
		if err != nil {
			return 0
		}
		f = d.InexactFloat64()
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// sanitizeTargets keeps the positive prices of a list-shaped value, in order.
// Non-list values yield an empty list.
func sanitizeTargets(v any) []float64 {
	targets := []float64{}
	switch list := v.(type) {
	case []any:
		for _, t := range list {
			if p := SanitizePrice(t); p > 0 {
				targets = append(targets, p)
			}
		}
	case []float64:
		for _, t := range list {
			if p := SanitizePrice(t); p > 0 {
				targets = append(targets, p)
			}
		}
	case []string:
		for _, t := range list {
			if p := SanitizePrice(t); p > 0 {
				targets = append(targets, p)
			}
		}
	}
	return targets
}
