package usecase

import "github.com/dustin/go-humanize"

// formatUSD renders v as "$1,234.56".
func formatUSD(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}
