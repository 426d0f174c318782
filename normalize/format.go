package normalize

import (
	"math"

	"github.com/dustin/go-humanize"
)

const unknown = "Unknown"

// formatCount renders v rounded to an integer with thousands separators.
// Ties round to even.
func formatCount(v float64) string {
	return humanize.Comma(int64(math.RoundToEven(v)))
}

// formatUSD renders v as a whole-dollar amount, e.g. "$50,000,000".
func formatUSD(v float64) string {
	if v == 0 {
		return "$0"
	}
	return "$" + formatCount(v)
}

// splitPeriod splits a YYYYMM period code. A period shorter than four
// characters has an unknown year; shorter than six, an unknown month.
func splitPeriod(period string) (year, month string) {
	year, month = unknown, unknown
	if len(period) >= 4 {
		year = period[:4]
	}
	if len(period) >= 6 {
		month = period[4:]
	}
	return year, month
}
