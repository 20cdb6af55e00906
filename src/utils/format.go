package utils

import (
	"strconv"
	"time"
)

// -----------------------------------------------------------------------------

// FormatPrice renders a price for display: sub-unit prices keep 6 decimals
func FormatPrice(p float64) string {
	if p == 0 {
		return "0.00"
	}
	if p < 1 {
		return strconv.FormatFloat(p, 'f', 6, 64)
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// -----------------------------------------------------------------------------

// FormatEventTime renders a unix-millisecond timestamp with layout in loc
func FormatEventTime(ms int64, layout string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc).Format(layout)
}
