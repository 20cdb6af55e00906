package core

import "market-pulse/src/models"

// -----------------------------------------------------------------------------

// CalculateChangePercent returns (current - previous) / previous * 100.
// A zero baseline yields 0 rather than an infinite change.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous * 100
}

// -----------------------------------------------------------------------------

// PriceRange returns high and low over points. ok is false for an empty slice.
func PriceRange(points []models.MChartPoint) (high, low float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, false
	}

	high = points[0].Price
	low = points[0].Price
	for _, p := range points[1:] {
		if p.Price > high {
			high = p.Price
		}
		if p.Price < low {
			low = p.Price
		}
	}
	return high, low, true
}
