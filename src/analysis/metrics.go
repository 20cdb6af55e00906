package analysis

import (
	"market-pulse/src/analysis/core"
	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------

// ComputeDerivedMetrics summarises a chart window and the latest tick.
// It is pure: the inputs are never modified.
//
// high/low/openReference stay nil for an empty window. change prefers the
// tick's own percent-change, otherwise it is measured from the first point.
func ComputeDerivedMetrics(points []models.MChartPoint, tick *models.MTick) models.MDerivedMetrics {
	m := models.MDerivedMetrics{Points: len(points)}

	if high, low, ok := core.PriceRange(points); ok {
		open := points[0].Price
		m.High = &high
		m.Low = &low
		m.OpenReference = &open
	}

	switch {
	case tick != nil && tick.Price.Valid:
		last := tick.Price.Value
		m.Last = &last
	case len(points) > 0:
		last := points[len(points)-1].Price
		m.Last = &last
	}

	switch {
	case tick != nil && tick.PercentPriceChange.Valid:
		m.Change = tick.PercentPriceChange.Value
	case m.Last != nil && m.OpenReference != nil:
		m.Change = core.CalculateChangePercent(*m.Last, *m.OpenReference)
	}

	return m
}
