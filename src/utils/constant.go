package utils

// -----------------------------------------------------------------------------

// Chart window sizing.
// A detail chart keeps the last 100 points; history pre-fills at most 50.
const (
	DefaultChartWindowSize = 100
	DefaultHistorySeedSize = 50
	DefaultListLimit       = 200
)

// Display formats for chart labels
const (
	HistoryTimeLayout = "15:04"
	TickTimeLayout    = "15:04:05"
)
