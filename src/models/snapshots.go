package models

// -----------------------------------------------------------------------------
// Committed snapshots handed to the presentation layer
// -----------------------------------------------------------------------------

const (
	SnapshotTypeMarket = "MARKET"
	SnapshotTypeDetail = "DETAIL"
)

type MMarketSnapshot struct {
	Type      string         `json:"type"`
	Stocks    []MSymbolState `json:"stocks"`
	Status    string         `json:"status"`
	Timestamp int64          `json:"timestamp"` // unix ms of the committing frame
}

type MDetailSnapshot struct {
	Type      string          `json:"type"`
	Symbol    string          `json:"symbol"`
	State     string          `json:"state"`
	Status    string          `json:"status"`
	Tick      *MTick          `json:"tick"`
	Points    []MChartPoint   `json:"points"`
	Metrics   MDerivedMetrics `json:"metrics"`
	Timestamp int64           `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// MViewCommand for browser client messages
// -----------------------------------------------------------------------------

const (
	CommandSubscribe   = "subscribe"
	CommandUnsubscribe = "unsubscribe"
)

type MViewCommand struct {
	Command string `json:"command"`
	Symbol  string `json:"symbol"`
}
