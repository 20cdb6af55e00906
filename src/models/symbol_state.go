package models

// MSymbolState is the reconciled view of one symbol.
type MSymbolState struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price"`
	Open1m        float64 `json:"open1m"`
	Change        float64 `json:"change"` // percent
	LastEventTime int64   `json:"lastEventTime,omitempty"`
}

// MChartPoint is a display-ready point of a chart window.
type MChartPoint struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}

// MDerivedMetrics are recomputed from a chart window at every committed flush.
// Nil pointers serialise to null so an empty window never shows a fake 0.
type MDerivedMetrics struct {
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	Last          *float64 `json:"last"`
	OpenReference *float64 `json:"openReference"`
	Points        int      `json:"points"`
	Change        float64  `json:"change"`
}
