package models

import "encoding/json"

// MMarketUpdate is one partial entry of a market_update batch.
type MMarketUpdate struct {
	Symbol             string      `json:"symbol"`
	Price              MLooseFloat `json:"price"`
	PercentPriceChange MLooseFloat `json:"percent_price_change"`
	Open1m             MLooseFloat `json:"open1m"`
	EventTime          MLooseFloat `json:"event_time"`
}

// MTick is a single incremental price event for one symbol.
type MTick struct {
	Symbol             string      `json:"symbol"`
	Price              MLooseFloat `json:"price"`
	PercentPriceChange MLooseFloat `json:"percent_price_change"`
	EventTime          MLooseFloat `json:"event_time"`
}

// AsUpdate lets a tick go through the same merge path as batch entries.
func (t MTick) AsUpdate() MMarketUpdate {
	return MMarketUpdate{
		Symbol:             t.Symbol,
		Price:              t.Price,
		PercentPriceChange: t.PercentPriceChange,
		EventTime:          t.EventTime,
	}
}

// MSymbolSeed is one entry of the request_market_data snapshot.
type MSymbolSeed struct {
	Symbol string      `json:"symbol"`
	Name   string      `json:"name,omitempty"`
	Price  MLooseFloat `json:"price"`
	Open1m MLooseFloat `json:"open1m"`
	Change MLooseFloat `json:"change"`
}

// MCandle is one entry of a request_history response. Only open_time and
// close are needed to seed a chart.
type MCandle struct {
	OpenTime MLooseFloat `json:"open_time"`
	Open     MLooseFloat `json:"open"`
	High     MLooseFloat `json:"high"`
	Low      MLooseFloat `json:"low"`
	Close    MLooseFloat `json:"close"`
	Volume   MLooseFloat `json:"volume"`
}

// MAck is the acknowledgment payload of a transport request.
type MAck struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const (
	AckStatusOK    = "ok"
	AckStatusError = "error"
)
