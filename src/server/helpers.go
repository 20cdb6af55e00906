package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"market-pulse/src/models"
	"market-pulse/src/preferences"
	"market-pulse/src/utils"
)

// -----------------------------------------------------------------------------

// stockView adds display formatting to a committed symbol state
type stockView struct {
	models.MSymbolState
	DisplayPrice string `json:"displayPrice"`
}

func newStockView(st models.MSymbolState) stockView {
	return stockView{MSymbolState: st, DisplayPrice: utils.FormatPrice(st.Price)}
}

func toStockViews(stocks []models.MSymbolState) []stockView {
	out := make([]stockView, len(stocks))
	for i, st := range stocks {
		out[i] = newStockView(st)
	}
	return out
}

// -----------------------------------------------------------------------------

// filterStocks matches query against symbol or name, case-insensitive.
// An empty query returns the first limit entries; a search is not capped.
func filterStocks(stocks []models.MSymbolState, query string, limit int) []models.MSymbolState {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		if limit > 0 && len(stocks) > limit {
			return stocks[:limit]
		}
		return stocks
	}

	out := make([]models.MSymbolState, 0)
	for _, st := range stocks {
		if strings.Contains(strings.ToLower(st.Symbol), query) ||
			strings.Contains(strings.ToLower(st.Name), query) {
			out = append(out, st)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func findStock(stocks []models.MSymbolState, symbol string) (models.MSymbolState, bool) {
	for _, st := range stocks {
		if strings.EqualFold(st.Symbol, symbol) {
			return st, true
		}
	}
	return models.MSymbolState{}, false
}

// -----------------------------------------------------------------------------

func marketStatus(symbol string, at time.Time) utils.MarketStatus {
	return utils.GetCalendar(symbol).Status(symbol, at)
}

// -----------------------------------------------------------------------------

func statusForError(err error) int {
	switch {
	case errors.Is(err, preferences.ErrEmptyValue):
		return http.StatusBadRequest
	case errors.Is(err, preferences.ErrWatchlistNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
