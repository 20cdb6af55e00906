package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// Exchange suffix -> MIC code (ISO 10383) understood by scmhub/calendar
var suffixMIC = []struct {
	suffix string
	mic    string
}{
	{".L", "xlon"}, {".PA", "xpar"}, {".DE", "xfra"}, {".AS", "xams"},
	{".BR", "xbru"}, {".MI", "xmil"}, {".MC", "xmad"}, {".ST", "xsto"},
	{".CO", "xcse"}, {".HE", "xhel"}, {".VI", "xwbo"}, {".SW", "xswx"},
	{".TO", "xtse"}, {".V", "xtsx"}, {".T", "xtks"}, {".HK", "xhkg"},
	{".AX", "xasx"}, {".KS", "xkrx"}, {".TW", "xtai"}, {".SS", "xshg"},
	{".SZ", "xshe"},
}

const defaultMIC = "xnys"

// -----------------------------------------------------------------------------
// TradingCalendar answers whether the exchange listing a symbol is open.
// Symbols without a known suffix map to NYSE.
// -----------------------------------------------------------------------------

type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// MarketStatus is the calendar view of one symbol at one instant
type MarketStatus struct {
	Symbol     string `json:"symbol"`
	MIC        string `json:"mic"`
	Open       bool   `json:"open"`
	TradingDay bool   `json:"trading_day"`
	Timezone   string `json:"timezone"`
	LocalTime  string `json:"local_time"`
}

// -----------------------------------------------------------------------------

// MICForSymbol maps a ticker suffix to its exchange code
func MICForSymbol(symbol string) string {
	upper := strings.ToUpper(symbol)
	for _, m := range suffixMIC {
		if strings.HasSuffix(upper, m.suffix) {
			return m.mic
		}
	}
	return defaultMIC
}

// -----------------------------------------------------------------------------

func GetCalendar(symbol string) *TradingCalendar {
	mic := MICForSymbol(symbol)

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		mic = defaultMIC
		cal = calendar.GetCalendar(mic)
	}

	if cal == nil {
		// Mon-Fri 09:30-16:00 New York
		nyLoc, err := time.LoadLocation("America/New_York")
		if err != nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		minutes := t.Hour()*60 + t.Minute()
		return minutes >= 9*60+30 && minutes < 16*60
	}

	return tc.Calendar.IsOpen(t)
}

// -----------------------------------------------------------------------------

// Status reports the calendar state of symbol at t
func (tc *TradingCalendar) Status(symbol string, t time.Time) MarketStatus {
	local := t
	zone := "UTC"
	if tc.Timezone != nil {
		local = t.In(tc.Timezone)
		zone = tc.Timezone.String()
	}

	return MarketStatus{
		Symbol:     symbol,
		MIC:        tc.MIC,
		Open:       tc.IsOpenOnMinute(t),
		TradingDay: tc.IsTradingDay(t),
		Timezone:   zone,
		LocalTime:  local.Format("2006-01-02 15:04"),
	}
}
