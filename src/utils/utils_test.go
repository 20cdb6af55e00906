package utils

import (
	"testing"
	"time"

	"market-pulse/src/models"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "0.00", FormatPrice(0))
	assert.Equal(t, "0.012346", FormatPrice(0.0123456))
	assert.Equal(t, "1.00", FormatPrice(1))
	assert.Equal(t, "64123.46", FormatPrice(64123.456))
}

func TestFormatEventTime(t *testing.T) {
	ms := time.Date(2025, 6, 1, 13, 5, 9, 0, time.UTC).UnixMilli()
	assert.Equal(t, "13:05", FormatEventTime(ms, HistoryTimeLayout, time.UTC))
	assert.Equal(t, "13:05:09", FormatEventTime(ms, TickTimeLayout, time.UTC))
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)
	_, ok := rb.Last()
	assert.False(t, ok)

	for i := 1; i <= 5; i++ {
		rb.Append(models.MChartPoint{Price: float64(i)})
	}

	assert.True(t, rb.IsFull())
	assert.Equal(t, 3, rb.Size())
	assert.Equal(t, []models.MChartPoint{{Price: 3}, {Price: 4}, {Price: 5}}, rb.GetAll())
	assert.Equal(t, []models.MChartPoint{{Price: 4}, {Price: 5}}, rb.GetLatest(2))

	first, _ := rb.First()
	last, _ := rb.Last()
	assert.Equal(t, 3.0, first.Price)
	assert.Equal(t, 5.0, last.Price)

	rb.Clear()
	assert.Equal(t, 0, rb.Size())
	assert.Empty(t, rb.GetAll())
}

func TestMICForSymbol(t *testing.T) {
	assert.Equal(t, "xlon", MICForSymbol("VOD.L"))
	assert.Equal(t, "xtse", MICForSymbol("shop.to"))
	assert.Equal(t, "xnys", MICForSymbol("AAPL"))
}

func TestTradingCalendar_Fallback(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	tc := &TradingCalendar{MIC: "xnys", Fallback: true, Timezone: ny}

	open := time.Date(2025, 3, 12, 10, 0, 0, 0, ny)
	assert.True(t, tc.IsOpenOnMinute(open))
	assert.False(t, tc.IsOpenOnMinute(time.Date(2025, 3, 12, 16, 0, 0, 0, ny)))
	assert.False(t, tc.IsOpenOnMinute(time.Date(2025, 3, 15, 11, 0, 0, 0, ny)))

	st := tc.Status("AAPL", open)
	assert.True(t, st.Open)
	assert.True(t, st.TradingDay)
	assert.Equal(t, "America/New_York", st.Timezone)
	assert.Equal(t, "2025-03-12 10:00", st.LocalTime)
}
