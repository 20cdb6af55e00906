package state

import (
	"time"

	"market-pulse/src/models"
	"market-pulse/src/utils"
)

// -----------------------------------------------------------------------------
// ChartWindow is the bounded, time-ordered point sequence of one subscribed
// symbol. Live points wait in a pending buffer until the next frame flushes them.
// -----------------------------------------------------------------------------

type ChartWindow struct {
	window      *utils.RingBuffer
	pending     []models.MChartPoint
	historySeed int
	loc         *time.Location
}

// -----------------------------------------------------------------------------

func NewChartWindow(capacity, historySeed int, loc *time.Location) *ChartWindow {
	if capacity <= 0 {
		capacity = utils.DefaultChartWindowSize
	}
	if historySeed < 0 || historySeed > capacity {
		historySeed = utils.DefaultHistorySeedSize
	}
	if loc == nil {
		loc = time.Local
	}

	return &ChartWindow{
		window:      utils.NewRingBuffer(capacity),
		historySeed: historySeed,
		loc:         loc,
	}
}

// -----------------------------------------------------------------------------

// Seed pre-fills the window from the last historySeed candles (oldest first).
// Points that already made it into the window stay after the history.
func (w *ChartWindow) Seed(candles []models.MCandle) int {
	start := len(candles) - w.historySeed
	if start < 0 {
		start = 0
	}

	live := w.window.GetAll()
	w.window.Clear()

	seeded := 0
	for _, c := range candles[start:] {
		w.window.Append(models.MChartPoint{
			Time:  utils.FormatEventTime(int64(c.OpenTime.Or(0)), utils.HistoryTimeLayout, w.loc),
			Price: c.Close.Or(0),
		})
		seeded++
	}
	for _, p := range live {
		w.window.Append(p)
	}

	return seeded
}

// -----------------------------------------------------------------------------

// Append queues a live point until the next Flush. The queue never holds more
// than the window could keep.
func (w *ChartWindow) Append(point models.MChartPoint) {
	w.pending = append(w.pending, point)
	if overflow := len(w.pending) - w.window.Capacity(); overflow > 0 {
		n := copy(w.pending, w.pending[overflow:])
		w.pending = w.pending[:n]
	}
}

// -----------------------------------------------------------------------------

// Flush merges pending points in arrival order and empties the queue.
// Returns how many points were merged.
func (w *ChartWindow) Flush() int {
	merged := len(w.pending)
	for _, p := range w.pending {
		w.window.Append(p)
	}
	w.pending = w.pending[:0]
	return merged
}

// -----------------------------------------------------------------------------

// Reset clears the window and the pending queue
func (w *ChartWindow) Reset() {
	w.window.Clear()
	w.pending = nil
}

// -----------------------------------------------------------------------------

// Points returns a copy of the window, oldest first
func (w *ChartWindow) Points() []models.MChartPoint {
	return w.window.GetAll()
}

// -----------------------------------------------------------------------------

func (w *ChartWindow) Len() int {
	return w.window.Size()
}

func (w *ChartWindow) PendingLen() int {
	return len(w.pending)
}

func (w *ChartWindow) Capacity() int {
	return w.window.Capacity()
}

// -----------------------------------------------------------------------------

// PointFromTick builds the chart point of a live tick. A tick without a usable
// event time is stamped with now.
func (w *ChartWindow) PointFromTick(t models.MTick, now time.Time) models.MChartPoint {
	ms := now.UnixMilli()
	if t.EventTime.Valid {
		ms = int64(t.EventTime.Value)
	}
	return models.MChartPoint{
		Time:  utils.FormatEventTime(ms, utils.TickTimeLayout, w.loc),
		Price: t.Price.Or(0),
	}
}
