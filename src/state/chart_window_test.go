package state

import (
	"testing"
	"time"

	"market-pulse/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func history(n int) []models.MCandle {
	base := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC).UnixMilli()
	out := make([]models.MCandle, n)
	for i := range out {
		out[i] = models.MCandle{
			OpenTime: models.LooseFloat(float64(base + int64(i)*60_000)),
			Close:    models.LooseFloat(float64(i)),
		}
	}
	return out
}

func prices(points []models.MChartPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}

func TestChartWindow_SeedKeepsLast50(t *testing.T) {
	w := NewChartWindow(100, 50, time.UTC)

	n := w.Seed(history(80))
	assert.Equal(t, 50, n)

	points := w.Points()
	require.Len(t, points, 50)
	assert.Equal(t, 30.0, points[0].Price)
	assert.Equal(t, 79.0, points[49].Price)
	assert.Equal(t, "10:00", points[0].Time)
}

func TestChartWindow_SeedThenLiveTail(t *testing.T) {
	w := NewChartWindow(100, 50, time.UTC)
	w.Seed(history(50))

	var all []float64
	for i := 0; i < 50; i++ {
		all = append(all, float64(i))
	}
	for i := 0; i < 60; i++ {
		p := float64(1000 + i)
		all = append(all, p)
		w.Append(models.MChartPoint{Time: "t", Price: p})
	}
	assert.Equal(t, 50, w.Len())
	assert.Equal(t, 60, w.PendingLen())

	merged := w.Flush()
	assert.Equal(t, 60, merged)
	assert.Equal(t, 0, w.PendingLen())
	assert.Equal(t, 100, w.Len())
	assert.Equal(t, all[len(all)-100:], prices(w.Points()))
}

func TestChartWindow_NeverExceedsCapacity(t *testing.T) {
	w := NewChartWindow(100, 50, time.UTC)

	for burst := 0; burst < 5; burst++ {
		for i := 0; i < 333; i++ {
			w.Append(models.MChartPoint{Price: float64(burst*1000 + i)})
			assert.LessOrEqual(t, w.PendingLen(), 100)
		}
		w.Flush()
		require.Equal(t, 100, w.Len())

		points := w.Points()
		assert.Equal(t, float64(burst*1000+233), points[0].Price)
		assert.Equal(t, float64(burst*1000+332), points[99].Price)
	}
}

func TestChartWindow_SeedAfterLivePoints(t *testing.T) {
	w := NewChartWindow(100, 50, time.UTC)
	w.Append(models.MChartPoint{Price: 500})
	w.Flush()

	w.Seed(history(3))
	assert.Equal(t, []float64{0, 1, 2, 500}, prices(w.Points()))
}

func TestChartWindow_Reset(t *testing.T) {
	w := NewChartWindow(10, 5, time.UTC)
	w.Seed(history(5))
	w.Append(models.MChartPoint{Price: 1})

	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 0, w.PendingLen())
	assert.Empty(t, w.Points())
	assert.Equal(t, 0, w.Flush())
}

func TestChartWindow_PointFromTick(t *testing.T) {
	w := NewChartWindow(10, 5, time.UTC)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	withTime := models.MTick{
		Price:     models.LooseFloat(12.5),
		EventTime: models.LooseFloat(float64(time.Date(2025, 1, 2, 15, 16, 17, 0, time.UTC).UnixMilli())),
	}
	p := w.PointFromTick(withTime, now)
	assert.Equal(t, "15:16:17", p.Time)
	assert.Equal(t, 12.5, p.Price)

	p = w.PointFromTick(models.MTick{}, now)
	assert.Equal(t, "03:04:05", p.Time)
	assert.Equal(t, 0.0, p.Price)
}
