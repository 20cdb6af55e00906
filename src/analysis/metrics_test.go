package analysis

import (
	"encoding/json"
	"testing"

	"market-pulse/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(prices ...float64) []models.MChartPoint {
	out := make([]models.MChartPoint, len(prices))
	for i, p := range prices {
		out[i] = models.MChartPoint{Time: "10:00", Price: p}
	}
	return out
}

func TestComputeDerivedMetrics_EmptyWindow(t *testing.T) {
	m := ComputeDerivedMetrics(nil, nil)

	assert.Nil(t, m.High)
	assert.Nil(t, m.Low)
	assert.Nil(t, m.OpenReference)
	assert.Nil(t, m.Last)
	assert.Equal(t, 0, m.Points)
	assert.Equal(t, 0.0, m.Change)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"high":null`)
	assert.Contains(t, string(raw), `"low":null`)
}

func TestComputeDerivedMetrics(t *testing.T) {
	testCases := []struct {
		name       string
		points     []models.MChartPoint
		tick       *models.MTick
		wantHigh   float64
		wantLow    float64
		wantLast   float64
		wantChange float64
	}{
		{
			name:       "change from first point without tick",
			points:     pts(100, 120, 80, 110),
			wantHigh:   120,
			wantLow:    80,
			wantLast:   110,
			wantChange: 10,
		},
		{
			name:       "tick percent change wins",
			points:     pts(100, 105),
			tick:       &models.MTick{Price: models.LooseFloat(105), PercentPriceChange: models.LooseFloat(-1.25)},
			wantHigh:   105,
			wantLow:    100,
			wantLast:   105,
			wantChange: -1.25,
		},
		{
			name:       "tick price used as last",
			points:     pts(50, 60),
			tick:       &models.MTick{Price: models.LooseFloat(55)},
			wantHigh:   60,
			wantLow:    50,
			wantLast:   55,
			wantChange: 10,
		},
		{
			name:       "zero open reference guards division",
			points:     pts(0, 5),
			wantHigh:   5,
			wantLow:    0,
			wantLast:   5,
			wantChange: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := ComputeDerivedMetrics(tc.points, tc.tick)

			require.NotNil(t, m.High)
			require.NotNil(t, m.Low)
			require.NotNil(t, m.Last)
			require.NotNil(t, m.OpenReference)
			assert.Equal(t, tc.wantHigh, *m.High)
			assert.Equal(t, tc.wantLow, *m.Low)
			assert.Equal(t, tc.wantLast, *m.Last)
			assert.Equal(t, tc.points[0].Price, *m.OpenReference)
			assert.Equal(t, len(tc.points), m.Points)
			assert.InDelta(t, tc.wantChange, m.Change, 1e-9)
		})
	}
}

func TestComputeDerivedMetrics_DoesNotMutateInput(t *testing.T) {
	in := pts(3, 1, 2)
	ComputeDerivedMetrics(in, nil)
	assert.Equal(t, pts(3, 1, 2), in)
}
