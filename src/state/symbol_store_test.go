package state

import (
	"encoding/json"
	"math/rand"
	"testing"

	"market-pulse/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lf(v float64) models.MLooseFloat {
	return models.LooseFloat(v)
}

func TestSymbolStateStore_SeedThenUpdate(t *testing.T) {
	s := NewSymbolStateStore()
	s.Initialize([]models.MSymbolSeed{{Symbol: "BTC", Price: lf(100), Open1m: lf(90)}})

	s.Apply(models.MMarketUpdate{Symbol: "BTC", Price: lf(99)})

	st, ok := s.Get("BTC")
	require.True(t, ok)
	assert.Equal(t, 99.0, st.Price)
	assert.Equal(t, 90.0, st.Open1m)
	assert.InDelta(t, 10.0, st.Change, 1e-9)
}

func TestSymbolStateStore_Apply(t *testing.T) {
	testCases := []struct {
		name       string
		seed       []models.MSymbolSeed
		updates    []models.MMarketUpdate
		wantPrice  float64
		wantOpen   float64
		wantChange float64
		wantTime   int64
	}{
		{
			name:       "explicit percent change wins over open1m",
			seed:       []models.MSymbolSeed{{Symbol: "X", Price: lf(10), Open1m: lf(8)}},
			updates:    []models.MMarketUpdate{{Symbol: "X", Price: lf(12), PercentPriceChange: lf(-3.5)}},
			wantPrice:  12,
			wantOpen:   8,
			wantChange: -3.5,
		},
		{
			name:       "unknown symbol without open1m gets change 0",
			updates:    []models.MMarketUpdate{{Symbol: "X", Price: lf(50)}},
			wantPrice:  50,
			wantChange: 0,
		},
		{
			name:       "unknown symbol takes open1m from the update",
			updates:    []models.MMarketUpdate{{Symbol: "X", Price: lf(11), Open1m: lf(10)}},
			wantPrice:  11,
			wantOpen:   10,
			wantChange: 10,
		},
		{
			name: "open1m on a later update is ignored",
			updates: []models.MMarketUpdate{
				{Symbol: "X", Price: lf(11), Open1m: lf(10)},
				{Symbol: "X", Price: lf(12), Open1m: lf(1)},
			},
			wantPrice:  12,
			wantOpen:   10,
			wantChange: 20,
		},
		{
			name: "without open1m change keeps its previous value",
			updates: []models.MMarketUpdate{
				{Symbol: "X", Price: lf(5), PercentPriceChange: lf(2)},
				{Symbol: "X", Price: lf(6)},
			},
			wantPrice:  6,
			wantChange: 2,
		},
		{
			name:       "invalid price coerces to 0",
			seed:       []models.MSymbolSeed{{Symbol: "X", Price: lf(10)}},
			updates:    []models.MMarketUpdate{{Symbol: "X"}},
			wantPrice:  0,
			wantChange: 0,
		},
		{
			name: "event time only moves when supplied",
			updates: []models.MMarketUpdate{
				{Symbol: "X", Price: lf(1), EventTime: lf(1700000000000)},
				{Symbol: "X", Price: lf(2)},
			},
			wantPrice: 2,
			wantTime:  1700000000000,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSymbolStateStore()
			s.Initialize(tc.seed)
			s.ApplyBatch(tc.updates)

			st, ok := s.Get("X")
			require.True(t, ok)
			assert.Equal(t, tc.wantPrice, st.Price)
			assert.Equal(t, tc.wantOpen, st.Open1m)
			assert.InDelta(t, tc.wantChange, st.Change, 1e-9)
			assert.Equal(t, tc.wantTime, st.LastEventTime)
		})
	}
}

func TestSymbolStateStore_MalformedPayloadNeverFails(t *testing.T) {
	var updates []models.MMarketUpdate
	payload := `[{"symbol":"A","price":"abc","percent_price_change":null,"event_time":"x"},{"symbol":"B","price":"12.5","open1m":true}]`
	require.NoError(t, json.Unmarshal([]byte(payload), &updates))

	s := NewSymbolStateStore()
	s.ApplyBatch(updates)

	a, _ := s.Get("A")
	b, _ := s.Get("B")
	assert.Equal(t, 0.0, a.Price)
	assert.Equal(t, 0.0, a.Change)
	assert.Equal(t, 12.5, b.Price)
	assert.Equal(t, 0.0, b.Open1m)
}

func TestSymbolStateStore_LastPriceWins(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	symbols := []string{"A", "B", "C", "D"}
	want := map[string]float64{}

	s := NewSymbolStateStore()
	for batch := 0; batch < 50; batch++ {
		var updates []models.MMarketUpdate
		for i := 0; i < 1+r.Intn(8); i++ {
			sym := symbols[r.Intn(len(symbols))]
			price := float64(r.Intn(10000)) / 100
			updates = append(updates, models.MMarketUpdate{Symbol: sym, Price: lf(price)})
			want[sym] = price
		}
		s.ApplyBatch(updates)
	}

	for sym, price := range want {
		st, ok := s.Get(sym)
		require.True(t, ok)
		assert.Equal(t, price, st.Price, sym)
	}
}

func TestSymbolStateStore_ChangeTracksOpen1m(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	s := NewSymbolStateStore()
	s.Initialize([]models.MSymbolSeed{{Symbol: "Z", Price: lf(40), Open1m: lf(37.5)}})

	for i := 0; i < 200; i++ {
		s.Apply(models.MMarketUpdate{Symbol: "Z", Price: lf(30 + r.Float64()*20)})
		st, _ := s.Get("Z")
		assert.InDelta(t, (st.Price-37.5)/37.5*100, st.Change, 1e-9)
	}
}

func TestSymbolStateStore_SnapshotOrderAndReseed(t *testing.T) {
	s := NewSymbolStateStore()
	s.Initialize([]models.MSymbolSeed{
		{Symbol: "A", Price: lf(1)},
		{Symbol: ""},
		{Symbol: "B", Price: lf(2), Change: lf(4)},
	})
	s.Apply(models.MMarketUpdate{Symbol: "C", Price: lf(3), EventTime: lf(5)})
	s.Initialize([]models.MSymbolSeed{{Symbol: "C", Name: "Coin", Price: lf(9)}})

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{snap[0].Symbol, snap[1].Symbol, snap[2].Symbol})
	assert.Equal(t, 4.0, snap[1].Change)
	assert.Equal(t, "Coin", snap[2].Name)
	assert.Equal(t, int64(5), snap[2].LastEventTime)

	// Copies, not references
	snap[0].Price = 1000
	a, _ := s.Get("A")
	assert.Equal(t, 1.0, a.Price)
}

func TestSymbolStateStore_SubscribePublish(t *testing.T) {
	s := NewSymbolStateStore()
	var calls int
	var last []models.MSymbolState
	off := s.Subscribe(func(snapshot []models.MSymbolState) {
		calls++
		last = snapshot
	})

	s.Apply(models.MMarketUpdate{Symbol: "A", Price: lf(1)})
	assert.Equal(t, 0, calls)

	s.Publish()
	assert.Equal(t, 1, calls)
	require.Len(t, last, 1)

	off()
	s.Publish()
	assert.Equal(t, 1, calls)
}
