package state

import (
	"market-pulse/src/analysis/core"
	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------
// SymbolStateStore maps symbol -> reconciled state and merges every update.
// It is owned by the event loop and is not safe for concurrent use; readers on
// other goroutines get copies through Subscribe.
// -----------------------------------------------------------------------------

// StoreListener receives the committed snapshot in insertion order
type StoreListener func(snapshot []models.MSymbolState)

type storeListenerEntry struct {
	id int
	fn StoreListener
}

type SymbolStateStore struct {
	entries   map[string]*models.MSymbolState
	order     []string
	listeners []storeListenerEntry
	nextID    int
}

// -----------------------------------------------------------------------------

func NewSymbolStateStore() *SymbolStateStore {
	return &SymbolStateStore{
		entries: make(map[string]*models.MSymbolState),
	}
}

// -----------------------------------------------------------------------------

// Initialize bulk-loads a market snapshot. A seed for a known symbol replaces
// its values but keeps its position.
func (s *SymbolStateStore) Initialize(seeds []models.MSymbolSeed) {
	for _, seed := range seeds {
		if seed.Symbol == "" {
			continue
		}

		price := seed.Price.Or(0)
		open1m := seed.Open1m.Or(0)
		change := seed.Change.Or(0)
		if open1m > 0 {
			change = core.CalculateChangePercent(price, open1m)
		}

		next := &models.MSymbolState{
			Symbol: seed.Symbol,
			Name:   seed.Name,
			Price:  price,
			Open1m: open1m,
			Change: change,
		}
		if existing, ok := s.entries[seed.Symbol]; ok {
			next.LastEventTime = existing.LastEventTime
		}
		s.put(next)
	}
}

// -----------------------------------------------------------------------------

// Apply merges one partial update. Malformed numbers coerce, nothing fails.
func (s *SymbolStateStore) Apply(u models.MMarketUpdate) {
	if u.Symbol == "" {
		return
	}

	// 1. Coerce price
	price := u.Price.Or(0)

	// 2. Explicit percent-change wins
	change, explicit := u.PercentPriceChange.Value, u.PercentPriceChange.Valid

	existing, ok := s.entries[u.Symbol]
	if ok {
		// 3. open1m is inherited; only a seed establishes it
		if !explicit {
			if existing.Open1m > 0 {
				change = core.CalculateChangePercent(price, existing.Open1m)
			} else {
				change = existing.Change
			}
		}
		existing.Price = price
		existing.Change = change

		// 4. Event time only moves when supplied
		if u.EventTime.Valid {
			existing.LastEventTime = int64(u.EventTime.Value)
		}
		return
	}

	open1m := u.Open1m.Or(0)
	if !explicit {
		change = 0
		if open1m > 0 {
			change = core.CalculateChangePercent(price, open1m)
		}
	}

	entry := &models.MSymbolState{
		Symbol: u.Symbol,
		Price:  price,
		Open1m: open1m,
		Change: change,
	}
	if u.EventTime.Valid {
		entry.LastEventTime = int64(u.EventTime.Value)
	}
	s.put(entry)
}

// -----------------------------------------------------------------------------

// ApplyBatch merges a market_update batch strictly in array order
func (s *SymbolStateStore) ApplyBatch(updates []models.MMarketUpdate) {
	for _, u := range updates {
		s.Apply(u)
	}
}

// -----------------------------------------------------------------------------

// Get returns a copy of the symbol's state
func (s *SymbolStateStore) Get(symbol string) (models.MSymbolState, bool) {
	entry, ok := s.entries[symbol]
	if !ok {
		return models.MSymbolState{}, false
	}
	return *entry, true
}

// -----------------------------------------------------------------------------

// Snapshot returns copies of all entries in insertion order
func (s *SymbolStateStore) Snapshot() []models.MSymbolState {
	result := make([]models.MSymbolState, 0, len(s.order))
	for _, sym := range s.order {
		result = append(result, *s.entries[sym])
	}
	return result
}

// -----------------------------------------------------------------------------

// Len returns the number of known symbols
func (s *SymbolStateStore) Len() int {
	return len(s.order)
}

// -----------------------------------------------------------------------------

// Subscribe registers a listener called on every Publish
func (s *SymbolStateStore) Subscribe(listener StoreListener) func() {
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, storeListenerEntry{id: id, fn: listener})

	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Publish hands the current snapshot to every listener. Only a committed flush calls it.
func (s *SymbolStateStore) Publish() {
	if len(s.listeners) == 0 {
		return
	}

	snapshot := s.Snapshot()
	listeners := append([]storeListenerEntry(nil), s.listeners...)
	for _, l := range listeners {
		l.fn(snapshot)
	}
}

// -----------------------------------------------------------------------------

func (s *SymbolStateStore) put(entry *models.MSymbolState) {
	if _, ok := s.entries[entry.Symbol]; !ok {
		s.order = append(s.order, entry.Symbol)
	}
	s.entries[entry.Symbol] = entry
}
