package models

// Fixed keys of the persisted preference collections.
const (
	PrefKeyFavorites  = "favorites"
	PrefKeyPinned     = "pinned"
	PrefKeyWatchlists = "watchlists"
)

type MWatchlist struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

type MPreferences struct {
	Favorites  []string     `json:"favorites"`
	Pinned     []string     `json:"pinned"`
	Watchlists []MWatchlist `json:"watchlists"`
}
