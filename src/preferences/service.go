package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Service manages the user's favorites, pinned symbols and watchlists on top
// of a key/value preference store. Each collection is one JSON array.
// -----------------------------------------------------------------------------

type Service struct {
	store  interfaces.IPreferenceStore
	mu     sync.Mutex
	newID  func() string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewService(store interfaces.IPreferenceStore, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		newID:  func() string { return uuid.NewString() },
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// Get returns all three collections
func (s *Service) Get(ctx context.Context) (models.MPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prefs models.MPreferences
	var err error

	if prefs.Favorites, err = s.loadSymbols(ctx, models.PrefKeyFavorites); err != nil {
		return prefs, err
	}
	if prefs.Pinned, err = s.loadSymbols(ctx, models.PrefKeyPinned); err != nil {
		return prefs, err
	}
	if prefs.Watchlists, err = s.loadWatchlists(ctx); err != nil {
		return prefs, err
	}
	return prefs, nil
}

// -----------------------------------------------------------------------------

// ToggleFavorite adds symbol at the front or removes it. Returns the new list.
func (s *Service) ToggleFavorite(ctx context.Context, symbol string) ([]string, error) {
	return s.toggle(ctx, models.PrefKeyFavorites, symbol)
}

// TogglePinned adds symbol at the front or removes it. Returns the new list.
func (s *Service) TogglePinned(ctx context.Context, symbol string) ([]string, error) {
	return s.toggle(ctx, models.PrefKeyPinned, symbol)
}

// -----------------------------------------------------------------------------

// CreateWatchlist prepends an empty watchlist. Blank names are rejected.
func (s *Service) CreateWatchlist(ctx context.Context, name string) (models.MWatchlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.MWatchlist{}, fmt.Errorf("watchlist name: %w", ErrEmptyValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.loadWatchlists(ctx)
	if err != nil {
		return models.MWatchlist{}, err
	}

	wl := models.MWatchlist{ID: s.newID(), Name: name, Symbols: []string{}}
	lists = append([]models.MWatchlist{wl}, lists...)

	if err := s.save(ctx, models.PrefKeyWatchlists, lists); err != nil {
		return models.MWatchlist{}, err
	}
	s.Logger.Info("Created watchlist '%s' (%s)", wl.Name, wl.ID)
	return wl, nil
}

// -----------------------------------------------------------------------------

// AddToWatchlist appends symbol to watchlist id unless already present
func (s *Service) AddToWatchlist(ctx context.Context, id string, symbol string) (models.MWatchlist, error) {
	if symbol == "" {
		return models.MWatchlist{}, fmt.Errorf("symbol: %w", ErrEmptyValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.loadWatchlists(ctx)
	if err != nil {
		return models.MWatchlist{}, err
	}

	for i := range lists {
		if lists[i].ID != id {
			continue
		}
		if !contains(lists[i].Symbols, symbol) {
			lists[i].Symbols = append(lists[i].Symbols, symbol)
			if err := s.save(ctx, models.PrefKeyWatchlists, lists); err != nil {
				return models.MWatchlist{}, err
			}
		}
		return lists[i], nil
	}

	return models.MWatchlist{}, ErrWatchlistNotFound
}

var (
	// ErrWatchlistNotFound is returned for an unknown watchlist id
	ErrWatchlistNotFound = errors.New("watchlist not found")
	ErrEmptyValue        = errors.New("value cannot be empty")
)

// -----------------------------------------------------------------------------

func (s *Service) toggle(ctx context.Context, key string, symbol string) ([]string, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol: %w", ErrEmptyValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadSymbols(ctx, key)
	if err != nil {
		return nil, err
	}

	if contains(list, symbol) {
		next := make([]string, 0, len(list))
		for _, sym := range list {
			if sym != symbol {
				next = append(next, sym)
			}
		}
		list = next
	} else {
		list = append([]string{symbol}, list...)
	}

	if err := s.save(ctx, key, list); err != nil {
		return nil, err
	}
	return list, nil
}

// -----------------------------------------------------------------------------

func (s *Service) loadSymbols(ctx context.Context, key string) ([]string, error) {
	list := []string{}
	if err := s.load(ctx, key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) loadWatchlists(ctx context.Context) ([]models.MWatchlist, error) {
	lists := []models.MWatchlist{}
	if err := s.load(ctx, models.PrefKeyWatchlists, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// -----------------------------------------------------------------------------

// load decodes key into dst. A corrupt value is logged and treated as empty.
func (s *Service) load(ctx context.Context, key string, dst interface{}) error {
	raw, err := s.store.Load(ctx, key)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.Logger.Warning("%v", helpers.NewMalformedDataError(fmt.Sprintf("discarding unreadable %s", key), err))
	}
	return nil
}

func (s *Service) save(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.store.Save(ctx, key, raw)
}

// -----------------------------------------------------------------------------

func contains(list []string, symbol string) bool {
	for _, s := range list {
		if s == symbol {
			return true
		}
	}
	return false
}
