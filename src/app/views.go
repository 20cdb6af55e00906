package app

import (
	"strings"

	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"
	"market-pulse/src/state"
	"market-pulse/src/subscription"
)

// -----------------------------------------------------------------------------
// ViewRegistry keeps one detail subscription per browser client.
// Every method runs on the event loop.
// -----------------------------------------------------------------------------

type ViewRegistry struct {
	transport interfaces.ITransport
	rooms     *subscription.RoomRegistry
	store     *state.SymbolStateStore
	clock     interfaces.IFrameClock
	opts      subscription.DetailOptions
	presenter interfaces.IPresenter
	Logger    *logger.Logger

	views map[string]*subscription.SymbolSubscription
}

// -----------------------------------------------------------------------------

func NewViewRegistry(
	transport interfaces.ITransport,
	rooms *subscription.RoomRegistry,
	store *state.SymbolStateStore,
	clock interfaces.IFrameClock,
	opts subscription.DetailOptions,
	presenter interfaces.IPresenter,
	log *logger.Logger,
) *ViewRegistry {
	return &ViewRegistry{
		transport: transport,
		rooms:     rooms,
		store:     store,
		clock:     clock,
		opts:      opts,
		presenter: presenter,
		Logger:    log,
		views:     make(map[string]*subscription.SymbolSubscription),
	}
}

// -----------------------------------------------------------------------------

// Handle applies a client command. Subscribing while a view is open switches it.
func (r *ViewRegistry) Handle(clientID string, cmd models.MViewCommand) {
	switch cmd.Command {
	case models.CommandSubscribe:
		symbol := strings.TrimSpace(cmd.Symbol)
		if symbol == "" {
			r.Drop(clientID)
			return
		}

		view, ok := r.views[clientID]
		if !ok {
			view = subscription.NewSymbolSubscription(clientID, r.transport, r.rooms, r.store, r.clock, r.opts,
				func(s models.MDetailSnapshot) { r.presenter.PresentDetail(clientID, s) },
				r.Logger.Named("View"))
			r.views[clientID] = view
			r.Logger.Debug("Client %s opened %s", clientID, symbol)
			view.Mount(symbol)
			return
		}
		if view.Symbol() == symbol {
			return
		}
		r.Logger.Debug("Client %s switched %s -> %s", clientID, view.Symbol(), symbol)
		view.Switch(symbol)

	case models.CommandUnsubscribe:
		r.Drop(clientID)
	}
}

// -----------------------------------------------------------------------------

// Drop releases the view of clientID, if any
func (r *ViewRegistry) Drop(clientID string) {
	view, ok := r.views[clientID]
	if !ok {
		return
	}
	view.Release()
	delete(r.views, clientID)
}

// -----------------------------------------------------------------------------

// View returns the open subscription of clientID
func (r *ViewRegistry) View(clientID string) (*subscription.SymbolSubscription, bool) {
	view, ok := r.views[clientID]
	return view, ok
}

func (r *ViewRegistry) Len() int {
	return len(r.views)
}

// -----------------------------------------------------------------------------

// Close releases every open view
func (r *ViewRegistry) Close() {
	for id := range r.views {
		r.Drop(id)
	}
}
