package app

import (
	"context"
	"fmt"
	"time"

	"market-pulse/src/config"
	"market-pulse/src/engine"
	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"
	"market-pulse/src/preferences"
	"market-pulse/src/server"
	"market-pulse/src/state"
	"market-pulse/src/storage"
	"market-pulse/src/subscription"
	"market-pulse/src/transport"
)

const (
	loopQueueSize   = 1024
	releaseTimeout  = 2 * time.Second
	storageInitWait = 10 * time.Second
)

// -----------------------------------------------------------------------------
// App wires the reconciliation engine to the source connection, the browser
// server and the preference store.
// -----------------------------------------------------------------------------

type App struct {
	Config *config.Config
	Logger *logger.Logger

	loop       *engine.EventLoop
	stopLoop   context.CancelFunc
	transport  *transport.WSTransport
	store      *state.SymbolStateStore
	rooms      *subscription.RoomRegistry
	market     *subscription.MarketWatch
	views      *ViewRegistry
	prefStore  interfaces.IPreferenceStore
	server     interfaces.IDataExchanger
	errHandler *helpers.ErrorHandler
}

// -----------------------------------------------------------------------------

func New(cfg *config.Config, log *logger.Logger) *App {
	a := &App{
		Config:     cfg,
		Logger:     log,
		errHandler: helpers.NewErrorHandler(log),
	}

	// 1. Event loop and frame clock
	a.loop = engine.NewEventLoop(loopQueueSize, log.Named("EventLoop"))
	clock := engine.NewIntervalFrameClock(cfg.FrameInterval(), a.loop.Post)

	// 2. Shared source connection
	a.transport = transport.NewWSTransport(cfg.Transport, a.loop.Post, log.Named("Transport"))

	// 3. Reconciliation core
	a.store = state.NewSymbolStateStore()
	a.rooms = subscription.NewRoomRegistry(a.transport, log.Named("Rooms"))

	// 4. Preferences (optional)
	prefs := a.setupPreferences()

	// 5. Browser server
	a.server = server.NewWebServer(cfg, prefs, server.ClientHandlers{
		OnCommand: func(clientID string, cmd models.MViewCommand) {
			a.loop.Post(func() { a.views.Handle(clientID, cmd) })
		},
		OnDisconnect: func(clientID string) {
			a.loop.Post(func() { a.views.Drop(clientID) })
		},
	}, log.Named("WebServer"))

	// 6. Views
	a.market = subscription.NewMarketWatch(a.transport, a.rooms, a.store, clock,
		cfg.MinFlushInterval(), a.server.PresentMarket, log.Named("MarketWatch"))
	a.views = NewViewRegistry(a.transport, a.rooms, a.store, clock, subscription.DetailOptions{
		WindowSize:       cfg.Chart.WindowSize,
		HistorySeed:      cfg.Chart.HistorySeed,
		MinFlushInterval: cfg.MinFlushInterval(),
		Location:         cfg.Location(),
	}, a.server, log)

	return a
}

// -----------------------------------------------------------------------------

func (a *App) setupPreferences() *preferences.Service {
	store, err := storage.NewPreferenceStore(a.Config.MConfig, a.Logger.Named("Storage"))
	if err != nil {
		a.errHandler.Handle(err, "preference store")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageInitWait)
	defer cancel()
	if err := store.Initialize(ctx); err != nil {
		a.errHandler.Handle(err, "preference store init")
		store.Close()
		return nil
	}

	a.prefStore = store
	return preferences.NewService(store, a.Logger.Named("Preferences"))
}

// -----------------------------------------------------------------------------

// Run starts every component and blocks until ctx is cancelled or the server fails
func (a *App) Run(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	a.stopLoop = stopLoop
	go a.loop.Run(loopCtx)

	// The list view is mounted before the first connect event
	if err := a.loop.Do(ctx, a.market.Mount); err != nil {
		a.Shutdown()
		return fmt.Errorf("failed to mount market watch: %w", err)
	}

	a.transport.Start(ctx)

	serverErr := make(chan error, 1)
	go func() { serverErr <- a.server.Start() }()

	var err error
	select {
	case <-ctx.Done():
		a.Logger.Info("Shutting down...")
	case err = <-serverErr:
		if err != nil {
			a.errHandler.Handle(err, "web server")
		}
	}

	a.Shutdown()
	return err
}

// -----------------------------------------------------------------------------

// Shutdown releases views on the loop, then stops server, transport and storage
func (a *App) Shutdown() {
	if err := a.server.Stop(); err != nil {
		a.errHandler.Handle(err, "web server stop")
	}

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	err := a.loop.Do(ctx, func() {
		a.views.Close()
		a.market.Release()
		a.rooms.Close()
	})
	if err != nil {
		a.Logger.Warning("Views not released cleanly: %v", err)
	}

	a.transport.Stop()
	a.loop.Stop()
	if a.stopLoop != nil {
		a.stopLoop()
	}

	if a.prefStore != nil {
		if err := a.prefStore.Close(); err != nil {
			a.errHandler.Handle(err, "preference store close")
		}
	}
}

// -----------------------------------------------------------------------------

// Server exposes the browser server (tests, embedding)
func (a *App) Server() interfaces.IDataExchanger {
	return a.server
}
