package subscription

import (
	"encoding/json"
	"errors"
	"time"

	"market-pulse/src/engine"
	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"
	"market-pulse/src/render"
	"market-pulse/src/state"
)

// Status lines of the market list
const (
	StatusMarketConnecting = "Connecting..."
	StatusMarketLoading    = "Loading Market..."
	StatusMarketLive       = "Live"
)

// -----------------------------------------------------------------------------
// MarketWatch drives the multi-symbol list: it seeds the store from the market
// snapshot, applies market_update batches and publishes through the store on
// committed frames only.
// -----------------------------------------------------------------------------

type MarketWatch struct {
	transport interfaces.ITransport
	rooms     *RoomRegistry
	store     *state.SymbolStateStore
	scheduler *render.RenderScheduler
	present   func(models.MMarketSnapshot)
	Logger    *logger.Logger

	status    string
	seeded    bool
	loading   bool
	frameTS   time.Time
	token     *engine.LifecycleToken
	offs      []func()
	offListen func()
}

// -----------------------------------------------------------------------------

func NewMarketWatch(
	transport interfaces.ITransport,
	rooms *RoomRegistry,
	store *state.SymbolStateStore,
	clock interfaces.IFrameClock,
	minInterval time.Duration,
	present func(models.MMarketSnapshot),
	log *logger.Logger,
) *MarketWatch {
	m := &MarketWatch{
		transport: transport,
		rooms:     rooms,
		store:     store,
		present:   present,
		Logger:    log,
	}
	m.scheduler = render.NewRenderScheduler(clock, minInterval, nil, m.commit)
	return m
}

// -----------------------------------------------------------------------------

// Mount joins the market room and starts listening. Calling it twice is a no-op.
func (m *MarketWatch) Mount() {
	if m.token != nil {
		return
	}

	m.token = engine.NewLifecycleToken()
	token := m.token

	m.offs = append(m.offs,
		m.transport.On(interfaces.EventMarketUpdate, func(p json.RawMessage) { m.handleUpdate(token, p) }),
		m.transport.On(interfaces.EventConnect, func(_ json.RawMessage) { m.handleConnect(token) }),
		m.transport.On(interfaces.EventDisconnect, func(_ json.RawMessage) { m.handleDisconnect(token) }),
	)
	m.offListen = m.store.Subscribe(m.publish)
	m.rooms.Acquire(MarketWatchRoom())

	if m.transport.Connected() {
		m.requestMarket(token)
	} else {
		m.setStatus(StatusMarketConnecting)
	}
}

// -----------------------------------------------------------------------------

// Release leaves the market room and drops every pending continuation
func (m *MarketWatch) Release() {
	if m.token == nil {
		return
	}

	m.scheduler.Cancel()
	for _, off := range m.offs {
		off()
	}
	m.offs = nil
	if m.offListen != nil {
		m.offListen()
		m.offListen = nil
	}
	m.token.Release()
	m.token = nil
	m.rooms.Release(MarketWatchRoom())
	m.loading = false
}

// -----------------------------------------------------------------------------

func (m *MarketWatch) Status() string {
	return m.status
}

func (m *MarketWatch) Seeded() bool {
	return m.seeded
}

// Scheduler exposes the render scheduler for inspection
func (m *MarketWatch) Scheduler() *render.RenderScheduler {
	return m.scheduler
}

// -----------------------------------------------------------------------------

func (m *MarketWatch) requestMarket(token *engine.LifecycleToken) {
	if m.loading {
		return
	}
	m.loading = true
	m.setStatus(StatusMarketLoading)

	m.transport.Request(interfaces.RequestMarketData, func(payload json.RawMessage, err error) {
		m.handleMarketData(token, payload, err)
	})
}

// -----------------------------------------------------------------------------

func (m *MarketWatch) handleMarketData(token *engine.LifecycleToken, payload json.RawMessage, err error) {
	if !token.Active() {
		m.Logger.Debug("%v", helpers.NewLifecycleRaceError("market snapshot arrived after release"))
		return
	}
	m.loading = false

	data, err := decodeAck(interfaces.RequestMarketData, payload, err)
	if err != nil {
		m.Logger.Warning("Market snapshot unavailable: %v", err)
		if errors.Is(err, helpers.ErrDisconnected) {
			// Retried on the next connect
			return
		}
		m.setStatus(helpers.StatusText(err))
		return
	}

	seeds, skipped, err := decodeEach[models.MSymbolSeed](data)
	if err != nil || skipped > 0 {
		m.Logger.Debug("Market snapshot: %d entries skipped (%v)", skipped, err)
	}

	m.store.Initialize(seeds)
	m.seeded = true
	m.Logger.Info("Market snapshot loaded: %d symbols", m.store.Len())
	m.setStatus(StatusMarketLive)
}

// -----------------------------------------------------------------------------

func (m *MarketWatch) handleUpdate(token *engine.LifecycleToken, payload json.RawMessage) {
	if !token.Active() {
		return
	}

	updates, skipped, err := decodeEach[models.MMarketUpdate](payload)
	if err != nil {
		m.Logger.Debug("Ignoring market_update: %v", err)
		return
	}
	if skipped > 0 {
		m.Logger.Debug("market_update: %d entries skipped", skipped)
	}

	m.store.ApplyBatch(updates)
	m.scheduler.RequestFlush()
}

// -----------------------------------------------------------------------------

func (m *MarketWatch) handleConnect(token *engine.LifecycleToken) {
	if !token.Active() {
		return
	}

	// Room membership is restored by the registry
	if !m.seeded {
		m.requestMarket(token)
		return
	}
	m.setStatus(StatusMarketLive)
}

// -----------------------------------------------------------------------------

func (m *MarketWatch) handleDisconnect(token *engine.LifecycleToken) {
	if !token.Active() {
		return
	}
	m.loading = false
	m.setStatus(StatusDisconnected)
}

// -----------------------------------------------------------------------------

func (m *MarketWatch) setStatus(status string) {
	m.status = status
	m.scheduler.RequestFlush()
}

// -----------------------------------------------------------------------------

func (m *MarketWatch) commit(ts time.Time) {
	m.frameTS = ts
	m.store.Publish()
}

// -----------------------------------------------------------------------------

func (m *MarketWatch) publish(stocks []models.MSymbolState) {
	if m.present == nil {
		return
	}
	m.present(models.MMarketSnapshot{
		Type:      models.SnapshotTypeMarket,
		Stocks:    stocks,
		Status:    m.status,
		Timestamp: m.frameTS.UnixMilli(),
	})
}
