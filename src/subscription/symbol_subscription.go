package subscription

import (
	"encoding/json"
	"time"

	"market-pulse/src/analysis"
	"market-pulse/src/engine"
	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"
	"market-pulse/src/render"
	"market-pulse/src/state"
)

// -----------------------------------------------------------------------------
// State of a symbol detail subscription
// -----------------------------------------------------------------------------

type State int

const (
	Idle State = iota
	Connecting
	HistoryLoading
	WaitingForTicks
	Live
	Disconnected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case HistoryLoading:
		return "history_loading"
	case WaitingForTicks:
		return "waiting_for_ticks"
	case Live:
		return "live"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Status lines shown next to the chart
const (
	StatusConnecting      = "Connecting..."
	StatusFetchingHistory = "Fetching History..."
	StatusWaitingForTicks = "Waiting for Live Ticks..."
	StatusLive            = "Live"
	StatusDisconnected    = "Disconnected"
)

// -----------------------------------------------------------------------------

// DetailOptions configure the chart of a detail subscription
type DetailOptions struct {
	WindowSize       int
	HistorySeed      int
	MinFlushInterval time.Duration
	Location         *time.Location
}

// -----------------------------------------------------------------------------
// SymbolSubscription drives one detail view: room membership, history seed,
// live ticks, and rate-limited snapshots of the chart.
// All methods run on the event loop.
// -----------------------------------------------------------------------------

type SymbolSubscription struct {
	ID        string
	transport interfaces.ITransport
	rooms     *RoomRegistry
	store     *state.SymbolStateStore
	chart     *state.ChartWindow
	scheduler *render.RenderScheduler
	present   func(models.MDetailSnapshot)
	now       func() time.Time
	Logger    *logger.Logger

	symbol        string
	state         State
	status        string
	tick          *models.MTick
	historyLoaded bool
	token         *engine.LifecycleToken
	offs          []func()
}

// -----------------------------------------------------------------------------

func NewSymbolSubscription(
	id string,
	transport interfaces.ITransport,
	rooms *RoomRegistry,
	store *state.SymbolStateStore,
	clock interfaces.IFrameClock,
	opts DetailOptions,
	present func(models.MDetailSnapshot),
	log *logger.Logger,
) *SymbolSubscription {
	s := &SymbolSubscription{
		ID:        id,
		transport: transport,
		rooms:     rooms,
		store:     store,
		chart:     state.NewChartWindow(opts.WindowSize, opts.HistorySeed, opts.Location),
		present:   present,
		now:       time.Now,
		Logger:    log,
	}
	s.scheduler = render.NewRenderScheduler(clock, opts.MinFlushInterval, s.merge, s.commit)
	return s
}

// -----------------------------------------------------------------------------

// Mount subscribes to symbol. Any previous subscription is released first.
func (s *SymbolSubscription) Mount(symbol string) {
	s.Release()
	if symbol == "" {
		return
	}

	s.symbol = symbol
	s.token = engine.NewLifecycleToken()
	s.chart.Reset()
	s.tick = nil
	s.historyLoaded = false

	token := s.token
	s.offs = append(s.offs,
		s.transport.On(interfaces.EventTick, func(p json.RawMessage) { s.handleTick(token, p) }),
		s.transport.On(interfaces.EventConnect, func(_ json.RawMessage) { s.handleConnect(token) }),
		s.transport.On(interfaces.EventDisconnect, func(_ json.RawMessage) { s.handleDisconnect(token) }),
	)
	s.rooms.Acquire(StockRoom(symbol))

	if s.transport.Connected() {
		s.loadHistory(token)
	} else {
		s.offs = append(s.offs, s.transport.Once(interfaces.EventConnect, func(_ json.RawMessage) {
			s.handleFirstConnect(token)
		}))
		s.setState(Connecting, StatusConnecting)
	}
	s.Logger.Info("Subscribed to %s (view %s)", symbol, s.ID)
}

// -----------------------------------------------------------------------------

// Switch moves the view to another symbol
func (s *SymbolSubscription) Switch(symbol string) {
	s.Mount(symbol)
}

// -----------------------------------------------------------------------------

// Release tears the subscription down synchronously: pending flush, listeners,
// in-flight continuations, room membership and chart are all gone on return.
func (s *SymbolSubscription) Release() {
	if s.token == nil {
		return
	}

	s.scheduler.Cancel()
	for _, off := range s.offs {
		off()
	}
	s.offs = nil
	s.token.Release()
	s.token = nil

	if s.symbol != "" {
		s.rooms.Release(StockRoom(s.symbol))
		s.Logger.Info("Unsubscribed from %s (view %s)", s.symbol, s.ID)
	}

	s.chart.Reset()
	s.tick = nil
	s.symbol = ""
	s.historyLoaded = false
	s.state = Idle
	s.status = ""
}

// -----------------------------------------------------------------------------

func (s *SymbolSubscription) Symbol() string {
	return s.symbol
}

func (s *SymbolSubscription) State() State {
	return s.state
}

func (s *SymbolSubscription) Status() string {
	return s.status
}

// Chart exposes the window for inspection
func (s *SymbolSubscription) Chart() *state.ChartWindow {
	return s.chart
}

// Scheduler exposes the render scheduler for inspection
func (s *SymbolSubscription) Scheduler() *render.RenderScheduler {
	return s.scheduler
}

// -----------------------------------------------------------------------------

func (s *SymbolSubscription) loadHistory(token *engine.LifecycleToken) {
	s.setState(HistoryLoading, StatusFetchingHistory)

	symbol := s.symbol
	s.transport.Request(interfaces.RequestHistory, func(payload json.RawMessage, err error) {
		s.handleHistory(token, symbol, payload, err)
	}, symbol)
}

// -----------------------------------------------------------------------------

func (s *SymbolSubscription) handleHistory(token *engine.LifecycleToken, symbol string, payload json.RawMessage, err error) {
	if !token.Active() {
		s.Logger.Debug("%v", helpers.NewLifecycleRaceError("history for "+symbol+" arrived after release"))
		return
	}

	data, err := decodeAck(interfaces.RequestHistory, payload, err)
	if err != nil {
		s.Logger.Warning("History for %s unavailable: %v", symbol, err)
		if s.state == HistoryLoading {
			s.setState(WaitingForTicks, helpers.StatusText(err))
		} else {
			s.scheduler.RequestFlush()
		}
		return
	}

	candles, skipped, err := decodeEach[models.MCandle](data)
	if err != nil || skipped > 0 {
		s.Logger.Debug("History for %s: %d candles skipped (%v)", symbol, skipped, err)
	}

	seeded := s.chart.Seed(candles)
	s.historyLoaded = true
	s.Logger.Debug("Seeded %s with %d history points", symbol, seeded)

	if s.state == HistoryLoading {
		s.setState(WaitingForTicks, StatusWaitingForTicks)
		return
	}
	s.scheduler.RequestFlush()
}

// -----------------------------------------------------------------------------

func (s *SymbolSubscription) handleTick(token *engine.LifecycleToken, payload json.RawMessage) {
	if !token.Active() {
		return
	}

	var tick models.MTick
	if err := json.Unmarshal(payload, &tick); err != nil {
		s.Logger.Debug("%v", helpers.NewMalformedDataError("unreadable tick", err))
		return
	}

	// Delayed events from a room just left carry a foreign tag
	if tick.Symbol != s.symbol {
		s.Logger.Debug("Discarding tick for %s on view %s (%s)", tick.Symbol, s.ID, s.symbol)
		return
	}

	s.store.Apply(tick.AsUpdate())
	s.chart.Append(s.chart.PointFromTick(tick, s.now()))
	s.tick = &tick

	if s.state != Live {
		s.setState(Live, StatusLive)
		return
	}
	s.scheduler.RequestFlush()
}

// -----------------------------------------------------------------------------

// handleFirstConnect is the one-shot continuation of a mount made while offline
func (s *SymbolSubscription) handleFirstConnect(token *engine.LifecycleToken) {
	if !token.Active() || s.state != Connecting {
		return
	}
	s.loadHistory(token)
}

func (s *SymbolSubscription) handleConnect(token *engine.LifecycleToken) {
	if !token.Active() || s.state != Disconnected {
		return
	}

	// Room membership is restored by the registry
	if s.historyLoaded {
		s.setState(WaitingForTicks, StatusWaitingForTicks)
	} else {
		s.loadHistory(token)
	}
}

// -----------------------------------------------------------------------------

func (s *SymbolSubscription) handleDisconnect(token *engine.LifecycleToken) {
	if !token.Active() || s.state == Idle {
		return
	}
	s.setState(Disconnected, StatusDisconnected)
}

// -----------------------------------------------------------------------------

func (s *SymbolSubscription) setState(next State, status string) {
	if s.state != next {
		s.Logger.Debug("View %s %s: %s -> %s", s.ID, s.symbol, s.state, next)
	}
	s.state = next
	s.status = status
	s.scheduler.RequestFlush()
}

// -----------------------------------------------------------------------------

func (s *SymbolSubscription) merge() {
	s.chart.Flush()
}

// -----------------------------------------------------------------------------

func (s *SymbolSubscription) commit(ts time.Time) {
	if s.present == nil || s.state == Idle {
		return
	}

	points := s.chart.Points()
	var tick *models.MTick
	if s.tick != nil {
		t := *s.tick
		tick = &t
	}

	s.present(models.MDetailSnapshot{
		Type:      models.SnapshotTypeDetail,
		Symbol:    s.symbol,
		State:     s.state.String(),
		Status:    s.status,
		Tick:      tick,
		Points:    points,
		Metrics:   analysis.ComputeDerivedMetrics(points, tick),
		Timestamp: ts.UnixMilli(),
	})
}
