package interfaces

import "encoding/json"

// -----------------------------------------------------------------------------
// ITransport is the shared connection to the market data source.
// One handle is injected into every view; handlers run on the event loop.
// -----------------------------------------------------------------------------

// EventHandler receives the raw payload of an inbound event (nil for connect/disconnect)
type EventHandler func(payload json.RawMessage)

// AckHandler receives the raw ack payload, or an error if none arrived
type AckHandler func(payload json.RawMessage, err error)

type ITransport interface {

	// Connected reports whether the connection is currently up
	Connected() bool

	// -----------------------------------------------------------------------------

	// Emit sends a fire-and-forget event
	Emit(event string, args ...interface{}) error

	// -----------------------------------------------------------------------------

	// Request sends an event expecting exactly one acknowledgment.
	// cb is invoked once, with an error when the ack times out or the connection drops.
	Request(event string, cb AckHandler, args ...interface{})

	// -----------------------------------------------------------------------------

	// On registers a persistent handler; the returned func detaches it
	On(event string, h EventHandler) func()

	// -----------------------------------------------------------------------------

	// Once registers a handler detached after its first invocation
	Once(event string, h EventHandler) func()
}

// Transport-level events
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventMarketUpdate = "market_update"
	EventTick         = "tick"
)

// Outbound requests
const (
	RequestMarketData = "request_market_data"
	RequestHistory    = "request_history"
	JoinMarketWatch   = "join_market_watch"
	LeaveMarketWatch  = "leave_market_watch"
	JoinStock         = "join_stock"
	LeaveStock        = "leave_stock"
)
