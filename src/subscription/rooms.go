package subscription

import (
	"encoding/json"

	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
)

// -----------------------------------------------------------------------------
// Room is a transport-level topic joined with one event and left with another.
// -----------------------------------------------------------------------------

type Room struct {
	Join  string
	Leave string
	Arg   string // empty for argument-less rooms
}

func MarketWatchRoom() Room {
	return Room{Join: interfaces.JoinMarketWatch, Leave: interfaces.LeaveMarketWatch}
}

func StockRoom(symbol string) Room {
	return Room{Join: interfaces.JoinStock, Leave: interfaces.LeaveStock, Arg: symbol}
}

func (r Room) key() string {
	return r.Join + "|" + r.Arg
}

func (r Room) args() []interface{} {
	if r.Arg == "" {
		return nil
	}
	return []interface{}{r.Arg}
}

// -----------------------------------------------------------------------------
// RoomRegistry reference-counts room membership over the shared connection:
// join is emitted on the first holder, leave on the last. After a reconnect
// every held room is joined again.
// -----------------------------------------------------------------------------

type RoomRegistry struct {
	transport interfaces.ITransport
	refCount  map[string]int
	rooms     map[string]Room
	order     []string
	offConn   func()
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRoomRegistry(transport interfaces.ITransport, log *logger.Logger) *RoomRegistry {
	r := &RoomRegistry{
		transport: transport,
		refCount:  make(map[string]int),
		rooms:     make(map[string]Room),
		Logger:    log,
	}
	r.offConn = transport.On(interfaces.EventConnect, func(_ json.RawMessage) {
		r.rejoinAll()
	})
	return r
}

// -----------------------------------------------------------------------------

// Acquire takes one reference on room
func (r *RoomRegistry) Acquire(room Room) {
	k := room.key()
	r.refCount[k]++
	if r.refCount[k] > 1 {
		return
	}

	r.rooms[k] = room
	r.order = append(r.order, k)
	if r.transport.Connected() {
		r.emit(room.Join, room)
	}
}

// -----------------------------------------------------------------------------

// Release drops one reference on room; the last one leaves it
func (r *RoomRegistry) Release(room Room) {
	k := room.key()
	if r.refCount[k] == 0 {
		return
	}

	r.refCount[k]--
	if r.refCount[k] > 0 {
		return
	}

	delete(r.refCount, k)
	delete(r.rooms, k)
	for i, o := range r.order {
		if o == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.transport.Connected() {
		r.emit(room.Leave, room)
	}
}

// -----------------------------------------------------------------------------

// Holders returns the number of references on room
func (r *RoomRegistry) Holders(room Room) int {
	return r.refCount[room.key()]
}

// -----------------------------------------------------------------------------

// Close detaches the reconnect listener
func (r *RoomRegistry) Close() {
	if r.offConn != nil {
		r.offConn()
		r.offConn = nil
	}
}

// -----------------------------------------------------------------------------

func (r *RoomRegistry) rejoinAll() {
	for _, k := range r.order {
		room := r.rooms[k]
		r.emit(room.Join, room)
	}
}

// -----------------------------------------------------------------------------

func (r *RoomRegistry) emit(event string, room Room) {
	if err := r.transport.Emit(event, room.args()...); err != nil {
		r.Logger.Warning("Failed to emit %s %s: %v", event, room.Arg, err)
	}
}
