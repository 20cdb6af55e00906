package testutils

import (
	"encoding/json"
	"io"
	"sync"

	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"
)

// NopLogger discards everything
func NopLogger() *logger.Logger {
	return logger.NewLoggerWithWriter(io.Discard, "ERROR", "test")
}

// -----------------------------------------------------------------------------
// MockTransport is a synchronous in-memory transport. Fire delivers events on
// the calling goroutine; requests stay pending until Ack/Fail resolves them.
// -----------------------------------------------------------------------------

// Emitted records one outbound event
type Emitted struct {
	Event string
	Args  []interface{}
}

// PendingRequest is an outbound request awaiting its ack
type PendingRequest struct {
	ID    int
	Event string
	Args  []interface{}
	cb    interfaces.AckHandler
}

type mockHandler struct {
	h       interfaces.EventHandler
	once    bool
	removed bool
}

type MockTransport struct {
	Mu        sync.Mutex
	connected bool
	handlers  map[string][]*mockHandler
	Emitted   []Emitted
	Requests  []*PendingRequest
	nextID    int
}

func NewMockTransport(connected bool) *MockTransport {
	return &MockTransport{
		connected: connected,
		handlers:  make(map[string][]*mockHandler),
	}
}

func (m *MockTransport) Connected() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.connected
}

func (m *MockTransport) Emit(event string, args ...interface{}) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Emitted = append(m.Emitted, Emitted{Event: event, Args: args})
	return nil
}

func (m *MockTransport) Request(event string, cb interfaces.AckHandler, args ...interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.nextID++
	m.Requests = append(m.Requests, &PendingRequest{ID: m.nextID, Event: event, Args: args, cb: cb})
}

func (m *MockTransport) On(event string, h interfaces.EventHandler) func() {
	return m.add(event, h, false)
}

func (m *MockTransport) Once(event string, h interfaces.EventHandler) func() {
	return m.add(event, h, true)
}

func (m *MockTransport) add(event string, h interfaces.EventHandler, once bool) func() {
	entry := &mockHandler{h: h, once: once}
	m.Mu.Lock()
	m.handlers[event] = append(m.handlers[event], entry)
	m.Mu.Unlock()

	return func() {
		m.Mu.Lock()
		defer m.Mu.Unlock()
		m.removeLocked(event, entry)
	}
}

func (m *MockTransport) removeLocked(event string, entry *mockHandler) {
	entry.removed = true
	list := m.handlers[event]
	for i, e := range list {
		if e == entry {
			m.handlers[event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// -----------------------------------------------------------------------------

// Fire delivers event to every listener. A string is taken as raw JSON, other
// data is marshalled, nil gives a nil payload.
func (m *MockTransport) Fire(event string, data interface{}) {
	var payload json.RawMessage
	if data != nil {
		if raw, ok := data.(string); ok {
			payload = json.RawMessage(raw)
		} else {
			payload, _ = json.Marshal(data)
		}
	}

	m.Mu.Lock()
	list := append([]*mockHandler(nil), m.handlers[event]...)
	m.Mu.Unlock()

	for _, e := range list {
		m.Mu.Lock()
		if e.removed {
			m.Mu.Unlock()
			continue
		}
		if e.once {
			m.removeLocked(event, e)
		}
		m.Mu.Unlock()
		e.h(payload)
	}
}

// SetConnected flips the connection flag and fires connect/disconnect
func (m *MockTransport) SetConnected(connected bool) {
	m.Mu.Lock()
	changed := m.connected != connected
	m.connected = connected
	m.Mu.Unlock()

	if !changed {
		return
	}
	if connected {
		m.Fire(interfaces.EventConnect, nil)
	} else {
		m.Fire(interfaces.EventDisconnect, nil)
	}
}

// -----------------------------------------------------------------------------

// TakeRequest removes and returns the oldest pending request for event
func (m *MockTransport) TakeRequest(event string) *PendingRequest {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	for i, r := range m.Requests {
		if r.Event == event {
			m.Requests = append(m.Requests[:i], m.Requests[i+1:]...)
			return r
		}
	}
	return nil
}

// PendingCount returns the number of unresolved requests for event
func (m *MockTransport) PendingCount(event string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	n := 0
	for _, r := range m.Requests {
		if r.Event == event {
			n++
		}
	}
	return n
}

// HandlerCount returns how many listeners are attached to event
func (m *MockTransport) HandlerCount(event string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.handlers[event])
}

// EmittedEvents returns the names of all emitted events in order
func (m *MockTransport) EmittedEvents() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	names := make([]string, 0, len(m.Emitted))
	for _, e := range m.Emitted {
		names = append(names, e.Event)
	}
	return names
}

// CountEmitted returns how many times event was emitted with arg (empty arg matches any)
func (m *MockTransport) CountEmitted(event string, arg string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	n := 0
	for _, e := range m.Emitted {
		if e.Event != event {
			continue
		}
		if arg == "" || (len(e.Args) > 0 && e.Args[0] == arg) {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------

// Ack resolves r with {"status":"ok","data":data}
func (r *PendingRequest) Ack(data interface{}) {
	raw, _ := json.Marshal(data)
	payload, _ := json.Marshal(models.MAck{Status: models.AckStatusOK, Data: raw})
	r.cb(payload, nil)
}

// AckError resolves r with {"status":"error","message":msg}
func (r *PendingRequest) AckError(msg string) {
	payload, _ := json.Marshal(models.MAck{Status: models.AckStatusError, Message: msg})
	r.cb(payload, nil)
}

// Fail resolves r with a transport error
func (r *PendingRequest) Fail(err error) {
	r.cb(nil, err)
}

// -----------------------------------------------------------------------------
// Recording presenters
// -----------------------------------------------------------------------------

type RecordingPresenter struct {
	Mu      sync.Mutex
	Market  []models.MMarketSnapshot
	Details map[string][]models.MDetailSnapshot
}

func NewRecordingPresenter() *RecordingPresenter {
	return &RecordingPresenter{Details: make(map[string][]models.MDetailSnapshot)}
}

func (p *RecordingPresenter) PresentMarket(s models.MMarketSnapshot) {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	p.Market = append(p.Market, s)
}

func (p *RecordingPresenter) PresentDetail(viewID string, s models.MDetailSnapshot) {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	p.Details[viewID] = append(p.Details[viewID], s)
}

// DetailFunc binds PresentDetail to one view
func (p *RecordingPresenter) DetailFunc(viewID string) func(models.MDetailSnapshot) {
	return func(s models.MDetailSnapshot) { p.PresentDetail(viewID, s) }
}

// LastDetail returns the latest snapshot presented for viewID
func (p *RecordingPresenter) LastDetail(viewID string) (models.MDetailSnapshot, bool) {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	list := p.Details[viewID]
	if len(list) == 0 {
		return models.MDetailSnapshot{}, false
	}
	return list[len(list)-1], true
}

// LastMarket returns the latest market snapshot
func (p *RecordingPresenter) LastMarket() (models.MMarketSnapshot, bool) {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	if len(p.Market) == 0 {
		return models.MMarketSnapshot{}, false
	}
	return p.Market[len(p.Market)-1], true
}
