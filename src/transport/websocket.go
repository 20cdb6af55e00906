package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// WSTransport is the shared connection to the market data source.
// It reconnects with backoff, correlates acks to requests and delivers every
// event and ack on the event loop through post.
// -----------------------------------------------------------------------------

type handlerEntry struct {
	h       interfaces.EventHandler
	once    bool
	removed bool
}

type pendingAck struct {
	event string
	cb    interfaces.AckHandler
	timer *time.Timer
}

type WSTransport struct {
	cfg    models.MTransportConfig
	post   func(func()) bool
	Logger *logger.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	writeMu   sync.Mutex
	connected atomic.Bool // socket state, reader goroutine
	ready     atomic.Bool // connect delivered on the event loop

	hmu      sync.Mutex
	handlers map[string][]*handlerEntry

	amu     sync.Mutex
	pending map[int64]*pendingAck
	nextID  int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewWSTransport(cfg models.MTransportConfig, post func(func()) bool, log *logger.Logger) *WSTransport {
	return &WSTransport{
		cfg:      cfg,
		post:     post,
		Logger:   log,
		handlers: make(map[string][]*handlerEntry),
		pending:  make(map[int64]*pendingAck),
	}
}

// -----------------------------------------------------------------------------

// Start initiates the connection loop
func (t *WSTransport) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.runLoop(ctx)
}

// -----------------------------------------------------------------------------

// Stop closes the connection and waits for the loop to exit
func (t *WSTransport) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.close()
	t.wg.Wait()
}

// -----------------------------------------------------------------------------

// Connected flips together with the connect and disconnect events on the
// event loop, so a room joined after it turns true is not joined again by a
// connect dispatch still in the queue.
func (t *WSTransport) Connected() bool {
	return t.ready.Load()
}

// -----------------------------------------------------------------------------

func (t *WSTransport) Emit(event string, args ...interface{}) error {
	return t.writeFrame(OutboundFrame{Event: event, Args: args})
}

// -----------------------------------------------------------------------------

func (t *WSTransport) Request(event string, cb interfaces.AckHandler, args ...interface{}) {
	t.amu.Lock()
	t.nextID++
	id := t.nextID
	p := &pendingAck{event: event, cb: cb}
	t.pending[id] = p
	if timeout := t.ackTimeout(); timeout > 0 {
		p.timer = time.AfterFunc(timeout, func() {
			t.resolve(id, nil, helpers.ErrAckTimeout)
		})
	}
	t.amu.Unlock()

	if err := t.writeFrame(OutboundFrame{Event: event, ID: id, Args: args}); err != nil {
		t.Logger.Warning("Request %s not sent: %v", event, err)
		// Request runs on the event loop: fail inline instead of posting to
		// a queue this goroutine is the only consumer of
		if p, ok := t.takePending(id); ok {
			p.cb(nil, helpers.ErrDisconnected)
		}
	}
}

// -----------------------------------------------------------------------------

func (t *WSTransport) On(event string, h interfaces.EventHandler) func() {
	return t.addHandler(event, h, false)
}

// -----------------------------------------------------------------------------

func (t *WSTransport) Once(event string, h interfaces.EventHandler) func() {
	return t.addHandler(event, h, true)
}

// -----------------------------------------------------------------------------

func (t *WSTransport) addHandler(event string, h interfaces.EventHandler, once bool) func() {
	entry := &handlerEntry{h: h, once: once}

	t.hmu.Lock()
	t.handlers[event] = append(t.handlers[event], entry)
	t.hmu.Unlock()

	return func() {
		t.hmu.Lock()
		defer t.hmu.Unlock()
		t.removeLocked(event, entry)
	}
}

func (t *WSTransport) removeLocked(event string, entry *handlerEntry) {
	entry.removed = true
	list := t.handlers[event]
	for i, e := range list {
		if e == entry {
			t.handlers[event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// -----------------------------------------------------------------------------

// dispatch runs on the event loop. Handlers detached by an earlier handler of
// the same dispatch are skipped.
func (t *WSTransport) dispatch(event string, payload json.RawMessage) {
	t.hmu.Lock()
	list := append([]*handlerEntry(nil), t.handlers[event]...)
	t.hmu.Unlock()

	for _, e := range list {
		t.hmu.Lock()
		if e.removed {
			t.hmu.Unlock()
			continue
		}
		if e.once {
			t.removeLocked(event, e)
		}
		t.hmu.Unlock()

		e.h(payload)
	}
}

// -----------------------------------------------------------------------------

// resolve hands an ack (or its failure) to the request callback exactly once
func (t *WSTransport) resolve(id int64, payload json.RawMessage, err error) {
	p, ok := t.takePending(id)
	if !ok {
		return
	}
	if err != nil {
		t.Logger.Debug("Request %s (%d) failed: %v", p.event, id, err)
	}
	t.post(func() { p.cb(payload, err) })
}

// -----------------------------------------------------------------------------

func (t *WSTransport) takePending(id int64) (*pendingAck, bool) {
	t.amu.Lock()
	defer t.amu.Unlock()

	p, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	return p, ok
}

// -----------------------------------------------------------------------------

func (t *WSTransport) failPending(err error) {
	t.amu.Lock()
	ids := make([]int64, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	t.amu.Unlock()

	for _, id := range ids {
		t.resolve(id, nil, err)
	}
}

// -----------------------------------------------------------------------------

func (t *WSTransport) runLoop(ctx context.Context) {
	defer t.wg.Done()

	base := time.Duration(t.cfg.ReconnectBaseDelayMs) * time.Millisecond
	max := time.Duration(t.cfg.ReconnectMaxDelayMs) * time.Millisecond

	for {
		err := helpers.RetryWithBackoff(ctx, t.Logger, "connect "+t.cfg.URL, 0, base, max, func() error {
			return t.connect(ctx)
		})
		if err != nil {
			return
		}

		t.process(ctx)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// -----------------------------------------------------------------------------

func (t *WSTransport) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: time.Duration(t.cfg.HandshakeTimeoutMs) * time.Millisecond,
	}
	header := make(http.Header)
	header.Set("User-Agent", "market-pulse")

	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, header)
	if err != nil {
		return helpers.NewNetworkError("dial failed", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	t.connected.Store(true)
	t.Logger.Info("Connected to %s", t.cfg.URL)
	t.post(func() {
		t.ready.Store(true)
		t.dispatch(interfaces.EventConnect, nil)
	})
	return nil
}

// -----------------------------------------------------------------------------

func (t *WSTransport) process(ctx context.Context) {
	t.mu.RLock()
	c := t.conn
	t.mu.RUnlock()
	if c == nil {
		return
	}

	connCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()

	readTimeout := time.Duration(t.cfg.ReadTimeoutSeconds) * time.Second
	c.SetPongHandler(func(string) error {
		if readTimeout > 0 {
			return c.SetReadDeadline(time.Now().Add(readTimeout))
		}
		return nil
	})
	if t.cfg.PingIntervalSeconds > 0 {
		go t.pingLoop(connCtx, c)
	}

	for {
		if readTimeout > 0 {
			c.SetReadDeadline(time.Now().Add(readTimeout))
		}
		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				t.Logger.Warning("Read error: %v", err)
			}
			t.handleDisconnect()
			return
		}
		t.handleMessage(msg)
	}
}

// -----------------------------------------------------------------------------

func (t *WSTransport) handleMessage(msg []byte) {
	frame, err := DecodeInbound(msg)
	if err != nil {
		t.Logger.Debug("%v", helpers.NewMalformedDataError("dropping frame", err))
		return
	}

	if frame.IsAck() {
		t.resolve(*frame.Ack, frame.Data, nil)
		return
	}

	event, data := frame.Event, frame.Data
	t.post(func() { t.dispatch(event, data) })
}

// -----------------------------------------------------------------------------

// handleDisconnect notifies listeners first, then fails every outstanding request
func (t *WSTransport) handleDisconnect() {
	t.close()
	if !t.connected.Swap(false) {
		return
	}

	t.Logger.Warning("Disconnected from %s", t.cfg.URL)
	t.post(func() {
		t.ready.Store(false)
		t.dispatch(interfaces.EventDisconnect, nil)
	})
	t.failPending(helpers.ErrDisconnected)
}

// -----------------------------------------------------------------------------

func (t *WSTransport) pingLoop(ctx context.Context, c *websocket.Conn) {
	ticker := time.NewTicker(time.Duration(t.cfg.PingIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.writeMu.Lock()
			err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			t.writeMu.Unlock()
			if err != nil {
				t.Logger.Warning("Ping failed: %v", err)
				t.close()
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (t *WSTransport) writeFrame(frame OutboundFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", frame.Event, err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.RLock()
	c := t.conn
	t.mu.RUnlock()

	if c == nil || !t.connected.Load() {
		return helpers.ErrDisconnected
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

// -----------------------------------------------------------------------------

func (t *WSTransport) ackTimeout() time.Duration {
	return time.Duration(t.cfg.AckTimeoutMs) * time.Millisecond
}

// -----------------------------------------------------------------------------

func (t *WSTransport) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}
