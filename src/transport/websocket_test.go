package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"market-pulse/src/engine"
	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/models"
	"market-pulse/src/subscription"
	"market-pulse/src/testutils"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// fakeSource is a websocket server handing every accepted connection to the test
// -----------------------------------------------------------------------------

type fakeSource struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newFakeSource(t *testing.T) *fakeSource {
	fs := &fakeSource{conns: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.conns <- c
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeSource) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *fakeSource) accept(t *testing.T) *websocket.Conn {
	select {
	case c := <-fs.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("transport never connected")
		return nil
	}
}

func readRequest(t *testing.T, c *websocket.Conn) OutboundFrame {
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)

	var f OutboundFrame
	require.NoError(t, json.Unmarshal(msg, &f))
	return f
}

func startTransport(t *testing.T, url string, ackTimeoutMs int) *WSTransport {
	loop := engine.NewEventLoop(64, testutils.NopLogger())
	go loop.Run(context.Background())

	cfg := models.MTransportConfig{
		URL:                  url,
		AckTimeoutMs:         ackTimeoutMs,
		ReconnectBaseDelayMs: 10,
		ReconnectMaxDelayMs:  50,
		HandshakeTimeoutMs:   1000,
		ReadTimeoutSeconds:   5,
	}
	tr := NewWSTransport(cfg, loop.Post, testutils.NopLogger())
	t.Cleanup(func() {
		tr.Stop()
		loop.Stop()
	})
	return tr
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
		var zero T
		return zero
	}
}

// -----------------------------------------------------------------------------

func TestWSTransport_ConnectAndEvents(t *testing.T) {
	fs := newFakeSource(t)
	tr := startTransport(t, fs.url(), 1000)

	connected := make(chan struct{}, 1)
	ticks := make(chan string, 4)
	onceCalls := make(chan struct{}, 4)

	tr.On(interfaces.EventConnect, func(json.RawMessage) { connected <- struct{}{} })
	tr.On(interfaces.EventTick, func(p json.RawMessage) { ticks <- string(p) })
	tr.Once(interfaces.EventTick, func(json.RawMessage) { onceCalls <- struct{}{} })

	tr.Start(context.Background())
	server := fs.accept(t)
	waitFor(t, connected)
	assert.True(t, tr.Connected())

	for _, price := range []float64{1, 2} {
		frame, err := EncodeEvent(interfaces.EventTick, map[string]interface{}{"symbol": "BTC", "price": price})
		require.NoError(t, err)
		require.NoError(t, server.WriteMessage(websocket.TextMessage, frame))
	}
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{"garbage":true}`)))

	assert.JSONEq(t, `{"symbol":"BTC","price":1}`, waitFor(t, ticks))
	assert.JSONEq(t, `{"symbol":"BTC","price":2}`, waitFor(t, ticks))
	assert.Len(t, onceCalls, 1)
}

func TestWSTransport_RequestAck(t *testing.T) {
	fs := newFakeSource(t)
	tr := startTransport(t, fs.url(), 1000)

	connected := make(chan struct{}, 1)
	tr.On(interfaces.EventConnect, func(json.RawMessage) { connected <- struct{}{} })
	tr.Start(context.Background())
	server := fs.accept(t)
	waitFor(t, connected)

	type result struct {
		payload string
		err     error
	}
	results := make(chan result, 1)
	tr.Request(interfaces.RequestHistory, func(p json.RawMessage, err error) {
		results <- result{string(p), err}
	}, "BTC")

	req := readRequest(t, server)
	assert.Equal(t, interfaces.RequestHistory, req.Event)
	assert.Equal(t, []interface{}{"BTC"}, req.Args)
	require.NotZero(t, req.ID)

	ack, err := EncodeAck(req.ID, map[string]interface{}{"status": "ok", "data": []int{}})
	require.NoError(t, err)
	require.NoError(t, server.WriteMessage(websocket.TextMessage, ack))

	got := waitFor(t, results)
	require.NoError(t, got.err)
	assert.JSONEq(t, `{"status":"ok","data":[]}`, got.payload)

	// A duplicate ack is ignored
	require.NoError(t, server.WriteMessage(websocket.TextMessage, ack))
	select {
	case <-results:
		t.Fatal("ack delivered twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWSTransport_AckTimeout(t *testing.T) {
	fs := newFakeSource(t)
	tr := startTransport(t, fs.url(), 30)

	connected := make(chan struct{}, 1)
	tr.On(interfaces.EventConnect, func(json.RawMessage) { connected <- struct{}{} })
	tr.Start(context.Background())
	server := fs.accept(t)
	waitFor(t, connected)

	errs := make(chan error, 1)
	tr.Request(interfaces.RequestMarketData, func(_ json.RawMessage, err error) { errs <- err })
	readRequest(t, server)

	assert.ErrorIs(t, waitFor(t, errs), helpers.ErrAckTimeout)
}

func TestWSTransport_DisconnectFailsPendingAfterNotifying(t *testing.T) {
	fs := newFakeSource(t)
	tr := startTransport(t, fs.url(), 10000)

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	connected := make(chan struct{}, 4)
	tr.On(interfaces.EventConnect, func(json.RawMessage) { connected <- struct{}{} })
	tr.On(interfaces.EventDisconnect, func(json.RawMessage) { record("disconnect") })
	tr.Start(context.Background())
	server := fs.accept(t)
	waitFor(t, connected)

	errs := make(chan error, 1)
	tr.Request(interfaces.RequestHistory, func(_ json.RawMessage, err error) {
		record("ack")
		errs <- err
	}, "ETH")
	readRequest(t, server)
	server.Close()

	assert.ErrorIs(t, waitFor(t, errs), helpers.ErrDisconnected)
	mu.Lock()
	assert.Equal(t, []string{"disconnect", "ack"}, order)
	mu.Unlock()

	// Reconnects on its own
	fs.accept(t)
	waitFor(t, connected)
	assert.True(t, tr.Connected())
}

func TestWSTransport_RequestWhileDisconnected(t *testing.T) {
	tr := startTransport(t, "ws://127.0.0.1:1/never", 1000)

	assert.False(t, tr.Connected())
	assert.ErrorIs(t, tr.Emit(interfaces.JoinMarketWatch), helpers.ErrDisconnected)

	errs := make(chan error, 1)
	tr.Request(interfaces.RequestMarketData, func(_ json.RawMessage, err error) { errs <- err })
	assert.ErrorIs(t, waitFor(t, errs), helpers.ErrDisconnected)
}

func TestWSTransport_RequestFailsWithoutPosting(t *testing.T) {
	posted := 0
	tr := NewWSTransport(models.MTransportConfig{AckTimeoutMs: 1000},
		func(fn func()) bool { posted++; return true }, testutils.NopLogger())

	var got error
	tr.Request(interfaces.RequestHistory, func(_ json.RawMessage, err error) { got = err }, "BTC")

	assert.ErrorIs(t, got, helpers.ErrDisconnected)
	assert.Zero(t, posted)
	assert.Empty(t, tr.pending)
}

// The connected flag follows the connect event through the loop queue, so a
// room acquired while that event is queued is joined exactly once.
func TestWSTransport_RoomJoinedOnceAroundQueuedConnect(t *testing.T) {
	fs := newFakeSource(t)
	tasks := make(chan func(), 16)
	cfg := models.MTransportConfig{
		URL:                  fs.url(),
		ReconnectBaseDelayMs: 10,
		ReconnectMaxDelayMs:  50,
		HandshakeTimeoutMs:   1000,
		ReadTimeoutSeconds:   5,
	}
	tr := NewWSTransport(cfg, func(fn func()) bool { tasks <- fn; return true }, testutils.NopLogger())
	t.Cleanup(tr.Stop)

	rooms := subscription.NewRoomRegistry(tr, testutils.NopLogger())
	tr.Start(context.Background())
	server := fs.accept(t)

	connectTask := waitFor(t, tasks)
	require.True(t, tr.connected.Load())
	assert.False(t, tr.Connected())

	rooms.Acquire(subscription.StockRoom("BTC"))
	connectTask()
	assert.True(t, tr.Connected())
	assert.Equal(t, 1, rooms.Holders(subscription.StockRoom("BTC")))

	join := readRequest(t, server)
	assert.Equal(t, interfaces.JoinStock, join.Event)
	assert.Equal(t, []interface{}{"BTC"}, join.Args)

	server.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, extra, err := server.ReadMessage()
	assert.Error(t, err, "unexpected frame %s", extra)
}

func TestWSTransport_OffDuringDispatch(t *testing.T) {
	tr := NewWSTransport(models.MTransportConfig{}, func(fn func()) bool { fn(); return true }, testutils.NopLogger())

	var calls []string
	var offSecond func()
	tr.On("x", func(json.RawMessage) {
		calls = append(calls, "first")
		offSecond()
	})
	offSecond = tr.On("x", func(json.RawMessage) { calls = append(calls, "second") })

	tr.dispatch("x", nil)
	tr.dispatch("x", nil)
	assert.Equal(t, []string{"first", "first"}, calls)
}

// -----------------------------------------------------------------------------

func TestDecodeInbound(t *testing.T) {
	f, err := DecodeInbound([]byte(`{"event":"tick","data":{"symbol":"BTC"}}`))
	require.NoError(t, err)
	assert.False(t, f.IsAck())
	assert.Equal(t, "tick", f.Event)

	f, err = DecodeInbound([]byte(`{"ack":0,"data":null}`))
	require.NoError(t, err)
	assert.True(t, f.IsAck())
	assert.Equal(t, int64(0), *f.Ack)

	_, err = DecodeInbound([]byte(`{"data":1}`))
	assert.Error(t, err)

	_, err = DecodeInbound([]byte(`not json`))
	assert.Error(t, err)
}
