package server

import (
	"encoding/json"
	"net/http"

	"market-pulse/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// runHub owns the client map: registration, broadcast and direct delivery
func (s *WebServer) runHub() {
	for {
		select {
		case client := <-s.register:
			s.clients[client.id] = client
			s.connections.Store(int64(len(s.clients)))

			// Send latest market snapshot on connect
			snap := s.LatestMarket()
			if snap.Timestamp != 0 {
				client.send <- snap
			}

		case client := <-s.unregister:
			if current, ok := s.clients[client.id]; ok && current == client {
				s.dropClient(client)
			}

		case snap := <-s.broadcast:
			for _, client := range s.clients {
				select {
				case client.send <- snap:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					s.Logger.Warning("Dropping slow client %s", client.id)
					s.dropClient(client)
				}
			}

		case msg := <-s.direct:
			client, ok := s.clients[msg.clientID]
			if !ok {
				continue
			}
			select {
			case client.send <- msg.payload:
			default:
				s.Logger.Warning("Dropping slow client %s", client.id)
				s.dropClient(client)
			}

		case <-s.quit:
			for _, client := range s.clients {
				s.dropClient(client)
			}
			return
		}
	}
}

// -----------------------------------------------------------------------------

func (s *WebServer) dropClient(client *Client) {
	delete(s.clients, client.id)
	close(client.send)
	s.connections.Store(int64(len(s.clients)))

	if s.handlers.OnDisconnect != nil {
		s.handlers.OnDisconnect(client.id)
	}
}

// -----------------------------------------------------------------------------
// Presenter Implementation
// -----------------------------------------------------------------------------

// PresentMarket caches the snapshot for REST reads and queues it for every client
func (s *WebServer) PresentMarket(snapshot models.MMarketSnapshot) {
	s.stateMutex.Lock()
	s.latestMarket = snapshot
	s.stateMutex.Unlock()

	select {
	case s.broadcast <- snapshot:
	case <-s.quit:
	default:
		// Next commit carries the full list again
		s.Logger.Warning("Broadcast queue full, market snapshot %d skipped", snapshot.Timestamp)
	}
}

// -----------------------------------------------------------------------------

// PresentDetail routes a detail snapshot to the client owning the view
func (s *WebServer) PresentDetail(viewID string, snapshot models.MDetailSnapshot) {
	select {
	case s.direct <- directMessage{clientID: viewID, payload: snapshot}:
	case <-s.quit:
	default:
		s.Logger.Warning("Direct queue full, detail for %s skipped", viewID)
	}
}

// -----------------------------------------------------------------------------

// LatestMarket returns the last committed market snapshot
func (s *WebServer) LatestMarket() models.MMarketSnapshot {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.latestMarket
}

// Connections is the number of registered browser clients
func (s *WebServer) Connections() int {
	return int(s.connections.Load())
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *WebServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}
	s.Logger.Debug("Client %s connected from %s", client.id, c.ClientIP())

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *WebServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MViewCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	switch cmd.Command {
	case models.CommandSubscribe, models.CommandUnsubscribe:
	default:
		s.Logger.Debug("Ignoring unknown command '%s' from %s", cmd.Command, client.id)
		return
	}

	if s.handlers.OnCommand != nil {
		s.handlers.OnCommand(client.id, cmd)
	}
}
