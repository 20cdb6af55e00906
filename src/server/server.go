package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"market-pulse/src/config"
	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"
	"market-pulse/src/preferences"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// -----------------------------------------------------------------------------
// ClientHandlers forward browser view commands to the subscription layer.
// Both run on hub goroutines; receivers must hand off to the event loop.
// -----------------------------------------------------------------------------

type ClientHandlers struct {
	OnCommand    func(clientID string, cmd models.MViewCommand)
	OnDisconnect func(clientID string)
}

// directMessage is a detail snapshot addressed to one client
type directMessage struct {
	clientID string
	payload  interface{}
}

// -----------------------------------------------------------------------------
// WebServer
// -----------------------------------------------------------------------------

type WebServer struct {
	Config *config.Config
	Logger *logger.Logger

	engine     *gin.Engine
	httpServer *http.Server
	prefs      *preferences.Service
	handlers   ClientHandlers
	now        func() time.Time

	// WebSocket clients, owned by the hub goroutine
	clients     map[string]*Client
	connections atomic.Int64
	broadcast   chan models.MMarketSnapshot // Buffered Queue
	direct      chan directMessage
	register    chan *Client
	unregister  chan *Client
	quit        chan struct{}
	stopOnce    sync.Once

	// Latest committed market snapshot
	latestMarket models.MMarketSnapshot
	stateMutex   sync.RWMutex
}

var _ interfaces.IDataExchanger = (*WebServer)(nil)

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewWebServer(cfg *config.Config, prefs *preferences.Service, handlers ClientHandlers, log *logger.Logger) *WebServer {
	// Set Gin mode
	if gin.Mode() != gin.TestMode && strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &WebServer{
		Config:   cfg,
		Logger:   log,
		engine:   gin.Default(),
		prefs:    prefs,
		handlers: handlers,
		now:      time.Now,
		clients:  make(map[string]*Client),
		// Queue size of 256 absorbs bursts of commits
		broadcast:  make(chan models.MMarketSnapshot, 256),
		direct:     make(chan directMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		latestMarket: models.MMarketSnapshot{
			Type:   models.SnapshotTypeMarket,
			Stocks: []models.MSymbolState{},
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()

	go s.runHub()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *WebServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/stocks", s.getStocks)
	api.GET("/stocks/:symbol", s.getStock)
	api.GET("/market/status/:symbol", s.getMarketStatus)

	api.GET("/preferences", s.getPreferences)
	api.POST("/favorites/:symbol", s.toggleFavorite)
	api.POST("/pinned/:symbol", s.togglePinned)
	api.POST("/watchlists", s.createWatchlist)
	api.POST("/watchlists/:id/symbols/:symbol", s.addToWatchlist)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router (httptest, embedding)
func (s *WebServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *WebServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.stateMutex.Lock()
	select {
	case <-s.quit:
		s.stateMutex.Unlock()
		return nil
	default:
	}
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	srv := s.httpServer
	s.stateMutex.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", addr, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *WebServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.quit)

		s.stateMutex.RLock()
		srv := s.httpServer
		s.stateMutex.RUnlock()
		if srv == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)
	})
	return err
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *WebServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.latestMarket.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.connections.Load(),
		"latest_update": timestamp,
		"runtime":       helpers.CollectRuntimeStats(),
	})
}

// -----------------------------------------------------------------------------

func (s *WebServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"render": s.Config.Render,
		"chart":  s.Config.Chart,
	})
}

// -----------------------------------------------------------------------------

func (s *WebServer) getStocks(c *gin.Context) {
	snap := s.LatestMarket()
	stocks := filterStocks(snap.Stocks, c.Query("q"), s.Config.Chart.ListLimit)

	c.JSON(http.StatusOK, gin.H{
		"status":    snap.Status,
		"timestamp": snap.Timestamp,
		"count":     len(stocks),
		"stocks":    toStockViews(stocks),
	})
}

// -----------------------------------------------------------------------------

func (s *WebServer) getStock(c *gin.Context) {
	snap := s.LatestMarket()
	st, ok := findStock(snap.Stocks, c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol not found"})
		return
	}
	c.JSON(http.StatusOK, newStockView(st))
}

// -----------------------------------------------------------------------------

func (s *WebServer) getMarketStatus(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	c.JSON(http.StatusOK, marketStatus(symbol, s.now()))
}

// -----------------------------------------------------------------------------
// Preferences
// -----------------------------------------------------------------------------

func (s *WebServer) getPreferences(c *gin.Context) {
	if !s.requirePrefs(c) {
		return
	}
	prefs, err := s.prefs.Get(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// -----------------------------------------------------------------------------

func (s *WebServer) toggleFavorite(c *gin.Context) {
	if !s.requirePrefs(c) {
		return
	}
	list, err := s.prefs.ToggleFavorite(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": list})
}

// -----------------------------------------------------------------------------

func (s *WebServer) togglePinned(c *gin.Context) {
	if !s.requirePrefs(c) {
		return
	}
	list, err := s.prefs.TogglePinned(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pinned": list})
}

// -----------------------------------------------------------------------------

type createWatchlistRequest struct {
	Name string `json:"name"`
}

func (s *WebServer) createWatchlist(c *gin.Context) {
	if !s.requirePrefs(c) {
		return
	}
	var req createWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	wl, err := s.prefs.CreateWatchlist(c.Request.Context(), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wl)
}

// -----------------------------------------------------------------------------

func (s *WebServer) addToWatchlist(c *gin.Context) {
	if !s.requirePrefs(c) {
		return
	}
	wl, err := s.prefs.AddToWatchlist(c.Request.Context(), c.Param("id"), c.Param("symbol"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wl)
}

// -----------------------------------------------------------------------------

func (s *WebServer) requirePrefs(c *gin.Context) bool {
	if s.prefs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "preferences disabled"})
		return false
	}
	return true
}

func (s *WebServer) writeError(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
