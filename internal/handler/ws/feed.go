package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"MacroPulse/internal/domain/models"
	applogger "MacroPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	clientBuffer   = 16
	upgradeBufSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  upgradeBufSize,
	WriteBufferSize: upgradeBufSize,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// ScoreFeed pushes newly published scores to websocket subscribers. It
// implements repository.ScoreNotifier; a slow subscriber is dropped
// rather than allowed to stall a recompute pass.
type ScoreFeed struct {
	logger  *applogger.Logger
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewScoreFeed creates an empty feed.
func NewScoreFeed(logger *applogger.Logger) *ScoreFeed {
	return &ScoreFeed{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// RegisterRoutes wires the subscription endpoint.
func (f *ScoreFeed) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/scores", f.Subscribe)
}

// Subscribe upgrades the connection and streams score updates until the
// client disconnects.
func (f *ScoreFeed) Subscribe(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	f.mu.Lock()
	f.clients[cl] = struct{}{}
	total := len(f.clients)
	f.mu.Unlock()

	if f.logger != nil {
		f.logger.Info("score feed subscriber connected", applogger.Int("subscribers", total))
	}

	go f.writeLoop(cl)
	f.readLoop(cl)
	return nil
}

// NotifyPublished fans the score out to all subscribers.
func (f *ScoreFeed) NotifyPublished(_ context.Context, score models.AssetScore) {
	body, err := json.Marshal(score)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for cl := range f.clients {
		select {
		case cl.send <- body:
		default:
			// Drop the laggard instead of blocking the publisher.
			delete(f.clients, cl)
			close(cl.send)
		}
	}
}

// Subscribers returns the current subscriber count.
func (f *ScoreFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *ScoreFeed) writeLoop(cl *client) {
	defer cl.conn.Close()
	for body := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, body); err != nil {
			f.remove(cl)
			return
		}
	}
	_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readLoop drains control frames and detects disconnects.
func (f *ScoreFeed) readLoop(cl *client) {
	defer f.remove(cl)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *ScoreFeed) remove(cl *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[cl]; ok {
		delete(f.clients, cl)
		close(cl.send)
	}
}
