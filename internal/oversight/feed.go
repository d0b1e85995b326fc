package oversight

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"anonpair/backend/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Event is one item on the live oversight feed.
type Event struct {
	Type        string    `json:"type"`
	RoomID      string    `json:"room_id,omitempty"`
	SenderID    int64     `json:"sender_id,omitempty"`
	RecipientID int64     `json:"recipient_id,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Text        string    `json:"text,omitempty"`
	At          time.Time `json:"at"`
}

// Feed fans oversight events out to connected admin websockets.
type Feed struct {
	mu      sync.RWMutex
	clients map[*feedClient]struct{}
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewFeed() *Feed {
	return &Feed{clients: make(map[*feedClient]struct{})}
}

// Serve attaches a websocket and blocks until it disconnects.
func (f *Feed) Serve(conn *websocket.Conn) {
	c := &feedClient{conn: conn, send: make(chan []byte, sendBuffer)}

	f.mu.Lock()
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	go c.writePump()
	c.readPump()

	f.mu.Lock()
	delete(f.clients, c)
	f.mu.Unlock()
	c.close()
}

// Broadcast sends ev to every client. Slow clients drop events.
func (f *Feed) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("encode oversight event", "err", err)
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.clients {
		select {
		case c.send <- data:
		default:
			logger.Warn("oversight feed client is slow, dropping event")
		}
	}
}

// Clients returns the number of connected websockets.
func (f *Feed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Close disconnects every client.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		c.close()
		delete(f.clients, c)
	}
}

func (c *feedClient) close() {
	c.once.Do(func() { close(c.send) })
}

// readPump discards client frames; it exists to process pongs and detect close.
func (c *feedClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("oversight feed read error", "err", err)
			}
			return
		}
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
