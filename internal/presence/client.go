package presence

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client is one user's websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int
	send   chan []byte
	logger *zap.Logger

	// onDisconnect fires when the read pump ends; the api layer uses it to
	// forward abandonment to the match lifecycle.
	onDisconnect func(userID int)
}

// NewClient wraps an upgraded connection and registers it with the hub.
func NewClient(hub *Hub, conn *websocket.Conn, userID int, logger *zap.Logger, onDisconnect func(userID int)) *Client {
	client := &Client{
		hub:          hub,
		conn:         conn,
		userID:       userID,
		send:         make(chan []byte, 64),
		logger:       logger,
		onDisconnect: onDisconnect,
	}
	hub.register <- client
	return client
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump drains (and discards) client frames so pings/pongs and close
// frames are processed. The feed is server-to-client only.
func (c *Client) readPump() {
	defer func() {
		// A socket replaced by a newer connection for the same user is not
		// an abandonment; the user is still attached through the new socket.
		replaced := c.hub.replaced(c)
		c.hub.unregister <- c
		c.conn.Close()
		if !replaced && c.onDisconnect != nil {
			c.onDisconnect(c.userID)
		}
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.Int("userId", c.userID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: connection replaced or hub shutting down.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("websocket write error", zap.Int("userId", c.userID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
