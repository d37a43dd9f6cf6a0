package gateway

import (
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/illusionlabs/classync/internal/bus"
	"github.com/illusionlabs/classync/internal/models"
	"github.com/illusionlabs/classync/internal/playback"
)

const (
	// writeWait bounds each write to the peer
	writeWait = 10 * time.Second
	// pongWait is how long we keep a silent connection before assuming it died
	pongWait = 30 * time.Second
	// pingPeriod must be shorter than pongWait
	pingPeriod = pongWait * 9 / 10
)

// client is one established meeting sync connection
type client struct {
	id       string
	room     models.RoomID
	conn     *websocket.Conn
	sub      bus.Subscription
	registry *playback.Registry
}

func newClient(id string, room models.RoomID, conn *websocket.Conn, sub bus.Subscription, registry *playback.Registry) *client {
	return &client{
		id:       id,
		room:     room,
		conn:     conn,
		sub:      sub,
		registry: registry,
	}
}

// sendUpdate writes a single update to the peer, used for the initial snapshot
func (c *client) sendUpdate(update *models.Update) {
	data, err := update.Encode()
	if err != nil {
		log.Printf("Failed to encode update for client %s: %v", c.id, err)
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("Failed to write to client %s: %v", c.id, err)
	}
}

// writePump relays broadcast bus messages to the peer and keeps the
// connection alive with pings. It exits when the subscription closes.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case update, ok := <-c.sub.Updates():
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := update.Encode()
			if err != nil {
				log.Printf("Failed to encode update for client %s: %v", c.id, err)
				continue
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

// readPump drains the connection to detect disconnects and service pongs.
// Inbound payloads are ignored: all mutations travel over HTTP. On exit the
// client leaves the room; leaving never stops the room's playback loop.
func (c *client) readPump() {
	defer func() {
		c.registry.Leave(c.room, c.id)
		c.sub.Close()
		c.conn.Close()
		log.Printf("Client %s left room %s", c.id, c.room)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Unexpected close from client %s: %v", c.id, err)
			}
			return
		}
	}
}
