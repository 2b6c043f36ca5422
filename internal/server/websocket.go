// File: internal/server/websocket.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/api/schemas"
	"github.com/xkilldash9x/boxscope/internal/geometry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The devtools panel connects from an extension origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Constants for WebSocket timeouts and limits (based on Gorilla WebSocket examples).
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 8192
	// Send buffer size
	sendChannelSize = 64
)

// wsClient is one panel connection. Everything it starts stops when ctx is done.
type wsClient struct {
	server *Server
	conn   *websocket.Conn
	log    *zap.Logger
	send   chan schemas.PickMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// handlePick upgrades to a WebSocket speaking the pick protocol.
func (s *Server) handlePick() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			s.logger.Warn("Failed to upgrade connection to WebSocket", zap.Error(err))
			return
		}

		ctx, cancel := context.WithCancel(s.baseCtx)
		client := &wsClient{
			server: s,
			conn:   conn,
			log:    s.logger.With(zap.String("remote_addr", r.RemoteAddr)),
			send:   make(chan schemas.PickMessage, sendChannelSize),
			ctx:    ctx,
			cancel: cancel,
		}
		client.log.Info("Pick WebSocket connected.")

		client.wg.Add(1)
		go client.writePump()
		client.readPump()

		cancel()
		client.wg.Wait()
		client.log.Debug("Pick WebSocket handler finished.")
	}
}

// readPump reads client messages until the connection drops or the server stops.
func (c *wsClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error("Failed to set initial read deadline", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg schemas.PickMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && c.ctx.Err() == nil {
				c.log.Warn("WebSocket closed unexpectedly", zap.Error(err))
			} else {
				c.log.Info("WebSocket connection closed.")
			}
			return
		}
		c.processMessage(msg)
	}
}

// writePump owns all writes to the connection. On shutdown it sends a close frame
// and closes the connection, which also ends readPump.
func (c *wsClient) writePump() {
	defer c.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			payload, err := wireJSON.Marshal(msg)
			if err != nil {
				c.log.Error("Failed to encode WebSocket message", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Warn("Error writing WebSocket message", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// processMessage dispatches one client message. Picks block on the user, so they
// run off the read loop.
func (c *wsClient) processMessage(msg schemas.PickMessage) {
	ws := c.server.ws
	switch msg.Action {
	case schemas.ActionPick:
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			resp, err := ws.Pick(c.ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					c.sendError(err.Error())
				}
				return
			}
			c.sendElements(resp)
		}()

	case schemas.ActionResolve:
		if msg.Point == nil {
			c.sendError("resolve requires a point")
			return
		}
		resp, err := ws.Resolve(geometry.Point{X: msg.Point.X, Y: msg.Point.Y})
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendElements(resp)

	case schemas.ActionHighlight:
		if msg.Index == nil {
			c.sendError("highlight requires an index")
			return
		}
		resp, err := ws.Highlight(*msg.Index)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendMessage(schemas.PickMessage{
			Action: schemas.ActionHighlight,
			Index:  &resp.Index,
			Found:  &resp.Found,
			Rect:   resp.Rect,
		})

	default:
		c.log.Warn("Received unknown action from client", zap.String("action", msg.Action))
		c.sendError(fmt.Sprintf("unknown action %q", msg.Action))
	}
}

func (c *wsClient) sendElements(resp schemas.PickResponse) {
	point := resp.Point
	c.sendMessage(schemas.PickMessage{
		Action:   schemas.ActionElements,
		Point:    &point,
		Elements: resp.Elements,
	})
}

func (c *wsClient) sendError(message string) {
	c.sendMessage(schemas.PickMessage{Action: schemas.ActionError, Error: message})
}

// sendMessage queues msg for the write pump. A full buffer drops the message.
func (c *wsClient) sendMessage(msg schemas.PickMessage) {
	select {
	case <-c.ctx.Done():
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		c.log.Error("WebSocket send buffer full, dropping message.", zap.String("action", msg.Action))
	}
}
