// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// client is one WebSocket connection: the read pump feeds submissions into
// the acceptance pipeline, the write pump streams the broadcast feed back.
type client struct {
	conn        *websocket.Conn
	server      *Server
	sub         *Subscription
	addr        string
	rateLimiter *rateLimiter
	rateLimit   RateLimitConfig
}

func newClient(conn *websocket.Conn, s *Server, addr string) *client {
	cfg := s.cfg
	conn.SetReadLimit(cfg.MaxMessageSize)

	return &client{
		conn:        conn,
		server:      s,
		sub:         s.hub.Subscribe(),
		addr:        addr,
		rateLimiter: newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:   cfg.RateLimit,
	}
}

// run starts the write pump and blocks in the read pump until the connection
// ends, then releases the subscription.
func (c *client) run() {
	log.Printf("WebSocket client connected from %s", c.addr)

	go c.writePump()
	c.readPump()

	c.sub.Close()
	log.Printf("WebSocket client from %s disconnected", c.addr)
}

func (c *client) readPump() {
	defer c.closeConnection()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processMessage(raw)
	}
}

// writePump forwards the broadcast feed to the client as JSON frames and
// keeps the connection alive with periodic pings. It terminates on server
// shutdown, subscription close, or a failed write.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	done := make(chan struct{})
	defer func() {
		ticker.Stop()
		close(done)
		c.closeConnection()
	}()

	msgs := make(chan Message)
	errs := make(chan error, 1)
	go func() {
		for {
			msg, lagged, err := c.sub.Receive(c.server.ctx)
			if err != nil {
				errs <- err
				return
			}
			if lagged > 0 {
				log.Printf("WebSocket client %s lagged, skipped %d message(s)", c.addr, lagged)
			}
			select {
			case msgs <- msg:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case msg := <-msgs:
			if !c.writeMessage(msg) {
				return
			}
		case err := <-errs:
			if errors.Is(err, ErrHubClosed) || errors.Is(err, context.Canceled) {
				c.writeCloseMessage()
			}
			return
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// checkRateLimit reports whether the client is within its submission budget.
func (c *client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		log.Printf("Rate limit exceeded for %s (%d messages per %s); discarding message", c.addr, c.rateLimit.Burst, c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// processMessage parses a raw frame and runs it through the shared
// submission pipeline. Malformed or oversized frames are discarded.
func (c *client) processMessage(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("Invalid message from %s: %v", c.addr, err)
		return
	}
	if problem := msg.Validate(); problem != "" {
		log.Printf("Rejected message from %s: %s", c.addr, problem)
		return
	}

	c.server.Submit(msg)
}

func (c *client) writeMessage(msg Message) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error encoding message for %s: %v", c.addr, err)
		return true
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Error setting write deadline for %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing message to %s: %v", c.addr, err)
		}
		return false
	}
	return true
}

func (c *client) writeCloseMessage() {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close message to %s: %v", c.addr, err)
		}
	}
}

func (c *client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Error setting write deadline for ping to %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing ping message to %s: %v", c.addr, err)
		}
		return false
	}
	return true
}

func (c *client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing connection for %s: %v", c.addr, err)
		}
	}
}

// logReadError logs connection teardown at an appropriate level; expected
// close conditions are routine.
func (c *client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Message from %s exceeded maximum size of %d bytes", c.addr, c.server.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Client %s disconnected: %v", c.addr, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Printf("Client %s connection closed: %v", c.addr, err)
	default:
		log.Printf("WebSocket read error from %s: %v", c.addr, err)
	}
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
