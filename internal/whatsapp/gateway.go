// Package whatsapp connects the engine to WhatsApp two ways: a Meta
// webhook receiver and a persistent websocket gateway. Both feed the
// same message handler; outbound delivery goes through the gateway.
package whatsapp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/yamux"

	"github.com/igoryan-dao/renovabot/internal/domain"
)

// Event is one frame on the gateway stream, newline-delimited JSON.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // message | send | heartbeat
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Name      string `json:"name,omitempty"`
	Text      string `json:"text,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

const (
	EventMessage   = "message"
	EventSend      = "send"
	EventHeartbeat = "heartbeat"
)

const (
	heartbeatPeriod = 30 * time.Second
	reconnectDelay  = 5 * time.Second
)

// MessageHandler processes an inbound message and returns the reply
// text, or "" for no reply.
type MessageHandler func(ctx context.Context, waID, name, text string) string

// Gateway keeps one multiplexed websocket session to the WhatsApp
// gateway and restores it after drops.
type Gateway struct {
	url     string
	handler MessageHandler

	mu      sync.Mutex
	session *yamux.Session
	enc     *json.Encoder
}

func NewGateway(url string, handler MessageHandler) *Gateway {
	return &Gateway{url: url, handler: handler}
}

// Run dials, serves and redials until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	for {
		if err := g.connectAndServe(ctx); err != nil {
			log.Printf("[whatsapp] gateway: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (g *Gateway) connectAndServe(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	session, err := yamux.Client(newWSConn(conn), nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("yamux session: %w", err)
	}
	defer session.Close()

	stream, err := session.Open()
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}

	g.mu.Lock()
	g.session = session
	g.enc = json.NewEncoder(stream)
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.session = nil
		g.enc = nil
		g.mu.Unlock()
	}()

	log.Printf("[whatsapp] gateway connected: %s", g.url)

	go g.heartbeatLoop(ctx)
	return g.readLoop(ctx, stream)
}

func (g *Gateway) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.send(Event{Type: EventHeartbeat, Timestamp: time.Now().Unix()}); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) readLoop(ctx context.Context, stream net.Conn) error {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			log.Printf("[whatsapp] bad frame: %v", err)
			continue
		}
		if ev.Type != EventMessage || ev.From == "" {
			continue
		}
		if g.handler == nil {
			continue
		}
		if reply := g.handler(ctx, ev.From, ev.Name, ev.Text); reply != "" {
			if err := g.SendText(ev.From, reply); err != nil {
				log.Printf("[whatsapp] reply to %s: %v", ev.From, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream: %w", err)
	}
	return fmt.Errorf("event stream closed")
}

func (g *Gateway) send(ev Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.enc == nil {
		return fmt.Errorf("%w: gateway not connected", domain.ErrUpstream)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	return g.enc.Encode(ev)
}

// SendText delivers one outbound message through the gateway.
func (g *Gateway) SendText(waID, text string) error {
	return g.send(Event{
		Type:      EventSend,
		To:        waID,
		Text:      text,
		Timestamp: time.Now().Unix(),
	})
}

// Connected reports whether a live session exists.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session != nil && !g.session.IsClosed()
}
