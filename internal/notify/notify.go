// Package notify is a best-effort local websocket broadcaster: when the
// Daemon regenerates a project's catch-up summary, it publishes the new
// prose to every connected retrieval client. A publish with no clients is a
// no-op, and a slow client is dropped rather than allowed to stall the
// daemon's control loop.
package notify

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Message is the payload pushed to every connected client.
type Message struct {
	Project string `json:"project"`
	Summary string `json:"summary"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, 16)}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() { close(c.send) }

// Broadcaster is the Notify component: an http.Server exposing one
// websocket upgrade endpoint, fanning out Publish calls to every client
// currently connected.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*client]bool),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Start begins listening on addr (":0" picks an ephemeral port) and serving
// websocket upgrades at "/". Returns the actual bound address.
func (b *Broadcaster) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	b.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", b.handleUpgrade)
	b.server = &http.Server{Handler: mux}

	go func() {
		if err := b.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("notify: serve error: %v", err)
		}
	}()

	return ln.Addr().String(), nil
}

// Stop closes the listener and the HTTP server. Websocket connections that
// were already upgraded are not closed by it.
func (b *Broadcaster) Stop() error {
	if b.server == nil {
		return nil
	}
	return b.server.Close()
}

func (b *Broadcaster) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	// Drain inbound frames until the client disconnects so the read
	// buffer doesn't fill and the close is detected promptly.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.removeClient(c)
				return
			}
		}
	}()
}

func (b *Broadcaster) removeClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
}

// Publish fans out msg to every connected client. A client that cannot
// keep up is dropped rather than allowed to block the publish; an error
// here is always non-fatal to the caller (the Daemon logs and continues).
func (b *Broadcaster) Publish(project, summary string) error {
	data, err := json.Marshal(Message{Project: project, Summary: summary})
	if err != nil {
		return err
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			b.removeClient(c)
		}
	}
	return nil
}
