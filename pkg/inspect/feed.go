package inspect

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/stackkit/pkg/overlay"
)

// MessageType is the type of a feed message.
type MessageType string

const (
	MessageSnapshot MessageType = "snapshot"
	MessageBye      MessageType = "bye"
)

// Message is sent to feed clients.
type Message struct {
	Type     MessageType       `json:"type"`
	Snapshot *overlay.Snapshot `json:"snapshot,omitempty"`
}

// feed fans snapshots out to websocket clients. Writes happen on the
// server's run goroutine only.
type feed struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

func newFeed(checkOrigin func(*http.Request) bool) *feed {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &feed{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (f *feed) add(conn *websocket.Conn) {
	f.mu.Lock()
	f.clients[conn] = true
	f.mu.Unlock()
}

func (f *feed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	_, ok := f.clients[conn]
	delete(f.clients, conn)
	f.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// broadcast sends msg to every client, dropping those that fail.
func (f *feed) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	f.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(f.clients))
	for c := range f.clients {
		clients = append(clients, c)
	}
	f.mu.RUnlock()

	for _, c := range clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			f.remove(c)
		}
	}
}

func (f *feed) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *feed) close() {
	f.broadcast(Message{Type: MessageBye})
	f.mu.Lock()
	clients := f.clients
	f.clients = make(map[*websocket.Conn]bool)
	f.mu.Unlock()
	for c := range clients {
		c.Close()
	}
}
