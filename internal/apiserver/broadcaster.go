package apiserver

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// WSClient is one connected websocket subscriber
type WSClient struct {
	ID          string
	Conn        *websocket.Conn
	ConnectedAt time.Time
	IPAddress   string

	writeMu sync.Mutex
}

// EventMessage is the envelope sent to subscribers
type EventMessage struct {
	Type      string      `json:"type"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Broadcaster fans runtime events out to websocket subscribers
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*WSClient
	logger  zerolog.Logger
}

// NewBroadcaster creates a new broadcaster
func NewBroadcaster(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]*WSClient),
		logger:  logger,
	}
}

// Add registers a connection and returns the client record
func (b *Broadcaster) Add(conn *websocket.Conn, remoteAddr string) *WSClient {
	id, _ := gonanoid.New()
	client := &WSClient{
		ID:          id,
		Conn:        conn,
		ConnectedAt: time.Now(),
		IPAddress:   remoteAddr,
	}

	b.mu.Lock()
	b.clients[id] = client
	b.mu.Unlock()

	b.logger.Info().Str("clientId", id).Str("ip", remoteAddr).Msg("Event subscriber connected")
	return client
}

// Remove unregisters and closes a connection
func (b *Broadcaster) Remove(id string) {
	b.mu.Lock()
	client, ok := b.clients[id]
	delete(b.clients, id)
	b.mu.Unlock()

	if ok {
		client.Conn.Close()
		b.logger.Info().Str("clientId", id).Msg("Event subscriber disconnected")
	}
}

// Count returns the number of connected subscribers
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends an event to all subscribers
func (b *Broadcaster) Broadcast(event string, data interface{}) {
	msg := EventMessage{
		Type:      "event",
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}

	b.mu.RLock()
	clients := make([]*WSClient, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, client := range clients {
		client.writeMu.Lock()
		err := client.Conn.WriteMessage(websocket.TextMessage, payload)
		client.writeMu.Unlock()
		if err != nil {
			b.logger.Warn().
				Err(err).
				Str("clientId", client.ID).
				Str("event", event).
				Msg("Failed to broadcast to client")
		}
	}
}

// CloseAll closes every subscriber connection
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, client := range b.clients {
		client.Conn.Close()
		delete(b.clients, id)
	}
}
