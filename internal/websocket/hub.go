package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"voicetask/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "voicetask_cluster_events"

// Frame is the envelope of every server-to-device message.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// clusterMessage is what instances exchange over Redis.
type clusterMessage struct {
	Origin string          `json:"origin"`
	Frame  json.RawMessage `json:"frame"`
}

func encodeFrame(frameType string, data interface{}) ([]byte, error) {
	return json.Marshal(Frame{Type: frameType, Data: data})
}

type Hub struct {
	// Registered clients: DeviceID -> connections (one device may reconnect
	// before its old socket is reaped).
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out. May be nil.
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.DeviceID] = append(h.clients[client.DeviceID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"device_id": client.DeviceID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// Register adds client to the hub. It returns false once the hub stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.DeviceID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.DeviceID] = append(clients[:i:i], clients[i+1:]...)
			client.close()
			break
		}
	}
	if len(h.clients[client.DeviceID]) == 0 {
		delete(h.clients, client.DeviceID)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"device_id": client.DeviceID})
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.clients {
		for _, c := range clients {
			c.close()
		}
		delete(h.clients, id)
	}
}

// Broadcast sends a frame to every connected device, on this instance and,
// through Redis, on the others.
func (h *Hub) Broadcast(frameType string, data interface{}) {
	payload, err := encodeFrame(frameType, data)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode frame", map[string]interface{}{"type": frameType, "error": err.Error()})
		return
	}

	h.deliverLocal(payload)

	if h.rdb != nil {
		msg, _ := json.Marshal(clusterMessage{Origin: h.instanceID, Frame: payload})
		if err := h.rdb.Publish(context.Background(), clusterChannel, msg).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to publish to cluster", map[string]interface{}{"error": err.Error()})
		}
	}
}

// ConnectedDevices returns the number of distinct connected devices.
func (h *Hub) ConnectedDevices() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliverLocal(payload []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, clients := range h.clients {
		for _, client := range clients {
			if !client.enqueue(payload) {
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"device_id": client.DeviceID})
		h.Unregister(client)
	}
}

// subscribeToRedis relays frames broadcast by other instances. Our own
// publications come back too and are skipped by origin.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.deliverRemote([]byte(msg.Payload))
		}
	}
}

func (h *Hub) deliverRemote(raw []byte) {
	var msg clusterMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if msg.Origin == h.instanceID {
		return
	}
	h.deliverLocal(msg.Frame)
}
