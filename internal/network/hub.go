package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/cookie-engine/internal/events"
	"github.com/MRamiBalles/cookie-engine/internal/platform/config"
	"github.com/MRamiBalles/cookie-engine/internal/platform/logger"
	"github.com/MRamiBalles/cookie-engine/internal/platform/metrics"
)

// Message is the envelope for everything the server pushes to a client.
type Message struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

const (
	MsgTypeEvent  = "event"
	MsgTypeResult = "result"
	MsgTypeState  = "state"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	mu         sync.Mutex
	logger     *logger.Logger

	commander Commander
	cfg       config.Server

	// TICK events are forwarded at most once per tickEvery.
	tickEvery    time.Duration
	lastTickSent atomic.Int64
	dropped      atomic.Int64
}

// NewHub initializes a new WebSocket Hub dispatching commands to cmd.
func NewHub(cmd Commander, cfg config.Server, log *logger.Logger) *Hub {
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = 256
	}
	if cfg.ClientSendBuffer <= 0 {
		cfg.ClientSendBuffer = 64
	}
	return &Hub{
		broadcast:  make(chan []byte, cfg.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     log,
		commander:  cmd,
		cfg:        cfg,
		tickEvery:  time.Second,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.Get().RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
					metrics.Get().RecordWSConnection(-1)
					h.logger.Warn("Dropped slow WebSocket client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many broadcasts were discarded because the fan-out
// buffer was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// BroadcastEvent serializes a GameEvent and queues it for every client. It
// never blocks: the engine calls it while holding its lock.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	if event.Type == events.EventTypeTick && !h.tickDue(event.Timestamp) {
		return
	}
	payload, err := json.Marshal(Message{
		Type:      MsgTypeEvent,
		Timestamp: event.Timestamp.Unix(),
		Payload:   event,
	})
	if err != nil {
		h.logger.Errorf("Failed to serialize GameEvent for WebSocket broadcast: %v", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hub) tickDue(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	last := h.lastTickSent.Load()
	if last != 0 && at.Sub(time.Unix(0, last)) < h.tickEvery {
		return false
	}
	return h.lastTickSent.CompareAndSwap(last, at.UnixNano())
}

// Attach subscribes the hub to eventLog so every engine notification reaches
// connected clients.
func (h *Hub) Attach(eventLog *events.EventLog) {
	eventLog.Subscribe(h.BroadcastEvent)
}

// ServeWS upgrades the request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.cfg.MaxClients > 0 && h.Count() >= h.cfg.MaxClients {
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.Get().RecordWSError()
		h.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}
	client := NewClient(h, conn)
	client.Register()
	go client.WritePump()
	go client.ReadPump()
}
