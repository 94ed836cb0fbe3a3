// Package stream pushes replay events to websocket clients.
package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/handler"
)

// Event types carried in Envelope.Type.
const (
	TypePrice       = "price"
	TypeReplayState = "replay_state"
	TypeFill        = "fill"
)

// Envelope is the JSON frame sent to clients.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	broadcastBuffer = 1024
	clientBuffer    = 256
)

// Hub fans replay events out to connected websocket clients. It implements
// engine.Notifier; its notifier methods never block the caller, events are
// dropped when the broadcast queue is full.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	broadcast  chan Envelope
	clients    map[*client]struct{} // owned by Run
	done       chan struct{}        // closed when Run returns

	stateMu     sync.RWMutex
	latestState *Envelope
}

// NewHub creates a Hub. Call Run to start delivering events.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Envelope, broadcastBuffer),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop. It returns when ctx is cancelled, after closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.stateMu.RLock()
			if h.latestState != nil {
				c.send <- *h.latestState
			}
			h.stateMu.RUnlock()

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case env := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- env:
				default:
					// Slow consumer; drop it rather than stall the loop.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan Envelope, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) publish(env Envelope) {
	select {
	case h.broadcast <- env:
	default:
		h.logger.Warn("stream broadcast queue full, dropping event", slog.String("type", env.Type))
	}
}

// PriceUpdated implements engine.Notifier.
func (h *Hub) PriceUpdated(symbol string, price decimal.Decimal, timestamp int64) {
	h.publish(Envelope{Type: TypePrice, Data: handler.PriceResponse{
		Symbol:    symbol,
		Price:     price,
		Timestamp: timestamp,
	}})
}

// ReplayStateChanged implements engine.Notifier. The latest state is also
// sent to clients as they connect.
func (h *Hub) ReplayStateChanged(state domain.ReplayState) {
	env := Envelope{Type: TypeReplayState, Data: handler.NewReplayStateResponse(state)}
	h.stateMu.Lock()
	h.latestState = &env
	h.stateMu.Unlock()
	h.publish(env)
}

// OrderFilled implements engine.Notifier.
func (h *Hub) OrderFilled(tx domain.Transaction) {
	h.publish(Envelope{Type: TypeFill, Data: handler.NewTransactionResponse(tx)})
}

// OrderDeferred implements engine.Notifier. Deferrals are not streamed.
func (h *Hub) OrderDeferred(domain.PendingOrder, error) {}
