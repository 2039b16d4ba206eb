package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bizhanchik/taxidispatch/internal/demand"
	"github.com/bizhanchik/taxidispatch/internal/dispatch"
	"github.com/bizhanchik/taxidispatch/internal/metrics"
	"github.com/bizhanchik/taxidispatch/internal/store"
)

const sendBufferSize = 16

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	out  chan []byte
}

// Hub is the subscriber registry: it multicasts two message kinds, prunes
// subscribers whose send buffer is full or whose connection errors, and
// resets simulation state to idle when the last subscriber disconnects.
type Hub struct {
	store   *store.Store
	demand  *demand.Aggregator
	matcher *dispatch.Matcher
	logger  *zap.Logger

	mu          sync.Mutex
	subscribers map[string]*subscriber
}

// New returns a Hub wired to the engine's shared state.
func New(st *store.Store, agg *demand.Aggregator, matcher *dispatch.Matcher, logger *zap.Logger) *Hub {
	return &Hub{
		store:       st,
		demand:      agg,
		matcher:     matcher,
		logger:      logger,
		subscribers: make(map[string]*subscriber),
	}
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ServeWS upgrades the HTTP request to a websocket connection, registers the
// subscriber, pushes it an immediate state snapshot, and runs its read/write
// pumps until disconnect.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("broadcast: upgrade failed", zap.Error(err))
		}
		return
	}

	sub := &subscriber{id: uuid.NewString(), conn: conn, out: make(chan []byte, sendBufferSize)}
	h.register(sub)
	defer h.unregister(sub)

	go h.writePump(sub)
	h.readPump(sub)
}

func (h *Hub) register(sub *subscriber) {
	h.mu.Lock()
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()
	metrics.BroadcastSubscribers.Set(float64(count))

	if h.logger != nil {
		h.logger.Info("broadcast: subscriber connected", zap.String("id", sub.id))
	}
	if raw, err := json.Marshal(newStateUpdate(h.store.Snapshot())); err == nil {
		h.sendTo(sub, raw)
	}
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	_, existed := h.subscribers[sub.id]
	delete(h.subscribers, sub.id)
	count := len(h.subscribers)
	empty := count == 0
	h.mu.Unlock()

	if !existed {
		return
	}
	metrics.BroadcastSubscribers.Set(float64(count))
	close(sub.out)
	sub.conn.Close()
	if h.logger != nil {
		h.logger.Info("broadcast: subscriber disconnected", zap.String("id", sub.id))
	}
	if empty {
		h.store.ResetIdle()
	}
}

func (h *Hub) readPump(sub *subscriber) {
	for {
		_, raw, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "complete_assignment":
			h.matcher.Complete(msg.OrderID)
			h.BroadcastState()
		case "algorithm_config":
			proximity := true
			supplyDemand := false
			if msg.Proximity != nil {
				proximity = *msg.Proximity
			}
			if msg.SupplyDemand != nil {
				supplyDemand = *msg.SupplyDemand
			}
			h.matcher.SetMode(dispatch.ResolveMode(proximity, supplyDemand))
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case raw, ok := <-sub.out:
			if !ok {
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendTo enqueues raw on sub's outbound channel; a full channel means a slow
// or dead subscriber, which is pruned exactly like a failed send.
func (h *Hub) sendTo(sub *subscriber, raw []byte) {
	select {
	case sub.out <- raw:
	default:
		go h.unregister(sub)
	}
}

// BroadcastState serializes the full (taxis, orders, assignments) snapshot
// and multicasts it. A no-op if there are no subscribers.
func (h *Hub) BroadcastState() {
	h.mu.Lock()
	targets := h.snapshotTargets()
	h.mu.Unlock()
	if len(targets) == 0 {
		return
	}
	raw, err := json.Marshal(newStateUpdate(h.store.Snapshot()))
	if err != nil {
		return
	}
	for _, sub := range targets {
		h.sendTo(sub, raw)
	}
}

// BroadcastDemand recomputes the demand aggregation and multicasts the hex
// array. A no-op if there are no subscribers.
func (h *Hub) BroadcastDemand(resolution int) {
	h.mu.Lock()
	targets := h.snapshotTargets()
	h.mu.Unlock()
	if len(targets) == 0 {
		return
	}
	h.demand.Recount(h.store.Snapshot())
	raw, err := json.Marshal(newDemandUpdate(h.demand.All(), resolution))
	if err != nil {
		return
	}
	for _, sub := range targets {
		h.sendTo(sub, raw)
	}
}

func (h *Hub) snapshotTargets() []*subscriber {
	out := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		out = append(out, sub)
	}
	return out
}
