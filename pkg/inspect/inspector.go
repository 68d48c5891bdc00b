package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daireb/reactor/pkg/reactor"
)

// UpdateType identifies a streamed message.
type UpdateType string

const (
	UpdateValue  UpdateType = "value"
	UpdateRemove UpdateType = "remove"
)

// Update is one message on the WebSocket stream.
type Update struct {
	Type  UpdateType `json:"type"`
	Node  string     `json:"node"`
	Value any        `json:"value,omitempty"`
	At    time.Time  `json:"at"`
}

// NodeSnapshot is one entry of the /nodes response.
type NodeSnapshot struct {
	Name    string    `json:"name"`
	Value   any       `json:"value"`
	Updates int       `json:"updates"`
	LastAt  time.Time `json:"last_at"`
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger. Default: slog.Default with a component
// attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// WithMetricsHandler replaces the /metrics handler. Default:
// promhttp.Handler on the default registry.
func WithMetricsHandler(h http.Handler) Option {
	return func(i *Inspector) {
		i.metricsHandler = h
	}
}

// Inspector watches registered reactor values and serves their latest
// state over HTTP.
type Inspector struct {
	logger         *slog.Logger
	hub            *hub
	metricsHandler http.Handler

	// mu guards the snapshot below; the engine goroutine writes it via
	// observer callbacks, HTTP handlers read it.
	mu      sync.RWMutex
	watches map[string]*watch
	order   []string
}

type watch struct {
	name    string
	value   any
	updates int
	lastAt  time.Time
	obs     *reactor.Observer
}

// New creates an Inspector.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		logger:         slog.Default().With("component", "inspect"),
		watches:        make(map[string]*watch),
		metricsHandler: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.hub = newHub(i.logger)
	return i
}

// Register watches src under name. The observer it creates records
// every settled value and streams it to connected clients. Call from
// the goroutine that drives the graph. Re-registering a name replaces
// the previous watch.
func Register[T any](i *Inspector, name string, src reactor.Source[T]) {
	Unregister(i, name)

	w := &watch{name: name}
	w.obs = reactor.Subscribe(src, func(v T) {
		i.record(w, v)
	})

	i.mu.Lock()
	i.watches[name] = w
	i.order = append(i.order, name)
	i.mu.Unlock()
}

// Unregister stops watching name and tells clients it is gone. No-op
// for unknown names.
func Unregister(i *Inspector, name string) {
	i.mu.Lock()
	w, ok := i.watches[name]
	if ok {
		delete(i.watches, name)
		for idx, n := range i.order {
			if n == name {
				i.order = append(i.order[:idx], i.order[idx+1:]...)
				break
			}
		}
	}
	i.mu.Unlock()

	if !ok {
		return
	}
	w.obs.Dispose()
	i.hub.broadcast(Update{Type: UpdateRemove, Node: name, At: time.Now()})
}

// record stores a settled value and streams it.
func (i *Inspector) record(w *watch, value any) {
	now := time.Now()

	i.mu.Lock()
	w.value = value
	w.updates++
	w.lastAt = now
	i.mu.Unlock()

	i.hub.broadcast(Update{Type: UpdateValue, Node: w.name, Value: value, At: now})
}

// Snapshot returns the current state of every watched node, in
// registration order.
func (i *Inspector) Snapshot() []NodeSnapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]NodeSnapshot, 0, len(i.order))
	for _, name := range i.order {
		w := i.watches[name]
		out = append(out, NodeSnapshot{
			Name:    w.name,
			Value:   w.value,
			Updates: w.updates,
			LastAt:  w.lastAt,
		})
	}
	return out
}

// Handler returns the inspector's HTTP surface:
//
//	GET /nodes   JSON snapshot of all watched nodes
//	GET /ws      WebSocket stream of updates
//	GET /metrics Prometheus metrics
func (i *Inspector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/nodes", i.handleNodes)
	r.Get("/ws", i.hub.handleWebSocket)
	r.Handle("/metrics", i.metricsHandler)
	return r
}

func (i *Inspector) handleNodes(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(i.Snapshot()); err != nil {
		i.logger.Error("snapshot encode failed", "error", err)
	}
}
