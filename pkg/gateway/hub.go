package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
)

// outbound is implemented by Session. The hub never blocks on it.
type outbound interface {
	ClientID() string
	Enqueue(data []byte) bool
	Close()
}

type (
	HubOption func(*Hub)
	// Hub is the registry of connected sessions and fans out deliveries
	Hub struct {
		mu       sync.RWMutex
		sessions map[string]outbound
		public   chan<- protocol.Encoded
		l        *log.Logger
		numSent  int64
		numDrops int64
	}
)

// WithPublicEvents copies the encoded form of every event addressed to all
// sessions to ch
func WithPublicEvents(ch chan<- protocol.Encoded) HubOption {
	return func(h *Hub) {
		h.public = ch
	}
}

func WithHubLogger(l *log.Logger) HubOption {
	return func(h *Hub) {
		h.l = l
	}
}

func NewHub(opts ...HubOption) *Hub {
	ret := &Hub{
		sessions: map[string]outbound{},
		l:        log.Default().Named("hub"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.setupMetrics()
	return ret
}

func (h *Hub) Register(s outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ClientID()] = s
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) Deliver(ds ...Delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range ds {
		h.deliver(&ds[i])
	}
}

func (h *Hub) deliver(d *Delivery) {
	data, err := json.Marshal(d.Event)
	if err != nil {
		h.l.Error("could not marshal event",
			log.String("event", d.Event.Type), log.ErrorField(err))
		return
	}
	send := func(s outbound) {
		if s.Enqueue(data) {
			h.numSent++
		} else {
			h.numDrops++
			h.l.Warn("session not accepting events, dropping event",
				log.String("session", s.ClientID()), log.String("event", d.Event.Type))
		}
	}
	switch d.Scope {
	case ScopeRequester, ScopePlayer:
		s, ok := h.sessions[d.Target]
		if !ok {
			return
		}
		send(s)
		if d.Close {
			s.Close()
		}
	case ScopeAll, ScopeAllExcept:
		for id, s := range h.sessions {
			if d.Scope == ScopeAllExcept && id == d.Target {
				continue
			}
			send(s)
		}
		if h.public != nil {
			select {
			case h.public <- protocol.Encoded{Type: d.Event.Type, Data: data}:
			default:
				h.l.Debug("public event channel full", log.String("event", d.Event.Type))
			}
		}
	}
}

func (h *Hub) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("ccs.hub")
	register := func(name, desc string, value func() int64) {
		if _, err := meter.Int64ObservableGauge(name,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(value())
				return nil
			})); err != nil {
			h.l.Error("failed to register metric", log.String("metric", name), log.ErrorField(err))
		}
	}
	register("ccs.hub.sessions", "Number of connected sessions",
		func() int64 { return int64(h.Count()) })
	register("ccs.hub.sent", "Number of sent events", func() int64 {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.numSent
	})
	register("ccs.hub.dropped", "Number of dropped events", func() int64 {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.numDrops
	})
}
