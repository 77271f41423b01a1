// Package realtime fans out row-change notifications from Postgres to
// in-process subscribers and keeps live, re-fetched views of screens.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("pkg", "realtime").Logger()

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meal_admin",
		Subsystem: "realtime",
		Name:      "events_received_total",
		Help:      "Change notifications received from the database.",
	}, []string{"table", "type"})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meal_admin",
		Subsystem: "realtime",
		Name:      "events_dropped_total",
		Help:      "Events not delivered because a subscriber's buffer was full.",
	})
	subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "meal_admin",
		Subsystem: "realtime",
		Name:      "subscribers",
		Help:      "Current number of hub subscriptions.",
	})
)

type EventKind string

const (
	Insert EventKind = "INSERT"
	Update EventKind = "UPDATE"
	Delete EventKind = "DELETE"
	Any    EventKind = "*"
)

// Event is one row change as published by notify_table_change().
type Event struct {
	Table     string         `json:"table"`
	Kind      EventKind      `json:"type"`
	ID        string         `json:"id,omitempty"`
	Record    map[string]any `json:"record,omitempty"`
	OldRecord map[string]any `json:"old_record,omitempty"`
}

var ErrBadEvent = errors.New("malformed change event")

// ParseEvent decodes a notification payload.
func ParseEvent(payload string) (Event, error) {
	var e Event
	if err := json.UnmarshalFromString(payload, &e); err != nil {
		return e, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	if e.Table == "" {
		return e, fmt.Errorf("%w: missing table", ErrBadEvent)
	}
	switch e.Kind {
	case Insert, Update, Delete:
	default:
		return e, fmt.Errorf("%w: unknown type %q", ErrBadEvent, e.Kind)
	}
	return e, nil
}

// Field returns a column of the new row, or of the old row for deletes, as text.
func (e Event) Field(name string) string {
	v, ok := e.Record[name]
	if !ok {
		v, ok = e.OldRecord[name]
	}
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Filter selects events of a table. An empty Kind or Any matches every kind;
// when Column is set the event's row must have Column equal to Value.
type Filter struct {
	Table  string
	Kind   EventKind
	Column string
	Value  string
}

func (f Filter) Match(e Event) bool {
	if f.Table != e.Table {
		return false
	}
	if f.Kind != "" && f.Kind != Any && f.Kind != e.Kind {
		return false
	}
	if f.Column != "" && e.Field(f.Column) != f.Value {
		return false
	}
	return true
}

type subscription struct {
	filters []Filter
	ch      chan Event
}

// Hub delivers events to subscribers whose filters match. Delivery never
// blocks: an event is dropped for a subscriber whose buffer is full.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[int]*subscription), buffer: buffer}
}

// Subscribe registers filters and returns the event channel together with a
// cancel func that removes the subscription and closes the channel.
func (h *Hub) Subscribe(filters ...Filter) (<-chan Event, func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	sub := &subscription{filters: filters, ch: make(chan Event, h.buffer)}
	h.subs[id] = sub
	h.mu.Unlock()
	subscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(sub.ch)
			h.mu.Unlock()
			subscribers.Dec()
		})
	}
	return sub.ch, cancel
}

// Publish delivers e to every matching subscriber.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		if !matchesAny(sub.filters, e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			eventsDropped.Inc()
			logger.Warn().Int("sub", id).Str("table", e.Table).Msg("subscriber buffer full, event dropped")
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func matchesAny(filters []Filter, e Event) bool {
	for _, f := range filters {
		if f.Match(e) {
			return true
		}
	}
	return false
}

// Listen holds a dedicated connection that LISTENs on channel and publishes
// every notification. A dropped connection is re-established after
// reconnectDelay. Listen returns when ctx is done.
func (h *Hub) Listen(ctx context.Context, pool *pgxpool.Pool, channel string, reconnectDelay time.Duration) error {
	for {
		err := h.listenOnce(ctx, pool, channel)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error().Err(err).Str("channel", channel).Dur("retry_in", reconnectDelay).Msg("listener stopped")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (h *Hub) listenOnce(ctx context.Context, pool *pgxpool.Pool, channel string) error {
	pc, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	// The connection keeps its LISTEN state, so it never goes back to the pool.
	conn := pc.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info().Str("channel", channel).Msg("listening for changes")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		e, err := ParseEvent(n.Payload)
		if err != nil {
			logger.Warn().Err(err).Msg("ignoring notification")
			continue
		}
		eventsReceived.WithLabelValues(e.Table, string(e.Kind)).Inc()
		h.Publish(e)
	}
}
