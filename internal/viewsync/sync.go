// Package viewsync keeps cached read models in step with order mutations.
//
// Every cached view belongs to a topic. Keys embed the topic's current
// generation, so bumping the generation orphans every key of that topic in
// one step. Connected dashboards learn about changes through websocket
// invalidation events and refetch.
package viewsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/metrics"
)

// Topic names a family of cached views.
type Topic string

const (
	TopicKanban     Topic = "kanban"
	TopicOrders     Topic = "orders"
	TopicOrder      Topic = "order"
	TopicDashboard  Topic = "dashboard"
	TopicDeliveries Topic = "deliveries"
	TopicTracker    Topic = "tracker"
)

// AllTopics lists every topic. Any order mutation can affect each of them.
var AllTopics = []Topic{
	TopicKanban,
	TopicOrders,
	TopicOrder,
	TopicDashboard,
	TopicDeliveries,
	TopicTracker,
}

// ParseTopic validates a topic name received from a client.
func ParseTopic(s string) (Topic, bool) {
	for _, t := range AllTopics {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Reasons attached to invalidation events.
const (
	ReasonCreated           = "created"
	ReasonStatusChanged     = "status_changed"
	ReasonUpdated           = "updated"
	ReasonDeleted           = "deleted"
	ReasonPurged            = "purged"
	ReasonRegionSet         = "region_set"
	ReasonDriverAssigned    = "driver_assigned"
	ReasonDeliveryCompleted = "delivery_completed"
	ReasonWriteFailed       = "write_failed"
	ReasonCatalogChanged    = "catalog_changed"
)

// Event types sent to websocket clients.
const (
	EventInvalidate = "invalidate"
	EventSnapshot   = "snapshot"
)

// Change describes a committed order mutation.
type Change struct {
	OrderID uuid.UUID
	Number  string
	Reason  string
}

// Broadcaster delivers a message to every client subscribed to a room.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(room string, msg []byte)
}

// Event is the websocket envelope.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type invalidatePayload struct {
	Topic   Topic  `json:"topic"`
	OrderID string `json:"order_id,omitempty"`
	Number  string `json:"number,omitempty"`
	Reason  string `json:"reason"`
}

type snapshotPayload struct {
	Topic Topic           `json:"topic"`
	Key   string          `json:"key"`
	Data  json.RawMessage `json:"data"`
}

// Synchronizer owns the read cache and the invalidation broadcast.
type Synchronizer struct {
	store   Store
	hub     Broadcaster
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Synchronizer. hub and m may be nil.
func New(store Store, hub Broadcaster, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *Synchronizer {
	return &Synchronizer{store: store, hub: hub, ttl: ttl, logger: logger, metrics: m}
}

func generationKey(topic Topic) string {
	return "gen:" + string(topic)
}

func (s *Synchronizer) generation(ctx context.Context, topic Topic) (int64, error) {
	raw, err := s.store.Get(ctx, generationKey(topic))
	if errors.Is(err, ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("generation %s: %w", topic, err)
	}
	return n, nil
}

// Key returns the cache key of a view under the topic's current generation.
func (s *Synchronizer) Key(ctx context.Context, topic Topic, suffix string) (string, error) {
	gen, err := s.generation(ctx, topic)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:g%d:%s", topic, gen, suffix), nil
}

// Invalidate orphans every cached view of the given topics.
func (s *Synchronizer) Invalidate(ctx context.Context, topics ...Topic) error {
	var errs []error
	for _, t := range topics {
		if _, err := s.store.Incr(ctx, generationKey(t)); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", t, err))
		}
	}
	return errors.Join(errs...)
}

// Publish applies the broadcast-invalidate policy for a committed change:
// every topic is invalidated and every subscribed client is told to refetch.
// Cache failures are logged; the change is already durable.
func (s *Synchronizer) Publish(ctx context.Context, c Change) {
	if err := s.Invalidate(ctx, AllTopics...); err != nil {
		s.logger.Warn("view invalidation failed",
			zap.String("reason", c.Reason),
			zap.Error(err),
		)
	}
	s.metrics.Invalidation(c.Reason)

	for _, t := range AllTopics {
		p := invalidatePayload{Topic: t, Number: c.Number, Reason: c.Reason}
		if c.OrderID != uuid.Nil {
			p.OrderID = c.OrderID.String()
		}
		s.broadcast(t, Event{Type: EventInvalidate, Payload: p})
	}
}

func (s *Synchronizer) broadcast(topic Topic, ev Event) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("marshal websocket event", zap.Error(err))
		return
	}
	s.hub.Broadcast(string(topic), msg)
}

// ReadThrough serves a view from cache, loading and storing it on a miss.
// Cache errors never fail the read.
func ReadThrough[T any](ctx context.Context, s *Synchronizer, topic Topic, suffix string, load func(context.Context) (T, error)) (T, error) {
	key, err := s.Key(ctx, topic, suffix)
	if err != nil {
		s.metrics.CacheLookup(string(topic), "error")
		s.logger.Warn("view cache key", zap.String("topic", string(topic)), zap.Error(err))
		return load(ctx)
	}

	raw, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if uerr := json.Unmarshal(raw, &v); uerr == nil {
			s.metrics.CacheLookup(string(topic), "hit")
			return v, nil
		}
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
		s.metrics.CacheLookup(string(topic), "error")
	case errors.Is(err, ErrCacheMiss):
		s.metrics.CacheLookup(string(topic), "miss")
	default:
		s.metrics.CacheLookup(string(topic), "error")
		s.logger.Warn("view cache get", zap.String("key", key), zap.Error(err))
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if data, merr := json.Marshal(v); merr == nil {
		if serr := s.store.Set(ctx, key, data, s.ttl); serr != nil {
			s.logger.Warn("view cache set", zap.String("key", key), zap.Error(serr))
		}
	}
	return v, nil
}

// Optimistic patches the cached view before commit runs and pushes the
// patched snapshot to subscribers. patch receives a freshly decoded copy.
// If commit fails the patched entry is deleted and the topic invalidated so
// the next read refetches, and the commit error is returned. Without a cached view only commit runs.
func Optimistic[T any](ctx context.Context, s *Synchronizer, topic Topic, suffix string, patch func(T) T, commit func(context.Context) error) error {
	var patchedKey string
	if key, err := s.Key(ctx, topic, suffix); err == nil {
		if raw, err := s.store.Get(ctx, key); err == nil {
			var snapshot T
			if err := json.Unmarshal(raw, &snapshot); err == nil {
				patched := patch(snapshot)
				if data, err := json.Marshal(patched); err == nil {
					if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
						s.logger.Warn("optimistic cache set", zap.String("key", key), zap.Error(err))
					} else {
						patchedKey = key
					}
					s.broadcast(topic, Event{
						Type:    EventSnapshot,
						Payload: snapshotPayload{Topic: topic, Key: suffix, Data: data},
					})
				}
			}
		}
	}

	if err := commit(ctx); err != nil {
		// The patched snapshot is orphaned by the new generation; drop it now.
		if patchedKey != "" {
			if derr := s.store.Delete(ctx, patchedKey); derr != nil {
				s.logger.Warn("drop patched snapshot", zap.String("key", patchedKey), zap.Error(derr))
			}
		}
		if ierr := s.Invalidate(ctx, topic); ierr != nil {
			s.logger.Warn("invalidate after failed write", zap.Error(ierr))
		}
		s.metrics.Invalidation(ReasonWriteFailed)
		s.broadcast(topic, Event{
			Type:    EventInvalidate,
			Payload: invalidatePayload{Topic: topic, Reason: ReasonWriteFailed},
		})
		return err
	}
	return nil
}
