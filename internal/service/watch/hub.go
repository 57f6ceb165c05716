// Package watch gives each dashboard a live query over the appointment
// collection: one subscription per view, and every relevant change delivers
// a full current snapshot, never an incremental delta.
package watch

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bos243/appointment-booking-app/internal/model"
	"github.com/Bos243/appointment-booking-app/internal/repository"
	"github.com/Bos243/appointment-booking-app/internal/service/view"
	"github.com/Bos243/appointment-booking-app/pkg/messaging"
	"github.com/Bos243/appointment-booking-app/pkg/metrics"
)

// ChannelAppointments carries change notifications for the appointments
// collection.
const ChannelAppointments = "appointments.changed"

// ChangeEvent is what writers publish after a committed write. Subscribers
// never consume it directly; the hub turns each event into fresh snapshots.
type ChangeEvent struct {
	Kind string    `json:"kind"` // created, updated, deleted
	ID   uuid.UUID `json:"id"`
}

// Publisher announces committed appointment writes on the broker.
type Publisher struct {
	broker messaging.Broker
	logger *zerolog.Logger
}

func NewPublisher(broker messaging.Broker, logger *zerolog.Logger) *Publisher {
	return &Publisher{broker: broker, logger: logger}
}

// Changed is fire-and-forget: a failed publish only delays subscribers
// until the next change, so it is logged and swallowed.
func (p *Publisher) Changed(ctx context.Context, kind string, id uuid.UUID) {
	if err := p.broker.Publish(ctx, ChannelAppointments, ChangeEvent{Kind: kind, ID: id}); err != nil {
		p.logger.Warn().Err(err).Str("kind", kind).Stringer("id", id).Msg("change publish failed")
	}
}

// Snapshot is the full current result set of one subscriber's query.
type Snapshot []*model.Appointment

type subscriber struct {
	filters *model.AppointmentFilters
	project view.Projection
	ch      chan Snapshot
}

// Hub fans change events out to view subscribers. Each event makes the hub
// re-run every subscriber's filtered query and push the result; a slow
// subscriber sees the latest snapshot, intermediate ones may be skipped.
type Hub struct {
	repo    repository.AppointmentRepository
	broker  messaging.Broker
	logger  *zerolog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
}

func NewHub(repo repository.AppointmentRepository, broker messaging.Broker, logger *zerolog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		repo:    repo,
		broker:  broker,
		logger:  logger,
		metrics: m,
		subs:    make(map[uint64]*subscriber),
	}
}

// Run consumes the change channel until ctx is canceled. Call it once,
// from its own goroutine.
func (h *Hub) Run(ctx context.Context) error {
	msgs, err := h.broker.Subscribe(ctx, ChannelAppointments)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-msgs:
			if !ok {
				return nil
			}
			h.fanOut(ctx)
		}
	}
}

// Subscribe registers a live query. The returned channel receives an
// initial snapshot and then one per change. release must be called when
// the view goes away; it is safe to call twice.
func (h *Hub) Subscribe(ctx context.Context, filters *model.AppointmentFilters, project view.Projection) (<-chan Snapshot, func(), error) {
	if project == nil {
		project = view.All()
	}

	sub := &subscriber{
		filters: filters,
		project: project,
		ch:      make(chan Snapshot, 1),
	}

	initial, err := h.query(ctx, sub)
	if err != nil {
		return nil, nil, err
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	sub.ch <- initial
	h.mu.Unlock()
	h.metrics.SubscribersActive.Inc()

	var once sync.Once
	release := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(sub.ch)
			h.mu.Unlock()
			h.metrics.SubscribersActive.Dec()
		})
	}
	return sub.ch, release, nil
}

func (h *Hub) query(ctx context.Context, sub *subscriber) (Snapshot, error) {
	apps, err := h.repo.List(ctx, sub.filters)
	if err != nil {
		return nil, err
	}
	return Snapshot(sub.project(apps)), nil
}

func (h *Hub) fanOut(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		snap, err := h.query(ctx, sub)
		if err != nil {
			h.logger.Error().Err(err).Msg("live query refresh failed")
			continue
		}
		// Latest snapshot wins: drain a stale one before pushing.
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
		h.metrics.SnapshotsPushed.Inc()
	}
}
