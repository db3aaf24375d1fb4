package services

import (
	"context"
	"sync"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/providers"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	"github.com/medconnect/clinic-backend/pkg/config"
)

// BroadcastJob is one queued fan-out to every user except ExcludeUserID
type BroadcastJob struct {
	Draft         entities.NotificationDraft
	ExcludeUserID string
}

// NotificationDispatcher runs broadcast jobs on a fixed pool of workers.
// Jobs are processed off the request path; a full queue drops the job.
type NotificationDispatcher struct {
	users     repositories.UserRepository
	repo      repositories.NotificationRepository
	bus       providers.EventBus
	metrics   *observability.Metrics
	workers   int
	batchSize int

	mu     sync.RWMutex
	closed bool
	queue  chan BroadcastJob
	wg     sync.WaitGroup
}

// NewNotificationDispatcher creates a dispatcher sized by cfg. Call Start before Enqueue.
func NewNotificationDispatcher(
	users repositories.UserRepository,
	repo repositories.NotificationRepository,
	bus providers.EventBus,
	cfg config.NotificationConfig,
	metrics *observability.Metrics,
) *NotificationDispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 500
	}
	queueSize := cfg.QueueSize
	if queueSize < 0 {
		queueSize = 0
	}
	return &NotificationDispatcher{
		users:     users,
		repo:      repo,
		bus:       bus,
		metrics:   metrics,
		workers:   workers,
		batchSize: batchSize,
		queue:     make(chan BroadcastJob, queueSize),
	}
}

// Start launches the workers. ctx bounds the database work of each job.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			for job := range d.queue {
				d.process(ctx, job)
			}
			observability.GetLogger().Debug().Int("worker", id).Msg("Notification worker stopped")
		}(i)
	}
}

// Enqueue queues job without blocking and reports whether it was accepted
func (d *NotificationDispatcher) Enqueue(ctx context.Context, job BroadcastJob) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	logger := observability.LoggerFromContext(ctx)
	if d.closed {
		logger.Warn().Str("type", string(job.Draft.Type)).Msg("Dispatcher stopped; dropping broadcast")
		return false
	}

	select {
	case d.queue <- job:
		return true
	default:
		observability.RecordBroadcastDropped(ctx, d.metrics, string(job.Draft.Type))
		logger.Warn().
			Str("type", string(job.Draft.Type)).
			Int("queue_capacity", cap(d.queue)).
			Msg("Broadcast queue full; dropping broadcast")
		return false
	}
}

// Shutdown stops accepting jobs and waits until the queued ones are processed
func (d *NotificationDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *NotificationDispatcher) process(ctx context.Context, job BroadcastJob) {
	ctx, span := observability.StartSpan(ctx, "notifications.broadcast")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	ids, err := d.users.ListIDs(ctx)
	if err != nil {
		observability.RecordError(span, err)
		logger.Error().Err(err).Str("type", string(job.Draft.Type)).Msg("Failed to load broadcast recipients")
		return
	}

	recipients := make([]*entities.Notification, 0, len(ids))
	for _, id := range ids {
		if id == job.ExcludeUserID {
			continue
		}
		recipients = append(recipients, job.Draft.For(id))
	}

	stored := 0
	for start := 0; start < len(recipients); start += d.batchSize {
		end := min(start+d.batchSize, len(recipients))
		chunk := recipients[start:end]
		if err := d.repo.CreateBatch(ctx, chunk); err != nil {
			observability.RecordError(span, err)
			logger.Error().Err(err).
				Str("type", string(job.Draft.Type)).
				Int("offset", start).
				Int("size", len(chunk)).
				Msg("Failed to store broadcast chunk; skipping")
			continue
		}
		stored += len(chunk)
	}
	observability.RecordNotifications(ctx, d.metrics, string(job.Draft.Type), stored)

	logger.Info().
		Str("type", string(job.Draft.Type)).
		Int("recipients", len(recipients)).
		Int("stored", stored).
		Msg("Broadcast delivered")

	if d.bus == nil || stored == 0 {
		return
	}
	event := entities.NewRealtimeEvent(entities.RealtimeEventBroadcast, "", job.Draft.For(""))
	event.ExcludedUserID = job.ExcludeUserID
	if err := d.bus.Publish(ctx, providers.EventChannelBroadcast, event); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish broadcast")
	}
}
