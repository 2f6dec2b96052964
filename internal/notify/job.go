package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/events"
	"github.com/phrazzld/jiralike-api/internal/jobs"
)

// JobTypeDispatch identifies notification jobs in worker logs.
const JobTypeDispatch = "notification_dispatch"

// DispatchJob delivers one notification on a worker.
type DispatchJob struct {
	id           uuid.UUID
	notification domain.Notification
	dispatcher   *Dispatcher
}

var _ jobs.Job = (*DispatchJob)(nil)

// NewDispatchJob creates a job that dispatches n.
func NewDispatchJob(d *Dispatcher, n domain.Notification) *DispatchJob {
	return &DispatchJob{id: uuid.New(), notification: n, dispatcher: d}
}

// ID implements jobs.Job.
func (j *DispatchJob) ID() uuid.UUID { return j.id }

// Type implements jobs.Job.
func (j *DispatchJob) Type() string { return JobTypeDispatch }

// Execute implements jobs.Job.
func (j *DispatchJob) Execute(ctx context.Context) error {
	return j.dispatcher.Dispatch(ctx, j.notification)
}

// QueueingHandler is an events.EventHandler that turns each notification
// event into a DispatchJob on the queue. It never blocks the request that
// emitted the event; a full queue drops the notification.
type QueueingHandler struct {
	queue      jobs.QueueWriter
	dispatcher *Dispatcher
	logger     *slog.Logger
}

var _ events.EventHandler = (*QueueingHandler)(nil)

// NewQueueingHandler creates a handler feeding queue.
func NewQueueingHandler(queue jobs.QueueWriter, d *Dispatcher, logger *slog.Logger) *QueueingHandler {
	if queue == nil || d == nil {
		panic("queue and dispatcher cannot be nil") // ALLOW-PANIC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueingHandler{
		queue:      queue,
		dispatcher: d,
		logger:     logger.With(slog.String("component", "notification_queueing_handler")),
	}
}

// HandleEvent implements events.EventHandler.
func (h *QueueingHandler) HandleEvent(ctx context.Context, event *events.NotificationEvent) error {
	job := NewDispatchJob(h.dispatcher, event.Notification)
	if err := h.queue.Enqueue(job); err != nil {
		h.logger.Warn("dropping notification",
			slog.String("event_id", event.ID.String()),
			slog.String("task_id", event.Notification.TaskID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	h.logger.Debug("notification queued",
		slog.String("event_id", event.ID.String()),
		slog.String("job_id", job.ID().String()))
	return nil
}
