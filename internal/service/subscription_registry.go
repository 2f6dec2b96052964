package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/platform/logger"
	"github.com/phrazzld/jiralike-api/internal/store"
)

// SubscriptionRegistry maintains the implicit mailing list of each task:
// every email that created, commented on, closed, uploaded to or downloaded
// from the task. Subscriptions only ever grow.
type SubscriptionRegistry struct {
	subs   store.SubscriptionStore
	logger *slog.Logger
}

// NewSubscriptionRegistry creates a registry over subs.
func NewSubscriptionRegistry(subs store.SubscriptionStore, logger *slog.Logger) *SubscriptionRegistry {
	if subs == nil {
		panic("subscription store cannot be nil") // ALLOW-PANIC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionRegistry{
		subs:   subs,
		logger: logger.With(slog.String("component", "subscription_registry")),
	}
}

// WithTx returns a registry whose reads and writes join tx.
func (r *SubscriptionRegistry) WithTx(tx *sql.Tx) *SubscriptionRegistry {
	return &SubscriptionRegistry{subs: r.subs.WithTx(tx), logger: r.logger}
}

// Subscribers returns the distinct subscribed emails of a task, ordered by
// subscription time. A task nobody subscribed to yields an empty slice.
func (r *SubscriptionRegistry) Subscribers(ctx context.Context, taskID uuid.UUID) ([]string, error) {
	emails, err := r.subs.ListEmails(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return domain.MergeRecipients(emails), nil
}

// EnsureSubscribed records email as a subscriber of the task. It is
// idempotent: added is false when the pair already existed, and concurrent
// callers never create a second row.
func (r *SubscriptionRegistry) EnsureSubscribed(
	ctx context.Context,
	taskID uuid.UUID,
	email string,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	sub, err := domain.NewSubscription(taskID, email)
	if err != nil {
		return false, err
	}

	added, err := r.subs.Add(ctx, sub)
	if err != nil {
		return false, err
	}
	if added {
		log.Debug("subscribed to task",
			slog.String("task_id", taskID.String()))
	}
	return added, nil
}

// Recipients returns the task's subscribers followed by any extra emails not
// already among them.
func (r *SubscriptionRegistry) Recipients(
	ctx context.Context,
	taskID uuid.UUID,
	extra ...string,
) ([]string, error) {
	subscribers, err := r.Subscribers(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return domain.MergeRecipients(subscribers, extra), nil
}
