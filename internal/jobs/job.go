// Package jobs runs fire-and-forget background work on a bounded in-memory
// queue drained by a fixed pool of workers. Jobs are not persisted; whatever
// is still queued when the process dies is lost.
package jobs

import (
	"context"

	"github.com/google/uuid"
)

// Job represents a unit of background work to be processed
type Job interface {
	// ID returns the job's unique identifier
	ID() uuid.UUID

	// Type returns the job type identifier, used for logging
	Type() string

	// Execute runs the job logic
	Execute(ctx context.Context) error
}

// QueueReader provides read-only access to the job channel
// allowing workers to consume jobs without the ability to enqueue
type QueueReader interface {
	// GetChannel returns a read-only channel for consuming jobs
	GetChannel() <-chan Job
}

// QueueWriter provides write access to the job queue
type QueueWriter interface {
	// Enqueue adds a job to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(job Job) error
}
