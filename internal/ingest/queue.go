// Package ingest moves warehouse CSV exports from disk into the item store.
package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/avesk/pickboard/pkg/metrics"
)

// Queue errors.
var (
	ErrQueueFull   = errors.New("ingest queue is full")
	ErrQueueClosed = errors.New("ingest queue is closed")
)

// Job is one CSV file waiting to be ingested.
type Job struct {
	Path     string // absolute path on disk
	Filename string // base name, the dedupe key
	BatchID  string
}

// Queue buffers files between the watcher and the worker pool.
type Queue interface {
	// Enqueue adds a job, failing fast when the queue is full.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue returns the channel workers receive jobs on.
	Dequeue() <-chan Job

	// Close stops the queue; pending jobs remain readable until drained.
	Close() error

	Size() int
	Capacity() int
}

const defaultQueueCapacity = 100

// InMemoryQueue implements Queue with a buffered channel. The mutex keeps
// Enqueue's send and Close's channel close mutually exclusive so a late
// producer gets ErrQueueClosed instead of a send-on-closed panic.
type InMemoryQueue struct {
	jobs   chan Job
	mu     sync.RWMutex
	closed bool
}

// QueueOption configures an InMemoryQueue.
type QueueOption func(*queueConfig)

type queueConfig struct {
	capacity int
}

// WithCapacity sets the queue's buffer size.
func WithCapacity(n int) QueueOption {
	return func(c *queueConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// NewInMemoryQueue creates a queue with the configured capacity.
func NewInMemoryQueue(opts ...QueueOption) *InMemoryQueue {
	cfg := queueConfig{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	metrics.UpdateQueueCapacity(cfg.capacity)
	return &InMemoryQueue{
		jobs: make(chan Job, cfg.capacity),
	}
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		q.publishGauges()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError()
		return ErrQueueFull
	}
}

func (q *InMemoryQueue) Dequeue() <-chan Job {
	return q.jobs
}

// Close marks the queue closed and closes the job channel so workers drain
// and exit. Enqueue after Close returns ErrQueueClosed.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}

func (q *InMemoryQueue) Size() int     { return len(q.jobs) }
func (q *InMemoryQueue) Capacity() int { return cap(q.jobs) }

func (q *InMemoryQueue) publishGauges() {
	size := len(q.jobs)
	capacity := cap(q.jobs)
	metrics.UpdateQueueSize(size)
	if capacity > 0 {
		metrics.UpdateQueueUtilization(float64(size) / float64(capacity))
	}
}
