package ingest

import (
	"context"
	"sync"

	"github.com/avesk/pickboard/internal/domain/dedupe"
	"github.com/avesk/pickboard/pkg/logger"
	"github.com/avesk/pickboard/pkg/metrics"
)

const defaultWorkerCount = 2

// Pool runs a fixed set of workers draining the ingest queue.
type Pool struct {
	count   int
	queue   Queue
	proc    *Processor
	tracker dedupe.Tracker
	log     logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool creates a pool of count workers. count defaults when non-positive.
func NewPool(count int, queue Queue, proc *Processor, tracker dedupe.Tracker) *Pool {
	if count <= 0 {
		count = defaultWorkerCount
	}
	return &Pool{
		count:   count,
		queue:   queue,
		proc:    proc,
		tracker: tracker,
		log:     logger.Named("worker"),
	}
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	metrics.UpdateWorkerCount(p.count)
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Stop cancels the workers and waits for in-flight files to finish.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	metrics.UpdateWorkerCount(0)
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue.Dequeue():
			if !ok {
				return
			}
			metrics.UpdateQueueSize(p.queue.Size())
			p.handle(ctx, id, job)
		}
	}
}

func (p *Pool) handle(ctx context.Context, id int, job Job) {
	summary, err := p.proc.ProcessFile(ctx, job.Path, job.Filename)
	if err != nil {
		// Release the claim so the next rescan retries the file.
		p.tracker.Unrecord(ctx, job.Filename)
		metrics.RecordErrorByComponent("worker", "process")
		p.log.Error(ctx, "file ingestion failed",
			logger.Int("worker", id),
			logger.String("file", job.Filename),
			logger.Error(err))
		return
	}
	p.log.Debug(ctx, "file ingestion done",
		logger.Int("worker", id),
		logger.String("file", job.Filename),
		logger.String("batch_id", summary.BatchID),
		logger.Int("rows_inserted", summary.RowsInserted))
}
