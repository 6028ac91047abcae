package webhook

import (
	"context"
	"fmt"

	"github.com/xaenox/commentbot/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one unit of asynchronous event processing.
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

// Dispatcher accepts jobs without blocking and runs them on a fixed set of
// workers. A full queue drops the job.
type Dispatcher struct {
	queue   chan Job
	workers int
	logger  *zap.Logger
}

func NewDispatcher(workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		queue:   make(chan Job, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Submit enqueues job and reports whether it was accepted.
func (d *Dispatcher) Submit(job Job) bool {
	select {
	case d.queue <- job:
		metrics.QueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		metrics.DroppedEvents.WithLabelValues("queue_full").Inc()
		d.logger.Warn("Dispatch queue full, dropping job", zap.String("job", job.Name))
		return false
	}
}

// Run processes jobs until ctx is cancelled. Jobs already started finish
// with a context that is not cancelled by shutdown.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	jobCtx := context.WithoutCancel(ctx)

	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case job := <-d.queue:
					metrics.QueueDepth.Set(float64(len(d.queue)))
					d.runJob(jobCtx, job)
				}
			}
		})
	}

	err := g.Wait()
	if pending := len(d.queue); pending > 0 {
		d.logger.Warn("Dispatcher stopped with pending jobs", zap.Int("pending", pending))
	}
	return err
}

func (d *Dispatcher) runJob(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Job panicked",
				zap.String("job", job.Name),
				zap.Error(fmt.Errorf("%v", r)))
		}
	}()
	job.Run(ctx)
}
