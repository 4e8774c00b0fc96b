// Package batch runs independent dispatch requests concurrently on a
// bounded worker pool.
//
// Every request is self-contained: the seed travels inside its option
// vector, so results do not depend on scheduling order.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/logging"
	"github.com/dd0wney/cluso-graphpart/pkg/metrics"
)

// ErrClosed is the outcome of jobs submitted after Close.
var ErrClosed = errors.New("batch runner closed")

// Job status labels beyond the dispatch ones.
const (
	StatusCancelled = "cancelled"
	StatusPanic     = "panic"
)

// Config sizes a Runner. Zero Workers uses one worker per CPU.
type Config struct {
	Workers   int
	QueueSize int
	Logger    logging.Logger
	Metrics   *metrics.Registry
}

// Outcome is the result of one job, reported at the request's index.
type Outcome struct {
	JobID  string
	Index  int
	Result *dispatch.Result
	Err    error
}

// Runner feeds dispatch requests to a worker pool.
type Runner struct {
	d       *dispatch.Dispatcher
	pool    *WorkerPool
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewRunner starts the pool.
func NewRunner(d *dispatch.Dispatcher, cfg Config) (*Runner, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("batch"))

	pool, err := NewWorkerPool(workers, cfg.QueueSize, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Metrics != nil {
		cfg.Metrics.BatchWorkersTotal.Set(float64(workers))
	}
	return &Runner{d: d, pool: pool, logger: logger, metrics: cfg.Metrics}, nil
}

// Workers returns the pool size.
func (r *Runner) Workers() int {
	return r.pool.Workers()
}

// Run dispatches every request and waits for all of them. Outcomes are in
// request order; failures are reported per job and never stop the batch.
func (r *Runner) Run(ctx context.Context, reqs []*dispatch.Request) []Outcome {
	out := make([]Outcome, len(reqs))
	timer := logging.StartTimer(r.logger, "batch complete", logging.Int("jobs", len(reqs)))

	var wg sync.WaitGroup
	for i, req := range reqs {
		out[i] = Outcome{JobID: uuid.NewString(), Index: i}
		o := &out[i]

		wg.Add(1)
		r.queued(1)
		ok := r.pool.Submit(func() {
			defer wg.Done()
			r.queued(-1)
			r.runJob(ctx, o, req)
		})
		if !ok {
			r.queued(-1)
			wg.Done()
			o.Err = ErrClosed
			r.finish(o, StatusCancelled)
		}
	}
	wg.Wait()

	timer.End(logging.Int("failed", Failed(out)))
	return out
}

func (r *Runner) runJob(ctx context.Context, o *Outcome, req *dispatch.Request) {
	defer func() {
		if p := recover(); p != nil {
			o.Result = nil
			o.Err = fmt.Errorf("job %s panicked: %v", o.JobID, p)
			r.finish(o, StatusPanic)
		}
	}()

	if err := ctx.Err(); err != nil {
		o.Err = err
		r.finish(o, StatusCancelled)
		return
	}
	o.Result, o.Err = r.d.Dispatch(ctx, req)
	r.finish(o, jobStatus(o.Err))
}

func jobStatus(err error) string {
	switch {
	case err == nil:
		return metrics.StatusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	case dispatch.IsUsage(err):
		return metrics.StatusUsage
	default:
		return metrics.StatusEngine
	}
}

func (r *Runner) finish(o *Outcome, status string) {
	if r.metrics != nil {
		r.metrics.RecordBatchJob(status)
	}
	if o.Err != nil {
		r.logger.Warn("batch job failed",
			logging.JobID(o.JobID),
			logging.Int("index", o.Index),
			logging.String("status", status),
			logging.Error(o.Err))
	}
}

func (r *Runner) queued(delta float64) {
	if r.metrics != nil {
		r.metrics.BatchQueueDepth.Add(delta)
	}
}

// Close waits for queued jobs and stops the workers.
func (r *Runner) Close() {
	r.pool.Close()
}

// Failed counts outcomes carrying an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
