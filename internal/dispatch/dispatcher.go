package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"platen/internal/config"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/services"
)

// Runner executes the slicing workflow for one job.
type Runner interface {
	Run(ctx context.Context, jobID int64) error
}

// Dispatcher drives queue processing in the background.
type Dispatcher struct {
	cfg          *config.Config
	store        *jobs.Store
	runner       Runner
	logger       *slog.Logger
	pollInterval time.Duration
	retryBackoff time.Duration
	leaseTimeout time.Duration
	maxAttempts  int

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastJobID int64
}

// New constructs a dispatcher from the workflow configuration.
func New(cfg *config.Config, store *jobs.Store, runner Runner, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		cfg:          cfg,
		store:        store,
		runner:       runner,
		logger:       logging.NewComponentLogger(logger, "dispatch"),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryBackoff: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		leaseTimeout: time.Duration(cfg.Workflow.LeaseTimeout) * time.Second,
		maxAttempts:  cfg.Workflow.MaxAttempts,
	}
}

// Start begins background processing.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("dispatcher already running")
	}
	if d.runner == nil {
		return errors.New("dispatcher runner not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.wg.Add(1)
	go d.loop(runCtx)
	return nil
}

// Stop terminates background processing and waits for the in-flight job.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
}

// Running reports whether the background loop is active.
func (d *Dispatcher) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// LastError returns the most recent dispatch failure, if any.
func (d *Dispatcher) LastError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if released, err := d.store.RequeueStale(ctx, d.leaseTimeout); err != nil {
			d.logger.Warn("stale lease reclaim failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check job database access"))
		} else if released > 0 {
			d.logger.Info("reclaimed stale dispatch leases", logging.Int("count", released))
		}

		item, err := d.store.Dequeue(ctx)
		if err != nil {
			d.handleDequeueError(ctx, err)
			continue
		}
		if item == nil {
			d.waitForWorkOrShutdown(ctx)
			continue
		}

		if err := d.process(ctx, item); errors.Is(err, context.Canceled) {
			return
		}
	}
}

// process runs one leased entry to completion and settles the lease.
func (d *Dispatcher) process(ctx context.Context, item *jobs.QueueItem) error {
	jobCtx := services.WithJobID(ctx, item.JobID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, d.logger)

	d.setLastJob(item.JobID)
	logger.Info("dispatching job",
		logging.Int64("entry_id", item.ID),
		logging.Int("attempt", item.Attempts+1))

	runErr := d.runner.Run(jobCtx, item.JobID)
	if runErr == nil {
		if err := d.store.Ack(jobCtx, item.ID); err != nil {
			logger.Error("failed to ack dispatch entry", logging.Error(err))
			d.setLastError(err)
		}
		return nil
	}

	if errors.Is(runErr, context.Canceled) {
		// Shutdown mid-run: leave the lease for the stale reclaimer so the
		// next daemon run retries the job.
		logger.Info("job interrupted by shutdown", logging.Error(runErr))
		return runErr
	}

	d.setLastError(runErr)
	logger.Error("job dispatch failed", logging.Error(runErr))

	retained, err := d.store.Nack(jobCtx, item.ID, d.maxAttempts)
	if err != nil {
		logger.Error("failed to settle dispatch entry", logging.Error(err))
		d.setLastError(err)
		return runErr
	}
	if !retained {
		logger.Warn("job exhausted its retry budget",
			logging.Int("max_attempts", d.maxAttempts),
			logging.String(logging.FieldErrorHint, "inspect the job error and requeue manually"))
		return runErr
	}

	d.waitForRetryOrShutdown(ctx)
	return runErr
}

func (d *Dispatcher) handleDequeueError(ctx context.Context, err error) {
	d.setLastError(err)
	d.logger.Error("failed to fetch next dispatch entry",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check job database access"))
	select {
	case <-ctx.Done():
	case <-time.After(d.retryBackoff):
	}
}

func (d *Dispatcher) waitForWorkOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(d.pollInterval):
	}
}

func (d *Dispatcher) waitForRetryOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(d.retryBackoff):
	}
}

func (d *Dispatcher) setLastError(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}

func (d *Dispatcher) setLastJob(id int64) {
	d.mu.Lock()
	d.lastJobID = id
	d.mu.Unlock()
}

// LastJobID returns the most recently dispatched job id.
func (d *Dispatcher) LastJobID() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastJobID
}
