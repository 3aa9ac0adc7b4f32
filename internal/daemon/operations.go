package daemon

import (
	"context"
	"errors"

	"platen/internal/catalog"
	"platen/internal/jobs"
)

// ListJobs returns jobs, filtered to one status when given.
func (d *Daemon) ListJobs(ctx context.Context, status jobs.Status) ([]*jobs.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	if status == "" {
		return d.store.List(ctx)
	}
	return d.store.ItemsByStatus(ctx, status)
}

// GetJob fetches one job by id.
func (d *Daemon) GetJob(ctx context.Context, id int64) (*jobs.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// AddJob creates and enqueues a job for the given selection, or returns the
// existing one.
func (d *Daemon) AddJob(ctx context.Context, tuple jobs.Tuple) (*jobs.Job, bool, error) {
	if d.store == nil {
		return nil, false, errors.New("job store unavailable")
	}
	return d.store.FindOrCreate(ctx, tuple)
}

// RequeueJob places a finished or failed job back on the dispatch queue.
func (d *Daemon) RequeueJob(ctx context.Context, id int64) (*jobs.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	return d.store.Requeue(ctx, id)
}

// RetryFailed requeues failed jobs: the listed ids, or every failed job when
// none are given. It returns the number requeued.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("job store unavailable")
	}
	if len(ids) == 0 {
		failed, err := d.store.ItemsByStatus(ctx, jobs.StatusFailed)
		if err != nil {
			return 0, err
		}
		for _, job := range failed {
			ids = append(ids, job.ID)
		}
	}
	var updated int64
	for _, id := range ids {
		if _, err := d.store.Requeue(ctx, id); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// QueueHealth returns aggregate job diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (jobs.HealthSummary, int, error) {
	if d.store == nil {
		return jobs.HealthSummary{}, 0, errors.New("job store unavailable")
	}
	health, err := d.store.Health(ctx)
	if err != nil {
		return jobs.HealthSummary{}, 0, err
	}
	pending, err := d.store.PendingCount(ctx)
	if err != nil {
		return health, 0, err
	}
	return health, pending, nil
}

// ResolveQuote attaches jobs to a quote's line items and recomputes its
// subtotal.
func (d *Daemon) ResolveQuote(ctx context.Context, id int64) (*catalog.Quote, error) {
	if d.resolver == nil {
		return nil, errors.New("quote resolver unavailable")
	}
	return d.resolver.Resolve(ctx, id)
}

// GetQuote fetches one quote with its items.
func (d *Daemon) GetQuote(ctx context.Context, id int64) (*catalog.Quote, error) {
	if d.catalog == nil {
		return nil, errors.New("catalog unavailable")
	}
	return d.catalog.GetQuote(ctx, id)
}
