package quotes

import (
	"context"
	"fmt"
	"log/slog"

	"platen/internal/catalog"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/services"
)

// Resolver turns quote line items into jobs and computes subtotals.
type Resolver struct {
	catalog *catalog.Store
	jobs    *jobs.Store
	logger  *slog.Logger
}

// NewResolver constructs a quote resolver.
func NewResolver(catalogStore *catalog.Store, jobStore *jobs.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		catalog: catalogStore,
		jobs:    jobStore,
		logger:  logging.NewComponentLogger(logger, "quotes"),
	}
}

// Resolve attaches jobs to every line item whose selection is complete and
// recomputes the subtotal. Items still missing a selection keep whatever job
// reference they had. Items without a chosen machine fall back to the first
// active machine.
func (r *Resolver) Resolve(ctx context.Context, quoteID int64) (*catalog.Quote, error) {
	quote, err := r.catalog.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, services.Wrap(services.ErrNotFound, "quotes", "resolve",
			fmt.Sprintf("quote %d not found", quoteID), nil)
	}

	logger := logging.WithContext(ctx, r.logger)

	var defaultMachine *catalog.Machine
	for i := range quote.Items {
		item := &quote.Items[i]

		machineID := item.MachineID
		if machineID == nil {
			if defaultMachine == nil {
				defaultMachine, err = r.catalog.FirstActiveMachine(ctx)
				if err != nil {
					return nil, err
				}
			}
			if defaultMachine != nil {
				machineID = &defaultMachine.ID
			}
		}

		tuple, ok := itemTuple(item, machineID)
		if !ok {
			continue
		}

		job, created, err := r.jobs.FindOrCreate(ctx, tuple)
		if err != nil {
			return nil, fmt.Errorf("resolve job for quote %d item %d: %w", quoteID, item.Position, err)
		}
		if created {
			logger.Info("created job for quote item",
				logging.Int64("quote_id", quoteID),
				logging.Int("position", item.Position),
				logging.Int64("job_id", job.ID))
		}
		item.JobID = &job.ID
	}

	quote.Subtotal, err = r.subtotal(ctx, quote)
	if err != nil {
		return nil, err
	}
	if err := r.catalog.UpdateQuote(ctx, quote); err != nil {
		return nil, err
	}
	return r.catalog.GetQuote(ctx, quoteID)
}

// RefreshForJob recomputes the subtotal of every quote referencing the job.
// The slicing workflow calls this after a job's price changes.
func (r *Resolver) RefreshForJob(ctx context.Context, jobID int64) error {
	quoteIDs, err := r.catalog.QuotesReferencingJob(ctx, jobID)
	if err != nil {
		return err
	}
	for _, quoteID := range quoteIDs {
		quote, err := r.catalog.GetQuote(ctx, quoteID)
		if err != nil {
			return err
		}
		if quote == nil {
			continue
		}
		quote.Subtotal, err = r.subtotal(ctx, quote)
		if err != nil {
			return err
		}
		if err := r.catalog.UpdateQuote(ctx, quote); err != nil {
			return err
		}
	}
	return nil
}

// subtotal sums effective job price times quantity across the line items.
// Items without a job, or whose job has no price yet, contribute nothing.
func (r *Resolver) subtotal(ctx context.Context, quote *catalog.Quote) (float64, error) {
	var total float64
	for _, item := range quote.Items {
		if item.JobID == nil {
			continue
		}
		job, err := r.jobs.GetByID(ctx, *item.JobID)
		if err != nil {
			return 0, fmt.Errorf("load job %d for quote %d: %w", *item.JobID, quote.ID, err)
		}
		price := job.EffectivePrice()
		if price == nil {
			continue
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		total += *price * float64(quantity)
	}
	return total, nil
}

func itemTuple(item *catalog.QuoteItem, machineID *int64) (jobs.Tuple, bool) {
	if item.ModelID == nil || item.MaterialID == nil || item.ProcessID == nil || machineID == nil {
		return jobs.Tuple{}, false
	}
	tuple := jobs.Tuple{
		ModelID:    *item.ModelID,
		MaterialID: *item.MaterialID,
		ProcessID:  *item.ProcessID,
		MachineID:  *machineID,
	}
	return tuple, tuple.Complete()
}
