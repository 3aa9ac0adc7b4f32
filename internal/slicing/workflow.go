package slicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"platen/internal/catalog"
	"platen/internal/config"
	"platen/internal/gcode"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/pricing"
	"platen/internal/services"
	"platen/internal/slicer"
)

// Catalog is the slice of the catalog store the workflow needs.
type Catalog interface {
	GetModel(ctx context.Context, id int64) (*catalog.Model, error)
	GetMaterial(ctx context.Context, id int64) (*catalog.Material, error)
	GetProcess(ctx context.Context, id int64) (*catalog.Process, error)
	GetMachine(ctx context.Context, id int64) (*catalog.Machine, error)
	GetConfig(ctx context.Context, id int64) (*catalog.ConfigDocument, error)
}

// QuoteRefresher recomputes quote subtotals after a job's price changes.
type QuoteRefresher interface {
	RefreshForJob(ctx context.Context, jobID int64) error
}

// Workflow executes the full slicing pipeline for one job at a time.
type Workflow struct {
	cfg       *config.Config
	store     *jobs.Store
	catalog   Catalog
	invoker   slicer.Invoker
	refresher QuoteRefresher
	logger    *slog.Logger
}

// New constructs the workflow using the configured slicer binary.
func New(cfg *config.Config, store *jobs.Store, cat Catalog, logger *slog.Logger) (*Workflow, error) {
	client, err := slicer.New(cfg.Slicer.Binary, cfg.Slicer.Timeout, cfg.Slicer.OutputExtension, cfg.Slicer.MaxOutputBytes)
	if err != nil {
		return nil, fmt.Errorf("slicer client: %w", err)
	}
	return NewWithInvoker(cfg, store, cat, client, logger), nil
}

// NewWithInvoker allows injecting the slicer invoker (used in tests).
func NewWithInvoker(cfg *config.Config, store *jobs.Store, cat Catalog, invoker slicer.Invoker, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workflow{
		cfg:     cfg,
		store:   store,
		catalog: cat,
		invoker: invoker,
		logger:  logging.NewComponentLogger(logger, "slicing"),
	}
}

// SetQuoteRefresher installs the hook run after a job reaches sliced.
func (w *Workflow) SetQuoteRefresher(refresher QuoteRefresher) {
	w.refresher = refresher
}

// Run drives a job through the pipeline. Every run starts from scratch: prior
// results are cleared and the workspace rebuilt, so a retried job cannot see
// stale plates. On failure the job is marked failed with the cause and the
// error is returned for retry accounting.
func (w *Workflow) Run(ctx context.Context, jobID int64) error {
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, w.logger)

	job, err := w.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	logger.Info("starting slicing workflow", logging.String("status", string(job.Status)))

	if err := w.execute(ctx, job); err != nil {
		return w.fail(ctx, job, err)
	}

	logger.Info("slicing workflow finished",
		logging.Int("plates", len(job.Plates)),
		logging.Any("estimated_price", deref(job.EstimatedPrice)))
	return nil
}

func (w *Workflow) execute(ctx context.Context, job *jobs.Job) error {
	logger := logging.WithContext(ctx, w.logger)

	// Collecting context: reset derived state and rebuild the workspace.
	job.ResetResults()
	job.Status = jobs.StatusCollectingContext
	if err := w.store.Update(ctx, job); err != nil {
		return err
	}

	workspace := w.cfg.JobWorkspace(job.ID)
	if err := os.RemoveAll(workspace); err != nil && !errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrConfiguration, "slicing", "prepare workspace",
			"failed to clear the job workspace", err)
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "slicing", "prepare workspace",
			"failed to create the job workspace", err)
	}

	jc, err := w.collectContext(ctx, job, workspace)
	if err != nil {
		return err
	}

	modelPath := filepath.Join(w.cfg.Paths.ModelsDir, jc.model.Filename)
	if _, err := os.Stat(modelPath); err != nil {
		return services.Wrap(services.ErrValidation, "slicing", "locate model",
			fmt.Sprintf("model file %s is missing from the models directory", jc.model.Filename), err)
	}

	// Slicing: run the external binary against the workspace output dir.
	job.Status = jobs.StatusSlicing
	if err := w.store.Update(ctx, job); err != nil {
		return err
	}

	outputDir := filepath.Join(workspace, "output")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "slicing", "prepare output dir",
			"failed to create the slicer output directory", err)
	}

	logger.Info("invoking slicer",
		logging.String("model", modelPath),
		logging.String("output_dir", outputDir))

	result, sliceErr := w.invoker.Slice(ctx, modelPath, jc.files, outputDir)
	job.SlicingCommand = result.Command
	job.SlicerOutput = result.CombinedOutput
	if sliceErr != nil {
		return services.Wrap(services.ErrExternalTool, "slicing", "run slicer",
			"slicer invocation failed", sliceErr)
	}

	// Parsing: one plate per generated file, in stable order.
	job.Status = jobs.StatusParsing
	if err := w.store.Update(ctx, job); err != nil {
		return err
	}

	plates, err := w.parseOutputs(result.OutputPaths)
	if err != nil {
		return err
	}
	job.Plates = plates
	job.EstimatedWeight, job.EstimatedDuration = aggregate(plates)
	job.EstimatedPrice = pricing.Estimate(pricing.Inputs{
		PricePerGram:     jc.material.PricePerGram,
		PricePerHour:     jc.machine.PricePerHour,
		TotalWeightGrams: deref(job.EstimatedWeight),
		TotalDurationSec: deref(job.EstimatedDuration),
		WeightOverride:   job.WeightOverride,
		DurationOverride: job.DurationOverride,
	})

	job.Status = jobs.StatusSliced
	if err := w.store.Update(ctx, job); err != nil {
		return err
	}

	if w.refresher != nil {
		if err := w.refresher.RefreshForJob(ctx, job.ID); err != nil {
			logger.Warn("quote refresh after slicing failed", logging.Error(err))
		}
	}
	return nil
}

func (w *Workflow) collectContext(ctx context.Context, job *jobs.Job, workspace string) (*jobContext, error) {
	jc := &jobContext{}
	var err error

	if jc.model, err = w.catalog.GetModel(ctx, job.Tuple.ModelID); err != nil || jc.model == nil {
		return nil, services.Wrap(services.ErrValidation, "slicing", "resolve model",
			fmt.Sprintf("model %d could not be resolved", job.Tuple.ModelID), err)
	}
	if jc.material, err = w.catalog.GetMaterial(ctx, job.Tuple.MaterialID); err != nil || jc.material == nil {
		return nil, services.Wrap(services.ErrValidation, "slicing", "resolve material",
			fmt.Sprintf("material %d could not be resolved", job.Tuple.MaterialID), err)
	}
	if jc.process, err = w.catalog.GetProcess(ctx, job.Tuple.ProcessID); err != nil || jc.process == nil {
		return nil, services.Wrap(services.ErrValidation, "slicing", "resolve process",
			fmt.Sprintf("process %d could not be resolved", job.Tuple.ProcessID), err)
	}
	if jc.machine, err = w.catalog.GetMachine(ctx, job.Tuple.MachineID); err != nil || jc.machine == nil {
		return nil, services.Wrap(services.ErrValidation, "slicing", "resolve machine",
			fmt.Sprintf("machine %d could not be resolved", job.Tuple.MachineID), err)
	}
	if err := w.materializeConfigs(ctx, jc, workspace); err != nil {
		return nil, err
	}
	return jc, nil
}

func (w *Workflow) parseOutputs(paths []string) ([]jobs.Plate, error) {
	plates := make([]jobs.Plate, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "slicing", "read gcode",
				fmt.Sprintf("failed to read generated file %s", filepath.Base(path)), err)
		}
		metrics := gcode.Parse(string(raw))
		plates = append(plates, jobs.Plate{
			EstimatedWeight:   metrics.WeightGrams,
			EstimatedDuration: metrics.DurationSeconds,
			Gcode:             metrics.Sanitized,
		})
	}
	return plates, nil
}

// aggregate sums the defined plate metrics. A metric stays nil when no plate
// reported it.
func aggregate(plates []jobs.Plate) (weight, duration *float64) {
	var weightSum, durationSum float64
	var haveWeight, haveDuration bool
	for _, plate := range plates {
		if plate.EstimatedWeight != nil {
			weightSum += *plate.EstimatedWeight
			haveWeight = true
		}
		if plate.EstimatedDuration != nil {
			durationSum += *plate.EstimatedDuration
			haveDuration = true
		}
	}
	if haveWeight {
		weight = &weightSum
	}
	if haveDuration {
		duration = &durationSum
	}
	return weight, duration
}

// fail records the failure on the job. The original error always comes back
// so the dispatcher can count the attempt.
func (w *Workflow) fail(ctx context.Context, job *jobs.Job, cause error) error {
	logger := logging.WithContext(ctx, w.logger)
	logger.Error("slicing workflow failed", logging.Error(cause))

	job.SetFailed(failureMessage(cause))
	if err := w.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	return cause
}

func failureMessage(err error) string {
	if details := services.Details(err); details.Message != "" {
		return details.Message
	}
	return err.Error()
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
