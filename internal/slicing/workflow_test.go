package slicing_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/services"
	"platen/internal/slicer"
	"platen/internal/slicing"
	"platen/internal/testsupport"
)

type fakeInvoker struct {
	plates []string
	err    error
	calls  int

	gotModel string
	gotFiles slicer.ContextFiles
}

func (f *fakeInvoker) Slice(_ context.Context, modelPath string, files slicer.ContextFiles, outputDir string) (slicer.Result, error) {
	f.calls++
	f.gotModel = modelPath
	f.gotFiles = files

	result := slicer.Result{
		Command:        "stub-slicer --outputdir " + outputDir,
		CombinedOutput: "stub output",
	}
	if f.err != nil {
		return result, f.err
	}
	for i, contents := range f.plates {
		path := filepath.Join(outputDir, fmt.Sprintf("plate_%d.gcode", i+1))
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			return result, err
		}
		result.OutputPaths = append(result.OutputPaths, path)
	}
	return result, nil
}

type recordingRefresher struct {
	jobIDs []int64
}

func (r *recordingRefresher) RefreshForJob(_ context.Context, jobID int64) error {
	r.jobIDs = append(r.jobIDs, jobID)
	return nil
}

func plateGcode(weight, minutes int) string {
	return fmt.Sprintf("; filament used [g] = %d.0\n; total estimated time: %dm\nG1 X0 Y0\n", weight, minutes)
}

func TestWorkflowSlicesAndPricesJob(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	catalogStore := testsupport.MustOpenCatalog(t, cfg)
	jobStore := testsupport.MustOpenJobs(t, cfg)

	tuple := testsupport.SeedCatalog(t, catalogStore)
	testsupport.WriteModelFile(t, cfg.Paths.ModelsDir, "bracket.stl")
	job := testsupport.NewJob(t, jobStore, tuple)

	invoker := &fakeInvoker{plates: []string{plateGcode(10, 10), plateGcode(5, 5)}}
	wf := slicing.NewWithInvoker(cfg, jobStore, catalogStore, invoker, logging.NewNop())
	refresher := &recordingRefresher{}
	wf.SetQuoteRefresher(refresher)

	if err := wf.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	updated, err := jobStore.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != jobs.StatusSliced {
		t.Fatalf("status = %q, want %q (error: %s)", updated.Status, jobs.StatusSliced, updated.ErrorMessage)
	}
	if len(updated.Plates) != 2 {
		t.Fatalf("len(plates) = %d, want 2", len(updated.Plates))
	}
	if updated.EstimatedWeight == nil || *updated.EstimatedWeight != 15 {
		t.Fatalf("weight = %v, want 15", updated.EstimatedWeight)
	}
	if updated.EstimatedDuration == nil || *updated.EstimatedDuration != 900 {
		t.Fatalf("duration = %v, want 900", updated.EstimatedDuration)
	}
	// 15g at 0.05/g plus 900s at 2.00/h.
	if updated.EstimatedPrice == nil || math.Abs(*updated.EstimatedPrice-1.25) > 1e-9 {
		t.Fatalf("price = %v, want 1.25", updated.EstimatedPrice)
	}
	if updated.SlicingCommand == "" || updated.SlicerOutput == "" {
		t.Fatal("expected command and output to be recorded")
	}
	for _, path := range []string{invoker.gotFiles.MaterialPath, invoker.gotFiles.ProcessPath, invoker.gotFiles.MachinePath} {
		if _, statErr := os.Stat(path); statErr != nil {
			t.Fatalf("materialized config %q not on disk: %v", path, statErr)
		}
	}
	if len(refresher.jobIDs) != 1 || refresher.jobIDs[0] != job.ID {
		t.Fatalf("refreshed jobs = %v, want [%d]", refresher.jobIDs, job.ID)
	}
}

func TestWorkflowFailsWhenSlicerFails(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	catalogStore := testsupport.MustOpenCatalog(t, cfg)
	jobStore := testsupport.MustOpenJobs(t, cfg)

	tuple := testsupport.SeedCatalog(t, catalogStore)
	testsupport.WriteModelFile(t, cfg.Paths.ModelsDir, "bracket.stl")
	job := testsupport.NewJob(t, jobStore, tuple)

	invoker := &fakeInvoker{err: errors.New("exit status 1")}
	wf := slicing.NewWithInvoker(cfg, jobStore, catalogStore, invoker, logging.NewNop())

	if err := wf.Run(context.Background(), job.ID); err == nil {
		t.Fatal("expected workflow error")
	}

	updated, err := jobStore.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != jobs.StatusFailed {
		t.Fatalf("status = %q, want %q", updated.Status, jobs.StatusFailed)
	}
	if updated.ErrorMessage == "" {
		t.Fatal("expected error message")
	}
	if updated.SlicingCommand == "" || updated.SlicerOutput != "stub output" {
		t.Fatal("expected failed invocation details to be recorded")
	}
}

func TestWorkflowFailsWhenModelFileMissing(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	catalogStore := testsupport.MustOpenCatalog(t, cfg)
	jobStore := testsupport.MustOpenJobs(t, cfg)

	tuple := testsupport.SeedCatalog(t, catalogStore)
	job := testsupport.NewJob(t, jobStore, tuple)

	invoker := &fakeInvoker{plates: []string{plateGcode(1, 1)}}
	wf := slicing.NewWithInvoker(cfg, jobStore, catalogStore, invoker, logging.NewNop())

	if err := wf.Run(context.Background(), job.ID); err == nil {
		t.Fatal("expected workflow error")
	}
	if invoker.calls != 0 {
		t.Fatalf("slicer ran %d times, want 0", invoker.calls)
	}

	updated, err := jobStore.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != jobs.StatusFailed {
		t.Fatalf("status = %q, want %q", updated.Status, jobs.StatusFailed)
	}
	if !strings.Contains(updated.ErrorMessage, "bracket.stl") {
		t.Fatalf("error %q does not name the missing file", updated.ErrorMessage)
	}
}

func TestWorkflowFailsWhenConfigReferenceMissing(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	catalogStore := testsupport.MustOpenCatalog(t, cfg)
	jobStore := testsupport.MustOpenJobs(t, cfg)

	tuple := testsupport.SeedCatalog(t, catalogStore)
	noConfig, err := catalogStore.CreateMaterial(context.Background(), "pla-unconfigured", 0.05, nil, true)
	if err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}
	tuple.MaterialID = noConfig.ID

	testsupport.WriteModelFile(t, cfg.Paths.ModelsDir, "bracket.stl")
	job := testsupport.NewJob(t, jobStore, tuple)

	invoker := &fakeInvoker{plates: []string{plateGcode(1, 1)}}
	wf := slicing.NewWithInvoker(cfg, jobStore, catalogStore, invoker, logging.NewNop())

	runErr := wf.Run(context.Background(), job.ID)
	if runErr == nil {
		t.Fatal("expected workflow error for material without config reference")
	}
	if !errors.Is(runErr, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", runErr)
	}
	if invoker.calls != 0 {
		t.Fatalf("slicer ran %d times, want 0", invoker.calls)
	}

	updated, err := jobStore.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != jobs.StatusFailed {
		t.Fatalf("status = %q, want %q", updated.Status, jobs.StatusFailed)
	}
	if !strings.Contains(updated.ErrorMessage, "material.json") {
		t.Fatalf("error %q does not name the missing document", updated.ErrorMessage)
	}
}

func TestWorkflowRerunReplacesPriorResults(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	catalogStore := testsupport.MustOpenCatalog(t, cfg)
	jobStore := testsupport.MustOpenJobs(t, cfg)

	tuple := testsupport.SeedCatalog(t, catalogStore)
	testsupport.WriteModelFile(t, cfg.Paths.ModelsDir, "bracket.stl")
	job := testsupport.NewJob(t, jobStore, tuple)

	invoker := &fakeInvoker{plates: []string{plateGcode(10, 10), plateGcode(5, 5)}}
	wf := slicing.NewWithInvoker(cfg, jobStore, catalogStore, invoker, logging.NewNop())

	if err := wf.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	invoker.plates = []string{plateGcode(8, 4)}
	if err := wf.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	updated, err := jobStore.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(updated.Plates) != 1 {
		t.Fatalf("len(plates) = %d, want 1 after rerun", len(updated.Plates))
	}
	if updated.EstimatedWeight == nil || *updated.EstimatedWeight != 8 {
		t.Fatalf("weight = %v, want 8", updated.EstimatedWeight)
	}
}

func TestWorkflowWithoutMetricsLeavesPriceUnset(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	catalogStore := testsupport.MustOpenCatalog(t, cfg)
	jobStore := testsupport.MustOpenJobs(t, cfg)

	tuple := testsupport.SeedCatalog(t, catalogStore)
	testsupport.WriteModelFile(t, cfg.Paths.ModelsDir, "bracket.stl")
	job := testsupport.NewJob(t, jobStore, tuple)

	invoker := &fakeInvoker{plates: []string{"G1 X0 Y0\nG1 X10 Y10\n"}}
	wf := slicing.NewWithInvoker(cfg, jobStore, catalogStore, invoker, logging.NewNop())

	if err := wf.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	updated, err := jobStore.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != jobs.StatusSliced {
		t.Fatalf("status = %q, want %q", updated.Status, jobs.StatusSliced)
	}
	if updated.EstimatedWeight != nil || updated.EstimatedDuration != nil || updated.EstimatedPrice != nil {
		t.Fatalf("expected nil aggregates, got weight=%v duration=%v price=%v",
			updated.EstimatedWeight, updated.EstimatedDuration, updated.EstimatedPrice)
	}
}

func TestWorkflowStripsExecutableBlocks(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	catalogStore := testsupport.MustOpenCatalog(t, cfg)
	jobStore := testsupport.MustOpenJobs(t, cfg)

	tuple := testsupport.SeedCatalog(t, catalogStore)
	testsupport.WriteModelFile(t, cfg.Paths.ModelsDir, "bracket.stl")
	job := testsupport.NewJob(t, jobStore, tuple)

	gcodeWithBlock := "; filament used [g] = 2.0\n; EXECUTABLE_BLOCK_START\nM997\n; EXECUTABLE_BLOCK_END\nG1 X0\n"
	invoker := &fakeInvoker{plates: []string{gcodeWithBlock}}
	wf := slicing.NewWithInvoker(cfg, jobStore, catalogStore, invoker, logging.NewNop())

	if err := wf.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	updated, err := jobStore.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if strings.Contains(updated.Plates[0].Gcode, "M997") {
		t.Fatalf("stored gcode still contains executable block: %q", updated.Plates[0].Gcode)
	}
}
