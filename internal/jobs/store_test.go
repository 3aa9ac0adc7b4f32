package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"platen/internal/jobs"
	"platen/internal/testsupport"
)

func testTuple(n int64) jobs.Tuple {
	return jobs.Tuple{ModelID: n, MaterialID: n, ProcessID: n, MachineID: n}
}

func TestCreateEnqueuesJob(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)
	ctx := context.Background()

	job, err := store.Create(ctx, testTuple(1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.Status != jobs.StatusQueued {
		t.Fatalf("status = %q, want %q", job.Status, jobs.StatusQueued)
	}
	if job.ID == 0 {
		t.Fatal("expected assigned job id")
	}

	pending, err := store.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if pending != 1 {
		t.Fatalf("pending = %d, want 1", pending)
	}
}

func TestCreateRejectsDuplicateTuple(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)
	ctx := context.Background()

	if _, err := store.Create(ctx, testTuple(1)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, testTuple(1)); !errors.Is(err, jobs.ErrDuplicateJob) {
		t.Fatalf("second Create err = %v, want ErrDuplicateJob", err)
	}
}

func TestCreateRejectsIncompleteTuple(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	tuple := testTuple(1)
	tuple.MachineID = 0
	if _, err := store.Create(context.Background(), tuple); err == nil {
		t.Fatal("expected error for incomplete tuple")
	}
}

func TestFindOrCreateReturnsExisting(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)
	ctx := context.Background()

	first, created, err := store.FindOrCreate(ctx, testTuple(7))
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if !created {
		t.Fatal("expected first call to create")
	}

	second, created, err := store.FindOrCreate(ctx, testTuple(7))
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if created {
		t.Fatal("expected second call to find")
	}
	if second.ID != first.ID {
		t.Fatalf("second.ID = %d, want %d", second.ID, first.ID)
	}
}

func TestFindOrCreateConcurrentCreatorsConverge(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			job, _, err := store.FindOrCreate(ctx, testTuple(42))
			if err != nil {
				errs[idx] = err
				return
			}
			ids[idx] = job.ID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got job %d, worker 0 got %d", i, ids[i], ids[0])
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len(jobs) = %d, want 1", len(all))
	}
}

func TestUpdatePersistsResultsAndPlates(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, testTuple(1))

	weight := 15.7
	duration := 5405.0
	price := 3.79
	plateWeight := 10.0
	job.Status = jobs.StatusSliced
	job.EstimatedWeight = &weight
	job.EstimatedDuration = &duration
	job.EstimatedPrice = &price
	job.Plates = []jobs.Plate{
		{EstimatedWeight: &plateWeight, Gcode: "G1 X0\n"},
		{Gcode: "G1 Y0\n"},
	}
	job.SlicingCommand = "orca-slicer --info model.stl"
	job.SlicerOutput = "sliced ok"

	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	loaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != jobs.StatusSliced {
		t.Fatalf("status = %q, want %q", loaded.Status, jobs.StatusSliced)
	}
	if loaded.EstimatedWeight == nil || *loaded.EstimatedWeight != weight {
		t.Fatalf("weight = %v, want %v", loaded.EstimatedWeight, weight)
	}
	if loaded.EstimatedDuration == nil || *loaded.EstimatedDuration != duration {
		t.Fatalf("duration = %v, want %v", loaded.EstimatedDuration, duration)
	}
	if len(loaded.Plates) != 2 {
		t.Fatalf("len(plates) = %d, want 2", len(loaded.Plates))
	}
	if loaded.Plates[0].EstimatedWeight == nil || *loaded.Plates[0].EstimatedWeight != plateWeight {
		t.Fatalf("plate weight = %v, want %v", loaded.Plates[0].EstimatedWeight, plateWeight)
	}
	if loaded.Plates[1].EstimatedWeight != nil {
		t.Fatal("expected second plate weight to stay nil")
	}
	if loaded.SlicingCommand != job.SlicingCommand {
		t.Fatalf("command = %q, want %q", loaded.SlicingCommand, job.SlicingCommand)
	}
}

func TestUpdateNeverChangesTuple(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, testTuple(3))
	job.Tuple = testTuple(9)
	job.Status = jobs.StatusSliced
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	loaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Tuple != testTuple(3) {
		t.Fatalf("tuple = %+v, want %+v", loaded.Tuple, testTuple(3))
	}
}

func TestRequeueClearsErrorAndEnqueues(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, testTuple(1))

	// Drain the original dispatch entry and fail the job.
	item, err := store.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if err := store.Ack(ctx, item.ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	job.SetFailed("slicer crashed")
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	requeued, err := store.Requeue(ctx, job.ID)
	if err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	if requeued.Status != jobs.StatusQueued {
		t.Fatalf("status = %q, want %q", requeued.Status, jobs.StatusQueued)
	}
	if requeued.ErrorMessage != "" {
		t.Fatalf("error message = %q, want empty", requeued.ErrorMessage)
	}

	pending, err := store.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if pending != 1 {
		t.Fatalf("pending = %d, want 1", pending)
	}
}

func TestRequeueRejectsProcessingJob(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, testTuple(1))
	if err := store.SetStatus(ctx, job.ID, jobs.StatusSlicing); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := store.Requeue(ctx, job.ID); err == nil {
		t.Fatal("expected requeue of a processing job to fail")
	}
}

func TestHealthAggregatesStatuses(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)
	ctx := context.Background()

	a := testsupport.NewJob(t, store, testTuple(1))
	b := testsupport.NewJob(t, store, testTuple(2))
	testsupport.NewJob(t, store, testTuple(3))

	if err := store.SetStatus(ctx, a.ID, jobs.StatusSliced); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.SetStatus(ctx, b.ID, jobs.StatusSlicing); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	want := jobs.HealthSummary{Total: 3, Queued: 1, Processing: 1, Sliced: 1}
	if health != want {
		t.Fatalf("health = %+v, want %+v", health, want)
	}
}

func TestGetByIDMissing(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	if _, err := store.GetByID(context.Background(), 999); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

func TestEffectivePricePrefersOverride(t *testing.T) {
	t.Parallel()

	estimate := 4.5
	override := 9.0

	job := jobs.Job{EstimatedPrice: &estimate}
	if got := job.EffectivePrice(); got == nil || *got != estimate {
		t.Fatalf("EffectivePrice = %v, want %v", got, estimate)
	}

	job.PriceOverride = &override
	if got := job.EffectivePrice(); got == nil || *got != override {
		t.Fatalf("EffectivePrice = %v, want %v", got, override)
	}
}
