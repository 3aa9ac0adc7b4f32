package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"platen/internal/dispatch"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/testsupport"
)

type fakeRunner struct {
	mu    sync.Mutex
	runs  []int64
	fails int
	err   error
}

func (f *fakeRunner) Run(_ context.Context, jobID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, jobID)
	if f.fails > 0 {
		f.fails--
		return f.err
	}
	return nil
}

func (f *fakeRunner) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

func waitFor(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func testTuple(n int64) jobs.Tuple {
	return jobs.Tuple{ModelID: n, MaterialID: n, ProcessID: n, MachineID: n}
}

func TestDispatcherProcessesQueuedJobs(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)
	job := testsupport.NewJob(t, store, testTuple(1))

	runner := &fakeRunner{}
	d := dispatch.New(cfg, store, runner, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	waitFor(t, 5*time.Second, func() bool { return runner.runCount() >= 1 })
	if runner.runs[0] != job.ID {
		t.Fatalf("ran job %d, want %d", runner.runs[0], job.ID)
	}

	waitFor(t, 5*time.Second, func() bool {
		pending, err := store.PendingCount(context.Background())
		return err == nil && pending == 0
	})
}

func TestDispatcherRetriesFailedRuns(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(3))
	store := testsupport.MustOpenJobs(t, cfg)
	testsupport.NewJob(t, store, testTuple(1))

	runner := &fakeRunner{fails: 1, err: errors.New("transient slicer failure")}
	d := dispatch.New(cfg, store, runner, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	waitFor(t, 10*time.Second, func() bool { return runner.runCount() >= 2 })
	if d.LastError() == nil {
		t.Fatal("expected recorded failure")
	}
}

func TestDispatcherDropsEntryAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(2))
	store := testsupport.MustOpenJobs(t, cfg)
	testsupport.NewJob(t, store, testTuple(1))

	runner := &fakeRunner{fails: 10, err: errors.New("persistent failure")}
	d := dispatch.New(cfg, store, runner, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	waitFor(t, 10*time.Second, func() bool { return runner.runCount() >= 2 })
	d.Stop()

	if got := runner.runCount(); got != 2 {
		t.Fatalf("runs = %d, want exactly max attempts (2)", got)
	}
	pending, err := store.PendingCount(context.Background())
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if pending != 0 {
		t.Fatalf("pending = %d, want 0 after drop", pending)
	}
}

func TestDispatcherStartStop(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobs(t, cfg)

	d := dispatch.New(cfg, store, &fakeRunner{}, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected running after Start")
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	d.Stop()
	if d.Running() {
		t.Fatal("expected stopped after Stop")
	}
	d.Stop()
}
