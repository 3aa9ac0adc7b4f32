package daemon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"platen/internal/catalog"
	"platen/internal/config"
	"platen/internal/daemon"
	"platen/internal/dispatch"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/quotes"
	"platen/internal/testsupport"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, int64) error { return nil }

func newTestDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *jobs.Store, *catalog.Store) {
	t.Helper()

	store := testsupport.MustOpenJobs(t, cfg)
	catalogStore := testsupport.MustOpenCatalog(t, cfg)
	logger := logging.NewNop()
	resolver := quotes.NewResolver(catalogStore, store, logger)
	dispatcher := dispatch.New(cfg, store, noopRunner{}, logger)

	d, err := daemon.New(cfg, store, catalogStore, resolver, dispatcher, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d, store, catalogStore
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status := d.Status(ctx); !status.Running {
		t.Fatal("expected running status after Start")
	}

	d.Stop()
	if status := d.Status(ctx); status.Running {
		t.Fatal("expected stopped status after Stop")
	}
}

func TestDaemonLockExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _, _ := newTestDaemon(t, cfg)
	second, _, _ := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	err := second.Start(ctx)
	if err == nil {
		second.Stop()
		t.Fatal("expected second daemon start to fail while lock is held")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDaemonStatusCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store, _ := newTestDaemon(t, cfg)

	ctx := context.Background()
	testsupport.NewJob(t, store, jobs.Tuple{ModelID: 1, MaterialID: 1, ProcessID: 1, MachineID: 1})

	status := d.Status(ctx)
	if status.Queue.Total != 1 || status.Queue.Queued != 1 {
		t.Fatalf("unexpected queue counts: %+v", status.Queue)
	}
	if status.Pending != 1 {
		t.Fatalf("expected 1 pending dispatch entry, got %d", status.Pending)
	}
}

func TestDaemonHTTPEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store, _ := newTestDaemon(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, jobs.Tuple{ModelID: 1, MaterialID: 2, ProcessID: 3, MachineID: 4})

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected bound API address")
	}
	base := "http://" + addr

	client := &http.Client{Timeout: 5 * time.Second}

	var health struct {
		Total   int `json:"total"`
		Queued  int `json:"queued"`
		Pending int `json:"pending"`
	}
	getJSON(t, client, base+"/api/health", &health)
	if health.Total != 1 || health.Queued != 1 || health.Pending != 1 {
		t.Fatalf("unexpected health payload: %+v", health)
	}

	var list struct {
		Jobs []struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"jobs"`
	}
	getJSON(t, client, base+"/api/jobs", &list)
	if len(list.Jobs) != 1 || list.Jobs[0].ID != job.ID {
		t.Fatalf("unexpected job list: %+v", list)
	}

	var described struct {
		Job struct {
			ID      int64 `json:"id"`
			ModelID int64 `json:"modelId"`
		} `json:"job"`
	}
	getJSON(t, client, fmt.Sprintf("%s/api/jobs/%d", base, job.ID), &described)
	if described.Job.ModelID != 1 {
		t.Fatalf("unexpected job payload: %+v", described)
	}

	resp, err := client.Get(base + "/api/jobs?status=bogus")
	if err != nil {
		t.Fatalf("GET bogus status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}

	resp, err = client.Get(base + "/api/jobs/9999")
	if err != nil {
		t.Fatalf("GET missing job: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing job, got %d", resp.StatusCode)
	}
}

func getJSON(t *testing.T, client *http.Client, url string, target any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
