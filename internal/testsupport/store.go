package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"platen/internal/catalog"
	"platen/internal/config"
	"platen/internal/jobs"
)

// MustOpenJobs opens a jobs.Store for tests and registers cleanup.
func MustOpenJobs(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewJob creates a queued job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, tuple jobs.Tuple) *jobs.Job {
	t.Helper()

	job, err := store.Create(context.Background(), tuple)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}

// SeedCatalog inserts one model, material, process, and machine into the
// catalog, each with its own config document, and returns the tuple
// referencing them. The machine is active so it also acts as the default
// machine.
func SeedCatalog(t testing.TB, store *catalog.Store) jobs.Tuple {
	t.Helper()
	ctx := context.Background()

	model, err := store.CreateModel(ctx, "bracket", "bracket.stl")
	if err != nil {
		t.Fatalf("CreateModel: %v", err)
	}
	material, err := store.CreateMaterial(ctx, "pla-black", 0.05, seedConfig(t, store, "pla-black-filament"), true)
	if err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}
	process, err := store.CreateProcess(ctx, "0.2mm-standard", seedConfig(t, store, "0.2mm-standard-process"), true)
	if err != nil {
		t.Fatalf("CreateProcess: %v", err)
	}
	machine, err := store.CreateMachine(ctx, "printer-01", 2.0, seedConfig(t, store, "printer-01-machine"), true)
	if err != nil {
		t.Fatalf("CreateMachine: %v", err)
	}

	return jobs.Tuple{
		ModelID:    model.ID,
		MaterialID: material.ID,
		ProcessID:  process.ID,
		MachineID:  machine.ID,
	}
}

func seedConfig(t testing.TB, store *catalog.Store, name string) *int64 {
	t.Helper()

	doc, err := store.CreateConfig(context.Background(), name, json.RawMessage(`{"name":"`+name+`"}`))
	if err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}
	return &doc.ID
}
