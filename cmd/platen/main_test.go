package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"platen/internal/catalog"
	"platen/internal/config"
	"platen/internal/daemon"
	"platen/internal/dispatch"
	"platen/internal/ipc"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/quotes"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, int64) error { return nil }

type cliTestEnv struct {
	cfg        *config.Config
	store      *jobs.Store
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ModelsDir = filepath.Join(base, "models")
	cfgVal.Paths.WorkspaceDir = filepath.Join(base, "workspaces")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = ""
	cfgVal.Slicer.Binary = "/bin/true"

	cfg := &cfgVal
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	catalogStore, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}

	logger := logging.NewNop()
	resolver := quotes.NewResolver(catalogStore, store, logger)
	dispatcher := dispatch.New(cfg, store, noopRunner{}, logger)

	d, err := daemon.New(cfg, store, catalogStore, resolver, dispatcher, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.DataDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("unix sockets unavailable: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
		catalogStore.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		socketPath: socketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", env.socketPath, "--config", env.configPath}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCLIJobLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "job", "add", "--model", "1", "--material", "2", "--process", "3", "--machine", "4")
	if err != nil {
		t.Fatalf("job add: %v", err)
	}
	if !strings.Contains(out, "queued") {
		t.Fatalf("expected queued confirmation, got %q", out)
	}

	out, err = runCLI(t, env, "job", "add", "--model", "1", "--material", "2", "--process", "3", "--machine", "4")
	if err != nil {
		t.Fatalf("job add duplicate: %v", err)
	}
	if !strings.Contains(out, "already exists") {
		t.Fatalf("expected duplicate notice, got %q", out)
	}

	out, err = runCLI(t, env, "job", "list")
	if err != nil {
		t.Fatalf("job list: %v", err)
	}
	if !strings.Contains(out, "queued") {
		t.Fatalf("expected job row in list, got %q", out)
	}

	out, err = runCLI(t, env, "job", "show", "1")
	if err != nil {
		t.Fatalf("job show: %v", err)
	}
	if !strings.Contains(out, "Status:") || !strings.Contains(out, "queued") {
		t.Fatalf("expected job details, got %q", out)
	}
}

func TestCLIQueueHealth(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, env, "job", "add", "--model", "1", "--material", "1", "--process", "1", "--machine", "1"); err != nil {
		t.Fatalf("job add: %v", err)
	}

	out, err := runCLI(t, env, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	if !strings.Contains(out, "Total: 1") || !strings.Contains(out, "Pending dispatch: 1") {
		t.Fatalf("unexpected health output: %q", out)
	}
}

func TestCLIJobAddRequiresSelection(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, env, "job", "add", "--model", "1")
	if err == nil {
		t.Fatal("expected missing flag error")
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]tableColumn{col("Status"), numericCol("Count")},
		[][]string{{"queued", "3"}, {"failed"}},
	)
	for _, want := range []string{"Status", "Count", "queued", "failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil) != "" {
		t.Fatal("expected empty output without columns")
	}
}

func TestBuildJobStatsRows(t *testing.T) {
	rows := buildJobStatsRows(map[string]int{
		"failed": 2,
		"queued": 3,
		"sliced": 1,
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "queued" || rows[1][0] != "sliced" || rows[2][0] != "failed" {
		t.Fatalf("unexpected row order: %v", rows)
	}
}
