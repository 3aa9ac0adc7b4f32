package testsupport

import (
	"path/filepath"
	"testing"

	"platen/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ModelsDir = filepath.Join(base, "models")
	cfgVal.Paths.WorkspaceDir = filepath.Join(base, "workspaces")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Workflow.QueuePollInterval = 1
	cfgVal.Workflow.ErrorRetryInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSlicerBinary points the config at an explicit slicer binary.
func WithSlicerBinary(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Slicer.Binary = path
	}
}

// WithSlicerStub installs a fake slicer that emits the given plate contents
// and points the config at it.
func WithSlicerStub(plates ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Slicer.Binary = StubSlicer(b.t, b.baseDir, plates...)
	}
}

// WithFailingSlicerStub installs a fake slicer that exits non-zero with the
// given message.
func WithFailingSlicerStub(message string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Slicer.Binary = StubFailingSlicer(b.t, b.baseDir, message)
	}
}

// WithMaxAttempts overrides the dispatch retry bound.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.MaxAttempts = attempts
	}
}
