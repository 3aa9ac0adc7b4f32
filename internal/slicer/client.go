package slicer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Result captures one slicing invocation: the command line that ran, the
// combined output of the process, and the generated G-code paths in plate
// order.
type Result struct {
	Command        string
	CombinedOutput string
	OutputPaths    []string
}

// ContextFiles holds the materialized slicer configuration documents.
type ContextFiles struct {
	MaterialPath string
	ProcessPath  string
	MachinePath  string
}

// Invoker defines the behaviour required by the slicing workflow.
type Invoker interface {
	Slice(ctx context.Context, modelPath string, files ContextFiles, outputDir string) (Result, error)
}

// Executor abstracts command execution for testability. Run returns the
// combined stdout and stderr of the process, truncated to maxBytes.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, maxBytes int) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client drives the slicer CLI.
type Client struct {
	binary    string
	timeout   time.Duration
	outputExt string
	maxOutput int
	exec      Executor
}

// New constructs a slicer client.
func New(binary string, timeoutSeconds int, outputExt string, maxOutputBytes int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("slicer binary required")
	}
	outputExt = strings.TrimSpace(outputExt)
	if outputExt == "" {
		outputExt = ".gcode"
	}
	if !strings.HasPrefix(outputExt, ".") {
		outputExt = "." + outputExt
	}
	client := &Client{
		binary:    binary,
		timeout:   time.Duration(timeoutSeconds) * time.Second,
		outputExt: strings.ToLower(outputExt),
		maxOutput: maxOutputBytes,
		exec:      commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Slice runs the slicer against one model and collects the generated G-code
// files from outputDir. The flag set asks the slicer to arrange and orient
// the model itself rather than slice an existing plate layout.
func (c *Client) Slice(ctx context.Context, modelPath string, files ContextFiles, outputDir string) (Result, error) {
	if modelPath == "" {
		return Result{}, errors.New("model path required")
	}
	if outputDir == "" {
		return Result{}, errors.New("output directory required")
	}
	if files.MaterialPath == "" || files.ProcessPath == "" || files.MachinePath == "" {
		return Result{}, errors.New("material, process, and machine config files required")
	}

	args := []string{
		"--info",
		"--arrange", "1",
		"--orient", "1",
		"--slice", "0",
		"--load-filaments", files.MaterialPath,
		"--load-settings", files.ProcessPath,
		"--load-settings", files.MachinePath,
		"--outputdir", outputDir,
		modelPath,
	}

	result := Result{Command: commandString(c.binary, args)}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	output, runErr := c.exec.Run(runCtx, c.binary, args, c.maxOutput)
	result.CombinedOutput = output
	if runErr != nil {
		return result, fmt.Errorf("slicer run: %w", runErr)
	}

	paths, err := gatherOutputs(outputDir, c.outputExt)
	if err != nil {
		return result, fmt.Errorf("inspect slicer outputs: %w", err)
	}
	if len(paths) == 0 {
		return result, fmt.Errorf("slicer produced no %s files in %s", c.outputExt, outputDir)
	}
	result.OutputPaths = paths
	return result, nil
}

// gatherOutputs lists generated files sorted by name so plate order is stable
// across runs.
func gatherOutputs(dir, ext string) ([]string, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if strings.HasSuffix(strings.ToLower(entry), ext) {
			paths = append(paths, entry)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// commandString reconstructs a shell-readable command line for diagnostics.
func commandString(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(binary))
	for _, arg := range args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\"'") {
		return fmt.Sprintf("%q", arg)
	}
	return arg
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, maxBytes int) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	raw, err := cmd.CombinedOutput()
	output := truncateOutput(string(raw), maxBytes)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return output, fmt.Errorf("slicer timed out: %w", ctxErr)
	}
	if err != nil {
		return output, fmt.Errorf("%w; output: %s", err, strings.TrimSpace(output))
	}
	return output, nil
}

func truncateOutput(output string, maxBytes int) string {
	if maxBytes <= 0 || len(output) <= maxBytes {
		return output
	}
	return output[:maxBytes] + "\n[output truncated]"
}
