package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// StubSlicer writes an executable shell script that mimics a slicer: it finds
// the --outputdir argument and emits one G-code file per provided content
// string. It returns the script path.
func StubSlicer(t testing.TB, dir string, plates ...string) string {
	t.Helper()

	if len(plates) == 0 {
		plates = []string{"; filament used [g] = 1.0\n; total estimated time: 1m\nG1 X0 Y0\n"}
	}

	plateDir := filepath.Join(dir, "stub-plates")
	if err := os.MkdirAll(plateDir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", plateDir, err)
	}
	for i, contents := range plates {
		path := filepath.Join(plateDir, fmt.Sprintf("plate_%d.gcode", i+1))
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	script := strings.Join([]string{
		"#!/bin/sh",
		`outdir=""`,
		`prev=""`,
		`for arg in "$@"; do`,
		`  if [ "$prev" = "--outputdir" ]; then outdir="$arg"; fi`,
		`  prev="$arg"`,
		`done`,
		`if [ -z "$outdir" ]; then echo "missing --outputdir" >&2; exit 2; fi`,
		fmt.Sprintf(`cp %s/*.gcode "$outdir"/`, shellQuote(plateDir)),
		`echo "sliced $# args"`,
		"",
	}, "\n")

	return writeScript(t, dir, "stub-slicer", script)
}

// StubFailingSlicer writes an executable shell script that prints the given
// message to stderr and exits non-zero.
func StubFailingSlicer(t testing.TB, dir, message string) string {
	t.Helper()

	script := strings.Join([]string{
		"#!/bin/sh",
		fmt.Sprintf(`echo %s >&2`, shellQuote(message)),
		"exit 1",
		"",
	}, "\n")

	return writeScript(t, dir, "failing-slicer", script)
}

func writeScript(t testing.TB, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
