package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes the given contents at path, creating parent directories.
func WriteFile(t testing.TB, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteModelFile drops a small placeholder model into the models directory.
func WriteModelFile(t testing.TB, modelsDir, filename string) string {
	t.Helper()

	path := filepath.Join(modelsDir, filename)
	WriteFile(t, path, "solid test\nendsolid test\n")
	return path
}
