package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CreateTestFile creates a file with content, creating parent directories
// as needed, and returns its path.
func CreateTestFile(t *testing.T, path string, content []byte) string {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
	return path
}

// CreateMediaFiles writes one small file per name into a fresh temporary
// directory and returns their paths in the same order.
func CreateMediaFiles(t *testing.T, names ...string) []string {
	t.Helper()

	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, CreateTestFile(t, filepath.Join(dir, name), []byte("data:"+name)))
	}
	return paths
}

// AssertFileContent checks that the file at path holds expected.
func AssertFileContent(t *testing.T, path string, expected []byte) {
	t.Helper()

	actual, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("File content mismatch for %s\nExpected: %q\nActual: %q", path, expected, actual)
	}
}
