// Package testutil provides sandboxed file helpers and sample data for tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestEnv is a temporary directory that every helper path must stay inside.
// It is removed when the test completes.
type TestEnv struct {
	t       *testing.T
	rootDir string
}

// NewTestEnv creates a sandbox rooted at t.TempDir().
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return &TestEnv{t: t, rootDir: t.TempDir()}
}

// RootDir returns the sandbox root.
func (e *TestEnv) RootDir() string {
	return e.rootDir
}

// Path joins elem under the sandbox root and fails the test if the result escapes it.
func (e *TestEnv) Path(elem ...string) string {
	e.t.Helper()

	p := filepath.Clean(filepath.Join(e.rootDir, filepath.Join(elem...)))
	root := filepath.Clean(e.rootDir)
	if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
		e.t.Fatalf("path %q escapes test sandbox %q", p, e.rootDir)
	}
	return p
}

// WriteFile writes content to path, creating parent directories.
func (e *TestEnv) WriteFile(path string, content []byte) {
	e.t.Helper()

	abs := e.Path(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		e.t.Fatalf("failed to create directory for %q: %v", abs, err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		e.t.Fatalf("failed to write file %q: %v", abs, err)
	}
}

// WriteFileString writes a string to path.
func (e *TestEnv) WriteFileString(path, content string) {
	e.t.Helper()
	e.WriteFile(path, []byte(content))
}

// ReadFile reads path from the sandbox.
func (e *TestEnv) ReadFile(path string) []byte {
	e.t.Helper()

	content, err := os.ReadFile(e.Path(path))
	if err != nil {
		e.t.Fatalf("failed to read file %q: %v", path, err)
	}
	return content
}

// FileExists reports whether path exists in the sandbox.
func (e *TestEnv) FileExists(path string) bool {
	e.t.Helper()

	_, err := os.Stat(e.Path(path))
	return err == nil
}

// Chdir switches the working directory to path until the test completes.
func (e *TestEnv) Chdir(path string) {
	e.t.Helper()
	e.t.Chdir(e.Path(path))
}

// AssertFileContains fails the test if path does not contain expected.
func (e *TestEnv) AssertFileContains(path, expected string) {
	e.t.Helper()

	if content := string(e.ReadFile(path)); !strings.Contains(content, expected) {
		e.t.Errorf("file %q does not contain %q", path, expected)
	}
}
