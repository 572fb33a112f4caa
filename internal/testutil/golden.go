package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GoldenHelper compares output against files under a testdata directory.
// Setting UPDATE_GOLDEN=true rewrites the golden files instead.
type GoldenHelper struct {
	t          *testing.T
	goldenDir  string
	updateMode bool
}

// NewGoldenHelper creates a helper for golden files stored in goldenDir.
func NewGoldenHelper(t *testing.T, goldenDir string) *GoldenHelper {
	t.Helper()
	return &GoldenHelper{
		t:          t,
		goldenDir:  goldenDir,
		updateMode: os.Getenv("UPDATE_GOLDEN") == "true",
	}
}

// AssertGolden compares actual with the golden file called name.
func (g *GoldenHelper) AssertGolden(name string, actual []byte) {
	g.t.Helper()

	path := filepath.Join(g.goldenDir, name)
	if g.updateMode {
		require.NoError(g.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(g.t, os.WriteFile(path, actual, 0o644))
		g.t.Logf("Updated golden file: %s", path)
		return
	}

	golden, err := os.ReadFile(path)
	require.NoError(g.t, err, "failed to read golden file %s", path)
	assert.Equal(g.t, string(golden), string(actual), "content does not match golden file %s", name)
}

// AssertGoldenFile compares the file at actualPath with the golden file called name.
func (g *GoldenHelper) AssertGoldenFile(actualPath, name string) {
	g.t.Helper()

	actual, err := os.ReadFile(actualPath)
	require.NoError(g.t, err, "failed to read %s", actualPath)
	g.AssertGolden(name, actual)
}
