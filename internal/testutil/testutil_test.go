package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/tunetrackr/internal/model"
)

func TestTestEnv_Path(t *testing.T) {
	env := NewTestEnv(t)

	assert.Equal(t, filepath.Join(env.RootDir(), "data", "songs_DB.json"), env.Path("data", "songs_DB.json"))
	assert.Equal(t, env.RootDir(), env.Path("."))
}

func TestTestEnv_WriteReadFile(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFileString("nested/dir/file.txt", "hello")
	assert.True(t, env.FileExists("nested/dir/file.txt"))
	assert.False(t, env.FileExists("nested/missing.txt"))
	assert.Equal(t, "hello", string(env.ReadFile("nested/dir/file.txt")))
	env.AssertFileContains("nested/dir/file.txt", "ell")
}

func TestTestEnv_Chdir(t *testing.T) {
	env := NewTestEnv(t)
	env.WriteFileString("work/marker", "x")

	env.Chdir("work")
	_, err := os.Stat("marker")
	assert.NoError(t, err)
}

func TestGoldenHelper_AssertGolden(t *testing.T) {
	env := NewTestEnv(t)
	env.WriteFileString("golden/report.yaml", "skipped: 1\n")

	g := NewGoldenHelper(t, env.Path("golden"))
	if g.updateMode {
		t.Skip("UPDATE_GOLDEN is set")
	}
	g.AssertGolden("report.yaml", []byte("skipped: 1\n"))

	env.WriteFileString("actual.yaml", "skipped: 1\n")
	g.AssertGoldenFile(env.Path("actual.yaml"), "report.yaml")
}

func TestSampleSongsRoundTrip(t *testing.T) {
	env := NewTestEnv(t)
	path := WriteSongs(t, env, "songs_DB.json", SampleSongs())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var songs []model.RawSong
	require.NoError(t, json.Unmarshal(data, &songs))
	assert.Equal(t, SampleSongs(), songs)
}
