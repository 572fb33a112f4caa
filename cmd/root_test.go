package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
	"github.com/lepinkainen/tunetrackr/internal/fileutil"
	"github.com/lepinkainen/tunetrackr/internal/pipeline"
	"github.com/lepinkainen/tunetrackr/internal/store"
	"github.com/lepinkainen/tunetrackr/internal/testutil"
)

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("tunetrackr"),
		kong.Exit(func(code int) {
			t.Fatalf("unexpected Kong exit %d", code)
		}),
	)
	require.NoError(t, err)

	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, ctx
}

// clearCredentials keeps host credentials out of the command tests.
func clearCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("TUNETRACKR_DSN", "")
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := run(context.Background(), args, &out)
	return code, out.String()
}

func TestCommandParsing(t *testing.T) {
	cli, ctx := parseCLI(t, "--db-driver", "postgres", "--dsn", "postgres://db/music",
		"fetch", "--start-year", "2010", "--end-year", "2011", "--limit", "5", "--sources", "musicbrainz", "-o", "out.json")

	assert.Equal(t, "fetch", ctx.Command())
	assert.Equal(t, "postgres", cli.DBDriver)
	assert.Equal(t, "postgres://db/music", cli.DSN)
	assert.Equal(t, 2010, cli.Fetch.StartYear)
	assert.Equal(t, 2011, cli.Fetch.EndYear)
	assert.Equal(t, 5, cli.Fetch.Limit)
	assert.Equal(t, []string{"musicbrainz"}, cli.Fetch.Sources)
	assert.Equal(t, "out.json", cli.Fetch.Output)
}

func TestCLIDefaultFlags(t *testing.T) {
	cli, ctx := parseCLI(t, "run")

	assert.Equal(t, "run", ctx.Command())
	assert.False(t, cli.Debug)
	assert.Empty(t, cli.DBDriver)
	assert.Equal(t, []string{"spotify", "musicbrainz"}, cli.Run.Sources)
	assert.Zero(t, cli.Run.Limit, "zero falls back to fetch.limit")
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	code, _ := runCLI(t, "dance")
	assert.Equal(t, tterrors.ExitConfig, code)
}

func TestMigrateCreatesDatabase(t *testing.T) {
	clearCredentials(t)
	env := testutil.NewTestEnv(t)

	code, out := runCLI(t, "--config-dir", env.RootDir(), "--dsn", env.Path("music.db"), "migrate")
	require.Equal(t, tterrors.ExitOK, code, out)
	assert.True(t, env.FileExists("music.db"))
	assert.True(t, env.FileExists("config.yaml"))
}

func TestUnsupportedDriver(t *testing.T) {
	clearCredentials(t)
	env := testutil.NewTestEnv(t)

	code, _ := runCLI(t, "--config-dir", env.RootDir(), "--db-driver", "oracle", "migrate")
	assert.Equal(t, tterrors.ExitConfig, code)
}

func TestLoadMissingInput(t *testing.T) {
	clearCredentials(t)
	env := testutil.NewTestEnv(t)

	code, _ := runCLI(t, "--config-dir", env.RootDir(), "--dsn", env.Path("music.db"),
		"load", "-f", env.Path("missing.json"))
	assert.Equal(t, tterrors.ExitInput, code)
}

func TestLoadCommand(t *testing.T) {
	clearCredentials(t)
	env := testutil.NewTestEnv(t)
	input := testutil.WriteSongs(t, env, "album_nb_songs.json", testutil.SampleSongs())

	code, out := runCLI(t, "--config-dir", env.RootDir(), "--dsn", env.Path("music.db"),
		"load", "-f", input, "--report", env.Path("load_report.yaml"))
	require.Equal(t, tterrors.ExitOK, code, out)

	assert.Contains(t, out, "Load summary")
	env.AssertFileContains("load_report.yaml", "inserted: 3")
	env.AssertFileContains("load_report.yaml", "duplicates: 1")

	db, err := store.Open(context.Background(), store.DialectSQLite, env.Path("music.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	songs, err := db.SongsByArtist(context.Background(), "Jay-Z")
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "Crazy In Love", songs[0].Name)
}

func TestEnrichRequiresCredentials(t *testing.T) {
	clearCredentials(t)
	env := testutil.NewTestEnv(t)
	input := testutil.WriteSongs(t, env, "songs_DB.json", testutil.SampleSongs())

	code, _ := runCLI(t, "--config-dir", env.RootDir(), "enrich", "-f", input, "-o", env.Path("out.json"))
	assert.Equal(t, tterrors.ExitConfig, code)
	assert.False(t, env.FileExists("out.json"))
}

func TestEnrichRejectedCredentials(t *testing.T) {
	clearCredentials(t)
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "wrong")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	t.Cleanup(server.Close)

	env := testutil.NewTestEnv(t)
	env.WriteFileString("config.yaml", fmt.Sprintf("spotify:\n  tokenurl: %s/api/token\n", server.URL))
	input := testutil.WriteSongs(t, env, "songs_DB.json", testutil.SampleSongs())

	code, _ := runCLI(t, "--config-dir", env.RootDir(), "enrich", "-f", input, "-o", env.Path("out.json"))
	assert.Equal(t, tterrors.ExitAuth, code)
}

func TestFetchFromMusicBrainz(t *testing.T) {
	clearCredentials(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/recording", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "date:[2003 TO 2003]", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"count":1,"recordings":[
			{"title":"Seven Nation Army","length":231800,"artist-credit":[{"name":"The White Stripes"}],"releases":[{"title":"Elephant"}]}
		]}`))
	})
	mux.HandleFunc("/artist", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"artists":[{"name":"The White Stripes","tags":[{"name":"garage rock"}]}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	env := testutil.NewTestEnv(t)
	env.WriteFileString("config.yaml", fmt.Sprintf("musicbrainz:\n  apiurl: %s\n", server.URL))

	code, out := runCLI(t, "--config-dir", env.RootDir(),
		"fetch", "--sources", "musicbrainz", "--start-year", "2003", "--end-year", "2003", "-o", env.Path("songs_DB.json"))
	require.Equal(t, tterrors.ExitOK, code, out)

	songs, err := fileutil.ReadSongs(env.Path("songs_DB.json"))
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "Seven Nation Army", songs[0].SongName)
	assert.Equal(t, "garage rock", songs[0].Genre)
	assert.Equal(t, 231.8, songs[0].Duration)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(env.ReadFile("songs_DB.json"), &raw))
	assert.NotContains(t, raw[0], "nb_of_songs", "fetch output has no track counts yet")
}

func TestRenderSummary(t *testing.T) {
	var out bytes.Buffer
	text := renderSummary(&out,
		pipeline.Report{RunID: "run-1", Input: 5, Duplicates: 1, Unresolvable: 1, Inserted: 3},
		store.Counts{Artists: 4, Songs: 3, Playlists: 2})

	assert.Contains(t, text, "Load summary")
	assert.Contains(t, text, "run run-1")
	assert.Contains(t, text, "inserted")
	assert.Contains(t, text, "playlist songs")
}

func TestRunAuthenticatesOncePerRun(t *testing.T) {
	clearCredentials(t)
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")

	var tokenCalls, albumCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("type") {
		case "track":
			_, _ = w.Write([]byte(`{"tracks":{"items":[
				{"name":"Hey Ya!","duration_ms":235000,"artists":[{"id":"outkast","name":"OutKast"}],"album":{"name":"Speakerboxxx"}},
				{"name":"Roses","duration_ms":369000,"artists":[{"id":"outkast","name":"OutKast"}],"album":{"name":"Speakerboxxx"}}
			],"next":null}}`))
		case "album":
			albumCalls.Add(1)
			_, _ = w.Write([]byte(`{"albums":{"items":[{"name":"Speakerboxxx","total_tracks":39}]}}`))
		}
	})
	mux.HandleFunc("/v1/artists/outkast", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"genres":["hip hop"]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	env := testutil.NewTestEnv(t)
	env.WriteFileString("config.yaml", fmt.Sprintf(`spotify:
  tokenurl: %[1]s/api/token
  apiurl: %[1]s/v1
files:
  songs: %[2]s
  enriched: %[3]s
  report: %[4]s
`, server.URL, env.Path("songs_DB.json"), env.Path("album_nb_songs.json"), env.Path("load_report.yaml")))

	code, out := runCLI(t, "--config-dir", env.RootDir(), "--dsn", env.Path("music.db"),
		"run", "--sources", "spotify", "--start-year", "2003", "--end-year", "2003")
	require.Equal(t, tterrors.ExitOK, code, out)

	assert.Equal(t, int32(1), tokenCalls.Load(), "fetch and enrich share one session")
	assert.Equal(t, int32(1), albumCalls.Load(), "album lookups are cached per run")
	env.AssertFileContains("load_report.yaml", "inserted: 2")
	env.AssertFileContains("album_nb_songs.json", `"nb_of_songs": 39`)
}
