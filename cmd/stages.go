package cmd

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/tunetrackr/internal/auth"
	"github.com/lepinkainen/tunetrackr/internal/cache"
	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
	"github.com/lepinkainen/tunetrackr/internal/fetcher"
	"github.com/lepinkainen/tunetrackr/internal/fileutil"
	"github.com/lepinkainen/tunetrackr/internal/loader"
	"github.com/lepinkainen/tunetrackr/internal/model"
	"github.com/lepinkainen/tunetrackr/internal/pipeline"
	"github.com/lepinkainen/tunetrackr/internal/source"
	"github.com/lepinkainen/tunetrackr/internal/source/musicbrainz"
	"github.com/lepinkainen/tunetrackr/internal/source/spotify"
	"github.com/lepinkainen/tunetrackr/internal/store"
)

// FetchCmd represents the fetch stage
type FetchCmd struct {
	StartYear int      `help:"First year to fetch (overrides fetch.startyear)"`
	EndYear   int      `help:"Last year to fetch (overrides fetch.endyear)"`
	Limit     int      `help:"Songs per year and source (overrides fetch.limit)"`
	Sources   []string `help:"Catalogs to query" enum:"spotify,musicbrainz" default:"spotify,musicbrainz"`
	Output    string   `short:"o" help:"Songs file to write (overrides files.songs)"`
}

// EnrichCmd represents the enrich stage
type EnrichCmd struct {
	Input  string `short:"f" help:"Songs file to read (overrides files.songs)"`
	Output string `short:"o" help:"Enriched file to write (overrides files.enriched)"`
}

// LoadCmd represents the load stage
type LoadCmd struct {
	Input  string `short:"f" help:"Enriched songs file to read (overrides files.enriched)"`
	Report string `help:"Load report to write (overrides files.report)"`
}

// RunCmd chains fetch, enrich and load
type RunCmd struct {
	FetchCmd `embed:""`
}

// MigrateCmd applies the schema migrations
type MigrateCmd struct{}

func orDefault(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func (f *FetchCmd) windows(app *App) ([]source.Window, int, error) {
	cfg := app.Config.Fetch
	if f.StartYear != 0 {
		cfg.StartYear = f.StartYear
	}
	if f.EndYear != 0 {
		cfg.EndYear = f.EndYear
	}
	if f.Limit != 0 {
		cfg.Limit = f.Limit
	}
	if cfg.EndYear < cfg.StartYear {
		return nil, 0, tterrors.NewConfigError("end-year", fmt.Sprintf("%d is before start year %d", cfg.EndYear, cfg.StartYear))
	}
	if cfg.Limit <= 0 {
		return nil, 0, tterrors.NewConfigError("limit", "must be greater than zero")
	}
	return source.Years(cfg.StartYear, cfg.EndYear), cfg.Limit, nil
}

// fetch runs the fetch stage and writes the songs file.
func (f *FetchCmd) fetch(app *App, run *pipeline.Run, cat *catalogs) ([]model.RawSong, error) {
	windows, limit, err := f.windows(app)
	if err != nil {
		return nil, err
	}

	var sources []source.Source
	for _, name := range f.Sources {
		switch strings.ToLower(name) {
		case "spotify":
			client, err := cat.Spotify()
			if err != nil {
				return nil, err
			}
			sources = append(sources, client)
		case "musicbrainz":
			sources = append(sources, cat.MusicBrainz())
		}
	}
	if len(sources) == 0 {
		return nil, tterrors.NewConfigError("sources", "at least one source is required")
	}

	songs, stats, err := run.Fetch(app.Ctx, sources, windows, pipeline.FetchOptions{
		Limit:       limit,
		Concurrency: app.Config.Fetch.Concurrency,
	})
	if err != nil {
		return nil, err
	}
	for src, n := range stats.BySource {
		run.Logger().Info("Songs fetched", "source", src, "songs", n)
	}

	if err := fileutil.WriteSongs(songs, orDefault(f.Output, app.Config.Files.Songs)); err != nil {
		return nil, err
	}
	return songs, nil
}

func (f *FetchCmd) Run(app *App) error {
	run := pipeline.NewRun(app.Logger)
	_, err := f.fetch(app, run, newCatalogs(app, run))
	return err
}

// enrich runs the enrich stage over songs and writes the enriched file.
func enrich(app *App, run *pipeline.Run, cat *catalogs, songs []model.RawSong, output string) ([]model.RawSong, error) {
	client, err := cat.Spotify()
	if err != nil {
		return nil, err
	}

	enriched, err := run.Enrich(app.Ctx, songs, client)
	if err != nil {
		return nil, err
	}
	if err := fileutil.WriteSongs(enriched, output); err != nil {
		return nil, err
	}
	return enriched, nil
}

func (e *EnrichCmd) Run(app *App) error {
	songs, err := fileutil.ReadSongs(orDefault(e.Input, app.Config.Files.Songs))
	if err != nil {
		return err
	}
	run := pipeline.NewRun(app.Logger)
	_, err = enrich(app, run, newCatalogs(app, run), songs, orDefault(e.Output, app.Config.Files.Enriched))
	return err
}

// load runs the load stage, writes the report and prints the summary.
func load(app *App, run *pipeline.Run, songs []model.RawSong, reportPath string) error {
	policy, err := loader.ParseConflictPolicy(app.Config.Loader.SongConflict)
	if err != nil {
		return tterrors.NewConfigError("loader.songconflict", err.Error())
	}

	db, err := openStore(app)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	l := loader.New(db, loader.WithConflictPolicy(policy), loader.WithLogger(run.Logger()))
	report, loadErr := run.Load(app.Ctx, l, songs)

	if err := fileutil.WriteYAMLFile(report, reportPath); err != nil {
		run.Logger().Error("Could not write load report", "path", reportPath, "error", err)
	}
	if loadErr != nil {
		return loadErr
	}

	counts, err := db.Counts(app.Ctx)
	if err != nil {
		return tterrors.NewStoreError("count", err)
	}
	printSummary(app.Out, report, counts)
	return nil
}

func (l *LoadCmd) Run(app *App) error {
	songs, err := fileutil.ReadSongs(orDefault(l.Input, app.Config.Files.Enriched))
	if err != nil {
		return err
	}
	return load(app, pipeline.NewRun(app.Logger), songs, orDefault(l.Report, app.Config.Files.Report))
}

func (r *RunCmd) Run(app *App) error {
	run := pipeline.NewRun(app.Logger)
	run.Logger().Info("Starting run", "sources", r.Sources)

	cat := newCatalogs(app, run)
	songs, err := r.fetch(app, run, cat)
	if err != nil {
		return err
	}
	enriched, err := enrich(app, run, cat, songs, app.Config.Files.Enriched)
	if err != nil {
		return err
	}
	return load(app, run, enriched, app.Config.Files.Report)
}

func (m *MigrateCmd) Run(app *App) error {
	db, err := openStore(app)
	if err != nil {
		return err
	}
	return db.Close()
}

func newFetcher(app *App, run *pipeline.Run) *fetcher.Fetcher {
	return fetcher.New(
		fetcher.WithHTTPClient(app.HTTP),
		fetcher.WithMaxAttempts(app.Config.Fetcher.MaxAttempts),
		fetcher.WithBaseDelay(app.Config.Fetcher.BaseDelay),
		fetcher.WithUserAgent(app.Config.MusicBrainz.UserAgent),
		fetcher.WithLogger(run.Logger()),
	)
}

// catalogs builds the catalog clients of one run. The Spotify session and
// the lookup caches are created once and shared by every stage of the run.
type catalogs struct {
	app     *App
	run     *pipeline.Run
	fetcher *fetcher.Fetcher
	spotify *spotify.Client
	mb      *musicbrainz.Client
}

func newCatalogs(app *App, run *pipeline.Run) *catalogs {
	return &catalogs{app: app, run: run, fetcher: newFetcher(app, run)}
}

// Spotify authenticates on first use, before any catalog call, so missing or
// rejected credentials abort the stage up front.
func (c *catalogs) Spotify() (*spotify.Client, error) {
	if c.spotify != nil {
		return c.spotify, nil
	}

	cfg := c.app.Config
	if err := cfg.RequireSpotify(); err != nil {
		return nil, err
	}

	session := auth.NewSession("spotify", cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.TokenURL,
		auth.WithHTTPClient(c.app.HTTP),
		auth.WithLogger(c.run.Logger()),
	)
	if _, err := session.Token(c.app.Ctx); err != nil {
		return nil, err
	}

	genres := cache.New[string]("spotify_artist_genre")
	albums := cache.New[model.TrackCount]("spotify_album_tracks")
	c.run.Watch(genres, albums)

	c.spotify = spotify.New(c.fetcher, session,
		spotify.WithAPIURL(cfg.Spotify.APIURL),
		spotify.WithGenreCache(genres),
		spotify.WithAlbumCache(albums),
		spotify.WithLogger(c.run.Logger()),
	)
	return c.spotify, nil
}

func (c *catalogs) MusicBrainz() *musicbrainz.Client {
	if c.mb != nil {
		return c.mb
	}

	genres := cache.New[string]("musicbrainz_artist_genre")
	c.run.Watch(genres)

	c.mb = musicbrainz.New(c.fetcher,
		musicbrainz.WithAPIURL(c.app.Config.MusicBrainz.APIURL),
		musicbrainz.WithGenreCache(genres),
		musicbrainz.WithLogger(c.run.Logger()),
	)
	return c.mb
}

// openStore connects to the configured database and migrates it.
func openStore(app *App) (*store.SQLStore, error) {
	dialect, err := store.ParseDialect(app.Config.Database.Driver)
	if err != nil {
		return nil, tterrors.NewConfigError("database.driver", err.Error())
	}

	db, err := store.Open(app.Ctx, dialect, app.Config.Database.DSN, store.WithLogger(app.Logger))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(app.Ctx); err != nil {
		_ = db.Close()
		return nil, tterrors.NewStoreError("migrate", err)
	}
	return db, nil
}
