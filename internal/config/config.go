// Package config loads tunetrackr settings from config.yaml, .env and the environment.
package config

import (
	stdErrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
)

// FileName is the config file looked up in the working directory.
const FileName = "config.yaml"

// Config is the resolved, read-only configuration for one run.
type Config struct {
	Spotify     SpotifyConfig
	MusicBrainz MusicBrainzConfig
	Fetch       FetchConfig
	Fetcher     FetcherConfig
	Files       FilesConfig
	Database    DatabaseConfig
	Loader      LoaderConfig
}

// SpotifyConfig holds the Catalog-A credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIURL       string
}

type MusicBrainzConfig struct {
	APIURL    string
	UserAgent string
}

// FetchConfig selects the year windows and the per-window, per-source song limit.
type FetchConfig struct {
	StartYear   int
	EndYear     int
	Limit       int
	Concurrency int
}

type FetcherConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// FilesConfig names the intermediate files of the three stages.
type FilesConfig struct {
	Songs    string
	Enriched string
	Report   string
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

type LoaderConfig struct {
	SongConflict string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("spotify.clientid", "")
	v.SetDefault("spotify.clientsecret", "")
	v.SetDefault("spotify.tokenurl", "https://accounts.spotify.com/api/token")
	v.SetDefault("spotify.apiurl", "https://api.spotify.com/v1")

	v.SetDefault("musicbrainz.apiurl", "https://musicbrainz.org/ws/2")
	v.SetDefault("musicbrainz.useragent", "tunetrackr/0.1 ( https://github.com/lepinkainen/tunetrackr )")

	v.SetDefault("fetch.startyear", 2000)
	v.SetDefault("fetch.endyear", 2024)
	v.SetDefault("fetch.limit", 50)
	v.SetDefault("fetch.concurrency", 1)

	v.SetDefault("fetcher.maxattempts", 3)
	v.SetDefault("fetcher.basedelay", "1s")

	v.SetDefault("files.songs", "songs_DB.json")
	v.SetDefault("files.enriched", "album_nb_songs.json")
	v.SetDefault("files.report", "load_report.yaml")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "tunetrackr.db")

	v.SetDefault("loader.songconflict", "readback")
}

// New returns a viper instance with defaults and environment bindings.
// TUNETRACKR_<SECTION>_<KEY> overrides any key; credentials also have
// their conventional names.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TUNETRACKR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"spotify.clientid":     "SPOTIFY_CLIENT_ID",
		"spotify.clientsecret": "SPOTIFY_CLIENT_SECRET",
		"database.dsn":         "TUNETRACKR_DSN",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			slog.Error("Failed to bind environment variable", "key", key, "env", env, "error", err)
		}
	}
	return v
}

// Load reads dir/.env and dir/config.yaml, writing a config file with the
// defaults when none exists, and resolves the result.
func Load(dir string) (Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
		slog.Warn("Could not read .env file", "dir", dir, "error", err)
	}

	v := New()
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stdErrors.As(err, &notFound) {
			return Config{}, tterrors.NewConfigError(FileName, err.Error())
		}
		if err := WriteDefaults(filepath.Join(dir, FileName)); err != nil {
			slog.Warn("Could not write default config file", "error", err)
		}
	}

	return FromViper(v)
}

// WriteDefaults writes a config file holding only default values, so that
// credentials from the environment never end up on disk.
func WriteDefaults(path string) error {
	d := viper.New()
	setDefaults(d)
	if err := d.SafeWriteConfigAs(path); err != nil {
		return err
	}
	slog.Info("Config file not found, wrote defaults", "path", path)
	return nil
}

// FromViper resolves and validates the settings held by v.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Spotify: SpotifyConfig{
			ClientID:     strings.TrimSpace(v.GetString("spotify.clientid")),
			ClientSecret: strings.TrimSpace(v.GetString("spotify.clientsecret")),
			TokenURL:     v.GetString("spotify.tokenurl"),
			APIURL:       v.GetString("spotify.apiurl"),
		},
		MusicBrainz: MusicBrainzConfig{
			APIURL:    v.GetString("musicbrainz.apiurl"),
			UserAgent: v.GetString("musicbrainz.useragent"),
		},
		Fetch: FetchConfig{
			StartYear:   v.GetInt("fetch.startyear"),
			EndYear:     v.GetInt("fetch.endyear"),
			Limit:       v.GetInt("fetch.limit"),
			Concurrency: v.GetInt("fetch.concurrency"),
		},
		Fetcher: FetcherConfig{
			MaxAttempts: v.GetInt("fetcher.maxattempts"),
			BaseDelay:   v.GetDuration("fetcher.basedelay"),
		},
		Files: FilesConfig{
			Songs:    v.GetString("files.songs"),
			Enriched: v.GetString("files.enriched"),
			Report:   v.GetString("files.report"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Loader: LoaderConfig{
			SongConflict: v.GetString("loader.songconflict"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings every stage depends on.
func (c Config) Validate() error {
	switch {
	case c.Fetch.StartYear <= 0:
		return tterrors.NewConfigError("fetch.startyear", "must be a positive year")
	case c.Fetch.EndYear < c.Fetch.StartYear:
		return tterrors.NewConfigError("fetch.endyear", fmt.Sprintf("%d is before fetch.startyear %d", c.Fetch.EndYear, c.Fetch.StartYear))
	case c.Fetch.Limit <= 0:
		return tterrors.NewConfigError("fetch.limit", "must be greater than zero")
	case c.Fetch.Concurrency <= 0:
		return tterrors.NewConfigError("fetch.concurrency", "must be at least 1")
	case c.Fetcher.MaxAttempts <= 0:
		return tterrors.NewConfigError("fetcher.maxattempts", "must be at least 1")
	case c.Fetcher.BaseDelay < 0:
		return tterrors.NewConfigError("fetcher.basedelay", "must not be negative")
	}
	return nil
}

// RequireSpotify reports a config error unless Spotify credentials are set.
func (c Config) RequireSpotify() error {
	if c.Spotify.ClientID == "" {
		return tterrors.NewConfigError("spotify.clientid", "missing (set SPOTIFY_CLIENT_ID)")
	}
	if c.Spotify.ClientSecret == "" {
		return tterrors.NewConfigError("spotify.clientsecret", "missing (set SPOTIFY_CLIENT_SECRET)")
	}
	return nil
}
