// Package musicbrainz adapts the MusicBrainz web service into song records.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/tunetrackr/internal/cache"
	"github.com/lepinkainen/tunetrackr/internal/fetcher"
	"github.com/lepinkainen/tunetrackr/internal/model"
	"github.com/lepinkainen/tunetrackr/internal/ratelimit"
	"github.com/lepinkainen/tunetrackr/internal/source"
)

const (
	defaultAPIURL = "https://musicbrainz.org/ws/2"
	pageSize      = 100

	// MusicBrainz asks anonymous clients for at most one request per second.
	pagePause = time.Second
)

// Client is the MusicBrainz catalog adapter. No authentication is needed.
type Client struct {
	apiURL  string
	fetcher *fetcher.Fetcher
	genres  *cache.Memo[string]
	pacer   *ratelimit.Limiter
	logger  *slog.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithAPIURL sets a custom base URL for the web service.
func WithAPIURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.apiURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithGenreCache shares an artist→genre cache.
func WithGenreCache(m *cache.Memo[string]) Option {
	return func(c *Client) {
		if m != nil {
			c.genres = m
		}
	}
}

// WithPacer replaces the inter-page limiter. A nil limiter disables pacing.
func WithPacer(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.pacer = l
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a MusicBrainz adapter using f for every call.
func New(f *fetcher.Fetcher, opts ...Option) *Client {
	c := &Client{
		apiURL:  defaultAPIURL,
		fetcher: f,
		genres:  cache.New[string]("musicbrainz_artist_genre"),
		pacer:   ratelimit.Every("musicbrainz", pagePause),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("source", model.SourceMusicBrainz)
	return c
}

// Name returns the source tag.
func (c *Client) Name() model.Source {
	return model.SourceMusicBrainz
}

type artistCredit struct {
	Name   string `json:"name"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
}

type recording struct {
	Title        *string        `json:"title"`
	Length       *float64       `json:"length"`
	ArtistCredit []artistCredit `json:"artist-credit"`
	Releases     []struct {
		Title string `json:"title"`
	} `json:"releases"`
}

type recordingSearchResponse struct {
	Count      int               `json:"count"`
	Offset     int               `json:"offset"`
	Recordings []json.RawMessage `json:"recordings"`
}

type artistSearchResponse struct {
	Artists []struct {
		Name string `json:"name"`
		Tags []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"tags"`
	} `json:"artists"`
}

// Songs pages through recordings dated within w, 100 per request, until limit
// songs have been produced or the search runs dry.
func (c *Client) Songs(ctx context.Context, w source.Window, limit int) iter.Seq2[model.RawSong, error] {
	return func(yield func(model.RawSong, error) bool) {
		emitted := 0
		for offset := 0; emitted < limit; offset += pageSize {
			if err := c.pacer.Wait(ctx); err != nil {
				yield(model.RawSong{}, err)
				return
			}

			params := url.Values{}
			params.Set("query", fmt.Sprintf("date:[%d TO %d]", w.Year, w.Year))
			params.Set("limit", strconv.Itoa(pageSize))
			params.Set("offset", strconv.Itoa(offset))
			params.Set("fmt", "json")

			res, err := c.fetcher.Fetch(ctx, fetcher.Get(c.apiURL+"/recording", params))
			if err != nil {
				yield(model.RawSong{}, err)
				return
			}
			if !res.OK() {
				c.logger.Warn("Stopping recording search", "year", w.Year, "offset", offset,
					"outcome", res.Outcome, "error", res.Err)
				return
			}

			var page recordingSearchResponse
			if err := res.Decode(&page); err != nil {
				c.logger.Warn("Unreadable search page", "year", w.Year, "offset", offset, "error", err)
				return
			}

			for _, item := range page.Recordings {
				song, primary, ok := c.toSong(item, w)
				if !ok {
					continue
				}

				genre, err := c.artistGenre(ctx, primary)
				if err != nil {
					yield(model.RawSong{}, err)
					return
				}
				song.Genre = genre

				if !yield(song, nil) {
					return
				}
				emitted++
				if emitted >= limit {
					return
				}
			}

			if len(page.Recordings) == 0 || offset+len(page.Recordings) >= page.Count {
				return
			}
		}
	}
}

func (c *Client) toSong(item json.RawMessage, w source.Window) (model.RawSong, string, bool) {
	var rec recording
	if err := json.Unmarshal(item, &rec); err != nil {
		c.logger.Debug("Skipping malformed recording", "year", w.Year, "error", err)
		return model.RawSong{}, "", false
	}
	if rec.Title == nil || *rec.Title == "" || len(rec.ArtistCredit) == 0 {
		c.logger.Debug("Skipping recording without title or artist credit", "year", w.Year)
		return model.RawSong{}, "", false
	}

	names := make([]string, 0, len(rec.ArtistCredit))
	for _, credit := range rec.ArtistCredit {
		name := credit.Name
		if name == "" {
			name = credit.Artist.Name
		}
		names = append(names, name)
	}
	display := source.JoinNames(names)
	if display == "" {
		return model.RawSong{}, "", false
	}

	song := model.RawSong{
		SongName:    *rec.Title,
		ArtistName:  display,
		ReleaseYear: w.Year,
		Source:      model.SourceMusicBrainz,
	}
	if len(rec.Releases) > 0 {
		song.AlbumName = rec.Releases[0].Title
	}
	if rec.Length != nil {
		song.Duration = *rec.Length / 1000.0
	}

	primary := strings.SplitN(display, model.ArtistDelimiter, 2)[0]
	return song, primary, true
}

// artistGenre is a best-effort tag lookup for artist. An empty tag list or a
// failed lookup yields the unknown genre.
func (c *Client) artistGenre(ctx context.Context, artist string) (string, error) {
	genre, _, err := c.genres.GetOrFetch(artist, func() (string, error) {
		params := url.Values{}
		params.Set("query", artist)
		params.Set("fmt", "json")
		params.Set("limit", "1")

		res, err := c.fetcher.Fetch(ctx, fetcher.Get(c.apiURL+"/artist", params))
		if err != nil {
			return "", err
		}
		if !res.OK() {
			c.logger.Warn("Artist tag lookup failed", "artist", artist, "outcome", res.Outcome, "error", res.Err)
			return model.UnknownGenre, nil
		}

		var body artistSearchResponse
		if err := res.Decode(&body); err != nil || len(body.Artists) == 0 {
			return model.UnknownGenre, nil
		}

		tags := make([]string, 0, len(body.Artists[0].Tags))
		for _, tag := range body.Artists[0].Tags {
			tags = append(tags, tag.Name)
		}
		return source.JoinGenres(tags), nil
	})
	return genre, err
}
