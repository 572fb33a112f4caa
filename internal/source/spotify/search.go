package spotify

import (
	"context"
	"encoding/json"
	"iter"
	"net/url"
	"strconv"

	"github.com/lepinkainen/tunetrackr/internal/fetcher"
	"github.com/lepinkainen/tunetrackr/internal/model"
	"github.com/lepinkainen/tunetrackr/internal/source"
)

// Songs pages through the tracks released in w, 50 per request, until limit
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
			params.Set("q", "year:"+w.String())
			params.Set("type", "track")
			params.Set("limit", strconv.Itoa(pageSize))
			params.Set("offset", strconv.Itoa(offset))

			res, err := c.get(ctx, fetcher.Get(c.apiURL+"/search", params))
			if err != nil {
				yield(model.RawSong{}, err)
				return
			}
			if !res.OK() {
				c.logger.Warn("Stopping track search", "year", w.Year, "offset", offset,
					"outcome", res.Outcome, "error", res.Err)
				return
			}

			var page searchTracksResponse
			if err := res.Decode(&page); err != nil {
				c.logger.Warn("Unreadable search page", "year", w.Year, "offset", offset, "error", err)
				return
			}

			for _, item := range page.Tracks.Items {
				song, ok := c.toSong(item, w)
				if !ok {
					continue
				}

				genre, err := c.artistGenre(ctx, song.primary)
				if err != nil {
					yield(model.RawSong{}, err)
					return
				}
				song.raw.Genre = genre

				if !yield(song.raw, nil) {
					return
				}
				emitted++
				if emitted >= limit {
					return
				}
			}

			if len(page.Tracks.Items) == 0 || page.Tracks.Next == nil {
				return
			}
		}
	}
}

type parsedTrack struct {
	raw     model.RawSong
	primary artistRef
}

func (c *Client) toSong(item json.RawMessage, w source.Window) (parsedTrack, bool) {
	var t track
	if err := json.Unmarshal(item, &t); err != nil {
		c.logger.Debug("Skipping malformed track", "year", w.Year, "error", err)
		return parsedTrack{}, false
	}
	if t.Name == "" || len(t.Artists) == 0 {
		c.logger.Debug("Skipping track without title or artists", "year", w.Year, "name", t.Name)
		return parsedTrack{}, false
	}

	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}

	return parsedTrack{
		raw: model.RawSong{
			SongName:    t.Name,
			ArtistName:  source.JoinNames(names),
			AlbumName:   t.Album.Name,
			ReleaseYear: w.Year,
			Duration:    t.DurationMS / 1000.0,
			Source:      model.SourceSpotify,
		},
		primary: t.Artists[0],
	}, true
}

// artistGenre resolves the primary artist's genres through the run cache.
// Failed lookups produce the unknown genre; only auth and context errors are returned.
func (c *Client) artistGenre(ctx context.Context, a artistRef) (string, error) {
	if a.ID == "" || a.Name == "" {
		return model.UnknownGenre, nil
	}

	genre, _, err := c.genres.GetOrFetch(a.Name, func() (string, error) {
		res, err := c.get(ctx, fetcher.Get(c.apiURL+"/artists/"+url.PathEscape(a.ID), nil))
		if err != nil {
			return "", err
		}
		if !res.OK() {
			c.logger.Warn("Artist genre lookup failed", "artist", a.Name, "outcome", res.Outcome, "error", res.Err)
			return model.UnknownGenre, nil
		}

		var body artistResponse
		if err := res.Decode(&body); err != nil {
			c.logger.Warn("Unreadable artist payload", "artist", a.Name, "error", err)
			return model.UnknownGenre, nil
		}
		return source.JoinGenres(body.Genres), nil
	})
	return genre, err
}

// AlbumTrackCount looks up the number of tracks on album via album search,
// memoized per album name for the run. Unknown when the search finds nothing.
func (c *Client) AlbumTrackCount(ctx context.Context, album string) (model.TrackCount, error) {
	if album == "" {
		return model.TrackCount{}, nil
	}

	count, _, err := c.albums.GetOrFetch(album, func() (model.TrackCount, error) {
		params := url.Values{}
		params.Set("q", album)
		params.Set("type", "album")
		params.Set("limit", "1")

		res, err := c.get(ctx, fetcher.Get(c.apiURL+"/search", params))
		if err != nil {
			return model.TrackCount{}, err
		}
		if !res.OK() {
			c.logger.Warn("Album lookup failed", "album", album, "outcome", res.Outcome, "error", res.Err)
			return model.TrackCount{}, nil
		}

		var body searchAlbumsResponse
		if err := res.Decode(&body); err != nil {
			c.logger.Warn("Unreadable album payload", "album", album, "error", err)
			return model.TrackCount{}, nil
		}
		if len(body.Albums.Items) == 0 || body.Albums.Items[0].TotalTracks == nil {
			c.logger.Info("No albums found", "album", album)
			return model.TrackCount{}, nil
		}
		return model.KnownCount(*body.Albums.Items[0].TotalTracks), nil
	})
	return count, err
}
