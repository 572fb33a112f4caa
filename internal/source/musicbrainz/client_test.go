package musicbrainz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lepinkainen/tunetrackr/internal/fetcher"
	"github.com/lepinkainen/tunetrackr/internal/model"
	"github.com/lepinkainen/tunetrackr/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f := fetcher.New(
		fetcher.WithHTTPClient(server.Client()),
		fetcher.WithSleeper(noSleep),
		fetcher.WithUserAgent("tunetrackr-test/0.1 (test@example.com)"),
	)
	return New(f, WithAPIURL(server.URL), WithPacer(nil))
}

func TestSongsParsesRecordings(t *testing.T) {
	var tagLookups atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/recording", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "date:[1999 TO 1999]", r.URL.Query().Get("query"))
		assert.Equal(t, "json", r.URL.Query().Get("fmt"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Contains(t, r.Header.Get("User-Agent"), "tunetrackr-test")
		_, _ = w.Write([]byte(`{"count":5,"offset":0,"recordings":[
			{"title":"Smooth","length":294000,"artist-credit":[{"name":"Santana"},{"name":"Rob Thomas"}],"releases":[{"title":"Supernatural"}]},
			{"title":"No Credit"},
			{"artist-credit":[{"name":"Untitled Artist"}]},
			42,
			{"title":"Maria Maria","artist-credit":[{"artist":{"name":"Santana"}}]}
		]}`))
	})
	mux.HandleFunc("/artist", func(w http.ResponseWriter, r *http.Request) {
		tagLookups.Add(1)
		assert.Equal(t, "Santana", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"artists":[{"name":"Santana","tags":[{"name":"latin rock","count":3},{"name":"rock","count":2}]}]}`))
	})

	c := newTestClient(t, mux)
	songs, err := source.Collect(c.Songs(context.Background(), source.Window{Year: 1999}, 50))
	require.NoError(t, err)

	require.Len(t, songs, 2)

	smooth := songs[0]
	assert.Equal(t, "Smooth", smooth.SongName)
	assert.Equal(t, "Santana, Rob Thomas", smooth.ArtistName)
	assert.Equal(t, "Supernatural", smooth.AlbumName)
	assert.Equal(t, 294.0, smooth.Duration)
	assert.Equal(t, "latin rock, rock", smooth.Genre)
	assert.Equal(t, model.SourceMusicBrainz, smooth.Source)
	assert.Equal(t, 1999, smooth.ReleaseYear)

	maria := songs[1]
	assert.Equal(t, "Santana", maria.ArtistName)
	assert.Empty(t, maria.AlbumName)
	assert.Equal(t, 0.0, maria.Duration)

	assert.Equal(t, int32(1), tagLookups.Load())
}

func TestSongsGenreFallbacks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/recording", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":2,"recordings":[
			{"title":"A","artist-credit":[{"name":"Tagless"}]},
			{"title":"B","artist-credit":[{"name":"Broken"}]}
		]}`))
	})
	mux.HandleFunc("/artist", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "Broken" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"artists":[{"name":"Tagless","tags":[]}]}`))
	})

	c := newTestClient(t, mux)
	songs, err := source.Collect(c.Songs(context.Background(), source.Window{Year: 2001}, 50))
	require.NoError(t, err)

	require.Len(t, songs, 2)
	assert.Equal(t, model.UnknownGenre, songs[0].Genre)
	assert.Equal(t, model.UnknownGenre, songs[1].Genre)
}

func TestSongsPaginatesByOffset(t *testing.T) {
	var offsets []int
	mux := http.NewServeMux()
	mux.HandleFunc("/recording", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		offsets = append(offsets, offset)
		n := pageSize
		if offset >= pageSize {
			n = 20
		}
		items := make([]string, 0, n)
		for i := 0; i < n; i++ {
			items = append(items, fmt.Sprintf(`{"title":"Rec %d","artist-credit":[{"name":"Artist"}]}`, offset+i))
		}
		_, _ = fmt.Fprintf(w, `{"count":%d,"recordings":[%s]}`, pageSize+20, strings.Join(items, ","))
	})
	mux.HandleFunc("/artist", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"artists":[]}`))
	})

	c := newTestClient(t, mux)
	songs, err := source.Collect(c.Songs(context.Background(), source.Window{Year: 2010}, 500))
	require.NoError(t, err)

	assert.Len(t, songs, pageSize+20)
	assert.Equal(t, []int{0, pageSize}, offsets)
}

func TestSongsRespectsLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/recording", func(w http.ResponseWriter, r *http.Request) {
		items := make([]string, 0, pageSize)
		for i := 0; i < pageSize; i++ {
			items = append(items, fmt.Sprintf(`{"title":"Rec %d","artist-credit":[{"name":"Artist"}]}`, i))
		}
		_, _ = fmt.Fprintf(w, `{"count":1000,"recordings":[%s]}`, strings.Join(items, ","))
	})
	mux.HandleFunc("/artist", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"artists":[]}`))
	})

	c := newTestClient(t, mux)
	songs, err := source.Collect(c.Songs(context.Background(), source.Window{Year: 2010}, 50))
	require.NoError(t, err)
	assert.Len(t, songs, 50)
}

func TestSongsStopsOnServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/recording", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := newTestClient(t, mux)
	songs, err := source.Collect(c.Songs(context.Background(), source.Window{Year: 2010}, 50))
	require.NoError(t, err)
	assert.Empty(t, songs)
}
