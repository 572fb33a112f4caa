// Package source defines the capability shared by catalog adapters.
package source

import (
	"context"
	"iter"
	"strconv"
	"strings"

	"github.com/lepinkainen/tunetrackr/internal/model"
)

// Window is the time partition a batch run fetches: one calendar year.
type Window struct {
	Year int
}

func (w Window) String() string {
	return strconv.Itoa(w.Year)
}

// Years returns one window per year from start to end inclusive.
func Years(start, end int) []Window {
	if end < start {
		return nil
	}
	windows := make([]Window, 0, end-start+1)
	for y := start; y <= end; y++ {
		windows = append(windows, Window{Year: y})
	}
	return windows
}

// Source produces a lazy sequence of songs for a window, bounded by limit.
//
// Lookups that yield no data end the sequence quietly. An error in the sequence
// is terminal for the run: it is only produced for authentication failures and
// cancellation.
type Source interface {
	Name() model.Source
	Songs(ctx context.Context, w Window, limit int) iter.Seq2[model.RawSong, error]
}

// Collect drains a song sequence into a slice.
func Collect(seq iter.Seq2[model.RawSong, error]) ([]model.RawSong, error) {
	var songs []model.RawSong
	for song, err := range seq {
		if err != nil {
			return songs, err
		}
		songs = append(songs, song)
	}
	return songs, nil
}

// JoinNames joins credited names into one display string, skipping blanks.
func JoinNames(names []string) string {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, n)
		}
	}
	return strings.Join(kept, model.ArtistDelimiter)
}

// JoinGenres joins genre names, or returns the unknown genre when there are none.
func JoinGenres(genres []string) string {
	joined := JoinNames(genres)
	if joined == "" {
		return model.UnknownGenre
	}
	return joined
}
