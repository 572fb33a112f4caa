// Package merge normalizes catalog output into canonical song records.
package merge

import (
	"math"
	"strings"

	"github.com/lepinkainen/tunetrackr/internal/model"
)

// BatchStats counts what Batch dropped while building a load batch.
type BatchStats struct {
	Input        int
	Unresolvable int
	Duplicates   int
}

// Normalize converts one raw song into a SongRecord.
// It returns false when no artist can be resolved; such records never reach the loader.
func Normalize(raw model.RawSong) (model.SongRecord, bool) {
	artists := SplitArtists(raw.ArtistName)
	if len(artists) == 0 {
		return model.SongRecord{}, false
	}

	rec := model.SongRecord{
		SongName:        strings.TrimSpace(raw.SongName),
		ArtistNames:     artists,
		AlbumName:       strings.TrimSpace(raw.AlbumName),
		ReleaseYear:     raw.ReleaseYear,
		DurationSeconds: RoundDuration(raw.Duration),
		Genre:           NormalizeGenre(raw.Genre),
		Source:          raw.Source,
	}
	if src, ok := model.ParseSource(string(raw.Source)); ok {
		rec.Source = src
	}
	if raw.NbOfSongs != nil {
		rec.TrackCount = *raw.NbOfSongs
	}

	return rec, true
}

// SplitArtists splits a display string into an ordered artist list, primary first.
func SplitArtists(display string) []string {
	parts := strings.Split(display, model.ArtistDelimiter)
	artists := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			artists = append(artists, name)
		}
	}
	return artists
}

// NormalizeGenre maps absent and "Unknown Genre" values to the empty (unknown) genre.
func NormalizeGenre(genre string) string {
	genre = strings.TrimSpace(genre)
	if strings.EqualFold(genre, model.UnknownGenre) {
		return ""
	}
	return genre
}

// RoundDuration rounds seconds to two decimal places. Negative durations become 0.
func RoundDuration(seconds float64) float64 {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return math.Round(seconds*100) / 100
}

// Batch normalizes the output of every adapter into one load batch.
// Records without a resolvable artist are dropped, and so are repeats of a
// (song, primary artist) pair already in the batch; the first occurrence wins.
func Batch(streams ...[]model.RawSong) ([]model.SongRecord, BatchStats) {
	var stats BatchStats
	seen := make(map[string]struct{})
	var out []model.SongRecord

	for _, stream := range streams {
		for _, raw := range stream {
			stats.Input++

			rec, ok := Normalize(raw)
			if !ok {
				stats.Unresolvable++
				continue
			}

			key := rec.Key()
			if _, dup := seen[key]; dup {
				stats.Duplicates++
				continue
			}
			seen[key] = struct{}{}
			out = append(out, rec)
		}
	}

	return out, stats
}
