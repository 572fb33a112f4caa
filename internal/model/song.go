// Package model defines the song records that flow through the ingestion pipeline.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Source identifies the catalog a record was fetched from.
type Source string

const (
	SourceSpotify     Source = "Spotify"
	SourceMusicBrainz Source = "MusicBrainz"
)

// ParseSource maps a source tag from the intermediate file to a Source.
func ParseSource(s string) (Source, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spotify":
		return SourceSpotify, true
	case "musicbrainz":
		return SourceMusicBrainz, true
	default:
		return "", false
	}
}

const (
	// UnknownGenre is the wire value for a song whose genre could not be resolved.
	UnknownGenre = "Unknown Genre"

	// ArtistDelimiter separates credited artists in a display string.
	ArtistDelimiter = ", "
)

// unknownCount is the wire value for an album track count that could not be resolved.
const unknownCount = "Unknown"

// TrackCount is the number of tracks on a song's parent album.
// The zero value is unknown.
type TrackCount struct {
	N     int
	Known bool
}

// KnownCount returns a known TrackCount of n.
func KnownCount(n int) TrackCount {
	return TrackCount{N: n, Known: true}
}

func (c TrackCount) String() string {
	if !c.Known {
		return unknownCount
	}
	return strconv.Itoa(c.N)
}

// MarshalJSON writes a number, or "Unknown" when the count is not known.
func (c TrackCount) MarshalJSON() ([]byte, error) {
	if !c.Known {
		return json.Marshal(unknownCount)
	}
	return json.Marshal(c.N)
}

// UnmarshalJSON accepts a number, a numeric string, "Unknown" or null.
func (c *TrackCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = TrackCount{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*c = TrackCount{}
			return nil
		}
		*c = KnownCount(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("track count: %w", err)
	}
	*c = KnownCount(n)
	return nil
}

// RawSong is the flat, source-specific shape emitted by a catalog adapter.
// It is also the element type of the intermediate JSON files.
type RawSong struct {
	SongName    string      `json:"song_name"`
	ArtistName  string      `json:"artist_name"`
	AlbumName   string      `json:"album_name,omitempty"`
	ReleaseYear int         `json:"release_year"`
	Duration    float64     `json:"duration"`
	Genre       string      `json:"genre"`
	Source      Source      `json:"source"`
	NbOfSongs   *TrackCount `json:"nb_of_songs,omitempty"`
}

// SongRecord is the canonical, source-agnostic song consumed by the loader.
// An empty Genre means the genre is unknown.
type SongRecord struct {
	SongName        string
	ArtistNames     []string
	AlbumName       string
	ReleaseYear     int
	DurationSeconds float64
	Genre           string
	Source          Source
	TrackCount      TrackCount
}

// PrimaryArtist returns the first credited artist, or "" if there is none.
func (s SongRecord) PrimaryArtist() string {
	if len(s.ArtistNames) == 0 {
		return ""
	}
	return s.ArtistNames[0]
}

// Collaborators returns every credited artist after the primary one.
func (s SongRecord) Collaborators() []string {
	if len(s.ArtistNames) < 2 {
		return nil
	}
	return s.ArtistNames[1:]
}

// IsSingle reports whether the song has no collaborators.
func (s SongRecord) IsSingle() bool {
	return len(s.Collaborators()) == 0
}

// HasGenre reports whether the genre is known.
func (s SongRecord) HasGenre() bool {
	return s.Genre != ""
}

// HasReleaseYear reports whether the release year is set.
func (s SongRecord) HasReleaseYear() bool {
	return s.ReleaseYear > 0
}

// Key is the natural key used to deduplicate records across sources.
func (s SongRecord) Key() string {
	return s.SongName + "\x00" + s.PrimaryArtist()
}
