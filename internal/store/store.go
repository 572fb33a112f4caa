// Package store persists canonical songs into the relational schema
// (Artists, Albums, Songs, Collaborations, Playlists, Playlist_Songs).
package store

import (
	"context"

	"github.com/lepinkainen/tunetrackr/internal/model"
)

// Artist is a row of the Artists table.
type Artist struct {
	ID     int64
	Name   string
	Source model.Source
}

// Album is a row of the Albums table. Its track count and source are only
// recorded when the row is first created.
type Album struct {
	ID          int64
	Name        string
	ReleaseYear int
	ArtistID    int64
	TrackCount  model.TrackCount
	Source      model.Source
}

// Song is a row of the Songs table. A zero AlbumID means no album and an
// empty Genre is stored as NULL.
type Song struct {
	ID          int64
	Name        string
	Duration    float64
	Genre       string
	ReleaseYear int
	AlbumID     int64
	ArtistID    int64
	Source      model.Source
	IsSingle    bool
}

// Playlist is a row of the Playlists table, unique per (genre, year).
type Playlist struct {
	ID    int64
	Name  string
	Genre string
	Year  int
}

// AlbumTracks is one result row of AlbumsWithTrackCounts.
type AlbumTracks struct {
	Album      string
	Artist     string
	TrackCount model.TrackCount
}

// Counts holds the row count of every table.
type Counts struct {
	Artists        int
	Albums         int
	Songs          int
	Collaborations int
	Playlists      int
	PlaylistSongs  int
}

// Tx is the set of writes available inside one record transaction.
type Tx interface {
	// GetOrCreateArtist returns the id of the artist named a.Name, creating it if needed.
	GetOrCreateArtist(ctx context.Context, a Artist) (int64, error)

	// GetOrCreateAlbum returns the id of the album (a.Name, a.ArtistID). An
	// existing album keeps its track count and source.
	GetOrCreateAlbum(ctx context.Context, a Album) (int64, error)

	// InsertSong inserts s and reports whether a row was created. On a natural
	// key conflict it returns (0, false, nil).
	InsertSong(ctx context.Context, s Song) (int64, bool, error)

	// FindSong looks a song up by its natural key.
	FindSong(ctx context.Context, name string, artistID int64) (int64, bool, error)

	// InsertCollaboration links a secondary artist to a song, ignoring duplicates.
	InsertCollaboration(ctx context.Context, songID, artistID int64) error

	// GetOrCreatePlaylist returns the id of the playlist for (p.Genre, p.Year).
	GetOrCreatePlaylist(ctx context.Context, p Playlist) (int64, error)

	// InsertPlaylistSong links a song to a playlist, ignoring duplicates.
	InsertPlaylistSong(ctx context.Context, playlistID, songID int64) error
}

// Store is a relational sink for song records.
type Store interface {
	// WithinTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Tx) error) error

	// SongsByArtist returns songs where the artist is primary or a collaborator.
	SongsByArtist(ctx context.Context, artist string) ([]Song, error)

	// AlbumsWithTrackCounts lists every album with its artist and track count.
	AlbumsWithTrackCounts(ctx context.Context) ([]AlbumTracks, error)

	// PlaylistSongs returns the songs linked to the playlist for (genre, year).
	PlaylistSongs(ctx context.Context, genre string, year int) ([]Song, error)

	// Counts returns the number of rows in each table.
	Counts(ctx context.Context) (Counts, error)

	Close() error
}
