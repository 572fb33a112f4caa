package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lepinkainen/tunetrackr/internal/model"
)

const songColumns = `s.id, s.song_name, s.duration, s.genre, s.release_year, s.album_id, s.artist_id, s.source, s.is_single`

// SongsByArtist returns songs where the artist is primary or a collaborator, ordered by id.
func (s *SQLStore) SongsByArtist(ctx context.Context, artist string) ([]Song, error) {
	query := `SELECT ` + songColumns + ` FROM Songs s
		JOIN Artists a ON a.id = s.artist_id
		WHERE a.artist_name = ?
		UNION
		SELECT ` + songColumns + ` FROM Songs s
		JOIN Collaborations c ON c.song_id = s.id
		JOIN Artists a ON a.id = c.artist_id
		WHERE a.artist_name = ?
		ORDER BY id`
	return s.querySongs(ctx, query, artist, artist)
}

// PlaylistSongs returns the songs linked to the (genre, year) playlist, ordered by id.
func (s *SQLStore) PlaylistSongs(ctx context.Context, genre string, year int) ([]Song, error) {
	query := `SELECT ` + songColumns + ` FROM Songs s
		JOIN Playlist_Songs ps ON ps.song_id = s.id
		JOIN Playlists p ON p.id = ps.playlist_id
		WHERE p.genre = ? AND p.year = ?
		ORDER BY s.id`
	return s.querySongs(ctx, query, genre, year)
}

// AlbumsWithTrackCounts lists albums ordered by artist then album name.
func (s *SQLStore) AlbumsWithTrackCounts(ctx context.Context) ([]AlbumTracks, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT al.album_name, ar.artist_name, al.nb_of_songs
		FROM Albums al JOIN Artists ar ON ar.id = al.artist_id
		ORDER BY ar.artist_name, al.album_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var albums []AlbumTracks
	for rows.Next() {
		var (
			a     AlbumTracks
			count sql.NullInt64
		)
		if err := rows.Scan(&a.Album, &a.Artist, &count); err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		if count.Valid {
			a.TrackCount = model.KnownCount(int(count.Int64))
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// Counts returns the number of rows in each table.
func (s *SQLStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dst   *int
	}{
		{"Artists", &c.Artists},
		{"Albums", &c.Albums},
		{"Songs", &c.Songs},
		{"Collaborations", &c.Collaborations},
		{"Playlists", &c.Playlists},
		{"Playlist_Songs", &c.PlaylistSongs},
	}
	for _, target := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+target.table).Scan(target.dst); err != nil {
			return Counts{}, fmt.Errorf("failed to count %s: %w", target.table, err)
		}
	}
	return c, nil
}

func (s *SQLStore) querySongs(ctx context.Context, query string, args ...any) ([]Song, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var songs []Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

func scanSong(rows *sql.Rows) (Song, error) {
	var (
		song     Song
		duration sql.NullFloat64
		genre    sql.NullString
		year     sql.NullInt64
		albumID  sql.NullInt64
		source   sql.NullString
	)
	err := rows.Scan(&song.ID, &song.Name, &duration, &genre, &year, &albumID, &song.ArtistID, &source, &song.IsSingle)
	if err != nil {
		return Song{}, fmt.Errorf("failed to scan song: %w", err)
	}
	song.Duration = duration.Float64
	song.Genre = genre.String
	song.ReleaseYear = int(year.Int64)
	song.AlbumID = albumID.Int64
	song.Source = model.Source(source.String)
	return song, nil
}
