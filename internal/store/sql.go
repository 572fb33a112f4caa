package store

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
	"github.com/lepinkainen/tunetrackr/internal/model"
)

var _ Store = (*SQLStore)(nil)

// SQLStore implements Store over database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// Option configures a SQLStore.
type Option func(*SQLStore)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open connects to the database described by dialect and dsn. The schema is
// not touched; call Migrate for that.
func Open(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*SQLStore, error) {
	if dsn == "" {
		return nil, tterrors.NewStoreError("open", stdErrors.New("empty DSN"))
	}

	db, err := sql.Open(dialect.driverName(), dialect.dsn(dsn))
	if err != nil {
		return nil, tterrors.NewStoreError("open", err)
	}
	if dialect == DialectSQLite {
		// One writer at a time; also keeps ":memory:" databases on one connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, tterrors.NewStoreError("connect", err)
	}

	s := &SQLStore{db: db, dialect: dialect, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dialect returns the SQL dialect of the store.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// WithinTx runs fn in a database transaction.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tterrors.NewStoreError("begin", err)
	}
	defer func() {
		// Rollback after Commit is a no-op.
		_ = tx.Rollback()
	}()

	if err := fn(&sqlTx{tx: tx, dialect: s.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return tterrors.NewStoreError("commit", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTx) queryID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, t.dialect.rebind(query), args...).Scan(&id)
	return id, err
}

func (t *sqlTx) GetOrCreateArtist(ctx context.Context, a Artist) (int64, error) {
	id, err := t.queryID(ctx, `INSERT INTO Artists (artist_name, source) VALUES (?, ?)
		ON CONFLICT (artist_name) DO UPDATE SET artist_name = excluded.artist_name
		RETURNING id`, a.Name, nullString(string(a.Source)))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert artist %q: %w", a.Name, err)
	}
	return id, nil
}

func (t *sqlTx) GetOrCreateAlbum(ctx context.Context, a Album) (int64, error) {
	id, err := t.queryID(ctx, `INSERT INTO Albums (album_name, release_year, artist_id, nb_of_songs, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (album_name, artist_id) DO UPDATE SET album_name = excluded.album_name
		RETURNING id`,
		a.Name, nullInt(a.ReleaseYear), a.ArtistID, nullCount(a.TrackCount), nullString(string(a.Source)))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert album %q: %w", a.Name, err)
	}
	return id, nil
}

func (t *sqlTx) InsertSong(ctx context.Context, s Song) (int64, bool, error) {
	id, err := t.queryID(ctx, `INSERT INTO Songs
		(song_name, duration, genre, release_year, album_id, artist_id, source, is_single)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (song_name, artist_id) DO NOTHING
		RETURNING id`,
		s.Name, s.Duration, nullString(s.Genre), nullInt(s.ReleaseYear), nullID(s.AlbumID),
		s.ArtistID, nullString(string(s.Source)), s.IsSingle)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert song %q: %w", s.Name, err)
	}
	return id, true, nil
}

func (t *sqlTx) FindSong(ctx context.Context, name string, artistID int64) (int64, bool, error) {
	id, err := t.queryID(ctx, `SELECT id FROM Songs WHERE song_name = ? AND artist_id = ?`, name, artistID)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up song %q: %w", name, err)
	}
	return id, true, nil
}

func (t *sqlTx) InsertCollaboration(ctx context.Context, songID, artistID int64) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.rebind(`INSERT INTO Collaborations (song_id, artist_id)
		VALUES (?, ?) ON CONFLICT (song_id, artist_id) DO NOTHING`), songID, artistID)
	if err != nil {
		return fmt.Errorf("failed to insert collaboration %d/%d: %w", songID, artistID, err)
	}
	return nil
}

func (t *sqlTx) GetOrCreatePlaylist(ctx context.Context, p Playlist) (int64, error) {
	id, err := t.queryID(ctx, `INSERT INTO Playlists (playlist_name, genre, year) VALUES (?, ?, ?)
		ON CONFLICT (genre, year) DO UPDATE SET genre = excluded.genre
		RETURNING id`, p.Name, p.Genre, p.Year)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert playlist %q: %w", p.Name, err)
	}
	return id, nil
}

func (t *sqlTx) InsertPlaylistSong(ctx context.Context, playlistID, songID int64) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.rebind(`INSERT INTO Playlist_Songs (playlist_id, song_id)
		VALUES (?, ?) ON CONFLICT (playlist_id, song_id) DO NOTHING`), playlistID, songID)
	if err != nil {
		return fmt.Errorf("failed to link song %d to playlist %d: %w", songID, playlistID, err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullCount(c model.TrackCount) any {
	if !c.Known {
		return nil
	}
	return c.N
}
