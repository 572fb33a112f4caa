// Package loader writes canonical song records into the relational store,
// one transaction per record.
package loader

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
	"github.com/lepinkainen/tunetrackr/internal/model"
	"github.com/lepinkainen/tunetrackr/internal/store"
)

// ConflictPolicy decides what happens when a song's natural key already exists.
type ConflictPolicy string

const (
	// PolicyReadback looks the existing song up and re-asserts its links.
	PolicyReadback ConflictPolicy = "readback"

	// PolicySkip drops the record without touching collaborations or playlists.
	PolicySkip ConflictPolicy = "skip"
)

// ParseConflictPolicy validates a configured policy name.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReadback:
		return PolicyReadback, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown song conflict policy %q", s)
	}
}

// errSkip marks a record that cannot be loaded. Its transaction is rolled back.
type errSkip struct {
	reason string
}

func (e *errSkip) Error() string { return e.reason }

func skip(format string, args ...any) error {
	return &errSkip{reason: fmt.Sprintf(format, args...)}
}

// errExisting rolls back a record whose song already exists under PolicySkip.
var errExisting = stdErrors.New("song already exists")

// Loader persists SongRecords into a store.Store.
type Loader struct {
	store  store.Store
	policy ConflictPolicy
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithConflictPolicy sets the duplicate-song policy.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(l *Loader) {
		if p != "" {
			l.policy = p
		}
	}
}

// WithLogger sets the loader logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader writing to s.
func New(s store.Store, opts ...Option) *Loader {
	l := &Loader{
		store:  s,
		policy: PolicyReadback,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PlaylistName is the deterministic name of the playlist for a genre and year.
func PlaylistName(year int, genre string) string {
	return fmt.Sprintf("%d %s Music", year, cases.Title(language.English).String(genre))
}

// Load writes every record and returns the run summary. A failing record
// never stops the run; only cancellation and store-level failures do.
func (l *Loader) Load(ctx context.Context, records []model.SongRecord) (Summary, error) {
	var summary Summary
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			l.logger.Warn("Load interrupted", "processed", i, "remaining", len(records)-i)
			return summary, tterrors.NewStopProcessingError("load interrupted")
		}

		result, err := l.LoadRecord(ctx, rec)
		if err != nil {
			return summary, err
		}
		summary.add(result)
	}
	return summary, nil
}

// LoadRecord writes one record inside its own transaction. The returned error
// is non-nil only when the store itself is unusable.
func (l *Loader) LoadRecord(ctx context.Context, rec model.SongRecord) (RecordResult, error) {
	result := RecordResult{Song: rec.SongName, Artist: rec.PrimaryArtist()}
	log := l.logger.With("song", rec.SongName, "artist", rec.PrimaryArtist(), "source", rec.Source)

	var created bool
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		created, err = l.write(ctx, tx, rec)
		return err
	})

	var skipErr *errSkip
	switch {
	case err == nil && created:
		result.Status = StatusInserted
		log.Debug("Inserted song")
	case err == nil:
		result.Status = StatusExisting
		log.Debug("Song already stored, links re-asserted")
	case stdErrors.Is(err, errExisting):
		result.Status = StatusSkipped
		result.Reason = err.Error()
		log.Info("Skipping duplicate song")
	case stdErrors.As(err, &skipErr):
		result.Status = StatusSkipped
		result.Reason = skipErr.reason
		log.Warn("Skipping record", "reason", skipErr.reason)
	case tterrors.IsStoreError(err):
		return result, err
	case ctx.Err() != nil:
		return result, tterrors.NewStopProcessingError("load interrupted")
	default:
		result.Status = StatusFailed
		result.Reason = err.Error()
		log.Error("Record rolled back", "error", err)
	}
	return result, nil
}

// write performs the get-or-create chain for one record and reports whether
// the song row was created.
func (l *Loader) write(ctx context.Context, tx store.Tx, rec model.SongRecord) (bool, error) {
	primary := rec.PrimaryArtist()
	if primary == "" {
		return false, skip("missing primary artist")
	}
	if rec.SongName == "" {
		return false, skip("missing song name")
	}

	artistID, err := tx.GetOrCreateArtist(ctx, store.Artist{Name: primary, Source: rec.Source})
	if err != nil {
		return false, err
	}

	var albumID int64
	if rec.AlbumName != "" {
		albumID, err = tx.GetOrCreateAlbum(ctx, store.Album{
			Name:        rec.AlbumName,
			ReleaseYear: rec.ReleaseYear,
			ArtistID:    artistID,
			TrackCount:  rec.TrackCount,
			Source:      rec.Source,
		})
		if err != nil {
			return false, err
		}
	}

	songID, created, err := tx.InsertSong(ctx, store.Song{
		Name:        rec.SongName,
		Duration:    rec.DurationSeconds,
		Genre:       rec.Genre,
		ReleaseYear: rec.ReleaseYear,
		AlbumID:     albumID,
		ArtistID:    artistID,
		Source:      rec.Source,
		IsSingle:    rec.IsSingle(),
	})
	if err != nil {
		return false, err
	}
	if !created {
		if l.policy == PolicySkip {
			return false, errExisting
		}
		var found bool
		songID, found, err = tx.FindSong(ctx, rec.SongName, artistID)
		if err != nil {
			return false, err
		}
		if !found {
			return false, fmt.Errorf("song %q conflicted but could not be read back", rec.SongName)
		}
	}

	for _, name := range rec.Collaborators() {
		collabID, err := tx.GetOrCreateArtist(ctx, store.Artist{Name: name, Source: rec.Source})
		if err != nil {
			return false, err
		}
		if err := tx.InsertCollaboration(ctx, songID, collabID); err != nil {
			return false, err
		}
	}

	if rec.HasGenre() && rec.HasReleaseYear() {
		playlistID, err := tx.GetOrCreatePlaylist(ctx, store.Playlist{
			Name:  PlaylistName(rec.ReleaseYear, rec.Genre),
			Genre: rec.Genre,
			Year:  rec.ReleaseYear,
		})
		if err != nil {
			return false, err
		}
		if err := tx.InsertPlaylistSong(ctx, playlistID, songID); err != nil {
			return false, err
		}
	}

	return created, nil
}
