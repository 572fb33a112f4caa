package loader

import (
	"context"
	stdErrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
	"github.com/lepinkainen/tunetrackr/internal/model"
	"github.com/lepinkainen/tunetrackr/internal/store"
)

func record(song string, artists ...string) model.SongRecord {
	return model.SongRecord{
		SongName:        song,
		ArtistNames:     artists,
		AlbumName:       "Greatest Hits",
		ReleaseYear:     2003,
		DurationSeconds: 215.37,
		Genre:           "dance pop",
		Source:          model.SourceSpotify,
		TrackCount:      model.KnownCount(12),
	}
}

func counts(t *testing.T, s store.Store) store.Counts {
	t.Helper()
	c, err := s.Counts(context.Background())
	require.NoError(t, err)
	return c
}

func TestLoadIsIdempotent(t *testing.T) {
	s := store.NewMemory()
	l := New(s)
	rec := record("Crazy In Love", "Beyonce", "Jay-Z")

	first, err := l.Load(context.Background(), []model.SongRecord{rec})
	require.NoError(t, err)
	second, err := l.Load(context.Background(), []model.SongRecord{rec})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Inserted)
	assert.Equal(t, 1, second.Existing)
	assert.Equal(t, store.Counts{
		Artists:        2,
		Albums:         1,
		Songs:          1,
		Collaborations: 1,
		Playlists:      1,
		PlaylistSongs:  1,
	}, counts(t, s))
}

func TestEmptyPrimaryArtistWritesNothing(t *testing.T) {
	s := store.NewMemory()
	l := New(s)

	for _, rec := range []model.SongRecord{
		record("Orphan"),
		record("Orphan", ""),
		record("", "Someone"),
	} {
		result, err := l.LoadRecord(context.Background(), rec)
		require.NoError(t, err)
		assert.Equal(t, StatusSkipped, result.Status)
		assert.NotEmpty(t, result.Reason)
	}

	assert.Equal(t, store.Counts{}, counts(t, s))
}

func TestCollaboratorsAndPrimaryOwnership(t *testing.T) {
	s := store.NewMemory()
	l := New(s)

	_, err := l.LoadRecord(context.Background(), record("Trio", "A", "B", "C"))
	require.NoError(t, err)

	byA, err := s.SongsByArtist(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, byA, 1)
	assert.False(t, byA[0].IsSingle)

	c := counts(t, s)
	assert.Equal(t, 2, c.Collaborations)
	assert.Equal(t, 3, c.Artists)

	byC, err := s.SongsByArtist(context.Background(), "C")
	require.NoError(t, err)
	require.Len(t, byC, 1)
	assert.Equal(t, byA[0].ID, byC[0].ID)
	assert.Equal(t, byA[0].ArtistID, byC[0].ArtistID, "primary artist owns the song row")
}

func TestOnePlaylistPerGenreAndYear(t *testing.T) {
	s := store.NewMemory()
	l := New(s)

	recs := []model.SongRecord{
		record("One", "X"),
		record("Two", "Y"),
		record("Three", "Z"),
	}
	other := record("Four", "X")
	other.ReleaseYear = 2004
	recs = append(recs, other)

	summary, err := l.Load(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Inserted)

	assert.Equal(t, 2, counts(t, s).Playlists)
	songs, err := s.PlaylistSongs(context.Background(), "dance pop", 2003)
	require.NoError(t, err)
	assert.Len(t, songs, 3)
}

func TestUnknownGenreNeverCreatesPlaylist(t *testing.T) {
	s := store.NewMemory()
	l := New(s)

	rec := record("Mystery", "Nobody")
	rec.Genre = ""
	_, err := l.LoadRecord(context.Background(), rec)
	require.NoError(t, err)

	c := counts(t, s)
	assert.Equal(t, 1, c.Songs)
	assert.Zero(t, c.Playlists)
	assert.Zero(t, c.PlaylistSongs)

	songs, err := s.SongsByArtist(context.Background(), "Nobody")
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Empty(t, songs[0].Genre)
}

func TestAlbumCountFirstWriteWins(t *testing.T) {
	s := store.NewMemory()
	l := New(s)

	first := record("Side A", "Band")
	first.AlbumName = "X"
	first.TrackCount = model.KnownCount(10)
	second := record("Side B", "Band")
	second.AlbumName = "X"
	second.TrackCount = model.KnownCount(12)

	_, err := l.Load(context.Background(), []model.SongRecord{first, second})
	require.NoError(t, err)

	albums, err := s.AlbumsWithTrackCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, model.KnownCount(10), albums[0].TrackCount)
}

func TestSkipPolicyLeavesLinksAlone(t *testing.T) {
	s := store.NewMemory()
	l := New(s, WithConflictPolicy(PolicySkip))

	_, err := l.LoadRecord(context.Background(), record("Duet", "A"))
	require.NoError(t, err)

	result, err := l.LoadRecord(context.Background(), record("Duet", "A", "B"))
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Status)

	c := counts(t, s)
	assert.Equal(t, 1, c.Artists, "rolled back collaborator artist")
	assert.Zero(t, c.Collaborations)
}

func TestReadbackPolicyAddsMissingLinks(t *testing.T) {
	s := store.NewMemory()
	l := New(s)

	_, err := l.LoadRecord(context.Background(), record("Duet", "A"))
	require.NoError(t, err)

	result, err := l.LoadRecord(context.Background(), record("Duet", "A", "B"))
	require.NoError(t, err)
	assert.Equal(t, StatusExisting, result.Status)
	assert.Equal(t, 1, counts(t, s).Collaborations)
}

// failingStore makes every playlist link fail after the rest of the record was written.
type failingStore struct {
	*store.Memory
}

type failingTx struct {
	store.Tx
}

func (failingTx) InsertPlaylistSong(context.Context, int64, int64) error {
	return stdErrors.New("constraint violated")
}

func (f failingStore) WithinTx(ctx context.Context, fn func(store.Tx) error) error {
	return f.Memory.WithinTx(ctx, func(tx store.Tx) error {
		return fn(failingTx{tx})
	})
}

func TestFailedRecordRollsBackAndContinues(t *testing.T) {
	mem := store.NewMemory()
	l := New(failingStore{mem})

	noGenre := record("Survivor", "Solo")
	noGenre.Genre = ""
	noGenre.AlbumName = ""
	summary, err := l.Load(context.Background(), []model.SongRecord{
		record("Doomed", "Band", "Guest"),
		noGenre,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Inserted)
	require.Len(t, summary.Problems(), 1)
	assert.Equal(t, "Doomed", summary.Problems()[0].Song)
	assert.Contains(t, summary.Problems()[0].Reason, "constraint violated")

	assert.Equal(t, store.Counts{Artists: 1, Songs: 1}, counts(t, mem))
}

func TestLoadStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(store.NewMemory()).Load(ctx, []model.SongRecord{record("Late", "Band")})
	assert.True(t, tterrors.IsStopProcessingError(err))
}

func TestLoadAbortsOnClosedStore(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Close())

	summary, err := New(mem).Load(context.Background(), []model.SongRecord{
		record("First", "Band"),
		record("Second", "Band"),
	})
	require.Error(t, err)
	assert.True(t, tterrors.IsStoreError(err), "got %v", err)
	assert.Equal(t, 0, summary.Total())
	assert.Equal(t, 0, summary.Failed)
}

func TestLoadAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, store.DialectSQLite, filepath.Join(t.TempDir(), "load.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))

	l := New(s)
	recs := []model.SongRecord{
		record("Trio", "A", "B", "C"),
		record("Trio", "A", "B", "C"),
		record("Solo", "B"),
		record("Nameless"),
	}
	summary, err := l.Load(ctx, recs)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Existing)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 4, summary.Total())

	c := counts(t, s)
	assert.Equal(t, store.Counts{
		Artists:        3,
		Albums:         2,
		Songs:          2,
		Collaborations: 2,
		Playlists:      1,
		PlaylistSongs:  2,
	}, c)

	byB, err := s.SongsByArtist(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, byB, 2)
}

func TestPlaylistName(t *testing.T) {
	assert.Equal(t, "2003 Dance Pop Music", PlaylistName(2003, "dance pop"))
	assert.Equal(t, "1999 Rock Music", PlaylistName(1999, "ROCK"))
}

func TestParseConflictPolicy(t *testing.T) {
	p, err := ParseConflictPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReadback, p)

	p, err = ParseConflictPolicy("Skip")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	_, err = ParseConflictPolicy("overwrite")
	assert.Error(t, err)
}
