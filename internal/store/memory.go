package store

import (
	"context"
	stdErrors "errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
)

var _ Store = (*Memory)(nil)

var errMemoryClosed = stdErrors.New("memory store is closed")

type albumKey struct {
	name     string
	artistID int64
}

type songKey struct {
	name     string
	artistID int64
}

type link struct {
	a, b int64
}

type memState struct {
	artists        []Artist
	albums         []Album
	songs          []Song
	playlists      []Playlist
	collaborations []link
	playlistSongs  []link
}

func (m memState) clone() memState {
	return memState{
		artists:        slices.Clone(m.artists),
		albums:         slices.Clone(m.albums),
		songs:          slices.Clone(m.songs),
		playlists:      slices.Clone(m.playlists),
		collaborations: slices.Clone(m.collaborations),
		playlistSongs:  slices.Clone(m.playlistSongs),
	}
}

// Memory is an in-process Store. Each transaction works on a copy of the
// tables that replaces the committed state only when the transaction succeeds.
type Memory struct {
	mu     sync.Mutex
	state  memState
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) WithinTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return tterrors.NewStoreError("begin", errMemoryClosed)
	}

	tx := &memTx{state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

func (m *Memory) SongsByArtist(_ context.Context, artist string) ([]Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var artistID int64
	for _, a := range m.state.artists {
		if a.Name == artist {
			artistID = a.ID
		}
	}
	if artistID == 0 {
		return nil, nil
	}

	var songs []Song
	for _, s := range m.state.songs {
		if s.ArtistID == artistID || slices.Contains(m.state.collaborations, link{s.ID, artistID}) {
			songs = append(songs, s)
		}
	}
	return songs, nil
}

func (m *Memory) AlbumsWithTrackCounts(_ context.Context) ([]AlbumTracks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var albums []AlbumTracks
	for _, al := range m.state.albums {
		albums = append(albums, AlbumTracks{
			Album:      al.Name,
			Artist:     m.state.artists[al.ArtistID-1].Name,
			TrackCount: al.TrackCount,
		})
	}
	sort.SliceStable(albums, func(i, j int) bool {
		if albums[i].Artist != albums[j].Artist {
			return albums[i].Artist < albums[j].Artist
		}
		return albums[i].Album < albums[j].Album
	})
	return albums, nil
}

func (m *Memory) PlaylistSongs(_ context.Context, genre string, year int) ([]Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var playlistID int64
	for _, p := range m.state.playlists {
		if p.Genre == genre && p.Year == year {
			playlistID = p.ID
		}
	}

	var songs []Song
	for _, s := range m.state.songs {
		if slices.Contains(m.state.playlistSongs, link{playlistID, s.ID}) {
			songs = append(songs, s)
		}
	}
	return songs, nil
}

func (m *Memory) Counts(_ context.Context) (Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Counts{
		Artists:        len(m.state.artists),
		Albums:         len(m.state.albums),
		Songs:          len(m.state.songs),
		Collaborations: len(m.state.collaborations),
		Playlists:      len(m.state.playlists),
		PlaylistSongs:  len(m.state.playlistSongs),
	}, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memTx mirrors the SQL constraints: ids are 1-based row positions and the
// natural keys are unique.
type memTx struct {
	state memState
}

func (t *memTx) GetOrCreateArtist(_ context.Context, a Artist) (int64, error) {
	if a.Name == "" {
		return 0, fmt.Errorf("artist name is required")
	}
	for _, existing := range t.state.artists {
		if existing.Name == a.Name {
			return existing.ID, nil
		}
	}
	a.ID = int64(len(t.state.artists) + 1)
	t.state.artists = append(t.state.artists, a)
	return a.ID, nil
}

func (t *memTx) GetOrCreateAlbum(_ context.Context, a Album) (int64, error) {
	if err := t.requireArtist(a.ArtistID); err != nil {
		return 0, err
	}
	key := albumKey{a.Name, a.ArtistID}
	for _, existing := range t.state.albums {
		if (albumKey{existing.Name, existing.ArtistID}) == key {
			return existing.ID, nil
		}
	}
	a.ID = int64(len(t.state.albums) + 1)
	t.state.albums = append(t.state.albums, a)
	return a.ID, nil
}

func (t *memTx) InsertSong(_ context.Context, s Song) (int64, bool, error) {
	if s.Name == "" {
		return 0, false, fmt.Errorf("song name is required")
	}
	if err := t.requireArtist(s.ArtistID); err != nil {
		return 0, false, err
	}
	if s.AlbumID != 0 && (s.AlbumID < 0 || int(s.AlbumID) > len(t.state.albums)) {
		return 0, false, fmt.Errorf("album %d does not exist", s.AlbumID)
	}
	if _, found := t.find(songKey{s.Name, s.ArtistID}); found {
		return 0, false, nil
	}
	s.ID = int64(len(t.state.songs) + 1)
	t.state.songs = append(t.state.songs, s)
	return s.ID, true, nil
}

func (t *memTx) FindSong(_ context.Context, name string, artistID int64) (int64, bool, error) {
	id, found := t.find(songKey{name, artistID})
	return id, found, nil
}

func (t *memTx) find(key songKey) (int64, bool) {
	for _, s := range t.state.songs {
		if (songKey{s.Name, s.ArtistID}) == key {
			return s.ID, true
		}
	}
	return 0, false
}

func (t *memTx) InsertCollaboration(_ context.Context, songID, artistID int64) error {
	if err := t.requireSong(songID); err != nil {
		return err
	}
	if err := t.requireArtist(artistID); err != nil {
		return err
	}
	l := link{songID, artistID}
	if !slices.Contains(t.state.collaborations, l) {
		t.state.collaborations = append(t.state.collaborations, l)
	}
	return nil
}

func (t *memTx) GetOrCreatePlaylist(_ context.Context, p Playlist) (int64, error) {
	for _, existing := range t.state.playlists {
		if existing.Genre == p.Genre && existing.Year == p.Year {
			return existing.ID, nil
		}
	}
	p.ID = int64(len(t.state.playlists) + 1)
	t.state.playlists = append(t.state.playlists, p)
	return p.ID, nil
}

func (t *memTx) InsertPlaylistSong(_ context.Context, playlistID, songID int64) error {
	if playlistID < 1 || int(playlistID) > len(t.state.playlists) {
		return fmt.Errorf("playlist %d does not exist", playlistID)
	}
	if err := t.requireSong(songID); err != nil {
		return err
	}
	l := link{playlistID, songID}
	if !slices.Contains(t.state.playlistSongs, l) {
		t.state.playlistSongs = append(t.state.playlistSongs, l)
	}
	return nil
}

func (t *memTx) requireArtist(id int64) error {
	if id < 1 || int(id) > len(t.state.artists) {
		return fmt.Errorf("artist %d does not exist", id)
	}
	return nil
}

func (t *memTx) requireSong(id int64) error {
	if id < 1 || int(id) > len(t.state.songs) {
		return fmt.Errorf("song %d does not exist", id)
	}
	return nil
}
