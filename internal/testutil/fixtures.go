package testutil

import (
	"encoding/json"
	"testing"

	"github.com/lepinkainen/tunetrackr/internal/model"
)

// SampleSongs returns a small fetch-stage batch covering the interesting
// cases: collaborators, an unknown genre, a missing album, a cross-source
// duplicate and a record without an artist.
func SampleSongs() []model.RawSong {
	return []model.RawSong{
		{
			SongName:    "Crazy In Love",
			ArtistName:  "Beyonce, Jay-Z",
			AlbumName:   "Dangerously In Love",
			ReleaseYear: 2003,
			Duration:    236.133,
			Genre:       "dance pop, r&b",
			Source:      model.SourceSpotify,
		},
		{
			SongName:    "Hey Ya!",
			ArtistName:  "OutKast",
			AlbumName:   "Speakerboxxx/The Love Below",
			ReleaseYear: 2003,
			Duration:    235.213,
			Genre:       model.UnknownGenre,
			Source:      model.SourceSpotify,
		},
		{
			SongName:    "Crazy In Love",
			ArtistName:  "Beyonce",
			ReleaseYear: 2003,
			Duration:    236.0,
			Genre:       "pop",
			Source:      model.SourceMusicBrainz,
		},
		{
			SongName:    "Seven Nation Army",
			ArtistName:  "The White Stripes",
			AlbumName:   "Elephant",
			ReleaseYear: 2003,
			Duration:    231.8,
			Genre:       "garage rock",
			Source:      model.SourceMusicBrainz,
		},
		{
			SongName:    "Ghost Track",
			ArtistName:  "",
			ReleaseYear: 2003,
			Genre:       model.UnknownGenre,
			Source:      model.SourceMusicBrainz,
		},
	}
}

// WriteSongs stores songs as an indented JSON array at path inside env.
func WriteSongs(t *testing.T, env *TestEnv, path string, songs []model.RawSong) string {
	t.Helper()

	data, err := json.MarshalIndent(songs, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal songs: %v", err)
	}
	env.WriteFile(path, data)
	return env.Path(path)
}
