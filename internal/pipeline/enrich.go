package pipeline

import (
	"context"
	"fmt"

	"github.com/lepinkainen/tunetrackr/internal/model"
)

// TrackCounter resolves how many tracks an album has.
type TrackCounter interface {
	AlbumTrackCount(ctx context.Context, album string) (model.TrackCount, error)
}

// Enrich returns a copy of songs with nb_of_songs filled in. Songs without an
// album, or whose album cannot be found, get an unknown count.
func (r *Run) Enrich(ctx context.Context, songs []model.RawSong, counter TrackCounter) ([]model.RawSong, error) {
	enriched := make([]model.RawSong, len(songs))
	known := 0
	for i, song := range songs {
		count, err := counter.AlbumTrackCount(ctx, song.AlbumName)
		if err != nil {
			return nil, interrupted(ctx, "enrich", fmt.Errorf("album %q: %w", song.AlbumName, err))
		}
		if count.Known {
			known++
		}
		song.NbOfSongs = &count
		enriched[i] = song

		if (i+1)%progressEvery == 0 {
			r.logger.Info("Enrich progress", "done", i+1, "total", len(songs))
		}
	}
	r.logger.Info("Enrich complete", r.withCacheStats("songs", len(songs), "known_counts", known)...)
	return enriched, nil
}
