package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/tunetrackr/internal/model"
	"github.com/lepinkainen/tunetrackr/internal/source"
)

// FetchOptions bounds the fetch stage.
type FetchOptions struct {
	// Limit caps the songs taken from each source per window.
	Limit int
	// Concurrency is the number of windows fetched at once. 1 keeps the run sequential.
	Concurrency int
}

// FetchStats counts fetched songs per source.
type FetchStats struct {
	Windows  int
	BySource map[model.Source]int
}

// Fetch pulls songs from every source for every window. The output is
// ordered by window, then by source order, whatever the concurrency. The
// first authentication failure cancels the remaining windows.
func (r *Run) Fetch(ctx context.Context, sources []source.Source, windows []source.Window, opts FetchOptions) ([]model.RawSong, FetchStats, error) {
	stats := FetchStats{Windows: len(windows), BySource: map[model.Source]int{}}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	slots := make([][]model.RawSong, len(windows)*len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for wi, w := range windows {
		g.Go(func() error {
			for si, src := range sources {
				if err := gctx.Err(); err != nil {
					return err
				}
				songs, err := source.Collect(src.Songs(gctx, w, opts.Limit))
				slots[wi*len(sources)+si] = songs
				if err != nil {
					return fmt.Errorf("%s %s: %w", src.Name(), w, err)
				}
				r.logger.Info("Fetched window", "year", w.Year, "source", src.Name(), "songs", len(songs))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.Error("Fetch aborted", "error", err)
		return nil, stats, interrupted(ctx, "fetch", err)
	}

	var all []model.RawSong
	for i, songs := range slots {
		stats.BySource[sources[i%len(sources)].Name()] += len(songs)
		all = append(all, songs...)
	}
	r.logger.Info("Fetch complete", r.withCacheStats("windows", len(windows), "songs", len(all))...)
	return all, stats, nil
}
