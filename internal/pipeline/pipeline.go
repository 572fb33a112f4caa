// Package pipeline wires the fetch, enrich and load stages of a run.
package pipeline

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/lepinkainen/tunetrackr/internal/cache"
	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
)

// progressEvery is how often, in songs, the enrich stage logs progress.
const progressEvery = 10

// CacheReporter is a run-scoped cache whose effectiveness ends up in the run log.
type CacheReporter interface {
	Name() string
	Len() int
	Stats() cache.Stats
}

// Run carries the identity and logger of one pipeline invocation.
type Run struct {
	ID        string
	StartedAt time.Time
	logger    *slog.Logger
	caches    []CacheReporter
}

// NewRun starts a run with a fresh id. Every log line of the run carries it.
func NewRun(logger *slog.Logger) *Run {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Run{
		ID:        id,
		StartedAt: time.Now().UTC(),
		logger:    logger.With("run", id),
	}
}

// Logger returns the run-scoped logger.
func (r *Run) Logger() *slog.Logger {
	return r.logger
}

// Watch registers caches whose counters are logged when a stage completes.
// Registering the same cache twice is a no-op.
func (r *Run) Watch(caches ...CacheReporter) {
	for _, c := range caches {
		if c == nil || slices.Contains(r.caches, c) {
			continue
		}
		r.caches = append(r.caches, c)
	}
}

// withCacheStats appends one log group per watched cache to attrs.
func (r *Run) withCacheStats(attrs ...any) []any {
	for _, c := range r.caches {
		st := c.Stats()
		attrs = append(attrs, slog.Group(c.Name(), "keys", c.Len(), "hits", st.Hits, "misses", st.Misses))
	}
	return attrs
}

// interrupted converts a cancelled context into the run-interrupted error.
func interrupted(ctx context.Context, stage string, err error) error {
	if ctx.Err() != nil {
		return tterrors.NewStopProcessingError(stage + " interrupted")
	}
	return err
}
