package pipeline

import (
	"context"
	"time"

	"github.com/lepinkainen/tunetrackr/internal/loader"
	"github.com/lepinkainen/tunetrackr/internal/merge"
	"github.com/lepinkainen/tunetrackr/internal/model"
)

// Report is the audit record of a load, written as load_report.yaml.
type Report struct {
	RunID        string                `yaml:"run_id"`
	StartedAt    time.Time             `yaml:"started_at"`
	Input        int                   `yaml:"input"`
	Unresolvable int                   `yaml:"unresolvable"`
	Duplicates   int                   `yaml:"duplicates"`
	Inserted     int                   `yaml:"inserted"`
	Existing     int                   `yaml:"existing"`
	Skipped      int                   `yaml:"skipped"`
	Failed       int                   `yaml:"failed"`
	Problems     []loader.RecordResult `yaml:"problems,omitempty"`
}

// Load merges songs into canonical records and writes them through l.
// The report is filled in even when the load stops early.
func (r *Run) Load(ctx context.Context, l *loader.Loader, songs []model.RawSong) (Report, error) {
	records, stats := merge.Batch(songs)
	r.logger.Info("Merged songs", "input", stats.Input, "records", len(records),
		"unresolvable", stats.Unresolvable, "duplicates", stats.Duplicates)

	summary, err := l.Load(ctx, records)
	report := Report{
		RunID:        r.ID,
		StartedAt:    r.StartedAt,
		Input:        stats.Input,
		Unresolvable: stats.Unresolvable,
		Duplicates:   stats.Duplicates,
		Inserted:     summary.Inserted,
		Existing:     summary.Existing,
		Skipped:      summary.Skipped,
		Failed:       summary.Failed,
		Problems:     summary.Problems(),
	}
	if err != nil {
		r.logger.Error("Load stopped", "processed", summary.Total(), "error", err)
		return report, interrupted(ctx, "load", err)
	}

	r.logger.Info("Load complete", "inserted", summary.Inserted, "existing", summary.Existing,
		"skipped", summary.Skipped, "failed", summary.Failed)
	return report, nil
}
