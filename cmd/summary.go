package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/tunetrackr/internal/pipeline"
	"github.com/lepinkainen/tunetrackr/internal/store"
)

type summaryStyles struct {
	title lipgloss.Style
	muted lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	warn  lipgloss.Style
	box   lipgloss.Style
}

func newSummaryStyles(out io.Writer) summaryStyles {
	r := lipgloss.NewRenderer(out)
	return summaryStyles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		muted: r.NewStyle().Foreground(lipgloss.Color("8")),
		label: r.NewStyle().Width(16).Foreground(lipgloss.Color("8")),
		value: r.NewStyle().Bold(true),
		warn:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		box:   r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// renderSummary formats the end-of-load summary for a terminal.
func renderSummary(out io.Writer, report pipeline.Report, counts store.Counts) string {
	s := newSummaryStyles(out)

	row := func(label string, n int, warnIfNonZero bool) string {
		v := s.value
		if warnIfNonZero && n > 0 {
			v = s.warn
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(label), v.Render(strconv.Itoa(n)))
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render("Load summary"),
		s.muted.Render("run "+report.RunID),
		"",
		row("input", report.Input, false),
		row("duplicates", report.Duplicates, false),
		row("unresolvable", report.Unresolvable, true),
		row("inserted", report.Inserted, false),
		row("existing", report.Existing, false),
		row("skipped", report.Skipped, true),
		row("failed", report.Failed, true),
		"",
		s.title.Render("Database"),
		row("artists", counts.Artists, false),
		row("albums", counts.Albums, false),
		row("songs", counts.Songs, false),
		row("collaborations", counts.Collaborations, false),
		row("playlists", counts.Playlists, false),
		row("playlist songs", counts.PlaylistSongs, false),
	)
	return s.box.Render(body)
}

func printSummary(out io.Writer, report pipeline.Report, counts store.Counts) {
	_, _ = fmt.Fprintln(out, renderSummary(out, report, counts))
}
