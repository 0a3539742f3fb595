package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"mercator-hq/cachescript/pkg/loader"
	"mercator-hq/cachescript/pkg/storage"
)

type theme struct {
	header   lipgloss.Style
	cell     lipgloss.Style
	detail   lipgloss.Style
	needed   lipgloss.Style
	started  lipgloss.Style
	finished lipgloss.Style
	failed   lipgloss.Style
	outcome  map[string]lipgloss.Style
}

func colorTheme() theme {
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	bad := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	return theme{
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")).Bold(true).Underline(true),
		cell:     lipgloss.NewStyle(),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")),
		needed:   lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")),
		started:  lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true),
		finished: ok,
		failed:   bad,
		outcome: map[string]lipgloss.Style{
			loader.OutcomeSuccess:   ok,
			loader.OutcomeStalled:   bad,
			loader.OutcomeTimeout:   bad,
			loader.OutcomeCancelled: warn,
		},
	}
}

func plainTheme() theme {
	s := lipgloss.NewStyle()
	return theme{header: s, cell: s, detail: s, needed: s, started: s, finished: s, failed: s}
}

func (t theme) stage(rr loader.ResourceReport) lipgloss.Style {
	switch {
	case rr.Error != "":
		return t.failed
	case rr.Stage == loader.StageFinished:
		return t.finished
	case rr.Stage == loader.StageStarted:
		return t.started
	default:
		return t.needed
	}
}

func (t theme) forOutcome(outcome string) lipgloss.Style {
	if s, ok := t.outcome[outcome]; ok {
		return s
	}
	return t.cell
}

// renderTable renders the value types commands print as tables.
func renderTable(data any, t theme) (string, bool) {
	switch v := data.(type) {
	case *loader.Report:
		return renderReport(v, t), true
	case []storage.Entry:
		return renderEntries(v, t), true
	default:
		return "", false
	}
}

func renderReport(r *loader.Report, t theme) string {
	header := []string{"MODULE", "STAGE", "CACHE", "SOURCE", "VERSION", "AFTER"}
	rows := make([][]string, 0, len(r.Resources))
	styles := make([]lipgloss.Style, 0, len(r.Resources))
	for _, rr := range r.Resources {
		rows = append(rows, []string{
			rr.Name,
			rr.Stage.String(),
			rr.Cache.String(),
			dash(rr.Source),
			dash(rr.Version),
			dash(strings.Join(rr.After, ",")),
		})
		styles = append(styles, t.stage(rr))
	}

	var b strings.Builder
	b.WriteString(table(header, rows, t, func(row, col int) lipgloss.Style {
		if col == 1 {
			return styles[row]
		}
		return t.cell
	}))

	b.WriteString("\n")
	summary := fmt.Sprintf("session %s %s in %s", r.SessionID, t.forOutcome(r.Outcome).Render(r.Outcome), r.Duration.Round(time.Millisecond))
	b.WriteString(summary)
	for _, rr := range r.Resources {
		if rr.Error != "" {
			b.WriteString("\n" + t.failed.Render("  "+rr.Name+": ") + t.detail.Render(rr.Error))
		}
	}
	if r.Error != "" && r.Outcome != loader.OutcomeStalled {
		b.WriteString("\n" + t.detail.Render("  "+r.Error))
	}
	return b.String()
}

func renderEntries(entries []storage.Entry, t theme) string {
	header := []string{"NAME", "VERSION", "SIZE", "UPDATED"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		updated := "-"
		if !e.UpdatedAt.IsZero() {
			updated = e.UpdatedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{e.Name, dash(e.Version), fmt.Sprintf("%d", e.Size), updated})
	}
	out := table(header, rows, t, func(int, int) lipgloss.Style { return t.cell })
	return out + "\n" + t.detail.Render(fmt.Sprintf("%d blobs", len(entries)))
}

// table lays out rows in padded columns. style picks the style of a body
// cell; padding is computed on the unstyled text.
func table(header []string, rows [][]string, t theme, style func(row, col int) lipgloss.Style) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = t.header.Render(pad(h, widths[i]))
	}
	lines = append(lines, strings.TrimRight(strings.Join(cells, "  "), " "))

	for r, row := range rows {
		cells := make([]string, len(row))
		for c, cell := range row {
			cells[c] = style(r, c).Render(pad(cell, widths[c]))
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
	return strings.Join(lines, "\n")
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
