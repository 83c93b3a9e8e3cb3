package markdown

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/burndown"
)

// MarshalSprint renders a sprint burndown as markdown with YAML frontmatter.
// report may be nil; when given, its events are listed below the table.
func MarshalSprint(sprint *burndown.Sprint, report *burndown.Report) (string, error) {
	if sprint == nil {
		return "", fmt.Errorf("no sprint to render")
	}

	rows := Rows(sprint)

	var burned, unplanned float64
	for _, r := range rows {
		burned += r.Burned
		unplanned += r.Unplanned
	}

	var b strings.Builder

	// YAML frontmatter (generated; edits are overwritten by the next sync)
	b.WriteString("---\n")
	b.WriteString("# Generated from the sprint database. Changes here are NOT synced back.\n")
	b.WriteString(fmt.Sprintf("sprint: %s\n", yamlString(sprint.ID)))
	b.WriteString(fmt.Sprintf("team: %s\n", yamlString(sprint.Team)))
	if report != nil && report.Version != "" {
		b.WriteString(fmt.Sprintf("version: %s\n", yamlString(report.Version)))
	}
	b.WriteString(fmt.Sprintf("planned: %s\n", formatNumber(sprint.Planned)))
	b.WriteString(fmt.Sprintf("burned: %s\n", formatNumber(burned)))
	b.WriteString(fmt.Sprintf("unplanned: %s\n", formatNumber(unplanned)))
	if len(rows) > 0 {
		b.WriteString(fmt.Sprintf("start: %s\n", rows[0].Date.Format("2006-01-02")))
		b.WriteString(fmt.Sprintf("end: %s\n", rows[len(rows)-1].Date.Format("2006-01-02")))
	}
	b.WriteString(fmt.Sprintf("rendered: %s\n", time.Now().UTC().Format(time.RFC3339)))
	b.WriteString("---\n\n")

	b.WriteString(fmt.Sprintf("# Sprint %s burndown\n\n", sprint.ID))

	if len(rows) == 0 {
		b.WriteString("(No sprint days)\n")
		return b.String(), nil
	}

	table := [][]string{{"Day", "Burned", "Unplanned", "Remaining", "Ideal"}}
	for _, r := range rows {
		table = append(table, []string{
			r.Date.Format("Mon 2006-01-02"),
			formatNumber(r.Burned),
			formatNumber(r.Unplanned),
			formatNumber(r.Remaining),
			formatNumber(r.Ideal),
		})
	}
	writeTable(&b, table)

	if report != nil && len(report.Events) > 0 {
		b.WriteString("## Sync notes\n\n")
		for _, e := range report.Events {
			b.WriteString(fmt.Sprintf("- `%s` %s\n", e.Kind, e.Message))
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

// writeTable writes rows as a markdown table; the first row is the header.
func writeTable(b *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	b.WriteString("| ")
	b.WriteString(strings.Join(padRow(rows[0], maxCols), " | "))
	b.WriteString(" |\n")

	sep := make([]string, maxCols)
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| ")
	b.WriteString(strings.Join(sep, " | "))
	b.WriteString(" |\n")

	for _, row := range rows[1:] {
		b.WriteString("| ")
		b.WriteString(strings.Join(padRow(row, maxCols), " | "))
		b.WriteString(" |\n")
	}
	b.WriteString("\n")
}

func padRow(row []string, cols int) []string {
	for len(row) < cols {
		row = append(row, "")
	}
	return row
}

// formatNumber prints at most two decimals and drops trailing zeros.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// yamlString quotes a frontmatter value when it would not read back as the
// same plain string.
func yamlString(s string) string {
	if s == "" || s != strings.TrimSpace(s) ||
		strings.ContainsAny(s, "\n\t\"") ||
		strings.Contains(s, ": ") || strings.Contains(s, " #") || strings.HasSuffix(s, ":") ||
		strings.ContainsRune("#&*!|>'%@`-?[]{},", rune(s[0])) {
		return strconv.Quote(s)
	}
	return s
}
