package markdown

import (
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/burndown"
)

// BurndownRow is one sprint day of the rendered burndown.
type BurndownRow struct {
	Date      time.Time
	Burned    float64
	Unplanned float64
	Remaining float64 // planned minus cumulative burned
	Ideal     float64 // linear burndown from planned to zero
}

// Rows derives the burndown table of a sprint.
func Rows(sprint *burndown.Sprint) []BurndownRow {
	n := len(sprint.Efforts)
	rows := make([]BurndownRow, 0, n)

	remaining := sprint.Planned
	for i, e := range sprint.Efforts {
		remaining -= e.Burned
		rows = append(rows, BurndownRow{
			Date:      e.Date,
			Burned:    e.Burned,
			Unplanned: e.Unplanned,
			Remaining: remaining,
			Ideal:     sprint.Planned * float64(n-i-1) / float64(n),
		})
	}
	return rows
}
