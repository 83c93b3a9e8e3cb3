package burndown

import (
	"math"
	"sort"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/jira"
)

// DailyHours groups an issue's worklog by the calendar day (in loc) each
// entry started, sums the minutes per day and rounds each day's total to
// whole hours once.
func DailyHours(issue *jira.Issue, loc *time.Location) map[Day]int {
	result := make(map[Day]int)
	if issue == nil || issue.Fields.Worklog == nil {
		return result
	}

	minutes := make(map[Day]float64)
	for _, w := range issue.Fields.Worklog.Worklogs {
		if w.Started.IsZero() {
			continue
		}
		minutes[DayOf(w.Started.Time, loc)] += w.MinutesSpent()
	}

	for day, total := range minutes {
		result[day] = int(math.Round(total / 60))
	}
	return result
}

// sortedDays returns the keys of a day map in ascending order.
func sortedDays(m map[Day]int) []Day {
	days := make([]Day, 0, len(m))
	for d := range m {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
