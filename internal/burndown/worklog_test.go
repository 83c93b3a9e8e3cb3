package burndown

import (
	"testing"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/jira"
)

func TestDailyHours_SumsBeforeRounding(t *testing.T) {
	day := date(2024, time.January, 2, 0, 0)

	tests := []struct {
		name    string
		minutes []int
		want    int
	}{
		{"three 20 minute entries", []int{20, 20, 20}, 1},
		{"two 45 minute entries", []int{45, 45}, 2},
		{"30 and 40 minutes", []int{30, 40}, 1},
		{"half hour rounds up", []int{30}, 1},
		{"under half hour", []int{29}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []issueOption
			for i, m := range tt.minutes {
				opts = append(opts, worklog(day.Add(time.Duration(i)*time.Hour+9*time.Hour), m))
			}
			got := DailyHours(newIssue("A-1", opts...), time.UTC)

			if len(got) != 1 {
				t.Fatalf("DailyHours() = %v, want a single day", got)
			}
			if h := got[DayOf(day, time.UTC)]; h != tt.want {
				t.Errorf("hours = %d, want %d", h, tt.want)
			}
		})
	}
}

func TestDailyHours_GroupsByCalendarDay(t *testing.T) {
	issue := newIssue("A-1",
		worklog(date(2024, time.January, 2, 8, 0), 60),
		worklog(date(2024, time.January, 2, 23, 30), 60),
		worklog(date(2024, time.January, 3, 0, 15), 120),
	)

	got := DailyHours(issue, time.UTC)
	want := map[Day]int{
		{2024, time.January, 2}: 2,
		{2024, time.January, 3}: 2,
	}
	if len(got) != len(want) {
		t.Fatalf("DailyHours() = %v, want %v", got, want)
	}
	for day, h := range want {
		if got[day] != h {
			t.Errorf("hours[%s] = %d, want %d", day, got[day], h)
		}
	}
}

func TestDailyHours_UsesLocation(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	// 23:30 UTC is already the next day at UTC+1.
	issue := newIssue("A-1", worklog(date(2024, time.January, 2, 23, 30), 60))

	got := DailyHours(issue, berlin)
	if got[Day{2024, time.January, 3}] != 1 {
		t.Errorf("DailyHours() = %v, want the hour on 2024-01-03", got)
	}
}

func TestDailyHours_NoWorklog(t *testing.T) {
	if got := DailyHours(newIssue("A-1"), time.UTC); len(got) != 0 {
		t.Errorf("DailyHours() = %v, want empty", got)
	}

	issue := newIssue("A-2", func(i *jira.Issue) { i.Fields.Worklog = &jira.Worklogs{} })
	if got := DailyHours(issue, time.UTC); len(got) != 0 {
		t.Errorf("DailyHours() = %v, want empty", got)
	}
}

func TestSortedDays(t *testing.T) {
	days := sortedDays(map[Day]int{
		{2024, time.February, 1}: 1,
		{2023, time.December, 31}: 1,
		{2024, time.January, 15}: 1,
	})

	want := []string{"2023-12-31", "2024-01-15", "2024-02-01"}
	for i, d := range days {
		if d.String() != want[i] {
			t.Errorf("days[%d] = %s, want %s", i, d, want[i])
		}
	}
}
