// Package burndown aggregates JIRA effort into a per-day sprint burndown.
//
// A Sprint owns one SprintEffort bucket per sprint day. SyncSprint recomputes
// the planned goal from the sprint's issues, resets the buckets and adds every
// resolved issue's effort to the bucket of the day it was resolved (planned
// work) or the days work was logged (unplanned work).
package burndown

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateBucketDate is returned when two buckets of a sprint share a day.
var ErrDuplicateBucketDate = errors.New("duplicate bucket date")

// Sprint is a time-boxed work period partitioned into daily buckets.
type Sprint struct {
	ID      string          `json:"id"`
	Team    string          `json:"team"`
	Planned float64         `json:"planned"`
	Efforts []*SprintEffort `json:"efforts"`
}

// SprintEffort is the effort completed on one sprint day.
type SprintEffort struct {
	Date      time.Time `json:"date"`
	Burned    float64   `json:"burned"`
	Unplanned float64   `json:"unplanned"`
}

// Day is a calendar day without time-of-day.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// Time returns midnight of the day in loc.
func (d Day) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Before reports whether d is earlier than other.
func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// NewSprint creates a sprint with one empty bucket per day, starting at start.
// With skipWeekends, Saturdays and Sundays get no bucket and do not count
// towards days.
func NewSprint(id, team string, start time.Time, days int, skipWeekends bool) (*Sprint, error) {
	if id == "" {
		return nil, fmt.Errorf("sprint id is required")
	}
	if days <= 0 {
		return nil, fmt.Errorf("sprint needs at least one day (got %d)", days)
	}

	sprint := &Sprint{ID: id, Team: team}
	day := DayOf(start, start.Location()).Time(start.Location())
	for len(sprint.Efforts) < days {
		if !skipWeekends || (day.Weekday() != time.Saturday && day.Weekday() != time.Sunday) {
			sprint.Efforts = append(sprint.Efforts, &SprintEffort{Date: day})
		}
		day = day.AddDate(0, 0, 1)
	}
	return sprint, nil
}

// ValidateBuckets checks that no two buckets fall on the same calendar day.
func ValidateBuckets(efforts []*SprintEffort, loc *time.Location) error {
	seen := make(map[Day]bool, len(efforts))
	for _, e := range efforts {
		day := DayOf(e.Date, loc)
		if seen[day] {
			return fmt.Errorf("%w: %s", ErrDuplicateBucketDate, day)
		}
		seen[day] = true
	}
	return nil
}
