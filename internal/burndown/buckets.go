package burndown

import (
	"time"
)

// ResetEfforts zeroes burned on every bucket, and unplanned too when the team
// tracks unplanned work.
func ResetEfforts(efforts []*SprintEffort, unplanned bool) {
	for _, e := range efforts {
		e.Burned = 0
		if unplanned {
			e.Unplanned = 0
		}
	}
}

// Apply adds the deltas to the first bucket on the same calendar day as date
// and reports whether one matched. Time of day is ignored on both sides.
func Apply(efforts []*SprintEffort, date time.Time, planned, unplanned float64, loc *time.Location) bool {
	day := DayOf(date, loc)
	for _, e := range efforts {
		if DayOf(e.Date, loc) != day {
			continue
		}
		e.Burned += planned
		e.Unplanned += unplanned
		return true
	}
	return false
}
