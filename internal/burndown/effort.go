package burndown

import (
	"fmt"
	"strings"

	"github.com/dt-pm-tools/burndown-sync/internal/config"
	"github.com/dt-pm-tools/burndown-sync/internal/jira"
)

// EffortValue returns the planned effort of an issue under the team's
// effort mode: story points, or the original estimate in hours.
func EffortValue(team config.TeamSync, issue *jira.Issue) (float64, error) {
	switch team.EffortMode {
	case config.EffortStoryPoints:
		return StoryPoints(issue, team.StoryPointsFieldID)
	case config.EffortHours:
		return issue.Fields.TimeTracking.OriginalEstimateMinutes() / 60, nil
	default:
		return 0, fmt.Errorf("unknown effort mode %q", team.EffortMode)
	}
}

// IsUnplanned reports whether the issue's unplanned flag field carries a
// label equal (ignoring case) to the team's flag name.
func IsUnplanned(team config.TeamSync, issue *jira.Issue) bool {
	for _, label := range FlagLabels(issue, team.UnplannedFlagFieldID) {
		if strings.EqualFold(label, team.UnplannedFlagName) {
			return true
		}
	}
	return false
}

// countsAsUnplanned applies IsUnplanned only when the team tracks unplanned work.
func countsAsUnplanned(team config.TeamSync, issue *jira.Issue) bool {
	return team.Unplanned && IsUnplanned(team, issue)
}

// SprintGoal sums the effort of all planned issues.
func SprintGoal(team config.TeamSync, issues []*jira.Issue) (float64, error) {
	var goal float64
	for _, issue := range issues {
		if countsAsUnplanned(team, issue) {
			continue
		}
		v, err := EffortValue(team, issue)
		if err != nil {
			return 0, err
		}
		goal += v
	}
	return goal, nil
}
