package burndown

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dt-pm-tools/burndown-sync/internal/config"
	"github.com/dt-pm-tools/burndown-sync/internal/jira"
)

func TestNormalizeDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3.5", "3.5"},
		{"3,5", "3.5"},
		{" 8 ", "8"},
		{"1.234,5", "1234.5"},
		{"1,234.5", "1234.5"},
		{"1,234,567", "1234567"},
		{"1 234,5", "1234.5"},
		{"1\u00a0234,5", "1234.5"},
		{"1'234.5", "1234.5"},
		{"1,234", "1.234"},
	}

	for _, tt := range tests {
		if got := NormalizeDecimal(tt.in); got != tt.want {
			t.Errorf("NormalizeDecimal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStoryPoints(t *testing.T) {
	const field = "customfield_10002"

	tests := []struct {
		name      string
		issue     *jira.Issue
		want      float64
		wantErr   bool
		wantValue string
	}{
		{"absent", newIssue("A-1"), 0, false, ""},
		{"dot decimal", newIssue("A-2", storyPoints("5.0")), 5, false, ""},
		{"comma decimal", newIssue("A-3", storyPoints("3,5")), 3.5, false, ""},
		{"blank", newIssue("A-4", storyPoints("  ")), 0, false, ""},
		{"malformed", newIssue("A-5", storyPoints("three")), 0, true, "three"},
		{"wrong shape", newIssue("A-6", func(i *jira.Issue) {
			i.Fields.Custom[field] = jira.FieldValue{Kind: jira.FieldLabels, Labels: []string{"3"}}
		}), 0, true, "[3]"},
		{"bool", newIssue("A-7", func(i *jira.Issue) {
			i.Fields.Custom[field] = jira.DecodeFieldValue(json.RawMessage(`true`))
		}), 0, true, "true"},
		{"object", newIssue("A-8", func(i *jira.Issue) {
			i.Fields.Custom[field] = jira.DecodeFieldValue(json.RawMessage(`{"id":1}`))
		}), 0, true, `{"id":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StoryPoints(tt.issue, field)
			if tt.wantErr {
				var fieldErr *UnparsableFieldError
				if !errors.As(err, &fieldErr) {
					t.Fatalf("StoryPoints() error = %v, want *UnparsableFieldError", err)
				}
				if fieldErr.IssueKey != tt.issue.Key || fieldErr.FieldID != field {
					t.Errorf("error context = %+v", fieldErr)
				}
				if fieldErr.Value != tt.wantValue {
					t.Errorf("error value = %q, want %q", fieldErr.Value, tt.wantValue)
				}
				return
			}
			if err != nil {
				t.Fatalf("StoryPoints() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("StoryPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffortValue_Hours(t *testing.T) {
	got, err := EffortValue(hoursTeam(), newIssue("A-1", estimateMinutes(180)))
	if err != nil {
		t.Fatalf("EffortValue() failed: %v", err)
	}
	if got != 3.0 {
		t.Errorf("EffortValue() = %v, want 3.0", got)
	}

	got, err = EffortValue(hoursTeam(), newIssue("A-2"))
	if err != nil || got != 0 {
		t.Errorf("EffortValue() without time tracking = %v, %v; want 0, nil", got, err)
	}
}

func TestEffortValue_HoursIgnoresStoryPoints(t *testing.T) {
	team := hoursTeam()
	team.StoryPointsFieldID = "customfield_10002"

	got, err := EffortValue(team, newIssue("A-1", storyPoints("13"), estimateMinutes(90)))
	if err != nil {
		t.Fatalf("EffortValue() failed: %v", err)
	}
	if got != 1.5 {
		t.Errorf("EffortValue() = %v, want 1.5", got)
	}
}

func TestEffortValue_StoryPoints(t *testing.T) {
	got, err := EffortValue(pointsTeam(), newIssue("A-1", storyPoints("3,5"), estimateMinutes(600)))
	if err != nil {
		t.Fatalf("EffortValue() failed: %v", err)
	}
	if got != 3.5 {
		t.Errorf("EffortValue() = %v, want 3.5", got)
	}
}

func TestEffortValue_UnknownMode(t *testing.T) {
	team := hoursTeam()
	team.EffortMode = config.EffortMode("DAYS")
	if _, err := EffortValue(team, newIssue("A-1")); err == nil {
		t.Fatal("EffortValue() succeeded, want error")
	}
}

func TestIsUnplanned(t *testing.T) {
	team := pointsTeam()

	tests := []struct {
		name  string
		issue *jira.Issue
		want  bool
	}{
		{"exact", newIssue("A-1", flagged("Unplanned")), true},
		{"lower case", newIssue("A-2", flagged("unplanned")), true},
		{"upper case", newIssue("A-3", flagged("Other", "UNPLANNED")), true},
		{"other labels", newIssue("A-4", flagged("Planned", "Bug")), false},
		{"empty list", newIssue("A-5", flagged()), false},
		{"absent field", newIssue("A-6"), false},
		{"single option", newIssue("A-7", func(i *jira.Issue) {
			i.Fields.Custom["customfield_10100"] = jira.FieldValue{Kind: jira.FieldText, Text: "unplanned"}
		}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnplanned(team, tt.issue); got != tt.want {
				t.Errorf("IsUnplanned() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSprintGoal(t *testing.T) {
	issues := []*jira.Issue{
		newIssue("A-1", storyPoints("3")),
		newIssue("A-2", storyPoints("5"), flagged("Unplanned")),
		newIssue("A-3", storyPoints("2,5")),
	}

	team := pointsTeam()
	goal, err := SprintGoal(team, issues)
	if err != nil {
		t.Fatalf("SprintGoal() failed: %v", err)
	}
	if goal != 5.5 {
		t.Errorf("SprintGoal() with unplanned tracking = %v, want 5.5", goal)
	}

	team.Unplanned = false
	goal, err = SprintGoal(team, issues)
	if err != nil {
		t.Fatalf("SprintGoal() failed: %v", err)
	}
	if goal != 10.5 {
		t.Errorf("SprintGoal() without unplanned tracking = %v, want 10.5", goal)
	}
}
