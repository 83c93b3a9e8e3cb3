package burndown

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/config"
	"github.com/dt-pm-tools/burndown-sync/internal/jira"
)

// fakeSource serves issues from memory.
type fakeSource struct {
	mu        sync.Mutex
	keys      []string
	issues    map[string]*jira.Issue
	errs      map[string]error
	findErr   error
	versions  []string
	fetchDone []string
}

func (f *fakeSource) FindSprintIssues(ctx context.Context, projectKey, version string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions = append(f.versions, version)
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.keys, nil
}

func (f *fakeSource) GetIssue(ctx context.Context, key string) (*jira.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchDone = append(f.fetchDone, key)
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.issues[key], nil
}

func newFakeSource(issues ...*jira.Issue) *fakeSource {
	f := &fakeSource{issues: make(map[string]*jira.Issue), errs: make(map[string]error)}
	for _, issue := range issues {
		f.keys = append(f.keys, issue.Key)
		f.issues[issue.Key] = issue
	}
	return f
}

func newTestSyncer(source IssueSource) *Syncer {
	s := NewSyncer(source, log.New(io.Discard, "", 0))
	s.Location = time.UTC
	return s
}

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func hoursTeam() config.TeamSync {
	return config.TeamSync{
		Name:          "core",
		ProjectKey:    "CORE",
		VersionScheme: "Sprint {0}",
		EffortMode:    config.EffortHours,
	}
}

func pointsTeam() config.TeamSync {
	return config.TeamSync{
		Name:                 "core",
		ProjectKey:           "CORE",
		VersionScheme:        "Sprint {0}",
		EffortMode:           config.EffortStoryPoints,
		StoryPointsFieldID:   "customfield_10002",
		Unplanned:            true,
		UnplannedFlagFieldID: "customfield_10100",
		UnplannedFlagName:    "Unplanned",
	}
}

// issueOption mutates a test issue.
type issueOption func(*jira.Issue)

func newIssue(key string, opts ...issueOption) *jira.Issue {
	issue := &jira.Issue{Key: key, Fields: jira.Fields{Custom: map[string]jira.FieldValue{}}}
	for _, opt := range opts {
		opt(issue)
	}
	return issue
}

func resolvedAt(t time.Time) issueOption {
	return func(i *jira.Issue) {
		i.Fields.Resolution = &jira.Resolution{Name: "Done"}
		i.Fields.ResolutionDate = &jira.Time{Time: t}
	}
}

func estimateMinutes(m int) issueOption {
	return func(i *jira.Issue) {
		i.Fields.TimeTracking = &jira.TimeTracking{OriginalEstimateSeconds: m * 60}
	}
}

func storyPoints(v string) issueOption {
	return func(i *jira.Issue) {
		i.Fields.Custom["customfield_10002"] = jira.FieldValue{Kind: jira.FieldText, Text: v}
	}
}

func flagged(labels ...string) issueOption {
	return func(i *jira.Issue) {
		i.Fields.Custom["customfield_10100"] = jira.FieldValue{Kind: jira.FieldLabels, Labels: labels}
	}
}

func worklog(started time.Time, minutes int) issueOption {
	return func(i *jira.Issue) {
		if i.Fields.Worklog == nil {
			i.Fields.Worklog = &jira.Worklogs{}
		}
		i.Fields.Worklog.Worklogs = append(i.Fields.Worklog.Worklogs, jira.Worklog{
			Started:          jira.Time{Time: started},
			TimeSpentSeconds: minutes * 60,
		})
		i.Fields.Worklog.Total = len(i.Fields.Worklog.Worklogs)
	}
}

// testSprint builds a five-day sprint starting 2024-01-01 with buckets at noon.
func testSprint(id string) *Sprint {
	sprint := &Sprint{ID: id, Team: "core"}
	for d := 1; d <= 5; d++ {
		sprint.Efforts = append(sprint.Efforts, &SprintEffort{Date: date(2024, time.January, d, 12, 0)})
	}
	return sprint
}
