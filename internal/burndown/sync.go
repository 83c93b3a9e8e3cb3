package burndown

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/config"
	"github.com/dt-pm-tools/burndown-sync/internal/jira"
	"golang.org/x/sync/errgroup"
)

// IssueSource finds and fetches the issues of a sprint. *jira.Client
// implements it.
type IssueSource interface {
	FindSprintIssues(ctx context.Context, projectKey, version string) ([]string, error)
	// GetIssue returns nil, nil for an issue that does not exist.
	GetIssue(ctx context.Context, key string) (*jira.Issue, error)
}

// SyncError wraps any failure that aborted a sprint sync.
type SyncError struct {
	SprintID string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync of sprint %s failed: %v", e.SprintID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// EventKind classifies a condition that a sync absorbed instead of failing.
type EventKind string

const (
	EventNoIssues     EventKind = "no_issues"
	EventMissingIssue EventKind = "missing_issue"
	EventOutOfRange   EventKind = "out_of_range"
)

// Event records one absorbed condition of a sync.
type Event struct {
	Kind      EventKind `json:"kind"`
	IssueKey  string    `json:"issue_key,omitempty"`
	Date      time.Time `json:"date"`
	Planned   float64   `json:"planned,omitempty"`
	Unplanned float64   `json:"unplanned,omitempty"`
	Message   string    `json:"message"`
}

// Report summarizes a completed sync.
type Report struct {
	SprintID  string   `json:"sprint_id"`
	Version   string   `json:"version"`
	IssueKeys []string `json:"issue_keys"`
	Fetched   int      `json:"fetched"`
	Planned   float64  `json:"planned"`
	Events    []Event  `json:"events"`
}

// Count returns the number of events of a kind.
func (r *Report) Count(kind EventKind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Syncer recomputes sprints from an IssueSource.
type Syncer struct {
	source IssueSource
	logger *log.Logger

	// Workers bounds concurrent issue fetches; values below 2 fetch sequentially.
	Workers int
	// Location is the zone calendar days are taken in.
	Location *time.Location
}

// NewSyncer creates a Syncer. If logger is nil, a default logger writing to
// stderr is used.
func NewSyncer(source IssueSource, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Syncer{
		source:   source,
		logger:   logger,
		Workers:  1,
		Location: time.Local,
	}
}

// FormatVersion substitutes the sprint id for every {0} in the version scheme.
func FormatVersion(scheme, sprintID string) string {
	return strings.ReplaceAll(scheme, "{0}", sprintID)
}

// SyncSprint fetches the sprint's issues, recomputes the planned goal and
// redistributes all burned and unplanned effort over the sprint's buckets.
// Any failure is returned as a *SyncError; buckets mutated before the
// failure are not restored.
func (s *Syncer) SyncSprint(ctx context.Context, team config.TeamSync, sprint *Sprint) (*Report, error) {
	report, err := s.syncSprint(ctx, team, sprint)
	if err != nil {
		return nil, &SyncError{SprintID: sprint.ID, Err: err}
	}
	return report, nil
}

func (s *Syncer) syncSprint(ctx context.Context, team config.TeamSync, sprint *Sprint) (*Report, error) {
	if err := ValidateBuckets(sprint.Efforts, s.Location); err != nil {
		return nil, err
	}

	report := &Report{
		SprintID: sprint.ID,
		Version:  FormatVersion(team.VersionScheme, sprint.ID),
	}

	keys, err := s.source.FindSprintIssues(ctx, team.ProjectKey, report.Version)
	if err != nil {
		return nil, fmt.Errorf("finding issues of %q: %w", report.Version, err)
	}
	report.IssueKeys = keys

	if len(keys) == 0 {
		s.record(report, Event{
			Kind:    EventNoIssues,
			Message: fmt.Sprintf("No issues found for sync %s (version %q)", sprint.ID, report.Version),
		})
	}

	issues, err := s.fetchIssues(ctx, report, keys)
	if err != nil {
		return nil, err
	}
	report.Fetched = len(issues)

	goal, err := SprintGoal(team, issues)
	if err != nil {
		return nil, fmt.Errorf("calculating sprint goal: %w", err)
	}
	sprint.Planned = goal
	report.Planned = goal

	ResetEfforts(sprint.Efforts, team.Unplanned)

	if err := s.burnIssues(team, sprint, issues, report); err != nil {
		return nil, err
	}

	return report, nil
}

// fetchIssues loads all issues in key order, skipping absent ones. The first
// failure by key order is returned; keys after a failed one are not fetched.
func (s *Syncer) fetchIssues(ctx context.Context, report *Report, keys []string) ([]*jira.Issue, error) {
	fetched := make([]*jira.Issue, len(keys))
	errs := make([]error, len(keys))

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	// Lowest index that failed so far; later keys are no longer fetched.
	var firstFailed atomic.Int64
	firstFailed.Store(int64(len(keys)))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, key := range keys {
		if firstFailed.Load() < int64(i) {
			break
		}
		g.Go(func() error {
			if firstFailed.Load() < int64(i) {
				return nil
			}
			s.logger.Printf("Fetching issue %s", key)
			fetched[i], errs[i] = s.source.GetIssue(ctx, key)
			if errs[i] != nil {
				for {
					cur := firstFailed.Load()
					if cur <= int64(i) || firstFailed.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	issues := make([]*jira.Issue, 0, len(keys))
	for i, key := range keys {
		if errs[i] != nil {
			return nil, fmt.Errorf("fetching issue %s: %w", key, errs[i])
		}
		if fetched[i] == nil {
			s.record(report, Event{
				Kind:     EventMissingIssue,
				IssueKey: key,
				Message:  fmt.Sprintf("Issue %s could not be retrieved, skipping", key),
			})
			continue
		}
		issues = append(issues, fetched[i])
	}
	return issues, nil
}

func (s *Syncer) burnIssues(team config.TeamSync, sprint *Sprint, issues []*jira.Issue, report *Report) error {
	for _, issue := range issues {
		if issue.Fields.Resolution == nil || issue.Fields.ResolutionDate == nil || issue.Fields.ResolutionDate.IsZero() {
			continue
		}

		if countsAsUnplanned(team, issue) {
			hours := DailyHours(issue, s.Location)
			for _, day := range sortedDays(hours) {
				s.apply(sprint, report, issue.Key, day.Time(s.Location), 0, float64(hours[day]))
			}
			continue
		}

		planned, err := EffortValue(team, issue)
		if err != nil {
			return fmt.Errorf("valuing issue %s: %w", issue.Key, err)
		}
		s.apply(sprint, report, issue.Key, issue.Fields.ResolutionDate.Time, planned, 0)
	}
	return nil
}

func (s *Syncer) apply(sprint *Sprint, report *Report, issueKey string, date time.Time, planned, unplanned float64) {
	if Apply(sprint.Efforts, date, planned, unplanned, s.Location) {
		return
	}
	s.record(report, Event{
		Kind:      EventOutOfRange,
		IssueKey:  issueKey,
		Date:      date,
		Planned:   planned,
		Unplanned: unplanned,
		Message: fmt.Sprintf("Cannot add efforts for Issue %s, Sprint %s for Date %s because date is out of range",
			issueKey, sprint.ID, DayOf(date, s.Location)),
	})
}

func (s *Syncer) record(report *Report, e Event) {
	report.Events = append(report.Events, e)
	s.logger.Print(e.Message)
}
