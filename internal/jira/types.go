package jira

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Issue represents a JIRA issue from the REST API v2.
type Issue struct {
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
}

// Fields contains the issue fields the burndown sync reads. Every field of
// the response, including the known ones, is also kept in Custom so that
// dynamically keyed custom fields can be looked up by id.
type Fields struct {
	Summary        string        `json:"summary"`
	Resolution     *Resolution   `json:"resolution,omitempty"`
	ResolutionDate *Time         `json:"resolutiondate,omitempty"`
	TimeTracking   *TimeTracking `json:"timetracking,omitempty"`
	Worklog        *Worklogs     `json:"worklog,omitempty"`

	Custom map[string]FieldValue `json:"-"`
}

// UnmarshalJSON decodes the known fields and the raw custom field map.
func (f *Fields) UnmarshalJSON(data []byte) error {
	type known Fields
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = Fields(k)
	f.Custom = make(map[string]FieldValue, len(raw))
	for id, msg := range raw {
		f.Custom[id] = DecodeFieldValue(msg)
	}
	return nil
}

// Resolution is the resolution state of an issue (e.g. "Done", "Fixed").
type Resolution struct {
	Name string `json:"name"`
}

// TimeTracking holds the time tracking estimates of an issue.
type TimeTracking struct {
	OriginalEstimate        string `json:"originalEstimate,omitempty"`
	OriginalEstimateSeconds int    `json:"originalEstimateSeconds"`
	RemainingEstimate       string `json:"remainingEstimate,omitempty"`
	TimeSpentSeconds        int    `json:"timeSpentSeconds,omitempty"`
}

// OriginalEstimateMinutes returns the original estimate in minutes.
func (t *TimeTracking) OriginalEstimateMinutes() float64 {
	if t == nil {
		return 0
	}
	return float64(t.OriginalEstimateSeconds) / 60
}

// Worklogs wraps the worklog list embedded in an issue. JIRA truncates the
// embedded list; Total is the full count.
type Worklogs struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Worklogs   []Worklog `json:"worklogs"`
}

// Truncated reports whether JIRA returned fewer entries than exist.
func (w *Worklogs) Truncated() bool {
	return w != nil && w.Total > len(w.Worklogs)
}

// Worklog is one unit of logged work.
type Worklog struct {
	ID               string `json:"id,omitempty"`
	Author           *User  `json:"author,omitempty"`
	Started          Time   `json:"started"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

// MinutesSpent returns the logged time in minutes.
func (w Worklog) MinutesSpent() float64 {
	return float64(w.TimeSpentSeconds) / 60
}

// User represents a JIRA user.
type User struct {
	Name         string `json:"name,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
	DisplayName  string `json:"displayName"`
}

// SearchResponse is a page of issue search results. Jira Cloud's
// /rest/api/3/search/jql pages by NextPageToken and IsLast; the legacy
// /rest/api/2/search pages by StartAt and Total.
type SearchResponse struct {
	StartAt         int      `json:"startAt"`
	MaxResults      int      `json:"maxResults"`
	Total           int      `json:"total"`
	Issues          []Issue  `json:"issues"`
	NextPageToken   string   `json:"nextPageToken,omitempty"`
	IsLast          bool     `json:"isLast"`
	WarningMessages []string `json:"warningMessages,omitempty"`
}

// Time is a JIRA timestamp. JIRA writes offsets without a colon
// (2024-01-01T10:00:00.000+0100), which time.RFC3339 does not accept.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseTime parses a JIRA timestamp in any of the layouts the API emits.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized JIRA timestamp %q", s)
}

// UnmarshalJSON accepts a JIRA timestamp string or null.
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON writes the timestamp in JIRA's layout.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05.000-0700"))
}

// FieldKind tags the shape of a custom field value.
type FieldKind int

const (
	// FieldAbsent is a missing or null field.
	FieldAbsent FieldKind = iota
	// FieldText is a scalar: a string, a number, or a single option.
	FieldText
	// FieldLabels is a list of label strings or option values.
	FieldLabels
	// FieldOther is any shape the sync does not interpret.
	FieldOther
)

func (k FieldKind) String() string {
	switch k {
	case FieldAbsent:
		return "absent"
	case FieldText:
		return "text"
	case FieldLabels:
		return "labels"
	default:
		return "other"
	}
}

// FieldValue is a typed view of one loosely typed JIRA field.
type FieldValue struct {
	Kind   FieldKind
	Text   string
	Labels []string
	// Raw holds the undecoded JSON of a FieldOther value.
	Raw json.RawMessage
}

// DecodeFieldValue classifies a raw field value. Accepted shapes:
//
//	"3,5" | 3.5                       -> FieldText
//	{"value": <any accepted shape>}    -> the inner value
//	["a", "b"]                         -> FieldLabels
//	[{"value": "a"}, {"name": "b"}]    -> FieldLabels
//
// Anything else is FieldOther with its JSON kept in Raw.
func DecodeFieldValue(raw json.RawMessage) FieldValue {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return FieldValue{Kind: FieldAbsent}
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return other(trimmed)
		}
		return FieldValue{Kind: FieldText, Text: s}
	case '{':
		var record map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &record); err != nil {
			return other(trimmed)
		}
		if inner, ok := record["value"]; ok {
			return DecodeFieldValue(inner)
		}
		return other(trimmed)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return other(trimmed)
		}
		labels := make([]string, 0, len(items))
		for _, item := range items {
			if label, ok := optionLabel(item); ok {
				labels = append(labels, label)
			}
		}
		return FieldValue{Kind: FieldLabels, Labels: labels}
	case 't', 'f':
		return other(trimmed)
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return other(trimmed)
		}
		return FieldValue{Kind: FieldText, Text: n.String()}
	}
}

func other(raw []byte) FieldValue {
	return FieldValue{Kind: FieldOther, Raw: append(json.RawMessage(nil), raw...)}
}

func optionLabel(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var option struct {
		Value *string `json:"value"`
		Name  *string `json:"name"`
	}
	if err := json.Unmarshal(raw, &option); err != nil {
		return "", false
	}
	switch {
	case option.Value != nil:
		return *option.Value, true
	case option.Name != nil:
		return *option.Name, true
	}
	return "", false
}

// Field returns the typed value of a field by id; missing ids are absent.
func (i *Issue) Field(id string) FieldValue {
	if i == nil || i.Fields.Custom == nil {
		return FieldValue{Kind: FieldAbsent}
	}
	v, ok := i.Fields.Custom[strings.TrimSpace(id)]
	if !ok {
		return FieldValue{Kind: FieldAbsent}
	}
	return v
}
