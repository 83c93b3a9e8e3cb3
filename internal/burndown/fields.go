package burndown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dt-pm-tools/burndown-sync/internal/jira"
)

// UnparsableFieldError is returned when a numeric custom field holds a value
// that cannot be read as a number.
type UnparsableFieldError struct {
	IssueKey string
	FieldID  string
	Value    string
	Err      error
}

func (e *UnparsableFieldError) Error() string {
	return fmt.Sprintf("issue %s: field %s value %q is not a number: %v", e.IssueKey, e.FieldID, e.Value, e.Err)
}

func (e *UnparsableFieldError) Unwrap() error { return e.Err }

// StoryPoints reads the story points custom field of an issue. An absent
// field is zero; a value of the wrong shape or a malformed number is an
// *UnparsableFieldError.
func StoryPoints(issue *jira.Issue, fieldID string) (float64, error) {
	field := issue.Field(fieldID)
	switch field.Kind {
	case jira.FieldAbsent:
		return 0, nil
	case jira.FieldText:
		if strings.TrimSpace(field.Text) == "" {
			return 0, nil
		}
		n, err := strconv.ParseFloat(NormalizeDecimal(field.Text), 64)
		if err != nil {
			return 0, &UnparsableFieldError{IssueKey: issue.Key, FieldID: fieldID, Value: field.Text, Err: err}
		}
		return n, nil
	default:
		value := string(field.Raw)
		if field.Kind == jira.FieldLabels {
			value = fmt.Sprint(field.Labels)
		}
		return 0, &UnparsableFieldError{
			IssueKey: issue.Key,
			FieldID:  fieldID,
			Value:    value,
			Err:      fmt.Errorf("field holds %s, not a number", field.Kind),
		}
	}
}

// FlagLabels reads a label-list custom field. A single option value counts
// as a one-element list; absent or other shapes yield no labels.
func FlagLabels(issue *jira.Issue, fieldID string) []string {
	field := issue.Field(fieldID)
	switch field.Kind {
	case jira.FieldLabels:
		return field.Labels
	case jira.FieldText:
		return []string{field.Text}
	default:
		return nil
	}
}

// NormalizeDecimal rewrites a locale-formatted number into the form
// strconv.ParseFloat accepts:
//
//   - surrounding whitespace is trimmed; inner spaces, NBSP and ' are
//     grouping and dropped
//   - with both ',' and '.', the right-most one is the decimal separator
//     and the other is grouping
//   - a single ',' is the decimal separator; several are grouping
//
// "1,234" therefore reads as 1.234, not 1234.
func NormalizeDecimal(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "").Replace(s)

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	default:
		return s
	}
}
