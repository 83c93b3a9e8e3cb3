package jira

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestDecodeFieldValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want FieldValue
	}{
		{"null", `null`, FieldValue{Kind: FieldAbsent}},
		{"string", `"3,5"`, FieldValue{Kind: FieldText, Text: "3,5"}},
		{"number", `3.5`, FieldValue{Kind: FieldText, Text: "3.5"}},
		{"value record", `{"value": "8"}`, FieldValue{Kind: FieldText, Text: "8"}},
		{"null value record", `{"value": null}`, FieldValue{Kind: FieldAbsent}},
		{"single option", `{"self": "x", "value": "Unplanned", "id": "1"}`, FieldValue{Kind: FieldText, Text: "Unplanned"}},
		{"label list", `["a", "b"]`, FieldValue{Kind: FieldLabels, Labels: []string{"a", "b"}}},
		{"option list", `[{"value": "a"}, {"name": "b"}, 42]`, FieldValue{Kind: FieldLabels, Labels: []string{"a", "b"}}},
		{"record of labels", `{"value": ["x"]}`, FieldValue{Kind: FieldLabels, Labels: []string{"x"}}},
		{"empty list", `[]`, FieldValue{Kind: FieldLabels, Labels: []string{}}},
		{"bool", `true`, FieldValue{Kind: FieldOther, Raw: json.RawMessage(`true`)}},
		{"object without value", `{"name": "x"}`, FieldValue{Kind: FieldOther, Raw: json.RawMessage(`{"name": "x"}`)}},
		{"nested object", `{"value": {"id": 1}}`, FieldValue{Kind: FieldOther, Raw: json.RawMessage(`{"id": 1}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeFieldValue(json.RawMessage(tt.raw))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeFieldValue(%s) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01T23:59:00.000+0000", time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)},
		{"2024-01-01T10:00:00+0200", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-01-01T10:00:00Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Errorf("ParseTime(%q) failed: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("ParseTime(yesterday) succeeded, want error")
	}
}

func TestFields_NullResolutionDate(t *testing.T) {
	var issue Issue
	if err := json.Unmarshal([]byte(`{"key":"A-1","fields":{"resolution":null,"resolutiondate":null}}`), &issue); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if issue.Fields.Resolution != nil || issue.Fields.ResolutionDate != nil {
		t.Errorf("resolution fields = %+v / %+v, want nil", issue.Fields.Resolution, issue.Fields.ResolutionDate)
	}
	if issue.Field("resolution").Kind != FieldAbsent {
		t.Error("null resolution should be absent in the field map")
	}
}
