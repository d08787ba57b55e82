package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/weekplan/internal/models"
)

func TestValidateSequenceName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
	}{
		{"valid", "Read", ""},
		{"empty", "", KindRequired},
		{"whitespace only", "   ", KindRequired},
		{"exactly fifty", strings.Repeat("a", 50), ""},
		{"fifty one", strings.Repeat("a", 51), KindTooLong},
		{"padded fifty", "  " + strings.Repeat("a", 50) + "  ", ""},
		{"multibyte fifty", strings.Repeat("é", 50), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateSequenceName(tt.input)
			if tt.wantKind == "" {
				if got != nil {
					t.Errorf("Expected valid, got %+v", got)
				}
				return
			}
			if got == nil || got.Kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %+v", tt.wantKind, got)
			}
		})
	}

	if got := ValidateSequenceName(""); got.Message != "Sequence name is required" {
		t.Errorf("Unexpected message %q", got.Message)
	}
}

func TestValidateSequenceDescription(t *testing.T) {
	if err := ValidateSequenceDescription(""); err != nil {
		t.Errorf("Expected empty description to be valid, got %v", err)
	}
	if err := ValidateSequenceDescription(strings.Repeat("x", 200)); err != nil {
		t.Errorf("Expected 200 characters to be valid, got %v", err)
	}
	err := ValidateSequenceDescription(strings.Repeat("x", 201))
	if err == nil || err.Kind != KindTooLong {
		t.Errorf("Expected too_long, got %+v", err)
	}
}

func TestValidateSequenceDescription_CountsWhitespace(t *testing.T) {
	tests := []struct {
		name    string
		desc    string
		wantErr bool
	}{
		{"padded to the limit", " " + strings.Repeat("x", 198) + " ", false},
		{"padding past the limit", "  " + strings.Repeat("x", 199), true},
		{"trailing newline past the limit", strings.Repeat("x", 200) + "\n", true},
		{"multibyte at the limit", strings.Repeat("é", 200), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSequenceDescription(tt.desc)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSequenceDescription() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCustomDays(t *testing.T) {
	tests := []struct {
		name     string
		pattern  models.DayPattern
		days     []time.Weekday
		wantKind Kind
	}{
		{"custom with days", models.PatternCustom, []time.Weekday{0, 6}, ""},
		{"custom without days", models.PatternCustom, nil, KindNoDays},
		{"fixed pattern without days", models.PatternWeekdays, nil, ""},
		{"out of range", models.PatternCustom, []time.Weekday{1, 7}, KindInvalidDay},
		{"negative", models.PatternCustom, []time.Weekday{-1}, KindInvalidDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateCustomDays(tt.pattern, tt.days)
			if tt.wantKind == "" {
				if got != nil {
					t.Errorf("Expected valid, got %+v", got)
				}
				return
			}
			if got == nil || got.Kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %+v", tt.wantKind, got)
			}
		})
	}
}

func TestValidateSequenceInput(t *testing.T) {
	valid := models.SequenceInput{Name: "Read", DayPattern: models.PatternWeekdays}
	if errs := ValidateSequenceInput(valid); errs.HasErrors() {
		t.Errorf("Expected valid input, got %v", errs)
	}

	errs := ValidateSequenceInput(models.SequenceInput{
		Name:        "",
		Description: strings.Repeat("d", 201),
		DayPattern:  models.PatternCustom,
		Color:       "#123456",
	})
	for _, field := range []string{FieldName, FieldDescription, FieldCustomDays, FieldColor} {
		if errs.Get(field) == "" {
			t.Errorf("Expected error for field %s, got %v", field, errs)
		}
	}
	if errs[FieldCustomDays].Message != "Please select at least one day" {
		t.Errorf("Unexpected custom days message %q", errs[FieldCustomDays].Message)
	}

	bad := ValidateSequenceInput(models.SequenceInput{Name: "x", DayPattern: "MONTHLY"})
	if bad[FieldDayPattern] == nil || bad[FieldDayPattern].Kind != KindInvalidPattern {
		t.Errorf("Expected invalid pattern error, got %v", bad)
	}
}

func TestValidateEventDraft(t *testing.T) {
	tests := []struct {
		name      string
		draft     models.EventDraft
		wantField string
		wantKind  Kind
	}{
		{
			name:  "valid timed",
			draft: models.EventDraft{Summary: "Standup", StartDate: "2024-06-14", StartTime: "09:00", EndTime: "09:15"},
		},
		{
			name:  "valid all day",
			draft: models.EventDraft{Summary: "Holiday", StartDate: "2024-06-14", EndDate: "2024-06-14", AllDay: true},
		},
		{
			name:      "missing title",
			draft:     models.EventDraft{Summary: "  ", StartDate: "2024-06-14"},
			wantField: FieldSummary,
			wantKind:  KindRequired,
		},
		{
			name:      "title too long",
			draft:     models.EventDraft{Summary: strings.Repeat("t", 255), StartDate: "2024-06-14"},
			wantField: FieldSummary,
			wantKind:  KindTooLong,
		},
		{
			name:      "bad start date",
			draft:     models.EventDraft{Summary: "x", StartDate: "14/06/2024"},
			wantField: "startDate",
			wantKind:  KindInvalidFormat,
		},
		{
			name:      "end before start",
			draft:     models.EventDraft{Summary: "x", StartDate: "2024-06-14", StartTime: "10:00", EndTime: "09:00"},
			wantField: FieldEnd,
			wantKind:  KindEndBeforeStart,
		},
		{
			name:      "zero length",
			draft:     models.EventDraft{Summary: "x", StartDate: "2024-06-14", StartTime: "10:00", EndTime: "10:00"},
			wantField: FieldEnd,
			wantKind:  KindEndBeforeStart,
		},
		{
			name:      "longer than a day",
			draft:     models.EventDraft{Summary: "x", StartDate: "2024-06-14", StartTime: "09:00", EndDate: "2024-06-15", EndTime: "09:01"},
			wantField: FieldEnd,
			wantKind:  KindTooLongEvent,
		},
		{
			name:      "all day ending before start",
			draft:     models.EventDraft{Summary: "x", StartDate: "2024-06-14", EndDate: "2024-06-13", AllDay: true},
			wantField: FieldEnd,
			wantKind:  KindEndBeforeStart,
		},
		{
			name:      "negative reminder",
			draft:     models.EventDraft{Summary: "x", StartDate: "2024-06-14", NotificationMinutes: ptr(-5)},
			wantField: "notificationMinutes",
			wantKind:  KindOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEventDraft(tt.draft, time.UTC)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Expected valid draft, got %v", err)
				}
				return
			}
			errs, ok := AsFieldErrors(err)
			if !ok {
				t.Fatalf("Expected FieldErrors, got %v", err)
			}
			fe := errs[tt.wantField]
			if fe == nil || fe.Kind != tt.wantKind {
				t.Errorf("Expected %s/%s, got %v", tt.wantField, tt.wantKind, errs)
			}
		})
	}
}

func TestFieldErrors_Error(t *testing.T) {
	errs := FieldErrors{}
	errs.add(&FieldError{Field: "b", Message: "second"})
	errs.add(&FieldError{Field: "a", Message: "first"})
	errs.add(&FieldError{Field: "a", Message: "ignored"})

	if got := errs.Error(); got != "first; second" {
		t.Errorf("Error() = %q", got)
	}
}

func ptr(n int) *int { return &n }
