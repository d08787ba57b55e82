package calendar

import (
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
)

func prop(value string, params map[string][]string) *ical.IANAProperty {
	return &ical.IANAProperty{BaseProperty: ical.BaseProperty{
		IANAToken:      "DTSTART",
		ICalParameters: params,
		Value:          value,
	}}
}

func TestParseTimeProp(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name       string
		p          *ical.IANAProperty
		want       time.Time
		wantAllDay bool
		wantErr    bool
	}{
		{
			name:       "date value",
			p:          prop("20240614", map[string][]string{"VALUE": {"DATE"}}),
			want:       time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC),
			wantAllDay: true,
		},
		{
			name:       "date without value parameter",
			p:          prop("20240614", nil),
			want:       time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC),
			wantAllDay: true,
		},
		{
			name: "utc date-time",
			p:    prop("20240610T090000Z", nil),
			want: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "tzid date-time",
			p:    prop("20240610T090000", map[string][]string{"TZID": {"America/New_York"}}),
			want: time.Date(2024, 6, 10, 9, 0, 0, 0, ny),
		},
		{
			name: "floating date-time",
			p:    prop("20240610T090000", nil),
			want: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "unknown tzid falls back",
			p:    prop("20240610T090000", map[string][]string{"TZID": {"Mars/Olympus"}}),
			want: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "garbage",
			p:       prop("tomorrow", nil),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, allDay, err := parseTimeProp(tt.p, time.UTC)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTimeProp() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTimeProp() = %v, want %v", got, tt.want)
			}
			if allDay != tt.wantAllDay {
				t.Errorf("parseTimeProp() allDay = %v, want %v", allDay, tt.wantAllDay)
			}
		})
	}
}

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"-PT10M", 10, true},
		{"-PT1H", 60, true},
		{"-PT1H30M", 90, true},
		{"-P1D", 1440, true},
		{"-P1DT2H", 1560, true},
		{"-P1W", 10080, true},
		{"PT0S", 0, true},
		{"-PT10", 0, false},
		{"-PTM", 0, false},
		{"10 minutes", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseTrigger(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("parseTrigger(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("parseTrigger(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	if got := formatTrigger(15); got != "-PT15M" {
		t.Errorf("formatTrigger(15) = %q", got)
	}
}

func TestSplitInstanceID(t *testing.T) {
	tests := []struct {
		id           string
		wantUID      string
		wantInstance string
		wantOK       bool
	}{
		{"abc_20240610T090000Z", "abc", "20240610T090000Z", true},
		{"my_event_20240614", "my_event", "20240614", true},
		{"plain-uid", "plain-uid", "", false},
		{"_20240614", "_20240614", "", false},
		{"trailing_", "trailing_", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			uid, inst, ok := splitInstanceID(tt.id)
			if uid != tt.wantUID || inst != tt.wantInstance || ok != tt.wantOK {
				t.Errorf("splitInstanceID(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.id, uid, inst, ok, tt.wantUID, tt.wantInstance, tt.wantOK)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	from, to := base, base.AddDate(0, 0, 7)

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside", base.Add(time.Hour), base.Add(2 * time.Hour), true},
		{"ends at window start", base.Add(-time.Hour), base, false},
		{"starts at window end", to, to.Add(time.Hour), false},
		{"spans window", base.Add(-time.Hour), to.Add(time.Hour), true},
		{"zero length inside", base, base, true},
		{"zero length at end", to, to, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlaps(tt.start, tt.end, from, to); got != tt.want {
				t.Errorf("overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/private/abc.ics?token=1", "https://example.com/...(redacted)"},
		{"https://example.com?token=1", "https://example.com/...(redacted)"},
		{"example.com/feed.ics", "ics://...(redacted)"},
	}
	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
