package utils

import (
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{
			name:     "empty string returns local",
			timezone: "",
			wantErr:  false,
		},
		{
			name:     "Local returns local",
			timezone: "Local",
			wantErr:  false,
		},
		{
			name:     "valid timezone UTC",
			timezone: "UTC",
			wantErr:  false,
		},
		{
			name:     "valid timezone America/New_York",
			timezone: "America/New_York",
			wantErr:  false,
		},
		{
			name:     "invalid timezone",
			timezone: "Invalid/Timezone",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadLocation() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && loc == nil {
				t.Errorf("LoadLocation() returned nil location without error")
			}
		})
	}
}

func TestParseISO(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "date only",
			value: "2024-06-14",
			want:  time.Date(2024, 6, 14, 0, 0, 0, 0, loc),
		},
		{
			name:  "rfc3339 with offset",
			value: "2024-06-14T10:30:00-07:00",
			want:  time.Date(2024, 6, 14, 17, 30, 0, 0, time.UTC),
		},
		{
			name:  "local date-time without offset",
			value: "2024-06-14T09:00:00",
			want:  time.Date(2024, 6, 14, 9, 0, 0, 0, loc),
		},
		{
			name:  "date-time without seconds",
			value: "2024-06-14T09:15",
			want:  time.Date(2024, 6, 14, 9, 15, 0, 0, loc),
		},
		{
			name:    "empty",
			value:   "",
			wantErr: true,
		},
		{
			name:    "garbage",
			value:   "June 14th",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseISO(tt.value, loc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseISO(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseISO(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestStartOfWeek(t *testing.T) {
	// 2024-06-15 is a Saturday.
	sat := time.Date(2024, 6, 15, 18, 45, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input time.Time
		start time.Weekday
		want  time.Time
	}{
		{
			name:  "sunday start",
			input: sat,
			start: time.Sunday,
			want:  time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "monday start",
			input: sat,
			start: time.Monday,
			want:  time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "monday start on a sunday",
			input: time.Date(2024, 6, 16, 8, 0, 0, 0, time.UTC),
			start: time.Monday,
			want:  time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "already the first day",
			input: time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
			start: time.Sunday,
			want:  time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartOfWeek(tt.input, tt.start)
			if !got.Equal(tt.want) {
				t.Errorf("StartOfWeek() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeekDays(t *testing.T) {
	start := time.Date(2024, 12, 29, 0, 0, 0, 0, time.UTC)
	days := WeekDays(start)
	if len(days) != 7 {
		t.Fatalf("WeekDays() returned %d days, want 7", len(days))
	}
	if got := DateKey(days[6]); got != "2025-01-04" {
		t.Errorf("last day = %s, want 2025-01-04", got)
	}
}

func TestEndOfDayAndSameDay(t *testing.T) {
	d := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	end := EndOfDay(d)
	if !SameDay(d, end, time.UTC) {
		t.Errorf("EndOfDay(%v) = %v, not on the same day", d, end)
	}
	if SameDay(end, end.Add(time.Nanosecond), time.UTC) {
		t.Errorf("EndOfDay() + 1ns should be the next day")
	}
}

func TestParseWeekStart(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"", time.Sunday, false},
		{"Sunday", time.Sunday, false},
		{"monday", time.Monday, false},
		{"1", time.Monday, false},
		{"friday", time.Sunday, true},
	}
	for _, tt := range tests {
		got, err := ParseWeekStart(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWeekStart(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWeekStart(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCombineDateAndTime(t *testing.T) {
	got, err := CombineDateAndTime("2024-06-15", "09:30", time.UTC)
	if err != nil {
		t.Fatalf("CombineDateAndTime() error = %v", err)
	}
	want := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("CombineDateAndTime() = %v, want %v", got, want)
	}

	if _, err := CombineDateAndTime("2024/06/15", "09:30", time.UTC); err == nil {
		t.Error("expected error for invalid date")
	}
	if _, err := CombineDateAndTime("2024-06-15", "9am", time.UTC); err == nil {
		t.Error("expected error for invalid time")
	}
}
