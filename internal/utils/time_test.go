package utils

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{name: "zero", ms: 0, want: "00:00:00"},
		{name: "sub-second truncates", ms: 999, want: "00:00:00"},
		{name: "ninety seconds", ms: 90000, want: "00:01:30"},
		{name: "one hour one minute one second", ms: 3661000, want: "01:01:01"},
		{name: "more than a day", ms: 25 * 3600 * 1000, want: "25:00:00"},
		{name: "negative clamps to zero", ms: -5000, want: "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.ms); got != tt.want {
				t.Errorf("FormatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

func TestFormatHoursMinutes(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{ms: 0, want: "0h 00m"},
		{ms: 99000, want: "0h 01m"},
		{ms: 3900000, want: "1h 05m"},
	}

	for _, tt := range tests {
		if got := FormatHoursMinutes(tt.ms); got != tt.want {
			t.Errorf("FormatHoursMinutes(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestISOWeek(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		wantYear int
		wantWeek int
	}{
		{name: "first monday of 2024", date: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), wantYear: 2024, wantWeek: 1},
		{name: "sunday belongs to previous ISO year", date: time.Date(2021, 1, 3, 12, 0, 0, 0, time.UTC), wantYear: 2020, wantWeek: 53},
		{name: "late december in week 1", date: time.Date(2024, 12, 30, 8, 0, 0, 0, time.UTC), wantYear: 2025, wantWeek: 1},
		{name: "mid year", date: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC), wantYear: 2026, wantWeek: 43},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, week := ISOWeek(tt.date)
			if year != tt.wantYear || week != tt.wantWeek {
				t.Errorf("ISOWeek(%v) = (%d, %d), want (%d, %d)", tt.date, year, week, tt.wantYear, tt.wantWeek)
			}
		})
	}
}

func TestIsWeekend(t *testing.T) {
	tests := []struct {
		date time.Time
		want bool
	}{
		{date: time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC), want: false}, // Friday
		{date: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), want: true},  // Saturday
		{date: time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC), want: true},  // Sunday
		{date: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), want: false}, // Monday
	}

	for _, tt := range tests {
		if got := IsWeekend(tt.date); got != tt.want {
			t.Errorf("IsWeekend(%s) = %v, want %v", tt.date.Weekday(), got, tt.want)
		}
	}
}

func TestStartAndEndOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	ts := time.Date(2026, 10, 19, 15, 30, 12, 0, loc)

	start := StartOfDay(ts)
	if !start.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, loc)) {
		t.Errorf("StartOfDay() = %v", start)
	}

	end := EndOfDay(ts)
	if !end.Equal(time.Date(2026, 10, 19, 23, 59, 59, int(999*time.Millisecond), loc)) {
		t.Errorf("EndOfDay() = %v", end)
	}

	if !IsSameDay(start, end) {
		t.Error("IsSameDay(start, end) = false, want true")
	}
	if IsSameDay(start, end.Add(time.Millisecond)) {
		t.Error("IsSameDay(start, next midnight) = true, want false")
	}
}

func TestWeekendEnd(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want time.Time
	}{
		{
			name: "wednesday ends on coming sunday",
			date: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
			want: time.Date(2026, 10, 18, 23, 59, 59, int(999*time.Millisecond), time.UTC),
		},
		{
			name: "saturday ends next day",
			date: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
			want: time.Date(2026, 10, 18, 23, 59, 59, int(999*time.Millisecond), time.UTC),
		},
		{
			name: "sunday rolls to following sunday",
			date: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
			want: time.Date(2026, 10, 25, 23, 59, 59, int(999*time.Millisecond), time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekendEnd(tt.date); !got.Equal(tt.want) {
				t.Errorf("WeekendEnd() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{name: "empty string returns local", timezone: "", wantErr: false},
		{name: "Local returns local", timezone: "Local", wantErr: false},
		{name: "valid timezone UTC", timezone: "UTC", wantErr: false},
		{name: "valid timezone Europe/Riga", timezone: "Europe/Riga", wantErr: false},
		{name: "invalid timezone", timezone: "Invalid/Timezone", wantErr: true},
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

func TestParseTimeToMinutes(t *testing.T) {
	got, err := ParseTimeToMinutes("07:30")
	if err != nil {
		t.Fatalf("ParseTimeToMinutes() error = %v", err)
	}
	if got != 450 {
		t.Errorf("ParseTimeToMinutes(07:30) = %d, want 450", got)
	}

	if _, err := ParseTimeToMinutes("7.30"); err == nil {
		t.Error("ParseTimeToMinutes(7.30) should fail")
	}
	if ValidateTimeFormat("25:00") {
		t.Error("ValidateTimeFormat(25:00) = true, want false")
	}
	if !ValidateTimezone("Local") {
		t.Error("ValidateTimezone(Local) = false, want true")
	}
}
