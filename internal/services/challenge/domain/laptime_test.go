package domain

import (
	stderrors "errors"
	"testing"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/errors"
)

func TestParseLapTime(t *testing.T) {
	tests := []struct {
		input string
		want  LapTime
	}{
		{"2:23.640", 143640},
		{"0:45.123", 45123},
		{"02:23.640", 143640},
		{"0:00.001", 1},
		{"9:59.999", 599999},
		{" 1:30.000 ", 90000},
	}
	for _, tc := range tests {
		got, err := ParseLapTime(tc.input)
		if err != nil {
			t.Errorf("ParseLapTime(%q): %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLapTime(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestParseLapTimeRejectsBadFormats(t *testing.T) {
	tests := []string{
		"",
		"invalid",
		"2:23",
		"2:23.64",
		"2:23.6400",
		"12:23.640",
		"2:60.000",
		"2:23,640",
		"-2:23.640",
	}
	for _, input := range tests {
		_, err := ParseLapTime(input)
		if err == nil {
			t.Errorf("ParseLapTime(%q): expected error", input)
			continue
		}
		if errors.GetCode(err) != errors.CodeLapTimeInvalidFormat {
			t.Errorf("ParseLapTime(%q) code = %s, want %s", input, errors.GetCode(err), errors.CodeLapTimeInvalidFormat)
		}
	}
}

func TestParseLapTimeRejectsZero(t *testing.T) {
	_, err := ParseLapTime("0:00.000")
	if err == nil {
		t.Fatal("expected error for zero lap time")
	}
	if errors.GetCode(err) != errors.CodeLapTimeOutOfRange {
		t.Fatalf("code = %s, want %s", errors.GetCode(err), errors.CodeLapTimeOutOfRange)
	}
}

func TestNewLapTimeRange(t *testing.T) {
	if _, err := NewLapTime(0); err == nil {
		t.Error("expected error for 0ms")
	}
	if _, err := NewLapTime(600000); err == nil {
		t.Error("expected error for 600000ms")
	}
	if _, err := NewLapTime(-1); err == nil {
		t.Error("expected error for negative millis")
	}
	if got, err := NewLapTime(599999); err != nil || got != MaxLapTime {
		t.Errorf("NewLapTime(599999) = %d, %v", got, err)
	}
	if got, err := NewLapTime(1); err != nil || got != MinLapTime {
		t.Errorf("NewLapTime(1) = %d, %v", got, err)
	}
}

func TestLapTimeString(t *testing.T) {
	tests := []struct {
		millis LapTime
		want   string
	}{
		{143640, "2:23.640"},
		{45123, "0:45.123"},
		{599999, "9:59.999"},
		{1, "0:00.001"},
	}
	for _, tc := range tests {
		if got := tc.millis.String(); got != tc.want {
			t.Errorf("LapTime(%d).String() = %q, want %q", tc.millis, got, tc.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, input := range []string{"2:23.640", "0:00.001", "9:59.999", "1:00.000"} {
		parsed, err := ParseLapTime(input)
		if err != nil {
			t.Fatalf("ParseLapTime(%q): %v", input, err)
		}
		if got := parsed.String(); got != input {
			t.Errorf("round trip %q -> %q", input, got)
		}
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		a, b LapTime
		want string
	}{
		{143640, 142000, "+0:01.640"},
		{142000, 143640, "-0:01.640"},
		{143640, 143640, "±0:00.000"},
	}
	for _, tc := range tests {
		if got := Diff(tc.a, tc.b); got != tc.want {
			t.Errorf("Diff(%d, %d) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestImprovement(t *testing.T) {
	if delta, ok := Improvement(143640, 142000); !ok || delta != 1640 {
		t.Errorf("Improvement(143640, 142000) = %d, %t", delta, ok)
	}
	if _, ok := Improvement(142000, 143640); ok {
		t.Error("slower time should not be an improvement")
	}
	if _, ok := Improvement(142000, 142000); ok {
		t.Error("equal time should not be an improvement")
	}
}

func TestParseGoalTimes(t *testing.T) {
	goals, err := ParseGoalTimes("2:20.000", "2:25.000", "2:30.000")
	if err != nil {
		t.Fatalf("parse goal times: %v", err)
	}
	want := GoalTimes{Gold: 140000, Silver: 145000, Bronze: 150000}
	if goals != want {
		t.Fatalf("goals = %+v, want %+v", goals, want)
	}
}

func TestParseGoalTimesAllowsTies(t *testing.T) {
	if _, err := ParseGoalTimes("2:20.000", "2:20.000", "2:20.000"); err != nil {
		t.Fatalf("equal thresholds should be valid: %v", err)
	}
}

func TestParseGoalTimesRejectsMisordered(t *testing.T) {
	_, err := ParseGoalTimes("2:30.000", "2:25.000", "2:20.000")
	if err == nil {
		t.Fatal("expected ordering error")
	}
	if !stderrors.Is(err, errors.New(errors.CodeGoalTimesMisordered, "")) {
		t.Fatalf("code = %s, want %s", errors.GetCode(err), errors.CodeGoalTimesMisordered)
	}
}

func TestParseGoalTimesRejectsInvalidTime(t *testing.T) {
	_, err := ParseGoalTimes("bad", "2:25.000", "2:30.000")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if errors.GetCode(err) != errors.CodeLapTimeInvalidFormat {
		t.Fatalf("code = %s, want %s", errors.GetCode(err), errors.CodeLapTimeInvalidFormat)
	}
}
