package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/errors"
)

// LapTime is a race time in milliseconds.
type LapTime int64

// Lap times must fit the M:SS.mmm display format and be positive, so the
// valid range is 1ms through 9:59.999.
const (
	MinLapTime LapTime = 1
	MaxLapTime LapTime = 599999
)

var lapTimePattern = regexp.MustCompile(`^(0?[0-9]):([0-5][0-9])\.([0-9]{3})$`)

// ParseLapTime converts an M:SS.mmm string into milliseconds. A leading
// zero on minutes is accepted on input but never produced by String.
func ParseLapTime(raw string) (LapTime, error) {
	value := strings.TrimSpace(raw)
	matches := lapTimePattern.FindStringSubmatch(value)
	if matches == nil {
		return 0, errors.WithMetadata(errors.CodeLapTimeInvalidFormat,
			fmt.Sprintf("lap time %q does not match M:SS.mmm", raw),
			map[string]string{"Time": raw})
	}

	minutes, _ := strconv.ParseInt(matches[1], 10, 64)
	seconds, _ := strconv.ParseInt(matches[2], 10, 64)
	millis, _ := strconv.ParseInt(matches[3], 10, 64)

	return NewLapTime(minutes*60_000 + seconds*1_000 + millis)
}

// NewLapTime validates a raw millisecond value as a lap time.
func NewLapTime(millis int64) (LapTime, error) {
	t := LapTime(millis)
	if t < MinLapTime || t > MaxLapTime {
		return 0, errors.WithMetadata(errors.CodeLapTimeOutOfRange,
			fmt.Sprintf("lap time %dms out of range", millis),
			map[string]string{"Time": strconv.FormatInt(millis, 10)})
	}
	return t, nil
}

// Millis returns the lap time as raw milliseconds.
func (t LapTime) Millis() int64 {
	return int64(t)
}

// String formats the lap time as M:SS.mmm with no leading zero on minutes.
func (t LapTime) String() string {
	totalSeconds := int64(t) / 1_000
	return fmt.Sprintf("%d:%02d.%03d", totalSeconds/60, totalSeconds%60, int64(t)%1_000)
}

// Diff renders the signed difference between two lap times, e.g. "+0:01.640".
// Equal times render as "±0:00.000".
func Diff(a, b LapTime) string {
	diff := int64(a) - int64(b)
	if diff == 0 {
		return "±0:00.000"
	}
	sign := "+"
	if diff < 0 {
		sign = "-"
		diff = -diff
	}
	return sign + LapTime(diff).String()
}

// Improvement reports how much faster the candidate time is than the old one.
// The second return is false when the candidate is not strictly faster.
func Improvement(old, candidate LapTime) (LapTime, bool) {
	if candidate >= old {
		return 0, false
	}
	return old - candidate, true
}

// GoalTimes are the medal thresholds for a trial. Gold is the fastest.
type GoalTimes struct {
	Gold   LapTime
	Silver LapTime
	Bronze LapTime
}

// ParseGoalTimes parses and validates the three medal thresholds,
// requiring gold ≤ silver ≤ bronze.
func ParseGoalTimes(gold, silver, bronze string) (GoalTimes, error) {
	g, err := ParseLapTime(gold)
	if err != nil {
		return GoalTimes{}, err
	}
	s, err := ParseLapTime(silver)
	if err != nil {
		return GoalTimes{}, err
	}
	b, err := ParseLapTime(bronze)
	if err != nil {
		return GoalTimes{}, err
	}
	return NewGoalTimes(g, s, b)
}

// NewGoalTimes validates the gold ≤ silver ≤ bronze ordering.
func NewGoalTimes(gold, silver, bronze LapTime) (GoalTimes, error) {
	if !(gold <= silver && silver <= bronze) {
		return GoalTimes{}, errors.WithMetadata(errors.CodeGoalTimesMisordered,
			"goal times must satisfy gold <= silver <= bronze",
			map[string]string{
				"Gold":   gold.String(),
				"Silver": silver.String(),
				"Bronze": bronze.String(),
			})
	}
	return GoalTimes{Gold: gold, Silver: silver, Bronze: bronze}, nil
}
