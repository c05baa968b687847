package timewindow

import (
	"fmt"
	"regexp"
	"time"

	"github.com/example/guild-audit-bot/internal/args"
)

// The voice log attributes events before the configured day-rollover
// boundary to the previous civil date, written with an hour value of 24-47.
// The time regex deliberately accepts up to 47 to match existing rows.
var (
	rolloverDatePattern = regexp.MustCompile(`^(\d{4})/(0?[1-9]|1[0-2])/(0?[1-9]|[12]\d|3[01])$`)
	rolloverTimePattern = regexp.MustCompile(`^([0-3]?\d|4[0-7]):([0-5]?\d):([0-5]?\d)(?:\.(\d{1,6}))?$`)
)

// ParseBoundary parses a HH:MM:SS day-rollover boundary, e.g. "06:00:00".
func ParseBoundary(value string) (time.Time, error) {
	t, err := time.Parse(TimeFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse rollover boundary %q: %w", value, err)
	}
	return t, nil
}

// SplitRollover renders target as ledger date/time strings. When the clock
// reads earlier than the boundary, the date steps back one day and the hour
// gains 24 so the row still sorts under the previous civil date.
func SplitRollover(target time.Time, boundary time.Time) (dateStr, timeStr string) {
	t := target.In(JST)
	boundarySecs := boundary.Hour()*3600 + boundary.Minute()*60 + boundary.Second()
	clockSecs := t.Hour()*3600 + t.Minute()*60 + t.Second()

	year, month, day := t.Date()
	hour := t.Hour()
	if clockSecs < boundarySecs {
		year, month, day = t.AddDate(0, 0, -1).Date()
		hour += 24
	}
	dateStr = fmt.Sprintf("%04d/%02d/%02d", year, int(month), day)
	timeStr = fmt.Sprintf("%02d:%02d:%02d.%06d", hour, t.Minute(), t.Second(), t.Nanosecond()/1000)
	return dateStr, timeStr
}

// JoinRollover parses ledger date/time strings back into a civil instant,
// unwinding the hour>=24 convention.
func JoinRollover(dateStr, timeStr string) (time.Time, error) {
	dateMatch := rolloverDatePattern.FindStringSubmatch(dateStr)
	if dateMatch == nil {
		return time.Time{}, fmt.Errorf("not parse date=%s", dateStr)
	}
	timeMatch := rolloverTimePattern.FindStringSubmatch(timeStr)
	if timeMatch == nil {
		return time.Time{}, fmt.Errorf("not parse time=%s", timeStr)
	}

	year := atoi(dateMatch[1])
	month := atoi(dateMatch[2])
	day := atoi(dateMatch[3])
	hour := atoi(timeMatch[1])
	minute := atoi(timeMatch[2])
	second := atoi(timeMatch[3])

	t := time.Date(year, time.Month(month), day, 0, minute, second, 0, JST)
	if hour >= 24 {
		hour -= 24
		t = t.AddDate(0, 0, 1)
	}
	return t.Add(time.Duration(hour) * time.Hour), nil
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// BoundaryFromArgs is a convenience for commands that accept an optional
// rollover override.
func BoundaryFromArgs(a args.Args, key string, def time.Time) (time.Time, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	t, err := ParseBoundary(v)
	if err != nil {
		return time.Time{}, args.NewArgumentError(key, "時刻の形式が正しくありません (HH:MM:SS)")
	}
	return t, nil
}
