// Package timewindow parses before/after date arguments into a validated
// civil-time window anchored to JST and converts it for history queries,
// display, and the voice-log day-rollover clock.
package timewindow

import (
	"time"

	"github.com/example/guild-audit-bot/internal/args"
)

// JST is the fixed civil timezone every date argument is interpreted in.
var JST = time.FixedZone("JST", 9*60*60)

const (
	DateFormatSlash  = "2006/01/02"
	DateFormatHyphen = "2006-01-02"
	TimeFormat       = "15:04:05"
)

var dateFormats = []string{DateFormatHyphen, DateFormatSlash}

// Window is a half-open interval over civil JST time. A nil endpoint means
// unbounded on that side.
type Window struct {
	Before *time.Time
	After  *time.Time
}

func parseCivilDate(key, value string) (time.Time, error) {
	for _, format := range dateFormats {
		if t, err := time.ParseInLocation(format, value, JST); err == nil {
			return t, nil
		}
	}
	return time.Time{}, args.NewArgumentError(key, "日付の形式が正しくありません (YYYY-MM-DD)")
}

// ParseBeforeAfter reads the before/after keys. Both are optional; when both
// are present, after must be strictly earlier than before. Validation happens
// here, before any I/O.
func ParseBeforeAfter(a args.Args) (Window, error) {
	var w Window
	if v, ok := a["before"]; ok {
		t, err := parseCivilDate("before", v)
		if err != nil {
			return Window{}, err
		}
		w.Before = &t
	}
	if v, ok := a["after"]; ok {
		t, err := parseCivilDate("after", v)
		if err != nil {
			return Window{}, err
		}
		w.After = &t
	}
	if w.Before != nil && w.After != nil && !w.After.Before(*w.Before) {
		return Window{}, args.NewArgumentError("before", "beforeはafterより未来の日付を指定してください")
	}
	return w, nil
}

// toNaiveUTC converts a civil instant to the naive UTC form the history API
// expects: the wall clock shifted to UTC with the zone tag dropped.
func toNaiveUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	naive := time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), time.UTC)
	return &naive
}

// QueryBefore returns the upper history-query bound, nil when unbounded.
func (w Window) QueryBefore() *time.Time { return toNaiveUTC(w.Before) }

// QueryAfter returns the lower history-query bound, nil when unbounded.
func (w Window) QueryAfter() *time.Time { return toNaiveUTC(w.After) }

// Contains reports whether t lies strictly inside the window. Bounds are
// exclusive on both sides.
func (w Window) Contains(t time.Time) bool {
	if w.After != nil && !t.After(*w.After) {
		return false
	}
	if w.Before != nil && !t.Before(*w.Before) {
		return false
	}
	return true
}

// DisplayRange renders the window for reports. A missing before shows "now";
// a missing after shows the guild's creation instant. Both are display-only
// defaults; the query bounds stay unbounded.
func (w Window) DisplayRange(guildCreatedAt time.Time) (beforeStr, afterStr string) {
	return w.displayRange(guildCreatedAt, time.Now)
}

func (w Window) displayRange(guildCreatedAt time.Time, now func() time.Time) (string, string) {
	var beforeStr, afterStr string
	if w.Before == nil {
		beforeStr = now().In(JST).Format(DateFormatSlash)
	} else {
		beforeStr = w.Before.In(JST).Format(DateFormatSlash)
	}
	if w.After == nil {
		afterStr = guildCreatedAt.In(JST).Format(DateFormatSlash)
	} else {
		afterStr = w.After.In(JST).Format(DateFormatSlash)
	}
	return beforeStr, afterStr
}
