package schedule

import (
	"strings"
	"time"
)

// Field identifies one of the five time components of an entry.
type Field int

const (
	Minute Field = iota
	Hour
	DayOfMonth
	Month
	Weekday

	numFields
)

var fieldNames = [numFields]string{"minute", "hour", "day", "month", "weekday"}

// wildcard expansions, in field order.
var naturalRanges = [numFields]string{"0-59", "0-23", "1-31", "1-12", "0-6"}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// NaturalRange returns the range a "*" expands to for f.
func (f Field) NaturalRange() string {
	if f < 0 || f >= numFields {
		return ""
	}
	return naturalRanges[f]
}

// Entry is one parsed schedule line.
type Entry struct {
	// Fields holds the specs in minute, hour, day, month, weekday order,
	// with wildcards already expanded.
	Fields  [numFields]string
	Command string
	// Line is the 1-based line number in the schedule file, 0 if unknown.
	Line int
}

// ParseLine splits a raw schedule line into an Entry.
//
// ok is false for lines with fewer than six whitespace-separated tokens;
// blank lines, comments and truncated lines are all skipped this way.
func ParseLine(line string) (e Entry, ok bool) {
	parts := strings.Fields(line)
	if len(parts) < int(numFields)+1 {
		return Entry{}, false
	}
	for i := Field(0); i < numFields; i++ {
		e.Fields[i] = strings.ReplaceAll(parts[i], "*", i.NaturalRange())
	}
	e.Command = strings.Join(parts[numFields:], " ")
	return e, true
}

// IsDue reports whether every field of e matches now.
// Fields are checked minute first and the first mismatch returns false.
func (e Entry) IsDue(now time.Time) (bool, error) {
	values := [numFields]int{
		now.Minute(),
		now.Hour(),
		now.Day(),
		int(now.Month()),
		WeekdayOf(now),
	}
	for i := Field(0); i < numFields; i++ {
		ok, err := Matches(values[i], e.Fields[i])
		if err != nil {
			return false, &FieldError{Field: i, Spec: e.Fields[i], Err: err}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// WeekdayOf numbers t's weekday 0=Monday through 6=Sunday.
func WeekdayOf(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
