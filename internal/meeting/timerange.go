package meeting

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

const (
	// StartOfDay is the first minute of the day.
	StartOfDay = 0
	// EndOfDay is the number of minutes in a day and the exclusive upper bound of every range.
	EndOfDay = 24 * 60
)

// ErrInvalidRange is returned when a range falls outside the day or ends before it starts.
var ErrInvalidRange = errors.New("invalid time range")

// WholeDay covers the entire day.
var WholeDay = TimeRange{start: StartOfDay, end: EndOfDay, closesDay: true}

// TimeRange is a closed-open interval [start, end) of minutes since midnight.
// The zero value is the empty range at midnight.
type TimeRange struct {
	start     int
	end       int
	closesDay bool // runs to the end of the day, set on the last free range of a sweep
}

// FromStartEnd builds the range [start, end).
func FromStartEnd(start, end int, closesDay bool) (TimeRange, error) {
	if start < StartOfDay || end > EndOfDay || start > end {
		return TimeRange{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, start, end)
	}
	return TimeRange{start: start, end: end, closesDay: closesDay}, nil
}

// FromStartDuration builds the range [start, start+duration).
func FromStartDuration(start, duration int) (TimeRange, error) {
	return FromStartEnd(start, start+duration, false)
}

// MustFromStartEnd is like FromStartEnd but panics on invalid bounds.
// Meant for constants and tests.
func MustFromStartEnd(start, end int, closesDay bool) TimeRange {
	r, err := FromStartEnd(start, end, closesDay)
	if err != nil {
		panic(err)
	}
	return r
}

func (r TimeRange) Start() int { return r.start }

func (r TimeRange) End() int { return r.end }

func (r TimeRange) Duration() int { return r.end - r.start }

// ClosesDay reports whether the range was produced as the final stretch of the day.
func (r TimeRange) ClosesDay() bool { return r.closesDay }

// Overlaps reports whether the two ranges share at least one minute.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.start < other.end && other.start < r.end
}

// Contains reports whether other lies entirely inside r.
func (r TimeRange) Contains(other TimeRange) bool {
	return r.start <= other.start && other.end <= r.end
}

// ContainsMinute reports whether minute falls inside [start, end).
func (r TimeRange) ContainsMinute(minute int) bool {
	return r.start <= minute && minute < r.end
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", Clock(r.start), Clock(r.end))
}

func (r TimeRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}{r.start, r.end})
}

// Clock formats a minute of the day as HH:MM.
func Clock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ByStart orders ranges by start minute.
func ByStart(a, b TimeRange) int {
	return cmp.Compare(a.start, b.start)
}

// SortByStart sorts ranges in place by start minute, keeping the input order of ties.
func SortByStart(ranges []TimeRange) {
	slices.SortStableFunc(ranges, ByStart)
}
