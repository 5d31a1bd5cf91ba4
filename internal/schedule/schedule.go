// Package schedule parses the configured betting hours.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// OutsidePrompt asks whether to start a run outside every window.
const OutsidePrompt = "Current time is outside configured betting hours. Continue anyway?"

// DefaultHours are used when the configuration lists none.
var DefaultHours = []string{"09:00-12:00", "14:00-17:00", "19:00-22:00"}

// Window is a daily local-time interval [Start, End), in minutes after midnight.
// A window whose end is before its start wraps past midnight.
type Window struct {
	Start int
	End   int
}

// ParseWindow reads "HH:MM-HH:MM".
func ParseWindow(s string) (Window, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Window{}, fmt.Errorf("betting window %q: want HH:MM-HH:MM", s)
	}
	start, err := parseClock(from)
	if err != nil {
		return Window{}, fmt.Errorf("betting window %q: %w", s, err)
	}
	end, err := parseClock(to)
	if err != nil {
		return Window{}, fmt.Errorf("betting window %q: %w", s, err)
	}
	if start == end {
		return Window{}, fmt.Errorf("betting window %q is empty", s)
	}
	return Window{Start: start, End: end}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bad time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether the local time of t falls inside w.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	if w.Start < w.End {
		return m >= w.Start && m < w.End
	}
	return m >= w.Start || m < w.End
}

// String formats w in 12-hour clock, e.g. "9:00 AM - 12:00 PM".
func (w Window) String() string {
	return clock12(w.Start) + " - " + clock12(w.End)
}

func clock12(minutes int) string {
	t := time.Date(2000, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC)
	return t.Format("3:04 PM")
}

// Schedule is a set of windows. An empty schedule allows every time.
type Schedule []Window

// Parse reads every window, falling back to DefaultHours for an empty list.
func Parse(hours []string) (Schedule, error) {
	if len(hours) == 0 {
		hours = DefaultHours
	}
	s := make(Schedule, 0, len(hours))
	for _, h := range hours {
		w, err := ParseWindow(h)
		if err != nil {
			return nil, err
		}
		s = append(s, w)
	}
	return s, nil
}

// Within reports whether t falls inside any window.
func (s Schedule) Within(t time.Time) bool {
	if len(s) == 0 {
		return true
	}
	for _, w := range s {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// Strings formats every window for display.
func (s Schedule) Strings() []string {
	out := make([]string, len(s))
	for i, w := range s {
		out[i] = w.String()
	}
	return out
}
