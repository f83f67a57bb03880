// Package clock abstracts the current time and the calendar boundaries the
// trade limit and daily views are keyed on.
package clock

import (
	"fmt"
	"time"
)

type Clock interface {
	Now() time.Time
}

// System reads the wall clock in Location (time.Local when nil).
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

// Fixed always reports the same instant. Tests move it with Set or Advance.
type Fixed struct {
	At time.Time
}

func NewFixed(at time.Time) *Fixed {
	return &Fixed{At: at}
}

func (f *Fixed) Now() time.Time {
	return f.At
}

func (f *Fixed) Set(at time.Time) {
	f.At = at
}

func (f *Fixed) Advance(d time.Duration) {
	f.At = f.At.Add(d)
}

// Bucket is a half of a local calendar day.
type Bucket int

const (
	Morning Bucket = iota
	Afternoon
)

func (b Bucket) String() string {
	switch b {
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	default:
		return fmt.Sprintf("bucket(%d)", int(b))
	}
}

// Describe is the user-facing description of the bucket's time window.
func (b Bucket) Describe() string {
	if b == Morning {
		return "this morning (before 12PM)"
	}
	return "this afternoon/evening (after 12PM)"
}

// BucketOf splits the day at local noon.
func BucketOf(t time.Time) Bucket {
	if t.Hour() < 12 {
		return Morning
	}
	return Afternoon
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// Date formats t as YYYY-MM-DD in its own location.
func Date(t time.Time) string {
	return t.Format("2006-01-02")
}

// LoadLocation resolves a timezone name; "" and "Local" mean time.Local.
func LoadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
