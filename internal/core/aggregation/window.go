package aggregation

import (
	"fmt"
	"time"
)

const (
	bucketDateLayout = "2006-01-02"
	bucketHourLayout = "15:04"
)

// WindowSpec represents a parsed and validated window size.
type WindowSpec struct {
	Size time.Duration
}

// ParseWindowSize parses a duration string into a WindowSpec.
// Supports Go duration syntax (e.g., "10s", "1m", "1h") plus "Xd" for days.
func ParseWindowSize(s string) (WindowSpec, error) {
	if s == "" {
		return WindowSpec{}, fmt.Errorf("duration must not be empty")
	}

	// Handle "d" suffix (days), which time.ParseDuration does not support.
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return WindowSpec{}, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		if days <= 0 {
			return WindowSpec{}, fmt.Errorf("duration must be positive, got %q", s)
		}
		return WindowSpec{Size: time.Duration(days) * 24 * time.Hour}, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return WindowSpec{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d <= 0 {
		return WindowSpec{}, fmt.Errorf("duration must be positive, got %q", s)
	}
	return WindowSpec{Size: d}, nil
}

// Window is a time range samples are filtered against.
// Scheduled windows are half-open [Start, End). The on-demand recent window
// is closed at End (Inclusive), matching how the device reads "up to now".
type Window struct {
	Start     time.Time
	End       time.Time
	Inclusive bool
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	if w.Inclusive {
		return !t.After(w.End)
	}
	return t.Before(w.End)
}

// Key is the dedup identity of the window: "{start_unix}-{end_unix}".
func (w Window) Key() string {
	return fmt.Sprintf("%d-%d", w.Start.Unix(), w.End.Unix())
}

func (w Window) String() string {
	closing := ")"
	if w.Inclusive {
		closing = "]"
	}
	return fmt.Sprintf("[%s, %s%s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), closing)
}

// Bucket is the hour grouping key of a sample. Hour is always "HH:00".
type Bucket struct {
	Date string
	Hour string
}

// Clock derives windows and buckets from wall-clock time in one location.
// It holds no state besides the location.
type Clock struct {
	loc *time.Location
}

// NewClock returns a Clock for loc. A nil loc means time.Local.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{loc: loc}
}

// Location returns the clock's time zone.
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// TruncateHour drops minutes, seconds and nanoseconds of t's local
// wall-clock time. Zones with non-whole-hour offsets truncate to the local
// top of hour, not the UTC one.
func (c Clock) TruncateHour(t time.Time) time.Time {
	lt := t.In(c.Location())
	return lt.Add(-time.Duration(lt.Minute())*time.Minute -
		time.Duration(lt.Second())*time.Second -
		time.Duration(lt.Nanosecond()))
}

// CurrentHourWindow returns the last completed hour before now:
// End is now truncated to the hour and Start is one hour earlier.
func (c Clock) CurrentHourWindow(now time.Time) Window {
	end := c.TruncateHour(now)
	return Window{Start: end.Add(-time.Hour), End: end}
}

// RecentWindow returns [now-span, now] for on-demand uploads.
func (c Clock) RecentWindow(now time.Time, span time.Duration) Window {
	now = now.In(c.Location())
	return Window{Start: now.Add(-span), End: now, Inclusive: true}
}

// NextTopOfHour returns the first top of hour strictly after now.
func (c Clock) NextTopOfHour(now time.Time) time.Time {
	return c.TruncateHour(now).Add(time.Hour)
}

// BucketOf returns the local (date, hour) bucket of t.
func (c Clock) BucketOf(t time.Time) Bucket {
	h := c.TruncateHour(t)
	return Bucket{Date: h.Format(bucketDateLayout), Hour: h.Format(bucketHourLayout)}
}
