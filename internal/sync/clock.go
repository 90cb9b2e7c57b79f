// ABOUTME: Monotonic playback clock anchored once at stream start
// ABOUTME: Maps frame indices to target instants without re-anchoring
package sync

import (
	"time"
)

// Clock reads the current instant. time.Time values from time.Now carry a
// monotonic reading, so Sub and Before are immune to wall-clock steps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the process monotonic clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// Timeline fixes the emission instant of every frame of a session.
// Target(i) = anchor + i*interval. The anchor never moves, so a late frame
// does not shift the frames after it.
type Timeline struct {
	anchor   time.Time
	interval time.Duration
}

// NewTimeline anchors a timeline at the given instant
func NewTimeline(anchor time.Time, interval time.Duration) Timeline {
	return Timeline{anchor: anchor, interval: interval}
}

// Anchor returns the stream start instant
func (t Timeline) Anchor() time.Time { return t.anchor }

// Interval returns the frame interval
func (t Timeline) Interval() time.Duration { return t.interval }

// Target returns the emission instant for a frame index relative to the
// anchor (0 is the first frame sent)
func (t Timeline) Target(rel int) time.Time {
	return t.anchor.Add(time.Duration(rel) * t.interval)
}

// Lateness returns how far now is past the target of frame rel.
// Negative means early.
func (t Timeline) Lateness(rel int, now time.Time) time.Duration {
	return now.Sub(t.Target(rel))
}

// Elapsed returns time since the anchor
func (t Timeline) Elapsed(now time.Time) time.Duration {
	return now.Sub(t.anchor)
}
