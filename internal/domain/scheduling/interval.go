package scheduling

import (
	"iter"
	"slices"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether a and b intersect. Intervals that only touch
// (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// OverlapsAny reports whether iv overlaps any interval in busy.
func OverlapsAny(iv Interval, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(iv, b) {
			return true
		}
	}
	return false
}

type Slot struct {
	Start time.Time
	End   time.Time
}

func (s Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// GenerateSlots tiles [windowStart, windowEnd] with back-to-back slots of the
// given duration starting at windowStart and yields those that overlap no busy
// interval. A trailing slot that would end after windowEnd is not produced.
// The returned sequence holds no state and can be ranged over repeatedly.
func GenerateSlots(windowStart, windowEnd time.Time, duration time.Duration, busy []Interval) iter.Seq[Slot] {
	busy = slices.Clone(busy)
	return func(yield func(Slot) bool) {
		if duration <= 0 || !windowStart.Before(windowEnd) {
			return
		}
		for start := windowStart; ; start = start.Add(duration) {
			end := start.Add(duration)
			if end.After(windowEnd) {
				return
			}
			if OverlapsAny(Interval{Start: start, End: end}, busy) {
				continue
			}
			if !yield(Slot{Start: start, End: end}) {
				return
			}
		}
	}
}

// CollectSlots drains seq into a slice. The result is never nil.
func CollectSlots(seq iter.Seq[Slot]) []Slot {
	out := []Slot{}
	for s := range seq {
		out = append(out, s)
	}
	return out
}
