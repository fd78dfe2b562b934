// Package scheduler holds the pure defense-assignment engine: window segmentation, candidate matching and
// the greedy assignment strategies. It performs no I/O; callers load windows and persist results.
package scheduler

import "time"

const dateLayout = "2006-01-02"

// OwnerKind identifies who an availability window belongs to.
type OwnerKind string

const (
	OwnerStudent   OwnerKind = "student"
	OwnerProfessor OwnerKind = "professor"
	OwnerRoom      OwnerKind = "room"
)

// Window is one contiguous block during which an owner can take part in a defense.
type Window struct {
	Kind    OwnerKind
	OwnerID int64
	Start   time.Time
	End     time.Time
}

// Date returns the calendar day the window starts on.
func (w Window) Date() string {
	return DateKey(w.Start)
}

// Slot is a fixed-length sub-interval of a window. End-Start always equals the run's slot duration.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Date returns the calendar day of the slot start.
func (s Slot) Date() string {
	return DateKey(s.Start)
}

func (s Slot) key() slotKey {
	return slotKey{start: s.Start.UnixNano(), end: s.End.UnixNano()}
}

// slotKey identifies a slot by exact start and end; the date is implied by start.
type slotKey struct {
	start int64
	end   int64
}

// DateKey normalises a timestamp to its calendar day.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// Segment cuts [start, end) into consecutive slots of the given duration, starting at start. A trailing
// remainder shorter than duration is dropped, so windows shorter than duration yield no slots.
func Segment(start, end time.Time, duration time.Duration) []Slot {
	if duration <= 0 || !end.After(start) {
		return nil
	}
	slots := make([]Slot, 0, int(end.Sub(start)/duration))
	for t := start; !t.Add(duration).After(end); t = t.Add(duration) {
		slots = append(slots, Slot{Start: t, End: t.Add(duration)})
	}
	return slots
}
