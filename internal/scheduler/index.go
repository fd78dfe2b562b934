package scheduler

import "time"

// Request is one student awaiting a defense on a given date.
type Request struct {
	StudentID   int64
	ThesisTitle string
	Date        time.Time
}

// Candidate is a room slot and a professor slot that coincide exactly on the student's requested date.
type Candidate struct {
	StudentID   int64
	ThesisTitle string
	Slot        Slot
	ProfessorID int64
	RoomID      int64
}

// ResourceSlot is a segmented slot owned by a room or a professor.
type ResourceSlot struct {
	ResourceID int64
	Slot       Slot
}

// Index holds the segmented availability of one run. Room slots are grouped by date in discovery order;
// professor slots are keyed by exact (start, end) so matching never rescans the professor list.
type Index struct {
	duration time.Duration

	roomsByDate map[string][]ResourceSlot
	roomSeen    map[resourceSlotKey]struct{}

	professorsBySlot map[slotKey][]int64
	professorSeen    map[resourceSlotKey]struct{}
	professorOrder   []int64
}

type resourceSlotKey struct {
	id   int64
	slot slotKey
}

// BuildIndex segments every room and professor window with the same duration. Overlapping windows of
// the same owner that produce an identical slot are collapsed.
func BuildIndex(rooms, professors []Window, duration time.Duration) *Index {
	ix := &Index{
		duration:         duration,
		roomsByDate:      make(map[string][]ResourceSlot),
		roomSeen:         make(map[resourceSlotKey]struct{}),
		professorsBySlot: make(map[slotKey][]int64),
		professorSeen:    make(map[resourceSlotKey]struct{}),
	}

	for _, w := range rooms {
		for _, slot := range Segment(w.Start, w.End, duration) {
			k := resourceSlotKey{id: w.OwnerID, slot: slot.key()}
			if _, dup := ix.roomSeen[k]; dup {
				continue
			}
			ix.roomSeen[k] = struct{}{}
			date := slot.Date()
			ix.roomsByDate[date] = append(ix.roomsByDate[date], ResourceSlot{ResourceID: w.OwnerID, Slot: slot})
		}
	}

	known := make(map[int64]struct{})
	for _, w := range professors {
		if _, ok := known[w.OwnerID]; !ok {
			known[w.OwnerID] = struct{}{}
			ix.professorOrder = append(ix.professorOrder, w.OwnerID)
		}
		for _, slot := range Segment(w.Start, w.End, duration) {
			k := resourceSlotKey{id: w.OwnerID, slot: slot.key()}
			if _, dup := ix.professorSeen[k]; dup {
				continue
			}
			ix.professorSeen[k] = struct{}{}
			ix.professorsBySlot[k.slot] = append(ix.professorsBySlot[k.slot], w.OwnerID)
		}
	}

	return ix
}

// Duration is the fixed slot length shared by every slot in the index.
func (ix *Index) Duration() time.Duration {
	return ix.duration
}

// RoomSlots returns the room slots of a date in discovery order.
func (ix *Index) RoomSlots(date string) []ResourceSlot {
	return ix.roomsByDate[date]
}

// ProfessorsAt lists the professors owning a slot with exactly this start and end.
func (ix *Index) ProfessorsAt(slot Slot) []int64 {
	return ix.professorsBySlot[slot.key()]
}

// ProfessorAvailable reports whether the professor owns exactly this slot.
func (ix *Index) ProfessorAvailable(professorID int64, slot Slot) bool {
	_, ok := ix.professorSeen[resourceSlotKey{id: professorID, slot: slot.key()}]
	return ok
}

// RoomAvailable reports whether the room owns exactly this slot.
func (ix *Index) RoomAvailable(roomID int64, slot Slot) bool {
	_, ok := ix.roomSeen[resourceSlotKey{id: roomID, slot: slot.key()}]
	return ok
}

// Professors returns every professor with at least one window, in first-seen order.
func (ix *Index) Professors() []int64 {
	out := make([]int64, len(ix.professorOrder))
	copy(out, ix.professorOrder)
	return out
}

// Match enumerates candidates student by student, then room slot by room slot, then professor by professor.
// That enumeration order is what the time-ordered strategy's stable sort falls back on for ties.
func Match(requests []Request, ix *Index) []Candidate {
	var candidates []Candidate
	for _, req := range requests {
		for _, room := range ix.RoomSlots(DateKey(req.Date)) {
			for _, professorID := range ix.ProfessorsAt(room.Slot) {
				candidates = append(candidates, Candidate{
					StudentID:   req.StudentID,
					ThesisTitle: req.ThesisTitle,
					Slot:        room.Slot,
					ProfessorID: professorID,
					RoomID:      room.ResourceID,
				})
			}
		}
	}
	return candidates
}
