package scheduler

import "fmt"

// Verify checks a result against the run's index: one assignment per student, one per (professor, slot)
// and per (room, slot), and every slot owned exactly by both its professor and its room.
func Verify(result Result, ix *Index) error {
	students := make(map[int64]int)
	professors := make(map[occupancyKey]int)
	rooms := make(map[occupancyKey]int)

	for _, a := range result.Assignments {
		if prev, ok := students[a.StudentID]; ok {
			return fmt.Errorf("student %d assigned twice (assignments %d and %d)", a.StudentID, prev, a.ID)
		}
		students[a.StudentID] = a.ID

		start := a.Slot.Start.UnixNano()
		pk := occupancyKey{id: a.ProfessorID, start: start}
		if prev, ok := professors[pk]; ok {
			return fmt.Errorf("professor %d double-booked at %s (assignments %d and %d)", a.ProfessorID, a.Slot.Start, prev, a.ID)
		}
		professors[pk] = a.ID

		rk := occupancyKey{id: a.RoomID, start: start}
		if prev, ok := rooms[rk]; ok {
			return fmt.Errorf("room %d double-booked at %s (assignments %d and %d)", a.RoomID, a.Slot.Start, prev, a.ID)
		}
		rooms[rk] = a.ID

		if a.Slot.End.Sub(a.Slot.Start) != ix.Duration() {
			return fmt.Errorf("assignment %d slot length %s differs from %s", a.ID, a.Slot.End.Sub(a.Slot.Start), ix.Duration())
		}
		if !ix.ProfessorAvailable(a.ProfessorID, a.Slot) {
			return fmt.Errorf("assignment %d uses a slot professor %d does not own", a.ID, a.ProfessorID)
		}
		if !ix.RoomAvailable(a.RoomID, a.Slot) {
			return fmt.Errorf("assignment %d uses a slot room %d does not own", a.ID, a.RoomID)
		}
	}
	return nil
}
