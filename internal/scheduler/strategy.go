package scheduler

import (
	"errors"
	"fmt"
	"sort"
)

// Strategy names.
const (
	StrategyTimeOrdered  = "time_ordered"
	StrategyLoadBalanced = "load_balanced"
)

// ErrUnknownStrategy is returned by NewStrategy for names it does not recognise.
var ErrUnknownStrategy = errors.New("unknown scheduling strategy")

// Strategy turns a run's requests and segmented availability into a conflict-free assignment set.
//
// Implementations are greedy heuristics, not maximum matchings:
//   - time_ordered: global walk over every candidate sorted by slot start.
//   - load_balanced: per-student first fit, preferring the professor with the fewest assignments so far.
//
// Both guarantee that a student, a (professor, slot) and a (room, slot) appear in at most one assignment.
// Implementations keep all bookkeeping local to one Assign call.
type Strategy interface {
	Name() string
	Assign(requests []Request, ix *Index) Result
}

// Assignment is a committed (student, slot, professor, room) tuple. IDs are sequential from 1 per run.
type Assignment struct {
	ID          int
	StudentID   int64
	ThesisTitle string
	Slot        Slot
	ProfessorID int64
	RoomID      int64
}

// Result is the outcome of one Assign call. Unassigned lists requests for which no feasible slot was
// left, in input order, one entry per student.
type Result struct {
	Assignments []Assignment
	Unassigned  []Request
}

// NewStrategy resolves a strategy by name.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case StrategyTimeOrdered:
		return TimeOrdered{}, nil
	case StrategyLoadBalanced:
		return LoadBalanced{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// StrategyNames lists every registered strategy in a stable order.
func StrategyNames() []string {
	return []string{StrategyTimeOrdered, StrategyLoadBalanced}
}

type occupancyKey struct {
	id    int64
	start int64
}

// occupancy tracks what a run has already committed.
type occupancy struct {
	students   map[int64]struct{}
	professors map[occupancyKey]struct{}
	rooms      map[occupancyKey]struct{}
}

func newOccupancy() *occupancy {
	return &occupancy{
		students:   make(map[int64]struct{}),
		professors: make(map[occupancyKey]struct{}),
		rooms:      make(map[occupancyKey]struct{}),
	}
}

func (o *occupancy) studentAssigned(studentID int64) bool {
	_, ok := o.students[studentID]
	return ok
}

func (o *occupancy) professorBusy(professorID int64, slot Slot) bool {
	_, ok := o.professors[occupancyKey{id: professorID, start: slot.Start.UnixNano()}]
	return ok
}

func (o *occupancy) roomBusy(roomID int64, slot Slot) bool {
	_, ok := o.rooms[occupancyKey{id: roomID, start: slot.Start.UnixNano()}]
	return ok
}

func (o *occupancy) commit(studentID, professorID, roomID int64, slot Slot) {
	start := slot.Start.UnixNano()
	o.students[studentID] = struct{}{}
	o.professors[occupancyKey{id: professorID, start: start}] = struct{}{}
	o.rooms[occupancyKey{id: roomID, start: start}] = struct{}{}
}

func unassignedRequests(requests []Request, occ *occupancy) []Request {
	var out []Request
	reported := make(map[int64]struct{})
	for _, req := range requests {
		if occ.studentAssigned(req.StudentID) {
			continue
		}
		if _, dup := reported[req.StudentID]; dup {
			continue
		}
		reported[req.StudentID] = struct{}{}
		out = append(out, req)
	}
	return out
}

// TimeOrdered walks every candidate once, earliest slot first, committing whatever is still free.
// Ties on slot start keep the enumeration order of Match. Taken slots are never released.
type TimeOrdered struct{}

// Name implements Strategy.
func (TimeOrdered) Name() string { return StrategyTimeOrdered }

// Assign implements Strategy.
func (TimeOrdered) Assign(requests []Request, ix *Index) Result {
	candidates := Match(requests, ix)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Slot.Start.Before(candidates[j].Slot.Start)
	})

	occ := newOccupancy()
	assignments := make([]Assignment, 0)
	nextID := 1
	for _, c := range candidates {
		if occ.studentAssigned(c.StudentID) || occ.professorBusy(c.ProfessorID, c.Slot) || occ.roomBusy(c.RoomID, c.Slot) {
			continue
		}
		occ.commit(c.StudentID, c.ProfessorID, c.RoomID, c.Slot)
		assignments = append(assignments, Assignment{
			ID:          nextID,
			StudentID:   c.StudentID,
			ThesisTitle: c.ThesisTitle,
			Slot:        c.Slot,
			ProfessorID: c.ProfessorID,
			RoomID:      c.RoomID,
		})
		nextID++
	}

	return Result{Assignments: assignments, Unassigned: unassignedRequests(requests, occ)}
}

// LoadBalanced handles students in input order. For each it tries the room slots of the requested date
// in discovery order and, per room slot, professors from least to most loaded; the first free pair wins.
// The priority order is re-derived after every assignment; equal loads keep professor discovery order.
type LoadBalanced struct{}

// Name implements Strategy.
func (LoadBalanced) Name() string { return StrategyLoadBalanced }

// Assign implements Strategy.
func (LoadBalanced) Assign(requests []Request, ix *Index) Result {
	professors := ix.Professors()
	loads := make(map[int64]int, len(professors))
	priority := rankByLoad(professors, loads)

	occ := newOccupancy()
	assignments := make([]Assignment, 0)
	nextID := 1
	for _, req := range requests {
		if occ.studentAssigned(req.StudentID) {
			continue
		}
		a, ok := firstFit(req, ix, priority, occ)
		if !ok {
			continue
		}
		a.ID = nextID
		nextID++
		assignments = append(assignments, a)
		loads[a.ProfessorID]++
		priority = rankByLoad(professors, loads)
	}

	return Result{Assignments: assignments, Unassigned: unassignedRequests(requests, occ)}
}

func firstFit(req Request, ix *Index, priority []int64, occ *occupancy) (Assignment, bool) {
	for _, room := range ix.RoomSlots(DateKey(req.Date)) {
		if occ.roomBusy(room.ResourceID, room.Slot) {
			continue
		}
		for _, professorID := range priority {
			if !ix.ProfessorAvailable(professorID, room.Slot) || occ.professorBusy(professorID, room.Slot) {
				continue
			}
			occ.commit(req.StudentID, professorID, room.ResourceID, room.Slot)
			return Assignment{
				StudentID:   req.StudentID,
				ThesisTitle: req.ThesisTitle,
				Slot:        room.Slot,
				ProfessorID: professorID,
				RoomID:      room.ResourceID,
			}, true
		}
	}
	return Assignment{}, false
}

func rankByLoad(professors []int64, loads map[int64]int) []int64 {
	ranked := make([]int64, len(professors))
	copy(ranked, professors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return loads[ranked[i]] < loads[ranked[j]]
	})
	return ranked
}
