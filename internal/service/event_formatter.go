package service

import (
	"time"

	"github.com/noah-isme/defense-scheduler-api/internal/dto"
	"github.com/noah-isme/defense-scheduler-api/internal/models"
	"github.com/noah-isme/defense-scheduler-api/internal/scheduler"
)

// EventTimeLayout renders local wall-clock timestamps without an offset.
const EventTimeLayout = "2006-01-02T15:04:05"

// CalendarTag maps a persisted status onto the calendar colour tag.
func CalendarTag(status models.AssignmentStatus) string {
	if status == models.AssignmentConfirmed {
		return dto.CalendarSuccess
	}
	return dto.CalendarDanger
}

// FormatRunEvent renders a freshly computed assignment. status is what persistence made of it:
// Confirmed when its transaction committed, Pending on dry runs or failed writes.
func FormatRunEvent(a scheduler.Assignment, status models.AssignmentStatus) dto.CalendarEvent {
	return dto.CalendarEvent{
		ID:    int64(a.ID),
		Title: a.ThesisTitle,
		Start: formatEventTime(a.Slot.Start),
		End:   formatEventTime(a.Slot.End),
		ExtendedProps: dto.EventExtendedProps{
			Calendar:    CalendarTag(status),
			ProfessorID: a.ProfessorID,
			Room:        a.RoomID,
			StudentID:   a.StudentID,
		},
	}
}

// FormatSavedEvents renders persisted rows in store order, keyed by row id.
func FormatSavedEvents(rows []models.DefenseAssignment) []dto.CalendarEvent {
	events := make([]dto.CalendarEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, dto.CalendarEvent{
			ID:    row.ID,
			Title: row.ThesisTitle,
			Start: formatEventTime(row.StartsAt),
			End:   formatEventTime(row.EndsAt),
			ExtendedProps: dto.EventExtendedProps{
				Calendar:    CalendarTag(row.Status),
				ProfessorID: row.ProfessorID,
				Room:        row.RoomID,
				StudentID:   row.StudentID,
			},
		})
	}
	return events
}

func formatEventTime(t time.Time) string {
	return t.Format(EventTimeLayout)
}
