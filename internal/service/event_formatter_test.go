package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/defense-scheduler-api/internal/dto"
	"github.com/noah-isme/defense-scheduler-api/internal/models"
	"github.com/noah-isme/defense-scheduler-api/internal/scheduler"
)

func TestCalendarTag(t *testing.T) {
	assert.Equal(t, dto.CalendarSuccess, CalendarTag(models.AssignmentConfirmed))
	assert.Equal(t, dto.CalendarDanger, CalendarTag(models.AssignmentSuperseded))
	assert.Equal(t, dto.CalendarDanger, CalendarTag(models.AssignmentPending))
}

func TestFormatRunEventShape(t *testing.T) {
	start := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	ev := FormatRunEvent(scheduler.Assignment{
		ID:          3,
		StudentID:   11,
		ThesisTitle: "Redes neuronales",
		Slot:        scheduler.Slot{Start: start, End: start.Add(40 * time.Minute)},
		ProfessorID: 7,
		RoomID:      2,
	}, models.AssignmentConfirmed)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 3,
		"title": "Redes neuronales",
		"start": "2025-03-10T09:00:00",
		"end": "2025-03-10T09:40:00",
		"extendedProps": {"calendar": "Success", "professorId": 7, "sala": 2, "estudianteId": 11}
	}`, string(raw))
}

func TestFormatSavedEventsUsesRowIDAndStatus(t *testing.T) {
	start := time.Date(2025, time.March, 10, 14, 20, 0, 0, time.FixedZone("ECT", -5*3600))
	events := FormatSavedEvents([]models.DefenseAssignment{
		{ID: 41, StudentID: 11, ThesisTitle: "A", StartsAt: start, EndsAt: start.Add(40 * time.Minute), ProfessorID: 7, RoomID: 2, Status: models.AssignmentSuperseded},
		{ID: 42, StudentID: 11, ThesisTitle: "A", StartsAt: start, EndsAt: start.Add(40 * time.Minute), ProfessorID: 8, RoomID: 2, Status: models.AssignmentConfirmed},
	})

	require.Len(t, events, 2)
	assert.Equal(t, int64(41), events[0].ID)
	assert.Equal(t, dto.CalendarDanger, events[0].ExtendedProps.Calendar)
	assert.Equal(t, dto.CalendarSuccess, events[1].ExtendedProps.Calendar)
	assert.Equal(t, "2025-03-10T14:20:00", events[1].Start, "wall clock is kept, offset dropped")
	assert.Equal(t, "2025-03-10T15:00:00", events[1].End)
}

func TestFormatSavedEventsEmpty(t *testing.T) {
	events := FormatSavedEvents(nil)
	require.NotNil(t, events)
	raw, err := json.Marshal(events)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}
