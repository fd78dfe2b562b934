package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/defense-scheduler-api/internal/dto"
	"github.com/noah-isme/defense-scheduler-api/internal/models"
	"github.com/noah-isme/defense-scheduler-api/internal/scheduler"
)

// Sources reported on rejected records.
const (
	SourceStudents   = "students"
	SourceProfessors = "professors"
	SourceRooms      = "rooms"
)

var clockLayouts = []string{"15:04:05", "15:04"}

var weekdayCodes = map[string]int{
	"lunes":     1,
	"martes":    2,
	"miercoles": 3,
	"jueves":    4,
	"viernes":   5,
	"sabado":    6,
	"domingo":   7,
}

var accentFolder = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u")

// normalizedInput is a snapshot converted into engine types. Rows that could not be converted are listed
// in rejected and are otherwise ignored.
type normalizedInput struct {
	requests   []scheduler.Request
	professors []scheduler.Window
	rooms      []scheduler.Window
	rejected   []dto.RejectedRecord
}

type snapshotNormalizer struct {
	validator *validator.Validate
	logger    *zap.Logger
}

func newSnapshotNormalizer(validate *validator.Validate, logger *zap.Logger) *snapshotNormalizer {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &snapshotNormalizer{validator: validate, logger: logger}
}

func (n *snapshotNormalizer) normalize(snapshot models.AvailabilitySnapshot) normalizedInput {
	var out normalizedInput
	reject := func(source string, id int64, err error) {
		out.rejected = append(out.rejected, dto.RejectedRecord{Source: source, RecordID: id, Reason: err.Error()})
	}

	for _, row := range snapshot.Students {
		if err := n.validator.Struct(row); err != nil {
			reject(SourceStudents, row.ID, err)
			continue
		}
		date, err := civilDate(row.Year, row.Month, row.Day)
		if err != nil {
			reject(SourceStudents, row.ID, err)
			continue
		}
		out.requests = append(out.requests, scheduler.Request{StudentID: row.ID, ThesisTitle: row.Title, Date: date})
	}

	for _, row := range snapshot.Professors {
		if err := n.validator.Struct(row); err != nil {
			reject(SourceProfessors, row.ProfessorID, err)
			continue
		}
		w, err := buildWindow(scheduler.OwnerProfessor, row.ProfessorID, row.Year, row.Month, row.Day, row.StartClock, row.EndClock)
		if err != nil {
			reject(SourceProfessors, row.ProfessorID, err)
			continue
		}
		out.professors = append(out.professors, w)
	}

	for _, row := range snapshot.Rooms {
		if err := n.validator.Struct(row); err != nil {
			reject(SourceRooms, row.RoomID, err)
			continue
		}
		w, err := buildWindow(scheduler.OwnerRoom, row.RoomID, row.Year, row.Month, row.Day, row.StartClock, row.EndClock)
		if err != nil {
			reject(SourceRooms, row.RoomID, err)
			continue
		}
		if code, ok := weekdayCode(row.Weekday); ok && code != isoWeekday(w.Start) {
			n.logger.Warn("room weekday label disagrees with date",
				zap.Int64("room_id", row.RoomID),
				zap.String("dia_semana", row.Weekday),
				zap.String("date", w.Date()),
			)
		}
		out.rooms = append(out.rooms, w)
	}

	return out
}

func buildWindow(kind scheduler.OwnerKind, ownerID int64, year, month, day int, startClock, endClock string) (scheduler.Window, error) {
	date, err := civilDate(year, month, day)
	if err != nil {
		return scheduler.Window{}, err
	}
	start, err := parseClock(startClock)
	if err != nil {
		return scheduler.Window{}, fmt.Errorf("hora_inicio: %w", err)
	}
	end, err := parseClock(endClock)
	if err != nil {
		return scheduler.Window{}, fmt.Errorf("hora_fin: %w", err)
	}
	w := scheduler.Window{Kind: kind, OwnerID: ownerID, Start: date.Add(start), End: date.Add(end)}
	if w.End.Before(w.Start) {
		return scheduler.Window{}, fmt.Errorf("window ends at %s before it starts at %s", endClock, startClock)
	}
	return w, nil
}

// civilDate builds a wall-clock midnight and refuses dates time.Date would silently roll over.
func civilDate(year, month, day int) (time.Time, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	return t, nil
}

// parseClock returns the offset from midnight of a TIME value. Interval renderings such as
// "0 days 09:00:00" keep only the trailing clock.
func parseClock(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if fields := strings.Fields(value); len(fields) > 1 {
		value = fields[len(fields)-1]
	}
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("unparsable time %q", raw)
}

func weekdayCode(label string) (int, bool) {
	code, ok := weekdayCodes[accentFolder.Replace(strings.ToLower(strings.TrimSpace(label)))]
	return code, ok
}

func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}
