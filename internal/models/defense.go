package models

import "time"

// AssignmentStatus mirrors the estado column of asignaciones_eventos.
type AssignmentStatus int

const (
	AssignmentPending    AssignmentStatus = 0
	AssignmentConfirmed  AssignmentStatus = 1
	AssignmentSuperseded AssignmentStatus = 2
)

// String returns the status label used in logs and exports.
func (s AssignmentStatus) String() string {
	switch s {
	case AssignmentPending:
		return "PENDING"
	case AssignmentConfirmed:
		return "CONFIRMED"
	case AssignmentSuperseded:
		return "SUPERSEDED"
	default:
		return "UNKNOWN"
	}
}

// StudentRequestRow is one active row of disponibilidad_defensa_tesis.
type StudentRequestRow struct {
	ID    int64  `db:"id_disponibilidad" validate:"gt=0"`
	Title string `db:"titulo" validate:"required"`
	Year  int    `db:"anio" validate:"min=1900,max=9999"`
	Month int    `db:"mes" validate:"min=1,max=12"`
	Day   int    `db:"dia" validate:"min=1,max=31"`
}

// ProfessorWindowRow is one active row of horarios_tribunales. Clock columns are read as text so a
// single bad value rejects the row instead of the whole scan.
type ProfessorWindowRow struct {
	ProfessorID int64  `db:"id_tribunal" validate:"gt=0"`
	Year        int    `db:"anio" validate:"min=1900,max=9999"`
	Month       int    `db:"mes" validate:"min=1,max=12"`
	Day         int    `db:"dia" validate:"min=1,max=31"`
	StartClock  string `db:"hora_inicio" validate:"required"`
	EndClock    string `db:"hora_fin" validate:"required"`
}

// RoomWindowRow is one active row of horario_sala_disponible.
type RoomWindowRow struct {
	RoomID     int64  `db:"id_sala" validate:"gt=0"`
	Weekday    string `db:"dia_semana"`
	Year       int    `db:"anio" validate:"min=1900,max=9999"`
	Month      int    `db:"mes" validate:"min=1,max=12"`
	Day        int    `db:"dia" validate:"min=1,max=31"`
	StartClock string `db:"hora_inicio" validate:"required"`
	EndClock   string `db:"hora_fin" validate:"required"`
}

// AvailabilitySnapshot is everything one scheduling run reads from a loader.
type AvailabilitySnapshot struct {
	Students   []StudentRequestRow
	Professors []ProfessorWindowRow
	Rooms      []RoomWindowRow
}

// Empty reports whether there is nothing a run could schedule.
func (s AvailabilitySnapshot) Empty() bool {
	return len(s.Students) == 0
}

// DefenseAssignment is a persisted row of asignaciones_eventos.
type DefenseAssignment struct {
	ID          int64            `db:"id" json:"id"`
	StudentID   int64            `db:"estudiante_id" json:"estudianteId"`
	ThesisTitle string           `db:"titulo_tesis" json:"tituloTesis"`
	StartsAt    time.Time        `db:"hora_inicio" json:"horaInicio"`
	EndsAt      time.Time        `db:"hora_fin" json:"horaFin"`
	ProfessorID int64            `db:"profesor_id" json:"profesorId"`
	RoomID      int64            `db:"sala" json:"sala"`
	Status      AssignmentStatus `db:"estado" json:"estado"`
}
