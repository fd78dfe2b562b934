package dto

// Calendar tags understood by the calendar UI.
const (
	CalendarSuccess = "Success"
	CalendarDanger  = "Danger"
)

// CalendarEvent is the element shape returned by both assignment endpoints.
type CalendarEvent struct {
	ID            int64              `json:"id"`
	Title         string             `json:"title"`
	Start         string             `json:"start"`
	End           string             `json:"end"`
	ExtendedProps EventExtendedProps `json:"extendedProps"`
}

// EventExtendedProps carries the status tag and the ids used for client-side linking.
type EventExtendedProps struct {
	Calendar    string `json:"calendar"`
	ProfessorID int64  `json:"professorId,omitempty"`
	Room        int64  `json:"sala,omitempty"`
	StudentID   int64  `json:"estudianteId,omitempty"`
}

// RunScheduleQuery are the optional query parameters of GET /asignaciones.
type RunScheduleQuery struct {
	Strategy string `form:"strategy" validate:"omitempty,oneof=time_ordered load_balanced"`
	DryRun   bool   `form:"dryRun"`
}

// ExportQuery selects the export format for saved events.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// UnassignedStudent is a request for which no feasible slot was left.
type UnassignedStudent struct {
	StudentID int64  `json:"studentId"`
	Title     string `json:"title"`
	Date      string `json:"date"`
}

// RejectedRecord is an input row dropped because it could not be parsed.
type RejectedRecord struct {
	Source   string `json:"source"`
	RecordID int64  `json:"recordId"`
	Reason   string `json:"reason"`
}

// PersistFailure reports a student whose supersede+insert transaction was rolled back.
type PersistFailure struct {
	StudentID int64  `json:"studentId"`
	Message   string `json:"message"`
}

// RunScheduleResult is the outcome of one scheduling run.
type RunScheduleResult struct {
	RunID             string              `json:"runId"`
	Strategy          string              `json:"strategy"`
	SlotMinutes       int                 `json:"slotMinutes"`
	DryRun            bool                `json:"dryRun"`
	NothingToSchedule bool                `json:"nothingToSchedule"`
	Events            []CalendarEvent     `json:"events"`
	Unassigned        []UnassignedStudent `json:"unassigned"`
	Rejected          []RejectedRecord    `json:"rejected"`
	PersistFailures   []PersistFailure    `json:"persistFailures"`
}

// Meta flattens the run summary into the response envelope's meta block.
func (r *RunScheduleResult) Meta() map[string]interface{} {
	return map[string]interface{}{
		"runId":             r.RunID,
		"strategy":          r.Strategy,
		"slotMinutes":       r.SlotMinutes,
		"dryRun":            r.DryRun,
		"nothingToSchedule": r.NothingToSchedule,
		"assigned":          len(r.Events),
		"unassigned":        r.Unassigned,
		"rejected":          r.Rejected,
		"persistFailures":   r.PersistFailures,
	}
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}
