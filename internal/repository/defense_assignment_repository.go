package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/defense-scheduler-api/internal/models"
)

// DefenseAssignmentRepository persists finalized defense assignments.
type DefenseAssignmentRepository struct {
	db *sqlx.DB
}

// NewDefenseAssignmentRepository builds repository.
func NewDefenseAssignmentRepository(db *sqlx.DB) *DefenseAssignmentRepository {
	return &DefenseAssignmentRepository{db: db}
}

func (r *DefenseAssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Replace supersedes every live row of the student and inserts the assignment as confirmed, filling in its ID.
// exec must be a transaction: the advisory lock is held until it ends, so concurrent writers for the same
// student queue up instead of interleaving.
func (r *DefenseAssignmentRepository) Replace(ctx context.Context, exec sqlx.ExtContext, assignment *models.DefenseAssignment) error {
	target := r.exec(exec)

	if _, err := target.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, assignment.StudentID); err != nil {
		return fmt.Errorf("lock student %d: %w", assignment.StudentID, err)
	}

	const supersede = `UPDATE asignaciones_eventos SET estado = $1 WHERE estudiante_id = $2 AND estado <> $1`
	if _, err := target.ExecContext(ctx, supersede, models.AssignmentSuperseded, assignment.StudentID); err != nil {
		return fmt.Errorf("supersede assignments of student %d: %w", assignment.StudentID, err)
	}

	const insert = `INSERT INTO asignaciones_eventos (estudiante_id, titulo_tesis, hora_inicio, hora_fin, profesor_id, sala, estado)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	row := target.QueryRowxContext(ctx, insert,
		assignment.StudentID,
		assignment.ThesisTitle,
		assignment.StartsAt,
		assignment.EndsAt,
		assignment.ProfessorID,
		assignment.RoomID,
		models.AssignmentConfirmed,
	)
	if err := row.Scan(&assignment.ID); err != nil {
		return fmt.Errorf("insert assignment for student %d: %w", assignment.StudentID, err)
	}
	assignment.Status = models.AssignmentConfirmed
	return nil
}

// List returns every persisted assignment, superseded ones included, in insertion order.
func (r *DefenseAssignmentRepository) List(ctx context.Context) ([]models.DefenseAssignment, error) {
	const query = `SELECT id, estudiante_id, titulo_tesis, hora_inicio, hora_fin, profesor_id, sala, estado
FROM asignaciones_eventos ORDER BY id ASC`
	var rows []models.DefenseAssignment
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list defense assignments: %w", err)
	}
	return rows, nil
}
