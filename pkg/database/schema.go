package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// assignmentSchema creates the output table. Availability tables are owned by the intake system and are
// only read.
var assignmentSchema = []string{
	`CREATE TABLE IF NOT EXISTS asignaciones_eventos (
    id BIGSERIAL PRIMARY KEY,
    estudiante_id BIGINT NOT NULL,
    titulo_tesis TEXT NOT NULL,
    hora_inicio TIMESTAMP NOT NULL,
    hora_fin TIMESTAMP NOT NULL,
    profesor_id BIGINT NOT NULL,
    sala BIGINT NOT NULL,
    estado SMALLINT NOT NULL DEFAULT 1
)`,
	`CREATE INDEX IF NOT EXISTS idx_asignaciones_eventos_estudiante ON asignaciones_eventos (estudiante_id, estado)`,
}

// EnsureSchema applies the idempotent DDL for the assignment store.
func EnsureSchema(ctx context.Context, db sqlx.ExecerContext) error {
	for _, stmt := range assignmentSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
