package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/defense-scheduler-api/internal/models"
)

// AvailabilityRepository reads the active defense requests and availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository builds repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListStudentRequests returns students awaiting a defense, in primary key order.
func (r *AvailabilityRepository) ListStudentRequests(ctx context.Context) ([]models.StudentRequestRow, error) {
	const query = `SELECT id_disponibilidad, COALESCE(titulo, '') AS titulo,
COALESCE(anio, 0) AS anio, COALESCE(mes, 0) AS mes, COALESCE(dia, 0) AS dia
FROM disponibilidad_defensa_tesis WHERE estado = 1 ORDER BY id_disponibilidad`
	var rows []models.StudentRequestRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list student requests: %w", err)
	}
	return rows, nil
}

// ListProfessorWindows returns committee availability grouped by professor.
func (r *AvailabilityRepository) ListProfessorWindows(ctx context.Context) ([]models.ProfessorWindowRow, error) {
	const query = `SELECT id_tribunal, COALESCE(anio, 0) AS anio, COALESCE(mes, 0) AS mes, COALESCE(dia, 0) AS dia,
COALESCE(hora_inicio::text, '') AS hora_inicio, COALESCE(hora_fin::text, '') AS hora_fin
FROM horarios_tribunales WHERE estado = 1 ORDER BY id_tribunal, anio, mes, dia, hora_inicio`
	var rows []models.ProfessorWindowRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list professor windows: %w", err)
	}
	return rows, nil
}

// ListRoomWindows returns room availability, earliest first.
func (r *AvailabilityRepository) ListRoomWindows(ctx context.Context) ([]models.RoomWindowRow, error) {
	const query = `SELECT id_sala, COALESCE(dia_semana, '') AS dia_semana,
COALESCE(anio, 0) AS anio, COALESCE(mes, 0) AS mes, COALESCE(dia, 0) AS dia,
COALESCE(hora_inicio::text, '') AS hora_inicio, COALESCE(hora_fin::text, '') AS hora_fin
FROM horario_sala_disponible WHERE estado = 1 ORDER BY anio, mes, dia, hora_inicio, id_sala`
	var rows []models.RoomWindowRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list room windows: %w", err)
	}
	return rows, nil
}

// Snapshot loads the three record sets of one scheduling run.
func (r *AvailabilityRepository) Snapshot(ctx context.Context) (models.AvailabilitySnapshot, error) {
	students, err := r.ListStudentRequests(ctx)
	if err != nil {
		return models.AvailabilitySnapshot{}, err
	}
	professors, err := r.ListProfessorWindows(ctx)
	if err != nil {
		return models.AvailabilitySnapshot{}, err
	}
	rooms, err := r.ListRoomWindows(ctx)
	if err != nil {
		return models.AvailabilitySnapshot{}, err
	}
	return models.AvailabilitySnapshot{Students: students, Professors: professors, Rooms: rooms}, nil
}
