// Package loader reads availability snapshots from sources other than the relational store.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/noah-isme/defense-scheduler-api/internal/models"
)

// File names expected inside a CSV snapshot directory. Each file carries the same columns as its table.
const (
	StudentsFile   = "estudiantes.csv"
	ProfessorsFile = "tribunales.csv"
	RoomsFile      = "salas.csv"
)

const activeEstado = "1"

var (
	studentColumns   = []string{"id_disponibilidad", "titulo", "anio", "mes", "dia"}
	professorColumns = []string{"id_tribunal", "anio", "mes", "dia", "hora_inicio", "hora_fin"}
	roomColumns      = []string{"id_sala", "dia_semana", "anio", "mes", "dia", "hora_inicio", "hora_fin"}
)

// CSVLoader reads a snapshot from a directory of CSV exports. Columns are matched by header name, an
// optional estado column filters inactive rows, and unparseable numbers become zero so the row is
// rejected downstream rather than failing the whole load.
type CSVLoader struct {
	dir string
}

// NewCSVLoader constructs a loader rooted at dir.
func NewCSVLoader(dir string) *CSVLoader {
	return &CSVLoader{dir: dir}
}

// Snapshot reads all three files. A missing file or header is an error.
func (l *CSVLoader) Snapshot(ctx context.Context) (models.AvailabilitySnapshot, error) {
	var snap models.AvailabilitySnapshot

	students, err := l.read(ctx, StudentsFile, studentColumns)
	if err != nil {
		return snap, err
	}
	for _, rec := range students {
		snap.Students = append(snap.Students, models.StudentRequestRow{
			ID:    atoi64(rec["id_disponibilidad"]),
			Title: rec["titulo"],
			Year:  atoi(rec["anio"]),
			Month: atoi(rec["mes"]),
			Day:   atoi(rec["dia"]),
		})
	}

	professors, err := l.read(ctx, ProfessorsFile, professorColumns)
	if err != nil {
		return snap, err
	}
	for _, rec := range professors {
		snap.Professors = append(snap.Professors, models.ProfessorWindowRow{
			ProfessorID: atoi64(rec["id_tribunal"]),
			Year:        atoi(rec["anio"]),
			Month:       atoi(rec["mes"]),
			Day:         atoi(rec["dia"]),
			StartClock:  rec["hora_inicio"],
			EndClock:    rec["hora_fin"],
		})
	}

	rooms, err := l.read(ctx, RoomsFile, roomColumns)
	if err != nil {
		return snap, err
	}
	for _, rec := range rooms {
		snap.Rooms = append(snap.Rooms, models.RoomWindowRow{
			RoomID:     atoi64(rec["id_sala"]),
			Weekday:    rec["dia_semana"],
			Year:       atoi(rec["anio"]),
			Month:      atoi(rec["mes"]),
			Day:        atoi(rec["dia"]),
			StartClock: rec["hora_inicio"],
			EndClock:   rec["hora_fin"],
		})
	}

	return snap, nil
}

func (l *CSVLoader) read(ctx context.Context, name string, required []string) ([]map[string]string, error) {
	path := filepath.Join(l.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: missing header", name)
		}
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalizeHeader(h)] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", name, col)
		}
	}
	estadoIdx, hasEstado := index["estado"]

	var out []map[string]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if hasEstado && field(fields, estadoIdx) != activeEstado {
			continue
		}
		rec := make(map[string]string, len(required))
		for _, col := range required {
			rec[col] = field(fields, index[col])
		}
		out = append(out, rec)
	}
	return out, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func atoi(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func atoi64(raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
