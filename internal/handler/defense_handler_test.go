package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/defense-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/defense-scheduler-api/pkg/errors"
)

type defenseSchedulerMock struct {
	captured  dto.RunScheduleQuery
	exportQ   dto.ExportQuery
	runResult *dto.RunScheduleResult
	saved     []dto.CalendarEvent
	err       error
}

func (m *defenseSchedulerMock) Run(ctx context.Context, query dto.RunScheduleQuery) (*dto.RunScheduleResult, error) {
	m.captured = query
	return m.runResult, m.err
}

func (m *defenseSchedulerMock) Saved(ctx context.Context) ([]dto.CalendarEvent, error) {
	return m.saved, m.err
}

func (m *defenseSchedulerMock) Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error) {
	m.exportQ = query
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ExportFile{Filename: "asignaciones.csv", ContentType: "text/csv; charset=utf-8", Payload: []byte("ID\n1\n")}, nil
}

type envelope struct {
	Data  []dto.CalendarEvent    `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newDefenseTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func sampleEvent() dto.CalendarEvent {
	return dto.CalendarEvent{
		ID:    1,
		Title: "Redes neuronales",
		Start: "2025-03-10T09:00:00",
		End:   "2025-03-10T09:40:00",
		ExtendedProps: dto.EventExtendedProps{
			Calendar: dto.CalendarSuccess, ProfessorID: 7, Room: 3, StudentID: 11,
		},
	}
}

func TestDefenseHandlerRunSuccess(t *testing.T) {
	mockSvc := &defenseSchedulerMock{runResult: &dto.RunScheduleResult{
		RunID:           "run-1",
		Strategy:        "load_balanced",
		SlotMinutes:     40,
		Events:          []dto.CalendarEvent{sampleEvent()},
		Unassigned:      []dto.UnassignedStudent{{StudentID: 12, Title: "Compiladores", Date: "2025-03-10"}},
		Rejected:        []dto.RejectedRecord{},
		PersistFailures: []dto.PersistFailure{},
	}}
	handler := &DefenseHandler{service: mockSvc}
	c, w := newDefenseTestContext("/asignaciones?strategy=load_balanced&dryRun=true")

	handler.Run(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "load_balanced", mockSvc.captured.Strategy)
	assert.True(t, mockSvc.captured.DryRun)

	env := decodeEnvelope(t, w)
	require.Len(t, env.Data, 1)
	assert.Equal(t, sampleEvent(), env.Data[0])
	assert.Equal(t, "run-1", env.Meta["runId"])
	assert.Equal(t, float64(1), env.Meta["assigned"])
	assert.Len(t, env.Meta["unassigned"], 1)
}

func TestDefenseHandlerRunBadQuery(t *testing.T) {
	handler := &DefenseHandler{service: &defenseSchedulerMock{}}
	c, w := newDefenseTestContext("/asignaciones?dryRun=maybe")

	handler.Run(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
}

func TestDefenseHandlerRunDistinguishesFailureKinds(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		code   string
	}{
		"store":    {appErrors.Clone(appErrors.ErrStoreUnavailable, "down"), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		"loader":   {appErrors.Clone(appErrors.ErrSchedulingFailed, "boom"), http.StatusInternalServerError, "SCHEDULING_FAILED"},
		"strategy": {appErrors.Clone(appErrors.ErrInvalidStrategy, "nope"), http.StatusBadRequest, "INVALID_STRATEGY"},
		"canceled": {appErrors.Clone(appErrors.ErrRequestCanceled, "gone"), http.StatusGatewayTimeout, "REQUEST_CANCELED"},
		"unknown":  {errors.New("raw"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := &DefenseHandler{service: &defenseSchedulerMock{err: tc.err}}
			c, w := newDefenseTestContext("/asignaciones")

			handler.Run(c)

			require.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeEnvelope(t, w).Error.Code)
			assert.Empty(t, c.Errors)
		})
	}
}

func TestDefenseHandlerSavedAndExportRenderErrorsOnce(t *testing.T) {
	handler := &DefenseHandler{service: &defenseSchedulerMock{err: appErrors.Clone(appErrors.ErrStoreUnavailable, "down")}}

	c, w := newDefenseTestContext("/asignaciones/guardadas")
	handler.Saved(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", decodeEnvelope(t, w).Error.Code)
	assert.Empty(t, c.Errors)

	c, w = newDefenseTestContext("/asignaciones/guardadas/export?format=pdf")
	handler.Export(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", decodeEnvelope(t, w).Error.Code)
	assert.Empty(t, c.Errors)
}

func TestDefenseHandlerSaved(t *testing.T) {
	handler := &DefenseHandler{service: &defenseSchedulerMock{saved: []dto.CalendarEvent{sampleEvent()}}}
	c, w := newDefenseTestContext("/asignaciones/guardadas")

	handler.Saved(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Len(t, env.Data, 1)
	assert.Equal(t, float64(1), env.Meta["total"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestDefenseHandlerSavedEmptyIsArray(t *testing.T) {
	handler := &DefenseHandler{service: &defenseSchedulerMock{saved: []dto.CalendarEvent{}}}
	c, w := newDefenseTestContext("/asignaciones/guardadas")

	handler.Saved(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestDefenseHandlerExport(t *testing.T) {
	mockSvc := &defenseSchedulerMock{}
	handler := &DefenseHandler{service: mockSvc}
	c, w := newDefenseTestContext("/asignaciones/guardadas/export?format=csv")

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mockSvc.exportQ.Format)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="asignaciones.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "ID\n1\n", w.Body.String())
}

type pingerStub struct{ err error }

func (p pingerStub) PingContext(context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	c, w := newDefenseTestContext("/ready")
	NewMetricsHandler(nil, pingerStub{}).Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newDefenseTestContext("/ready")
	NewMetricsHandler(nil, pingerStub{err: errors.New("refused")}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = newDefenseTestContext("/metrics")
	NewMetricsHandler(nil, nil).Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "metrics disabled\n", w.Body.String())
}
