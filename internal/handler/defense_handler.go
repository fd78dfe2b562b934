package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/defense-scheduler-api/internal/dto"
	"github.com/noah-isme/defense-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/defense-scheduler-api/pkg/errors"
	"github.com/noah-isme/defense-scheduler-api/pkg/response"
)

type defenseScheduler interface {
	Run(ctx context.Context, query dto.RunScheduleQuery) (*dto.RunScheduleResult, error)
	Saved(ctx context.Context) ([]dto.CalendarEvent, error)
	Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error)
}

// DefenseHandler exposes the thesis defense assignment endpoints.
type DefenseHandler struct {
	service defenseScheduler
}

// NewDefenseHandler constructs the handler.
func NewDefenseHandler(svc *service.DefenseSchedulerService) *DefenseHandler {
	return &DefenseHandler{service: svc}
}

// Run godoc
// @Summary Compute and persist defense assignments
// @Description Loads pending defense requests with room and committee availability, assigns conflict-free slots and supersedes each assigned student's previous row. Repeated calls are not idempotent.
// @Tags Defenses
// @Produce json
// @Param strategy query string false "time_ordered or load_balanced (defaults to configuration)"
// @Param dryRun query bool false "compute without persisting"
// @Success 200 {object} response.Envelope{data=[]dto.CalendarEvent}
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /asignaciones [get]
func (h *DefenseHandler) Run(c *gin.Context) {
	var query dto.RunScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	result, err := h.service.Run(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Events, result.Meta())
}

// Saved godoc
// @Summary List persisted defense assignments
// @Description Returns every stored assignment; superseded rows are tagged Danger.
// @Tags Defenses
// @Produce json
// @Success 200 {object} response.Envelope{data=[]dto.CalendarEvent}
// @Router /asignaciones/guardadas [get]
func (h *DefenseHandler) Saved(c *gin.Context) {
	events, err := h.service.Saved(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{"total": len(events)})
}

// Export godoc
// @Summary Export persisted defense assignments
// @Tags Defenses
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /asignaciones/guardadas/export [get]
func (h *DefenseHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Payload)
}
