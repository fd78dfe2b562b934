package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/defense-scheduler-api/internal/dto"
	"github.com/noah-isme/defense-scheduler-api/internal/models"
	"github.com/noah-isme/defense-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/defense-scheduler-api/pkg/errors"
	"github.com/noah-isme/defense-scheduler-api/pkg/export"
)

const savedEventsCacheKey = "events:saved"

type availabilityLoader interface {
	Snapshot(ctx context.Context) (models.AvailabilitySnapshot, error)
}

type defenseAssignmentStore interface {
	Replace(ctx context.Context, exec sqlx.ExtContext, assignment *models.DefenseAssignment) error
	List(ctx context.Context) ([]models.DefenseAssignment, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type savedEventsCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// DefenseSchedulerConfig governs scheduling runs.
type DefenseSchedulerConfig struct {
	Strategy     string
	SlotDuration time.Duration
	CacheTTL     time.Duration
}

// DefenseSchedulerService runs the load, assign and persist pipeline and serves persisted events.
//
// Persisting runs are serialized by runMu so two requests never interleave their supersede/insert
// sequences; each student's write is additionally its own transaction guarded by an advisory lock,
// which covers writers in other processes. Dry runs skip persistence and the lock.
type DefenseSchedulerService struct {
	loader     availabilityLoader
	store      defenseAssignmentStore
	tx         txProvider
	cache      savedEventsCache
	metrics    *MetricsService
	validator  *validator.Validate
	normalizer *snapshotNormalizer
	logger     *zap.Logger
	cfg        DefenseSchedulerConfig
	renderers  map[string]export.Renderer

	now      func() time.Time
	newRunID func() string
	runMu    sync.Mutex
	// savedGen advances on every invalidation; a Saved fill that straddles one is not cached.
	savedGen atomic.Uint64
}

// NewDefenseSchedulerService wires scheduler dependencies. store, tx and cache may be nil for
// offline use, in which case only dry runs succeed.
func NewDefenseSchedulerService(
	loader availabilityLoader,
	store defenseAssignmentStore,
	tx txProvider,
	cache savedEventsCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg DefenseSchedulerConfig,
) *DefenseSchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = scheduler.StrategyTimeOrdered
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = 40 * time.Minute
	}
	csvRenderer := export.NewCSVExporter()
	pdfRenderer := export.NewPDFExporter(1, 4, 3, 3, 1.5, 1.5, 1, 1.5)
	return &DefenseSchedulerService{
		loader:     loader,
		store:      store,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		normalizer: newSnapshotNormalizer(validate, logger),
		logger:     logger,
		cfg:        cfg,
		renderers: map[string]export.Renderer{
			csvRenderer.Extension(): csvRenderer,
			pdfRenderer.Extension(): pdfRenderer,
		},
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// Run computes a fresh schedule and, unless DryRun is set, replaces each assigned student's persisted row.
// Malformed records, unassignable students and per-student write failures are reported in the result;
// only loader or store connectivity failures fail the run.
func (s *DefenseSchedulerService) Run(ctx context.Context, query dto.RunScheduleQuery) (*dto.RunScheduleResult, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidStrategy.Code, appErrors.ErrInvalidStrategy.Status, "invalid scheduling parameters")
	}
	name := query.Strategy
	if name == "" {
		name = s.cfg.Strategy
	}
	strategy, err := scheduler.NewStrategy(name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidStrategy.Code, appErrors.ErrInvalidStrategy.Status, err.Error())
	}
	if s.loader == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "availability loader missing")
	}
	if !query.DryRun {
		if s.store == nil || s.tx == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "assignment store missing")
		}
		s.runMu.Lock()
		defer s.runMu.Unlock()
	}

	started := s.now()
	result := &dto.RunScheduleResult{
		RunID:           s.newRunID(),
		Strategy:        strategy.Name(),
		SlotMinutes:     int(s.cfg.SlotDuration / time.Minute),
		DryRun:          query.DryRun,
		Events:          []dto.CalendarEvent{},
		Unassigned:      []dto.UnassignedStudent{},
		Rejected:        []dto.RejectedRecord{},
		PersistFailures: []dto.PersistFailure{},
	}
	log := s.logger.With(zap.String("run_id", result.RunID), zap.String("strategy", result.Strategy), zap.Bool("dry_run", query.DryRun))

	loadStart := time.Now()
	snapshot, err := s.loader.Snapshot(ctx)
	s.metrics.ObserveDBQuery("availability_snapshot", time.Since(loadStart))
	if err != nil {
		log.Error("availability load failed", zap.Error(err))
		s.observeRun(result, RunOutcomeFailed, started)
		return nil, storeError(err, appErrors.ErrSchedulingFailed, "failed to load availability")
	}

	input := s.normalizer.normalize(snapshot)
	if len(input.rejected) > 0 {
		result.Rejected = input.rejected
		for _, r := range input.rejected {
			log.Warn("availability record rejected", zap.String("source", r.Source), zap.Int64("record_id", r.RecordID), zap.String("reason", r.Reason))
		}
	}
	if len(input.requests) == 0 {
		result.NothingToSchedule = true
		log.Info("nothing to schedule", zap.Int("rejected", len(result.Rejected)))
		s.observeRun(result, RunOutcomeEmpty, started)
		return result, nil
	}

	ix := scheduler.BuildIndex(input.rooms, input.professors, s.cfg.SlotDuration)
	assigned := strategy.Assign(input.requests, ix)
	if err := scheduler.Verify(assigned, ix); err != nil {
		log.Error("assignment invariants violated", zap.Error(err))
		s.observeRun(result, RunOutcomeFailed, started)
		return nil, appErrors.Wrap(err, appErrors.ErrSchedulingFailed.Code, appErrors.ErrSchedulingFailed.Status, "scheduler produced a conflicting assignment")
	}

	var committed []int64
	for _, a := range assigned.Assignments {
		status := models.AssignmentPending
		if !query.DryRun {
			if err := s.persist(ctx, a); err != nil {
				if errors.Is(err, appErrors.ErrStoreUnavailable) || errors.Is(err, appErrors.ErrRequestCanceled) {
					log.Error("assignment run aborted",
						zap.Int64("student_id", a.StudentID),
						zap.Int64s("committed_students", committed),
						zap.Error(err),
					)
					s.observeRun(result, RunOutcomeFailed, started)
					if len(committed) > 0 {
						s.invalidateSaved(ctx)
					}
					return nil, abortedRunError(err, len(committed), len(assigned.Assignments))
				}
				log.Error("assignment not persisted", zap.Int64("student_id", a.StudentID), zap.Error(err))
				result.PersistFailures = append(result.PersistFailures, dto.PersistFailure{StudentID: a.StudentID, Message: err.Error()})
			} else {
				status = models.AssignmentConfirmed
				committed = append(committed, a.StudentID)
			}
		}
		result.Events = append(result.Events, FormatRunEvent(a, status))
	}
	for _, req := range assigned.Unassigned {
		result.Unassigned = append(result.Unassigned, dto.UnassignedStudent{
			StudentID: req.StudentID,
			Title:     req.ThesisTitle,
			Date:      scheduler.DateKey(req.Date),
		})
	}
	if len(committed) > 0 {
		s.invalidateSaved(ctx)
	}

	outcome := RunOutcomeScheduled
	if len(result.PersistFailures) > 0 {
		outcome = RunOutcomePartial
	}
	s.observeRun(result, outcome, started)
	log.Info("scheduling run finished",
		zap.Int("assigned", len(result.Events)),
		zap.Int("unassigned", len(result.Unassigned)),
		zap.Int("rejected", len(result.Rejected)),
		zap.Int("persist_failures", len(result.PersistFailures)),
		zap.Duration("elapsed", s.now().Sub(started)),
	)
	return result, nil
}

// persist writes one assignment in its own transaction. A failure to open the transaction is
// returned as ErrStoreUnavailable, or ErrRequestCanceled when ctx is done; anything later rolls
// back only this student.
func (s *DefenseSchedulerService) persist(ctx context.Context, a scheduler.Assignment) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return storeError(err, appErrors.ErrStoreUnavailable, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := &models.DefenseAssignment{
		StudentID:   a.StudentID,
		ThesisTitle: a.ThesisTitle,
		StartsAt:    a.Slot.Start,
		EndsAt:      a.Slot.End,
		ProfessorID: a.ProfessorID,
		RoomID:      a.RoomID,
		Status:      models.AssignmentPending,
	}
	if err = s.store.Replace(ctx, tx, row); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment for student %d: %w", a.StudentID, err)
	}
	return nil
}

// Saved returns every persisted assignment as calendar events, served from cache when possible.
func (s *DefenseSchedulerService) Saved(ctx context.Context) ([]dto.CalendarEvent, error) {
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "assignment store missing")
	}
	var cached []dto.CalendarEvent
	if s.cache != nil && s.cache.Get(ctx, savedEventsCacheKey, &cached) {
		return cached, nil
	}

	gen := s.savedGen.Load()
	start := time.Now()
	rows, err := s.store.List(ctx)
	s.metrics.ObserveDBQuery("saved_assignments", time.Since(start))
	if err != nil {
		return nil, storeError(err, appErrors.ErrInternal, "failed to load saved assignments")
	}
	events := FormatSavedEvents(rows)
	if s.cache != nil && s.savedGen.Load() == gen {
		s.cache.Set(ctx, savedEventsCacheKey, events, s.cfg.CacheTTL)
	}
	return events, nil
}

// Export renders the saved events as a CSV or PDF attachment. An empty format means csv.
func (s *DefenseSchedulerService) Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	format := query.Format
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	events, err := s.Saved(ctx)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{
		Title:   "Asignaciones de defensa de tesis",
		Headers: []string{"ID", "Título", "Inicio", "Fin", "Estudiante", "Profesor", "Sala", "Estado"},
		Rows:    make([][]string, 0, len(events)),
	}
	for _, ev := range events {
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(ev.ID, 10),
			ev.Title,
			ev.Start,
			ev.End,
			strconv.FormatInt(ev.ExtendedProps.StudentID, 10),
			strconv.FormatInt(ev.ExtendedProps.ProfessorID, 10),
			strconv.FormatInt(ev.ExtendedProps.Room, 10),
			ev.ExtendedProps.Calendar,
		})
	}
	payload, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("asignaciones-%s.%s", s.now().Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

func (s *DefenseSchedulerService) invalidateSaved(ctx context.Context) {
	s.savedGen.Add(1)
	if s.cache != nil {
		s.cache.Invalidate(ctx, savedEventsCacheKey)
	}
}

func (s *DefenseSchedulerService) observeRun(result *dto.RunScheduleResult, outcome string, started time.Time) {
	rejected := make(map[string]int)
	for _, r := range result.Rejected {
		rejected[r.Source]++
	}
	s.metrics.ObserveRun(RunStats{
		Strategy:        result.Strategy,
		Outcome:         outcome,
		Assigned:        len(result.Events),
		Unassigned:      len(result.Unassigned),
		PersistFailures: len(result.PersistFailures),
		Rejected:        rejected,
		Duration:        s.now().Sub(started),
	})
}

// abortedRunError keeps the kind of err and records how far the run got before it stopped.
func abortedRunError(err error, committed, total int) *appErrors.Error {
	appErr := appErrors.FromError(err)
	return appErrors.Wrap(appErr.Err, appErr.Code, appErr.Status,
		fmt.Sprintf("%s after committing %d of %d assignments", appErr.Message, committed, total))
}

// storeError maps a done context to ErrRequestCanceled, connectivity failures to
// ErrStoreUnavailable and everything else to fallback. The context check comes first because
// context.DeadlineExceeded also satisfies net.Error.
func storeError(err error, fallback *appErrors.Error, message string) *appErrors.Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrRequestCanceled.Code, appErrors.ErrRequestCanceled.Status, message)
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, message)
	}
	return appErrors.Wrap(err, fallback.Code, fallback.Status, message)
}
