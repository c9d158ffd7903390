package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AdrianVollmer/Plated/internal/extract"
	"github.com/AdrianVollmer/Plated/internal/metrics"
	"github.com/AdrianVollmer/Plated/internal/recipe"
	"github.com/AdrianVollmer/Plated/internal/store"
)

// syncTimeoutCeiling is the largest per-job timeout (in seconds) that
// still runs in the caller's request. Anything above it is dispatched
// to a background goroutine and the caller polls the job instead.
const syncTimeoutCeiling = 10

var (
	// ErrNotConfigured means no active AI settings row exists.
	ErrNotConfigured = errors.New("AI extraction is not configured")
	// ErrNotFound means the referenced job does not exist.
	ErrNotFound = errors.New("job not found")
	// ErrConflict means the job's current status does not permit the
	// requested operation.
	ErrConflict = errors.New("job status does not allow this operation")
	// ErrBadInput means the create request itself is invalid.
	ErrBadInput = errors.New("invalid job input")
)

// Store is the persistence surface the dispatcher and HTTP handlers
// need. Both the Postgres store and the in-memory store satisfy it.
type Store interface {
	CreateJob(ctx context.Context, id uuid.UUID, inputType, inputContent, instructions string, timeoutSeconds int32) (store.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (store.Job, error)
	ListJobs(ctx context.Context, filter store.JobListFilter) ([]store.Job, error)
	MarkRunning(ctx context.Context, id uuid.UUID) (bool, error)
	FinishJob(ctx context.Context, id uuid.UUID, status string, result json.RawMessage, errMsg string) (bool, error)
	CancelJob(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteJob(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSeen(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteExpiredJobs(ctx context.Context, cutoff time.Time) (int64, error)
	ActiveSettings(ctx context.Context) (store.Settings, error)
	SaveSettings(ctx context.Context, s store.Settings) (store.Settings, error)
}

// Extractor runs the fetch, prompt, call, parse, validate pipeline.
type Extractor interface {
	Extract(ctx context.Context, in extract.Input) (json.RawMessage, error)
}

// RecipeSink receives recipes produced from accepted job results.
type RecipeSink interface {
	CreateFromExtraction(ctx context.Context, r recipe.Recipe) (uuid.UUID, error)
}

// CreateRequest describes a new extraction job.
type CreateRequest struct {
	InputType      string
	InputContent   string
	Instructions   string
	TimeoutSeconds int32
}

// Dispatcher owns the job state machine. All status transitions go
// through the store's guarded updates so a concurrent cancel and a
// finishing worker cannot both win.
type Dispatcher struct {
	store     Store
	extractor Extractor
	sink      RecipeSink
	logger    *slog.Logger

	// baseCtx outlives individual requests so background jobs are not
	// cancelled when the HTTP request that created them returns.
	baseCtx context.Context
	wg      sync.WaitGroup
}

func NewDispatcher(baseCtx context.Context, st Store, ex Extractor, sink RecipeSink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:     st,
		extractor: ex,
		sink:      sink,
		logger:    logger,
		baseCtx:   baseCtx,
	}
}

// CreateAndDispatch creates a pending job and either runs it inline
// (short timeouts) or hands it to a background goroutine. The returned
// bool is true when the job was dispatched to the background and the
// caller should poll its status.
func (d *Dispatcher) CreateAndDispatch(ctx context.Context, req CreateRequest) (store.Job, bool, error) {
	if !ValidInputType(req.InputType) {
		return store.Job{}, false, fmt.Errorf("%w: unknown input type %q", ErrBadInput, req.InputType)
	}
	if req.InputContent == "" {
		return store.Job{}, false, fmt.Errorf("%w: input content is empty", ErrBadInput)
	}
	if req.TimeoutSeconds < 0 {
		return store.Job{}, false, fmt.Errorf("%w: timeout must be positive", ErrBadInput)
	}

	settings, err := d.store.ActiveSettings(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Job{}, false, ErrNotConfigured
		}
		return store.Job{}, false, fmt.Errorf("load settings: %w", err)
	}

	timeout := req.TimeoutSeconds
	if timeout == 0 {
		timeout = settings.TimeoutSeconds
	}

	job, err := d.store.CreateJob(ctx, newJobID(), req.InputType, req.InputContent, req.Instructions, timeout)
	if err != nil {
		return store.Job{}, false, fmt.Errorf("create job: %w", err)
	}

	if timeout > syncTimeoutCeiling {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.Run(d.baseCtx, job.ID)
		}()
		return job, true, nil
	}

	d.Run(ctx, job.ID)
	job, err = d.store.GetJob(ctx, job.ID)
	if err != nil {
		return store.Job{}, false, fmt.Errorf("reload job: %w", err)
	}
	return job, false, nil
}

// Run executes a single pending job to a terminal state. It is safe to
// call on a job that was cancelled or picked up elsewhere; the guarded
// transitions turn those cases into no-ops.
func (d *Dispatcher) Run(ctx context.Context, id uuid.UUID) {
	job, err := d.store.GetJob(ctx, id)
	if err != nil {
		d.logger.Error("job lookup failed", "job_id", id, "error", err)
		return
	}
	if Status(job.Status) == StatusCancelled {
		d.logger.Info("job cancelled before start", "job_id", id)
		return
	}

	ok, err := d.store.MarkRunning(ctx, id)
	if err != nil {
		d.logger.Error("job could not be marked running", "job_id", id, "error", err)
		return
	}
	if !ok {
		// Cancelled or claimed between the read above and now.
		d.logger.Info("job no longer pending, skipping", "job_id", id, "status", job.Status)
		return
	}

	settings, err := d.store.ActiveSettings(ctx)
	if err != nil {
		d.finish(ctx, id, StatusFailed, nil, ErrNotConfigured.Error())
		return
	}

	started := time.Now()
	result, err := d.extractor.Extract(ctx, extract.Input{
		Type:         job.InputType,
		Content:      job.InputContent,
		Settings:     settings,
		Instructions: job.Instructions,
		Timeout:      time.Duration(job.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		d.logger.Warn("extraction failed",
			"job_id", id,
			"input_type", job.InputType,
			"duration_ms", time.Since(started).Milliseconds(),
			"error", err)
		d.finish(ctx, id, StatusFailed, nil, err.Error())
		return
	}

	d.logger.Info("extraction completed",
		"job_id", id,
		"input_type", job.InputType,
		"duration_ms", time.Since(started).Milliseconds())
	d.finish(ctx, id, StatusCompleted, result, "")
}

func (d *Dispatcher) finish(ctx context.Context, id uuid.UUID, status Status, result json.RawMessage, errMsg string) {
	ok, err := d.store.FinishJob(ctx, id, string(status), result, errMsg)
	if err != nil {
		d.logger.Error("job could not be finished", "job_id", id, "status", status, "error", err)
		return
	}
	if !ok {
		// A cancel won the race; the worker's result is discarded.
		d.logger.Info("job finish discarded, no longer running", "job_id", id, "status", status)
		return
	}
	metrics.RecordJob(string(status))
}

// Cancel moves a pending or running job to cancelled. A job whose
// worker is mid-flight keeps running, but its eventual result is
// discarded by the FinishJob guard.
func (d *Dispatcher) Cancel(ctx context.Context, id uuid.UUID) error {
	ok, err := d.store.CancelJob(ctx, id)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if ok {
		metrics.RecordJob(string(StatusCancelled))
		return nil
	}
	job, err := d.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("cancel job: %w", err)
	}
	return fmt.Errorf("%w: job is %s", ErrConflict, job.Status)
}

// Retry creates and dispatches a fresh job with the same input as a
// failed one. The original job is left untouched.
func (d *Dispatcher) Retry(ctx context.Context, id uuid.UUID) (store.Job, bool, error) {
	job, err := d.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Job{}, false, ErrNotFound
		}
		return store.Job{}, false, fmt.Errorf("retry job: %w", err)
	}
	if Status(job.Status) != StatusFailed {
		return store.Job{}, false, fmt.Errorf("%w: only failed jobs can be retried, job is %s", ErrConflict, job.Status)
	}
	return d.CreateAndDispatch(ctx, CreateRequest{
		InputType:      job.InputType,
		InputContent:   job.InputContent,
		Instructions:   job.Instructions,
		TimeoutSeconds: job.TimeoutSeconds,
	})
}

// Delete removes a job that has reached a terminal state. Pending and
// running jobs must be cancelled first.
func (d *Dispatcher) Delete(ctx context.Context, id uuid.UUID) error {
	job, err := d.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete job: %w", err)
	}
	if !Status(job.Status).IsTerminal() {
		return fmt.Errorf("%w: job is %s, cancel it before deleting", ErrConflict, job.Status)
	}
	ok, err := d.store.DeleteJob(ctx, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if !ok {
		// Transitioned or deleted concurrently.
		return ErrConflict
	}
	return nil
}

// MarkSeen flags a job's outcome as acknowledged by the user.
func (d *Dispatcher) MarkSeen(ctx context.Context, id uuid.UUID) error {
	ok, err := d.store.MarkSeen(ctx, id)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// UseResult turns a completed job's result into a recipe and hands it
// to the sink. The job itself is kept; callers may delete it after.
func (d *Dispatcher) UseResult(ctx context.Context, id uuid.UUID) (recipe.Recipe, uuid.UUID, error) {
	job, err := d.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return recipe.Recipe{}, uuid.Nil, ErrNotFound
		}
		return recipe.Recipe{}, uuid.Nil, fmt.Errorf("use result: %w", err)
	}
	if Status(job.Status) != StatusCompleted || !job.ResultData.Valid {
		return recipe.Recipe{}, uuid.Nil, fmt.Errorf("%w: job is %s and has no result", ErrConflict, job.Status)
	}

	var r recipe.Recipe
	if err := json.Unmarshal(job.ResultData.RawMessage, &r); err != nil {
		return recipe.Recipe{}, uuid.Nil, fmt.Errorf("decode job result: %w", err)
	}
	if r.Servings == 0 {
		r.Servings = 1
	}

	var recipeID uuid.UUID
	if d.sink != nil {
		recipeID, err = d.sink.CreateFromExtraction(ctx, r)
		if err != nil {
			return recipe.Recipe{}, uuid.Nil, fmt.Errorf("create recipe: %w", err)
		}
	}
	return r, recipeID, nil
}

// Wait blocks until all background jobs have finished. Used during
// shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func newJobID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
