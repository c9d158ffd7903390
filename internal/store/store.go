package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sqlc-dev/pqtype"
)

// Store wraps access to the database via a shared *sql.DB. All status
// transitions are conditional updates so that a cancel racing a
// finishing run can never clobber the other's terminal write.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

const jobColumns = `id, status, input_type, input_content, instructions, timeout_seconds,
	result_data, error_message, created_at, started_at, completed_at, seen`

func scanJob(row interface{ Scan(dest ...any) error }) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.Status, &j.InputType, &j.InputContent, &j.Instructions, &j.TimeoutSeconds,
		&j.ResultData, &j.ErrorMessage, &j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.Seen,
	)
	return j, err
}

// CreateJob inserts a new pending job row.
func (s *Store) CreateJob(ctx context.Context, id uuid.UUID, inputType, inputContent, instructions string, timeoutSeconds int32) (Job, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO ai_jobs (id, status, input_type, input_content, instructions, timeout_seconds)
		VALUES ($1, 'pending', $2, $3, $4, $5)
		RETURNING `+jobColumns,
		id, inputType, inputContent, instructions, timeoutSeconds,
	)
	return scanJob(row)
}

// GetJob fetches a single job by id.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM ai_jobs WHERE id = $1`, id)
	return scanJob(row)
}

// ListJobs returns jobs ordered newest first, optionally filtered by
// status.
func (s *Store) ListJobs(ctx context.Context, filter JobListFilter) ([]Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM ai_jobs
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		filter.Status, limit, filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// MarkRunning transitions a job from pending to running and stamps
// started_at. Returns false when the job was not pending anymore (for
// example, cancelled before the run started).
func (s *Store) MarkRunning(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE ai_jobs SET status = 'running', started_at = now()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// FinishJob transitions a running job to a terminal state. The guard
// on status = 'running' means a job cancelled mid-run keeps its
// cancelled status and the run's result is discarded.
func (s *Store) FinishJob(ctx context.Context, id uuid.UUID, status string, result json.RawMessage, errMsg string) (bool, error) {
	var resultVal pqtype.NullRawMessage
	if len(result) > 0 {
		resultVal = pqtype.NullRawMessage{RawMessage: result, Valid: true}
	}
	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE ai_jobs SET status = $2, result_data = $3, error_message = $4, completed_at = now()
		WHERE id = $1 AND status = 'running'`,
		id, status, resultVal, errVal)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CancelJob marks a pending or running job cancelled. Returns false
// when the job was already terminal.
func (s *Store) CancelJob(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE ai_jobs SET status = 'cancelled', completed_at = now()
		WHERE id = $1 AND status IN ('pending', 'running')`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteJob removes a terminal job. Returns false when the job is
// still pending or running (or does not exist).
func (s *Store) DeleteJob(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM ai_jobs WHERE id = $1 AND status NOT IN ('pending', 'running')`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkSeen flags a job as observed by the caller.
func (s *Store) MarkSeen(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `UPDATE ai_jobs SET seen = true WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteExpiredJobs removes terminal jobs that completed before the
// cutoff, returning the number of rows deleted.
func (s *Store) DeleteExpiredJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM ai_jobs
		WHERE status IN ('completed', 'failed', 'cancelled') AND completed_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ActiveSettings returns the single active settings row. sql.ErrNoRows
// means the system is not configured.
func (s *Store) ActiveSettings(ctx context.Context) (Settings, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, api_url, api_key, model, max_tokens, temperature, timeout_seconds, active, created_at, updated_at
		FROM ai_settings WHERE active ORDER BY updated_at DESC LIMIT 1`)

	var st Settings
	err := row.Scan(
		&st.ID, &st.APIURL, &st.APIKey, &st.Model, &st.MaxTokens,
		&st.Temperature, &st.TimeoutSeconds, &st.Active, &st.CreatedAt, &st.UpdatedAt,
	)
	return st, err
}

// SaveSettings replaces the active settings record. Previously active
// rows are deactivated rather than deleted so configuration history is
// kept.
func (s *Store) SaveSettings(ctx context.Context, st Settings) (Settings, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Settings{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE ai_settings SET active = false WHERE active`); err != nil {
		return Settings{}, err
	}

	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO ai_settings (id, api_url, api_key, model, max_tokens, temperature, timeout_seconds, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		RETURNING id, api_url, api_key, model, max_tokens, temperature, timeout_seconds, active, created_at, updated_at`,
		st.ID, st.APIURL, st.APIKey, st.Model, st.MaxTokens, st.Temperature, st.TimeoutSeconds,
	)

	var saved Settings
	if err := row.Scan(
		&saved.ID, &saved.APIURL, &saved.APIKey, &saved.Model, &saved.MaxTokens,
		&saved.Temperature, &saved.TimeoutSeconds, &saved.Active, &saved.CreatedAt, &saved.UpdatedAt,
	); err != nil {
		return Settings{}, err
	}

	return saved, tx.Commit()
}
