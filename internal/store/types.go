package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Job is one row of the ai_jobs table: a single extraction attempt and
// its lifecycle. Input fields are immutable after creation.
type Job struct {
	ID             uuid.UUID
	Status         string
	InputType      string
	InputContent   string
	Instructions   string
	TimeoutSeconds int32
	ResultData     pqtype.NullRawMessage
	ErrorMessage   sql.NullString
	CreatedAt      time.Time
	StartedAt      sql.NullTime
	CompletedAt    sql.NullTime
	Seen           bool
}

// Settings is the AI endpoint configuration. Exactly one active row is
// expected; its absence blocks job creation.
type Settings struct {
	ID             uuid.UUID
	APIURL         string
	APIKey         string
	Model          string
	MaxTokens      int32
	Temperature    float64
	TimeoutSeconds int32
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// JobListFilter narrows ListJobs results.
type JobListFilter struct {
	Status string
	Limit  int32
	Offset int32
}
