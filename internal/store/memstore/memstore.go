// Package memstore is an in-memory job store with the same guarded
// transition semantics as the Postgres store. It backs tests and
// database-less deployments.
package memstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/AdrianVollmer/Plated/internal/store"
)

type MemStore struct {
	mu       sync.RWMutex
	jobs     map[uuid.UUID]store.Job
	settings *store.Settings
}

func New() *MemStore {
	return &MemStore{
		jobs: make(map[uuid.UUID]store.Job),
	}
}

// Add seeds a job directly, bypassing transition guards. Test helper.
func (m *MemStore) Add(job store.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
}

func (m *MemStore) CreateJob(_ context.Context, id uuid.UUID, inputType, inputContent, instructions string, timeoutSeconds int32) (store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := store.Job{
		ID:             id,
		Status:         "pending",
		InputType:      inputType,
		InputContent:   inputContent,
		Instructions:   instructions,
		TimeoutSeconds: timeoutSeconds,
		CreatedAt:      time.Now().UTC(),
	}
	m.jobs[id] = job
	return job, nil
}

func (m *MemStore) GetJob(_ context.Context, id uuid.UUID) (store.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return store.Job{}, sql.ErrNoRows
	}
	return job, nil
}

func (m *MemStore) ListJobs(_ context.Context, filter store.JobListFilter) ([]store.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]store.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })

	limit := int(filter.Limit)
	if limit <= 0 {
		limit = 50
	}
	offset := int(filter.Offset)
	if offset >= len(jobs) {
		return nil, nil
	}
	jobs = jobs[offset:]
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (m *MemStore) MarkRunning(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != "pending" {
		return false, nil
	}
	job.Status = "running"
	job.StartedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	m.jobs[id] = job
	return true, nil
}

func (m *MemStore) FinishJob(_ context.Context, id uuid.UUID, status string, result json.RawMessage, errMsg string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != "running" {
		return false, nil
	}
	job.Status = status
	if len(result) > 0 {
		job.ResultData = pqtype.NullRawMessage{RawMessage: result, Valid: true}
	}
	if errMsg != "" {
		job.ErrorMessage = sql.NullString{String: errMsg, Valid: true}
	}
	job.CompletedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	m.jobs[id] = job
	return true, nil
}

func (m *MemStore) CancelJob(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || (job.Status != "pending" && job.Status != "running") {
		return false, nil
	}
	job.Status = "cancelled"
	job.CompletedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	m.jobs[id] = job
	return true, nil
}

func (m *MemStore) DeleteJob(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status == "pending" || job.Status == "running" {
		return false, nil
	}
	delete(m.jobs, id)
	return true, nil
}

func (m *MemStore) MarkSeen(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return false, nil
	}
	job.Seen = true
	m.jobs[id] = job
	return true, nil
}

func (m *MemStore) DeleteExpiredJobs(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, job := range m.jobs {
		switch job.Status {
		case "completed", "failed", "cancelled":
			if job.CompletedAt.Valid && job.CompletedAt.Time.Before(cutoff) {
				delete(m.jobs, id)
				deleted++
			}
		}
	}
	return deleted, nil
}

func (m *MemStore) ActiveSettings(_ context.Context) (store.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return store.Settings{}, sql.ErrNoRows
	}
	return *m.settings, nil
}

func (m *MemStore) SaveSettings(_ context.Context, st store.Settings) (store.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	now := time.Now().UTC()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.UpdatedAt = now
	st.Active = true
	m.settings = &st
	return st, nil
}
