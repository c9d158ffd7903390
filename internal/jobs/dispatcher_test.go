package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/AdrianVollmer/Plated/internal/extract"
	"github.com/AdrianVollmer/Plated/internal/llm"
	"github.com/AdrianVollmer/Plated/internal/store"
	"github.com/AdrianVollmer/Plated/internal/store/memstore"
)

type fakeExtractor struct {
	result json.RawMessage
	err    error
	calls  atomic.Int64
	got    extract.Input
}

func (f *fakeExtractor) Extract(_ context.Context, in extract.Input) (json.RawMessage, error) {
	f.calls.Add(1)
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestDispatcher(t *testing.T, ex Extractor) (*Dispatcher, *memstore.MemStore) {
	t.Helper()
	st := memstore.New()
	if _, err := st.SaveSettings(context.Background(), store.Settings{
		APIURL:         "http://llm.local/api",
		APIKey:         "k",
		Model:          "m",
		TimeoutSeconds: 120,
	}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return NewDispatcher(context.Background(), st, ex, nil, nil), st
}

func TestCreateAndDispatch_SyncCompletes(t *testing.T) {
	ex := &fakeExtractor{result: json.RawMessage(`{"title": "Soup"}`)}
	disp, _ := newTestDispatcher(t, ex)

	job, background, err := disp.CreateAndDispatch(context.Background(), CreateRequest{
		InputType:      "text",
		InputContent:   "some recipe text",
		TimeoutSeconds: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if background {
		t.Fatalf("timeout of 10s must run synchronously")
	}
	if job.Status != string(StatusCompleted) {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if !job.ResultData.Valid || string(job.ResultData.RawMessage) != `{"title": "Soup"}` {
		t.Fatalf("result not stored: %+v", job.ResultData)
	}
	if !job.StartedAt.Valid || !job.CompletedAt.Valid {
		t.Fatalf("timestamps not recorded: %+v", job)
	}
	if job.CompletedAt.Time.Before(job.StartedAt.Time) {
		t.Fatalf("completed_at before started_at")
	}
}

func TestCreateAndDispatch_BackgroundAboveCeiling(t *testing.T) {
	ex := &fakeExtractor{result: json.RawMessage(`{"title": "Soup"}`)}
	disp, st := newTestDispatcher(t, ex)

	job, background, err := disp.CreateAndDispatch(context.Background(), CreateRequest{
		InputType:      "text",
		InputContent:   "some recipe text",
		TimeoutSeconds: 11,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !background {
		t.Fatalf("timeout of 11s must run in the background")
	}
	if job.Status != string(StatusPending) {
		t.Fatalf("background dispatch must return the pending job, got %s", job.Status)
	}

	disp.Wait()

	done, err := st.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if done.Status != string(StatusCompleted) {
		t.Fatalf("expected completed after Wait, got %s", done.Status)
	}
}

func TestCreateAndDispatch_DefaultTimeoutFromSettings(t *testing.T) {
	ex := &fakeExtractor{result: json.RawMessage(`{"title": "Soup"}`)}
	disp, _ := newTestDispatcher(t, ex)

	// Settings timeout is 120s, above the ceiling, so the job must go
	// to the background.
	job, background, err := disp.CreateAndDispatch(context.Background(), CreateRequest{
		InputType:    "text",
		InputContent: "x",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !background {
		t.Fatalf("expected background dispatch")
	}
	if job.TimeoutSeconds != 120 {
		t.Fatalf("expected settings default 120, got %d", job.TimeoutSeconds)
	}
	disp.Wait()
}

func TestCreateAndDispatch_NotConfigured(t *testing.T) {
	st := memstore.New()
	disp := NewDispatcher(context.Background(), st, &fakeExtractor{}, nil, nil)

	_, _, err := disp.CreateAndDispatch(context.Background(), CreateRequest{
		InputType:    "text",
		InputContent: "x",
	})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCreateAndDispatch_BadInput(t *testing.T) {
	ex := &fakeExtractor{}
	disp, _ := newTestDispatcher(t, ex)

	if _, _, err := disp.CreateAndDispatch(context.Background(), CreateRequest{InputType: "pdf", InputContent: "x"}); !errors.Is(err, ErrBadInput) {
		t.Fatalf("expected ErrBadInput for unknown type, got %v", err)
	}
	if _, _, err := disp.CreateAndDispatch(context.Background(), CreateRequest{InputType: "text"}); !errors.Is(err, ErrBadInput) {
		t.Fatalf("expected ErrBadInput for empty content, got %v", err)
	}
	if ex.calls.Load() != 0 {
		t.Fatalf("extractor must not run for rejected input")
	}
}

func TestRun_FailureStoresTypedMessage(t *testing.T) {
	ex := &fakeExtractor{err: &llm.APIError{Message: "Error calling LLM API: server returned status 500"}}
	disp, _ := newTestDispatcher(t, ex)

	job, _, err := disp.CreateAndDispatch(context.Background(), CreateRequest{
		InputType:      "text",
		InputContent:   "x",
		TimeoutSeconds: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != string(StatusFailed) {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if !job.ErrorMessage.Valid || job.ErrorMessage.String != "Error calling LLM API: server returned status 500" {
		t.Fatalf("error message not stored: %+v", job.ErrorMessage)
	}
	if job.ResultData.Valid {
		t.Fatalf("failed job must not carry a result")
	}
}

func TestCancel_PendingJobNeverRuns(t *testing.T) {
	ex := &fakeExtractor{result: json.RawMessage(`{"title": "Soup"}`)}
	disp, st := newTestDispatcher(t, ex)

	id := uuid.New()
	st.Add(store.Job{ID: id, Status: string(StatusPending), InputType: "text", InputContent: "x", TimeoutSeconds: 60, CreatedAt: time.Now().UTC()})

	if err := disp.Cancel(context.Background(), id); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	disp.Run(context.Background(), id)

	if ex.calls.Load() != 0 {
		t.Fatalf("cancelled job must not reach the extractor")
	}
	job, _ := st.GetJob(context.Background(), id)
	if job.Status != string(StatusCancelled) {
		t.Fatalf("expected cancelled, got %s", job.Status)
	}
}

func TestCancel_TerminalJobConflicts(t *testing.T) {
	disp, st := newTestDispatcher(t, &fakeExtractor{})

	id := uuid.New()
	st.Add(store.Job{ID: id, Status: string(StatusCompleted), CreatedAt: time.Now().UTC()})

	err := disp.Cancel(context.Background(), id)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCancel_MissingJob(t *testing.T) {
	disp, _ := newTestDispatcher(t, &fakeExtractor{})
	if err := disp.Cancel(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFinish_LateResultDoesNotClobberCancel(t *testing.T) {
	disp, st := newTestDispatcher(t, &fakeExtractor{})

	id := uuid.New()
	st.Add(store.Job{ID: id, Status: string(StatusRunning), CreatedAt: time.Now().UTC()})

	if err := disp.Cancel(context.Background(), id); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Simulate the worker finishing after the cancel won.
	disp.finish(context.Background(), id, StatusCompleted, json.RawMessage(`{"title": "late"}`), "")

	job, _ := st.GetJob(context.Background(), id)
	if job.Status != string(StatusCancelled) {
		t.Fatalf("cancel must win, got %s", job.Status)
	}
	if job.ResultData.Valid {
		t.Fatalf("late result must be discarded")
	}
}

func TestRetry_CreatesNewJobWithSameInput(t *testing.T) {
	ex := &fakeExtractor{result: json.RawMessage(`{"title": "Soup"}`)}
	disp, st := newTestDispatcher(t, ex)

	orig := store.Job{
		ID:             uuid.New(),
		Status:         string(StatusFailed),
		InputType:      "text",
		InputContent:   "the original text",
		Instructions:   "metric units",
		TimeoutSeconds: 5,
		ErrorMessage:   sql.NullString{String: "boom", Valid: true},
		CreatedAt:      time.Now().UTC(),
	}
	st.Add(orig)

	fresh, background, err := disp.Retry(context.Background(), orig.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if background {
		t.Fatalf("5s timeout must run synchronously")
	}
	if fresh.ID == orig.ID {
		t.Fatalf("retry must create a new job")
	}
	if fresh.InputContent != orig.InputContent || fresh.Instructions != orig.Instructions || fresh.TimeoutSeconds != orig.TimeoutSeconds {
		t.Fatalf("input fields must carry over: %+v", fresh)
	}
	if fresh.Status != string(StatusCompleted) {
		t.Fatalf("expected completed, got %s", fresh.Status)
	}

	// Original is untouched.
	kept, _ := st.GetJob(context.Background(), orig.ID)
	if kept.Status != string(StatusFailed) || !kept.ErrorMessage.Valid {
		t.Fatalf("original job must not change: %+v", kept)
	}
}

func TestRetry_OnlyFailedJobs(t *testing.T) {
	disp, st := newTestDispatcher(t, &fakeExtractor{})

	for _, status := range []Status{StatusPending, StatusRunning, StatusCompleted, StatusCancelled} {
		id := uuid.New()
		st.Add(store.Job{ID: id, Status: string(status), CreatedAt: time.Now().UTC()})
		if _, _, err := disp.Retry(context.Background(), id); !errors.Is(err, ErrConflict) {
			t.Fatalf("%s: expected ErrConflict, got %v", status, err)
		}
	}
}

func TestDelete_GuardsActiveJobs(t *testing.T) {
	disp, st := newTestDispatcher(t, &fakeExtractor{})

	pending := uuid.New()
	st.Add(store.Job{ID: pending, Status: string(StatusPending), CreatedAt: time.Now().UTC()})
	if err := disp.Delete(context.Background(), pending); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for pending job, got %v", err)
	}

	done := uuid.New()
	st.Add(store.Job{ID: done, Status: string(StatusFailed), CreatedAt: time.Now().UTC()})
	if err := disp.Delete(context.Background(), done); err != nil {
		t.Fatalf("delete terminal job: %v", err)
	}
	if _, err := st.GetJob(context.Background(), done); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("job should be gone")
	}
}

func TestMarkSeen(t *testing.T) {
	disp, st := newTestDispatcher(t, &fakeExtractor{})

	id := uuid.New()
	st.Add(store.Job{ID: id, Status: string(StatusCompleted), CreatedAt: time.Now().UTC()})

	if err := disp.MarkSeen(context.Background(), id); err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	job, _ := st.GetJob(context.Background(), id)
	if !job.Seen {
		t.Fatalf("seen flag not set")
	}

	if err := disp.MarkSeen(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUseResult(t *testing.T) {
	disp, st := newTestDispatcher(t, &fakeExtractor{})

	id := uuid.New()
	st.Add(store.Job{
		ID:         id,
		Status:     string(StatusCompleted),
		ResultData: pqtype.NullRawMessage{RawMessage: json.RawMessage(`{"title": "Soup"}`), Valid: true},
		CreatedAt:  time.Now().UTC(),
	})

	r, _, err := disp.UseResult(context.Background(), id)
	if err != nil {
		t.Fatalf("use result: %v", err)
	}
	if r.Title != "Soup" {
		t.Fatalf("unexpected recipe: %+v", r)
	}
	if r.Servings != 1 {
		t.Fatalf("absent servings must default to 1, got %d", r.Servings)
	}
}

func TestUseResult_RequiresCompletedJob(t *testing.T) {
	disp, st := newTestDispatcher(t, &fakeExtractor{})

	id := uuid.New()
	st.Add(store.Job{ID: id, Status: string(StatusFailed), CreatedAt: time.Now().UTC()})

	if _, _, err := disp.UseResult(context.Background(), id); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestStatus_TerminalExclusivity(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusRunning} {
		if s.IsTerminal() {
			t.Fatalf("%s must not be terminal", s)
		}
	}
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.IsTerminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
}
