package http

import (
	"encoding/json"
	"time"

	"github.com/AdrianVollmer/Plated/internal/recipe"
	"github.com/AdrianVollmer/Plated/internal/store"
)

// ErrorResponse is the error envelope shared by all endpoints.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// ExtractRequest creates a new extraction job.
type ExtractRequest struct {
	InputType      string `json:"inputType"`
	InputContent   string `json:"inputContent"`
	Instructions   string `json:"instructions,omitempty"`
	TimeoutSeconds int32  `json:"timeoutSeconds,omitempty"`
}

// ExtractResponse is returned from POST /v1/extract. Background jobs
// carry only the job envelope; synchronous jobs include the terminal
// job with its result inline.
type ExtractResponse struct {
	Success    bool     `json:"success"`
	Background bool     `json:"background"`
	Job        *JobView `json:"job,omitempty"`
	Code       string   `json:"code,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// JobView is the API representation of a job row.
type JobView struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	InputType      string          `json:"inputType"`
	Instructions   string          `json:"instructions,omitempty"`
	TimeoutSeconds int32           `json:"timeoutSeconds"`
	ResultData     json.RawMessage `json:"resultData,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	StartedAt      *time.Time      `json:"startedAt,omitempty"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	Seen           bool            `json:"seen"`
}

func jobView(j store.Job) *JobView {
	v := &JobView{
		ID:             j.ID.String(),
		Status:         j.Status,
		InputType:      j.InputType,
		Instructions:   j.Instructions,
		TimeoutSeconds: j.TimeoutSeconds,
		CreatedAt:      j.CreatedAt,
		Seen:           j.Seen,
	}
	if j.ResultData.Valid {
		v.ResultData = json.RawMessage(j.ResultData.RawMessage)
	}
	if j.ErrorMessage.Valid {
		v.ErrorMessage = j.ErrorMessage.String
	}
	if j.StartedAt.Valid {
		t := j.StartedAt.Time
		v.StartedAt = &t
	}
	if j.CompletedAt.Valid {
		t := j.CompletedAt.Time
		v.CompletedAt = &t
	}
	return v
}

// JobListResponse is returned from GET /v1/jobs.
type JobListResponse struct {
	Success bool       `json:"success"`
	Jobs    []*JobView `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Success bool     `json:"success"`
	Job     *JobView `json:"job"`
}

// JobStatusResponse is the lightweight polling shape. Pollers of a
// background job learn the failure reason and whether a result is
// ready without fetching the full job.
type JobStatusResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	HasResult bool   `json:"hasResult"`
	Seen      bool   `json:"seen"`
}

// UseResultResponse is returned when a completed job's result is
// turned into a recipe.
type UseResultResponse struct {
	Success  bool          `json:"success"`
	RecipeID string        `json:"recipeId,omitempty"`
	Recipe   recipe.Recipe `json:"recipe"`
}

// SettingsRequest creates a new active AI settings revision.
type SettingsRequest struct {
	APIURL         string  `json:"apiUrl"`
	APIKey         string  `json:"apiKey"`
	Model          string  `json:"model"`
	MaxTokens      int32   `json:"maxTokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	TimeoutSeconds int32   `json:"timeoutSeconds,omitempty"`
}

// SettingsView never includes the API key; only whether one is set.
type SettingsView struct {
	APIURL         string  `json:"apiUrl"`
	APIKeySet      bool    `json:"apiKeySet"`
	Model          string  `json:"model"`
	MaxTokens      int32   `json:"maxTokens"`
	Temperature    float64 `json:"temperature"`
	TimeoutSeconds int32   `json:"timeoutSeconds"`
}

func settingsView(s store.Settings) SettingsView {
	return SettingsView{
		APIURL:         s.APIURL,
		APIKeySet:      s.APIKey != "",
		Model:          s.Model,
		MaxTokens:      s.MaxTokens,
		Temperature:    s.Temperature,
		TimeoutSeconds: s.TimeoutSeconds,
	}
}

// SettingsResponse wraps the settings view.
type SettingsResponse struct {
	Success  bool         `json:"success"`
	Settings SettingsView `json:"settings"`
}
