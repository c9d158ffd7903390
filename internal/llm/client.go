package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AdrianVollmer/Plated/internal/metrics"
)

// Options carries the endpoint configuration for a single call. It is
// derived from the active settings record; the client itself holds no
// credentials.
type Options struct {
	APIURL      string
	APIKey      string
	Model       string
	Temperature float64
}

// Caller issues a single LLM request. Satisfied by *Client and by test
// fakes.
type Caller interface {
	Call(ctx context.Context, opts Options, prompt string, schema map[string]any, timeout time.Duration) ([]byte, error)
}

// Client talks to an OpenAI-compatible completion endpoint. It
// performs exactly one request per call, with no retries or backoff.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   &http.Client{},
		logger: logger,
	}
}

// apiRequest is the wire payload. The schema rides along as a
// structured-output format hint; streaming is always disabled.
type apiRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Options struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
	Format map[string]any `json:"format"`
	Stream bool           `json:"stream"`
}

// Call sends the prompt to the configured endpoint with bearer auth
// and returns the raw response envelope. Transport failures, non-2xx
// statuses, and server-reported errors all surface as *APIError.
func (c *Client) Call(ctx context.Context, opts Options, prompt string, schema map[string]any, timeout time.Duration) ([]byte, error) {
	body := apiRequest{
		Model:  opts.Model,
		Prompt: prompt,
		Format: schema,
		Stream: false,
	}
	body.Options.Temperature = opts.Temperature

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("Error calling LLM API: %v", err)}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.APIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("Error calling LLM API: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	c.logger.Debug("llm_request", "url", opts.APIURL, "model", opts.Model, "prompt_bytes", len(prompt))

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordLLMCall(opts.Model, false)
		return nil, &APIError{Message: fmt.Sprintf("Error calling LLM API: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("Error calling LLM API: %v", err)}
	}

	c.logger.Debug("llm_response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordLLMCall(opts.Model, false)
		msg := fmt.Sprintf("Error calling LLM API: server returned status %d", resp.StatusCode)
		if serverErr := serverErrorMessage(raw); serverErr != "" {
			msg += ": " + serverErr
		}
		return nil, &APIError{Message: msg}
	}

	metrics.RecordLLMCall(opts.Model, true)
	return raw, nil
}

// serverErrorMessage pulls the best available error description out of
// a failure response body: a top-level "error" string, or an error
// object with a "message" field.
func serverErrorMessage(raw []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Error) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Error, &s); err == nil {
		return s
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body.Error, &obj); err == nil {
		return obj.Message
	}
	return ""
}
