// Package extract runs the content-to-recipe pipeline for a single
// job: fetch (URL inputs only), prompt build, LLM call, envelope
// parse, JSON decode, and schema validation. No stage retries; the
// pipeline runs to completion or fails with a typed error.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AdrianVollmer/Plated/internal/fetch"
	"github.com/AdrianVollmer/Plated/internal/llm"
	"github.com/AdrianVollmer/Plated/internal/recipe"
	"github.com/AdrianVollmer/Plated/internal/store"
)

// fetchTimeout bounds the URL-fetch stage. It is independent of the
// job's configured LLM timeout.
const fetchTimeout = 30 * time.Second

// maxExcerptBytes caps how much of an unparseable response is echoed
// back in error messages.
const maxExcerptBytes = 500

// maxReportedIssues caps how many validation issues a single error
// message spells out; the rest are summarized as a count.
const maxReportedIssues = 3

// Input describes one extraction run.
type Input struct {
	Type         string // text | html | url
	Content      string
	Settings     store.Settings
	Instructions string
	Timeout      time.Duration // LLM call bound; settings default when zero
}

// Service orchestrates the pipeline stages.
type Service struct {
	fetcher fetch.Fetcher
	caller  llm.Caller
	logger  *slog.Logger
}

func NewService(fetcher fetch.Fetcher, caller llm.Caller, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, caller: caller, logger: logger}
}

// Extract runs the full pipeline and returns the validated recipe
// JSON. Errors are *fetch.Error, *llm.APIError, or
// *llm.InvalidResponseError.
func (s *Service) Extract(ctx context.Context, in Input) (json.RawMessage, error) {
	content := in.Content
	if in.Type == "url" {
		fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		fetched, err := s.fetcher.Fetch(fetchCtx, in.Content)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("url_content_fetched", "url", in.Content, "bytes", len(fetched))
		content = fetched
	}

	prompt := llm.BuildPrompt(content, in.Instructions)
	schema := recipe.JSONSchema()

	timeout := in.Timeout
	if timeout <= 0 {
		timeout = time.Duration(in.Settings.TimeoutSeconds) * time.Second
	}

	envelope, err := s.caller.Call(ctx, llm.Options{
		APIURL:      in.Settings.APIURL,
		APIKey:      in.Settings.APIKey,
		Model:       in.Settings.Model,
		Temperature: in.Settings.Temperature,
	}, prompt, schema, timeout)
	if err != nil {
		return nil, err
	}

	body, err := llm.ExtractContent(envelope)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, &llm.InvalidResponseError{Message: fmt.Sprintf(
			"Error parsing AI response as JSON: %v. The AI may have returned invalid JSON. Response excerpt: %s",
			err, excerpt(body),
		)}
	}

	if issues := recipe.Validate(data); len(issues) > 0 {
		msg := "Validation failed: " + strings.Join(issues[:min(len(issues), maxReportedIssues)], "; ")
		if len(issues) > maxReportedIssues {
			msg += fmt.Sprintf(" (and %d more errors)", len(issues)-maxReportedIssues)
		}
		s.logger.Warn("extracted_recipe_invalid", "issues", len(issues))
		return nil, &llm.InvalidResponseError{Message: msg}
	}

	validated, err := json.Marshal(data)
	if err != nil {
		return nil, &llm.InvalidResponseError{Message: fmt.Sprintf("Error re-encoding recipe data: %v", err)}
	}

	s.logger.Info("recipe_extracted", "input_type", in.Type)
	return validated, nil
}

func excerpt(s string) string {
	if len(s) > maxExcerptBytes {
		return s[:maxExcerptBytes]
	}
	return s
}
