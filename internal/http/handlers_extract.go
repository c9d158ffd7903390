package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/AdrianVollmer/Plated/internal/jobs"
)

// extractHandler creates an extraction job. Jobs with a timeout above
// the synchronous ceiling run in the background and the response only
// carries the pending job; shorter jobs run inline and return the
// finished job, result or error included.
func extractHandler(c *fiber.Ctx) error {
	var reqBody ExtractRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ExtractResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}

	if !jobs.ValidInputType(reqBody.InputType) {
		return c.Status(fiber.StatusBadRequest).JSON(ExtractResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Field 'inputType' must be one of text, html, url",
		})
	}

	content := reqBody.InputContent
	if reqBody.InputType == "url" {
		content = strings.TrimSpace(content)
		parsed, err := url.Parse(content)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return c.Status(fiber.StatusBadRequest).JSON(ExtractResponse{
				Success: false,
				Code:    "BAD_REQUEST_INVALID_URL",
				Error:   "Field 'inputContent' must be an http or https URL",
			})
		}
	}
	if content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ExtractResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Missing required field 'inputContent'",
		})
	}

	disp := c.Locals("dispatcher").(*jobs.Dispatcher)

	job, background, err := disp.CreateAndDispatch(c.Context(), jobs.CreateRequest{
		InputType:      reqBody.InputType,
		InputContent:   content,
		Instructions:   reqBody.Instructions,
		TimeoutSeconds: reqBody.TimeoutSeconds,
	})
	if err != nil {
		if errors.Is(err, jobs.ErrNotConfigured) {
			return c.Status(fiber.StatusConflict).JSON(ExtractResponse{
				Success: false,
				Code:    "NOT_CONFIGURED",
				Error:   err.Error(),
			})
		}
		if errors.Is(err, jobs.ErrBadInput) {
			return c.Status(fiber.StatusBadRequest).JSON(ExtractResponse{
				Success: false,
				Code:    "BAD_REQUEST",
				Error:   err.Error(),
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(ExtractResponse{
			Success: false,
			Code:    "JOB_CREATE_FAILED",
			Error:   err.Error(),
		})
	}

	if loggerVal := c.Locals("logger"); loggerVal != nil {
		if lg, ok := loggerVal.(interface{ Info(msg string, args ...any) }); ok {
			lg.Info("extract_job_created",
				"job_id", job.ID.String(),
				"input_type", job.InputType,
				"timeout_seconds", job.TimeoutSeconds,
				"background", background,
			)
		}
	}

	status := http.StatusOK
	if background {
		status = http.StatusAccepted
	}
	return c.Status(status).JSON(ExtractResponse{
		Success:    true,
		Background: background,
		Job:        jobView(job),
	})
}
