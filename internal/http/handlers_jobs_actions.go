package http

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/AdrianVollmer/Plated/internal/jobs"
)

// actionError maps dispatcher errors onto the shared error envelope.
func actionError(c *fiber.Ctx, err error, failCode string) error {
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		return jobNotFound(c)
	case errors.Is(err, jobs.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Success: false,
			Code:    "CONFLICT",
			Error:   err.Error(),
		})
	case errors.Is(err, jobs.ErrNotConfigured):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_CONFIGURED",
			Error:   err.Error(),
		})
	}
	return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
		Success: false,
		Code:    failCode,
		Error:   err.Error(),
	})
}

func cancelJobHandler(c *fiber.Ctx) error {
	disp := c.Locals("dispatcher").(*jobs.Dispatcher)

	id, err := parseJobID(c)
	if err != nil {
		return badJobID(c)
	}

	if err := disp.Cancel(c.Context(), id); err != nil {
		return actionError(c, err, "JOB_CANCEL_FAILED")
	}
	return c.JSON(fiber.Map{"success": true})
}

// retryJobHandler creates a fresh job from a failed one. The original
// job is unchanged; the response carries the new job.
func retryJobHandler(c *fiber.Ctx) error {
	disp := c.Locals("dispatcher").(*jobs.Dispatcher)

	id, err := parseJobID(c)
	if err != nil {
		return badJobID(c)
	}

	job, background, err := disp.Retry(c.Context(), id)
	if err != nil {
		return actionError(c, err, "JOB_RETRY_FAILED")
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

func markSeenHandler(c *fiber.Ctx) error {
	disp := c.Locals("dispatcher").(*jobs.Dispatcher)

	id, err := parseJobID(c)
	if err != nil {
		return badJobID(c)
	}

	if err := disp.MarkSeen(c.Context(), id); err != nil {
		return actionError(c, err, "JOB_SEEN_FAILED")
	}
	return c.JSON(fiber.Map{"success": true})
}

// useResultHandler turns a completed job's validated result into a
// recipe.
func useResultHandler(c *fiber.Ctx) error {
	disp := c.Locals("dispatcher").(*jobs.Dispatcher)

	id, err := parseJobID(c)
	if err != nil {
		return badJobID(c)
	}

	r, recipeID, err := disp.UseResult(c.Context(), id)
	if err != nil {
		return actionError(c, err, "JOB_USE_FAILED")
	}

	resp := UseResultResponse{Success: true, Recipe: r}
	if recipeID != uuid.Nil {
		resp.RecipeID = recipeID.String()
	}
	return c.JSON(resp)
}

func deleteJobHandler(c *fiber.Ctx) error {
	disp := c.Locals("dispatcher").(*jobs.Dispatcher)

	id, err := parseJobID(c)
	if err != nil {
		return badJobID(c)
	}

	if err := disp.Delete(c.Context(), id); err != nil {
		return actionError(c, err, "JOB_DELETE_FAILED")
	}
	return c.JSON(fiber.Map{"success": true})
}
