package http

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/AdrianVollmer/Plated/internal/jobs"
	"github.com/AdrianVollmer/Plated/internal/store"
)

func listJobsHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(jobs.Store)

	filter := store.JobListFilter{Limit: 50}
	if s := c.Query("status"); s != "" {
		if !validStatusFilter(s) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    "BAD_REQUEST",
				Error:   "Unknown status filter " + strconv.Quote(s),
			})
		}
		filter.Status = s
	}
	if n := c.QueryInt("limit"); n > 0 && n <= 200 {
		filter.Limit = int32(n)
	}
	if n := c.QueryInt("offset"); n > 0 {
		filter.Offset = int32(n)
	}

	list, err := st.ListJobs(c.Context(), filter)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "JOB_LIST_FAILED",
			Error:   err.Error(),
		})
	}

	views := make([]*JobView, 0, len(list))
	for _, j := range list {
		views = append(views, jobView(j))
	}
	return c.JSON(JobListResponse{Success: true, Jobs: views})
}

func getJobHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(jobs.Store)

	id, err := parseJobID(c)
	if err != nil {
		return badJobID(c)
	}

	job, err := st.GetJob(c.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jobNotFound(c)
		}
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "JOB_LOOKUP_FAILED",
			Error:   err.Error(),
		})
	}

	// Viewing the full detail of a finished job acknowledges its
	// outcome. Cancelled jobs were acted on by the user already.
	switch jobs.Status(job.Status) {
	case jobs.StatusCompleted, jobs.StatusFailed:
		if !job.Seen {
			if ok, err := st.MarkSeen(c.Context(), id); err == nil && ok {
				job.Seen = true
			}
		}
	}

	return c.JSON(JobResponse{Success: true, Job: jobView(job)})
}

// jobStatusHandler is the lightweight polling endpoint for background
// jobs.
func jobStatusHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(jobs.Store)

	id, err := parseJobID(c)
	if err != nil {
		return badJobID(c)
	}

	job, err := st.GetJob(c.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jobNotFound(c)
		}
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "JOB_LOOKUP_FAILED",
			Error:   err.Error(),
		})
	}

	resp := JobStatusResponse{
		Success:   true,
		Status:    job.Status,
		HasResult: job.ResultData.Valid,
		Seen:      job.Seen,
	}
	if job.ErrorMessage.Valid {
		resp.Error = job.ErrorMessage.String
	}
	return c.JSON(resp)
}

func validStatusFilter(s string) bool {
	switch jobs.Status(s) {
	case jobs.StatusPending, jobs.StatusRunning, jobs.StatusCompleted, jobs.StatusFailed, jobs.StatusCancelled:
		return true
	}
	return false
}

func parseJobID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func badJobID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Success: false,
		Code:    "BAD_REQUEST",
		Error:   "invalid job id",
	})
}

func jobNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Success: false,
		Code:    "NOT_FOUND",
		Error:   "job not found",
	})
}
