package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/praveen2025work/ticketapp-sub000/internal/service"
)

// JobRunner triggers a batch job on demand; ran is false when a run was
// already in progress. scheduler.Scheduler satisfies it.
type JobRunner interface {
	RunNow(ctx context.Context, job string) (service.JobResult, bool, error)
}

// JobsHandler exposes manual job triggers.
type JobsHandler struct {
	runner JobRunner
}

// NewJobsHandler constructs handler.
func NewJobsHandler(runner JobRunner) *JobsHandler {
	return &JobsHandler{runner: runner}
}

// Run POST /admin/jobs/:name/run.
func (h *JobsHandler) Run(c *fiber.Ctx) error {
	result, ran, err := h.runner.RunNow(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	if !ran {
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{
			"job":     c.Params("name"),
			"skipped": true,
		}})
	}
	return c.JSON(fiber.Map{"data": result})
}
