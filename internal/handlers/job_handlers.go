package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// JobRunner runs the scheduled housekeeping jobs on demand.
type JobRunner interface {
	ReconcileShipments(ctx context.Context) int
	RemindPendingApprovals(ctx context.Context) int
}

type JobHandlers struct {
	runner JobRunner
}

func NewJobHandlers(runner JobRunner) *JobHandlers {
	return &JobHandlers{runner: runner}
}

func (h *JobHandlers) ReconcileShipments(c echo.Context) error {
	started := time.Now()
	completed := h.runner.ReconcileShipments(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"job":       "shipment-reconcile",
		"completed": completed,
		"duration":  time.Since(started).String(),
	})
}

func (h *JobHandlers) RemindPendingApprovals(c echo.Context) error {
	started := time.Now()
	reminded := h.runner.RemindPendingApprovals(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"job":      "approval-reminder",
		"reminded": reminded,
		"duration": time.Since(started).String(),
	})
}
