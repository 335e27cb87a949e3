package handlers

import (
	"net/http"
	"strings"

	"wmscore/internal/common"
	"wmscore/internal/models"
	"wmscore/internal/services"

	"github.com/labstack/echo/v4"
)

// TaskHandlers serves putaway and picking tasks to warehouse workers.
type TaskHandlers struct {
	tasks services.TaskOrchestrator
}

func NewTaskHandlers(tasks services.TaskOrchestrator) *TaskHandlers {
	return &TaskHandlers{tasks: tasks}
}

// ListMyTasks returns the caller's tasks, optionally filtered by ?type=PUTAWAY|PICKING.
func (h *TaskHandlers) ListMyTasks(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	taskType := models.TaskType(strings.ToUpper(c.QueryParam("type")))
	if taskType != "" && taskType != models.TaskPutaway && taskType != models.TaskPicking {
		return common.SendValidationError(c, "type", "must be PUTAWAY or PICKING")
	}

	tasks, err := h.tasks.ListForUser(c.Request().Context(), userID, taskType)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"count": len(tasks),
	})
}

func (h *TaskHandlers) GetTask(c echo.Context) error {
	taskID, err := common.ParseID(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	task, err := h.tasks.GetTask(c.Request().Context(), taskID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *TaskHandlers) StartPutaway(c echo.Context) error {
	taskID, err := common.ParseID(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	task, err := h.tasks.StartPutaway(c.Request().Context(), taskID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

type PutawayLeg struct {
	BinID    int64 `json:"binId" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"gte=0"`
}

// CompletePutawayRequest may override the recorded allocation plan.
type CompletePutawayRequest struct {
	Allocations []PutawayLeg `json:"allocations" validate:"dive"`
}

func (h *TaskHandlers) CompletePutaway(c echo.Context) error {
	taskID, err := common.ParseID(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req CompletePutawayRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	plan := make([]models.BinAllocation, 0, len(req.Allocations))
	for _, leg := range req.Allocations {
		plan = append(plan, models.BinAllocation{BinID: leg.BinID, Quantity: leg.Quantity})
	}
	task, err := h.tasks.CompletePutaway(c.Request().Context(), taskID, plan)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Putaway completed",
		"task":    task,
	})
}

func (h *TaskHandlers) CompletePicking(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	taskID, err := common.ParseID(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	task, err := h.tasks.CompletePicking(c.Request().Context(), taskID, userID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Picking completed",
		"task":    task,
	})
}

func (h *TaskHandlers) PutawayStats(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	stats, err := h.tasks.PutawayStats(c.Request().Context(), userID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *TaskHandlers) PickingStats(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	stats, err := h.tasks.PickingStats(c.Request().Context(), userID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
