package handlers

import (
	"wmscore/internal/middleware"
	"wmscore/internal/models"

	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Health        *HealthHandlers
	Verification  *VerificationHandlers
	Tasks         *TaskHandlers
	Approvals     *ApprovalHandlers
	Allocation    *AllocationHandlers
	Inventory     *InventoryHandlers
	Notifications *NotificationHandlers
	Jobs          *JobHandlers
}

// RegisterRoutes mounts the API under /api/v1 behind auth.
func RegisterRoutes(e *echo.Echo, h *Handlers, auth echo.MiddlewareFunc) {
	e.GET("/health", h.Health.HealthCheck)
	e.GET("/health/live", h.Health.Liveness)

	api := middleware.VersionRoute(e, middleware.CurrentAPIVersion)
	api.Use(auth)
	supervisor := middleware.RequireRole(models.RoleSupervisor, models.RoleAdmin)

	api.POST("/verification/items/:id", h.Verification.VerifyItem)

	tasks := api.Group("/tasks")
	tasks.GET("", h.Tasks.ListMyTasks)
	tasks.GET("/stats/putaway", h.Tasks.PutawayStats)
	tasks.GET("/stats/picking", h.Tasks.PickingStats)
	tasks.GET("/:id", h.Tasks.GetTask)
	tasks.POST("/:id/start", h.Tasks.StartPutaway)
	tasks.POST("/:id/complete-putaway", h.Tasks.CompletePutaway)
	tasks.POST("/:id/complete-picking", h.Tasks.CompletePicking)

	approvals := api.Group("/approvals", supervisor)
	approvals.GET("", h.Approvals.ListPending)
	approvals.GET("/:id", h.Approvals.GetApproval)
	approvals.POST("/:id/approve", h.Approvals.Approve)
	approvals.POST("/:id/reject", h.Approvals.Reject)

	api.GET("/allocation/preview", h.Allocation.Preview)
	api.GET("/zones/:id/capacity", h.Allocation.ZoneCapacity)

	inventory := api.Group("/inventory")
	inventory.GET("/skus/:sku_id", h.Inventory.ListSkuStock)
	inventory.GET("/skus/:sku_id/bins/:bin_id", h.Inventory.GetBinStock)
	inventory.PUT("/skus/:sku_id/bins/:bin_id", h.Inventory.SetBinStock, supervisor)
	inventory.POST("/transfer", h.Inventory.Transfer, supervisor)

	api.GET("/notifications", h.Notifications.ListMine)
	api.POST("/notifications/:id/read", h.Notifications.MarkRead)

	jobs := api.Group("/jobs", middleware.RequireRole(models.RoleAdmin))
	jobs.POST("/shipment-reconcile", h.Jobs.ReconcileShipments)
	jobs.POST("/approval-reminder", h.Jobs.RemindPendingApprovals)
}
