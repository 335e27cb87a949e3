package handlers

import (
	"net/http"

	"wmscore/internal/common"
	"wmscore/internal/services"

	"github.com/labstack/echo/v4"
)

// AllocationHandlers exposes read-only allocation planning.
type AllocationHandlers struct {
	allocator services.LocationAllocator
}

func NewAllocationHandlers(allocator services.LocationAllocator) *AllocationHandlers {
	return &AllocationHandlers{allocator: allocator}
}

type AllocationPreviewRequest struct {
	SkuID    int64 `query:"sku_id" validate:"required,gt=0"`
	Quantity int   `query:"quantity" validate:"required,gt=0"`
}

// Preview shows where a quantity would be stored without storing anything.
func (h *AllocationHandlers) Preview(c echo.Context) error {
	var req AllocationPreviewRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	plan, err := h.allocator.Allocate(c.Request().Context(), req.SkuID, req.Quantity)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"plan":          plan,
		"fully_covered": plan.FullyCovered(),
	})
}

type ZoneCapacityRequest struct {
	SkuID int64 `query:"sku_id" validate:"gte=0"`
}

func (h *AllocationHandlers) ZoneCapacity(c echo.Context) error {
	zoneID, err := common.ParseID(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req ZoneCapacityRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	capacity, err := h.allocator.CheckZoneCapacity(c.Request().Context(), zoneID, req.SkuID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, capacity)
}
