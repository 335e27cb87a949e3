package handlers

import (
	"net/http"

	"wmscore/internal/common"
	"wmscore/internal/models"
	"wmscore/internal/services"

	"github.com/labstack/echo/v4"
)

// InventoryHandlers exposes the stock ledger.
type InventoryHandlers struct {
	ledger services.InventoryLedger
}

func NewInventoryHandlers(ledger services.InventoryLedger) *InventoryHandlers {
	return &InventoryHandlers{ledger: ledger}
}

// ListSkuStock lists every bin holding the SKU.
func (h *InventoryHandlers) ListSkuStock(c echo.Context) error {
	skuID, err := common.ParseID(c, "sku_id")
	if err != nil {
		return common.SendValidationError(c, "sku_id", err.Error())
	}
	stocks, err := h.ledger.ListBySku(c.Request().Context(), skuID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if stocks == nil {
		stocks = []*models.InventoryStock{}
	}
	total := 0
	for _, s := range stocks {
		total += s.Quantity
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sku_id": skuID,
		"stock":  stocks,
		"total":  total,
	})
}

// GetBinStock answers 0 for a SKU the bin does not hold.
func (h *InventoryHandlers) GetBinStock(c echo.Context) error {
	skuID, err := common.ParseID(c, "sku_id")
	if err != nil {
		return common.SendValidationError(c, "sku_id", err.Error())
	}
	binID, err := common.ParseID(c, "bin_id")
	if err != nil {
		return common.SendValidationError(c, "bin_id", err.Error())
	}
	quantity, _, err := h.ledger.Get(c.Request().Context(), skuID, binID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, models.InventoryStock{SkuID: skuID, BinID: binID, Quantity: quantity})
}

type SetStockRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

// SetBinStock records a stock count for the bin.
func (h *InventoryHandlers) SetBinStock(c echo.Context) error {
	skuID, err := common.ParseID(c, "sku_id")
	if err != nil {
		return common.SendValidationError(c, "sku_id", err.Error())
	}
	binID, err := common.ParseID(c, "bin_id")
	if err != nil {
		return common.SendValidationError(c, "bin_id", err.Error())
	}
	var req SetStockRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if err := h.ledger.Set(c.Request().Context(), skuID, binID, *req.Quantity); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, models.InventoryStock{SkuID: skuID, BinID: binID, Quantity: *req.Quantity})
}

type TransferRequest struct {
	SkuID     int64 `json:"sku_id" validate:"required,gt=0"`
	FromBinID int64 `json:"from_bin_id" validate:"required,gt=0"`
	ToBinID   int64 `json:"to_bin_id" validate:"required,gt=0,nefield=FromBinID"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

func (h *InventoryHandlers) Transfer(c echo.Context) error {
	var req TransferRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if err := h.ledger.Transfer(c.Request().Context(), req.FromBinID, req.ToBinID, req.SkuID, req.Quantity); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Stock transferred successfully"})
}
