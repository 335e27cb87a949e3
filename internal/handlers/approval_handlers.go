package handlers

import (
	"net/http"

	"wmscore/internal/common"
	"wmscore/internal/models"
	"wmscore/internal/services"

	"github.com/labstack/echo/v4"
)

// ApprovalHandlers lets supervisors review verification mismatches.
type ApprovalHandlers struct {
	approvals services.ApprovalWorkflow
}

func NewApprovalHandlers(approvals services.ApprovalWorkflow) *ApprovalHandlers {
	return &ApprovalHandlers{approvals: approvals}
}

func (h *ApprovalHandlers) ListPending(c echo.Context) error {
	approvals, err := h.approvals.ListPending(c.Request().Context())
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if approvals == nil {
		approvals = []*models.Approval{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"approvals": approvals,
		"count":     len(approvals),
	})
}

func (h *ApprovalHandlers) GetApproval(c echo.Context) error {
	approvalID, err := common.ParseID(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	approval, err := h.approvals.Get(c.Request().Context(), approvalID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, approval)
}

func (h *ApprovalHandlers) Approve(c echo.Context) error {
	supervisorID, ok := currentUser(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	approvalID, err := common.ParseID(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	approval, err := h.approvals.Approve(c.Request().Context(), approvalID, supervisorID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, approval)
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *ApprovalHandlers) Reject(c echo.Context) error {
	supervisorID, ok := currentUser(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	approvalID, err := common.ParseID(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req RejectRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	approval, err := h.approvals.Reject(c.Request().Context(), approvalID, supervisorID, req.Reason)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, approval)
}
