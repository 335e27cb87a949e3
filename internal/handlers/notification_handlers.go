package handlers

import (
	"net/http"
	"strconv"

	"wmscore/internal/common"
	"wmscore/internal/services"

	"github.com/labstack/echo/v4"
)

const maxNotificationLimit = 200

// NotificationHandlers exposes the caller's notification inbox.
type NotificationHandlers struct {
	inbox services.NotificationInbox
}

func NewNotificationHandlers(inbox services.NotificationInbox) *NotificationHandlers {
	return &NotificationHandlers{inbox: inbox}
}

// ListMine supports ?unread=true and ?limit=N.
func (h *NotificationHandlers) ListMine(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	unreadOnly := false
	if raw := c.QueryParam("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return common.SendValidationError(c, "unread", "must be true or false")
		}
		unreadOnly = v
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err == nil {
			err = common.ValidatePositiveInteger(v, "limit", maxNotificationLimit)
		}
		if err != nil {
			return common.SendValidationError(c, "limit", "must be between 1 and 200")
		}
		limit = v
	}

	notifications, err := h.inbox.List(c.Request().Context(), userID, unreadOnly, limit)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

func (h *NotificationHandlers) MarkRead(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ParseID(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	if err := h.inbox.MarkRead(c.Request().Context(), userID, id); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
