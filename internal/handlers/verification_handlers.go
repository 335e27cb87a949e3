package handlers

import (
	"io"
	"net/http"

	"wmscore/internal/common"
	"wmscore/internal/services"

	"github.com/labstack/echo/v4"
)

const maxLabelImageSize = 10 << 20

// VerificationHandlers accepts label photos from workers.
type VerificationHandlers struct {
	verification services.VerificationService
}

func NewVerificationHandlers(verification services.VerificationService) *VerificationHandlers {
	return &VerificationHandlers{verification: verification}
}

// VerifyItem expects a multipart form with the label photo in "image".
func (h *VerificationHandlers) VerifyItem(c echo.Context) error {
	workerID, ok := currentUser(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	itemID, err := common.ParseID(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	header, err := c.FormFile("image")
	if err != nil {
		return common.SendValidationError(c, "image", "Label image is required")
	}
	if header.Size > maxLabelImageSize {
		return common.SendValidationError(c, "image", "Label image exceeds 10MB")
	}
	file, err := header.Open()
	if err != nil {
		return common.SendValidationError(c, "image", "Unreadable label image")
	}
	defer file.Close()
	image, err := io.ReadAll(io.LimitReader(file, maxLabelImageSize))
	if err != nil {
		return common.SendValidationError(c, "image", "Unreadable label image")
	}

	resp, err := h.verification.Verify(c.Request().Context(), services.VerifyItemRequest{
		ItemID:      itemID,
		WorkerID:    workerID,
		Image:       image,
		Filename:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
	})
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
