package handlers

import (
	"errors"
	"strings"

	"wmscore/internal/common"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator plugs go-playground/validator into echo's c.Validate.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// bindAndValidate binds the request into req and validates it, answering
// with a 400 on failure. The returned bool is false when a response was sent.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, common.SendValidationError(c, "body", "Invalid request format")
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return false, common.SendValidationError(c, strings.ToLower(fe.Field()), "failed on '"+fe.Tag()+"' rule")
		}
		return false, common.SendValidationError(c, "body", err.Error())
	}
	return true, nil
}

// currentUser returns the authenticated caller's id.
func currentUser(c echo.Context) (int64, bool) {
	return common.GetUserIDFromContext(c.Request().Context())
}
