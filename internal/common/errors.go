package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNoBinAvailable    = errors.New("no bins available in warehouse")
	ErrNoZoneAvailable   = errors.New("no zone found for bin assignment")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotAssigned       = errors.New("task is not assigned to this user")
	ErrWrongTaskType     = errors.New("wrong task type")
	ErrNotPending        = errors.New("already decided")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrBinFull           = errors.New("bin capacity exceeded")
)

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NewNotFound(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// InsufficientStockError is returned when a bin holds less of a SKU than required.
// The message is shown to warehouse operators as-is.
type InsufficientStockError struct {
	ProductName string
	SKU         string
	Available   int
	Required    int
	Location    string
}

func (e *InsufficientStockError) Error() string {
	if e.ProductName == "" && e.Location == "" {
		return fmt.Sprintf("Insufficient stock for SKU %s. Available: %d, Required: %d", e.SKU, e.Available, e.Required)
	}
	return fmt.Sprintf("Insufficient stock for %s (SKU: %s). Available: %d, Required: %d in location %s. Please check alternative locations or contact supervisor.",
		e.ProductName, e.SKU, e.Available, e.Required, e.Location)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// BinCapacityError is returned when a write would push a bin past its capacity.
type BinCapacityError struct {
	BinID     int64
	BinCode   string
	Capacity  int
	Used      int
	Requested int
}

func (e *BinCapacityError) Error() string {
	return fmt.Sprintf("Bin %s cannot take %d more units. Capacity: %d, Used: %d", e.BinCode, e.Requested, e.Capacity, e.Used)
}

func (e *BinCapacityError) Is(target error) bool {
	return target == ErrBinFull
}

// StateError reports a transition attempted from the wrong state.
type StateError struct {
	Entity  string
	ID      int64
	Current string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %d is not pending (status %s)", e.Entity, e.ID, e.Current)
}

func (e *StateError) Is(target error) bool {
	return target == ErrNotPending
}

// HTTPStatus maps a domain error to the status code handlers answer with.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrInsufficientStock):
		return http.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, ErrBinFull):
		return http.StatusConflict, "BIN_FULL"
	case errors.Is(err, ErrNotPending):
		return http.StatusConflict, "NOT_PENDING"
	case errors.Is(err, ErrNotAssigned):
		return http.StatusForbidden, "NOT_ASSIGNED"
	case errors.Is(err, ErrWrongTaskType):
		return http.StatusBadRequest, "WRONG_TASK_TYPE"
	case errors.Is(err, ErrInvalidQuantity):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, ErrNoBinAvailable), errors.Is(err, ErrNoZoneAvailable):
		return http.StatusUnprocessableEntity, "NO_LOCATION"
	default:
		return http.StatusInternalServerError, "SERVER_ERROR"
	}
}
