package services

import (
	"fmt"
	"net/http"

	"github.com/chopdirect/order-engine/utils"
)

// ServiceError is a business-rule failure with a stable machine-readable
// code. These are returned synchronously and never retried by the engine
// itself; only UNAVAILABLE marks a transient infrastructure problem that
// callers may retry (safely, given an idempotency key).
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    interface{}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeForbidden             = "FORBIDDEN"
	CodeRestaurantUnavailable = "RESTAURANT_UNAVAILABLE"
	CodeInvalidItems          = "INVALID_ITEMS"
	CodeItemsOutOfStock       = "ITEMS_OUT_OF_STOCK"
	CodeBelowMinimum          = "BELOW_MINIMUM"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeCannotCancel          = "CANNOT_CANCEL"
	CodeNotDelivery           = "NOT_DELIVERY"
	CodeIdempotencyInProgress = "IDEMPOTENCY_IN_PROGRESS"
	CodeInconsistentState     = "INCONSISTENT_STATE"
	CodeUnavailable           = "UNAVAILABLE"
)

func ErrValidation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

func ErrNotFound(what string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: what + " not found", HTTPStatus: http.StatusNotFound}
}

func ErrForbidden() *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: "you are not allowed to perform this action", HTTPStatus: http.StatusForbidden}
}

func ErrRestaurantUnavailable() *ServiceError {
	return &ServiceError{Code: CodeRestaurantUnavailable, Message: "restaurant is not accepting orders", HTTPStatus: http.StatusBadRequest}
}

func ErrInvalidItems() *ServiceError {
	return &ServiceError{Code: CodeInvalidItems, Message: "one or more items are invalid for this restaurant", HTTPStatus: http.StatusBadRequest}
}

func ErrItemsOutOfStock(names []string) *ServiceError {
	return &ServiceError{
		Code:       CodeItemsOutOfStock,
		Message:    "some items are out of stock",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]interface{}{"items": names},
	}
}

func ErrBelowMinimum(minimum int64, currency string) *ServiceError {
	return &ServiceError{
		Code:       CodeBelowMinimum,
		Message:    fmt.Sprintf("order subtotal is below the restaurant minimum of %s", utils.FormatAmount(minimum, currency)),
		HTTPStatus: http.StatusBadRequest,
	}
}

func ErrInvalidTransition(current, requested string) *ServiceError {
	return &ServiceError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("cannot change order status from %s to %s", current, requested),
		HTTPStatus: http.StatusBadRequest,
	}
}

func ErrCannotCancel(current string) *ServiceError {
	return &ServiceError{
		Code:       CodeCannotCancel,
		Message:    fmt.Sprintf("order in status %s can no longer be cancelled", current),
		HTTPStatus: http.StatusBadRequest,
	}
}

func ErrNotDelivery() *ServiceError {
	return &ServiceError{Code: CodeNotDelivery, Message: "driver can only be assigned to delivery orders", HTTPStatus: http.StatusBadRequest}
}

func ErrIdempotencyInProgress() *ServiceError {
	return &ServiceError{
		Code:       CodeIdempotencyInProgress,
		Message:    "a request with this idempotency key is already being processed",
		HTTPStatus: http.StatusConflict,
	}
}

func ErrInconsistentState(message string) *ServiceError {
	return &ServiceError{Code: CodeInconsistentState, Message: message, HTTPStatus: http.StatusInternalServerError}
}

func ErrUnavailable(err error) *ServiceError {
	return &ServiceError{
		Code:       CodeUnavailable,
		Message:    "a dependency is temporarily unavailable, please retry",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    err.Error(),
	}
}
