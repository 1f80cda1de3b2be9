package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentals/internal/app/result"
	"rentals/internal/domain/shared/failure"
)

func statusFor(kind failure.Kind) int {
	switch kind {
	case failure.NotFound:
		return http.StatusNotFound
	case failure.Validation, failure.DeliveryUnavailable, failure.DeliveryAddressRequired:
		return http.StatusUnprocessableEntity
	case failure.ItemUnavailable, failure.BookingConflict, failure.InvalidStateTransition, failure.RefundRequired:
		return http.StatusConflict
	case failure.Unauthorized, failure.SelfRentalForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(kind, message string) gin.H {
	return gin.H{"error": gin.H{"kind": kind, "message": message}}
}

// respond writes the value with okStatus or the failure with its mapped status.
func respond[T any](c *gin.Context, okStatus int, res result.Result[T]) {
	if res.IsOk() {
		c.JSON(okStatus, res.Value())
		return
	}
	c.JSON(statusFor(res.Kind()), errorBody(string(res.Kind()), res.Message()))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody("bad_request", err.Error()))
}
