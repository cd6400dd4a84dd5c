package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/viettravel/booking-backend/internal/models"
)

// respondError maps domain errors onto the JSON error envelope. Anything
// unrecognized is a 500 with the detail kept server-side.
func respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": validationErr.Message,
			"code":    "VALIDATION_ERROR",
			"field":   validationErr.Field,
		})
		return
	}

	var seatsErr *models.InsufficientSeatsError
	if errors.As(err, &seatsErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient_seats",
			"message":   "Not enough seats are available on this schedule",
			"code":      "INSUFFICIENT_SEATS",
			"requested": seatsErr.Requested,
			"available": seatsErr.Available,
		})
		return
	}

	var notCancellable *models.NotCancellableError
	if errors.As(err, &notCancellable) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "not_cancellable",
			"message": notCancellable.Reason,
			"code":    "NOT_CANCELLABLE",
		})
		return
	}

	var promoErr *models.PromotionError
	if errors.As(err, &promoErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "promotion_invalid",
			"message": promoErr.Error(),
			"code":    "PROMOTION_INVALID",
			"issue":   promoErr.Issue,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrTourNotFound),
		errors.Is(err, models.ErrScheduleNotFound),
		errors.Is(err, models.ErrBookingNotFound),
		errors.Is(err, models.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
			"code":    "NOT_FOUND",
		})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You don't have access to this booking",
			"code":    "FORBIDDEN",
		})
	case errors.Is(err, models.ErrUnknownTransaction):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "unknown_transaction",
			"message": "The payment result could not be matched to a transaction",
			"code":    "UNKNOWN_TRANSACTION",
		})
	case errors.Is(err, models.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_signature",
			"message": "The payment result failed verification",
			"code":    "INVALID_SIGNATURE",
		})
	case errors.Is(err, models.ErrUnsupportedGateway):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "unsupported_gateway",
			"message": "Unknown payment gateway",
			"code":    "UNSUPPORTED_GATEWAY",
		})
	case errors.Is(err, models.ErrGatewayTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":   "gateway_timeout",
			"message": "The payment gateway did not respond. Your booking is still awaiting payment, please try again.",
			"code":    "GATEWAY_TIMEOUT",
		})
	case errors.Is(err, models.ErrRequestAlreadyDecided):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "already_decided",
			"message": "This cancellation request has already been decided",
			"code":    "ALREADY_DECIDED",
		})
	default:
		logrus.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		}).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Something went wrong, please try again",
			"code":    "INTERNAL_ERROR",
		})
	}
}
