package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/viettravel/booking-backend/internal/middleware"
	"github.com/viettravel/booking-backend/internal/services"
)

// CancellationHandler exposes the cancellation request and decision endpoints
type CancellationHandler struct {
	cancellations *services.CancellationService
}

// NewCancellationHandler creates a cancellation handler
func NewCancellationHandler(cancellations *services.CancellationService) *CancellationHandler {
	return &CancellationHandler{cancellations: cancellations}
}

type cancellationRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

type cancellationDecisionBody struct {
	Approve      bool   `json:"approve"`
	RefundAmount *int64 `json:"refund_amount"`
}

// Request handles POST /bookings/:id/cancellation-requests
func (h *CancellationHandler) Request(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "MISSING_USER_CONTEXT"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "invalid booking id",
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	var body cancellationRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	request, err := h.cancellations.Request(userCtx.UserID, bookingID, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"cancellation_request": request})
}

// Decide handles POST /cancellation-requests/:id/decision. Admin only.
func (h *CancellationHandler) Decide(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "invalid request id",
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	var body cancellationDecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	booking, err := h.cancellations.Decide(c.Request.Context(), requestID, body.Approve, body.RefundAmount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}
