package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viettravel/booking-backend/internal/middleware"
	"github.com/viettravel/booking-backend/internal/services"
	"github.com/viettravel/booking-backend/internal/utils"
)

// PaymentHandler exposes redirect creation and the gateway return endpoint
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler creates a payment handler
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Create handles POST /payment/:gateway/create
func (h *PaymentHandler) Create(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "MISSING_USER_CONTEXT"})
		return
	}

	var req services.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	meta := services.ClientMeta{
		IP:        utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}

	redirect, err := h.payments.CreatePayment(c.Request.Context(), userCtx.UserID, c.Param("gateway"), &req, meta)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, redirect)
}

// Return handles GET /payment/:gateway/return. This is the gateway's
// redirect target: unauthenticated, parameters verified by signature.
// Replays of the same query string return the same result.
func (h *PaymentHandler) Return(c *gin.Context) {
	meta := services.ClientMeta{
		IP:        utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}

	result, err := h.payments.HandleReturn(c.Request.Context(), c.Param("gateway"), c.Request.URL.Query(), meta)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
