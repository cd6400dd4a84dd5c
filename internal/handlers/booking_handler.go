package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/viettravel/booking-backend/internal/middleware"
	"github.com/viettravel/booking-backend/internal/services"
)

// BookingHandler exposes the checkout and booking-read endpoints
type BookingHandler struct {
	bookings *services.BookingService
	vouchers *services.VoucherService
}

// NewBookingHandler creates a booking handler
func NewBookingHandler(bookings *services.BookingService, vouchers *services.VoucherService) *BookingHandler {
	return &BookingHandler{bookings: bookings, vouchers: vouchers}
}

// Create handles POST /bookings
func (h *BookingHandler) Create(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "MISSING_USER_CONTEXT"})
		return
	}

	var req services.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	result, err := h.bookings.Create(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List handles GET /bookings
func (h *BookingHandler) List(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "MISSING_USER_CONTEXT"})
		return
	}

	bookings, err := h.bookings.ListByUser(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// Get handles GET /bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
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

	booking, err := h.bookings.GetByID(userCtx.UserID, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// GetByOrderID handles GET /bookings/payment/:orderId. The client lands
// here after a gateway redirect to render the confirmation page.
func (h *BookingHandler) GetByOrderID(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "MISSING_USER_CONTEXT"})
		return
	}

	orderID := c.Param("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "order id is required",
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	booking, err := h.bookings.GetByOrderID(userCtx.UserID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// Voucher handles GET /bookings/:id/voucher
func (h *BookingHandler) Voucher(c *gin.Context) {
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

	pdf, err := h.vouchers.Generate(userCtx.UserID, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="voucher.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
