package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/viettravel/booking-backend/internal/database"
	"github.com/viettravel/booking-backend/internal/events"
	"github.com/viettravel/booking-backend/internal/models"
	"github.com/viettravel/booking-backend/internal/payment"
	"github.com/viettravel/booking-backend/internal/utils"
)

// ClientMeta is forensic request context recorded in the payment audit trail
type ClientMeta struct {
	IP        string
	UserAgent string
}

// CreatePaymentRequest starts one redirect attempt for a booking
type CreatePaymentRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
	Amount    int64     `json:"amount" binding:"required"`
	OrderInfo string    `json:"order_info"`
}

// ReconciliationResult is the normalized outcome of a gateway return,
// identical whether this delivery was the first or a replay.
type ReconciliationResult struct {
	Success          bool           `json:"success"`
	Status           payment.Status `json:"status"`
	Message          string         `json:"message"`
	OrderID          string         `json:"order_id"`
	TransactionID    string         `json:"transaction_id,omitempty"`
	BookingID        uuid.UUID      `json:"booking_id"`
	BookingCode      string         `json:"booking_code"`
	AlreadyProcessed bool           `json:"-"`
}

// PaymentService creates gateway redirects and reconciles their results
// against bookings. Reconciliation is idempotent: a transaction already in a
// terminal state absorbs replays without re-running side effects.
type PaymentService struct {
	bookings     *database.BookingRepository
	transactions *database.PaymentTransactionRepository
	audits       *database.PaymentAuditRepository
	registry     *payment.Registry
	publisher    events.Publisher
}

// NewPaymentService creates a payment service
func NewPaymentService(
	bookings *database.BookingRepository,
	transactions *database.PaymentTransactionRepository,
	audits *database.PaymentAuditRepository,
	registry *payment.Registry,
	publisher events.Publisher,
) *PaymentService {
	return &PaymentService{
		bookings:     bookings,
		transactions: transactions,
		audits:       audits,
		registry:     registry,
		publisher:    publisher,
	}
}

// CreatePayment starts a redirect attempt. A fresh gateway order id is
// minted per attempt (booking ids repeat across retries, order ids must
// not), and the INITIATED transaction row is written before the redirect
// URL leaves this method, so there is always a row to reconcile against.
func (s *PaymentService) CreatePayment(ctx context.Context, userID uuid.UUID, gatewayName string,
	req *CreatePaymentRequest, meta ClientMeta) (*payment.Redirect, error) {

	gateway, err := s.registry.ByName(gatewayName)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, models.ErrForbidden
	}
	if booking.ConfirmationStatus != models.ConfirmationStatusPendingPayment ||
		booking.PaymentStatus != models.PaymentStatusUnpaid {
		return nil, models.NewValidationError("booking_id", "booking is not awaiting payment")
	}
	if req.Amount != booking.FinalAmount {
		return nil, models.NewValidationError("amount",
			fmt.Sprintf("amount %d does not match the booking total %d", req.Amount, booking.FinalAmount))
	}

	// Earlier attempts that never came back are superseded, keeping at most
	// one non-terminal transaction per booking
	if err := s.transactions.AbandonInitiated(booking.ID); err != nil {
		return nil, err
	}

	orderID := uuid.New().String()
	txn := &models.PaymentTransaction{
		ID:        uuid.New(),
		BookingID: booking.ID,
		Gateway:   gateway.Name(),
		OrderID:   orderID,
		Amount:    booking.FinalAmount,
		Currency:  "VND",
		Status:    models.TransactionStatusInitiated,
	}
	if err := s.transactions.Create(txn); err != nil {
		return nil, err
	}

	orderInfo := req.OrderInfo
	if orderInfo == "" {
		orderInfo = "Thanh toan don hang " + booking.Code
	}

	redirect, err := gateway.CreateRedirect(ctx, &payment.RedirectRequest{
		OrderID:   orderID,
		Amount:    booking.FinalAmount,
		OrderInfo: orderInfo,
		ClientIP:  meta.IP,
	})
	if err != nil {
		if markErr := s.transactions.MarkFailed(orderID, "GATEWAY_ERROR", nil); markErr != nil {
			logrus.WithFields(logrus.Fields{
				"order_id": orderID,
				"error":    markErr.Error(),
			}).Error("Failed to mark transaction after gateway error")
		}
		s.audit(booking, orderID, gateway.Name(), "initiated", "gateway_error", meta)
		if errors.Is(err, models.ErrGatewayTimeout) {
			// Payment status is unknown, not negative: the booking stays
			// PENDING_PAYMENT and the user can retry
			return nil, models.ErrGatewayTimeout
		}
		return nil, err
	}

	s.audit(booking, orderID, gateway.Name(), "initiated", "redirect_created", meta)

	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"gateway":    gateway.Name(),
		"order_id":   orderID,
		"amount":     booking.FinalAmount,
	}).Info("Payment redirect created")

	return redirect, nil
}

// HandleReturn reconciles a gateway return or callback. Unverified input
// never reaches booking state: the signature is checked first, then the
// transaction is resolved, then the idempotency guard decides whether any
// side effects remain to run.
func (s *PaymentService) HandleReturn(ctx context.Context, gatewayName string, params url.Values,
	meta ClientMeta) (*ReconciliationResult, error) {

	var gateway payment.Gateway
	var err error
	if gatewayName != "" {
		gateway, err = s.registry.ByName(gatewayName)
	} else {
		gateway, err = s.registry.Resolve(params)
	}
	if err != nil {
		return nil, err
	}

	ret, err := gateway.ParseReturn(params)
	if err != nil {
		orderID := params.Get("vnp_TxnRef")
		if orderID == "" {
			orderID = params.Get("orderId")
		}
		s.audit(nil, orderID, gateway.Name(), "return", "rejected", meta)
		return nil, err
	}

	txn, err := s.transactions.GetByOrderID(ret.OrderID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		logrus.WithFields(logrus.Fields{
			"gateway":  gateway.Name(),
			"order_id": ret.OrderID,
		}).Warn("Gateway return references an unknown order id")
		s.audit(nil, ret.OrderID, gateway.Name(), "return", "unknown_transaction", meta)
		return nil, models.ErrUnknownTransaction
	}

	booking, err := s.bookings.GetByID(txn.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}

	// Idempotency guard: a terminal transaction absorbs duplicate
	// callbacks and return-page refreshes without new side effects
	if txn.Status.IsTerminal() {
		s.audit(booking, ret.OrderID, gateway.Name(), "return", "replayed", meta)
		return s.resultFromTransaction(gateway, txn, booking, true), nil
	}

	if ret.Amount != 0 && ret.Amount != txn.Amount {
		logrus.WithFields(logrus.Fields{
			"order_id":        ret.OrderID,
			"expected_amount": txn.Amount,
			"returned_amount": ret.Amount,
		}).Error("Gateway return amount does not match the transaction")
		s.audit(booking, ret.OrderID, gateway.Name(), "return", "amount_mismatch", meta)
		return nil, fmt.Errorf("gateway amount %d does not match transaction amount %d", ret.Amount, txn.Amount)
	}

	switch ret.Status {
	case payment.StatusSuccess:
		err = s.applySuccess(ctx, gateway, txn, booking, ret, meta)
	case payment.StatusFailed:
		err = s.applyFailure(ctx, gateway, txn, booking, ret, meta)
	case payment.StatusPending:
		s.audit(booking, ret.OrderID, gateway.Name(), "return", "pending", meta)
	}
	if err != nil {
		return nil, err
	}

	// Re-read so the result reflects exactly what was committed
	txn, err = s.transactions.GetByOrderID(ret.OrderID)
	if err != nil {
		return nil, err
	}
	booking, err = s.bookings.GetByID(txn.BookingID)
	if err != nil {
		return nil, err
	}

	result := s.resultFromTransaction(gateway, txn, booking, false)
	if ret.Status == payment.StatusPending {
		result.Status = payment.StatusPending
		result.Message = gateway.DescribeResponseCode(ret.ResponseCode)
	}
	return result, nil
}

// applySuccess runs the one-transaction success path: transaction
// SUCCEEDED, hold converted, booking CONFIRMED/PAID. A concurrent duplicate
// loses the INITIATED guard inside ApplySuccess and is treated as replayed.
func (s *PaymentService) applySuccess(ctx context.Context, gateway payment.Gateway,
	txn *models.PaymentTransaction, booking *models.Booking, ret *payment.ReturnData, meta ClientMeta) error {

	providerTxnID := optional(ret.ProviderTransactionID)
	err := s.transactions.ApplySuccess(ret.OrderID, ret.ResponseCode, providerTxnID)
	if errors.Is(err, models.ErrTransactionNotPending) {
		logrus.WithField("order_id", ret.OrderID).Info("Concurrent reconciliation already applied this result")
		return nil
	}
	if err != nil {
		return err
	}

	s.audit(booking, ret.OrderID, gateway.Name(), "return", "succeeded", meta)

	logrus.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.Code,
		"order_id":     ret.OrderID,
		"gateway":      gateway.Name(),
	}).Info("Payment reconciled, booking confirmed")

	if err := s.publisher.Publish(ctx, events.BookingEvent{
		Type:        events.TypePaymentSucceeded,
		BookingID:   booking.ID,
		BookingCode: booking.Code,
		UserID:      booking.UserID,
		OrderID:     ret.OrderID,
		Amount:      txn.Amount,
		OccurredAt:  time.Now(),
	}); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to publish payment.succeeded event")
	}

	return nil
}

// applyFailure marks the attempt failed. The booking keeps its hold until
// expiry so the user can retry payment without re-selecting seats.
func (s *PaymentService) applyFailure(ctx context.Context, gateway payment.Gateway,
	txn *models.PaymentTransaction, booking *models.Booking, ret *payment.ReturnData, meta ClientMeta) error {

	err := s.transactions.MarkFailed(ret.OrderID, ret.ResponseCode, optional(ret.ProviderTransactionID))
	if errors.Is(err, models.ErrTransactionNotPending) {
		return nil
	}
	if err != nil {
		return err
	}

	s.audit(booking, ret.OrderID, gateway.Name(), "return", "failed", meta)

	logrus.WithFields(logrus.Fields{
		"booking_id":    booking.ID,
		"order_id":      ret.OrderID,
		"gateway":       gateway.Name(),
		"response_code": ret.ResponseCode,
	}).Info("Payment attempt failed")

	if err := s.publisher.Publish(ctx, events.BookingEvent{
		Type:        events.TypePaymentFailed,
		BookingID:   booking.ID,
		BookingCode: booking.Code,
		UserID:      booking.UserID,
		OrderID:     ret.OrderID,
		Amount:      txn.Amount,
		OccurredAt:  time.Now(),
	}); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to publish payment.failed event")
	}

	return nil
}

// resultFromTransaction builds the caller-facing result from committed state
func (s *PaymentService) resultFromTransaction(gateway payment.Gateway, txn *models.PaymentTransaction,
	booking *models.Booking, replayed bool) *ReconciliationResult {

	responseCode := ""
	if txn.GatewayResponseCode != nil {
		responseCode = *txn.GatewayResponseCode
	}
	transactionID := ""
	if txn.GatewayTransactionID != nil {
		transactionID = *txn.GatewayTransactionID
	}

	status := payment.StatusFailed
	if txn.Status == models.TransactionStatusSucceeded {
		status = payment.StatusSuccess
	}

	return &ReconciliationResult{
		Success:          txn.Status == models.TransactionStatusSucceeded,
		Status:           status,
		Message:          gateway.DescribeResponseCode(responseCode),
		OrderID:          txn.OrderID,
		TransactionID:    transactionID,
		BookingID:        booking.ID,
		BookingCode:      booking.Code,
		AlreadyProcessed: replayed,
	}
}

// audit appends a best-effort forensic row; failures are logged, never raised
func (s *PaymentService) audit(booking *models.Booking, orderID, gateway, action, outcome string, meta ClientMeta) {
	entry := &models.PaymentAuditLog{
		ID:         uuid.New(),
		OrderID:    orderID,
		Gateway:    gateway,
		Action:     action,
		Outcome:    outcome,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		DeviceType: utils.ParseUserAgent(meta.UserAgent).DeviceType,
	}
	if booking != nil {
		id := booking.ID
		entry.BookingID = &id
	}

	if err := s.audits.Log(entry); err != nil {
		logrus.WithFields(logrus.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		}).Error("Failed to write payment audit log")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
