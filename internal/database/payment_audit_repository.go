package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/viettravel/booking-backend/internal/models"
)

// PaymentAuditRepository writes the forensic trail of gateway interactions.
// Audit writes are best-effort from the caller's perspective: a failed audit
// insert is logged, never allowed to fail a payment.
type PaymentAuditRepository struct {
	db *sqlx.DB
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db}
}

// Log appends one audit row
func (r *PaymentAuditRepository) Log(entry *models.PaymentAuditLog) error {
	_, err := r.db.Exec(`
		INSERT INTO payment_audit_logs (
			id, booking_id, order_id, gateway, action, outcome,
			ip_address, user_agent, device_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		entry.ID, entry.BookingID, entry.OrderID, entry.Gateway, entry.Action,
		entry.Outcome, entry.IPAddress, entry.UserAgent, entry.DeviceType)
	if err != nil {
		return fmt.Errorf("failed to insert payment audit log: %w", err)
	}
	return nil
}

// ListByOrderID returns the audit trail for one gateway order, oldest first
func (r *PaymentAuditRepository) ListByOrderID(orderID string) ([]models.PaymentAuditLog, error) {
	entries := []models.PaymentAuditLog{}
	err := r.db.Select(&entries, `
		SELECT id, booking_id, order_id, gateway, action, outcome,
		       ip_address, user_agent, device_type, created_at
		FROM payment_audit_logs
		WHERE order_id = $1
		ORDER BY created_at`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment audit logs: %w", err)
	}
	return entries, nil
}
