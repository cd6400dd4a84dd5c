package services

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/phpdave11/gofpdf"

	"github.com/viettravel/booking-backend/internal/database"
	"github.com/viettravel/booking-backend/internal/models"
)

// VoucherService renders the booking voucher a customer presents at
// departure. Only confirmed bookings get one.
type VoucherService struct {
	bookings *database.BookingRepository
	tours    *database.TourRepository
}

// NewVoucherService creates a voucher service
func NewVoucherService(bookings *database.BookingRepository, tours *database.TourRepository) *VoucherService {
	return &VoucherService{bookings: bookings, tours: tours}
}

// Generate renders the voucher PDF for a confirmed booking, owner only
func (s *VoucherService) Generate(userID, bookingID uuid.UUID) ([]byte, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, models.ErrForbidden
	}
	if booking.ConfirmationStatus != models.ConfirmationStatusConfirmed {
		return nil, models.NewValidationError("booking_id", "voucher is only available for confirmed bookings")
	}

	tour, err := s.tours.GetByID(booking.TourID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.tours.GetSchedule(booking.ScheduleID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "BOOKING VOUCHER", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Booking code: %s", booking.Code), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	if tour != nil {
		pdf.CellFormat(0, 7, fmt.Sprintf("Tour: %s", tour.Name), "", 1, "L", false, 0, "")
	}
	if schedule != nil {
		pdf.CellFormat(0, 7, fmt.Sprintf("Departure: %s", schedule.DepartureDate.Format("02 Jan 2006")), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 7, fmt.Sprintf("Party: %d adult(s), %d child(ren), %d infant(s)",
		booking.NumAdults, booking.NumChildren, booking.NumInfants), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Contact: %s / %s", booking.ContactPhone, booking.ContactEmail), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 8, "Travellers", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, p := range booking.Participants {
		pdf.CellFormat(90, 6, fmt.Sprintf("%s (%s)", p.FullName, p.Type), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(60, 7, "Subtotal", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, formatVND(booking.Subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(60, 7, "Discount", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, formatVND(booking.Discount), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(60, 8, "Total paid", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, formatVND(booking.FinalAmount), "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render voucher: %w", err)
	}

	return buf.Bytes(), nil
}

// formatVND renders an amount with thousands separators and the VND suffix
func formatVND(amount int64) string {
	s := fmt.Sprintf("%d", amount)
	out := ""
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out += "."
		}
		out += string(digit)
	}
	return out + " VND"
}
