package models

import (
	"time"

	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Booking statuses. A booking is never deleted; only its status and
// payment metadata mutate after creation.
const (
	BookingPending   = "pending"
	BookingPaid      = "paid"
	BookingCancelled = "cancelled"
	BookingRefunded  = "refunded"
)

// Payment providers.
const (
	ProviderPaystack    = "paystack"
	ProviderFlutterwave = "flutterwave"
)

type Booking struct {
	gorm.Model
	ListingID     uint      `json:"listingID" gorm:"not null;index"`
	GuestID       uint      `json:"guestID" gorm:"not null;index"`
	CheckIn       time.Time `json:"checkIn"`
	CheckOut      time.Time `json:"checkOut"`
	Guests        int       `json:"guests"`
	PricePerNight float64   `json:"pricePerNight"`
	Nights        int       `json:"nights"`
	Subtotal      float64   `json:"subtotal"`
	Fee           float64   `json:"fee"`
	Total         float64   `json:"total"`
	Status        string    `json:"status" gorm:"type:varchar(20);default:pending;index"`

	// Payment metadata, set only after server-side verification.
	Provider       string         `json:"provider,omitempty" gorm:"type:varchar(20)"`
	Reference      string         `json:"reference,omitempty" gorm:"size:128;index"`
	TransactionID  string         `json:"transactionID,omitempty" gorm:"size:128"`
	GatewayPayload datatypes.JSON `json:"-" gorm:"type:jsonb"`

	PaidAt      *time.Time `json:"paidAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	RefundedAt  *time.Time `json:"refundedAt,omitempty"`

	Listing *Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
	Guest   *User    `json:"guest,omitempty" gorm:"foreignKey:GuestID"`
}

// bookingTransitions is the full forward-only status machine.
// cancelled and refunded are terminal.
var bookingTransitions = map[string][]string{
	BookingPending: {BookingPaid, BookingCancelled},
	BookingPaid:    {BookingCancelled, BookingRefunded},
}

// CanTransition reports whether a booking may move from its current
// status to next.
func (b *Booking) CanTransition(next string) bool {
	return slices.Contains(bookingTransitions[b.Status], next)
}

// Terminal reports whether no further status changes are allowed.
func (b *Booking) Terminal() bool {
	return len(bookingTransitions[b.Status]) == 0
}

// BookingNights returns the whole nights between check-in and check-out,
// never negative.
func BookingNights(checkIn, checkOut time.Time) int {
	n := int(checkOut.Sub(checkIn).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

// ServiceFeeRate is the platform cut applied on the nightly subtotal.
const ServiceFeeRate = 0.05

// PriceBooking fills the derived pricing fields from the nightly price
// and the stay dates.
func (b *Booking) PriceBooking() {
	b.Nights = BookingNights(b.CheckIn, b.CheckOut)
	b.Subtotal = b.PricePerNight * float64(b.Nights)
	b.Fee = float64(int(b.Subtotal*ServiceFeeRate*100+0.5)) / 100
	b.Total = b.Subtotal + b.Fee
}
