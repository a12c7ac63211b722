package models

import (
	"testing"
	"time"
)

func TestBookingNights(t *testing.T) {
	in := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if n := BookingNights(in, in.AddDate(0, 0, 3)); n != 3 {
		t.Fatalf("expected 3 nights, got %d", n)
	}
	if n := BookingNights(in, in); n != 0 {
		t.Fatalf("same-day stay should be 0 nights, got %d", n)
	}
	if n := BookingNights(in, in.AddDate(0, 0, -2)); n != 0 {
		t.Fatalf("inverted dates must clamp to 0, got %d", n)
	}
}

func TestPriceBooking(t *testing.T) {
	b := Booking{
		CheckIn:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		PricePerNight: 30000,
	}
	b.PriceBooking()

	if b.Nights != 3 {
		t.Fatalf("expected 3 nights, got %d", b.Nights)
	}
	if b.Subtotal != 90000 {
		t.Fatalf("expected subtotal 90000, got %v", b.Subtotal)
	}
	if b.Fee != 4500 {
		t.Fatalf("expected 5%% fee of 4500, got %v", b.Fee)
	}
	if b.Total != 94500 {
		t.Fatalf("expected total 94500, got %v", b.Total)
	}
}

func TestBookingTerminal(t *testing.T) {
	for status, terminal := range map[string]bool{
		BookingPending:   false,
		BookingPaid:      false,
		BookingCancelled: true,
		BookingRefunded:  true,
	} {
		b := Booking{Status: status}
		if b.Terminal() != terminal {
			t.Errorf("%s: Terminal() = %v, want %v", status, b.Terminal(), terminal)
		}
	}
}
