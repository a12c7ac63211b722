package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"shortlet-server/models"

	"gorm.io/gorm"
)

// memBookingStore is an in-memory BookingStore for reconciler tests.
type memBookingStore struct {
	bookings    map[uint]*models.Booking
	markPaidErr error
	paidWrites  int
}

func newMemStore(bookings ...*models.Booking) *memBookingStore {
	s := &memBookingStore{bookings: map[uint]*models.Booking{}}
	for _, b := range bookings {
		s.bookings[b.ID] = b
	}
	return s
}

func (s *memBookingStore) Get(_ context.Context, id uint) (*models.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *b
	return &copy, nil
}

func (s *memBookingStore) MarkPaid(_ context.Context, id uint, provider, reference, transactionID string, _ []byte, paidAt time.Time) error {
	if s.markPaidErr != nil {
		return s.markPaidErr
	}
	b, ok := s.bookings[id]
	if !ok || b.Status != models.BookingPending {
		return ErrNotPending
	}
	s.paidWrites++
	b.Status = models.BookingPaid
	b.Provider = provider
	b.Reference = reference
	b.TransactionID = transactionID
	b.PaidAt = &paidAt
	return nil
}

func (s *memBookingStore) MarkCancelled(_ context.Context, id uint, at time.Time) error {
	b, ok := s.bookings[id]
	if !ok || (b.Status != models.BookingPending && b.Status != models.BookingPaid) {
		return errors.New("booking cannot be cancelled")
	}
	b.Status = models.BookingCancelled
	b.CancelledAt = &at
	return nil
}

func (s *memBookingStore) MarkRefunded(_ context.Context, id uint, at time.Time) error {
	b, ok := s.bookings[id]
	if !ok || b.Status != models.BookingCancelled {
		return errors.New("only cancelled bookings can be refunded")
	}
	b.Status = models.BookingRefunded
	b.RefundedAt = &at
	return nil
}

func (s *memBookingStore) StalePending(_ context.Context, olderThan time.Time) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range s.bookings {
		if b.Status == models.BookingPending && b.Reference != "" && b.CreatedAt.Before(olderThan) {
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakeVerifier struct {
	result *GatewayResult
	err    error
	calls  int
}

func (v *fakeVerifier) Provider() string { return models.ProviderFlutterwave }

func (v *fakeVerifier) Verify(_ context.Context, _ string) (*GatewayResult, error) {
	v.calls++
	return v.result, v.err
}

func pendingBooking(id uint) *models.Booking {
	b := &models.Booking{
		ListingID:     7,
		GuestID:       3,
		CheckIn:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		Guests:        2,
		PricePerNight: 30000,
		Status:        models.BookingPending,
	}
	b.ID = id
	b.PriceBooking()
	return b
}

func testReconciler(store BookingStore, verifier Verifier) *Reconciler {
	return &Reconciler{
		Store: store,
		Verifiers: map[string]Verifier{
			models.ProviderFlutterwave: verifier,
			models.ProviderPaystack:    verifier,
		},
		Now: func() time.Time { return time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC) },
	}
}

func TestReconcileSuccess(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	verifier := &fakeVerifier{result: &GatewayResult{Successful: true, Reference: "ref_9", TransactionID: "tx_9"}}
	r := testReconciler(store, verifier)

	res := r.Reconcile(context.Background(), 1, 3, GatewayCallback{
		Provider:      models.ProviderFlutterwave,
		Status:        "successful",
		TxRef:         "ref_9",
		TransactionID: "tx_9",
	})

	if !res.Verified {
		t.Fatalf("expected verified result, got reason %q", res.Reason)
	}
	if res.Reference != "ref_9" {
		t.Fatalf("expected reference ref_9, got %q", res.Reference)
	}
	b := store.bookings[1]
	if b.Status != models.BookingPaid {
		t.Fatalf("expected booking paid, got %s", b.Status)
	}
	if b.Reference != "ref_9" || b.PaidAt == nil {
		t.Fatalf("payment metadata not persisted: %+v", b)
	}
}

func TestReconcileReferenceMismatch(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	verifier := &fakeVerifier{result: &GatewayResult{Successful: true, Reference: "ref_OTHER", TransactionID: "tx_9"}}
	r := testReconciler(store, verifier)

	res := r.Reconcile(context.Background(), 1, 3, GatewayCallback{
		Provider:      models.ProviderFlutterwave,
		Status:        "successful",
		TxRef:         "ref_9",
		TransactionID: "tx_9",
	})

	if res.Verified {
		t.Fatal("mismatched reference must not verify")
	}
	if res.Reason != "reference mismatch" {
		t.Fatalf("expected mismatch reason, got %q", res.Reason)
	}
	if store.bookings[1].Status != models.BookingPending {
		t.Fatalf("booking must stay pending, got %s", store.bookings[1].Status)
	}
}

func TestReconcileFailedRedirectStatus(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	verifier := &fakeVerifier{result: &GatewayResult{Successful: true, Reference: "ref_9"}}
	r := testReconciler(store, verifier)

	res := r.Reconcile(context.Background(), 1, 3, GatewayCallback{
		Provider:      models.ProviderFlutterwave,
		Status:        "cancelled",
		TxRef:         "ref_9",
		TransactionID: "tx_9",
	})

	if res.Verified || res.Reason != "payment not successful" {
		t.Fatalf("expected terminal failure on bad redirect status, got %+v", res)
	}
	if verifier.calls != 0 {
		t.Fatal("verification endpoint must not be called for a failed redirect")
	}
}

func TestReconcileMissingTransactionID(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	verifier := &fakeVerifier{result: &GatewayResult{Successful: true, Reference: "ref_9"}}
	r := testReconciler(store, verifier)

	res := r.Reconcile(context.Background(), 1, 3, GatewayCallback{
		Provider: models.ProviderFlutterwave,
		Status:   "successful",
		TxRef:    "ref_9",
	})

	if res.Verified || res.Reason != "could not verify payment, missing transaction id" {
		t.Fatalf("expected missing-id failure, got %+v", res)
	}
	if verifier.calls != 0 {
		t.Fatal("verification must be skipped without a transaction id")
	}
}

func TestReconcileRequiresIdentity(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	verifier := &fakeVerifier{result: &GatewayResult{Successful: true, Reference: "ref_9"}}
	r := testReconciler(store, verifier)

	res := r.Reconcile(context.Background(), 1, 0, GatewayCallback{
		Provider:      models.ProviderFlutterwave,
		Status:        "successful",
		TxRef:         "ref_9",
		TransactionID: "tx_9",
	})

	if res.Verified || res.Reason != "please re-authenticate" {
		t.Fatalf("expected re-authentication failure, got %+v", res)
	}
	if verifier.calls != 0 {
		t.Fatal("verification must not run without a caller identity")
	}
}

func TestReconcileIdempotentOnPaidBooking(t *testing.T) {
	paid := pendingBooking(1)
	paid.Status = models.BookingPaid
	paid.Reference = "ref_9"
	store := newMemStore(paid)
	verifier := &fakeVerifier{result: &GatewayResult{Successful: true, Reference: "ref_9"}}
	r := testReconciler(store, verifier)

	res := r.Reconcile(context.Background(), 1, 3, GatewayCallback{
		Provider: models.ProviderFlutterwave,
		TxRef:    "ref_9",
	})
	if !res.Verified {
		t.Fatalf("replaying the same reference must be a no-op success, got %+v", res)
	}
	if verifier.calls != 0 || store.paidWrites != 0 {
		t.Fatal("idempotent replay must cause no verification call and no write")
	}

	res = r.Reconcile(context.Background(), 1, 3, GatewayCallback{
		Provider: models.ProviderFlutterwave,
		TxRef:    "ref_ELSE",
	})
	if res.Verified || res.Reason != "reference mismatch" {
		t.Fatalf("a different reference against a paid booking must be rejected, got %+v", res)
	}
}

func TestReconcileTerminalStatuses(t *testing.T) {
	cancelled := pendingBooking(1)
	cancelled.Status = models.BookingCancelled
	store := newMemStore(cancelled)
	r := testReconciler(store, &fakeVerifier{})

	res := r.Reconcile(context.Background(), 1, 3, GatewayCallback{
		Provider: models.ProviderFlutterwave,
		TxRef:    "ref_9",
	})
	if res.Verified {
		t.Fatal("cancelled bookings must never reconcile to paid")
	}
}

func TestReconcileVerificationNotOK(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	verifier := &fakeVerifier{result: &GatewayResult{Successful: false, Reference: "ref_9"}}
	r := testReconciler(store, verifier)

	res := r.Reconcile(context.Background(), 1, 3, GatewayCallback{
		Provider:      models.ProviderFlutterwave,
		Status:        "successful",
		TxRef:         "ref_9",
		TransactionID: "tx_9",
	})

	if res.Verified || res.Reason != "payment not successful" {
		t.Fatalf("unsuccessful verification must fail, got %+v", res)
	}
	if store.bookings[1].Status != models.BookingPending {
		t.Fatal("booking must stay pending after failed verification")
	}
}

func TestReconcilePersistFailureStillVerified(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	store.markPaidErr = errors.New("write timeout")
	verifier := &fakeVerifier{result: &GatewayResult{Successful: true, Reference: "ref_9", TransactionID: "tx_9"}}
	r := testReconciler(store, verifier)

	res := r.Reconcile(context.Background(), 1, 3, GatewayCallback{
		Provider:      models.ProviderFlutterwave,
		Status:        "successful",
		TxRef:         "ref_9",
		TransactionID: "tx_9",
	})

	if !res.Verified {
		t.Fatal("a persistence failure must not downgrade a verified payment")
	}
}

func TestCancelCompletedStayRejected(t *testing.T) {
	past := pendingBooking(1)
	past.CheckOut = time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC) // strictly before "today"
	store := newMemStore(past)
	r := testReconciler(store, &fakeVerifier{})

	res := r.Cancel(context.Background(), 1)
	if res.OK || res.Reason != "stay already completed" {
		t.Fatalf("completed stays must not be cancellable, got %+v", res)
	}
}

func TestCancelCheckoutTodayAllowed(t *testing.T) {
	b := pendingBooking(1)
	b.CheckOut = time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC) // "today"
	store := newMemStore(b)
	r := testReconciler(store, &fakeVerifier{})

	res := r.Cancel(context.Background(), 1)
	if !res.OK {
		t.Fatalf("check-out today must be cancellable, got %+v", res)
	}
	if store.bookings[1].Status != models.BookingCancelled {
		t.Fatalf("expected cancelled, got %s", store.bookings[1].Status)
	}
}

func TestCancelAlreadyCancelled(t *testing.T) {
	b := pendingBooking(1)
	b.Status = models.BookingCancelled
	store := newMemStore(b)
	r := testReconciler(store, &fakeVerifier{})

	res := r.Cancel(context.Background(), 1)
	if res.OK || res.Reason != "booking already cancelled" {
		t.Fatalf("cancel must be rejected on a cancelled booking, got %+v", res)
	}
}

func TestRepairStalePending(t *testing.T) {
	stale := pendingBooking(1)
	stale.Provider = models.ProviderFlutterwave
	stale.Reference = "ref_9"
	stale.TransactionID = "tx_9"
	stale.CreatedAt = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	store := newMemStore(stale)
	verifier := &fakeVerifier{result: &GatewayResult{Successful: true, Reference: "ref_9", TransactionID: "tx_9"}}
	r := testReconciler(store, verifier)

	repaired, err := r.RepairStalePending(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if repaired != 1 {
		t.Fatalf("expected 1 repaired booking, got %d", repaired)
	}
	if store.bookings[1].Status != models.BookingPaid {
		t.Fatalf("repair must persist paid, got %s", store.bookings[1].Status)
	}
}

func TestBookingStateMachine(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.BookingPending, models.BookingPaid, true},
		{models.BookingPending, models.BookingCancelled, true},
		{models.BookingPending, models.BookingRefunded, false},
		{models.BookingPaid, models.BookingCancelled, true},
		{models.BookingPaid, models.BookingRefunded, true},
		{models.BookingPaid, models.BookingPending, false},
		{models.BookingCancelled, models.BookingPaid, false},
		{models.BookingRefunded, models.BookingPaid, false},
	}
	for _, tc := range cases {
		b := &models.Booking{Status: tc.from}
		if got := b.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
