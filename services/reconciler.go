package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"shortlet-server/models"

	"gorm.io/gorm"
)

// GatewayCallback is what comes back from a payment redirect: the
// provider name plus whatever that provider put in the return URL.
// Paystack redirects carry only the reference; Flutterwave adds a
// status and a numeric transaction id. None of it is trusted until the
// provider's verification endpoint confirms it.
type GatewayCallback struct {
	Provider      string `json:"provider"`
	Status        string `json:"status,omitempty"`
	TxRef         string `json:"tx_ref,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// ReconcileResult is returned to the view layer instead of an error:
// every failure branch is a normal outcome that leaves the booking
// pending.
type ReconcileResult struct {
	Verified  bool   `json:"verified"`
	BookingID uint   `json:"bookingID,omitempty"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// CancelResult mirrors ReconcileResult for the cancellation path.
type CancelResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Reconciler turns an unverified "the user says they paid" signal into
// a trustworthy booking status, exactly once per booking.
type Reconciler struct {
	Store     BookingStore
	Verifiers map[string]Verifier
	Now       func() time.Time
}

// NewReconciler wires the production reconciler: DB-backed store and
// env-configured gateway clients.
func NewReconciler(db *gorm.DB) *Reconciler {
	paystack, _ := VerifierFor(models.ProviderPaystack)
	flutterwave, _ := VerifierFor(models.ProviderFlutterwave)
	return &Reconciler{
		Store: &DBBookingStore{DB: db},
		Verifiers: map[string]Verifier{
			models.ProviderPaystack:    paystack,
			models.ProviderFlutterwave: flutterwave,
		},
		Now: time.Now,
	}
}

func (r *Reconciler) result(verified bool, bookingID uint, reference, reason string) ReconcileResult {
	return ReconcileResult{Verified: verified, BookingID: bookingID, Reference: reference, Reason: reason}
}

// Reconcile runs the ordered verification pipeline: redirect status →
// verification key present → caller identity → provider verification
// call → reference match → persist. No step may be skipped; each is a
// precondition for the next. callerID is the authenticated user behind
// the request; 0 means no usable identity token.
func (r *Reconciler) Reconcile(ctx context.Context, bookingID uint, callerID uint, cb GatewayCallback) ReconcileResult {
	booking, err := r.Store.Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.result(false, bookingID, "", "booking not found")
		}
		return r.result(false, bookingID, "", "could not load booking")
	}

	switch booking.Status {
	case models.BookingPending:
		// the normal path, continue below
	case models.BookingPaid:
		// Idempotent: replaying the same verified transaction is a
		// no-op success; a different reference is a spoofing attempt.
		if cb.TxRef != "" && cb.TxRef == booking.Reference {
			return r.result(true, booking.ID, booking.Reference, "")
		}
		return r.result(false, booking.ID, "", "reference mismatch")
	default:
		return r.result(false, booking.ID, "", fmt.Sprintf("booking already %s", booking.Status))
	}

	if cb.Status != "" && !SuccessfulStatus(cb.Status) {
		return r.result(false, booking.ID, "", "payment not successful")
	}

	verifyKey := cb.TransactionID
	if cb.Provider == models.ProviderPaystack {
		verifyKey = cb.TxRef
	}
	if verifyKey == "" {
		return r.result(false, booking.ID, "", "could not verify payment, missing transaction id")
	}

	if callerID == 0 {
		return r.result(false, booking.ID, "", "please re-authenticate")
	}

	verifier, ok := r.Verifiers[cb.Provider]
	if !ok || verifier == nil {
		return r.result(false, booking.ID, "", "unknown payment provider")
	}

	res, err := verifier.Verify(ctx, verifyKey)
	if err != nil {
		log.Printf("booking %d: gateway verification call failed: %v", booking.ID, err)
		return r.result(false, booking.ID, "", "verification failed")
	}
	if !res.Successful {
		return r.result(false, booking.ID, "", "payment not successful")
	}

	// Anti-spoofing: the reference the provider vouches for must be the
	// one the redirect claimed. Without this, a valid but unrelated
	// transaction could be replayed against this booking.
	if cb.TxRef != "" && res.Reference != cb.TxRef {
		return r.result(false, booking.ID, "", "reference mismatch")
	}

	// Verification is now authoritative. Persisting is best-effort: a
	// write failure is retried in the background and never downgrades
	// the verified status reported to the caller.
	err = r.Store.MarkPaid(ctx, booking.ID, cb.Provider, res.Reference, res.TransactionID, res.Raw, r.Now())
	if err != nil && !errors.Is(err, ErrNotPending) {
		log.Printf("booking %d: persisting paid status failed, retrying in background: %v", booking.ID, err)
		go r.retryMarkPaid(booking.ID, cb.Provider, res)
	}

	return r.result(true, booking.ID, res.Reference, "")
}

// retryMarkPaid re-attempts the paid write with backoff. The booking
// stays repairable by RepairStalePending if every attempt fails.
func (r *Reconciler) retryMarkPaid(bookingID uint, provider string, res *GatewayResult) {
	backoff := 2 * time.Second
	for attempt := 1; attempt <= 3; attempt++ {
		time.Sleep(backoff)
		backoff *= 2

		err := r.Store.MarkPaid(context.Background(), bookingID, provider, res.Reference, res.TransactionID, res.Raw, r.Now())
		if err == nil || errors.Is(err, ErrNotPending) {
			return
		}
		log.Printf("booking %d: paid-status retry %d failed: %v", bookingID, attempt, err)
	}
}

// Cancel rejects cancellation of already-cancelled bookings and of
// completed stays (check-out strictly before today); otherwise it flips
// the booking to cancelled.
func (r *Reconciler) Cancel(ctx context.Context, bookingID uint) CancelResult {
	booking, err := r.Store.Get(ctx, bookingID)
	if err != nil {
		return CancelResult{OK: false, Reason: "booking not found"}
	}

	switch booking.Status {
	case models.BookingCancelled:
		return CancelResult{OK: false, Reason: "booking already cancelled"}
	case models.BookingRefunded:
		return CancelResult{OK: false, Reason: "booking already refunded"}
	}

	now := r.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if booking.CheckOut.Before(today) {
		return CancelResult{OK: false, Reason: "stay already completed"}
	}

	if err := r.Store.MarkCancelled(ctx, bookingID, now); err != nil {
		return CancelResult{OK: false, Reason: "cancellation failed, please try again"}
	}
	return CancelResult{OK: true}
}

// RepairStalePending sweeps pending bookings older than olderThan that
// carry a gateway reference, re-verifies each against its provider and
// repairs the ones that actually got paid. It is invoked manually from
// an admin endpoint; no scheduler drives it.
func (r *Reconciler) RepairStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := r.Now().Add(-olderThan)
	stale, err := r.Store.StalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, booking := range stale {
		verifier, ok := r.Verifiers[booking.Provider]
		if !ok || verifier == nil {
			continue
		}

		verifyKey := booking.TransactionID
		if booking.Provider == models.ProviderPaystack || verifyKey == "" {
			verifyKey = booking.Reference
		}

		res, err := verifier.Verify(ctx, verifyKey)
		if err != nil || !res.Successful {
			continue
		}
		if res.Reference != booking.Reference {
			log.Printf("booking %d: repair skipped, reference mismatch", booking.ID)
			continue
		}

		err = r.Store.MarkPaid(ctx, booking.ID, booking.Provider, res.Reference, res.TransactionID, res.Raw, r.Now())
		if err == nil {
			repaired++
		} else if !errors.Is(err, ErrNotPending) {
			log.Printf("booking %d: repair write failed: %v", booking.ID, err)
		}
	}
	return repaired, nil
}
