package services

import (
	"context"
	"errors"
	"time"

	"shortlet-server/models"

	"gorm.io/gorm"
)

// ErrNotPending is returned by MarkPaid when the booking left the
// pending state between the caller's checks and the write.
var ErrNotPending = errors.New("booking is not pending")

// BookingStore is the persistence surface the reconciler needs. The
// production implementation is DBBookingStore; tests substitute an
// in-memory one.
type BookingStore interface {
	Get(ctx context.Context, id uint) (*models.Booking, error)
	MarkPaid(ctx context.Context, id uint, provider, reference, transactionID string, payload []byte, paidAt time.Time) error
	MarkCancelled(ctx context.Context, id uint, at time.Time) error
	MarkRefunded(ctx context.Context, id uint, at time.Time) error
	StalePending(ctx context.Context, olderThan time.Time) ([]models.Booking, error)
}

type DBBookingStore struct {
	DB *gorm.DB
}

func (s *DBBookingStore) Get(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.DB.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// MarkPaid flips a pending booking to paid and attaches the verified
// payment metadata. The status predicate in the WHERE clause is the
// only concurrency guard: last write wins, and a booking that already
// left pending is reported, not overwritten.
func (s *DBBookingStore) MarkPaid(ctx context.Context, id uint, provider, reference, transactionID string, payload []byte, paidAt time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, models.BookingPending).
		Updates(map[string]interface{}{
			"status":          models.BookingPaid,
			"provider":        provider,
			"reference":       reference,
			"transaction_id":  transactionID,
			"gateway_payload": payload,
			"paid_at":         paidAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

func (s *DBBookingStore) MarkCancelled(ctx context.Context, id uint, at time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status IN (?)", id, []string{models.BookingPending, models.BookingPaid}).
		Updates(map[string]interface{}{
			"status":       models.BookingCancelled,
			"cancelled_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("booking cannot be cancelled")
	}
	return nil
}

func (s *DBBookingStore) MarkRefunded(ctx context.Context, id uint, at time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, models.BookingCancelled).
		Updates(map[string]interface{}{
			"status":      models.BookingRefunded,
			"refunded_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("only cancelled bookings can be refunded")
	}
	return nil
}

// StalePending lists pending bookings old enough to be suspect that
// carry a gateway reference to re-verify against.
func (s *DBBookingStore) StalePending(ctx context.Context, olderThan time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.DB.WithContext(ctx).
		Where("status = ? AND created_at < ? AND reference <> ''", models.BookingPending, olderThan).
		Find(&bookings).Error
	return bookings, err
}
