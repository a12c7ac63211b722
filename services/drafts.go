package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shortlet-server/storage"

	"github.com/go-redis/redis/v8"
)

// CheckoutDraft is the transient snapshot of an in-progress checkout.
// It is held in Redis for the owning user only, read exactly once (to
// render the confirmation view) and deleted on that read so stale data
// cannot leak into a later, unrelated checkout.
type CheckoutDraft struct {
	ListingID     string    `json:"listingID"`
	Title         string    `json:"title"`
	City          string    `json:"city"`
	PricePerNight float64   `json:"pricePerNight"`
	CheckIn       time.Time `json:"checkIn"`
	CheckOut      time.Time `json:"checkOut"`
	Guests        int       `json:"guests"`
	Nights        int       `json:"nights"`
	Subtotal      float64   `json:"subtotal"`
	Fee           float64   `json:"fee"`
	Total         float64   `json:"total"`
}

// checkoutDraftTTL bounds how long an abandoned checkout lingers.
const checkoutDraftTTL = 30 * time.Minute

func draftKey(userID uint) string {
	return fmt.Sprintf("checkout:draft:%d", userID)
}

func SaveDraft(ctx context.Context, userID uint, draft *CheckoutDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return storage.Redis.Set(ctx, draftKey(userID), data, checkoutDraftTTL).Err()
}

// ConsumeDraft returns the caller's draft and invalidates it in the
// same operation. A second consume returns (nil, nil).
func ConsumeDraft(ctx context.Context, userID uint) (*CheckoutDraft, error) {
	data, err := storage.Redis.GetDel(ctx, draftKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var draft CheckoutDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}
