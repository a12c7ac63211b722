package routes

import (
	"log"
	"time"

	"shortlet-server/models"
	"shortlet-server/services"
	"shortlet-server/storage"
	"shortlet-server/utils"

	"github.com/kataras/iris/v12"
)

type CreateBookingInput struct {
	ListingID uint      `json:"listingID" validate:"required"`
	CheckIn   time.Time `json:"checkIn" validate:"required"`
	CheckOut  time.Time `json:"checkOut" validate:"required"`
	Guests    int       `json:"guests" validate:"required,min=1"`
	// Reference is the client-generated tx_ref handed to the gateway at
	// checkout init; storing it up front lets the repair sweep find the
	// transaction if the redirect never makes it back.
	Reference string `json:"reference"`
	Provider  string `json:"provider" validate:"omitempty,oneof=paystack flutterwave"`
}

func CreateBooking(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var input CreateBookingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !input.CheckOut.After(input.CheckIn) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Check-out must be after check-in", ctx)
		return
	}

	var listing models.Listing
	if err := storage.DB.First(&listing, input.ListingID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if listing.Status != models.ListingActive {
		utils.CreateError(iris.StatusConflict, "Conflict", "Listing is not available for booking", ctx)
		return
	}
	if input.Guests > listing.Capacity {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Guest count exceeds listing capacity", ctx)
		return
	}

	// Block dates already taken by a paid stay. Pending bookings do not
	// hold dates; they are abandoned freely.
	var overlapping int64
	storage.DB.Model(&models.Booking{}).
		Where("listing_id = ? AND status = ? AND check_in < ? AND check_out > ?",
			listing.ID, models.BookingPaid, input.CheckOut, input.CheckIn).
		Count(&overlapping)
	if overlapping > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "Those dates are no longer available", ctx)
		return
	}

	booking := models.Booking{
		ListingID:     listing.ID,
		GuestID:       userID,
		CheckIn:       input.CheckIn,
		CheckOut:      input.CheckOut,
		Guests:        input.Guests,
		PricePerNight: listing.PricePerNight,
		Status:        models.BookingPending,
		Provider:      input.Provider,
		Reference:     input.Reference,
	}
	booking.PriceBooking()

	if err := storage.DB.Create(&booking).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(booking)
}

func GetBooking(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	id := ctx.Params().GetUintDefault("id", 0)

	var booking models.Booking
	if err := storage.DB.Preload("Listing").First(&booking, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if booking.GuestID != userID && !isBookingHost(&booking, userID) {
		utils.CreateForbidden(ctx)
		return
	}
	ctx.JSON(booking)
}

func GetMyBookings(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var bookings []models.Booking
	if err := storage.DB.Preload("Listing").
		Where("guest_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(bookings)
}

func CancelBooking(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	id := ctx.Params().GetUintDefault("id", 0)

	var booking models.Booking
	if err := storage.DB.First(&booking, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if booking.GuestID != userID && !isBookingHost(&booking, userID) {
		utils.CreateForbidden(ctx)
		return
	}

	reconciler := services.NewReconciler(storage.DB)
	result := reconciler.Cancel(ctx.Request().Context(), id)
	if !result.OK {
		ctx.StatusCode(iris.StatusConflict)
		ctx.JSON(result)
		return
	}

	go notifyBookingCancelled(id)

	ctx.JSON(result)
}

func SaveCheckoutDraft(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var draft services.CheckoutDraft
	if err := ctx.ReadJSON(&draft); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := services.SaveDraft(ctx.Request().Context(), userID, &draft); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"ok": true})
}

// ConsumeCheckoutDraft hands the draft to the confirmation view exactly
// once; the same call invalidates it.
func ConsumeCheckoutDraft(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	draft, err := services.ConsumeDraft(ctx.Request().Context(), userID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if draft == nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(draft)
}

func isBookingHost(booking *models.Booking, userID uint) bool {
	var listing models.Listing
	if err := storage.DB.Select("id, host_id").First(&listing, booking.ListingID).Error; err != nil {
		return false
	}
	return listing.HostID == userID
}

func notifyBookingCancelled(bookingID uint) {
	var booking models.Booking
	if err := storage.DB.Preload("Guest").First(&booking, bookingID).Error; err != nil {
		return
	}
	if booking.Guest == nil || booking.Guest.Email == "" {
		return
	}
	services.NewMailerFromEnv().SendBookingCancelled(&booking, booking.Guest.Email)
	log.Printf("booking %d: cancellation mail queued", bookingID)
}
