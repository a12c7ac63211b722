package routes

import (
	"shortlet-server/models"
	"shortlet-server/storage"
	"shortlet-server/utils"

	"github.com/kataras/iris/v12"
)

type CreateReviewInput struct {
	BookingID *uint  `json:"bookingID"`
	Title     string `json:"title" validate:"max=256"`
	Body      string `json:"body" validate:"required"`
	Stars     int    `json:"stars" validate:"required,min=1,max=5"`
}

func CreateReview(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	listingID := ctx.Params().GetUintDefault("id", 0)

	var listing models.Listing
	if err := storage.DB.First(&listing, listingID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var input CreateReviewInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	review := models.Review{
		UserID:    userID,
		ListingID: listingID,
		BookingID: input.BookingID,
		Title:     input.Title,
		Body:      input.Body,
		Stars:     input.Stars,
	}

	// A review tied to the reviewer's own paid booking of this listing
	// counts as a verified stay.
	if input.BookingID != nil {
		var booking models.Booking
		err := storage.DB.
			Where("id = ? AND guest_id = ? AND listing_id = ? AND status IN (?)",
				*input.BookingID, userID, listingID,
				[]string{models.BookingPaid, models.BookingCancelled, models.BookingRefunded}).
			First(&booking).Error
		review.IsVerified = err == nil && booking.Status == models.BookingPaid
	}

	if err := storage.DB.Create(&review).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	refreshListingRating(listingID)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(review)
}

func GetListingReviews(ctx iris.Context) {
	listingID := ctx.Params().GetUintDefault("id", 0)

	var reviews []models.Review
	if err := storage.DB.Preload("User").
		Where("listing_id = ?", listingID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(reviews)
}

func refreshListingRating(listingID uint) {
	type aggregate struct {
		Avg   float32
		Count int
	}
	var agg aggregate
	storage.DB.Model(&models.Review{}).
		Select("AVG(stars) as avg, COUNT(*) as count").
		Where("listing_id = ?", listingID).
		Scan(&agg)

	storage.DB.Model(&models.Listing{}).
		Where("id = ?", listingID).
		Updates(map[string]interface{}{"rating": agg.Avg, "review_count": agg.Count})
}
