package routes

import (
	"encoding/json"
	"log"
	"strconv"

	"shortlet-server/models"
	"shortlet-server/storage"
	"shortlet-server/utils"

	"github.com/kataras/iris/v12"
)

type CreateListingInput struct {
	Title         string   `json:"title" validate:"required,max=256"`
	Description   string   `json:"description"`
	City          string   `json:"city" validate:"required"`
	Area          string   `json:"area"`
	AddressLine1  string   `json:"addressLine1"`
	Lat           float32  `json:"lat"`
	Lng           float32  `json:"lng"`
	Capacity      int      `json:"capacity" validate:"min=1"`
	Bedrooms      int      `json:"bedrooms"`
	Beds          int      `json:"beds"`
	Bathrooms     float32  `json:"bathrooms"`
	PricePerNight float64  `json:"pricePerNight" validate:"required,min=0"`
	Currency      string   `json:"currency"`
	Amenities     []string `json:"amenities"`
	Photos        []string `json:"photos"`
}

type UpdateListingInput struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	Area          *string  `json:"area"`
	PricePerNight *float64 `json:"pricePerNight"`
	Amenities     []string `json:"amenities"`
	Photos        []string `json:"photos"`
	Status        *string  `json:"status"`
}

func CreateListing(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var input CreateListingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	amenities := input.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	amenitiesJSON, _ := json.Marshal(amenities)

	photos := input.Photos
	if photos == nil {
		photos = []string{}
	}
	photosJSON, _ := json.Marshal(photos)

	currency := input.Currency
	if currency == "" {
		currency = "NGN"
	}

	listing := models.Listing{
		HostID:        userID,
		Title:         input.Title,
		Description:   input.Description,
		City:          input.City,
		Area:          input.Area,
		AddressLine1:  input.AddressLine1,
		Lat:           input.Lat,
		Lng:           input.Lng,
		Capacity:      input.Capacity,
		Bedrooms:      input.Bedrooms,
		Beds:          input.Beds,
		Bathrooms:     input.Bathrooms,
		PricePerNight: input.PricePerNight,
		Currency:      currency,
		Amenities:     string(amenitiesJSON),
		Photos:        string(photosJSON),
		Status:        models.ListingActive,
	}

	if err := storage.DB.Create(&listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	mirrorListingDoc(ctx, &listing, photos)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(listing)
}

func GetListing(ctx iris.Context) {
	id := ctx.Params().GetUintDefault("id", 0)

	var listing models.Listing
	if err := storage.DB.Preload("Host").First(&listing, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(listing)
}

func GetMyListings(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var listings []models.Listing
	if err := storage.DB.Where("host_id = ?", userID).Order("created_at DESC").Find(&listings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(listings)
}

func UpdateListing(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	id := ctx.Params().GetUintDefault("id", 0)

	var listing models.Listing
	if err := storage.DB.First(&listing, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if listing.HostID != userID {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateListingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	docUpdates := map[string]interface{}{}

	if input.Title != nil {
		updates["title"] = *input.Title
		docUpdates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Area != nil {
		updates["area"] = *input.Area
		docUpdates["area"] = *input.Area
	}
	if input.PricePerNight != nil {
		updates["price_per_night"] = *input.PricePerNight
		docUpdates["pricePerNight"] = *input.PricePerNight
	}
	if input.Amenities != nil {
		amenitiesJSON, _ := json.Marshal(input.Amenities)
		updates["amenities"] = string(amenitiesJSON)
	}
	if input.Photos != nil {
		photosJSON, _ := json.Marshal(input.Photos)
		updates["photos"] = string(photosJSON)
		docUpdates["photos"] = input.Photos
	}
	if input.Status != nil {
		if *input.Status != models.ListingActive && *input.Status != models.ListingSuspended {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid listing status", ctx)
			return
		}
		updates["status"] = *input.Status
		docUpdates["status"] = *input.Status
	}

	if len(updates) > 0 {
		if err := storage.DB.Model(&listing).Updates(updates).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	// Merge-write the changed fields only; unrelated document fields
	// stay untouched.
	if len(docUpdates) > 0 && storage.Firestore != nil {
		if err := storage.Listings().Upsert(ctx.Request().Context(), listingDocID(listing.ID), docUpdates); err != nil {
			log.Printf("listing %d: search mirror update failed: %v", listing.ID, err)
		}
	}

	storage.DB.First(&listing, id)
	ctx.JSON(listing)
}

func DeactivateListing(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	id := ctx.Params().GetUintDefault("id", 0)

	var listing models.Listing
	if err := storage.DB.First(&listing, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if listing.HostID != userID {
		utils.CreateForbidden(ctx)
		return
	}

	if err := storage.DB.Model(&listing).Update("status", models.ListingSuspended).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if storage.Firestore != nil {
		if err := storage.Listings().Upsert(ctx.Request().Context(), listingDocID(listing.ID), map[string]interface{}{
			"status": models.ListingSuspended,
		}); err != nil {
			log.Printf("listing %d: search mirror update failed: %v", listing.ID, err)
		}
	}

	ctx.JSON(iris.Map{"ok": true})
}

func listingDocID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// mirrorListingDoc writes the discovery-facing document for a new
// listing. Best-effort: search lags behind rather than failing the
// host's create.
func mirrorListingDoc(ctx iris.Context, listing *models.Listing, photos []string) {
	if storage.Firestore == nil {
		return
	}
	err := storage.Listings().Upsert(ctx.Request().Context(), listingDocID(listing.ID), map[string]interface{}{
		"hostID":        listing.HostID,
		"title":         listing.Title,
		"city":          listing.City,
		"area":          listing.Area,
		"pricePerNight": listing.PricePerNight,
		"status":        listing.Status,
		"photos":        photos,
		"createdAt":     listing.CreatedAt,
	})
	if err != nil {
		log.Printf("listing %d: search mirror create failed: %v", listing.ID, err)
	}
}
