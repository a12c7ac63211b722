package routes

import (
	"time"

	"shortlet-server/models"
	"shortlet-server/services"
	"shortlet-server/storage"
	"shortlet-server/utils"

	"github.com/kataras/iris/v12"
)

func AdminListBookings(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	q := storage.DB.Model(&models.Booking{})
	if status := ctx.URLParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if provider := ctx.URLParam("provider"); provider != "" {
		q = q.Where("provider = ?", provider)
	}

	var total int64
	q.Count(&total)

	var bookings []models.Booking
	if err := q.Preload("Listing").Preload("Guest").
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&bookings).Error; err != nil {
		utils.JSONError(ctx, iris.StatusInternalServerError, "query_failed", "Failed to list bookings")
		return
	}

	utils.JSONPage(ctx, bookings, page, perPage, total)
}

func AdminGetBooking(ctx iris.Context) {
	id := ctx.Params().GetUintDefault("id", 0)

	var booking models.Booking
	if err := storage.DB.Preload("Listing").Preload("Guest").First(&booking, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(booking)
}

// AdminMarkRefunded records the monetary reversal after a cancellation.
// Only cancelled bookings qualify; refunded is terminal.
func AdminMarkRefunded(ctx iris.Context) {
	id := ctx.Params().GetUintDefault("id", 0)

	var before models.Booking
	if err := storage.DB.First(&before, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	store := services.DBBookingStore{DB: storage.DB}
	if err := store.MarkRefunded(ctx.Request().Context(), id, time.Now()); err != nil {
		utils.JSONError(ctx, iris.StatusConflict, "invalid_state", err.Error())
		return
	}

	var after models.Booking
	storage.DB.First(&after, id)
	utils.Audit(ctx, "booking.refund", "booking", id, before, after)

	ctx.JSON(after)
}

// AdminRepairPendingBookings runs the out-of-band reconciliation sweep:
// pending bookings older than olderThanMinutes (default 30) that carry
// a gateway reference are re-verified and repaired.
func AdminRepairPendingBookings(ctx iris.Context) {
	olderThanMinutes := ctx.URLParamIntDefault("olderThanMinutes", 30)
	if olderThanMinutes < 1 {
		olderThanMinutes = 30
	}

	reconciler := services.NewReconciler(storage.DB)
	repaired, err := reconciler.RepairStalePending(ctx.Request().Context(), time.Duration(olderThanMinutes)*time.Minute)
	if err != nil {
		utils.JSONError(ctx, iris.StatusInternalServerError, "repair_failed", "Repair sweep failed")
		return
	}

	utils.Audit(ctx, "booking.repair_sweep", "booking", 0, nil, iris.Map{"repaired": repaired})
	ctx.JSON(iris.Map{"repaired": repaired})
}

func AdminStats(ctx iris.Context) {
	var (
		totalUsers    int64
		totalListings int64
		byStatus      []struct {
			Status string
			Count  int64
		}
		revenue float64
	)

	storage.DB.Model(&models.User{}).Count(&totalUsers)
	storage.DB.Model(&models.Listing{}).Count(&totalListings)
	storage.DB.Model(&models.Booking{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&byStatus)
	storage.DB.Model(&models.Booking{}).
		Where("status = ?", models.BookingPaid).
		Select("COALESCE(SUM(total), 0)").
		Scan(&revenue)

	bookings := iris.Map{}
	for _, row := range byStatus {
		bookings[row.Status] = row.Count
	}

	ctx.JSON(iris.Map{
		"users":    totalUsers,
		"listings": totalListings,
		"bookings": bookings,
		"revenue":  revenue,
	})
}
