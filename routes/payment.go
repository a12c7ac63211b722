package routes

import (
	"strings"

	"shortlet-server/models"
	"shortlet-server/services"
	"shortlet-server/storage"
	"shortlet-server/utils"

	"github.com/kataras/iris/v12"
)

func gatewayParam(ctx iris.Context) (string, bool) {
	gateway := strings.ToLower(ctx.Params().Get("gateway"))
	if gateway != models.ProviderPaystack && gateway != models.ProviderFlutterwave {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Unknown payment gateway", ctx)
		return "", false
	}
	return gateway, true
}

// VerifyGatewayTransaction proxies the provider's server-side
// verification endpoint: GET /api/payments/{gateway}/verify?transactionId=...
// Responds {ok, reference, message?} without touching any booking.
func VerifyGatewayTransaction(ctx iris.Context) {
	gateway, ok := gatewayParam(ctx)
	if !ok {
		return
	}

	transactionID := strings.TrimSpace(ctx.URLParam("transactionId"))
	if transactionID == "" {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"ok": false, "message": "transactionId is required"})
		return
	}

	verifier, err := services.VerifierFor(gateway)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", err.Error(), ctx)
		return
	}

	res, err := verifier.Verify(ctx.Request().Context(), transactionID)
	if err != nil {
		ctx.JSON(iris.Map{"ok": false, "message": "verification failed"})
		return
	}

	ctx.JSON(iris.Map{
		"ok":        res.Successful,
		"reference": res.Reference,
	})
}

// GatewayCallback is the payment-redirect landing endpoint. It resolves
// the pending booking from the bookingId query value carried through
// the gateway's return URL and runs the full reconciliation pipeline.
// Every failure branch responds 200 with {verified:false, reason} — the
// booking stays pending and the client renders a "payment not
// confirmed" view, never an error page.
func GatewayCallback(ctx iris.Context) {
	gateway, ok := gatewayParam(ctx)
	if !ok {
		return
	}

	bookingID := uint(ctx.URLParamIntDefault("bookingId", 0))
	if bookingID == 0 {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(services.ReconcileResult{Verified: false, Reason: "missing booking reference"})
		return
	}

	callback := services.GatewayCallback{
		Provider:      gateway,
		Status:        ctx.URLParam("status"),
		TxRef:         ctx.URLParam("tx_ref"),
		TransactionID: ctx.URLParam("transaction_id"),
	}
	if gateway == models.ProviderPaystack && callback.TxRef == "" {
		callback.TxRef = ctx.URLParam("reference")
	}

	reconciler := services.NewReconciler(storage.DB)
	result := reconciler.Reconcile(ctx.Request().Context(), bookingID, utils.ContextUserID(ctx), callback)

	if result.Verified {
		go notifyBookingPaid(bookingID)
	}

	ctx.JSON(result)
}

func notifyBookingPaid(bookingID uint) {
	var booking models.Booking
	if err := storage.DB.Preload("Guest").First(&booking, bookingID).Error; err != nil {
		return
	}
	if booking.Guest == nil || booking.Guest.Email == "" {
		return
	}
	services.NewMailerFromEnv().SendBookingPaid(&booking, booking.Guest.Email)
}
