package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"shortlet-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// buildPaymentTestApp creates a minimal Iris app with the payment routes
// and JWT verifier. Tests only exercise branches that reject before any
// store or gateway call.
func buildPaymentTestApp() *iris.Application {
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	app := iris.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	payments := app.Party("/api/payments", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		payments.Get("/{gateway}/verify", VerifyGatewayTransaction)
		payments.Get("/{gateway}/callback", GatewayCallback)
	}
	if err := app.Build(); err != nil {
		panic(err)
	}
	return app
}

func signPaymentTestToken() string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 0)
	token, _ := signer.Sign(utils.AccessToken{ID: 1, Role: "user"})
	return string(token)
}

func TestPaymentRoutesRequireToken(t *testing.T) {
	app := buildPaymentTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/payments/paystack/verify?transactionId=ref_9", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without token, got %d", resp.Code)
	}
}

func TestVerifyRejectsUnknownGateway(t *testing.T) {
	app := buildPaymentTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/payments/stripe/verify?transactionId=ref_9", nil)
	req.Header.Set("Authorization", "Bearer "+signPaymentTestToken())
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown gateway, got %d", resp.Code)
	}
}

func TestVerifyRequiresTransactionID(t *testing.T) {
	app := buildPaymentTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/payments/paystack/verify", nil)
	req.Header.Set("Authorization", "Bearer "+signPaymentTestToken())
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without transactionId, got %d", resp.Code)
	}
}

func TestCallbackRequiresBookingID(t *testing.T) {
	app := buildPaymentTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/payments/flutterwave/callback?status=successful&tx_ref=ref_9", nil)
	req.Header.Set("Authorization", "Bearer "+signPaymentTestToken())
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without bookingId, got %d", resp.Code)
	}
}
