package main

import (
	"log"
	"os"

	"shortlet-server/routes"
	"shortlet-server/storage"
	"shortlet-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()
	storage.InitializeFirestore()
	storage.InitializeGCS()

	app := iris.New()
	app.Validator = validator.New()

	// CORS for the web client
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})
	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		if err := ctx.ReadJSON(&tokenInput); err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
		user.Get("/me", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetMe)
		user.Patch("/me", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.UpdateProfile)
	}

	listing := app.Party("/api/listing")
	{
		listing.Get("/search", routes.SearchListings)
		listing.Get("/{id:uint}", routes.GetListing)
		listing.Get("/{id:uint}/reviews", routes.GetListingReviews)
		listing.Post("/", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.CreateListing)
		listing.Patch("/{id:uint}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.UpdateListing)
		listing.Delete("/{id:uint}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.DeactivateListing)
		listing.Get("/host/mine", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetMyListings)
		listing.Post("/{id:uint}/reviews", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.CreateReview)
	}

	bookings := app.Party("/api/bookings", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		bookings.Post("/", routes.CreateBooking)
		bookings.Get("/mine", routes.GetMyBookings)
		bookings.Get("/{id:uint}", routes.GetBooking)
		bookings.Post("/{id:uint}/cancel", routes.CancelBooking)
		bookings.Put("/checkout/draft", routes.SaveCheckoutDraft)
		bookings.Post("/checkout/draft/consume", routes.ConsumeCheckoutDraft)
	}

	payments := app.Party("/api/payments", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		payments.Get("/{gateway}/verify", routes.VerifyGatewayTransaction)
		payments.Get("/{gateway}/callback", routes.GatewayCallback)
	}

	upload := app.Party("/api/upload", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		upload.Post("/image", routes.UploadImage)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/bookings", routes.AdminListBookings)
		admin.Get("/bookings/{id:uint}", routes.AdminGetBooking)
		admin.Post("/bookings/{id:uint}/refund", routes.AdminMarkRefunded)
		admin.Post("/bookings/repair", routes.AdminRepairPendingBookings)
		admin.Get("/stats", routes.AdminStats)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	log.Println("listening on :" + port)
	app.Listen(":" + port)
}
