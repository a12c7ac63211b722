package routes

import (
	"strings"

	"shortlet-server/models"
	"shortlet-server/storage"
	"shortlet-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/crypto/bcrypt"
)

type RegisterUserInput struct {
	FirstName   string `json:"firstName" validate:"required,max=256"`
	LastName    string `json:"lastName" validate:"required,max=256"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password" validate:"required,min=8,max=256"`
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarURL"`
}

func Register(ctx iris.Context) {
	var userInput RegisterUserInput
	if err := ctx.ReadJSON(&userInput); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	email := strings.ToLower(strings.TrimSpace(userInput.Email))

	var existing models.User
	userExists := storage.DB.Where("email = ?", email).First(&existing).Error == nil
	if userExists {
		utils.CreateError(iris.StatusConflict, "Conflict", "Email already registered", ctx)
		return
	}

	phone := userInput.PhoneNumber
	if phone != "" {
		if !utils.ValidatePhoneNumber(phone) {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid phone number", ctx)
			return
		}
		phone = utils.FormatPhoneNumber(phone)
	}

	hashedPassword, hashErr := bcrypt.GenerateFromPassword([]byte(userInput.Password), bcrypt.DefaultCost)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	newUser := models.User{
		FirstName:   userInput.FirstName,
		LastName:    userInput.LastName,
		Email:       email,
		PhoneNumber: phone,
		Password:    string(hashedPassword),
	}

	if err := storage.DB.Create(&newUser).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	returnUserWithTokens(newUser, ctx)
}

func Login(ctx iris.Context) {
	var userInput LoginUserInput
	if err := ctx.ReadJSON(&userInput); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	err := storage.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(userInput.Email))).First(&user).Error
	if err != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", "Invalid email or password", ctx)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(userInput.Password)) != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", "Invalid email or password", ctx)
		return
	}

	returnUserWithTokens(user, ctx)
}

func GetMe(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(user)
}

func UpdateProfile(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var input UpdateProfileInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.FirstName != "" {
		updates["first_name"] = input.FirstName
	}
	if input.LastName != "" {
		updates["last_name"] = input.LastName
	}
	if input.PhoneNumber != "" {
		if !utils.ValidatePhoneNumber(input.PhoneNumber) {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid phone number", ctx)
			return
		}
		updates["phone_number"] = utils.FormatPhoneNumber(input.PhoneNumber)
	}
	if input.Bio != "" {
		updates["bio"] = input.Bio
	}
	if input.AvatarURL != "" {
		updates["avatar_url"] = input.AvatarURL
	}

	if len(updates) > 0 {
		if err := storage.DB.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(user)
}

func returnUserWithTokens(user models.User, ctx iris.Context) {
	tokenPair, err := utils.CreateTokenPair(user.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":           user.ID,
		"firstName":    user.FirstName,
		"lastName":     user.LastName,
		"email":        user.Email,
		"role":         user.Role,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}
