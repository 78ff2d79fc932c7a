package handler

import (
	"net/http"
	"time"

	"github.com/kobofi/kobopay/internal/config"
	"github.com/kobofi/kobopay/internal/errHandler"
	"github.com/kobofi/kobopay/internal/helper"
	"github.com/kobofi/kobopay/internal/models"
	"github.com/kobofi/kobopay/internal/repository"
	"github.com/kobofi/kobopay/internal/request"
	"github.com/kobofi/kobopay/internal/response"
	"github.com/kobofi/kobopay/internal/smtp"
	"github.com/kobofi/kobopay/internal/validator"

	"github.com/cradoe/gopass"
	"github.com/google/uuid"
	"github.com/pascaldekloe/jwt"
)

const (
	UserActivityLogRegistrationDescription  = "Registered account"
	UserActivityLogLoginDescription         = "Logged in"
	UserActivityLogFailedLoginDescription   = "Failed login attempt"
	UserActivityLogLockedAccountDescription = "Account locked after consecutive failed logins"
)

type AuthHandler struct {
	DB         repository.Database
	ErrHandler *errHandler.ErrorHandler
	Helper     *helper.HelperRepository
	Mailer     smtp.MailerInterface
	Config     *config.Config
}

func NewAuthHandler(handler *AuthHandler) *AuthHandler {
	return &AuthHandler{
		DB:         handler.DB,
		ErrHandler: handler.ErrHandler,
		Helper:     handler.Helper,
		Mailer:     handler.Mailer,
		Config:     handler.Config,
	}
}

// Registration creates the user and their zero-balance wallet in one
// unit of work; a user never exists without a wallet.
func (h *AuthHandler) HandleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email       string              `json:"email"`
		Password    string              `json:"password"`
		FirstName   string              `json:"first_name"`
		LastName    string              `json:"last_name"`
		PhoneNumber string              `json:"phone_number"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	// password strength errors are returned before the other fields
	// are even looked at
	_, errs := gopass.Validate(input.Password)
	if errs != nil {
		h.ErrHandler.FailedValidation(w, r, errs)
		return
	}

	_, found, err := h.DB.User().GetByEmail(input.Email)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")
	input.Validator.Check(!found, "Email is already in use")

	input.Validator.Check(validator.NotBlank(input.FirstName), "First name is required")
	input.Validator.Check(validator.NotBlank(input.LastName), "Last name is required")

	input.Validator.Check(validator.NotBlank(input.PhoneNumber), "Phone number is required")
	input.Validator.Check(validator.Matches(input.PhoneNumber, validator.RgxPhoneNumber), "Phone number must be in international format")

	phoneExists, err := h.DB.User().CheckIfPhoneNumberExist(input.PhoneNumber)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	input.Validator.Check(!phoneExists, "Phone number has been registered")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	hashedPassword, err := gopass.Hash(input.Password)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	createdUser := &models.User{
		ID:             uuid.NewString(),
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		PhoneNumber:    input.PhoneNumber,
		Status:         models.UserStatusActive,
		HashedPassword: hashedPassword,
	}

	wallet, err := models.NewWallet(createdUser.ID, models.SupportedCurrency, "")
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	err = h.DB.User().CreateWithWallet(r.Context(), createdUser, wallet)
	if err != nil {
		h.ErrHandler.DomainError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(func() error {
		_, err := h.DB.Activity().Insert(&models.ActivityLog{
			UserID:      createdUser.ID,
			Entity:      repository.ActivityLogUserEntity,
			EntityId:    createdUser.ID,
			Description: UserActivityLogRegistrationDescription,
		})
		return err
	})

	h.Helper.BackgroundTask(func() error {
		emailData := h.Helper.NewEmailData()
		emailData["Name"] = createdUser.FullName()

		return h.Mailer.Send(createdUser.Email, emailData, "welcome.tmpl")
	})

	message := "Account created successfully"

	err = response.JSONCreatedResponse(w, nil, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *AuthHandler) HandleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email     string              `json:"email"`
		Password  string              `json:"password"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	user, found, err := h.DB.User().GetByEmail(input.Email)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")
	input.Validator.Check(found, "Incorrect email/password")

	if found {
		passwordMatches, err := gopass.ComparePasswordAndHash(input.Password, user.HashedPassword)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}

		input.Validator.Check(validator.NotBlank(input.Password), "Password is required")
		input.Validator.Check(passwordMatches, "Incorrect email/password")

		if !passwordMatches {
			h.Helper.BackgroundTask(func() error {
				_, err := h.DB.Activity().Insert(&models.ActivityLog{
					UserID:      user.ID,
					Entity:      repository.ActivityLogUserEntity,
					EntityId:    user.ID,
					Description: UserActivityLogFailedLoginDescription,
				})
				return err
			})

			// lock the account after 3 consecutive failed attempts
			count := h.DB.Activity().CountConsecutiveFailedLoginAttempts(user.ID, UserActivityLogFailedLoginDescription)
			if count >= 2 {
				h.Helper.BackgroundTask(func() error {
					return h.DB.User().Lock(user.ID)
				})

				h.Helper.BackgroundTask(func() error {
					_, err := h.DB.Activity().Insert(&models.ActivityLog{
						UserID:      user.ID,
						Entity:      repository.ActivityLogUserEntity,
						EntityId:    user.ID,
						Description: UserActivityLogLockedAccountDescription,
					})
					return err
				})

				h.ErrHandler.FailedValidation(w, r, []string{"Account has been locked. Please contact support"})
				return
			}
		}

		if user.Status == models.UserStatusLocked {
			h.ErrHandler.FailedValidation(w, r, []string{"Account has been locked. Please contact support"})
			return
		}
	}

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	var claims jwt.Claims
	claims.Subject = user.ID

	expiry := time.Now().Add(24 * time.Hour)
	claims.Issued = jwt.NewNumericTime(time.Now())
	claims.NotBefore = jwt.NewNumericTime(time.Now())
	claims.Expires = jwt.NewNumericTime(expiry)

	claims.Issuer = h.Config.BaseURL
	claims.Audiences = []string{h.Config.BaseURL}

	jwtBytes, err := claims.HMACSign(jwt.HS256, []byte(h.Config.Jwt.SecretKey))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(func() error {
		_, err := h.DB.Activity().Insert(&models.ActivityLog{
			UserID:      user.ID,
			Entity:      repository.ActivityLogUserEntity,
			EntityId:    user.ID,
			Description: UserActivityLogLoginDescription,
		})
		return err
	})

	message := "Login successful"

	data := map[string]any{
		"auth_token":        string(jwtBytes),
		"auth_token_expiry": expiry.Format(time.RFC3339),
	}

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
