package handler

import (
	"net/http"
	"time"

	"github.com/kobofi/kobopay/internal/context"
	"github.com/kobofi/kobopay/internal/errHandler"
	"github.com/kobofi/kobopay/internal/models"
	"github.com/kobofi/kobopay/internal/payment"
	"github.com/kobofi/kobopay/internal/request"
	"github.com/kobofi/kobopay/internal/response"
	"github.com/kobofi/kobopay/internal/validator"

	"github.com/shopspring/decimal"
)

type WalletResponseData struct {
	ID        string    `json:"id"`
	Balance   string    `json:"balance"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	HasPin    bool      `json:"has_pin"`
	CreatedAt time.Time `json:"created_at"`
}

func newWalletResponseData(wallet *models.Wallet) *WalletResponseData {
	return &WalletResponseData{
		ID: wallet.ID,
		// decimal string on the wire, never a binary float
		Balance:   wallet.Balance.String(),
		Currency:  wallet.Currency,
		Status:    wallet.Status,
		HasPin:    wallet.HasPin(),
		CreatedAt: wallet.CreatedAt,
	}
}

type WalletHandler struct {
	Payments   *payment.Service
	ErrHandler *errHandler.ErrorHandler
}

func NewWalletHandler(handler *WalletHandler) *WalletHandler {
	return &WalletHandler{
		Payments:   handler.Payments,
		ErrHandler: handler.ErrHandler,
	}
}

func (h *WalletHandler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	wallet, err := h.Payments.GetWallet(user.ID)
	if err != nil {
		h.ErrHandler.DomainError(w, r, err)
		return
	}

	message := "Wallet details fetched successfully"

	err = response.JSONOkResponse(w, newWalletResponseData(wallet), message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *WalletHandler) HandleSetPin(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Pin        string              `json:"pin"`
		ConfirmPin string              `json:"confirm_pin"`
		Validator  validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Pin), "Pin is required")
	input.Validator.Check(validator.NotBlank(input.ConfirmPin), "Pin confirmation is required")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	wallet, err := h.Payments.GetWallet(user.ID)
	if err != nil {
		h.ErrHandler.DomainError(w, r, err)
		return
	}

	wallet, err = h.Payments.SetPin(wallet.ID, input.Pin, input.ConfirmPin)
	if err != nil {
		h.ErrHandler.DomainError(w, r, err)
		return
	}

	message := "Wallet PIN updated successfully"

	err = response.JSONOkResponse(w, newWalletResponseData(wallet), message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// parseAmount turns a wire-format decimal string into a decimal value.
func parseAmount(raw string, v *validator.Validator) decimal.Decimal {
	if raw == "" {
		v.AddError("Amount is required")
		return decimal.Zero
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		v.AddError("Amount must be a valid decimal number")
		return decimal.Zero
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		v.AddError("Amount must be positive")
	}

	return amount
}

func (h *WalletHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Amount      string              `json:"amount"`
		Description string              `json:"description"`
		Reference   string              `json:"reference"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	amount := parseAmount(input.Amount, &input.Validator)
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	record, err := h.Payments.Deposit(r.Context(), payment.DepositInput{
		UserID:      user.ID,
		Amount:      amount,
		Description: input.Description,
		Reference:   input.Reference,
	})
	if err != nil {
		h.ErrHandler.DomainError(w, r, err)
		return
	}

	message := "Deposit successful"

	err = response.JSONCreatedResponse(w, newTransactionResponseData(record), message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *WalletHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Amount      string              `json:"amount"`
		Pin         string              `json:"pin"`
		Description string              `json:"description"`
		Reference   string              `json:"reference"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	amount := parseAmount(input.Amount, &input.Validator)
	input.Validator.Check(validator.NotBlank(input.Pin), "Pin is required")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	record, err := h.Payments.Withdraw(r.Context(), payment.WithdrawInput{
		UserID:      user.ID,
		Amount:      amount,
		Pin:         input.Pin,
		Description: input.Description,
		Reference:   input.Reference,
	})
	if err != nil {
		h.ErrHandler.DomainError(w, r, err)
		return
	}

	message := "Withdrawal successful"

	err = response.JSONCreatedResponse(w, newTransactionResponseData(record), message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
