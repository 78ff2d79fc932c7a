package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kobofi/kobopay/internal/context"
	"github.com/kobofi/kobopay/internal/errHandler"
	"github.com/kobofi/kobopay/internal/models"
	"github.com/kobofi/kobopay/internal/payment"
	"github.com/kobofi/kobopay/internal/repository"
	"github.com/kobofi/kobopay/internal/request"
	"github.com/kobofi/kobopay/internal/response"
	"github.com/kobofi/kobopay/internal/validator"
)

type TransactionParty struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	WalletID string `json:"wallet_id"`
}

type TransactionResponseData struct {
	ID          string            `json:"id"`
	Reference   string            `json:"reference"`
	Type        string            `json:"type"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	Description string            `json:"description,omitempty"`
	Sender      *TransactionParty `json:"sender,omitempty"`
	Receiver    *TransactionParty `json:"receiver,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func newTransactionResponseData(record *models.Transaction) *TransactionResponseData {
	return &TransactionResponseData{
		ID:        record.ID,
		Reference: record.Reference,
		Type:      record.Type,
		// decimal string on the wire, never a binary float
		Amount:      record.Amount.String(),
		Currency:    record.Currency,
		Status:      record.Status,
		Description: record.Description.String,
		CreatedAt:   record.CreatedAt,
	}
}

type TransactionHandler struct {
	DB         repository.Database
	Payments   *payment.Service
	ErrHandler *errHandler.ErrorHandler
}

func NewTransactionHandler(handler *TransactionHandler) *TransactionHandler {
	return &TransactionHandler{
		DB:         handler.DB,
		Payments:   handler.Payments,
		ErrHandler: handler.ErrHandler,
	}
}

func (h *TransactionHandler) HandleTransferMoney(w http.ResponseWriter, r *http.Request) {
	sender := context.ContextGetAuthenticatedUser(r)

	var input struct {
		ReceiverUserID string              `json:"receiver_user_id"`
		Amount         string              `json:"amount"`
		Pin            string              `json:"pin"`
		Description    string              `json:"description"`
		Reference      string              `json:"reference"`
		Validator      validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Pin), "Pin is required")
	input.Validator.Check(validator.NotBlank(input.ReceiverUserID), "Receiver is required")
	amount := parseAmount(input.Amount, &input.Validator)

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	record, err := h.Payments.Transfer(r.Context(), payment.TransferInput{
		SenderUserID:   sender.ID,
		ReceiverUserID: input.ReceiverUserID,
		Amount:         amount,
		Pin:            input.Pin,
		Description:    input.Description,
		Reference:      input.Reference,
	})
	if err != nil {
		h.ErrHandler.DomainError(w, r, err)
		return
	}

	data := newTransactionResponseData(record)
	h.attachParties(data, record)

	message := "Transfer completed successfully"

	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *TransactionHandler) HandleTransactionHistory(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	wallet, err := h.Payments.GetWallet(user.ID)
	if err != nil {
		h.ErrHandler.DomainError(w, r, err)
		return
	}

	limit := 20
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	records, err := h.Payments.History(wallet.ID, limit, offset)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := make([]*TransactionResponseData, len(records))
	for i := range records {
		data[i] = newTransactionResponseData(&records[i])
		h.attachParties(data[i], &records[i])
	}

	message := "Transaction history fetched successfully"

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// attachParties decorates a transaction with sender/receiver display
// info from the identity subsystem. Lookups are best-effort; a missing
// party leaves the field empty rather than failing the request.
func (h *TransactionHandler) attachParties(data *TransactionResponseData, record *models.Transaction) {
	if record.SenderWalletID.Valid {
		data.Sender = h.lookupParty(record.SenderWalletID.String)
	}
	if record.ReceiverWalletID.Valid {
		data.Receiver = h.lookupParty(record.ReceiverWalletID.String)
	}
}

func (h *TransactionHandler) lookupParty(walletID string) *TransactionParty {
	wallet, found, err := h.DB.Wallet().GetOne(walletID)
	if err != nil || !found {
		return nil
	}

	user, found, err := h.DB.User().GetOne(wallet.UserID)
	if err != nil || !found {
		return nil
	}

	return &TransactionParty{
		UserID:   user.ID,
		Name:     user.FullName(),
		WalletID: walletID,
	}
}
