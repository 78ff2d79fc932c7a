package handler

import (
	"bytes"
	gocontext "context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kobofi/kobopay/internal/context"
	"github.com/kobofi/kobopay/internal/errHandler"
	"github.com/kobofi/kobopay/internal/helper"
	"github.com/kobofi/kobopay/internal/models"
	"github.com/kobofi/kobopay/internal/payment"
	"github.com/kobofi/kobopay/internal/pin"
	"github.com/kobofi/kobopay/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPin = "1234"

var testPinHash = func() string {
	hash, err := pin.Hash(testPin)
	if err != nil {
		panic(err)
	}
	return hash
}()

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(recipient string, data any, patterns ...string) error {
	args := m.Called(recipient, data, patterns)
	return args.Error(0)
}

type testHarness struct {
	db         repository.Database
	payments   *payment.Service
	errHandler *errHandler.ErrorHandler
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	db := repository.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var baseURL = "http://localhost"
	var wg sync.WaitGroup
	help := helper.New(&baseURL, &wg, logger)

	mockMailer := new(MockMailer)
	mockMailer.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return &testHarness{
		db:         db,
		payments:   payment.New(db, nil, nil, logger),
		errHandler: errHandler.New("", mockMailer, logger, help),
	}
}

func (h *testHarness) seedUser(t *testing.T, email string, balance int64) *models.User {
	t.Helper()

	user := &models.User{
		ID:          "user-" + email,
		FirstName:   "Ada",
		LastName:    "Obi",
		PhoneNumber: "+234" + email,
		Email:       email,
		Status:      models.UserStatusActive,
	}

	wallet, err := models.NewWallet(user.ID, models.SupportedCurrency, "")
	require.NoError(t, err)

	wallet.Balance = decimal.NewFromInt(balance)
	wallet.PinHash = sql.NullString{String: testPinHash, Valid: true}

	require.NoError(t, h.db.User().CreateWithWallet(gocontext.Background(), user, wallet))

	return user
}

func authenticatedRequest(t *testing.T, user *models.User, method, target string, body map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	return context.ContextSetAuthenticatedUser(req, user)
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var response map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))

	return response
}

func TestHandleTransferMoney(t *testing.T) {
	harness := newTestHarness(t)

	sender := harness.seedUser(t, "sender@example.com", 1000)
	receiver := harness.seedUser(t, "receiver@example.com", 0)

	transactionHandler := NewTransactionHandler(&TransactionHandler{
		DB:         harness.db,
		Payments:   harness.payments,
		ErrHandler: harness.errHandler,
	})

	req := authenticatedRequest(t, sender, "POST", "/transfers", map[string]string{
		"receiver_user_id": receiver.ID,
		"amount":           "250.75",
		"pin":              testPin,
		"description":      "lunch money",
	})

	rr := httptest.NewRecorder()
	transactionHandler.HandleTransferMoney(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	response := decodeResponse(t, rr)
	require.Equal(t, true, response["success"])

	data, ok := response["data"].(map[string]any)
	require.True(t, ok, "expected response['data'] to be a map")

	require.Equal(t, "250.75", data["amount"])
	require.Equal(t, "completed", data["status"])
	require.NotEmpty(t, data["reference"])

	senderParty, ok := data["sender"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, sender.ID, senderParty["user_id"])

	wallet, found, err := harness.db.Wallet().GetByUserID(sender.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, wallet.Balance.Equal(decimal.NewFromFloat(749.25)))
}

func TestHandleTransferMoney_WrongPin(t *testing.T) {
	harness := newTestHarness(t)

	sender := harness.seedUser(t, "sender@example.com", 1000)
	receiver := harness.seedUser(t, "receiver@example.com", 0)

	transactionHandler := NewTransactionHandler(&TransactionHandler{
		DB:         harness.db,
		Payments:   harness.payments,
		ErrHandler: harness.errHandler,
	})

	req := authenticatedRequest(t, sender, "POST", "/transfers", map[string]string{
		"receiver_user_id": receiver.ID,
		"amount":           "250",
		"pin":              "0000",
	})

	rr := httptest.NewRecorder()
	transactionHandler.HandleTransferMoney(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)

	wallet, found, err := harness.db.Wallet().GetByUserID(sender.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, wallet.Balance.Equal(decimal.NewFromInt(1000)))
}

func TestHandleTransferMoney_InsufficientFunds(t *testing.T) {
	harness := newTestHarness(t)

	sender := harness.seedUser(t, "sender@example.com", 100)
	receiver := harness.seedUser(t, "receiver@example.com", 0)

	transactionHandler := NewTransactionHandler(&TransactionHandler{
		DB:         harness.db,
		Payments:   harness.payments,
		ErrHandler: harness.errHandler,
	})

	req := authenticatedRequest(t, sender, "POST", "/transfers", map[string]string{
		"receiver_user_id": receiver.ID,
		"amount":           "100.01",
		"pin":              testPin,
	})

	rr := httptest.NewRecorder()
	transactionHandler.HandleTransferMoney(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandleTransferMoney_InvalidAmount(t *testing.T) {
	harness := newTestHarness(t)

	sender := harness.seedUser(t, "sender@example.com", 100)
	receiver := harness.seedUser(t, "receiver@example.com", 0)

	transactionHandler := NewTransactionHandler(&TransactionHandler{
		DB:         harness.db,
		Payments:   harness.payments,
		ErrHandler: harness.errHandler,
	})

	for _, amount := range []string{"", "abc", "-50", "0"} {
		req := authenticatedRequest(t, sender, "POST", "/transfers", map[string]string{
			"receiver_user_id": receiver.ID,
			"amount":           amount,
			"pin":              testPin,
		})

		rr := httptest.NewRecorder()
		transactionHandler.HandleTransferMoney(rr, req)

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code, "amount %q should be rejected", amount)
	}
}

func TestHandleTransactionHistory(t *testing.T) {
	harness := newTestHarness(t)

	sender := harness.seedUser(t, "sender@example.com", 1000)
	receiver := harness.seedUser(t, "receiver@example.com", 0)

	for _, amount := range []string{"10", "20"} {
		_, err := harness.payments.Transfer(gocontext.Background(), payment.TransferInput{
			SenderUserID:   sender.ID,
			ReceiverUserID: receiver.ID,
			Amount:         decimal.RequireFromString(amount),
			Pin:            testPin,
		})
		require.NoError(t, err)
	}

	transactionHandler := NewTransactionHandler(&TransactionHandler{
		DB:         harness.db,
		Payments:   harness.payments,
		ErrHandler: harness.errHandler,
	})

	req := authenticatedRequest(t, sender, "GET", "/transactions?limit=10", nil)

	rr := httptest.NewRecorder()
	transactionHandler.HandleTransactionHistory(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	response := decodeResponse(t, rr)
	data, ok := response["data"].([]any)
	require.True(t, ok, "expected response['data'] to be a list")
	require.Len(t, data, 2)
}
