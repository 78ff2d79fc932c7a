// Package payment orchestrates money movement between wallets. It is
// the only subsystem allowed to mutate balances, and it does so solely
// through the repository's locked units of work.
package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kobofi/kobopay/internal/apperror"
	"github.com/kobofi/kobopay/internal/models"
	"github.com/kobofi/kobopay/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	// TopicTransferCompleted and TopicTransferFailed carry post-commit
	// notification events. Debit and credit themselves happen
	// synchronously inside the locked unit of work; the stream is only
	// used for after-the-fact work like alerts and audit trails.
	TopicTransferCompleted = "transfer.completed"
	TopicTransferFailed    = "transfer.failed"
)

const (
	referenceReservationTTL = 24 * time.Hour
	pinFailureWindow        = 15 * time.Minute
)

// ReferenceCache is the fast-path idempotency check in front of the
// database's UNIQUE constraint on transaction references.
type ReferenceCache interface {
	ReserveReference(reference string, ttl time.Duration) (bool, error)
	ReleaseReference(reference string) error
}

// PinFailureCounter feeds the request-level rate limiter. Caches that
// support it (redis) are picked up automatically.
type PinFailureCounter interface {
	CountPinFailure(walletID string, window time.Duration) (int64, error)
}

type EventProducer interface {
	ProduceMessage(topic, message string) error
}

type Service struct {
	db          repository.Database
	cache       ReferenceCache
	pinFailures PinFailureCounter
	events      EventProducer
	logger      *slog.Logger
}

// New builds the orchestrator. cache and events may be nil; both are
// best-effort collaborators, not correctness dependencies.
func New(db repository.Database, cache ReferenceCache, events EventProducer, logger *slog.Logger) *Service {
	s := &Service{
		db:     db,
		cache:  cache,
		events: events,
		logger: logger,
	}

	if counter, ok := cache.(PinFailureCounter); ok {
		s.pinFailures = counter
	}

	return s
}

type TransferInput struct {
	SenderUserID   string
	ReceiverUserID string
	Amount         decimal.Decimal
	Pin            string
	Description    string

	// Reference is the optional client-supplied idempotency key. When
	// empty a fresh one is generated.
	Reference string
}

type TransferEvent struct {
	TransactionID    string `json:"transaction_id"`
	Reference        string `json:"reference"`
	SenderWalletID   string `json:"sender_wallet_id"`
	ReceiverWalletID string `json:"receiver_wallet_id"`
	SenderUserID     string `json:"sender_user_id"`
	ReceiverUserID   string `json:"receiver_user_id"`
	Amount           string `json:"amount"`
	Status           string `json:"status"`
}

// Transfer moves money between two users' wallets.
//
// The cheap checks run first, before any lock is taken: resolve the
// sender wallet, validate the amount, verify the PIN, check the wallet
// is active and appears funded. Only then is the atomic unit of work
// attempted, which re-validates everything against the locked rows.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (*models.Transaction, error) {
	senderWallet, found, err := s.db.Wallet().GetByUserID(input.SenderUserID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("sender wallet not found")
	}

	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.Validation("amount must be positive")
	}

	matches, err := senderWallet.VerifyPin(input.Pin)
	if err != nil {
		return nil, err
	}
	if !matches {
		s.recordPinFailure(senderWallet.ID)
		return nil, apperror.Authentication("invalid PIN")
	}

	if !senderWallet.IsActive() {
		return nil, apperror.Payment("sender wallet is not active")
	}

	if !senderWallet.HasSufficientBalance(input.Amount) {
		return nil, apperror.InsufficientFunds()
	}

	receiverWallet, found, err := s.db.Wallet().GetByUserID(input.ReceiverUserID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("receiver wallet not found")
	}

	if !receiverWallet.IsActive() {
		return nil, apperror.Payment("receiver wallet is not active")
	}

	if senderWallet.ID == receiverWallet.ID {
		return nil, apperror.Validation("cannot transfer to yourself")
	}

	record, err := models.NewTransaction(models.NewTransactionInput{
		SenderWalletID:   senderWallet.ID,
		ReceiverWalletID: receiverWallet.ID,
		Type:             models.TransactionTypeTransfer,
		Amount:           input.Amount,
		Currency:         senderWallet.Currency,
		Description:      input.Description,
		Reference:        input.Reference,
	})
	if err != nil {
		return nil, err
	}

	if err := s.reserveReference(record.Reference); err != nil {
		return nil, err
	}

	completed, err := s.db.Wallet().Transfer(ctx, record)
	if err != nil {
		s.releaseReference(record.Reference)
		s.publishTransferEvent(TopicTransferFailed, record, input)
		return nil, err
	}

	s.publishTransferEvent(TopicTransferCompleted, completed, input)

	return completed, nil
}

type DepositInput struct {
	UserID      string
	Amount      decimal.Decimal
	Description string
	Reference   string
}

func (s *Service) Deposit(ctx context.Context, input DepositInput) (*models.Transaction, error) {
	wallet, found, err := s.db.Wallet().GetByUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("wallet not found")
	}

	record, err := models.NewTransaction(models.NewTransactionInput{
		ReceiverWalletID: wallet.ID,
		Type:             models.TransactionTypeDeposit,
		Amount:           input.Amount,
		Currency:         wallet.Currency,
		Description:      input.Description,
		Reference:        input.Reference,
	})
	if err != nil {
		return nil, err
	}

	if err := s.reserveReference(record.Reference); err != nil {
		return nil, err
	}

	completed, err := s.db.Wallet().Deposit(ctx, record)
	if err != nil {
		s.releaseReference(record.Reference)
		return nil, err
	}

	return completed, nil
}

type WithdrawInput struct {
	UserID      string
	Amount      decimal.Decimal
	Pin         string
	Description string
	Reference   string
}

func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (*models.Transaction, error) {
	wallet, found, err := s.db.Wallet().GetByUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("wallet not found")
	}

	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.Validation("amount must be positive")
	}

	matches, err := wallet.VerifyPin(input.Pin)
	if err != nil {
		return nil, err
	}
	if !matches {
		s.recordPinFailure(wallet.ID)
		return nil, apperror.Authentication("invalid PIN")
	}

	if !wallet.HasSufficientBalance(input.Amount) {
		return nil, apperror.InsufficientFunds()
	}

	record, err := models.NewTransaction(models.NewTransactionInput{
		SenderWalletID: wallet.ID,
		Type:           models.TransactionTypeWithdrawal,
		Amount:         input.Amount,
		Currency:       wallet.Currency,
		Description:    input.Description,
		Reference:      input.Reference,
	})
	if err != nil {
		return nil, err
	}

	if err := s.reserveReference(record.Reference); err != nil {
		return nil, err
	}

	completed, err := s.db.Wallet().Withdraw(ctx, record)
	if err != nil {
		s.releaseReference(record.Reference)
		return nil, err
	}

	return completed, nil
}

// CreateWallet provisions a wallet for an existing user.
func (s *Service) CreateWallet(userID, currency string) (*models.Wallet, error) {
	_, found, err := s.db.User().GetOne(userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("user not found")
	}

	wallet, err := models.NewWallet(userID, currency, "")
	if err != nil {
		return nil, err
	}

	if err := s.db.Wallet().Insert(wallet); err != nil {
		return nil, err
	}

	return wallet, nil
}

func (s *Service) GetWallet(userID string) (*models.Wallet, error) {
	wallet, found, err := s.db.Wallet().GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("wallet not found")
	}

	return wallet, nil
}

// SetPin validates the confirmation, hashes the PIN and persists the
// new hash.
func (s *Service) SetPin(walletID, newPin, confirmPin string) (*models.Wallet, error) {
	if newPin != confirmPin {
		return nil, apperror.Validation("PIN and confirmation do not match")
	}

	wallet, found, err := s.db.Wallet().GetOne(walletID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NotFound("wallet not found")
	}

	if err := wallet.SetPin(newPin); err != nil {
		return nil, err
	}

	if err := s.db.Wallet().SetPin(wallet.ID, wallet.PinHash.String); err != nil {
		return nil, err
	}

	return wallet, nil
}

func (s *Service) History(walletID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.db.Transaction().History(walletID, limit, offset)
}

func (s *Service) reserveReference(reference string) error {
	if s.cache == nil {
		return nil
	}

	reserved, err := s.cache.ReserveReference(reference, referenceReservationTTL)
	if err != nil {
		// The cache is an optimisation; fall through to the database
		// constraint when it is unavailable.
		s.logger.Warn("reference reservation unavailable", "error", err)
		return nil
	}
	if !reserved {
		return apperror.Conflict("a transaction with this reference already exists")
	}

	return nil
}

func (s *Service) recordPinFailure(walletID string) {
	if s.pinFailures == nil {
		return
	}

	if _, err := s.pinFailures.CountPinFailure(walletID, pinFailureWindow); err != nil {
		s.logger.Warn("failed to record PIN failure", "wallet_id", walletID, "error", err)
	}
}

func (s *Service) releaseReference(reference string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.ReleaseReference(reference); err != nil {
		s.logger.Warn("failed to release reference reservation", "reference", reference, "error", err)
	}
}

func (s *Service) publishTransferEvent(topic string, record *models.Transaction, input TransferInput) {
	if s.events == nil {
		return
	}

	event := TransferEvent{
		TransactionID:    record.ID,
		Reference:        record.Reference,
		SenderWalletID:   record.SenderWalletID.String,
		ReceiverWalletID: record.ReceiverWalletID.String,
		SenderUserID:     input.SenderUserID,
		ReceiverUserID:   input.ReceiverUserID,
		Amount:           record.Amount.String(),
		Status:           record.Status,
	}

	message, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode transfer event", "error", err)
		return
	}

	go func() {
		if err := s.events.ProduceMessage(topic, string(message)); err != nil {
			s.logger.Error("failed to publish transfer event", "topic", topic, "error", err)
		}
	}()
}
