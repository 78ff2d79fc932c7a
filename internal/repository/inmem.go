package repository

import (
	"context"
	"sync"
	"time"

	"github.com/kobofi/kobopay/internal/apperror"
	"github.com/kobofi/kobopay/internal/models"
)

// InMemory is the map-backed Database implementation. It exists for
// tests and local development; the arena is owned by whoever called
// NewInMemory, never a package-level singleton. Wallet mutations go
// through per-wallet mutexes acquired in canonical id order, mirroring
// the row-lock discipline of the Postgres backend.
type InMemory struct {
	mu           sync.Mutex
	users        map[string]*models.User
	wallets      map[string]*models.Wallet
	walletLocks  map[string]*sync.Mutex
	transactions map[string]*models.Transaction
	references   map[string]string
	activities   []*models.ActivityLog
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:        make(map[string]*models.User),
		wallets:      make(map[string]*models.Wallet),
		walletLocks:  make(map[string]*sync.Mutex),
		transactions: make(map[string]*models.Transaction),
		references:   make(map[string]string),
	}
}

func (s *InMemory) Close() error { return nil }

func (s *InMemory) User() UserRepository               { return &inMemUsers{s} }
func (s *InMemory) Wallet() WalletRepository           { return &inMemWallets{s} }
func (s *InMemory) Transaction() TransactionRepository { return &inMemTransactions{s} }
func (s *InMemory) Activity() ActivityRepository       { return &inMemActivities{s} }

func (s *InMemory) walletLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.walletLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.walletLocks[id] = lock
	}
	return lock
}

func cloneWallet(w *models.Wallet) *models.Wallet {
	clone := *w
	return &clone
}

func cloneTransaction(t *models.Transaction) *models.Transaction {
	clone := *t
	return &clone
}

type inMemUsers struct{ s *InMemory }

func (r *inMemUsers) CreateWithWallet(_ context.Context, user *models.User, wallet *models.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == user.Email || existing.PhoneNumber == user.PhoneNumber {
			return apperror.Conflict("an account already exists for this email or phone number")
		}
	}
	for _, existing := range r.s.wallets {
		if existing.UserID == user.ID && existing.Currency == wallet.Currency {
			return apperror.Conflict("user already has a wallet for this currency")
		}
	}

	user.CreatedAt = time.Now()
	wallet.UserID = user.ID

	stored := *user
	r.s.users[user.ID] = &stored
	r.s.wallets[wallet.ID] = cloneWallet(wallet)

	return nil
}

func (r *inMemUsers) GetOne(id string) (*models.User, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, false, nil
	}
	clone := *user
	return &clone, true, nil
}

func (r *inMemUsers) GetByEmail(email string) (*models.User, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if user.Email == email {
			clone := *user
			return &clone, true, nil
		}
	}
	return nil, false, nil
}

func (r *inMemUsers) CheckIfPhoneNumberExist(phoneNumber string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if user.PhoneNumber == phoneNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemUsers) Lock(id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return apperror.NotFound("user not found")
	}
	user.Status = models.UserStatusLocked
	return nil
}

type inMemWallets struct{ s *InMemory }

func (r *inMemWallets) Insert(wallet *models.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.wallets {
		if existing.UserID == wallet.UserID && existing.Currency == wallet.Currency {
			return apperror.Conflict("user already has a wallet for this currency")
		}
	}

	r.s.wallets[wallet.ID] = cloneWallet(wallet)
	return nil
}

func (r *inMemWallets) GetOne(id string) (*models.Wallet, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wallet, ok := r.s.wallets[id]
	if !ok {
		return nil, false, nil
	}
	return cloneWallet(wallet), true, nil
}

func (r *inMemWallets) GetByUserID(userID string) (*models.Wallet, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, wallet := range r.s.wallets {
		if wallet.UserID == userID && wallet.Currency == models.SupportedCurrency {
			return cloneWallet(wallet), true, nil
		}
	}
	return nil, false, nil
}

func (r *inMemWallets) SetPin(id, pinHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wallet, ok := r.s.wallets[id]
	if !ok {
		return apperror.NotFound("wallet not found")
	}

	wallet.PinHash.String = pinHash
	wallet.PinHash.Valid = true
	return nil
}

func (r *inMemWallets) UpdateStatus(id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wallet, ok := r.s.wallets[id]
	if !ok {
		return apperror.NotFound("wallet not found")
	}

	wallet.Status = status
	return nil
}

func (r *inMemWallets) Transfer(ctx context.Context, record *models.Transaction) (*models.Transaction, error) {
	senderID := record.SenderWalletID.String
	receiverID := record.ReceiverWalletID.String

	firstID, secondID := senderID, receiverID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	firstLock := r.s.walletLock(firstID)
	secondLock := r.s.walletLock(secondID)

	firstLock.Lock()
	defer firstLock.Unlock()
	secondLock.Lock()
	defer secondLock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sender, ok := r.s.wallets[senderID]
	if !ok {
		return nil, apperror.NotFound("wallet not found")
	}
	receiver, ok := r.s.wallets[receiverID]
	if !ok {
		return nil, apperror.NotFound("wallet not found")
	}

	if _, exists := r.s.references[record.Reference]; exists {
		return nil, apperror.Conflict("a transaction with this reference already exists")
	}

	if !sender.IsActive() {
		return nil, apperror.Payment("sender wallet is not active")
	}
	if !receiver.IsActive() {
		return nil, apperror.Payment("receiver wallet is not active")
	}

	if err := sender.Debit(record.Amount); err != nil {
		return nil, err
	}
	if err := receiver.Credit(record.Amount); err != nil {
		// Undo the debit so the arena never holds a half-applied move.
		sender.Balance = sender.Balance.Add(record.Amount)
		return nil, err
	}

	return r.s.storeCompleted(record)
}

func (r *inMemWallets) Deposit(ctx context.Context, record *models.Transaction) (*models.Transaction, error) {
	receiverID := record.ReceiverWalletID.String

	lock := r.s.walletLock(receiverID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	receiver, ok := r.s.wallets[receiverID]
	if !ok {
		return nil, apperror.NotFound("wallet not found")
	}

	if _, exists := r.s.references[record.Reference]; exists {
		return nil, apperror.Conflict("a transaction with this reference already exists")
	}

	if err := receiver.Credit(record.Amount); err != nil {
		return nil, err
	}

	return r.s.storeCompleted(record)
}

func (r *inMemWallets) Withdraw(ctx context.Context, record *models.Transaction) (*models.Transaction, error) {
	senderID := record.SenderWalletID.String

	lock := r.s.walletLock(senderID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sender, ok := r.s.wallets[senderID]
	if !ok {
		return nil, apperror.NotFound("wallet not found")
	}

	if _, exists := r.s.references[record.Reference]; exists {
		return nil, apperror.Conflict("a transaction with this reference already exists")
	}

	if err := sender.Debit(record.Amount); err != nil {
		return nil, err
	}

	return r.s.storeCompleted(record)
}

// storeCompleted persists the record as completed. Callers must hold
// the arena mutex.
func (s *InMemory) storeCompleted(record *models.Transaction) (*models.Transaction, error) {
	completed := cloneTransaction(record)
	if err := completed.Complete(); err != nil {
		return nil, err
	}

	s.transactions[completed.ID] = completed
	s.references[completed.Reference] = completed.ID

	return cloneTransaction(completed), nil
}

type inMemTransactions struct{ s *InMemory }

func (r *inMemTransactions) Insert(record *models.Transaction) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.references[record.Reference]; exists {
		return nil, apperror.Conflict("a transaction with this reference already exists")
	}

	stored := cloneTransaction(record)
	r.s.transactions[stored.ID] = stored
	r.s.references[stored.Reference] = stored.ID

	return cloneTransaction(stored), nil
}

func (r *inMemTransactions) GetOne(id string) (*models.Transaction, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record, ok := r.s.transactions[id]
	if !ok {
		return nil, false, nil
	}
	return cloneTransaction(record), true, nil
}

func (r *inMemTransactions) FindByReference(reference string) (*models.Transaction, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.references[reference]
	if !ok {
		return nil, false, nil
	}
	return cloneTransaction(r.s.transactions[id]), true, nil
}

func (r *inMemTransactions) History(walletID string, limit, offset int) ([]models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := []models.Transaction{}
	for _, record := range r.s.transactions {
		if record.SenderWalletID.String == walletID || record.ReceiverWalletID.String == walletID {
			matched = append(matched, *record)
		}
	}

	// Newest first.
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if matched[j].CreatedAt.After(matched[i].CreatedAt) {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}

	if offset >= len(matched) {
		return []models.Transaction{}, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}

	return matched, nil
}

func (r *inMemTransactions) UpdateStatus(id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record, ok := r.s.transactions[id]
	if !ok {
		return apperror.NotFound("transaction not found")
	}

	record.Status = status
	return nil
}

type inMemActivities struct{ s *InMemory }

func (r *inMemActivities) Insert(log *models.ActivityLog) (*models.ActivityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *log
	stored.CreatedAt = time.Now()
	r.s.activities = append(r.s.activities, &stored)

	clone := stored
	return &clone, nil
}

func (r *inMemActivities) CountConsecutiveFailedLoginAttempts(userID, actionDesc string) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for i := len(r.s.activities) - 1; i >= 0; i-- {
		log := r.s.activities[i]
		if log.UserID != userID {
			continue
		}
		if log.Description != actionDesc {
			break
		}
		count++
	}

	return count
}
