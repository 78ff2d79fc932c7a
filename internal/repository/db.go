package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kobofi/kobopay/assets"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

const defaultTimeout = 3 * time.Second

// Database is the persistence port of the ledger. It is implemented
// by the Postgres backend below and by the in-memory backend in
// inmem.go; the composition root picks one.
type Database interface {
	User() UserRepository
	Wallet() WalletRepository
	Transaction() TransactionRepository
	Activity() ActivityRepository

	Close() error
}

// DatabaseImpl is the Postgres-backed implementation.
type DatabaseImpl struct {
	db              *sqlx.DB
	userRepo        UserRepository
	walletRepo      WalletRepository
	transactionRepo TransactionRepository
	activityRepo    ActivityRepository

	mu sync.Mutex
}

// New initializes a database connection and runs migrations if enabled
func New(dsn string, automigrate bool) (Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", "postgres://"+dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	if automigrate {
		iofsDriver, err := iofs.New(assets.EmbeddedFiles, "migrations")
		if err != nil {
			return nil, err
		}

		migrator, err := migrate.NewWithSourceInstance("iofs", iofsDriver, "postgres://"+dsn)
		if err != nil {
			return nil, err
		}

		if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, err
		}
	}

	return &DatabaseImpl{db: db}, nil
}

func (d *DatabaseImpl) Close() error {
	return d.db.Close()
}

func (d *DatabaseImpl) User() UserRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.userRepo == nil {
		d.userRepo = NewUserRepository(d.db)
	}
	return d.userRepo
}

func (d *DatabaseImpl) Wallet() WalletRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.walletRepo == nil {
		d.walletRepo = NewWalletRepository(d.db)
	}
	return d.walletRepo
}

func (d *DatabaseImpl) Transaction() TransactionRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transactionRepo == nil {
		d.transactionRepo = NewTransactionRepository(d.db)
	}
	return d.transactionRepo
}

func (d *DatabaseImpl) Activity() ActivityRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.activityRepo == nil {
		d.activityRepo = NewActivityRepository(d.db)
	}
	return d.activityRepo
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
