// Every meaningful account action, synchronous or not, gets a row in
// activity_logs. The entity/entity_id pair keeps the table usable for
// users, wallets and transactions alike.
package repository

import (
	"context"

	"github.com/kobofi/kobopay/internal/models"

	"github.com/jmoiron/sqlx"
)

const (
	ActivityLogTransactionEntity = "transaction"
	ActivityLogWalletEntity      = "wallet"
	ActivityLogUserEntity        = "user"
)

type ActivityRepository interface {
	Insert(log *models.ActivityLog) (*models.ActivityLog, error)
	CountConsecutiveFailedLoginAttempts(userID, actionDesc string) int
}

type ActivityRepositoryImpl struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &ActivityRepositoryImpl{db: db}
}

func (repo *ActivityRepositoryImpl) Insert(log *models.ActivityLog) (*models.ActivityLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO activity_logs (user_id, entity, entity_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := repo.db.QueryRowContext(ctx, query,
		log.UserID,
		log.Entity,
		log.EntityId,
		log.Description,
	).Scan(&log.ID, &log.CreatedAt)

	if err != nil {
		return nil, err
	}

	return log, nil
}

func (repo *ActivityRepositoryImpl) CountConsecutiveFailedLoginAttempts(userID, actionDesc string) int {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var count int

	// Count failures since the last non-failure activity on the user.
	query := `
		SELECT COUNT(*) FROM activity_logs
		WHERE user_id=$1 AND description=$2
		AND created_at > COALESCE(
			(SELECT MAX(created_at) FROM activity_logs WHERE user_id=$1 AND description != $2),
			'-infinity'
		)`

	err := repo.db.GetContext(ctx, &count, query, userID, actionDesc)
	if err != nil {
		return 0
	}

	return count
}
