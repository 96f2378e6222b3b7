package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/fitzone/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した会員契約リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, start_date, end_date, status, payment_method, auto_renew, created_at, updated_at`

// Create は会員契約を作成する。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, s *model.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.UserID, s.PlanID, s.StartDate, s.EndDate, s.Status, s.PaymentMethod, s.AutoRenew, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// FindActiveByUserID はユーザーの有効な会員契約を返す。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	s := &model.Subscription{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = $1 AND status = 'active'
		 ORDER BY start_date DESC
		 LIMIT 1`,
		userID,
	).Scan(&s.ID, &s.UserID, &s.PlanID, &s.StartDate, &s.EndDate, &s.Status, &s.PaymentMethod, &s.AutoRenew, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	return s, nil
}

// CancelActiveByUserID はユーザーの有効な会員契約をすべてcancelledにする。
func (r *PostgresSubscriptionRepo) CancelActiveByUserID(ctx context.Context, userID string, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = 'cancelled', updated_at = $2
		 WHERE user_id = $1 AND status = 'active'`,
		userID, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel active subscriptions: %w", err)
	}
	return result.RowsAffected()
}

// ExpireEnded は終了日がnow以前の有効な会員契約をexpiredにする。
func (r *PostgresSubscriptionRepo) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = 'expired', updated_at = $1
		 WHERE status = 'active' AND end_date <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return result.RowsAffected()
}
