package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/fitzone/internal/model"
)

// PostgresBookingRepo はPostgreSQLを使用した予約リポジトリ。
// クラス・トレーナーのスナップショットと予約者情報はJSONBで保存する。
type PostgresBookingRepo struct {
	db *sql.DB
}

// NewPostgresBookingRepo はPostgresBookingRepoを生成する。
func NewPostgresBookingRepo(db *sql.DB) *PostgresBookingRepo {
	return &PostgresBookingRepo{db: db}
}

const bookingColumns = `id, user_id, booking_type, class, trainer, to_char(date, 'YYYY-MM-DD'), time, day, status,
	participants, session_type, user_details, amount, payment_status, booked_at, cancelled_at, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	b := &model.Booking{}
	var class, trainer, details []byte
	var cancelledAt sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.Kind, &class, &trainer, &b.Date, &b.Time, &b.Day, &b.Status,
		&b.Participants, &b.SessionType, &details, &b.Amount, &b.PaymentStatus, &b.BookedAt, &cancelledAt,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(class) > 0 {
		b.Class = &model.ClassSnapshot{}
		if err := json.Unmarshal(class, b.Class); err != nil {
			return nil, fmt.Errorf("failed to decode class snapshot: %w", err)
		}
	}
	if len(trainer) > 0 {
		b.Trainer = &model.TrainerSnapshot{}
		if err := json.Unmarshal(trainer, b.Trainer); err != nil {
			return nil, fmt.Errorf("failed to decode trainer snapshot: %w", err)
		}
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &b.UserDetails); err != nil {
			return nil, fmt.Errorf("failed to decode user details: %w", err)
		}
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return b, nil
}

// nullableJSON はnilポインタをSQL NULLとして、それ以外をJSONとして返す。
func nullableJSON[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Create は予約を作成する。同一日時の予約が既に存在する場合はErrDuplicateを返す。
func (r *PostgresBookingRepo) Create(ctx context.Context, b *model.Booking) error {
	class, err := nullableJSON(b.Class)
	if err != nil {
		return fmt.Errorf("failed to encode class snapshot: %w", err)
	}
	trainer, err := nullableJSON(b.Trainer)
	if err != nil {
		return fmt.Errorf("failed to encode trainer snapshot: %w", err)
	}
	details, err := json.Marshal(b.UserDetails)
	if err != nil {
		return fmt.Errorf("failed to encode user details: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO bookings (id, user_id, booking_type, class, trainer, date, time, day, status,
			participants, session_type, user_details, amount, payment_status, booked_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		b.ID, b.UserID, b.Kind, class, trainer, b.Date, b.Time, b.Day, b.Status,
		b.Participants, b.SessionType, string(details), b.Amount, b.PaymentStatus, b.BookedAt, b.CreatedAt, b.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// FindByID は指定IDの予約を取得する。見つからない場合はnilを返す。
func (r *PostgresBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return b, nil
}

// ExistsActiveSlot は同一ユーザー・同一日時にキャンセル以外の予約があるかを返す。
func (r *PostgresBookingRepo) ExistsActiveSlot(ctx context.Context, userID, date, timeSlot string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE user_id = $1 AND date = $2::date AND time = $3 AND status <> 'cancelled'
		 )`,
		userID, date, timeSlot,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check booking slot: %w", err)
	}
	return exists, nil
}

// bookingWhere はフィルタからWHERE句と引数を組み立てる。
func bookingWhere(f model.BookingFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{f.UserID}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		conds = append(conds, fmt.Sprintf("booking_type = $%d", len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List は条件に一致する予約を日付降順・作成日時降順で返す。
func (r *PostgresBookingRepo) List(ctx context.Context, f model.BookingFilter) ([]*model.Booking, int, error) {
	where, args := bookingWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where + ` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, f.Limit, (page-1)*f.Limit)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, total, nil
}

// Cancel は予約をcancelledにしてキャンセル日時を記録する。既にキャンセル済みの場合はfalseを返す。
func (r *PostgresBookingRepo) Cancel(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled', cancelled_at = $2, updated_at = $2
		 WHERE id = $1 AND status <> 'cancelled'`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// CountByStatus はユーザーの予約件数を状態別に返す。
func (r *PostgresBookingRepo) CountByStatus(ctx context.Context, userID string) (map[model.BookingStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, count(*) FROM bookings WHERE user_id = $1 GROUP BY status`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.BookingStatus]int)
	for rows.Next() {
		var status model.BookingStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan booking count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CompleteBefore は日付がbeforeより前のconfirmedの予約をcompletedにする。
func (r *PostgresBookingRepo) CompleteBefore(ctx context.Context, before string, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'completed', updated_at = $2
		 WHERE status = 'confirmed' AND date < $1::date`,
		before, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past bookings: %w", err)
	}
	return result.RowsAffected()
}
