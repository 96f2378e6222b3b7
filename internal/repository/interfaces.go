// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/fitzone/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
// 登録済みメールアドレス、または同一日時の予約の重複で返る。
var ErrDuplicate = errors.New("repository: duplicate key")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は小文字化済みのメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error
}

// TrainerRepository はトレーナーデータの永続化インターフェース。
type TrainerRepository interface {
	// List は全トレーナーを名前順で返す。
	List(ctx context.Context) ([]*model.Trainer, error)
	// FindByID は指定IDのトレーナーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Trainer, error)
	// Upsert はIDをキーにトレーナーを作成または更新する。
	Upsert(ctx context.Context, trainer *model.Trainer) error
}

// ClassRepository はクラスデータの永続化インターフェース。
type ClassRepository interface {
	// List は全クラスを曜日・時刻順で返す。
	List(ctx context.Context) ([]*model.Class, error)
	// ListByDay は指定曜日のクラスを返す。dayは正規化済みの曜日名。
	ListByDay(ctx context.Context, day string) ([]*model.Class, error)
	// FindByID は指定IDのクラスを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Class, error)
	// Upsert はIDをキーにクラスを作成または更新する。予約済み枠数は更新しない。
	Upsert(ctx context.Context, class *model.Class) error
	// AdjustBookedSpots は予約済み枠数をdeltaだけ増減する。
	// 結果が0未満または定員超過になる場合は更新せずfalseを返す。
	AdjustBookedSpots(ctx context.Context, id string, delta int) (bool, error)
}

// PlanRepository は会員プランの永続化インターフェース。
type PlanRepository interface {
	// List は全プランを価格順で返す。
	List(ctx context.Context) ([]*model.MembershipPlan, error)
	// FindByID は指定IDのプランを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.MembershipPlan, error)
	// Upsert はIDをキーにプランを作成または更新する。
	Upsert(ctx context.Context, plan *model.MembershipPlan) error
}

// SubscriptionRepository は会員契約の永続化インターフェース。
type SubscriptionRepository interface {
	// Create は会員契約を作成する。
	Create(ctx context.Context, sub *model.Subscription) error

	// FindActiveByUserID はユーザーの有効な会員契約を返す。
	// 複数ある場合は開始日が最新のものを返す。見つからない場合はnilを返す。
	FindActiveByUserID(ctx context.Context, userID string) (*model.Subscription, error)

	// CancelActiveByUserID はユーザーの有効な会員契約をすべてcancelledにし、件数を返す。
	CancelActiveByUserID(ctx context.Context, userID string, now time.Time) (int64, error)

	// ExpireEnded は終了日がnow以前の有効な会員契約をexpiredにし、件数を返す。
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}

// BookingRepository は予約データの永続化インターフェース。
type BookingRepository interface {
	// Create は予約を作成する。同一ユーザー・同一日時にキャンセル以外の予約が
	// 既に存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, booking *model.Booking) error

	// FindByID は指定IDの予約を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Booking, error)

	// ExistsActiveSlot は同一ユーザー・同一日時にキャンセル以外の予約があるかを返す。
	ExistsActiveSlot(ctx context.Context, userID, date, timeSlot string) (bool, error)

	// List は条件に一致する予約を日付降順・作成日時降順で返す。
	// 2番目の戻り値はページングを無視した総件数。
	List(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int, error)

	// Cancel は予約をcancelledにしてキャンセル日時を記録する。
	// 既にキャンセル済みの場合はfalseを返す。
	Cancel(ctx context.Context, id string, at time.Time) (bool, error)

	// CountByStatus はユーザーの予約件数を状態別に返す。
	CountByStatus(ctx context.Context, userID string) (map[model.BookingStatus]int, error)

	// CompleteBefore は日付がbeforeより前のconfirmedの予約をcompletedにし、件数を返す。
	// beforeは "YYYY-MM-DD" 形式。
	CompleteBefore(ctx context.Context, before string, now time.Time) (int64, error)
}
