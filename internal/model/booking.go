package model

import "time"

// DateLayout は予約日付の文字列形式。
const DateLayout = "2006-01-02"

// BookingKind は予約の種別を表す。
type BookingKind string

const (
	BookingKindClass   BookingKind = "class"
	BookingKindTrainer BookingKind = "trainer"
)

// BookingStatus は予約の状態を表す。
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
	BookingNoShow    BookingStatus = "no-show"
	// BookingPendingSync はクライアント側で一時保存された未送信の予約を表す。
	BookingPendingSync BookingStatus = "pending-sync"
)

// SessionType はトレーナーセッションの種類を表す。
type SessionType string

const (
	SessionPersonal   SessionType = "personal"
	SessionGroup      SessionType = "group"
	SessionClass      SessionType = "class"
	SessionAssessment SessionType = "assessment"
	SessionNutrition  SessionType = "nutrition"
)

// Valid は定義済みのセッション種別かどうかを返す。
func (s SessionType) Valid() bool {
	switch s {
	case SessionPersonal, SessionGroup, SessionClass, SessionAssessment, SessionNutrition:
		return true
	}
	return false
}

// PaymentStatus は予約の支払い状態を表す。
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// ClassSnapshot は予約時点のクラス情報のスナップショット。
type ClassSnapshot struct {
	ID              string `bson:"id,omitempty" json:"id,omitempty"`
	Name            string `bson:"name" json:"name"`
	Type            string `bson:"type,omitempty" json:"type,omitempty"`
	Trainer         string `bson:"trainer,omitempty" json:"trainer,omitempty"`
	Difficulty      string `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	Duration        int    `bson:"duration,omitempty" json:"duration,omitempty"`
	MaxParticipants int    `bson:"max_participants,omitempty" json:"maxParticipants,omitempty"`
}

// TrainerSnapshot は予約時点のトレーナー情報のスナップショット。
type TrainerSnapshot struct {
	ID             string `bson:"id,omitempty" json:"id,omitempty"`
	Name           string `bson:"name" json:"name"`
	Specialization string `bson:"specialization,omitempty" json:"specialization,omitempty"`
}

// UserDetails は予約者の連絡先情報。
type UserDetails struct {
	Name  string `bson:"name,omitempty" json:"name,omitempty"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
	Notes string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Booking はクラスまたはトレーナーセッションの予約を表す。
// 同一ユーザー・同一日時にキャンセル以外の予約は1件まで。
type Booking struct {
	ID            string           `bson:"_id"`
	UserID        string           `bson:"user_id"`
	Kind          BookingKind      `bson:"booking_type"`
	Class         *ClassSnapshot   `bson:"class,omitempty"`
	Trainer       *TrainerSnapshot `bson:"trainer,omitempty"`
	Date          string           `bson:"date"`
	Time          string           `bson:"time"`
	Day           string           `bson:"day,omitempty"`
	Status        BookingStatus    `bson:"status"`
	Participants  int              `bson:"participants"`
	SessionType   SessionType      `bson:"session_type"`
	UserDetails   UserDetails      `bson:"user_details"`
	Amount        float64          `bson:"amount"`
	PaymentStatus PaymentStatus    `bson:"payment_status"`
	BookedAt      time.Time        `bson:"booked_at"`
	CancelledAt   *time.Time       `bson:"cancelled_at,omitempty"`
	CreatedAt     time.Time        `bson:"created_at"`
	UpdatedAt     time.Time        `bson:"updated_at"`
}

// BookingFilter は予約一覧の検索条件。
type BookingFilter struct {
	UserID string
	Status BookingStatus
	Kind   BookingKind
	Limit  int
	Page   int
}

// Pagination はページング結果のメタ情報。
type Pagination struct {
	Current      int
	Total        int
	Count        int
	TotalRecords int
}

// NewPagination は総件数とページ条件からPaginationを組み立てる。
func NewPagination(page, limit, count, totalRecords int) Pagination {
	total := 0
	if limit > 0 {
		total = (totalRecords + limit - 1) / limit
	}
	return Pagination{
		Current:      page,
		Total:        total,
		Count:        count,
		TotalRecords: totalRecords,
	}
}
