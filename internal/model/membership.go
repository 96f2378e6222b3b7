package model

import "time"

// BillingPeriod は会員プランの課金周期を表す。
type BillingPeriod string

const (
	PeriodDay     BillingPeriod = "day"
	PeriodWeek    BillingPeriod = "week"
	PeriodMonth   BillingPeriod = "month"
	PeriodQuarter BillingPeriod = "quarter"
	PeriodYear    BillingPeriod = "year"
)

// Valid は定義済みの課金周期かどうかを返す。
func (p BillingPeriod) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

// Advance はstartから課金周期1単位分進めた時刻を返す。
// 未知の周期はmonthとして扱う。
func (p BillingPeriod) Advance(start time.Time) time.Time {
	switch p {
	case PeriodDay:
		return start.AddDate(0, 0, 1)
	case PeriodWeek:
		return start.AddDate(0, 0, 7)
	case PeriodQuarter:
		return start.AddDate(0, 3, 0)
	case PeriodYear:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// MembershipPlan は会員プランを表す。
type MembershipPlan struct {
	ID        string        `bson:"_id"`
	Name      string        `bson:"name"`
	Price     float64       `bson:"price"`
	Period    BillingPeriod `bson:"period"`
	Features  []string      `bson:"features"`
	Popular   bool          `bson:"popular"`
	IconClass string        `bson:"icon_class,omitempty"`
	CreatedAt time.Time     `bson:"created_at"`
}

// SubscriptionStatus は会員契約の状態を表す。
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	// SubscriptionPendingSync はクライアント側で一時保存された未送信の契約を表す。
	SubscriptionPendingSync SubscriptionStatus = "pending-sync"
)

// Subscription はユーザーの会員契約を表す。
// EndDateは常にStartDateからプランの課金周期1単位分進めた値になる。
type Subscription struct {
	ID            string             `bson:"_id"`
	UserID        string             `bson:"user_id"`
	PlanID        string             `bson:"plan_id"`
	StartDate     time.Time          `bson:"start_date"`
	EndDate       time.Time          `bson:"end_date"`
	Status        SubscriptionStatus `bson:"status"`
	PaymentMethod string             `bson:"payment_method"`
	AutoRenew     bool               `bson:"auto_renew"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}
