// Package wire はクライアントとAPIサーバー間でやり取りするJSON表現を定義する。
// ローカルストアに一時保存するレコードも同じ表現を使う。
package wire

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hitoshi/fitzone/internal/model"
)

// LocalIDPrefix はクライアント側で作成したレコードのID接頭辞。
// この接頭辞を持つIDは同期対象、持たないIDはサーバー発行として扱う。
const LocalIDPrefix = "local-"

// IsLocalID はIDがクライアント側で発行されたものかどうかを返す。
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Envelope はAPIレスポンスの共通エンベロープ。
// 認証エンドポイントも token と user を data の中に返す。
type Envelope struct {
	Success    *bool           `json:"success,omitempty"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// Failed はエンベロープが明示的に success:false を示しているかを返す。
func (e *Envelope) Failed() bool {
	return e != nil && e.Success != nil && !*e.Success
}

// Pagination はページング情報。
type Pagination struct {
	Current      int `json:"current"`
	Total        int `json:"total"`
	Count        int `json:"count"`
	TotalRecords int `json:"totalRecords"`
}

// User はユーザー情報。
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

// AuthPayload はログイン・登録レスポンスを正規化した結果。
type AuthPayload struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Booking は予約。ローカル一時保存時はIDが local- で始まり IsLocal が true になる。
type Booking struct {
	ID            string                 `json:"id,omitempty"`
	UserID        string                 `json:"user,omitempty"`
	Kind          model.BookingKind      `json:"bookingType"`
	Class         *model.ClassSnapshot   `json:"class"`
	Trainer       *model.TrainerSnapshot `json:"trainer"`
	Date          string                 `json:"date"`
	Time          string                 `json:"time"`
	Day           string                 `json:"day,omitempty"`
	Status        model.BookingStatus    `json:"status,omitempty"`
	Participants  int                    `json:"participants,omitempty"`
	SessionType   model.SessionType      `json:"sessionType,omitempty"`
	UserDetails   model.UserDetails      `json:"userDetails"`
	Amount        float64                `json:"amount"`
	PaymentStatus model.PaymentStatus    `json:"paymentStatus,omitempty"`
	CreatedAt     *time.Time             `json:"createdAt,omitempty"`
	CancelledAt   *time.Time             `json:"cancelledAt,omitempty"`
	IsLocal       bool                   `json:"isLocal,omitempty"`
}

// Valid は同期可能な最低限の項目が揃っているかを返す。
// 種別・日付・時間が必須で、クラス予約はクラス情報、トレーナー予約はトレーナー情報が必須。
func (b *Booking) Valid() bool {
	if b.Kind == "" || b.Date == "" || b.Time == "" {
		return false
	}
	switch b.Kind {
	case model.BookingKindClass:
		return b.Class != nil
	case model.BookingKindTrainer:
		return b.Trainer != nil
	}
	return true
}

// Plan は会員プラン。
type Plan struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Price     float64             `json:"price"`
	Period    model.BillingPeriod `json:"period"`
	Features  []string            `json:"features"`
	Popular   bool                `json:"popular"`
	IconClass string              `json:"iconClass,omitempty"`
}

// Subscription は会員契約。
type Subscription struct {
	ID            string                   `json:"id"`
	UserID        string                   `json:"user,omitempty"`
	PlanID        string                   `json:"plan"`
	Plan          *Plan                    `json:"planDetails,omitempty"`
	StartDate     time.Time                `json:"startDate"`
	EndDate       time.Time                `json:"endDate"`
	Status        model.SubscriptionStatus `json:"status"`
	PaymentMethod string                   `json:"paymentMethod,omitempty"`
	AutoRenew     bool                     `json:"autoRenew"`
	IsLocal       bool                     `json:"isLocal,omitempty"`
}

// SubscriptionPayload は会員契約を包むレスポンスデータ。契約なしはnull。
type SubscriptionPayload struct {
	Subscription *Subscription `json:"subscription"`
}

// SubscribeRequest は会員契約リクエスト。
type SubscribeRequest struct {
	PlanID        string     `json:"planId"`
	UserID        string     `json:"userId,omitempty"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	AutoRenew     bool       `json:"autoRenew,omitempty"`
}

// Trainer はトレーナー。
type Trainer struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Specialization string             `json:"specialization"`
	Experience     int                `json:"experience"`
	Image          string             `json:"image,omitempty"`
	Bio            string             `json:"bio,omitempty"`
	Certifications []string           `json:"certifications"`
	Stats          model.TrainerStats `json:"stats"`
	HourlyRate     float64            `json:"hourlyRate,omitempty"`
}

// Class はクラス。
type Class struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Trainer     string `json:"trainer"`
	TrainerID   string `json:"trainerId,omitempty"`
	Type        string `json:"type"`
	Difficulty  string `json:"difficulty"`
	Duration    int    `json:"duration"`
	Day         string `json:"day"`
	Time        string `json:"time"`
	MaxSpots    int    `json:"maxSpots"`
	BookedSpots int    `json:"bookedSpots"`
	SpotsLeft   int    `json:"spotsLeft"`
}

// Credentials はログインリクエスト。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration は会員登録リクエスト。
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// Health はヘルスチェック結果。
type Health struct {
	Status string `json:"status"`
}
