// Package staging はサーバー未送信の予約・会員契約をローカルストアに一時保存する。
//
// 予約は userBookings スロットにJSON配列として、会員契約は userSubscription スロットに
// 単一オブジェクトとして保存する。更新はすべて最新のストア内容に対する
// read-modify-write で行う。
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/fitzone/internal/client/localstore"
	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/model"
)

// NewLocalBookingID はローカル予約IDを生成する。
// 同一ミリ秒内の衝突を避けるためUUIDの先頭8文字を付与する。
func NewLocalBookingID(now time.Time) string {
	return fmt.Sprintf("%s%d-%s", wire.LocalIDPrefix, now.UnixMilli(), uuid.NewString()[:8])
}

// NewLocalSubscriptionID はローカル会員契約IDを生成する。
func NewLocalSubscriptionID(now time.Time) string {
	return fmt.Sprintf("%ssubscription-%d", wire.LocalIDPrefix, now.UnixMilli())
}

// LoadBookings は一時保存済みの予約を保存順に返す。
// 配列要素のうちデコードできないものは読み飛ばし、その件数をskippedとして返す。
func LoadBookings(ctx context.Context, store localstore.Store) (bookings []wire.Booking, skipped int, err error) {
	var raw []json.RawMessage
	if _, err := localstore.GetJSON(ctx, store, localstore.KeyBookings, &raw); err != nil {
		return nil, 0, err
	}

	bookings = make([]wire.Booking, 0, len(raw))
	for _, r := range raw {
		var b wire.Booking
		if err := json.Unmarshal(r, &b); err != nil {
			skipped++
			continue
		}
		bookings = append(bookings, b)
	}
	return bookings, skipped, nil
}

// SaveBookings は予約一覧で一時保存スロットを置き換える。
func SaveBookings(ctx context.Context, store localstore.Store, bookings []wire.Booking) error {
	if bookings == nil {
		bookings = []wire.Booking{}
	}
	return localstore.SetJSON(ctx, store, localstore.KeyBookings, bookings)
}

// StageBooking は予約にローカルIDを付与し、pending-sync として末尾に追加する。
// 曜日が未設定の場合は日付から補完する。
func StageBooking(ctx context.Context, store localstore.Store, in wire.Booking, now time.Time) (wire.Booking, error) {
	b := in
	b.ID = NewLocalBookingID(now)
	b.Status = model.BookingPendingSync
	created := now.UTC()
	b.CreatedAt = &created
	b.IsLocal = true
	if b.Day == "" {
		b.Day = model.WeekdayOf(b.Date)
	}

	bookings, _, err := LoadBookings(ctx, store)
	if err != nil {
		return wire.Booking{}, err
	}
	bookings = append(bookings, b)
	if err := SaveBookings(ctx, store, bookings); err != nil {
		return wire.Booking{}, err
	}
	return b, nil
}

// RemoveBooking は指定IDの予約を一時保存スロットから削除する。
// 削除対象があった場合にtrueを返す。
func RemoveBooking(ctx context.Context, store localstore.Store, id string) (bool, error) {
	bookings, _, err := LoadBookings(ctx, store)
	if err != nil {
		return false, err
	}

	kept := bookings[:0]
	removed := false
	for _, b := range bookings {
		if b.ID == id {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	if !removed {
		return false, nil
	}
	return true, SaveBookings(ctx, store, kept)
}

// SetBookingStatus は指定IDの予約の状態を更新する。
// 対象が見つからない場合はokにfalseを返す。
func SetBookingStatus(ctx context.Context, store localstore.Store, id string, status model.BookingStatus, at time.Time) (wire.Booking, bool, error) {
	bookings, _, err := LoadBookings(ctx, store)
	if err != nil {
		return wire.Booking{}, false, err
	}

	for i := range bookings {
		if bookings[i].ID != id {
			continue
		}
		bookings[i].Status = status
		if status == model.BookingCancelled {
			cancelled := at.UTC()
			bookings[i].CancelledAt = &cancelled
		}
		if err := SaveBookings(ctx, store, bookings); err != nil {
			return wire.Booking{}, false, err
		}
		return bookings[i], true, nil
	}
	return wire.Booking{}, false, nil
}

// LoadSubscription は保存済みの会員契約を返す。未保存の場合はnil。
func LoadSubscription(ctx context.Context, store localstore.Store) (*wire.Subscription, error) {
	var sub wire.Subscription
	found, err := localstore.GetJSON(ctx, store, localstore.KeySubscription, &sub)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &sub, nil
}

// SaveSubscription は会員契約を保存する。
func SaveSubscription(ctx context.Context, store localstore.Store, sub wire.Subscription) error {
	return localstore.SetJSON(ctx, store, localstore.KeySubscription, sub)
}

// ClearSubscription は保存済みの会員契約を削除する。
func ClearSubscription(ctx context.Context, store localstore.Store) error {
	return store.Remove(ctx, localstore.KeySubscription)
}

// StageSubscription はプランの課金周期から終了日を算出し、pending-sync の会員契約として保存する。
// 開始日未指定の場合はnowを使用する。
func StageSubscription(ctx context.Context, store localstore.Store, req wire.SubscribeRequest, period model.BillingPeriod, now time.Time) (wire.Subscription, error) {
	start := now.UTC()
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	sub := wire.Subscription{
		ID:            NewLocalSubscriptionID(now),
		UserID:        req.UserID,
		PlanID:        req.PlanID,
		StartDate:     start,
		EndDate:       period.Advance(start),
		Status:        model.SubscriptionPendingSync,
		PaymentMethod: req.PaymentMethod,
		AutoRenew:     req.AutoRenew,
		IsLocal:       true,
	}
	if err := SaveSubscription(ctx, store, sub); err != nil {
		return wire.Subscription{}, err
	}
	return sub, nil
}
