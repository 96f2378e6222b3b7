package apiclient

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/fitzone/internal/client/events"
	"github.com/hitoshi/fitzone/internal/client/staging"
	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/model"
)

const (
	bookingsCachePrefix = "user-bookings"
	bookingStatsKey     = "booking-stats"

	msgStagedAuth    = "予約をローカルに保存しました。再度ログインすると同期されます。"
	msgStagedOffline = "予約をローカルに保存しました。オンラインになると同期されます。"
	msgLoginToSee    = "最新の予約を表示するにはログインしてください。"
)

// ListParams は予約一覧の取得条件。ゼロ値の項目は送信しない。
type ListParams struct {
	Status model.BookingStatus
	Kind   model.BookingKind
	Limit  int
	Page   int
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	limit, page := p.Limit, p.Page
	if limit <= 0 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	if p.Kind != "" {
		q.Set("bookingType", string(p.Kind))
	}
	return q
}

// BookingStats は状態別の予約件数。
type BookingStats struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
}

// CreateBooking は予約を作成する。
//
// 有効なトークンがない場合、またはサーバーが認証エラーを返した場合は
// ローカルに一時保存してAuthErrorを立てた結果を返す。ネットワーク断の場合も
// ローカルに一時保存する。それ以外の失敗はエラーとして返す。
// 期限切れのトークンは一時保存の前に削除する。
func (c *Client) CreateBooking(ctx context.Context, b wire.Booking) (Result[wire.Booking], error) {
	if _, ok := c.tokens.Current(ctx); !ok {
		c.logger.Warn("認証されていないため予約をローカルに保存します")
		return c.stageBooking(ctx, b, true)
	}
	if !c.conn.Online() {
		return c.stageBooking(ctx, b, false)
	}

	res, err := c.submitBooking(ctx, b)
	if err != nil {
		switch {
		case IsAuthError(err):
			return c.stageBooking(ctx, b, true)
		case IsNetworkError(err):
			return c.stageBooking(ctx, b, false)
		}
		return Result[wire.Booking]{}, err
	}
	return res, nil
}

// SubmitBooking は予約をサーバーへ送信する。失敗してもローカルには保存しない。
func (c *Client) SubmitBooking(ctx context.Context, b wire.Booking) (wire.Booking, error) {
	res, err := c.submitBooking(ctx, b)
	if err != nil {
		return wire.Booking{}, err
	}
	return res.Data, nil
}

func (c *Client) submitBooking(ctx context.Context, b wire.Booking) (Result[wire.Booking], error) {
	body := b
	body.ID = ""
	body.IsLocal = false
	created := c.now().UTC()
	body.CreatedAt = &created

	res, err := send[wire.Booking](ctx, c, &request{method: http.MethodPost, path: "/bookings", body: body})
	if err != nil {
		return Result[wire.Booking]{}, err
	}

	c.cache.DeletePrefix(bookingsCachePrefix)
	c.cache.Delete(bookingStatsKey)
	c.bus.Publish(events.BookingConfirmed{Booking: res.Data})
	return res, nil
}

func (c *Client) stageBooking(ctx context.Context, b wire.Booking, authErr bool) (Result[wire.Booking], error) {
	staged, err := staging.StageBooking(ctx, c.store, b, c.now())
	if err != nil {
		return Result[wire.Booking]{}, &Error{Kind: KindOther, Message: "予約のローカル保存に失敗しました", Err: err}
	}

	msg := msgStagedOffline
	if authErr {
		msg = msgStagedAuth
	}
	c.logger.Info("予約をローカルに保存しました",
		slog.String("booking_id", staged.ID),
		slog.Bool("auth_error", authErr),
	)
	return Result[wire.Booking]{
		Data:      staged,
		Message:   msg,
		IsOffline: true,
		AuthError: authErr,
	}, nil
}

// BookClass はクラス予約を作成する。
func (c *Client) BookClass(ctx context.Context, b wire.Booking) (Result[wire.Booking], error) {
	b.Kind = model.BookingKindClass
	return c.CreateBooking(ctx, b)
}

// BookTrainer はトレーナーセッション予約を作成する。
func (c *Client) BookTrainer(ctx context.Context, b wire.Booking) (Result[wire.Booking], error) {
	b.Kind = model.BookingKindTrainer
	return c.CreateBooking(ctx, b)
}

// ListBookings はログイン中のユーザーの予約一覧を返す。
// 有効なトークンがない場合、または取得に失敗した場合はローカルに保存された予約を返す。
func (c *Client) ListBookings(ctx context.Context, p ListParams) (Result[[]wire.Booking], error) {
	local := c.localBookings(ctx)

	if !c.IsAuthenticated(ctx) {
		return Result[[]wire.Booking]{Data: local, Message: msgLoginToSee, IsOffline: true}, nil
	}

	q := p.query()
	res, err := fetch(ctx, c, &request{method: http.MethodGet, path: "/bookings", query: q}, bookingsCachePrefix+"-"+q.Encode(), &local)
	if err != nil {
		return Result[[]wire.Booking]{Data: local, IsOffline: true, Error: UserMessage(err)}, nil
	}
	if res.Data == nil {
		res.Data = []wire.Booking{}
	}
	return res, nil
}

// Booking は予約を1件返す。
func (c *Client) Booking(ctx context.Context, id string) (Result[wire.Booking], error) {
	return fetch[wire.Booking](ctx, c, &request{method: http.MethodGet, path: "/bookings/" + url.PathEscape(id)}, "booking-"+id, nil)
}

// CancelBooking は予約をキャンセルする。
// ローカルIDの予約はローカルストア上でキャンセルし、サーバー発行IDの予約はサーバーへ送信する。
func (c *Client) CancelBooking(ctx context.Context, id string) (Result[wire.Booking], error) {
	if wire.IsLocalID(id) {
		b, ok, err := staging.SetBookingStatus(ctx, c.store, id, model.BookingCancelled, c.now())
		if err != nil {
			return Result[wire.Booking]{}, &Error{Kind: KindOther, Message: "ローカル予約の更新に失敗しました", Err: err}
		}
		if !ok {
			return Result[wire.Booking]{}, &Error{
				Kind:        KindNotFound,
				StatusCode:  http.StatusNotFound,
				Message:     "ローカル予約が見つかりません",
				UserMessage: "予約が見つかりません。",
			}
		}
		return Result[wire.Booking]{Data: b, Message: "予約をキャンセルしました", IsOffline: true}, nil
	}

	res, err := send[wire.Booking](ctx, c, &request{method: http.MethodDelete, path: "/bookings/" + url.PathEscape(id)})
	if err != nil {
		return Result[wire.Booking]{}, err
	}

	c.cache.DeletePrefix(bookingsCachePrefix)
	c.cache.Delete("booking-" + id)
	c.cache.Delete(bookingStatsKey)
	if _, _, err := staging.SetBookingStatus(ctx, c.store, id, model.BookingCancelled, c.now()); err != nil {
		c.logger.Warn("ローカルの予約コピーの更新に失敗しました", slog.String("booking_id", id), slog.String("error", err.Error()))
	}
	return res, nil
}

// BookingStats は状態別の予約件数を返す。取得できない場合はすべて0を返す。
func (c *Client) BookingStats(ctx context.Context) (Result[BookingStats], error) {
	zero := BookingStats{}
	if !c.IsAuthenticated(ctx) {
		return Result[BookingStats]{Data: zero, IsOffline: true}, nil
	}
	res, err := fetch(ctx, c, &request{method: http.MethodGet, path: "/bookings/stats/summary"}, bookingStatsKey, &zero)
	if err != nil {
		return Result[BookingStats]{Data: zero, IsOffline: true, Error: UserMessage(err)}, nil
	}
	return res, nil
}

func (c *Client) localBookings(ctx context.Context) []wire.Booking {
	local, skipped, err := staging.LoadBookings(ctx, c.store)
	if err != nil {
		c.logger.Warn("ローカル予約の読み込みに失敗しました", slog.String("error", err.Error()))
		return []wire.Booking{}
	}
	if skipped > 0 {
		c.logger.Warn("解析できないローカル予約を読み飛ばしました", slog.Int("skipped", skipped))
	}
	return local
}
