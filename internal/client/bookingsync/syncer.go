// Package bookingsync はローカルに一時保存された予約・会員契約をサーバーへ同期する。
package bookingsync

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hitoshi/fitzone/internal/client/apiclient"
	"github.com/hitoshi/fitzone/internal/client/events"
	"github.com/hitoshi/fitzone/internal/client/localstore"
	"github.com/hitoshi/fitzone/internal/client/staging"
	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/model"
)

// Client は同期に必要なAPIクライアントの操作。
type Client interface {
	Online() bool
	IsAuthenticated(ctx context.Context) bool
	SubmitBooking(ctx context.Context, b wire.Booking) (wire.Booking, error)
	SubmitSubscription(ctx context.Context, req wire.SubscribeRequest) (wire.SubscriptionPayload, error)
	ListBookings(ctx context.Context, p apiclient.ListParams) (apiclient.Result[[]wire.Booking], error)
}

// Recorder は同期結果のメトリクス記録先。
type Recorder interface {
	RecordSyncSubmission(ok bool)
}

// Report は1回の同期の結果。
type Report struct {
	Purged    int  // 不正なため削除した件数
	Attempted int  // 送信を試みた件数
	Synced    int  // 送信に成功した件数
	Failed    int  // 送信に失敗した件数（ローカルに残る）
	Skipped   bool // 前提条件を満たさない、または同期中のため実行しなかった
}

// Syncer は一時保存された予約の同期を行う。
type Syncer struct {
	client   Client
	store    localstore.Store
	cache    cacheInvalidator
	recorder Recorder
	logger   *slog.Logger

	inFlight atomic.Bool
}

type cacheInvalidator interface {
	DeletePrefix(prefix string)
}

// Option はSyncerの設定を変更する。
type Option func(*Syncer)

// WithRecorder はメトリクスの記録先を設定する。
func WithRecorder(r Recorder) Option {
	return func(s *Syncer) { s.recorder = r }
}

// WithCache は同期後に破棄する予約一覧キャッシュを設定する。
func WithCache(c cacheInvalidator) Option {
	return func(s *Syncer) { s.cache = c }
}

// New はSyncerを生成する。
func New(client Client, store localstore.Store, logger *slog.Logger, opts ...Option) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Syncer{
		client: client,
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync は一時保存された予約を保存順にサーバーへ送信する。
//
// オンラインかつ有効なトークンがある場合のみ実行する。必須項目が欠けた予約は送信前に削除し、
// 送信に成功した予約はローカルから削除する。失敗した予約はローカルに残り、次回の同期で再送する。
// 同期中に呼ばれた場合は何もしない。
func (s *Syncer) Sync(ctx context.Context) Report {
	if !s.client.Online() || !s.client.IsAuthenticated(ctx) {
		s.logger.Debug("オフラインまたは未ログインのため同期をスキップします")
		return Report{Skipped: true}
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Info("同期中のためスキップします")
		return Report{Skipped: true}
	}
	defer s.inFlight.Store(false)

	var report Report

	bookings, skipped, err := staging.LoadBookings(ctx, s.store)
	if err != nil {
		s.logger.Error("ローカル予約の読み込みに失敗しました", slog.String("error", err.Error()))
		return report
	}

	valid := make([]wire.Booking, 0, len(bookings))
	for _, b := range bookings {
		switch {
		case !b.Valid():
			s.logger.Warn("必須項目が欠けた予約を削除します",
				slog.String("booking_id", b.ID),
				slog.String("booking_type", string(b.Kind)),
			)
			continue
		case wire.IsLocalID(b.ID) && b.Status == model.BookingCancelled:
			// 送信前にキャンセルされた予約はサーバーに存在しないため破棄する
			s.logger.Info("ローカルでキャンセルされた予約を削除します", slog.String("booking_id", b.ID))
			continue
		}
		valid = append(valid, b)
	}
	report.Purged = skipped + len(bookings) - len(valid)
	if report.Purged > 0 {
		if err := staging.SaveBookings(ctx, s.store, valid); err != nil {
			s.logger.Error("ローカル予約の保存に失敗しました", slog.String("error", err.Error()))
			return report
		}
	}

	for _, b := range valid {
		if !wire.IsLocalID(b.ID) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		report.Attempted++

		created, err := s.client.SubmitBooking(ctx, normalize(b))
		if err != nil {
			report.Failed++
			s.record(false)
			s.logger.Warn("予約の同期に失敗しました",
				slog.String("booking_id", b.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		report.Synced++
		s.record(true)
		if _, err := staging.RemoveBooking(ctx, s.store, b.ID); err != nil {
			s.logger.Error("同期済み予約の削除に失敗しました",
				slog.String("booking_id", b.ID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.Info("予約を同期しました",
			slog.String("local_id", b.ID),
			slog.String("booking_id", created.ID),
		)
	}

	if report.Attempted > 0 {
		if s.cache != nil {
			s.cache.DeletePrefix("user-bookings")
		}
		if _, err := s.client.ListBookings(ctx, apiclient.ListParams{}); err != nil {
			s.logger.Warn("予約一覧の再取得に失敗しました", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("予約の同期が完了しました",
		slog.Int("purged", report.Purged),
		slog.Int("attempted", report.Attempted),
		slog.Int("synced", report.Synced),
		slog.Int("failed", report.Failed),
	)
	return report
}

// SyncSubscription はローカルに保存された会員契約をサーバーへ送信し、成功したら削除する。
// 送信した場合にtrueを返す。
func (s *Syncer) SyncSubscription(ctx context.Context) (bool, error) {
	if !s.client.Online() || !s.client.IsAuthenticated(ctx) {
		return false, nil
	}

	sub, err := staging.LoadSubscription(ctx, s.store)
	if err != nil {
		return false, err
	}
	if sub == nil || !wire.IsLocalID(sub.ID) {
		return false, nil
	}

	start := sub.StartDate
	req := wire.SubscribeRequest{
		PlanID:        sub.PlanID,
		UserID:        sub.UserID,
		StartDate:     &start,
		PaymentMethod: sub.PaymentMethod,
		AutoRenew:     sub.AutoRenew,
	}
	if _, err := s.client.SubmitSubscription(ctx, req); err != nil {
		s.record(false)
		s.logger.Warn("会員契約の同期に失敗しました",
			slog.String("subscription_id", sub.ID),
			slog.String("error", err.Error()),
		)
		return false, err
	}
	s.record(true)

	if err := staging.ClearSubscription(ctx, s.store); err != nil {
		return true, err
	}
	s.logger.Info("会員契約を同期しました", slog.String("subscription_id", sub.ID), slog.String("plan_id", sub.PlanID))
	return true, nil
}

// MergedBookings はサーバーの予約一覧とローカルの予約を統合して返す。
// オフラインまたは未ログインの場合はローカルの予約のみを返す。
func (s *Syncer) MergedBookings(ctx context.Context) ([]wire.Booking, error) {
	local, skipped, err := staging.LoadBookings(ctx, s.store)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Warn("解析できないローカル予約を読み飛ばしました", slog.Int("skipped", skipped))
	}

	var server []wire.Booking
	if s.client.Online() && s.client.IsAuthenticated(ctx) {
		res, err := s.client.ListBookings(ctx, apiclient.ListParams{})
		if err != nil {
			s.logger.Warn("予約一覧の取得に失敗しました", slog.String("error", err.Error()))
		} else if !res.IsOffline {
			server = res.Data
		}
	}
	return Merge(server, local), nil
}

// Listen はログイン成功時に同期を実行するようイベントバスに登録する。
// 返り値の関数で登録を解除する。
func (s *Syncer) Listen(ctx context.Context, bus *events.Bus) func() {
	return bus.Subscribe(func(e events.Event) {
		if _, ok := e.(events.LoginSucceeded); !ok {
			return
		}
		go func() {
			s.Sync(ctx)
			if _, err := s.SyncSubscription(ctx); err != nil {
				s.logger.Warn("会員契約の同期に失敗しました", slog.String("error", err.Error()))
			}
		}()
	})
}

func (s *Syncer) record(ok bool) {
	if s.recorder != nil {
		s.recorder.RecordSyncSubmission(ok)
	}
}

// normalize はローカル予約をサーバー送信用に整形する。
func normalize(b wire.Booking) wire.Booking {
	out := wire.Booking{
		Kind:          b.Kind,
		Date:          b.Date,
		Time:          b.Time,
		Day:           b.Day,
		Participants:  b.Participants,
		SessionType:   b.SessionType,
		UserDetails:   b.UserDetails,
		Amount:        b.Amount,
		PaymentStatus: b.PaymentStatus,
		Status:        model.BookingPending,
	}
	switch b.Kind {
	case model.BookingKindClass:
		out.Class = b.Class
	case model.BookingKindTrainer:
		out.Trainer = b.Trainer
	}
	if out.Day == "" {
		out.Day = model.WeekdayOf(b.Date)
	}
	if out.Participants < 1 {
		out.Participants = 1
	}
	if !out.SessionType.Valid() {
		if b.Kind == model.BookingKindTrainer {
			out.SessionType = model.SessionPersonal
		} else {
			out.SessionType = model.SessionClass
		}
	}
	if b.Status != "" && b.Status != model.BookingPendingSync {
		out.Status = b.Status
	}
	return out
}

// Merge はサーバーの予約とローカルの予約を統合する。
// IDが一致するか、日付・時間・種別が一致する予約は同一とみなしサーバー側を採用する。
// 結果は日付の降順、同日は時間の降順に並べる。
func Merge(server, local []wire.Booking) []wire.Booking {
	type slot struct {
		date, time string
		kind       model.BookingKind
	}

	ids := make(map[string]struct{}, len(server))
	slots := make(map[slot]struct{}, len(server))
	merged := make([]wire.Booking, 0, len(server)+len(local))

	for _, b := range server {
		if b.ID != "" {
			ids[b.ID] = struct{}{}
		}
		slots[slot{b.Date, b.Time, b.Kind}] = struct{}{}
		merged = append(merged, b)
	}
	for _, b := range local {
		if _, ok := ids[b.ID]; ok && b.ID != "" {
			continue
		}
		if _, ok := slots[slot{b.Date, b.Time, b.Kind}]; ok {
			continue
		}
		merged = append(merged, b)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Date != merged[j].Date {
			return merged[i].Date > merged[j].Date
		}
		return minutesOf(merged[i].Time) > minutesOf(merged[j].Time)
	})
	return merged
}

// minutesOf は "9:00 AM" / "18:30" 形式の時刻を0時からの分に変換する。解析できない場合は-1。
func minutesOf(s string) int {
	for _, layout := range []string{"3:04 PM", "15:04", "3:04PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute()
		}
	}
	return -1
}
