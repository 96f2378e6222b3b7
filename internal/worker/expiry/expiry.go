// Package expiry は期限切れの会員契約と過去の予約を定期的に処理するジョブを提供する。
// 終了日を過ぎたactiveな契約をexpiredに、開催日を過ぎたconfirmedな予約をcompletedに更新する。
// どちらも条件付き更新のため、何度実行しても結果は変わらない。
package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/fitzone/internal/model"
)

// SubscriptionExpirer は終了日を過ぎた契約を期限切れにする。
// repository.SubscriptionRepositoryの部分集合。
type SubscriptionExpirer interface {
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}

// BookingCompleter は指定日より前の確定済み予約を完了にする。
// repository.BookingRepositoryの部分集合。
type BookingCompleter interface {
	CompleteBefore(ctx context.Context, before string, now time.Time) (int64, error)
}

// Recorder は処理件数の記録先。
type Recorder interface {
	RecordExpired(subscriptions, bookings int64)
}

// Result は1回の実行結果。
type Result struct {
	ExpiredSubscriptions int64
	CompletedBookings    int64
}

// Job は期限切れ処理ジョブ。
type Job struct {
	subscriptions SubscriptionExpirer
	bookings      BookingCompleter
	recorder      Recorder
	logger        *slog.Logger
	now           func() time.Time
}

// NewJob は新しいJobを生成する。recorderはnilでもよい。
func NewJob(subscriptions SubscriptionExpirer, bookings BookingCompleter, recorder Recorder, logger *slog.Logger) *Job {
	return &Job{
		subscriptions: subscriptions,
		bookings:      bookings,
		recorder:      recorder,
		logger:        logger,
		now:           time.Now,
	}
}

// Run は期限切れ処理を1回実行する。
// 予約の日付はUTCの今日と比較し、今日の予約はまだ完了にしない。
func (j *Job) Run(ctx context.Context) (Result, error) {
	start := j.now()
	var res Result

	expired, err := j.subscriptions.ExpireEnded(ctx, start)
	if err != nil {
		j.logger.Error("会員契約の期限切れ処理に失敗しました",
			slog.String("error", err.Error()),
		)
		return res, fmt.Errorf("会員契約の期限切れ処理に失敗: %w", err)
	}
	res.ExpiredSubscriptions = expired

	today := start.UTC().Format(model.DateLayout)
	completed, err := j.bookings.CompleteBefore(ctx, today, start)
	if err != nil {
		j.logger.Error("予約の完了処理に失敗しました",
			slog.String("error", err.Error()),
			slog.String("before", today),
		)
		return res, fmt.Errorf("予約の完了処理に失敗: %w", err)
	}
	res.CompletedBookings = completed

	if j.recorder != nil {
		j.recorder.RecordExpired(expired, completed)
	}

	j.logger.Info("期限切れ処理ジョブが完了しました",
		slog.Int64("expired_subscriptions", expired),
		slog.Int64("completed_bookings", completed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return res, nil
}

// Start はintervalごとにRunを実行する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまで実行を継続し、個々の失敗では停止しない。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("期限切れ処理ジョブを開始しました", slog.Duration("interval", interval))

	j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("期限切れ処理ジョブを停止しました")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}
