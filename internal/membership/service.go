// Package membership は会員プランと会員契約のドメインロジックを提供する。
package membership

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fitzone/internal/metrics"
	"github.com/hitoshi/fitzone/internal/model"
	"github.com/hitoshi/fitzone/internal/repository"
)

// DefaultPaymentMethod は支払い方法が未指定の場合に使う値。
const DefaultPaymentMethod = "card"

// SubscribeInput は会員契約の入力値。StartDateがnilの場合は現在時刻から開始する。
type SubscribeInput struct {
	PlanID        string
	StartDate     *time.Time
	PaymentMethod string
	AutoRenew     bool
}

// SubscriptionWithPlan はプラン情報付きの会員契約。
type SubscriptionWithPlan struct {
	Subscription *model.Subscription
	Plan         *model.MembershipPlan
}

// Service は会員プランと会員契約のサービス層。
type Service struct {
	plans   repository.PlanRepository
	subs    repository.SubscriptionRepository
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(plans repository.PlanRepository, subs repository.SubscriptionRepository, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		plans:   plans,
		subs:    subs,
		metrics: collector,
		now:     time.Now,
	}
}

// Plans は全プランを価格順で返す。
func (s *Service) Plans(ctx context.Context) ([]*model.MembershipPlan, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("プラン一覧の取得に失敗しました: %w", err)
	}
	if plans == nil {
		plans = []*model.MembershipPlan{}
	}
	return plans, nil
}

// Plan はプランを1件返す。存在しない場合はPLAN_NOT_FOUNDを返す。
func (s *Service) Plan(ctx context.Context, planID string) (*model.MembershipPlan, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("プランの取得に失敗しました: %w", err)
	}
	if plan == nil {
		return nil, model.NewPlanNotFoundError(planID)
	}
	return plan, nil
}

// Subscribe はプランに加入する。
// 有効な契約が既にある場合はキャンセルしてから新しい契約を作成する。
// 終了日は開始日からプランの課金周期1単位分進めた日時になる。
func (s *Service) Subscribe(ctx context.Context, userID string, in SubscribeInput) (*SubscriptionWithPlan, error) {
	planID := strings.TrimSpace(in.PlanID)
	if planID == "" {
		return nil, model.NewValidationError("プランIDを指定してください。")
	}

	plan, err := s.Plan(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := now
	if in.StartDate != nil && !in.StartDate.IsZero() {
		start = *in.StartDate
	}
	start = start.UTC()

	paymentMethod := strings.TrimSpace(in.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	cancelled, err := s.subs.CancelActiveByUserID(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("既存の会員契約のキャンセルに失敗しました: %w", err)
	}

	sub := &model.Subscription{
		ID:            uuid.New().String(),
		UserID:        userID,
		PlanID:        plan.ID,
		StartDate:     start,
		EndDate:       plan.Period.Advance(start),
		Status:        model.SubscriptionActive,
		PaymentMethod: paymentMethod,
		AutoRenew:     in.AutoRenew,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("会員契約の作成に失敗しました: %w", err)
	}

	s.metrics.RecordSubscriptionCreated(plan.ID)
	slog.Info("subscription created",
		slog.String("subscription_id", sub.ID),
		slog.String("user_id", userID),
		slog.String("plan_id", plan.ID),
		slog.Int64("replaced", cancelled),
	)
	return &SubscriptionWithPlan{Subscription: sub, Plan: plan}, nil
}

// MySubscription はユーザーの有効な会員契約を返す。
// 有効な契約がない場合、または終了日を過ぎている場合はnilを返す。
func (s *Service) MySubscription(ctx context.Context, userID string) (*SubscriptionWithPlan, error) {
	sub, err := s.subs.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("会員契約の取得に失敗しました: %w", err)
	}
	// 期限切れの反映はワーカーが行うため、それまでの間もここで除外する
	if sub == nil || !sub.EndDate.After(s.now()) {
		return nil, nil
	}

	plan, err := s.plans.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("プランの取得に失敗しました: %w", err)
	}
	return &SubscriptionWithPlan{Subscription: sub, Plan: plan}, nil
}
