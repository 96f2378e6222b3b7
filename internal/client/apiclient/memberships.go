package apiclient

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/fitzone/internal/client/events"
	"github.com/hitoshi/fitzone/internal/client/staging"
	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/model"
)

const (
	plansCacheKey        = "membership-plans"
	subscriptionCacheKey = "user-subscription"

	msgSubStagedAuth    = "会員契約をローカルに保存しました。再度ログインすると同期されます。"
	msgSubStagedOffline = "会員契約をローカルに保存しました。オンラインになると同期されます。"
)

// Plans は会員プラン一覧を返す。取得できない場合は既定のプランを返す。
func (c *Client) Plans(ctx context.Context) (Result[[]wire.Plan], error) {
	fallback := FallbackPlans()
	return fetch(ctx, c, &request{method: http.MethodGet, path: "/memberships/plans"}, plansCacheKey, &fallback)
}

// Plan は会員プランを1件返す。
func (c *Client) Plan(ctx context.Context, id string) (Result[wire.Plan], error) {
	return fetch[wire.Plan](ctx, c, &request{method: http.MethodGet, path: "/memberships/plans/" + url.PathEscape(id)}, "membership-plan-"+id, nil)
}

// Subscribe は会員契約を作成する。
// 認証エラーまたはネットワーク断の場合はプランの課金周期から終了日を算出し、ローカルに保存する。
func (c *Client) Subscribe(ctx context.Context, req wire.SubscribeRequest) (Result[wire.SubscriptionPayload], error) {
	if _, ok := c.tokens.Current(ctx); !ok {
		return c.stageSubscription(ctx, req, true)
	}
	if !c.conn.Online() {
		return c.stageSubscription(ctx, req, false)
	}

	res, err := c.submitSubscription(ctx, req)
	if err != nil {
		switch {
		case IsAuthError(err):
			return c.stageSubscription(ctx, req, true)
		case IsNetworkError(err):
			return c.stageSubscription(ctx, req, false)
		}
		return Result[wire.SubscriptionPayload]{}, err
	}
	return res, nil
}

// SubmitSubscription は会員契約をサーバーへ送信する。失敗してもローカルには保存しない。
func (c *Client) SubmitSubscription(ctx context.Context, req wire.SubscribeRequest) (wire.SubscriptionPayload, error) {
	res, err := c.submitSubscription(ctx, req)
	if err != nil {
		return wire.SubscriptionPayload{}, err
	}
	return res.Data, nil
}

func (c *Client) submitSubscription(ctx context.Context, req wire.SubscribeRequest) (Result[wire.SubscriptionPayload], error) {
	res, err := send[wire.SubscriptionPayload](ctx, c, &request{method: http.MethodPost, path: "/memberships/subscribe", body: req})
	if err != nil {
		return Result[wire.SubscriptionPayload]{}, err
	}

	c.cache.Delete(subscriptionCacheKey)
	if res.Data.Subscription != nil {
		c.bus.Publish(events.SubscriptionUpdated{Subscription: *res.Data.Subscription})
	}
	return res, nil
}

func (c *Client) stageSubscription(ctx context.Context, req wire.SubscribeRequest, authErr bool) (Result[wire.SubscriptionPayload], error) {
	sub, err := staging.StageSubscription(ctx, c.store, req, c.planPeriod(req.PlanID), c.now())
	if err != nil {
		return Result[wire.SubscriptionPayload]{}, &Error{Kind: KindOther, Message: "会員契約のローカル保存に失敗しました", Err: err}
	}
	c.cache.Delete(subscriptionCacheKey)

	msg := msgSubStagedOffline
	if authErr {
		msg = msgSubStagedAuth
	}
	c.logger.Info("会員契約をローカルに保存しました",
		slog.String("subscription_id", sub.ID),
		slog.String("plan_id", sub.PlanID),
		slog.Bool("auth_error", authErr),
	)
	c.bus.Publish(events.SubscriptionUpdated{Subscription: sub})

	return Result[wire.SubscriptionPayload]{
		Data:      wire.SubscriptionPayload{Subscription: &sub},
		Message:   msg,
		IsOffline: true,
		AuthError: authErr,
	}, nil
}

// planPeriod はキャッシュ済みのプラン一覧、なければ既定のプランから課金周期を求める。
func (c *Client) planPeriod(planID string) model.BillingPeriod {
	if res, ok := cacheLookup[[]wire.Plan](c, plansCacheKey); ok {
		for _, p := range res.Data {
			if p.ID == planID && p.Period.Valid() {
				return p.Period
			}
		}
	}
	for _, p := range FallbackPlans() {
		if p.ID == planID {
			return p.Period
		}
	}
	return model.PeriodMonth
}

// MySubscription はログイン中のユーザーの有効な会員契約を返す。
// 取得できない場合はローカルに保存された会員契約を返す。
func (c *Client) MySubscription(ctx context.Context) (Result[wire.SubscriptionPayload], error) {
	local, err := staging.LoadSubscription(ctx, c.store)
	if err != nil {
		c.logger.Warn("ローカル会員契約の読み込みに失敗しました", slog.String("error", err.Error()))
	}
	fallback := wire.SubscriptionPayload{Subscription: local}

	if !c.IsAuthenticated(ctx) {
		return Result[wire.SubscriptionPayload]{Data: fallback, IsOffline: true}, nil
	}

	res, err := fetch(ctx, c, &request{method: http.MethodGet, path: "/memberships/my-subscription"}, subscriptionCacheKey, &fallback)
	if err != nil {
		return Result[wire.SubscriptionPayload]{Data: fallback, IsOffline: true, Error: UserMessage(err)}, nil
	}
	return res, nil
}
