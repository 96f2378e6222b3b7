package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/membership"
	"github.com/hitoshi/fitzone/internal/middleware"
	"github.com/hitoshi/fitzone/internal/model"
)

// MembershipServiceInterface は会員プランハンドラーが必要とするサービスインターフェース。
type MembershipServiceInterface interface {
	Plans(ctx context.Context) ([]*model.MembershipPlan, error)
	Plan(ctx context.Context, planID string) (*model.MembershipPlan, error)
	Subscribe(ctx context.Context, userID string, in membership.SubscribeInput) (*membership.SubscriptionWithPlan, error)
	MySubscription(ctx context.Context, userID string) (*membership.SubscriptionWithPlan, error)
}

// MembershipHandler は会員プランと会員契約のHTTPハンドラー。
type MembershipHandler struct {
	service MembershipServiceInterface
}

// NewMembershipHandler はMembershipHandlerを生成する。
func NewMembershipHandler(service MembershipServiceInterface) *MembershipHandler {
	return &MembershipHandler{service: service}
}

// subscribeRequest は会員契約リクエストのボディ。
// userIdは受け付けるが、契約者は常に認証済みユーザーになる。
type subscribeRequest struct {
	PlanID        string     `json:"planId" validate:"required,max=100"`
	UserID        string     `json:"userId"`
	StartDate     *time.Time `json:"startDate"`
	PaymentMethod string     `json:"paymentMethod" validate:"max=50"`
	AutoRenew     bool       `json:"autoRenew"`
}

// ListPlans は全会員プランを返す。
// GET /api/memberships/plans
func (h *MembershipHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.Plans(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]wire.Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, toWirePlan(p))
	}
	writeSuccess(w, http.StatusOK, out)
}

// GetPlan は会員プランを1件返す。
// GET /api/memberships/plans/{id}
func (h *MembershipHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.Plan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toWirePlan(plan))
}

// Subscribe は会員プランに加入する。
// POST /api/memberships/subscribe
func (h *MembershipHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req subscribeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.Subscribe(r.Context(), userID, membership.SubscribeInput{
		PlanID:        req.PlanID,
		StartDate:     req.StartDate,
		PaymentMethod: req.PaymentMethod,
		AutoRenew:     req.AutoRenew,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "会員プランに加入しました。",
		Data:    wire.SubscriptionPayload{Subscription: toWireSubscription(res.Subscription, res.Plan)},
	})
}

// MySubscription はログインユーザーの有効な会員契約を返す。契約がない場合はnull。
// GET /api/memberships/my-subscription
func (h *MembershipHandler) MySubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	res, err := h.service.MySubscription(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	payload := wire.SubscriptionPayload{}
	if res != nil {
		payload.Subscription = toWireSubscription(res.Subscription, res.Plan)
	}
	writeSuccess(w, http.StatusOK, payload)
}
