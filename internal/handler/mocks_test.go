package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/fitzone/internal/auth"
	"github.com/hitoshi/fitzone/internal/booking"
	"github.com/hitoshi/fitzone/internal/membership"
	"github.com/hitoshi/fitzone/internal/middleware"
	"github.com/hitoshi/fitzone/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn func(ctx context.Context, in auth.RegisterInput) (*auth.Result, error)
	loginFn    func(ctx context.Context, email, password string) (*auth.Result, error)
	refreshFn  func(ctx context.Context, userID string) (*auth.Result, error)
	meFn       func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Refresh(ctx context.Context, userID string) (*auth.Result, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockAuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return nil, nil
}

// mockBookingService はBookingServiceInterfaceのモック実装。
type mockBookingService struct {
	createFn      func(ctx context.Context, userID string, in booking.CreateInput) (*model.Booking, error)
	listFn        func(ctx context.Context, userID string, p booking.ListParams) (*booking.ListResult, error)
	getFn         func(ctx context.Context, userID, bookingID string) (*model.Booking, error)
	cancelFn      func(ctx context.Context, userID, bookingID string) (*model.Booking, error)
	statsFn       func(ctx context.Context, userID string) (*booking.Stats, error)
	bookClassFn   func(ctx context.Context, userID string, in booking.ClassBookingInput) (*model.Booking, error)
	bookTrainerFn func(ctx context.Context, userID string, in booking.TrainerBookingInput) (*model.Booking, error)
}

func (m *mockBookingService) Create(ctx context.Context, userID string, in booking.CreateInput) (*model.Booking, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, in)
	}
	return nil, nil
}

func (m *mockBookingService) List(ctx context.Context, userID string, p booking.ListParams) (*booking.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, p)
	}
	return &booking.ListResult{Bookings: []*model.Booking{}}, nil
}

func (m *mockBookingService) Get(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, bookingID)
	}
	return nil, nil
}

func (m *mockBookingService) Cancel(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, userID, bookingID)
	}
	return nil, nil
}

func (m *mockBookingService) Stats(ctx context.Context, userID string) (*booking.Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, userID)
	}
	return &booking.Stats{}, nil
}

func (m *mockBookingService) BookClass(ctx context.Context, userID string, in booking.ClassBookingInput) (*model.Booking, error) {
	if m.bookClassFn != nil {
		return m.bookClassFn(ctx, userID, in)
	}
	return nil, nil
}

func (m *mockBookingService) BookTrainer(ctx context.Context, userID string, in booking.TrainerBookingInput) (*model.Booking, error) {
	if m.bookTrainerFn != nil {
		return m.bookTrainerFn(ctx, userID, in)
	}
	return nil, nil
}

// mockMembershipService はMembershipServiceInterfaceのモック実装。
type mockMembershipService struct {
	plansFn          func(ctx context.Context) ([]*model.MembershipPlan, error)
	planFn           func(ctx context.Context, planID string) (*model.MembershipPlan, error)
	subscribeFn      func(ctx context.Context, userID string, in membership.SubscribeInput) (*membership.SubscriptionWithPlan, error)
	mySubscriptionFn func(ctx context.Context, userID string) (*membership.SubscriptionWithPlan, error)
}

func (m *mockMembershipService) Plans(ctx context.Context) ([]*model.MembershipPlan, error) {
	if m.plansFn != nil {
		return m.plansFn(ctx)
	}
	return []*model.MembershipPlan{}, nil
}

func (m *mockMembershipService) Plan(ctx context.Context, planID string) (*model.MembershipPlan, error) {
	if m.planFn != nil {
		return m.planFn(ctx, planID)
	}
	return nil, model.NewPlanNotFoundError(planID)
}

func (m *mockMembershipService) Subscribe(ctx context.Context, userID string, in membership.SubscribeInput) (*membership.SubscriptionWithPlan, error) {
	if m.subscribeFn != nil {
		return m.subscribeFn(ctx, userID, in)
	}
	return nil, nil
}

func (m *mockMembershipService) MySubscription(ctx context.Context, userID string) (*membership.SubscriptionWithPlan, error) {
	if m.mySubscriptionFn != nil {
		return m.mySubscriptionFn(ctx, userID)
	}
	return nil, nil
}

// mockCatalogService はCatalogServiceInterfaceのモック実装。
type mockCatalogService struct {
	trainersFn     func(ctx context.Context) ([]*model.Trainer, error)
	trainerFn      func(ctx context.Context, id string) (*model.Trainer, error)
	classesFn      func(ctx context.Context) ([]*model.Class, error)
	classesByDayFn func(ctx context.Context, day string) ([]*model.Class, error)
}

func (m *mockCatalogService) Trainers(ctx context.Context) ([]*model.Trainer, error) {
	if m.trainersFn != nil {
		return m.trainersFn(ctx)
	}
	return []*model.Trainer{}, nil
}

func (m *mockCatalogService) Trainer(ctx context.Context, id string) (*model.Trainer, error) {
	if m.trainerFn != nil {
		return m.trainerFn(ctx, id)
	}
	return nil, model.NewTrainerNotFoundError(id)
}

func (m *mockCatalogService) Classes(ctx context.Context) ([]*model.Class, error) {
	if m.classesFn != nil {
		return m.classesFn(ctx)
	}
	return []*model.Class{}, nil
}

func (m *mockCatalogService) ClassesByDay(ctx context.Context, day string) ([]*model.Class, error) {
	if m.classesByDayFn != nil {
		return m.classesByDayFn(ctx, day)
	}
	return []*model.Class{}, nil
}

// --- テストヘルパー ---

// withUserID は認証済みユーザーIDをコンテキストに設定したリクエストを返す。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// testEnvelope はレスポンスのエンベロープをデコードするための型。
type testEnvelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Code       string          `json:"code"`
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		Current      int `json:"current"`
		Total        int `json:"total"`
		Count        int `json:"count"`
		TotalRecords int `json:"totalRecords"`
	} `json:"pagination"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func decodeData(t *testing.T, env testEnvelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v (%s)", err, env.Data)
	}
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, want, w.Body.String())
	}
}
