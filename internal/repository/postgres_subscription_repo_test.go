package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fitzone/internal/model"
)

func createTestPlan(t *testing.T, repo *PostgresPlanRepo, id string) *model.MembershipPlan {
	t.Helper()
	p := &model.MembershipPlan{
		ID:        id,
		Name:      "Premium",
		Price:     59.99,
		Period:    model.PeriodMonth,
		Features:  []string{"Gym access", "Group classes"},
		Popular:   true,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatalf("プラン作成に失敗: %v", err)
	}
	return p
}

func newTestSubscription(userID, planID string, start time.Time, months int) *model.Subscription {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Subscription{
		ID:            uuid.New().String(),
		UserID:        userID,
		PlanID:        planID,
		StartDate:     start,
		EndDate:       start.AddDate(0, months, 0),
		Status:        model.SubscriptionActive,
		PaymentMethod: "card",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPostgresPlanRepo_UpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresPlanRepo(db)
	ctx := context.Background()

	p := createTestPlan(t, repo, "premium-plan")
	p.Price = 64.99
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("2回目のUpsertに失敗: %v", err)
	}

	plans, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List に失敗: %v", err)
	}
	if len(plans) != 1 || plans[0].Price != 64.99 {
		t.Errorf("plans = %+v", plans)
	}

	missing, err := repo.FindByID(ctx, "no-such-plan")
	if err != nil || missing != nil {
		t.Errorf("FindByID(missing) = %+v, %v", missing, err)
	}
}

func TestPostgresSubscriptionRepo_ActiveLifecycle(t *testing.T) {
	db := setupTestDB(t)
	users := NewPostgresUserRepo(db)
	plans := NewPostgresPlanRepo(db)
	repo := NewPostgresSubscriptionRepo(db)
	ctx := context.Background()

	u := createTestUser(t, users, "member@example.com")
	createTestPlan(t, plans, "premium-plan")

	none, err := repo.FindActiveByUserID(ctx, u.ID)
	if err != nil || none != nil {
		t.Fatalf("契約なしの場合はnilであるべき: %+v, %v", none, err)
	}

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	first := newTestSubscription(u.ID, "premium-plan", start, 1)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create に失敗: %v", err)
	}

	// 新しい契約の前に既存の有効な契約を取り消す
	n, err := repo.CancelActiveByUserID(ctx, u.ID, time.Now())
	if err != nil || n != 1 {
		t.Fatalf("CancelActiveByUserID = %d, %v", n, err)
	}

	second := newTestSubscription(u.ID, "premium-plan", start.AddDate(0, 0, 10), 12)
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create に失敗: %v", err)
	}

	active, err := repo.FindActiveByUserID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindActiveByUserID に失敗: %v", err)
	}
	if active == nil || active.ID != second.ID || !active.EndDate.Equal(second.EndDate) {
		t.Errorf("active = %+v, want %s", active, second.ID)
	}
}

func TestPostgresSubscriptionRepo_ExpireEnded(t *testing.T) {
	db := setupTestDB(t)
	users := NewPostgresUserRepo(db)
	plans := NewPostgresPlanRepo(db)
	repo := NewPostgresSubscriptionRepo(db)
	ctx := context.Background()

	createTestPlan(t, plans, "basic-plan")
	lapsed := createTestUser(t, users, "lapsed@example.com")
	current := createTestUser(t, users, "current@example.com")

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Create(ctx, newTestSubscription(lapsed.ID, "basic-plan", now.AddDate(0, -2, 0), 1)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, newTestSubscription(current.ID, "basic-plan", now.AddDate(0, 0, -5), 1)); err != nil {
		t.Fatal(err)
	}

	n, err := repo.ExpireEnded(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("ExpireEnded = %d, %v, want 1", n, err)
	}

	// 2回目は何も更新しない
	if n, err := repo.ExpireEnded(ctx, now); err != nil || n != 0 {
		t.Errorf("2回目のExpireEnded = %d, %v, want 0", n, err)
	}

	if s, _ := repo.FindActiveByUserID(ctx, lapsed.ID); s != nil {
		t.Errorf("期限切れの契約は有効として返さないべき: %+v", s)
	}
	if s, _ := repo.FindActiveByUserID(ctx, current.ID); s == nil {
		t.Error("期間内の契約は有効のままであるべき")
	}
}
