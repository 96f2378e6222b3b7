package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/hitoshi/fitzone/internal/database"
	"github.com/hitoshi/fitzone/internal/model"
)

// setupTestDB はマイグレーション済みのテスト用データベースを返す。
// TEST_DATABASE_URL が未設定、または接続できない場合はスキップする。
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	if err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE bookings, subscriptions, users, classes, trainers, membership_plans CASCADE`); err != nil {
		t.Fatalf("クリーンアップに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, repo *PostgresUserRepo, email string) *model.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &model.User{
		ID:           uuid.New().String(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}
	return u
}

func newTestBooking(userID, date, slot string) *model.Booking {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Booking{
		ID:            uuid.New().String(),
		UserID:        userID,
		Kind:          model.BookingKindClass,
		Class:         &model.ClassSnapshot{Name: "Morning Yoga Flow", Type: "Yoga", Duration: 60},
		Date:          date,
		Time:          slot,
		Day:           model.WeekdayOf(date),
		Status:        model.BookingConfirmed,
		Participants:  1,
		SessionType:   model.SessionClass,
		UserDetails:   model.UserDetails{Name: "Test User", Notes: "初参加"},
		Amount:        20,
		PaymentStatus: model.PaymentPending,
		BookedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPostgresUserRepo_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresUserRepo(db)
	createTestUser(t, repo, "dup@example.com")

	err := repo.Create(context.Background(), &model.User{
		ID: uuid.New().String(), Name: "Other", Email: "dup@example.com", PasswordHash: "x", Role: model.RoleUser,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}

	found, err := repo.FindByEmail(context.Background(), "dup@example.com")
	if err != nil || found == nil || found.Name != "Test User" {
		t.Errorf("FindByEmail = %+v, %v", found, err)
	}
}

func TestPostgresBookingRepo_RoundTripAndConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, NewPostgresUserRepo(db), "booker@example.com")
	repo := NewPostgresBookingRepo(db)

	b := newTestBooking(user.ID, "2024-03-18", "9:00 AM")
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("予約作成に失敗: %v", err)
	}

	got, err := repo.FindByID(ctx, b.ID)
	if err != nil || got == nil {
		t.Fatalf("FindByID = %+v, %v", got, err)
	}
	if got.Date != "2024-03-18" || got.Class == nil || got.Class.Name != "Morning Yoga Flow" || got.Trainer != nil {
		t.Errorf("got = %+v", got)
	}
	if got.UserDetails.Notes != "初参加" {
		t.Errorf("UserDetails = %+v", got.UserDetails)
	}

	exists, err := repo.ExistsActiveSlot(ctx, user.ID, "2024-03-18", "9:00 AM")
	if err != nil || !exists {
		t.Errorf("ExistsActiveSlot = %v, %v", exists, err)
	}

	dup := newTestBooking(user.ID, "2024-03-18", "9:00 AM")
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}

	ok, err := repo.Cancel(ctx, b.ID, time.Now())
	if err != nil || !ok {
		t.Fatalf("Cancel = %v, %v", ok, err)
	}
	ok, err = repo.Cancel(ctx, b.ID, time.Now())
	if err != nil || ok {
		t.Errorf("2回目のCancelはfalseになるべき: %v, %v", ok, err)
	}

	if err := repo.Create(ctx, dup); err != nil {
		t.Errorf("キャンセル済みの枠は再予約できるべき: %v", err)
	}
}

func TestPostgresBookingRepo_ListAndComplete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, NewPostgresUserRepo(db), "list@example.com")
	repo := NewPostgresBookingRepo(db)

	for _, date := range []string{"2024-03-11", "2024-03-25", "2024-03-18"} {
		if err := repo.Create(ctx, newTestBooking(user.ID, date, "9:00 AM")); err != nil {
			t.Fatalf("予約作成に失敗: %v", err)
		}
	}

	list, total, err := repo.List(ctx, model.BookingFilter{UserID: user.ID, Limit: 2, Page: 1})
	if err != nil {
		t.Fatalf("List に失敗: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Fatalf("total = %d, len = %d", total, len(list))
	}
	if list[0].Date != "2024-03-25" || list[1].Date != "2024-03-18" {
		t.Errorf("日付降順になるべき: %s, %s", list[0].Date, list[1].Date)
	}

	n, err := repo.CompleteBefore(ctx, "2024-03-20", time.Now())
	if err != nil || n != 2 {
		t.Errorf("CompleteBefore = %d, %v", n, err)
	}

	counts, err := repo.CountByStatus(ctx, user.ID)
	if err != nil {
		t.Fatalf("CountByStatus に失敗: %v", err)
	}
	if counts[model.BookingCompleted] != 2 || counts[model.BookingConfirmed] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestPostgresClassRepo_AdjustBookedSpots(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewPostgresClassRepo(db)

	c := &model.Class{
		ID: "yoga-mon-9", Name: "Morning Yoga Flow", Trainer: "Sarah Johnson", Type: "Yoga",
		Difficulty: "All Levels", Duration: 60, Day: "Monday", Time: "9:00 AM", MaxSpots: 2, CreatedAt: time.Now(),
	}
	if err := repo.Upsert(ctx, c); err != nil {
		t.Fatalf("Upsert に失敗: %v", err)
	}

	if ok, err := repo.AdjustBookedSpots(ctx, c.ID, 2); err != nil || !ok {
		t.Fatalf("定員までは確保できるべき: %v, %v", ok, err)
	}
	if ok, _ := repo.AdjustBookedSpots(ctx, c.ID, 1); ok {
		t.Error("定員超過は拒否されるべき")
	}
	if ok, _ := repo.AdjustBookedSpots(ctx, c.ID, -3); ok {
		t.Error("0未満は拒否されるべき")
	}

	// 再シードしても予約済み枠数は維持される
	if err := repo.Upsert(ctx, c); err != nil {
		t.Fatalf("Upsert に失敗: %v", err)
	}
	got, _ := repo.FindByID(ctx, c.ID)
	if got == nil || got.BookedSpots != 2 {
		t.Errorf("got = %+v", got)
	}
}
