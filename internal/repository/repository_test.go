package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"github.com/hitoshi/fitzone/internal/model"
)

// --- インターフェース適合 ---

func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ TrainerRepository = (*PostgresTrainerRepo)(nil)
	var _ ClassRepository = (*PostgresClassRepo)(nil)
	var _ PlanRepository = (*PostgresPlanRepo)(nil)
	var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
	var _ BookingRepository = (*PostgresBookingRepo)(nil)
}

func TestMongoRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*MongoUserRepo)(nil)
	var _ TrainerRepository = (*MongoTrainerRepo)(nil)
	var _ ClassRepository = (*MongoClassRepo)(nil)
	var _ PlanRepository = (*MongoPlanRepo)(nil)
	var _ SubscriptionRepository = (*MongoSubscriptionRepo)(nil)
	var _ BookingRepository = (*MongoBookingRepo)(nil)
}

// --- 補助関数 ---

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"一意制約違反", &pq.Error{Code: "23505"}, true},
		{"ラップされた一意制約違反", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"外部キー違反", &pq.Error{Code: "23503"}, false},
		{"その他のエラー", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNullableJSON(t *testing.T) {
	v, err := nullableJSON[model.ClassSnapshot](nil)
	if err != nil || v != nil {
		t.Errorf("nil は NULL になるべき: v=%v, err=%v", v, err)
	}

	v, err = nullableJSON(&model.TrainerSnapshot{Name: "Sarah Johnson"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != `{"name":"Sarah Johnson"}` {
		t.Errorf("v = %v", v)
	}
}

func TestBookingWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    model.BookingFilter
		wantWhere string
		wantArgs  int
	}{
		{
			name:      "ユーザーのみ",
			filter:    model.BookingFilter{UserID: "u1"},
			wantWhere: " WHERE user_id = $1",
			wantArgs:  1,
		},
		{
			name:      "状態と種別",
			filter:    model.BookingFilter{UserID: "u1", Status: model.BookingConfirmed, Kind: model.BookingKindClass},
			wantWhere: " WHERE user_id = $1 AND status = $2 AND booking_type = $3",
			wantArgs:  3,
		},
		{
			name:      "種別のみ",
			filter:    model.BookingFilter{UserID: "u1", Kind: model.BookingKindTrainer},
			wantWhere: " WHERE user_id = $1 AND booking_type = $2",
			wantArgs:  2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := bookingWhere(tt.filter)
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestBookingFilterDoc(t *testing.T) {
	doc := bookingFilterDoc(model.BookingFilter{UserID: "u1", Status: model.BookingPending})
	if len(doc) != 2 || doc[0].Key != "user_id" || doc[1].Key != "status" || doc[1].Value != "pending" {
		t.Errorf("doc = %v", doc)
	}
}

func TestSortClasses(t *testing.T) {
	classes := []*model.Class{
		{Name: "HIIT Blast", Day: "Saturday", Time: "10:00 AM"},
		{Name: "Morning Yoga Flow", Day: "Wednesday", Time: "9:00 AM"},
		{Name: "Spin", Day: "Monday", Time: "7:00 AM"},
		{Name: "Core", Day: "Monday", Time: "6:00 AM"},
	}
	sortClasses(classes)

	want := []string{"Core", "Spin", "Morning Yoga Flow", "HIIT Blast"}
	for i, name := range want {
		if classes[i].Name != name {
			t.Errorf("classes[%d] = %q, want %q", i, classes[i].Name, name)
		}
	}
}
