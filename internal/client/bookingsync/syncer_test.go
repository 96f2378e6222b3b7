package bookingsync

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/hitoshi/fitzone/internal/client/apiclient"
	"github.com/hitoshi/fitzone/internal/client/localstore"
	"github.com/hitoshi/fitzone/internal/client/staging"
	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// mockClient はClientのモック。
type mockClient struct {
	online        bool
	authenticated bool

	mu        sync.Mutex
	submitted []wire.Booking

	submitBookingFn      func(ctx context.Context, b wire.Booking) (wire.Booking, error)
	submitSubscriptionFn func(ctx context.Context, req wire.SubscribeRequest) (wire.SubscriptionPayload, error)
	listBookingsFn       func(ctx context.Context, p apiclient.ListParams) (apiclient.Result[[]wire.Booking], error)
}

func (m *mockClient) Online() bool                           { return m.online }
func (m *mockClient) IsAuthenticated(ctx context.Context) bool { return m.authenticated }

func (m *mockClient) SubmitBooking(ctx context.Context, b wire.Booking) (wire.Booking, error) {
	m.mu.Lock()
	m.submitted = append(m.submitted, b)
	m.mu.Unlock()
	if m.submitBookingFn != nil {
		return m.submitBookingFn(ctx, b)
	}
	b.ID = "srv-" + b.Date
	return b, nil
}

func (m *mockClient) SubmitSubscription(ctx context.Context, req wire.SubscribeRequest) (wire.SubscriptionPayload, error) {
	if m.submitSubscriptionFn != nil {
		return m.submitSubscriptionFn(ctx, req)
	}
	return wire.SubscriptionPayload{Subscription: &wire.Subscription{ID: "sub-1", PlanID: req.PlanID}}, nil
}

func (m *mockClient) ListBookings(ctx context.Context, p apiclient.ListParams) (apiclient.Result[[]wire.Booking], error) {
	if m.listBookingsFn != nil {
		return m.listBookingsFn(ctx, p)
	}
	return apiclient.Result[[]wire.Booking]{Data: []wire.Booking{}}, nil
}

func (m *mockClient) submittedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.submitted)
}

// mockRecorder は同期結果の記録回数を数える。
type mockRecorder struct {
	ok, failed int
}

func (r *mockRecorder) RecordSyncSubmission(ok bool) {
	if ok {
		r.ok++
	} else {
		r.failed++
	}
}

func classBooking(id, date, tm string) wire.Booking {
	return wire.Booking{
		ID:     id,
		Kind:   model.BookingKindClass,
		Class:  &model.ClassSnapshot{Name: "HIIT Blast", Type: "Cardio"},
		Date:   date,
		Time:   tm,
		Status: model.BookingPendingSync,
	}
}

func seed(t *testing.T, store localstore.Store, bookings ...wire.Booking) {
	t.Helper()
	if err := staging.SaveBookings(context.Background(), store, bookings); err != nil {
		t.Fatalf("SaveBookings に失敗: %v", err)
	}
}

// --- Sync ---

func TestSync_SkipsWhenOfflineOrAnonymous(t *testing.T) {
	tests := []struct {
		name          string
		online, authn bool
	}{
		{"オフライン", false, true},
		{"未ログイン", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := localstore.NewMemoryStore()
			seed(t, store, classBooking("local-1", "2024-03-18", "9:00 AM"))
			client := &mockClient{online: tt.online, authenticated: tt.authn}
			var buf bytes.Buffer

			report := New(client, store, newTestLogger(&buf)).Sync(context.Background())

			if !report.Skipped || client.submittedCount() != 0 {
				t.Errorf("report = %+v, 送信 = %d", report, client.submittedCount())
			}
		})
	}
}

func TestSync_ReplaysInOrderAndRemovesSynced(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	seed(t, store,
		classBooking("local-1", "2024-03-18", "9:00 AM"),
		classBooking("srv-existing", "2024-03-19", "9:00 AM"),
		classBooking("local-2", "2024-03-20", "7:00 PM"),
	)
	client := &mockClient{online: true, authenticated: true}
	rec := &mockRecorder{}
	var buf bytes.Buffer

	report := New(client, store, newTestLogger(&buf), WithRecorder(rec)).Sync(ctx)

	if report.Attempted != 2 || report.Synced != 2 || report.Failed != 0 || report.Purged != 0 {
		t.Errorf("report = %+v", report)
	}
	if client.submitted[0].Date != "2024-03-18" || client.submitted[1].Date != "2024-03-20" {
		t.Errorf("保存順に送信するべき: %+v", client.submitted)
	}
	remaining, _, _ := staging.LoadBookings(ctx, store)
	if len(remaining) != 1 || remaining[0].ID != "srv-existing" {
		t.Errorf("残り = %+v", remaining)
	}
	if rec.ok != 2 {
		t.Errorf("記録 = %+v", rec)
	}
}

func TestSync_NormalizesPayload(t *testing.T) {
	store := localstore.NewMemoryStore()
	trainer := wire.Booking{
		ID:      "local-t",
		Kind:    model.BookingKindTrainer,
		Trainer: &model.TrainerSnapshot{Name: "Emily Chen"},
		Class:   &model.ClassSnapshot{Name: "stray"},
		Date:    "2024-03-18",
		Time:    "10:00 AM",
		Status:  model.BookingPendingSync,
		IsLocal: true,
	}
	seed(t, store, trainer)
	client := &mockClient{online: true, authenticated: true}
	var buf bytes.Buffer

	New(client, store, newTestLogger(&buf)).Sync(context.Background())

	got := client.submitted[0]
	if got.ID != "" || got.IsLocal {
		t.Errorf("ローカルIDは送信しないべき: %+v", got)
	}
	if got.Class != nil || got.Trainer == nil {
		t.Errorf("種別に合わないスナップショットは送信しないべき: %+v", got)
	}
	if got.Status != model.BookingPending || got.Participants != 1 || got.SessionType != model.SessionPersonal {
		t.Errorf("既定値 = status %q, participants %d, session %q", got.Status, got.Participants, got.SessionType)
	}
	if got.Day != "Monday" {
		t.Errorf("Day = %q", got.Day)
	}
}

func TestSync_FailedEntriesAreKept(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	seed(t, store,
		classBooking("local-1", "2024-03-18", "9:00 AM"),
		classBooking("local-2", "2024-03-20", "7:00 PM"),
	)
	client := &mockClient{
		online: true, authenticated: true,
		submitBookingFn: func(ctx context.Context, b wire.Booking) (wire.Booking, error) {
			if b.Date == "2024-03-18" {
				return wire.Booking{}, errors.New("conflict")
			}
			return b, nil
		},
	}
	rec := &mockRecorder{}
	var buf bytes.Buffer

	report := New(client, store, newTestLogger(&buf), WithRecorder(rec)).Sync(ctx)

	if report.Synced != 1 || report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	remaining, _, _ := staging.LoadBookings(ctx, store)
	if len(remaining) != 1 || remaining[0].ID != "local-1" {
		t.Errorf("失敗した予約は残るべき: %+v", remaining)
	}
	if rec.failed != 1 {
		t.Errorf("記録 = %+v", rec)
	}
}

func TestSync_PurgesInvalidEntries(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	store.Set(ctx, localstore.KeyBookings, `[
		{"id":"local-1","bookingType":"class","date":"2024-03-18","time":"9:00 AM","class":{"name":"Yoga"}},
		{"id":"local-2","bookingType":"class","date":"2024-03-18","time":"9:00 AM"},
		{"id":"local-3","bookingType":"trainer","time":"9:00 AM","trainer":{"name":"Mike"}},
		"garbage"
	]`)
	client := &mockClient{online: true, authenticated: true}
	var buf bytes.Buffer

	report := New(client, store, newTestLogger(&buf)).Sync(ctx)

	if report.Purged != 3 || report.Attempted != 1 {
		t.Errorf("report = %+v", report)
	}
	remaining, skipped, _ := staging.LoadBookings(ctx, store)
	if len(remaining) != 0 || skipped != 0 {
		t.Errorf("残り = %+v, skipped = %d", remaining, skipped)
	}
}

func TestSync_PurgePersistsEvenWhenReplayFails(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	seed(t, store,
		classBooking("local-1", "2024-03-18", "9:00 AM"),
		wire.Booking{ID: "local-bad", Kind: model.BookingKindClass, Date: "2024-03-18"},
	)
	client := &mockClient{
		online: true, authenticated: true,
		submitBookingFn: func(ctx context.Context, b wire.Booking) (wire.Booking, error) {
			return wire.Booking{}, errors.New("network")
		},
	}
	var buf bytes.Buffer

	New(client, store, newTestLogger(&buf)).Sync(ctx)

	remaining, _, _ := staging.LoadBookings(ctx, store)
	if len(remaining) != 1 || remaining[0].ID != "local-1" {
		t.Errorf("不正な予約は削除され、失敗した予約は残るべき: %+v", remaining)
	}
}

func TestSync_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	seed(t, store, classBooking("local-1", "2024-03-18", "9:00 AM"))
	client := &mockClient{online: true, authenticated: true}
	var buf bytes.Buffer
	s := New(client, store, newTestLogger(&buf))

	first := s.Sync(ctx)
	second := s.Sync(ctx)

	if first.Synced != 1 || second.Attempted != 0 {
		t.Errorf("first = %+v, second = %+v", first, second)
	}
	if client.submittedCount() != 1 {
		t.Errorf("2回目は送信しないべき: %d", client.submittedCount())
	}
}

func TestSync_PurgesCancelledLocalEntries(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	cancelled := classBooking("local-1", "2024-03-18", "9:00 AM")
	cancelled.Status = model.BookingCancelled
	serverCancelled := classBooking("srv-1", "2024-03-11", "9:00 AM")
	serverCancelled.Status = model.BookingCancelled
	seed(t, store, cancelled, serverCancelled)
	client := &mockClient{online: true, authenticated: true}
	var buf bytes.Buffer

	report := New(client, store, newTestLogger(&buf)).Sync(ctx)

	if report.Attempted != 0 || client.submittedCount() != 0 {
		t.Errorf("キャンセル済みの予約は送信しないべき: report = %+v", report)
	}
	if report.Purged != 1 {
		t.Errorf("Purged = %d, want 1", report.Purged)
	}

	left, _, err := staging.LoadBookings(ctx, store)
	if err != nil {
		t.Fatalf("LoadBookings: %v", err)
	}
	for _, b := range left {
		if wire.IsLocalID(b.ID) {
			t.Errorf("ローカル予約が残っている: %+v", b)
		}
	}
	if len(left) != 1 || left[0].ID != "srv-1" {
		t.Errorf("サーバー発行の予約は残すべき: %+v", left)
	}
}

func TestSync_InFlightGuard(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	seed(t, store, classBooking("local-1", "2024-03-18", "9:00 AM"))

	entered := make(chan struct{})
	release := make(chan struct{})
	client := &mockClient{
		online: true, authenticated: true,
		submitBookingFn: func(ctx context.Context, b wire.Booking) (wire.Booking, error) {
			close(entered)
			<-release
			return b, nil
		},
	}
	var buf bytes.Buffer
	s := New(client, store, newTestLogger(&buf))

	done := make(chan Report)
	go func() { done <- s.Sync(ctx) }()
	<-entered

	concurrent := s.Sync(ctx)
	close(release)
	first := <-done

	if !concurrent.Skipped {
		t.Errorf("同期中の2回目はスキップされるべき: %+v", concurrent)
	}
	if first.Synced != 1 {
		t.Errorf("first = %+v", first)
	}
}

// --- SyncSubscription ---

func TestSyncSubscription(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	staging.StageSubscription(ctx, store, wire.SubscribeRequest{PlanID: "premium-plan", UserID: "user-1"}, model.PeriodMonth, testDate())

	var got wire.SubscribeRequest
	client := &mockClient{
		online: true, authenticated: true,
		submitSubscriptionFn: func(ctx context.Context, req wire.SubscribeRequest) (wire.SubscriptionPayload, error) {
			got = req
			return wire.SubscriptionPayload{}, nil
		},
	}
	var buf bytes.Buffer

	sent, err := New(client, store, newTestLogger(&buf)).SyncSubscription(ctx)
	if err != nil || !sent {
		t.Fatalf("SyncSubscription = %v, %v", sent, err)
	}
	if got.PlanID != "premium-plan" || got.StartDate == nil {
		t.Errorf("req = %+v", got)
	}
	if sub, _ := staging.LoadSubscription(ctx, store); sub != nil {
		t.Error("同期後はローカルの会員契約を削除するべき")
	}
}

func TestSyncSubscription_FailureKeepsLocal(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	staging.StageSubscription(ctx, store, wire.SubscribeRequest{PlanID: "basic-plan"}, model.PeriodMonth, testDate())
	client := &mockClient{
		online: true, authenticated: true,
		submitSubscriptionFn: func(ctx context.Context, req wire.SubscribeRequest) (wire.SubscriptionPayload, error) {
			return wire.SubscriptionPayload{}, errors.New("plan not found")
		},
	}
	var buf bytes.Buffer

	sent, err := New(client, store, newTestLogger(&buf)).SyncSubscription(ctx)
	if err == nil || sent {
		t.Errorf("SyncSubscription = %v, %v", sent, err)
	}
	if sub, _ := staging.LoadSubscription(ctx, store); sub == nil {
		t.Error("失敗時はローカルの会員契約を残すべき")
	}
}

// --- Merge ---

func TestMerge(t *testing.T) {
	server := []wire.Booking{
		{ID: "srv-1", Kind: model.BookingKindClass, Date: "2024-03-18", Time: "9:00 AM", Status: model.BookingConfirmed},
		{ID: "srv-2", Kind: model.BookingKindTrainer, Date: "2024-03-10", Time: "6:00 PM", Status: model.BookingConfirmed},
	}
	local := []wire.Booking{
		{ID: "local-a", Kind: model.BookingKindClass, Date: "2024-03-18", Time: "9:00 AM", Status: model.BookingPendingSync},
		{ID: "srv-2", Kind: model.BookingKindTrainer, Date: "2024-03-10", Time: "6:00 PM", Status: model.BookingCancelled},
		{ID: "local-b", Kind: model.BookingKindClass, Date: "2024-03-18", Time: "7:00 PM", Status: model.BookingPendingSync},
		{ID: "local-c", Kind: model.BookingKindTrainer, Date: "2024-03-18", Time: "9:00 AM", Status: model.BookingPendingSync},
		{ID: "local-d", Kind: model.BookingKindClass, Date: "2024-03-25", Time: "10:00 AM", Status: model.BookingPendingSync},
	}

	got := Merge(server, local)

	wantIDs := []string{"local-d", "local-b", "srv-1", "local-c", "srv-2"}
	if len(got) != len(wantIDs) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(wantIDs), got)
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("got[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
	for _, b := range got {
		if b.ID == "srv-2" && b.Status != model.BookingConfirmed {
			t.Error("同一予約はサーバー側を採用するべき")
		}
	}
}

func TestMerge_Empty(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("got = %+v", got)
	}
}

func TestMergedBookings_OfflineReturnsLocal(t *testing.T) {
	store := localstore.NewMemoryStore()
	seed(t, store, classBooking("local-1", "2024-03-18", "9:00 AM"))
	client := &mockClient{
		online: false, authenticated: true,
		listBookingsFn: func(ctx context.Context, p apiclient.ListParams) (apiclient.Result[[]wire.Booking], error) {
			t.Error("オフライン時はサーバーに問い合わせないべき")
			return apiclient.Result[[]wire.Booking]{}, nil
		},
	}
	var buf bytes.Buffer

	got, err := New(client, store, newTestLogger(&buf)).MergedBookings(context.Background())
	if err != nil || len(got) != 1 {
		t.Errorf("got = %+v, %v", got, err)
	}
}

func TestMinutesOf(t *testing.T) {
	tests := map[string]int{
		"9:00 AM":  540,
		"12:30 PM": 750,
		"7:00 PM":  1140,
		"18:15":    1095,
		"soon":     -1,
	}
	for in, want := range tests {
		if got := minutesOf(in); got != want {
			t.Errorf("minutesOf(%q) = %d, want %d", in, got, want)
		}
	}
}
