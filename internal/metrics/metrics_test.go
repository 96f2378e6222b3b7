package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// gatherValue は指定名・ラベルのメトリクス値（counterまたはhistogramのサンプル数）を返す。
func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) (float64, bool) {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					matched = false
				}
			}
			if !matched {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue(), true
			}
			if m.GetHistogram() != nil {
				return float64(m.GetHistogram().GetSampleCount()), true
			}
		}
	}
	return 0, false
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordBookingCreated_IncrementsByType(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBookingCreated("class")
	c.RecordBookingCreated("class")
	c.RecordBookingCreated("trainer")

	if v, _ := gatherValue(t, reg, "fitzone_bookings_created_total", map[string]string{"booking_type": "class"}); v != 2 {
		t.Errorf("class bookings = %v, want 2", v)
	}
	if v, _ := gatherValue(t, reg, "fitzone_bookings_created_total", map[string]string{"booking_type": "trainer"}); v != 1 {
		t.Errorf("trainer bookings = %v, want 1", v)
	}
}

func TestRecordBookingCancelled_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBookingCancelled()

	if v, ok := gatherValue(t, reg, "fitzone_bookings_cancelled_total", nil); !ok || v != 1 {
		t.Errorf("bookings_cancelled_total = %v (found=%v), want 1", v, ok)
	}
}

func TestRecordSubscriptionCreated_LabelsPlan(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSubscriptionCreated("premium-plan")

	if v, _ := gatherValue(t, reg, "fitzone_subscriptions_created_total", map[string]string{"plan_id": "premium-plan"}); v != 1 {
		t.Errorf("subscriptions_created_total = %v, want 1", v)
	}
}

func TestRecordExpired_AddsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordExpired(3, 5)
	c.RecordExpired(0, 2)

	if v, _ := gatherValue(t, reg, "fitzone_subscriptions_expired_total", nil); v != 3 {
		t.Errorf("subscriptions_expired_total = %v, want 3", v)
	}
	if v, _ := gatherValue(t, reg, "fitzone_bookings_completed_total", nil); v != 7 {
		t.Errorf("bookings_completed_total = %v, want 7", v)
	}
}

// TestMiddleware_UsesRoutePattern はルートパターンをラベルに使うことを検証する。
func TestMiddleware_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	r := chi.NewRouter()
	r.Use(c.Middleware())
	r.Get("/api/bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/api/bookings/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	labels := map[string]string{"method": "GET", "route": "/api/bookings/{id}", "status_code": "404"}
	if v, ok := gatherValue(t, reg, "fitzone_http_requests_total", labels); !ok || v != 2 {
		t.Errorf("http_requests_total = %v (found=%v), want 2", v, ok)
	}
	if v, _ := gatherValue(t, reg, "fitzone_http_request_duration_seconds", map[string]string{"route": "/api/bookings/{id}"}); v != 2 {
		t.Errorf("latency samples = %v, want 2", v)
	}
}

func TestMiddleware_ImplicitOKStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	h := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if v, _ := gatherValue(t, reg, "fitzone_http_requests_total", map[string]string{"route": "unmatched", "status_code": "200"}); v != 1 {
		t.Errorf("http_requests_total = %v, want 1", v)
	}
}

// --- ClientCollector ---

func TestClientCollector_RecordsAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewClientCollector(reg)

	c.RecordRequest("GET", "/bookings", 200, 15*time.Millisecond)
	c.RecordRequest("GET", "/bookings", 0, time.Millisecond)
	c.RecordRetry("/bookings")
	c.RecordCacheHit("trainers")
	c.RecordCacheMiss("trainers")
	c.RecordCacheMiss("classes")
	c.RecordFallback("membership-plans")
	c.RecordSyncSubmission(true)
	c.RecordSyncSubmission(false)
	c.RecordSyncSubmission(true)

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"fitzone_client_requests_total", map[string]string{"status_code": "200"}, 1},
		{"fitzone_client_requests_total", map[string]string{"status_code": "0"}, 1},
		{"fitzone_client_request_duration_seconds", nil, 2},
		{"fitzone_client_retries_total", map[string]string{"path": "/bookings"}, 1},
		{"fitzone_client_cache_hits_total", nil, 1},
		{"fitzone_client_cache_misses_total", nil, 2},
		{"fitzone_client_fallbacks_total", map[string]string{"key": "membership-plans"}, 1},
		{"fitzone_client_sync_submissions_total", map[string]string{"result": "ok"}, 2},
		{"fitzone_client_sync_submissions_total", map[string]string{"result": "failed"}, 1},
	}
	for _, tt := range tests {
		if got, _ := gatherValue(t, reg, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}
}
