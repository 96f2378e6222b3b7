// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とワーカーから利用する。
type MetricsCollector interface {
	RecordBookingCreated(kind string)
	RecordBookingCancelled()
	RecordSubscriptionCreated(planID string)
	RecordExpired(subscriptions, bookings int64)
}

// Collector はサーバー側のPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests         *prometheus.CounterVec
	httpLatency          *prometheus.HistogramVec
	bookingsCreated      *prometheus.CounterVec
	bookingsCancelled    prometheus.Counter
	subscriptionsCreated *prometheus.CounterVec
	subscriptionsExpired prometheus.Counter
	bookingsCompleted    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitzone_http_requests_total",
			Help: "HTTPリクエスト数（ルート・メソッド・ステータス別）",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fitzone_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bookingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitzone_bookings_created_total",
			Help: "作成された予約の合計数",
		}, []string{"booking_type"}),
		bookingsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitzone_bookings_cancelled_total",
			Help: "キャンセルされた予約の合計数",
		}),
		subscriptionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitzone_subscriptions_created_total",
			Help: "作成された会員契約の合計数",
		}, []string{"plan_id"}),
		subscriptionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitzone_subscriptions_expired_total",
			Help: "期限切れにした会員契約の合計数",
		}),
		bookingsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitzone_bookings_completed_total",
			Help: "完了扱いにした予約の合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.bookingsCreated,
		c.bookingsCancelled,
		c.subscriptionsCreated,
		c.subscriptionsExpired,
		c.bookingsCompleted,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果を記録する。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordBookingCreated は予約作成を記録する。
func (c *Collector) RecordBookingCreated(kind string) {
	c.bookingsCreated.WithLabelValues(kind).Inc()
}

// RecordBookingCancelled は予約キャンセルを記録する。
func (c *Collector) RecordBookingCancelled() {
	c.bookingsCancelled.Inc()
}

// RecordSubscriptionCreated は会員契約の作成を記録する。
func (c *Collector) RecordSubscriptionCreated(planID string) {
	c.subscriptionsCreated.WithLabelValues(planID).Inc()
}

// RecordExpired は期限切れジョブの処理件数を記録する。
func (c *Collector) RecordExpired(subscriptions, bookings int64) {
	c.subscriptionsExpired.Add(float64(subscriptions))
	c.bookingsCompleted.Add(float64(bookings))
}

// Middleware はリクエスト数と処理時間を記録するHTTPミドルウェアを返す。
// ラベルにはchiのルートパターンを使い、IDごとに系列が増えないようにする。
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			c.RecordHTTPRequest(r.Method, route, rec.status, time.Since(start))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// NopCollector は何も記録しないMetricsCollector。テストとCLI用。
type NopCollector struct{}

func (NopCollector) RecordBookingCreated(string)      {}
func (NopCollector) RecordBookingCancelled()          {}
func (NopCollector) RecordSubscriptionCreated(string) {}
func (NopCollector) RecordExpired(int64, int64)       {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
