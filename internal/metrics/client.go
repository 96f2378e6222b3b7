package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientCollector はオフラインファーストクライアントのメトリクスを収集する。
// apiclient.Recorder と bookingsync.Recorder を満たす。
type ClientCollector struct {
	requests       *prometheus.CounterVec
	requestLatency prometheus.Histogram
	retries        *prometheus.CounterVec
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	fallbacks      *prometheus.CounterVec
	syncSubmits    *prometheus.CounterVec
}

// NewClientCollector はClientCollectorを生成してregに登録する。
func NewClientCollector(reg prometheus.Registerer) *ClientCollector {
	c := &ClientCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitzone_client_requests_total",
			Help: "APIへの送信回数（ステータス別、0は応答なし）",
		}, []string{"method", "status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fitzone_client_request_duration_seconds",
			Help:    "API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitzone_client_retries_total",
			Help: "リトライ回数",
		}, []string{"path"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitzone_client_cache_hits_total",
			Help: "レスポンスキャッシュのヒット数",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitzone_client_cache_misses_total",
			Help: "レスポンスキャッシュのミス数",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitzone_client_fallbacks_total",
			Help: "フォールバックデータを返した回数",
		}, []string{"key"}),
		syncSubmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitzone_client_sync_submissions_total",
			Help: "ローカル予約の同期送信数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.retries,
		c.cacheHits,
		c.cacheMisses,
		c.fallbacks,
		c.syncSubmits,
	)
	return c
}

// RecordRequest はAPI呼び出し1回分を記録する。pathはラベルに含めない。
func (c *ClientCollector) RecordRequest(method, path string, statusCode int, duration time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.requestLatency.Observe(duration.Seconds())
}

// RecordRetry はリトライを記録する。
func (c *ClientCollector) RecordRetry(path string) {
	c.retries.WithLabelValues(path).Inc()
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *ClientCollector) RecordCacheHit(key string) {
	c.cacheHits.Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *ClientCollector) RecordCacheMiss(key string) {
	c.cacheMisses.Inc()
}

// RecordFallback はフォールバックデータの返却を記録する。
func (c *ClientCollector) RecordFallback(key string) {
	c.fallbacks.WithLabelValues(key).Inc()
}

// RecordSyncSubmission はローカル予約の同期結果を記録する。
func (c *ClientCollector) RecordSyncSubmission(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	c.syncSubmits.WithLabelValues(result).Inc()
}
