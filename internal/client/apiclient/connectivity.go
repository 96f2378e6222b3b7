package apiclient

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// StaticConnectivity は明示的に切り替えるオンライン状態。
type StaticConnectivity struct {
	online atomic.Bool
}

// NewStaticConnectivity はStaticConnectivityを生成する。
func NewStaticConnectivity(online bool) *StaticConnectivity {
	s := &StaticConnectivity{}
	s.online.Store(online)
	return s
}

// Online はオンライン状態を返す。
func (s *StaticConnectivity) Online() bool { return s.online.Load() }

// Set はオンライン状態を切り替える。
func (s *StaticConnectivity) Set(online bool) { s.online.Store(online) }

// HealthProbe はヘルスチェックURLへの到達可否でオンライン状態を判定する。
// 結果はTTLの間キャッシュする。
type HealthProbe struct {
	url     string
	client  *http.Client
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	checkedAt time.Time
	online    bool
}

// NewHealthProbe はHealthProbeを生成する。
// urlにはAPIのヘルスチェックエンドポイント（例: http://localhost:5000/health）を指定する。
func NewHealthProbe(url string, client *http.Client, ttl time.Duration, now func() time.Time) *HealthProbe {
	if client == nil {
		client = http.DefaultClient
	}
	if now == nil {
		now = time.Now
	}
	return &HealthProbe{
		url:     url,
		client:  client,
		ttl:     ttl,
		timeout: healthTimeout,
		now:     now,
	}
}

// Online は直近の判定結果を返す。TTLを過ぎている場合は再判定する。
func (p *HealthProbe) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !p.checkedAt.IsZero() && now.Sub(p.checkedAt) < p.ttl {
		return p.online
	}

	p.online = p.check()
	p.checkedAt = now
	return p.online
}

func (p *HealthProbe) check() bool {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
