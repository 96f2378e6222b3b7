// Package apiclient はFitZone APIのオフラインファーストなクライアントを提供する。
//
// すべてのリクエストは同じパイプラインを通る。
//
//	事前チェック（トークン検証・付与） → 送信（読み取りは指数バックオフで再試行） → 事後処理（401処理・エラー分類）
//
// 読み取り系はキャッシュと静的フォールバックで失敗を吸収し、書き込み系は
// 認証切れ・ネットワーク断の場合にローカルへ一時保存する。
package apiclient

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/fitzone/internal/client/cache"
	"github.com/hitoshi/fitzone/internal/client/events"
	"github.com/hitoshi/fitzone/internal/client/localstore"
	"github.com/hitoshi/fitzone/internal/client/token"
)

// Config はクライアントの動作設定。
type Config struct {
	BaseURL       string        // 例: http://localhost:5000/api
	Timeout       time.Duration // 1リクエストあたりのタイムアウト
	RetryAttempts int           // 読み取り系の最大試行回数
	RetryDelay    time.Duration // バックオフの基準遅延
	CacheTTL      time.Duration // レスポンスキャッシュのTTL
	RedirectDelay time.Duration // 401検出からログイン画面遷移までの遅延
}

// DefaultConfig はデフォルト設定を返す。
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:5000/api",
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		CacheTTL:      cache.DefaultTTL,
		RedirectDelay: 100 * time.Millisecond,
	}
}

// Navigator は画面遷移を抽象化する。
type Navigator interface {
	// CurrentView は現在表示中の画面名を返す。
	CurrentView() string
	// Navigate は指定画面へ遷移する。
	Navigate(view string)
}

// Connectivity は端末のオンライン状態を返す。
type Connectivity interface {
	Online() bool
}

// Recorder はクライアント側のメトリクス記録先。
type Recorder interface {
	RecordRequest(method, path string, statusCode int, duration time.Duration)
	RecordRetry(path string)
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
	RecordFallback(key string)
}

// Deps はClientが利用するコンポーネント。
// Storeは必須。それ以外は未指定の場合デフォルト実装を使用する。
type Deps struct {
	HTTPClient   *http.Client
	Store        localstore.Store
	Tokens       *token.Holder
	Cache        *cache.Cache
	Bus          *events.Bus
	Connectivity Connectivity
	Navigator    Navigator
	Recorder     Recorder
	Logger       *slog.Logger
	Now          func() time.Time
	Sleep        func(ctx context.Context, d time.Duration) error
	AfterFunc    func(d time.Duration, f func())
}

// Client はFitZone APIクライアント。
type Client struct {
	cfg       Config
	http      *http.Client
	store     localstore.Store
	tokens    *token.Holder
	cache     *cache.Cache
	bus       *events.Bus
	conn      Connectivity
	nav       Navigator
	rec       Recorder
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	afterFunc func(d time.Duration, f func())

	redirectMu      sync.Mutex
	redirectPending bool
}

// New はClientを生成する。
func New(cfg Config, deps Deps) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.RedirectDelay < 0 {
		cfg.RedirectDelay = def.RedirectDelay
	}

	c := &Client{
		cfg:       cfg,
		http:      deps.HTTPClient,
		store:     deps.Store,
		tokens:    deps.Tokens,
		cache:     deps.Cache,
		bus:       deps.Bus,
		conn:      deps.Connectivity,
		nav:       deps.Navigator,
		rec:       deps.Recorder,
		logger:    deps.Logger,
		now:       deps.Now,
		sleep:     deps.Sleep,
		afterFunc: deps.AfterFunc,
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.store == nil {
		c.store = localstore.NewMemoryStore()
	}
	if c.tokens == nil {
		c.tokens = token.NewHolder(c.store, c.now, c.logger)
	}
	if c.cache == nil {
		c.cache = cache.New(cfg.CacheTTL, c.now)
	}
	if c.bus == nil {
		c.bus = events.NewBus()
	}
	if c.conn == nil {
		c.conn = NewStaticConnectivity(true)
	}
	if c.nav == nil {
		c.nav = &nopNavigator{}
	}
	if c.rec == nil {
		c.rec = nopRecorder{}
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.afterFunc == nil {
		c.afterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}

	return c
}

// Bus はクライアントのイベントバスを返す。
func (c *Client) Bus() *events.Bus { return c.bus }

// Store はクライアントのローカルストアを返す。
func (c *Client) Store() localstore.Store { return c.store }

// Tokens はクライアントのトークン保持者を返す。
func (c *Client) Tokens() *token.Holder { return c.tokens }

// Cache はクライアントのレスポンスキャッシュを返す。
func (c *Client) Cache() *cache.Cache { return c.cache }

// Online は端末がオンラインかどうかを返す。
func (c *Client) Online() bool { return c.conn.Online() }

// IsAuthenticated は有効なトークンを保持しているかどうかを返す。
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	tok, ok := c.tokens.Get(ctx)
	return ok && c.tokens.IsValid(tok)
}

// ClearCache はレスポンスキャッシュを全削除する。
func (c *Client) ClearCache() { c.cache.Clear() }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopNavigator struct {
	mu   sync.Mutex
	view string
}

func (n *nopNavigator) CurrentView() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view
}

func (n *nopNavigator) Navigate(view string) {
	n.mu.Lock()
	n.view = view
	n.mu.Unlock()
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, string, int, time.Duration) {}
func (nopRecorder) RecordRetry(string)                               {}
func (nopRecorder) RecordCacheHit(string)                            {}
func (nopRecorder) RecordCacheMiss(string)                           {}
func (nopRecorder) RecordFallback(string)                            {}
