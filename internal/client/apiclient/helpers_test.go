package apiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/fitzone/internal/client/events"
	"github.com/hitoshi/fitzone/internal/client/localstore"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

var testNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

// makeToken はexpのみを持つテスト用トークンを生成する。
func makeToken(exp time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":"user-1","exp":%d}`, exp.Unix())))
	return header + "." + body + ".sig"
}

// fakeNavigator は遷移履歴を記録する。
type fakeNavigator struct {
	mu       sync.Mutex
	view     string
	navigate []string
}

func (n *fakeNavigator) CurrentView() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view
}

func (n *fakeNavigator) Navigate(view string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.view = view
	n.navigate = append(n.navigate, view)
}

func (n *fakeNavigator) history() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.navigate...)
}

// testEnv はhttptestサーバーと差し替え可能な依存を束ねる。
type testEnv struct {
	t       *testing.T
	srv     *httptest.Server
	calls   atomic.Int32
	handler http.HandlerFunc

	client *Client
	store  *localstore.MemoryStore
	conn   *StaticConnectivity
	nav    *fakeNavigator
	logBuf *bytes.Buffer

	mu     sync.Mutex
	sleeps []time.Duration
	timers []func()
	delays []time.Duration
	events []events.Event
}

func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()
	env := &testEnv{
		t:       t,
		handler: handler,
		store:   localstore.NewMemoryStore(),
		conn:    NewStaticConnectivity(true),
		nav:     &fakeNavigator{view: "dashboard"},
		logBuf:  &bytes.Buffer{},
	}
	env.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.calls.Add(1)
		env.handler(w, r)
	}))
	t.Cleanup(env.srv.Close)

	env.client = New(Config{
		BaseURL:       env.srv.URL + "/api",
		Timeout:       2 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		CacheTTL:      5 * time.Minute,
		RedirectDelay: 100 * time.Millisecond,
	}, Deps{
		Store:        env.store,
		Connectivity: env.conn,
		Navigator:    env.nav,
		Logger:       newTestLogger(env.logBuf),
		Now:          func() time.Time { return testNow },
		Sleep: func(_ context.Context, d time.Duration) error {
			env.mu.Lock()
			env.sleeps = append(env.sleeps, d)
			env.mu.Unlock()
			return nil
		},
		AfterFunc: func(d time.Duration, f func()) {
			env.mu.Lock()
			env.delays = append(env.delays, d)
			env.timers = append(env.timers, f)
			env.mu.Unlock()
		},
	})
	env.client.Bus().Subscribe(func(e events.Event) {
		env.mu.Lock()
		env.events = append(env.events, e)
		env.mu.Unlock()
	})
	return env
}

func (e *testEnv) login() string {
	e.t.Helper()
	tok := makeToken(testNow.Add(time.Hour))
	if err := e.client.Tokens().Set(context.Background(), tok); err != nil {
		e.t.Fatalf("トークンの設定に失敗: %v", err)
	}
	return tok
}

func (e *testEnv) callCount() int { return int(e.calls.Load()) }

func (e *testEnv) recordedSleeps() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]time.Duration(nil), e.sleeps...)
}

func (e *testEnv) pendingTimers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

// fireTimers は予約されたタイマーをすべて実行する。
func (e *testEnv) fireTimers() {
	e.mu.Lock()
	timers := e.timers
	e.timers = nil
	e.mu.Unlock()
	for _, f := range timers {
		f()
	}
}

func (e *testEnv) eventNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		names = append(names, ev.Name())
	}
	return names
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
