package token

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/fitzone/internal/client/localstore"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// makeToken はexpクレームのみを持つテスト用トークンを生成する。
func makeToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return header + "." + body + ".signature"
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// --- IsValid ---

func TestHolder_IsValid(t *testing.T) {
	now := time.Unix(1_700_000_000, 500_000_000)
	var buf bytes.Buffer
	h := NewHolder(localstore.NewMemoryStore(), fixedNow(now), newTestLogger(&buf))

	stdPadded := "x." + base64.StdEncoding.EncodeToString([]byte(`{"exp":1700000100}`)) + ".y"

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"未来のexpは有効", makeToken(`{"exp":1700000001}`), true},
		{"exp == floor(now) は無効", makeToken(`{"exp":1700000000}`), false},
		{"過去のexpは無効", makeToken(`{"exp":1699999999}`), false},
		{"expなしは無効", makeToken(`{"sub":"u1"}`), false},
		{"文字列のexpは無効", makeToken(`{"exp":"1800000000"}`), false},
		{"JSONでないペイロードは無効", makeToken(`not-json`), false},
		{"2セグメントは無効", "a.b", false},
		{"4セグメントは無効", makeToken(`{"exp":1800000000}`) + ".extra", false},
		{"空文字列は無効", "", false},
		{"base64でないペイロードは無効", "a.!!!.c", false},
		{"標準アルファベット+パディングも受け付ける", stdPadded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.IsValid(tt.token); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestHolder_IsValid_FollowsClock(t *testing.T) {
	current := time.Unix(1000, 0)
	h := NewHolder(localstore.NewMemoryStore(), func() time.Time { return current }, nil)
	tok := makeToken(`{"exp":1010}`)

	if !h.IsValid(tok) {
		t.Fatal("exp前は有効であるべき")
	}
	current = time.Unix(1010, 999_000_000)
	if h.IsValid(tok) {
		t.Error("floor(now) == exp となった時点で無効であるべき")
	}
}

// --- Get / Set / Remove ---

func TestHolder_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	h := NewHolder(store, nil, nil)

	if _, ok := h.Get(ctx); ok {
		t.Fatal("初期状態ではトークンは存在しないべき")
	}

	if err := h.Set(ctx, ""); err != nil {
		t.Fatalf("空文字列の Set はエラーにならないべき: %v", err)
	}
	if _, ok := h.Get(ctx); ok {
		t.Fatal("空文字列の Set は保存しないべき")
	}

	h.Set(ctx, "tok-1")
	store.Set(ctx, localstore.KeyUser, `{"id":"u1"}`)
	store.Set(ctx, localstore.KeySubscription, `{"id":"sub-1"}`)

	if got, ok := h.Get(ctx); !ok || got != "tok-1" {
		t.Errorf("Get = %q, %v", got, ok)
	}

	if err := h.Remove(ctx); err != nil {
		t.Fatalf("Remove に失敗: %v", err)
	}
	if _, ok := h.Get(ctx); ok {
		t.Error("Remove 後にトークンが残っている")
	}
	if _, ok, _ := store.Get(ctx, localstore.KeyUser); ok {
		t.Error("Remove はユーザー情報も削除するべき")
	}
	if _, ok, _ := store.Get(ctx, localstore.KeySubscription); ok {
		t.Error("Remove はサーバー発行の契約スナップショットも削除するべき")
	}

	if err := h.Remove(ctx); err != nil {
		t.Errorf("Remove は冪等であるべき: %v", err)
	}
}

func TestHolder_Remove_KeepsStagedSubscription(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	h := NewHolder(store, nil, nil)

	h.Set(ctx, "tok")
	store.Set(ctx, localstore.KeySubscription, `{"id":"local-subscription-1","status":"pending-sync"}`)

	h.Remove(ctx)

	if _, ok, _ := store.Get(ctx, localstore.KeySubscription); !ok {
		t.Error("未送信の一時保存契約は残すべき")
	}
}

func TestHolder_Current(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(2000, 0)
	store := localstore.NewMemoryStore()
	var buf bytes.Buffer
	h := NewHolder(store, fixedNow(now), newTestLogger(&buf))

	valid := makeToken(fmt.Sprintf(`{"exp":%d}`, now.Unix()+60))
	h.Set(ctx, valid)
	if got, ok := h.Current(ctx); !ok || got != valid {
		t.Errorf("有効なトークンは Current で返るべき: %q, %v", got, ok)
	}

	h.Set(ctx, makeToken(fmt.Sprintf(`{"exp":%d}`, now.Unix()-1)))
	if _, ok := h.Current(ctx); ok {
		t.Error("期限切れトークンは Current で返らないべき")
	}
	if _, ok := h.Get(ctx); ok {
		t.Error("期限切れトークンは Current で削除されるべき")
	}
}

func TestParseClaims(t *testing.T) {
	c, ok := ParseClaims(makeToken(`{"exp":1234,"sub":"user-1","role":"admin"}`))
	if !ok {
		t.Fatal("ParseClaims に失敗")
	}
	if c.Exp != 1234 || c.Subject != "user-1" || c.Role != "admin" {
		t.Errorf("Claims = %+v", c)
	}
}
