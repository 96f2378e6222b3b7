package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/fitzone/internal/client/events"
	"github.com/hitoshi/fitzone/internal/client/wire"
)

// maxResponseBytes はレスポンスボディの読み取り上限。
const maxResponseBytes = 5 << 20

// protectedPaths はトークンなしでは送信しないパス。
var protectedPaths = []string{"/bookings", "/users/me", "/memberships/my-subscription"}

// authPaths は401処理の対象外とする認証エンドポイント。
var authPaths = []string{"/users/login", "/users/register"}

func isProtected(path string) bool {
	for _, p := range protectedPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isAuthEndpoint(path string) bool {
	for _, p := range authPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// request は1回のAPI呼び出し。再試行をまたいで同じ値を使う。
type request struct {
	method    string
	path      string
	query     url.Values
	body      any
	anonymous bool // トークンの検証・付与を行わない
	retry     bool // 再試行対象の失敗を指数バックオフで再試行する

	// authHandled は401処理を1リクエストにつき1回に制限するガード。
	authHandled bool
}

// do はパイプラインを通してリクエストを実行し、レスポンスエンベロープを返す。
func (c *Client) do(ctx context.Context, req *request) (*wire.Envelope, error) {
	if !req.retry {
		return c.attempt(ctx, req)
	}
	return c.withRetry(ctx, req.path, func(ctx context.Context) (*wire.Envelope, error) {
		return c.attempt(ctx, req)
	})
}

// attempt は事前チェック・送信・事後処理を1回行う。
func (c *Client) attempt(ctx context.Context, req *request) (*wire.Envelope, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, &Error{Kind: KindOther, Message: "HTTPリクエストの作成に失敗しました", Err: err}
	}

	if e := c.preflight(ctx, httpReq, req); e != nil {
		return nil, c.postflight(ctx, req, e)
	}

	start := c.now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.rec.RecordRequest(req.method, req.path, 0, c.now().Sub(start))
		return nil, c.postflight(ctx, req, transportError(ctx, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.rec.RecordRequest(req.method, req.path, resp.StatusCode, c.now().Sub(start))
	if err != nil {
		return nil, c.postflight(ctx, req, transportError(ctx, err))
	}

	if resp.StatusCode >= 400 {
		return nil, c.postflight(ctx, req, statusError(resp.StatusCode, body))
	}

	env := &wire.Envelope{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, env); err != nil {
			return nil, &Error{
				Kind:        KindParse,
				StatusCode:  resp.StatusCode,
				Message:     "レスポンスの解析に失敗しました",
				UserMessage: msgTransient,
				Err:         err,
			}
		}
	}
	return env, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req *request) (*http.Request, error) {
	u := c.cfg.BaseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// preflight は送信前にトークンを検証する。
// 有効なトークンはAuthorizationヘッダーに付与する。保存済みトークンが無効な場合は削除し、
// 認証エンドポイント以外は送信せずに失敗させる。トークンがなく保護されたパスの場合も送信しない。
func (c *Client) preflight(ctx context.Context, httpReq *http.Request, req *request) *Error {
	if req.anonymous {
		return nil
	}

	tok, ok := c.tokens.Get(ctx)
	if ok {
		if c.tokens.IsValid(tok) {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
			return nil
		}

		c.logger.Info("期限切れのトークンを削除しました", slog.String("path", req.path))
		c.removeToken(ctx)
		if isAuthEndpoint(req.path) {
			return nil
		}
		return &Error{
			Kind:        KindAuthExpired,
			StatusCode:  http.StatusUnauthorized,
			Message:     "トークンの有効期限が切れているか無効です",
			UserMessage: msgSessionExpired,
		}
	}

	if isProtected(req.path) {
		return &Error{
			Kind:        KindAuthRequired,
			StatusCode:  http.StatusUnauthorized,
			Message:     "認証が必要です",
			UserMessage: msgLoginRequired,
		}
	}
	return nil
}

// postflight は失敗を分類したうえで、認証エラーの場合はセッションを終了する。
// 認証エンドポイントへの呼び出しはセッション終了の対象外。
func (c *Client) postflight(ctx context.Context, req *request, e *Error) error {
	if IsAuthError(e) && !isAuthEndpoint(req.path) {
		c.handleUnauthorized(ctx, req)
	}
	if e.NoResponse {
		c.logger.Warn("APIサーバーから応答がありません",
			slog.String("method", req.method),
			slog.String("path", req.path),
			slog.String("kind", string(e.Kind)),
		)
	}
	return e
}

// handleUnauthorized はトークンを削除してログアウトを通知し、ログイン画面への遷移を予約する。
// 1リクエストにつき1回だけ実行する。
func (c *Client) handleUnauthorized(ctx context.Context, req *request) {
	if req.authHandled {
		return
	}
	req.authHandled = true

	c.removeToken(ctx)
	c.bus.Publish(events.LoggedOut{Reason: "unauthorized"})

	view := c.nav.CurrentView()
	if strings.Contains(view, "login") || strings.Contains(view, "register") {
		return
	}
	c.scheduleRedirect()
}

// scheduleRedirect はRedirectDelay後にログイン画面へ遷移する。
// 遷移待ちが既にある場合は何もしない。
func (c *Client) scheduleRedirect() {
	c.redirectMu.Lock()
	defer c.redirectMu.Unlock()
	if c.redirectPending {
		return
	}
	c.redirectPending = true

	c.afterFunc(c.cfg.RedirectDelay, func() {
		c.redirectMu.Lock()
		c.redirectPending = false
		c.redirectMu.Unlock()

		c.bus.Publish(events.AuthOpened{View: "login"})
		c.nav.Navigate("login")
	})
}

func (c *Client) removeToken(ctx context.Context) {
	if err := c.tokens.Remove(ctx); err != nil {
		c.logger.Warn("トークンの削除に失敗しました", slog.String("error", err.Error()))
	}
}
