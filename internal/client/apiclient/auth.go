package apiclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fitzone/internal/client/events"
	"github.com/hitoshi/fitzone/internal/client/localstore"
	"github.com/hitoshi/fitzone/internal/client/wire"
)

// Register は会員登録を行い、発行されたトークンを保存する。
func (c *Client) Register(ctx context.Context, reg wire.Registration) (wire.AuthPayload, error) {
	return c.authenticate(ctx, "/users/register", reg)
}

// Login はログインし、発行されたトークンを保存する。
// オフライン時は通信せずにエラーを返す。
func (c *Client) Login(ctx context.Context, cred wire.Credentials) (wire.AuthPayload, error) {
	return c.authenticate(ctx, "/users/login", cred)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (wire.AuthPayload, error) {
	if !c.conn.Online() {
		return wire.AuthPayload{}, offlineError(msgOfflineLogin)
	}

	env, err := c.do(ctx, &request{method: http.MethodPost, path: path, body: body})
	if err != nil {
		return wire.AuthPayload{}, normalizeAuthError(err)
	}

	payload, err := normalizeAuthPayload(env)
	if err != nil {
		return wire.AuthPayload{}, err
	}

	if err := c.tokens.Set(ctx, payload.Token); err != nil {
		return wire.AuthPayload{}, &Error{Kind: KindOther, Message: "トークンの保存に失敗しました", Err: err}
	}
	c.cache.Clear()
	if err := localstore.SetJSON(ctx, c.store, localstore.KeyUser, payload.User); err != nil {
		c.logger.Warn("ユーザー情報の保存に失敗しました", slog.String("error", err.Error()))
	}

	c.logger.Info("ログインしました", slog.String("user_id", payload.User.ID))
	c.bus.Publish(events.LoginSucceeded{User: payload.User})
	return payload, nil
}

// normalizeAuthPayload はdata内のtokenとuserを取り出す。
// dataが無い場合や、どちらかが欠けている場合は解析エラーとする。
func normalizeAuthPayload(env *wire.Envelope) (wire.AuthPayload, error) {
	var payload wire.AuthPayload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return wire.AuthPayload{}, &Error{
				Kind:        KindParse,
				Message:     "認証レスポンスの解析に失敗しました",
				UserMessage: msgServerUnavailable,
				Err:         err,
			}
		}
	}

	if payload.Token == "" || payload.User.ID == "" {
		return wire.AuthPayload{}, &Error{
			Kind:        KindParse,
			Message:     "認証レスポンスにトークンまたはユーザーが含まれていません",
			UserMessage: msgServerUnavailable,
		}
	}
	return payload, nil
}

// normalizeAuthError はログイン・登録の失敗を画面表示向けに分類し直す。
func normalizeAuthError(err error) error {
	e, ok := AsError(err)
	if !ok {
		return err
	}

	out := *e
	switch {
	case e.Kind == KindCanceled:
		return e
	case e.NoResponse:
		out.Kind = KindServerUnavailable
		out.UserMessage = msgCannotReach
	case e.StatusCode >= 500:
		out.Kind = KindServerUnavailable
		out.UserMessage = msgServerUnavailable
	case e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnauthorized:
		out.Kind = KindInvalidCredentials
		if e.UserMessage == "" {
			out.UserMessage = msgInvalidCredentials
		}
	}
	return &out
}

// Logout はトークンとキャッシュを削除し、ログアウトを通知する。
func (c *Client) Logout(ctx context.Context) {
	c.removeToken(ctx)
	c.cache.Clear()
	c.bus.Publish(events.LoggedOut{Reason: "logout"})
}

// CurrentUser はログイン中のユーザーを返す。有効なトークンがない場合は送信しない。
func (c *Client) CurrentUser(ctx context.Context) (Result[wire.User], error) {
	if !c.IsAuthenticated(ctx) {
		return Result[wire.User]{}, &Error{
			Kind:        KindAuthRequired,
			StatusCode:  http.StatusUnauthorized,
			Message:     "有効な認証トークンがありません",
			UserMessage: msgLoginRequired,
		}
	}
	return fetch[wire.User](ctx, c, &request{method: http.MethodGet, path: "/users/me"}, "current-user", nil)
}

// RefreshToken はトークンを再発行する。失敗した場合は保存済みトークンを削除する。
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	env, err := c.do(ctx, &request{method: http.MethodPost, path: "/users/refresh-token"})
	if err != nil {
		c.removeToken(ctx)
		return "", err
	}

	var data struct {
		Token string `json:"token"`
	}
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}
	tok := data.Token
	if tok == "" {
		c.removeToken(ctx)
		return "", &Error{Kind: KindParse, Message: "レスポンスにトークンが含まれていません", UserMessage: msgSessionExpired}
	}

	if err := c.tokens.Set(ctx, tok); err != nil {
		return "", &Error{Kind: KindOther, Message: "トークンの保存に失敗しました", Err: err}
	}
	return tok, nil
}
