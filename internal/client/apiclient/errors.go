package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind はAPI呼び出し失敗の分類。
type ErrorKind string

const (
	// KindAuthExpired は保存済みトークンが期限切れまたは不正だったことを示す。送信は行われない。
	KindAuthExpired ErrorKind = "auth_expired"
	// KindAuthRequired は保護されたパスにトークンなしでアクセスしようとしたことを示す。送信は行われない。
	KindAuthRequired ErrorKind = "auth_required"
	// KindUnauthorized はサーバーが401を返したことを示す。
	KindUnauthorized ErrorKind = "unauthorized"
	// KindForbidden はサーバーが403を返したことを示す。
	KindForbidden ErrorKind = "forbidden"
	// KindValidation は408/429以外の4xxを示す。
	KindValidation ErrorKind = "validation"
	// KindNotFound はサーバーが404を返したことを示す。
	KindNotFound ErrorKind = "not_found"
	// KindTransient は5xx/408/429またはタイムアウトを示す。再試行対象。
	KindTransient ErrorKind = "transient"
	// KindNetwork はレスポンスを受信できなかったことを示す。
	KindNetwork ErrorKind = "network"
	// KindOffline は端末がオフラインのため送信しなかったことを示す。
	KindOffline ErrorKind = "offline"
	// KindInvalidCredentials はログイン・登録で認証情報が拒否されたことを示す。
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	// KindServerUnavailable はログイン・登録でサーバーに到達できなかったことを示す。
	KindServerUnavailable ErrorKind = "server_unavailable"
	// KindParse はレスポンスの解析に失敗したことを示す。
	KindParse ErrorKind = "parse"
	// KindCanceled は呼び出し元のcontextが終了したことを示す。
	KindCanceled ErrorKind = "canceled"
	// KindOther はその他の失敗。
	KindOther ErrorKind = "other"
)

// ユーザー向けメッセージ
const (
	msgNetwork            = "ネットワークエラーが発生しました。接続を確認して再度お試しください。"
	msgTimeout            = "サーバーの応答がありません。しばらくしてから再度お試しください。"
	msgTransient          = "サーバーで一時的な問題が発生しています。しばらくしてから再度お試しください。"
	msgOffline            = "オフラインです。"
	msgOfflineLogin       = "オフラインのようです。インターネットに接続してから再度お試しください。"
	msgSessionExpired     = "セッションの有効期限が切れました。再度ログインしてください。"
	msgLoginRequired      = "ログインが必要です。"
	msgCannotReach        = "サーバーに接続できません。接続を確認して再度お試しください。"
	msgServerUnavailable  = "現在サーバーを利用できません。しばらくしてから再度お試しください。"
	msgInvalidCredentials = "メールアドレスまたはパスワードが正しくありません。"
)

// Error はAPI呼び出しの失敗を表す。
type Error struct {
	Kind        ErrorKind
	StatusCode  int    // HTTPステータス。レスポンスがない場合は0
	Message     string // サーバーまたは内部のメッセージ
	UserMessage string // 画面表示用メッセージ
	NoResponse  bool   // レスポンスを受信できなかった場合true
	Err         error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error { return e.Err }

// AsError はerrから*Errorを取り出す。
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsAuthError は認証エラー（期限切れ・未ログイン・401）かどうかを返す。
func IsAuthError(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Kind {
	case KindAuthExpired, KindAuthRequired, KindUnauthorized:
		return true
	}
	return false
}

// IsNetworkError はレスポンスを受信できなかった失敗かどうかを返す。
func IsNetworkError(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	return e.NoResponse || e.Kind == KindNetwork || e.Kind == KindOffline
}

// Retryable は再試行対象の失敗かどうかを返す。
func Retryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindTransient
}

// UserMessage は画面表示用のメッセージを返す。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok && e.UserMessage != "" {
		return e.UserMessage
	}
	return err.Error()
}

// ClassifyStatus はHTTPステータスコードを失敗分類に変換する。
func ClassifyStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == http.StatusUnauthorized:
		return KindUnauthorized
	case statusCode == http.StatusForbidden:
		return KindForbidden
	case statusCode == http.StatusNotFound:
		return KindNotFound
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests:
		return KindTransient
	case statusCode >= 500:
		return KindTransient
	case statusCode >= 400:
		return KindValidation
	default:
		return KindOther
	}
}

// statusError はエラーレスポンスから*Errorを組み立てる。
// サーバーのmessageはそのまま画面表示用メッセージとして使う。
func statusError(statusCode int, body []byte) *Error {
	var env struct {
		Message string `json:"message"`
	}
	json.Unmarshal(body, &env)

	kind := ClassifyStatus(statusCode)
	msg := env.Message
	if msg == "" {
		msg = fmt.Sprintf("リクエストが失敗しました（ステータス %d）", statusCode)
	}

	userMsg := msg
	if kind == KindTransient && env.Message == "" {
		userMsg = msgTransient
	}

	return &Error{
		Kind:        kind,
		StatusCode:  statusCode,
		Message:     msg,
		UserMessage: userMsg,
	}
}

// transportError はレスポンス受信前の失敗を分類する。
// 呼び出し元contextの終了は再試行しない。タイムアウトは再試行対象とする。
func transportError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil {
		return &Error{
			Kind:        KindCanceled,
			Message:     "リクエストが中断されました",
			UserMessage: msgNetwork,
			Err:         err,
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			Kind:        KindTransient,
			Message:     "リクエストがタイムアウトしました",
			UserMessage: msgTimeout,
			NoResponse:  true,
			Err:         err,
		}
	}

	return &Error{
		Kind:        KindNetwork,
		Message:     "サーバーからの応答がありません",
		UserMessage: msgNetwork,
		NoResponse:  true,
		Err:         err,
	}
}

// offlineError は端末がオフラインの場合のエラーを返す。
func offlineError(userMsg string) *Error {
	return &Error{
		Kind:        KindOffline,
		Message:     "端末がオフラインです",
		UserMessage: userMsg,
		NoResponse:  true,
	}
}
