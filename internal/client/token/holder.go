// Package token はクライアント側のセッショントークンを保持・検証する。
//
// トークンはローカルストアに保存し、有効期限はペイロードのexpクレームで判定する。
// 署名の検証はサーバー側の責務であり、ここでは行わない。
package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/fitzone/internal/client/localstore"
)

// localIDPrefix はクライアント側で一時保存したレコードのID接頭辞。
const localIDPrefix = "local-"

// Claims はトークンペイロードから読み取るクレーム。
type Claims struct {
	Exp     float64 `json:"exp"`
	Subject string  `json:"sub,omitempty"`
	Role    string  `json:"role,omitempty"`
}

// Holder はセッショントークンの保持者。
type Holder struct {
	store  localstore.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewHolder はHolderを生成する。nowがnilの場合はtime.Nowを使用する。
func NewHolder(store localstore.Store, now func() time.Time, logger *slog.Logger) *Holder {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{store: store, now: now, logger: logger}
}

// Get は保存済みトークンを返す。副作用はない。
// ストアの読み取りに失敗した場合は未保存として扱う。
func (h *Holder) Get(ctx context.Context) (string, bool) {
	tok, ok, err := h.store.Get(ctx, localstore.KeyToken)
	if err != nil {
		h.logger.Warn("トークンの読み取りに失敗しました", slog.String("error", err.Error()))
		return "", false
	}
	if !ok || tok == "" {
		return "", false
	}
	return tok, true
}

// Set はトークンを保存する。空文字列の場合は何もしない。
func (h *Holder) Set(ctx context.Context, tok string) error {
	if tok == "" {
		return nil
	}
	return h.store.Set(ctx, localstore.KeyToken, tok)
}

// Remove はトークンとキャッシュ済みのユーザー情報・会員契約を削除する。
// 未送信の一時保存契約は同期対象のため残す。何度呼んでもよい。
func (h *Holder) Remove(ctx context.Context) error {
	if err := h.store.Remove(ctx, localstore.KeyToken); err != nil {
		return err
	}
	if err := h.store.Remove(ctx, localstore.KeyUser); err != nil {
		return err
	}

	var sub struct {
		ID string `json:"id"`
	}
	found, err := localstore.GetJSON(ctx, h.store, localstore.KeySubscription, &sub)
	if err != nil || (found && !strings.HasPrefix(sub.ID, localIDPrefix)) {
		return h.store.Remove(ctx, localstore.KeySubscription)
	}
	return nil
}

// IsValid はトークンが有効期限内かどうかを返す。
// 3セグメントであること、2番目のセグメントがJSONオブジェクトにデコードできること、
// 数値のexpがfloor(現在時刻秒)より大きいことをすべて満たす場合のみtrue。
func (h *Holder) IsValid(tok string) bool {
	claims, ok := ParseClaims(tok)
	if !ok {
		return false
	}
	return claims.Exp > float64(h.now().Unix())
}

// Current は有効なトークンのみを返す。
// 保存済みトークンが無効な場合は削除してfalseを返す。
func (h *Holder) Current(ctx context.Context) (string, bool) {
	tok, ok := h.Get(ctx)
	if !ok {
		return "", false
	}
	if h.IsValid(tok) {
		return tok, true
	}
	if err := h.Remove(ctx); err != nil {
		h.logger.Warn("無効なトークンの削除に失敗しました", slog.String("error", err.Error()))
	}
	return "", false
}

// ParseClaims はトークンのペイロードを読み取る。署名は検証しない。
// 形式不正やexp欠落の場合はokにfalseを返す。
func ParseClaims(tok string) (Claims, bool) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return Claims{}, false
	}

	payload, ok := decodeSegment(parts[1])
	if !ok {
		return Claims{}, false
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Claims{}, false
	}
	expRaw, ok := raw["exp"]
	if !ok {
		return Claims{}, false
	}

	var claims Claims
	if err := json.Unmarshal(expRaw, &claims.Exp); err != nil {
		return Claims{}, false
	}
	if sub, ok := raw["sub"]; ok {
		json.Unmarshal(sub, &claims.Subject)
	}
	if role, ok := raw["role"]; ok {
		json.Unmarshal(role, &claims.Role)
	}
	return claims, true
}

// decodeSegment はURL安全・標準いずれのbase64アルファベットも、パディングの有無も受け付ける。
func decodeSegment(seg string) ([]byte, bool) {
	if seg == "" {
		return nil, false
	}
	trimmed := strings.TrimRight(seg, "=")
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(trimmed); err == nil {
			return b, true
		}
	}
	return nil, false
}
