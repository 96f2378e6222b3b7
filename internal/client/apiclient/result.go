package apiclient

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hitoshi/fitzone/internal/client/wire"
)

// Result は読み取り・書き込み操作の結果。
// IsOffline はキャッシュ・フォールバック・ローカル保存から返した場合にtrueになる。
type Result[T any] struct {
	Data       T
	Message    string
	Pagination *wire.Pagination
	IsOffline  bool
	AuthError  bool   // 認証エラーのためローカル処理に切り替えた場合true
	Error      string // フォールバックに切り替えた原因の画面表示用メッセージ
}

// fetch は読み取り系の共通処理。
//
// オフライン時はキャッシュ、なければフォールバックを返し、通信は行わない。
// オンライン時はキャッシュを優先し、なければ再試行付きで取得して成功時にキャッシュする。
// 取得に失敗した場合、フォールバックがあればオフライン扱いで返し、なければエラーを返す。
// cacheKeyが空の場合はキャッシュを使わない。
func fetch[T any](ctx context.Context, c *Client, req *request, cacheKey string, fallback *T) (Result[T], error) {
	if !c.conn.Online() {
		if res, ok := cacheLookup[T](c, cacheKey); ok {
			res.IsOffline = true
			return res, nil
		}
		if fallback != nil {
			c.rec.RecordFallback(cacheKey)
			return Result[T]{Data: *fallback, IsOffline: true, Error: msgOffline}, nil
		}
		return Result[T]{}, offlineError(msgOffline)
	}

	if res, ok := cacheLookup[T](c, cacheKey); ok {
		return res, nil
	}

	req.retry = true
	env, err := c.do(ctx, req)
	if err == nil {
		var res Result[T]
		res, err = decodeResult[T](env)
		if err == nil {
			if cacheKey != "" && !env.Failed() {
				cacheStore(c, cacheKey, res)
			}
			return res, nil
		}
	}

	if fallback == nil {
		return Result[T]{}, err
	}

	c.logger.Warn("APIの取得に失敗したためフォールバックを返します",
		slog.String("path", req.path),
		slog.String("cache_key", cacheKey),
		slog.String("error", err.Error()),
	)
	c.rec.RecordFallback(cacheKey)
	res := Result[T]{
		Data:      *fallback,
		IsOffline: true,
		AuthError: IsAuthError(err),
		Error:     UserMessage(err),
	}
	if cacheKey != "" {
		cacheStore(c, cacheKey, res)
	}
	return res, nil
}

// send は書き込み系の共通処理。再試行・キャッシュ・フォールバックは行わない。
func send[T any](ctx context.Context, c *Client, req *request) (Result[T], error) {
	env, err := c.do(ctx, req)
	if err != nil {
		return Result[T]{}, err
	}
	return decodeResult[T](env)
}

// decodeResult はエンベロープのdataをTとしてデコードする。
// dataが空またはnullの場合はTのゼロ値を返す。
func decodeResult[T any](env *wire.Envelope) (Result[T], error) {
	res := Result[T]{Message: env.Message, Pagination: env.Pagination}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return res, nil
	}
	if err := json.Unmarshal(env.Data, &res.Data); err != nil {
		return Result[T]{}, &Error{
			Kind:        KindParse,
			Message:     "レスポンスデータの解析に失敗しました",
			UserMessage: msgTransient,
			Err:         err,
		}
	}
	return res, nil
}

func cacheLookup[T any](c *Client, key string) (Result[T], bool) {
	if key == "" {
		return Result[T]{}, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		c.rec.RecordCacheMiss(key)
		return Result[T]{}, false
	}
	res, ok := v.(Result[T])
	if !ok {
		c.cache.Delete(key)
		c.rec.RecordCacheMiss(key)
		return Result[T]{}, false
	}
	c.rec.RecordCacheHit(key)
	return res, true
}

func cacheStore[T any](c *Client, key string, res Result[T]) {
	c.cache.Set(key, res, c.cfg.CacheTTL)
}
