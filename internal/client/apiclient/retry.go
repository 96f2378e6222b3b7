package apiclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/fitzone/internal/client/wire"
)

// Backoff はattempt回目の失敗後に待つ時間を返す。base * 2^(attempt-1)。
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// withRetry はfnを最大RetryAttempts回まで実行する。
// 認証エラー・408/429以外の4xx・オフライン・ネットワーク断は再試行しない。
// すべて失敗した場合は最後のエラーを返す。
func (c *Client) withRetry(ctx context.Context, path string, fn func(ctx context.Context) (*wire.Envelope, error)) (*wire.Envelope, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		env, err := fn(ctx)
		if err == nil {
			return env, nil
		}
		lastErr = err

		if !c.shouldRetry(err) {
			return nil, err
		}

		if attempt < c.cfg.RetryAttempts {
			delay := Backoff(c.cfg.RetryDelay, attempt)
			c.rec.RecordRetry(path)
			c.logger.Info("リクエストを再試行します",
				slog.String("path", path),
				slog.Int("next_attempt", attempt+1),
				slog.Int("max_attempts", c.cfg.RetryAttempts),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, lastErr
			}
		}
	}

	return nil, lastErr
}

func (c *Client) shouldRetry(err error) bool {
	if !c.conn.Online() {
		return false
	}
	return Retryable(err)
}
