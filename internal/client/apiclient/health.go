package apiclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/fitzone/internal/client/wire"
)

const healthTimeout = 5 * time.Second

// HealthResult はヘルスチェックの結果。
type HealthResult struct {
	wire.Health
	Online bool
	Error  string
}

// HealthURL はAPIのベースURLからヘルスチェックURLを求める。
// ベースURLが /api で終わる場合はその親の /health を指す。
func HealthURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	base = strings.TrimSuffix(base, "/api")
	return base + "/health"
}

// Health はAPIサーバーのヘルスチェックを行う。失敗してもエラーは返さない。
func (c *Client) Health(ctx context.Context) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	env, err := c.do(ctx, &request{method: http.MethodGet, path: "/health", anonymous: true})
	if err != nil {
		return HealthResult{Health: wire.Health{Status: "unavailable"}, Error: UserMessage(err)}
	}

	res, err := decodeResult[wire.Health](env)
	if err != nil {
		return HealthResult{Health: wire.Health{Status: "unavailable"}, Error: UserMessage(err)}
	}
	if res.Data.Status == "" {
		res.Data.Status = "ok"
	}
	return HealthResult{Health: res.Data, Online: true}
}
