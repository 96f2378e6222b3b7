package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/fitzone/internal/client/wire"
)

const healthCheckTimeout = 3 * time.Second

// Pinger はストアの疎通確認に必要なインターフェース。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler はHealthHandlerを生成する。storeがnilの場合は常にokを返す。
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health はストアに接続できればok、できなければ503を返す。
// GET /health, GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, envelope{
				Success: false,
				Message: "データベースに接続できません。",
				Data:    wire.Health{Status: "unavailable"},
			})
			return
		}
	}
	writeSuccess(w, http.StatusOK, wire.Health{Status: "ok"})
}
