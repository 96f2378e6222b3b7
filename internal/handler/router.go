package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/fitzone/internal/metrics"
	"github.com/hitoshi/fitzone/internal/middleware"
	"github.com/hitoshi/fitzone/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.TokenAuthenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス。nilの場合は記録も/metricsの公開もしない。
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer

	// サービス
	AuthService       AuthServiceInterface
	BookingService    BookingServiceInterface
	MembershipService MembershipServiceInterface
	CatalogService    CatalogServiceInterface

	// ヘルスチェック
	Store Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → CORS → SecurityHeaders → Compress
//
// 公開ルートはIP単位、認証ルート（/api/users/register, /api/users/login）は認証用の制限を受ける。
// 保護ルートは BearerAuth → RateLimit(General) の順でユーザー単位に制限する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(chimw.Compress(5, "application/json"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "ROUTE_NOT_FOUND",
			Message:  "指定されたエンドポイントは存在しません。",
			Category: "validation",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusMethodNotAllowed, &model.APIError{
			Code:     "METHOD_NOT_ALLOWED",
			Message:  "このメソッドは使用できません。",
			Category: "validation",
		})
	})

	authHandler := NewAuthHandler(deps.AuthService)
	bookingHandler := NewBookingHandler(deps.BookingService)
	membershipHandler := NewMembershipHandler(deps.MembershipService)
	catalogHandler := NewCatalogHandler(deps.CatalogService)
	healthHandler := NewHealthHandler(deps.Store)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler.Health)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		// --- 認証不要のルート ---

		// ログイン・登録（認証用レート制限）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/users/register", authHandler.Register)
			r.Post("/users/login", authHandler.Login)
		})

		// 参照系（IP単位のレート制限）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/memberships/plans", membershipHandler.ListPlans)
			r.Get("/memberships/plans/{id}", membershipHandler.GetPlan)

			r.Get("/trainers", catalogHandler.ListTrainers)
			r.Get("/trainers/{id}", catalogHandler.GetTrainer)

			r.Get("/classes", catalogHandler.ListClasses)
			r.Get("/classes/day/{day}", catalogHandler.ListClassesByDay)
		})

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: BearerAuth → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewBearerAuthMiddleware(deps.Authenticator))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/users/me", authHandler.Me)
			r.Post("/users/refresh-token", authHandler.RefreshToken)

			r.Post("/memberships/subscribe", membershipHandler.Subscribe)
			r.Get("/memberships/my-subscription", membershipHandler.MySubscription)

			r.Post("/classes/book", bookingHandler.BookClass)
			r.Post("/trainers/book", bookingHandler.BookTrainer)

			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", bookingHandler.CreateBooking)
				r.Get("/", bookingHandler.ListBookings)
				r.Get("/stats/summary", bookingHandler.BookingStats)
				r.Get("/{id}", bookingHandler.GetBooking)
				r.Delete("/{id}", bookingHandler.CancelBooking)
			})
		})
	})

	return r
}
