package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/fitzone/internal/auth"
	"github.com/hitoshi/fitzone/internal/booking"
	"github.com/hitoshi/fitzone/internal/catalog"
	"github.com/hitoshi/fitzone/internal/config"
	"github.com/hitoshi/fitzone/internal/database"
	"github.com/hitoshi/fitzone/internal/handler"
	"github.com/hitoshi/fitzone/internal/logger"
	"github.com/hitoshi/fitzone/internal/membership"
	"github.com/hitoshi/fitzone/internal/metrics"
	"github.com/hitoshi/fitzone/internal/middleware"
	"github.com/hitoshi/fitzone/internal/repository"
	"github.com/hitoshi/fitzone/internal/security"
	"github.com/hitoshi/fitzone/internal/seed"
	"github.com/hitoshi/fitzone/internal/worker/expiry"
)

// dotEnvPath は起動時に読み込む.envファイルのパス。
const dotEnvPath = ".env"

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	if err := config.LoadDotEnv(dotEnvPath); err != nil {
		return nil, err
	}

	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck と client はサーバー設定を必要としないため、フル初期化をスキップする
	switch cmd {
	case CommandHealthcheck:
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "5000"
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	case CommandClient:
		if err := config.LoadDotEnv(dotEnvPath); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runClient(ctx, os.Stdout, w, config.LoadClient(), subArgs(args))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("store_driver", string(cfg.StoreDriver)),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 永続化先に接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)
	defer rateLimiter.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      newAPIHandler(cfg, st, rateLimiter, metrics.NewCollector(reg), reg, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// newAPIHandler はリポジトリ一式からサービスとルーターを構築する。
func newAPIHandler(
	cfg *config.Config,
	st *stores,
	rateLimiter *middleware.RateLimiter,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
	log *slog.Logger,
) http.Handler {
	var recorder metrics.MetricsCollector = metrics.NopCollector{}
	if collector != nil {
		recorder = collector
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpire, time.Now)
	authService := auth.NewService(st.users, tokens, auth.ServiceConfig{})
	bookingService := booking.NewService(
		st.bookings, st.classes, st.trainers, st.users,
		security.NewTextSanitizer(0),
		recorder,
	)
	membershipService := membership.NewService(st.plans, st.subscriptions, recorder)
	catalogService := catalog.NewService(st.trainers, st.classes)

	return handler.NewRouter(&handler.RouterDeps{
		Authenticator:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            log,

		Metrics:  collector,
		Gatherer: gatherer,

		AuthService:       authService,
		BookingService:    bookingService,
		MembershipService: membershipService,
		CatalogService:    catalogService,

		Store: st.pinger,
	})
}

// runWorker はワーカーモードで起動する。
// 期限切れ処理ジョブをEXPIRY_INTERVALごとに実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	job := expiry.NewJob(st.subscriptions, st.bookings, nil, log)

	log.Info("worker starting", slog.Duration("expiry_interval", cfg.ExpiryInterval))

	// コンテキストがキャンセルされるまでブロックする
	job.Start(ctx, cfg.ExpiryInterval)

	log.Info("worker stopped gracefully")
	return nil
}

// runMigrate はスキーマを最新化する。
// PostgreSQLでは未適用マイグレーションを順番に適用し、MongoDBではインデックスを作成する。
func runMigrate(cfg *config.Config) error {
	if cfg.StoreDriver == config.StoreMongo {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		client, db, err := database.OpenMongo(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		slog.Info("ensuring mongodb indexes", slog.String("database", cfg.MongoDatabase))
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("mongodb indexes are up to date")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed はプラン・トレーナー・クラスの初期データを投入する。
// 固定IDでupsertするため、何度実行しても重複しない。
func runSeed(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log := slog.Default()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	res, err := seed.NewSeeder(st.plans, st.trainers, st.classes, log).Run(ctx)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	log.Info("seed completed",
		slog.Int("plans", res.Plans),
		slog.Int("trainers", res.Trainers),
		slog.Int("classes", res.Classes),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
