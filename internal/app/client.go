package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/fitzone/internal/client/apiclient"
	"github.com/hitoshi/fitzone/internal/client/bookingsync"
	"github.com/hitoshi/fitzone/internal/client/localstore"
	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/config"
	"github.com/hitoshi/fitzone/internal/logger"
	"github.com/hitoshi/fitzone/internal/metrics"
)

// connectivityTTL はオンライン判定結果を再利用する期間。
const connectivityTTL = 30 * time.Second

// clientUsage はclientサブコマンドの使い方。
const clientUsage = `usage: fitzone client <action> [args]

actions:
  health                  APIの稼働状況を表示する
  login <email> [pass]    ログインし、一時保存データを同期する（passはFITZONE_PASSWORDでも指定可）
  logout                  保存済みトークンを破棄する
  sync                    一時保存した予約と会員契約をサーバーへ送信する
  bookings                サーバーとローカルを統合した予約一覧を表示する
  plans                   会員プラン一覧を表示する
  trainers                トレーナー一覧を表示する
  classes [day]           クラス一覧を表示する（曜日指定可）
  subscription            現在の会員契約を表示する
`

// errUsage は引数が不正な場合のエラー。
var errUsage = errors.New("invalid client arguments")

// clientSession はCLI実行1回分のクライアント一式。
type clientSession struct {
	client *apiclient.Client
	syncer *bookingsync.Syncer
	store  localstore.ClosableStore
	logger *slog.Logger
}

// newClientSession はローカルストアを開き、APIクライアントと同期処理を構築する。
func newClientSession(ctx context.Context, cfg *config.ClientConfig, log *slog.Logger, httpClient *http.Client) (*clientSession, error) {
	store, err := localstore.Open(ctx, localstore.Options{
		Driver:        cfg.LocalStoreDriver,
		Path:          cfg.LocalStorePath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisPrefix:   cfg.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	recorder := metrics.NewClientCollector(prometheus.NewRegistry())

	client := apiclient.New(apiclient.Config{
		BaseURL:       cfg.APIURL,
		Timeout:       cfg.Timeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		CacheTTL:      cfg.CacheDuration,
		RedirectDelay: cfg.RedirectDelay,
	}, apiclient.Deps{
		HTTPClient:   httpClient,
		Store:        store,
		Connectivity: apiclient.NewHealthProbe(apiclient.HealthURL(cfg.APIURL), httpClient, connectivityTTL, nil),
		Recorder:     recorder,
		Logger:       log,
	})

	syncer := bookingsync.New(client, store, log,
		bookingsync.WithCache(client.Cache()),
		bookingsync.WithRecorder(recorder),
	)

	return &clientSession{client: client, syncer: syncer, store: store, logger: log}, nil
}

// runClient はclientサブコマンドを実行し、結果をJSONでoutへ書き出す。
// ログはlogOutへ出力する。
func runClient(ctx context.Context, out, logOut io.Writer, cfg *config.ClientConfig, args []string) error {
	return runClientWith(ctx, out, logOut, cfg, args, nil)
}

func runClientWith(ctx context.Context, out, logOut io.Writer, cfg *config.ClientConfig, args []string, httpClient *http.Client) error {
	if len(args) == 0 {
		fmt.Fprint(out, clientUsage)
		return errUsage
	}

	log := logger.SetupWithLevel(logOut, logger.ParseLevel(cfg.LogLevel))

	sess, err := newClientSession(ctx, cfg, log, httpClient)
	if err != nil {
		return err
	}
	defer sess.store.Close()

	switch args[0] {
	case "health":
		return writeJSON(out, sess.client.Health(ctx))

	case "login":
		return sess.login(ctx, out, args[1:])

	case "logout":
		sess.client.Logout(ctx)
		return writeJSON(out, map[string]bool{"loggedOut": true})

	case "sync":
		return sess.sync(ctx, out)

	case "bookings":
		bookings, err := sess.syncer.MergedBookings(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, bookings)

	case "plans":
		res, err := sess.client.Plans(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, res)

	case "trainers":
		res, err := sess.client.Trainers(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, res)

	case "classes":
		var res apiclient.Result[[]wire.Class]
		if len(args) > 1 {
			res, err = sess.client.ClassesByDay(ctx, args[1])
		} else {
			res, err = sess.client.Classes(ctx)
		}
		if err != nil {
			return err
		}
		return writeJSON(out, res)

	case "subscription":
		res, err := sess.client.MySubscription(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, res)

	default:
		fmt.Fprint(out, clientUsage)
		return fmt.Errorf("%w: unknown action %q", errUsage, args[0])
	}
}

// login はログインし、成功したら一時保存データの同期まで行う。
func (s *clientSession) login(ctx context.Context, out io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: login requires an email", errUsage)
	}
	password := os.Getenv("FITZONE_PASSWORD")
	if len(args) > 1 {
		password = args[1]
	}

	payload, err := s.client.Login(ctx, wire.Credentials{Email: args[0], Password: password})
	if err != nil {
		return err
	}

	report, subSynced := s.runSync(ctx)

	return writeJSON(out, map[string]any{
		"user":               payload.User,
		"sync":               report,
		"subscriptionSynced": subSynced,
	})
}

// sync は一時保存した予約と会員契約を送信する。
func (s *clientSession) sync(ctx context.Context, out io.Writer) error {
	report, subSynced := s.runSync(ctx)
	return writeJSON(out, map[string]any{
		"sync":               report,
		"subscriptionSynced": subSynced,
	})
}

// runSync は予約、会員契約の順に同期する。会員契約の失敗はログに残して続行する。
func (s *clientSession) runSync(ctx context.Context) (bookingsync.Report, bool) {
	report := s.syncer.Sync(ctx)
	subSynced, err := s.syncer.SyncSubscription(ctx)
	if err != nil {
		s.logger.Warn("会員契約の同期に失敗しました", slog.String("error", err.Error()))
		return report, false
	}
	return report, subSynced
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
