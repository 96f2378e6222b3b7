package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hitoshi/fitzone/internal/config"
	"github.com/hitoshi/fitzone/internal/database"
	"github.com/hitoshi/fitzone/internal/repository"
)

// stores はSTORE_DRIVERに応じて選択したリポジトリ一式。
type stores struct {
	users         repository.UserRepository
	trainers      repository.TrainerRepository
	classes       repository.ClassRepository
	plans         repository.PlanRepository
	subscriptions repository.SubscriptionRepository
	bookings      repository.BookingRepository

	pinger storePinger
	close  func(ctx context.Context) error
}

// storePinger は永続化先の疎通確認。handler.Pingerを満たす。
type storePinger interface {
	Ping(ctx context.Context) error
}

// sqlPinger は*sql.DBをstorePingerに適合させる。
type sqlPinger struct{ db *sql.DB }

func (p sqlPinger) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// mongoPinger は*mongo.ClientをstorePingerに適合させる。
type mongoPinger struct{ client *mongo.Client }

func (p mongoPinger) Ping(ctx context.Context) error { return database.PingMongo(ctx, p.client) }

// openStores は設定されたドライバーで永続化先に接続し、リポジトリを構築する。
// 接続確認に失敗した場合は開いた接続を閉じてエラーを返す。
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		return openMongoStores(ctx, cfg, logger)
	default:
		return openPostgresStores(ctx, cfg, logger)
	}
}

func openPostgresStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("database connection established", slog.String("driver", string(config.StorePostgres)))

	return &stores{
		users:         repository.NewPostgresUserRepo(db),
		trainers:      repository.NewPostgresTrainerRepo(db),
		classes:       repository.NewPostgresClassRepo(db),
		plans:         repository.NewPostgresPlanRepo(db),
		subscriptions: repository.NewPostgresSubscriptionRepo(db),
		bookings:      repository.NewPostgresBookingRepo(db),
		pinger:        sqlPinger{db: db},
		close: func(context.Context) error {
			return db.Close()
		},
	}, nil
}

func openMongoStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	client, db, err := database.OpenMongo(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	if err := database.PingMongo(ctx, client); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ensure mongodb indexes: %w", err)
	}

	logger.Info("database connection established",
		slog.String("driver", string(config.StoreMongo)),
		slog.String("database", cfg.MongoDatabase),
	)

	return &stores{
		users:         repository.NewMongoUserRepo(db),
		trainers:      repository.NewMongoTrainerRepo(db),
		classes:       repository.NewMongoClassRepo(db),
		plans:         repository.NewMongoPlanRepo(db),
		subscriptions: repository.NewMongoSubscriptionRepo(db),
		bookings:      repository.NewMongoBookingRepo(db),
		pinger:        mongoPinger{client: client},
		close:         client.Disconnect,
	}, nil
}
