package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/fitzone/internal/model"
)

// MongoDBのコレクション名
const (
	usersColl         = "users"
	trainersColl      = "trainers"
	classesColl       = "classes"
	plansColl         = "membership_plans"
	subscriptionsColl = "subscriptions"
	bookingsColl      = "bookings"
)

// EnsureMongoIndexes は一意制約と検索用のインデックスを作成する。既に存在する場合は何もしない。
// 予約の部分一意インデックスは partialFilterExpression の $in を使うため MongoDB 6.0 以上が必要。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(usersColl).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	activeStatuses := bson.A{
		string(model.BookingPending),
		string(model.BookingConfirmed),
		string(model.BookingCompleted),
		string(model.BookingNoShow),
	}
	if _, err := db.Collection(bookingsColl).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}, {Key: "time", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: bson.D{{Key: "$in", Value: activeStatuses}}}}),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create bookings indexes: %w", err)
	}

	if _, err := db.Collection(subscriptionsColl).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create subscriptions index: %w", err)
	}

	if _, err := db.Collection(classesColl).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "day", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create classes index: %w", err)
	}
	return nil
}

// findOne は1件を取得してデコードする。見つからない場合はnilを返す。
func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.D) (*T, error) {
	var v T
	err := coll.FindOne(ctx, filter).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// findAll は条件に一致する全件をデコードして返す。
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]*T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var out []*T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
