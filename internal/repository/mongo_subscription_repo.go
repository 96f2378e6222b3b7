package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/fitzone/internal/model"
)

// MongoSubscriptionRepo はMongoDBを使用した会員契約リポジトリ。
type MongoSubscriptionRepo struct {
	coll *mongo.Collection
}

// NewMongoSubscriptionRepo はMongoSubscriptionRepoを生成する。
func NewMongoSubscriptionRepo(db *mongo.Database) *MongoSubscriptionRepo {
	return &MongoSubscriptionRepo{coll: db.Collection(subscriptionsColl)}
}

// Create は会員契約を作成する。
func (r *MongoSubscriptionRepo) Create(ctx context.Context, s *model.Subscription) error {
	if _, err := r.coll.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// FindActiveByUserID はユーザーの有効な会員契約を返す。見つからない場合はnilを返す。
func (r *MongoSubscriptionRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	var s model.Subscription
	err := r.coll.FindOne(ctx,
		bson.D{
			{Key: "user_id", Value: userID},
			{Key: "status", Value: string(model.SubscriptionActive)},
		},
		options.FindOne().SetSort(bson.D{{Key: "start_date", Value: -1}}),
	).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	return &s, nil
}

// CancelActiveByUserID はユーザーの有効な会員契約をすべてcancelledにする。
func (r *MongoSubscriptionRepo) CancelActiveByUserID(ctx context.Context, userID string, now time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.D{
			{Key: "user_id", Value: userID},
			{Key: "status", Value: string(model.SubscriptionActive)},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(model.SubscriptionCancelled)},
			{Key: "updated_at", Value: now},
		}}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel active subscriptions: %w", err)
	}
	return res.ModifiedCount, nil
}

// ExpireEnded は終了日がnow以前の有効な会員契約をexpiredにする。
func (r *MongoSubscriptionRepo) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.D{
			{Key: "status", Value: string(model.SubscriptionActive)},
			{Key: "end_date", Value: bson.D{{Key: "$lte", Value: now}}},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(model.SubscriptionExpired)},
			{Key: "updated_at", Value: now},
		}}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return res.ModifiedCount, nil
}
