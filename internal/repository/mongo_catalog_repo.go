package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/fitzone/internal/model"
)

// MongoTrainerRepo はMongoDBを使用したトレーナーリポジトリ。
type MongoTrainerRepo struct {
	coll *mongo.Collection
}

// NewMongoTrainerRepo はMongoTrainerRepoを生成する。
func NewMongoTrainerRepo(db *mongo.Database) *MongoTrainerRepo {
	return &MongoTrainerRepo{coll: db.Collection(trainersColl)}
}

// List は全トレーナーを名前順で返す。
func (r *MongoTrainerRepo) List(ctx context.Context) ([]*model.Trainer, error) {
	trainers, err := findAll[model.Trainer](ctx, r.coll, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list trainers: %w", err)
	}
	return trainers, nil
}

// FindByID は指定IDのトレーナーを取得する。見つからない場合はnilを返す。
func (r *MongoTrainerRepo) FindByID(ctx context.Context, id string) (*model.Trainer, error) {
	t, err := findOne[model.Trainer](ctx, r.coll, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("failed to find trainer by ID: %w", err)
	}
	return t, nil
}

// Upsert はIDをキーにトレーナーを作成または更新する。
func (r *MongoTrainerRepo) Upsert(ctx context.Context, t *model.Trainer) error {
	_, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: t.ID}}, t, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert trainer: %w", err)
	}
	return nil
}

// MongoClassRepo はMongoDBを使用したクラスリポジトリ。
type MongoClassRepo struct {
	coll *mongo.Collection
}

// NewMongoClassRepo はMongoClassRepoを生成する。
func NewMongoClassRepo(db *mongo.Database) *MongoClassRepo {
	return &MongoClassRepo{coll: db.Collection(classesColl)}
}

// sortClasses は曜日順（月曜始まり）、開催時刻順に並べる。
func sortClasses(classes []*model.Class) {
	sort.SliceStable(classes, func(i, j int) bool {
		di := slices.Index(model.Weekdays, classes[i].Day)
		dj := slices.Index(model.Weekdays, classes[j].Day)
		if di != dj {
			return di < dj
		}
		if classes[i].Time != classes[j].Time {
			return classes[i].Time < classes[j].Time
		}
		return classes[i].Name < classes[j].Name
	})
}

// List は全クラスを曜日・時刻順で返す。
func (r *MongoClassRepo) List(ctx context.Context) ([]*model.Class, error) {
	classes, err := findAll[model.Class](ctx, r.coll, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	sortClasses(classes)
	return classes, nil
}

// ListByDay は指定曜日のクラスを返す。
func (r *MongoClassRepo) ListByDay(ctx context.Context, day string) ([]*model.Class, error) {
	classes, err := findAll[model.Class](ctx, r.coll, bson.D{{Key: "day", Value: day}})
	if err != nil {
		return nil, fmt.Errorf("failed to list classes by day: %w", err)
	}
	sortClasses(classes)
	return classes, nil
}

// FindByID は指定IDのクラスを取得する。見つからない場合はnilを返す。
func (r *MongoClassRepo) FindByID(ctx context.Context, id string) (*model.Class, error) {
	c, err := findOne[model.Class](ctx, r.coll, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("failed to find class by ID: %w", err)
	}
	return c, nil
}

// Upsert はIDをキーにクラスを作成または更新する。予約済み枠数は既存の値を維持する。
func (r *MongoClassRepo) Upsert(ctx context.Context, c *model.Class) error {
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "name", Value: c.Name},
			{Key: "trainer", Value: c.Trainer},
			{Key: "trainer_id", Value: c.TrainerID},
			{Key: "type", Value: c.Type},
			{Key: "difficulty", Value: c.Difficulty},
			{Key: "duration", Value: c.Duration},
			{Key: "day", Value: c.Day},
			{Key: "time", Value: c.Time},
			{Key: "max_spots", Value: c.MaxSpots},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "booked_spots", Value: c.BookedSpots},
			{Key: "created_at", Value: c.CreatedAt},
		}},
	}
	_, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: c.ID}}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert class: %w", err)
	}
	return nil
}

// AdjustBookedSpots は予約済み枠数をdeltaだけ増減する。
// 0未満または定員超過になる場合は更新せずfalseを返す。
func (r *MongoClassRepo) AdjustBookedSpots(ctx context.Context, id string, delta int) (bool, error) {
	next := bson.D{{Key: "$add", Value: bson.A{"$booked_spots", delta}}}
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$gte", Value: bson.A{next, 0}}},
			bson.D{{Key: "$lte", Value: bson.A{next, "$max_spots"}}},
		}}}},
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.D{{Key: "$inc", Value: bson.D{{Key: "booked_spots", Value: delta}}}})
	if err != nil {
		return false, fmt.Errorf("failed to adjust booked spots: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// MongoPlanRepo はMongoDBを使用した会員プランリポジトリ。
type MongoPlanRepo struct {
	coll *mongo.Collection
}

// NewMongoPlanRepo はMongoPlanRepoを生成する。
func NewMongoPlanRepo(db *mongo.Database) *MongoPlanRepo {
	return &MongoPlanRepo{coll: db.Collection(plansColl)}
}

// List は全プランを価格順で返す。
func (r *MongoPlanRepo) List(ctx context.Context) ([]*model.MembershipPlan, error) {
	sortByPrice := options.Find().SetSort(bson.D{{Key: "price", Value: 1}, {Key: "name", Value: 1}})
	plans, err := findAll[model.MembershipPlan](ctx, r.coll, bson.D{}, sortByPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// FindByID は指定IDのプランを取得する。見つからない場合はnilを返す。
func (r *MongoPlanRepo) FindByID(ctx context.Context, id string) (*model.MembershipPlan, error) {
	p, err := findOne[model.MembershipPlan](ctx, r.coll, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("failed to find plan by ID: %w", err)
	}
	return p, nil
}

// Upsert はIDをキーにプランを作成または更新する。
func (r *MongoPlanRepo) Upsert(ctx context.Context, p *model.MembershipPlan) error {
	_, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: p.ID}}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}
	return nil
}
