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

// MongoBookingRepo はMongoDBを使用した予約リポジトリ。
// 日付は "YYYY-MM-DD" 文字列で保存するため、文字列比較がそのまま日付順になる。
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo はMongoBookingRepoを生成する。
func NewMongoBookingRepo(db *mongo.Database) *MongoBookingRepo {
	return &MongoBookingRepo{coll: db.Collection(bookingsColl)}
}

// Create は予約を作成する。同一日時の予約が既に存在する場合はErrDuplicateを返す。
func (r *MongoBookingRepo) Create(ctx context.Context, b *model.Booking) error {
	_, err := r.coll.InsertOne(ctx, b)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// FindByID は指定IDの予約を取得する。見つからない場合はnilを返す。
func (r *MongoBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := findOne[model.Booking](ctx, r.coll, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return b, nil
}

// ExistsActiveSlot は同一ユーザー・同一日時にキャンセル以外の予約があるかを返す。
func (r *MongoBookingRepo) ExistsActiveSlot(ctx context.Context, userID, date, timeSlot string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "date", Value: date},
		{Key: "time", Value: timeSlot},
		{Key: "status", Value: bson.D{{Key: "$ne", Value: string(model.BookingCancelled)}}},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check booking slot: %w", err)
	}
	return n > 0, nil
}

func bookingFilterDoc(f model.BookingFilter) bson.D {
	filter := bson.D{{Key: "user_id", Value: f.UserID}}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: string(f.Status)})
	}
	if f.Kind != "" {
		filter = append(filter, bson.E{Key: "booking_type", Value: string(f.Kind)})
	}
	return filter
}

// List は条件に一致する予約を日付降順・作成日時降順で返す。
func (r *MongoBookingRepo) List(ctx context.Context, f model.BookingFilter) ([]*model.Booking, int, error) {
	filter := bookingFilterDoc(f)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetLimit(int64(f.Limit)).SetSkip(int64((page - 1) * f.Limit))
	}

	bookings, err := findAll[model.Booking](ctx, r.coll, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, int(total), nil
}

// Cancel は予約をcancelledにしてキャンセル日時を記録する。既にキャンセル済みの場合はfalseを返す。
func (r *MongoBookingRepo) Cancel(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "status", Value: bson.D{{Key: "$ne", Value: string(model.BookingCancelled)}}},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(model.BookingCancelled)},
			{Key: "cancelled_at", Value: at},
			{Key: "updated_at", Value: at},
		}}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// CountByStatus はユーザーの予約件数を状態別に返す。
func (r *MongoBookingRepo) CountByStatus(ctx context.Context, userID string) (map[model.BookingStatus]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "user_id", Value: userID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings by status: %w", err)
	}

	var rows []struct {
		Status model.BookingStatus `bson:"_id"`
		Count  int                 `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode booking counts: %w", err)
	}

	counts := make(map[model.BookingStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CompleteBefore は日付がbeforeより前のconfirmedの予約をcompletedにする。
func (r *MongoBookingRepo) CompleteBefore(ctx context.Context, before string, now time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.D{
			{Key: "status", Value: string(model.BookingConfirmed)},
			{Key: "date", Value: bson.D{{Key: "$lt", Value: before}}},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(model.BookingCompleted)},
			{Key: "updated_at", Value: now},
		}}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past bookings: %w", err)
	}
	return res.ModifiedCount, nil
}
