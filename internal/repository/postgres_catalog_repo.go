package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/fitzone/internal/model"
)

// PostgresTrainerRepo はPostgreSQLを使用したトレーナーリポジトリ。
type PostgresTrainerRepo struct {
	db *sql.DB
}

// NewPostgresTrainerRepo はPostgresTrainerRepoを生成する。
func NewPostgresTrainerRepo(db *sql.DB) *PostgresTrainerRepo {
	return &PostgresTrainerRepo{db: db}
}

const trainerColumns = `id, name, specialization, experience, image, bio, certifications, stats, hourly_rate, created_at`

func scanTrainer(row interface{ Scan(...any) error }) (*model.Trainer, error) {
	t := &model.Trainer{}
	var stats []byte
	err := row.Scan(&t.ID, &t.Name, &t.Specialization, &t.Experience, &t.Image, &t.Bio,
		pq.Array(&t.Certifications), &stats, &t.HourlyRate, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &t.Stats); err != nil {
			return nil, fmt.Errorf("failed to decode trainer stats: %w", err)
		}
	}
	return t, nil
}

// List は全トレーナーを名前順で返す。
func (r *PostgresTrainerRepo) List(ctx context.Context) ([]*model.Trainer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+trainerColumns+` FROM trainers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list trainers: %w", err)
	}
	defer rows.Close()

	var trainers []*model.Trainer
	for rows.Next() {
		t, err := scanTrainer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trainer: %w", err)
		}
		trainers = append(trainers, t)
	}
	return trainers, rows.Err()
}

// FindByID は指定IDのトレーナーを取得する。見つからない場合はnilを返す。
func (r *PostgresTrainerRepo) FindByID(ctx context.Context, id string) (*model.Trainer, error) {
	t, err := scanTrainer(r.db.QueryRowContext(ctx, `SELECT `+trainerColumns+` FROM trainers WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find trainer by ID: %w", err)
	}
	return t, nil
}

// Upsert はIDをキーにトレーナーを作成または更新する。
func (r *PostgresTrainerRepo) Upsert(ctx context.Context, t *model.Trainer) error {
	stats, err := json.Marshal(t.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode trainer stats: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO trainers (`+trainerColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			specialization = EXCLUDED.specialization,
			experience = EXCLUDED.experience,
			image = EXCLUDED.image,
			bio = EXCLUDED.bio,
			certifications = EXCLUDED.certifications,
			stats = EXCLUDED.stats,
			hourly_rate = EXCLUDED.hourly_rate`,
		t.ID, t.Name, t.Specialization, t.Experience, t.Image, t.Bio,
		pq.Array(t.Certifications), string(stats), t.HourlyRate, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert trainer: %w", err)
	}
	return nil
}

// PostgresClassRepo はPostgreSQLを使用したクラスリポジトリ。
type PostgresClassRepo struct {
	db *sql.DB
}

// NewPostgresClassRepo はPostgresClassRepoを生成する。
func NewPostgresClassRepo(db *sql.DB) *PostgresClassRepo {
	return &PostgresClassRepo{db: db}
}

const classColumns = `id, name, trainer, trainer_id, type, difficulty, duration, day, time, max_spots, booked_spots, created_at`

// classOrder は曜日順（月曜始まり）、開催時刻順に並べる。
const classOrder = ` ORDER BY array_position(ARRAY['Monday','Tuesday','Wednesday','Thursday','Friday','Saturday','Sunday'], day), time, name`

func scanClass(row interface{ Scan(...any) error }) (*model.Class, error) {
	c := &model.Class{}
	err := row.Scan(&c.ID, &c.Name, &c.Trainer, &c.TrainerID, &c.Type, &c.Difficulty, &c.Duration,
		&c.Day, &c.Time, &c.MaxSpots, &c.BookedSpots, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresClassRepo) query(ctx context.Context, query string, args ...any) ([]*model.Class, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	var classes []*model.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// List は全クラスを曜日・時刻順で返す。
func (r *PostgresClassRepo) List(ctx context.Context) ([]*model.Class, error) {
	return r.query(ctx, `SELECT `+classColumns+` FROM classes`+classOrder)
}

// ListByDay は指定曜日のクラスを返す。
func (r *PostgresClassRepo) ListByDay(ctx context.Context, day string) ([]*model.Class, error) {
	return r.query(ctx, `SELECT `+classColumns+` FROM classes WHERE day = $1`+classOrder, day)
}

// FindByID は指定IDのクラスを取得する。見つからない場合はnilを返す。
func (r *PostgresClassRepo) FindByID(ctx context.Context, id string) (*model.Class, error) {
	c, err := scanClass(r.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find class by ID: %w", err)
	}
	return c, nil
}

// Upsert はIDをキーにクラスを作成または更新する。予約済み枠数は既存の値を維持する。
func (r *PostgresClassRepo) Upsert(ctx context.Context, c *model.Class) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO classes (`+classColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			trainer = EXCLUDED.trainer,
			trainer_id = EXCLUDED.trainer_id,
			type = EXCLUDED.type,
			difficulty = EXCLUDED.difficulty,
			duration = EXCLUDED.duration,
			day = EXCLUDED.day,
			time = EXCLUDED.time,
			max_spots = EXCLUDED.max_spots`,
		c.ID, c.Name, c.Trainer, c.TrainerID, c.Type, c.Difficulty, c.Duration,
		c.Day, c.Time, c.MaxSpots, c.BookedSpots, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert class: %w", err)
	}
	return nil
}

// AdjustBookedSpots は予約済み枠数をdeltaだけ増減する。
// 0未満または定員超過になる場合は更新せずfalseを返す。
func (r *PostgresClassRepo) AdjustBookedSpots(ctx context.Context, id string, delta int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE classes SET booked_spots = booked_spots + $2
		 WHERE id = $1 AND booked_spots + $2 >= 0 AND booked_spots + $2 <= max_spots`,
		id, delta,
	)
	if err != nil {
		return false, fmt.Errorf("failed to adjust booked spots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// PostgresPlanRepo はPostgreSQLを使用した会員プランリポジトリ。
type PostgresPlanRepo struct {
	db *sql.DB
}

// NewPostgresPlanRepo はPostgresPlanRepoを生成する。
func NewPostgresPlanRepo(db *sql.DB) *PostgresPlanRepo {
	return &PostgresPlanRepo{db: db}
}

const planColumns = `id, name, price, period, features, popular, icon_class, created_at`

func scanPlan(row interface{ Scan(...any) error }) (*model.MembershipPlan, error) {
	p := &model.MembershipPlan{}
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Period, pq.Array(&p.Features), &p.Popular, &p.IconClass, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List は全プランを価格順で返す。
func (r *PostgresPlanRepo) List(ctx context.Context) ([]*model.MembershipPlan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+planColumns+` FROM membership_plans ORDER BY price, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*model.MembershipPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// FindByID は指定IDのプランを取得する。見つからない場合はnilを返す。
func (r *PostgresPlanRepo) FindByID(ctx context.Context, id string) (*model.MembershipPlan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM membership_plans WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find plan by ID: %w", err)
	}
	return p, nil
}

// Upsert はIDをキーにプランを作成または更新する。
func (r *PostgresPlanRepo) Upsert(ctx context.Context, p *model.MembershipPlan) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO membership_plans (`+planColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			period = EXCLUDED.period,
			features = EXCLUDED.features,
			popular = EXCLUDED.popular,
			icon_class = EXCLUDED.icon_class`,
		p.ID, p.Name, p.Price, p.Period, pq.Array(p.Features), p.Popular, p.IconClass, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}
	return nil
}
