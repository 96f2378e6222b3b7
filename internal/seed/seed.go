// Package seed は会員プラン・トレーナー・クラスの初期データを投入する。
// IDを固定してUpsertするため、何度実行しても同じ状態になる。
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/fitzone/internal/repository"
)

// Result は投入件数。
type Result struct {
	Plans    int
	Trainers int
	Classes  int
}

// Seeder は初期データの投入を行う。
type Seeder struct {
	plans    repository.PlanRepository
	trainers repository.TrainerRepository
	classes  repository.ClassRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewSeeder はSeederを生成する。
func NewSeeder(
	plans repository.PlanRepository,
	trainers repository.TrainerRepository,
	classes repository.ClassRepository,
	logger *slog.Logger,
) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		plans:    plans,
		trainers: trainers,
		classes:  classes,
		logger:   logger,
		now:      time.Now,
	}
}

// Run はプラン、トレーナー、クラスの順に投入する。
// クラスのトレーナーIDはトレーナー名から解決する。
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result
	now := s.now()

	for _, p := range Plans() {
		p.CreatedAt = now
		if err := s.plans.Upsert(ctx, p); err != nil {
			return res, fmt.Errorf("プラン %s の投入に失敗しました: %w", p.ID, err)
		}
		res.Plans++
	}
	s.logger.Info("membership plans seeded", slog.Int("count", res.Plans))

	trainerIDs := make(map[string]string)
	for _, t := range Trainers() {
		t.CreatedAt = now
		if err := s.trainers.Upsert(ctx, t); err != nil {
			return res, fmt.Errorf("トレーナー %s の投入に失敗しました: %w", t.ID, err)
		}
		trainerIDs[t.Name] = t.ID
		res.Trainers++
	}
	s.logger.Info("trainers seeded", slog.Int("count", res.Trainers))

	for _, c := range Classes() {
		c.ID = ClassID(c.Day, c.Time)
		c.TrainerID = trainerIDs[c.Trainer]
		c.CreatedAt = now
		if err := s.classes.Upsert(ctx, c); err != nil {
			return res, fmt.Errorf("クラス %s の投入に失敗しました: %w", c.ID, err)
		}
		res.Classes++
	}
	s.logger.Info("classes seeded", slog.Int("count", res.Classes))

	return res, nil
}

// ClassID は曜日と開始時刻から固定のクラスIDを組み立てる。
// 例: Monday, 06:00 → class-monday-0600
func ClassID(day, startTime string) string {
	return "class-" + strings.ToLower(day) + "-" + strings.ReplaceAll(startTime, ":", "")
}

