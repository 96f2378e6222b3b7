// Package catalog はトレーナーとクラススケジュールの参照を提供する。
package catalog

import (
	"context"
	"fmt"

	"github.com/hitoshi/fitzone/internal/model"
	"github.com/hitoshi/fitzone/internal/repository"
)

// Service はトレーナー・クラスの参照サービス。
type Service struct {
	trainers repository.TrainerRepository
	classes  repository.ClassRepository
}

// NewService はServiceを生成する。
func NewService(trainers repository.TrainerRepository, classes repository.ClassRepository) *Service {
	return &Service{trainers: trainers, classes: classes}
}

// Trainers は全トレーナーを返す。
func (s *Service) Trainers(ctx context.Context) ([]*model.Trainer, error) {
	trainers, err := s.trainers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("トレーナー一覧の取得に失敗しました: %w", err)
	}
	if trainers == nil {
		trainers = []*model.Trainer{}
	}
	return trainers, nil
}

// Trainer はトレーナーを1件返す。存在しない場合はTRAINER_NOT_FOUNDを返す。
func (s *Service) Trainer(ctx context.Context, id string) (*model.Trainer, error) {
	trainer, err := s.trainers.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("トレーナーの取得に失敗しました: %w", err)
	}
	if trainer == nil {
		return nil, model.NewTrainerNotFoundError(id)
	}
	return trainer, nil
}

// Classes は全クラスを返す。
func (s *Service) Classes(ctx context.Context) ([]*model.Class, error) {
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("クラス一覧の取得に失敗しました: %w", err)
	}
	if classes == nil {
		classes = []*model.Class{}
	}
	return classes, nil
}

// ClassesByDay は指定曜日のクラスを返す。曜日名は大文字小文字を区別しない。
func (s *Service) ClassesByDay(ctx context.Context, day string) ([]*model.Class, error) {
	normalized, ok := model.NormalizeWeekday(day)
	if !ok {
		return nil, model.NewInvalidDayError(day)
	}
	classes, err := s.classes.ListByDay(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("曜日別クラスの取得に失敗しました: %w", err)
	}
	if classes == nil {
		classes = []*model.Class{}
	}
	return classes, nil
}
