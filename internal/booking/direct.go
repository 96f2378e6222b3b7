package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/fitzone/internal/model"
)

// ClassBookingInput はクラスIDを指定した予約の入力値。
// Dateが空の場合は次回の開催日を使う。
type ClassBookingInput struct {
	ClassID      string
	Date         string
	Participants int
	UserDetails  model.UserDetails
	Amount       float64
}

// TrainerBookingInput はトレーナーIDを指定した予約の入力値。
type TrainerBookingInput struct {
	TrainerID    string
	Date         string
	Time         string
	Participants int
	SessionType  model.SessionType
	UserDetails  model.UserDetails
	Amount       float64
}

// BookClass は登録済みのクラスを予約する。
// 時刻とスナップショットはクラスの情報を使い、作成処理はCreateと共通。
func (s *Service) BookClass(ctx context.Context, userID string, in ClassBookingInput) (*model.Booking, error) {
	classID := strings.TrimSpace(in.ClassID)
	if classID == "" {
		return nil, model.NewValidationError("classId を指定してください。")
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("クラスの取得に失敗しました: %w", err)
	}
	if class == nil {
		return nil, model.NewClassNotFoundError(classID)
	}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = nextOccurrence(s.now(), class.Day)
	} else if wd := model.WeekdayOf(date); wd != "" && !strings.EqualFold(wd, class.Day) {
		return nil, model.NewValidationError(fmt.Sprintf("%s は %s に開催されるクラスです。", class.Name, class.Day))
	}

	return s.Create(ctx, userID, CreateInput{
		Kind:         model.BookingKindClass,
		Class:        &model.ClassSnapshot{ID: class.ID, Name: class.Name},
		Date:         date,
		Time:         class.Time,
		Participants: in.Participants,
		UserDetails:  in.UserDetails,
		Amount:       in.Amount,
	})
}

// BookTrainer は登録済みのトレーナーとのセッションを予約する。
func (s *Service) BookTrainer(ctx context.Context, userID string, in TrainerBookingInput) (*model.Booking, error) {
	trainerID := strings.TrimSpace(in.TrainerID)
	if trainerID == "" {
		return nil, model.NewValidationError("trainerId を指定してください。")
	}

	trainer, err := s.trainers.FindByID(ctx, trainerID)
	if err != nil {
		return nil, fmt.Errorf("トレーナーの取得に失敗しました: %w", err)
	}
	if trainer == nil {
		return nil, model.NewTrainerNotFoundError(trainerID)
	}

	return s.Create(ctx, userID, CreateInput{
		Kind: model.BookingKindTrainer,
		Trainer: &model.TrainerSnapshot{
			ID:             trainer.ID,
			Name:           trainer.Name,
			Specialization: trainer.Specialization,
		},
		Date:         in.Date,
		Time:         in.Time,
		Participants: in.Participants,
		SessionType:  in.SessionType,
		UserDetails:  in.UserDetails,
		Amount:       in.Amount,
	})
}

// nextOccurrence はnowの日付以降で最初にdayとなる日付を返す。当日を含む。
// dayが曜日名でない場合はnowの日付を返す。
func nextOccurrence(now time.Time, day string) string {
	d, ok := model.NormalizeWeekday(day)
	if !ok {
		return now.Format(model.DateLayout)
	}
	for i := 0; i < 7; i++ {
		t := now.AddDate(0, 0, i)
		if t.Weekday().String() == d {
			return t.Format(model.DateLayout)
		}
	}
	return now.Format(model.DateLayout)
}
