// Package booking は予約管理のドメインロジックを提供する。
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fitzone/internal/metrics"
	"github.com/hitoshi/fitzone/internal/model"
	"github.com/hitoshi/fitzone/internal/repository"
	"github.com/hitoshi/fitzone/internal/security"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxParticipants = 50
)

// CreateInput は予約作成の入力値。
type CreateInput struct {
	Kind         model.BookingKind
	Class        *model.ClassSnapshot
	Trainer      *model.TrainerSnapshot
	Date         string
	Time         string
	Participants int
	SessionType  model.SessionType
	UserDetails  model.UserDetails
	Amount       float64
}

// ListParams は予約一覧の検索条件。Pageは1始まり。
type ListParams struct {
	Status string
	Kind   string
	Page   int
	Limit  int
}

// ListResult は予約一覧とページ情報。
type ListResult struct {
	Bookings   []*model.Booking
	Pagination model.Pagination
}

// Stats はユーザーの予約件数の集計。
type Stats struct {
	Total     int
	Confirmed int
	Pending   int
	Cancelled int
	Completed int
}

// Service は予約管理のサービス層。
// 予約の作成・一覧・取得・キャンセルと、クラスの予約枠数の増減を扱う。
type Service struct {
	bookings  repository.BookingRepository
	classes   repository.ClassRepository
	trainers  repository.TrainerRepository
	users     repository.UserRepository
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	bookings repository.BookingRepository,
	classes repository.ClassRepository,
	trainers repository.TrainerRepository,
	users repository.UserRepository,
	sanitizer security.TextSanitizer,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		bookings:  bookings,
		classes:   classes,
		trainers:  trainers,
		users:     users,
		sanitizer: sanitizer,
		metrics:   collector,
		now:       time.Now,
	}
}

// Create は予約を作成する。
// 同一日時に有効な予約がある場合はBOOKING_CONFLICT、クラスが満席の場合はCLASS_FULLを返す。
// 作成した予約はconfirmed、支払いはpendingになる。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*model.Booking, error) {
	if err := normalizeInput(&in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	details := s.userDetails(in.UserDetails, user)

	exists, err := s.bookings.ExistsActiveSlot(ctx, userID, in.Date, in.Time)
	if err != nil {
		return nil, fmt.Errorf("予約の重複確認に失敗しました: %w", err)
	}
	if exists {
		return nil, model.NewBookingConflictError()
	}

	// 登録済みのクラスを予約する場合は枠を確保し、スナップショットの欠けを補う
	reservedClassID := ""
	if in.Kind == model.BookingKindClass && in.Class.ID != "" {
		class, err := s.classes.FindByID(ctx, in.Class.ID)
		if err != nil {
			return nil, fmt.Errorf("クラスの取得に失敗しました: %w", err)
		}
		if class != nil {
			ok, err := s.classes.AdjustBookedSpots(ctx, class.ID, in.Participants)
			if err != nil {
				return nil, fmt.Errorf("予約枠の確保に失敗しました: %w", err)
			}
			if !ok {
				return nil, model.NewClassFullError()
			}
			reservedClassID = class.ID
			fillClassSnapshot(in.Class, class)
		}
	}

	now := s.now()
	b := &model.Booking{
		ID:            uuid.New().String(),
		UserID:        userID,
		Kind:          in.Kind,
		Class:         in.Class,
		Trainer:       in.Trainer,
		Date:          in.Date,
		Time:          in.Time,
		Day:           model.WeekdayOf(in.Date),
		Status:        model.BookingConfirmed,
		Participants:  in.Participants,
		SessionType:   in.SessionType,
		UserDetails:   details,
		Amount:        in.Amount,
		PaymentStatus: model.PaymentPending,
		BookedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		if reservedClassID != "" {
			s.releaseSpots(ctx, reservedClassID, in.Participants)
		}
		// 確認と作成の間に同じ日時で予約された場合
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewBookingConflictError()
		}
		return nil, fmt.Errorf("予約の作成に失敗しました: %w", err)
	}

	s.metrics.RecordBookingCreated(string(b.Kind))
	slog.Info("booking created",
		slog.String("booking_id", b.ID),
		slog.String("user_id", userID),
		slog.String("booking_type", string(b.Kind)),
		slog.String("date", b.Date),
		slog.Int("participants", b.Participants),
	)
	return b, nil
}

// List はユーザーの予約一覧を日付の新しい順に返す。
func (s *Service) List(ctx context.Context, userID string, p ListParams) (*ListResult, error) {
	filter := model.BookingFilter{UserID: userID, Page: p.Page, Limit: p.Limit}

	if p.Status != "" {
		st := model.BookingStatus(p.Status)
		if !validListStatus(st) {
			return nil, model.NewValidationError(fmt.Sprintf("無効な予約状態です: %s", p.Status))
		}
		filter.Status = st
	}
	if p.Kind != "" {
		k := model.BookingKind(p.Kind)
		if k != model.BookingKindClass && k != model.BookingKindTrainer {
			return nil, model.NewValidationError(fmt.Sprintf("無効な予約種別です: %s", p.Kind))
		}
		filter.Kind = k
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	return &ListResult{
		Bookings:   bookings,
		Pagination: model.NewPagination(filter.Page, filter.Limit, len(bookings), total),
	}, nil
}

// Get は予約を1件返す。他のユーザーの予約はBOOKING_FORBIDDENになる。
func (s *Service) Get(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("予約の取得に失敗しました: %w", err)
	}
	if b == nil {
		return nil, model.NewBookingNotFoundError(bookingID)
	}
	if b.UserID != userID {
		return nil, model.NewBookingForbiddenError()
	}
	return b, nil
}

// Cancel は予約をキャンセルし、クラス予約の場合は枠を戻す。
// 予約は削除せずcancelledとして残す。
func (s *Service) Cancel(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	b, err := s.Get(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case model.BookingCancelled:
		return nil, model.NewBookingAlreadyCancelledError()
	case model.BookingCompleted, model.BookingNoShow:
		return nil, model.NewValidationError("終了した予約はキャンセルできません。")
	}

	now := s.now()
	ok, err := s.bookings.Cancel(ctx, b.ID, now)
	if err != nil {
		return nil, fmt.Errorf("予約のキャンセルに失敗しました: %w", err)
	}
	if !ok {
		// 同時に別のリクエストでキャンセルされた
		return nil, model.NewBookingAlreadyCancelledError()
	}

	if b.Kind == model.BookingKindClass && b.Class != nil && b.Class.ID != "" {
		s.releaseSpots(ctx, b.Class.ID, b.Participants)
	}

	b.Status = model.BookingCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now

	s.metrics.RecordBookingCancelled()
	slog.Info("booking cancelled",
		slog.String("booking_id", b.ID),
		slog.String("user_id", userID),
	)
	return b, nil
}

// Stats はユーザーの予約件数を状態別に集計する。
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	counts, err := s.bookings.CountByStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("予約件数の集計に失敗しました: %w", err)
	}

	st := &Stats{
		Confirmed: counts[model.BookingConfirmed],
		Pending:   counts[model.BookingPending],
		Cancelled: counts[model.BookingCancelled],
		Completed: counts[model.BookingCompleted],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

// releaseSpots はクラスの予約枠を戻す。失敗しても予約操作自体は成功として扱う。
func (s *Service) releaseSpots(ctx context.Context, classID string, participants int) {
	ok, err := s.classes.AdjustBookedSpots(ctx, classID, -participants)
	if err != nil || !ok {
		slog.Warn("failed to release class spots",
			slog.String("class_id", classID),
			slog.Int("participants", participants),
			slog.Any("error", err),
		)
	}
}

// userDetails は連絡先の未入力項目をユーザー情報で補い、自由入力欄をサニタイズする。
func (s *Service) userDetails(in model.UserDetails, user *model.User) model.UserDetails {
	out := model.UserDetails{
		Name:  s.sanitizer.Sanitize(in.Name),
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Phone: s.sanitizer.Sanitize(in.Phone),
		Notes: s.sanitizer.SanitizeNote(in.Notes),
	}
	if out.Name == "" {
		out.Name = user.Name
	}
	if out.Email == "" {
		out.Email = user.Email
	}
	if out.Phone == "" {
		out.Phone = user.Phone
	}
	return out
}

// normalizeInput は入力値を検証し、既定値を補う。
func normalizeInput(in *CreateInput) error {
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)

	switch in.Kind {
	case model.BookingKindClass:
		if in.Class == nil || strings.TrimSpace(in.Class.Name) == "" {
			return model.NewValidationError("クラス予約にはクラス情報が必要です。")
		}
		in.Trainer = nil
	case model.BookingKindTrainer:
		if in.Trainer == nil || strings.TrimSpace(in.Trainer.Name) == "" {
			return model.NewValidationError("トレーナー予約にはトレーナー情報が必要です。")
		}
		in.Class = nil
	default:
		return model.NewValidationError("予約種別は class または trainer を指定してください。")
	}

	if _, err := time.Parse(model.DateLayout, in.Date); err != nil {
		return model.NewValidationError("日付は YYYY-MM-DD 形式で指定してください。")
	}
	if in.Time == "" {
		return model.NewValidationError("時刻を指定してください。")
	}

	if in.Participants == 0 {
		in.Participants = 1
	}
	if in.Participants < 1 || in.Participants > maxParticipants {
		return model.NewValidationError(fmt.Sprintf("参加人数は1から%dの範囲で指定してください。", maxParticipants))
	}

	if in.SessionType == "" {
		if in.Kind == model.BookingKindClass {
			in.SessionType = model.SessionClass
		} else {
			in.SessionType = model.SessionPersonal
		}
	}
	if !in.SessionType.Valid() {
		return model.NewValidationError(fmt.Sprintf("無効なセッション種別です: %s", in.SessionType))
	}

	if in.Amount < 0 {
		return model.NewValidationError("金額は0以上で指定してください。")
	}
	return nil
}

// fillClassSnapshot はスナップショットの未入力項目を登録済みクラスの値で補う。
func fillClassSnapshot(snap *model.ClassSnapshot, class *model.Class) {
	if snap.Type == "" {
		snap.Type = class.Type
	}
	if snap.Trainer == "" {
		snap.Trainer = class.Trainer
	}
	if snap.Difficulty == "" {
		snap.Difficulty = class.Difficulty
	}
	if snap.Duration == 0 {
		snap.Duration = class.Duration
	}
	if snap.MaxParticipants == 0 {
		snap.MaxParticipants = class.MaxSpots
	}
}

func validListStatus(st model.BookingStatus) bool {
	switch st {
	case model.BookingPending, model.BookingConfirmed, model.BookingCancelled, model.BookingCompleted, model.BookingNoShow:
		return true
	}
	return false
}
