package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/middleware"
	"github.com/hitoshi/fitzone/internal/model"
)

// envelope はAPIレスポンスの共通フォーマット。
type envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Data       any              `json:"data"`
	Pagination *wire.Pagination `json:"pagination,omitempty"`
}

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeSuccess は success:true のエンベロープでdataを返す。
func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, envelope{Success: true, Data: data})
}

// writeAPIErrorResponse はAPIErrorを統一エラーフォーマットで書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeUnauthorized はコンテキストにユーザーIDがない場合の401を書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeBookingForbidden:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeBookingNotFound, model.ErrCodeClassNotFound,
		model.ErrCodeTrainerNotFound, model.ErrCodePlanNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailTaken, model.ErrCodeValidation, model.ErrCodeInvalidRequest,
		model.ErrCodeBookingConflict, model.ErrCodeBookingAlreadyCancelled,
		model.ErrCodeClassFull, model.ErrCodeInvalidDay:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// --- ドメインモデルからレスポンス表現への変換 ---

func toWireUser(u *model.User) wire.User {
	return wire.User{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
		Role:  string(u.Role),
	}
}

func toWireBooking(b *model.Booking) wire.Booking {
	createdAt := b.CreatedAt
	return wire.Booking{
		ID:            b.ID,
		UserID:        b.UserID,
		Kind:          b.Kind,
		Class:         b.Class,
		Trainer:       b.Trainer,
		Date:          b.Date,
		Time:          b.Time,
		Day:           b.Day,
		Status:        b.Status,
		Participants:  b.Participants,
		SessionType:   b.SessionType,
		UserDetails:   b.UserDetails,
		Amount:        b.Amount,
		PaymentStatus: b.PaymentStatus,
		CreatedAt:     &createdAt,
		CancelledAt:   b.CancelledAt,
	}
}

func toWireBookings(bookings []*model.Booking) []wire.Booking {
	out := make([]wire.Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toWireBooking(b))
	}
	return out
}

func toWirePlan(p *model.MembershipPlan) wire.Plan {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return wire.Plan{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Period:    p.Period,
		Features:  features,
		Popular:   p.Popular,
		IconClass: p.IconClass,
	}
}

func toWireSubscription(s *model.Subscription, plan *model.MembershipPlan) *wire.Subscription {
	out := &wire.Subscription{
		ID:            s.ID,
		UserID:        s.UserID,
		PlanID:        s.PlanID,
		StartDate:     s.StartDate,
		EndDate:       s.EndDate,
		Status:        s.Status,
		PaymentMethod: s.PaymentMethod,
		AutoRenew:     s.AutoRenew,
	}
	if plan != nil {
		p := toWirePlan(plan)
		out.Plan = &p
	}
	return out
}

func toWireTrainer(t *model.Trainer) wire.Trainer {
	certs := t.Certifications
	if certs == nil {
		certs = []string{}
	}
	return wire.Trainer{
		ID:             t.ID,
		Name:           t.Name,
		Specialization: t.Specialization,
		Experience:     t.Experience,
		Image:          t.Image,
		Bio:            t.Bio,
		Certifications: certs,
		Stats:          t.Stats,
		HourlyRate:     t.HourlyRate,
	}
}

func toWireClass(c *model.Class) wire.Class {
	return wire.Class{
		ID:          c.ID,
		Name:        c.Name,
		Trainer:     c.Trainer,
		TrainerID:   c.TrainerID,
		Type:        c.Type,
		Difficulty:  c.Difficulty,
		Duration:    c.Duration,
		Day:         c.Day,
		Time:        c.Time,
		MaxSpots:    c.MaxSpots,
		BookedSpots: c.BookedSpots,
		SpotsLeft:   c.SpotsLeft(),
	}
}

func toWireClasses(classes []*model.Class) []wire.Class {
	out := make([]wire.Class, 0, len(classes))
	for _, c := range classes {
		out = append(out, toWireClass(c))
	}
	return out
}

func toWirePagination(p model.Pagination) *wire.Pagination {
	return &wire.Pagination{
		Current:      p.Current,
		Total:        p.Total,
		Count:        p.Count,
		TotalRecords: p.TotalRecords,
	}
}
