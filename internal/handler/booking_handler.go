package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fitzone/internal/booking"
	"github.com/hitoshi/fitzone/internal/middleware"
	"github.com/hitoshi/fitzone/internal/model"
)

// BookingServiceInterface は予約ハンドラーが必要とするサービスインターフェース。
type BookingServiceInterface interface {
	Create(ctx context.Context, userID string, in booking.CreateInput) (*model.Booking, error)
	List(ctx context.Context, userID string, p booking.ListParams) (*booking.ListResult, error)
	Get(ctx context.Context, userID, bookingID string) (*model.Booking, error)
	Cancel(ctx context.Context, userID, bookingID string) (*model.Booking, error)
	Stats(ctx context.Context, userID string) (*booking.Stats, error)
	BookClass(ctx context.Context, userID string, in booking.ClassBookingInput) (*model.Booking, error)
	BookTrainer(ctx context.Context, userID string, in booking.TrainerBookingInput) (*model.Booking, error)
}

// BookingHandler は予約管理のHTTPハンドラー。
type BookingHandler struct {
	service BookingServiceInterface
}

// NewBookingHandler はBookingHandlerを生成する。
func NewBookingHandler(service BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: service}
}

// bookingRequest は予約作成リクエストのボディ。
// クライアントが送るstatusは無視し、サーバー側で確定状態を決める。
type bookingRequest struct {
	Kind         model.BookingKind      `json:"bookingType" validate:"required,oneof=class trainer"`
	Class        *model.ClassSnapshot   `json:"class"`
	Trainer      *model.TrainerSnapshot `json:"trainer"`
	Date         string                 `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string                 `json:"time" validate:"required,max=20"`
	Participants int                    `json:"participants" validate:"omitempty,min=1,max=50"`
	SessionType  model.SessionType      `json:"sessionType" validate:"omitempty,oneof=personal group class assessment nutrition"`
	UserDetails  model.UserDetails      `json:"userDetails"`
	Amount       float64                `json:"amount" validate:"gte=0"`
}

// classBookingRequest はクラスIDを指定した予約リクエストのボディ。
type classBookingRequest struct {
	ClassID      string            `json:"classId" validate:"required,max=100"`
	Date         string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Participants int               `json:"participants" validate:"omitempty,min=1,max=50"`
	UserDetails  model.UserDetails `json:"userDetails"`
	Amount       float64           `json:"amount" validate:"gte=0"`
}

// trainerBookingRequest はトレーナーIDを指定した予約リクエストのボディ。
type trainerBookingRequest struct {
	TrainerID    string            `json:"trainerId" validate:"required,max=100"`
	Date         string            `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string            `json:"time" validate:"required,max=20"`
	Participants int               `json:"participants" validate:"omitempty,min=1,max=50"`
	SessionType  model.SessionType `json:"sessionType" validate:"omitempty,oneof=personal group class assessment nutrition"`
	UserDetails  model.UserDetails `json:"userDetails"`
	Amount       float64           `json:"amount" validate:"gte=0"`
}

// bookingStatsResponse は状態別の予約件数。
type bookingStatsResponse struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
}

// CreateBooking は予約を作成する。
// POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req bookingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.service.Create(r.Context(), userID, booking.CreateInput{
		Kind:         req.Kind,
		Class:        req.Class,
		Trainer:      req.Trainer,
		Date:         req.Date,
		Time:         req.Time,
		Participants: req.Participants,
		SessionType:  req.SessionType,
		UserDetails:  req.UserDetails,
		Amount:       req.Amount,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "予約が完了しました。",
		Data:    toWireBooking(b),
	})
}

// BookClass はクラスIDを指定して予約する。
// POST /api/classes/book
func (h *BookingHandler) BookClass(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req classBookingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.service.BookClass(r.Context(), userID, booking.ClassBookingInput{
		ClassID:      req.ClassID,
		Date:         req.Date,
		Participants: req.Participants,
		UserDetails:  req.UserDetails,
		Amount:       req.Amount,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "クラスを予約しました。",
		Data:    toWireBooking(b),
	})
}

// BookTrainer はトレーナーIDを指定してセッションを予約する。
// POST /api/trainers/book
func (h *BookingHandler) BookTrainer(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req trainerBookingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.service.BookTrainer(r.Context(), userID, booking.TrainerBookingInput{
		TrainerID:    req.TrainerID,
		Date:         req.Date,
		Time:         req.Time,
		Participants: req.Participants,
		SessionType:  req.SessionType,
		UserDetails:  req.UserDetails,
		Amount:       req.Amount,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "トレーナーセッションを予約しました。",
		Data:    toWireBooking(b),
	})
}

// ListBookings はログインユーザーの予約一覧を返す。
// GET /api/bookings?status=&bookingType=&limit=&page=
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	q := r.URL.Query()
	page, ok := parsePositiveInt(q.Get("page"))
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("page は1以上の整数で指定してください。"))
		return
	}
	limit, ok := parsePositiveInt(q.Get("limit"))
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("limit は1以上の整数で指定してください。"))
		return
	}

	res, err := h.service.List(r.Context(), userID, booking.ListParams{
		Status: q.Get("status"),
		Kind:   q.Get("bookingType"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       toWireBookings(res.Bookings),
		Pagination: toWirePagination(res.Pagination),
	})
}

// GetBooking は予約を1件返す。
// GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	b, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, toWireBooking(b))
}

// CancelBooking は予約をキャンセルする。予約は削除せずcancelledとして残す。
// DELETE /api/bookings/{id}
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	b, err := h.service.Cancel(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "予約をキャンセルしました。",
		Data:    toWireBooking(b),
	})
}

// BookingStats は状態別の予約件数を返す。
// GET /api/bookings/stats/summary
func (h *BookingHandler) BookingStats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	st, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, bookingStatsResponse{
		Total:     st.Total,
		Confirmed: st.Confirmed,
		Pending:   st.Pending,
		Cancelled: st.Cancelled,
		Completed: st.Completed,
	})
}

// parsePositiveInt はクエリパラメータを正の整数として解析する。空文字列は0を返す。
func parsePositiveInt(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
