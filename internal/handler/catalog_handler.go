package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/model"
)

// CatalogServiceInterface はトレーナー・クラスハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	Trainers(ctx context.Context) ([]*model.Trainer, error)
	Trainer(ctx context.Context, id string) (*model.Trainer, error)
	Classes(ctx context.Context) ([]*model.Class, error)
	ClassesByDay(ctx context.Context, day string) ([]*model.Class, error)
}

// CatalogHandler はトレーナーとクラススケジュールのHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListTrainers GET /api/trainers
func (h *CatalogHandler) ListTrainers(w http.ResponseWriter, r *http.Request) {
	trainers, err := h.service.Trainers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]wire.Trainer, 0, len(trainers))
	for _, t := range trainers {
		out = append(out, toWireTrainer(t))
	}
	writeSuccess(w, http.StatusOK, out)
}

// GetTrainer GET /api/trainers/{id}
func (h *CatalogHandler) GetTrainer(w http.ResponseWriter, r *http.Request) {
	trainer, err := h.service.Trainer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toWireTrainer(trainer))
}

// ListClasses GET /api/classes
func (h *CatalogHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.Classes(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toWireClasses(classes))
}

// ListClassesByDay GET /api/classes/day/{day}
func (h *CatalogHandler) ListClassesByDay(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.ClassesByDay(r.Context(), chi.URLParam(r, "day"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toWireClasses(classes))
}
