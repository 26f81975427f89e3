package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rmorriss/hearth/internal/meals"
	"github.com/rmorriss/hearth/internal/model"
)

type MealHandler struct {
	service *meals.Service
	logger  *slog.Logger
}

func NewMealHandler(service *meals.Service, logger *slog.Logger) *MealHandler {
	return &MealHandler{service: service, logger: logger}
}

// List returns the meal board centered on the requested date (default today).
// The board degrades to empty when the calendar is unreachable.
func (h *MealHandler) List(w http.ResponseWriter, r *http.Request) {
	center, ok, err := parseDateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if !ok {
		center = time.Now()
	}

	entries := h.service.FetchMeals(r.Context(), center)
	if entries == nil {
		entries = []model.MealEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
