package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rmorriss/hearth/internal/chore"
	"github.com/rmorriss/hearth/internal/model"
	"github.com/rmorriss/hearth/internal/recurrence"
	"github.com/rmorriss/hearth/internal/store"
	"github.com/rmorriss/hearth/internal/websocket"
)

type ChoreHandler struct {
	service *chore.Service
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewChoreHandler(service *chore.Service, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{service: service, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type choreRequest struct {
	Title      string  `json:"title"`
	AssignedTo *string `json:"assigned_to"`
	DueDate    string  `json:"due_date"`
	Points     int     `json:"points"`
	Recurrence string  `json:"recurrence"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}

	def, occ, err := h.service.CreateChore(r.Context(), chore.CreateParams{
		Title:      req.Title,
		AssignedTo: req.AssignedTo,
		DueDate:    dueDate,
		Points:     req.Points,
		Recurrence: req.Recurrence,
	})
	if errors.Is(err, chore.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "created", def.ID, nil))

	writeJSON(w, http.StatusCreated, map[string]any{
		"definition": def,
		"occurrence": occ,
	})
}

// ListDefinitions returns the chore templates themselves, independent of any
// occurrence.
func (h *ChoreHandler) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.service.Definitions().List()
	if err != nil {
		h.logger.Error("list definitions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}
	if defs == nil {
		defs = []model.ChoreDefinition{}
	}
	writeJSON(w, http.StatusOK, defs)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.service.Definitions().GetByID(id)
	if err != nil {
		h.logger.Error("get definition", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Points < 0 {
		writeError(w, http.StatusBadRequest, "points must not be negative")
		return
	}

	ruleText := ""
	if req.Recurrence != "" {
		rule, err := recurrence.Parse(req.Recurrence)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid recurrence: "+err.Error())
			return
		}
		ruleText = rule.String()
	}

	def, err := h.service.Definitions().Update(id, req.Title, req.AssignedTo, ruleText, req.Points)
	if err != nil {
		h.logger.Error("update definition", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "updated", id, nil))

	writeJSON(w, http.StatusOK, def)
}

// Delete removes a definition; its occurrences go with it via the foreign
// key cascade.
func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.service.Definitions().GetByID(id)
	if err != nil {
		h.logger.Error("get definition", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	if err := h.service.Definitions().Delete(id); err != nil {
		h.logger.Error("delete definition", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "deleted", id, nil))

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.ListFilter

	start, ok, err := parseDateParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	if ok {
		f.Start = &start
	}

	end, ok, err := parseDateParam(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}
	if ok {
		f.End = &end
	}

	f.IncludeCompleted = r.URL.Query().Get("include_completed") == "true"

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = limit
	}

	views, err := h.service.ListOccurrences(f)
	if err != nil {
		h.logger.Error("list occurrences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list occurrences")
		return
	}
	if views == nil {
		views = []model.ChoreOccurrenceView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, model.StatusCompleted)
}

func (h *ChoreHandler) Ignore(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, model.StatusIgnored)
}

func (h *ChoreHandler) resolve(w http.ResponseWriter, r *http.Request, outcome model.OccurrenceStatus) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	resolved, err := h.service.Resolve(r.Context(), id, outcome)
	if err != nil {
		h.logger.Error("resolve occurrence", "occurrence_id", id, "outcome", outcome, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve occurrence")
		return
	}

	if resolved {
		h.broadcast(websocket.NewMessage("occurrence", string(outcome), strconv.FormatInt(id, 10), nil))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   string(outcome),
		"resolved": resolved,
	})
}
