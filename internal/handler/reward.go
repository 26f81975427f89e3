package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rmorriss/hearth/internal/model"
	"github.com/rmorriss/hearth/internal/points"
	"github.com/rmorriss/hearth/internal/store"
	"github.com/rmorriss/hearth/internal/websocket"
)

type RewardHandler struct {
	rewards *store.RewardStore
	points  *points.Service
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewRewardHandler(rewards *store.RewardStore, pts *points.Service, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rewards, points: pts, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type rewardRequest struct {
	Title      string `json:"title"`
	CostPoints int    `json:"cost_points"`
	Active     *bool  `json:"active"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.CostPoints < 0 {
		writeError(w, http.StatusBadRequest, "cost_points must not be negative")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	reward, err := h.rewards.Create(req.Title, req.CostPoints, active)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reward")
		return
	}

	h.broadcast(websocket.NewMessage("reward", "created", req.Title, nil))

	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.List()
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		User string `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.User = strings.TrimSpace(req.User)
	if req.User == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	err = h.points.Redeem(req.User, id)
	if errors.Is(err, points.ErrRewardNotFound) {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}
	if errors.Is(err, points.ErrInsufficientBalance) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("redeem reward", "reward_id", id, "user", req.User, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to redeem reward")
		return
	}

	h.broadcast(websocket.NewMessage("reward", "redeemed", req.User, nil))

	balance, err := h.points.BalanceDetail(req.User)
	if err != nil {
		h.logger.Error("balance after redeem", "user", req.User, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *RewardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	balance, err := h.points.BalanceDetail(user)
	if err != nil {
		h.logger.Error("balance", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// Redemptions returns a user's redemption history, newest first.
func (h *RewardHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	redemptions, err := h.rewards.ListRedemptionsByUser(user)
	if err != nil {
		h.logger.Error("list redemptions", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []model.Redemption{}
	}
	writeJSON(w, http.StatusOK, redemptions)
}

// Ledger returns a user's full points ledger, newest first.
func (h *RewardHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	entries, err := h.points.ListLedger(user)
	if err != nil {
		h.logger.Error("list ledger", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list ledger")
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Leaderboard reports earn totals for the week containing the requested date
// (default today). Weeks run Monday through Sunday.
func (h *RewardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	center, ok, err := parseDateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if !ok {
		center = time.Now()
	}

	start, end := weekBounds(center)
	board, err := h.points.LeaderboardWeek(start, end)
	if err != nil {
		h.logger.Error("leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	if board == nil {
		board = []model.LeaderboardRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"week_start": start.Format(dateLayout),
		"week_end":   end.Format(dateLayout),
		"rows":       board,
	})
}

// weekBounds returns the Monday and Sunday of the week containing t.
func weekBounds(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}
