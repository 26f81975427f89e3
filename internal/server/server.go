package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rmorriss/hearth/internal/chore"
	"github.com/rmorriss/hearth/internal/handler"
	"github.com/rmorriss/hearth/internal/meals"
	"github.com/rmorriss/hearth/internal/middleware"
	"github.com/rmorriss/hearth/internal/mirror"
	"github.com/rmorriss/hearth/internal/points"
	"github.com/rmorriss/hearth/internal/store"
	ws "github.com/rmorriss/hearth/internal/websocket"
)

type Server struct {
	db       *sql.DB
	hub      *ws.Hub
	choreSvc *chore.Service
	choreH   *handler.ChoreHandler
	rewardH  *handler.RewardHandler
	mealH    *handler.MealHandler
	logger   *slog.Logger
}

// New wires the stores, services, and handlers. taskProvider and calendar may
// be nil when the corresponding integration is not configured.
func New(db *sql.DB, taskProvider mirror.Provider, calendar meals.CalendarProvider, halfWindowDays int, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	pointsSvc := points.NewService(db, logger.With("component", "points"))
	taskMirror := mirror.New(taskProvider, logger.With("component", "mirror"))
	choreSvc := chore.NewService(db, pointsSvc, taskMirror, logger.With("component", "chore"))
	mealSvc := meals.NewService(calendar, halfWindowDays, logger.With("component", "meals"))
	rewardStore := store.NewRewardStore(db)

	return &Server{
		db:       db,
		hub:      hub,
		choreSvc: choreSvc,
		choreH:   handler.NewChoreHandler(choreSvc, hub, logger.With("component", "chore_handler")),
		rewardH:  handler.NewRewardHandler(rewardStore, pointsSvc, hub, logger.With("component", "reward_handler")),
		mealH:    handler.NewMealHandler(mealSvc, logger.With("component", "meal_handler")),
		logger:   logger,
	}
}

// ChoreService returns the lifecycle service for the sweeper and startup sweep.
func (s *Server) ChoreService() *chore.Service {
	return s.choreSvc
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Chore API routes
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores", s.choreH.ListDefinitions)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("GET /api/occurrences", s.choreH.List)
	mux.HandleFunc("POST /api/occurrences/{id}/complete", s.choreH.Complete)
	mux.HandleFunc("POST /api/occurrences/{id}/ignore", s.choreH.Ignore)

	// Rewards API routes
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/users/{user}/balance", s.rewardH.Balance)
	mux.HandleFunc("GET /api/users/{user}/ledger", s.rewardH.Ledger)
	mux.HandleFunc("GET /api/users/{user}/redemptions", s.rewardH.Redemptions)
	mux.HandleFunc("GET /api/leaderboard", s.rewardH.Leaderboard)

	// Meal board
	mux.HandleFunc("GET /api/meals", s.mealH.List)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
