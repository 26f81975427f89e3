package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rmorriss/hearth/internal/chore"
	"github.com/rmorriss/hearth/internal/config"
	"github.com/rmorriss/hearth/internal/database"
	"github.com/rmorriss/hearth/internal/logging"
	"github.com/rmorriss/hearth/internal/meals"
	"github.com/rmorriss/hearth/internal/mirror"
	"github.com/rmorriss/hearth/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	var taskProvider mirror.Provider
	if cfg.Mirror.BaseURL != "" {
		taskProvider = mirror.NewClient(cfg.Mirror.BaseURL, cfg.Mirror.Token)
	}

	var calendar meals.CalendarProvider
	if cfg.Calendar.BaseURL != "" {
		calendar = meals.NewClient(cfg.Calendar.BaseURL)
	}

	srv := server.New(db, taskProvider, calendar, cfg.Calendar.HalfWindowDays, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := chore.NewSweeper(srv.ChoreService(), cfg.SweepInterval(), logger.With("component", "sweeper"))
	sweeper.Start(ctx)
	defer sweeper.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("hearth listening", "addr", cfg.Server.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
