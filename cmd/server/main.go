package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/inamate/keyframes/internal/auth"
	"github.com/inamate/keyframes/internal/collab"
	"github.com/inamate/keyframes/internal/config"
	"github.com/inamate/keyframes/internal/db"
	"github.com/inamate/keyframes/internal/engine"
	"github.com/inamate/keyframes/internal/export"
	"github.com/inamate/keyframes/internal/keyframe"
	mw "github.com/inamate/keyframes/internal/middleware"
	"github.com/inamate/keyframes/internal/track"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		slog.Warn("invalid log level, using info", "error", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(cfg.ControlSecret, cfg.AdminKey)
	if err != nil {
		slog.Error("init auth", "error", err)
		os.Exit(1)
	}
	authHandler := auth.NewHandler(authService)

	trackService := track.NewService(pool, cfg.CompilerOptions(slog.Default()))
	trackHandler := track.NewHandler(trackService)

	// Track loader for the playback hub
	trackLoader := func(ctx context.Context, trackID string) (*keyframe.Track, error) {
		_, compiled, err := trackService.Keyframes(ctx, trackID, nil)
		return compiled, err
	}

	scheduler := engine.NewScheduler(engine.NewTickerFrames(cfg.FrameRate))
	hub := collab.NewHub(trackLoader, collab.Options{
		Scheduler:          scheduler,
		Easing:             cfg.DefaultEasing,
		TimeUpdateInterval: cfg.TimeUpdateInterval,
	})
	wsHandler := collab.NewHandler(hub, authService, cfg.OriginHosts())

	exportHandler := export.NewHandler(trackService, engine.Config{
		Duration: collab.DefaultDuration,
		Easing:   cfg.DefaultEasing,
	})

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Control tokens (admin key)
	r.Handle("/auth/control-token", authService.AdminMiddleware(http.HandlerFunc(authHandler.IssueControlToken))).Methods("POST", "OPTIONS")

	api := r.PathPrefix("/api").Subrouter()

	// Stateless endpoints
	api.HandleFunc("/compile", trackHandler.Compile).Methods("POST", "OPTIONS")
	api.HandleFunc("/easings", trackHandler.Easings).Methods("GET")
	api.HandleFunc("/frames", exportHandler.FeatureFrames).Methods("POST", "OPTIONS")

	// Track library
	api.HandleFunc("/tracks", trackHandler.List).Methods("GET")
	api.Handle("/tracks", authService.AdminMiddleware(http.HandlerFunc(trackHandler.Create))).Methods("POST", "OPTIONS")
	api.HandleFunc("/tracks/{trackId}", trackHandler.Get).Methods("GET")
	api.Handle("/tracks/{trackId}", authService.ControlMiddleware(http.HandlerFunc(trackHandler.Delete))).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/tracks/{trackId}/keyframes", trackHandler.Keyframes).Methods("GET")
	api.HandleFunc("/tracks/{trackId}/frames", exportHandler.Frames).Methods("GET")

	// Shared playback sessions
	r.HandleFunc("/ws/tracks/{trackId}", wsHandler.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("server starting", "addr", addr, "fps", cfg.FrameRate)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		scheduler.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
