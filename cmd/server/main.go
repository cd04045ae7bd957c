package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/inamate/photoedit/internal/asset"
	"github.com/inamate/photoedit/internal/auth"
	"github.com/inamate/photoedit/internal/config"
	"github.com/inamate/photoedit/internal/engine"
	"github.com/inamate/photoedit/internal/export"
	mw "github.com/inamate/photoedit/internal/middleware"
	"github.com/inamate/photoedit/internal/render"
	"github.com/inamate/photoedit/internal/session"
	"github.com/inamate/photoedit/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fonts, err := render.NewFontBook()
	if err != nil {
		slog.Error("load fonts", "error", err)
		os.Exit(1)
	}

	loader := asset.NewLoader(cfg.AssetDir, cfg.ImageFetchTimeout)

	// Each session gets its own store and engine; decoding goes through the
	// shared loader so blob urls registered by any session resolve.
	newEngine := func() *engine.Engine {
		return engine.NewEngine(
			store.New(loader),
			fonts,
			engine.WithSnapTolerance(cfg.SnapTolerance),
			engine.WithLossyQuality(float64(cfg.JPEGQuality)/100),
		)
	}

	hub := session.NewHub(newEngine, cfg.SessionTTL)
	go hub.Run(ctx)

	authService := auth.NewService(cfg.SessionSecret, cfg.SessionTTL)
	authHandler := auth.NewHandler(authService)
	sessionHandler := session.NewHandler(hub, authService, cfg.OriginPatterns())

	assetHandler := asset.NewHandler(cfg.AssetDir, cfg.MaxUploadMB)
	exportHandler := export.NewHandler(cfg.MaxUploadMB, cfg.JPEGQuality)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Asset endpoints
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.HandleFunc("/assets/{assetId}", assetHandler.Remove).Methods("DELETE")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Export of a canvas rendered in the browser
	r.HandleFunc("/export/image", exportHandler.ExportImage).Methods("POST", "OPTIONS")

	// Sessions
	r.HandleFunc("/api/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")

	api := r.PathPrefix("/api/sessions/{sessionId}").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("", sessionHandler.Delete).Methods("DELETE")
	api.HandleFunc("/state", sessionHandler.State).Methods("GET")
	api.HandleFunc("/ops", sessionHandler.Submit).Methods("POST")
	api.HandleFunc("/export", sessionHandler.Export).Methods("POST")
	api.HandleFunc("/token", authHandler.Refresh).Methods("POST")

	// WebSocket endpoint
	r.HandleFunc("/ws/session/{sessionId}", sessionHandler.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
