package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/its-siddharth/house-price-predictor/internal/api"
	"github.com/its-siddharth/house-price-predictor/internal/artifact"
	"github.com/its-siddharth/house-price-predictor/internal/config"
	"github.com/its-siddharth/house-price-predictor/internal/history"
	"github.com/its-siddharth/house-price-predictor/internal/loader"
	"github.com/its-siddharth/house-price-predictor/internal/predict"
)

//go:embed static/*
var staticFS embed.FS

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	log        *zap.SugaredLogger
	httpServer *http.Server
	router     *mux.Router
	artifacts  *artifact.Store
	loader     *loader.Loader
	history    *history.Store
}

// New creates a new Server with all components initialized
func New(cfg config.Config, log *zap.SugaredLogger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		log:    log,
		router: mux.NewRouter(),
	}

	artifacts, err := artifact.NewStore(cfg.ModelsDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}
	s.artifacts = artifacts

	s.loader, err = loader.New(artifacts, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create model loader: %w", err)
	}

	// History store is optional: without it predictions just go
	// unrecorded.
	if cfg.DatabasePath != "" {
		historyStore, err := history.NewStore(cfg.DatabasePath)
		if err != nil {
			log.Warnf("Prediction history not available: %v", err)
		} else {
			s.history = historyStore
		}
	}

	s.autoLoadModel()
	s.setupRoutes()

	return s, nil
}

// autoLoadModel restores the last selected model, falling back to the
// most recently trained artifact, so the server comes up serving.
// Failure is not fatal: the UI prompts for a model instead.
func (s *Server) autoLoadModel() {
	if settings, err := config.LoadSettings(); err == nil && settings.LastModel != "" {
		if _, err := s.loader.Load(settings.LastModel); err == nil {
			return
		} else if !errors.Is(err, loader.ErrModelNotFound) {
			s.log.Warnf("Could not restore model %s: %v", settings.LastModel, err)
		}
	}

	if _, err := s.loader.LoadLatest(); err != nil {
		if errors.Is(err, artifact.ErrNoModels) {
			s.log.Warnf("No model artifacts in %s; predictions unavailable until one is added", s.cfg.ModelsDir)
		} else {
			s.log.Warnf("Could not auto-load a model: %v", err)
		}
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s.loader, predict.NewService(s.loader), s.history, s.cfg, s.log)
	apiHandler.RegisterRoutes(apiRouter)

	// Static frontend files (embedded)
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		s.log.Warnf("Could not load embedded static files: %v", err)
		return
	}

	// SPA fallback: serve index.html for any non-API route
	fileServer := http.FileServer(http.FS(staticContent))
	s.router.PathPrefix("/").Handler(spaHandler{staticContent: staticContent, fileServer: fileServer})
}

// Loader exposes the model loader for startup wiring.
func (s *Server) Loader() *loader.Loader {
	return s.loader
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Server listening on http://localhost:%d", s.cfg.Port)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.artifacts.Close()
	if s.history != nil {
		s.history.Close()
	}

	return s.httpServer.Shutdown(ctx)
}

// spaHandler serves the SPA, falling back to index.html for client-side routing
type spaHandler struct {
	staticContent fs.FS
	fileServer    http.Handler
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "index.html"
	}

	// fs.FS paths must not have a leading slash
	cleanPath := strings.TrimPrefix(path, "/")

	_, err := fs.Stat(h.staticContent, cleanPath)
	if err != nil {
		// File not found, serve index.html for SPA routing
		r.URL.Path = "/"
	}

	h.fileServer.ServeHTTP(w, r)
}
