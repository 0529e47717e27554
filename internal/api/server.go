// Package api exposes the listing submission and validation endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/propguard/propguard/internal/config"
	"github.com/propguard/propguard/internal/model"
	"github.com/propguard/propguard/internal/pipeline"
	"github.com/propguard/propguard/internal/store"
)

// Server handles the listing evaluation HTTP API.
type Server struct {
	pipeline  *pipeline.Pipeline
	images    pipeline.ImageSource
	agents    pipeline.AgentSource
	platforms pipeline.PlatformSource
	store     store.Store
	cfg       config.ServerConfig
}

// NewServer creates a Server. store may be nil; persistence endpoints
// then return 503.
func NewServer(p *pipeline.Pipeline, images pipeline.ImageSource, agents pipeline.AgentSource, platforms pipeline.PlatformSource, st store.Store, cfg config.ServerConfig) *Server {
	return &Server{
		pipeline:  p,
		images:    images,
		agents:    agents,
		platforms: platforms,
		store:     st,
		cfg:       cfg,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/listings", func(r chi.Router) {
		r.Post("/", s.handleSubmitListing)
		r.Get("/", s.handleListListings)
		r.Get("/{id}", s.handleGetListing)
	})

	r.Route("/validate", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Get("/agent", s.handleValidateAgent)
		r.Post("/images", s.handleValidateImages)
		r.Post("/platform", s.handleValidatePlatform)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmitListing evaluates a submitted listing and persists the
// record with its evaluation.
func (s *Server) handleSubmitListing(w http.ResponseWriter, r *http.Request) {
	listing, ok := decodeListing(w, r)
	if !ok {
		return
	}
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}

	record, err := s.pipeline.Submit(r.Context(), *listing)
	if err != nil {
		zap.L().Error("api: submit listing failed",
			zap.String("property", listing.PropertyName),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}

	filter := store.ListingFilter{
		Status: model.ListingStatus(r.URL.Query().Get("status")),
		Lister: r.URL.Query().Get("lister"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	records, err := s.store.ListListings(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list listings failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if records == nil {
		records = []model.ListingRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}

	record, err := s.store.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		zap.L().Error("api: get listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleScore runs validators and scoring for a listing without
// persisting the result.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	listing, ok := decodeListing(w, r)
	if !ok {
		return
	}

	result, err := s.pipeline.Evaluate(r.Context(), *listing)
	if err != nil {
		zap.L().Error("api: scoring failed",
			zap.String("property", listing.PropertyName),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleValidateAgent(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	writeJSON(w, http.StatusAccepted, s.agents.VerifyLister(r.Context(), name))
}

func (s *Server) handleValidateImages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageURLs []string `json:"image_urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusAccepted, s.images.ValidateImages(r.Context(), req.ImageURLs))
}

func (s *Server) handleValidatePlatform(w http.ResponseWriter, r *http.Request) {
	listing, ok := decodeListing(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, s.platforms.ValidateListing(r.Context(), *listing))
}

// Serve runs the HTTP server until ctx is canceled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("api: shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("api: starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// helpers

func decodeListing(w http.ResponseWriter, r *http.Request) (*model.Listing, bool) {
	var listing model.Listing
	if err := json.NewDecoder(r.Body).Decode(&listing); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if listing.ListerName == "" || listing.PropertyName == "" {
		writeError(w, http.StatusBadRequest, "lister_name and property_name are required")
		return nil, false
	}
	return &listing, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
