// Package api exposes the engine's internal HTTP surface: predict, train,
// stats and verify.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/match-oracle/internal/inference"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
	"github.com/yourusername/match-oracle/internal/service"
	"github.com/yourusername/match-oracle/internal/training"
)

// Server serves the engine's internal API.
type Server struct {
	port      string
	matchRepo repository.MatchRepository
	predictor *inference.Engine
	trainer   *training.Trainer
	verifier  *service.Verifier
	stats     *service.StatsCollector
	server    *http.Server
	logger    *logrus.Logger
}

// Config holds the configuration for the API server.
type Config struct {
	Port      string
	MatchRepo repository.MatchRepository
	Predictor *inference.Engine
	Trainer   *training.Trainer
	Verifier  *service.Verifier
	Stats     *service.StatsCollector
	Logger    *logrus.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = "8090"
	}
	return &Server{
		port:      port,
		matchRepo: cfg.MatchRepo,
		predictor: cfg.Predictor,
		trainer:   cfg.Trainer,
		verifier:  cfg.Verifier,
		stats:     cfg.Stats,
		logger:    cfg.Logger,
	}
}

// Handler returns the route mux, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/train", s.handleTrain)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/verify", s.handleVerify)
	return mux
}

// Start starts the API server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithField("port", s.port).Info("API server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()
	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

type predictRequest struct {
	FixtureID string `json:"fixture_id"`
	Market    string `json:"market"`
}

type predictResponse struct {
	Available  bool               `json:"available"`
	Reason     string             `json:"reason,omitempty"`
	Prediction *models.Prediction `json:"prediction,omitempty"`
}

type trainRequest struct {
	Market string `json:"market"`
}

type trainResponse struct {
	Market      string  `json:"market"`
	Version     string  `json:"version"`
	SampleCount int     `json:"sample_count"`
	Accuracy    float64 `json:"accuracy"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handlePredict issues one prediction for a fixture and market.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FixtureID == "" || req.Market == "" {
		writeError(w, http.StatusBadRequest, "fixture_id and market are required")
		return
	}

	match, err := s.lookupMatch(r.Context(), req.FixtureID)
	if err == models.ErrNotFound {
		writeError(w, http.StatusNotFound, "fixture not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Fixture lookup failed")
		writeError(w, http.StatusInternalServerError, "fixture lookup failed")
		return
	}

	result, err := s.predictor.Predict(r.Context(), match, req.Market)
	if err != nil {
		s.logger.WithError(err).WithField("market", req.Market).Error("Prediction failed")
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Available:  result.Available,
		Reason:     result.Reason,
		Prediction: result.Prediction,
	})
}

// handleTrain triggers a synchronous training run for one market.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidMarket(req.Market) {
		writeError(w, http.StatusBadRequest, "unknown market")
		return
	}

	model, err := s.trainer.TrainMarket(r.Context(), req.Market)
	if err == models.ErrInsufficientData {
		writeError(w, http.StatusConflict, "not enough verified samples to train")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("market", req.Market).Error("Training failed")
		writeError(w, http.StatusInternalServerError, "training failed")
		return
	}

	writeJSON(w, http.StatusOK, trainResponse{
		Market:      model.Market,
		Version:     model.Version,
		SampleCount: model.SampleCount,
		Accuracy:    model.Accuracy,
	})
}

// handleStats serves the operational snapshot.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.stats.Collect(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Stats collection failed")
		writeError(w, http.StatusInternalServerError, "stats collection failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleVerify runs one verification pass on demand.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := s.verifier.VerifyPass(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Verification pass failed")
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// lookupMatch resolves a fixture by internal UUID first, then external ID.
func (s *Server) lookupMatch(ctx context.Context, fixtureID string) (*models.Match, error) {
	if id, err := uuid.Parse(fixtureID); err == nil {
		match, err := s.matchRepo.GetByID(ctx, id)
		if err != models.ErrNotFound {
			return match, err
		}
	}
	return s.matchRepo.GetByExternalID(ctx, fixtureID)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
