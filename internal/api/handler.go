package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/its-siddharth/house-price-predictor/internal/artifact"
	"github.com/its-siddharth/house-price-predictor/internal/config"
	"github.com/its-siddharth/house-price-predictor/internal/history"
	"github.com/its-siddharth/house-price-predictor/internal/loader"
	"github.com/its-siddharth/house-price-predictor/internal/models"
	"github.com/its-siddharth/house-price-predictor/internal/predict"
)

// Handler provides HTTP API endpoints
type Handler struct {
	loader  *loader.Loader
	service *predict.Service
	history *history.Store
	cfg     config.Config
	log     *zap.SugaredLogger
}

// NewHandler creates a new API handler. The history store may be nil;
// predictions then go unrecorded.
func NewHandler(
	l *loader.Loader,
	service *predict.Service,
	historyStore *history.Store,
	cfg config.Config,
	log *zap.SugaredLogger,
) *Handler {
	return &Handler{
		loader:  l,
		service: service,
		history: historyStore,
		cfg:     cfg,
		log:     log,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Model management
	r.HandleFunc("/models", h.handleListModels).Methods("GET")
	r.HandleFunc("/models/{id}/load", h.handleLoadModel).Methods("POST")
	r.HandleFunc("/model", h.handleCurrentModel).Methods("GET")

	// Predictions
	r.HandleFunc("/predict", h.handlePredict).Methods("POST")
	r.HandleFunc("/history", h.handleHistory).Methods("GET")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a structured error response with a kind the UI
// can branch on.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorf("Request failed: %v", err)
	}
	respondJSON(w, status, models.ErrorResponse{Error: err.Error(), Kind: kind})
}

// classify maps the error taxonomy to HTTP status codes and kinds.
func classify(err error) (int, string) {
	var inputErr *predict.InputError
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, predict.ErrSchemaMismatch):
		return http.StatusBadRequest, "schema_mismatch"
	case errors.Is(err, loader.ErrModelNotFound):
		return http.StatusNotFound, "model_not_found"
	case errors.Is(err, loader.ErrNotLoaded):
		return http.StatusConflict, "not_loaded"
	case errors.Is(err, artifact.ErrNoModels):
		return http.StatusConflict, "no_models"
	case errors.Is(err, loader.ErrCorruptArtifact):
		return http.StatusUnprocessableEntity, "corrupt_artifact"
	case errors.Is(err, predict.ErrPrediction):
		return http.StatusInternalServerError, "prediction_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	_, err := h.loader.Current()
	info := map[string]interface{}{
		"version":      h.cfg.Version,
		"models_dir":   h.cfg.ModelsDir,
		"model_loaded": err == nil,
	}
	respondJSON(w, http.StatusOK, info)
}

// handleListModels returns descriptors for all available artifacts.
// An empty or missing models directory yields an empty list, not an
// error.
func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	descriptors, err := h.loader.List()
	if err != nil && !errors.Is(err, artifact.ErrNoModels) {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, descriptors)
}

// handleLoadModel loads the named model and makes it current
func (h *Handler) handleLoadModel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	loaded, err := h.loader.Load(id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if err := config.SaveSettings(config.Settings{
		ModelsDir: h.cfg.ModelsDir,
		LastModel: loaded.Descriptor.ID,
	}); err != nil {
		h.log.Warnf("Could not persist settings: %v", err)
	}

	respondJSON(w, http.StatusOK, h.modelInfo(loaded))
}

// handleCurrentModel returns info about the currently loaded model
func (h *Handler) handleCurrentModel(w http.ResponseWriter, r *http.Request) {
	current, err := h.loader.Current()
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.modelInfo(current))
}

func (h *Handler) modelInfo(m *loader.LoadedModel) models.ModelInfo {
	info := models.ModelInfo{
		ID:          m.Descriptor.ID,
		LoadedAt:    m.LoadedAt.Format(time.RFC3339),
		NumFeatures: m.Predictor.NumFeatures(),
		Confidence:  predict.ConfidenceLabel(m.Descriptor.Metadata),
	}
	if meta := m.Descriptor.Metadata; meta != nil {
		info.FeatureOrder = meta.FeatureOrder
		info.R2Score = meta.R2Score
		info.RMSE = meta.RMSE
		info.MAE = meta.MAE
		info.TrainingSamples = meta.TrainingSamples
	}
	return info
}

// handlePredict runs one prediction against the current model
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error: "invalid request body",
			Kind:  "invalid_input",
		})
		return
	}

	// Optional model selection per request
	if req.Model != "" {
		current, err := h.loader.Current()
		if err != nil || current.Descriptor.ID != req.Model {
			if _, err := h.loader.Load(req.Model); err != nil {
				h.respondError(w, err)
				return
			}
		}
	}

	result, err := h.service.Predict(predict.Request{
		SquareFootage: req.SquareFootage,
		Bedrooms:      req.Bedrooms,
		FullBathrooms: req.FullBathrooms,
		HalfBathrooms: req.HalfBathrooms,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.history != nil {
		if _, err := h.history.Record(history.Record{
			ModelID:       result.ModelID,
			SquareFootage: req.SquareFootage,
			Bedrooms:      req.Bedrooms,
			FullBathrooms: req.FullBathrooms,
			HalfBathrooms: req.HalfBathrooms,
			Price:         result.Price,
			Confidence:    result.Confidence,
		}); err != nil {
			h.log.Warnf("Could not record prediction: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, models.PredictResponse{Success: true, Result: result})
}

// handleHistory returns recent predictions, newest first
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondJSON(w, http.StatusOK, []history.Record{})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
				Error: "limit must be an integer between 1 and 500",
				Kind:  "invalid_input",
			})
			return
		}
		limit = parsed
	}

	records, err := h.history.Recent(limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}
