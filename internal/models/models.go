package models

import "github.com/its-siddharth/house-price-predictor/internal/predict"

// PredictRequest is the JSON body for POST /api/predict. Model is
// optional: when set, that model is loaded before predicting.
type PredictRequest struct {
	SquareFootage float64 `json:"square_footage"`
	Bedrooms      float64 `json:"bedrooms"`
	FullBathrooms float64 `json:"full_bathrooms"`
	HalfBathrooms float64 `json:"half_bathrooms"`
	Model         string  `json:"model,omitempty"`
}

// PredictResponse wraps a successful prediction.
type PredictResponse struct {
	Success bool            `json:"success"`
	Result  *predict.Result `json:"result"`
}

// ErrorResponse is the structured error body returned on any failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ModelInfo describes the currently loaded model for the UI.
type ModelInfo struct {
	ID              string   `json:"id"`
	LoadedAt        string   `json:"loaded_at"`
	NumFeatures     int      `json:"num_features"`
	FeatureOrder    []string `json:"feature_order,omitempty"`
	R2Score         *float64 `json:"r2_score,omitempty"`
	RMSE            *float64 `json:"rmse,omitempty"`
	MAE             *float64 `json:"mae,omitempty"`
	TrainingSamples int      `json:"training_samples,omitempty"`
	Confidence      string   `json:"confidence"`
}
