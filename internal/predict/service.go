package predict

import (
	"errors"
	"fmt"
	"math"

	"github.com/its-siddharth/house-price-predictor/internal/artifact"
	"github.com/its-siddharth/house-price-predictor/internal/loader"
)

// Canonical feature names. Model metadata may reorder these but cannot
// introduce features outside this set.
const (
	FeatureSquareFootage  = "square_footage"
	FeatureBedrooms       = "bedrooms"
	FeatureTotalBathrooms = "total_bathrooms"
)

// defaultFeatureOrder is used when a model carries no metadata.
var defaultFeatureOrder = []string{FeatureSquareFootage, FeatureBedrooms, FeatureTotalBathrooms}

// Confidence thresholds on the model's stored R² score. Implementation
// choices, not an external contract.
const (
	HighConfidenceR2   = 0.8
	MediumConfidenceR2 = 0.5
)

var (
	// ErrSchemaMismatch indicates the model expects a different
	// feature shape than the three supported inputs.
	ErrSchemaMismatch = errors.New("model schema mismatch")

	// ErrPrediction indicates the underlying inference call failed.
	ErrPrediction = errors.New("prediction failed")
)

// InputError reports an invalid request field by name.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Request carries the raw inputs for one prediction. Transient,
// created per call.
type Request struct {
	SquareFootage float64 `json:"square_footage"`
	Bedrooms      float64 `json:"bedrooms"`
	FullBathrooms float64 `json:"full_bathrooms"`
	HalfBathrooms float64 `json:"half_bathrooms"`
}

// TotalBathrooms derives the combined bathroom count: full + 0.5*half.
func (r Request) TotalBathrooms() float64 {
	return r.FullBathrooms + 0.5*r.HalfBathrooms
}

// Result is the outcome of one prediction.
type Result struct {
	Price          float64  `json:"predicted_price"`
	FormattedPrice string   `json:"formatted_price"`
	Confidence     string   `json:"confidence"`
	ModelID        string   `json:"model_id"`
	Inputs         Request  `json:"inputs"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Service validates requests against the active model's schema,
// invokes the predictor, and derives a confidence label.
type Service struct {
	loader *loader.Loader
}

// NewService creates a prediction service over the given loader.
func NewService(l *loader.Loader) *Service {
	return &Service{loader: l}
}

// Predict runs one prediction against the currently loaded model.
func (s *Service) Predict(req Request) (*Result, error) {
	current, err := s.loader.Current()
	if err != nil {
		return nil, err
	}

	if err := validate(req); err != nil {
		return nil, err
	}

	features, err := buildVector(req, current)
	if err != nil {
		return nil, err
	}

	price, err := current.Predictor.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrediction, err)
	}

	return &Result{
		Price:          price,
		FormattedPrice: formatPrice(price),
		Confidence:     ConfidenceLabel(current.Descriptor.Metadata),
		ModelID:        current.Descriptor.ID,
		Inputs:         req,
		Warnings:       rangeWarnings(req, current.Descriptor.Metadata),
	}, nil
}

// validate checks each field and names the offending one. No partial
// computation happens on violation.
func validate(req Request) error {
	if req.SquareFootage <= 0 {
		return &InputError{Field: FeatureSquareFootage, Reason: "must be greater than zero"}
	}
	if req.Bedrooms < 0 {
		return &InputError{Field: FeatureBedrooms, Reason: "must not be negative"}
	}
	if req.Bedrooms != math.Trunc(req.Bedrooms) {
		return &InputError{Field: FeatureBedrooms, Reason: "must be a whole number"}
	}
	if req.FullBathrooms < 0 {
		return &InputError{Field: "full_bathrooms", Reason: "must not be negative"}
	}
	if req.HalfBathrooms < 0 {
		return &InputError{Field: "half_bathrooms", Reason: "must not be negative"}
	}
	return nil
}

// buildVector assembles the feature vector in the order the model's
// metadata declares, falling back to the default order.
func buildVector(req Request, current *loader.LoadedModel) ([]float64, error) {
	order := defaultFeatureOrder
	if meta := current.Descriptor.Metadata; meta != nil && len(meta.FeatureOrder) > 0 {
		order = meta.FeatureOrder
	}

	if n := current.Predictor.NumFeatures(); n != len(order) {
		return nil, fmt.Errorf("%w: model expects %d features, schema declares %d", ErrSchemaMismatch, n, len(order))
	}

	values := map[string]float64{
		FeatureSquareFootage:  req.SquareFootage,
		FeatureBedrooms:       req.Bedrooms,
		FeatureTotalBathrooms: req.TotalBathrooms(),
	}

	vector := make([]float64, 0, len(order))
	for _, name := range order {
		value, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported feature %q", ErrSchemaMismatch, name)
		}
		vector = append(vector, value)
	}
	return vector, nil
}

// ConfidenceLabel derives a coarse label from the model's stored R²
// score. Pure function of the metadata.
func ConfidenceLabel(meta *artifact.Metadata) string {
	if meta == nil || meta.R2Score == nil {
		return "unknown"
	}
	switch r2 := *meta.R2Score; {
	case r2 >= HighConfidenceR2:
		return "high"
	case r2 >= MediumConfidenceR2:
		return "medium"
	default:
		return "low"
	}
}

// rangeWarnings flags inputs that fall outside the value ranges seen
// during training. Advisory only; the prediction still runs.
func rangeWarnings(req Request, meta *artifact.Metadata) []string {
	if meta == nil || len(meta.FeatureRanges) == 0 {
		return nil
	}

	values := map[string]float64{
		FeatureSquareFootage:  req.SquareFootage,
		FeatureBedrooms:       req.Bedrooms,
		FeatureTotalBathrooms: req.TotalBathrooms(),
	}

	var warnings []string
	for _, name := range defaultFeatureOrder {
		r, ok := meta.FeatureRanges[name]
		if !ok {
			continue
		}
		value := values[name]
		if value < r.Min || value > r.Max {
			warnings = append(warnings,
				fmt.Sprintf("%s %g is outside the training range [%g, %g]", name, value, r.Min, r.Max))
		}
	}
	return warnings
}

// formatPrice renders a price for display, e.g. "$245,000.00".
func formatPrice(price float64) string {
	negative := price < 0
	cents := int64(math.Round(math.Abs(price) * 100))
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var grouped []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, d)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%02d", sign, grouped, frac)
}
