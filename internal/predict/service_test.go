package predict

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/its-siddharth/house-price-predictor/internal/artifact"
	"github.com/its-siddharth/house-price-predictor/internal/loader"
	"github.com/its-siddharth/house-price-predictor/internal/regression"
)

func floatPtr(v float64) *float64 { return &v }

func writeSidecar(t *testing.T, dir, id string, meta artifact.Metadata) {
	t.Helper()
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

// newTestService writes a model artifact (plus optional metadata) into
// a temp models directory and returns a service with it loaded.
func newTestService(t *testing.T, load bool, meta *artifact.Metadata) *Service {
	t.Helper()

	dir := t.TempDir()
	model := regression.New([]float64{100, 5000, 10000}, 50000)
	if err := model.Save(filepath.Join(dir, "house_v1"+artifact.ArtifactExt)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if meta != nil {
		writeSidecar(t, dir, "house_v1", *meta)
	}

	store, err := artifact.NewStore(dir, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(store.Close)

	l, err := loader.New(store, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New loader failed: %v", err)
	}
	if load {
		if _, err := l.Load("house_v1"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}

	return NewService(l)
}

func validRequest() Request {
	return Request{SquareFootage: 2000, Bedrooms: 3, FullBathrooms: 2, HalfBathrooms: 1}
}

func TestPredictBeforeLoad(t *testing.T) {
	svc := newTestService(t, false, nil)

	if _, err := svc.Predict(validRequest()); !errors.Is(err, loader.ErrNotLoaded) {
		t.Errorf("Expected ErrNotLoaded, got %v", err)
	}
}

func TestPredictValidInput(t *testing.T) {
	svc := newTestService(t, true, nil)

	result, err := svc.Predict(validRequest())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	// 50000 + 100*2000 + 5000*3 + 10000*2.5
	expected := 290000.0
	if result.Price != expected {
		t.Errorf("Expected price %.2f, got %.2f", expected, result.Price)
	}
	if result.ModelID != "house_v1" {
		t.Errorf("Expected model_id house_v1, got %s", result.ModelID)
	}
	if result.Confidence != "unknown" {
		t.Errorf("Expected confidence unknown without metadata, got %s", result.Confidence)
	}
	if result.FormattedPrice != "$290,000.00" {
		t.Errorf("Unexpected formatted price: %s", result.FormattedPrice)
	}
}

func TestTotalBathrooms(t *testing.T) {
	req := Request{FullBathrooms: 2, HalfBathrooms: 1}
	if total := req.TotalBathrooms(); total != 2.5 {
		t.Errorf("Expected 2.5 total bathrooms, got %g", total)
	}
}

func TestValidation(t *testing.T) {
	svc := newTestService(t, true, nil)

	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"zero square footage", Request{SquareFootage: 0, Bedrooms: 2}, "square_footage"},
		{"negative square footage", Request{SquareFootage: -10, Bedrooms: 2}, "square_footage"},
		{"negative bedrooms", Request{SquareFootage: 1000, Bedrooms: -1}, "bedrooms"},
		{"fractional bedrooms", Request{SquareFootage: 1000, Bedrooms: 2.5}, "bedrooms"},
		{"negative full bathrooms", Request{SquareFootage: 1000, Bedrooms: 2, FullBathrooms: -1}, "full_bathrooms"},
		{"negative half bathrooms", Request{SquareFootage: 1000, Bedrooms: 2, HalfBathrooms: -2}, "half_bathrooms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Predict(tt.req)

			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("Expected InputError, got %v", err)
			}
			if inputErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, inputErr.Field)
			}
		})
	}
}

func TestConfidenceLabel(t *testing.T) {
	tests := []struct {
		name     string
		meta     *artifact.Metadata
		expected string
	}{
		{"high", &artifact.Metadata{R2Score: floatPtr(0.85)}, "high"},
		{"medium", &artifact.Metadata{R2Score: floatPtr(0.6)}, "medium"},
		{"low", &artifact.Metadata{R2Score: floatPtr(0.3)}, "low"},
		{"missing metric", &artifact.Metadata{}, "unknown"},
		{"no metadata", nil, "unknown"},
		{"high boundary", &artifact.Metadata{R2Score: floatPtr(0.8)}, "high"},
		{"medium boundary", &artifact.Metadata{R2Score: floatPtr(0.5)}, "medium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if label := ConfidenceLabel(tt.meta); label != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, label)
			}
		})
	}
}

func TestConfidenceFromLoadedMetadata(t *testing.T) {
	svc := newTestService(t, true, &artifact.Metadata{R2Score: floatPtr(0.92)})

	result, err := svc.Predict(validRequest())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if result.Confidence != "high" {
		t.Errorf("Expected high confidence, got %s", result.Confidence)
	}
}

func TestMetadataFeatureOrder(t *testing.T) {
	// Reversed order: the vector must follow the metadata, not the default.
	svc := newTestService(t, true, &artifact.Metadata{
		FeatureOrder: []string{"total_bathrooms", "bedrooms", "square_footage"},
	})

	result, err := svc.Predict(validRequest())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	// 50000 + 100*2.5 + 5000*3 + 10000*2000
	expected := 50000 + 100*2.5 + 5000*3 + 10000*2000.0
	if result.Price != expected {
		t.Errorf("Expected price %.2f, got %.2f", expected, result.Price)
	}
}

func TestSchemaMismatchFeatureCount(t *testing.T) {
	svc := newTestService(t, true, &artifact.Metadata{
		FeatureOrder: []string{"square_footage", "bedrooms"},
	})

	if _, err := svc.Predict(validRequest()); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Expected ErrSchemaMismatch, got %v", err)
	}
}

func TestSchemaMismatchUnknownFeature(t *testing.T) {
	svc := newTestService(t, true, &artifact.Metadata{
		FeatureOrder: []string{"square_footage", "bedrooms", "lot_size"},
	})

	if _, err := svc.Predict(validRequest()); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Expected ErrSchemaMismatch, got %v", err)
	}
}

func TestRangeWarnings(t *testing.T) {
	svc := newTestService(t, true, &artifact.Metadata{
		FeatureRanges: map[string]artifact.FeatureRange{
			"square_footage": {Min: 500, Max: 5000, Mean: 2000, Std: 800},
		},
	})

	req := validRequest()
	req.SquareFootage = 12000

	result, err := svc.Predict(req)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %v", result.Warnings)
	}
}

func TestNoWarningsInRange(t *testing.T) {
	svc := newTestService(t, true, &artifact.Metadata{
		FeatureRanges: map[string]artifact.FeatureRange{
			"square_footage": {Min: 500, Max: 5000, Mean: 2000, Std: 800},
		},
	})

	result, err := svc.Predict(validRequest())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price    float64
		expected string
	}{
		{290000, "$290,000.00"},
		{1234567.89, "$1,234,567.89"},
		{950.5, "$950.50"},
		{-1200, "-$1,200.00"},
	}

	for _, tt := range tests {
		if got := formatPrice(tt.price); got != tt.expected {
			t.Errorf("formatPrice(%g) = %s, expected %s", tt.price, got, tt.expected)
		}
	}
}
