package regression

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPredict(t *testing.T) {
	model := New([]float64{100, 5000, 10000}, 50000)

	price, err := model.Predict([]float64{2000, 3, 2.5})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	expected := 50000 + 100*2000 + 5000*3 + 10000*2.5
	if price != expected {
		t.Errorf("Expected %.2f, got %.2f", expected, price)
	}
}

func TestPredictDimensionMismatch(t *testing.T) {
	model := New([]float64{100, 5000, 10000}, 50000)

	if _, err := model.Predict([]float64{2000, 3}); err == nil {
		t.Error("Expected error for wrong feature count")
	}
}

func TestNumFeatures(t *testing.T) {
	model := New([]float64{1, 2, 3}, 0)
	if n := model.NumFeatures(); n != 3 {
		t.Errorf("Expected 3 features, got %d", n)
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")

	model := New([]float64{100, 5000, 10000}, 50000)
	if err := model.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("Model file was not created")
	}

	loaded := &Model{}
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.NumFeatures() != 3 {
		t.Errorf("Loaded model has %d features, expected 3", loaded.NumFeatures())
	}

	price, err := loaded.Predict([]float64{1500, 2, 1})
	if err != nil {
		t.Fatalf("Predict on loaded model failed: %v", err)
	}
	expected := 50000 + 100*1500 + 5000*2 + 10000*1.0
	if price != expected {
		t.Errorf("Expected %.2f, got %.2f", expected, price)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.gob")

	if err := os.WriteFile(path, []byte("not a gob stream"), 0644); err != nil {
		t.Fatal(err)
	}

	model := &Model{}
	if err := model.Load(path); err == nil {
		t.Error("Expected error loading corrupt file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	model := &Model{}
	if err := model.Load(filepath.Join(t.TempDir(), "missing.gob")); err == nil {
		t.Error("Expected error loading missing file")
	}
}
