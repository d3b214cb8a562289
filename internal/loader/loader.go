package loader

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/its-siddharth/house-price-predictor/internal/artifact"
	"github.com/its-siddharth/house-price-predictor/internal/regression"
)

var (
	// ErrNotLoaded indicates no model has been loaded yet.
	ErrNotLoaded = errors.New("no model loaded")

	// ErrModelNotFound indicates no artifact matches the requested ID.
	ErrModelNotFound = errors.New("model not found")

	// ErrCorruptArtifact indicates an artifact exists but could not be
	// deserialized.
	ErrCorruptArtifact = errors.New("corrupt model artifact")
)

// predictorCacheSize bounds how many deserialized predictors are kept
// around for fast re-selection.
const predictorCacheSize = 8

// Predictor is the single operation this application relies on. The
// artifact's internals are opaque beyond this contract.
type Predictor interface {
	Predict(features []float64) (float64, error)
	NumFeatures() int
}

// LoadedModel pairs a deserialized predictor with its descriptor.
type LoadedModel struct {
	Descriptor artifact.Descriptor
	Predictor  Predictor
	LoadedAt   time.Time
}

// Loader resolves model identifiers to artifacts and owns the single
// process-wide "currently loaded model" slot. Load replaces the slot
// atomically: observers see the old model or the new one, never a
// partially constructed one.
type Loader struct {
	store *artifact.Store
	log   *zap.SugaredLogger
	cache *lru.Cache[string, Predictor]

	mu      sync.RWMutex
	current *LoadedModel
}

// New creates a Loader over the given artifact store.
func New(store *artifact.Store, log *zap.SugaredLogger) (*Loader, error) {
	cache, err := lru.New[string, Predictor](predictorCacheSize)
	if err != nil {
		return nil, err
	}
	return &Loader{store: store, log: log, cache: cache}, nil
}

// List returns descriptors for all available artifacts.
func (l *Loader) List() ([]artifact.Descriptor, error) {
	return l.store.List()
}

// Load deserializes the artifact with the given ID and makes it the
// current model. A failed load leaves the previous model in place.
func (l *Loader) Load(id string) (*LoadedModel, error) {
	d, err := l.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}

	predictor, err := l.loadPredictor(d)
	if err != nil {
		return nil, err
	}

	loaded := &LoadedModel{
		Descriptor: d,
		Predictor:  predictor,
		LoadedAt:   time.Now().UTC(),
	}

	l.mu.Lock()
	l.current = loaded
	l.mu.Unlock()

	l.log.Infof("Loaded model %s (%d features)", d.ID, predictor.NumFeatures())
	return loaded, nil
}

// loadPredictor deserializes the artifact, going through the LRU cache
// keyed by path and modification time so re-selecting a recent model
// skips the file read.
func (l *Loader) loadPredictor(d artifact.Descriptor) (Predictor, error) {
	key := fmt.Sprintf("%s@%d", d.Path, d.ModTime.UnixNano())
	if predictor, ok := l.cache.Get(key); ok {
		return predictor, nil
	}

	model := &regression.Model{}
	if err := model.Load(d.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, d.ID)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArtifact, d.ID, err)
	}

	l.cache.Add(key, model)
	return model, nil
}

// LoadLatest loads the most recently modified artifact. Used at
// startup so the application comes up serving without manual model
// selection.
func (l *Loader) LoadLatest() (*LoadedModel, error) {
	descriptors, err := l.store.List()
	if err != nil {
		return nil, err
	}

	latest := descriptors[0]
	for _, d := range descriptors[1:] {
		if d.ModTime.After(latest.ModTime) {
			latest = d
		}
	}
	return l.Load(latest.ID)
}

// Current returns the currently loaded model, or ErrNotLoaded if no
// load has succeeded yet.
func (l *Loader) Current() (*LoadedModel, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.current == nil {
		return nil, ErrNotLoaded
	}
	return l.current, nil
}
