package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactExt is the recognized extension for serialized model files.
const ArtifactExt = ".gob"

// ErrNoModels indicates the models directory is absent or contains no
// recognized artifacts. Reported, not fatal: the UI shows "no models
// available".
var ErrNoModels = errors.New("no model artifacts found")

// FeatureRange describes the distribution of one input feature over the
// training set. Used to warn when a prediction request falls outside
// the range the model was trained on.
type FeatureRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Metadata is the optional JSON sidecar written alongside an artifact
// by the training process. All fields are optional; the schema is
// application-defined, not a standard format.
type Metadata struct {
	FeatureOrder    []string                `json:"feature_order,omitempty"`
	R2Score         *float64                `json:"r2_score,omitempty"`
	RMSE            *float64                `json:"rmse,omitempty"`
	MAE             *float64                `json:"mae,omitempty"`
	TrainingSamples int                     `json:"training_samples,omitempty"`
	FeatureRanges   map[string]FeatureRange `json:"feature_ranges,omitempty"`
	TrainedAt       string                  `json:"trained_at,omitempty"`
}

// Descriptor identifies one model artifact found in the models
// directory. Immutable after a scan; discarded and rebuilt on rescan.
type Descriptor struct {
	ID           string    `json:"id"`
	Path         string    `json:"-"`
	MetadataPath string    `json:"-"`
	Size         int64     `json:"size"`
	ModTime      time.Time `json:"modified"`
	Metadata     *Metadata `json:"metadata,omitempty"`
}

// Store scans a models directory for serialized artifacts and their
// metadata sidecars. Scan results are cached until the directory
// changes.
type Store struct {
	dir     string
	log     *zap.SugaredLogger
	watcher *fsnotify.Watcher

	mu          sync.RWMutex
	descriptors []Descriptor
	scanned     bool
	watching    bool
}

// NewStore creates a store for the given models directory and starts
// watching it for changes so cached scan results stay fresh. The
// directory does not need to exist yet.
func NewStore(dir string, log *zap.SugaredLogger) (*Store, error) {
	s := &Store{dir: dir, log: log}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnf("Models directory watcher unavailable: %v", err)
		return s, nil
	}
	s.watcher = watcher

	if err := watcher.Add(dir); err != nil {
		log.Warnf("Could not watch models directory %s: %v", dir, err)
	} else {
		s.watching = true
	}
	go s.watch()

	return s, nil
}

// ensureWatch retries the directory watch once the directory exists.
// The initial Add fails when the store is created before the models
// directory.
func (s *Store) ensureWatch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil || s.watching {
		return
	}
	if err := s.watcher.Add(s.dir); err == nil {
		s.watching = true
	}
}

// watch invalidates the descriptor cache whenever the models directory
// changes. The next List call rescans.
func (s *Store) watch() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.Invalidate()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warnf("Models directory watch error: %v", err)
		}
	}
}

// Invalidate discards cached scan results.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.scanned = false
	s.mu.Unlock()
}

// List returns descriptors for all recognized artifacts, sorted by ID.
// Returns ErrNoModels alongside an empty slice when the directory is
// absent or holds no artifacts.
func (s *Store) List() ([]Descriptor, error) {
	s.mu.RLock()
	if s.scanned {
		descriptors := s.descriptors
		s.mu.RUnlock()
		if len(descriptors) == 0 {
			return []Descriptor{}, ErrNoModels
		}
		return descriptors, nil
	}
	s.mu.RUnlock()

	return s.Scan()
}

// Scan rescans the models directory unconditionally and replaces the
// cached descriptor set.
func (s *Store) Scan() ([]Descriptor, error) {
	descriptors := []Descriptor{}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		// The directory is missing: leave the cache unset so the next
		// List rescans once it appears.
		s.mu.Lock()
		s.descriptors = descriptors
		s.scanned = false
		s.mu.Unlock()
		return descriptors, ErrNoModels
	}
	s.ensureWatch()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ArtifactExt) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.log.Warnf("Skipping %s: %v", entry.Name(), err)
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ArtifactExt)
		d := Descriptor{
			ID:      id,
			Path:    filepath.Join(s.dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		if metaPath, meta := s.loadMetadata(id); meta != nil {
			d.MetadataPath = metaPath
			d.Metadata = meta
		}

		descriptors = append(descriptors, d)
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].ID < descriptors[j].ID
	})

	s.setDescriptors(descriptors)

	if len(descriptors) == 0 {
		return descriptors, ErrNoModels
	}
	return descriptors, nil
}

// loadMetadata reads the JSON sidecar for an artifact, trying
// <id>.json first and the legacy <id>_metadata.json name second. An
// unreadable sidecar degrades to a descriptor without metadata.
func (s *Store) loadMetadata(id string) (string, *Metadata) {
	candidates := []string{
		filepath.Join(s.dir, id+".json"),
		filepath.Join(s.dir, id+"_metadata.json"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			s.log.Warnf("Invalid metadata sidecar %s: %v", path, err)
			return "", nil
		}
		return path, &meta
	}
	return "", nil
}

// Get returns the descriptor with the given ID.
func (s *Store) Get(id string) (Descriptor, error) {
	descriptors, err := s.List()
	if err != nil && len(descriptors) == 0 {
		return Descriptor{}, err
	}

	for _, d := range descriptors {
		if d.ID == id {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("unknown model: %s", id)
}

func (s *Store) setDescriptors(descriptors []Descriptor) {
	s.mu.Lock()
	s.descriptors = descriptors
	s.scanned = true
	s.mu.Unlock()
}

// Dir returns the models directory this store scans.
func (s *Store) Dir() string {
	return s.dir
}

// Close stops the directory watcher.
func (s *Store) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}
