package predictor

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"appliance-pipeline/models"
	"appliance-pipeline/services"
	"appliance-pipeline/utils"
)

// FileRegistry stores models and fitted preprocessors as gob files under a
// directory and caches what it has loaded. Safe for concurrent use.
type FileRegistry struct {
	dir    string
	logger *utils.Logger

	mu     sync.Mutex
	models map[string]*Model
	preps  map[string]*services.Preprocessor
}

// NewFileRegistry opens a registry rooted at dir. The directory is created on
// first save.
func NewFileRegistry(dir string, logger *utils.Logger) *FileRegistry {
	if logger == nil {
		logger = utils.Discard()
	}
	return &FileRegistry{
		dir:    dir,
		logger: logger,
		models: make(map[string]*Model),
		preps:  make(map[string]*services.Preprocessor),
	}
}

// ModelPath is the file a (category, task) model lives in.
func (r *FileRegistry) ModelPath(category string, task models.Task) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s_model.gob", category, task))
}

// PreprocessorPath is the file a category's preprocessor lives in.
func (r *FileRegistry) PreprocessorPath(category string) string {
	return filepath.Join(r.dir, category+"_preprocessor.gob")
}

// Save writes a model and replaces any cached copy.
func (r *FileRegistry) Save(m *Model) error {
	if err := writeGob(r.ModelPath(m.Category, m.Task), m); err != nil {
		return fmt.Errorf("registry: save %s/%s: %w", m.Category, m.Task, err)
	}
	r.mu.Lock()
	r.models[modelKey(m.Category, m.Task)] = m
	r.mu.Unlock()
	r.logger.Info("[registry] Saved model to %s", r.ModelPath(m.Category, m.Task))
	return nil
}

// Load reads a model, returning models.ErrModelNotFound when no file exists.
func (r *FileRegistry) Load(category string, task models.Task) (*Model, error) {
	key := modelKey(category, task)
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.models[key]; ok {
		return m, nil
	}

	var m Model
	if err := readGob(r.ModelPath(category, task), &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", models.ErrModelNotFound, category, task)
		}
		return nil, fmt.Errorf("registry: load %s/%s: %w", category, task, err)
	}
	r.models[key] = &m
	return &m, nil
}

// Get implements the imputation registry lookup. Unreadable files are logged
// and reported as not found.
func (r *FileRegistry) Get(category string, task models.Task) (models.TrainedModel, bool) {
	m, err := r.Load(category, task)
	if err != nil {
		if !errors.Is(err, models.ErrModelNotFound) {
			r.logger.Error("[registry] %v", err)
		}
		return nil, false
	}
	return m, true
}

// SavePreprocessor writes a category's fitted preprocessor.
func (r *FileRegistry) SavePreprocessor(category string, p *services.Preprocessor) error {
	if err := writeGob(r.PreprocessorPath(category), p); err != nil {
		return fmt.Errorf("registry: save preprocessor %s: %w", category, err)
	}
	r.mu.Lock()
	r.preps[category] = p
	r.mu.Unlock()
	return nil
}

// Preprocessor returns the fitted preprocessor for a category, if one was saved.
func (r *FileRegistry) Preprocessor(category string) (models.Transformer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.preps[category]; ok {
		return p, true
	}

	var p services.Preprocessor
	if err := readGob(r.PreprocessorPath(category), &p); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Error("[registry] load preprocessor %s: %v", category, err)
		}
		return nil, false
	}
	r.preps[category] = &p
	return &p, true
}

func modelKey(category string, task models.Task) string {
	return category + "\x00" + string(task)
}

// writeGob encodes v to a temp file and renames it into place.
func writeGob(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
