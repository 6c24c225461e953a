package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"vision-cascade/config"
	"vision-cascade/internal/domain/port"
)

// FileModelStore хранит веса в каталоге моделей, а реестр в YAML-конфиге.
type FileModelStore struct {
	mu         sync.Mutex
	modelsDir  string
	configPath string
}

// NewFileModelStore создаёт файловое хранилище моделей
func NewFileModelStore(modelsDir, configPath string) *FileModelStore {
	return &FileModelStore{modelsDir: modelsDir, configPath: configPath}
}

// SaveWeights пишет веса в <models_dir>/<name>_best.pt.
func (s *FileModelStore) SaveWeights(ctx context.Context, name string, weights io.Reader) (string, error) {
	if err := os.MkdirAll(s.modelsDir, 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}

	path := filepath.Join(s.modelsDir, name+"_best.pt")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create weights file: %w", err)
	}

	if _, err := io.Copy(f, weights); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write weights: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write weights: %w", err)
	}
	return path, nil
}

// RemoveWeights удаляет файл весов; отсутствующий файл не считается ошибкой.
func (s *FileModelStore) RemoveWeights(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove weights: %w", err)
	}
	return nil
}

// AppendModel добавляет модель и её промпты в конфиг. Отсутствующий файл создаётся.
func (s *FileModelStore) AppendModel(ctx context.Context, name, path string, prompts []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mf, err := config.LoadModelFile(s.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		mf = &config.ModelFile{
			Models:      map[string]string{},
			TextPrompts: map[string][]string{},
			Output:      config.OutputConfig{Confidence: config.DefaultConfidence},
		}
	} else if err != nil {
		return err
	}

	if _, exists := mf.Models[name]; exists {
		return fmt.Errorf("model %q already in %s", name, s.configPath)
	}
	mf.Models[name] = path
	mf.TextPrompts[name] = slices.Clone(prompts)

	return config.SaveModelFile(s.configPath, mf)
}

var _ port.ModelStore = (*FileModelStore)(nil)
