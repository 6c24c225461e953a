package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfidence порог уверенности детекторов, если в файле он не задан.
const DefaultConfidence = 0.25

// ModelFile — содержимое YAML-конфига моделей.
type ModelFile struct {
	// Models: имя детектора -> путь к весам
	Models map[string]string `yaml:"models"`
	// TextPrompts: имя детектора -> промпты, которые на него ведут
	TextPrompts map[string][]string `yaml:"text_prompts"`
	// LabelPrompts: имя детектора -> базовый текст для промптов по его классам
	LabelPrompts map[string]string `yaml:"label_prompts,omitempty"`
	Output       OutputConfig      `yaml:"output"`
}

type OutputConfig struct {
	Confidence float64 `yaml:"confidence"`
}

// LoadModelFile читает конфиг моделей. Отсутствующие секции заменяются пустыми.
func LoadModelFile(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model config: %w", err)
	}

	var mf ModelFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse model config: %w", err)
	}
	mf.normalize()

	if err := mf.Validate(); err != nil {
		return nil, err
	}
	return &mf, nil
}

// Validate проверяет, что промпты ссылаются только на объявленные модели.
func (mf *ModelFile) Validate() error {
	for name := range mf.TextPrompts {
		if _, ok := mf.Models[name]; !ok {
			return fmt.Errorf("text_prompts references unknown model %q", name)
		}
	}
	for name := range mf.LabelPrompts {
		if _, ok := mf.Models[name]; !ok {
			return fmt.Errorf("label_prompts references unknown model %q", name)
		}
	}
	if mf.Output.Confidence < 0 || mf.Output.Confidence > 1 {
		return fmt.Errorf("output.confidence must be in [0,1], got %v", mf.Output.Confidence)
	}
	return nil
}

// SaveModelFile атомарно перезаписывает конфиг через временный файл.
func SaveModelFile(path string, mf *ModelFile) error {
	data, err := yaml.Marshal(mf)
	if err != nil {
		return fmt.Errorf("encode model config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".models-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

func (mf *ModelFile) normalize() {
	if mf.Models == nil {
		mf.Models = map[string]string{}
	}
	if mf.TextPrompts == nil {
		mf.TextPrompts = map[string][]string{}
	}
	if mf.Output.Confidence == 0 {
		mf.Output.Confidence = DefaultConfidence
	}
}
