package port

import (
	"context"
	"io"
)

// ModelStore интерфейс постоянного хранилища реестра моделей
type ModelStore interface {
	// SaveWeights сохраняет файл весов и возвращает путь к нему
	SaveWeights(ctx context.Context, name string, weights io.Reader) (string, error)

	// RemoveWeights удаляет файл весов, сохранённый неудачной регистрацией
	RemoveWeights(ctx context.Context, path string) error

	// AppendModel дописывает в конфиг связку имя -> путь и имя -> промпты
	AppendModel(ctx context.Context, name, path string, prompts []string) error
}
