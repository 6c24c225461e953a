package port

import (
	"context"
	"image"
)

// Embedder интерфейс сервиса эмбеддингов (CLIP-подобная модель)
type Embedder interface {
	// EmbedImage возвращает эмбеддинг изображения
	EmbedImage(ctx context.Context, img image.Image) ([]float64, error)

	// EmbedTexts возвращает по одному эмбеддингу на каждый текст, в том же порядке
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}
