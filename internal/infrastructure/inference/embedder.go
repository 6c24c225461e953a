package inference

import (
	"context"
	"errors"
	"fmt"
	"image"

	"vision-cascade/internal/domain/port"
)

// Embedder обращается к сервису CLIP-эмбеддингов.
type Embedder struct {
	client *Client
}

// NewEmbedder создаёт клиента сервиса эмбеддингов
func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedImage(ctx context.Context, img image.Image) ([]float64, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := e.client.postImage(ctx, "/embed/image", img, nil, &result); err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, errors.New("embed image: empty embedding")
	}
	return result.Embedding, nil
}

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := struct {
		Texts []string `json:"texts"`
	}{Texts: texts}
	var result struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/embed/text", request, &result); err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed texts: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}

var _ port.Embedder = (*Embedder)(nil)
