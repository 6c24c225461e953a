package port

import (
	"context"
	"image"

	"vision-cascade/internal/domain/entity"
)

// VideoCodec интерфейс работы с видеофайлами
type VideoCodec interface {
	// ExtractFrames возвращает каждый interval-й кадр видео в RGB
	ExtractFrames(ctx context.Context, video []byte, interval int) ([]image.Image, error)

	// EncodeVideo собирает кадры в mp4 с заданным fps
	EncodeVideo(ctx context.Context, frames []image.Image, fps float64) ([]byte, error)
}

// Annotator интерфейс отрисовки результатов на кадре
type Annotator interface {
	// AnnotateScores подписывает значимые промпты и их вероятности
	AnnotateScores(img image.Image, scores entity.Scores) (image.Image, error)

	// AnnotateDetections рисует рамки и подписи найденных объектов
	AnnotateDetections(img image.Image, detections []entity.Detection) (image.Image, error)
}
