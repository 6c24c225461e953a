package port

import (
	"context"
	"image"

	"vision-cascade/internal/domain/entity"
)

// Detector интерфейс тяжёлого детектора (YOLO-подобная модель).
// Реализации должны быть сравнимыми (указатели): реестр строит по ним обратный индекс.
type Detector interface {
	// Detect запускает детектор с порогом уверенности; nil или пустой результат означает, что ничего не найдено
	Detect(ctx context.Context, img image.Image, confidence float64) (*entity.RawResult, error)
}

// LabeledDetector детектор, умеющий отдать таблицу своих классов
type LabeledDetector interface {
	Detector

	// Labels возвращает имена классов в порядке индексов
	Labels(ctx context.Context) ([]string, error)
}

// DetectorLoader загружает детектор по имени и пути к весам
type DetectorLoader interface {
	Load(ctx context.Context, name, path string) (Detector, error)
}
