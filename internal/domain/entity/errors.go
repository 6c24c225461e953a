package entity

import (
	"errors"
	"fmt"
)

// Ошибки входных данных: отклоняются до вызова моделей.
var (
	ErrNoImage        = errors.New("no image supplied")
	ErrNoVideo        = errors.New("no video supplied")
	ErrInvalidPrompts = errors.New("malformed prompt list")
	ErrInvalidModel   = errors.New("missing model file, name or prompt")
)

// ErrDegenerateScores — нулевое стандартное отклонение сходств, z-нормализация невозможна.
var ErrDegenerateScores = errors.New("degenerate similarity distribution")

// ErrNoFrames: из видео не удалось извлечь ни одного кадра.
var ErrNoFrames = errors.New("no frames extracted from video")

// Ошибки реестра моделей.
var (
	ErrModelExists     = errors.New("model already registered")
	ErrPromptTaken     = errors.New("prompt already routed to another model")
	ErrUnknownDetector = errors.New("unknown detector")
)

// IsInputError сообщает, что ошибка вызвана некорректным запросом.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoImage) ||
		errors.Is(err, ErrNoVideo) ||
		errors.Is(err, ErrInvalidPrompts) ||
		errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, ErrNoFrames)
}

// DetectorFailure описывает сбой одного детектора внутри пакета.
type DetectorFailure struct {
	Detector string
	Err      error
}

func (f DetectorFailure) Error() string {
	return fmt.Sprintf("detector %q: %v", f.Detector, f.Err)
}

func (f DetectorFailure) Unwrap() error {
	return f.Err
}
