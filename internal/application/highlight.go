package app

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Пороги подавления бликов в разных местах конвейера.
const (
	RequestHighlightThreshold = 194 // синхронные запросы перед скорингом
	ScorerHighlightThreshold  = 200 // внутренняя предобработка скорера
	DefaultHighlightThreshold = 240 // значение по умолчанию
)

// SuppressHighlights ограничивает каждый цветовой канал значением threshold.
// Размеры и раскладка не меняются, альфа-канал сохраняется.
// threshold >= 255 — копия без изменений, threshold <= 0 — чёрный кадр.
func SuppressHighlights(img image.Image, threshold int) *image.NRGBA {
	limit := uint8(min(max(threshold, 0), 255))

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: min(c.R, limit),
			G: min(c.G, limit),
			B: min(c.B, limit),
			A: c.A,
		}
	})
}
