package entity

import "fmt"

// Box прямоугольник в пикселях: (x1, y1) левый верхний угол, (x2, y2) правый нижний.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Center возвращает координаты центра прямоугольника
func (b Box) Center() (x, y int) {
	return b.X1 + (b.X2-b.X1)/2, b.Y1 + (b.Y2-b.Y1)/2
}

// Width ширина в пикселях
func (b Box) Width() int { return b.X2 - b.X1 }

// Height высота в пикселях
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Detection — одна найденная детектором область. После создания не меняется.
type Detection struct {
	Detector   string  `json:"detector"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Text формирует подпись вида "face: 0.92".
func (d Detection) Text() string {
	return fmt.Sprintf("%s: %.2f", d.Label, d.Confidence)
}

// RawBox сырая рамка от детектора: индекс класса, уверенность и xyxy в float.
type RawBox struct {
	ClassIndex int        `json:"class_index"`
	Confidence float64    `json:"confidence"`
	XYXY       [4]float64 `json:"box"`
}

// RawResult сырой ответ одного детектора по одному изображению.
type RawResult struct {
	Boxes []RawBox       `json:"boxes"`
	Names map[int]string `json:"names"`
}

// Empty сообщает, что детектор ничего не нашёл.
func (r *RawResult) Empty() bool {
	return r == nil || len(r.Boxes) == 0
}

// DetectorOutput связывает имя детектора с его сырым результатом.
type DetectorOutput struct {
	Name   string
	Result *RawResult
}
