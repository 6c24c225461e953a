//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"vision-cascade/internal/domain/entity"
)

// GoCVAnnotator рисует подписи и рамки поверх кадра.
type GoCVAnnotator struct{}

// NewGoCVAnnotator создаёт аннотатор на OpenCV.
func NewGoCVAnnotator() *GoCVAnnotator {
	return &GoCVAnnotator{}
}

// AnnotateScores пишет значимые промпты столбцом с шагом 30 пикселей.
func (a *GoCVAnnotator) AnnotateScores(img image.Image, scores entity.Scores) (image.Image, error) {
	mat, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	black := color.RGBA{A: 255}
	y := 30
	for _, caption := range ScoreCaptions(scores) {
		gocv.PutText(&mat, caption, image.Pt(10, y), gocv.FontHersheySimplex, 0.45, black, 2)
		y += 30
	}

	return mat.ToImage()
}

// AnnotateDetections обводит найденные объекты и подписывает их "label: 0.92".
func (a *GoCVAnnotator) AnnotateDetections(img image.Image, detections []entity.Detection) (image.Image, error) {
	mat, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	black := color.RGBA{A: 255}
	for _, d := range detections {
		rect := image.Rect(d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
		gocv.Rectangle(&mat, rect, black, 2)
		gocv.PutText(&mat, d.Text(), image.Pt(d.Box.X1, d.Box.Y1-5), gocv.FontHersheySimplex, 1.4, black, 4)
	}

	return mat.ToImage()
}

func toMat(img image.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.NewMat(), errors.New("empty image")
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return mat, err
	}
	if mat.Empty() {
		return mat, errors.New("empty image")
	}
	return mat, nil
}
