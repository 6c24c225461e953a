//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"image"

	"vision-cascade/internal/domain/entity"
)

// Enabled сообщает, что OpenCV недоступен.
const Enabled = false

var errNoGoCV = errors.New("gocv build tag is not enabled")

type GoCVCodec struct {
	TempDir string
	FourCC  string
}

// NewGoCVCodec создаёт кодек-заглушку (без OpenCV).
func NewGoCVCodec(tempDir string) *GoCVCodec {
	return &GoCVCodec{TempDir: tempDir, FourCC: "mp4v"}
}

// ExtractFrames возвращает ошибку, если сборка без тега gocv.
func (c *GoCVCodec) ExtractFrames(ctx context.Context, video []byte, interval int) ([]image.Image, error) {
	return nil, errNoGoCV
}

// EncodeVideo возвращает ошибку, если сборка без тега gocv.
func (c *GoCVCodec) EncodeVideo(ctx context.Context, frames []image.Image, fps float64) ([]byte, error) {
	return nil, errNoGoCV
}

type GoCVAnnotator struct{}

// NewGoCVAnnotator создаёт аннотатор-заглушку (без OpenCV).
func NewGoCVAnnotator() *GoCVAnnotator {
	return &GoCVAnnotator{}
}

// AnnotateScores возвращает ошибку, если сборка без тега gocv.
func (a *GoCVAnnotator) AnnotateScores(img image.Image, scores entity.Scores) (image.Image, error) {
	return nil, errNoGoCV
}

// AnnotateDetections возвращает ошибку, если сборка без тега gocv.
func (a *GoCVAnnotator) AnnotateDetections(img image.Image, detections []entity.Detection) (image.Image, error) {
	return nil, errNoGoCV
}
