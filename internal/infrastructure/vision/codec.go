//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// Enabled сообщает, что сборка с OpenCV.
const Enabled = true

// GoCVCodec разбирает видео на кадры и собирает их обратно через OpenCV.
type GoCVCodec struct {
	TempDir string
	FourCC  string
}

// NewGoCVCodec создаёт кодек, пишущий mp4v во временный каталог.
func NewGoCVCodec(tempDir string) *GoCVCodec {
	return &GoCVCodec{TempDir: tempDir, FourCC: "mp4v"}
}

// ExtractFrames возвращает каждый interval-й кадр, начиная с первого.
func (c *GoCVCodec) ExtractFrames(ctx context.Context, video []byte, interval int) ([]image.Image, error) {
	if interval <= 0 {
		interval = 1
	}

	path, cleanup, err := c.writeTemp(video)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer capture.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	var frames []image.Image
	for count := 0; capture.Read(&frame); count++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if frame.Empty() || count%interval != 0 {
			continue
		}
		img, err := frame.ToImage()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", count, err)
		}
		frames = append(frames, img)
	}
	return frames, nil
}

// EncodeVideo собирает кадры в mp4; размер берётся по первому кадру.
func (c *GoCVCodec) EncodeVideo(ctx context.Context, frames []image.Image, fps float64) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames to encode")
	}

	out, err := os.CreateTemp(c.TempDir, "cascade-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("create temp video: %w", err)
	}
	path := out.Name()
	out.Close()
	defer os.Remove(path)

	size := frames[0].Bounds().Size()
	writer, err := gocv.VideoWriterFile(path, c.FourCC, fps, size.X, size.Y, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer: %w", err)
	}

	for i, img := range frames {
		if err := ctx.Err(); err != nil {
			writer.Close()
			return nil, err
		}
		if err := writeFrame(writer, img, size); err != nil {
			writer.Close()
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close video writer: %w", err)
	}

	return os.ReadFile(path)
}

func writeFrame(writer *gocv.VideoWriter, img image.Image, size image.Point) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	if mat.Cols() != size.X || mat.Rows() != size.Y {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mat, &resized, size, 0, 0, gocv.InterpolationArea)
		return writer.Write(resized)
	}
	return writer.Write(mat)
}

func (c *GoCVCodec) writeTemp(video []byte) (string, func(), error) {
	f, err := os.CreateTemp(c.TempDir, "upload-*.mp4")
	if err != nil {
		return "", nil, fmt.Errorf("create temp video: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := f.Write(video); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp video: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp video: %w", err)
	}
	return f.Name(), cleanup, nil
}
