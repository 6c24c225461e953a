package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"math"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/domain/port"
	"vision-cascade/internal/metrics"
)

// fakeEmbedder отдаёт эмбеддинги с заранее заданным косинусным сходством с изображением.
type fakeEmbedder struct {
	sims       map[string]float64
	imageCalls int
	textCalls  int
	lastImage  image.Image
	err        error
}

func (f *fakeEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float64, error) {
	f.imageCalls++
	f.lastImage = img
	if f.err != nil {
		return nil, f.err
	}
	return []float64{2, 0}, nil
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	f.textCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		s := f.sims[t]
		// длина 3, чтобы проверить нормировку
		out[i] = []float64{3 * s, 3 * math.Sqrt(1-s*s)}
	}
	return out, nil
}

// fakeDetector: сравнимый (указатель) детектор с заготовленным ответом.
type fakeDetector struct {
	mu         sync.Mutex
	result     *entity.RawResult
	err        error
	panicWith  any
	block      bool
	labels     []string
	calls      int
	confidence float64
}

func (d *fakeDetector) Detect(ctx context.Context, img image.Image, confidence float64) (*entity.RawResult, error) {
	d.mu.Lock()
	d.calls++
	d.confidence = confidence
	d.mu.Unlock()

	if d.panicWith != nil {
		panic(d.panicWith)
	}
	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return d.result, d.err
}

func (d *fakeDetector) Labels(ctx context.Context) ([]string, error) {
	return d.labels, nil
}

func (d *fakeDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeStore struct {
	saved    map[string][]byte
	appended map[string][]string
	removed  []string
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[string][]byte{}, appended: map[string][]string{}}
}

func (s *fakeStore) SaveWeights(ctx context.Context, name string, weights io.Reader) (string, error) {
	data, err := io.ReadAll(weights)
	if err != nil {
		return "", err
	}
	s.saved[name] = data
	return "models/" + name + "_best.pt", nil
}

func (s *fakeStore) RemoveWeights(ctx context.Context, path string) error {
	s.removed = append(s.removed, path)
	return nil
}

func (s *fakeStore) AppendModel(ctx context.Context, name, path string, prompts []string) error {
	if s.err != nil {
		return s.err
	}
	s.appended[name] = prompts
	return nil
}

type fakeLoader struct {
	detectors map[string]port.Detector
	loaded    []string
	failures  int // столько первых вызовов Load завершатся ошибкой
}

func (l *fakeLoader) Load(ctx context.Context, name, path string) (port.Detector, error) {
	l.loaded = append(l.loaded, name)
	if l.failures > 0 {
		l.failures--
		return nil, errors.New("service unavailable")
	}
	if d, ok := l.detectors[name]; ok {
		return d, nil
	}
	return nil, errors.New("no such weights: " + path)
}

func faceResult() *entity.RawResult {
	return &entity.RawResult{
		Boxes: []entity.RawBox{{ClassIndex: 0, Confidence: 0.91, XYXY: [4]float64{10.9, 20.2, 110.7, 220.99}}},
		Names: map[int]string{0: "face"},
	}
}

func testLogger(t *testing.T) *zap.SugaredLogger {
	return zaptest.NewLogger(t).Sugar()
}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func mustSnapshot(t *testing.T, detectors map[string]port.Detector, prompts map[string][]string) *RegistrySnapshot {
	t.Helper()
	snap, err := NewRegistrySnapshot(detectors, prompts, 0.25)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New()
}
