package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	app "vision-cascade/internal/application"
	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/domain/port"
	"vision-cascade/internal/infrastructure/storage"
	"vision-cascade/internal/metrics"
)

const facePrompt = "A photo of a person's face"

type stubEmbedder struct {
	sims map[string]float64
}

func (e *stubEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float64, error) {
	return []float64{1, 0}, nil
}

func (e *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		s := e.sims[t]
		out[i] = []float64{s, math.Sqrt(1 - s*s)}
	}
	return out, nil
}

type stubDetector struct {
	result *entity.RawResult
}

func (d *stubDetector) Detect(ctx context.Context, img image.Image, confidence float64) (*entity.RawResult, error) {
	return d.result, nil
}

type stubLoader struct{}

func (stubLoader) Load(ctx context.Context, name, path string) (port.Detector, error) {
	return &stubDetector{}, nil
}

type stubHealth struct{ err error }

func (s stubHealth) CheckHealth(ctx context.Context) error { return s.err }

func newTestHandler(t *testing.T, checks map[string]HealthChecker) *Handler {
	t.Helper()
	face := &stubDetector{result: &entity.RawResult{
		Boxes: []entity.RawBox{{ClassIndex: 0, Confidence: 0.92, XYXY: [4]float64{1.7, 2.2, 30.9, 40}}},
		Names: map[int]string{0: "face"},
	}}
	snap, err := app.NewRegistrySnapshot(
		map[string]port.Detector{"face_detection": face},
		map[string][]string{"face_detection": {facePrompt}},
		0.25,
	)
	require.NoError(t, err)

	dir := t.TempDir()
	m := metrics.New()
	logger := zaptest.NewLogger(t).Sugar()
	registry := app.NewModelRegistry(snap,
		storage.NewFileModelStore(filepath.Join(dir, "models"), filepath.Join(dir, "config.yaml")),
		stubLoader{}, m, logger)

	emb := &stubEmbedder{sims: map[string]float64{facePrompt: 0.3, "face": 0.9, "car": 0.1, "tree": 0.05}}
	cascade := app.NewCascadeService(registry,
		app.NewPromptScorer(emb, m, logger),
		app.NewDetectorRunner(time.Second, m, logger),
		app.MediaOptions{}, m, logger)

	return NewHandler(cascade, checks, m, logger, 5*time.Second)
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	img.SetNRGBA(3, 3, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type formFile struct {
	field string
	data  []byte
}

func multipartRequest(t *testing.T, path string, file *formFile, fields map[string][]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if file != nil {
		part, err := writer.CreateFormFile(file.field, "upload.bin")
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	for k, values := range fields {
		for _, v := range values {
			require.NoError(t, writer.WriteField(k, v))
		}
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPredict_WithPromptsScoresOnly(t *testing.T) {
	h := newTestHandler(t, nil)
	req := multipartRequest(t, "/predict", &formFile{"image", pngImage(t)},
		map[string][]string{"prompts": {`["face","car","tree"]`}})

	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := decodeBody(t, rec)
	require.Equal(t, "clip", body["type"])
	data := body["data"].(map[string]any)
	require.Len(t, data, 1)
	require.Contains(t, data, "face")
}

func TestPredict_WithoutPromptsRunsCascade(t *testing.T) {
	h := newTestHandler(t, nil)
	req := multipartRequest(t, "/predict", &formFile{"image", pngImage(t)},
		map[string][]string{"prompts": {`[""]`}})

	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Type   string         `json:"type"`
		Data   []detectionDTO `json:"data"`
		Failed []string       `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "yolo", body.Type)
	require.Equal(t, []detectionDTO{{
		Detector:   "face_detection",
		Label:      "face",
		Confidence: 0.92,
		Text:       "face: 0.92",
		Box:        [4]int{1, 2, 30, 40},
	}}, body.Data)
	require.Empty(t, body.Failed)
}

func TestPredict_BadInput(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := serve(h, multipartRequest(t, "/predict", nil, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "No image uploaded!", decodeBody(t, rec)["error"])

	rec = serve(h, multipartRequest(t, "/predict", &formFile{"image", pngImage(t)},
		map[string][]string{"prompts": {`face, car`}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, multipartRequest(t, "/predict", &formFile{"image", []byte("not an image")}, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/predict", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPredictImage(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := serve(h, multipartRequest(t, "/predict_image", &formFile{"image", pngImage(t)},
		map[string][]string{"prompts": {`[]`}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "No Prompts Given!", decodeBody(t, rec)["error"])

	rec = serve(h, multipartRequest(t, "/predict_image", &formFile{"image", pngImage(t)},
		map[string][]string{"prompts": {`["face","car","tree"]`}}))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "image", body["mediaType"])
	require.Contains(t, body["prediction"], "face")

	raw, err := base64.StdEncoding.DecodeString(body["image"].(string))
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
}

func TestPredictVideo_Errors(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := serve(h, multipartRequest(t, "/predict_video", nil, map[string][]string{"prompts": {`["face"]`}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Video not uploaded!", decodeBody(t, rec)["error"])

	rec = serve(h, multipartRequest(t, "/predict_video", &formFile{"video", []byte("mp4")}, nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAddModel(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := serve(h, multipartRequest(t, "/add_model", &formFile{"model", []byte("weights")},
		map[string][]string{"name": {"pothole"}, "prompt": {"A road scene where a pothole is visible", "a pothole"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Model 'pothole' registered successfully!", decodeBody(t, rec)["message"])

	snap := h.cascade.Registry().Snapshot()
	name, ok := snap.Route("a pothole")
	require.True(t, ok)
	require.Equal(t, "pothole", name)

	rec = serve(h, multipartRequest(t, "/add_model", &formFile{"model", []byte("weights")},
		map[string][]string{"name": {"pothole"}, "prompt": {"another"}}))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h, multipartRequest(t, "/add_model", &formFile{"model", []byte("weights")},
		map[string][]string{"name": {"car"}, "prompt": {facePrompt}}))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h, multipartRequest(t, "/add_model", nil, map[string][]string{"name": {"x"}, "prompt": {"y"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, multipartRequest(t, "/add_model", &formFile{"model", []byte("w")},
		map[string][]string{"name": {"bus"}, "prompt": {" "}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Missing model file or model name or model prompt", decodeBody(t, rec)["error"])
	_, ok = h.cascade.Registry().Snapshot().Detector("bus")
	require.False(t, ok)

	rec = serve(h, multipartRequest(t, "/add_model", &formFile{"model", []byte("w")},
		map[string][]string{"name": {"../etc"}, "prompt": {"y"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, map[string]HealthChecker{"embedding": stubHealth{}})
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, []any{"face_detection"}, body["models"])

	h = newTestHandler(t, map[string]HealthChecker{"inference": stubHealth{err: errors.New("connection refused")}})
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "degraded", decodeBody(t, rec)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, nil)
	serve(h, multipartRequest(t, "/predict", &formFile{"image", pngImage(t)},
		map[string][]string{"prompts": {`["face","car"]`}}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `cascade_requests_total{mode="score",result="ok"} 1`))
}

func TestParsePrompts(t *testing.T) {
	prompts, err := parsePrompts(` ["a", " a ", "", "b"] `)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, prompts)

	prompts, err = parsePrompts("")
	require.NoError(t, err)
	require.Empty(t, prompts)

	_, err = parsePrompts(`{"a":1}`)
	require.ErrorIs(t, err, entity.ErrInvalidPrompts)
}
