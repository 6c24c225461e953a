package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/infrastructure/imageio"
)

const (
	maxImageSize = 50 << 20
	maxVideoSize = 500 << 20
	maxModelSize = 500 << 20
)

// Predict обрабатывает POST /predict.
// С промптами отдаёт только оценки ("clip"), без них запускает полный каскад по промптам реестра ("yolo").
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	img, prompts, ok := h.readImageForm(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	if len(prompts) > 0 {
		scores, err := h.cascade.ScorePrompts(ctx, img, prompts)
		if err != nil {
			h.fail(w, r, "score prompts", err)
			return
		}
		respondJSON(w, scoresDTO{Type: "clip", Data: scores}, http.StatusOK)
		return
	}

	res, err := h.cascade.Detect(ctx, img, nil)
	if err != nil {
		h.fail(w, r, "run cascade", err)
		return
	}
	respondJSON(w, toCascadeDTO(res), http.StatusOK)
}

// PredictImage обрабатывает POST /predict_image: оценки и JPEG с подписями.
func (h *Handler) PredictImage(w http.ResponseWriter, r *http.Request) {
	img, prompts, ok := h.readImageForm(w, r)
	if !ok {
		return
	}
	if len(prompts) == 0 {
		respondError(w, "No Prompts Given!", http.StatusBadRequest)
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	scores, annotated, err := h.cascade.ScoreAndAnnotate(ctx, img, prompts)
	if err != nil {
		h.fail(w, r, "score image", err)
		return
	}
	encoded, err := imageio.EncodeBase64JPEG(annotated)
	if err != nil {
		h.fail(w, r, "encode image", err)
		return
	}

	respondJSON(w, map[string]any{
		"mediaType":  "image",
		"image":      encoded,
		"prediction": scores,
	}, http.StatusOK)
}

// PredictVideo обрабатывает POST /predict_video: каждый N-й кадр оценивается и подписывается.
func (h *Handler) PredictVideo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxVideoSize); err != nil {
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	video, ok := readFile(r, "video", maxVideoSize)
	if !ok {
		respondError(w, "Video not uploaded!", http.StatusBadRequest)
		return
	}
	prompts, err := parsePrompts(r.FormValue("prompts"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	out, err := h.cascade.ScoreVideo(ctx, video, prompts)
	if err != nil {
		h.fail(w, r, "score video", err)
		return
	}

	respondJSON(w, map[string]any{
		"mediaType": "video",
		"video":     base64.StdEncoding.EncodeToString(out.Video),
		"frames":    out.Frames,
	}, http.StatusOK)
}

// AddModel обрабатывает POST /add_model: файл весов, имя и один или несколько промптов.
func (h *Handler) AddModel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxModelSize); err != nil {
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	const missing = "Missing model file or model name or model prompt"

	file, _, err := r.FormFile("model")
	if err != nil {
		respondError(w, missing, http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	prompts := entity.NormalizePrompts(r.MultipartForm.Value["prompt"])
	if name == "" || len(prompts) == 0 {
		respondError(w, missing, http.StatusBadRequest)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.cascade.Registry().Register(ctx, name, file, prompts); err != nil {
		h.fail(w, r, "register model", err)
		return
	}

	h.log(r).Infow("model registered", "model", name, "prompts", len(prompts))
	respondJSON(w, map[string]string{
		"message": fmt.Sprintf("Model '%s' registered successfully!", name),
	}, http.StatusOK)
}

// Health проверяет зависимые сервисы и отдаёт список загруженных моделей.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	status := http.StatusOK
	services := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.CheckHealth(ctx); err != nil {
			services[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		services[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, map[string]any{
		"status":   state,
		"services": services,
		"models":   h.cascade.Registry().Snapshot().DetectorNames(),
	}, status)
}

func (h *Handler) readImageForm(w http.ResponseWriter, r *http.Request) (image.Image, []string, bool) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return nil, nil, false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, "No image uploaded!", http.StatusBadRequest)
		return nil, nil, false
	}
	defer file.Close()

	prompts, err := parsePrompts(r.FormValue("prompts"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}

	img, err := imageio.Decode(file)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	return img, prompts, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log(r).Errorw(op+" failed", "error", err)
	} else {
		h.log(r).Infow(op+" rejected", "error", err)
	}
	respondError(w, err.Error(), status)
}

// parsePrompts разбирает поле prompts: JSON-массив строк. Пустое поле, [] и [""] означают отсутствие промптов.
func parsePrompts(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var prompts []string
	if err := json.Unmarshal([]byte(raw), &prompts); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidPrompts, err)
	}
	return entity.NormalizePrompts(prompts), nil
}

func readFile(r *http.Request, field string, limit int64) ([]byte, bool) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit))
	if err != nil {
		return nil, false
	}
	return data, len(data) > 0
}
