package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"vision-cascade/internal/domain/entity"
)

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}

// statusFor сопоставляет ошибку сервиса с HTTP-кодом.
func statusFor(err error) int {
	switch {
	case entity.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrModelExists), errors.Is(err, entity.ErrPromptTaken):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type detectionDTO struct {
	Detector   string  `json:"detector"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Text       string  `json:"text"`
	Box        [4]int  `json:"box"`
}

type cascadeDTO struct {
	Type   string         `json:"type"`
	Data   []detectionDTO `json:"data"`
	Scores entity.Scores  `json:"scores"`
	Failed []string       `json:"failed,omitempty"`
}

type scoresDTO struct {
	Type string        `json:"type"`
	Data entity.Scores `json:"data"`
}

func toCascadeDTO(res *entity.CascadeResult) cascadeDTO {
	out := cascadeDTO{
		Type:   "yolo",
		Data:   make([]detectionDTO, 0, len(res.Detections)),
		Scores: res.Scores,
	}
	for _, d := range res.Detections {
		out.Data = append(out.Data, detectionDTO{
			Detector:   d.Detector,
			Label:      d.Label,
			Confidence: d.Confidence,
			Text:       d.Text(),
			Box:        [4]int{d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2},
		})
	}
	for _, f := range res.Failures {
		out.Failed = append(out.Failed, f.Detector)
	}
	return out
}
