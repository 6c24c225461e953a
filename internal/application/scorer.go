package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/domain/port"
	"vision-cascade/internal/metrics"
)

// Политика значимости промпта.
const (
	// ZScoreThreshold: z-нормированное сходство строго больше порога
	ZScoreThreshold = 0.2
	// RatioToMax: вероятность не меньше этой доли от максимальной в пачке
	RatioToMax = 0.8
)

const (
	normEpsilon = 1e-12
	// stdEpsilon: ниже этого разброс сходств считается нулевым
	stdEpsilon = 1e-12
)

var errEmptyEmbedding = errors.New("empty embedding")

// PromptScorer оценивает, какие промпты вероятно присутствуют на изображении.
type PromptScorer struct {
	embedder  port.Embedder
	metrics   *metrics.Metrics
	logger    *zap.SugaredLogger
	threshold int
}

// NewPromptScorer создаёт скорер поверх сервиса эмбеддингов.
func NewPromptScorer(embedder port.Embedder, m *metrics.Metrics, logger *zap.SugaredLogger) *PromptScorer {
	return &PromptScorer{
		embedder:  embedder,
		metrics:   m,
		logger:    logger,
		threshold: ScorerHighlightThreshold,
	}
}

// Score возвращает только значимые промпты с вероятностями, по убыванию вероятности.
// Для пустого списка промптов сервис эмбеддингов не вызывается.
func (s *PromptScorer) Score(ctx context.Context, img image.Image, prompts []string) (entity.Scores, error) {
	if len(prompts) == 0 {
		return entity.Scores{}, nil
	}
	if img == nil {
		return nil, entity.ErrNoImage
	}
	defer s.metrics.ObserveStage("score", time.Now())

	prepared := SuppressHighlights(img, s.threshold)

	imageVec, err := s.embedder.EmbedImage(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}
	textVecs, err := s.embedder.EmbedTexts(ctx, prompts)
	if err != nil {
		return nil, fmt.Errorf("embed prompts: %w", err)
	}
	if len(textVecs) != len(prompts) {
		return nil, fmt.Errorf("embedder returned %d text vectors for %d prompts", len(textVecs), len(prompts))
	}

	sims, err := cosineSimilarities(imageVec, textVecs)
	if err != nil {
		return nil, err
	}

	scores, degenerate := rankPrompts(prompts, sims)
	if degenerate {
		s.metrics.DegenerateScores.Inc()
		s.logger.Warnw("z-score path disabled, ranking by ratio to max only",
			"error", entity.ErrDegenerateScores, "prompts", len(prompts))
	}
	s.metrics.PromptsScored.Add(float64(len(prompts)))
	s.metrics.PromptsAdmitted.Add(float64(len(scores)))

	for _, sp := range scores {
		s.logger.Debugw("significant prompt", "prompt", sp.Prompt, "probability", sp.Probability)
	}
	return scores, nil
}

// rankPrompts применяет сигмоиду и политику значимости к сырым косинусным сходствам.
// Второе значение сообщает о вырожденном (нулевом) разбросе сходств.
func rankPrompts(prompts []string, sims []float64) (entity.Scores, bool) {
	if len(prompts) == 1 {
		return entity.Scores{{Prompt: prompts[0], Probability: sigmoid(sims[0])}}, false
	}

	mean, std := stat.MeanStdDev(sims, nil)
	degenerate := !(std > stdEpsilon) || math.IsInf(std, 0)

	z := make([]float64, len(sims))
	probs := make([]float64, len(sims))
	for i, sim := range sims {
		if !degenerate {
			z[i] = (sim - mean) / std
		}
		probs[i] = sigmoid(z[i])
	}
	cutoff := RatioToMax * floats.Max(probs)

	scores := make(entity.Scores, 0, len(prompts))
	for i, p := range prompts {
		byZ := !degenerate && z[i] > ZScoreThreshold
		if byZ || probs[i] >= cutoff {
			scores = append(scores, entity.ScoredPrompt{Prompt: p, Probability: probs[i]})
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Probability > scores[j].Probability
	})
	return scores, degenerate
}

// cosineSimilarities нормирует векторы по L2 и считает сходство изображения с каждым текстом.
func cosineSimilarities(imageVec []float64, textVecs [][]float64) ([]float64, error) {
	if len(imageVec) == 0 {
		return nil, fmt.Errorf("image: %w", errEmptyEmbedding)
	}
	img := l2Normalize(imageVec)

	sims := make([]float64, len(textVecs))
	for i, tv := range textVecs {
		if len(tv) != len(img) {
			return nil, fmt.Errorf("text embedding %d has dimension %d, image has %d", i, len(tv), len(img))
		}
		sims[i] = floats.Dot(img, l2Normalize(tv))
	}
	return sims, nil
}

func l2Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	floats.Scale(1/math.Max(floats.Norm(v, 2), normEpsilon), out)
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
