package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/domain/port"
	"vision-cascade/internal/metrics"
)

// MediaOptions задаёт адаптеры и параметры для видео и аннотаций.
type MediaOptions struct {
	Codec         port.VideoCodec
	Annotator     port.Annotator
	FrameInterval int     // брать каждый N-й кадр
	FPS           float64 // fps собранного видео
}

// CascadeService связывает триаж промптов с запуском тяжёлых детекторов.
type CascadeService struct {
	registry *ModelRegistry
	scorer   *PromptScorer
	runner   *DetectorRunner
	media    MediaOptions
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
}

// VideoOutput содержит оценки по кадрам и пересобранное видео с подписями.
type VideoOutput struct {
	Frames []entity.Scores
	Video  []byte
}

// NewCascadeService создаёт сервис каскада
func NewCascadeService(
	registry *ModelRegistry,
	scorer *PromptScorer,
	runner *DetectorRunner,
	media MediaOptions,
	m *metrics.Metrics,
	logger *zap.SugaredLogger,
) *CascadeService {
	if media.FrameInterval <= 0 {
		media.FrameInterval = 30
	}
	if media.FPS <= 0 {
		media.FPS = 10
	}
	return &CascadeService{
		registry: registry,
		scorer:   scorer,
		runner:   runner,
		media:    media,
		metrics:  m,
		logger:   logger,
	}
}

// Registry возвращает реестр моделей
func (s *CascadeService) Registry() *ModelRegistry {
	return s.registry
}

// Detect прогоняет полный каскад для запроса. Без промптов используются промпты реестра.
func (s *CascadeService) Detect(ctx context.Context, img image.Image, prompts []string) (*entity.CascadeResult, error) {
	if img == nil {
		return nil, entity.ErrNoImage
	}
	snap := s.registry.Snapshot()

	prompts = entity.NormalizePrompts(prompts)
	if len(prompts) == 0 {
		prompts = snap.DefaultPrompts()
	}

	res, err := s.run(ctx, snap, img, prompts)
	s.countRequest("detect", err)
	return res, err
}

// Run прогоняет каскад ровно по переданным промптам на одном снимке реестра.
// Пустой список даёт пустой результат без обращений к сервисам.
func (s *CascadeService) Run(ctx context.Context, img image.Image, prompts []string) (*entity.CascadeResult, error) {
	if img == nil {
		return nil, entity.ErrNoImage
	}
	return s.run(ctx, s.registry.Snapshot(), img, prompts)
}

func (s *CascadeService) run(ctx context.Context, snap *RegistrySnapshot, img image.Image, prompts []string) (*entity.CascadeResult, error) {
	defer s.metrics.ObserveStage("cascade", time.Now())

	prepared := SuppressHighlights(img, RequestHighlightThreshold)
	scores, err := s.scorer.Score(ctx, prepared, prompts)
	if err != nil {
		return nil, fmt.Errorf("score prompts: %w", err)
	}

	names := SelectDetectors(scores, snap)
	s.metrics.DetectorsSkipped.Add(float64(len(snap.DetectorNames()) - len(names)))

	outputs, failures := s.runner.Run(ctx, img, snap, names, snap.Confidence())
	detections := ExtractDetections(outputs)

	if len(failures) > 0 {
		var combined error
		for _, f := range failures {
			combined = multierr.Append(combined, f)
		}
		s.logger.Warnw("partial cascade result", "failed", len(failures), "selected", len(names), "error", combined)
	}

	return &entity.CascadeResult{
		Scores:     scores,
		Detectors:  names,
		Detections: detections,
		Failures:   failures,
	}, nil
}

// ScorePrompts выполняет только триаж: значимые промпты без запуска детекторов.
func (s *CascadeService) ScorePrompts(ctx context.Context, img image.Image, prompts []string) (entity.Scores, error) {
	scores, err := s.scorePrompts(ctx, img, prompts)
	s.countRequest("score", err)
	return scores, err
}

func (s *CascadeService) scorePrompts(ctx context.Context, img image.Image, prompts []string) (entity.Scores, error) {
	if img == nil {
		return nil, entity.ErrNoImage
	}
	prompts = entity.NormalizePrompts(prompts)
	if len(prompts) == 0 {
		return nil, entity.ErrInvalidPrompts
	}
	return s.scorer.Score(ctx, SuppressHighlights(img, RequestHighlightThreshold), prompts)
}

// ScoreAndAnnotate оценивает промпты и подписывает их на исходном изображении.
func (s *CascadeService) ScoreAndAnnotate(ctx context.Context, img image.Image, prompts []string) (entity.Scores, image.Image, error) {
	scores, err := s.ScorePrompts(ctx, img, prompts)
	if err != nil {
		return nil, nil, err
	}
	annotated, err := s.annotator().AnnotateScores(img, scores)
	if err != nil {
		return nil, nil, fmt.Errorf("annotate scores: %w", err)
	}
	return scores, annotated, nil
}

// DetectAndAnnotate запускает каскад и рисует найденные рамки на исходном изображении.
func (s *CascadeService) DetectAndAnnotate(ctx context.Context, img image.Image, prompts []string) (*entity.CascadeResult, image.Image, error) {
	res, err := s.Detect(ctx, img, prompts)
	if err != nil {
		return nil, nil, err
	}
	annotated, err := s.annotator().AnnotateDetections(img, res.Detections)
	if err != nil {
		return nil, nil, fmt.Errorf("annotate detections: %w", err)
	}
	return res, annotated, nil
}

// ScoreVideo оценивает промпты на каждом N-м кадре и собирает видео с подписями.
// Если кадров нет, запрос завершается ошибкой ErrNoFrames без частичного результата.
func (s *CascadeService) ScoreVideo(ctx context.Context, video []byte, prompts []string) (*VideoOutput, error) {
	out, err := s.scoreVideo(ctx, video, prompts)
	s.countRequest("video", err)
	return out, err
}

func (s *CascadeService) scoreVideo(ctx context.Context, video []byte, prompts []string) (*VideoOutput, error) {
	if len(video) == 0 {
		return nil, entity.ErrNoVideo
	}
	if s.media.Codec == nil {
		return nil, errors.New("video codec is not configured")
	}

	prompts = entity.NormalizePrompts(prompts)
	if len(prompts) == 0 {
		prompts = s.registry.Snapshot().DefaultPrompts()
	}

	frames, err := s.media.Codec.ExtractFrames(ctx, video, s.media.FrameInterval)
	if err != nil {
		return nil, fmt.Errorf("extract frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, entity.ErrNoFrames
	}

	out := &VideoOutput{Frames: make([]entity.Scores, 0, len(frames))}
	annotated := make([]image.Image, 0, len(frames))
	for i, frame := range frames {
		scores, err := s.scorePrompts(ctx, frame, prompts)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		marked, err := s.annotator().AnnotateScores(frame, scores)
		if err != nil {
			return nil, fmt.Errorf("annotate frame %d: %w", i, err)
		}
		out.Frames = append(out.Frames, scores)
		annotated = append(annotated, marked)
	}

	out.Video, err = s.media.Codec.EncodeVideo(ctx, annotated, s.media.FPS)
	if err != nil {
		return nil, fmt.Errorf("encode video: %w", err)
	}
	if len(out.Video) == 0 {
		return nil, errors.New("video processing failed")
	}
	return out, nil
}

func (s *CascadeService) annotator() port.Annotator {
	if s.media.Annotator == nil {
		return noopAnnotator{}
	}
	return s.media.Annotator
}

func (s *CascadeService) countRequest(mode string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case entity.IsInputError(err):
		result = "rejected"
	default:
		result = "error"
	}
	s.metrics.Requests.WithLabelValues(mode, result).Inc()
}

// noopAnnotator возвращает кадр как есть, когда отрисовка не подключена.
type noopAnnotator struct{}

func (noopAnnotator) AnnotateScores(img image.Image, _ entity.Scores) (image.Image, error) {
	return img, nil
}

func (noopAnnotator) AnnotateDetections(img image.Image, _ []entity.Detection) (image.Image, error) {
	return img, nil
}
