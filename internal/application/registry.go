package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/domain/port"
	"vision-cascade/internal/metrics"
)

var modelNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// RegistrySnapshot — неизменяемый срез реестра детекторов и промптов.
// Запрос читает один снимок от начала до конца.
type RegistrySnapshot struct {
	detectors  map[string]port.Detector
	names      map[port.Detector]string
	routes     map[string]string
	byPrompt   map[string]port.Detector
	prompts    []string
	order      []string
	confidence float64
}

// NewRegistrySnapshot строит снимок: detectors: имя -> детектор, prompts: имя -> промпты.
// Один и тот же объект детектора под двумя именами и промпт на двух детекторах запрещены.
func NewRegistrySnapshot(detectors map[string]port.Detector, prompts map[string][]string, confidence float64) (*RegistrySnapshot, error) {
	s := &RegistrySnapshot{
		detectors:  make(map[string]port.Detector, len(detectors)),
		names:      make(map[port.Detector]string, len(detectors)),
		routes:     make(map[string]string),
		byPrompt:   make(map[string]port.Detector),
		order:      slices.Sorted(maps.Keys(detectors)),
		confidence: confidence,
	}

	for _, name := range s.order {
		det := detectors[name]
		if det == nil {
			return nil, fmt.Errorf("detector %q is nil", name)
		}
		if other, dup := s.names[det]; dup {
			return nil, fmt.Errorf("detector %q is already registered as %q", name, other)
		}
		s.detectors[name] = det
		s.names[det] = name
	}

	for _, name := range slices.Sorted(maps.Keys(prompts)) {
		det, ok := s.detectors[name]
		if !ok {
			return nil, fmt.Errorf("prompts for %q: %w", name, entity.ErrUnknownDetector)
		}
		for _, p := range entity.NormalizePrompts(prompts[name]) {
			owner, taken := s.routes[p]
			if taken && owner != name {
				return nil, fmt.Errorf("%q routed to %q and %q: %w", p, owner, name, entity.ErrPromptTaken)
			}
			if taken {
				continue
			}
			s.routes[p] = name
			s.byPrompt[p] = det
			s.prompts = append(s.prompts, p)
		}
	}

	return s, nil
}

// Detector возвращает детектор по имени
func (s *RegistrySnapshot) Detector(name string) (port.Detector, bool) {
	d, ok := s.detectors[name]
	return d, ok
}

// DetectorNames возвращает имена детекторов в алфавитном порядке
func (s *RegistrySnapshot) DetectorNames() []string {
	return slices.Clone(s.order)
}

// Route возвращает имя детектора, на который ведёт промпт
func (s *RegistrySnapshot) Route(prompt string) (string, bool) {
	name, ok := s.routes[prompt]
	return name, ok
}

// PromptDetectors возвращает отображение промпт -> детектор (копию).
func (s *RegistrySnapshot) PromptDetectors() map[string]port.Detector {
	return maps.Clone(s.byPrompt)
}

// DefaultPrompts возвращает все промпты реестра; используются, когда запрос их не передал.
func (s *RegistrySnapshot) DefaultPrompts() []string {
	return slices.Clone(s.prompts)
}

// Confidence возвращает порог уверенности для детекторов
func (s *RegistrySnapshot) Confidence() float64 {
	return s.confidence
}

// Names переводит объекты детекторов обратно в имена через обратный индекс.
// Незарегистрированные детекторы пропускаются.
func (s *RegistrySnapshot) Names(detectors []port.Detector) []string {
	out := make([]string, 0, len(detectors))
	for _, d := range detectors {
		if name, ok := s.names[d]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *RegistrySnapshot) with(name string, det port.Detector, prompts []string) (*RegistrySnapshot, error) {
	detectors := maps.Clone(s.detectors)
	detectors[name] = det

	routes := make(map[string][]string, len(detectors))
	for _, p := range s.prompts {
		owner := s.routes[p]
		routes[owner] = append(routes[owner], p)
	}
	routes[name] = prompts

	return NewRegistrySnapshot(detectors, routes, s.confidence)
}

// ModelRegistry хранит текущий снимок реестра и сериализует регистрацию новых моделей.
type ModelRegistry struct {
	mu      sync.Mutex
	current atomic.Pointer[RegistrySnapshot]
	store   port.ModelStore
	loader  port.DetectorLoader
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
}

// NewModelRegistry создаёт реестр с начальным снимком
func NewModelRegistry(initial *RegistrySnapshot, store port.ModelStore, loader port.DetectorLoader, m *metrics.Metrics, logger *zap.SugaredLogger) *ModelRegistry {
	r := &ModelRegistry{
		store:   store,
		loader:  loader,
		metrics: m,
		logger:  logger,
	}
	r.current.Store(initial)
	m.RegisteredModels.Set(float64(len(initial.order)))
	return r
}

// Snapshot возвращает текущий снимок без блокировок
func (r *ModelRegistry) Snapshot() *RegistrySnapshot {
	return r.current.Load()
}

// Register сохраняет веса, загружает детектор, дописывает конфиг и публикует новый снимок.
func (r *ModelRegistry) Register(ctx context.Context, name string, weights io.Reader, prompts []string) error {
	prompts = entity.NormalizePrompts(prompts)
	if weights == nil || len(prompts) == 0 || !modelNamePattern.MatchString(name) {
		return entity.ErrInvalidModel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	if _, exists := cur.Detector(name); exists {
		return fmt.Errorf("%q: %w", name, entity.ErrModelExists)
	}
	for _, p := range prompts {
		if owner, taken := cur.Route(p); taken {
			return fmt.Errorf("%q routed to %q: %w", p, owner, entity.ErrPromptTaken)
		}
	}

	path, err := r.store.SaveWeights(ctx, name, weights)
	if err != nil {
		return fmt.Errorf("save weights: %w", err)
	}

	det, err := r.loader.Load(ctx, name, path)
	if err != nil {
		return r.rollback(ctx, path, fmt.Errorf("load detector %q: %w", name, err))
	}

	next, err := cur.with(name, det, prompts)
	if err != nil {
		return r.rollback(ctx, path, err)
	}

	if err := r.store.AppendModel(ctx, name, path, prompts); err != nil {
		return r.rollback(ctx, path, fmt.Errorf("persist model %q: %w", name, err))
	}

	r.current.Store(next)
	r.metrics.RegisteredModels.Set(float64(len(next.order)))
	r.logger.Infow("model registered", "model", name, "path", path, "prompts", len(prompts))
	return nil
}

// rollback удаляет веса незарегистрированной модели, чтобы имя можно было занять повторно.
func (r *ModelRegistry) rollback(ctx context.Context, path string, cause error) error {
	if err := r.store.RemoveWeights(context.WithoutCancel(ctx), path); err != nil {
		r.logger.Warnw("weights left on disk after failed registration", "path", path, "error", err)
		return multierr.Append(cause, err)
	}
	return cause
}

// BuildSnapshot загружает детекторы по путям и добавляет промпты по классам для label-моделей.
func BuildSnapshot(
	ctx context.Context,
	loader port.DetectorLoader,
	models map[string]string,
	prompts map[string][]string,
	labelBases map[string]string,
	confidence float64,
	logger *zap.SugaredLogger,
) (*RegistrySnapshot, error) {
	detectors := make(map[string]port.Detector, len(models))
	for _, name := range slices.Sorted(maps.Keys(models)) {
		det, err := loader.Load(ctx, name, models[name])
		if err != nil {
			return nil, fmt.Errorf("load detector %q: %w", name, err)
		}
		detectors[name] = det
		logger.Infow("detector loaded", "model", name, "path", models[name])
	}

	all := make(map[string][]string, len(prompts))
	for name, ps := range prompts {
		all[name] = slices.Clone(ps)
	}

	for _, name := range slices.Sorted(maps.Keys(labelBases)) {
		det, ok := detectors[name]
		if !ok {
			return nil, fmt.Errorf("label prompts for %q: %w", name, entity.ErrUnknownDetector)
		}
		labeled, ok := det.(port.LabeledDetector)
		if !ok {
			return nil, fmt.Errorf("detector %q does not expose class labels", name)
		}
		labels, err := labeled.Labels(ctx)
		if err != nil {
			return nil, fmt.Errorf("labels of %q: %w", name, err)
		}
		generated := LabelPrompts(labelBases[name], labels)
		all[name] = append(all[name], generated...)
		logger.Debugw("label prompts generated", "model", name, "count", len(generated))
	}

	snap, err := NewRegistrySnapshot(detectors, all, confidence)
	if errors.Is(err, entity.ErrPromptTaken) {
		return nil, fmt.Errorf("ambiguous model config: %w", err)
	}
	return snap, err
}
