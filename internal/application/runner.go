package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"go.uber.org/zap"

	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/domain/port"
	"vision-cascade/internal/metrics"
)

var errMalformedResult = errors.New("malformed detector output")

// DetectorRunner последовательно запускает выбранные детекторы на одном изображении.
type DetectorRunner struct {
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
}

// NewDetectorRunner создаёт раннер; при timeout <= 0 детектор не ограничен по времени.
func NewDetectorRunner(timeout time.Duration, m *metrics.Metrics, logger *zap.SugaredLogger) *DetectorRunner {
	return &DetectorRunner{timeout: timeout, metrics: m, logger: logger}
}

// Run вызывает каждый детектор из names не более одного раза, в порядке списка.
// Пустые результаты отбрасываются; сбой одного детектора не прерывает пакет.
func (r *DetectorRunner) Run(
	ctx context.Context,
	img image.Image,
	snap *RegistrySnapshot,
	names []string,
	confidence float64,
) ([]entity.DetectorOutput, []entity.DetectorFailure) {
	defer r.metrics.ObserveStage("detect", time.Now())

	outputs := make([]entity.DetectorOutput, 0, len(names))
	var failures []entity.DetectorFailure
	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if err := ctx.Err(); err != nil {
			failures = append(failures, r.fail(name, err))
			continue
		}

		det, ok := snap.Detector(name)
		if !ok {
			failures = append(failures, r.fail(name, entity.ErrUnknownDetector))
			continue
		}

		start := time.Now()
		res, err := r.invoke(ctx, det, img, confidence)
		if err == nil {
			err = validateRawResult(res)
		}
		if err != nil {
			failures = append(failures, r.fail(name, err))
			continue
		}

		if res.Empty() {
			r.metrics.DetectorRuns.WithLabelValues(name, metrics.OutcomeEmpty).Inc()
			r.logger.Debugw("detector found nothing", "detector", name, "took", time.Since(start))
			continue
		}

		r.metrics.DetectorRuns.WithLabelValues(name, metrics.OutcomeHit).Inc()
		r.logger.Debugw("detector finished", "detector", name, "boxes", len(res.Boxes), "took", time.Since(start))
		outputs = append(outputs, entity.DetectorOutput{Name: name, Result: res})
	}

	return outputs, failures
}

func (r *DetectorRunner) invoke(ctx context.Context, det port.Detector, img image.Image, confidence float64) (res *entity.RawResult, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("detector panic: %v", p)
		}
	}()

	return det.Detect(ctx, img, confidence)
}

func (r *DetectorRunner) fail(name string, err error) entity.DetectorFailure {
	r.metrics.DetectorRuns.WithLabelValues(name, metrics.OutcomeFailure).Inc()
	r.logger.Warnw("detector failed, excluding its results", "detector", name, "error", err)
	return entity.DetectorFailure{Detector: name, Err: err}
}

// validateRawResult отсекает ответы, которые нельзя честно превратить в записи детекций.
func validateRawResult(res *entity.RawResult) error {
	if res.Empty() {
		return nil
	}
	for i, b := range res.Boxes {
		if _, ok := res.Names[b.ClassIndex]; !ok {
			return fmt.Errorf("%w: box %d has unknown class %d", errMalformedResult, i, b.ClassIndex)
		}
		if math.IsNaN(b.Confidence) || b.Confidence < 0 || b.Confidence > 1 {
			return fmt.Errorf("%w: box %d confidence %v", errMalformedResult, i, b.Confidence)
		}
		for _, c := range b.XYXY {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return fmt.Errorf("%w: box %d has non-finite coordinate", errMalformedResult, i)
			}
		}
		if b.XYXY[2] < b.XYXY[0] || b.XYXY[3] < b.XYXY[1] {
			return fmt.Errorf("%w: box %d is inverted", errMalformedResult, i)
		}
	}
	return nil
}
