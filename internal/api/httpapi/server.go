package httpapi

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"

	app "vision-cascade/internal/application"
	"vision-cascade/internal/metrics"
)

// HealthChecker внешний сервис, доступность которого входит в /health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Handler обслуживает HTTP- и WebSocket-запросы к каскаду.
type Handler struct {
	cascade *app.CascadeService
	checks  map[string]HealthChecker
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
	timeout time.Duration
}

// NewHandler создаёт обработчик; timeout ограничивает один запрос (0 без ограничения).
func NewHandler(
	cascade *app.CascadeService,
	checks map[string]HealthChecker,
	m *metrics.Metrics,
	logger *zap.SugaredLogger,
	timeout time.Duration,
) *Handler {
	return &Handler{
		cascade: cascade,
		checks:  checks,
		metrics: m,
		logger:  logger,
		timeout: timeout,
	}
}

// Routes собирает маршруты с CORS и request ID.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", h.Predict)
	mux.HandleFunc("POST /predict_image", h.PredictImage)
	mux.HandleFunc("POST /predict_video", h.PredictVideo)
	mux.HandleFunc("POST /add_model", h.AddModel)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ws/frames", h.Frames)
	mux.Handle("GET /metrics", h.metrics.Handler())

	return cors.AllowAll().Handler(h.withRequestID(mux))
}

type ctxKey struct{}

func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		logger := h.logger.With("request_id", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, logger)))

		logger.Infow("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start),
		)
	})
}

// log возвращает логгер запроса с его request ID.
func (h *Handler) log(r *http.Request) *zap.SugaredLogger {
	if l, ok := r.Context().Value(ctxKey{}).(*zap.SugaredLogger); ok {
		return l
	}
	return h.logger
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(r.Context(), h.timeout)
	}
	return context.WithCancel(r.Context())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack нужен для апгрейда до WebSocket.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
