package container

import (
	"time"

	"go.uber.org/zap"

	app "vision-cascade/internal/application"
	"vision-cascade/internal/domain/port"
	"vision-cascade/internal/metrics"
)

// Deps: адаптеры и параметры, из которых собираются сервисы.
type Deps struct {
	UserRepo        port.UserRepository
	Embedder        port.Embedder
	Store           port.ModelStore
	Loader          port.DetectorLoader
	Snapshot        *app.RegistrySnapshot
	Media           app.MediaOptions
	DetectorTimeout time.Duration
	Metrics         *metrics.Metrics
	Logger          *zap.SugaredLogger
}

type Container struct {
	UserService    *app.UserService
	CascadeService *app.CascadeService
	Registry       *app.ModelRegistry
}

func New(d Deps) *Container {
	userService := app.NewUserService(d.UserRepo)
	registry := app.NewModelRegistry(d.Snapshot, d.Store, d.Loader, d.Metrics, d.Logger.Named("registry"))
	scorer := app.NewPromptScorer(d.Embedder, d.Metrics, d.Logger.Named("scorer"))
	runner := app.NewDetectorRunner(d.DetectorTimeout, d.Metrics, d.Logger.Named("runner"))
	cascadeService := app.NewCascadeService(registry, scorer, runner, d.Media, d.Metrics, d.Logger.Named("cascade"))

	return &Container{
		UserService:    userService,
		CascadeService: cascadeService,
		Registry:       registry,
	}
}
