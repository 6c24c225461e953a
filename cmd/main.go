package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vision-cascade/config"
	"vision-cascade/internal/api/httpapi"
	"vision-cascade/internal/api/telegram"
	app "vision-cascade/internal/application"
	"vision-cascade/internal/container"
	"vision-cascade/internal/infrastructure/inference"
	"vision-cascade/internal/infrastructure/storage"
	"vision-cascade/internal/infrastructure/vision"
	"vision-cascade/internal/logging"
	"vision-cascade/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("service stopped with error", "error", err)
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	models, err := config.LoadModelFile(cfg.ModelConfigPath)
	if err != nil {
		return err
	}

	embeddingClient := inference.NewClient(cfg.EmbeddingURL, cfg.RequestTimeout)
	inferenceClient := inference.NewClient(cfg.InferenceURL, cfg.RequestTimeout)
	loader := inference.NewLoader(inferenceClient)

	// Загружаем детекторы один раз при старте
	snapshot, err := app.BuildSnapshot(ctx, loader, models.Models, models.TextPrompts, models.LabelPrompts,
		models.Output.Confidence, logger.Named("startup"))
	if err != nil {
		return err
	}
	logger.Infow("registry ready",
		"detectors", snapshot.DetectorNames(),
		"prompts", len(snapshot.DefaultPrompts()),
		"confidence", snapshot.Confidence(),
	)

	media := app.MediaOptions{FrameInterval: cfg.FrameInterval, FPS: cfg.VideoFPS}
	if vision.Enabled {
		media.Codec = vision.NewGoCVCodec(os.TempDir())
		media.Annotator = vision.NewGoCVAnnotator()
	} else {
		logger.Warnw("built without gocv: video and annotations are disabled")
	}

	m := metrics.New()
	c := container.New(container.Deps{
		UserRepo:        storage.NewMemoryUserRepository(),
		Embedder:        inference.NewEmbedder(embeddingClient),
		Store:           storage.NewFileModelStore(cfg.ModelsDir, cfg.ModelConfigPath),
		Loader:          loader,
		Snapshot:        snapshot,
		Media:           media,
		DetectorTimeout: cfg.DetectorTimeout,
		Metrics:         m,
		Logger:          logger,
	})

	handler := httpapi.NewHandler(c.CascadeService, map[string]httpapi.HealthChecker{
		"embedding": embeddingClient,
		"inference": inferenceClient,
	}, m, logger.Named("http"), cfg.RequestTimeout)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infow("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, c.UserService, c.CascadeService, logger.Named("telegram"))
		if err != nil {
			return err
		}
		go func() {
			logger.Infow("bot is running")
			if err := bot.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Infow("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
