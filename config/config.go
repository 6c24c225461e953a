package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	ModelConfigPath string
	ModelsDir       string
	EmbeddingURL    string
	InferenceURL    string
	TelegramToken   string
	LogLevel        string
	RequestTimeout  time.Duration
	DetectorTimeout time.Duration
	FrameInterval   int
	VideoFPS        float64
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ModelConfigPath: getEnv("MODEL_CONFIG", "config.yaml"),
		ModelsDir:       getEnv("MODELS_DIR", "models"),
		EmbeddingURL:    getEnv("EMBEDDING_URL", "http://localhost:5001"),
		InferenceURL:    getEnv("INFERENCE_URL", "http://localhost:5000"),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DetectorTimeout, err = getDuration("DETECTOR_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.FrameInterval, err = getInt("FRAME_INTERVAL", 30); err != nil {
		return nil, err
	}
	if cfg.FrameInterval <= 0 {
		return nil, fmt.Errorf("FRAME_INTERVAL must be positive, got %d", cfg.FrameInterval)
	}
	if cfg.VideoFPS, err = getFloat("VIDEO_FPS", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return f, nil
}
