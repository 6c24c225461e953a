package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"HTTP_ADDR", "REQUEST_TIMEOUT", "FRAME_INTERVAL", "VIDEO_FPS", "DETECTOR_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Equal(t, 20*time.Second, cfg.DetectorTimeout)
	require.Equal(t, 30, cfg.FrameInterval)
	require.Equal(t, 10.0, cfg.VideoFPS)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("FRAME_INTERVAL", "15")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.HTTPAddr)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout)
	require.Equal(t, 15, cfg.FrameInterval)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("FRAME_INTERVAL", "0")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("FRAME_INTERVAL", "")
	t.Setenv("REQUEST_TIMEOUT", "soon")
	_, err = Load()
	require.Error(t, err)
}

const sampleModels = `models:
  face_detection: models/face_detection_best.pt
text_prompts:
  face_detection:
    - A photo of a person's face
output:
  confidence: 0.4
`

func TestLoadModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleModels), 0o644))

	mf, err := LoadModelFile(path)
	require.NoError(t, err)
	require.Equal(t, "models/face_detection_best.pt", mf.Models["face_detection"])
	require.Equal(t, []string{"A photo of a person's face"}, mf.TextPrompts["face_detection"])
	require.Equal(t, 0.4, mf.Output.Confidence)
}

func TestLoadModelFile_DefaultsAndValidation(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("models: {}\n"), 0o644))
	mf, err := LoadModelFile(empty)
	require.NoError(t, err)
	require.Equal(t, DefaultConfidence, mf.Output.Confidence)
	require.NotNil(t, mf.TextPrompts)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("models: {}\ntext_prompts:\n  ghost: [x]\n"), 0o644))
	_, err = LoadModelFile(bad)
	require.ErrorContains(t, err, "ghost")
}

func TestSaveModelFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleModels), 0o644))

	mf, err := LoadModelFile(path)
	require.NoError(t, err)
	mf.Models["car_detection"] = "models/car_detection_best.pt"
	mf.TextPrompts["car_detection"] = []string{"a car"}
	require.NoError(t, SaveModelFile(path, mf))

	reloaded, err := LoadModelFile(path)
	require.NoError(t, err)
	require.Len(t, reloaded.Models, 2)
	require.Equal(t, []string{"a car"}, reloaded.TextPrompts["car_detection"])
}
