package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds process-level options. Per-run pipeline settings (resolution,
// threshold, targets...) live in the settings store instead.
type Config struct {
	CameraIndex   int
	VirtualDevice string // v4l2loopback node the redacted feed is written to
	FFmpegPath    string
	ModelDir      string
	FixedModel    string
	OpenModel     string
	TextEncoder   string
	TextVocab     string
	EmbeddingDB   string
	SettingsPath  string
	LogDirectory  string
	ControlAddr   string
	PreviewWindow bool
	Autostart     bool
	Debug         bool
}

// Load reads an optional .env file and then the environment, falling back to defaults.
func Load() *Config {
	// a missing .env is the common case
	_ = godotenv.Load()

	modelDir := getEnv("MODEL_DIR", "models")
	return &Config{
		CameraIndex:   getEnvAsInt("CAMERA_INDEX", 0),
		VirtualDevice: getEnv("VIRTUAL_DEVICE", "/dev/video10"),
		FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),
		ModelDir:      modelDir,
		FixedModel:    getEnv("FIXED_MODEL", filepath.Join(modelDir, "yolov8n.onnx")),
		OpenModel:     getEnv("OPEN_MODEL", filepath.Join(modelDir, "yolov8s-worldv2.onnx")),
		TextEncoder:   getEnv("TEXT_ENCODER", filepath.Join(modelDir, "clip-text.onnx")),
		TextVocab:     getEnv("TEXT_VOCAB", filepath.Join(modelDir, "clip-vocab.json")),
		EmbeddingDB:   getEnv("EMBEDDING_DB", filepath.Join(".", "data", "embeddings.db")),
		SettingsPath:  getEnv("SETTINGS_PATH", "settings.json"),
		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		ControlAddr:   getEnv("CONTROL_ADDR", "127.0.0.1:8765"),
		PreviewWindow: getEnvAsBool("PREVIEW_WINDOW", true),
		Autostart:     getEnvAsBool("AUTOSTART", true),
		Debug:         getEnvAsBool("LOG_DEBUG", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := cast.ToIntE(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := cast.ToBoolE(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
