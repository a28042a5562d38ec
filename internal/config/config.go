package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig    `toml:"app"`
	HTTP   HTTPConfig   `toml:"http"`
	Models ModelsConfig `toml:"models"`
	ONNX   ONNXConfig   `toml:"onnx"`
	Log    LogConfig    `toml:"log"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

type HTTPConfig struct {
	MaxUploadBytes           int64 `toml:"max_upload_bytes"`
	MaxImagePixels           int64 `toml:"max_image_pixels"`
	ReadHeaderTimeoutSeconds int   `toml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int   `toml:"shutdown_timeout_seconds"`
}

// ModelsConfig names the five model files. Relative names resolve against Dir.
type ModelsConfig struct {
	Dir     string `toml:"dir"`
	Shape   string `toml:"shape"`
	Spot    string `toml:"spot"`
	Stem    string `toml:"stem"`
	Webbing string `toml:"webbing"`
	Disease string `toml:"disease"`
}

type ONNXConfig struct {
	SharedLibPath  string `toml:"shared_lib_path"`
	IntraOpThreads int    `toml:"intra_op_threads"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// Path resolves a model file name against the model directory.
func (m ModelsConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.Dir, name)
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "melonsense",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8000,
			GinMode: "debug",
		},
		HTTP: HTTPConfig{
			MaxUploadBytes:           10 << 20,
			MaxImagePixels:           178956970,
			ReadHeaderTimeoutSeconds: 5,
			ShutdownTimeoutSeconds:   5,
		},
		Models: ModelsConfig{
			Dir:     "models",
			Shape:   "shape_model.onnx",
			Spot:    "spot_model.onnx",
			Stem:    "stem_model.onnx",
			Webbing: "webbing_model.onnx",
			Disease: "diseases.onnx",
		},
		ONNX: ONNXConfig{
			SharedLibPath:  "", // use default or set via ONNX_LIB_PATH
			IntraOpThreads: 0,
		},
		Log: LogConfig{
			Level: "",
		},
	}
}

func loadDotEnv() error {
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err != nil {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("load env file %s failed: %w", envFile, err)
	}
	return nil
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)

	cfg.HTTP.MaxUploadBytes = getEnvAsInt64("HTTP_MAX_UPLOAD_BYTES", cfg.HTTP.MaxUploadBytes)
	cfg.HTTP.MaxImagePixels = getEnvAsInt64("HTTP_MAX_IMAGE_PIXELS", cfg.HTTP.MaxImagePixels)
	cfg.HTTP.ReadHeaderTimeoutSeconds = getEnvAsInt("HTTP_READ_HEADER_TIMEOUT_SECONDS", cfg.HTTP.ReadHeaderTimeoutSeconds)
	cfg.HTTP.ShutdownTimeoutSeconds = getEnvAsInt("HTTP_SHUTDOWN_TIMEOUT_SECONDS", cfg.HTTP.ShutdownTimeoutSeconds)

	cfg.Models.Dir = getEnv("MODEL_DIR", cfg.Models.Dir)
	cfg.Models.Shape = getEnv("MODEL_SHAPE", cfg.Models.Shape)
	cfg.Models.Spot = getEnv("MODEL_SPOT", cfg.Models.Spot)
	cfg.Models.Stem = getEnv("MODEL_STEM", cfg.Models.Stem)
	cfg.Models.Webbing = getEnv("MODEL_WEBBING", cfg.Models.Webbing)
	cfg.Models.Disease = getEnv("MODEL_DISEASE", cfg.Models.Disease)

	cfg.ONNX.SharedLibPath = getEnv("ONNX_LIB_PATH", cfg.ONNX.SharedLibPath)
	cfg.ONNX.IntraOpThreads = getEnvAsInt("ONNX_INTRA_OP_THREADS", cfg.ONNX.IntraOpThreads)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt64(key string, fallback int64) int64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
