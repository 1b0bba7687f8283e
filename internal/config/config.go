package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the process settings. Values come from an optional YAML file
// named by CONFIG_FILE, then from the environment (and .env), which wins.
type Config struct {
	Addr    string `yaml:"addr" validate:"required"`
	GinMode string `yaml:"gin_mode" validate:"oneof=debug release test"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`

	// CORSAllowedOrigins lists the origins browsers may call from. Empty
	// allows any origin.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" validate:"dive,url"`

	Upload UploadConfig `yaml:"upload"`
}

// UploadConfig bounds dataset uploads.
type UploadConfig struct {
	MaxBytes         int64 `yaml:"max_bytes" validate:"gt=0"`
	DefaultLimitRows int   `yaml:"default_limit_rows" validate:"gte=0"`
	DefaultTopN      int   `yaml:"default_top_n_routes" validate:"gte=0"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Addr:     "0.0.0.0:8080",
		GinMode:  "release",
		LogFile:  "./logs/app.log",
		LogLevel: "debug",
		Upload: UploadConfig{
			MaxBytes:         200 << 20,
			DefaultLimitRows: 50000,
			DefaultTopN:      50,
		},
	}
}

// Load reads .env, the optional YAML file and the environment, and
// validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found – relying on env vars")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "reading config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parsing config file %s", path)
		}
	}

	cfg.Addr = getEnv("ADDR", cfg.Addr)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)

	var err error
	if cfg.Upload.MaxBytes, err = getEnvInt64("UPLOAD_MAX_BYTES", cfg.Upload.MaxBytes); err != nil {
		return Config{}, err
	}
	if cfg.Upload.DefaultLimitRows, err = getEnvInt("UPLOAD_DEFAULT_LIMIT_ROWS", cfg.Upload.DefaultLimitRows); err != nil {
		return Config{}, err
	}
	if cfg.Upload.DefaultTopN, err = getEnvInt("UPLOAD_DEFAULT_TOP_N_ROUTES", cfg.Upload.DefaultTopN); err != nil {
		return Config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blank entries.
func getEnvList(key string, defaultValue []string) []string {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v, err := getEnvInt64(key, int64(defaultValue))
	return int(v), err
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "%s must be an integer", key)
	}
	return n, nil
}
