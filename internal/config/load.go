package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

var defaultPaths = []string{"config.yaml", "config.yml"}

// envNames maps environment variables to config keys. The DB_* names are
// the ones the deployment already exports.
var envNames = map[string]string{
	"DB_DRIVER":            "database.driver",
	"DB_HOST":              "database.host",
	"DB_PORT":              "database.port",
	"DB_LOGIN":             "database.user",
	"DB_PASSWORD":          "database.password",
	"DB_NAME":              "database.name",
	"DB_SSLMODE":           "database.sslmode",
	"DB_PATH":              "database.path",
	"DB_MAX_CONNECTIONS":   "database.max_connections",
	"LOG_LEVEL":            "log.level",
	"LOG_FORMAT":           "log.format",
	"INCLUSIVE_BONUS":      "compatibility.inclusive_bonus",
	"DISABILITY_BONUS":     "compatibility.disability_match_bonus",
	"PREDICTION_TREES":     "prediction.trees",
	"PREDICTION_SEED":      "prediction.seed",
	"PREDICTION_TREE_DOT":  "prediction.tree_dot_path",
	"MODEL_CACHE_SIZE":     "prediction.model_cache_size",
	"RECOMMEND_NEIGHBORS":  "recommendation.neighbors",
	"REFRESHER_ENABLED":    "refresher.enabled",
	"REFRESHER_INTERVAL":   "refresher.interval",
	"REFRESHER_ON_STARTUP": "refresher.run_on_startup",
	"METRICS_ENABLED":      "metrics.enabled",
	"METRICS_ADDR":         "metrics.addr",
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Load layers defaults, an optional YAML file, .env and the process
// environment, in that order.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(New(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints declared on the struct tags.
func (c *Config) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// envKey returns "" for variables that are not configuration, which makes
// koanf skip them.
func envKey(name string) string {
	if key, ok := envNames[strings.ToUpper(name)]; ok {
		return key
	}
	return ""
}

func findFile() string {
	if path := os.Getenv(PathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range defaultPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
