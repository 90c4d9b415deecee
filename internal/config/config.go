package config

import (
	"fmt"
	"time"
)

type Config struct {
	Database       DatabaseConfig       `koanf:"database"`
	Log            LogConfig            `koanf:"log"`
	Compatibility  CompatibilityConfig  `koanf:"compatibility"`
	Features       FeaturesConfig       `koanf:"features"`
	Prediction     PredictionConfig     `koanf:"prediction"`
	Recommendation RecommendationConfig `koanf:"recommendation"`
	Refresher      RefresherConfig      `koanf:"refresher"`
	Metrics        MetricsConfig        `koanf:"metrics"`
}

type DatabaseConfig struct {
	Driver          string        `koanf:"driver" validate:"oneof=postgres sqlite"`
	Host            string        `koanf:"host" validate:"required_if=Driver postgres"`
	Port            string        `koanf:"port" validate:"required_if=Driver postgres"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name" validate:"required_if=Driver postgres"`
	SSLMode         string        `koanf:"sslmode"`
	Path            string        `koanf:"path" validate:"required_if=Driver sqlite"`
	MaxConnections  int           `koanf:"max_connections" validate:"min=1"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf(
		"user=%s dbname=%s sslmode=%s password=%s host=%s port=%s",
		d.User, d.Name, d.SSLMode, d.Password, d.Host, d.Port,
	)
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// CompatibilityConfig holds the additive inclusivity adjustments.
type CompatibilityConfig struct {
	InclusiveBonus       float64 `koanf:"inclusive_bonus" validate:"gte=0"`
	DisabilityMatchBonus float64 `koanf:"disability_match_bonus" validate:"gte=0"`
	MaxScore             float64 `koanf:"max_score" validate:"gt=0"`
}

// FeaturesConfig holds placeholder feature values. They are not derived
// from history yet.
type FeaturesConfig struct {
	HistoricalSimilarity float64 `koanf:"historical_similarity"`
	VolunteerSkillLevel  int     `koanf:"volunteer_skill_level"`
}

type PredictionConfig struct {
	HighOccupancyRatio float64 `koanf:"high_occupancy_ratio" validate:"gt=0,lte=1"`
	MinSamples         int     `koanf:"min_samples" validate:"min=2"`
	TestFraction       float64 `koanf:"test_fraction" validate:"gt=0,lt=1"`
	Trees              int     `koanf:"trees" validate:"min=1"`
	Seed               int64   `koanf:"seed"`
	TreeDotPath        string  `koanf:"tree_dot_path"`
	ModelCacheSize     int     `koanf:"model_cache_size" validate:"min=0"`
}

type RecommendationConfig struct {
	Neighbors   int    `koanf:"neighbors" validate:"min=1"`
	Description string `koanf:"description"`
}

type RefresherConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval" validate:"required_if=Enabled true"`
	RunOnStartup bool          `koanf:"run_on_startup"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr" validate:"required_if=Enabled true"`
}

func New() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            "5432",
			Name:            "voluntariado",
			SSLMode:         "disable",
			MaxConnections:  10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Compatibility: CompatibilityConfig{
			InclusiveBonus:       5.0,
			DisabilityMatchBonus: 10.0,
			MaxScore:             100.0,
		},
		Features: FeaturesConfig{
			HistoricalSimilarity: 0.5,
			VolunteerSkillLevel:  3,
		},
		Prediction: PredictionConfig{
			HighOccupancyRatio: 0.6,
			MinSamples:         10,
			TestFraction:       0.2,
			Trees:              100,
			Seed:               42,
			TreeDotPath:        "tree.dot",
		},
		Recommendation: RecommendationConfig{
			Neighbors:   5,
			Description: "Generated by user-based collaborative filtering",
		},
		Refresher: RefresherConfig{
			Interval: time.Hour,
		},
		Metrics: MetricsConfig{
			Addr: ":9102",
		},
	}
}
