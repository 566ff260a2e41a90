// Package config loads service settings from the environment and defines
// the closed registry of monitored regions.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment
// variables. A .env file in the working directory is applied first when
// present.
type Config struct {
	DataRoot  string `envconfig:"DATA_ROOT" default:"/var/lib/frameline" validate:"required"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	// Regions enabled for this process, in run order.
	Regions []string `envconfig:"REGIONS" default:"pacific,atlantic" validate:"min=1"`
	// RunInterval is the pause between pipeline sweeps; the service is
	// designed to be re-invoked over the same output tree, so a sweep is
	// cheap when nothing new arrived.
	RunInterval time.Duration `envconfig:"RUN_INTERVAL" default:"10m" validate:"gt=0"`

	GDALWarpPath string `envconfig:"GDALWARP_PATH" default:"gdalwarp" validate:"required"`
	FFmpegPath   string `envconfig:"FFMPEG_PATH" default:"ffmpeg" validate:"required"`
	LogoDir      string `envconfig:"LOGO_DIR"`

	// Remote sources.
	TileBaseURL       string        `envconfig:"TILE_BASE_URL" default:"https://rammb-slider.cira.colostate.edu" validate:"url"`
	CDNBaseURL        string        `envconfig:"CDN_BASE_URL" default:"https://cdn.star.nesdis.noaa.gov" validate:"url"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"60s" validate:"gt=0"`
	ChartPollInterval time.Duration `envconfig:"CHART_POLL_INTERVAL" default:"15m" validate:"gt=0"`

	// Frame-event notifier; disabled when no brokers are configured.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"frameline-frames"`
}

// Load reads configuration from the environment, applying defaults where
// unset, and validates the result.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return &cfg, nil
}

// validate is the shared validator instance; region definitions are
// checked with it too.
var validate = validator.New()
