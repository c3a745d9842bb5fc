package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port int `envconfig:"PORT" default:"8080"`
	// DatabaseURL selects Postgres. Empty keeps everything in memory.
	DatabaseURL    string `envconfig:"DATABASE_URL" default:""`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	HistoryLimit  int           `envconfig:"HISTORY_LIMIT" default:"50"`
	AutosaveDelay time.Duration `envconfig:"AUTOSAVE_DELAY" default:"2s"`

	CodegenURL       string        `envconfig:"CODEGEN_URL" default:""`
	CodegenTimeout   time.Duration `envconfig:"CODEGEN_TIMEOUT" default:"60s"`
	AnthropicAPIKey  string        `envconfig:"ANTHROPIC_API_KEY" default:""`
	AnthropicModel   string        `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-5"`
	ExportPixelRatio float64       `envconfig:"EXPORT_PIXEL_RATIO" default:"2"`
	MetricsEnabled   bool          `envconfig:"METRICS_ENABLED" default:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
