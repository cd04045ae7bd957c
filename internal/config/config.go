package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port              int           `envconfig:"PORT" default:"8080"`
	AssetDir          string        `envconfig:"ASSET_DIR" default:"./data/assets"`
	SessionSecret     string        `envconfig:"SESSION_SECRET" default:"dev-secret-change-in-production"`
	SessionTTL        time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	AllowedOrigins    string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	SnapTolerance     float64       `envconfig:"SNAP_TOLERANCE" default:"5"`
	JPEGQuality       int           `envconfig:"EXPORT_JPEG_QUALITY" default:"92"`
	ImageFetchTimeout time.Duration `envconfig:"IMAGE_FETCH_TIMEOUT" default:"15s"`
	MaxUploadMB       int64         `envconfig:"MAX_UPLOAD_MB" default:"10"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// OriginPatterns strips the scheme from each origin, the form the websocket
// accept options expect.
func (c *Config) OriginPatterns() []string {
	origins := c.Origins()
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "http://")
		o = strings.TrimPrefix(o, "https://")
		patterns = append(patterns, o)
	}
	return patterns
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
