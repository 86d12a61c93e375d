package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Tracker  TrackerConfig  `yaml:"tracker"`
	Detector DetectorConfig `yaml:"detector"`
	Frames   FramesConfig   `yaml:"frames"`
	Database DatabaseConfig `yaml:"database"`
	Web      WebConfig      `yaml:"web"`
}

type TrackerConfig struct {
	MaxMissed        int  `yaml:"max_missed" json:"max_missed"`               // consecutive missed frames before an id is forgotten
	IntegerCentroids bool `yaml:"integer_centroids" json:"integer_centroids"` // truncate centroids to whole pixels
}

type DetectorConfig struct {
	URL            string  `yaml:"url" json:"url"`             // face detection service base URL
	MinScore       float64 `yaml:"min_score" json:"min_score"` // detections at or below are dropped
	TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Timeout returns the per-request detector timeout.
func (c *DetectorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type FramesConfig struct {
	Width int `yaml:"width" json:"width"` // frames wider than this are downscaled before detection
}

type DatabaseConfig struct {
	URL          string `yaml:"-" json:"-"`             // PostgreSQL connection URL, empty keeps events in memory
	MaxOpenConns int    `yaml:"max_open_conns" json:"-"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns" json:"-"` // Maximum idle connections (default 5)
}

type WebConfig struct {
	Host           string   `yaml:"host" json:"host"`
	Port           int      `yaml:"port" json:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"` // extra CORS origins besides localhost
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable and parses it as a bool.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// envString returns the environment variable or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable. Empty entries are dropped.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Defaults returns the embedded default configuration without environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

func Load() *Config {
	cfg := Defaults()

	cfg.Tracker.MaxMissed = envInt("TRACKER_MAX_MISSED", cfg.Tracker.MaxMissed)
	cfg.Tracker.IntegerCentroids = envBool("TRACKER_INTEGER_CENTROIDS", cfg.Tracker.IntegerCentroids)

	cfg.Detector.URL = envString("DETECTOR_URL", cfg.Detector.URL)
	cfg.Detector.MinScore = envFloat("DETECTOR_MIN_SCORE", cfg.Detector.MinScore)
	cfg.Detector.TimeoutSeconds = envInt("DETECTOR_TIMEOUT_SECONDS", cfg.Detector.TimeoutSeconds)

	cfg.Frames.Width = envInt("FRAME_WIDTH", cfg.Frames.Width)

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	cfg.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Web.AllowedOrigins)

	return cfg
}
