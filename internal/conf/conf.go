package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/thetabots/xkcd-bot/internal/biz/usecase"
)

// Supported chat backends
const (
	BackendMatrix = "matrix"
	BackendFeishu = "feishu"
)

// Config represents application configuration
type Config struct {
	// Chat backend: matrix or feishu
	Backend string

	// Matrix configuration
	Matrix MatrixConfig

	// Feishu configuration
	Feishu FeishuConfig

	// Local state store (Feishu backend only)
	State StateConfig

	// Daily post configuration
	Feature FeatureConfig

	// Content sources
	Web WebConfig

	// Permission thresholds
	Levels usecase.LevelConfig

	// Number of concurrent event workers
	Workers int

	// Reply texts (loaded from YAML)
	Messages *MessagesConfig

	// Log level: debug, info, warn, error
	LogLevel string

	// Debug mode
	Debug bool

	powerLevelsErr error
	messagesErr    error
}

// MatrixConfig contains Matrix configuration
type MatrixConfig struct {
	Homeserver  string
	Username    string
	Password    string
	UserID      string
	AccessToken string
	AutoJoin    bool
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
	// PowerLevels grants levels to open_ids; the chat owner always has 100
	PowerLevels map[string]int
}

// StateConfig contains the local state store configuration
type StateConfig struct {
	DBPath string
}

// FeatureConfig contains daily post configuration
type FeatureConfig struct {
	Timezone string
	Interval time.Duration
	Sentinel string
}

// WebConfig contains the comic and inspiration endpoints
type WebConfig struct {
	XkcdURL       string
	InspirobotURL string
	Timeout       time.Duration
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	backend := strings.ToLower(os.Getenv("CHAT_BACKEND"))
	if backend == "" {
		backend = BackendMatrix
	}

	// State DB path
	stateDBPath := os.Getenv("STATE_DB_PATH")
	if stateDBPath == "" {
		homeDir, _ := os.UserHomeDir()
		stateDBPath = filepath.Join(homeDir, ".xkcd-bot", "state.db")
	}

	timezone := os.Getenv("FEATURE_TIMEZONE")
	if timezone == "" {
		timezone = "UTC"
	}

	sentinel := os.Getenv("FEATURE_SENTINEL")
	if sentinel == "" {
		sentinel = usecase.DefaultFeatureSentinel
	}

	levels := usecase.DefaultLevelConfig
	levels.FeatureConfig = envInt("LEVEL_FEATURE_CONFIG", levels.FeatureConfig)
	levels.CounterOverride = envInt("LEVEL_COUNTER_OVERRIDE", levels.CounterOverride)

	powerLevels, powerLevelsErr := ParsePowerLevels(os.Getenv("FEISHU_POWER_LEVELS"))

	// Load reply texts from YAML
	messages, messagesErr := LoadMessagesConfig(os.Getenv("MESSAGES_CONFIG_PATH"))

	return &Config{
		Backend: backend,
		Matrix: MatrixConfig{
			Homeserver:  os.Getenv("MATRIX_SERVER"),
			Username:    os.Getenv("MATRIX_USERNAME"),
			Password:    os.Getenv("MATRIX_PASSWORD"),
			UserID:      os.Getenv("MATRIX_USER_ID"),
			AccessToken: os.Getenv("MATRIX_ACCESS_TOKEN"),
			AutoJoin:    os.Getenv("MATRIX_AUTO_JOIN") == "true",
		},
		Feishu: FeishuConfig{
			AppID:       os.Getenv("FEISHU_APP_ID"),
			AppSecret:   os.Getenv("FEISHU_APP_SECRET"),
			PowerLevels: powerLevels,
		},
		State: StateConfig{
			DBPath: stateDBPath,
		},
		Feature: FeatureConfig{
			Timezone: timezone,
			Interval: time.Duration(envInt("FEATURE_INTERVAL_SECONDS", 60)) * time.Second,
			Sentinel: sentinel,
		},
		Web: WebConfig{
			XkcdURL:       os.Getenv("XKCD_URL"),
			InspirobotURL: os.Getenv("INSPIROBOT_URL"),
			Timeout:       time.Duration(envInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Levels:         levels,
		Workers:        envInt("WORKERS", 4),
		Messages:       messages,
		LogLevel:       os.Getenv("LOG_LEVEL"),
		Debug:          os.Getenv("DEBUG") == "true",
		powerLevelsErr: powerLevelsErr,
		messagesErr:    messagesErr,
	}
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// ParsePowerLevels parses "open_id=level" pairs separated by commas
func ParsePowerLevels(s string) (map[string]int, error) {
	levels := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		user, level, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid entry %q: expected open_id=level", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(level))
		if err != nil {
			return nil, fmt.Errorf("invalid level in %q: %w", pair, err)
		}
		levels[strings.TrimSpace(user)] = n
	}
	return levels, nil
}

// Location loads the daily post time zone
func (c *FeatureConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ToFeatureConfig converts to the daily post usecase configuration
func (c *Config) ToFeatureConfig() usecase.FeatureConfig {
	loc, err := c.Feature.Location()
	if err != nil {
		loc = time.UTC
	}
	return usecase.FeatureConfig{
		Location:    loc,
		Sentinel:    c.Feature.Sentinel,
		ConfigLevel: c.Levels.FeatureConfig,
		Replies:     c.ToReplyConfig(),
	}
}

// ToReplyConfig converts to the reply text configuration
func (c *Config) ToReplyConfig() usecase.ReplyConfig {
	if c.Messages == nil {
		return usecase.DefaultReplyConfig
	}
	return c.Messages.ToReplyConfig()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMatrix:
		if c.Matrix.Homeserver == "" {
			return &ConfigError{Field: "MATRIX_SERVER", Message: "required"}
		}
		hasToken := c.Matrix.AccessToken != "" && c.Matrix.UserID != ""
		hasPassword := c.Matrix.Username != "" && c.Matrix.Password != ""
		if !hasToken && !hasPassword {
			return &ConfigError{Field: "MATRIX_ACCESS_TOKEN/MATRIX_USERNAME", Message: "access token with user ID, or username with password, required"}
		}
	case BackendFeishu:
		if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
			return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
		}
		if c.powerLevelsErr != nil {
			return &ConfigError{Field: "FEISHU_POWER_LEVELS", Message: c.powerLevelsErr.Error()}
		}
	default:
		return &ConfigError{Field: "CHAT_BACKEND", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}

	if c.messagesErr != nil {
		return &ConfigError{Field: "MESSAGES_CONFIG_PATH", Message: c.messagesErr.Error()}
	}
	if _, err := c.Feature.Location(); err != nil {
		return &ConfigError{Field: "FEATURE_TIMEZONE", Message: err.Error()}
	}
	if c.Feature.Interval <= 0 {
		return &ConfigError{Field: "FEATURE_INTERVAL_SECONDS", Message: "must be positive"}
	}
	if c.Workers <= 0 {
		return &ConfigError{Field: "WORKERS", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
