// Package config loads handplay settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ayusman/handplay/internal/gesture"
	"github.com/ayusman/handplay/internal/playback"
)

// EnvPrefix is prepended to every environment override, e.g. HANDPLAY_GESTURE_COOLDOWN.
const EnvPrefix = "HANDPLAY"

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Camera    CameraConfig    `mapstructure:"camera" yaml:"camera"`
	Detector  DetectorConfig  `mapstructure:"detector" yaml:"detector"`
	Gesture   GestureConfig   `mapstructure:"gesture" yaml:"gesture"`
	Player    PlayerConfig    `mapstructure:"player" yaml:"player"`
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Tray      TrayConfig      `mapstructure:"tray" yaml:"tray"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

type CameraConfig struct {
	DeviceID int  `mapstructure:"device_id" yaml:"device_id"`
	FPS      int  `mapstructure:"fps" yaml:"fps"`
	Flip     bool `mapstructure:"flip" yaml:"flip"`
}

type DetectorConfig struct {
	MaxHands              int     `mapstructure:"max_hands" yaml:"max_hands"`
	MinConfidence         float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	MinTrackingConfidence float64 `mapstructure:"min_tracking_confidence" yaml:"min_tracking_confidence"`
}

// GestureConfig selects the rule table and its parameters.
type GestureConfig struct {
	Rules                   string        `mapstructure:"rules" yaml:"rules"`
	ThumbReference          string        `mapstructure:"thumb_reference" yaml:"thumb_reference"`
	OkayThreshold           float64       `mapstructure:"okay_threshold" yaml:"okay_threshold"`
	PointDeadzone           float64       `mapstructure:"point_deadzone" yaml:"point_deadzone"`
	FistRequiresThumbCurled bool          `mapstructure:"fist_requires_thumb_curled" yaml:"fist_requires_thumb_curled"`
	Cooldown                time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	TieBreak                string        `mapstructure:"tie_break" yaml:"tie_break"`
}

// Params converts the config into classifier parameters.
func (g GestureConfig) Params() gesture.Params {
	return gesture.Params{
		ThumbReference:          gesture.ThumbReference(g.ThumbReference),
		OkayThreshold:           g.OkayThreshold,
		PointDeadzone:           g.PointDeadzone,
		FistRequiresThumbCurled: g.FistRequiresThumbCurled,
	}
}

type PlayerConfig struct {
	RenderFPS   int    `mapstructure:"render_fps" yaml:"render_fps"`
	SeekSeconds int    `mapstructure:"seek_seconds" yaml:"seek_seconds"`
	SeekPolicy  string `mapstructure:"seek_policy" yaml:"seek_policy"`
}

type TransportConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	QueueSize    int           `mapstructure:"queue_size" yaml:"queue_size"`
}

type ServerConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr      string `mapstructure:"addr" yaml:"addr"`
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type TrayConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DataDir is where handplay keeps its database and helper scripts.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".handplay"
	}
	return filepath.Join(home, ".handplay")
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "handplay")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Camera --
	v.SetDefault("camera.device_id", 0)
	v.SetDefault("camera.fps", 15)
	v.SetDefault("camera.flip", true)

	// -- Detector --
	v.SetDefault("detector.max_hands", 2)
	v.SetDefault("detector.min_confidence", 0.7)
	v.SetDefault("detector.min_tracking_confidence", 0.7)

	// -- Gesture --
	v.SetDefault("gesture.rules", gesture.RulesCanonical)
	v.SetDefault("gesture.thumb_reference", string(gesture.ThumbIP))
	v.SetDefault("gesture.okay_threshold", 0.05)
	v.SetDefault("gesture.point_deadzone", 0.05)
	v.SetDefault("gesture.fist_requires_thumb_curled", false)
	v.SetDefault("gesture.cooldown", gesture.DefaultCooldown)
	v.SetDefault("gesture.tie_break", string(gesture.TieBreakFirst))

	// -- Player --
	v.SetDefault("player.render_fps", 30)
	v.SetDefault("player.seek_seconds", 10)
	v.SetDefault("player.seek_policy", string(playback.SeekClamp))

	// -- Transport --
	v.SetDefault("transport.addr", "127.0.0.1:65432")
	v.SetDefault("transport.dial_timeout", 2*time.Second)
	v.SetDefault("transport.write_timeout", 500*time.Millisecond)
	v.SetDefault("transport.queue_size", 8)

	// -- Server --
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.static_dir", "")

	// -- Store --
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", filepath.Join(DataDir(), "handplay.db"))

	// -- Tray --
	v.SetDefault("tray.enabled", false)
}

// NewConfigFromViper decodes and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for unknown enum values and non-positive
// rates and durations. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch c.Logger.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format))
	}

	check(c.Camera.FPS > 0, "camera.fps must be positive")
	check(c.Detector.MaxHands > 0, "detector.max_hands must be positive")
	check(c.Detector.MinConfidence >= 0 && c.Detector.MinConfidence <= 1, "detector.min_confidence must be within [0, 1]")
	check(c.Detector.MinTrackingConfidence >= 0 && c.Detector.MinTrackingConfidence <= 1, "detector.min_tracking_confidence must be within [0, 1]")

	if _, err := gesture.NewClassifier(c.Gesture.Rules, c.Gesture.Params(), gesture.TieBreak(c.Gesture.TieBreak)); err != nil {
		errs = append(errs, fmt.Errorf("gesture: %w", err))
	}
	switch gesture.ThumbReference(c.Gesture.ThumbReference) {
	case gesture.ThumbIP, gesture.ThumbMCP:
	default:
		errs = append(errs, fmt.Errorf("gesture.thumb_reference must be ip or mcp, got %q", c.Gesture.ThumbReference))
	}
	check(c.Gesture.OkayThreshold > 0, "gesture.okay_threshold must be positive")
	check(c.Gesture.PointDeadzone >= 0, "gesture.point_deadzone must not be negative")
	check(c.Gesture.Cooldown > 0, "gesture.cooldown must be positive")

	check(c.Player.RenderFPS > 0, "player.render_fps must be positive")
	check(c.Player.SeekSeconds > 0, "player.seek_seconds must be positive")
	if _, err := playback.ParseSeekPolicy(c.Player.SeekPolicy); err != nil {
		errs = append(errs, fmt.Errorf("player.seek_policy: %w", err))
	}

	check(strings.TrimSpace(c.Transport.Addr) != "", "transport.addr is required")
	check(c.Transport.DialTimeout > 0, "transport.dial_timeout must be positive")
	check(c.Transport.WriteTimeout > 0, "transport.write_timeout must be positive")
	check(c.Transport.QueueSize > 0, "transport.queue_size must be positive")

	check(!c.Server.Enabled || c.Server.Addr != "", "server.addr is required when the server is enabled")
	check(!c.Store.Enabled || c.Store.Path != "", "store.path is required when the store is enabled")

	return errors.Join(errs...)
}
