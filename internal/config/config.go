// Package config loads screencast settings with precedence
// CLI flag > environment (SCREENCAST_*) > TOML file > defaults.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/junsooki/screencast/internal/capture"
	"github.com/junsooki/screencast/internal/logging"
	"github.com/junsooki/screencast/internal/recording"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCREENCAST_"

// Source kinds.
const (
	SourceADB     = "adb"
	SourcePattern = "pattern"
	SourceDisplay = "display"
)

// Duration is a time.Duration written as "100ms" in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds all runtime configuration.
type Config struct {
	Device    DeviceConfig    `toml:"device"`
	Capture   CaptureConfig   `toml:"capture"`
	Recording RecordingConfig `toml:"recording"`
	Window    WindowConfig    `toml:"window"`
	Control   ControlConfig   `toml:"control"`
	Remote    RemoteConfig    `toml:"remote"`
	Logging   logging.Config  `toml:"logging"`
}

type DeviceConfig struct {
	Source        string   `toml:"source"`
	Serial        string   `toml:"serial"`
	ADBAddr       string   `toml:"adb_addr"`
	Timeout       Duration `toml:"timeout"`
	DisplayIndex  int      `toml:"display_index"`
	WaitForDevice bool     `toml:"wait_for_device"`
	PatternWidth  int      `toml:"pattern_width"`
	PatternHeight int      `toml:"pattern_height"`
}

type CaptureConfig struct {
	IdleDelay        Duration `toml:"idle_delay"`
	FrameDelay       Duration `toml:"frame_delay"`
	Landscape        bool     `toml:"landscape"`
	PointerRetention Duration `toml:"pointer_retention"`
}

type RecordingConfig struct {
	Format    string  `toml:"format"`
	Quality   float64 `toml:"quality"`
	FrameRate int     `toml:"frame_rate"`
	Dir       string  `toml:"dir"`
}

type WindowConfig struct {
	Enabled bool   `toml:"enabled"`
	Title   string `toml:"title"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
}

type ControlConfig struct {
	// Addr is the control API listen address; empty disables it.
	Addr string `toml:"addr"`
}

type RemoteConfig struct {
	// SignalingURL enables the remote viewer relay when set.
	SignalingURL string `toml:"signaling_url"`
	HostID       string `toml:"host_id"`
	Quality      int    `toml:"quality"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Source:        SourceADB,
			ADBAddr:       capture.DefaultADBAddr,
			Timeout:       Duration(5 * time.Second),
			WaitForDevice: true,
			PatternWidth:  720,
			PatternHeight: 1280,
		},
		Capture: CaptureConfig{
			IdleDelay:        Duration(100 * time.Millisecond),
			FrameDelay:       Duration(10 * time.Millisecond),
			PointerRetention: Duration(time.Second),
		},
		Recording: RecordingConfig{
			Format:    string(recording.FormatMJPEG),
			Quality:   1,
			FrameRate: 30,
			Dir:       ".",
		},
		Window: WindowConfig{
			Enabled: true,
			Title:   "screencast",
			Width:   720,
			Height:  1280,
		},
		Control: ControlConfig{Addr: "127.0.0.1:8090"},
		Remote:  RemoteConfig{Quality: 70},
		Logging: logging.Config{Level: "info", Format: "text"},
	}
}

// setting ties a flag and an environment variable to a Config field.
type setting struct {
	flag  string
	env   string
	usage string
	ptr   func(c *Config) any
}

var settings = []setting{
	{"source", "SOURCE", "frame source: adb, pattern or display", func(c *Config) any { return &c.Device.Source }},
	{"serial", "SERIAL", "device serial (empty = any single device)", func(c *Config) any { return &c.Device.Serial }},
	{"adb-addr", "ADB_ADDR", "adb server address", func(c *Config) any { return &c.Device.ADBAddr }},
	{"adb-timeout", "ADB_TIMEOUT", "timeout for one framebuffer fetch", func(c *Config) any { return &c.Device.Timeout }},
	{"display", "DISPLAY_INDEX", "local display index for the display source", func(c *Config) any { return &c.Device.DisplayIndex }},
	{"wait-for-device", "WAIT_FOR_DEVICE", "poll adb until a device shows up", func(c *Config) any { return &c.Device.WaitForDevice }},
	{"idle-delay", "IDLE_DELAY", "sleep while no device is connected", func(c *Config) any { return &c.Capture.IdleDelay }},
	{"frame-delay", "FRAME_DELAY", "sleep between captured frames", func(c *Config) any { return &c.Capture.FrameDelay }},
	{"landscape", "LANDSCAPE", "start in landscape orientation", func(c *Config) any { return &c.Capture.Landscape }},
	{"record-format", "RECORD_FORMAT", "recording format", func(c *Config) any { return &c.Recording.Format }},
	{"record-quality", "RECORD_QUALITY", "recording compression quality (0-1]", func(c *Config) any { return &c.Recording.Quality }},
	{"record-fps", "RECORD_FPS", "recording time scale in ticks per second", func(c *Config) any { return &c.Recording.FrameRate }},
	{"record-dir", "RECORD_DIR", "directory for recordings started from the window", func(c *Config) any { return &c.Recording.Dir }},
	{"window", "WINDOW", "open the mirror window", func(c *Config) any { return &c.Window.Enabled }},
	{"control-addr", "CONTROL_ADDR", "control API listen address (empty disables)", func(c *Config) any { return &c.Control.Addr }},
	{"signaling", "SIGNALING_URL", "signaling server URL for remote viewers (empty disables)", func(c *Config) any { return &c.Remote.SignalingURL }},
	{"host-id", "HOST_ID", "id announced to the signaling server", func(c *Config) any { return &c.Remote.HostID }},
	{"remote-quality", "REMOTE_QUALITY", "JPEG quality for remote viewers (1-100)", func(c *Config) any { return &c.Remote.Quality }},
	{"log-level", "LOG_LEVEL", "log level: debug, info, warn, error", func(c *Config) any { return &c.Logging.Level }},
	{"log-format", "LOG_FORMAT", "log format: text or json", func(c *Config) any { return &c.Logging.Format }},
}

// RegisterFlags adds every setting to fs with its default value.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	for _, s := range settings {
		switch p := s.ptr(&d).(type) {
		case *string:
			fs.String(s.flag, *p, s.usage)
		case *int:
			fs.Int(s.flag, *p, s.usage)
		case *bool:
			fs.Bool(s.flag, *p, s.usage)
		case *float64:
			fs.Float64(s.flag, *p, s.usage)
		case *Duration:
			fs.Duration(s.flag, time.Duration(*p), s.usage)
		}
	}
}

// Load builds the configuration from defaults, the TOML file at path (if
// path is non-empty), SCREENCAST_* variables and the flags changed in fs.
// fs may be nil.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	for _, s := range settings {
		v, ok := os.LookupEnv(EnvPrefix + s.env)
		if !ok || v == "" {
			continue
		}
		if err := setString(s.ptr(&cfg), v); err != nil {
			return cfg, fmt.Errorf("%s%s: %w", EnvPrefix, s.env, err)
		}
	}

	if fs != nil {
		for _, s := range settings {
			if !fs.Changed(s.flag) {
				continue
			}
			if err := setString(s.ptr(&cfg), fs.Lookup(s.flag).Value.String()); err != nil {
				return cfg, fmt.Errorf("--%s: %w", s.flag, err)
			}
		}
	}

	if cfg.Remote.HostID == "" {
		cfg.Remote.HostID = "screencast-" + randomID()
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func setString(ptr any, v string) error {
	switch p := ptr.(type) {
	case *string:
		*p = v
	case *int:
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*p = n
	case *bool:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*p = b
	case *float64:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*p = f
	case *Duration:
		return p.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("unsupported setting type %T", ptr)
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	switch c.Device.Source {
	case SourceADB, SourcePattern, SourceDisplay:
	default:
		errs = append(errs, fmt.Errorf("device.source: unknown source %q", c.Device.Source))
	}
	if c.Device.Source == SourcePattern && (c.Device.PatternWidth <= 0 || c.Device.PatternHeight <= 0) {
		errs = append(errs, fmt.Errorf("device.pattern size must be positive"))
	}
	if c.Capture.IdleDelay <= 0 || c.Capture.FrameDelay <= 0 {
		errs = append(errs, fmt.Errorf("capture delays must be positive"))
	}
	if c.Capture.PointerRetention <= 0 {
		errs = append(errs, fmt.Errorf("capture.pointer_retention must be positive"))
	}
	if _, err := recording.ParseFormat(c.Recording.Format); err != nil {
		errs = append(errs, fmt.Errorf("recording.format: %w", err))
	}
	if c.Recording.Quality <= 0 || c.Recording.Quality > 1 {
		errs = append(errs, fmt.Errorf("recording.quality must be in (0, 1], got %v", c.Recording.Quality))
	}
	if c.Recording.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("recording.frame_rate must be positive"))
	}
	if c.Window.Enabled && (c.Window.Width <= 0 || c.Window.Height <= 0) {
		errs = append(errs, fmt.Errorf("window size must be positive"))
	}
	if c.Remote.Quality < 1 || c.Remote.Quality > 100 {
		errs = append(errs, fmt.Errorf("remote.quality must be in [1, 100], got %d", c.Remote.Quality))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// RecordingOptions converts the recording section.
func (c Config) RecordingOptions() recording.Options {
	f, _ := recording.ParseFormat(c.Recording.Format)
	return recording.Options{Format: f, Quality: c.Recording.Quality, FrameRate: c.Recording.FrameRate}
}

func randomID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
