// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ntsc-tui/internal/effect"
	"github.com/jeranaias/ntsc-tui/internal/render"
	"github.com/jeranaias/ntsc-tui/internal/util"
)

// CurrentVersion is written to saved config files.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the main configuration structure for ntsc-tui.
type Config struct {
	Version string `toml:"version"`

	// Effect holds the effect settings of the last session. It is passed to
	// previews and render jobs as is.
	Effect effect.Settings `toml:"effect"`

	UI     UIConfig     `toml:"ui"`
	Render RenderConfig `toml:"render"`
	FFmpeg FFmpegConfig `toml:"ffmpeg"`
	Log    LogConfig    `toml:"log"`
}

// UIConfig holds editor settings.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme"`

	// PreviewFPS caps how often a new preview frame triggers a redraw.
	PreviewFPS int `toml:"preview_fps"`

	// PreviewWidth and PreviewHeight are the size of decoded preview frames
	// in pixels. Each terminal cell shows two pixel rows.
	PreviewWidth  int `toml:"preview_width"`
	PreviewHeight int `toml:"preview_height"`

	// PreviewScale downscales the source to this many lines before the
	// effect runs. Zero keeps the source size.
	PreviewScale int `toml:"preview_scale"`

	// SeekStepSecs is how far the arrow keys seek.
	SeekStepSecs float64 `toml:"seek_step_secs"`

	// LastPreset is the preset file loaded last; it is watched for changes.
	LastPreset string `toml:"last_preset"`
}

// RenderConfig holds the defaults offered when starting an export.
type RenderConfig struct {
	Codec      render.Codec `toml:"codec"`
	Interlaced bool         `toml:"interlaced"`

	// StillDurationSecs is the length of a video rendered from a still
	// image.
	StillDurationSecs float64 `toml:"still_duration_secs"`

	// OutputDir is where exports go when no directory is given. Empty uses
	// the source's directory.
	OutputDir string `toml:"output_dir"`
}

// FFmpegConfig locates the media tools.
type FFmpegConfig struct {
	FFmpeg           string `toml:"ffmpeg"`
	FFprobe          string `toml:"ffprobe"`
	ProbeTimeoutSecs int    `toml:"probe_timeout_secs"`
}

// LogConfig controls the log file. The TUI owns the terminal, so logs never
// go to stdout.
type LogConfig struct {
	Level string `toml:"level"`
	// Path of the log file. Empty uses ntsc-tui.log in the config directory.
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULT CONFIG
// =============================================================================

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Effect:  effect.Default(),
		UI: UIConfig{
			Theme:         "auto",
			PreviewFPS:    30,
			PreviewWidth:  160,
			PreviewHeight: 90,
			PreviewScale:  480,
			SeekStepSecs:  5,
		},
		Render: RenderConfig{
			Codec:             render.DefaultCodec(),
			StillDurationSecs: 5,
		},
		FFmpeg: FFmpegConfig{
			FFmpeg:           "ffmpeg",
			FFprobe:          "ffprobe",
			ProbeTimeoutSecs: 15,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ntsc-tui configuration directory path. NTSC_TUI_HOME
// replaces the default ~/.ntsc-tui.
func ConfigDir() (string, error) {
	if dir := os.Getenv("NTSC_TUI_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ntsc-tui"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LogPath returns the log file path for cfg.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return c.Log.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ntsc-tui.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the configuration from the default path. A missing file yields
// the defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		cfg := Default()
		return finish(cfg)
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := LoadTOML(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over the defaults. An [effect] section
// replaces the default effect as a whole, so blocks left out of it stay
// disabled.
func LoadTOML(path string) (*Config, error) {
	cfg := Default()
	cfg.Effect = effect.Settings{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if !md.IsDefined("effect") {
		cfg.Effect = effect.Default()
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// SetDefaults fills in zero values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	// Effect
	if c.Effect.UseField == "" {
		c.Effect.UseField = defaults.Effect.UseField
	}
	if c.Effect.BandwidthScale == 0 {
		c.Effect.BandwidthScale = defaults.Effect.BandwidthScale
	}

	// UI
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.PreviewFPS == 0 {
		c.UI.PreviewFPS = defaults.UI.PreviewFPS
	}
	if c.UI.PreviewWidth == 0 {
		c.UI.PreviewWidth = defaults.UI.PreviewWidth
	}
	if c.UI.PreviewHeight == 0 {
		c.UI.PreviewHeight = defaults.UI.PreviewHeight
	}
	if c.UI.SeekStepSecs == 0 {
		c.UI.SeekStepSecs = defaults.UI.SeekStepSecs
	}

	// Render
	if c.Render.Codec.Kind == "" {
		c.Render.Codec.Kind = defaults.Render.Codec.Kind
	}
	if c.Render.Codec.FFV1.BitDepth == 0 {
		c.Render.Codec.FFV1.BitDepth = defaults.Render.Codec.FFV1.BitDepth
	}
	if c.Render.StillDurationSecs == 0 {
		c.Render.StillDurationSecs = defaults.Render.StillDurationSecs
	}

	// FFmpeg
	if c.FFmpeg.FFmpeg == "" {
		c.FFmpeg.FFmpeg = defaults.FFmpeg.FFmpeg
	}
	if c.FFmpeg.FFprobe == "" {
		c.FFmpeg.FFprobe = defaults.FFmpeg.FFprobe
	}
	if c.FFmpeg.ProbeTimeoutSecs == 0 {
		c.FFmpeg.ProbeTimeoutSecs = defaults.FFmpeg.ProbeTimeoutSecs
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# ntsc-tui configuration file\n")
	buf.WriteString("# Written on exit; edit while ntsc-tui is not running.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := c.Effect.Validate(); err != nil {
		errs = append(errs, ValidationError{Field: "effect", Message: err.Error()})
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if c.UI.PreviewFPS < 1 || c.UI.PreviewFPS > 120 {
		errs = append(errs, ValidationError{
			Field:   "ui.preview_fps",
			Message: fmt.Sprintf("must be between 1 and 120, got %d", c.UI.PreviewFPS),
		})
	}
	if c.UI.PreviewWidth < 2 || c.UI.PreviewHeight < 2 {
		errs = append(errs, ValidationError{
			Field:   "ui.preview_width",
			Message: fmt.Sprintf("preview size %dx%d is too small", c.UI.PreviewWidth, c.UI.PreviewHeight),
		})
	}
	if c.UI.PreviewScale < 0 {
		errs = append(errs, ValidationError{Field: "ui.preview_scale", Message: "must not be negative"})
	}
	if c.UI.SeekStepSecs <= 0 {
		errs = append(errs, ValidationError{Field: "ui.seek_step_secs", Message: "must be positive"})
	}

	if err := c.Render.Codec.Validate(); err != nil {
		errs = append(errs, ValidationError{Field: "render.codec", Message: err.Error()})
	}

	if c.Render.StillDurationSecs < 0 {
		errs = append(errs, ValidationError{Field: "render.still_duration_secs", Message: "must not be negative"})
	}

	if c.FFmpeg.ProbeTimeoutSecs < 1 {
		errs = append(errs, ValidationError{Field: "ffmpeg.probe_timeout_secs", Message: "must be at least 1"})
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - NTSC_TUI_FFMPEG: overrides ffmpeg.ffmpeg
//   - NTSC_TUI_FFPROBE: overrides ffmpeg.ffprobe
//   - NTSC_TUI_THEME: overrides ui.theme
//   - NTSC_TUI_PREVIEW_FPS: overrides ui.preview_fps
//   - NTSC_TUI_CODEC: overrides render.codec.kind
//   - NTSC_TUI_LOG_LEVEL: overrides log.level
//   - NTSC_TUI_LOG_PATH: overrides log.path
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NTSC_TUI_FFMPEG"); v != "" {
		c.FFmpeg.FFmpeg = v
	}
	if v := os.Getenv("NTSC_TUI_FFPROBE"); v != "" {
		c.FFmpeg.FFprobe = v
	}
	if v := os.Getenv("NTSC_TUI_THEME"); v != "" {
		c.UI.Theme = strings.ToLower(v)
	}
	if v := os.Getenv("NTSC_TUI_PREVIEW_FPS"); v != "" {
		if fps, err := strconv.Atoi(v); err == nil {
			c.UI.PreviewFPS = fps
		}
	}
	if v := os.Getenv("NTSC_TUI_CODEC"); v != "" {
		if kind, err := render.ParseCodec(v); err == nil {
			c.Render.Codec.Kind = kind
		}
	}
	if v := os.Getenv("NTSC_TUI_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("NTSC_TUI_LOG_PATH"); v != "" {
		c.Log.Path = v
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Effect = c.Effect.Clone()
	return &clone
}

// String returns the configuration as it would be saved.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
