// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/habitrun/internal/offline"
	"github.com/jeranaias/habitrun/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete habitrun configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Profile scopes every stored record. Several people can share one
	// database by switching profiles.
	Profile string `toml:"profile" json:"profile"`

	// Language is the default response language ("en" or "ar").
	Language string `toml:"language" json:"language"`

	// DataDir holds the database, logs and the secret key file.
	DataDir string `toml:"data_dir" json:"data_dir"`

	Gemini  GeminiConfig  `toml:"gemini" json:"gemini"`
	Queue   QueueConfig   `toml:"queue" json:"queue"`
	Offline OfflineConfig `toml:"offline" json:"offline"`
	Label   LabelConfig   `toml:"label" json:"label"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// GeminiConfig holds generation API settings.
type GeminiConfig struct {
	// APIKey is only a fallback. Keys saved with "habitrun setup" live in the
	// database, sealed, and take precedence.
	APIKey  string `toml:"api_key,omitempty" json:"api_key,omitempty"`
	Model   string `toml:"model" json:"model"`
	BaseURL string `toml:"base_url" json:"base_url"`
}

// QueueConfig holds prompt queue settings.
type QueueConfig struct {
	// TaskTimeoutSecs bounds one queued generation including its retry.
	// 0 disables the timeout.
	TaskTimeoutSecs int `toml:"task_timeout_secs" json:"task_timeout_secs"`

	// MinIntervalMs spaces out task starts. 0 means no pacing.
	MinIntervalMs int `toml:"min_interval_ms" json:"min_interval_ms"`

	HistorySize int `toml:"history_size" json:"history_size"`
}

// OfflineConfig holds connectivity settings.
type OfflineConfig struct {
	// Forced marks the assistant offline regardless of the probe.
	Forced         bool   `toml:"forced" json:"forced"`
	ProbeAddr      string `toml:"probe_addr" json:"probe_addr"`
	ProbeTimeoutMs int    `toml:"probe_timeout_ms" json:"probe_timeout_ms"`
	ProbeTTLSecs   int    `toml:"probe_ttl_secs" json:"probe_ttl_secs"`
}

// LabelConfig holds label scanner settings.
type LabelConfig struct {
	// AllowEmpty accepts an explicit empty ingredient list from the model as
	// a valid "nothing detected" result.
	AllowEmpty  bool `toml:"allow_empty" json:"allow_empty"`
	MaxImageDim int  `toml:"max_image_dim" json:"max_image_dim"`
	JPEGQuality int  `toml:"jpeg_quality" json:"jpeg_quality"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	File   string `toml:"file,omitempty" json:"file,omitempty"`
}

// UIConfig holds terminal rendering settings.
type UIConfig struct {
	// MarkdownStyle is a glamour style name or "auto".
	MarkdownStyle string `toml:"markdown_style" json:"markdown_style"`

	// Plain disables Markdown rendering and prints cleaned text.
	Plain bool `toml:"plain" json:"plain"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

const (
	// DefaultModel is the model used until one is picked during setup.
	DefaultModel = "gemini-2.5-flash"

	// DefaultBaseURL is the generation API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultProfile is the profile used when none is configured.
	DefaultProfile = "default"
)

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Version:  "1",
		Profile:  DefaultProfile,
		Language: "en",
		Gemini: GeminiConfig{
			Model:   DefaultModel,
			BaseURL: DefaultBaseURL,
		},
		Queue: QueueConfig{
			TaskTimeoutSecs: 120,
			MinIntervalMs:   0,
			HistorySize:     50,
		},
		Offline: OfflineConfig{
			ProbeAddr:      "generativelanguage.googleapis.com:443",
			ProbeTimeoutMs: 1500,
			ProbeTTLSecs:   30,
		},
		Label: LabelConfig{
			MaxImageDim: 1200,
			JPEGQuality: 90,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		UI: UIConfig{
			MarkdownStyle: "auto",
		},
	}
}

// TaskTimeout returns the queue task timeout as a duration.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Queue.TaskTimeoutSecs) * time.Second
}

// MinInterval returns the queue pacing interval as a duration.
func (c *Config) MinInterval() time.Duration {
	return time.Duration(c.Queue.MinIntervalMs) * time.Millisecond
}

// DatabasePath returns the path of the collections database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "habitrun.db")
}

// SecretKeyPath returns the path of the generated sealing key.
func (c *Config) SecretKeyPath() string {
	return filepath.Join(c.DataDir, "secret.key")
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the habitrun configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("HABITRUN_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".habitrun"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ensureSecurePermissions tightens a config file to 0600; it may hold a key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default location. It tries TOML, then
// JSON, then falls back to defaults. .env files and environment overrides are
// applied last.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return nil, err
	}

	switch {
	case fileExists(tomlPath):
		if err := LoadTOML(cfg, tomlPath); err != nil {
			return nil, fmt.Errorf("failed to load TOML config: %w", err)
		}
	case fileExists(jsonPath):
		if err := LoadJSON(cfg, jsonPath); err != nil {
			return nil, fmt.Errorf("failed to load JSON config: %w", err)
		}
	}

	return finish(cfg)
}

// LoadFromPath loads configuration from a specific file. Files ending in
// .json are decoded as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	loadDotEnv()
	cfg.ApplyEnvOverrides()
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// loadDotEnv loads ./.env and <config dir>/.env without overriding variables
// that are already set. Missing files are fine.
func loadDotEnv() {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if fileExists(path) {
			_ = godotenv.Load(path)
		}
	}
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if strings.TrimSpace(cfg.Profile) == "" {
		cfg.Profile = defaults.Profile
	}
	if cfg.Language == "" {
		cfg.Language = defaults.Language
	}
	if cfg.DataDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return err
		}
		cfg.DataDir = dir
	}

	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = defaults.Gemini.Model
	}
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = defaults.Gemini.BaseURL
	}
	cfg.Gemini.BaseURL = strings.TrimSuffix(cfg.Gemini.BaseURL, "/")

	if cfg.Queue.HistorySize == 0 {
		cfg.Queue.HistorySize = defaults.Queue.HistorySize
	}

	if cfg.Offline.ProbeAddr == "" {
		cfg.Offline.ProbeAddr = defaults.Offline.ProbeAddr
	}
	if cfg.Offline.ProbeTimeoutMs == 0 {
		cfg.Offline.ProbeTimeoutMs = defaults.Offline.ProbeTimeoutMs
	}
	if cfg.Offline.ProbeTTLSecs == 0 {
		cfg.Offline.ProbeTTLSecs = defaults.Offline.ProbeTTLSecs
	}

	if cfg.Label.MaxImageDim == 0 {
		cfg.Label.MaxImageDim = defaults.Label.MaxImageDim
	}
	if cfg.Label.JPEGQuality == 0 {
		cfg.Label.JPEGQuality = defaults.Label.JPEGQuality
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.UI.MarkdownStyle == "" {
		cfg.UI.MarkdownStyle = defaults.UI.MarkdownStyle
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# habitrun configuration file\n")
	b.WriteString("# Generated by habitrun - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if lang := strings.ToLower(c.Language); lang != "en" && lang != "ar" {
		errs = append(errs, ValidationError{
			Field:   "language",
			Message: fmt.Sprintf("unsupported language '%s', must be en or ar", c.Language),
		})
	}

	if err := offline.ValidateURL(c.Gemini.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "gemini.base_url", Message: err.Error()})
	}

	if strings.ContainsAny(c.Profile, "/\\") {
		errs = append(errs, ValidationError{
			Field:   "profile",
			Message: "profile names cannot contain path separators",
		})
	}

	if c.Queue.TaskTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "queue.task_timeout_secs", Message: "must be >= 0"})
	}
	if c.Queue.MinIntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "queue.min_interval_ms", Message: "must be >= 0"})
	}
	if c.Queue.HistorySize < 0 {
		errs = append(errs, ValidationError{Field: "queue.history_size", Message: "must be >= 0"})
	}

	if c.Label.MaxImageDim < 64 || c.Label.MaxImageDim > 4096 {
		errs = append(errs, ValidationError{
			Field:   "label.max_image_dim",
			Message: fmt.Sprintf("%d out of range (64-4096)", c.Label.MaxImageDim),
		})
	}
	if c.Label.JPEGQuality < 1 || c.Label.JPEGQuality > 100 {
		errs = append(errs, ValidationError{
			Field:   "label.jpeg_quality",
			Message: fmt.Sprintf("%d out of range (1-100)", c.Label.JPEGQuality),
		})
	}

	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format '%s', must be text or json", c.Logging.Format),
		})
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
//   - HABITRUN_PROFILE: overrides profile
//   - HABITRUN_LANGUAGE: overrides language
//   - HABITRUN_DATA_DIR: overrides data_dir
//   - HABITRUN_GEMINI_API_KEY, GEMINI_API_KEY: fallback API key
//   - HABITRUN_GEMINI_MODEL: overrides gemini.model
//   - HABITRUN_GEMINI_BASE_URL: overrides gemini.base_url
//   - HABITRUN_OFFLINE: "1" or "true" forces offline mode
//   - HABITRUN_QUEUE_TIMEOUT: queue task timeout in seconds
//   - HABITRUN_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("HABITRUN_PROFILE"); v != "" {
		c.Profile = v
	}
	if v := os.Getenv("HABITRUN_LANGUAGE"); v != "" {
		c.Language = strings.ToLower(v)
	}
	if v := os.Getenv("HABITRUN_DATA_DIR"); v != "" {
		c.DataDir = v
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("HABITRUN_GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("HABITRUN_GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv("HABITRUN_GEMINI_BASE_URL"); v != "" {
		c.Gemini.BaseURL = v
	}

	if v := os.Getenv("HABITRUN_OFFLINE"); v != "" {
		c.Offline.Forced = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HABITRUN_QUEUE_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Queue.TaskTimeoutSecs = secs
		}
	}
	if v := os.Getenv("HABITRUN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// String returns a JSON representation with the API key redacted.
func (c *Config) String() string {
	safe := *c
	if safe.Gemini.APIKey != "" {
		safe.Gemini.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// ErrNoConfigFile is returned by Path when no config file exists yet.
var ErrNoConfigFile = errors.New("no config file found")

// Path returns the config file in use, preferring TOML.
func Path() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if fileExists(tomlPath) {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if fileExists(jsonPath) {
		return jsonPath, nil
	}
	return tomlPath, ErrNoConfigFile
}
