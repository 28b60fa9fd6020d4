// Package config loads runtime configuration from file, environment,
// and defaults, in that order of increasing precedence for env and
// decreasing for defaults. Everything has a working default; a config
// file is optional.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kalyank1144/Ordinex-sub008/internal/logging"
)

// Config is the root configuration.
type Config struct {
	Logging   logging.Config  `mapstructure:"logging"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Events    EventsConfig    `mapstructure:"events"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Mission   MissionConfig   `mapstructure:"mission"`
}

// WorkspaceConfig locates the working tree and its checkpoint store.
type WorkspaceConfig struct {
	// Root is the directory missions read and write. Defaults to cwd.
	Root string `mapstructure:"root"`
	// StateDir holds the event log, index, and checkpoints.
	StateDir string `mapstructure:"state_dir"`
}

// EventsConfig locates the durable log and its derived index.
type EventsConfig struct {
	LogPath   string `mapstructure:"log_path"`
	IndexPath string `mapstructure:"index_path"`
}

// LLMConfig bounds model usage.
type LLMConfig struct {
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// MissionConfig bounds mission execution.
type MissionConfig struct {
	// RepairBudget is the number of repair diffs a mission may apply.
	RepairBudget int `mapstructure:"repair_budget"`
	// StageTimeout bounds every non-approval stage.
	StageTimeout time.Duration `mapstructure:"stage_timeout"`
	// TestTimeout bounds a single verification run.
	TestTimeout time.Duration `mapstructure:"test_timeout"`
	// AutoApprove grants every approval gate without prompting. Only
	// sensible for sandboxed or scripted use.
	AutoApprove bool `mapstructure:"auto_approve"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: logging.DefaultConfig(),
		Workspace: WorkspaceConfig{
			Root:     ".",
			StateDir: ".ordinex",
		},
		Events: EventsConfig{
			LogPath:   filepath.Join(".ordinex", "events.ndjson"),
			IndexPath: filepath.Join(".ordinex", "index.db"),
		},
		LLM: LLMConfig{
			Model:             "claude-sonnet-4-5",
			MaxTokens:         32000,
			MaxRetries:        3,
			RequestTimeout:    5 * time.Minute,
			MaxConcurrent:     2,
			RequestsPerMinute: 30,
		},
		Mission: MissionConfig{
			RepairBudget: 2,
			StageTimeout: 10 * time.Minute,
			TestTimeout:  15 * time.Minute,
		},
	}
}

// Load reads configuration from the optional file plus ORDINEX_*
// environment variables layered over defaults. path may be empty, in
// which case ordinex.yaml is searched in the workspace root.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("ORDINEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("ordinex")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work.
func (c Config) Validate() error {
	if c.Mission.RepairBudget < 0 {
		return fmt.Errorf("mission.repair_budget cannot be negative")
	}
	if c.Mission.StageTimeout <= 0 {
		return fmt.Errorf("mission.stage_timeout must be positive")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.LLM.MaxConcurrent <= 0 {
		return fmt.Errorf("llm.max_concurrent must be positive")
	}
	if c.Events.LogPath == "" {
		return fmt.Errorf("events.log_path is required")
	}
	return nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
	v.SetDefault("workspace.root", d.Workspace.Root)
	v.SetDefault("workspace.state_dir", d.Workspace.StateDir)
	v.SetDefault("events.log_path", d.Events.LogPath)
	v.SetDefault("events.index_path", d.Events.IndexPath)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.request_timeout", d.LLM.RequestTimeout)
	v.SetDefault("llm.max_concurrent", d.LLM.MaxConcurrent)
	v.SetDefault("llm.requests_per_minute", d.LLM.RequestsPerMinute)
	v.SetDefault("mission.repair_budget", d.Mission.RepairBudget)
	v.SetDefault("mission.stage_timeout", d.Mission.StageTimeout)
	v.SetDefault("mission.test_timeout", d.Mission.TestTimeout)
	v.SetDefault("mission.auto_approve", d.Mission.AutoApprove)
}
