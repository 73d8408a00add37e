package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete whiterabbit configuration
type Config struct {
	Repo    RepoConfig    `mapstructure:"repo"`
	Target  TargetConfig  `mapstructure:"target"`
	Hunt    HuntConfig    `mapstructure:"hunt"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// RepoConfig describes the repository being bisected
type RepoConfig struct {
	// Path is the working tree of the inspected repository (default: ".")
	Path string `mapstructure:"path"`
	// DefaultBranch is where a detached HEAD is moved before a hunt.
	// Empty means "main" if it exists, otherwise "master".
	DefaultBranch string `mapstructure:"default_branch"`
	// AllowDetached keeps a detached HEAD as the reference to restore
	// instead of switching to DefaultBranch first.
	AllowDetached bool `mapstructure:"allow_detached"`
	// CheckoutRetrySeconds bounds how long a checkout waits for a held index.lock.
	CheckoutRetrySeconds int `mapstructure:"checkout_retry_seconds"`
}

// TargetConfig describes the supervised process whose log is inspected
type TargetConfig struct {
	// EntryFile is touched to make the supervisor reload the target
	EntryFile string `mapstructure:"entry_file"`
	// LogFile is the durable log scanned for the marker
	LogFile string `mapstructure:"log_file"`
	// Marker is searched for case-insensitively in LogFile
	Marker string `mapstructure:"marker"`
	// SettleSeconds is the fixed wait between reload and inspection
	SettleSeconds int `mapstructure:"settle_seconds"`
	// ForceReload touches EntryFile on every probe
	ForceReload bool `mapstructure:"force_reload"`
	// Environments maps environment tokens (DEV, PROD) to base URLs
	Environments map[string]string `mapstructure:"environments"`
	// HealthPaths are requested by the check command
	HealthPaths []string `mapstructure:"health_paths"`
	// HealthTimeoutSeconds bounds each health request including retries
	HealthTimeoutSeconds int `mapstructure:"health_timeout_seconds"`
}

// HuntConfig controls the regression search
type HuntConfig struct {
	// MaxDays caps lookback expansion
	MaxDays int `mapstructure:"max_days"`
	// AutoExpand doubles the lookback when the window is empty or all bad
	AutoExpand bool `mapstructure:"auto_expand"`
	// ConfirmBoundary re-probes the boundary pair once the search is done
	ConfirmBoundary bool `mapstructure:"confirm_boundary"`
	// SmallWindow is the revision count below which a wider window is suggested
	SmallWindow int `mapstructure:"small_window"`
}

// LoggingConfig controls the debug log
type LoggingConfig struct {
	// Enabled turns the JSON debug log on
	Enabled bool `mapstructure:"enabled"`
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Dir holds hunt.log, relative paths resolve against the repository
	Dir string `mapstructure:"dir"`
	// MaxSizeMB rotates hunt.log past this size
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files kept
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated files
	Compress bool `mapstructure:"compress"`
}

// OutputConfig controls what is printed to the terminal
type OutputConfig struct {
	// Format of the final report: text, json or yaml
	Format string `mapstructure:"format"`
	// Progress during the hunt: auto, plain, tui or quiet
	Progress string `mapstructure:"progress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Repo: RepoConfig{
			Path:                 ".",
			DefaultBranch:        "",
			AllowDetached:        false,
			CheckoutRetrySeconds: 10,
		},
		Target: TargetConfig{
			EntryFile:     "server.py",
			LogFile:       "logs/server.log",
			Marker:        "Welcome to Consoleland",
			SettleSeconds: 15,
			ForceReload:   true,
			Environments: map[string]string{
				"DEV":  "http://localhost:5001",
				"PROD": "http://localhost:5001",
			},
			HealthPaths:          []string{"/", "/profiles"},
			HealthTimeoutSeconds: 10,
		},
		Hunt: HuntConfig{
			MaxDays:         90,
			AutoExpand:      true,
			ConfirmBoundary: true,
			SmallWindow:     10,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        ".whiterabbit/logs",
			MaxSizeMB:  5,
			MaxBackups: 3,
			Compress:   false,
		},
		Output: OutputConfig{
			Format:   "text",
			Progress: "auto",
		},
	}
}

// SettleInterval returns the settling wait as a time.Duration
func (c *TargetConfig) SettleInterval() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// HealthTimeout returns the per-path health timeout as a time.Duration
func (c *TargetConfig) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutSeconds) * time.Second
}

// CheckoutRetry returns the index.lock retry budget as a time.Duration
func (c *RepoConfig) CheckoutRetry() time.Duration {
	return time.Duration(c.CheckoutRetrySeconds) * time.Second
}

// MaxLookback returns the expansion cap as a time.Duration
func (c *HuntConfig) MaxLookback() time.Duration {
	return Days(c.MaxDays)
}

// Days converts a day count into a lookback duration
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// Environment looks up the base URL for an environment token. Viper lowercases
// map keys, so the lookup ignores case.
func (c *TargetConfig) Environment(name string) (string, bool) {
	for k, v := range c.Environments {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// EnvironmentNames returns the configured environment tokens in upper case
func (c *TargetConfig) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for k := range c.Environments {
		names = append(names, strings.ToUpper(k))
	}
	slices.Sort(names)
	return names
}

// ResolvePath resolves p against the repository path unless it is absolute
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Repo.Path, p)
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Repo defaults
	viper.SetDefault("repo.path", defaults.Repo.Path)
	viper.SetDefault("repo.default_branch", defaults.Repo.DefaultBranch)
	viper.SetDefault("repo.allow_detached", defaults.Repo.AllowDetached)
	viper.SetDefault("repo.checkout_retry_seconds", defaults.Repo.CheckoutRetrySeconds)

	// Target defaults
	viper.SetDefault("target.entry_file", defaults.Target.EntryFile)
	viper.SetDefault("target.log_file", defaults.Target.LogFile)
	viper.SetDefault("target.marker", defaults.Target.Marker)
	viper.SetDefault("target.settle_seconds", defaults.Target.SettleSeconds)
	viper.SetDefault("target.force_reload", defaults.Target.ForceReload)
	viper.SetDefault("target.environments", defaults.Target.Environments)
	viper.SetDefault("target.health_paths", defaults.Target.HealthPaths)
	viper.SetDefault("target.health_timeout_seconds", defaults.Target.HealthTimeoutSeconds)

	// Hunt defaults
	viper.SetDefault("hunt.max_days", defaults.Hunt.MaxDays)
	viper.SetDefault("hunt.auto_expand", defaults.Hunt.AutoExpand)
	viper.SetDefault("hunt.confirm_boundary", defaults.Hunt.ConfirmBoundary)
	viper.SetDefault("hunt.small_window", defaults.Hunt.SmallWindow)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Output defaults
	viper.SetDefault("output.format", defaults.Output.Format)
	viper.SetDefault("output.progress", defaults.Output.Progress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load against an explicit viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "whiterabbit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".whiterabbit"
	}
	return filepath.Join(home, ".config", "whiterabbit")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
