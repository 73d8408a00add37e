package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "hunt.max_days")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidFormats returns the list of valid report formats
func ValidFormats() []string {
	return []string{"text", "json", "yaml"}
}

// ValidProgressModes returns the list of valid progress modes
func ValidProgressModes() []string {
	return []string{"auto", "plain", "tui", "quiet"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateRepo()...)
	errors = append(errors, c.validateTarget()...)
	errors = append(errors, c.validateHunt()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)

	return errors
}

func (c *Config) validateRepo() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Repo.Path) == "" {
		errors = append(errors, ValidationError{
			Field:   "repo.path",
			Value:   c.Repo.Path,
			Message: "must not be empty",
		})
	}

	if strings.ContainsAny(c.Repo.DefaultBranch, " \t~^:?*[\\") {
		errors = append(errors, ValidationError{
			Field:   "repo.default_branch",
			Value:   c.Repo.DefaultBranch,
			Message: "is not a valid branch name",
		})
	}

	if c.Repo.CheckoutRetrySeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "repo.checkout_retry_seconds",
			Value:   c.Repo.CheckoutRetrySeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateTarget() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Target.Marker) == "" {
		errors = append(errors, ValidationError{
			Field:   "target.marker",
			Value:   c.Target.Marker,
			Message: "must not be empty",
		})
	}

	if c.Target.LogFile == "" {
		errors = append(errors, ValidationError{
			Field:   "target.log_file",
			Value:   c.Target.LogFile,
			Message: "must not be empty",
		})
	}

	if c.Target.ForceReload && c.Target.EntryFile == "" {
		errors = append(errors, ValidationError{
			Field:   "target.entry_file",
			Value:   c.Target.EntryFile,
			Message: "must be set when force_reload is enabled",
		})
	}

	// Reasonable bounds: a reload longer than ten minutes is a misconfiguration
	const maxSettleSeconds = 600
	if c.Target.SettleSeconds < 0 || c.Target.SettleSeconds > maxSettleSeconds {
		errors = append(errors, ValidationError{
			Field:   "target.settle_seconds",
			Value:   c.Target.SettleSeconds,
			Message: fmt.Sprintf("must be between 0 and %d", maxSettleSeconds),
		})
	}

	for env, raw := range c.Target.Environments {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "target.environments." + strings.ToLower(env),
				Value:   raw,
				Message: "must be an absolute http(s) URL",
			})
		}
	}

	for i, p := range c.Target.HealthPaths {
		if !strings.HasPrefix(p, "/") {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("target.health_paths[%d]", i),
				Value:   p,
				Message: "must start with /",
			})
		}
	}

	if c.Target.HealthTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "target.health_timeout_seconds",
			Value:   c.Target.HealthTimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateHunt() []ValidationError {
	var errors []ValidationError

	if c.Hunt.MaxDays <= 0 {
		errors = append(errors, ValidationError{
			Field:   "hunt.max_days",
			Value:   c.Hunt.MaxDays,
			Message: "must be positive",
		})
	}

	if c.Hunt.SmallWindow < 0 {
		errors = append(errors, ValidationError{
			Field:   "hunt.small_window",
			Value:   c.Hunt.SmallWindow,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB <= 0 || c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("must be between 1 and %d", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	if c.Logging.Enabled && c.Logging.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "must be set when logging is enabled",
		})
	}

	return errors
}

func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidFormats(), c.Output.Format) {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidFormats(), ", ")),
		})
	}

	if !slices.Contains(ValidProgressModes(), c.Output.Progress) {
		errors = append(errors, ValidationError{
			Field:   "output.progress",
			Value:   c.Output.Progress,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidProgressModes(), ", ")),
		})
	}

	return errors
}
