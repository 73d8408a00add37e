// Package health runs the HTTP health checks of a deployed environment.
//
// Each configured path is requested with GET on the environment's base URL.
// A check succeeds only on 200. Transport errors and 5xx responses are
// retried with exponential backoff until the per-check timeout; any other
// status is final.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
)

// DefaultTimeout bounds one check including retries.
const DefaultTimeout = 10 * time.Second

// Check is the result of one health request.
type Check struct {
	Name       string        `json:"name" yaml:"name"`
	URL        string        `json:"url" yaml:"url"`
	StatusCode int           `json:"status_code" yaml:"status_code"`
	Success    bool          `json:"success" yaml:"success"`
	Attempts   int           `json:"attempts" yaml:"attempts"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Details flattens the check for a results.Recorder.
func (c Check) Details() map[string]any {
	d := map[string]any{
		"url":         c.URL,
		"status_code": c.StatusCode,
		"attempts":    c.Attempts,
	}
	if c.Error != "" {
		d["error"] = c.Error
	}
	return d
}

// Checker runs health checks.
type Checker struct {
	client       *http.Client
	environments map[string]string
	paths        []string
	timeout      time.Duration
	newBackoff   func() backoff.BackOff
	logger       *logging.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(ch *Checker) { ch.client = c }
}

// WithTimeout bounds each check including retries.
func WithTimeout(d time.Duration) Option {
	return func(ch *Checker) { ch.timeout = d }
}

// WithBackoff replaces the retry policy.
func WithBackoff(fn func() backoff.BackOff) Option {
	return func(ch *Checker) { ch.newBackoff = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(ch *Checker) {
		if logger != nil {
			ch.logger = logger
		}
	}
}

// NewChecker creates a Checker for the given environment base URLs and paths.
func NewChecker(environments map[string]string, paths []string, opts ...Option) *Checker {
	c := &Checker{
		client:       http.DefaultClient,
		environments: environments,
		paths:        paths,
		timeout:      DefaultTimeout,
		logger:       logging.NopLogger(),
	}
	c.newBackoff = func() backoff.BackOff {
		return &backoff.ExponentialBackOff{
			InitialInterval:     250 * time.Millisecond,
			RandomizationFactor: 0.5,
			Multiplier:          1.5,
			MaxInterval:         2 * time.Second,
			MaxElapsedTime:      c.timeout,
			Clock:               backoff.SystemClock,
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL looks up env, ignoring case.
func (c *Checker) BaseURL(env string) (string, bool) {
	for name, u := range c.environments {
		if strings.EqualFold(name, env) {
			return u, true
		}
	}
	return "", false
}

// Run checks every configured path of env in order.
func (c *Checker) Run(ctx context.Context, env string) ([]Check, error) {
	base, ok := c.BaseURL(env)
	if !ok {
		return nil, errors.NewValidationError("unknown environment").
			WithField("environment").
			WithValue(env)
	}
	checks := make([]Check, 0, len(c.paths))
	for _, p := range c.paths {
		checks = append(checks, c.check(ctx, base, p))
	}
	return checks, nil
}

// CheckName names the check for path: "/" is the server itself, anything
// else is an API endpoint.
func CheckName(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "server_health"
	}
	return "api_health_" + strings.ReplaceAll(trimmed, "/", "_")
}

var errServer = errors.New("server error")

func (c *Checker) check(ctx context.Context, base, path string) (check Check) {
	check.Name = CheckName(path)
	start := time.Now()
	defer func() { check.Elapsed = time.Since(start) }()

	target, err := url.JoinPath(base, path)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	check.URL = target

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	op := func() error {
		check.Attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		check.StatusCode = resp.StatusCode
		if resp.StatusCode >= 500 {
			return errServer
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("health check failed, retrying",
			"check", check.Name, "url", target, "error", err.Error(), "wait", wait.String())
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(c.newBackoff(), ctx), notify); err != nil {
		if err == errServer {
			err = fmt.Errorf("unexpected status %d", check.StatusCode)
		}
		check.Error = err.Error()
		c.logger.Warn("health check failed", "check", check.Name, "url", target, "error", check.Error)
		return check
	}
	check.Success = true
	c.logger.Info("health check passed", "check", check.Name, "url", target, "attempts", check.Attempts)
	return check
}
