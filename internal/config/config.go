// Package config holds pagecheck's runtime defaults and their PAGECHECK_*
// environment overrides. Command-line flags take precedence over both;
// the cli package applies them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Driver names.
const (
	DriverCDP    = "cdp"
	DriverStatic = "static"
)

// Config is the effective runtime configuration.
type Config struct {
	// BaseURL overrides the contract's base URL. Empty keeps the contract's.
	BaseURL string

	// Driver is "cdp" (headless Chrome) or "static" (HTTP + HTML parsing).
	Driver string

	// Variant picks the built-in contract when no contract dir is given.
	Variant string

	// Timeout bounds the wait for one scenario outcome.
	Timeout time.Duration

	// PollInterval is how often page state is sampled while waiting.
	PollInterval time.Duration

	// TimingRuns and TimingCeiling override the contract's latency check
	// settings when non-zero.
	TimingRuns    int
	TimingCeiling time.Duration

	// Headless runs Chrome without a window.
	Headless bool

	// ChromePath is the Chrome binary; empty lets chromedp search.
	ChromePath string

	// ChromeRemote is a DevTools websocket URL of a running Chrome.
	ChromeRemote string

	// DB is the run history database; empty disables recording.
	DB string

	// Addr is the listen address of the reference app.
	Addr string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Driver:       DriverCDP,
		Variant:      "react",
		Timeout:      10 * time.Second,
		PollInterval: 100 * time.Millisecond,
		Headless:     true,
		Addr:         "127.0.0.1:3000",
	}
}

// Load applies PAGECHECK_* variables read through getenv on top of
// Default. A malformed value is an error naming the variable.
func Load(getenv func(string) string) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
				return
			}
			*dst = d
		}
	}

	str("PAGECHECK_BASE_URL", &cfg.BaseURL)
	str("PAGECHECK_DRIVER", &cfg.Driver)
	str("PAGECHECK_VARIANT", &cfg.Variant)
	str("PAGECHECK_CHROME_PATH", &cfg.ChromePath)
	str("PAGECHECK_CHROME_REMOTE", &cfg.ChromeRemote)
	str("PAGECHECK_DB", &cfg.DB)
	str("PAGECHECK_ADDR", &cfg.Addr)
	dur("PAGECHECK_TIMEOUT", &cfg.Timeout)
	dur("PAGECHECK_POLL_INTERVAL", &cfg.PollInterval)
	dur("PAGECHECK_TIMING_CEILING", &cfg.TimingCeiling)

	if v := getenv("PAGECHECK_TIMING_RUNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("PAGECHECK_TIMING_RUNS: must be a positive integer, got %q", v))
		} else {
			cfg.TimingRuns = n
		}
	}
	if v := getenv("PAGECHECK_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PAGECHECK_HEADLESS: invalid boolean %q", v))
		} else {
			cfg.Headless = b
		}
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks values that flags or the environment can break.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverCDP, DriverStatic:
	default:
		return fmt.Errorf("unknown driver %q: must be cdp or static", c.Driver)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}
