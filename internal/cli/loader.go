package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/pagecheck/internal/config"
	"github.com/roach88/pagecheck/internal/contract"
	"github.com/roach88/pagecheck/internal/driver"
	"github.com/roach88/pagecheck/internal/driver/cdp"
	"github.com/roach88/pagecheck/internal/driver/static"
	"github.com/roach88/pagecheck/internal/harness"
)

// LoadError represents an error during contract or scenario loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Error codes for CLI output.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeStoreFailed  = "E007" // History database error
	ErrCodeContract     = "E101" // Contract rule violated
	ErrCodeScenario     = "E201" // Scenario file invalid
	ErrCodeDriverFailed = "E301" // Driver could not start
)

// LoadContract returns the contract compiled from dir, or the built-in
// contract for variant when dir is empty.
func LoadContract(dir, variant string) (*contract.Contract, error) {
	if dir == "" {
		c, err := contract.Builtin(variant)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
		return c, nil
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("contract directory not found: %s", dir)}
	}
	files, err := contract.FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	c, err := contract.LoadDir(dir)
	if err != nil {
		return nil, contractLoadError(err)
	}
	return c, nil
}

// contractLoadError maps a compile failure to a LoadError, keeping the
// first CUE position.
func contractLoadError(err error) error {
	var ce *contract.CompileError
	if errors.As(err, &ce) {
		code := ErrCodeContract
		if ce.Field == "cue" {
			code = ErrCodeBuildFailed
		}
		if len(compileErrors(err)) > 1 {
			return &LoadError{Code: code, Message: err.Error()}
		}
		return &LoadError{Code: code, Message: fmt.Sprintf("%s: %s", ce.Field, ce.Message), Pos: ce.Pos}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// compileErrors flattens a joined contract error into its parts.
func compileErrors(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, compileErrors(e)...)
		}
		return out
	}
	return []error{err}
}

// applyTimingOverrides copies non-zero timing settings from cfg onto c.
func applyTimingOverrides(c *contract.Contract, cfg config.Config) {
	if cfg.TimingRuns > 0 {
		c.Timing.Runs = cfg.TimingRuns
	}
	if cfg.TimingCeiling > 0 {
		c.Timing.Ceiling = cfg.TimingCeiling
	}
}

// driverPool hands out isolated drivers of the configured kind.
type driverPool struct {
	factory harness.DriverFactory
	close   func() error
}

// openDrivers prepares the driver kind named by cfg.Driver. For cdp this
// starts (or connects to) one Chrome whose browser contexts back every
// session.
func openDrivers(ctx context.Context, cfg config.Config, log *slog.Logger) (*driverPool, error) {
	switch cfg.Driver {
	case config.DriverStatic:
		return &driverPool{
			factory: func(ctx context.Context) (driver.Driver, error) {
				d, err := static.New(
					static.WithPollInterval(cfg.PollInterval),
					static.WithLogger(log),
				)
				if err != nil {
					return nil, err
				}
				return d, nil
			},
			close: func() error { return nil },
		}, nil

	case config.DriverCDP:
		b, err := cdp.NewBrowser(ctx,
			cdp.WithHeadless(cfg.Headless),
			cdp.WithExecPath(cfg.ChromePath),
			cdp.WithRemote(cfg.ChromeRemote),
			cdp.WithPollInterval(cfg.PollInterval),
			cdp.WithLogger(log),
		)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeDriverFailed, Message: err.Error()}
		}
		return &driverPool{
			factory: func(ctx context.Context) (driver.Driver, error) {
				d, err := b.NewDriver(ctx)
				if err != nil {
					return nil, err
				}
				return d, nil
			},
			close: b.Close,
		}, nil

	default:
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("unknown driver %q", cfg.Driver)}
	}
}

// loadErrorCode returns the code of a *LoadError, or the generic code.
func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}
