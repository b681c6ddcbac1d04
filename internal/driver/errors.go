package driver

import (
	"errors"
	"fmt"
)

// ErrElementNotFound is wrapped by drivers when a selector matches nothing.
var ErrElementNotFound = errors.New("element not found")

// ErrUnsupported is wrapped when an optional capability is missing.
var ErrUnsupported = errors.New("capability not supported by driver")

// Fault is a failure of the automation driver itself: navigation errors,
// absent elements, a dead browser. It is never an application outcome.
type Fault struct {
	Op     string // "navigate", "fill", "click", ...
	Target string // URL or selector
	Err    error
}

func (f *Fault) Error() string {
	if f.Target != "" {
		return fmt.Sprintf("driver fault: %s %s: %v", f.Op, f.Target, f.Err)
	}
	return fmt.Sprintf("driver fault: %s: %v", f.Op, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// NewFault wraps err unless it is already a Fault.
func NewFault(op, target string, err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return err
	}
	return &Fault{Op: op, Target: target, Err: err}
}

// IsFault reports whether err carries a Fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}
