// Package driver declares the browser automation capability the scenario
// runner consumes. Concrete adapters live in the cdp and static
// subpackages; the runner never depends on them directly.
package driver

import (
	"context"
	"time"
)

// Condition is polled by WaitUntil until it reports true.
type Condition func(ctx context.Context) (bool, error)

// Driver is one automation session against the application under test.
// Each Driver owns its own cookie jar or browser context, so two Drivers
// never share login state.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// SetField replaces the value of the input matched by selector.
	SetField(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	CurrentURL(ctx context.Context) (string, error)
	// ReadText returns the text of the first element matched by selector.
	// A missing element is (_, false, nil), not an error.
	ReadText(ctx context.Context, selector string) (string, bool, error)
	// WaitUntil polls cond until it holds or timeout elapses. It reports
	// false with a nil error on timeout.
	WaitUntil(ctx context.Context, cond Condition, timeout time.Duration) (bool, error)
	Close() error
}

// Geolocator is implemented by drivers that can emulate device location.
// Changing the location invalidates the current page; navigate afterwards.
type Geolocator interface {
	SetGeolocation(ctx context.Context, lat, lng, accuracy float64) error
}

// DialogReader is implemented by drivers that can observe native
// alert()/confirm() dialogs. Dialogs are accepted as soon as they open; the
// last message stays readable until ClearDialog.
type DialogReader interface {
	LastDialog(ctx context.Context) (string, bool, error)
	ClearDialog(ctx context.Context) error
}
