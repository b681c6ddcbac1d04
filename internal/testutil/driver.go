package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/pagecheck/internal/driver"
)

// FakeDriver is a scripted in-memory driver.Driver.
//
// Only selectors present in Fields can be filled and only selectors present
// in Texts can be read. Application behaviour is supplied by the OnNavigate
// and OnClick hooks, which may call the exported mutators (Go, SetText,
// RemoveText, ShowDialog) to change the page.
//
// WaitUntil never sleeps: it evaluates the condition up to Polls times,
// calling Between after each unsatisfied poll, and then reports a timeout.
type FakeDriver struct {
	mu sync.Mutex

	url       string
	fields    map[string]string
	texts     map[string]string
	dialog    string
	hasDialog bool
	location  []float64
	calls     []string
	closed    bool

	OnNavigate func(d *FakeDriver, url string) error
	OnClick    func(d *FakeDriver, selector string) error
	Between    func(d *FakeDriver, poll int)
	Polls      int
}

var (
	_ driver.Driver       = (*FakeDriver)(nil)
	_ driver.Geolocator   = (*FakeDriver)(nil)
	_ driver.DialogReader = (*FakeDriver)(nil)
)

// NewFakeDriver creates a driver whose pages expose the given form fields.
func NewFakeDriver(fields ...string) *FakeDriver {
	d := &FakeDriver{
		fields: make(map[string]string),
		texts:  make(map[string]string),
		Polls:  3,
	}
	for _, f := range fields {
		d.fields[f] = ""
	}
	return d
}

func (d *FakeDriver) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

// Navigate records the call, moves to url and runs OnNavigate.
func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	d.record("navigate %s", url)
	d.url = url
	for k := range d.fields {
		d.fields[k] = ""
	}
	hook := d.OnNavigate
	d.mu.Unlock()

	if hook != nil {
		return hook(d, url)
	}
	return nil
}

func (d *FakeDriver) SetField(ctx context.Context, selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("fill %s=%s", selector, value)
	if _, ok := d.fields[selector]; !ok {
		return driver.NewFault("fill", selector, driver.ErrElementNotFound)
	}
	d.fields[selector] = value
	return nil
}

func (d *FakeDriver) Click(ctx context.Context, selector string) error {
	d.mu.Lock()
	d.record("click %s", selector)
	hook := d.OnClick
	d.mu.Unlock()

	if hook != nil {
		return hook(d, selector)
	}
	return nil
}

func (d *FakeDriver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *FakeDriver) ReadText(ctx context.Context, selector string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	text, ok := d.texts[selector]
	return text, ok, nil
}

func (d *FakeDriver) WaitUntil(ctx context.Context, cond driver.Condition, timeout time.Duration) (bool, error) {
	polls := d.Polls
	if polls <= 0 {
		polls = 1
	}
	for i := 0; i < polls; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ok, err := cond(ctx)
		if err != nil || ok {
			return ok, err
		}
		if d.Between != nil {
			d.Between(d, i)
		}
	}
	return false, nil
}

func (d *FakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *FakeDriver) SetGeolocation(ctx context.Context, lat, lng, accuracy float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("geolocation %g,%g", lat, lng)
	d.location = []float64{lat, lng, accuracy}
	return nil
}

func (d *FakeDriver) LastDialog(ctx context.Context) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialog, d.hasDialog, nil
}

func (d *FakeDriver) ClearDialog(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialog, d.hasDialog = "", false
	return nil
}

// Go changes the current URL without recording a navigation, as a
// redirect would.
func (d *FakeDriver) Go(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
}

func (d *FakeDriver) SetText(selector, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts[selector] = text
}

func (d *FakeDriver) RemoveText(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.texts, selector)
}

// ClearTexts removes every readable element, as loading a new page would.
func (d *FakeDriver) ClearTexts() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = make(map[string]string)
}

func (d *FakeDriver) ShowDialog(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialog, d.hasDialog = message, true
}

// Value returns the current value of a form field.
func (d *FakeDriver) Value(selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fields[selector]
}

// Location returns the last emulated position, or nil.
func (d *FakeDriver) Location() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}

// Calls returns the recorded driver calls in order.
func (d *FakeDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

func (d *FakeDriver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
