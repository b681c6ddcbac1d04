package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/roach88/pagecheck/internal/driver"
)

// Driver is one tab in its own browser context.
type Driver struct {
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	dialog    string
	hasDialog bool
}

var (
	_ driver.Driver       = (*Driver)(nil)
	_ driver.Geolocator   = (*Driver)(nil)
	_ driver.DialogReader = (*Driver)(nil)
)

// NewDriver opens a tab in a fresh browser context. Native dialogs are
// accepted as soon as they open and their message is kept for
// LastDialog.
func (b *Browser) NewDriver(ctx context.Context) (*Driver, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx, chromedp.WithNewBrowserContext())
	d := &Driver{
		ctx:      tabCtx,
		cancel:   cancel,
		interval: b.interval,
		logger:   b.logger,
	}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			d.mu.Lock()
			d.dialog, d.hasDialog = e.Message, true
			d.mu.Unlock()
			d.logger.Debug("dialog", "type", e.Type, "message", e.Message)
			// The listener runs on the event loop; answering the dialog
			// from it would deadlock.
			go func() {
				if err := chromedp.Run(tabCtx, page.HandleJavaScriptDialog(true)); err != nil {
					d.logger.Warn("accept dialog", "error", err)
				}
			}()
		}
	})

	if err := d.run(ctx, page.Enable()); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return d, nil
}

// run executes actions on the tab, bounded by ctx.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return driver.NewFault("navigate", url, d.run(ctx, chromedp.Navigate(url)))
}

func (d *Driver) SetField(ctx context.Context, selector, value string) error {
	if err := d.require(ctx, "fill", selector); err != nil {
		return err
	}
	actions := []chromedp.Action{chromedp.SetValue(selector, "", chromedp.ByQuery)}
	if value != "" {
		actions = append(actions, chromedp.SendKeys(selector, value, chromedp.ByQuery))
	}
	return driver.NewFault("fill", selector, d.run(ctx, actions...))
}

func (d *Driver) Click(ctx context.Context, selector string) error {
	if err := d.require(ctx, "click", selector); err != nil {
		return err
	}
	return driver.NewFault("click", selector, d.run(ctx, chromedp.Click(selector, chromedp.ByQuery)))
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := d.run(ctx, chromedp.Location(&u)); err != nil {
		return "", driver.NewFault("url", "", err)
	}
	return u, nil
}

type textProbe struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
}

func (d *Driver) ReadText(ctx context.Context, selector string) (string, bool, error) {
	var probe textProbe
	if err := d.run(ctx, chromedp.Evaluate(textScript(selector), &probe)); err != nil {
		return "", false, driver.NewFault("read", selector, err)
	}
	return strings.TrimSpace(probe.Text), probe.Found, nil
}

// require fails with ErrElementNotFound when selector matches nothing
// right now. chromedp's own queries would wait for the node instead.
func (d *Driver) require(ctx context.Context, op, selector string) error {
	var probe textProbe
	if err := d.run(ctx, chromedp.Evaluate(textScript(selector), &probe)); err != nil {
		return driver.NewFault(op, selector, err)
	}
	if !probe.Found {
		return driver.NewFault(op, selector, driver.ErrElementNotFound)
	}
	return nil
}

func textScript(selector string) string {
	q, _ := json.Marshal(selector)
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return el ? {found: true, text: el.innerText || el.textContent || ""} : {found: false, text: ""};
})()`, q)
}

func (d *Driver) WaitUntil(ctx context.Context, cond driver.Condition, timeout time.Duration) (bool, error) {
	return driver.Poll(ctx, d.interval, timeout, cond)
}

// SetGeolocation grants the geolocation permission to the driver's
// browser context and overrides the reported position.
func (d *Driver) SetGeolocation(ctx context.Context, lat, lng, accuracy float64) error {
	c := chromedp.FromContext(d.ctx)
	grant := browser.GrantPermissions([]browser.PermissionType{browser.PermissionTypeGeolocation})
	if c != nil && c.BrowserContextID != "" {
		grant = grant.WithBrowserContextID(c.BrowserContextID)
	}
	err := d.run(ctx,
		grant,
		emulation.SetGeolocationOverride().
			WithLatitude(lat).
			WithLongitude(lng).
			WithAccuracy(accuracy),
	)
	return driver.NewFault("geolocation", "", err)
}

func (d *Driver) LastDialog(ctx context.Context) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialog, d.hasDialog, nil
}

func (d *Driver) ClearDialog(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialog, d.hasDialog = "", false
	return nil
}

// Close closes the tab and its browser context.
func (d *Driver) Close() error {
	d.cancel()
	return nil
}
