// Package static is a driver for server-rendered pages. It fetches pages
// over HTTP, keeps them as goquery documents, fills inputs in the document
// and submits forms the way a browser would. It does not run scripts; the
// only script behaviour it understands is an inline alert("...") call,
// which it reports as a dialog.
//
// Device location is sent to the server in a request header.
package static

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/roach88/pagecheck/internal/driver"
)

// GeolocationHeader carries "lat,lng,accuracy" on every request once a
// location is set.
const GeolocationHeader = "X-Geolocation"

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("driver closed")

var alertCall = regexp.MustCompile(`alert\(\s*("(?:[^"\\]|\\.)*")\s*\)`)

// Driver is one cookie-isolated browsing session.
type Driver struct {
	client   *http.Client
	interval time.Duration
	logger   *slog.Logger

	doc      *goquery.Document
	url      *url.URL
	location string

	dialog    string
	hasDialog bool
	closed    bool
}

var (
	_ driver.Driver       = (*Driver)(nil)
	_ driver.Geolocator   = (*Driver)(nil)
	_ driver.DialogReader = (*Driver)(nil)
)

// Option configures a Driver.
type Option func(*Driver)

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(d *Driver) { d.client.Transport = rt }
}

// WithPollInterval sets how often WaitUntil re-evaluates its condition.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Driver) { d.interval = interval }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a driver with an empty cookie jar.
func New(opts ...Option) (*Driver, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	d := &Driver{
		client:   &http.Client{Jar: jar},
		interval: driver.DefaultPollInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Driver) Navigate(ctx context.Context, rawURL string) error {
	if d.closed {
		return driver.NewFault("navigate", rawURL, ErrClosed)
	}
	u, err := d.resolve(rawURL)
	if err != nil {
		return driver.NewFault("navigate", rawURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return driver.NewFault("navigate", rawURL, err)
	}
	return driver.NewFault("navigate", rawURL, d.load(req))
}

func (d *Driver) SetField(ctx context.Context, selector, value string) error {
	el, err := d.find("fill", selector)
	if err != nil {
		return err
	}
	if goquery.NodeName(el) == "textarea" {
		el.SetText(value)
		return nil
	}
	el.SetAttr("value", value)
	return nil
}

func (d *Driver) Click(ctx context.Context, selector string) error {
	el, err := d.find("click", selector)
	if err != nil {
		return err
	}

	if goquery.NodeName(el) == "a" {
		href, ok := el.Attr("href")
		if !ok {
			return driver.NewFault("click", selector, errors.New("link has no href"))
		}
		return d.Navigate(ctx, href)
	}

	if !isSubmit(el) {
		return driver.NewFault("click", selector, fmt.Errorf("%w: only links and submit buttons can be clicked", driver.ErrUnsupported))
	}
	form := el.Closest("form")
	if form.Length() == 0 {
		return driver.NewFault("click", selector, errors.New("submit control is outside any form"))
	}

	req, err := d.formRequest(ctx, form, el)
	if err != nil {
		return driver.NewFault("click", selector, err)
	}
	return driver.NewFault("click", selector, d.load(req))
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if d.closed {
		return "", driver.NewFault("url", "", ErrClosed)
	}
	if d.url == nil {
		return "about:blank", nil
	}
	return d.url.String(), nil
}

func (d *Driver) ReadText(ctx context.Context, selector string) (string, bool, error) {
	if d.closed {
		return "", false, driver.NewFault("read", selector, ErrClosed)
	}
	if d.doc == nil {
		return "", false, nil
	}
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false, nil
	}
	return strings.TrimSpace(sel.Text()), true, nil
}

// WaitUntil polls cond. The page never changes on its own, so this only
// waits out the timeout when cond does not already hold.
func (d *Driver) WaitUntil(ctx context.Context, cond driver.Condition, timeout time.Duration) (bool, error) {
	if d.closed {
		return false, driver.NewFault("wait", "", ErrClosed)
	}
	return driver.Poll(ctx, d.interval, timeout, cond)
}

func (d *Driver) SetGeolocation(ctx context.Context, lat, lng, accuracy float64) error {
	d.location = strings.Join([]string{
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64),
		strconv.FormatFloat(accuracy, 'f', -1, 64),
	}, ",")
	return nil
}

func (d *Driver) LastDialog(ctx context.Context) (string, bool, error) {
	return d.dialog, d.hasDialog, nil
}

func (d *Driver) ClearDialog(ctx context.Context) error {
	d.dialog, d.hasDialog = "", false
	return nil
}

func (d *Driver) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.client.CloseIdleConnections()
	return nil
}

func (d *Driver) find(op, selector string) (*goquery.Selection, error) {
	if d.closed {
		return nil, driver.NewFault(op, selector, ErrClosed)
	}
	if d.doc == nil {
		return nil, driver.NewFault(op, selector, driver.ErrElementNotFound)
	}
	el := d.doc.Find(selector).First()
	if el.Length() == 0 {
		return nil, driver.NewFault(op, selector, driver.ErrElementNotFound)
	}
	return el, nil
}

func (d *Driver) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if d.url != nil {
		u = d.url.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("relative URL %q without a current page", ref)
	}
	return u, nil
}

// load performs req and replaces the current page with the response.
// Any HTTP status is a page; only transport failures are errors.
func (d *Driver) load(req *http.Request) error {
	if d.location != "" {
		req.Header.Set(GeolocationHeader, d.location)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", resp.Request.URL, err)
	}
	d.doc = doc
	d.url = resp.Request.URL
	d.logger.Debug("page loaded",
		"method", req.Method,
		"url", d.url.String(),
		"status", resp.StatusCode,
	)

	d.doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		for _, m := range alertCall.FindAllStringSubmatch(s.Text(), -1) {
			var msg string
			if json.Unmarshal([]byte(m[1]), &msg) == nil {
				d.dialog, d.hasDialog = msg, true
			}
		}
	})
	return nil
}

func isSubmit(el *goquery.Selection) bool {
	typ := strings.ToLower(el.AttrOr("type", ""))
	switch goquery.NodeName(el) {
	case "button":
		return typ == "" || typ == "submit"
	case "input":
		return typ == "submit" || typ == "image"
	}
	return false
}

// formRequest serializes form the way a browser does for a click on
// submitter.
func (d *Driver) formRequest(ctx context.Context, form, submitter *goquery.Selection) (*http.Request, error) {
	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, f *goquery.Selection) {
		name, ok := f.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := f.Attr("disabled"); disabled {
			return
		}
		switch goquery.NodeName(f) {
		case "textarea":
			values.Add(name, f.Text())
		case "select":
			opt := f.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = f.Find("option").First()
			}
			if opt.Length() > 0 {
				values.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
		default:
			switch strings.ToLower(f.AttrOr("type", "text")) {
			case "submit", "image", "button", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := f.Attr("checked"); !checked {
					return
				}
				values.Add(name, f.AttrOr("value", "on"))
			default:
				values.Add(name, f.AttrOr("value", ""))
			}
		}
	})
	if name, ok := submitter.Attr("name"); ok && name != "" {
		values.Add(name, submitter.AttrOr("value", ""))
	}

	action := d.url
	if a := form.AttrOr("action", ""); a != "" {
		u, err := d.resolve(a)
		if err != nil {
			return nil, err
		}
		action = u
	}

	if strings.EqualFold(form.AttrOr("method", "get"), http.MethodPost) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, action.String(), strings.NewReader(values.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	u := *action
	u.RawQuery = values.Encode()
	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}
