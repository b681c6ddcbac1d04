// Package cdp drives a real Chrome through the DevTools protocol with
// chromedp. One Browser process serves many Drivers; each Driver gets its
// own browser context, so cookies and storage never leak between
// sessions.
package cdp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/roach88/pagecheck/internal/driver"
)

// Browser owns the Chrome process (or remote connection).
type Browser struct {
	browserCtx context.Context
	cancel     context.CancelFunc

	headless bool
	execPath string
	remote   string
	interval time.Duration
	logger   *slog.Logger
}

// Option configures a Browser.
type Option func(*Browser)

// WithHeadless toggles headless mode. Default true.
func WithHeadless(headless bool) Option {
	return func(b *Browser) { b.headless = headless }
}

// WithExecPath points at a specific Chrome binary.
func WithExecPath(path string) Option {
	return func(b *Browser) { b.execPath = path }
}

// WithRemote connects to an already running Chrome at a DevTools
// websocket URL instead of launching one.
func WithRemote(wsURL string) Option {
	return func(b *Browser) { b.remote = wsURL }
}

// WithPollInterval sets how often WaitUntil re-evaluates its condition.
func WithPollInterval(interval time.Duration) Option {
	return func(b *Browser) { b.interval = interval }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Browser) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBrowser starts (or connects to) Chrome. ctx bounds the startup only.
func NewBrowser(ctx context.Context, opts ...Option) (*Browser, error) {
	b := &Browser{
		headless: true,
		interval: driver.DefaultPollInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if b.remote != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), b.remote)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), b.allocatorOptions()...)
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	b.browserCtx = browserCtx
	b.cancel = func() {
		browserCancel()
		allocCancel()
	}

	stop := context.AfterFunc(ctx, b.cancel)
	defer stop()

	b.logger.Debug("starting chrome", "headless", b.headless, "remote", b.remote)
	if err := chromedp.Run(browserCtx); err != nil {
		b.cancel()
		return nil, fmt.Errorf("failed to connect to chrome: %w", err)
	}
	return b, nil
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if !b.headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}
	return opts
}

// Close shuts down every driver and the browser.
func (b *Browser) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	return nil
}
