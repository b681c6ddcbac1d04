package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/pagecheck/internal/contract"
	"github.com/roach88/pagecheck/internal/driver"
	"github.com/roach88/pagecheck/internal/outcome"
)

// DefaultTimeout bounds the outcome wait when neither the scenario nor the
// contract sets one.
const DefaultTimeout = 10 * time.Second

// DefaultAccuracy is the geolocation accuracy in meters used when a
// scenario does not give one.
const DefaultAccuracy = 100

// Clock is the time source for latency measurement.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Runner executes scenarios against one contract.
//
// A Runner holds no per-scenario state; all login state lives in the
// Session passed to each call.
type Runner struct {
	contract *contract.Contract
	baseURL  string
	timeout  time.Duration
	clock    Clock
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithBaseURL overrides the contract's base URL.
func WithBaseURL(u string) Option {
	return func(r *Runner) {
		if u != "" {
			r.baseURL = u
		}
	}
}

// WithTimeout overrides the contract's outcome wait.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock sets the time source for latency measurement.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner for c.
func NewRunner(c *contract.Contract, opts ...Option) *Runner {
	r := &Runner{
		contract: c,
		baseURL:  c.BaseURL,
		timeout:  c.Timing.Timeout,
		clock:    realClock{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	return r
}

// Contract returns the contract the runner checks against.
func (r *Runner) Contract() *contract.Contract {
	return r.contract
}

// Run executes sc on sess, repeating it when the scenario asks for it, and
// compares every outcome with the expected one.
//
// Driver faults and failing setup or teardown steps are recorded on the
// Result. The returned error is reserved for problems that prevent the
// scenario from running at all: a scenario that does not fit the contract
// or a cancelled context.
func (r *Runner) Run(ctx context.Context, sess *Session, sc *Scenario) (*Result, error) {
	if err := sc.CheckAgainst(r.contract); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	expected, err := sc.Expected(r.contract)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	res := NewResult(sc.Name, sc.Route, expected)
	res.SessionID = sess.ID

	attempts := sc.Repeat
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		got, elapsed, err := r.Execute(ctx, sess, sc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if driver.IsFault(err) {
				res.SetFault(err)
			} else {
				res.AddError(err.Error())
			}
			return res, nil
		}

		if i == 0 {
			res.Actual = got
			res.Duration = elapsed
		}
		if attempts > 1 {
			res.Attempts = append(res.Attempts, got)
		}
		if i > 0 && !got.Equal(res.Actual) {
			res.AddError(fmt.Sprintf("attempt %d: got %s, first attempt got %s; repeated attempts must not change the outcome", i+1, got, res.Actual))
		}
	}

	if !expected.Equal(res.Actual) {
		res.AddError(describeMismatch(expected, res.Actual))
	}
	return res, nil
}

// Execute runs setup, the scenario body and teardown once and returns the
// classified outcome with the time from navigation start to that outcome.
//
// Any error is either a *driver.Fault, a *StepError, or the context's error.
func (r *Runner) Execute(ctx context.Context, sess *Session, sc *Scenario) (outcome.Outcome, time.Duration, error) {
	log := sess.logger(r.logger).With("scenario", sc.Name)

	route, err := r.contract.Route(sc.Route)
	if err != nil {
		return outcome.Outcome{}, 0, err
	}

	if err := r.runSteps(ctx, sess, "setup", sc.Setup); err != nil {
		return outcome.Outcome{}, 0, err
	}

	got, elapsed, err := r.body(ctx, sess, sc, route, log)
	if err != nil {
		if terr := r.runSteps(ctx, sess, "teardown", sc.Teardown); terr != nil {
			log.Warn("teardown after failure", "error", terr)
		}
		return outcome.Outcome{}, 0, err
	}

	if err := r.runSteps(ctx, sess, "teardown", sc.Teardown); err != nil {
		return got, elapsed, err
	}
	return got, elapsed, nil
}

// body performs navigate, fill, submit and wait.
func (r *Runner) body(ctx context.Context, sess *Session, sc *Scenario, route contract.Route, log *slog.Logger) (outcome.Outcome, time.Duration, error) {
	d := sess.Driver

	// An anonymous session never reaches the form of a protected route, so
	// there is nothing to fill.
	visit := sc.action() == ActionVisit || (route.RequiresAuth() && !sc.LoggedIn(r.contract))

	var (
		exp outcome.Expectation
		err error
	)
	if visit {
		exp, err = r.contract.VisitExpectation(route.Name, sc.Geolocation.Point())
	} else {
		exp, err = r.contract.Expectation(route.Name, sc.InputMap(), sc.Geolocation.Point())
	}
	if err != nil {
		return outcome.Outcome{}, 0, err
	}

	if err := route.Surface.Reset(ctx, d); err != nil {
		return outcome.Outcome{}, 0, err
	}
	if route.DeniedSurface != route.Surface {
		if err := route.DeniedSurface.Reset(ctx, d); err != nil {
			return outcome.Outcome{}, 0, err
		}
	}

	if g := sc.Geolocation; g != nil {
		geolocator, ok := d.(driver.Geolocator)
		if !ok {
			return outcome.Outcome{}, 0, driver.NewFault("geolocation", "", driver.ErrUnsupported)
		}
		accuracy := g.Accuracy
		if accuracy == 0 {
			accuracy = DefaultAccuracy
		}
		if err := geolocator.SetGeolocation(ctx, g.Lat, g.Lng, accuracy); err != nil {
			return outcome.Outcome{}, 0, driver.NewFault("geolocation", "", err)
		}
	}

	target := r.url(route.Path)
	log.Debug("navigate", "url", target, "visit", visit)

	start := r.clock.Now()
	if err := d.Navigate(ctx, target); err != nil {
		return outcome.Outcome{}, 0, driver.NewFault("navigate", target, err)
	}

	if !visit {
		inputs := sc.InputMap()
		for _, f := range route.Fields {
			v, ok := inputs[f.ID]
			if !ok {
				continue
			}
			if err := d.SetField(ctx, f.Selector, v); err != nil {
				return outcome.Outcome{}, 0, driver.NewFault("fill", f.Selector, err)
			}
		}
		if err := d.Click(ctx, route.Submit); err != nil {
			return outcome.Outcome{}, 0, driver.NewFault("click", route.Submit, err)
		}
	}

	got, err := r.await(ctx, d, sc, route, exp, route.IndicatorSelector(visit))
	if err != nil {
		return outcome.Outcome{}, 0, err
	}
	elapsed := r.clock.Now().Sub(start)

	log.Debug("resolved", "outcome", got.String(), "elapsed", elapsed)
	return got, elapsed, nil
}

// await polls the page until Classify resolves or the timeout expires.
func (r *Runner) await(ctx context.Context, d driver.Driver, sc *Scenario, route contract.Route, exp outcome.Expectation, indicator string) (outcome.Outcome, error) {
	timeout := sc.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}

	var resolved outcome.Outcome
	cond := func(ctx context.Context) (bool, error) {
		obs, err := observe(ctx, d, route, indicator)
		if err != nil {
			return false, err
		}
		o, ok := outcome.Classify(obs, exp)
		if ok {
			resolved = o
		}
		return ok, nil
	}

	ok, err := d.WaitUntil(ctx, cond, timeout)
	if err != nil {
		if ctx.Err() != nil {
			return outcome.Outcome{}, ctx.Err()
		}
		return outcome.Outcome{}, driver.NewFault("wait", "", err)
	}
	if !ok {
		return outcome.Timeout(), nil
	}
	return resolved, nil
}

// observe samples everything the classifier looks at.
func observe(ctx context.Context, d driver.Driver, route contract.Route, indicator string) (outcome.Observation, error) {
	var obs outcome.Observation

	u, err := d.CurrentURL(ctx)
	if err != nil {
		return obs, driver.NewFault("url", "", err)
	}
	obs.URL = u

	if obs.Error, err = route.Surface.Read(ctx, d); err != nil {
		return obs, err
	}

	obs.Denied = obs.Error
	if route.DeniedSurface != route.Surface {
		if obs.Denied, err = route.DeniedSurface.Read(ctx, d); err != nil {
			return obs, err
		}
	}

	if indicator != "" {
		text, present, err := d.ReadText(ctx, indicator)
		if err != nil {
			return obs, driver.NewFault("read", indicator, err)
		}
		obs.Indicator = outcome.Reading{Text: text, Present: present}
	}
	return obs, nil
}

// url resolves a path against the base URL. Absolute URLs pass through.
func (r *Runner) url(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return strings.TrimRight(r.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// describeMismatch renders the expected-vs-actual line of a failure.
func describeMismatch(expected, actual outcome.Outcome) string {
	if actual.IsZero() {
		return fmt.Sprintf("expected %s, got no outcome", expected)
	}
	return fmt.Sprintf("expected %s, got %s", expected, actual)
}

// IsStepError reports whether err came from a setup or teardown step.
func IsStepError(err error) bool {
	var se *StepError
	return errors.As(err, &se)
}
