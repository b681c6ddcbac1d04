package harness

import (
	"context"
	"fmt"

	"github.com/roach88/pagecheck/internal/contract"
	"github.com/roach88/pagecheck/internal/driver"
	"github.com/roach88/pagecheck/internal/outcome"
)

// StepError is a setup or teardown step that failed.
type StepError struct {
	Phase string // "setup" or "teardown"
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s[%d]: %v", e.Phase, e.Index, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// runSteps executes steps in order and stops at the first failure.
func (r *Runner) runSteps(ctx context.Context, sess *Session, phase string, steps []Step) error {
	for i, st := range steps {
		if err := r.runStep(ctx, sess, st); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &StepError{Phase: phase, Index: i, Err: err}
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, sess *Session, st Step) error {
	d := sess.Driver
	switch {
	case st.Navigate != "":
		target := r.url(st.Navigate)
		return driver.NewFault("navigate", target, d.Navigate(ctx, target))

	case st.Fill != nil:
		return driver.NewFault("fill", st.Fill.Selector, d.SetField(ctx, st.Fill.Selector, st.Fill.Value))

	case st.Click != "":
		return driver.NewFault("click", st.Click, d.Click(ctx, st.Click))

	case st.WaitFor != nil:
		return r.waitFor(ctx, d, st.WaitFor)

	case st.Login:
		return r.login(ctx, d)

	case st.Logout:
		if r.contract.Logout.Path == "" {
			return fmt.Errorf("logout: contract declares no logout path")
		}
		target := r.url(r.contract.Logout.Path)
		return driver.NewFault("navigate", target, d.Navigate(ctx, target))
	}
	return fmt.Errorf("empty step")
}

func (r *Runner) waitFor(ctx context.Context, d driver.Driver, w *WaitStep) error {
	cond := func(ctx context.Context) (bool, error) {
		if w.Selector != "" {
			_, present, err := d.ReadText(ctx, w.Selector)
			return present, err
		}
		u, err := d.CurrentURL(ctx)
		if err != nil {
			return false, err
		}
		return outcome.SamePath(u, w.Path), nil
	}

	ok, err := d.WaitUntil(ctx, cond, r.timeout)
	if err != nil {
		return driver.NewFault("wait", "", err)
	}
	if !ok {
		what := w.Selector
		if what == "" {
			what = "path " + w.Path
		}
		return fmt.Errorf("wait_for %s: timed out after %s", what, r.timeout)
	}
	return nil
}

// login signs in with the contract's first account through the credential
// route and waits for its success target.
func (r *Runner) login(ctx context.Context, d driver.Driver) error {
	route, err := credentialRoute(r.contract)
	if err != nil {
		return err
	}
	if len(r.contract.Accounts) == 0 {
		return fmt.Errorf("login: contract declares no accounts")
	}
	account := r.contract.Accounts[0]

	target := r.url(route.Path)
	if err := d.Navigate(ctx, target); err != nil {
		return driver.NewFault("navigate", target, err)
	}
	for _, f := range route.Fields {
		var v string
		switch f.Type {
		case contract.FieldEmail:
			v = account.Email
		case contract.FieldPassword:
			v = account.Password
		default:
			continue
		}
		if err := d.SetField(ctx, f.Selector, v); err != nil {
			return driver.NewFault("fill", f.Selector, err)
		}
	}
	if err := d.Click(ctx, route.Submit); err != nil {
		return driver.NewFault("click", route.Submit, err)
	}

	return r.waitFor(ctx, d, &WaitStep{Path: route.Success.Path})
}
