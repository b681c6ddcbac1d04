package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pagecheck/internal/contract"
	"github.com/roach88/pagecheck/internal/geo"
	"github.com/roach88/pagecheck/internal/outcome"
)

// Scenario actions.
const (
	ActionSubmit = "submit"
	ActionVisit  = "visit"
)

// Scenario defines one conformance scenario against one contract route.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description,omitempty"`

	// Route is the contract route name (e.g. "login").
	Route string `yaml:"route"`

	// Action is "submit" (fill and submit the form, the default) or
	// "visit" (navigate only).
	Action string `yaml:"action,omitempty"`

	// Authenticated declares that setup leaves the session logged in. It
	// only matters when the expectation is derived from the contract.
	Authenticated bool `yaml:"authenticated,omitempty"`

	// Inputs are the values to type, keyed by contract field id. Fields the
	// scenario does not mention are left untouched.
	Inputs []Input `yaml:"inputs,omitempty"`

	// Setup runs before the scenario body on the same session.
	Setup []Step `yaml:"setup,omitempty"`

	// Teardown runs after the body, also after a Timeout. It is not timed.
	Teardown []Step `yaml:"teardown,omitempty"`

	// Geolocation is the emulated device position.
	Geolocation *Geolocation `yaml:"geolocation,omitempty"`

	// Expect is the expected outcome. If nil it is derived from the contract.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Timeout bounds the wait for a terminal outcome. Zero uses the
	// runner default.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Repeat runs the body this many times in a row and requires identical
	// outcomes. Zero and one both mean a single run.
	Repeat int `yaml:"repeat,omitempty"`

	// Timing turns the scenario into a latency check.
	Timing *TimingClause `yaml:"timing,omitempty"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// Input is one (field, value) pair.
type Input struct {
	Field string `yaml:"field"`
	Value string `yaml:"value"`
}

// Step is one setup or teardown action. Exactly one member must be set.
type Step struct {
	// Navigate opens a path relative to the base URL, or an absolute URL.
	Navigate string `yaml:"navigate,omitempty"`

	// Fill types a value into the element matched by a selector.
	Fill *FillStep `yaml:"fill,omitempty"`

	// Click clicks the element matched by a selector.
	Click string `yaml:"click,omitempty"`

	// WaitFor blocks until an element appears or a path is reached.
	WaitFor *WaitStep `yaml:"wait_for,omitempty"`

	// Login signs in through the contract's credential route with the
	// first declared account.
	Login bool `yaml:"login,omitempty"`

	// Logout opens the contract's logout path.
	Logout bool `yaml:"logout,omitempty"`
}

// FillStep types Value into Selector.
type FillStep struct {
	Selector string `yaml:"selector"`
	Value    string `yaml:"value"`
}

// WaitStep waits for Selector to be present or the URL path to equal Path.
type WaitStep struct {
	Selector string `yaml:"selector,omitempty"`
	Path     string `yaml:"path,omitempty"`
}

// Geolocation is an emulated device position.
type Geolocation struct {
	Lat      float64 `yaml:"lat"`
	Lng      float64 `yaml:"lng"`
	Accuracy float64 `yaml:"accuracy,omitempty"`
}

// Point converts to the geo package type.
func (g *Geolocation) Point() *geo.Point {
	if g == nil {
		return nil
	}
	return &geo.Point{Lat: g.Lat, Lng: g.Lng}
}

// ExpectClause is an explicit expected outcome.
type ExpectClause struct {
	// Outcome is success, validation_error, auth_denied or timeout.
	Outcome string `yaml:"outcome"`

	// Message is the expected message for validation_error and auth_denied.
	Message string `yaml:"message,omitempty"`

	// Target is the expected success path.
	Target string `yaml:"target,omitempty"`
}

// Want converts the clause to an outcome.Outcome.
func (e *ExpectClause) Want() (outcome.Outcome, error) {
	kind, err := outcome.ParseKind(e.Outcome)
	if err != nil {
		return outcome.Outcome{}, err
	}
	switch kind {
	case outcome.KindSuccess:
		return outcome.Success(e.Target), nil
	case outcome.KindValidationError:
		return outcome.ValidationError(e.Message), nil
	case outcome.KindAuthDenied:
		return outcome.AuthDenied(e.Message), nil
	default:
		return outcome.Timeout(), nil
	}
}

// TimingClause configures a latency check. Zero values use the contract's
// timing defaults.
type TimingClause struct {
	Runs    int           `yaml:"runs,omitempty"`
	Ceiling time.Duration `yaml:"ceiling,omitempty"`
}

// action returns the effective action.
func (s *Scenario) action() string {
	if s.Action == "" {
		return ActionSubmit
	}
	return s.Action
}

// InputMap returns the inputs keyed by field id.
func (s *Scenario) InputMap() contract.Inputs {
	m := make(contract.Inputs, len(s.Inputs))
	for _, in := range s.Inputs {
		m[in.Field] = in.Value
	}
	return m
}

// LoggedIn reports whether the session is authenticated when the body runs.
// Setup steps are replayed in order against the contract's logout model.
// Authenticated overrides the replay.
func (s *Scenario) LoggedIn(c *contract.Contract) bool {
	if s.Authenticated {
		return true
	}
	in := false
	for _, st := range s.Setup {
		switch {
		case st.Login:
			in = true
		case st.Logout:
			in = false
		case st.Navigate != "" && c.IsLogoutPath(st.Navigate):
			in = false
		case st.Click != "" && c.Logout.Selector != "" && st.Click == c.Logout.Selector:
			in = false
		}
	}
	return in
}

// LoadError is a scenario file that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to read scenario file: %w", err)}
	}

	// Strict decoding catches typos like "input:" vs "inputs:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to parse YAML: %w", err)}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("invalid scenario: %w", err)}
	}

	scenario.Path = path
	return &scenario, nil
}

// LoadScenarios loads every .yaml/.yml file under dir, sorted by path.
// filter is an optional glob matched against the file name without
// extension. Scenario names must be unique.
func LoadScenarios(dir, filter string) ([]*Scenario, error) {
	files, err := FindScenarioFiles(dir, filter)
	if err != nil {
		return nil, err
	}

	var (
		out  []*Scenario
		errs []error
	)
	seen := make(map[string]string)
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := seen[s.Name]; dup {
			errs = append(errs, &LoadError{Path: f, Err: fmt.Errorf("duplicate scenario name %q (also in %s)", s.Name, prev)})
			continue
		}
		seen[s.Name] = f
		out = append(out, s)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// FindScenarioFiles finds all YAML scenario files in a directory.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Route == "" {
		return fmt.Errorf("route is required")
	}

	switch s.Action {
	case "", ActionSubmit:
	case ActionVisit:
		if len(s.Inputs) > 0 {
			return fmt.Errorf("inputs are not allowed with action %q", ActionVisit)
		}
	default:
		return fmt.Errorf("unknown action %q: must be %q or %q", s.Action, ActionSubmit, ActionVisit)
	}

	seen := make(map[string]bool)
	for i, in := range s.Inputs {
		if in.Field == "" {
			return fmt.Errorf("inputs[%d]: field is required", i)
		}
		if seen[in.Field] {
			return fmt.Errorf("inputs[%d]: field %q given twice", i, in.Field)
		}
		seen[in.Field] = true
	}

	for i, st := range s.Setup {
		if err := validateStep(st); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, st := range s.Teardown {
		if err := validateStep(st); err != nil {
			return fmt.Errorf("teardown[%d]: %w", i, err)
		}
	}

	if s.Geolocation != nil {
		if err := s.Geolocation.Point().Validate(); err != nil {
			return fmt.Errorf("geolocation: %w", err)
		}
		if s.Geolocation.Accuracy < 0 {
			return fmt.Errorf("geolocation: accuracy must be non-negative")
		}
	}

	if s.Expect != nil {
		if _, err := s.Expect.Want(); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
	}

	if s.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if s.Repeat < 0 {
		return fmt.Errorf("repeat must be non-negative")
	}

	if s.Timing != nil {
		if s.Timing.Runs < 0 {
			return fmt.Errorf("timing: runs must be at least 1")
		}
		if s.Timing.Ceiling < 0 {
			return fmt.Errorf("timing: ceiling must be positive")
		}
		if s.Repeat > 1 {
			return fmt.Errorf("timing and repeat cannot be combined")
		}
	}

	return nil
}

func validateStep(st Step) error {
	set := 0
	if st.Navigate != "" {
		set++
	}
	if st.Fill != nil {
		set++
		if st.Fill.Selector == "" {
			return fmt.Errorf("fill: selector is required")
		}
	}
	if st.Click != "" {
		set++
	}
	if st.WaitFor != nil {
		set++
		if (st.WaitFor.Selector == "") == (st.WaitFor.Path == "") {
			return fmt.Errorf("wait_for: exactly one of selector or path is required")
		}
	}
	if st.Login {
		set++
	}
	if st.Logout {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of navigate, fill, click, wait_for, login or logout is required")
	}
	return nil
}

// CheckAgainst verifies the scenario refers to things the contract
// declares: the route, its fields, a submit control and a credential route
// for login steps.
func (s *Scenario) CheckAgainst(c *contract.Contract) error {
	r, err := c.Route(s.Route)
	if err != nil {
		return err
	}
	for _, in := range s.Inputs {
		if _, ok := r.Field(in.Field); !ok {
			return fmt.Errorf("route %q has no field %q", r.Name, in.Field)
		}
	}
	if s.action() == ActionSubmit && r.Submit == "" {
		return fmt.Errorf("route %q has no submit control; use action %q", r.Name, ActionVisit)
	}
	for _, st := range append(append([]Step{}, s.Setup...), s.Teardown...) {
		if st.Login {
			if _, err := credentialRoute(c); err != nil {
				return err
			}
			if len(c.Accounts) == 0 {
				return fmt.Errorf("login step needs an account in the contract")
			}
		}
		if st.Logout && c.Logout.Path == "" {
			return fmt.Errorf("logout step needs a logout path in contract %q", c.Name)
		}
	}
	return nil
}

// credentialRoute returns the first route that checks credentials.
func credentialRoute(c *contract.Contract) (contract.Route, error) {
	for _, r := range c.Routes() {
		if r.Credentials {
			return r, nil
		}
	}
	return contract.Route{}, fmt.Errorf("contract %q has no credential route for login steps", c.Name)
}

// Expected returns the outcome the scenario must produce: the explicit
// expect block, or the contract's prediction.
func (s *Scenario) Expected(c *contract.Contract) (outcome.Outcome, error) {
	if s.Expect != nil {
		return s.Expect.Want()
	}
	r, err := c.Route(s.Route)
	if err != nil {
		return outcome.Outcome{}, err
	}
	loggedIn := s.LoggedIn(c)
	if s.action() == ActionVisit || (r.RequiresAuth() && !loggedIn) {
		return c.ExpectedVisit(s.Route, loggedIn)
	}
	return c.ExpectedOutcome(s.Route, s.InputMap())
}
