package contract

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed default.cue
var defaultSource []byte

//go:embed static.cue
var staticSource []byte

// Variants lists the built-in contracts by name.
var Variants = []string{"react", "static"}

// Builtin compiles one of the embedded contracts.
func Builtin(variant string) (*Contract, error) {
	switch variant {
	case "", "react":
		return CompileSource("default.cue", defaultSource)
	case "static":
		return CompileSource("static.cue", staticSource)
	default:
		return nil, fmt.Errorf("unknown contract variant %q: must be one of %v", variant, Variants)
	}
}

// CompileSource compiles a single CUE document against the schema.
func CompileSource(filename string, src []byte) (*Contract, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileWithSchema(ctx, v)
}

// LoadDir loads the .cue files directly inside dir as one instance and
// compiles it. The files need no package clause.
func LoadDir(dir string) (*Contract, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("contract directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan contract directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	// Named files form one instance even without a package clause; "."
	// would only pick up files that declare a package.
	args := make([]string, len(files))
	for i, f := range files {
		args[i] = filepath.Base(f)
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileWithSchema(ctx, v)
}

// FindCUEFiles returns the .cue files directly inside dir, sorted by name.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func compileWithSchema(ctx *cue.Context, v cue.Value) (*Contract, error) {
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("embedded schema: %w", err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	cv := unified.LookupPath(cue.ParsePath("contract"))
	if !cv.Exists() {
		return nil, &CompileError{Field: "contract", Message: "contract is required", Pos: v.Pos()}
	}
	return Compile(cv)
}

type wireSurface struct {
	Kind     string `json:"kind"`
	Selector string `json:"selector,omitempty"`
}

type wireRule struct {
	Pattern *string  `json:"pattern,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

type wireField struct {
	ID       string    `json:"id"`
	Selector string    `json:"selector"`
	Type     string    `json:"type"`
	Required bool      `json:"required"`
	Rule     *wireRule `json:"rule,omitempty"`
	Message  string    `json:"message,omitempty"`
}

type wireIndicator struct {
	Path     string `json:"path"`
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`
}

type wireMessages struct {
	Empty       string `json:"empty"`
	Email       string `json:"email"`
	Numeric     string `json:"numeric"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Credentials string `json:"credentials"`
}

type wireRoute struct {
	Path            string        `json:"path"`
	Access          string        `json:"access"`
	Unauthenticated string        `json:"unauthenticated"`
	Submit          string        `json:"submit,omitempty"`
	Surface         wireSurface   `json:"surface"`
	DeniedSurface   *wireSurface  `json:"denied_surface,omitempty"`
	DeniedMessage   string        `json:"denied_message,omitempty"`
	DeniedRedirect  string        `json:"denied_redirect,omitempty"`
	Success         wireIndicator `json:"success"`
	Ready           string        `json:"ready,omitempty"`
	Fields          []wireField   `json:"fields,omitempty"`
	Messages        wireMessages  `json:"messages"`
	Credentials     bool          `json:"credentials"`
	Geolocation     bool          `json:"geolocation"`
}

type wireLogout struct {
	Path     string `json:"path"`
	Selector string `json:"selector,omitempty"`
}

type wireTiming struct {
	Runs    int    `json:"runs"`
	Ceiling string `json:"ceiling"`
	Timeout string `json:"timeout"`
}

// Compile turns the concrete `contract` CUE value into a Contract and
// validates it.
func Compile(v cue.Value) (*Contract, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var accounts []Account
	var wireAccounts []struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if av := v.LookupPath(cue.ParsePath("accounts")); av.Exists() {
		if err := av.Decode(&wireAccounts); err != nil {
			return nil, formatCUEError(err)
		}
	}
	for _, a := range wireAccounts {
		accounts = append(accounts, Account{Email: a.Email, Password: a.Password})
	}

	timing, err := compileTiming(v.LookupPath(cue.ParsePath("timing")))
	if err != nil {
		return nil, err
	}

	routesVal := v.LookupPath(cue.ParsePath("routes"))
	if !routesVal.Exists() {
		return nil, &CompileError{Field: "routes", Message: "at least one route is required", Pos: v.Pos()}
	}
	iter, err := routesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var routes []Route
	for iter.Next() {
		r, err := compileRoute(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}

	c, err := New(name, routes, accounts, timing)
	if err != nil {
		return nil, &CompileError{Field: "routes", Message: err.Error(), Pos: routesVal.Pos()}
	}
	if s, err := v.LookupPath(cue.ParsePath("variant")).String(); err == nil {
		c.Variant = s
	}
	if s, err := v.LookupPath(cue.ParsePath("base_url")).String(); err == nil {
		c.BaseURL = s
	}
	if lv := v.LookupPath(cue.ParsePath("logout")); lv.Exists() {
		var w wireLogout
		if err := lv.Decode(&w); err != nil {
			return nil, formatCUEError(err)
		}
		c.Logout = Logout{Path: w.Path, Selector: w.Selector}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func compileTiming(v cue.Value) (Timing, error) {
	t := Timing{Runs: 10, Ceiling: 5 * time.Second, Timeout: 10 * time.Second}
	if !v.Exists() {
		return t, nil
	}
	var w wireTiming
	if err := v.Decode(&w); err != nil {
		return t, formatCUEError(err)
	}
	if w.Runs > 0 {
		t.Runs = w.Runs
	}
	for _, d := range []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"timing.ceiling", w.Ceiling, &t.Ceiling},
		{"timing.timeout", w.Timeout, &t.Timeout},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil || parsed <= 0 {
			return t, &CompileError{Field: d.field, Message: fmt.Sprintf("invalid duration %q", d.raw), Pos: v.Pos()}
		}
		*d.dst = parsed
	}
	return t, nil
}

func compileRoute(name string, v cue.Value) (Route, error) {
	var w wireRoute
	if err := v.Decode(&w); err != nil {
		return Route{}, formatCUEError(err)
	}

	r := Route{
		Name:            name,
		Path:            w.Path,
		Access:          Access(w.Access),
		Unauthenticated: Unauthenticated(w.Unauthenticated),
		Submit:          w.Submit,
		DeniedMessage:   w.DeniedMessage,
		DeniedRedirect:  w.DeniedRedirect,
		Success: Indicator{
			Path:     w.Success.Path,
			Selector: w.Success.Selector,
			Text:     w.Success.Text,
		},
		Messages: Messages{
			Empty:       w.Messages.Empty,
			Email:       w.Messages.Email,
			Numeric:     w.Messages.Numeric,
			Latitude:    w.Messages.Latitude,
			Longitude:   w.Messages.Longitude,
			Credentials: w.Messages.Credentials,
		},
		Ready:       w.Ready,
		Credentials: w.Credentials,
		Geolocation: w.Geolocation,
	}

	surface, err := NewSurface(w.Surface.Kind, w.Surface.Selector)
	if err != nil {
		return Route{}, &CompileError{Field: "routes." + name + ".surface", Message: err.Error(), Pos: v.Pos()}
	}
	r.Surface = surface

	r.DeniedSurface = surface
	if w.DeniedSurface != nil {
		ds, err := NewSurface(w.DeniedSurface.Kind, w.DeniedSurface.Selector)
		if err != nil {
			return Route{}, &CompileError{Field: "routes." + name + ".denied_surface", Message: err.Error(), Pos: v.Pos()}
		}
		r.DeniedSurface = ds
	}

	for i, wf := range w.Fields {
		f, err := compileField(wf)
		if err != nil {
			return Route{}, &CompileError{
				Field:   fmt.Sprintf("routes.%s.fields[%d]", name, i),
				Message: err.Error(),
				Pos:     v.Pos(),
			}
		}
		r.Fields = append(r.Fields, f)
	}
	return r, nil
}

func compileField(w wireField) (Field, error) {
	f := Field{
		ID:       w.ID,
		Selector: w.Selector,
		Type:     FieldType(w.Type),
		Required: w.Required,
		Message:  w.Message,
	}
	if !f.Type.Known() {
		return Field{}, fmt.Errorf("unknown field type %q: must be one of %v", w.Type, FieldTypes)
	}
	if w.Rule != nil {
		if w.Rule.Pattern != nil {
			re, err := regexp.Compile(*w.Rule.Pattern)
			if err != nil {
				return Field{}, fmt.Errorf("invalid pattern: %w", err)
			}
			f.Rule.Pattern = re
		}
		f.Rule.Min = w.Rule.Min
		f.Rule.Max = w.Rule.Max
	}
	switch f.Type {
	case FieldLatitude:
		f.Rule.Min, f.Rule.Max = orDefault(f.Rule.Min, -90), orDefault(f.Rule.Max, 90)
	case FieldLongitude:
		f.Rule.Min, f.Rule.Max = orDefault(f.Rule.Min, -180), orDefault(f.Rule.Max, 180)
	}
	if f.Rule.Min != nil && f.Rule.Max != nil && *f.Rule.Min > *f.Rule.Max {
		return Field{}, fmt.Errorf("rule min %v exceeds max %v", *f.Rule.Min, *f.Rule.Max)
	}
	return f, nil
}

func orDefault(p *float64, d float64) *float64 {
	if p != nil {
		return p
	}
	return &d
}

// CompileError is a contract error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) == 0 {
		return err
	}
	// Point at the author's file rather than the embedded schema.
	pos := positions[0]
	for _, p := range positions {
		if p.Filename() != "schema.cue" {
			pos = p
			break
		}
	}
	return &CompileError{
		Field:   "cue",
		Message: first.Error(),
		Pos:     pos,
	}
}

// Validate checks the cross-field rules the schema cannot express.
func (c *Contract) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &CompileError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.routes) == 0 {
		fail("routes", "at least one route is required")
	}

	paths := make(map[string]string)
	for _, r := range c.routes {
		prefix := "routes." + r.Name
		if other, dup := paths[r.Path]; dup {
			fail(prefix+".path", "path %q already used by route %q", r.Path, other)
		}
		paths[r.Path] = r.Name

		ids := make(map[string]bool)
		for _, f := range r.Fields {
			if ids[f.ID] {
				fail(prefix+".fields", "duplicate field id %q", f.ID)
			}
			ids[f.ID] = true
		}

		if len(r.Fields) > 0 && r.Submit == "" {
			fail(prefix+".submit", "routes with fields need a submit selector")
		}
		if r.RequiresAuth() && r.Success.Selector == "" && r.Ready == "" {
			fail(prefix+".success.selector", "authenticated-only routes need a success selector to tell a rendered page from a pending redirect")
		}
		if r.RequiresAuth() && r.Unauthenticated == UnauthBlockWithMessage && r.DeniedMessage == "" {
			fail(prefix+".denied_message", "block-with-message routes need a denied message")
		}
		if r.Unauthenticated == UnauthRedirect && r.RequiresAuth() && r.DeniedRedirect == "" {
			fail(prefix+".denied_redirect", "redirecting routes need a denied redirect path")
		}
		if r.Credentials {
			_, hasEmail := fieldOfType(r, FieldEmail)
			_, hasPassword := fieldOfType(r, FieldPassword)
			if !hasEmail || !hasPassword {
				fail(prefix+".credentials", "credential checks need an email and a password field")
			}
			if len(c.Accounts) == 0 {
				fail("accounts", "route %q checks credentials but no accounts are declared", r.Name)
			}
		}
	}

	return errors.Join(errs...)
}

func fieldOfType(r Route, t FieldType) (Field, bool) {
	for _, f := range r.Fields {
		if f.Type == t {
			return f, true
		}
	}
	return Field{}, false
}
