package contract

import (
	"fmt"
	"regexp"
	"time"

	"github.com/roach88/pagecheck/internal/outcome"
)

// Access is the authentication a route requires.
type Access string

const (
	AccessPublic        Access = "public"
	AccessAuthenticated Access = "authenticated-only"
)

// Unauthenticated is how an authenticated-only route treats anonymous visits.
type Unauthenticated string

const (
	UnauthRedirect         Unauthenticated = "redirect"
	UnauthBlockWithMessage Unauthenticated = "block-with-message"
)

// FieldType is the semantic type of a form field.
type FieldType string

const (
	FieldEmail     FieldType = "email"
	FieldPassword  FieldType = "password"
	FieldLatitude  FieldType = "latitude"
	FieldLongitude FieldType = "longitude"
	FieldText      FieldType = "text"
)

// FieldTypes lists the field types a contract may declare.
var FieldTypes = []FieldType{FieldEmail, FieldPassword, FieldLatitude, FieldLongitude, FieldText}

// Known reports whether t is one of FieldTypes.
func (t FieldType) Known() bool {
	for _, k := range FieldTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Rule constrains a field value. Pattern applies to text-like fields,
// Min/Max to numeric ones.
type Rule struct {
	Pattern *regexp.Regexp
	Min     *float64
	Max     *float64
}

// Field is one input of a route's form.
type Field struct {
	ID       string
	Selector string
	Type     FieldType
	Required bool
	Rule     Rule
	// Message overrides the route message for a Rule violation.
	Message string
}

// Numeric reports whether the field holds a coordinate.
func (f Field) Numeric() bool {
	return f.Type == FieldLatitude || f.Type == FieldLongitude
}

// Indicator describes how success shows up: the path the app settles on
// and optionally an element (and text inside it) that must be present.
// Text may contain the placeholders {email} and {nearest_sea}.
type Indicator struct {
	Path     string
	Selector string
	Text     string
}

// Messages are the canonical texts a route uses for each rejection.
type Messages struct {
	Empty       string
	Email       string
	Numeric     string
	Latitude    string
	Longitude   string
	Credentials string
}

// Route is one page of the application.
type Route struct {
	Name            string
	Path            string
	Access          Access
	Unauthenticated Unauthenticated
	Submit          string
	Surface         Surface
	DeniedSurface   Surface
	DeniedMessage   string
	DeniedRedirect  string
	Success         Indicator
	// Ready is an element present once the page has rendered for a
	// permitted visitor. Visits use it instead of the success indicator.
	Ready           string
	Fields          []Field
	Messages        Messages
	// Credentials makes a valid-format submission check the account list.
	Credentials bool
	Geolocation bool
}

// RequiresAuth reports whether anonymous visits must be refused.
func (r Route) RequiresAuth() bool {
	return r.Access == AccessAuthenticated
}

// IndicatorSelector is the element that proves the page rendered for the
// given action.
func (r Route) IndicatorSelector(visit bool) string {
	if visit && r.Ready != "" {
		return r.Ready
	}
	return r.Success.Selector
}

// Field looks up a field by id.
func (r Route) Field(id string) (Field, bool) {
	for _, f := range r.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Account is a credential pair the application accepts.
type Account struct {
	Email    string
	Password string
}

// Timing is the latency budget of the observed contract.
type Timing struct {
	Runs    int
	Ceiling time.Duration
	Timeout time.Duration
}

// Logout is where the application ends a session.
type Logout struct {
	Path     string
	Selector string // logout control on authenticated pages, optional
}

// Contract is the full declarative model. It is immutable after Compile.
type Contract struct {
	Name     string
	Variant  string
	BaseURL  string
	Accounts []Account
	Timing   Timing
	Logout   Logout

	routes []Route
	byName map[string]int
}

// New builds a contract from routes, keeping their order.
func New(name string, routes []Route, accounts []Account, timing Timing) (*Contract, error) {
	c := &Contract{
		Name:     name,
		Accounts: accounts,
		Timing:   timing,
		routes:   routes,
		byName:   make(map[string]int, len(routes)),
	}
	for i, r := range routes {
		if _, dup := c.byName[r.Name]; dup {
			return nil, fmt.Errorf("duplicate route name %q", r.Name)
		}
		c.byName[r.Name] = i
	}
	return c, nil
}

// IsLogoutPath reports whether target (a path or URL) opens the logout path.
func (c *Contract) IsLogoutPath(target string) bool {
	return c.Logout.Path != "" && outcome.SamePath(target, c.Logout.Path)
}

// Routes returns the routes in declaration order.
func (c *Contract) Routes() []Route {
	out := make([]Route, len(c.routes))
	copy(out, c.routes)
	return out
}

// Route looks up a route by name.
func (c *Contract) Route(name string) (Route, error) {
	i, ok := c.byName[name]
	if !ok {
		return Route{}, fmt.Errorf("unknown route %q", name)
	}
	return c.routes[i], nil
}

// FieldsFor returns the route's fields in fill order.
func (c *Contract) FieldsFor(route string) ([]Field, error) {
	r, err := c.Route(route)
	if err != nil {
		return nil, err
	}
	out := make([]Field, len(r.Fields))
	copy(out, r.Fields)
	return out, nil
}
