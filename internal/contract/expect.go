package contract

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/pagecheck/internal/geo"
	"github.com/roach88/pagecheck/internal/outcome"
)

// EmailPattern is the address format the observed login form accepts.
var EmailPattern = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)

// Inputs maps field ids to the values a scenario types. Missing ids are
// treated as empty.
type Inputs map[string]string

// ExpectedOutcome is what submitting inputs on route must produce for an
// authenticated (or public) session.
//
// Checks run in the order the application applies them: empty required
// fields, then formats (email, numeric), then numeric ranges in field
// order, then credentials.
func (c *Contract) ExpectedOutcome(route string, inputs Inputs) (outcome.Outcome, error) {
	r, err := c.Route(route)
	if err != nil {
		return outcome.Outcome{}, err
	}

	for _, f := range r.Fields {
		if f.Required && strings.TrimSpace(inputs[f.ID]) == "" {
			return outcome.ValidationError(r.Messages.Empty), nil
		}
	}

	values := make(map[string]float64)
	for _, f := range r.Fields {
		v := strings.TrimSpace(inputs[f.ID])
		if v == "" {
			continue
		}
		switch {
		case f.Type == FieldEmail:
			if !EmailPattern.MatchString(v) {
				return outcome.ValidationError(firstNonEmpty(f.Message, r.Messages.Email)), nil
			}
		case f.Numeric():
			n, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
				return outcome.ValidationError(r.Messages.Numeric), nil
			}
			values[f.ID] = n
		}
		if f.Rule.Pattern != nil && !f.Rule.Pattern.MatchString(v) {
			return outcome.ValidationError(firstNonEmpty(f.Message, r.Messages.Email)), nil
		}
	}

	for _, f := range r.Fields {
		n, ok := values[f.ID]
		if !ok {
			continue
		}
		if outOfRange(n, f) {
			return outcome.ValidationError(firstNonEmpty(f.Message, rangeMessage(r, f))), nil
		}
	}

	if r.Credentials && !c.accepts(r, inputs) {
		return outcome.ValidationError(r.Messages.Credentials), nil
	}

	return outcome.Success(r.Success.Path), nil
}

// ExpectedVisit is what navigating straight to route must produce.
func (c *Contract) ExpectedVisit(route string, authenticated bool) (outcome.Outcome, error) {
	r, err := c.Route(route)
	if err != nil {
		return outcome.Outcome{}, err
	}
	if r.RequiresAuth() && !authenticated {
		return outcome.AuthDenied(r.DeniedMessage), nil
	}
	return outcome.Success(r.Path), nil
}

// Expectation builds the classifier input for one scenario on route.
// location is the emulated device position, or nil.
func (c *Contract) Expectation(route string, inputs Inputs, location *geo.Point) (outcome.Expectation, error) {
	r, err := c.Route(route)
	if err != nil {
		return outcome.Expectation{}, err
	}
	exp := outcome.Expectation{
		Messages:         r.messageList(),
		SuccessPath:      r.Success.Path,
		RequireIndicator: r.Success.Selector != "",
		RequiresAuth:     r.RequiresAuth(),
		DeniedRedirect:   r.DeniedRedirect,
	}
	if r.DeniedMessage != "" {
		exp.DeniedPhrases = []string{r.DeniedMessage}
	}
	text, err := c.SuccessText(r, inputs, location)
	switch {
	case errors.Is(err, ErrNoLocation):
		// Without a location only the fixed part of the text is known.
		text, _, _ = strings.Cut(r.Success.Text, "{nearest_sea}")
		text = strings.TrimSpace(text)
	case err != nil:
		return outcome.Expectation{}, err
	}
	exp.IndicatorText = text
	return exp, nil
}

// VisitExpectation builds the classifier input for navigating to route
// without submitting anything. Reaching the route's own path is success;
// the indicator is only required when it lives on that page.
func (c *Contract) VisitExpectation(route string, location *geo.Point) (outcome.Expectation, error) {
	exp, err := c.Expectation(route, nil, location)
	if err != nil {
		return outcome.Expectation{}, err
	}
	r, _ := c.Route(route)
	switch {
	case r.Ready != "" && r.Ready != r.Success.Selector:
		exp.RequireIndicator = true
		exp.IndicatorText = ""
	case r.Ready == "" && !outcome.SamePath(r.Path, r.Success.Path):
		exp.RequireIndicator = false
		exp.IndicatorText = ""
	}
	exp.SuccessPath = r.Path
	return exp, nil
}

// ErrNoLocation is returned when a success text needs a device location
// the scenario did not provide.
var ErrNoLocation = errors.New("success text needs {nearest_sea} but scenario sets no geolocation")

// SuccessText resolves the placeholders in the route's success text.
func (c *Contract) SuccessText(r Route, inputs Inputs, location *geo.Point) (string, error) {
	text := r.Success.Text
	if strings.Contains(text, "{email}") {
		text = strings.ReplaceAll(text, "{email}", inputs["email"])
	}
	if strings.Contains(text, "{nearest_sea}") {
		if location == nil {
			return "", ErrNoLocation
		}
		sea, _, ok := geo.NearestSea(*location, geo.KnownSeas)
		if !ok {
			return "", fmt.Errorf("no reference seas configured")
		}
		text = strings.ReplaceAll(text, "{nearest_sea}", sea.Name)
	}
	return text, nil
}

func (c *Contract) accepts(r Route, inputs Inputs) bool {
	var email, password string
	for _, f := range r.Fields {
		switch f.Type {
		case FieldEmail:
			email = strings.TrimSpace(inputs[f.ID])
		case FieldPassword:
			password = strings.TrimSpace(inputs[f.ID])
		}
	}
	for _, a := range c.Accounts {
		if a.Email == email && a.Password == password {
			return true
		}
	}
	return false
}

func (r Route) messageList() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(m string) {
		if m != "" && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	add(r.Messages.Empty)
	for _, f := range r.Fields {
		add(f.Message)
		switch f.Type {
		case FieldEmail:
			add(r.Messages.Email)
		case FieldLatitude:
			add(r.Messages.Numeric)
			add(r.Messages.Latitude)
		case FieldLongitude:
			add(r.Messages.Numeric)
			add(r.Messages.Longitude)
		}
	}
	if r.Credentials {
		add(r.Messages.Credentials)
	}
	return out
}

func outOfRange(n float64, f Field) bool {
	if f.Rule.Min != nil && n < *f.Rule.Min {
		return true
	}
	if f.Rule.Max != nil && n > *f.Rule.Max {
		return true
	}
	return false
}

func rangeMessage(r Route, f Field) string {
	if f.Type == FieldLongitude {
		return r.Messages.Longitude
	}
	return r.Messages.Latitude
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
