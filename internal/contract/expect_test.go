package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pagecheck/internal/geo"
	"github.com/roach88/pagecheck/internal/outcome"
)

const (
	msgEmpty       = "Please fill in all fields."
	msgEmail       = "Please enter a valid email address."
	msgNumeric     = "Coordinates must be numeric."
	msgLatitude    = "Latitude must be between -90 and 90 degrees."
	msgLongitude   = "Longitude must be between -180 and 180 degrees."
	msgCredentials = "Invalid email address or password."
)

func reactContract(t *testing.T) *Contract {
	t.Helper()
	c, err := Builtin("react")
	require.NoError(t, err)
	return c
}

func TestExpectedOutcome_Login(t *testing.T) {
	c := reactContract(t)

	tests := []struct {
		name   string
		inputs Inputs
		want   outcome.Outcome
	}{
		{"both empty", Inputs{}, outcome.ValidationError(msgEmpty)},
		{"email empty", Inputs{"password": "password"}, outcome.ValidationError(msgEmpty)},
		{"password empty", Inputs{"email": "name@mail.com"}, outcome.ValidationError(msgEmpty)},
		{"whitespace only", Inputs{"email": "   ", "password": "password"}, outcome.ValidationError(msgEmpty)},
		{"empty wins over bad email", Inputs{"email": "nope"}, outcome.ValidationError(msgEmpty)},
		{"missing at", Inputs{"email": "namemail.com", "password": "password"}, outcome.ValidationError(msgEmail)},
		{"missing domain dot", Inputs{"email": "name@mailcom", "password": "password"}, outcome.ValidationError(msgEmail)},
		{"long tld", Inputs{"email": "name@mail.comcom", "password": "password"}, outcome.ValidationError(msgEmail)},
		{"wrong password", Inputs{"email": "name@mail.com", "password": "wrong"}, outcome.ValidationError(msgCredentials)},
		{"unknown account", Inputs{"email": "other@mail.com", "password": "password"}, outcome.ValidationError(msgCredentials)},
		{"valid", Inputs{"email": "name@mail.com", "password": "password"}, outcome.Success("/distance-to-sun")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ExpectedOutcome("login", tt.inputs)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestExpectedOutcome_Coordinates(t *testing.T) {
	c := reactContract(t)

	tests := []struct {
		name     string
		lat, lng string
		want     outcome.Outcome
	}{
		{"origin", "0", "0", outcome.Success("/distance-to-sun")},
		{"lower bounds", "-90", "-180", outcome.Success("/distance-to-sun")},
		{"upper bounds", "90", "180", outcome.Success("/distance-to-sun")},
		{"istanbul", "41.0082", "28.9784", outcome.Success("/distance-to-sun")},
		{"lat too low", "-90.0001", "0", outcome.ValidationError(msgLatitude)},
		{"lat too high", "91", "0", outcome.ValidationError(msgLatitude)},
		{"lng too low", "0", "-181", outcome.ValidationError(msgLongitude)},
		{"lng too high", "0", "180.5", outcome.ValidationError(msgLongitude)},
		{"both out of range reports latitude", "100", "200", outcome.ValidationError(msgLatitude)},
		{"lat not numeric", "north", "0", outcome.ValidationError(msgNumeric)},
		{"lng not numeric", "0", "east", outcome.ValidationError(msgNumeric)},
		{"numeric check before range", "100", "east", outcome.ValidationError(msgNumeric)},
		{"NaN is not numeric", "NaN", "0", outcome.ValidationError(msgNumeric)},
		{"Inf is not numeric", "0", "Inf", outcome.ValidationError(msgNumeric)},
		{"trailing garbage is not numeric", "45abc", "0", outcome.ValidationError(msgNumeric)},
		{"lat empty", "", "0", outcome.ValidationError(msgEmpty)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ExpectedOutcome("distance", Inputs{"lat": tt.lat, "lng": tt.lng})
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestExpectedOutcome_FieldOrderDoesNotMatter(t *testing.T) {
	c := reactContract(t)

	// Inputs is a map, but build it in both orders to make the intent
	// explicit: the contract's declared order decides precedence.
	a := Inputs{}
	a["lat"] = "100"
	a["lng"] = "east"
	b := Inputs{}
	b["lng"] = "east"
	b["lat"] = "100"

	ga, err := c.ExpectedOutcome("distance", a)
	require.NoError(t, err)
	gb, err := c.ExpectedOutcome("distance", b)
	require.NoError(t, err)
	assert.Equal(t, ga, gb)
}

func TestExpectedOutcome_UnknownRoute(t *testing.T) {
	c := reactContract(t)
	_, err := c.ExpectedOutcome("nope", Inputs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown route")
}

func TestExpectedVisit(t *testing.T) {
	c := reactContract(t)

	for _, route := range []string{"distance", "sea"} {
		got, err := c.ExpectedVisit(route, false)
		require.NoError(t, err)
		assert.Equal(t, outcome.AuthDenied("Login before accessing the application Page"), got)
		assert.NotEqual(t, outcome.KindSuccess, got.Kind)

		got, err = c.ExpectedVisit(route, true)
		require.NoError(t, err)
		assert.Equal(t, outcome.KindSuccess, got.Kind)
	}

	got, err := c.ExpectedVisit("login", false)
	require.NoError(t, err)
	assert.Equal(t, outcome.Success("/"), got)
}

func TestExpectation_NearestSeaText(t *testing.T) {
	c := reactContract(t)

	istanbul := &geo.Point{Lat: 41.0082, Lng: 28.9784}
	exp, err := c.Expectation("sea", nil, istanbul)
	require.NoError(t, err)

	assert.Equal(t, "/nearest-sea", exp.SuccessPath)
	assert.True(t, exp.RequireIndicator)
	assert.Equal(t, "Nearest Sea: Sea of Marmara", exp.IndicatorText)
	assert.True(t, exp.RequiresAuth)
	assert.Equal(t, "/", exp.DeniedRedirect)
	assert.Equal(t, []string{"Login before accessing the application Page"}, exp.DeniedPhrases)

	exp, err = c.Expectation("sea", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Nearest Sea:", exp.IndicatorText)

	r, err := c.Route("sea")
	require.NoError(t, err)
	_, err = c.SuccessText(r, nil, nil)
	assert.ErrorIs(t, err, ErrNoLocation)
}

func TestVisitExpectation(t *testing.T) {
	c := reactContract(t)

	exp, err := c.VisitExpectation("login", nil)
	require.NoError(t, err)
	assert.Equal(t, "/", exp.SuccessPath)
	assert.False(t, exp.RequireIndicator)
	assert.False(t, exp.RequiresAuth)

	exp, err = c.VisitExpectation("distance", nil)
	require.NoError(t, err)
	assert.Equal(t, "/distance-to-sun", exp.SuccessPath)
	assert.True(t, exp.RequireIndicator)
	assert.Empty(t, exp.IndicatorText)

	r, err := c.Route("distance")
	require.NoError(t, err)
	assert.Equal(t, "#sun_button", r.IndicatorSelector(true))
	assert.Equal(t, "#distance", r.IndicatorSelector(false))
}

func TestExpectation_MessagesAreDeduplicated(t *testing.T) {
	c := reactContract(t)

	exp, err := c.Expectation("distance", Inputs{"lat": "1", "lng": "2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{msgEmpty, msgNumeric, msgLatitude, msgLongitude}, exp.Messages)

	exp, err = c.Expectation("login", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{msgEmpty, msgEmail, msgCredentials}, exp.Messages)
}

func TestSuccessText_EmailPlaceholder(t *testing.T) {
	c := reactContract(t)
	r, err := c.Route("login")
	require.NoError(t, err)
	r.Success.Text = "Welcome {email}"

	text, err := c.SuccessText(r, Inputs{"email": "name@mail.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Welcome name@mail.com", text)
}

func TestExpectedOutcome_StaticVariant(t *testing.T) {
	c, err := Builtin("static")
	require.NoError(t, err)

	got, err := c.ExpectedOutcome("login", Inputs{"email": "name@mail.com", "password": "password"})
	require.NoError(t, err)
	assert.Equal(t, outcome.Success("/success.html"), got)

	got, err = c.ExpectedVisit("success", false)
	require.NoError(t, err)
	assert.Equal(t, outcome.AuthDenied("Login before accessing the Success Page"), got)
}
