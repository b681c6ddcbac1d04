package harness

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/pagecheck/internal/geo"
	"github.com/roach88/pagecheck/internal/outcome"
	"github.com/roach88/pagecheck/internal/testutil"
)

const testBaseURL = "http://app.test"

var fakeEmail = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)

// fakeApp scripts a FakeDriver to behave like the observed React
// application: inline alerts on the forms, a native alert plus redirect for
// anonymous visits to protected pages.
type fakeApp struct {
	d        *testutil.FakeDriver
	loggedIn bool

	// keepSession ignores logout.
	keepSession bool
	// skipRange accepts any numeric coordinate.
	skipRange bool
	// silent makes the submit buttons do nothing.
	silent bool
}

// newFakeApp builds the app. fields overrides the inputs present on the
// pages, to simulate a page whose shape differs from the contract.
func newFakeApp(fields ...string) *fakeApp {
	if len(fields) == 0 {
		fields = []string{"#email", "#password", "[name=lat]", "[name=lng]"}
	}
	a := &fakeApp{d: testutil.NewFakeDriver(fields...)}
	a.d.OnNavigate = func(d *testutil.FakeDriver, url string) error {
		a.render(outcome.PathOf(url))
		return nil
	}
	a.d.OnClick = func(d *testutil.FakeDriver, selector string) error {
		a.click(selector)
		return nil
	}
	return a
}

func (a *fakeApp) render(path string) {
	d := a.d
	d.ClearTexts()
	switch path {
	case "/distance-to-sun", "/nearest-sea":
		if !a.loggedIn {
			d.ShowDialog("Login before accessing the application Page")
			d.Go(testBaseURL + "/")
			return
		}
	}
	d.Go(testBaseURL + path)
	switch path {
	case "/distance-to-sun":
		d.SetText("#sun_button", "Calculate Distance")
	case "/nearest-sea":
		loc := d.Location()
		if loc == nil {
			d.SetText("#nearest-sea", "Nearest Sea: unknown")
			return
		}
		sea, _, _ := geo.NearestSea(geo.Point{Lat: loc[0], Lng: loc[1]}, geo.KnownSeas)
		d.SetText("#nearest-sea", "Nearest Sea: "+sea.Name)
	}
}

func (a *fakeApp) click(selector string) {
	if a.silent {
		return
	}
	d := a.d
	switch selector {
	case "#login":
		email, password := strings.TrimSpace(d.Value("#email")), strings.TrimSpace(d.Value("#password"))
		switch {
		case email == "" || password == "":
			d.SetText("[role=alert]", "Please fill in all fields.")
		case !fakeEmail.MatchString(email):
			d.SetText("[role=alert]", "Please enter a valid email address.")
		case email != "name@mail.com" || password != "password":
			d.SetText("[role=alert]", "Invalid email address or password. Please try again.")
		default:
			a.loggedIn = true
			a.render("/distance-to-sun")
		}
	case "#sun_button":
		d.RemoveText("[role=alert]")
		d.RemoveText("#distance")
		if msg := a.checkCoordinates(d.Value("[name=lat]"), d.Value("[name=lng]")); msg != "" {
			d.SetText("[role=alert]", msg)
			return
		}
		lat, _ := strconv.ParseFloat(d.Value("[name=lat]"), 64)
		lng, _ := strconv.ParseFloat(d.Value("[name=lng]"), 64)
		km, err := geo.SolarDistance(geo.Point{Lat: lat, Lng: lng})
		if err != nil {
			// Only reachable with skipRange.
			km = geo.AverageSunDistanceKm
		}
		d.SetText("#distance", fmt.Sprintf("Distance: %.2f km", km))
	case "#logout":
		if !a.keepSession {
			a.loggedIn = false
		}
		a.render("/")
	}
}

func (a *fakeApp) checkCoordinates(latText, lngText string) string {
	if strings.TrimSpace(latText) == "" || strings.TrimSpace(lngText) == "" {
		return "Please fill in all fields."
	}
	lat, err1 := strconv.ParseFloat(latText, 64)
	lng, err2 := strconv.ParseFloat(lngText, 64)
	if err1 != nil || err2 != nil {
		return "Coordinates must be numeric."
	}
	if a.skipRange {
		return ""
	}
	if lat < -90 || lat > 90 {
		return "Latitude must be between -90 and 90 degrees."
	}
	if lng < -180 || lng > 180 {
		return "Longitude must be between -180 and 180 degrees."
	}
	return ""
}
