package refapp

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/roach88/pagecheck/internal/geo"
)

// Messages shown by the application.
const (
	msgEmpty       = "Please fill in all fields."
	msgEmail       = "Please enter a valid email address."
	msgCredentials = "Invalid email address or password."
	msgNumeric     = "Coordinates must be numeric."
	msgLatitude    = "Latitude must be between -90 and 90 degrees."
	msgLongitude   = "Longitude must be between -180 and 180 degrees."

	deniedMessage       = "Login before accessing the application Page"
	deniedStaticMessage = "Login before accessing the Success Page"
)

var emailPattern = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := pongo2.Context{"static": s.variant == VariantStatic}
	if r.URL.Query().Get("denied") != "" {
		data["dialog"] = jsString(deniedMessage)
	}
	s.render(w, s.pages.login, data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := strings.TrimSpace(r.PostForm.Get("password"))

	if msg := s.checkLogin(email, password); msg != "" {
		data := pongo2.Context{"static": s.variant == VariantStatic, "email": email}
		if s.variant == VariantStatic {
			data["dialog"] = jsString(msg)
		} else {
			data["error"] = msg
		}
		s.logger.Debug("login rejected", "email", email, "reason", msg)
		s.render(w, s.pages.login, data)
		return
	}

	setSessionCookie(w, s.sessions.create(email))
	s.logger.Info("login", "email", email)

	target := PathDistance
	if s.variant == VariantStatic {
		target = PathSuccess
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) checkLogin(email, password string) string {
	if email == "" || password == "" {
		return msgEmpty
	}
	if !emailPattern.MatchString(email) {
		return msgEmail
	}
	for _, a := range s.accounts {
		if a.Email == email && a.Password == password {
			return ""
		}
	}
	return msgCredentials
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil && !s.faults.KeepSessionOnLogout {
		s.sessions.delete(c.Value)
	}
	if !s.faults.KeepSessionOnLogout {
		clearSessionCookie(w)
	}
	http.Redirect(w, r, PathLogin, http.StatusSeeOther)
}

func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	email, ok := s.sessionEmail(r)
	if !ok && !s.faults.AllowAnonymous {
		s.render(w, s.pages.success, pongo2.Context{"dialog": jsString(deniedStaticMessage)})
		return
	}
	if email == "" {
		email = "anonymous"
	}
	s.render(w, s.pages.success, pongo2.Context{"user": email})
}

func userOf(r *http.Request) string {
	email, _ := r.Context().Value(emailKey{}).(string)
	return email
}

func (s *Server) handleDistancePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, s.pages.distance, pongo2.Context{"user": userOf(r)})
}

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	lat := strings.TrimSpace(r.PostForm.Get("lat"))
	lng := strings.TrimSpace(r.PostForm.Get("lng"))
	data := pongo2.Context{"user": userOf(r), "lat": lat, "lng": lng}

	km, msg := s.solarDistance(lat, lng)
	if msg != "" {
		data["error"] = msg
	} else {
		data["distance"] = strconv.FormatFloat(km, 'f', 2, 64)
	}
	s.render(w, s.pages.distance, data)
}

// solarDistance validates the form values in the order the page shows
// errors: empty, numeric, latitude range, longitude range.
func (s *Server) solarDistance(lat, lng string) (float64, string) {
	if lat == "" || lng == "" {
		return 0, msgEmpty
	}
	p, ok := parsePoint(lat, lng)
	if !ok {
		return 0, msgNumeric
	}
	if s.faults.SkipRangeCheck {
		return geo.AverageSunDistanceKm - (p.Lat/90.0)*100000, ""
	}
	km, err := geo.SolarDistance(p)
	switch {
	case err == nil:
		return km, ""
	case errors.Is(err, geo.ErrLatitudeRange):
		return 0, msgLatitude
	default:
		return 0, msgLongitude
	}
}

func parsePoint(lat, lng string) (geo.Point, bool) {
	a, err := strconv.ParseFloat(lat, 64)
	if err != nil || math.IsNaN(a) || math.IsInf(a, 0) {
		return geo.Point{}, false
	}
	b, err := strconv.ParseFloat(lng, 64)
	if err != nil || math.IsNaN(b) || math.IsInf(b, 0) {
		return geo.Point{}, false
	}
	return geo.Point{Lat: a, Lng: b}, true
}

// ParseGeolocation parses a GeolocationHeader value. Accuracy is optional
// and ignored.
func ParseGeolocation(v string) (geo.Point, error) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return geo.Point{}, fmt.Errorf("geolocation %q: want lat,lng[,accuracy]", v)
	}
	p, ok := parsePoint(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	if !ok {
		return geo.Point{}, fmt.Errorf("geolocation %q: coordinates must be numeric", v)
	}
	if err := p.Validate(); err != nil {
		return geo.Point{}, fmt.Errorf("geolocation %q: %w", v, err)
	}
	return p, nil
}

func (s *Server) handleSea(w http.ResponseWriter, r *http.Request) {
	data := pongo2.Context{}
	if h := r.Header.Get(GeolocationHeader); h != "" {
		p, err := ParseGeolocation(h)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sea, km, _ := geo.NearestSea(p, geo.KnownSeas)
		data["sea"] = sea.Name
		data["km"] = strconv.FormatFloat(km, 'f', 2, 64)
	}
	s.render(w, s.pages.sea, data)
}

type seaResponse struct {
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
}

func (s *Server) handleSeaAPI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, ok := parsePoint(q.Get("lat"), q.Get("lng"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgNumeric})
		return
	}
	if err := p.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sea, km, _ := geo.NearestSea(p, geo.KnownSeas)
	writeJSON(w, http.StatusOK, seaResponse{Name: sea.Name, DistanceKm: km})
}
