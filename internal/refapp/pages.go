package refapp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/flosch/pongo2/v6"
)

const loginSource = `<!DOCTYPE html>
<html>
<head><title>Login</title></head>
<body>
{% if dialog %}<script>alert({{ dialog|safe }});</script>{% endif %}
<h1>Login</h1>
<form method="post" action="/">
  <input id="email" name="email" type="text" value="{{ email }}">
  <input id="password" name="password" type="password">
  {% if static %}<button type="submit">Login</button>{% else %}<button id="login" type="submit">Login</button>{% endif %}
</form>
{% if error %}<div role="alert">{{ error }}</div>{% endif %}
</body>
</html>
`

const distanceSource = `<!DOCTYPE html>
<html>
<head><title>Distance to the Sun</title></head>
<body>
<nav>
  <span id="user">{{ user }}</span>
  <a id="nearest-sea-link" href="/nearest-sea">Nearest sea</a>
  <a id="logout" href="/logout">Logout</a>
</nav>
<h1>Distance to the Sun</h1>
<form method="post" action="/distance-to-sun">
  <input name="lat" type="text" value="{{ lat }}">
  <input name="lng" type="text" value="{{ lng }}">
  <button id="sun_button" type="submit">Calculate</button>
</form>
{% if error %}<div role="alert">{{ error }}</div>{% endif %}
{% if distance %}<p id="distance">{{ distance }} km</p>{% endif %}
</body>
</html>
`

const seaSource = `<!DOCTYPE html>
<html>
<head><title>Nearest Sea</title></head>
<body>
<nav><a id="logout" href="/logout">Logout</a></nav>
<h1>Nearest Sea</h1>
{% if sea %}<p id="nearest-sea">Nearest Sea: {{ sea }}</p>
<p id="sea-distance">{{ km }} km</p>
{% else %}<p id="sea-status">Locating...</p>
<script>
if (navigator.geolocation) {
  navigator.geolocation.getCurrentPosition(function (pos) {
    fetch("/api/nearest-sea?lat=" + pos.coords.latitude + "&lng=" + pos.coords.longitude)
      .then(function (r) { return r.json(); })
      .then(function (d) {
        var p = document.createElement("p");
        p.id = "nearest-sea";
        p.textContent = "Nearest Sea: " + d.name;
        document.body.appendChild(p);
        document.getElementById("sea-status").remove();
      });
  }, function (err) {
    document.getElementById("sea-status").textContent = err.message;
  });
}
</script>
{% endif %}</body>
</html>
`

const successSource = `<!DOCTYPE html>
<html>
<head><title>Success</title></head>
<body>
{% if dialog %}<script>alert({{ dialog|safe }});</script>{% endif %}
{% if user %}<h2>Login Successful</h2>
<p id="welcome">Welcome, {{ user }}</p>
<a id="logout" href="/logout">Logout</a>{% endif %}
</body>
</html>
`

type pages struct {
	login    *pongo2.Template
	distance *pongo2.Template
	sea      *pongo2.Template
	success  *pongo2.Template
}

func compilePages() (*pages, error) {
	var p pages
	for _, t := range []struct {
		name   string
		source string
		dst    **pongo2.Template
	}{
		{"login", loginSource, &p.login},
		{"distance", distanceSource, &p.distance},
		{"sea", seaSource, &p.sea},
		{"success", successSource, &p.success},
	} {
		tpl, err := pongo2.FromString(t.source)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s page: %w", t.name, err)
		}
		*t.dst = tpl
	}
	return &p, nil
}

func (s *Server) render(w http.ResponseWriter, tpl *pongo2.Template, data pongo2.Context) {
	body, err := tpl.ExecuteBytes(data)
	if err != nil {
		s.logger.Error("render failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

// jsString quotes msg as a JavaScript string literal safe inside <script>.
func jsString(msg string) string {
	b, _ := json.Marshal(msg)
	return string(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
